package handler

import (
	"net/http"

	"fleetshop/internal/service"

	"github.com/labstack/echo/v4"
)

// ClientHandler serves clients, their vehicles and portal access
type ClientHandler struct {
	clients *service.ClientService
}

// NewClientHandler creates a client handler
func NewClientHandler(clients *service.ClientService) *ClientHandler {
	return &ClientHandler{clients: clients}
}

// CreateClient adds a client
func (h *ClientHandler) CreateClient(c echo.Context) error {
	var req service.ClientInput
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	client, err := h.clients.CreateClient(actorFrom(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, client)
}

// ListClients lists clients, filtered by ?search=
func (h *ClientHandler) ListClients(c echo.Context) error {
	f := service.ClientFilter{Search: c.QueryParam("search"), PageRequest: pageRequest(c)}
	clients, page, err := h.clients.ListClients(actorFrom(c), f)
	if err != nil {
		return respondError(c, err)
	}
	return paginated(c, clients, page)
}

// GetClient returns a client with their vehicles
func (h *ClientHandler) GetClient(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	client, err := h.clients.GetClient(actorFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, client)
}

// CreateVehicle adds a vehicle to a client
func (h *ClientHandler) CreateVehicle(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req service.VehicleInput
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	vehicle, err := h.clients.CreateVehicle(actorFrom(c), id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, vehicle)
}

// ListVehicles lists a client's vehicles
func (h *ClientHandler) ListVehicles(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	vehicles, err := h.clients.ListVehicles(actorFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": vehicles})
}

type portalAccessRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

// EnablePortalAccess sets a client's portal password
func (h *ClientHandler) EnablePortalAccess(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req portalAccessRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	client, err := h.clients.EnablePortalAccess(actorFrom(c), id, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, client)
}

// DisablePortalAccess revokes a client's portal login
func (h *ClientHandler) DisablePortalAccess(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.clients.DisablePortalAccess(actorFrom(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
