package handler

import (
	"net/http"

	"fleetshop/internal/service"

	"github.com/labstack/echo/v4"
)

// InventoryHandler serves the parts catalogue and stock counts
type InventoryHandler struct {
	inventory *service.InventoryService
}

// NewInventoryHandler creates an inventory handler
func NewInventoryHandler(inventory *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

// CreatePart adds a part to the catalogue
func (h *InventoryHandler) CreatePart(c echo.Context) error {
	var req service.PartInput
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	part, err := h.inventory.CreatePart(actorFrom(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, part)
}

// ListParts lists parts filtered by category, condition, search and low_stock
func (h *InventoryHandler) ListParts(c echo.Context) error {
	f := service.PartFilter{PageRequest: pageRequest(c)}
	if err := echo.QueryParamsBinder(c).
		String("category", &f.Category).
		String("condition", &f.Condition).
		String("search", &f.Search).
		Bool("low_stock", &f.LowStock).
		BindError(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid query parameters"})
	}

	parts, page, err := h.inventory.ListParts(actorFrom(c), f)
	if err != nil {
		return respondError(c, err)
	}
	return paginated(c, parts, page)
}

// GetPart returns one part
func (h *InventoryHandler) GetPart(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	part, err := h.inventory.GetPart(actorFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, part)
}

type stockRequest struct {
	NewStock *int   `json:"new_stock" validate:"required,gte=0"`
	Reason   string `json:"reason" validate:"required"`
}

// UpdatePartStock sets a part's counted stock
func (h *InventoryHandler) UpdatePartStock(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req stockRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	part, err := h.inventory.UpdatePartStock(actorFrom(c), id, *req.NewStock, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, part)
}

// ListMovements returns a part's stock history, newest first
func (h *InventoryHandler) ListMovements(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	movements, err := h.inventory.ListMovements(actorFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": movements})
}
