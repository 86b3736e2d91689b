package handler

import (
	"net/http"

	"fleetshop/internal/service"

	"github.com/labstack/echo/v4"
)

// SupplierHandler serves suppliers and purchase orders
type SupplierHandler struct {
	suppliers *service.SupplierService
}

// NewSupplierHandler creates a supplier handler
func NewSupplierHandler(suppliers *service.SupplierService) *SupplierHandler {
	return &SupplierHandler{suppliers: suppliers}
}

// CreateSupplier adds a supplier
func (h *SupplierHandler) CreateSupplier(c echo.Context) error {
	var req service.SupplierInput
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	supplier, err := h.suppliers.CreateSupplier(actorFrom(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, supplier)
}

// ListSuppliers lists suppliers; ?active=true|false filters by state
func (h *SupplierHandler) ListSuppliers(c echo.Context) error {
	f := service.SupplierFilter{PageRequest: pageRequest(c)}
	if raw := c.QueryParam("active"); raw != "" {
		var active bool
		if err := echo.QueryParamsBinder(c).Bool("active", &active).BindError(); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid query parameters"})
		}
		f.IsActive = &active
	}

	suppliers, page, err := h.suppliers.ListSuppliers(actorFrom(c), f)
	if err != nil {
		return respondError(c, err)
	}
	return paginated(c, suppliers, page)
}

// GetSupplier returns one supplier
func (h *SupplierHandler) GetSupplier(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	supplier, err := h.suppliers.GetSupplier(actorFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, supplier)
}

// CreatePurchaseOrder opens a pending order
func (h *SupplierHandler) CreatePurchaseOrder(c echo.Context) error {
	var req service.PurchaseOrderInput
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	order, err := h.suppliers.CreatePurchaseOrder(actorFrom(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, order)
}

// ListPurchaseOrders lists orders, filtered by ?status= and ?supplier_id=
func (h *SupplierHandler) ListPurchaseOrders(c echo.Context) error {
	var supplierID uint64
	f := service.PurchaseOrderFilter{PageRequest: pageRequest(c)}
	if err := echo.QueryParamsBinder(c).
		String("status", &f.Status).
		Uint64("supplier_id", &supplierID).
		BindError(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid query parameters"})
	}
	f.SupplierID = uint(supplierID)

	orders, page, err := h.suppliers.ListPurchaseOrders(actorFrom(c), f)
	if err != nil {
		return respondError(c, err)
	}
	return paginated(c, orders, page)
}

type orderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ordered received cancelled"`
}

// UpdatePurchaseOrderStatus advances or cancels an order
func (h *SupplierHandler) UpdatePurchaseOrderStatus(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req orderStatusRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	order, err := h.suppliers.UpdatePurchaseOrderStatus(actorFrom(c), id, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}
