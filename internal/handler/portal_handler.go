package handler

import (
	"net/http"

	"fleetshop/internal/service"
	"fleetshop/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// PortalHandler serves the client self-service portal
type PortalHandler struct {
	portal   *service.PortalService
	invoices *service.InvoiceService
}

// NewPortalHandler creates a portal handler
func NewPortalHandler(portal *service.PortalService, invoices *service.InvoiceService) *PortalHandler {
	return &PortalHandler{portal: portal, invoices: invoices}
}

// Login exchanges client portal credentials for a portal token
func (h *PortalHandler) Login(c echo.Context) error {
	var req service.PortalLoginInput
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	res, err := h.portal.PortalLogin(req)
	if err != nil {
		return respondError(c, err)
	}
	logger.FromContext(c).Info("Portal login", zap.Uint("client_id", res.Client.ID), zap.Uint("tenant_id", res.Client.TenantID))
	return c.JSON(http.StatusOK, res)
}

// Dashboard returns the client's jobs, quotes and invoices
func (h *PortalHandler) Dashboard(c echo.Context) error {
	dash, err := h.portal.PortalDashboard(actorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, dash)
}

// ListInvoices lists the client's invoices
func (h *PortalHandler) ListInvoices(c echo.Context) error {
	f := service.InvoiceFilter{Status: c.QueryParam("status"), PageRequest: pageRequest(c)}
	invoices, page, err := h.invoices.ListInvoices(actorFrom(c), f)
	if err != nil {
		return respondError(c, err)
	}
	return paginated(c, invoices, page)
}

// GetInvoice returns one of the client's invoices
func (h *PortalHandler) GetInvoice(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	invoice, err := h.invoices.GetInvoice(actorFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, invoice)
}

// ApproveQuote signs off one of the client's quotes
func (h *PortalHandler) ApproveQuote(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req service.ApprovalInput
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	req.ClientIP = c.RealIP()

	quote, err := h.portal.ApproveQuote(actorFrom(c), id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, quote)
}

// RejectQuote declines one of the client's quotes
func (h *PortalHandler) RejectQuote(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req rejectRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	quote, err := h.portal.RejectQuote(actorFrom(c), id, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, quote)
}
