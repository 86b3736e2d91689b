package handler

import (
	"net/http"

	"fleetshop/internal/service"

	"github.com/labstack/echo/v4"
)

// InvoiceHandler serves invoices and payments
type InvoiceHandler struct {
	invoices *service.InvoiceService
}

// NewInvoiceHandler creates an invoice handler
func NewInvoiceHandler(invoices *service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

type invoiceFromQuoteRequest struct {
	QuoteID uint `json:"quote_id" validate:"required"`
}

// CreateInvoice bills an approved quote
func (h *InvoiceHandler) CreateInvoice(c echo.Context) error {
	var req invoiceFromQuoteRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	invoice, err := h.invoices.CreateInvoiceFromQuote(actorFrom(c), req.QuoteID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, invoice)
}

// ListInvoices lists invoices, filtered by ?status= and ?client_id=
func (h *InvoiceHandler) ListInvoices(c echo.Context) error {
	var clientID uint64
	f := service.InvoiceFilter{PageRequest: pageRequest(c)}
	if err := echo.QueryParamsBinder(c).
		String("status", &f.Status).
		Uint64("client_id", &clientID).
		BindError(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid query parameters"})
	}
	f.ClientID = uint(clientID)

	invoices, page, err := h.invoices.ListInvoices(actorFrom(c), f)
	if err != nil {
		return respondError(c, err)
	}
	return paginated(c, invoices, page)
}

// GetInvoice returns an invoice with its items
func (h *InvoiceHandler) GetInvoice(c echo.Context) error {
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

// RecordPayment applies a payment to an invoice
func (h *InvoiceHandler) RecordPayment(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req service.PaymentInput
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	invoice, err := h.invoices.RecordPayment(actorFrom(c), id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, invoice)
}

// SendInvoice marks a draft invoice as sent
func (h *InvoiceHandler) SendInvoice(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	invoice, err := h.invoices.SendInvoice(actorFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, invoice)
}

// CancelInvoice cancels an unpaid invoice
func (h *InvoiceHandler) CancelInvoice(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	invoice, err := h.invoices.CancelInvoice(actorFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, invoice)
}
