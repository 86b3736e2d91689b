package handler

import (
	"net/http"

	"fleetshop/internal/service"

	"github.com/labstack/echo/v4"
)

// QuoteHandler serves quotes and their line items
type QuoteHandler struct {
	quotes *service.QuoteService
}

// NewQuoteHandler creates a quote handler
func NewQuoteHandler(quotes *service.QuoteService) *QuoteHandler {
	return &QuoteHandler{quotes: quotes}
}

// CreateQuote opens a draft quote for a job
func (h *QuoteHandler) CreateQuote(c echo.Context) error {
	var req service.CreateQuoteInput
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	quote, err := h.quotes.CreateQuote(actorFrom(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, quote)
}

// ListQuotes lists quotes, filtered by ?status= and ?job_id=
func (h *QuoteHandler) ListQuotes(c echo.Context) error {
	var jobID uint64
	f := service.QuoteFilter{PageRequest: pageRequest(c)}
	if err := echo.QueryParamsBinder(c).
		String("status", &f.Status).
		Uint64("job_id", &jobID).
		BindError(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid query parameters"})
	}
	f.JobID = uint(jobID)

	quotes, page, err := h.quotes.ListQuotes(actorFrom(c), f)
	if err != nil {
		return respondError(c, err)
	}
	return paginated(c, quotes, page)
}

// GetQuote returns a quote with its items
func (h *QuoteHandler) GetQuote(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	quote, err := h.quotes.GetQuote(actorFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, quote)
}

// AddQuoteItem prices and appends a line to a draft quote
func (h *QuoteHandler) AddQuoteItem(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req service.QuoteItemInput
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	quote, err := h.quotes.AddQuoteItem(actorFrom(c), id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, quote)
}

// RemoveQuoteItem drops a line from a draft quote
func (h *QuoteHandler) RemoveQuoteItem(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	itemID, err := paramID(c, "itemId")
	if err != nil {
		return respondError(c, err)
	}

	quote, err := h.quotes.RemoveQuoteItem(actorFrom(c), id, itemID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, quote)
}

// RecalculateQuote recomputes the quote totals from its items
func (h *QuoteHandler) RecalculateQuote(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	quote, err := h.quotes.RecalculateQuoteTotals(actorFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, quote)
}

// SendQuote marks a draft quote as sent to the client
func (h *QuoteHandler) SendQuote(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	quote, err := h.quotes.SendQuote(actorFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, quote)
}

// ApproveQuote records a signed approval taken in the shop
func (h *QuoteHandler) ApproveQuote(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req service.ApprovalInput
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	req.ClientIP = c.RealIP()

	quote, err := h.quotes.ApproveQuote(actorFrom(c), id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, quote)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// RejectQuote records the client's rejection
func (h *QuoteHandler) RejectQuote(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req rejectRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	quote, err := h.quotes.RejectQuote(actorFrom(c), id, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, quote)
}
