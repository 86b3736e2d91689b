package handler

import (
	"net/http"
	"time"

	"fleetshop/internal/service"

	"github.com/labstack/echo/v4"
)

// CalendarHandler serves the shop calendar
type CalendarHandler struct {
	calendar *service.CalendarService
}

// NewCalendarHandler creates a calendar handler
func NewCalendarHandler(calendar *service.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendar: calendar}
}

// ListEvents lists events overlapping ?from= and ?to= (RFC 3339)
func (h *CalendarHandler) ListEvents(c echo.Context) error {
	var r service.EventRange
	var assignedUserID, jobID uint64
	if err := echo.QueryParamsBinder(c).
		Time("from", &r.From, time.RFC3339).
		Time("to", &r.To, time.RFC3339).
		Uint64("assigned_user_id", &assignedUserID).
		Uint64("job_id", &jobID).
		BindError(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid query parameters"})
	}
	if assignedUserID != 0 {
		id := uint(assignedUserID)
		r.AssignedUserID = &id
	}
	if jobID != 0 {
		id := uint(jobID)
		r.JobID = &id
	}

	events, err := h.calendar.ListEvents(actorFrom(c), r)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": events})
}

// CreateEvent schedules an event
func (h *CalendarHandler) CreateEvent(c echo.Context) error {
	var req service.EventInput
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	event, err := h.calendar.CreateEvent(actorFrom(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, event)
}

// UpdateEvent edits an event
func (h *CalendarHandler) UpdateEvent(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req service.EventUpdate
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	event, err := h.calendar.UpdateEvent(actorFrom(c), id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, event)
}

// DeleteEvent removes an event
func (h *CalendarHandler) DeleteEvent(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.calendar.DeleteEvent(actorFrom(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
