package handler

import (
	"net/http"

	"fleetshop/internal/service"

	"github.com/labstack/echo/v4"
)

const dateLayout = "2006-01-02"

// ReportHandler serves the dashboard and reports
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler creates a report handler
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// dateRange reads ?start_date= and ?end_date= as YYYY-MM-DD
func dateRange(c echo.Context) (service.DateRange, error) {
	var r service.DateRange
	err := echo.QueryParamsBinder(c).
		Time("start_date", &r.Start, dateLayout).
		Time("end_date", &r.End, dateLayout).
		BindError()
	return r, err
}

// Dashboard returns this month's headline numbers
func (h *ReportHandler) Dashboard(c echo.Context) error {
	metrics, err := h.reports.DashboardMetrics(actorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, metrics)
}

// Revenue reports invoices issued in a date range
func (h *ReportHandler) Revenue(c echo.Context) error {
	r, err := dateRange(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "dates must be YYYY-MM-DD"})
	}
	report, err := h.reports.RevenueData(actorFrom(c), r)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

// Jobs reports turnaround for jobs created in a date range
func (h *ReportHandler) Jobs(c echo.Context) error {
	r, err := dateRange(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "dates must be YYYY-MM-DD"})
	}
	report, err := h.reports.JobMetrics(actorFrom(c), r)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

// Technicians reports per-technician productivity in a date range
func (h *ReportHandler) Technicians(c echo.Context) error {
	r, err := dateRange(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "dates must be YYYY-MM-DD"})
	}
	stats, err := h.reports.TechnicianProductivity(actorFrom(c), r)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": stats})
}

// Overdue lists late jobs and unpaid invoices
func (h *ReportHandler) Overdue(c echo.Context) error {
	report, err := h.reports.OverdueData(actorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}
