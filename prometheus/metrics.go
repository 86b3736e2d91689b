package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetshop_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Responses by status class
	StatusCategoryCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetshop_http_status_category_total",
			Help: "Total number of responses by status category (2xx, 4xx, 5xx)",
		},
		[]string{"category"},
	)

	// Error counters
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetshop_auth_errors_total",
			Help: "Total number of authentication and authorization errors",
		},
		[]string{"type"}, // "missing_token", "invalid_token", "forbidden", "login_failure"
	)

	// Domain operations, e.g. entity=quote action=approved
	DomainOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetshop_domain_operations_total",
			Help: "Total number of domain operations by entity and action",
		},
		[]string{"entity", "action"},
	)

	StockMovementCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetshop_stock_movements_total",
			Help: "Total number of inventory movements by type",
		},
		[]string{"movement_type"},
	)
)

// Histogram metrics
var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetshop_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetshop_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Money values of quotes, invoices and payments
	DocumentValue = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetshop_document_value",
			Help:    "Monetary value of quotes, invoices and payments",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 25000},
		},
		[]string{"document"},
	)
)

// Gauge metrics
var (
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleetshop_info",
			Help: "Information about the service",
		},
		[]string{"version"},
	)

	ActiveTenantsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetshop_active_tenants",
			Help: "Number of currently active tenants",
		},
	)

	LowStockGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleetshop_low_stock_parts",
			Help: "Number of parts at or below their minimum stock level",
		},
		[]string{"tenant_id"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(StatusCategoryCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(DomainOperationCounter)
	prometheus.MustRegister(StockMovementCounter)

	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)
	prometheus.MustRegister(DocumentValue)

	prometheus.MustRegister(InfoGauge)
	prometheus.MustRegister(ActiveTenantsGauge)
	prometheus.MustRegister(LowStockGauge)

	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation returns a function that records the duration of a database operation
// started at startTime: defer TrackDBOperation("op")(time.Now())
func TrackDBOperation(operation string) func(startTime time.Time) {
	return func(startTime time.Time) {
		DBOperationDuration.WithLabelValues(operation).Observe(time.Since(startTime).Seconds())
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			statusCode := c.Response().Status
			status := strconv.Itoa(statusCode)
			labels := prometheus.Labels{
				"endpoint": c.Path(),
				"method":   c.Request().Method,
				"status":   status,
			}

			RequestDuration.With(labels).Observe(time.Since(start).Seconds())
			HTTPRequestCounter.With(labels).Inc()
			StatusCategoryCounter.With(prometheus.Labels{"category": StatusCategory(statusCode)}).Inc()

			return nil
		}
	}
}

// StatusCategory maps a status code to its class label
func StatusCategory(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordDomainOperation records a completed domain operation
func RecordDomainOperation(entity, action string) {
	DomainOperationCounter.With(prometheus.Labels{"entity": entity, "action": action}).Inc()
}

// RecordStockMovement records an inventory movement
func RecordStockMovement(movementType string) {
	StockMovementCounter.With(prometheus.Labels{"movement_type": movementType}).Inc()
}

// ObserveDocumentValue records the value of a quote, invoice or payment
func ObserveDocumentValue(document string, value float64) {
	DocumentValue.With(prometheus.Labels{"document": document}).Observe(value)
}

// UpdateActiveTenants updates the active tenants gauge
func UpdateActiveTenants(count int64) {
	ActiveTenantsGauge.Set(float64(count))
}

// UpdateLowStock updates the low-stock gauge of a tenant
func UpdateLowStock(tenantID uint, count int64) {
	LowStockGauge.With(prometheus.Labels{
		"tenant_id": strconv.FormatUint(uint64(tenantID), 10),
	}).Set(float64(count))
}
