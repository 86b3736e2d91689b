package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fleetshop/internal/server"
	"fleetshop/internal/testutil"
	"fleetshop/pkg/config"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testConfig = &config.Config{
	JWT:     config.JWTConfig{SigningKey: "test-key", ExpirationHours: 1, PortalExpirationHours: 1},
	Billing: config.BillingConfig{DefaultTaxRate: 15, InvoiceDueDays: 30, QuoteValidityDays: 30},
	Cache:   config.CacheConfig{ReportEntries: 64, ReportTTL: time.Minute},
	Node:    config.NodeConfig{ID: 1},
}

type app struct {
	e  *echo.Echo
	db *gorm.DB
}

func newApp(t *testing.T) *app {
	t.Helper()
	db := testutil.NewDB(t)
	e, err := server.New(testConfig, db, zap.NewNop())
	require.NoError(t, err)
	return &app{e: e, db: db}
}

func (a *app) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

type entity struct {
	ID uint `json:"id"`
}

// signUp registers a shop and returns its admin token
func (a *app) signUp(t *testing.T, company, email string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/signup", "", echo.Map{
		"company_name": company,
		"email":        email,
		"password":     "password123",
		"first_name":   "Owner",
		"last_name":    "One",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return a.login(t, email, "password123")
}

func (a *app) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/login", "", echo.Map{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		Token string `json:"token"`
	}
	decode(t, rec, &res)
	require.NotEmpty(t, res.Token)
	return res.Token
}

func (a *app) create(t *testing.T, path, token string, body interface{}) uint {
	t.Helper()
	rec := a.do(t, http.MethodPost, path, token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var e entity
	decode(t, rec, &e)
	require.NotZero(t, e.ID)
	return e.ID
}

// clientWithVehicle creates a client with a portal-capable email and one vehicle
func (a *app) clientWithVehicle(t *testing.T, token, email string) (clientID, vehicleID uint) {
	t.Helper()
	clientID = a.create(t, "/api/clients", token, echo.Map{"first_name": "Thandi", "last_name": "Mokoena", "email": email})
	vehicleID = a.create(t, fmt.Sprintf("/api/clients/%d/vehicles", clientID), token, echo.Map{
		"make": "Toyota", "model": "Hilux", "year": 2021, "registration": "CA 123-456",
	})
	return clientID, vehicleID
}

func TestHealthAndRequestID(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"fleetshop","database":"up"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = a.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignUpAndLogin(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodPost, "/auth/signup", "", echo.Map{"company_name": "Fleet Works", "email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var failure map[string]string
	decode(t, rec, &failure)
	assert.NotEmpty(t, failure["error"])
	assert.NotEmpty(t, failure["request_id"])

	token := a.signUp(t, "Fleet Works", "owner@fleetworks.example")

	rec = a.do(t, http.MethodPost, "/auth/signup", "", echo.Map{
		"company_name": "Other Shop", "email": "owner@fleetworks.example", "password": "password123",
		"first_name": "A", "last_name": "B",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodPost, "/auth/login", "", echo.Map{"email": "owner@fleetworks.example", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodGet, "/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile struct {
		User struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
		Permissions []string `json:"permissions"`
	}
	decode(t, rec, &profile)
	assert.Equal(t, "owner@fleetworks.example", profile.User.Email)
	assert.Equal(t, "admin", profile.User.Role)
	assert.Contains(t, profile.Permissions, "job_management")
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestAPIRejectsMissingAndForeignTokens(t *testing.T) {
	a := newApp(t)
	token := a.signUp(t, "Fleet Works", "owner@fleetworks.example")
	clientID, _ := a.clientWithVehicle(t, token, "thandi@example.com")

	rec := a.do(t, http.MethodGet, "/api/jobs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPost, fmt.Sprintf("/api/clients/%d/portal-access", clientID), token, echo.Map{"password": "portal-pass"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "portal-pass")

	rec = a.do(t, http.MethodPost, "/portal/login", "", echo.Map{"email": "thandi@example.com", "password": "portal-pass"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var portal struct {
		Token string `json:"token"`
	}
	decode(t, rec, &portal)

	rec = a.do(t, http.MethodGet, "/api/jobs", portal.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "portal tokens cannot reach the staff API")

	rec = a.do(t, http.MethodGet, "/portal/dashboard", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "staff tokens cannot reach the portal")

	rec = a.do(t, http.MethodGet, "/super-admin/analytics", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestQuoteToPaidInvoice(t *testing.T) {
	a := newApp(t)
	token := a.signUp(t, "Fleet Works", "owner@fleetworks.example")
	clientID, vehicleID := a.clientWithVehicle(t, token, "thandi@example.com")

	jobID := a.create(t, "/api/jobs", token, echo.Map{
		"client_id": clientID, "vehicle_id": vehicleID, "title": "Brake service", "description": "Squealing brakes",
	})
	quoteID := a.create(t, "/api/quotes", token, echo.Map{"job_id": jobID, "title": "Brake repair"})

	itemsPath := fmt.Sprintf("/api/quotes/%d/items", quoteID)
	rec := a.do(t, http.MethodPost, itemsPath, token, echo.Map{
		"item_type": "labor", "description": "Fit pads", "hours": "2", "hourly_rate": "450.00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = a.do(t, http.MethodPost, itemsPath, token, echo.Map{
		"item_type": "part", "description": "Brake pads", "quantity": "2", "unit_price": "120.50",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, itemsPath, token, echo.Map{"item_type": "gadget", "description": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var quote struct {
		Status      string          `json:"status"`
		Subtotal    decimal.Decimal `json:"subtotal"`
		TaxAmount   decimal.Decimal `json:"tax_amount"`
		TotalAmount decimal.Decimal `json:"total_amount"`
	}
	rec = a.do(t, http.MethodGet, fmt.Sprintf("/api/quotes/%d", quoteID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &quote)
	assert.Equal(t, "1141.00", quote.Subtotal.StringFixed(2))
	assert.Equal(t, "171.15", quote.TaxAmount.StringFixed(2))
	assert.Equal(t, "1312.15", quote.TotalAmount.StringFixed(2))

	rec = a.do(t, http.MethodPost, fmt.Sprintf("/api/quotes/%d/send", quoteID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, fmt.Sprintf("/api/quotes/%d/approve", quoteID), token, echo.Map{})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "a signature is required")
	rec = a.do(t, http.MethodPost, fmt.Sprintf("/api/quotes/%d/approve", quoteID), token, echo.Map{"signature": "T. Mokoena"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &quote)
	assert.Equal(t, "approved", quote.Status)

	invoiceID := a.create(t, "/api/invoices", token, echo.Map{"quote_id": quoteID})

	var invoice struct {
		Status     string          `json:"status"`
		AmountPaid decimal.Decimal `json:"amount_paid"`
		AmountDue  decimal.Decimal `json:"amount_due"`
	}
	paymentsPath := fmt.Sprintf("/api/invoices/%d/payments", invoiceID)
	rec = a.do(t, http.MethodPost, paymentsPath, token, echo.Map{"amount": "500.00", "payment_method": "eft"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &invoice)
	assert.Equal(t, "partial", invoice.Status)
	assert.Equal(t, "812.15", invoice.AmountDue.StringFixed(2))

	rec = a.do(t, http.MethodPost, paymentsPath, token, echo.Map{"amount": "900.00"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &invoice)
	assert.Equal(t, "paid", invoice.Status)
	assert.Equal(t, "0.00", invoice.AmountDue.StringFixed(2))

	rec = a.do(t, http.MethodGet, "/api/reports/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dash struct {
		Revenue decimal.Decimal `json:"current_month_revenue"`
	}
	decode(t, rec, &dash)
	assert.Equal(t, "1312.15", dash.Revenue.StringFixed(2))

	rec = a.do(t, http.MethodGet, "/api/reports/revenue?start_date=2026-13-01&end_date=2026-03-31", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/api/activity?entity_type=invoice&entity_id=%d", invoiceID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var activity struct {
		Items []struct {
			Action string `json:"action"`
		} `json:"items"`
	}
	decode(t, rec, &activity)
	assert.NotEmpty(t, activity.Items)
}

func TestTechnicianPermissions(t *testing.T) {
	a := newApp(t)
	token := a.signUp(t, "Fleet Works", "owner@fleetworks.example")

	rec := a.do(t, http.MethodPost, "/api/users", token, echo.Map{
		"email": "tech@fleetworks.example", "first_name": "Bob", "last_name": "Spanner", "role": "technician",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var invited struct {
		TempPassword string `json:"temp_password"`
	}
	decode(t, rec, &invited)
	tech := a.login(t, "tech@fleetworks.example", invited.TempPassword)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/jobs", http.StatusOK},
		{http.MethodGet, "/api/inventory/parts", http.StatusOK},
		{http.MethodGet, "/api/calendar/events", http.StatusOK},
		{http.MethodPost, "/api/jobs", http.StatusForbidden},
		{http.MethodGet, "/api/invoices", http.StatusForbidden},
		{http.MethodGet, "/api/quotes", http.StatusForbidden},
		{http.MethodGet, "/api/clients", http.StatusForbidden},
		{http.MethodGet, "/api/reports/dashboard", http.StatusForbidden},
		{http.MethodPost, "/api/users", http.StatusForbidden},
		{http.MethodGet, "/api/suppliers", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := a.do(t, tt.method, tt.path, tech, echo.Map{})
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestTenantIsolation(t *testing.T) {
	a := newApp(t)
	owner := a.signUp(t, "Fleet Works", "owner@fleetworks.example")
	rival := a.signUp(t, "Rival Motors", "owner@rival.example")

	clientID, vehicleID := a.clientWithVehicle(t, owner, "thandi@example.com")
	jobID := a.create(t, "/api/jobs", owner, echo.Map{
		"client_id": clientID, "vehicle_id": vehicleID, "title": "Service", "description": "Annual service",
	})

	rec := a.do(t, http.MethodGet, fmt.Sprintf("/api/jobs/%d", jobID), rival, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.do(t, http.MethodGet, fmt.Sprintf("/api/clients/%d", clientID), rival, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/jobs", rival, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Items []entity `json:"items"`
	}
	decode(t, rec, &list)
	assert.Empty(t, list.Items)

	rec = a.do(t, http.MethodGet, "/api/jobs/abc", owner, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInventoryAllocationOverHTTP(t *testing.T) {
	a := newApp(t)
	token := a.signUp(t, "Fleet Works", "owner@fleetworks.example")
	clientID, vehicleID := a.clientWithVehicle(t, token, "thandi@example.com")
	jobID := a.create(t, "/api/jobs", token, echo.Map{
		"client_id": clientID, "vehicle_id": vehicleID, "title": "Brakes", "description": "Replace pads",
	})
	partID := a.create(t, "/api/inventory/parts", token, echo.Map{
		"part_number": "BP-1", "name": "Brake pads", "category": "Brakes", "condition": "new",
		"cost_price": "80.00", "selling_price": "120.50", "current_stock": 5, "minimum_stock": 2,
	})

	rec := a.do(t, http.MethodPost, fmt.Sprintf("/api/jobs/%d/parts/allocate", jobID), token, echo.Map{
		"parts": []echo.Map{{"part_id": partID, "quantity": 9}},
	})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, fmt.Sprintf("/api/jobs/%d/parts/allocate", jobID), token, echo.Map{
		"parts": []echo.Map{{"part_id": partID, "quantity": 2}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, fmt.Sprintf("/api/jobs/%d/parts/usage", jobID), token, echo.Map{
		"parts": []echo.Map{{"part_id": partID, "quantity_used": 2}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/api/inventory/parts/%d", partID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var part struct {
		CurrentStock int `json:"current_stock"`
	}
	decode(t, rec, &part)
	assert.Equal(t, 3, part.CurrentStock)

	rec = a.do(t, http.MethodPatch, fmt.Sprintf("/api/inventory/parts/%d/stock", partID), token, echo.Map{"new_stock": 10})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "a reason is required")
	rec = a.do(t, http.MethodPatch, fmt.Sprintf("/api/inventory/parts/%d/stock", partID), token, echo.Map{"new_stock": 10, "reason": "stock take"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/api/inventory/parts/%d/movements", partID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var movements struct {
		Items []struct {
			MovementType string `json:"movement_type"`
		} `json:"items"`
	}
	decode(t, rec, &movements)
	assert.NotEmpty(t, movements.Items)
}

func TestSuperAdminRoutes(t *testing.T) {
	a := newApp(t)
	a.signUp(t, "Fleet Works", "owner@fleetworks.example")

	svc, err := server.NewServices(testConfig, a.db, zap.NewNop())
	require.NoError(t, err)
	_, err = svc.Auth.CreateSuperAdmin("ops@fleetshop.example", "ops-password", "Platform", "Ops")
	require.NoError(t, err)
	ops := a.login(t, "ops@fleetshop.example", "ops-password")

	rec := a.do(t, http.MethodGet, "/super-admin/tenants", ops, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tenants struct {
		Items []entity `json:"items"`
	}
	decode(t, rec, &tenants)
	require.Len(t, tenants.Items, 1)

	rec = a.do(t, http.MethodPatch, fmt.Sprintf("/super-admin/tenants/%d/status", tenants.Items[0].ID), ops, echo.Map{"status": "closed"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = a.do(t, http.MethodPatch, fmt.Sprintf("/super-admin/tenants/%d/status", tenants.Items[0].ID), ops, echo.Map{"status": "suspended"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/auth/login", "", echo.Map{"email": "owner@fleetworks.example", "password": "password123"})
	assert.Equal(t, http.StatusForbidden, rec.Code, "suspended shops cannot log in")

	rec = a.do(t, http.MethodGet, "/super-admin/analytics?tenant_id=abc", ops, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = a.do(t, http.MethodGet, "/super-admin/analytics", ops, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var analytics struct {
		ActiveUsers int64 `json:"active_users"`
	}
	decode(t, rec, &analytics)
	assert.EqualValues(t, 2, analytics.ActiveUsers, "the shop owner and the operator")

	rec = a.do(t, http.MethodGet, "/api/jobs", ops, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "super admins carry no tenant context")
}
