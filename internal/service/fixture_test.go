package service

import (
	"fmt"
	"testing"
	"time"

	"fleetshop/internal/events"
	"fleetshop/internal/model"
	"fleetshop/internal/numbering"
	"fleetshop/internal/reportcache"
	"fleetshop/internal/testutil"
	"fleetshop/pkg/config"
	"fleetshop/pkg/jwtutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testBilling = config.BillingConfig{DefaultTaxRate: 15, InvoiceDueDays: 30, QuoteValidityDays: 30}

type fixture struct {
	db    *gorm.DB
	bus   *events.Bus
	jwt   *jwtutil.JWTUtil
	cache *reportcache.Cache

	settings  *SettingsService
	auth      *AuthService
	clients   *ClientService
	jobs      *JobService
	quotes    *QuoteService
	invoices  *InvoiceService
	inventory *InventoryService
	suppliers *SupplierService
	calendar  *CalendarService
	portal    *PortalService
	reports   *ReportService
	admin     *SuperAdminService

	seq int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	log := zap.NewNop()
	bus := events.NewBus(log)
	numbers, err := numbering.NewGenerator(1)
	require.NoError(t, err)

	f := &fixture{
		db:    db,
		bus:   bus,
		jwt:   jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: "test-key", ExpirationHours: 1, PortalExpirationHours: 1}),
		cache: reportcache.New(64, time.Minute),
	}
	f.cache.Subscribe(bus)

	f.settings = NewSettingsService(db, testBilling)
	f.auth = NewAuthService(db, log, f.jwt, testBilling, bus)
	f.clients = NewClientService(db, log, bus)
	f.jobs = NewJobService(db, log, numbers, bus)
	f.quotes = NewQuoteService(db, log, numbers, f.settings, bus)
	f.invoices = NewInvoiceService(db, log, numbers, f.settings, bus)
	f.inventory = NewInventoryService(db, log, bus)
	f.suppliers = NewSupplierService(db, log, numbers, bus)
	f.calendar = NewCalendarService(db, log, bus)
	f.portal = NewPortalService(db, log, f.jwt, f.quotes)
	f.reports = NewReportService(db, log, f.cache)
	f.admin = NewSuperAdminService(db, log, testBilling, bus)
	return f
}

// freezeClock pins the service clock for the rest of the test
func freezeClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

// tenant signs up a new shop and returns its admin as an actor
func (f *fixture) tenant(t *testing.T, company string) Actor {
	t.Helper()
	f.seq++
	res, err := f.auth.SignUp(SignUpInput{
		CompanyName: company,
		Email:       fmt.Sprintf("owner%d@example.com", f.seq),
		Password:    "password123",
		FirstName:   "Olive",
		LastName:    "Owner",
	})
	require.NoError(t, err)
	return Actor{UserID: res.User.ID, TenantID: res.Tenant.ID, Role: res.User.Role}
}

// staff adds a user with role to the actor's tenant
func (f *fixture) staff(t *testing.T, admin Actor, role string) Actor {
	t.Helper()
	f.seq++
	res, err := f.auth.InviteUser(admin, InviteUserInput{
		Email:     fmt.Sprintf("staff%d@example.com", f.seq),
		FirstName: "Sam",
		LastName:  fmt.Sprintf("Staff%d", f.seq),
		Role:      role,
	})
	require.NoError(t, err)
	return Actor{UserID: res.User.ID, TenantID: admin.TenantID, Role: role}
}

func (f *fixture) clientWithVehicle(t *testing.T, actor Actor) (*model.Client, *model.Vehicle) {
	t.Helper()
	f.seq++
	client, err := f.clients.CreateClient(actor, ClientInput{
		FirstName: "Carla",
		LastName:  "Client",
		Email:     fmt.Sprintf("client%d@example.com", f.seq),
	})
	require.NoError(t, err)
	vehicle, err := f.clients.CreateVehicle(actor, client.ID, VehicleInput{Make: "Toyota", Model: "Hilux", Year: 2019, Registration: "CA 123-456"})
	require.NoError(t, err)
	return client, vehicle
}

func (f *fixture) job(t *testing.T, actor Actor) *model.Job {
	t.Helper()
	client, vehicle := f.clientWithVehicle(t, actor)
	job, err := f.jobs.CreateJob(actor, CreateJobInput{
		ClientID:    client.ID,
		VehicleID:   vehicle.ID,
		Title:       "Brake service",
		Description: "Squealing front brakes",
	})
	require.NoError(t, err)
	return job
}

// pricedQuote creates a quote with 2h labor at 450.00 and 2 brake pads at 120.50
func (f *fixture) pricedQuote(t *testing.T, actor Actor, jobID uint) *model.Quote {
	t.Helper()
	quote, err := f.quotes.CreateQuote(actor, CreateQuoteInput{JobID: jobID, Title: "Brake repair"})
	require.NoError(t, err)

	_, err = f.quotes.AddQuoteItem(actor, quote.ID, QuoteItemInput{
		ItemType:    model.ItemTypeLabor,
		Description: "Replace pads",
		Hours:       decimal.NewFromInt(2),
		HourlyRate:  decimal.RequireFromString("450.00"),
	})
	require.NoError(t, err)

	qty := decimal.NewFromInt(2)
	quote, err = f.quotes.AddQuoteItem(actor, quote.ID, QuoteItemInput{
		ItemType:    model.ItemTypePart,
		Description: "Brake pad",
		Quantity:    &qty,
		UnitPrice:   decimal.RequireFromString("120.50"),
	})
	require.NoError(t, err)
	return quote
}

func (f *fixture) part(t *testing.T, actor Actor, number string, stock, minimum int) *model.InventoryPart {
	t.Helper()
	part, err := f.inventory.CreatePart(actor, PartInput{
		PartNumber:   number,
		Name:         "Part " + number,
		Category:     "brakes",
		Condition:    model.ConditionNew,
		CostPrice:    decimal.RequireFromString("80.00"),
		SellingPrice: decimal.RequireFromString("120.50"),
		CurrentStock: stock,
		MinimumStock: minimum,
	})
	require.NoError(t, err)
	return part
}
