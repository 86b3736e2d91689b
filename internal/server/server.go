package server

import (
	"fmt"

	"fleetshop/internal/events"
	"fleetshop/internal/handler"
	"fleetshop/internal/middleware"
	"fleetshop/internal/numbering"
	"fleetshop/internal/permission"
	"fleetshop/internal/reportcache"
	"fleetshop/internal/service"
	"fleetshop/pkg/config"
	"fleetshop/pkg/jwtutil"
	"fleetshop/pkg/logger"
	"fleetshop/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services is the application's service graph, shared by the HTTP server and the CLI
type Services struct {
	JWT        *jwtutil.JWTUtil
	Bus        *events.Bus
	Cache      *reportcache.Cache
	Auth       *service.AuthService
	Settings   *service.SettingsService
	Clients    *service.ClientService
	Jobs       *service.JobService
	Quotes     *service.QuoteService
	Invoices   *service.InvoiceService
	Inventory  *service.InventoryService
	Suppliers  *service.SupplierService
	Calendar   *service.CalendarService
	Reports    *service.ReportService
	Portal     *service.PortalService
	SuperAdmin *service.SuperAdminService
}

// NewServices builds every service and subscribes the report cache, the
// low-stock gauge and the change logger to the event bus
func NewServices(cfg *config.Config, db *gorm.DB, log *zap.Logger) (*Services, error) {
	numbers, err := numbering.NewGenerator(cfg.Node.ID)
	if err != nil {
		return nil, fmt.Errorf("create number generator: %w", err)
	}

	jwt := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:            cfg.JWT.SigningKey,
		ExpirationHours:       cfg.JWT.ExpirationHours,
		PortalExpirationHours: cfg.JWT.PortalExpirationHours,
	})

	bus := events.NewBus(log)
	cache := reportcache.New(cfg.Cache.ReportEntries, cfg.Cache.ReportTTL)
	cache.Subscribe(bus)
	events.LogChanges(bus, log)

	settings := service.NewSettingsService(db, cfg.Billing)
	quotes := service.NewQuoteService(db, log, numbers, settings, bus)
	inventory := service.NewInventoryService(db, log, bus)
	inventory.TrackLowStock(bus)

	return &Services{
		JWT:        jwt,
		Bus:        bus,
		Cache:      cache,
		Auth:       service.NewAuthService(db, log, jwt, cfg.Billing, bus),
		Settings:   settings,
		Clients:    service.NewClientService(db, log, bus),
		Jobs:       service.NewJobService(db, log, numbers, bus),
		Quotes:     quotes,
		Invoices:   service.NewInvoiceService(db, log, numbers, settings, bus),
		Inventory:  inventory,
		Suppliers:  service.NewSupplierService(db, log, numbers, bus),
		Calendar:   service.NewCalendarService(db, log, bus),
		Reports:    service.NewReportService(db, log, cache),
		Portal:     service.NewPortalService(db, log, jwt, quotes),
		SuperAdmin: service.NewSuperAdminService(db, log, cfg.Billing, bus),
	}, nil
}

// New builds the echo application with every route registered
func New(cfg *config.Config, db *gorm.DB, log *zap.Logger) (*echo.Echo, error) {
	svc, err := NewServices(cfg, db, log)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = NewValidator()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	registerRoutes(e, db, svc)
	return e, nil
}

func registerRoutes(e *echo.Echo, db *gorm.DB, svc *Services) {
	health := handler.NewHealthHandler(db)
	authH := handler.NewAuthHandler(svc.Auth)
	settingsH := handler.NewSettingsHandler(svc.Settings, svc.SuperAdmin, db)
	clientH := handler.NewClientHandler(svc.Clients)
	jobH := handler.NewJobHandler(svc.Jobs, svc.Inventory)
	quoteH := handler.NewQuoteHandler(svc.Quotes)
	invoiceH := handler.NewInvoiceHandler(svc.Invoices)
	inventoryH := handler.NewInventoryHandler(svc.Inventory)
	supplierH := handler.NewSupplierHandler(svc.Suppliers)
	calendarH := handler.NewCalendarHandler(svc.Calendar)
	reportH := handler.NewReportHandler(svc.Reports)
	portalH := handler.NewPortalHandler(svc.Portal, svc.Invoices)
	adminH := handler.NewSuperAdminHandler(svc.SuperAdmin)

	requireAuth := middleware.AuthMiddleware(svc.JWT)
	can := middleware.RequirePermission

	// Public routes - no authentication required
	e.GET("/health", health.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	auth := e.Group("/auth")
	auth.POST("/signup", authH.SignUp)
	auth.POST("/login", authH.Login)
	auth.GET("/profile", authH.GetProfile, requireAuth, middleware.RequireScope(jwtutil.ScopeStaff))

	e.POST("/portal/login", portalH.Login)

	// Staff API - tenant-scoped
	api := e.Group("/api", requireAuth, middleware.RequireScope(jwtutil.ScopeStaff), middleware.RequireTenantContext)

	api.GET("/users", authH.ListUsers, can(permission.UserManagement, permission.UserView))
	api.POST("/users", authH.InviteUser, can(permission.UserManagement))
	api.PATCH("/users/:id/status", authH.SetUserStatus, can(permission.UserManagement))

	api.GET("/settings", settingsH.ListSettings, can(permission.Settings))
	api.PUT("/settings/:key", settingsH.UpdateSetting, can(permission.Settings))
	api.PUT("/branding", settingsH.UpdateBranding, can(permission.TenantManagement))
	api.GET("/activity", settingsH.ListActivity, can(permission.Reporting, permission.JobManagement))

	clients := api.Group("/clients", can(permission.ClientManagement))
	clients.GET("", clientH.ListClients)
	clients.POST("", clientH.CreateClient)
	clients.GET("/:id", clientH.GetClient)
	clients.GET("/:id/vehicles", clientH.ListVehicles)
	clients.POST("/:id/vehicles", clientH.CreateVehicle)
	clients.POST("/:id/portal-access", clientH.EnablePortalAccess)
	clients.DELETE("/:id/portal-access", clientH.DisablePortalAccess)

	api.GET("/job-statuses", jobH.ListStatuses, can(permission.JobManagement, permission.JobView))
	jobs := api.Group("/jobs")
	jobs.GET("", jobH.ListJobs, can(permission.JobManagement, permission.JobView))
	jobs.POST("", jobH.CreateJob, can(permission.JobManagement))
	jobs.GET("/:id", jobH.GetJob, can(permission.JobManagement, permission.JobView))
	jobs.PATCH("/:id/status", jobH.UpdateJobStatus, can(permission.JobManagement, permission.JobUpdate))
	jobs.PATCH("/:id/assign", jobH.AssignTechnician, can(permission.JobManagement))
	jobs.PATCH("/:id/progress", jobH.UpdateJobProgress, can(permission.JobManagement, permission.JobUpdate))
	jobs.POST("/:id/approve-work", jobH.ApproveJobWork, can(permission.JobApproval, permission.JobManagement))
	jobs.GET("/:id/parts", jobH.GetJobParts, can(permission.InventoryManagement, permission.PartsUsage, permission.JobManagement))
	jobs.POST("/:id/parts/allocate", jobH.AllocateParts, can(permission.InventoryManagement, permission.JobManagement))
	jobs.POST("/:id/parts/usage", jobH.RecordPartsUsage, can(permission.PartsUsage, permission.InventoryManagement, permission.JobManagement))

	quoteRead := can(permission.Quotes, permission.FinancialView, permission.FinancialManagement)
	quoteWrite := can(permission.Quotes, permission.FinancialManagement)
	quotes := api.Group("/quotes")
	quotes.GET("", quoteH.ListQuotes, quoteRead)
	quotes.POST("", quoteH.CreateQuote, quoteWrite)
	quotes.GET("/:id", quoteH.GetQuote, quoteRead)
	quotes.POST("/:id/items", quoteH.AddQuoteItem, quoteWrite)
	quotes.DELETE("/:id/items/:itemId", quoteH.RemoveQuoteItem, quoteWrite)
	quotes.POST("/:id/recalculate", quoteH.RecalculateQuote, quoteWrite)
	quotes.POST("/:id/send", quoteH.SendQuote, quoteWrite)
	quotes.POST("/:id/approve", quoteH.ApproveQuote, quoteWrite)
	quotes.POST("/:id/reject", quoteH.RejectQuote, quoteWrite)

	invoiceRead := can(permission.Invoicing, permission.FinancialView, permission.FinancialManagement)
	invoiceWrite := can(permission.Invoicing, permission.FinancialManagement)
	invoices := api.Group("/invoices")
	invoices.GET("", invoiceH.ListInvoices, invoiceRead)
	invoices.POST("", invoiceH.CreateInvoice, invoiceWrite)
	invoices.GET("/:id", invoiceH.GetInvoice, invoiceRead)
	invoices.POST("/:id/payments", invoiceH.RecordPayment, invoiceWrite)
	invoices.POST("/:id/send", invoiceH.SendInvoice, invoiceWrite)
	invoices.POST("/:id/cancel", invoiceH.CancelInvoice, invoiceWrite)

	inventoryRead := can(permission.InventoryManagement, permission.PartsUsage, permission.JobManagement)
	inventoryWrite := can(permission.InventoryManagement)
	parts := api.Group("/inventory/parts")
	parts.GET("", inventoryH.ListParts, inventoryRead)
	parts.POST("", inventoryH.CreatePart, inventoryWrite)
	parts.GET("/:id", inventoryH.GetPart, inventoryRead)
	parts.PATCH("/:id/stock", inventoryH.UpdatePartStock, inventoryWrite)
	parts.GET("/:id/movements", inventoryH.ListMovements, inventoryRead)

	suppliers := api.Group("/suppliers", inventoryWrite)
	suppliers.GET("", supplierH.ListSuppliers)
	suppliers.POST("", supplierH.CreateSupplier)
	suppliers.GET("/:id", supplierH.GetSupplier)

	orders := api.Group("/purchase-orders", inventoryWrite)
	orders.GET("", supplierH.ListPurchaseOrders)
	orders.POST("", supplierH.CreatePurchaseOrder)
	orders.PATCH("/:id/status", supplierH.UpdatePurchaseOrderStatus)

	calendar := api.Group("/calendar/events")
	calendar.GET("", calendarH.ListEvents, can(permission.JobView, permission.JobManagement))
	calendar.POST("", calendarH.CreateEvent, can(permission.JobManagement))
	calendar.PUT("/:id", calendarH.UpdateEvent, can(permission.JobManagement))
	calendar.DELETE("/:id", calendarH.DeleteEvent, can(permission.JobManagement))

	reports := api.Group("/reports", can(permission.Reporting, permission.BasicReporting))
	reports.GET("/dashboard", reportH.Dashboard)
	reports.GET("/revenue", reportH.Revenue)
	reports.GET("/jobs", reportH.Jobs)
	reports.GET("/technicians", reportH.Technicians)
	reports.GET("/overdue", reportH.Overdue)

	// Client portal
	portal := e.Group("/portal", requireAuth, middleware.RequireScope(jwtutil.ScopePortal), middleware.RequireTenantContext)
	portal.GET("/dashboard", portalH.Dashboard)
	portal.GET("/invoices", portalH.ListInvoices)
	portal.GET("/invoices/:id", portalH.GetInvoice)
	portal.POST("/quotes/:id/approve", portalH.ApproveQuote)
	portal.POST("/quotes/:id/reject", portalH.RejectQuote)

	// Platform administration
	admin := e.Group("/super-admin", requireAuth, middleware.RequireScope(jwtutil.ScopeStaff), middleware.RequireSuperAdmin)
	admin.GET("/tenants", adminH.ListTenants)
	admin.POST("/tenants", adminH.CreateTenant)
	admin.PATCH("/tenants/:id/status", adminH.UpdateTenantStatus)
	admin.PUT("/tenants/:id/branding", adminH.UpdateTenantBranding)
	admin.PUT("/tenants/:id/features", adminH.UpdateTenantFeatures)
	admin.GET("/analytics", adminH.Analytics)
}
