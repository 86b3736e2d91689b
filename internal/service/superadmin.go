package service

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"fleetshop/internal/activity"
	"fleetshop/internal/apperr"
	"fleetshop/internal/events"
	"fleetshop/internal/model"
	"fleetshop/internal/permission"
	"fleetshop/pkg/config"
	"fleetshop/pkg/database"
	"fleetshop/prometheus"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// SuperAdminService provisions and supervises tenants across the platform
type SuperAdminService struct {
	db       *gorm.DB
	log      *zap.Logger
	defaults config.BillingConfig
	bus      *events.Bus
}

// NewSuperAdminService creates a super admin service
func NewSuperAdminService(db *gorm.DB, log *zap.Logger, defaults config.BillingConfig, bus *events.Bus) *SuperAdminService {
	return &SuperAdminService{db: db, log: log, defaults: defaults, bus: bus}
}

func requireSuperAdmin(actor Actor) error {
	if actor.Role != permission.RoleSuperAdmin {
		return apperr.Forbidden("Unauthorized")
	}
	return nil
}

func validTier(tier string) bool {
	switch tier {
	case model.TierBasic, model.TierProfessional, model.TierEnterprise:
		return true
	}
	return false
}

func validTenantStatus(status string) bool {
	switch status {
	case model.TenantStatusActive, model.TenantStatusTrial, model.TenantStatusSuspended:
		return true
	}
	return false
}

// CreateTenantInput provisions a tenant and its first admin
type CreateTenantInput struct {
	Name             string `json:"name" validate:"required"`
	Subdomain        string `json:"subdomain" validate:"required"`
	SubscriptionTier string `json:"subscription_tier" validate:"required,oneof=basic professional enterprise"`
	AdminEmail       string `json:"admin_email" validate:"required,email"`
	AdminFirstName   string `json:"admin_first_name" validate:"required"`
	AdminLastName    string `json:"admin_last_name" validate:"required"`
}

// CreateTenantResult returns the admin's one-time password alongside the records
type CreateTenantResult struct {
	Tenant       model.Tenant `json:"tenant"`
	Admin        model.User   `json:"admin"`
	TempPassword string       `json:"temp_password"`
}

// CreateTenant creates an active tenant with default settings and an admin user, atomically
func (s *SuperAdminService) CreateTenant(actor Actor, in CreateTenantInput) (*CreateTenantResult, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.AdminEmail)
	switch {
	case name == "":
		return nil, apperr.Validation("Tenant name is required")
	case in.Subdomain == "":
		return nil, apperr.Validation("Subdomain is required")
	case !subdomainPattern.MatchString(in.Subdomain):
		return nil, apperr.Validation("Invalid subdomain format")
	case !validTier(in.SubscriptionTier):
		return nil, apperr.Validation("Subscription tier is required")
	case email == "":
		return nil, apperr.Validation("Valid email is required")
	case strings.TrimSpace(in.AdminFirstName) == "" || strings.TrimSpace(in.AdminLastName) == "":
		return nil, apperr.Validation("First name and last name are required")
	}

	tempPassword, err := generateTempPassword()
	if err != nil {
		return nil, err
	}
	hashed, err := hashPassword(tempPassword)
	if err != nil {
		return nil, err
	}

	result := CreateTenantResult{TempPassword: tempPassword}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Tenant{}).Where("slug = ?", in.Subdomain).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Conflict("Subdomain already exists")
		}
		if err := tx.Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Conflict("Email already registered")
		}

		result.Tenant = model.Tenant{
			Name:             name,
			Slug:             in.Subdomain,
			Email:            email,
			SubscriptionTier: in.SubscriptionTier,
			Status:           model.TenantStatusActive,
		}
		if err := tx.Create(&result.Tenant).Error; err != nil {
			return conflictOr(err, "Subdomain already exists")
		}
		if err := seedTenantDefaults(tx, result.Tenant.ID, s.defaults); err != nil {
			return err
		}

		result.Admin = model.User{
			TenantID:  uintPtr(result.Tenant.ID),
			Email:     email,
			Password:  hashed,
			FirstName: strings.TrimSpace(in.AdminFirstName),
			LastName:  strings.TrimSpace(in.AdminLastName),
			Role:      permission.RoleAdmin,
			Status:    model.UserStatusActive,
		}
		if err := tx.Create(&result.Admin).Error; err != nil {
			return conflictOr(err, "Email already registered")
		}

		return activity.Record(tx, activity.Entry{
			TenantID:   result.Tenant.ID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityTenant,
			EntityID:   result.Tenant.ID,
			Action:     "provisioned",
			NewValues:  map[string]interface{}{"name": name, "slug": in.Subdomain, "tier": in.SubscriptionTier},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Tenant provisioned",
		zap.Uint("tenant_id", result.Tenant.ID),
		zap.String("slug", result.Tenant.Slug),
		zap.String("tier", result.Tenant.SubscriptionTier))
	prometheus.RecordDomainOperation(events.EntityTenant, "provisioned")
	s.refreshActiveTenants()
	publish(s.bus, result.Tenant.ID, events.EntityTenant, result.Tenant.ID, "created")
	return &result, nil
}

// TenantFilter narrows ListTenants
type TenantFilter struct {
	Status string
	Tier   string
	PageRequest
}

// ListTenants lists every tenant with branding and features, newest first
func (s *SuperAdminService) ListTenants(actor Actor, f TenantFilter) ([]model.Tenant, Pagination, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, Pagination{}, err
	}
	page, limit, offset := f.normalize()

	query := s.db.Model(&model.Tenant{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Tier != "" {
		query = query.Where("subscription_tier = ?", f.Tier)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("count tenants: %w", err)
	}

	var tenants []model.Tenant
	if err := query.Preload("Branding").Preload("Features").
		Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&tenants).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("list tenants: %w", err)
	}
	return tenants, newPagination(page, limit, total), nil
}

// UpdateTenantStatus activates, suspends or puts a tenant on trial
func (s *SuperAdminService) UpdateTenantStatus(actor Actor, tenantID uint, status string) (*model.Tenant, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	if !validTenantStatus(status) {
		return nil, apperr.Validation("Invalid tenant status %q", status)
	}

	var tenant model.Tenant
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.First(&tenant, tenantID).Error
		if database.IsNotFound(err) {
			return apperr.NotFound("tenant not found")
		}
		if err != nil {
			return err
		}
		old := tenant.Status
		if err := tx.Model(&tenant).Update("status", status).Error; err != nil {
			return err
		}
		return activity.Record(tx, activity.Entry{
			TenantID:   tenant.ID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityTenant,
			EntityID:   tenant.ID,
			Action:     "status_changed",
			OldValues:  map[string]interface{}{"status": old},
			NewValues:  map[string]interface{}{"status": status},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Tenant status changed", zap.Uint("tenant_id", tenant.ID), zap.String("status", status))
	s.refreshActiveTenants()
	publish(s.bus, tenant.ID, events.EntityTenant, tenant.ID, "status_changed")
	return &tenant, nil
}

// BrandingInput is a tenant's white-label settings
type BrandingInput struct {
	CompanyName    string `json:"company_name" validate:"required"`
	PrimaryColor   string `json:"primary_color" validate:"required"`
	SecondaryColor string `json:"secondary_color"`
	LogoURL        string `json:"logo_url" validate:"omitempty,url"`
	CustomDomain   string `json:"custom_domain"`
}

// UpdateTenantBranding upserts branding; allowed for super admins and the tenant's own admins
func (s *SuperAdminService) UpdateTenantBranding(actor Actor, tenantID uint, in BrandingInput) (*model.TenantBranding, error) {
	if actor.Role != permission.RoleSuperAdmin &&
		!(actor.TenantID == tenantID && actor.Can(permission.TenantManagement)) {
		return nil, apperr.Forbidden("Unauthorized")
	}
	if strings.TrimSpace(in.CompanyName) == "" {
		return nil, apperr.Validation("Company name is required")
	}
	if strings.TrimSpace(in.PrimaryColor) == "" {
		return nil, apperr.Validation("Primary color is required")
	}
	if in.LogoURL != "" {
		if u, err := url.ParseRequestURI(in.LogoURL); err != nil || u.Host == "" {
			return nil, apperr.Validation("Invalid logo URL")
		}
	}

	branding := model.TenantBranding{
		TenantID:       tenantID,
		CompanyName:    strings.TrimSpace(in.CompanyName),
		PrimaryColor:   in.PrimaryColor,
		SecondaryColor: in.SecondaryColor,
		LogoURL:        in.LogoURL,
		CustomDomain:   in.CustomDomain,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tenantExists(tx, tenantID); err != nil {
			return err
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"company_name", "primary_color", "secondary_color", "logo_url", "custom_domain", "updated_at",
			}),
		}).Create(&branding).Error; err != nil {
			return fmt.Errorf("save branding: %w", err)
		}
		if err := tx.Where("tenant_id = ?", tenantID).First(&branding).Error; err != nil {
			return err
		}
		return activity.Record(tx, activity.Entry{
			TenantID:   tenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityBranding,
			EntityID:   branding.ID,
			Action:     "updated",
			NewValues:  map[string]interface{}{"company_name": branding.CompanyName, "primary_color": branding.PrimaryColor},
		})
	})
	if err != nil {
		return nil, err
	}

	publish(s.bus, tenantID, events.EntityBranding, branding.ID, "updated")
	return &branding, nil
}

// UpdateTenantFeatures replaces the feature flags of a tenant
func (s *SuperAdminService) UpdateTenantFeatures(actor Actor, tenantID uint, flags map[string]bool) (*model.TenantFeatures, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}

	jsonFlags := datatypes.JSONMap{}
	for k, v := range flags {
		if strings.TrimSpace(k) == "" {
			return nil, apperr.Validation("feature names must not be empty")
		}
		jsonFlags[k] = v
	}
	features := model.TenantFeatures{TenantID: tenantID, Flags: jsonFlags}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tenantExists(tx, tenantID); err != nil {
			return err
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"flags", "updated_at"}),
		}).Create(&features).Error; err != nil {
			return fmt.Errorf("save features: %w", err)
		}
		if err := tx.Where("tenant_id = ?", tenantID).First(&features).Error; err != nil {
			return err
		}
		return activity.Record(tx, activity.Entry{
			TenantID:   tenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityFeatures,
			EntityID:   features.ID,
			Action:     "updated",
			NewValues:  map[string]interface{}(jsonFlags),
		})
	})
	if err != nil {
		return nil, err
	}

	publish(s.bus, tenantID, events.EntityFeatures, features.ID, "updated")
	return &features, nil
}

// TenantAnalytics are platform totals, or one tenant's
type TenantAnalytics struct {
	TotalJobs     int64           `json:"total_jobs"`
	TotalInvoices int64           `json:"total_invoices"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	ActiveUsers   int64           `json:"active_users"`
}

// TenantAnalytics totals jobs, invoices, paid revenue and active users; tenantID nil covers every tenant
func (s *SuperAdminService) TenantAnalytics(actor Actor, tenantID *uint) (*TenantAnalytics, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}

	scope := func(db *gorm.DB) *gorm.DB {
		if tenantID != nil {
			return db.Where("tenant_id = ?", *tenantID)
		}
		return db
	}

	var a TenantAnalytics
	if err := s.db.Model(&model.Job{}).Scopes(scope).Count(&a.TotalJobs).Error; err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	if err := s.db.Model(&model.Invoice{}).Scopes(scope).Count(&a.TotalInvoices).Error; err != nil {
		return nil, fmt.Errorf("count invoices: %w", err)
	}

	var paid []model.Invoice
	if err := s.db.Select("id", "total_amount").Scopes(scope).
		Where("status = ?", model.InvoiceStatusPaid).Find(&paid).Error; err != nil {
		return nil, fmt.Errorf("load paid invoices: %w", err)
	}
	a.TotalRevenue = decimal.Zero
	for _, inv := range paid {
		a.TotalRevenue = a.TotalRevenue.Add(inv.TotalAmount)
	}

	if err := s.db.Model(&model.User{}).Scopes(scope).
		Where("status = ?", model.UserStatusActive).Count(&a.ActiveUsers).Error; err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	return &a, nil
}

func (s *SuperAdminService) refreshActiveTenants() {
	var count int64
	if err := s.db.Model(&model.Tenant{}).Where("status = ?", model.TenantStatusActive).Count(&count).Error; err != nil {
		s.log.Warn("Failed to count active tenants", zap.Error(err))
		return
	}
	prometheus.UpdateActiveTenants(count)
}
