package service

import (
	"fmt"
	"strconv"

	"fleetshop/internal/apperr"
	"fleetshop/internal/model"
	"fleetshop/pkg/config"
	"fleetshop/pkg/database"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsService resolves per-tenant system_config values with process-wide fallbacks
type SettingsService struct {
	db       *gorm.DB
	defaults config.BillingConfig
}

// NewSettingsService creates a settings service
func NewSettingsService(db *gorm.DB, defaults config.BillingConfig) *SettingsService {
	return &SettingsService{db: db, defaults: defaults}
}

func (s *SettingsService) lookup(tx *gorm.DB, tenantID uint, key string) (string, bool) {
	if tx == nil {
		tx = s.db
	}
	var cfg model.SystemConfig
	err := tx.Where("tenant_id = ? AND config_key = ?", tenantID, key).First(&cfg).Error
	if err != nil {
		return "", false
	}
	return cfg.Value, true
}

// TaxRate returns the tenant's default_tax_rate, or the configured default
func (s *SettingsService) TaxRate(tx *gorm.DB, tenantID uint) decimal.Decimal {
	if v, ok := s.lookup(tx, tenantID, model.ConfigDefaultTaxRate); ok {
		if rate, err := decimal.NewFromString(v); err == nil && !rate.IsNegative() {
			return rate
		}
	}
	return decimal.NewFromFloat(s.defaults.DefaultTaxRate)
}

// InvoiceDueDays returns the tenant's payment term in days
func (s *SettingsService) InvoiceDueDays(tx *gorm.DB, tenantID uint) int {
	return s.intSetting(tx, tenantID, model.ConfigDefaultInvoiceDueDays, s.defaults.InvoiceDueDays)
}

// QuoteValidityDays returns how long a new quote stays valid
func (s *SettingsService) QuoteValidityDays(tx *gorm.DB, tenantID uint) int {
	return s.intSetting(tx, tenantID, model.ConfigDefaultQuoteValidity, s.defaults.QuoteValidityDays)
}

func (s *SettingsService) intSetting(tx *gorm.DB, tenantID uint, key string, fallback int) int {
	if v, ok := s.lookup(tx, tenantID, key); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

// List returns all settings of a tenant
func (s *SettingsService) List(tenantID uint) ([]model.SystemConfig, error) {
	var configs []model.SystemConfig
	if err := s.db.Where("tenant_id = ?", tenantID).Order("config_key").Find(&configs).Error; err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return configs, nil
}

// Set validates and upserts one setting of the actor's tenant
func (s *SettingsService) Set(actor Actor, key, value string) (*model.SystemConfig, error) {
	switch key {
	case model.ConfigDefaultTaxRate:
		rate, err := decimal.NewFromString(value)
		if err != nil || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
			return nil, apperr.Validation("default_tax_rate must be a number between 0 and 100")
		}
	case model.ConfigDefaultInvoiceDueDays, model.ConfigDefaultQuoteValidity:
		if n, err := strconv.Atoi(value); err != nil || n < 0 {
			return nil, apperr.Validation("%s must be a non-negative whole number", key)
		}
	default:
		return nil, apperr.Validation("unknown setting %q", key)
	}

	cfg := model.SystemConfig{TenantID: actor.TenantID, Key: key, Value: value}
	if err := upsertSetting(s.db, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func upsertSetting(tx *gorm.DB, cfg *model.SystemConfig) error {
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "config_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"config_value", "updated_at"}),
	}).Create(cfg).Error
	if err != nil {
		return fmt.Errorf("save setting %s: %w", cfg.Key, err)
	}
	return nil
}

// seedTenantDefaults creates the job statuses and billing settings a new tenant starts with
func seedTenantDefaults(tx *gorm.DB, tenantID uint, defaults config.BillingConfig) error {
	statuses := model.DefaultJobStatuses(tenantID)
	if err := tx.Create(&statuses).Error; err != nil {
		return fmt.Errorf("seed job statuses: %w", err)
	}

	settings := []model.SystemConfig{
		{TenantID: tenantID, Key: model.ConfigDefaultTaxRate, Value: strconv.FormatFloat(defaults.DefaultTaxRate, 'f', -1, 64)},
		{TenantID: tenantID, Key: model.ConfigDefaultInvoiceDueDays, Value: strconv.Itoa(defaults.InvoiceDueDays)},
	}
	for i := range settings {
		if err := upsertSetting(tx, &settings[i]); err != nil {
			return err
		}
	}
	return nil
}

// tenantExists checks the tenant is present and not soft deleted
func tenantExists(tx *gorm.DB, tenantID uint) error {
	var tenant model.Tenant
	err := tx.Select("id").First(&tenant, tenantID).Error
	if database.IsNotFound(err) {
		return apperr.NotFound("tenant not found")
	}
	return err
}
