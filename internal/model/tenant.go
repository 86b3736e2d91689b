package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Subscription tiers
const (
	TierBasic        = "basic"
	TierProfessional = "professional"
	TierEnterprise   = "enterprise"
)

// Tenant statuses
const (
	TenantStatusActive    = "active"
	TenantStatusTrial     = "trial"
	TenantStatusSuspended = "suspended"
)

// Tenant is an isolated shop account; every other business row is scoped to one
type Tenant struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	Name             string         `json:"name" gorm:"type:varchar(150);not null"`
	Slug             string         `json:"slug" gorm:"type:varchar(100);uniqueIndex;not null"` // also the subdomain
	Email            string         `json:"email" gorm:"type:varchar(100)"`
	Phone            string         `json:"phone" gorm:"type:varchar(30)"`
	SubscriptionTier string         `json:"subscription_tier" gorm:"type:varchar(20);not null"`
	Status           string         `json:"status" gorm:"type:varchar(20);index;not null"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`

	Branding *TenantBranding `json:"branding,omitempty" gorm:"foreignKey:TenantID"`
	Features *TenantFeatures `json:"features,omitempty" gorm:"foreignKey:TenantID"`
}

// TenantBranding holds per-tenant white-label settings
type TenantBranding struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	TenantID       uint      `json:"tenant_id" gorm:"uniqueIndex;not null"`
	CompanyName    string    `json:"company_name" gorm:"type:varchar(150)"`
	PrimaryColor   string    `json:"primary_color" gorm:"type:varchar(20)"`
	SecondaryColor string    `json:"secondary_color" gorm:"type:varchar(20)"`
	LogoURL        string    `json:"logo_url" gorm:"type:varchar(255)"`
	CustomDomain   string    `json:"custom_domain" gorm:"type:varchar(150)"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TenantFeatures holds the feature flags enabled for a tenant
type TenantFeatures struct {
	ID        uint              `json:"id" gorm:"primaryKey"`
	TenantID  uint              `json:"tenant_id" gorm:"uniqueIndex;not null"`
	Flags     datatypes.JSONMap `json:"flags"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// System config keys
const (
	ConfigDefaultTaxRate        = "default_tax_rate"
	ConfigDefaultInvoiceDueDays = "default_invoice_due_days"
	ConfigDefaultQuoteValidity  = "default_quote_validity_days"
)

// SystemConfig is a per-tenant key/value setting
type SystemConfig struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TenantID  uint      `json:"tenant_id" gorm:"uniqueIndex:idx_system_configs_tenant_key;not null"`
	Key       string    `json:"key" gorm:"column:config_key;type:varchar(100);uniqueIndex:idx_system_configs_tenant_key;not null"`
	Value     string    `json:"value" gorm:"column:config_value;type:varchar(255)"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
