package model

import (
	"time"

	"gorm.io/gorm"
)

// Supplier represents a parts vendor of a tenant
type Supplier struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	TenantID      uint           `json:"tenant_id" gorm:"index;not null"`
	Name          string         `json:"name" gorm:"type:varchar(100);index;not null"`
	ContactPerson string         `json:"contact_person" gorm:"type:varchar(100)"`
	Email         string         `json:"email" gorm:"type:varchar(100)"`
	Phone         string         `json:"phone" gorm:"type:varchar(30)"`
	Address       string         `json:"address" gorm:"type:text"`
	PaymentTerms  string         `json:"payment_terms" gorm:"type:varchar(100)"`
	IsActive      bool           `json:"is_active"`
	CreatedBy     uint           `json:"created_by"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// Purchase order statuses
const (
	POStatusPending   = "pending"
	POStatusOrdered   = "ordered"
	POStatusReceived  = "received"
	POStatusCancelled = "cancelled"
)

// PurchaseOrder is a restocking order placed with a supplier
type PurchaseOrder struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	TenantID     uint       `json:"tenant_id" gorm:"index;not null"`
	PONumber     string     `json:"po_number" gorm:"type:varchar(40);uniqueIndex;not null"`
	SupplierID   uint       `json:"supplier_id" gorm:"index;not null"`
	Status       string     `json:"status" gorm:"type:varchar(20);not null"`
	Notes        string     `json:"notes" gorm:"type:text"`
	ExpectedDate *time.Time `json:"expected_date,omitempty"`
	CreatedBy    uint       `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Supplier *Supplier `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
}
