package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Quote statuses
const (
	QuoteStatusDraft    = "draft"
	QuoteStatusSent     = "sent"
	QuoteStatusApproved = "approved"
	QuoteStatusRejected = "rejected"
	QuoteStatusExpired  = "expired"
)

// Line item types shared by quotes and invoices
const (
	ItemTypeLabor   = "labor"
	ItemTypePart    = "part"
	ItemTypeService = "service"
)

// Quote is a priced proposal for a job awaiting client approval
type Quote struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	TenantID        uint            `json:"tenant_id" gorm:"index;not null"`
	QuoteNumber     string          `json:"quote_number" gorm:"type:varchar(40);uniqueIndex;not null"`
	JobID           uint            `json:"job_id" gorm:"index;not null"`
	Title           string          `json:"title" gorm:"type:varchar(200);not null"`
	Description     string          `json:"description" gorm:"type:text"`
	Status          string          `json:"status" gorm:"type:varchar(20);index;not null"`
	TaxRate         decimal.Decimal `json:"tax_rate" gorm:"type:numeric(5,2);not null"`
	Subtotal        decimal.Decimal `json:"subtotal" gorm:"type:numeric(12,2);not null"`
	TaxAmount       decimal.Decimal `json:"tax_amount" gorm:"type:numeric(12,2);not null"`
	TotalAmount     decimal.Decimal `json:"total_amount" gorm:"type:numeric(12,2);not null"`
	ValidUntil      *time.Time      `json:"valid_until,omitempty"`
	Terms           string          `json:"terms" gorm:"type:text"`
	ClientApproved  bool            `json:"client_approved"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	ClientSignature string          `json:"client_signature,omitempty" gorm:"type:text"`
	ClientIP        string          `json:"client_ip,omitempty" gorm:"type:varchar(45)"`
	RejectionReason string          `json:"rejection_reason,omitempty" gorm:"type:text"`
	CreatedBy       uint            `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `json:"-" gorm:"index"`

	Job   *Job        `json:"job,omitempty" gorm:"foreignKey:JobID"`
	Items []QuoteItem `json:"items,omitempty" gorm:"foreignKey:QuoteID"`
}

// QuoteItem is one labor, part or service line of a quote
type QuoteItem struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	QuoteID     uint            `json:"quote_id" gorm:"index;not null"`
	ItemType    string          `json:"item_type" gorm:"type:varchar(10);not null"`
	Description string          `json:"description" gorm:"type:text;not null"`
	PartID      *uint           `json:"part_id,omitempty" gorm:"index"`
	Quantity    decimal.Decimal `json:"quantity" gorm:"type:numeric(10,2);not null"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2);not null"`
	TotalPrice  decimal.Decimal `json:"total_price" gorm:"type:numeric(12,2);not null"`
	Hours       decimal.Decimal `json:"hours" gorm:"type:numeric(8,2)"`
	HourlyRate  decimal.Decimal `json:"hourly_rate" gorm:"type:numeric(10,2)"`
	OrderIndex  int             `json:"order_index"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
