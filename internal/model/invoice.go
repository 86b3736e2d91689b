package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice statuses
const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusSent      = "sent"
	InvoiceStatusPartial   = "partial"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusOverdue   = "overdue"
	InvoiceStatusCancelled = "cancelled"
)

// Invoice is the billing document derived from a quote
type Invoice struct {
	ID               uint            `json:"id" gorm:"primaryKey"`
	TenantID         uint            `json:"tenant_id" gorm:"index;not null"`
	InvoiceNumber    string          `json:"invoice_number" gorm:"type:varchar(40);uniqueIndex;not null"`
	JobID            uint            `json:"job_id" gorm:"index;not null"`
	QuoteID          *uint           `json:"quote_id,omitempty" gorm:"uniqueIndex"`
	ClientID         uint            `json:"client_id" gorm:"index;not null"`
	Title            string          `json:"title" gorm:"type:varchar(200);not null"`
	Description      string          `json:"description" gorm:"type:text"`
	Status           string          `json:"status" gorm:"type:varchar(20);index;not null"`
	Subtotal         decimal.Decimal `json:"subtotal" gorm:"type:numeric(12,2);not null"`
	TaxRate          decimal.Decimal `json:"tax_rate" gorm:"type:numeric(5,2);not null"`
	TaxAmount        decimal.Decimal `json:"tax_amount" gorm:"type:numeric(12,2);not null"`
	TotalAmount      decimal.Decimal `json:"total_amount" gorm:"type:numeric(12,2);not null"`
	AmountPaid       decimal.Decimal `json:"amount_paid" gorm:"type:numeric(12,2);not null"`
	AmountDue        decimal.Decimal `json:"amount_due" gorm:"type:numeric(12,2);not null"`
	IssueDate        time.Time       `json:"issue_date"`
	DueDate          time.Time       `json:"due_date" gorm:"index"`
	PaidDate         *time.Time      `json:"paid_date,omitempty"`
	PaymentMethod    string          `json:"payment_method,omitempty" gorm:"type:varchar(50)"`
	PaymentReference string          `json:"payment_reference,omitempty" gorm:"type:varchar(100)"`
	Terms            string          `json:"terms" gorm:"type:text"`
	CreatedBy        uint            `json:"created_by"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `json:"-" gorm:"index"`

	Items  []InvoiceItem `json:"items,omitempty" gorm:"foreignKey:InvoiceID"`
	Job    *Job          `json:"job,omitempty" gorm:"foreignKey:JobID"`
	Client *Client       `json:"client,omitempty" gorm:"foreignKey:ClientID"`
}

// InvoiceItem mirrors the quote item it was copied from
type InvoiceItem struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	InvoiceID   uint            `json:"invoice_id" gorm:"index;not null"`
	ItemType    string          `json:"item_type" gorm:"type:varchar(10);not null"`
	Description string          `json:"description" gorm:"type:text;not null"`
	PartID      *uint           `json:"part_id,omitempty"`
	Quantity    decimal.Decimal `json:"quantity" gorm:"type:numeric(10,2);not null"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2);not null"`
	TotalPrice  decimal.Decimal `json:"total_price" gorm:"type:numeric(12,2);not null"`
	Hours       decimal.Decimal `json:"hours" gorm:"type:numeric(8,2)"`
	HourlyRate  decimal.Decimal `json:"hourly_rate" gorm:"type:numeric(10,2)"`
	OrderIndex  int             `json:"order_index"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
