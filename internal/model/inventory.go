package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Part conditions
const (
	ConditionNew         = "new"
	ConditionUsed        = "used"
	ConditionRefurbished = "refurbished"
)

// Movement types
const (
	MovementIn      = "in"
	MovementOut     = "out"
	MovementReserve = "reserve"
	MovementRelease = "release"
	MovementAdjust  = "adjust"
)

// InventoryPart is a stocked part. CurrentStock counts physical units on the shelf;
// ReservedStock counts units allocated to jobs but not yet used.
type InventoryPart struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	TenantID      uint            `json:"tenant_id" gorm:"uniqueIndex:idx_inventory_parts_tenant_number;not null"`
	PartNumber    string          `json:"part_number" gorm:"type:varchar(50);uniqueIndex:idx_inventory_parts_tenant_number;not null"`
	Name          string          `json:"name" gorm:"type:varchar(150);not null"`
	Description   string          `json:"description" gorm:"type:text"`
	Category      string          `json:"category" gorm:"type:varchar(50);index;not null"`
	Condition     string          `json:"condition" gorm:"type:varchar(20);not null"`
	CostPrice     decimal.Decimal `json:"cost_price" gorm:"type:numeric(12,2);not null"`
	SellingPrice  decimal.Decimal `json:"selling_price" gorm:"type:numeric(12,2);not null"`
	CurrentStock  int             `json:"current_stock" gorm:"not null"`
	ReservedStock int             `json:"reserved_stock" gorm:"not null"`
	MinimumStock  int             `json:"minimum_stock" gorm:"not null"`
	Location      string          `json:"location" gorm:"type:varchar(100)"`
	SupplierID    *uint           `json:"supplier_id,omitempty" gorm:"index"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `json:"-" gorm:"index"`
}

// AvailableStock is the quantity that can still be allocated
func (p *InventoryPart) AvailableStock() int {
	available := p.CurrentStock - p.ReservedStock
	if available < 0 {
		return 0
	}
	return available
}

// IsLowStock reports whether the part sits at or below its minimum
func (p *InventoryPart) IsLowStock() bool {
	return p.CurrentStock <= p.MinimumStock
}

// InventoryMovement is an append-only ledger row for a stock change
type InventoryMovement struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	TenantID      uint      `json:"tenant_id" gorm:"index;not null"`
	PartID        uint      `json:"part_id" gorm:"index;not null"`
	MovementType  string    `json:"movement_type" gorm:"type:varchar(10);not null"`
	Quantity      int       `json:"quantity" gorm:"not null"`
	Reason        string    `json:"reason" gorm:"type:varchar(255)"`
	ReferenceID   *uint     `json:"reference_id,omitempty"`
	ReferenceType string    `json:"reference_type,omitempty" gorm:"type:varchar(30)"`
	UserID        uint      `json:"user_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// JobPartsAllocation reserves a quantity of a part for a job and records its use
type JobPartsAllocation struct {
	ID                uint       `json:"id" gorm:"primaryKey"`
	TenantID          uint       `json:"tenant_id" gorm:"index;not null"`
	JobID             uint       `json:"job_id" gorm:"index;not null"`
	PartID            uint       `json:"part_id" gorm:"index;not null"`
	QuantityAllocated int        `json:"quantity_allocated" gorm:"not null"`
	QuantityUsed      int        `json:"quantity_used" gorm:"not null"`
	UsageNotes        string     `json:"usage_notes,omitempty" gorm:"type:text"`
	AllocatedBy       uint       `json:"allocated_by"`
	AllocatedAt       time.Time  `json:"allocated_at"`
	UsedBy            *uint      `json:"used_by,omitempty"`
	UsedAt            *time.Time `json:"used_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	Part *InventoryPart `json:"part,omitempty" gorm:"foreignKey:PartID"`
}
