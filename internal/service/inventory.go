package service

import (
	"fmt"
	"strings"
	"time"

	"fleetshop/internal/activity"
	"fleetshop/internal/apperr"
	"fleetshop/internal/events"
	"fleetshop/internal/model"
	"fleetshop/prometheus"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InventoryService manages parts, stock levels and job allocations
type InventoryService struct {
	db  *gorm.DB
	log *zap.Logger
	bus *events.Bus
}

// NewInventoryService creates an inventory service
func NewInventoryService(db *gorm.DB, log *zap.Logger, bus *events.Bus) *InventoryService {
	return &InventoryService{db: db, log: log, bus: bus}
}

// PartInput creates a part
type PartInput struct {
	PartNumber   string          `json:"part_number" validate:"required"`
	Name         string          `json:"name" validate:"required"`
	Description  string          `json:"description"`
	Category     string          `json:"category" validate:"required"`
	Condition    string          `json:"condition" validate:"required,oneof=new used refurbished"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	CurrentStock int             `json:"current_stock" validate:"gte=0"`
	MinimumStock int             `json:"minimum_stock" validate:"gte=0"`
	Location     string          `json:"location"`
	SupplierID   *uint           `json:"supplier_id"`
}

// Validate applies the part rules: required names, known condition, nothing negative
func (in PartInput) Validate() error {
	switch {
	case strings.TrimSpace(in.PartNumber) == "":
		return apperr.Validation("Part number is required")
	case strings.TrimSpace(in.Name) == "":
		return apperr.Validation("Part name is required")
	case strings.TrimSpace(in.Category) == "":
		return apperr.Validation("Category is required")
	}
	switch in.Condition {
	case model.ConditionNew, model.ConditionUsed, model.ConditionRefurbished:
	default:
		return apperr.Validation("Condition must be new, used or refurbished")
	}
	if in.CostPrice.IsNegative() {
		return apperr.Validation("Cost price must be positive")
	}
	if in.SellingPrice.IsNegative() {
		return apperr.Validation("Selling price must be positive")
	}
	if in.CurrentStock < 0 {
		return apperr.Validation("Stock must be positive")
	}
	if in.MinimumStock < 0 {
		return apperr.Validation("Minimum stock must be positive")
	}
	return nil
}

// CreatePart adds a part; the opening stock is written to the movement ledger
func (s *InventoryService) CreatePart(actor Actor, in PartInput) (*model.InventoryPart, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	part := model.InventoryPart{
		TenantID:     actor.TenantID,
		PartNumber:   strings.TrimSpace(in.PartNumber),
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		Category:     strings.TrimSpace(in.Category),
		Condition:    in.Condition,
		CostPrice:    in.CostPrice,
		SellingPrice: in.SellingPrice,
		CurrentStock: in.CurrentStock,
		MinimumStock: in.MinimumStock,
		Location:     in.Location,
		SupplierID:   in.SupplierID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.InventoryPart{}).
			Where("tenant_id = ? AND part_number = ?", actor.TenantID, part.PartNumber).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Conflict("Part number %s already exists", part.PartNumber)
		}
		if in.SupplierID != nil {
			var supplier model.Supplier
			if err := findInTenant(tx, &supplier, actor.TenantID, *in.SupplierID, "supplier"); err != nil {
				return err
			}
		}

		if err := tx.Create(&part).Error; err != nil {
			return conflictOr(err, "Part number already exists")
		}
		if part.CurrentStock > 0 {
			if err := recordMovement(tx, actor, part.ID, model.MovementIn, part.CurrentStock, "Initial stock", nil, ""); err != nil {
				return err
			}
		}
		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityPart,
			EntityID:   part.ID,
			Action:     "created",
			NewValues:  map[string]interface{}{"part_number": part.PartNumber, "name": part.Name, "current_stock": part.CurrentStock},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Part created", zap.Uint("tenant_id", actor.TenantID), zap.Uint("part_id", part.ID), zap.String("part_number", part.PartNumber))
	prometheus.RecordDomainOperation(events.EntityPart, "created")
	publish(s.bus, actor.TenantID, events.EntityPart, part.ID, "created")
	return &part, nil
}

func recordMovement(tx *gorm.DB, actor Actor, partID uint, movementType string, qty int, reason string, refID *uint, refType string) error {
	movement := model.InventoryMovement{
		TenantID:      actor.TenantID,
		PartID:        partID,
		MovementType:  movementType,
		Quantity:      qty,
		Reason:        reason,
		ReferenceID:   refID,
		ReferenceType: refType,
		UserID:        actor.UserID,
	}
	if err := tx.Create(&movement).Error; err != nil {
		return fmt.Errorf("record %s movement: %w", movementType, err)
	}
	prometheus.RecordStockMovement(movementType)
	return nil
}

// PartFilter narrows ListParts
type PartFilter struct {
	Category  string
	Condition string
	Search    string
	LowStock  bool
	PageRequest
}

// ListParts lists the actor's parts by name
func (s *InventoryService) ListParts(actor Actor, f PartFilter) ([]model.InventoryPart, Pagination, error) {
	page, limit, offset := f.normalize()

	query := s.db.Model(&model.InventoryPart{}).Where("tenant_id = ?", actor.TenantID)
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if f.Condition != "" {
		query = query.Where("condition = ?", f.Condition)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(part_number) LIKE ?", like, like)
	}
	if f.LowStock {
		query = query.Where("current_stock <= minimum_stock")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("count parts: %w", err)
	}

	var parts []model.InventoryPart
	if err := query.Order("name, id").Offset(offset).Limit(limit).Find(&parts).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("list parts: %w", err)
	}
	return parts, newPagination(page, limit, total), nil
}

// GetPart loads one part
func (s *InventoryService) GetPart(actor Actor, partID uint) (*model.InventoryPart, error) {
	var part model.InventoryPart
	if err := findInTenant(s.db, &part, actor.TenantID, partID, "part"); err != nil {
		return nil, err
	}
	return &part, nil
}

// UpdatePartStock sets the counted stock of a part and logs the difference as an in or out movement
func (s *InventoryService) UpdatePartStock(actor Actor, partID uint, newStock int, reason string) (*model.InventoryPart, error) {
	if newStock < 0 {
		return nil, apperr.Validation("Stock must be positive")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, apperr.Validation("reason is required")
	}

	var part model.InventoryPart
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := findInTenant(tx, &part, actor.TenantID, partID, "part"); err != nil {
			return err
		}
		delta := newStock - part.CurrentStock
		if delta == 0 {
			return nil
		}

		if err := tx.Model(&part).Update("current_stock", newStock).Error; err != nil {
			return err
		}
		movementType, qty := model.MovementIn, delta
		if delta < 0 {
			movementType, qty = model.MovementOut, -delta
		}
		return recordMovement(tx, actor, part.ID, movementType, qty, reason, nil, "")
	})
	if err != nil {
		return nil, err
	}

	publish(s.bus, actor.TenantID, events.EntityPart, part.ID, "stock_updated")
	return &part, nil
}

// PartQuantity pairs a part with a quantity
type PartQuantity struct {
	PartID   uint `json:"part_id" validate:"required"`
	Quantity int  `json:"quantity" validate:"gt=0"`
}

// AllocatePartsToJob reserves stock for a job. Every line must fit in the part's
// available stock or nothing is allocated.
func (s *InventoryService) AllocatePartsToJob(actor Actor, jobID uint, parts []PartQuantity) ([]model.JobPartsAllocation, error) {
	if len(parts) == 0 {
		return nil, apperr.Validation("at least one part is required")
	}
	for _, p := range parts {
		if p.PartID == 0 || p.Quantity <= 0 {
			return nil, apperr.Validation("each part needs a part_id and a positive quantity")
		}
	}

	var allocations []model.JobPartsAllocation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var job model.Job
		if err := findInTenant(tx, &job, actor.TenantID, jobID, "job"); err != nil {
			return err
		}

		for _, p := range parts {
			var part model.InventoryPart
			if err := findInTenant(tx, &part, actor.TenantID, p.PartID, "part"); err != nil {
				return err
			}

			res := tx.Model(&model.InventoryPart{}).
				Where("id = ? AND tenant_id = ? AND current_stock - reserved_stock >= ?", part.ID, actor.TenantID, p.Quantity).
				Update("reserved_stock", gorm.Expr("reserved_stock + ?", p.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperr.InsufficientStock("Insufficient stock for %s", part.Name)
			}

			allocation, err := upsertAllocation(tx, actor, job.ID, part.ID, p.Quantity)
			if err != nil {
				return err
			}
			allocations = append(allocations, *allocation)

			if err := recordMovement(tx, actor, part.ID, model.MovementReserve, p.Quantity,
				"Allocated to job "+job.JobNumber, uintPtr(job.ID), "job"); err != nil {
				return err
			}
		}

		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityJob,
			EntityID:   job.ID,
			Action:     "parts_allocated",
			NewValues:  map[string]interface{}{"parts": partQuantitiesValue(parts)},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Parts allocated", zap.Uint("tenant_id", actor.TenantID), zap.Uint("job_id", jobID), zap.Int("lines", len(parts)))
	prometheus.RecordDomainOperation(events.EntityPart, "allocated")
	for _, a := range allocations {
		publish(s.bus, actor.TenantID, events.EntityPart, a.PartID, "allocated")
	}
	return allocations, nil
}

func upsertAllocation(tx *gorm.DB, actor Actor, jobID, partID uint, qty int) (*model.JobPartsAllocation, error) {
	var allocation model.JobPartsAllocation
	err := tx.Where("tenant_id = ? AND job_id = ? AND part_id = ?", actor.TenantID, jobID, partID).
		Limit(1).Find(&allocation).Error
	if err != nil {
		return nil, err
	}

	if allocation.ID != 0 {
		if err := tx.Model(&allocation).
			Update("quantity_allocated", gorm.Expr("quantity_allocated + ?", qty)).Error; err != nil {
			return nil, err
		}
		allocation.QuantityAllocated += qty
		return &allocation, nil
	}

	allocation = model.JobPartsAllocation{
		TenantID:          actor.TenantID,
		JobID:             jobID,
		PartID:            partID,
		QuantityAllocated: qty,
		AllocatedBy:       actor.UserID,
		AllocatedAt:       now(),
	}
	if err := tx.Create(&allocation).Error; err != nil {
		return nil, err
	}
	return &allocation, nil
}

func partQuantitiesValue(parts []PartQuantity) []map[string]interface{} {
	out := make([]map[string]interface{}, len(parts))
	for i, p := range parts {
		out[i] = map[string]interface{}{"part_id": p.PartID, "quantity": p.Quantity}
	}
	return out
}

// PartUsage records what was actually fitted on a job
type PartUsage struct {
	PartID       uint   `json:"part_id" validate:"required"`
	QuantityUsed int    `json:"quantity_used" validate:"gt=0"`
	Notes        string `json:"notes"`
}

// RecordPartsUsage books used quantities against the job's allocations. Stock on
// hand drops by the used quantity, clamped at zero, and the matching reservation
// is released.
func (s *InventoryService) RecordPartsUsage(actor Actor, jobID uint, usage []PartUsage) ([]model.JobPartsAllocation, error) {
	if len(usage) == 0 {
		return nil, apperr.Validation("at least one part is required")
	}
	for _, u := range usage {
		if u.PartID == 0 || u.QuantityUsed <= 0 {
			return nil, apperr.Validation("each part needs a part_id and a positive quantity_used")
		}
	}

	var allocations []model.JobPartsAllocation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var job model.Job
		if err := findInTenant(tx, &job, actor.TenantID, jobID, "job"); err != nil {
			return err
		}

		usedAt := now()
		for _, u := range usage {
			var part model.InventoryPart
			if err := findInTenant(tx, &part, actor.TenantID, u.PartID, "part"); err != nil {
				return err
			}

			allocation, err := upsertAllocation(tx, actor, job.ID, part.ID, 0)
			if err != nil {
				return err
			}
			outstanding := allocation.QuantityAllocated - allocation.QuantityUsed
			if outstanding < 0 {
				outstanding = 0
			}
			release := u.QuantityUsed
			if release > outstanding {
				release = outstanding
			}

			allocation.QuantityUsed += u.QuantityUsed
			allocation.UsageNotes = u.Notes
			allocation.UsedAt = timePtr(usedAt)
			allocation.UsedBy = actor.UserRef()
			if err := tx.Model(allocation).Updates(map[string]interface{}{
				"quantity_used": allocation.QuantityUsed,
				"usage_notes":   u.Notes,
				"used_at":       usedAt,
				"used_by":       actor.UserRef(),
			}).Error; err != nil {
				return err
			}

			if err := tx.Model(&model.InventoryPart{}).
				Where("id = ? AND tenant_id = ?", part.ID, actor.TenantID).
				Updates(map[string]interface{}{
					"current_stock":  gorm.Expr("CASE WHEN current_stock < ? THEN 0 ELSE current_stock - ? END", u.QuantityUsed, u.QuantityUsed),
					"reserved_stock": gorm.Expr("CASE WHEN reserved_stock < ? THEN 0 ELSE reserved_stock - ? END", release, release),
				}).Error; err != nil {
				return err
			}

			if err := recordMovement(tx, actor, part.ID, model.MovementOut, u.QuantityUsed,
				"Used on job "+job.JobNumber, uintPtr(job.ID), "job"); err != nil {
				return err
			}
			allocations = append(allocations, *allocation)
		}

		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityJob,
			EntityID:   job.ID,
			Action:     "parts_used",
			NewValues:  map[string]interface{}{"parts": partUsageValue(usage)},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Parts usage recorded", zap.Uint("tenant_id", actor.TenantID), zap.Uint("job_id", jobID), zap.Int("lines", len(usage)))
	prometheus.RecordDomainOperation(events.EntityPart, "used")
	for _, a := range allocations {
		publish(s.bus, actor.TenantID, events.EntityPart, a.PartID, "used")
	}
	return allocations, nil
}

func partUsageValue(usage []PartUsage) []map[string]interface{} {
	out := make([]map[string]interface{}, len(usage))
	for i, u := range usage {
		out[i] = map[string]interface{}{"part_id": u.PartID, "quantity_used": u.QuantityUsed}
	}
	return out
}

// GetJobPartsAllocation lists a job's allocations with a summary of each part
func (s *InventoryService) GetJobPartsAllocation(actor Actor, jobID uint) ([]model.JobPartsAllocation, error) {
	var job model.Job
	if err := findInTenant(s.db, &job, actor.TenantID, jobID, "job"); err != nil {
		return nil, err
	}

	var allocations []model.JobPartsAllocation
	err := s.db.Preload("Part", func(db *gorm.DB) *gorm.DB {
		return db.Select("id", "part_number", "name", "selling_price", "current_stock", "reserved_stock")
	}).Where("tenant_id = ? AND job_id = ?", actor.TenantID, jobID).Order("id").Find(&allocations).Error
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	return allocations, nil
}

// ListMovements returns the ledger of a part, newest first
func (s *InventoryService) ListMovements(actor Actor, partID uint) ([]model.InventoryMovement, error) {
	var part model.InventoryPart
	if err := findInTenant(s.db, &part, actor.TenantID, partID, "part"); err != nil {
		return nil, err
	}

	var movements []model.InventoryMovement
	if err := s.db.Where("tenant_id = ? AND part_id = ?", actor.TenantID, partID).
		Order("created_at DESC, id DESC").Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return movements, nil
}

// LowStockCount counts a tenant's parts at or below their minimum
func (s *InventoryService) LowStockCount(tenantID uint) (int64, error) {
	var count int64
	err := s.db.Model(&model.InventoryPart{}).
		Where("tenant_id = ? AND current_stock <= minimum_stock", tenantID).
		Count(&count).Error
	return count, err
}

// TrackLowStock keeps the low-stock gauge current as parts change
func (s *InventoryService) TrackLowStock(bus *events.Bus) {
	bus.Subscribe(func(c events.Change) {
		if c.Entity != events.EntityPart {
			return
		}
		defer prometheus.TrackDBOperation("low_stock_count")(time.Now())
		count, err := s.LowStockCount(c.TenantID)
		if err != nil {
			s.log.Warn("Failed to refresh low stock gauge", zap.Uint("tenant_id", c.TenantID), zap.Error(err))
			return
		}
		prometheus.UpdateLowStock(c.TenantID, count)
	})
}
