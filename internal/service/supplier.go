package service

import (
	"fmt"
	"strings"
	"time"

	"fleetshop/internal/activity"
	"fleetshop/internal/apperr"
	"fleetshop/internal/events"
	"fleetshop/internal/model"
	"fleetshop/internal/numbering"
	"fleetshop/prometheus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SupplierService manages parts vendors and the purchase orders placed with them
type SupplierService struct {
	db      *gorm.DB
	log     *zap.Logger
	numbers *numbering.Generator
	bus     *events.Bus
}

// NewSupplierService creates a supplier service
func NewSupplierService(db *gorm.DB, log *zap.Logger, numbers *numbering.Generator, bus *events.Bus) *SupplierService {
	return &SupplierService{db: db, log: log, numbers: numbers, bus: bus}
}

// SupplierInput creates a supplier
type SupplierInput struct {
	Name          string `json:"name" validate:"required"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	PaymentTerms  string `json:"payment_terms"`
}

// CreateSupplier adds an active supplier; names are unique within a tenant
func (s *SupplierService) CreateSupplier(actor Actor, in SupplierInput) (*model.Supplier, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("Supplier name is required")
	}

	supplier := model.Supplier{
		TenantID:      actor.TenantID,
		Name:          name,
		ContactPerson: in.ContactPerson,
		Email:         normalizeEmail(in.Email),
		Phone:         in.Phone,
		Address:       in.Address,
		PaymentTerms:  in.PaymentTerms,
		IsActive:      true,
		CreatedBy:     actor.UserID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Supplier{}).
			Where("tenant_id = ? AND LOWER(name) = ?", actor.TenantID, strings.ToLower(name)).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Conflict("Supplier %s already exists", name)
		}
		if err := tx.Create(&supplier).Error; err != nil {
			return err
		}
		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntitySupplier,
			EntityID:   supplier.ID,
			Action:     "created",
			NewValues:  map[string]interface{}{"name": supplier.Name},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Supplier created", zap.Uint("tenant_id", actor.TenantID), zap.Uint("supplier_id", supplier.ID))
	prometheus.RecordDomainOperation(events.EntitySupplier, "created")
	publish(s.bus, actor.TenantID, events.EntitySupplier, supplier.ID, "created")
	return &supplier, nil
}

// SupplierFilter narrows ListSuppliers
type SupplierFilter struct {
	IsActive *bool
	PageRequest
}

// ListSuppliers lists suppliers by name
func (s *SupplierService) ListSuppliers(actor Actor, f SupplierFilter) ([]model.Supplier, Pagination, error) {
	page, limit, offset := f.normalize()

	query := s.db.Model(&model.Supplier{}).Where("tenant_id = ?", actor.TenantID)
	if f.IsActive != nil {
		query = query.Where("is_active = ?", *f.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("count suppliers: %w", err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var suppliers []model.Supplier
	if err := query.Order("name, id").Offset(offset).Limit(limit).Find(&suppliers).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("list suppliers: %w", err)
	}
	return suppliers, newPagination(page, limit, total), nil
}

// GetSupplier loads one supplier
func (s *SupplierService) GetSupplier(actor Actor, id uint) (*model.Supplier, error) {
	var supplier model.Supplier
	if err := findInTenant(s.db, &supplier, actor.TenantID, id, "supplier"); err != nil {
		return nil, err
	}
	return &supplier, nil
}

// PurchaseOrderInput opens a purchase order
type PurchaseOrderInput struct {
	SupplierID   uint       `json:"supplier_id" validate:"required"`
	Notes        string     `json:"notes"`
	ExpectedDate *time.Time `json:"expected_date"`
}

// CreatePurchaseOrder opens a pending order with an active supplier
func (s *SupplierService) CreatePurchaseOrder(actor Actor, in PurchaseOrderInput) (*model.PurchaseOrder, error) {
	if in.SupplierID == 0 {
		return nil, apperr.Validation("supplier_id is required")
	}

	order := model.PurchaseOrder{
		TenantID:     actor.TenantID,
		PONumber:     s.numbers.PurchaseOrderNumber(),
		SupplierID:   in.SupplierID,
		Status:       model.POStatusPending,
		Notes:        in.Notes,
		ExpectedDate: in.ExpectedDate,
		CreatedBy:    actor.UserID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var supplier model.Supplier
		if err := findInTenant(tx, &supplier, actor.TenantID, in.SupplierID, "supplier"); err != nil {
			return err
		}
		if !supplier.IsActive {
			return apperr.InvalidState("Supplier %s is inactive", supplier.Name)
		}
		if err := tx.Create(&order).Error; err != nil {
			return conflictOr(err, "Purchase order number already exists")
		}
		order.Supplier = &supplier
		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityPurchase,
			EntityID:   order.ID,
			Action:     "created",
			NewValues:  map[string]interface{}{"po_number": order.PONumber, "supplier_id": order.SupplierID},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Purchase order created", zap.Uint("tenant_id", actor.TenantID), zap.String("po_number", order.PONumber))
	prometheus.RecordDomainOperation(events.EntityPurchase, "created")
	publish(s.bus, actor.TenantID, events.EntityPurchase, order.ID, "created")
	return &order, nil
}

// PurchaseOrderFilter narrows ListPurchaseOrders
type PurchaseOrderFilter struct {
	Status     string
	SupplierID uint
	PageRequest
}

// ListPurchaseOrders lists orders newest first with their supplier
func (s *SupplierService) ListPurchaseOrders(actor Actor, f PurchaseOrderFilter) ([]model.PurchaseOrder, Pagination, error) {
	page, limit, offset := f.normalize()

	query := s.db.Model(&model.PurchaseOrder{}).Where("tenant_id = ?", actor.TenantID)
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.SupplierID != 0 {
		query = query.Where("supplier_id = ?", f.SupplierID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("count purchase orders: %w", err)
	}

	var orders []model.PurchaseOrder
	if err := query.Preload("Supplier").Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("list purchase orders: %w", err)
	}
	return orders, newPagination(page, limit, total), nil
}

var purchaseOrderTransitions = map[string][]string{
	model.POStatusPending: {model.POStatusOrdered, model.POStatusCancelled},
	model.POStatusOrdered: {model.POStatusReceived, model.POStatusCancelled},
}

// UpdatePurchaseOrderStatus moves an order along pending, ordered, received; open orders may be cancelled
func (s *SupplierService) UpdatePurchaseOrderStatus(actor Actor, id uint, status string) (*model.PurchaseOrder, error) {
	var order model.PurchaseOrder
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := findInTenant(tx, &order, actor.TenantID, id, "purchase order"); err != nil {
			return err
		}
		allowed := false
		for _, next := range purchaseOrderTransitions[order.Status] {
			if next == status {
				allowed = true
			}
		}
		if !allowed {
			return apperr.InvalidState("Cannot move purchase order from %s to %s", order.Status, status)
		}

		old := order.Status
		if err := tx.Model(&order).Update("status", status).Error; err != nil {
			return err
		}
		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityPurchase,
			EntityID:   order.ID,
			Action:     "status_changed",
			OldValues:  map[string]interface{}{"status": old},
			NewValues:  map[string]interface{}{"status": status},
		})
	})
	if err != nil {
		return nil, err
	}

	publish(s.bus, actor.TenantID, events.EntityPurchase, order.ID, "status_changed")
	return &order, nil
}
