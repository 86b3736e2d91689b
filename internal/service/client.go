package service

import (
	"fmt"
	"strings"

	"fleetshop/internal/activity"
	"fleetshop/internal/apperr"
	"fleetshop/internal/events"
	"fleetshop/internal/model"
	"fleetshop/prometheus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ClientService manages a tenant's customers and their vehicles
type ClientService struct {
	db  *gorm.DB
	log *zap.Logger
	bus *events.Bus
}

// NewClientService creates a client service
func NewClientService(db *gorm.DB, log *zap.Logger, bus *events.Bus) *ClientService {
	return &ClientService{db: db, log: log, bus: bus}
}

// ClientInput creates a client
type ClientInput struct {
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name"`
	CompanyName string `json:"company_name"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
}

// CreateClient adds a client to the actor's tenant
func (s *ClientService) CreateClient(actor Actor, in ClientInput) (*model.Client, error) {
	if strings.TrimSpace(in.FirstName) == "" {
		return nil, apperr.Validation("first_name is required")
	}

	client := model.Client{
		TenantID:    actor.TenantID,
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		CompanyName: in.CompanyName,
		Email:       normalizeEmail(in.Email),
		Phone:       in.Phone,
		Address:     in.Address,
		IsActive:    true,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if client.Email != "" {
			var count int64
			if err := tx.Model(&model.Client{}).
				Where("tenant_id = ? AND email = ?", actor.TenantID, client.Email).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return apperr.Conflict("A client with this email already exists")
			}
		}
		if err := tx.Create(&client).Error; err != nil {
			return err
		}
		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityClient,
			EntityID:   client.ID,
			Action:     "created",
			NewValues:  map[string]interface{}{"first_name": client.FirstName, "last_name": client.LastName, "email": client.Email},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Client created", zap.Uint("tenant_id", actor.TenantID), zap.Uint("client_id", client.ID))
	prometheus.RecordDomainOperation(events.EntityClient, "created")
	publish(s.bus, actor.TenantID, events.EntityClient, client.ID, "created")
	return &client, nil
}

// ClientFilter narrows ListClients
type ClientFilter struct {
	Search string
	PageRequest
}

// ListClients lists the actor's clients, optionally matching name, company or email
func (s *ClientService) ListClients(actor Actor, f ClientFilter) ([]model.Client, Pagination, error) {
	page, limit, offset := f.normalize()

	query := s.db.Model(&model.Client{}).Where("tenant_id = ?", actor.TenantID)
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		query = query.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(company_name) LIKE ? OR LOWER(email) LIKE ?",
			like, like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("count clients: %w", err)
	}

	var clients []model.Client
	if err := query.Order("last_name, first_name").Offset(offset).Limit(limit).Find(&clients).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("list clients: %w", err)
	}
	return clients, newPagination(page, limit, total), nil
}

// GetClient loads a client with its vehicles
func (s *ClientService) GetClient(actor Actor, clientID uint) (*model.Client, error) {
	var client model.Client
	if err := findInTenant(s.db.Preload("Vehicles"), &client, actor.TenantID, clientID, "client"); err != nil {
		return nil, err
	}
	return &client, nil
}

// VehicleInput registers a vehicle for a client
type VehicleInput struct {
	Make         string `json:"make" validate:"required"`
	Model        string `json:"model" validate:"required"`
	Year         int    `json:"year" validate:"omitempty,min=1900,max=2100"`
	Registration string `json:"registration"`
	VIN          string `json:"vin"`
	Mileage      int    `json:"mileage" validate:"min=0"`
}

// CreateVehicle adds a vehicle to one of the actor's clients
func (s *ClientService) CreateVehicle(actor Actor, clientID uint, in VehicleInput) (*model.Vehicle, error) {
	if in.Make == "" || in.Model == "" {
		return nil, apperr.Validation("make and model are required")
	}
	if in.Mileage < 0 {
		return nil, apperr.Validation("mileage cannot be negative")
	}

	vehicle := model.Vehicle{
		TenantID:     actor.TenantID,
		ClientID:     clientID,
		Make:         in.Make,
		Model:        in.Model,
		Year:         in.Year,
		Registration: strings.ToUpper(strings.TrimSpace(in.Registration)),
		VIN:          strings.ToUpper(strings.TrimSpace(in.VIN)),
		Mileage:      in.Mileage,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var client model.Client
		if err := findInTenant(tx, &client, actor.TenantID, clientID, "client"); err != nil {
			return err
		}
		if err := tx.Create(&vehicle).Error; err != nil {
			return err
		}
		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityVehicle,
			EntityID:   vehicle.ID,
			Action:     "created",
			NewValues:  map[string]interface{}{"client_id": clientID, "registration": vehicle.Registration},
		})
	})
	if err != nil {
		return nil, err
	}

	publish(s.bus, actor.TenantID, events.EntityVehicle, vehicle.ID, "created")
	return &vehicle, nil
}

// ListVehicles lists a client's vehicles
func (s *ClientService) ListVehicles(actor Actor, clientID uint) ([]model.Vehicle, error) {
	var client model.Client
	if err := findInTenant(s.db, &client, actor.TenantID, clientID, "client"); err != nil {
		return nil, err
	}

	var vehicles []model.Vehicle
	if err := s.db.Where("tenant_id = ? AND client_id = ?", actor.TenantID, clientID).
		Order("id").Find(&vehicles).Error; err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	return vehicles, nil
}

// EnablePortalAccess lets a client log into the portal with password
func (s *ClientService) EnablePortalAccess(actor Actor, clientID uint, password string) (*model.Client, error) {
	if len(password) < 8 {
		return nil, apperr.Validation("password must be at least 8 characters")
	}

	hashed, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	var client model.Client
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := findInTenant(tx, &client, actor.TenantID, clientID, "client"); err != nil {
			return err
		}
		if client.Email == "" {
			return apperr.Validation("client needs an email address for portal access")
		}
		if err := tx.Model(&client).Updates(map[string]interface{}{
			"portal_access":   true,
			"portal_password": hashed,
		}).Error; err != nil {
			return err
		}
		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityClient,
			EntityID:   client.ID,
			Action:     "portal_access_enabled",
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Portal access enabled", zap.Uint("tenant_id", actor.TenantID), zap.Uint("client_id", client.ID))
	publish(s.bus, actor.TenantID, events.EntityClient, client.ID, "portal_access_enabled")
	return &client, nil
}

// DisablePortalAccess revokes a client's portal login
func (s *ClientService) DisablePortalAccess(actor Actor, clientID uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var client model.Client
		if err := findInTenant(tx, &client, actor.TenantID, clientID, "client"); err != nil {
			return err
		}
		if err := tx.Model(&client).Updates(map[string]interface{}{
			"portal_access":   false,
			"portal_password": "",
		}).Error; err != nil {
			return err
		}
		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityClient,
			EntityID:   client.ID,
			Action:     "portal_access_disabled",
		})
	})
	if err != nil {
		return err
	}

	publish(s.bus, actor.TenantID, events.EntityClient, clientID, "portal_access_disabled")
	return nil
}
