package service

import (
	"fmt"

	"fleetshop/internal/apperr"
	"fleetshop/internal/model"
	"fleetshop/internal/permission"
	"fleetshop/pkg/jwtutil"
	"fleetshop/prometheus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PortalService serves clients signed in to the customer portal
type PortalService struct {
	db     *gorm.DB
	log    *zap.Logger
	jwt    *jwtutil.JWTUtil
	quotes *QuoteService
}

// NewPortalService creates a portal service
func NewPortalService(db *gorm.DB, log *zap.Logger, jwt *jwtutil.JWTUtil, quotes *QuoteService) *PortalService {
	return &PortalService{db: db, log: log, jwt: jwt, quotes: quotes}
}

// PortalLoginInput is a client's portal credentials
type PortalLoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Tenant   string `json:"tenant"`
}

// PortalLoginResult carries the portal token
type PortalLoginResult struct {
	Token  string       `json:"token"`
	Client model.Client `json:"client"`
}

// PortalLogin authenticates an active client with portal access. A client email may
// exist in several shops; Tenant (the shop slug) narrows the lookup, otherwise the
// first client whose password matches wins.
func (s *PortalService) PortalLogin(in PortalLoginInput) (*PortalLoginResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, apperr.Validation("Email and password are required")
	}

	query := s.db.Model(&model.Client{}).
		Joins("JOIN tenants ON tenants.id = clients.tenant_id AND tenants.deleted_at IS NULL AND tenants.status <> ?", model.TenantStatusSuspended).
		Where("clients.email = ? AND clients.portal_access = ? AND clients.is_active = ?", email, true, true)
	if in.Tenant != "" {
		query = query.Where("tenants.slug = ?", in.Tenant)
	}

	var candidates []model.Client
	if err := query.Order("clients.id").Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("load portal clients: %w", err)
	}
	if len(candidates) == 0 {
		prometheus.RecordAuthError("portal_login_failure")
		return nil, apperr.Unauthorized("Invalid credentials or portal access not enabled")
	}

	for _, client := range candidates {
		if !checkPassword(client.PortalPassword, in.Password) {
			continue
		}
		token, err := s.jwt.GeneratePortalToken(client.Email, client.ID, client.TenantID)
		if err != nil {
			return nil, fmt.Errorf("generate portal token: %w", err)
		}
		s.log.Info("Client signed in to portal", zap.Uint("tenant_id", client.TenantID), zap.Uint("client_id", client.ID))
		return &PortalLoginResult{Token: token, Client: client}, nil
	}

	prometheus.RecordAuthError("portal_login_failure")
	return nil, apperr.Unauthorized("Invalid credentials")
}

// PortalActor builds the service actor for a portal client
func PortalActor(tenantID, clientID uint) Actor {
	return Actor{TenantID: tenantID, Role: permission.RoleClient, ClientID: uintPtr(clientID)}
}

// Dashboard is everything a client sees on the portal home page
type Dashboard struct {
	Client   model.Client    `json:"client"`
	Jobs     []model.Job     `json:"jobs"`
	Quotes   []model.Quote   `json:"quotes"`
	Invoices []model.Invoice `json:"invoices"`
}

// PortalDashboard loads the client with their jobs, quotes and invoices. Drafts stay hidden.
func (s *PortalService) PortalDashboard(actor Actor) (*Dashboard, error) {
	if actor.ClientID == nil {
		return nil, apperr.Forbidden("portal access required")
	}
	clientID := *actor.ClientID

	var dash Dashboard
	if err := findInTenant(s.db, &dash.Client, actor.TenantID, clientID, "client"); err != nil {
		return nil, err
	}

	if err := s.db.Preload("Status").Preload("Vehicle").
		Where("tenant_id = ? AND client_id = ?", actor.TenantID, clientID).
		Order("created_at DESC, id DESC").Find(&dash.Jobs).Error; err != nil {
		return nil, fmt.Errorf("load portal jobs: %w", err)
	}

	jobIDs := s.db.Model(&model.Job{}).Select("id").Where("tenant_id = ? AND client_id = ?", actor.TenantID, clientID)
	if err := s.db.Preload("Items", orderedItems).
		Where("tenant_id = ? AND job_id IN (?) AND status <> ?", actor.TenantID, jobIDs, model.QuoteStatusDraft).
		Order("created_at DESC, id DESC").Find(&dash.Quotes).Error; err != nil {
		return nil, fmt.Errorf("load portal quotes: %w", err)
	}

	if err := s.db.Where("tenant_id = ? AND client_id = ? AND status <> ?", actor.TenantID, clientID, model.InvoiceStatusDraft).
		Order("issue_date DESC, id DESC").Find(&dash.Invoices).Error; err != nil {
		return nil, fmt.Errorf("load portal invoices: %w", err)
	}

	if dash.Jobs == nil {
		dash.Jobs = []model.Job{}
	}
	if dash.Quotes == nil {
		dash.Quotes = []model.Quote{}
	}
	if dash.Invoices == nil {
		dash.Invoices = []model.Invoice{}
	}
	return &dash, nil
}

// ApproveQuote approves one of the client's quotes
func (s *PortalService) ApproveQuote(actor Actor, quoteID uint, in ApprovalInput) (*model.Quote, error) {
	if actor.ClientID == nil {
		return nil, apperr.Forbidden("portal access required")
	}
	return s.quotes.ApproveQuote(actor, quoteID, in)
}

// RejectQuote declines one of the client's quotes
func (s *PortalService) RejectQuote(actor Actor, quoteID uint, reason string) (*model.Quote, error) {
	if actor.ClientID == nil {
		return nil, apperr.Forbidden("portal access required")
	}
	return s.quotes.RejectQuote(actor, quoteID, reason)
}
