package service

import (
	"fmt"
	"regexp"
	"strings"

	"fleetshop/internal/activity"
	"fleetshop/internal/apperr"
	"fleetshop/internal/events"
	"fleetshop/internal/model"
	"fleetshop/internal/permission"
	"fleetshop/pkg/config"
	"fleetshop/pkg/database"
	"fleetshop/pkg/jwtutil"
	"fleetshop/prometheus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]`)

// Slugify lowercases name and replaces every character outside [a-z0-9] with "-"
func Slugify(name string) string {
	return nonSlugChars.ReplaceAllString(strings.ToLower(name), "-")
}

// AuthService handles tenant sign-up, staff login and user invitations
type AuthService struct {
	db       *gorm.DB
	log      *zap.Logger
	jwt      *jwtutil.JWTUtil
	defaults config.BillingConfig
	bus      *events.Bus
}

// NewAuthService creates an auth service
func NewAuthService(db *gorm.DB, log *zap.Logger, jwt *jwtutil.JWTUtil, defaults config.BillingConfig, bus *events.Bus) *AuthService {
	return &AuthService{db: db, log: log, jwt: jwt, defaults: defaults, bus: bus}
}

// SignUpInput registers a new shop and its first admin
type SignUpInput struct {
	CompanyName string `json:"company_name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	Phone       string `json:"phone"`
}

// SignUpResult is the tenant and admin created by SignUp
type SignUpResult struct {
	Tenant model.Tenant `json:"tenant"`
	User   model.User   `json:"user"`
}

// SignUp creates a tenant with default statuses and settings plus its admin user, atomically
func (s *AuthService) SignUp(in SignUpInput) (*SignUpResult, error) {
	email := normalizeEmail(in.Email)
	if strings.TrimSpace(in.CompanyName) == "" || email == "" || in.Password == "" ||
		in.FirstName == "" || in.LastName == "" {
		return nil, apperr.Validation("All fields are required")
	}

	hashed, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	var result SignUpResult
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Conflict("Email already registered")
		}

		result.Tenant = model.Tenant{
			Name:             strings.TrimSpace(in.CompanyName),
			Slug:             Slugify(strings.TrimSpace(in.CompanyName)),
			Email:            email,
			Phone:            in.Phone,
			SubscriptionTier: model.TierBasic,
			Status:           model.TenantStatusActive,
		}
		if err := tx.Create(&result.Tenant).Error; err != nil {
			return conflictOr(err, "A company with this name is already registered")
		}

		if err := seedTenantDefaults(tx, result.Tenant.ID, s.defaults); err != nil {
			return err
		}

		result.User = model.User{
			TenantID:  uintPtr(result.Tenant.ID),
			Email:     email,
			Password:  hashed,
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Phone:     in.Phone,
			Role:      permission.RoleAdmin,
			Status:    model.UserStatusActive,
		}
		if err := tx.Create(&result.User).Error; err != nil {
			return conflictOr(err, "Email already registered")
		}

		return activity.Record(tx, activity.Entry{
			TenantID:   result.Tenant.ID,
			UserID:     uintPtr(result.User.ID),
			EntityType: events.EntityTenant,
			EntityID:   result.Tenant.ID,
			Action:     "created",
			NewValues:  map[string]interface{}{"name": result.Tenant.Name, "slug": result.Tenant.Slug},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Tenant signed up",
		zap.Uint("tenant_id", result.Tenant.ID),
		zap.String("slug", result.Tenant.Slug),
		zap.Uint("user_id", result.User.ID))
	prometheus.RecordDomainOperation(events.EntityTenant, "signup")
	publish(s.bus, result.Tenant.ID, events.EntityTenant, result.Tenant.ID, "created")

	return &result, nil
}

// LoginResult carries a staff token and the authenticated user
type LoginResult struct {
	Token       string     `json:"token"`
	User        model.User `json:"user"`
	Permissions []string   `json:"permissions"`
	Routes      []string   `json:"routes"`
}

// Login checks staff credentials and issues a token scoped to the user's tenant
func (s *AuthService) Login(email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("Email and password are required")
	}

	var user model.User
	err := s.db.Preload("Tenant").Where("email = ?", email).First(&user).Error
	if database.IsNotFound(err) {
		prometheus.RecordAuthError("login_failure")
		return nil, apperr.Unauthorized("Invalid email or password")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !checkPassword(user.Password, password) {
		prometheus.RecordAuthError("login_failure")
		return nil, apperr.Unauthorized("Invalid email or password")
	}
	if user.Status == model.UserStatusDisabled {
		prometheus.RecordAuthError("user_disabled")
		return nil, apperr.Forbidden("Account is disabled")
	}

	tenantName := ""
	if user.TenantID != nil {
		if user.Tenant == nil {
			return nil, apperr.Forbidden("Company account not found")
		}
		if user.Tenant.Status == model.TenantStatusSuspended {
			prometheus.RecordAuthError("tenant_suspended")
			return nil, apperr.Forbidden("Company account is suspended")
		}
		tenantName = user.Tenant.Name
	}

	token, err := s.jwt.GenerateTokenWithTenant(user.Email, user.ID, user.TenantID, tenantName, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	loginAt := now()
	updates := map[string]interface{}{"last_login_at": loginAt}
	if user.Status == model.UserStatusInvited {
		updates["status"] = model.UserStatusActive
	}
	if err := s.db.Model(&user).Updates(updates).Error; err != nil {
		s.log.Warn("Failed to record login time", zap.Uint("user_id", user.ID), zap.Error(err))
	}

	s.log.Info("User logged in", zap.Uint("user_id", user.ID), zap.String("role", user.Role))
	return &LoginResult{
		Token:       token,
		User:        user,
		Permissions: permission.ForRole(user.Role),
		Routes:      permission.RoutesFor(user.Role),
	}, nil
}

// InviteUserInput adds a staff member to the caller's tenant
type InviteUserInput struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Role      string `json:"role" validate:"required"`
	Phone     string `json:"phone"`
}

// InviteResult returns the temporary password exactly once
type InviteResult struct {
	User         model.User `json:"user"`
	TempPassword string     `json:"temp_password"`
}

// InviteUser creates an invited user with a temporary password. Requires user_management.
func (s *AuthService) InviteUser(actor Actor, in InviteUserInput) (*InviteResult, error) {
	if err := actor.require(permission.UserManagement); err != nil {
		return nil, err
	}

	email := normalizeEmail(in.Email)
	if email == "" || in.FirstName == "" || in.LastName == "" || in.Role == "" {
		return nil, apperr.Validation("All fields are required")
	}
	if !permission.IsStaffRole(in.Role) {
		return nil, apperr.Validation("Invalid role %q", in.Role)
	}

	tempPassword, err := generateTempPassword()
	if err != nil {
		return nil, err
	}
	hashed, err := hashPassword(tempPassword)
	if err != nil {
		return nil, err
	}

	user := model.User{
		TenantID:  uintPtr(actor.TenantID),
		Email:     email,
		Password:  hashed,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
		Role:      in.Role,
		Status:    model.UserStatusInvited,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Conflict("Email already registered")
		}
		if err := tx.Create(&user).Error; err != nil {
			return conflictOr(err, "Email already registered")
		}
		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityUser,
			EntityID:   user.ID,
			Action:     "invited",
			NewValues:  map[string]interface{}{"email": email, "role": in.Role},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("User invited", zap.Uint("tenant_id", actor.TenantID), zap.Uint("user_id", user.ID), zap.String("role", user.Role))
	prometheus.RecordDomainOperation(events.EntityUser, "invited")
	publish(s.bus, actor.TenantID, events.EntityUser, user.ID, "invited")

	return &InviteResult{User: user, TempPassword: tempPassword}, nil
}

// Profile is the current user with their resolved permissions
type Profile struct {
	User        model.User `json:"user"`
	Permissions []string   `json:"permissions"`
	Routes      []string   `json:"routes"`
}

// Profile loads the actor's user record
func (s *AuthService) Profile(actor Actor) (*Profile, error) {
	var user model.User
	err := s.db.Preload("Tenant").First(&user, actor.UserID).Error
	if database.IsNotFound(err) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &Profile{User: user, Permissions: permission.ForRole(user.Role), Routes: permission.RoutesFor(user.Role)}, nil
}

// ListUsers lists the staff of the actor's tenant
func (s *AuthService) ListUsers(actor Actor) ([]model.User, error) {
	var users []model.User
	if err := s.db.Where("tenant_id = ?", actor.TenantID).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// SetUserStatus enables or disables a user of the actor's tenant
func (s *AuthService) SetUserStatus(actor Actor, userID uint, status string) (*model.User, error) {
	if err := actor.require(permission.UserManagement); err != nil {
		return nil, err
	}
	if status != model.UserStatusActive && status != model.UserStatusDisabled {
		return nil, apperr.Validation("status must be active or disabled")
	}
	if userID == actor.UserID {
		return nil, apperr.InvalidState("You cannot change your own status")
	}

	var user model.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := findInTenant(tx, &user, actor.TenantID, userID, "user"); err != nil {
			return err
		}
		old := user.Status
		if err := tx.Model(&user).Update("status", status).Error; err != nil {
			return err
		}
		return activity.Record(tx, activity.Entry{
			TenantID:   actor.TenantID,
			UserID:     actor.UserRef(),
			EntityType: events.EntityUser,
			EntityID:   user.ID,
			Action:     "status_updated",
			OldValues:  map[string]interface{}{"status": old},
			NewValues:  map[string]interface{}{"status": status},
		})
	})
	if err != nil {
		return nil, err
	}

	publish(s.bus, actor.TenantID, events.EntityUser, user.ID, "status_updated")
	return &user, nil
}

// CreateSuperAdmin adds a platform operator with no tenant. Used by the admin CLI.
func (s *AuthService) CreateSuperAdmin(email, password, firstName, lastName string) (*model.User, error) {
	email = normalizeEmail(email)
	if email == "" || len(password) < 8 {
		return nil, apperr.Validation("email and a password of at least 8 characters are required")
	}
	hashed, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := model.User{
		Email:     email,
		Password:  hashed,
		FirstName: firstName,
		LastName:  lastName,
		Role:      permission.RoleSuperAdmin,
		Status:    model.UserStatusActive,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, conflictOr(err, "Email already registered")
	}

	s.log.Info("Super admin created", zap.Uint("user_id", user.ID), zap.String("email", email))
	return &user, nil
}
