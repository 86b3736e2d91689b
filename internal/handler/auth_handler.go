package handler

import (
	"net/http"

	"fleetshop/internal/service"
	"fleetshop/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthHandler serves sign-up, login and tenant user management
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates an auth handler
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// SignUp registers a new shop and its admin
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req service.SignUpInput
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	res, err := h.auth.SignUp(req)
	if err != nil {
		return respondError(c, err)
	}

	logger.FromContext(c).Info("Shop signed up", zap.Uint("tenant_id", res.Tenant.ID))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Account created successfully",
		"tenant":  res.Tenant,
		"user":    res.User,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login exchanges staff credentials for a token
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	res, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// GetProfile returns the caller's user record and permissions
func (h *AuthHandler) GetProfile(c echo.Context) error {
	profile, err := h.auth.Profile(actorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

// ListUsers lists the staff of the caller's tenant
func (h *AuthHandler) ListUsers(c echo.Context) error {
	users, err := h.auth.ListUsers(actorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": users})
}

// InviteUser adds a staff member and returns their temporary password once
func (h *AuthHandler) InviteUser(c echo.Context) error {
	var req service.InviteUserInput
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	res, err := h.auth.InviteUser(actorFrom(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

type userStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// SetUserStatus enables or disables a staff member
func (h *AuthHandler) SetUserStatus(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req userStatusRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	user, err := h.auth.SetUserStatus(actorFrom(c), id, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}
