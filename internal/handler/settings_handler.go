package handler

import (
	"net/http"

	"fleetshop/internal/activity"
	"fleetshop/internal/service"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// SettingsHandler serves tenant settings, own branding and the activity log
type SettingsHandler struct {
	settings *service.SettingsService
	admin    *service.SuperAdminService
	db       *gorm.DB
}

// NewSettingsHandler creates a settings handler
func NewSettingsHandler(settings *service.SettingsService, admin *service.SuperAdminService, db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{settings: settings, admin: admin, db: db}
}

// ListSettings returns every setting of the caller's tenant
func (h *SettingsHandler) ListSettings(c echo.Context) error {
	configs, err := h.settings.List(actorFrom(c).TenantID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": configs})
}

type settingRequest struct {
	Value string `json:"value" validate:"required"`
}

// UpdateSetting sets one setting, keyed by path
func (h *SettingsHandler) UpdateSetting(c echo.Context) error {
	var req settingRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	cfg, err := h.settings.Set(actorFrom(c), c.Param("key"), req.Value)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cfg)
}

// UpdateBranding lets a tenant admin change their own shop's branding
func (h *SettingsHandler) UpdateBranding(c echo.Context) error {
	var req service.BrandingInput
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	actor := actorFrom(c)
	branding, err := h.admin.UpdateTenantBranding(actor, actor.TenantID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, branding)
}

// ListActivity returns recent activity, optionally for one entity
func (h *SettingsHandler) ListActivity(c echo.Context) error {
	var f activity.Filter
	var entityID uint64
	if err := echo.QueryParamsBinder(c).
		String("entity_type", &f.EntityType).
		Uint64("entity_id", &entityID).
		Int("limit", &f.Limit).
		BindError(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid query parameters"})
	}
	f.EntityID = uint(entityID)

	logs, err := activity.List(h.db, actorFrom(c).TenantID, f)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": logs})
}
