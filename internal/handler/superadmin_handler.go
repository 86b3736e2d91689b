package handler

import (
	"net/http"

	"fleetshop/internal/service"

	"github.com/labstack/echo/v4"
)

// SuperAdminHandler serves platform tenant administration
type SuperAdminHandler struct {
	admin *service.SuperAdminService
}

// NewSuperAdminHandler creates a super admin handler
func NewSuperAdminHandler(admin *service.SuperAdminService) *SuperAdminHandler {
	return &SuperAdminHandler{admin: admin}
}

// CreateTenant provisions a tenant with its first admin
func (h *SuperAdminHandler) CreateTenant(c echo.Context) error {
	var req service.CreateTenantInput
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	res, err := h.admin.CreateTenant(actorFrom(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// ListTenants lists tenants, filtered by ?status= and ?tier=
func (h *SuperAdminHandler) ListTenants(c echo.Context) error {
	f := service.TenantFilter{
		Status:      c.QueryParam("status"),
		Tier:        c.QueryParam("tier"),
		PageRequest: pageRequest(c),
	}
	tenants, page, err := h.admin.ListTenants(actorFrom(c), f)
	if err != nil {
		return respondError(c, err)
	}
	return paginated(c, tenants, page)
}

type tenantStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active trial suspended"`
}

// UpdateTenantStatus activates, suspends or puts a tenant on trial
func (h *SuperAdminHandler) UpdateTenantStatus(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req tenantStatusRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	tenant, err := h.admin.UpdateTenantStatus(actorFrom(c), id, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, tenant)
}

// UpdateTenantBranding sets any tenant's branding
func (h *SuperAdminHandler) UpdateTenantBranding(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req service.BrandingInput
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	branding, err := h.admin.UpdateTenantBranding(actorFrom(c), id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, branding)
}

type featuresRequest struct {
	Features map[string]bool `json:"features" validate:"required"`
}

// UpdateTenantFeatures replaces a tenant's feature flags
func (h *SuperAdminHandler) UpdateTenantFeatures(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req featuresRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	features, err := h.admin.UpdateTenantFeatures(actorFrom(c), id, req.Features)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, features)
}

// Analytics returns platform totals, or one tenant's with ?tenant_id=
func (h *SuperAdminHandler) Analytics(c echo.Context) error {
	var tenantID *uint
	if c.QueryParam("tenant_id") != "" {
		var id uint64
		if err := echo.QueryParamsBinder(c).Uint64("tenant_id", &id).BindError(); err != nil || id == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant_id"})
		}
		tid := uint(id)
		tenantID = &tid
	}

	analytics, err := h.admin.TenantAnalytics(actorFrom(c), tenantID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, analytics)
}
