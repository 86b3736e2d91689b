package middleware

import (
	"net/http"
	"strings"

	"fleetshop/internal/permission"
	"fleetshop/pkg/jwtutil"
	"fleetshop/pkg/logger"
	"fleetshop/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Echo context keys set by AuthMiddleware
const (
	UserIDKey     = "user_id"
	EmailKey      = "email"
	TenantIDKey   = "tenant_id"
	TenantNameKey = "tenant_name"
	RoleKey       = "user_role"
	ClientIDKey   = "client_id"
	ScopeKey      = "scope"
)

// AuthMiddleware validates the Bearer token from the Authorization header
// and copies its claims into the echo context
func AuthMiddleware(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				log.Warn("Missing Authorization header")
				prometheus.RecordAuthError("missing_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				log.Warn("Invalid Authorization header format")
				prometheus.RecordAuthError("invalid_auth_format")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
			}

			claims, err := jwtUtil.ValidateToken(parts[1])
			if err != nil {
				log.Warn("Invalid JWT token", zap.Error(err))
				prometheus.RecordAuthError("invalid_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			c.Set(UserIDKey, claims.UserID)
			c.Set(EmailKey, claims.Email)
			c.Set(RoleKey, claims.Role)
			c.Set(ScopeKey, claims.Scope)

			fields := []zap.Field{zap.String("role", claims.Role)}
			if claims.TenantID != nil {
				c.Set(TenantIDKey, *claims.TenantID)
				c.Set(TenantNameKey, claims.TenantName)
				fields = append(fields, zap.Uint("tenant_id", *claims.TenantID))
			}
			if claims.ClientID != nil {
				c.Set(ClientIDKey, *claims.ClientID)
				fields = append(fields, zap.Uint("client_id", *claims.ClientID))
			} else {
				fields = append(fields, zap.Uint("user_id", claims.UserID))
			}

			c.Set("logger", log.With(fields...))
			return next(c)
		}
	}
}

// RequireScope rejects tokens issued for another audience (staff vs portal)
func RequireScope(scope string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if got, _ := c.Get(ScopeKey).(string); got != scope {
				logger.FromContext(c).Warn("Token scope rejected", zap.String("scope", got), zap.String("required", scope))
				prometheus.RecordAuthError("wrong_scope")
				return c.JSON(http.StatusForbidden, echo.Map{"error": "token not valid for this resource"})
			}
			return next(c)
		}
	}
}

// RequireTenantContext ensures the request has tenant context in the JWT
func RequireTenantContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, ok := c.Get(TenantIDKey).(uint)
		if !ok || tenantID == 0 {
			logger.FromContext(c).Warn("Missing tenant context")
			prometheus.RecordAuthError("missing_tenant")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "tenant context required"})
		}
		return next(c)
	}
}

// RequirePermission lets the request through when the caller's role holds any of perms
func RequirePermission(perms ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(RoleKey).(string)
			if !permission.HasAnyPermission(role, perms...) {
				logger.FromContext(c).Warn("Permission denied",
					zap.String("role", role),
					zap.Strings("required", perms),
					zap.String("path", c.Path()))
				prometheus.RecordAuthError("forbidden")
				return c.JSON(http.StatusForbidden, echo.Map{"error": "Insufficient permissions"})
			}
			return next(c)
		}
	}
}

// RequireSuperAdmin restricts a group to platform super admins
func RequireSuperAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if role, _ := c.Get(RoleKey).(string); role != permission.RoleSuperAdmin {
			logger.FromContext(c).Warn("Super admin required", zap.String("role", role))
			prometheus.RecordAuthError("forbidden")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "Unauthorized"})
		}
		return next(c)
	}
}
