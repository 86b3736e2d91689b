package handler

import (
	"net/http"
	"strconv"

	"fleetshop/internal/apperr"
	"fleetshop/internal/middleware"
	"fleetshop/internal/service"
	"fleetshop/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// actorFrom builds the service actor from the claims AuthMiddleware stored
func actorFrom(c echo.Context) service.Actor {
	actor := service.Actor{}
	actor.UserID, _ = c.Get(middleware.UserIDKey).(uint)
	actor.TenantID, _ = c.Get(middleware.TenantIDKey).(uint)
	actor.Role, _ = c.Get(middleware.RoleKey).(string)
	if clientID, ok := c.Get(middleware.ClientIDKey).(uint); ok {
		actor.ClientID = &clientID
	}
	return actor
}

// respondError writes err as {"error": ...}. Unclassified errors are logged and answered with a generic 500.
func respondError(c echo.Context, err error) error {
	log := logger.FromContext(c)
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.Error(err), zap.String("path", c.Path()))
	} else {
		log.Info("Request rejected", zap.Int("status", status), zap.String("reason", err.Error()))
	}

	body := echo.Map{"error": apperr.PublicMessage(err)}
	if requestID, ok := c.Get(middleware.RequestIDKey).(string); ok && requestID != "" {
		body["request_id"] = requestID
	}
	return c.JSON(status, body)
}

// bind decodes the request body into dst and runs the registered validator
func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		logger.FromContext(c).Debug("Failed to bind request", zap.Error(err))
		return apperr.Validation("invalid request body")
	}
	return c.Validate(dst)
}

// paramID parses a positive numeric path parameter
func paramID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid %s", name)
	}
	return uint(id), nil
}

// pageRequest reads ?page= and ?limit=; out-of-range values fall back to the service defaults
func pageRequest(c echo.Context) service.PageRequest {
	var p service.PageRequest
	_ = echo.QueryParamsBinder(c).Int("page", &p.Page).Int("limit", &p.Limit).BindError()
	return p
}

func paginated(c echo.Context, items interface{}, page service.Pagination) error {
	return c.JSON(http.StatusOK, echo.Map{"items": items, "pagination": page})
}
