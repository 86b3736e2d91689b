package logger

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig holds logger configuration
type LogConfig struct {
	Level       string
	Environment string
	ServiceName string
}

var log *zap.Logger

// ParseLevel maps a LOG_LEVEL value to a zap level, falling back to info
func ParseLevel(s string) zapcore.Level {
	level, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// New builds a logger: JSON with ISO8601 timestamps in production, colored console otherwise
func New(config *LogConfig) (*zap.Logger, error) {
	var zc zap.Config
	if config.Environment == "production" {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(ParseLevel(config.Level))

	return zc.Build(zap.Fields(
		zap.String("service", config.ServiceName),
		zap.String("environment", config.Environment),
	))
}

// InitLogger builds the process logger and installs it as zap's global
func InitLogger(config *LogConfig) error {
	l, err := New(config)
	if err != nil {
		return err
	}
	log = l
	zap.ReplaceGlobals(log)
	return nil
}

// GetLogger returns the global logger instance, or zap's global logger
// when InitLogger has not been called (tests, CLI subcommands).
func GetLogger() *zap.Logger {
	if log == nil {
		return zap.L()
	}
	return log
}

// Middleware logs one line per request. The line is written with whatever
// logger is on the echo context once the handler returns, so tenant and user
// fields added by the auth middleware show up in it.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			requestID := c.Request().Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = c.Response().Header().Get(echo.HeaderXRequestID)
			}

			reqLogger := FromEcho(c).With(zap.String("request_id", requestID))
			c.Set("logger", reqLogger)
			c.SetRequest(c.Request().WithContext(WithContext(c.Request().Context(), reqLogger)))

			if err := next(c); err != nil {
				// let echo write the response so the logged status is the real one
				c.Error(err)
			}

			status := c.Response().Status
			fields := []zap.Field{
				zap.String("method", c.Request().Method),
				zap.String("route", c.Path()),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
			}

			final := FromEcho(c)
			switch {
			case status >= http.StatusInternalServerError:
				final.Error("HTTP Request", fields...)
			case status >= http.StatusBadRequest:
				final.Warn("HTTP Request", fields...)
			default:
				final.Info("HTTP Request", fields...)
			}
			return nil
		}
	}
}
