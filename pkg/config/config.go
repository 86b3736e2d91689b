package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

const defaultSigningKey = "fleetshopsecretkey"

// DBConfig holds database configuration
type DBConfig struct {
	Driver          string // "postgres" or "sqlite"
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	SQLitePath      string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

// GetDSN returns the connection string for the configured driver
func (c *DBConfig) GetDSN() string {
	if c.Driver == "sqlite" {
		return c.SQLitePath
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// JWTConfig holds JWT configuration for staff and client-portal tokens
type JWTConfig struct {
	SigningKey            string
	ExpirationHours       int
	PortalExpirationHours int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// BillingConfig holds the fallbacks used when a tenant has no system_config override
type BillingConfig struct {
	DefaultTaxRate    float64
	InvoiceDueDays    int
	QuoteValidityDays int
}

// CacheConfig holds report cache configuration
type CacheConfig struct {
	ReportEntries int
	ReportTTL     time.Duration
}

// NodeConfig identifies this process when generating document numbers
type NodeConfig struct {
	ID int64
}

// Config holds all configuration
type Config struct {
	DB      DBConfig
	Server  ServerConfig
	JWT     JWTConfig
	Log     LogConfig
	Billing BillingConfig
	Cache   CacheConfig
	Node    NodeConfig
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Not returning error as .env file is optional
		fmt.Printf("Warning: .env file not found, using environment variables\n")
	}

	config := &Config{
		DB: DBConfig{
			Driver:          getEnv("DB_DRIVER", "postgres"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "password"),
			DBName:          getEnv("DB_NAME", "fleetshop"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			SQLitePath:      getEnv("DB_SQLITE_PATH", "fleetshop.db"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnvAsLogLevel("DB_LOG_LEVEL", logger.Warn),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("APP_ENV", "development"),
		},
		JWT: JWTConfig{
			SigningKey:            getEnv("JWT_SIGNING_KEY", defaultSigningKey),
			ExpirationHours:       getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
			PortalExpirationHours: getEnvAsInt("JWT_PORTAL_EXPIRATION_HOURS", 4),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Billing: BillingConfig{
			DefaultTaxRate:    getEnvAsFloat("DEFAULT_TAX_RATE", 15.0),
			InvoiceDueDays:    getEnvAsInt("DEFAULT_INVOICE_DUE_DAYS", 30),
			QuoteValidityDays: getEnvAsInt("DEFAULT_QUOTE_VALIDITY_DAYS", 30),
		},
		Cache: CacheConfig{
			ReportEntries: getEnvAsInt("REPORT_CACHE_ENTRIES", 512),
			ReportTTL:     getEnvAsDuration("REPORT_CACHE_TTL", 5*time.Minute),
		},
		Node: NodeConfig{
			ID: int64(getEnvAsInt("NODE_ID", 1)),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects settings the services cannot run with
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DB.Driver)
	}
	if c.Server.Env == "production" && c.JWT.SigningKey == defaultSigningKey {
		return fmt.Errorf("JWT_SIGNING_KEY must be set in production")
	}
	if c.JWT.ExpirationHours <= 0 || c.JWT.PortalExpirationHours <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.Billing.DefaultTaxRate < 0 || c.Billing.DefaultTaxRate > 100 {
		return fmt.Errorf("DEFAULT_TAX_RATE must be between 0 and 100")
	}
	if c.Billing.InvoiceDueDays < 0 || c.Billing.QuoteValidityDays < 0 {
		return fmt.Errorf("billing day counts cannot be negative")
	}
	// snowflake reserves 10 bits for the node
	if c.Node.ID < 0 || c.Node.ID > 1023 {
		return fmt.Errorf("NODE_ID must be between 0 and 1023")
	}
	return nil
}

// LogConfig returns the configuration as a zap logger-friendly format
func (c *Config) LogConfig() []zap.Field {
	return []zap.Field{
		zap.String("environment", c.Server.Env),
		zap.String("db_driver", c.DB.Driver),
		zap.String("db_host", c.DB.Host),
		zap.String("db_port", c.DB.Port),
		zap.String("db_name", c.DB.DBName),
		zap.String("server_port", c.Server.Port),
	}
}

// Helper function to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as integers
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as floats
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as durations
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as log levels
func getEnvAsLogLevel(key string, defaultValue logger.LogLevel) logger.LogLevel {
	valueStr := getEnv(key, "")
	switch valueStr {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return defaultValue
	}
}
