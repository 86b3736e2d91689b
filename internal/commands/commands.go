// Package commands holds the fleetctl admin subcommands
package commands

import (
	"fmt"
	"time"

	"fleetshop/internal/server"
	"fleetshop/pkg/config"
	"fleetshop/pkg/database"
	"fleetshop/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// clock is the time overdue and expiry checks run at; tests replace it
var clock = func() time.Time {
	return time.Now().UTC()
}

// Opener provides the configuration and database a command runs against
type Opener func() (*config.Config, *gorm.DB, error)

// OpenConfigured loads the environment configuration and connects to its database
func OpenConfigured() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	db, err := database.InitDB(&cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return cfg, db, nil
}

// NewRootCmd builds fleetctl with every subcommand attached
func NewRootCmd(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "fleetctl",
		Short:         "fleetshop administration tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		MigrateCmd(open),
		SeedCmd(open),
		CreateSuperAdminCmd(open),
		MarkOverdueCmd(open),
		ExpireQuotesCmd(open),
	)
	return root
}

// services opens the database and builds the service graph
func services(open Opener) (*server.Services, *gorm.DB, error) {
	cfg, db, err := open()
	if err != nil {
		return nil, nil, err
	}
	svc, err := server.NewServices(cfg, db, logger.GetLogger())
	if err != nil {
		return nil, nil, err
	}
	return svc, db, nil
}

func logDone(msg string, fields ...zap.Field) {
	logger.GetLogger().Info(msg, fields...)
}
