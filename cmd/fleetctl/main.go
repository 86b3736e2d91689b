package main

import (
	"fmt"
	"os"

	"fleetshop/internal/commands"
	"fleetshop/pkg/logger"
)

func main() {
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       os.Getenv("LOG_LEVEL"),
		Environment: os.Getenv("APP_ENV"),
		ServiceName: "fleetctl",
	}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := commands.NewRootCmd(commands.OpenConfigured).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
