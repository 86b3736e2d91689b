package commands

import (
	"fmt"

	"fleetshop/internal/model"
	"fleetshop/pkg/database"

	"github.com/spf13/cobra"
)

// MigrateCmd applies the schema for every model
func MigrateCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := open()
			if err != nil {
				return err
			}
			if err := database.MigrateModels(db, model.All()...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d tables\n", len(model.All()))
			return nil
		},
	}
}
