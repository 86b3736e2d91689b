package commands

import (
	"fmt"

	"fleetshop/internal/model"
	"fleetshop/internal/permission"
	"fleetshop/internal/service"
	"fleetshop/pkg/database"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// SeedCmd creates a demo shop with an admin, a client, a vehicle and a stocked part
func SeedCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a demo shop with sample data",
		RunE: func(cmd *cobra.Command, args []string) error {
			company, _ := cmd.Flags().GetString("company")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")

			svc, db, err := services(open)
			if err != nil {
				return err
			}
			if err := database.MigrateModels(db, model.All()...); err != nil {
				return err
			}

			shop, err := svc.Auth.SignUp(service.SignUpInput{
				CompanyName: company,
				Email:       email,
				Password:    password,
				FirstName:   "Demo",
				LastName:    "Admin",
			})
			if err != nil {
				return fmt.Errorf("create shop: %w", err)
			}
			admin := service.Actor{UserID: shop.User.ID, TenantID: shop.Tenant.ID, Role: permission.RoleAdmin}

			client, err := svc.Clients.CreateClient(admin, service.ClientInput{
				FirstName:   "Sipho",
				LastName:    "Dlamini",
				CompanyName: "Dlamini Logistics",
				Email:       "fleet@dlamini-logistics.example",
				Phone:       "+27 21 555 0100",
			})
			if err != nil {
				return fmt.Errorf("create client: %w", err)
			}
			if _, err := svc.Clients.CreateVehicle(admin, client.ID, service.VehicleInput{
				Make:         "Toyota",
				Model:        "Hilux",
				Year:         2021,
				Registration: "CA 123-456",
				Mileage:      84000,
			}); err != nil {
				return fmt.Errorf("create vehicle: %w", err)
			}
			if _, err := svc.Inventory.CreatePart(admin, service.PartInput{
				PartNumber:   "BP-1001",
				Name:         "Front brake pads",
				Category:     "Brakes",
				Condition:    model.ConditionNew,
				CostPrice:    decimal.RequireFromString("80.00"),
				SellingPrice: decimal.RequireFromString("120.50"),
				CurrentStock: 12,
				MinimumStock: 4,
			}); err != nil {
				return fmt.Errorf("create part: %w", err)
			}

			logDone("Demo shop seeded", zap.Uint("tenant_id", shop.Tenant.ID))
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded shop %q (slug %s); log in as %s\n", shop.Tenant.Name, shop.Tenant.Slug, shop.User.Email)
			return nil
		},
	}

	cmd.Flags().String("company", "Demo Fleet Services", "Shop name")
	cmd.Flags().String("email", "admin@demo-fleet.example", "Admin login email")
	cmd.Flags().String("password", "changeme123", "Admin password")

	return cmd
}
