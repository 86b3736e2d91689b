package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// CreateSuperAdminCmd adds a platform operator account
func CreateSuperAdminCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-super-admin",
		Short: "Create a platform super admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			firstName, _ := cmd.Flags().GetString("first-name")
			lastName, _ := cmd.Flags().GetString("last-name")

			svc, _, err := services(open)
			if err != nil {
				return err
			}
			user, err := svc.Auth.CreateSuperAdmin(email, password, firstName, lastName)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created super admin %s (id %d)\n", user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().String("email", "", "Login email")
	cmd.Flags().String("password", "", "Password, at least 8 characters")
	cmd.Flags().String("first-name", "Platform", "First name")
	cmd.Flags().String("last-name", "Admin", "Last name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

// MarkOverdueCmd flags unpaid invoices past their due date
func MarkOverdueCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "mark-overdue",
		Short: "Mark unpaid invoices past their due date as overdue",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := services(open)
			if err != nil {
				return err
			}
			n, err := svc.Invoices.MarkOverdue(clock())
			if err != nil {
				return err
			}
			logDone("Overdue invoices marked", zap.Int("count", n))
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %d invoices overdue\n", n)
			return nil
		},
	}
}

// ExpireQuotesCmd expires sent quotes past their validity date
func ExpireQuotesCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "expire-quotes",
		Short: "Expire sent quotes past their valid-until date",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := services(open)
			if err != nil {
				return err
			}
			n, err := svc.Quotes.ExpireQuotes(clock())
			if err != nil {
				return err
			}
			logDone("Quotes expired", zap.Int("count", n))
			fmt.Fprintf(cmd.OutOrStdout(), "Expired %d quotes\n", n)
			return nil
		},
	}
}
