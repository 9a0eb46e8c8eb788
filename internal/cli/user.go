package cli

import (
	"fmt"
	"time"

	"hamsafar_backend/internal/app"
	"hamsafar_backend/internal/auth"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	userName  string
	userEmail string
	tokenTTL  time.Duration
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage local development users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user and print a token for it",
	Long: `Create a user (or find an existing one by email) and print its ID
together with a signed token accepted by the server.

Examples:
  hamsafar user create --name Aigerim --email aigerim@example.com
  hamsafar user create -n Bakhyt -e bakhyt@example.com --ttl 1h`,
	RunE: runUserCreate,
}

func init() {
	userCreateCmd.Flags().StringVarP(&userName, "name", "n", "", "display name")
	userCreateCmd.Flags().StringVarP(&userEmail, "email", "e", "", "email (unique)")
	userCreateCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	_ = userCreateCmd.MarkFlagRequired("email")

	userCmd.AddCommand(userCreateCmd)
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	return withDB(ctx, func(db *gorm.DB) error {
		user, created, err := app.EnsureUser(db.WithContext(ctx), userName, userEmail)
		if err != nil {
			return err
		}

		token, err := auth.NewVerifier(cfg.JWT.Secret, cfg.JWT.Issuer).
			Sign(auth.Identity{ID: user.ID, Name: user.Name}, tokenTTL)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}

		status := "existing"
		if created {
			status = "created"
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s user %s (%s)\n", status, user.ID, user.Email)
		fmt.Fprintf(out, "token: %s\n", token)
		return nil
	})
}
