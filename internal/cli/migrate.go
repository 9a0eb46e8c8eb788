package cli

import (
	"fmt"

	"hamsafar_backend/database"
	"hamsafar_backend/internal/logger"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the chat tables",
	Long: `Create or update the tables of the messaging core:
conversations, conversation_participants, messages, message_read_receipts and users.`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	return withDB(ctx, func(db *gorm.DB) error {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("Database schema migrated", "driver", cfg.Database.Driver)
		return nil
	})
}
