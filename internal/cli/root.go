// Package cli - командная строка сервера: serve, migrate, user, version.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"hamsafar_backend/database"
	"hamsafar_backend/internal/app"
	"hamsafar_backend/internal/config"
	"hamsafar_backend/internal/logger"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	// путь к YAML-конфигу; пусто - CONFIG_PATH или config/config.yaml
	configPath string

	cfg         *config.Config
	closeLogger func() error
)

var rootCmd = &cobra.Command{
	Use:   "hamsafar",
	Short: "Hamsafar messaging server",
	Long: `Hamsafar messaging server: conversations between travellers and drivers,
message history, read receipts and realtime delivery over WebSocket.

Without a subcommand the HTTP server is started.`,
	Version:       app.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		closeLogger, err = logger.Init(cfg.Server.Env, cfg.Log.File)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger.Info("Logger initialized", "env", cfg.Server.Env)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLogger != nil {
			if err := closeLogger(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
	RunE: runServe,
}

// Execute запускает корневую команду.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(versionCmd)
}

// signalContext отменяется по SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// withDB открывает БД на время fn.
func withDB(ctx context.Context, fn func(db *gorm.DB) error) error {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Warn("Failed to close database", "error", err)
		}
	}()
	return fn(db)
}
