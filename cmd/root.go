package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"identityrecon/internal/config"
	"identityrecon/internal/database"
	"identityrecon/internal/logger"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "identityrecon",
	Short: "Identity reconciliation service",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional; real environment variables win
		_ = godotenv.Load()
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a YAML config file")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads config, builds the logger and opens the database.
func bootstrap() (*config.Config, *zap.Logger, *database.DB, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, nil, err
	}

	lg, err := logger.New(logger.Config{Level: cfg.Log.Level, Dev: cfg.Log.Development})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to init logger: %w", err)
	}

	db, err := database.New(database.Config{
		URL:          cfg.Database.URL,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		TxTimeout:    cfg.Database.TxTimeout,
	})
	if err != nil {
		_ = lg.Sync()
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	lg.Info("database ready", zap.String("dialect", string(db.Dialect())))
	return cfg, lg, db, nil
}
