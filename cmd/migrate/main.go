package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/db"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/logger"
)

var settings = viper.New()

// rootCmd runs schema migrations for the lead archive
var rootCmd = &cobra.Command{
	Use:           "migrate",
	Short:         "Manage the lead archive schema",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Initialize(logger.Config{
			Level:       settings.GetString("LOG_LEVEL"),
			ServiceName: "pnp-remodeling-migrate",
			Environment: "development",
		})
	},
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *db.Migrator) error {
			if err := m.Up(); err != nil {
				return err
			}
			logger.Info("Database migrations completed successfully")
			return nil
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Roll back migrations (one step by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("steps must be a positive integer, got %q", args[0])
			}
			steps = n
		}
		return withMigrator(func(m *db.Migrator) error {
			if err := m.Down(steps); err != nil {
				return err
			}
			logger.Info("Rolled back migrations", zap.Int("steps", steps))
			return nil
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *db.Migrator) error {
			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().String("database-url", "", "Postgres connection URL (env DATABASE_URL)")
	rootCmd.PersistentFlags().String("source", "file://migrations", "migration source URL (env MIGRATIONS_SOURCE)")
	rootCmd.PersistentFlags().String("ca-cert", "", "PEM bundle for the database CA (env DATABASE_CA_CERT)")

	_ = settings.BindPFlag("DATABASE_URL", rootCmd.PersistentFlags().Lookup("database-url"))
	_ = settings.BindPFlag("MIGRATIONS_SOURCE", rootCmd.PersistentFlags().Lookup("source"))
	_ = settings.BindPFlag("DATABASE_CA_CERT", rootCmd.PersistentFlags().Lookup("ca-cert"))
	settings.SetDefault("LOG_LEVEL", "info")
	settings.AutomaticEnv()

	rootCmd.AddCommand(upCmd, downCmd, versionCmd)
}

func withMigrator(fn func(m *db.Migrator) error) error {
	databaseURL := settings.GetString("DATABASE_URL")
	if databaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	logger.Info("Connecting for migrations",
		zap.String("database", maskDatabaseURL(databaseURL)),
		zap.String("source", settings.GetString("MIGRATIONS_SOURCE")))

	m, err := db.NewMigrator(db.MigrationConfig{
		DatabaseURL: databaseURL,
		SourceURL:   settings.GetString("MIGRATIONS_SOURCE"),
		CACertPath:  settings.GetString("DATABASE_CA_CERT"),
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("Failed to close migrator", zap.Error(closeErr))
		}
	}()

	return fn(m)
}

// maskDatabaseURL hides the password in a database URL for logging
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("Migration command failed", zap.Error(err))
		logger.Sync()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	logger.Sync()
}
