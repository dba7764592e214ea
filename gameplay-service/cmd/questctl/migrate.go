package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"adventure-server/pkg/database"
	"adventure-server/pkg/migration"
	sharedDatabase "adventure-server/shared/database"
	"adventure-server/shared/utils"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
)

// dbEnv reads the same DB_* variables as the services.
type dbEnv struct {
	Host    string `envconfig:"DB_HOST" default:"localhost"`
	Port    string `envconfig:"DB_PORT" default:"5432"`
	User    string `envconfig:"DB_USER" default:"postgres"`
	Name    string `envconfig:"DB_NAME" default:"adventure"`
	SSLMode string `envconfig:"DB_SSL_MODE" default:"disable"`
}

func loadDatabaseConfig() (database.Config, error) {
	var env dbEnv
	if err := envconfig.Process("", &env); err != nil {
		return database.Config{}, fmt.Errorf("error processing env vars: %w", err)
	}
	password, err := utils.ReadSecretOrEnv("db_password", "DB_PASSWORD")
	if err != nil {
		return database.Config{}, err
	}
	return database.Config{
		Host:     env.Host,
		Port:     env.Port,
		User:     env.User,
		Password: password,
		DBName:   env.Name,
		SSLMode:  env.SSLMode,
		MaxConns: 2,
	}, nil
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout")

	withMigrator := func(fn func(ctx context.Context, m *migration.Migrator) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadDatabaseConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			pool, err := database.Connect(ctx, cfg, opts.logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			return fn(ctx, migration.NewMigrator(migration.Config{
				MigrationsPath: sharedDatabase.MigrationsDir,
				MigrationsFS:   sharedDatabase.MigrationsFS,
			}, pool))
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(ctx context.Context, m *migration.Migrator) error {
			return m.Up(ctx)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(ctx context.Context, m *migration.Migrator) error {
			return m.Down(ctx)
		}),
	})

	stepsCmd := &cobra.Command{
		Use:   "steps N",
		Short: "Apply N migrations, or roll back when N is negative",
		Args:  cobra.ExactArgs(1),
	}
	stepsCmd.RunE = func(c *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil || n == 0 {
			return fmt.Errorf("steps must be a non-zero integer, got %q", args[0])
		}
		return withMigrator(func(ctx context.Context, m *migration.Migrator) error {
			return m.Steps(ctx, n)
		})(c, args)
	}
	cmd.AddCommand(stepsCmd)

	forceCmd := &cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version and clear the dirty flag",
		Args:  cobra.ExactArgs(1),
	}
	forceCmd.RunE = func(c *cobra.Command, args []string) error {
		v, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		return withMigrator(func(ctx context.Context, m *migration.Migrator) error {
			return m.ForceVersion(ctx, uint(v))
		})(c, args)
	}
	cmd.AddCommand(forceCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
	}
	versionCmd.RunE = withMigrator(func(ctx context.Context, m *migration.Migrator) error {
		version, dirty, err := m.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(versionCmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
		return nil
	})
	cmd.AddCommand(versionCmd)

	return cmd
}
