package migration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
)

// Config points the migrator at a directory inside an fs.FS.
type Config struct {
	MigrationsPath string
	MigrationsFS   fs.FS
	LockTimeout    time.Duration
}

// Migrator applies schema migrations over an existing pgx pool.
type Migrator struct {
	config Config
	pool   *pgxpool.Pool
}

func NewMigrator(config Config, pool *pgxpool.Pool) *Migrator {
	if config.LockTimeout == 0 {
		config.LockTimeout = 30 * time.Second
	}
	return &Migrator{
		config: config,
		pool:   pool,
	}
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) error {
	return m.run(ctx, "apply", func(mg *migrate.Migrate) error { return mg.Up() })
}

// Down rolls back every migration.
func (m *Migrator) Down(ctx context.Context) error {
	return m.run(ctx, "roll back", func(mg *migrate.Migrate) error { return mg.Down() })
}

// Steps applies n migrations, or rolls back -n when n is negative.
func (m *Migrator) Steps(ctx context.Context, n int) error {
	return m.run(ctx, fmt.Sprintf("step %d", n), func(mg *migrate.Migrate) error { return mg.Steps(n) })
}

// ForceVersion marks version as applied and clears the dirty flag.
func (m *Migrator) ForceVersion(ctx context.Context, version uint) error {
	mg, err := m.createMigrator(ctx)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer mg.Close()

	if err := mg.Force(int(version)); err != nil {
		return fmt.Errorf("failed to force migration version: %w", err)
	}
	log.Info().Uint("version", version).Msg("database migration version forced")
	return nil
}

// Version returns the applied version. A database without migrations reports 0.
func (m *Migrator) Version(ctx context.Context) (uint, bool, error) {
	mg, err := m.createMigrator(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrator: %w", err)
	}
	defer mg.Close()

	version, dirty, err := mg.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

func (m *Migrator) run(ctx context.Context, action string, fn func(*migrate.Migrate) error) error {
	mg, err := m.createMigrator(ctx)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer mg.Close()

	if err := fn(mg); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Str("action", action).Msg("database schema already up to date")
			return nil
		}
		return fmt.Errorf("failed to %s migrations: %w", action, err)
	}
	log.Info().Str("action", action).Msg("database migrations finished")
	return nil
}

func (m *Migrator) createMigrator(ctx context.Context) (*migrate.Migrate, error) {
	if err := m.pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("database is not reachable: %w", err)
	}

	db := stdlib.OpenDBFromPool(m.pool)
	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable:       "schema_migrations",
		MigrationsTableQuoted: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	source, err := iofs.New(m.config.MigrationsFS, m.config.MigrationsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	mg, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	mg.LockTimeout = m.config.LockTimeout
	return mg, nil
}
