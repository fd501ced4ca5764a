package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/okian/pitwall/internal/config"
	"github.com/okian/pitwall/pkg/logger"
)

//go:embed migrations
var migrationsFS embed.FS

const migrationsTable = "schema_migrations"

// Migrate moves the schema to target.
//   - target < 0 migrates to the latest version.
//   - target == 0 rolls every migration back.
//   - target > 0 migrates to that version.
//
// It returns the schema version after the run.
func (s *Store) Migrate(ctx context.Context, target int) (uint, error) {
	sub, err := fs.Sub(migrationsFS, "migrations/"+s.backend)
	if err != nil {
		return 0, fmt.Errorf("migrations for %s: %w", s.backend, err)
	}
	src, err := iofs.New(sub, ".")
	if err != nil {
		return 0, fmt.Errorf("migration source: %w", err)
	}

	// SQLite runs on the shared handle so :memory: databases see the schema.
	// The other drivers pin a connection and close the handle they were
	// given, so they get a dedicated one.
	db := s.db
	if s.backend != config.BackendSQLite {
		driverName, _, err := driverFor(s.backend, s.dsn)
		if err != nil {
			return 0, err
		}
		db, err = sql.Open(driverName, s.dsn)
		if err != nil {
			return 0, fmt.Errorf("open migration handle: %w", err)
		}
		defer func() { _ = db.Close() }()
	}
	if err := db.PingContext(ctx); err != nil {
		return 0, fmt.Errorf("ping: %w", err)
	}

	driver, err := s.migrateDriver(db)
	if err != nil {
		return 0, err
	}

	m, err := migrate.NewWithInstance("iofs", src, "pitwall", driver)
	if err != nil {
		return 0, fmt.Errorf("create migrator: %w", err)
	}
	if s.backend != config.BackendSQLite {
		defer func() { _, _ = m.Close() }()
	}

	current, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return current, fmt.Errorf("%w at version %d", ErrDirty, current)
	}

	switch {
	case target < 0:
		err = m.Up()
	case target == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(target))
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return current, fmt.Errorf("migrate to %d: %w", target, err)
	}

	after, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	s.log.Info(ctx, "schema migrated",
		logger.String("backend", s.backend),
		logger.Int("from", int(current)),
		logger.Int("to", int(after)))
	return after, nil
}

func (s *Store) migrateDriver(db *sql.DB) (database.Driver, error) {
	var (
		driver database.Driver
		err    error
	)
	switch s.backend {
	case config.BackendSQLite:
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{MigrationsTable: migrationsTable})
	case config.BackendPostgres:
		driver, err = migratepgx.WithInstance(db, &migratepgx.Config{MigrationsTable: migrationsTable})
	case config.BackendMySQL:
		driver, err = migratemysql.WithInstance(db, &migratemysql.Config{MigrationsTable: migrationsTable})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, s.backend)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s migrate driver: %w", s.backend, err)
	}
	return driver, nil
}
