// AngelaMos | 2026
// migrations.go

// Package migrations owns the database schema. Postgres schemas are
// versioned and applied with golang-migrate; the sqlite schema used for
// embedded deployments and tests is applied in one idempotent pass.
package migrations

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
)

//go:embed postgres/*.sql
var postgresFS embed.FS

//go:embed sqlite/schema.sql
var sqliteSchema string

// Postgres returns the versioned postgres migrations.
func Postgres() fs.FS {
	sub, err := fs.Sub(postgresFS, "postgres")
	if err != nil {
		panic(fmt.Sprintf("migrations: embedded postgres dir missing: %v", err))
	}
	return sub
}

// ApplySQLite creates every table that does not exist yet.
func ApplySQLite(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("apply sqlite schema: %w", err)
	}
	return nil
}

// Status is the migration state reported by the CLI.
type Status struct {
	CurrentVersion int
	Dirty          bool
	Pending        []int
	Total          int
}

// Runner applies the versioned postgres migrations.
type Runner struct {
	migrate *migrate.Migrate
	source  source.Driver
}

func NewRunner(databaseURL string, logger *slog.Logger) (*Runner, error) {
	src, err := iofs.New(Postgres(), ".")
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, pgx5URL(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect for migrations: %w", err)
	}

	if logger != nil {
		m.Log = migrateLogger{logger: logger}
	}

	return &Runner{migrate: m, source: src}, nil
}

func (r *Runner) Up(ctx context.Context) error {
	stop := r.stopOnCancel(ctx)
	defer stop()

	if err := r.migrate.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration.
func (r *Runner) Down(ctx context.Context) error {
	stop := r.stopOnCancel(ctx)
	defer stop()

	if err := r.migrate.Steps(-1); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

func (r *Runner) Status(_ context.Context) (*Status, error) {
	st := &Status{}

	version, dirty, err := r.migrate.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
	case err != nil:
		return nil, fmt.Errorf("migration status: %w", err)
	default:
		st.CurrentVersion = int(version)
		st.Dirty = dirty
	}

	v, err := r.source.First()
	for err == nil {
		st.Total++
		if int(v) > st.CurrentVersion {
			st.Pending = append(st.Pending, int(v))
		}
		v, err = r.source.Next(v)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	return st, nil
}

func (r *Runner) Close() error {
	srcErr, dbErr := r.migrate.Close()
	return errors.Join(srcErr, dbErr)
}

func (r *Runner) stopOnCancel(ctx context.Context) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			select {
			case r.migrate.GracefulStop <- true:
			default:
			}
		case <-done:
		}
	}()
	return func() { close(done) }
}

// pgx5URL rewrites a libpq style URL to the scheme the pgx/v5 driver
// registers under.
func pgx5URL(databaseURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(databaseURL, scheme); ok {
			return "pgx5://" + rest
		}
	}
	return databaseURL
}

type migrateLogger struct {
	logger *slog.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool {
	return false
}

// Apply brings the schema up to date for the configured driver.
func Apply(ctx context.Context, driver, databaseURL string, db *sqlx.DB, logger *slog.Logger) error {
	if driver == "sqlite3" {
		return ApplySQLite(ctx, db)
	}

	runner, err := NewRunner(databaseURL, logger)
	if err != nil {
		return err
	}
	defer runner.Close() //nolint:errcheck // migration connection is short-lived

	return runner.Up(ctx)
}
