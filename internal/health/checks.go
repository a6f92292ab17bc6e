// AngelaMos | 2026
// checks.go

package health

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CheckerFunc adapts a plain function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// Schema reports unhealthy until every table exists and is readable, which
// catches a service started against an unmigrated database.
func Schema(db *sqlx.DB, tables ...string) Checker {
	return CheckerFunc(func(ctx context.Context) error {
		for _, table := range tables {
			var one int
			err := db.QueryRowxContext(ctx, "SELECT 1 FROM "+table+" LIMIT 1").Scan(&one)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("table %s: %w", table, err)
			}
		}
		return nil
	})
}
