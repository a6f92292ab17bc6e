// AngelaMos | 2026
// repository.go

package scoped

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/carterperez-dev/templates/pos-backend/internal/core"
)

// Repository is the storage half of a scoped entity. Every method takes the
// tenant id explicitly and never touches rows outside it.
type Repository[T any, P any] struct {
	table Table[T, P]
	db    core.DBTX
	sb    sq.StatementBuilderType
}

func NewRepository[T any, P any](db *core.Database, table Table[T, P]) *Repository[T, P] {
	return &Repository[T, P]{table: table, db: db.DB, sb: db.Dialect.Builder()}
}

func (r *Repository[T, P]) Table() Table[T, P] {
	return r.table
}

// DB returns the pool the repository reads through.
func (r *Repository[T, P]) DB() core.DBTX {
	return r.db
}

// List returns the tenant's live rows ordered by the display key.
func (r *Repository[T, P]) List(ctx context.Context, tenantID string) ([]T, error) {
	query, args, err := r.sb.Select(r.table.selectColumns()...).
		From(r.table.Name).
		Where(sq.Eq{"tenant_id": tenantID, "is_deleted": false}).
		OrderBy(r.table.OrderBy + " ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list %s: %w", r.table.Name, err)
	}

	rows := []T{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w: %w", r.table.Name, core.ErrStorage, err)
	}

	return rows, nil
}

// Get looks a row up by id within the tenant. Soft-deleted rows are returned.
func (r *Repository[T, P]) Get(ctx context.Context, tenantID, id string) (*T, error) {
	query, args, err := r.sb.Select(r.table.selectColumns()...).
		From(r.table.Name).
		Where(sq.Eq{"id": id, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get %s: %w", r.table.Name, err)
	}

	var row T
	err = r.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", r.table.Resource, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w: %w", r.table.Resource, core.ErrStorage, err)
	}

	return &row, nil
}

// Insert writes a live row through db, which may be a transaction.
func (r *Repository[T, P]) Insert(
	ctx context.Context,
	db core.DBTX,
	id, tenantID string,
	p P,
	at time.Time,
) error {
	cols := append([]string{"id", "tenant_id", "is_deleted", "created_at", "updated_at"}, r.table.Columns...)
	vals := append([]any{id, tenantID, false, at, at}, r.table.Values(p)...)

	query, args, err := r.sb.Insert(r.table.Name).
		Columns(cols...).
		Values(vals...).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert %s: %w", r.table.Name, err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s: %w: %w", r.table.Resource, core.ErrStorage, err)
	}

	return nil
}

// Update rewrites the payload columns of one row in a single conditional
// statement. A row of another tenant is indistinguishable from a missing one.
// Soft-deleted rows match too and stay deleted.
func (r *Repository[T, P]) Update(
	ctx context.Context,
	tenantID, id string,
	p P,
	at time.Time,
) error {
	query, args, err := r.sb.Update(r.table.Name).
		SetMap(r.table.payloadMap(p)).
		Set("updated_at", at).
		Where(sq.Eq{"id": id, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update %s: %w", r.table.Name, err)
	}

	return r.execOne(ctx, "update", query, args)
}

// SoftDelete flags one row deleted and stamps deleted_at in the same
// statement. With liveOnly set, an already deleted row does not match.
func (r *Repository[T, P]) SoftDelete(
	ctx context.Context,
	tenantID, id string,
	liveOnly bool,
	at time.Time,
) error {
	where := sq.Eq{"id": id, "tenant_id": tenantID}
	if liveOnly {
		where["is_deleted"] = false
	}

	query, args, err := r.sb.Update(r.table.Name).
		Set("is_deleted", true).
		Set("deleted_at", at).
		Set("updated_at", at).
		Where(where).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete %s: %w", r.table.Name, err)
	}

	return r.execOne(ctx, "delete", query, args)
}

// DeletedIDByKey returns the most recently deleted row whose natural key
// equals key, or "" when there is none.
func (r *Repository[T, P]) DeletedIDByKey(ctx context.Context, tenantID string, key any) (string, error) {
	query, args, err := r.sb.Select("id").
		From(r.table.Name).
		Where(sq.Eq{"tenant_id": tenantID, "is_deleted": true, r.table.NaturalKey: key}).
		OrderBy("deleted_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build find deleted %s: %w", r.table.Name, err)
	}

	var id string
	err = r.db.GetContext(ctx, &id, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find deleted %s: %w: %w", r.table.Resource, core.ErrStorage, err)
	}

	return id, nil
}

// Restore revives a soft-deleted row with a new payload. It only matches a
// row that is still deleted, so a concurrent restore leaves ErrNotFound.
func (r *Repository[T, P]) Restore(
	ctx context.Context,
	tenantID, id string,
	p P,
	at time.Time,
) error {
	query, args, err := r.sb.Update(r.table.Name).
		SetMap(r.table.payloadMap(p)).
		Set("is_deleted", false).
		Set("deleted_at", nil).
		Set("updated_at", at).
		Where(sq.Eq{"id": id, "tenant_id": tenantID, "is_deleted": true}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build restore %s: %w", r.table.Name, err)
	}

	return r.execOne(ctx, "restore", query, args)
}

func (r *Repository[T, P]) execOne(ctx context.Context, op, query string, args []any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", op, r.table.Resource, core.ErrStorage, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", op, r.table.Resource, core.ErrStorage, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %s: %w", op, r.table.Resource, core.ErrNotFound)
	}

	return nil
}
