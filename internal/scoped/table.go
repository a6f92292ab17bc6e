// AngelaMos | 2026
// table.go

// Package scoped implements tenant-scoped storage and CRUD for reference
// entities. Every statement it issues is filtered by tenant_id, and the
// standard listing excludes soft-deleted rows.
package scoped

import (
	"time"
)

// Base holds the columns every tenant-scoped table shares. Row types embed it.
type Base struct {
	ID        string     `db:"id"         json:"id"`
	TenantID  string     `db:"tenant_id"  json:"tenantId"`
	IsDeleted bool       `db:"is_deleted" json:"isDeleted"`
	DeletedAt *time.Time `db:"deleted_at" json:"deletedAt"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
}

var baseColumns = []string{"id", "tenant_id", "is_deleted", "deleted_at", "created_at", "updated_at"}

// Table describes one tenant-scoped table: T is the row type (embedding
// Base) and P the payload accepted on create and update.
type Table[T any, P any] struct {
	// Name is the SQL table name.
	Name string
	// Resource names the entity in errors and metrics.
	Resource string
	// Columns lists the payload columns in the order Values returns them.
	Columns []string
	Values  func(P) []any
	// OrderBy is the display key listings sort on, ascending.
	OrderBy string
	// NaturalKey is the payload column used to match soft-deleted rows
	// when the recreate policy is reject or restore.
	NaturalKey string
	KeyOf      func(P) any
}

func (t Table[T, P]) selectColumns() []string {
	cols := make([]string, 0, len(baseColumns)+len(t.Columns))
	cols = append(cols, baseColumns...)
	return append(cols, t.Columns...)
}

func (t Table[T, P]) payloadMap(p P) map[string]any {
	vals := t.Values(p)
	m := make(map[string]any, len(t.Columns))
	for i, col := range t.Columns {
		m[col] = vals[i]
	}
	return m
}
