// AngelaMos | 2026
// repository.go

package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/carterperez-dev/templates/pos-backend/internal/core"
)

var (
	tenantColumns = []string{
		"id", "name", "subdomain", "email", "phone", "address",
		"city", "department", "nit", "created_at", "updated_at",
	}
	userColumns = []string{
		"id", "tenant_id", "external_identity_id", "email", "username",
		"first_name", "last_name", "created_at", "updated_at",
	}
	configColumns = []string{
		"id", "tenant_id", "config_key", "value", "type", "created_at", "updated_at",
	}
)

// Repository reads through the pool and writes through whatever DBTX the
// caller hands in, so provisioning can keep every insert in one transaction.
type Repository struct {
	db core.DBTX
	sb sq.StatementBuilderType
}

func NewRepository(db *core.Database) *Repository {
	return &Repository{db: db.DB, sb: db.Dialect.Builder()}
}

func (r *Repository) SubdomainTaken(ctx context.Context, subdomain string) (bool, error) {
	query, args, err := r.sb.Select("COUNT(*)").
		From("tenants").
		Where(sq.Eq{"subdomain": subdomain}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build subdomain check: %w", err)
	}

	var n int
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return false, fmt.Errorf("check subdomain: %w", err)
	}

	return n > 0, nil
}

func (r *Repository) CountTenants(ctx context.Context) (int, error) {
	query, args, err := r.sb.Select("COUNT(*)").From("tenants").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count tenants: %w", err)
	}

	var n int
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count tenants: %w", err)
	}

	return n, nil
}

func (r *Repository) UserByIdentity(ctx context.Context, identityID string) (*User, error) {
	query, args, err := r.sb.Select(userColumns...).
		From("users").
		Where(sq.Eq{"external_identity_id": identityID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get user: %w", err)
	}

	var u User
	err = r.db.GetContext(ctx, &u, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user by identity: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by identity: %w", err)
	}

	return &u, nil
}

// TenantIDForIdentity returns "" when no user row exists for identityID.
func (r *Repository) TenantIDForIdentity(ctx context.Context, identityID string) (string, error) {
	u, err := r.UserByIdentity(ctx, identityID)
	if errors.Is(err, core.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return u.TenantID, nil
}

func (r *Repository) InsertTenant(ctx context.Context, db core.DBTX, t *Tenant) error {
	query, args, err := r.sb.Insert("tenants").
		Columns(tenantColumns...).
		Values(t.ID, t.Name, t.Subdomain, t.Email, t.Phone, t.Address,
			t.City, t.Department, t.NIT, t.CreatedAt, t.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert tenant: %w", err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("insert tenant: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("insert tenant: %w", err)
	}

	return nil
}

func (r *Repository) InsertUser(ctx context.Context, db core.DBTX, u *User) error {
	query, args, err := r.sb.Insert("users").
		Columns(userColumns...).
		Values(u.ID, u.TenantID, u.IdentityID, u.Email, u.Username,
			u.FirstName, u.LastName, u.CreatedAt, u.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user: %w", err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("insert user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

func (r *Repository) InsertConfigs(ctx context.Context, db core.DBTX, configs []SystemConfig) error {
	if len(configs) == 0 {
		return nil
	}

	b := r.sb.Insert("system_configs").Columns(configColumns...)
	for _, c := range configs {
		b = b.Values(c.ID, c.TenantID, c.Key, c.Value, c.Type, c.CreatedAt, c.UpdatedAt)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build insert configs: %w", err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("insert configs: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("insert configs: %w", err)
	}

	return nil
}

func (r *Repository) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	query, args, err := r.sb.Select(tenantColumns...).
		From("tenants").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get tenant: %w", err)
	}

	var t Tenant
	err = r.db.GetContext(ctx, &t, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get tenant: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}

	return &t, nil
}

func (r *Repository) ListConfigs(ctx context.Context, tenantID string) ([]SystemConfig, error) {
	query, args, err := r.sb.Select(configColumns...).
		From("system_configs").
		Where(sq.Eq{"tenant_id": tenantID}).
		OrderBy("config_key ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list configs: %w", err)
	}

	configs := []SystemConfig{}
	if err := r.db.SelectContext(ctx, &configs, query, args...); err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}

	return configs, nil
}

// UpdateTenant applies the non-empty entries of fields in one statement.
func (r *Repository) UpdateTenant(
	ctx context.Context,
	id string,
	fields map[string]any,
	at time.Time,
) error {
	if len(fields) == 0 {
		return nil
	}

	query, args, err := r.sb.Update("tenants").
		SetMap(fields).
		Set("updated_at", at).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update tenant: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update tenant: %w", core.ErrNotFound)
	}

	return nil
}
