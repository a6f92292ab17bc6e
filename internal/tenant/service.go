// AngelaMos | 2026
// service.go

package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/templates/pos-backend/internal/config"
	"github.com/carterperez-dev/templates/pos-backend/internal/core"
	"github.com/carterperez-dev/templates/pos-backend/internal/metrics"
)

// Seeder inserts a new tenant's default reference rows inside the
// provisioning transaction.
type Seeder interface {
	Seed(ctx context.Context, db core.DBTX, tenantID string, at time.Time) error
}

// Linker records and pushes the tenant pointer kept in the identity
// provider. Enqueue runs inside the provisioning transaction, Sync after it.
type Linker interface {
	Enqueue(ctx context.Context, db core.DBTX, tenantID, identityID string) error
	Sync(ctx context.Context, tenantID string) error
}

type Service struct {
	db        *core.Database
	repo      *Repository
	seeder    Seeder
	linker    Linker
	validator *validator.Validate
	defaults  config.ProvisioningConfig
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

type ServiceConfig struct {
	DB           *core.Database
	Repository   *Repository
	Seeder       Seeder
	Linker       Linker
	Validator    *validator.Validate
	Provisioning config.ProvisioningConfig
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	v := cfg.Validator
	if v == nil {
		v = core.NewValidator()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	defaults := cfg.Provisioning
	if defaults.Currency == "" {
		defaults.Currency = "COP"
	}
	if defaults.OverdueDays == 0 {
		defaults.OverdueDays = 30
	}

	return &Service{
		db:        cfg.DB,
		repo:      cfg.Repository,
		seeder:    cfg.Seeder,
		linker:    cfg.Linker,
		validator: v,
		defaults:  defaults,
		metrics:   cfg.Metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Provision creates a tenant, its first user, the default configuration and
// reference rows in one transaction, then links the tenant to the caller's
// identity. An identity that already owns a tenant gets that tenant back.
func (s *Service) Provision(
	ctx context.Context,
	requester string,
	req ProvisionRequest,
) (*ProvisionResult, error) {
	ctx, span := core.StartSpan(ctx, "tenant.provision",
		core.AttrSubdomain.String(req.Tenant.Subdomain),
		core.AttrIdentity.String(requester),
	)
	defer span.End()

	res, err := s.provision(ctx, requester, req)
	s.metrics.ObserveProvision(provisionOutcome(res, err))
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	return res, nil
}

func (s *Service) provision(
	ctx context.Context,
	requester string,
	req ProvisionRequest,
) (*ProvisionResult, error) {
	if requester == "" {
		return nil, fmt.Errorf("provision tenant: %w", core.ErrUnauthorized)
	}
	if req.IdentityID != requester {
		return nil, core.NewAppError(
			core.ErrUnauthorized,
			"identity does not match the authenticated caller",
			http.StatusForbidden,
			"IDENTITY_MISMATCH",
		)
	}

	if err := core.Validate(s.validator, req); err != nil {
		return nil, err
	}

	if res, err := s.existing(ctx, requester); res != nil || err != nil {
		return res, err
	}

	taken, err := s.repo.SubdomainTaken(ctx, req.Tenant.Subdomain)
	if err != nil {
		return nil, fmt.Errorf("provision tenant: %w: %w", core.ErrStorage, err)
	}
	if taken {
		return nil, fmt.Errorf("provision tenant: subdomain %q is taken: %w", req.Tenant.Subdomain, core.ErrConflict)
	}

	now := s.now()
	t := &Tenant{
		ID:         uuid.NewString(),
		Name:       req.Tenant.CompanyName,
		Subdomain:  req.Tenant.Subdomain,
		Email:      req.User.Email,
		Phone:      req.Tenant.Phone,
		Address:    req.Tenant.Address,
		City:       req.Tenant.City,
		Department: req.Tenant.Department,
		NIT:        req.Tenant.NIT,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	u := &User{
		ID:         uuid.NewString(),
		TenantID:   t.ID,
		IdentityID: requester,
		Email:      req.User.Email,
		Username:   req.User.Username,
		FirstName:  req.User.FirstName,
		LastName:   req.User.LastName,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		return s.bootstrap(ctx, tx, t, u, now)
	})
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) || core.IsUniqueViolation(err) {
			// lost a race: either this identity provisioned concurrently or
			// another tenant took the subdomain
			if res, exErr := s.existing(ctx, requester); res != nil || exErr != nil {
				return res, exErr
			}
			return nil, fmt.Errorf("provision tenant: subdomain %q is taken: %w", t.Subdomain, core.ErrConflict)
		}
		return nil, fmt.Errorf("provision tenant: %w: %w", core.ErrStorage, err)
	}

	core.AddSpanEvent(ctx, "tenant.committed", core.AttrTenantID.String(t.ID))
	s.logger.InfoContext(ctx, "tenant provisioned",
		"tenant_id", t.ID,
		"subdomain", t.Subdomain,
	)

	if err := s.linker.Sync(ctx, t.ID); err != nil {
		s.logger.WarnContext(ctx, "identity link deferred to reconciler",
			"tenant_id", t.ID,
			"error", err,
		)
	}

	return &ProvisionResult{TenantID: t.ID, UserID: u.ID}, nil
}

func (s *Service) bootstrap(ctx context.Context, tx *sqlx.Tx, t *Tenant, u *User, now time.Time) error {
	if err := s.repo.InsertTenant(ctx, tx, t); err != nil {
		return err
	}
	if err := s.repo.InsertUser(ctx, tx, u); err != nil {
		return err
	}

	configs := DefaultConfigs(t.Name, t.Subdomain, s.defaults.Currency, s.defaults.OverdueDays)
	for i := range configs {
		configs[i].ID = uuid.NewString()
		configs[i].TenantID = t.ID
		configs[i].CreatedAt = now
		configs[i].UpdatedAt = now
	}
	if err := s.repo.InsertConfigs(ctx, tx, configs); err != nil {
		return err
	}

	if err := s.seeder.Seed(ctx, tx, t.ID, now); err != nil {
		return err
	}

	return s.linker.Enqueue(ctx, tx, t.ID, u.IdentityID)
}

// existing returns the tenant an identity already owns, re-running the
// identity link so a previously failed sync gets repaired.
func (s *Service) existing(ctx context.Context, identityID string) (*ProvisionResult, error) {
	u, err := s.repo.UserByIdentity(ctx, identityID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("provision tenant: %w: %w", core.ErrStorage, err)
	}

	if err := s.linker.Sync(ctx, u.TenantID); err != nil {
		s.logger.WarnContext(ctx, "identity link repair failed",
			"tenant_id", u.TenantID,
			"error", err,
		)
	}

	return &ProvisionResult{TenantID: u.TenantID, UserID: u.ID, Existing: true}, nil
}

func (s *Service) Profile(ctx context.Context, tenantID string) (*Tenant, []SystemConfig, error) {
	t, err := s.repo.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, nil, storageUnlessNotFound(err)
	}

	configs, err := s.repo.ListConfigs(ctx, tenantID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", core.ErrStorage, err)
	}

	return t, configs, nil
}

func (s *Service) UpdateProfile(
	ctx context.Context,
	tenantID string,
	req UpdateProfileRequest,
) (*Tenant, []SystemConfig, error) {
	if err := core.Validate(s.validator, req); err != nil {
		return nil, nil, err
	}

	fields := map[string]any{}
	set := func(col string, v *string) {
		if v != nil {
			fields[col] = *v
		}
	}
	set("name", req.Name)
	set("email", req.Email)
	set("phone", req.Phone)
	set("address", req.Address)
	set("city", req.City)
	set("department", req.Department)
	set("nit", req.NIT)

	if err := s.repo.UpdateTenant(ctx, tenantID, fields, s.now()); err != nil {
		return nil, nil, storageUnlessNotFound(err)
	}

	return s.Profile(ctx, tenantID)
}

func storageUnlessNotFound(err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", core.ErrStorage, err)
}

func provisionOutcome(res *ProvisionResult, err error) string {
	switch {
	case err == nil && res.Existing:
		return "existing"
	case err == nil:
		return "created"
	case errors.Is(err, core.ErrConflict):
		return "conflict"
	case errors.Is(err, core.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, core.ErrUnauthorized):
		return "unauthorized"
	default:
		return "failed"
	}
}
