// AngelaMos | 2026
// service.go

package scoped

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/pos-backend/internal/core"
	"github.com/carterperez-dev/templates/pos-backend/internal/metrics"
)

// TenantResolver maps an authenticated identity to its tenant id. An empty
// id with a nil error means the identity has not finished onboarding.
type TenantResolver interface {
	ResolveTenant(ctx context.Context, identityID string) (string, error)
}

// Service is the caller-facing half of a scoped entity. It resolves the
// caller's tenant on every call and fails closed when there is none.
type Service[T any, P any] struct {
	repo      *Repository[T, P]
	resolver  TenantResolver
	validator *validator.Validate
	policy    Policy
	metrics   *metrics.Metrics
	now       func() time.Time
}

type ServiceConfig struct {
	Resolver  TenantResolver
	Validator *validator.Validate
	Policy    Policy
	Metrics   *metrics.Metrics
}

func NewService[T any, P any](repo *Repository[T, P], cfg ServiceConfig) *Service[T, P] {
	v := cfg.Validator
	if v == nil {
		v = core.NewValidator()
	}
	policy := cfg.Policy
	if policy.Recreate == "" || policy.Redelete == "" {
		policy = DefaultPolicy()
	}

	return &Service[T, P]{
		repo:      repo,
		resolver:  cfg.Resolver,
		validator: v,
		policy:    policy,
		metrics:   cfg.Metrics,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service[T, P]) Resource() string {
	return s.repo.table.Resource
}

func (s *Service[T, P]) List(ctx context.Context, identityID string) (rows []T, err error) {
	ctx, end := s.begin(ctx, "list")
	defer func() { end(err) }()

	tenantID, err := s.tenant(ctx, identityID)
	if err != nil {
		return nil, err
	}

	return s.repo.List(ctx, tenantID)
}

func (s *Service[T, P]) Get(ctx context.Context, identityID, id string) (row *T, err error) {
	ctx, end := s.begin(ctx, "get")
	defer func() { end(err) }()

	tenantID, err := s.tenant(ctx, identityID)
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, tenantID, id)
}

func (s *Service[T, P]) Create(ctx context.Context, identityID string, p P) (row *T, err error) {
	ctx, end := s.begin(ctx, "create")
	defer func() { end(err) }()

	if err := core.Validate(s.validator, p); err != nil {
		return nil, err
	}

	tenantID, err := s.tenant(ctx, identityID)
	if err != nil {
		return nil, err
	}

	now := s.now()

	if s.policy.Recreate != RecreateDuplicate && s.repo.table.NaturalKey != "" {
		deletedID, err := s.repo.DeletedIDByKey(ctx, tenantID, s.repo.table.KeyOf(p))
		if err != nil {
			return nil, err
		}

		if deletedID != "" {
			if s.policy.Recreate == RecreateReject {
				return nil, fmt.Errorf(
					"create %s: a deleted record with the same %s exists: %w",
					s.repo.table.Resource, s.repo.table.NaturalKey, core.ErrConflict,
				)
			}

			err := s.repo.Restore(ctx, tenantID, deletedID, p, now)
			if err == nil {
				return s.repo.Get(ctx, tenantID, deletedID)
			}
			// lost the row to a concurrent restore; fall through to a fresh insert
			if !errors.Is(err, core.ErrNotFound) {
				return nil, err
			}
		}
	}

	id := uuid.NewString()
	if err := s.repo.Insert(ctx, s.repo.db, id, tenantID, p, now); err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, tenantID, id)
}

// Update edits a row by id, deleted or not. It never revives a row.
func (s *Service[T, P]) Update(ctx context.Context, identityID, id string, p P) (row *T, err error) {
	ctx, end := s.begin(ctx, "update")
	defer func() { end(err) }()

	tenantID, err := s.tenant(ctx, identityID)
	if err != nil {
		return nil, err
	}

	if err := core.Validate(s.validator, p); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, tenantID, id, p, s.now()); err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, tenantID, id)
}

func (s *Service[T, P]) SoftDelete(ctx context.Context, identityID, id string) (row *T, err error) {
	ctx, end := s.begin(ctx, "delete")
	defer func() { end(err) }()

	tenantID, err := s.tenant(ctx, identityID)
	if err != nil {
		return nil, err
	}

	liveOnly := s.policy.Redelete == RedeleteReject
	if err := s.repo.SoftDelete(ctx, tenantID, id, liveOnly, s.now()); err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, tenantID, id)
}

func (s *Service[T, P]) tenant(ctx context.Context, identityID string) (string, error) {
	if identityID == "" {
		return "", fmt.Errorf("%s: %w", s.repo.table.Resource, core.ErrUnauthorized)
	}

	tenantID, err := s.resolver.ResolveTenant(ctx, identityID)
	if err != nil {
		return "", fmt.Errorf("%s: resolve tenant: %w", s.repo.table.Resource, err)
	}
	if tenantID == "" {
		return "", fmt.Errorf("%s: onboarding incomplete: %w", s.repo.table.Resource, core.ErrUnauthorized)
	}

	core.SetSpanAttributes(ctx, core.AttrTenantID.String(tenantID))

	return tenantID, nil
}

// begin opens the span for op. The returned func ends it and records the
// outcome metric.
func (s *Service[T, P]) begin(ctx context.Context, op string) (context.Context, func(error)) {
	ctx, span := core.StartSpan(ctx, "scoped."+op,
		core.AttrEntity.String(s.repo.table.Resource),
		core.AttrOperation.String(op),
	)

	return ctx, func(err error) {
		result := outcome(err)
		if result == "error" {
			core.SetSpanError(ctx, err)
		}
		span.End()
		s.metrics.ObserveScoped(s.repo.table.Resource, op, result)
	}
}

func outcome(e error) string {
	result := "ok"
	switch {
	case e == nil:
	case errors.Is(e, core.ErrNotFound):
		result = "not_found"
	case errors.Is(e, core.ErrUnauthorized):
		result = "unauthorized"
	case errors.Is(e, core.ErrInvalidInput):
		result = "invalid"
	case errors.Is(e, core.ErrConflict):
		result = "conflict"
	default:
		result = "error"
	}
	return result
}
