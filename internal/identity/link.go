// AngelaMos | 2026
// link.go

package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	sq "github.com/Masterminds/squirrel"

	"github.com/carterperez-dev/templates/pos-backend/internal/core"
	"github.com/carterperez-dev/templates/pos-backend/internal/metrics"
)

// Link is the outbox row recording that a tenant's id still has to be (or
// has been) written into its owner's identity metadata.
type Link struct {
	TenantID      string     `db:"tenant_id"`
	IdentityID    string     `db:"external_identity_id"`
	Attempts      int        `db:"attempts"`
	LastError     string     `db:"last_error"`
	SyncedAt      *time.Time `db:"synced_at"`
	NextAttemptAt *time.Time `db:"next_attempt_at"`
	ParkedAt      *time.Time `db:"parked_at"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

func (l *Link) Synced() bool {
	return l.SyncedAt != nil
}

// Parked links are skipped by the reconciler until synced by hand.
func (l *Link) Parked() bool {
	return l.ParkedAt != nil
}

var linkColumns = []string{
	"tenant_id", "external_identity_id", "attempts", "last_error",
	"synced_at", "next_attempt_at", "parked_at", "created_at", "updated_at",
}

const maxLastErrorBytes = 500

// LinkFailure describes one failed sync of a link.
type LinkFailure struct {
	Cause         error
	At            time.Time
	NextAttemptAt time.Time
	Park          bool
}

type LinkRepository struct {
	db core.DBTX
	sb sq.StatementBuilderType
}

func NewLinkRepository(db *core.Database) *LinkRepository {
	return &LinkRepository{db: db.DB, sb: db.Dialect.Builder()}
}

// Create inserts a pending link using db, which is normally the
// provisioning transaction.
func (r *LinkRepository) Create(ctx context.Context, db core.DBTX, link *Link) error {
	query, args, err := r.sb.Insert("identity_links").
		Columns("tenant_id", "external_identity_id", "attempts", "last_error", "created_at", "updated_at").
		Values(link.TenantID, link.IdentityID, 0, "", link.CreatedAt, link.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build create link: %w", err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("create link: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create link: %w", err)
	}

	return nil
}

func (r *LinkRepository) Get(ctx context.Context, tenantID string) (*Link, error) {
	query, args, err := r.sb.Select(linkColumns...).
		From("identity_links").
		Where(sq.Eq{"tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get link: %w", err)
	}

	var link Link
	err = r.db.GetContext(ctx, &link, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get link: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}

	return &link, nil
}

func (r *LinkRepository) MarkSynced(ctx context.Context, tenantID string, at time.Time) error {
	query, args, err := r.sb.Update("identity_links").
		Set("synced_at", at).
		Set("last_error", "").
		Set("next_attempt_at", nil).
		Set("parked_at", nil).
		Set("updated_at", at).
		Where(sq.Eq{"tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark synced: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark link synced: %w", err)
	}

	return nil
}

// RecordFailure counts a failed attempt and schedules the next one, or
// parks the link when f.Park is set.
func (r *LinkRepository) RecordFailure(ctx context.Context, tenantID string, f LinkFailure) error {
	var parkedAt any
	if f.Park {
		parkedAt = f.At
	}

	query, args, err := r.sb.Update("identity_links").
		Set("attempts", sq.Expr("attempts + 1")).
		Set("last_error", truncateError(f.Cause.Error(), maxLastErrorBytes)).
		Set("next_attempt_at", f.NextAttemptAt).
		Set("parked_at", parkedAt).
		Set("updated_at", f.At).
		Where(sq.Eq{"tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build record failure: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record link failure: %w", err)
	}

	return nil
}

// ListPending returns every unsynced link, parked ones included, oldest
// first.
func (r *LinkRepository) ListPending(ctx context.Context, limit int) ([]Link, error) {
	query, args, err := r.sb.Select(linkColumns...).
		From("identity_links").
		Where(sq.Eq{"synced_at": nil}).
		OrderBy("created_at ASC").
		Limit(uint64(limit)). //nolint:gosec // limit is validated positive by config
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list pending: %w", err)
	}

	links := []Link{}
	if err := r.db.SelectContext(ctx, &links, query, args...); err != nil {
		return nil, fmt.Errorf("list pending links: %w", err)
	}

	return links, nil
}

// ListDue returns unsynced, unparked links whose next attempt is due at
// now. Links with fewer attempts come first so a run of failing links
// cannot hold back newer ones.
func (r *LinkRepository) ListDue(ctx context.Context, limit int, now time.Time) ([]Link, error) {
	query, args, err := r.sb.Select(linkColumns...).
		From("identity_links").
		Where(sq.Eq{"synced_at": nil, "parked_at": nil}).
		Where(sq.Or{
			sq.Eq{"next_attempt_at": nil},
			sq.LtOrEq{"next_attempt_at": now},
		}).
		OrderBy("attempts ASC", "created_at ASC").
		Limit(uint64(limit)). //nolint:gosec // limit is validated positive by config
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list due: %w", err)
	}

	links := []Link{}
	if err := r.db.SelectContext(ctx, &links, query, args...); err != nil {
		return nil, fmt.Errorf("list due links: %w", err)
	}

	return links, nil
}

// CountPending counts unsynced links that the reconciler still retries.
func (r *LinkRepository) CountPending(ctx context.Context) (int, error) {
	return r.count(ctx, "count pending", sq.Eq{"synced_at": nil, "parked_at": nil})
}

func (r *LinkRepository) CountParked(ctx context.Context) (int, error) {
	return r.count(ctx, "count parked", sq.And{
		sq.Eq{"synced_at": nil},
		sq.NotEq{"parked_at": nil},
	})
}

func (r *LinkRepository) count(ctx context.Context, op string, pred sq.Sqlizer) (int, error) {
	query, args, err := r.sb.Select("COUNT(*)").
		From("identity_links").
		Where(pred).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build %s: %w", op, err)
	}

	var n int
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("%s links: %w", op, err)
	}

	return n, nil
}

// truncateError cuts msg to at most n bytes without splitting a rune.
func truncateError(msg string, n int) string {
	msg = strings.ToValidUTF8(msg, "")
	if len(msg) <= n {
		return msg
	}
	for n > 0 && !utf8.RuneStart(msg[n]) {
		n--
	}
	return msg[:n]
}

// RetryPolicy spaces out sync attempts of a failing link.
type RetryPolicy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// Delay returns the wait before the attempt after the given number of
// failures: BaseDelay doubled per failure, capped at MaxDelay.
func (p RetryPolicy) Delay(failures int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < failures && d < p.MaxDelay; i++ {
		d *= 2
	}
	return min(d, p.MaxDelay)
}

// Park reports whether a link should stop being retried. An identity the
// provider no longer knows will never accept the write.
func (p RetryPolicy) Park(failures int, cause error) bool {
	if errors.Is(cause, core.ErrNotFound) {
		return true
	}
	return p.MaxAttempts > 0 && failures >= p.MaxAttempts
}

// Linker writes a tenant id into its owner's private metadata.
type Linker struct {
	links   *LinkRepository
	store   MetadataStore
	cache   TenantCache
	key     string
	retry   RetryPolicy
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

type LinkerConfig struct {
	Links       *LinkRepository
	Store       MetadataStore
	Cache       TenantCache
	MetadataKey string
	Retry       RetryPolicy
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

func NewLinker(cfg LinkerConfig) *Linker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	retry := cfg.Retry
	if retry.BaseDelay <= 0 {
		retry.BaseDelay = 30 * time.Second
	}
	if retry.MaxDelay < retry.BaseDelay {
		retry.MaxDelay = max(time.Hour, retry.BaseDelay)
	}

	return &Linker{
		links:   cfg.Links,
		store:   cfg.Store,
		cache:   cfg.Cache,
		key:     cfg.MetadataKey,
		retry:   retry,
		metrics: cfg.Metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Enqueue records a pending link inside the caller's transaction.
func (l *Linker) Enqueue(ctx context.Context, db core.DBTX, tenantID, identityID string) error {
	now := l.now()
	return l.links.Create(ctx, db, &Link{
		TenantID:   tenantID,
		IdentityID: identityID,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

// Sync pushes the link for tenantID to the identity provider. Writing the
// same tenant id twice leaves the metadata unchanged.
func (l *Linker) Sync(ctx context.Context, tenantID string) error {
	link, err := l.links.Get(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("sync link: %w", err)
	}

	return l.SyncIdentity(ctx, link.IdentityID, tenantID)
}

// SyncIdentity writes tenantID under the metadata key of identityID and
// stamps the matching outbox row, if one exists.
func (l *Linker) SyncIdentity(ctx context.Context, identityID, tenantID string) error {
	ctx, span := core.StartSpan(ctx, "identity.link.sync",
		core.AttrTenantID.String(tenantID),
		core.AttrIdentity.String(identityID),
	)
	defer span.End()

	err := l.store.SetPrivateMetadata(ctx, identityID, map[string]any{l.key: tenantID})
	if err != nil {
		core.SetSpanError(ctx, err)
		l.metrics.ObserveLinkSync("failure")

		l.recordFailure(ctx, tenantID, err)
		return fmt.Errorf("sync identity %s: %w", identityID, err)
	}

	l.metrics.ObserveLinkSync("success")

	if err := l.links.MarkSynced(ctx, tenantID, l.now()); err != nil {
		return fmt.Errorf("sync identity %s: %w", identityID, err)
	}

	if l.cache != nil {
		if err := l.cache.Set(ctx, identityID, tenantID); err != nil {
			l.logger.WarnContext(ctx, "tenant cache set failed", "error", err)
		}
	}

	return nil
}

func (l *Linker) recordFailure(ctx context.Context, tenantID string, cause error) {
	link, err := l.links.Get(ctx, tenantID)
	if errors.Is(err, core.ErrNotFound) {
		return
	}
	if err != nil {
		l.logger.ErrorContext(ctx, "load identity link", "tenant_id", tenantID, "error", err)
		return
	}

	failures := link.Attempts + 1
	now := l.now()
	f := LinkFailure{
		Cause:         cause,
		At:            now,
		NextAttemptAt: now.Add(l.retry.Delay(failures)),
		Park:          l.retry.Park(failures, cause),
	}

	if err := l.links.RecordFailure(ctx, tenantID, f); err != nil {
		l.logger.ErrorContext(ctx, "record identity link failure",
			"tenant_id", tenantID,
			"error", err,
		)
		return
	}

	if f.Park {
		l.logger.WarnContext(ctx, "identity link parked",
			"tenant_id", tenantID,
			"attempts", failures,
			"error", cause,
		)
	}
}
