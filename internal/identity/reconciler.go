// AngelaMos | 2026
// reconciler.go

package identity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/carterperez-dev/templates/pos-backend/internal/metrics"
)

// Reconciler retries identity links that failed to sync after provisioning.
type Reconciler struct {
	links     *LinkRepository
	linker    *Linker
	interval  time.Duration
	batchSize int
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type ReconcilerConfig struct {
	Links     *LinkRepository
	Linker    *Linker
	Interval  time.Duration
	BatchSize int
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

type ReconcileResult struct {
	Attempted int `json:"attempted"`
	Synced    int `json:"synced"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`
	Parked    int `json:"parked"`
}

func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}

	return &Reconciler{
		links:     cfg.Links,
		linker:    cfg.Linker,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}

// Run reconciles on every tick until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("identity link reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("identity link reconciler stopped")
			return nil
		case <-ticker.C:
			res, err := r.RunOnce(ctx)
			if err != nil {
				r.logger.ErrorContext(ctx, "identity link reconcile failed", "error", err)
				continue
			}
			if res.Attempted > 0 {
				r.logger.InfoContext(ctx, "identity links reconciled",
					"attempted", res.Attempted,
					"synced", res.Synced,
					"failed", res.Failed,
					"pending", res.Pending,
					"parked", res.Parked,
				)
			}
		}
	}
}

// RunOnce syncs at most one batch of links that are due for another
// attempt. Failed links back off, so later runs reach the rest.
func (r *Reconciler) RunOnce(ctx context.Context) (*ReconcileResult, error) {
	pending, err := r.links.ListDue(ctx, r.batchSize, r.linker.now())
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	res := &ReconcileResult{Attempted: len(pending)}

	for _, link := range pending {
		if ctx.Err() != nil {
			break
		}

		if err := r.linker.SyncIdentity(ctx, link.IdentityID, link.TenantID); err != nil {
			res.Failed++
			r.logger.WarnContext(ctx, "identity link sync failed",
				"tenant_id", link.TenantID,
				"attempts", link.Attempts+1,
				"error", err,
			)
			continue
		}
		res.Synced++
	}

	count, err := r.links.CountPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	res.Pending = count
	r.metrics.SetPendingLinks(count)

	parked, err := r.links.CountParked(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	res.Parked = parked

	return res, nil
}
