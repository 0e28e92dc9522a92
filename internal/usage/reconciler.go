package usage

import (
	"context"
	"log/slog"
	"time"

	"github.com/mhollis/chatdeck/internal/metrics"
	"github.com/mhollis/chatdeck/internal/retry"
)

// Reconciler periodically rewrites monthly counters from the durable log.
// This is the recovery path for counter drift: counter increments are
// best-effort on the hot path, the log is the source of truth.
type Reconciler struct {
	store    Store
	counter  Counter
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
	stop     chan struct{}
}

// NewReconciler creates a new usage counter reconciler.
func NewReconciler(store Store, counter Counter, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:    store,
		counter:  counter,
		interval: 15 * time.Minute,
		logger:   logger,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// Start begins the reconciliation loop. Call in a goroutine.
func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.C:
			if err := r.Run(ctx); err != nil {
				r.logger.Warn("usage reconciliation failed", "error", err)
				metrics.UsageReconciliationsTotal.WithLabelValues("error").Inc()
			} else {
				metrics.UsageReconciliationsTotal.WithLabelValues("ok").Inc()
			}
		}
	}
}

// Stop signals the reconciler to stop.
func (r *Reconciler) Stop() {
	select {
	case r.stop <- struct{}{}:
	default:
	}
}

// Run recomputes the current month's totals from the log and overwrites the
// corresponding counters. Counter writes are retried with backoff.
func (r *Reconciler) Run(ctx context.Context) error {
	now := r.now()
	monthStart := MonthStart(now)

	tenants, err := r.store.ActiveTenants(ctx, monthStart)
	if err != nil {
		return err
	}

	rewritten := 0
	for _, tenantID := range tenants {
		breakdown, err := r.store.Breakdown(ctx, tenantID, monthStart)
		if err != nil {
			return err
		}
		for _, tt := range breakdown {
			key := CounterKey(tenantID, tt.Type, now)
			quantity := tt.Quantity
			err := retry.Do(ctx, 3, 100*time.Millisecond, func() error {
				return r.counter.Set(ctx, key, quantity, CounterTTL)
			})
			if err != nil {
				r.logger.Warn("failed to rewrite usage counter", "key", key, "error", err)
				continue
			}
			rewritten++
		}
	}

	if rewritten > 0 {
		r.logger.Info("usage counters reconciled", "tenants", len(tenants), "counters", rewritten)
	}
	return nil
}
