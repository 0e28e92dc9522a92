package usage

import (
	"context"
	"time"

	"github.com/mhollis/chatdeck/internal/idgen"
	"github.com/mhollis/chatdeck/internal/logging"
	"github.com/mhollis/chatdeck/internal/metrics"
)

// Meter records usage durably and answers limit checks from the fast counter.
type Meter struct {
	store   Store
	counter Counter
	now     func() time.Time
}

// NewMeter creates a usage meter.
func NewMeter(store Store, counter Counter) *Meter {
	return &Meter{store: store, counter: counter, now: time.Now}
}

// Record appends a usage event to the durable log, then bumps the monthly
// counter. The counter write is best-effort: a failure is logged, never
// returned, so the log and counter can drift until the reconciler runs.
func (m *Meter) Record(ctx context.Context, tenantID, usageType string, quantity int64, metadata map[string]string) (*Event, error) {
	now := m.now()
	e := &Event{
		ID:        idgen.WithPrefix("evt_"),
		TenantID:  tenantID,
		Type:      usageType,
		Quantity:  quantity,
		Metadata:  metadata,
		CreatedAt: now,
	}
	if err := m.store.Insert(ctx, e); err != nil {
		return nil, err
	}
	metrics.UsageEventsTotal.WithLabelValues(usageType).Inc()

	key := CounterKey(tenantID, usageType, now)
	if _, err := m.counter.IncrBy(ctx, key, quantity, CounterTTL); err != nil {
		logging.L(ctx).Warn("usage counter increment failed",
			"key", key, "quantity", quantity, "error", err)
	}
	return e, nil
}

// Current reads the counter for the running month. 0 when the key is absent.
func (m *Meter) Current(ctx context.Context, tenantID, usageType string) (int64, error) {
	return m.counter.Get(ctx, CounterKey(tenantID, usageType, m.now()))
}

// CheckLimit compares current counter usage against a limit. Allowed is
// strict: current == limit is over.
func (m *Meter) CheckLimit(ctx context.Context, tenantID, usageType string, limit int64) (*LimitCheck, error) {
	current, err := m.Current(ctx, tenantID, usageType)
	if err != nil {
		return nil, err
	}
	return &LimitCheck{
		Allowed: current < limit,
		Current: current,
		Limit:   limit,
	}, nil
}

// MonthlyTotal sums the durable log for the running month.
func (m *Meter) MonthlyTotal(ctx context.Context, tenantID, usageType string) (int64, error) {
	return m.store.MonthlyTotal(ctx, tenantID, usageType, MonthStart(m.now()))
}

// Breakdown sums the durable log per type for the running month.
func (m *Meter) Breakdown(ctx context.Context, tenantID string) ([]TypeTotal, error) {
	return m.store.Breakdown(ctx, tenantID, MonthStart(m.now()))
}
