package usage

import (
	"context"
	"time"
)

// Store persists the append-only usage event log.
type Store interface {
	Insert(ctx context.Context, e *Event) error
	// MonthlyTotal sums quantities of one type for a tenant inside the
	// calendar month starting at monthStart.
	MonthlyTotal(ctx context.Context, tenantID, usageType string, monthStart time.Time) (int64, error)
	// Breakdown sums quantities per type for a tenant inside the calendar
	// month starting at monthStart.
	Breakdown(ctx context.Context, tenantID string, monthStart time.Time) ([]TypeTotal, error)
	// Types lists distinct usage types a tenant has recorded in the month.
	Types(ctx context.Context, tenantID string, monthStart time.Time) ([]string, error)
	// ActiveTenants lists tenants with at least one event in the month.
	ActiveTenants(ctx context.Context, monthStart time.Time) ([]string, error)
}
