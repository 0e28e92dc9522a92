package usage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory usage event log for demo/development.
type MemoryStore struct {
	mu     sync.RWMutex
	events []*Event
}

// NewMemoryStore creates a new in-memory usage store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Insert(_ context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *e
	m.events = append(m.events, &cp)
	return nil
}

func (m *MemoryStore) MonthlyTotal(_ context.Context, tenantID, usageType string, monthStart time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	end := monthStart.AddDate(0, 1, 0)
	var total int64
	for _, e := range m.events {
		if e.TenantID == tenantID && e.Type == usageType && inWindow(e.CreatedAt, monthStart, end) {
			total += e.Quantity
		}
	}
	return total, nil
}

func (m *MemoryStore) Breakdown(_ context.Context, tenantID string, monthStart time.Time) ([]TypeTotal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	end := monthStart.AddDate(0, 1, 0)
	totals := make(map[string]int64)
	for _, e := range m.events {
		if e.TenantID == tenantID && inWindow(e.CreatedAt, monthStart, end) {
			totals[e.Type] += e.Quantity
		}
	}

	out := make([]TypeTotal, 0, len(totals))
	for t, q := range totals {
		out = append(out, TypeTotal{Type: t, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func (m *MemoryStore) Types(ctx context.Context, tenantID string, monthStart time.Time) ([]string, error) {
	breakdown, err := m.Breakdown(ctx, tenantID, monthStart)
	if err != nil {
		return nil, err
	}
	types := make([]string, 0, len(breakdown))
	for _, tt := range breakdown {
		types = append(types, tt.Type)
	}
	return types, nil
}

func (m *MemoryStore) ActiveTenants(_ context.Context, monthStart time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	end := monthStart.AddDate(0, 1, 0)
	seen := make(map[string]bool)
	for _, e := range m.events {
		if inWindow(e.CreatedAt, monthStart, end) {
			seen[e.TenantID] = true
		}
	}
	tenants := make([]string, 0, len(seen))
	for id := range seen {
		tenants = append(tenants, id)
	}
	sort.Strings(tenants)
	return tenants, nil
}

func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

var _ Store = (*MemoryStore)(nil)
