package plan

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory plan store for demo/development.
type MemoryStore struct {
	mu    sync.RWMutex
	plans map[Key]*Plan
}

// NewMemoryStore creates a new in-memory plan store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{plans: make(map[Key]*Plan)}
}

func (m *MemoryStore) Upsert(_ context.Context, p *Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *p
	m.plans[p.Key] = &cp
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key Key) (*Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plans[key]
	if !ok {
		return nil, ErrUnknownPlan
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) List(_ context.Context) ([]*Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plans := make([]*Plan, 0, len(m.plans))
	for _, p := range m.plans {
		cp := *p
		plans = append(plans, &cp)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].PriceMonthly < plans[j].PriceMonthly })
	return plans, nil
}

var _ Store = (*MemoryStore)(nil)
