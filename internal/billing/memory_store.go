package billing

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory subscription store for demo/development.
type MemoryStore struct {
	mu   sync.RWMutex
	subs map[string]*Subscription // by ID
}

// NewMemoryStore creates a new in-memory subscription store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[string]*Subscription)}
}

func (m *MemoryStore) Create(_ context.Context, s *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *s
	m.subs[s.ID] = &cp
	return nil
}

func (m *MemoryStore) GetByTenant(_ context.Context, tenantID string) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.subs {
		if s.TenantID == tenantID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrSubscriptionNotFound
}

func (m *MemoryStore) GetByStripeSubID(_ context.Context, stripeSubID string) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if stripeSubID == "" {
		return nil, ErrSubscriptionNotFound
	}
	for _, s := range m.subs {
		if s.StripeSubID == stripeSubID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrSubscriptionNotFound
}

func (m *MemoryStore) Update(_ context.Context, s *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.subs[s.ID]; !ok {
		return ErrSubscriptionNotFound
	}
	cp := *s
	m.subs[s.ID] = &cp
	return nil
}

var _ Store = (*MemoryStore)(nil)
