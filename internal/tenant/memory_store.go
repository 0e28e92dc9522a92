package tenant

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory tenant store for demo/development.
type MemoryStore struct {
	mu          sync.RWMutex
	tenants     map[string]*Tenant     // by ID
	slugs       map[string]string      // slug → ID
	memberships map[string]*Membership // by ID
}

// NewMemoryStore creates a new in-memory tenant store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants:     make(map[string]*Tenant),
		slugs:       make(map[string]string),
		memberships: make(map[string]*Membership),
	}
}

func (m *MemoryStore) Create(_ context.Context, t *Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.slugs[t.Slug]; exists {
		return ErrSlugTaken
	}

	cp := *t
	m.tenants[t.ID] = &cp
	m.slugs[t.Slug] = t.ID
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tenants[id]
	if !ok {
		return nil, ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) GetBySlug(_ context.Context, slug string) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.slugs[slug]
	if !ok {
		return nil, ErrTenantNotFound
	}
	cp := *m.tenants[id]
	return &cp, nil
}

func (m *MemoryStore) Update(_ context.Context, t *Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.tenants[t.ID]
	if !ok {
		return ErrTenantNotFound
	}
	cp := *t
	cp.Slug = existing.Slug // slug is immutable
	m.tenants[t.ID] = &cp
	return nil
}

func (m *MemoryStore) CreateMembership(_ context.Context, mb *Membership) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.memberships {
		if existing.UserID == mb.UserID && existing.TenantID == mb.TenantID {
			return ErrMemberExists
		}
	}

	cp := *mb
	m.memberships[mb.ID] = &cp
	return nil
}

func (m *MemoryStore) GetMembership(_ context.Context, userID, tenantID string) (*Membership, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, mb := range m.memberships {
		if mb.UserID == userID && mb.TenantID == tenantID {
			cp := *mb
			return &cp, nil
		}
	}
	return nil, ErrMembershipNotFound
}

func (m *MemoryStore) ListForUser(_ context.Context, userID string) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Summary
	for _, mb := range m.memberships {
		if mb.UserID != userID {
			continue
		}
		t, ok := m.tenants[mb.TenantID]
		if !ok {
			continue
		}
		out = append(out, Summary{ID: t.ID, Slug: t.Slug, Name: t.Name, Role: mb.Role})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (m *MemoryStore) CountMembers(_ context.Context, tenantID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, mb := range m.memberships {
		if mb.TenantID == tenantID {
			count++
		}
	}
	return count, nil
}

var _ Store = (*MemoryStore)(nil)
