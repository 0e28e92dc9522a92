package features

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mhollis/chatdeck/internal/idgen"
)

// MemoryStore is an in-memory feature flag store for demo/development.
type MemoryStore struct {
	mu    sync.RWMutex
	flags map[string]map[string]*Flag // tenantID → key → flag
}

// NewMemoryStore creates a new in-memory feature flag store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{flags: make(map[string]map[string]*Flag)}
}

func (m *MemoryStore) ReplaceForTenant(_ context.Context, tenantID string, flags map[string]bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	existing := m.flags[tenantID]
	next := make(map[string]*Flag, len(flags))
	for key, enabled := range flags {
		f := &Flag{
			ID:        idgen.WithPrefix("ff_"),
			TenantID:  tenantID,
			Key:       key,
			Enabled:   enabled,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if prev, ok := existing[key]; ok {
			f.ID = prev.ID
			f.CreatedAt = prev.CreatedAt
		}
		next[key] = f
	}
	m.flags[tenantID] = next
	return nil
}

func (m *MemoryStore) ListForTenant(_ context.Context, tenantID string) ([]Flag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Flag
	for _, f := range m.flags[tenantID] {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryStore) Get(_ context.Context, tenantID, key string) (*Flag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.flags[tenantID][key]
	if !ok {
		return nil, ErrFlagNotFound
	}
	cp := *f
	return &cp, nil
}

var _ Store = (*MemoryStore)(nil)
