package chatbot

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory chatbot store for demo/development.
type MemoryStore struct {
	mu      sync.RWMutex
	configs map[string]*Config // by tenant ID
	themes  map[string]*Theme  // by tenant ID
}

// NewMemoryStore creates a new in-memory chatbot store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		configs: make(map[string]*Config),
		themes:  make(map[string]*Theme),
	}
}

func (m *MemoryStore) CreateConfig(_ context.Context, c *Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *c
	m.configs[c.TenantID] = &cp
	return nil
}

func (m *MemoryStore) GetConfig(_ context.Context, tenantID string) (*Config, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.configs[tenantID]
	if !ok {
		return nil, ErrConfigNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) UpdateConfig(_ context.Context, c *Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.configs[c.TenantID]; !ok {
		return ErrConfigNotFound
	}
	cp := *c
	m.configs[c.TenantID] = &cp
	return nil
}

func (m *MemoryStore) CreateTheme(_ context.Context, t *Theme) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *t
	m.themes[t.TenantID] = &cp
	return nil
}

func (m *MemoryStore) GetTheme(_ context.Context, tenantID string) (*Theme, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.themes[tenantID]
	if !ok {
		return nil, ErrThemeNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) UpdateTheme(_ context.Context, t *Theme) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.themes[t.TenantID]; !ok {
		return ErrThemeNotFound
	}
	cp := *t
	m.themes[t.TenantID] = &cp
	return nil
}

var _ Store = (*MemoryStore)(nil)
