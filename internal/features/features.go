// Package features stores per-tenant feature flags mirrored from the plan
// catalogue at signup and re-synced when billing state changes.
package features

import (
	"context"
	"errors"
	"time"
)

// ErrFlagNotFound is returned for lookups of unknown flags.
var ErrFlagNotFound = errors.New("features: flag not found")

// Flag is one tenant feature switch.
type Flag struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	Key       string    `json:"key"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store persists feature flags.
type Store interface {
	// ReplaceForTenant overwrites a tenant's full flag set.
	ReplaceForTenant(ctx context.Context, tenantID string, flags map[string]bool) error
	ListForTenant(ctx context.Context, tenantID string) ([]Flag, error)
	Get(ctx context.Context, tenantID, key string) (*Flag, error)
}
