package tenant

import "context"

// Store persists tenants and memberships.
type Store interface {
	Create(ctx context.Context, t *Tenant) error
	Get(ctx context.Context, id string) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	Update(ctx context.Context, t *Tenant) error

	CreateMembership(ctx context.Context, m *Membership) error
	GetMembership(ctx context.Context, userID, tenantID string) (*Membership, error)
	ListForUser(ctx context.Context, userID string) ([]Summary, error)
	CountMembers(ctx context.Context, tenantID string) (int, error)
}
