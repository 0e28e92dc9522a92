package billing

import "context"

// Store persists subscriptions, at most one per tenant.
type Store interface {
	Create(ctx context.Context, s *Subscription) error
	GetByTenant(ctx context.Context, tenantID string) (*Subscription, error)
	GetByStripeSubID(ctx context.Context, stripeSubID string) (*Subscription, error)
	Update(ctx context.Context, s *Subscription) error
}
