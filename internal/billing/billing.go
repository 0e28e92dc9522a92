// Package billing bridges tenants to Stripe subscriptions.
package billing

import (
	"errors"
	"strings"
	"time"

	"github.com/mhollis/chatdeck/internal/plan"
)

// Errors
var (
	ErrSubscriptionNotFound = errors.New("billing: subscription not found")
	ErrNoCustomer           = errors.New("billing: tenant has no billing customer")
	ErrStripeDisabled       = errors.New("billing: stripe is not configured")
)

// TrialPeriod is the free trial granted to new subscriptions.
const TrialPeriod = 14 * 24 * time.Hour

// Status is a subscription's lifecycle state.
type Status string

const (
	StatusTrialing Status = "TRIALING"
	StatusActive   Status = "ACTIVE"
	StatusPastDue  Status = "PAST_DUE"
	StatusCanceled Status = "CANCELED"
)

// StatusFromStripe maps a Stripe subscription status string to ours.
func StatusFromStripe(s string) Status {
	return Status(strings.ToUpper(s))
}

// Subscription is a tenant's billing state. Writes are absolute: every
// webhook reconciliation sets the full target state rather than applying
// deltas, so replays are idempotent.
type Subscription struct {
	ID               string     `json:"id"`
	TenantID         string     `json:"tenantId"`
	PlanKey          plan.Key   `json:"planKey"`
	Status           Status     `json:"status"`
	TrialEndsAt      *time.Time `json:"trialEndsAt,omitempty"`
	StripeCustomerID string     `json:"stripeCustomerId,omitempty"`
	StripeSubID      string     `json:"stripeSubId,omitempty"`
	CancelAt         *time.Time `json:"cancelAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}
