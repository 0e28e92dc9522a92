package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	stripe "github.com/stripe/stripe-go/v81"

	"github.com/mhollis/chatdeck/internal/features"
	"github.com/mhollis/chatdeck/internal/idgen"
	"github.com/mhollis/chatdeck/internal/metrics"
	"github.com/mhollis/chatdeck/internal/plan"
	"github.com/mhollis/chatdeck/internal/tenant"
	"github.com/mhollis/chatdeck/internal/traces"
	"github.com/mhollis/chatdeck/internal/user"
)

// Events receives domain events for the live activity feed. May be nil.
type Events interface {
	Emit(eventType, tenantSlug string, payload map[string]any)
}

// Service owns subscription state and talks to Stripe.
type Service struct {
	subs    Store
	tenants tenant.Store
	users   user.Store
	flags   features.Store
	stripe  StripeClient
	events  Events
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates the billing service.
func NewService(subs Store, tenants tenant.Store, users user.Store,
	flags features.Store, sc StripeClient, events Events, logger *slog.Logger) *Service {
	return &Service{
		subs:    subs,
		tenants: tenants,
		users:   users,
		flags:   flags,
		stripe:  sc,
		events:  events,
		logger:  logger,
		now:     time.Now,
	}
}

// GetSubscription returns a tenant's subscription.
func (s *Service) GetSubscription(ctx context.Context, tenantID string) (*Subscription, error) {
	return s.subs.GetByTenant(ctx, tenantID)
}

// CreateTrial creates the TRIALING subscription a signup starts with.
func (s *Service) CreateTrial(ctx context.Context, tenantID string, key plan.Key) (*Subscription, error) {
	if _, err := plan.Get(key); err != nil {
		return nil, err
	}
	now := s.now()
	trialEnd := now.Add(TrialPeriod)
	sub := &Subscription{
		ID:          idgen.WithPrefix("sub_"),
		TenantID:    tenantID,
		PlanKey:     key,
		Status:      StatusTrialing,
		TrialEndsAt: &trialEnd,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// StartCheckout creates a hosted checkout for a plan upgrade and returns its URL.
func (s *Service) StartCheckout(ctx context.Context, tenantID string, key plan.Key, successURL, cancelURL string) (string, error) {
	ctx, span := traces.StartSpan(ctx, "billing.checkout",
		traces.TenantID(tenantID), traces.PlanKey(string(key)))
	defer span.End()

	if s.stripe == nil {
		return "", ErrStripeDisabled
	}

	p, err := plan.Get(key)
	if err != nil {
		return "", err
	}

	customerID, err := s.getOrCreateCustomer(ctx, tenantID)
	if err != nil {
		return "", err
	}

	sess, err := s.stripe.CreateCheckoutSession(ctx, CheckoutParams{
		CustomerID: customerID,
		Plan:       p,
		TenantID:   tenantID,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	})
	if err != nil {
		return "", err
	}

	metrics.CheckoutSessionsTotal.WithLabelValues(string(key)).Inc()
	return sess.URL, nil
}

// PortalSession returns a customer portal URL for managing the subscription.
func (s *Service) PortalSession(ctx context.Context, tenantID, returnURL string) (string, error) {
	if s.stripe == nil {
		return "", ErrStripeDisabled
	}
	sub, err := s.subs.GetByTenant(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if sub.StripeCustomerID == "" {
		return "", ErrNoCustomer
	}
	return s.stripe.CreatePortalSession(ctx, sub.StripeCustomerID, returnURL)
}

// getOrCreateCustomer resolves the tenant's Stripe customer, creating one
// from the owner's account when none exists yet.
func (s *Service) getOrCreateCustomer(ctx context.Context, tenantID string) (string, error) {
	if sub, err := s.subs.GetByTenant(ctx, tenantID); err == nil && sub.StripeCustomerID != "" {
		if _, err := s.stripe.GetCustomer(ctx, sub.StripeCustomerID); err == nil {
			return sub.StripeCustomerID, nil
		}
		// Stale customer id; fall through and create a fresh one.
	}

	t, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return "", err
	}
	owner, err := s.users.Get(ctx, t.OwnerID)
	if err != nil {
		return "", err
	}
	cust, err := s.stripe.CreateCustomer(ctx, owner.Email, t.Name, tenantID)
	if err != nil {
		return "", err
	}
	return cust.ID, nil
}

// Minimal event payload shapes, decoded from event.Data.Raw.

type checkoutSessionEvent struct {
	ID           string            `json:"id"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

type subscriptionEvent struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Status   string `json:"status"`
	CancelAt int64  `json:"cancel_at"`
}

type invoiceEvent struct {
	ID           string `json:"id"`
	Subscription string `json:"subscription"`
}

// HandleEvent reconciles local subscription state from a verified webhook
// event. Unknown subscription ids are deliberately ignored; unknown event
// types are logged and skipped.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	ctx, span := traces.StartSpan(ctx, "billing.webhook",
		traces.StripeEventType(string(event.Type)))
	defer span.End()

	switch event.Type {
	case "checkout.session.completed":
		var sess checkoutSessionEvent
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("decode checkout session: %w", err)
		}
		return s.handleCheckoutCompleted(ctx, sess)

	case "customer.subscription.updated":
		var sub subscriptionEvent
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return s.handleSubscriptionUpdated(ctx, sub)

	case "customer.subscription.deleted":
		var sub subscriptionEvent
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return s.handleSubscriptionDeleted(ctx, sub)

	case "invoice.payment_failed":
		var inv invoiceEvent
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("decode invoice: %w", err)
		}
		return s.handlePaymentFailed(ctx, inv)

	default:
		s.logger.Info("stripe webhook ignored", "type", event.Type, "event_id", event.ID)
		return nil
	}
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, sess checkoutSessionEvent) error {
	tenantID := sess.Metadata["tenantId"]
	planKey := plan.Key(sess.Metadata["planKey"])
	if tenantID == "" || planKey == "" {
		return fmt.Errorf("checkout session %s missing tenantId/planKey metadata", sess.ID)
	}
	if _, err := plan.Get(planKey); err != nil {
		return fmt.Errorf("checkout session %s: %w", sess.ID, err)
	}

	now := s.now()
	var trialEnd *time.Time
	if sess.Subscription == "" {
		// No live Stripe subscription yet, keep a trial window open.
		t := now.Add(TrialPeriod)
		trialEnd = &t
	}

	sub, err := s.subs.GetByTenant(ctx, tenantID)
	switch err {
	case nil:
		sub.PlanKey = planKey
		sub.Status = StatusActive
		sub.StripeCustomerID = sess.Customer
		sub.StripeSubID = sess.Subscription
		sub.TrialEndsAt = trialEnd
		sub.UpdatedAt = now
		if err := s.subs.Update(ctx, sub); err != nil {
			return err
		}
	case ErrSubscriptionNotFound:
		sub = &Subscription{
			ID:               idgen.WithPrefix("sub_"),
			TenantID:         tenantID,
			PlanKey:          planKey,
			Status:           StatusActive,
			StripeCustomerID: sess.Customer,
			StripeSubID:      sess.Subscription,
			TrialEndsAt:      trialEnd,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := s.subs.Create(ctx, sub); err != nil {
			return err
		}
	default:
		return err
	}

	// The plan changed, so the mirrored feature flags change with it.
	if flags, err := plan.FlagSet(planKey); err == nil {
		if err := s.flags.ReplaceForTenant(ctx, tenantID, flags); err != nil {
			s.logger.Warn("feature flag re-sync failed", "tenant_id", tenantID, "error", err)
		}
	}

	s.emit(ctx, tenantID, map[string]any{"status": string(StatusActive), "planKey": string(planKey)})
	return nil
}

func (s *Service) handleSubscriptionUpdated(ctx context.Context, ev subscriptionEvent) error {
	sub, err := s.subs.GetByStripeSubID(ctx, ev.ID)
	if err == ErrSubscriptionNotFound {
		return nil // unknown callback, ignore
	}
	if err != nil {
		return err
	}

	sub.Status = StatusFromStripe(ev.Status)
	if ev.CancelAt > 0 {
		t := time.Unix(ev.CancelAt, 0)
		sub.CancelAt = &t
	} else {
		sub.CancelAt = nil
	}
	sub.UpdatedAt = s.now()
	if err := s.subs.Update(ctx, sub); err != nil {
		return err
	}

	s.emit(ctx, sub.TenantID, map[string]any{"status": string(sub.Status)})
	return nil
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, ev subscriptionEvent) error {
	sub, err := s.subs.GetByStripeSubID(ctx, ev.ID)
	if err == ErrSubscriptionNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	now := s.now()
	sub.Status = StatusCanceled
	sub.CancelAt = &now
	sub.UpdatedAt = now
	if err := s.subs.Update(ctx, sub); err != nil {
		return err
	}

	s.emit(ctx, sub.TenantID, map[string]any{"status": string(StatusCanceled)})
	return nil
}

func (s *Service) handlePaymentFailed(ctx context.Context, inv invoiceEvent) error {
	if inv.Subscription == "" {
		return nil
	}
	sub, err := s.subs.GetByStripeSubID(ctx, inv.Subscription)
	if err == ErrSubscriptionNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	sub.Status = StatusPastDue
	sub.UpdatedAt = s.now()
	if err := s.subs.Update(ctx, sub); err != nil {
		return err
	}

	s.emit(ctx, sub.TenantID, map[string]any{"status": string(StatusPastDue)})
	return nil
}

func (s *Service) emit(ctx context.Context, tenantID string, payload map[string]any) {
	if s.events == nil {
		return
	}
	t, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return
	}
	s.events.Emit("subscription", t.Slug, payload)
}
