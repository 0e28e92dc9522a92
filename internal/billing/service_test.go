package billing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v81"

	"github.com/mhollis/chatdeck/internal/features"
	"github.com/mhollis/chatdeck/internal/plan"
	"github.com/mhollis/chatdeck/internal/tenant"
	"github.com/mhollis/chatdeck/internal/user"
)

type fakeStripe struct {
	customers    map[string]*Customer
	createdCusts []*Customer
	sessions     []CheckoutParams
	portalCalls  []string
}

func newFakeStripe() *fakeStripe {
	return &fakeStripe{customers: map[string]*Customer{}}
}

func (f *fakeStripe) CreateCustomer(_ context.Context, email, name, tenantID string) (*Customer, error) {
	c := &Customer{ID: "cus_" + tenantID, Email: email, Name: name}
	f.customers[c.ID] = c
	f.createdCusts = append(f.createdCusts, c)
	return c, nil
}

func (f *fakeStripe) GetCustomer(_ context.Context, id string) (*Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return nil, errors.New("no such customer")
	}
	return c, nil
}

func (f *fakeStripe) CreateCheckoutSession(_ context.Context, p CheckoutParams) (*CheckoutSession, error) {
	f.sessions = append(f.sessions, p)
	return &CheckoutSession{ID: "cs_test", URL: "https://checkout.stripe.com/pay/cs_test"}, nil
}

func (f *fakeStripe) CreatePortalSession(_ context.Context, customerID, _ string) (string, error) {
	f.portalCalls = append(f.portalCalls, customerID)
	return "https://billing.stripe.com/session/" + customerID, nil
}

type billingFixture struct {
	svc     *Service
	subs    *MemoryStore
	tenants tenant.Store
	flags   features.Store
	stripe  *fakeStripe
	tenant  *tenant.Tenant
}

func newBillingFixture(t *testing.T) *billingFixture {
	t.Helper()
	ctx := context.Background()

	users := user.NewMemoryStore()
	tenants := tenant.NewMemoryStore()
	subs := NewMemoryStore()
	flags := features.NewMemoryStore()
	sc := newFakeStripe()

	owner := &user.User{ID: "usr_1", Email: "owner@acme.test", Name: "Owner"}
	require.NoError(t, users.Create(ctx, owner))

	tn := &tenant.Tenant{ID: "ten_1", Slug: "acme", Name: "Acme Corp", OwnerID: owner.ID}
	require.NoError(t, tenants.Create(ctx, tn))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(subs, tenants, users, flags, sc, nil, logger)
	return &billingFixture{svc: svc, subs: subs, tenants: tenants, flags: flags, stripe: sc, tenant: tn}
}

func webhookEvent(t *testing.T, eventType string, payload any) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &stripe.Event{
		ID:   "evt_test",
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestStartCheckoutCreatesCustomerFromOwner(t *testing.T) {
	fx := newBillingFixture(t)
	ctx := context.Background()

	url, err := fx.svc.StartCheckout(ctx, fx.tenant.ID, plan.Pro, "https://ok", "https://no")
	require.NoError(t, err)
	assert.Contains(t, url, "checkout.stripe.com")

	require.Len(t, fx.stripe.createdCusts, 1)
	assert.Equal(t, "owner@acme.test", fx.stripe.createdCusts[0].Email)
	assert.Equal(t, "Acme Corp", fx.stripe.createdCusts[0].Name)

	require.Len(t, fx.stripe.sessions, 1)
	sess := fx.stripe.sessions[0]
	assert.Equal(t, fx.tenant.ID, sess.TenantID)
	assert.Equal(t, plan.Pro, sess.Plan.Key)
}

func TestStartCheckoutReusesExistingCustomer(t *testing.T) {
	fx := newBillingFixture(t)
	ctx := context.Background()

	cust, err := fx.stripe.CreateCustomer(ctx, "owner@acme.test", "Acme Corp", fx.tenant.ID)
	require.NoError(t, err)
	fx.stripe.createdCusts = nil

	require.NoError(t, fx.subs.Create(ctx, &Subscription{
		ID:               "sub_local",
		TenantID:         fx.tenant.ID,
		PlanKey:          plan.Free,
		Status:           StatusTrialing,
		StripeCustomerID: cust.ID,
	}))

	_, err = fx.svc.StartCheckout(ctx, fx.tenant.ID, plan.Basic, "https://ok", "https://no")
	require.NoError(t, err)

	assert.Empty(t, fx.stripe.createdCusts, "should reuse the stored customer")
	require.Len(t, fx.stripe.sessions, 1)
	assert.Equal(t, cust.ID, fx.stripe.sessions[0].CustomerID)
}

func TestStartCheckoutUnknownPlan(t *testing.T) {
	fx := newBillingFixture(t)

	_, err := fx.svc.StartCheckout(context.Background(), fx.tenant.ID, plan.Key("platinum"), "", "")
	assert.ErrorIs(t, err, plan.ErrUnknownPlan)
	assert.Empty(t, fx.stripe.sessions)
}

func TestCreateTrial(t *testing.T) {
	fx := newBillingFixture(t)
	ctx := context.Background()

	sub, err := fx.svc.CreateTrial(ctx, fx.tenant.ID, plan.Free)
	require.NoError(t, err)
	assert.Equal(t, StatusTrialing, sub.Status)
	require.NotNil(t, sub.TrialEndsAt)
	assert.WithinDuration(t, time.Now().Add(TrialPeriod), *sub.TrialEndsAt, time.Minute)

	_, err = fx.svc.CreateTrial(ctx, fx.tenant.ID, plan.Key("nope"))
	assert.ErrorIs(t, err, plan.ErrUnknownPlan)
}

func TestCheckoutCompletedCreatesActiveSubscription(t *testing.T) {
	fx := newBillingFixture(t)
	ctx := context.Background()

	ev := webhookEvent(t, "checkout.session.completed", map[string]any{
		"id":           "cs_1",
		"customer":     "cus_ten_1",
		"subscription": "sub_stripe_1",
		"metadata":     map[string]string{"tenantId": fx.tenant.ID, "planKey": "pro"},
	})
	require.NoError(t, fx.svc.HandleEvent(ctx, ev))

	sub, err := fx.subs.GetByTenant(ctx, fx.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, sub.Status)
	assert.Equal(t, plan.Pro, sub.PlanKey)
	assert.Equal(t, "cus_ten_1", sub.StripeCustomerID)
	assert.Equal(t, "sub_stripe_1", sub.StripeSubID)
	assert.Nil(t, sub.TrialEndsAt, "live subscription should clear the trial window")

	flags, err := fx.flags.ListForTenant(ctx, fx.tenant.ID)
	require.NoError(t, err)
	byKey := map[string]bool{}
	for _, f := range flags {
		byKey[f.Key] = f.Enabled
	}
	assert.True(t, byKey["analytics"])
	assert.True(t, byKey["intake_forms"])
	assert.False(t, byKey["sso"])
}

func TestCheckoutCompletedUpdatesExistingSubscription(t *testing.T) {
	fx := newBillingFixture(t)
	ctx := context.Background()

	_, err := fx.svc.CreateTrial(ctx, fx.tenant.ID, plan.Free)
	require.NoError(t, err)

	ev := webhookEvent(t, "checkout.session.completed", map[string]any{
		"id":           "cs_2",
		"customer":     "cus_ten_1",
		"subscription": "sub_stripe_2",
		"metadata":     map[string]string{"tenantId": fx.tenant.ID, "planKey": "basic"},
	})
	require.NoError(t, fx.svc.HandleEvent(ctx, ev))

	sub, err := fx.subs.GetByTenant(ctx, fx.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.Basic, sub.PlanKey)
	assert.Equal(t, StatusActive, sub.Status)
}

func TestCheckoutCompletedWithoutStripeSubKeepsTrial(t *testing.T) {
	fx := newBillingFixture(t)
	ctx := context.Background()

	ev := webhookEvent(t, "checkout.session.completed", map[string]any{
		"id":       "cs_3",
		"customer": "cus_ten_1",
		"metadata": map[string]string{"tenantId": fx.tenant.ID, "planKey": "basic"},
	})
	require.NoError(t, fx.svc.HandleEvent(ctx, ev))

	sub, err := fx.subs.GetByTenant(ctx, fx.tenant.ID)
	require.NoError(t, err)
	require.NotNil(t, sub.TrialEndsAt)
	assert.WithinDuration(t, time.Now().Add(TrialPeriod), *sub.TrialEndsAt, time.Minute)
}

func TestCheckoutCompletedMissingMetadata(t *testing.T) {
	fx := newBillingFixture(t)

	ev := webhookEvent(t, "checkout.session.completed", map[string]any{
		"id":       "cs_4",
		"metadata": map[string]string{},
	})
	err := fx.svc.HandleEvent(context.Background(), ev)
	assert.Error(t, err)
}

func TestSubscriptionUpdated(t *testing.T) {
	fx := newBillingFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.subs.Create(ctx, &Subscription{
		ID:          "sub_local",
		TenantID:    fx.tenant.ID,
		PlanKey:     plan.Pro,
		Status:      StatusActive,
		StripeSubID: "sub_stripe_1",
	}))

	cancelAt := time.Now().Add(30 * 24 * time.Hour).Unix()
	ev := webhookEvent(t, "customer.subscription.updated", map[string]any{
		"id":        "sub_stripe_1",
		"status":    "past_due",
		"cancel_at": cancelAt,
	})
	require.NoError(t, fx.svc.HandleEvent(ctx, ev))

	sub, err := fx.subs.GetByTenant(ctx, fx.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPastDue, sub.Status)
	require.NotNil(t, sub.CancelAt)
	assert.Equal(t, cancelAt, sub.CancelAt.Unix())
}

func TestSubscriptionUpdatedUnknownIsNoop(t *testing.T) {
	fx := newBillingFixture(t)

	ev := webhookEvent(t, "customer.subscription.updated", map[string]any{
		"id":     "sub_unknown",
		"status": "active",
	})
	assert.NoError(t, fx.svc.HandleEvent(context.Background(), ev))
}

func TestSubscriptionDeletedIsIdempotent(t *testing.T) {
	fx := newBillingFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.subs.Create(ctx, &Subscription{
		ID:          "sub_local",
		TenantID:    fx.tenant.ID,
		PlanKey:     plan.Pro,
		Status:      StatusActive,
		StripeSubID: "sub_stripe_1",
	}))

	ev := webhookEvent(t, "customer.subscription.deleted", map[string]any{"id": "sub_stripe_1"})
	require.NoError(t, fx.svc.HandleEvent(ctx, ev))

	sub, err := fx.subs.GetByTenant(ctx, fx.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, sub.Status)
	require.NotNil(t, sub.CancelAt)

	// Replay the same delivery; the state must stay CANCELED.
	require.NoError(t, fx.svc.HandleEvent(ctx, ev))
	sub, err = fx.subs.GetByTenant(ctx, fx.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, sub.Status)
}

func TestPaymentFailedMarksPastDue(t *testing.T) {
	fx := newBillingFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.subs.Create(ctx, &Subscription{
		ID:          "sub_local",
		TenantID:    fx.tenant.ID,
		PlanKey:     plan.Basic,
		Status:      StatusActive,
		StripeSubID: "sub_stripe_1",
	}))

	ev := webhookEvent(t, "invoice.payment_failed", map[string]any{
		"id":           "in_1",
		"subscription": "sub_stripe_1",
	})
	require.NoError(t, fx.svc.HandleEvent(ctx, ev))

	sub, err := fx.subs.GetByTenant(ctx, fx.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPastDue, sub.Status)
}

func TestPaymentFailedUnknownIsNoop(t *testing.T) {
	fx := newBillingFixture(t)

	ev := webhookEvent(t, "invoice.payment_failed", map[string]any{
		"id":           "in_2",
		"subscription": "sub_unknown",
	})
	assert.NoError(t, fx.svc.HandleEvent(context.Background(), ev))
}

func TestUnknownEventTypeIgnored(t *testing.T) {
	fx := newBillingFixture(t)

	ev := webhookEvent(t, "charge.refunded", map[string]any{"id": "ch_1"})
	assert.NoError(t, fx.svc.HandleEvent(context.Background(), ev))
}

func TestPortalSessionRequiresCustomer(t *testing.T) {
	fx := newBillingFixture(t)
	ctx := context.Background()

	_, err := fx.svc.PortalSession(ctx, fx.tenant.ID, "https://back")
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)

	require.NoError(t, fx.subs.Create(ctx, &Subscription{
		ID:       "sub_local",
		TenantID: fx.tenant.ID,
		PlanKey:  plan.Free,
		Status:   StatusTrialing,
	}))
	_, err = fx.svc.PortalSession(ctx, fx.tenant.ID, "https://back")
	assert.ErrorIs(t, err, ErrNoCustomer)

	sub, _ := fx.subs.GetByTenant(ctx, fx.tenant.ID)
	sub.StripeCustomerID = "cus_1"
	require.NoError(t, fx.subs.Update(ctx, sub))

	url, err := fx.svc.PortalSession(ctx, fx.tenant.ID, "https://back")
	require.NoError(t, err)
	assert.Contains(t, url, "cus_1")
}
