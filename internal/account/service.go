// Package account handles signup and signin, wiring a new user to their
// tenant, default chatbot, and trial subscription in one step.
package account

import (
	"context"
	"strings"
	"time"

	"github.com/mhollis/chatdeck/internal/auth"
	"github.com/mhollis/chatdeck/internal/billing"
	"github.com/mhollis/chatdeck/internal/chatbot"
	"github.com/mhollis/chatdeck/internal/features"
	"github.com/mhollis/chatdeck/internal/idgen"
	"github.com/mhollis/chatdeck/internal/logging"
	"github.com/mhollis/chatdeck/internal/plan"
	"github.com/mhollis/chatdeck/internal/tenant"
	"github.com/mhollis/chatdeck/internal/user"
	"github.com/mhollis/chatdeck/internal/validation"
)

// MinPasswordLength is the minimum accepted password length at signup.
const MinPasswordLength = 8

// Events receives domain events for the live activity feed. May be nil.
type Events interface {
	Emit(eventType, tenantSlug string, payload map[string]any)
}

// Service creates accounts and issues session tokens.
type Service struct {
	users    user.Store
	tenants  tenant.Store
	chatbots chatbot.Store
	billing  *billing.Service
	flags    features.Store
	tokens   *auth.Manager
	events   Events
	now      func() time.Time
}

// NewService creates the account service.
func NewService(users user.Store, tenants tenant.Store, chatbots chatbot.Store,
	bs *billing.Service, flags features.Store, tokens *auth.Manager, events Events) *Service {
	return &Service{
		users:    users,
		tenants:  tenants,
		chatbots: chatbots,
		billing:  bs,
		flags:    flags,
		tokens:   tokens,
		events:   events,
		now:      time.Now,
	}
}

// SignupInput is what a new account needs.
type SignupInput struct {
	Email    string
	Password string
	Name     string
	Plan     string
}

// SignupResult is everything provisioned for a new account.
type SignupResult struct {
	User         *user.User            `json:"user"`
	Tenant       *tenant.Tenant        `json:"tenant"`
	Subscription *billing.Subscription `json:"subscription,omitempty"`
	Token        string                `json:"token"`
}

// Validate checks the signup input.
func (in SignupInput) Validate() validation.FieldErrors {
	return validation.Check(
		validation.Required("email", in.Email),
		validation.Email("email", in.Email),
		validation.Required("password", in.Password),
		validation.MinLength("password", in.Password, MinPasswordLength),
		validation.Required("name", in.Name),
		validation.MaxLength("name", in.Name, 200),
	)
}

// Signup provisions a user, their tenant, OWNER membership, default chatbot
// config and branding, feature flags, and a trial subscription.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*SignupResult, error) {
	if errs := in.Validate(); len(errs) > 0 {
		return nil, errs
	}

	now := s.now()
	email := strings.ToLower(strings.TrimSpace(in.Email))

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &user.User{
		ID:           idgen.WithPrefix("usr_"),
		Email:        email,
		PasswordHash: hash,
		Name:         validation.SanitizeString(in.Name, 200),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	t := &tenant.Tenant{
		ID:        idgen.WithPrefix("ten_"),
		Slug:      s.availableSlug(ctx, validation.SlugFromEmail(email)),
		Name:      u.Name + "'s Organization",
		OwnerID:   u.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.tenants.Create(ctx, t); err != nil {
		return nil, err
	}

	m := &tenant.Membership{
		ID:        idgen.WithPrefix("mem_"),
		UserID:    u.ID,
		TenantID:  t.ID,
		Role:      tenant.RoleOwner,
		CreatedAt: now,
	}
	if err := s.tenants.CreateMembership(ctx, m); err != nil {
		return nil, err
	}

	if err := s.chatbots.CreateConfig(ctx, chatbot.DefaultConfig(t.ID, now)); err != nil {
		return nil, err
	}
	if err := s.chatbots.CreateTheme(ctx, chatbot.DefaultTheme(t.ID, now)); err != nil {
		return nil, err
	}

	result := &SignupResult{User: u, Tenant: t}

	key := plan.Key(in.Plan)
	if in.Plan == "" {
		key = plan.Free
	}
	if plan.Valid(key) {
		sub, err := s.billing.CreateTrial(ctx, t.ID, key)
		if err != nil {
			return nil, err
		}
		result.Subscription = sub

		flags, err := plan.FlagSet(key)
		if err == nil {
			if err := s.flags.ReplaceForTenant(ctx, t.ID, flags); err != nil {
				logging.L(ctx).Warn("feature flag mirror failed", "tenant_id", t.ID, "error", err)
			}
		}
	}

	token, err := s.tokens.CreateToken(u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	result.Token = token

	if s.events != nil {
		s.events.Emit("signup", t.Slug, map[string]any{"tenantName": t.Name})
	}
	return result, nil
}

// availableSlug keeps the derived slug when free and suffixes it when a
// different tenant already holds it.
func (s *Service) availableSlug(ctx context.Context, slug string) string {
	if slug == "" || !validation.IsValidSlug(slug) {
		slug = "team"
	}
	if _, err := s.tenants.GetBySlug(ctx, slug); err == tenant.ErrTenantNotFound {
		return slug
	}
	return slug + "-" + idgen.Hex(3)
}

// Signin verifies credentials and returns a signed session token.
func (s *Service) Signin(ctx context.Context, email, password string) (*user.User, string, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if err == user.ErrUserNotFound {
			return nil, "", auth.ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := auth.ComparePassword(u.PasswordHash, password); err != nil {
		return nil, "", auth.ErrInvalidCredentials
	}

	token, err := s.tokens.CreateToken(u.ID, u.Email)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}
