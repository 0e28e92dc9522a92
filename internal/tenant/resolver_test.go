package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T) (*Resolver, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &Tenant{ID: "ten_1", Slug: "acme", Name: "Acme", OwnerID: "usr_1"}))
	require.NoError(t, store.CreateMembership(ctx, &Membership{
		ID: "mem_1", UserID: "usr_1", TenantID: "ten_1", Role: RoleOwner,
	}))
	return NewResolver(store, "chatdeck.io"), store
}

func TestExtractSubdomain(t *testing.T) {
	r, _ := newTestResolver(t)

	tests := []struct {
		host string
		want string
	}{
		// Production hosts.
		{"acme.chatdeck.io", "acme"},
		{"acme.chatdeck.io:443", "acme"},
		{"chatdeck.io", ""},
		{"www.chatdeck.io", ""},
		{"example.com", ""},
		// Local development.
		{"acme.localhost", ""}, // no root domain suffix
		{"127.0.0.1:3000", ""},
		// Preview deployments.
		{"acme---feature-branch.vercel.app", "acme"},
		{"something.vercel.app", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, r.ExtractSubdomain(tc.host), "host %q", tc.host)
	}
}

func TestExtractSubdomain_LocalDevRoot(t *testing.T) {
	store := NewMemoryStore()
	r := NewResolver(store, "localhost:3000")

	assert.Equal(t, "acme", r.ExtractSubdomain("acme.localhost:3000"))
	assert.Equal(t, "acme", r.ExtractSubdomain("acme.localhost"))
	assert.Equal(t, "", r.ExtractSubdomain("localhost:3000"))
}

func TestResolveByHost(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	// Known tenant.
	tn, err := r.ResolveByHost(ctx, "acme.chatdeck.io")
	require.NoError(t, err)
	require.NotNil(t, tn)
	assert.Equal(t, "ten_1", tn.ID)

	// No subdomain: not an error, just nothing.
	tn, err = r.ResolveByHost(ctx, "chatdeck.io")
	require.NoError(t, err)
	assert.Nil(t, tn)

	// Unknown slug: also nothing.
	tn, err = r.ResolveByHost(ctx, "ghost.chatdeck.io")
	require.NoError(t, err)
	assert.Nil(t, tn)
}

func TestRequireByHost(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	tn, err := r.RequireByHost(ctx, "acme.chatdeck.io")
	require.NoError(t, err)
	assert.Equal(t, "acme", tn.Slug)

	_, err = r.RequireByHost(ctx, "ghost.chatdeck.io")
	assert.ErrorIs(t, err, ErrTenantNotFound)

	_, err = r.RequireByHost(ctx, "chatdeck.io")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestRequireAccess(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	// Member: tenant plus real role.
	tn, role, err := r.RequireAccess(ctx, "usr_1", "acme")
	require.NoError(t, err)
	assert.Equal(t, "ten_1", tn.ID)
	assert.Equal(t, RoleOwner, role)

	// Unknown tenant.
	_, _, err = r.RequireAccess(ctx, "usr_1", "ghost")
	assert.ErrorIs(t, err, ErrTenantNotFound)

	// Known tenant, non-member.
	_, _, err = r.RequireAccess(ctx, "usr_2", "acme")
	assert.ErrorIs(t, err, ErrAccessDenied)
}
