package tenant

import (
	"context"
	"strings"
)

// Resolver maps request hosts to tenants and checks membership access.
type Resolver struct {
	store      Store
	rootDomain string
}

// NewResolver creates a resolver for the given root domain (e.g. "chatdeck.io").
func NewResolver(store Store, rootDomain string) *Resolver {
	return &Resolver{store: store, rootDomain: rootDomain}
}

// ExtractSubdomain pulls the tenant slug out of a request host. Three host
// shapes are recognised:
//   - local development: "acme.localhost:3000"
//   - preview deployments: "acme---branch.vercel.app"
//   - production: "acme.{rootDomain}"
//
// Returns "" when the host carries no subdomain (bare root domain, www, or
// an unrelated host).
func (r *Resolver) ExtractSubdomain(host string) string {
	hostname := stripPort(host)
	root := stripPort(r.rootDomain)

	if strings.Contains(hostname, "localhost") || strings.Contains(hostname, "127.0.0.1") {
		// Leftmost label immediately before ".{root}".
		if i := strings.Index(hostname, "."+root); i > 0 {
			label := hostname[:i]
			if j := strings.LastIndex(label, "."); j >= 0 {
				label = label[j+1:]
			}
			return label
		}
		return ""
	}

	if strings.Contains(hostname, "---") && strings.HasSuffix(hostname, ".vercel.app") {
		return strings.SplitN(hostname, "---", 2)[0]
	}

	if hostname != root && hostname != "www."+root && strings.HasSuffix(hostname, "."+root) {
		return strings.TrimSuffix(hostname, "."+root)
	}
	return ""
}

// ResolveByHost looks up the tenant addressed by a request host. Returns
// (nil, nil) when the host carries no subdomain or no tenant matches the
// slug. No role claim is made for host-resolved tenants; authenticated
// mutations must go through RequireAccess.
func (r *Resolver) ResolveByHost(ctx context.Context, host string) (*Tenant, error) {
	slug := r.ExtractSubdomain(host)
	if slug == "" {
		return nil, nil
	}
	t, err := r.store.GetBySlug(ctx, slug)
	if err == ErrTenantNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// RequireByHost is ResolveByHost but fails with ErrTenantNotFound instead
// of returning nothing.
func (r *Resolver) RequireByHost(ctx context.Context, host string) (*Tenant, error) {
	t, err := r.ResolveByHost(ctx, host)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTenantNotFound
	}
	return t, nil
}

// RequireAccess verifies that a user is a member of the tenant addressed by
// slug. Returns the tenant and the caller's actual membership role, or
// ErrTenantNotFound / ErrAccessDenied.
func (r *Resolver) RequireAccess(ctx context.Context, userID, slug string) (*Tenant, Role, error) {
	t, err := r.store.GetBySlug(ctx, slug)
	if err != nil {
		return nil, "", err
	}
	m, err := r.store.GetMembership(ctx, userID, t.ID)
	if err == ErrMembershipNotFound {
		return nil, "", ErrAccessDenied
	}
	if err != nil {
		return nil, "", err
	}
	return t, m.Role, nil
}

func stripPort(host string) string {
	if i := strings.Index(host, ":"); i >= 0 {
		return host[:i]
	}
	return host
}
