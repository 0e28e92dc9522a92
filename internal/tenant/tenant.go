// Package tenant provides multi-tenancy for the Chatdeck platform.
package tenant

import (
	"errors"
	"time"
)

// Errors
var (
	ErrTenantNotFound     = errors.New("tenant: not found")
	ErrSlugTaken          = errors.New("tenant: slug already taken")
	ErrAccessDenied       = errors.New("tenant: access denied")
	ErrMemberExists       = errors.New("tenant: user is already a member")
	ErrMembershipNotFound = errors.New("tenant: membership not found")
)

// Role is a member's access level within a tenant.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleEditor Role = "EDITOR"
	RoleViewer Role = "VIEWER"
)

// ValidRole returns true if the role is recognised.
func ValidRole(r Role) bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// CanEdit returns true for roles allowed to change tenant settings.
func (r Role) CanEdit() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleEditor:
		return true
	}
	return false
}

// Tenant represents an organisation using the platform. Slug is the
// subdomain label and is immutable after creation.
type Tenant struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Membership links a user to a tenant with a role. A user holds at most
// one membership per tenant.
type Membership struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	TenantID  string    `json:"tenantId"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary is a tenant entry in a user's tenant-switcher list.
type Summary struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}
