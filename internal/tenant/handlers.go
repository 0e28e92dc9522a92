package tenant

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mhollis/chatdeck/internal/auth"
	"github.com/mhollis/chatdeck/internal/validation"
)

// Handler provides HTTP endpoints for tenant listing and access.
type Handler struct {
	store    Store
	resolver *Resolver
}

// NewHandler creates a new tenant handler.
func NewHandler(store Store, resolver *Resolver) *Handler {
	return &Handler{store: store, resolver: resolver}
}

// RegisterRoutes sets up authenticated tenant routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/tenants", h.ListTenants)
	r.GET("/tenants/:slug", h.GetTenant)
	r.PATCH("/tenants/:slug", h.UpdateTenant)
}

// ListTenants handles GET /api/tenants, the caller's tenant-switcher list.
func (h *Handler) ListTenants(c *gin.Context) {
	userID := auth.GetUserID(c)

	tenants, err := h.store.ListForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to list tenants"})
		return
	}
	if tenants == nil {
		tenants = []Summary{}
	}
	c.JSON(http.StatusOK, gin.H{"tenants": tenants, "count": len(tenants)})
}

// GetTenant handles GET /api/tenants/:slug
func (h *Handler) GetTenant(c *gin.Context) {
	t, role, ok := h.requireAccess(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenant": t, "role": role})
}

// UpdateTenant handles PATCH /api/tenants/:slug. Rename only; slug is immutable.
func (h *Handler) UpdateTenant(c *gin.Context) {
	t, role, ok := h.requireAccess(c)
	if !ok {
		return
	}
	if !role.CanEdit() {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "viewers cannot modify the tenant"})
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "name required"})
		return
	}

	t.Name = validation.SanitizeString(req.Name, 200)
	t.UpdatedAt = time.Now()
	if err := h.store.Update(c.Request.Context(), t); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to update tenant"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenant": t})
}

// requireAccess resolves the slug param and verifies the caller's membership.
// Sends the error response and returns ok=false when access is denied.
func (h *Handler) requireAccess(c *gin.Context) (*Tenant, Role, bool) {
	userID := auth.GetUserID(c)
	slug := c.Param("slug")

	t, role, err := h.resolver.RequireAccess(c.Request.Context(), userID, slug)
	if err != nil {
		switch err {
		case ErrTenantNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "tenant not found"})
		case ErrAccessDenied:
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "not a member of this tenant"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		}
		return nil, "", false
	}
	return t, role, true
}
