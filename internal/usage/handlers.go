package usage

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mhollis/chatdeck/internal/auth"
	"github.com/mhollis/chatdeck/internal/tenant"
)

// Handler provides HTTP endpoints for usage reporting.
type Handler struct {
	meter    *Meter
	resolver *tenant.Resolver
}

// NewHandler creates a new usage handler.
func NewHandler(meter *Meter, resolver *tenant.Resolver) *Handler {
	return &Handler{meter: meter, resolver: resolver}
}

// RegisterRoutes sets up authenticated usage routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/tenants/:slug/usage", h.GetUsage)
}

// GetUsage handles GET /api/tenants/:slug/usage: fast counters plus the
// durable monthly breakdown.
func (h *Handler) GetUsage(c *gin.Context) {
	userID := auth.GetUserID(c)
	slug := c.Param("slug")

	t, _, err := h.resolver.RequireAccess(c.Request.Context(), userID, slug)
	if err != nil {
		switch err {
		case tenant.ErrTenantNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "tenant not found"})
		case tenant.ErrAccessDenied:
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "not a member of this tenant"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		}
		return
	}

	breakdown, err := h.meter.Breakdown(c.Request.Context(), t.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to load usage"})
		return
	}
	if breakdown == nil {
		breakdown = []TypeTotal{}
	}

	current := gin.H{}
	for _, usageType := range []string{TypeTokens, TypeAPICalls} {
		val, err := h.meter.Current(c.Request.Context(), t.ID, usageType)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to load usage"})
			return
		}
		current[usageType] = val
	}

	c.JSON(http.StatusOK, gin.H{
		"tenantId":  t.ID,
		"current":   current,
		"breakdown": breakdown,
	})
}
