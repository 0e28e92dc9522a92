package billing

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mhollis/chatdeck/internal/auth"
	"github.com/mhollis/chatdeck/internal/plan"
	"github.com/mhollis/chatdeck/internal/tenant"
)

// Handler provides the checkout and portal endpoints.
type Handler struct {
	service  *Service
	resolver *tenant.Resolver
}

// NewHandler creates a new billing handler.
func NewHandler(service *Service, resolver *tenant.Resolver) *Handler {
	return &Handler{service: service, resolver: resolver}
}

// RegisterRoutes sets up authenticated billing routes. The webhook route is
// registered separately because it is unauthenticated.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/stripe/checkout", h.StartCheckout)
	r.POST("/stripe/portal", h.PortalSession)
	r.GET("/tenants/:slug/subscription", h.GetSubscription)
}

// StartCheckout handles POST /api/stripe/checkout. The tenant comes from the
// request host, so the dashboard always upgrades the tenant it is served for.
func (h *Handler) StartCheckout(c *gin.Context) {
	t, ok := h.requireHostTenant(c)
	if !ok {
		return
	}

	var req struct {
		PlanKey    string `json:"planKey" binding:"required"`
		SuccessURL string `json:"successUrl"`
		CancelURL  string `json:"cancelUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "planKey required"})
		return
	}

	url, err := h.service.StartCheckout(c.Request.Context(), t.ID, plan.Key(req.PlanKey), req.SuccessURL, req.CancelURL)
	if err != nil {
		switch err {
		case plan.ErrUnknownPlan:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_plan", "message": "unknown plan key"})
		case ErrStripeDisabled:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "billing_unavailable", "message": "billing is not configured"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "checkout_failed", "message": "failed to create checkout session"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// PortalSession handles POST /api/stripe/portal.
func (h *Handler) PortalSession(c *gin.Context) {
	t, ok := h.requireHostTenant(c)
	if !ok {
		return
	}

	var req struct {
		ReturnURL string `json:"returnUrl"`
	}
	_ = c.ShouldBindJSON(&req)

	url, err := h.service.PortalSession(c.Request.Context(), t.ID, req.ReturnURL)
	if err != nil {
		switch err {
		case ErrSubscriptionNotFound, ErrNoCustomer:
			c.JSON(http.StatusBadRequest, gin.H{"error": "no_billing_account", "message": "tenant has no billing account yet"})
		case ErrStripeDisabled:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "billing_unavailable", "message": "billing is not configured"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "portal_failed", "message": "failed to create portal session"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// GetSubscription handles GET /api/tenants/:slug/subscription.
func (h *Handler) GetSubscription(c *gin.Context) {
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

	sub, err := h.service.GetSubscription(c.Request.Context(), t.ID)
	if err != nil {
		if err == ErrSubscriptionNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "no subscription for tenant"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to load subscription"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

// requireHostTenant resolves the tenant from the request host and verifies
// the caller is a member.
func (h *Handler) requireHostTenant(c *gin.Context) (*tenant.Tenant, bool) {
	userID := auth.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "authentication required"})
		return nil, false
	}

	t, err := h.resolver.RequireByHost(c.Request.Context(), c.Request.Host)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "no tenant for this host"})
		return nil, false
	}

	if _, _, err := h.resolver.RequireAccess(c.Request.Context(), userID, t.Slug); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "not a member of this tenant"})
		return nil, false
	}
	return t, true
}
