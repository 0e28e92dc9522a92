package chatbot

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mhollis/chatdeck/internal/auth"
	"github.com/mhollis/chatdeck/internal/logging"
	"github.com/mhollis/chatdeck/internal/metrics"
	"github.com/mhollis/chatdeck/internal/tenant"
	"github.com/mhollis/chatdeck/internal/traces"
	"github.com/mhollis/chatdeck/internal/usage"
)

// DefaultTokenLimit is the fixed monthly token budget enforced on the chat
// endpoint. TODO: derive from the tenant's subscription plan limits.
const DefaultTokenLimit = 1000

// Events receives domain events for the live activity feed. May be nil.
type Events interface {
	Emit(eventType, tenantSlug string, payload map[string]any)
}

// Handler provides the public chat endpoint and settings endpoints.
type Handler struct {
	store     Store
	tenants   tenant.Store
	resolver  *tenant.Resolver
	meter     *usage.Meter
	responder Responder
	events    Events
}

// NewHandler creates a new chatbot handler.
func NewHandler(store Store, tenants tenant.Store, resolver *tenant.Resolver,
	meter *usage.Meter, responder Responder, events Events) *Handler {
	return &Handler{
		store:     store,
		tenants:   tenants,
		resolver:  resolver,
		meter:     meter,
		responder: responder,
		events:    events,
	}
}

// RegisterPublicRoutes sets up the unauthenticated chat route.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/chat", h.Chat)
}

// RegisterProtectedRoutes sets up authenticated settings routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.GET("/tenants/:slug/chatbot", h.GetConfig)
	r.PUT("/tenants/:slug/chatbot", h.UpdateConfig)
	r.GET("/tenants/:slug/branding", h.GetTheme)
	r.PUT("/tenants/:slug/branding", h.UpdateTheme)
}

// Chat handles POST /api/chat, the public widget endpoint.
func (h *Handler) Chat(c *gin.Context) {
	var req struct {
		Message    string `json:"message" binding:"required,min=1,max=1000"`
		TenantSlug string `json:"tenantSlug"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "message must be 1-1000 characters"})
		return
	}

	ctx, span := traces.StartSpan(c.Request.Context(), "chat.respond")
	defer span.End()

	// Tenant from explicit slug, else from the request host.
	var t *tenant.Tenant
	var err error
	if req.TenantSlug != "" {
		t, err = h.tenants.GetBySlug(ctx, req.TenantSlug)
		if err == tenant.ErrTenantNotFound {
			t = nil
			err = nil
		}
	} else {
		t, err = h.resolver.ResolveByHost(ctx, c.Request.Host)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to resolve tenant"})
		return
	}
	if t == nil {
		metrics.ChatRequestsTotal.WithLabelValues("none", "tenant_not_found").Inc()
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "tenant not found"})
		return
	}
	span.SetAttributes(traces.TenantID(t.ID), traces.TenantSlug(t.Slug))
	ctx = logging.WithTenant(ctx, t.Slug)

	check, err := h.meter.CheckLimit(ctx, t.ID, usage.TypeTokens, DefaultTokenLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to check usage"})
		return
	}
	if !check.Allowed {
		metrics.LimitDenialsTotal.WithLabelValues(usage.TypeTokens).Inc()
		metrics.ChatRequestsTotal.WithLabelValues(t.Slug, "limit_exceeded").Inc()
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":   "usage_limit_exceeded",
			"message": "Usage limit exceeded. Please upgrade your plan.",
			"current": check.Current,
			"limit":   check.Limit,
		})
		return
	}

	cfg, err := h.store.GetConfig(ctx, t.ID)
	if err != nil {
		if err == ErrConfigNotFound {
			c.JSON(http.StatusBadRequest, gin.H{"error": "chatbot_not_configured", "message": "chatbot not configured"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to load chatbot config"})
		return
	}

	response, err := h.responder.Respond(ctx, cfg, req.Message)
	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues(t.Slug, "responder_error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to generate response"})
		return
	}

	tokens := int64(len(req.Message) + len(response))
	if _, err := h.meter.Record(ctx, t.ID, usage.TypeTokens, tokens, map[string]string{
		"messageLength":  strconv.Itoa(len(req.Message)),
		"responseLength": strconv.Itoa(len(response)),
	}); err != nil {
		logging.L(ctx).Error("failed to record token usage", "tenant_id", t.ID, "error", err)
	}
	if _, err := h.meter.Record(ctx, t.ID, usage.TypeAPICalls, 1, map[string]string{
		"endpoint": "/api/chat",
	}); err != nil {
		logging.L(ctx).Error("failed to record api call usage", "tenant_id", t.ID, "error", err)
	}

	if h.events != nil {
		h.events.Emit("usage", t.Slug, map[string]any{
			"type":     usage.TypeTokens,
			"quantity": tokens,
		})
	}

	// The request that crosses the limit still succeeds; report zero headroom
	// rather than a negative number.
	remaining := check.Limit - check.Current - tokens
	if remaining < 0 {
		remaining = 0
	}

	metrics.ChatRequestsTotal.WithLabelValues(t.Slug, "ok").Inc()
	c.JSON(http.StatusOK, gin.H{
		"response": response,
		"usage": gin.H{
			"tokens":    tokens,
			"remaining": remaining,
		},
	})
}

// GetConfig handles GET /api/tenants/:slug/chatbot
func (h *Handler) GetConfig(c *gin.Context) {
	t, _, ok := h.requireAccess(c)
	if !ok {
		return
	}
	cfg, err := h.store.GetConfig(c.Request.Context(), t.ID)
	if err != nil {
		if err == ErrConfigNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "chatbot not configured"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"config": cfg})
}

// UpdateConfig handles PUT /api/tenants/:slug/chatbot
func (h *Handler) UpdateConfig(c *gin.Context) {
	t, role, ok := h.requireAccess(c)
	if !ok {
		return
	}
	if !role.CanEdit() {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "viewers cannot modify the chatbot"})
		return
	}

	var req struct {
		Model        string  `json:"model" binding:"required"`
		Temperature  float64 `json:"temperature" binding:"min=0,max=2"`
		SystemPrompt string  `json:"systemPrompt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "model required, temperature must be 0-2"})
		return
	}

	cfg, err := h.store.GetConfig(c.Request.Context(), t.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "chatbot not configured"})
		return
	}
	cfg.Model = req.Model
	cfg.Temperature = req.Temperature
	cfg.SystemPrompt = req.SystemPrompt
	cfg.UpdatedAt = time.Now()

	if err := h.store.UpdateConfig(c.Request.Context(), cfg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to update chatbot config"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"config": cfg})
}

// GetTheme handles GET /api/tenants/:slug/branding
func (h *Handler) GetTheme(c *gin.Context) {
	t, _, ok := h.requireAccess(c)
	if !ok {
		return
	}
	theme, err := h.store.GetTheme(c.Request.Context(), t.ID)
	if err != nil {
		if err == ErrThemeNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "branding theme not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"theme": theme})
}

// UpdateTheme handles PUT /api/tenants/:slug/branding
func (h *Handler) UpdateTheme(c *gin.Context) {
	t, role, ok := h.requireAccess(c)
	if !ok {
		return
	}
	if !role.CanEdit() {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "viewers cannot modify branding"})
		return
	}

	var req struct {
		Primary    string `json:"primary"`
		Secondary  string `json:"secondary"`
		Accent     string `json:"accent"`
		Surface    string `json:"surface"`
		Font       string `json:"font"`
		DarkMode   bool   `json:"darkMode"`
		LogoURL    string `json:"logoUrl"`
		FaviconURL string `json:"faviconUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "invalid body"})
		return
	}

	theme, err := h.store.GetTheme(c.Request.Context(), t.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "branding theme not found"})
		return
	}
	if req.Primary != "" {
		theme.Primary = req.Primary
	}
	if req.Secondary != "" {
		theme.Secondary = req.Secondary
	}
	if req.Accent != "" {
		theme.Accent = req.Accent
	}
	if req.Surface != "" {
		theme.Surface = req.Surface
	}
	if req.Font != "" {
		theme.Font = req.Font
	}
	theme.DarkMode = req.DarkMode
	theme.LogoURL = req.LogoURL
	theme.FaviconURL = req.FaviconURL
	theme.UpdatedAt = time.Now()

	if err := h.store.UpdateTheme(c.Request.Context(), theme); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to update branding"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"theme": theme})
}

func (h *Handler) requireAccess(c *gin.Context) (*tenant.Tenant, tenant.Role, bool) {
	userID := auth.GetUserID(c)
	slug := c.Param("slug")

	t, role, err := h.resolver.RequireAccess(c.Request.Context(), userID, slug)
	if err != nil {
		switch err {
		case tenant.ErrTenantNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "tenant not found"})
		case tenant.ErrAccessDenied:
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "not a member of this tenant"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		}
		return nil, "", false
	}
	return t, role, true
}
