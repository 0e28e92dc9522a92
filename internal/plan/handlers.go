package plan

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler serves the public plan catalogue.
type Handler struct {
	store Store
}

// NewHandler creates a new plan handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up public plan routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/plans", h.ListPlans)
	r.GET("/plans/:key", h.GetPlan)
}

// ListPlans handles GET /api/plans
func (h *Handler) ListPlans(c *gin.Context) {
	plans, err := h.store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to list plans"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans, "count": len(plans)})
}

// GetPlan handles GET /api/plans/:key
func (h *Handler) GetPlan(c *gin.Context) {
	p, err := h.store.Get(c.Request.Context(), Key(c.Param("key")))
	if err != nil {
		if err == ErrUnknownPlan {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "unknown plan"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": p})
}
