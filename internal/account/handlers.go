package account

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mhollis/chatdeck/internal/auth"
	"github.com/mhollis/chatdeck/internal/metrics"
	"github.com/mhollis/chatdeck/internal/user"
	"github.com/mhollis/chatdeck/internal/validation"
)

// Handler provides the signup and signin endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a new account handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up the unauthenticated auth routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/auth/signup", h.Signup)
	r.POST("/auth/signin", h.Signin)
}

// Signup handles POST /api/auth/signup
func (h *Handler) Signup(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Plan     string `json:"plan"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.SignupsTotal.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "malformed request body"})
		return
	}

	result, err := h.service.Signup(c.Request.Context(), SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Plan:     req.Plan,
	})
	if err != nil {
		var fieldErrs validation.FieldErrors
		switch {
		case errors.As(err, &fieldErrs):
			metrics.SignupsTotal.WithLabelValues("invalid").Inc()
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_failed",
				"message": fieldErrs.Error(),
				"fields":  fieldErrs,
			})
		case errors.Is(err, user.ErrEmailTaken):
			metrics.SignupsTotal.WithLabelValues("email_taken").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "email_taken", "message": "an account with this email already exists"})
		default:
			metrics.SignupsTotal.WithLabelValues("error").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "signup_failed", "message": "failed to create account"})
		}
		return
	}

	metrics.SignupsTotal.WithLabelValues("ok").Inc()
	c.JSON(http.StatusCreated, result)
}

// Signin handles POST /api/auth/signin
func (h *Handler) Signin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "email and password required"})
		return
	}

	u, token, err := h.service.Signin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials", "message": "invalid email or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signin_failed", "message": "failed to sign in"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": u, "token": token})
}
