package billing

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/mhollis/chatdeck/internal/logging"
	"github.com/mhollis/chatdeck/internal/metrics"
)

const maxWebhookBody = 1 << 20 // 1MB, well above any Stripe event

// WebhookHandler verifies and processes Stripe webhook deliveries.
type WebhookHandler struct {
	service    *Service
	signingKey string
}

// NewWebhookHandler creates the webhook endpoint handler.
func NewWebhookHandler(service *Service, signingKey string) *WebhookHandler {
	return &WebhookHandler{service: service, signingKey: signingKey}
}

// Handle is POST /api/stripe/webhook. The raw body is needed for signature
// verification, so this route must not go through any body-consuming
// middleware.
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		metrics.StripeWebhookEventsTotal.WithLabelValues("unknown", "read_error").Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_body",
			"message": "Failed to read request body",
		})
		return
	}

	sig := c.GetHeader("Stripe-Signature")
	if sig == "" {
		metrics.StripeWebhookEventsTotal.WithLabelValues("unknown", "missing_signature").Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "missing_signature",
			"message": "Stripe-Signature header is required",
		})
		return
	}

	event, err := webhook.ConstructEventWithOptions(body, sig, h.signingKey,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		metrics.StripeWebhookEventsTotal.WithLabelValues("unknown", "invalid_signature").Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_signature",
			"message": "Webhook signature verification failed",
		})
		return
	}

	if err := h.service.HandleEvent(c.Request.Context(), &event); err != nil {
		logging.L(c.Request.Context()).Error("stripe webhook processing failed",
			"type", event.Type, "event_id", event.ID, "error", err)
		metrics.StripeWebhookEventsTotal.WithLabelValues(string(event.Type), "error").Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "webhook_error",
			"message": "Webhook processing failed",
		})
		return
	}

	metrics.StripeWebhookEventsTotal.WithLabelValues(string(event.Type), "ok").Inc()
	c.JSON(http.StatusOK, gin.H{"received": true})
}
