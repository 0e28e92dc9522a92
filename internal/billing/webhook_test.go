package billing

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/mhollis/chatdeck/internal/features"
	"github.com/mhollis/chatdeck/internal/tenant"
	"github.com/mhollis/chatdeck/internal/user"
)

const testSigningKey = "whsec_test_secret"

func newWebhookRouter(t *testing.T) (*gin.Engine, *MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	subs := NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(subs, tenant.NewMemoryStore(), user.NewMemoryStore(),
		features.NewMemoryStore(), newFakeStripe(), nil, logger)

	r := gin.New()
	r.POST("/api/stripe/webhook", NewWebhookHandler(svc, testSigningKey).Handle)
	return r, subs
}

func signedRequest(t *testing.T, eventType string, object any) *http.Request {
	t.Helper()

	raw, err := json.Marshal(object)
	require.NoError(t, err)
	body, err := json.Marshal(map[string]any{
		"id":   "evt_test",
		"type": eventType,
		"data": map[string]any{"object": json.RawMessage(raw)},
	})
	require.NoError(t, err)

	now := time.Now()
	sig := webhook.ComputeSignature(now, body, testSigningKey)
	header := fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(sig))

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", strings.NewReader(string(body)))
	req.Header.Set("Stripe-Signature", header)
	return req
}

func TestWebhookRequiresSignature(t *testing.T) {
	r, _ := newWebhookRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", strings.NewReader("{}"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing_signature")
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	r, _ := newWebhookRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", strings.NewReader("{}"))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_signature")
}

func TestWebhookAcceptsSignedEvent(t *testing.T) {
	r, subs := newWebhookRouter(t)

	req := signedRequest(t, "checkout.session.completed", map[string]any{
		"id":           "cs_1",
		"customer":     "cus_1",
		"subscription": "sub_stripe_1",
		"metadata":     map[string]string{"tenantId": "ten_1", "planKey": "pro"},
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "received")

	sub, err := subs.GetByTenant(req.Context(), "ten_1")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, sub.Status)
}

func TestWebhookProcessingErrorReturns400(t *testing.T) {
	r, _ := newWebhookRouter(t)

	// Missing tenantId/planKey metadata makes processing fail.
	req := signedRequest(t, "checkout.session.completed", map[string]any{
		"id":       "cs_2",
		"metadata": map[string]string{},
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "webhook_error")
}

func TestWebhookIgnoresUnknownEventType(t *testing.T) {
	r, _ := newWebhookRouter(t)

	req := signedRequest(t, "charge.refunded", map[string]any{"id": "ch_1"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
