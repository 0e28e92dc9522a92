package tenant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandlerTest(t *testing.T) (*gin.Engine, *MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &Tenant{ID: "ten_1", Slug: "acme", Name: "Acme", OwnerID: "usr_1"}))
	require.NoError(t, store.CreateMembership(ctx, &Membership{
		ID: "mem_1", UserID: "usr_1", TenantID: "ten_1", Role: RoleOwner,
	}))
	require.NoError(t, store.CreateMembership(ctx, &Membership{
		ID: "mem_2", UserID: "usr_2", TenantID: "ten_1", Role: RoleViewer,
	}))

	resolver := NewResolver(store, "chatdeck.io")
	h := NewHandler(store, resolver)

	router := gin.New()
	// Stand-in for the auth middleware: identity from a test header.
	router.Use(func(c *gin.Context) {
		if uid := c.GetHeader("X-Test-User"); uid != "" {
			c.Set("user_id", uid)
		}
	})
	h.RegisterRoutes(router.Group("/api"))
	return router, store
}

func TestListTenants(t *testing.T) {
	router, _ := setupHandlerTest(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/tenants", nil)
	req.Header.Set("X-Test-User", "usr_1")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"acme"`)
	assert.Contains(t, w.Body.String(), `"OWNER"`)
}

func TestListTenants_Empty(t *testing.T) {
	router, _ := setupHandlerTest(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/tenants", nil)
	req.Header.Set("X-Test-User", "usr_nobody")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)
}

func TestGetTenant_Access(t *testing.T) {
	router, _ := setupHandlerTest(t)

	// Member sees the tenant with their role.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/tenants/acme", nil)
	req.Header.Set("X-Test-User", "usr_2")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"VIEWER"`)

	// Non-member gets 403.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/tenants/acme", nil)
	req.Header.Set("X-Test-User", "usr_3")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Unknown slug gets 404.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/tenants/ghost", nil)
	req.Header.Set("X-Test-User", "usr_1")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateTenant(t *testing.T) {
	router, store := setupHandlerTest(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/tenants/acme",
		strings.NewReader(`{"name":"Acme Incorporated"}`))
	req.Header.Set("X-Test-User", "usr_1")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	got, _ := store.Get(context.Background(), "ten_1")
	assert.Equal(t, "Acme Incorporated", got.Name)

	// Viewers cannot rename.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPatch, "/api/tenants/acme",
		strings.NewReader(`{"name":"Nope"}`))
	req.Header.Set("X-Test-User", "usr_2")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
