//go:build integration

package features

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/mhollis/chatdeck/internal/testutil"
)

func seedTenant(t *testing.T, db *sql.DB, tenantID, slug string) {
	t.Helper()
	ctx := context.Background()
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, name, created_at, updated_at)
		VALUES ($1, $2, 'h', 'Owner', now(), now())`,
		"usr_"+slug, slug+"@example.com")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO tenants (id, slug, name, owner_id, created_at, updated_at)
		VALUES ($1, $2, $2, $3, now(), now())`,
		tenantID, slug, "usr_"+slug)
	if err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
}

func TestPostgres_ReplaceForTenant(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()
	seedTenant(t, db, "ten_f1", "flags-one")

	err := store.ReplaceForTenant(ctx, "ten_f1", map[string]bool{
		"scheduling":   true,
		"analytics":    false,
		"intake_forms": true,
	})
	if err != nil {
		t.Fatalf("ReplaceForTenant failed: %v", err)
	}

	flags, err := store.ListForTenant(ctx, "ten_f1")
	if err != nil {
		t.Fatalf("ListForTenant failed: %v", err)
	}
	if len(flags) != 3 {
		t.Fatalf("Expected 3 flags, got %d", len(flags))
	}

	f, err := store.Get(ctx, "ten_f1", "analytics")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if f.Enabled {
		t.Error("Expected analytics disabled")
	}
}

func TestPostgres_ReplaceIsFullOverwrite(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()
	seedTenant(t, db, "ten_f2", "flags-two")

	err := store.ReplaceForTenant(ctx, "ten_f2", map[string]bool{
		"scheduling": true,
		"sso":        true,
	})
	if err != nil {
		t.Fatalf("ReplaceForTenant failed: %v", err)
	}

	// Downgrade: sso is gone from the new set, scheduling flips off.
	err = store.ReplaceForTenant(ctx, "ten_f2", map[string]bool{
		"scheduling": false,
	})
	if err != nil {
		t.Fatalf("ReplaceForTenant failed: %v", err)
	}

	flags, err := store.ListForTenant(ctx, "ten_f2")
	if err != nil {
		t.Fatalf("ListForTenant failed: %v", err)
	}
	if len(flags) != 1 {
		t.Fatalf("Expected 1 flag after overwrite, got %d", len(flags))
	}
	if flags[0].Key != "scheduling" || flags[0].Enabled {
		t.Errorf("Unexpected flag after overwrite: %+v", flags[0])
	}

	if _, err := store.Get(ctx, "ten_f2", "sso"); !errors.Is(err, ErrFlagNotFound) {
		t.Errorf("Expected sso flag deleted, got %v", err)
	}
}

func TestPostgres_ReplaceWithEmptySetClearsFlags(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()
	seedTenant(t, db, "ten_f3", "flags-three")

	if err := store.ReplaceForTenant(ctx, "ten_f3", map[string]bool{"analytics": true}); err != nil {
		t.Fatalf("ReplaceForTenant failed: %v", err)
	}
	if err := store.ReplaceForTenant(ctx, "ten_f3", map[string]bool{}); err != nil {
		t.Fatalf("ReplaceForTenant failed: %v", err)
	}

	flags, err := store.ListForTenant(ctx, "ten_f3")
	if err != nil {
		t.Fatalf("ListForTenant failed: %v", err)
	}
	if len(flags) != 0 {
		t.Errorf("Expected no flags after empty replace, got %d", len(flags))
	}
}
