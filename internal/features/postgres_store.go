package features

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/mhollis/chatdeck/internal/idgen"
)

// PostgresStore persists feature flags in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed feature flag store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ReplaceForTenant makes the stored flag set equal to the given map in one
// transaction: stale keys are deleted, the rest upserted, so a webhook-driven
// re-sync never leaves the tenant with a partial or leftover flag set.
func (p *PostgresStore) ReplaceForTenant(ctx context.Context, tenantID string, flags map[string]bool) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	keys := make([]string, 0, len(flags))
	for key := range flags {
		keys = append(keys, key)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM feature_flags
		WHERE tenant_id = $1 AND key <> ALL($2)`,
		tenantID, pq.Array(keys),
	); err != nil {
		return err
	}

	now := time.Now()
	for key, enabled := range flags {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO feature_flags (id, tenant_id, key, enabled, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (tenant_id, key) DO UPDATE SET
				enabled = EXCLUDED.enabled,
				updated_at = EXCLUDED.updated_at`,
			idgen.WithPrefix("ff_"), tenantID, key, enabled, now, now,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *PostgresStore) ListForTenant(ctx context.Context, tenantID string) ([]Flag, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, tenant_id, key, enabled, created_at, updated_at
		FROM feature_flags WHERE tenant_id = $1 ORDER BY key`, tenantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var flags []Flag
	for rows.Next() {
		var f Flag
		if err := rows.Scan(&f.ID, &f.TenantID, &f.Key, &f.Enabled, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		flags = append(flags, f)
	}
	return flags, rows.Err()
}

func (p *PostgresStore) Get(ctx context.Context, tenantID, key string) (*Flag, error) {
	f := &Flag{}
	err := p.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, key, enabled, created_at, updated_at
		FROM feature_flags WHERE tenant_id = $1 AND key = $2`, tenantID, key,
	).Scan(&f.ID, &f.TenantID, &f.Key, &f.Enabled, &f.CreatedAt, &f.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrFlagNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

var _ Store = (*PostgresStore)(nil)
