package usage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// PostgresStore persists usage events in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed usage store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Insert(ctx context.Context, e *Event) error {
	metadataJSON, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO usage_events (id, tenant_id, type, quantity, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.TenantID, e.Type, e.Quantity, metadataJSON, e.CreatedAt,
	)
	return err
}

func (p *PostgresStore) MonthlyTotal(ctx context.Context, tenantID, usageType string, monthStart time.Time) (int64, error) {
	var total int64
	err := p.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity), 0) FROM usage_events
		WHERE tenant_id = $1 AND type = $2
		  AND created_at >= $3 AND created_at < $4`,
		tenantID, usageType, monthStart, monthStart.AddDate(0, 1, 0),
	).Scan(&total)
	return total, err
}

func (p *PostgresStore) Breakdown(ctx context.Context, tenantID string, monthStart time.Time) ([]TypeTotal, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT type, COALESCE(SUM(quantity), 0) FROM usage_events
		WHERE tenant_id = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY type ORDER BY type`,
		tenantID, monthStart, monthStart.AddDate(0, 1, 0))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []TypeTotal
	for rows.Next() {
		var tt TypeTotal
		if err := rows.Scan(&tt.Type, &tt.Quantity); err != nil {
			return nil, err
		}
		out = append(out, tt)
	}
	return out, rows.Err()
}

func (p *PostgresStore) Types(ctx context.Context, tenantID string, monthStart time.Time) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT DISTINCT type FROM usage_events
		WHERE tenant_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY type`,
		tenantID, monthStart, monthStart.AddDate(0, 1, 0))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var types []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (p *PostgresStore) ActiveTenants(ctx context.Context, monthStart time.Time) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT DISTINCT tenant_id FROM usage_events
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY tenant_id`,
		monthStart, monthStart.AddDate(0, 1, 0))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tenants []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		tenants = append(tenants, id)
	}
	return tenants, rows.Err()
}

var _ Store = (*PostgresStore)(nil)
