package plan

import (
	"context"
	"database/sql"
	"encoding/json"
)

// PostgresStore persists the plan catalogue in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed plan store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Upsert(ctx context.Context, pl *Plan) error {
	featuresJSON, err := json.Marshal(pl.Features)
	if err != nil {
		return err
	}
	limitsJSON, err := json.Marshal(pl.Limits)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO plans (key, label, price_monthly, price_yearly, features, limits)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO UPDATE SET
			label = EXCLUDED.label,
			price_monthly = EXCLUDED.price_monthly,
			price_yearly = EXCLUDED.price_yearly,
			features = EXCLUDED.features,
			limits = EXCLUDED.limits`,
		string(pl.Key), pl.Label, pl.PriceMonthly, pl.PriceYearly, featuresJSON, limitsJSON,
	)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, key Key) (*Plan, error) {
	return p.scanPlan(p.db.QueryRowContext(ctx, `
		SELECT key, label, price_monthly, price_yearly, features, limits
		FROM plans WHERE key = $1`, string(key)))
}

func (p *PostgresStore) List(ctx context.Context) ([]*Plan, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT key, label, price_monthly, price_yearly, features, limits
		FROM plans ORDER BY price_monthly`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var plans []*Plan
	for rows.Next() {
		pl := &Plan{}
		var key string
		var featuresJSON, limitsJSON []byte
		if err := rows.Scan(&key, &pl.Label, &pl.PriceMonthly, &pl.PriceYearly,
			&featuresJSON, &limitsJSON); err != nil {
			return nil, err
		}
		pl.Key = Key(key)
		_ = json.Unmarshal(featuresJSON, &pl.Features)
		_ = json.Unmarshal(limitsJSON, &pl.Limits)
		plans = append(plans, pl)
	}
	return plans, rows.Err()
}

func (p *PostgresStore) scanPlan(row *sql.Row) (*Plan, error) {
	pl := &Plan{}
	var key string
	var featuresJSON, limitsJSON []byte
	err := row.Scan(&key, &pl.Label, &pl.PriceMonthly, &pl.PriceYearly,
		&featuresJSON, &limitsJSON)
	if err == sql.ErrNoRows {
		return nil, ErrUnknownPlan
	}
	if err != nil {
		return nil, err
	}
	pl.Key = Key(key)
	_ = json.Unmarshal(featuresJSON, &pl.Features)
	_ = json.Unmarshal(limitsJSON, &pl.Limits)
	return pl, nil
}

var _ Store = (*PostgresStore)(nil)
