package billing

import (
	"context"
	"database/sql"

	"github.com/mhollis/chatdeck/internal/plan"
)

// PostgresStore persists subscriptions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed subscription store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Create(ctx context.Context, s *Subscription) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO subscriptions (id, tenant_id, plan_key, status, trial_ends_at,
			stripe_customer_id, stripe_sub_id, cancel_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.TenantID, string(s.PlanKey), string(s.Status), s.TrialEndsAt,
		nullable(s.StripeCustomerID), nullable(s.StripeSubID), s.CancelAt,
		s.CreatedAt, s.UpdatedAt,
	)
	return err
}

func (p *PostgresStore) GetByTenant(ctx context.Context, tenantID string) (*Subscription, error) {
	return p.scanSubscription(p.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, plan_key, status, trial_ends_at,
			stripe_customer_id, stripe_sub_id, cancel_at, created_at, updated_at
		FROM subscriptions WHERE tenant_id = $1`, tenantID))
}

func (p *PostgresStore) GetByStripeSubID(ctx context.Context, stripeSubID string) (*Subscription, error) {
	return p.scanSubscription(p.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, plan_key, status, trial_ends_at,
			stripe_customer_id, stripe_sub_id, cancel_at, created_at, updated_at
		FROM subscriptions WHERE stripe_sub_id = $1`, stripeSubID))
}

func (p *PostgresStore) Update(ctx context.Context, s *Subscription) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE subscriptions SET plan_key = $1, status = $2, trial_ends_at = $3,
			stripe_customer_id = $4, stripe_sub_id = $5, cancel_at = $6, updated_at = $7
		WHERE id = $8`,
		string(s.PlanKey), string(s.Status), s.TrialEndsAt,
		nullable(s.StripeCustomerID), nullable(s.StripeSubID), s.CancelAt,
		s.UpdatedAt, s.ID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (p *PostgresStore) scanSubscription(row *sql.Row) (*Subscription, error) {
	s := &Subscription{}
	var planKey, status string
	var customerID, subID sql.NullString
	err := row.Scan(&s.ID, &s.TenantID, &planKey, &status, &s.TrialEndsAt,
		&customerID, &subID, &s.CancelAt, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	s.PlanKey = plan.Key(planKey)
	s.Status = Status(status)
	if customerID.Valid {
		s.StripeCustomerID = customerID.String
	}
	if subID.Valid {
		s.StripeSubID = subID.String
	}
	return s, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Store = (*PostgresStore)(nil)
