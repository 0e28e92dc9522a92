package tenant

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
)

// PostgresStore persists tenants and memberships in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed tenant store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Create(ctx context.Context, t *Tenant) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO tenants (id, slug, name, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.Slug, t.Name, t.OwnerID, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrSlugTaken
		}
		return err
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Tenant, error) {
	return p.scanTenant(p.db.QueryRowContext(ctx, `
		SELECT id, slug, name, owner_id, created_at, updated_at
		FROM tenants WHERE id = $1`, id))
}

func (p *PostgresStore) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	return p.scanTenant(p.db.QueryRowContext(ctx, `
		SELECT id, slug, name, owner_id, created_at, updated_at
		FROM tenants WHERE slug = $1`, slug))
}

// Update writes mutable tenant fields. Slug is immutable and not updated.
func (p *PostgresStore) Update(ctx context.Context, t *Tenant) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE tenants SET name = $1, updated_at = $2
		WHERE id = $3`,
		t.Name, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrTenantNotFound
	}
	return nil
}

func (p *PostgresStore) CreateMembership(ctx context.Context, m *Membership) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO memberships (id, user_id, tenant_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.UserID, m.TenantID, string(m.Role), m.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrMemberExists
		}
		return err
	}
	return nil
}

func (p *PostgresStore) GetMembership(ctx context.Context, userID, tenantID string) (*Membership, error) {
	m := &Membership{}
	var role string
	err := p.db.QueryRowContext(ctx, `
		SELECT id, user_id, tenant_id, role, created_at
		FROM memberships WHERE user_id = $1 AND tenant_id = $2`,
		userID, tenantID,
	).Scan(&m.ID, &m.UserID, &m.TenantID, &role, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrMembershipNotFound
	}
	if err != nil {
		return nil, err
	}
	m.Role = Role(role)
	return m, nil
}

func (p *PostgresStore) ListForUser(ctx context.Context, userID string) ([]Summary, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT t.id, t.slug, t.name, m.role
		FROM memberships m
		JOIN tenants t ON t.id = m.tenant_id
		WHERE m.user_id = $1
		ORDER BY t.slug`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Summary
	for rows.Next() {
		var s Summary
		var role string
		if err := rows.Scan(&s.ID, &s.Slug, &s.Name, &role); err != nil {
			return nil, err
		}
		s.Role = Role(role)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *PostgresStore) CountMembers(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM memberships WHERE tenant_id = $1`, tenantID).Scan(&count)
	return count, err
}

func (p *PostgresStore) scanTenant(row *sql.Row) (*Tenant, error) {
	t := &Tenant{}
	err := row.Scan(&t.ID, &t.Slug, &t.Name, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

var _ Store = (*PostgresStore)(nil)
