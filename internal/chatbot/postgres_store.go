package chatbot

import (
	"context"
	"database/sql"
)

// PostgresStore persists chatbot configs and themes in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed chatbot store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) CreateConfig(ctx context.Context, c *Config) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO chatbot_configs (tenant_id, model, temperature, system_prompt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.TenantID, c.Model, c.Temperature, c.SystemPrompt, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (p *PostgresStore) GetConfig(ctx context.Context, tenantID string) (*Config, error) {
	c := &Config{}
	err := p.db.QueryRowContext(ctx, `
		SELECT tenant_id, model, temperature, system_prompt, created_at, updated_at
		FROM chatbot_configs WHERE tenant_id = $1`, tenantID,
	).Scan(&c.TenantID, &c.Model, &c.Temperature, &c.SystemPrompt, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (p *PostgresStore) UpdateConfig(ctx context.Context, c *Config) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE chatbot_configs SET model = $1, temperature = $2, system_prompt = $3, updated_at = $4
		WHERE tenant_id = $5`,
		c.Model, c.Temperature, c.SystemPrompt, c.UpdatedAt, c.TenantID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrConfigNotFound
	}
	return nil
}

func (p *PostgresStore) CreateTheme(ctx context.Context, t *Theme) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO branding_themes (tenant_id, primary_color, secondary_color, accent_color,
			surface_color, font, dark_mode, logo_url, favicon_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.TenantID, t.Primary, t.Secondary, t.Accent, t.Surface, t.Font, t.DarkMode,
		t.LogoURL, t.FaviconURL, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

func (p *PostgresStore) GetTheme(ctx context.Context, tenantID string) (*Theme, error) {
	t := &Theme{}
	err := p.db.QueryRowContext(ctx, `
		SELECT tenant_id, primary_color, secondary_color, accent_color, surface_color,
			font, dark_mode, logo_url, favicon_url, created_at, updated_at
		FROM branding_themes WHERE tenant_id = $1`, tenantID,
	).Scan(&t.TenantID, &t.Primary, &t.Secondary, &t.Accent, &t.Surface,
		&t.Font, &t.DarkMode, &t.LogoURL, &t.FaviconURL, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrThemeNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (p *PostgresStore) UpdateTheme(ctx context.Context, t *Theme) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE branding_themes SET primary_color = $1, secondary_color = $2, accent_color = $3,
			surface_color = $4, font = $5, dark_mode = $6, logo_url = $7, favicon_url = $8,
			updated_at = $9
		WHERE tenant_id = $10`,
		t.Primary, t.Secondary, t.Accent, t.Surface, t.Font, t.DarkMode,
		t.LogoURL, t.FaviconURL, t.UpdatedAt, t.TenantID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrThemeNotFound
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
