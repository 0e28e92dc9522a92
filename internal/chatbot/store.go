package chatbot

import "context"

// Store persists chatbot configs and branding themes, one of each per tenant.
type Store interface {
	CreateConfig(ctx context.Context, c *Config) error
	GetConfig(ctx context.Context, tenantID string) (*Config, error)
	UpdateConfig(ctx context.Context, c *Config) error

	CreateTheme(ctx context.Context, t *Theme) error
	GetTheme(ctx context.Context, tenantID string) (*Theme, error)
	UpdateTheme(ctx context.Context, t *Theme) error
}
