// Package chatbot provides per-tenant chatbot configuration, branding, and
// the public chat endpoint.
package chatbot

import (
	"errors"
	"time"
)

// Errors
var (
	ErrConfigNotFound = errors.New("chatbot: config not found")
	ErrThemeNotFound  = errors.New("chatbot: branding theme not found")
)

// Config drives a tenant's chatbot behaviour.
type Config struct {
	TenantID     string    `json:"tenantId"`
	Model        string    `json:"model"`
	Temperature  float64   `json:"temperature"`
	SystemPrompt string    `json:"systemPrompt"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Theme is a tenant's chat-widget branding.
type Theme struct {
	TenantID   string    `json:"tenantId"`
	Primary    string    `json:"primary"`
	Secondary  string    `json:"secondary"`
	Accent     string    `json:"accent"`
	Surface    string    `json:"surface"`
	Font       string    `json:"font"`
	DarkMode   bool      `json:"darkMode"`
	LogoURL    string    `json:"logoUrl,omitempty"`
	FaviconURL string    `json:"faviconUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// DefaultConfig returns the config a tenant starts with at signup.
func DefaultConfig(tenantID string, now time.Time) *Config {
	return &Config{
		TenantID:     tenantID,
		Model:        "gpt-3.5-turbo",
		Temperature:  0.7,
		SystemPrompt: "You are a helpful AI assistant.",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// DefaultTheme returns the branding a tenant starts with at signup.
func DefaultTheme(tenantID string, now time.Time) *Theme {
	return &Theme{
		TenantID:  tenantID,
		Primary:   "#3b82f6",
		Secondary: "#64748b",
		Accent:    "#f59e0b",
		Surface:   "#ffffff",
		Font:      "Inter",
		DarkMode:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
