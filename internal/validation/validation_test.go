package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugFromEmail(t *testing.T) {
	cases := map[string]string{
		"a@b.com":           "a",
		"alice@example.com": "alice",
		"Bob.Smith@x.io":    "bobsmith",
		"first+tag@x.io":    "firsttag",
		"UPPER@x.io":        "upper",
		"a@b@c.com":         "a",
		"@x.io":             "",
		"no-at-sign":        "noatsign",
	}
	for email, want := range cases {
		assert.Equal(t, want, SlugFromEmail(email), "email %q", email)
	}
}

func TestIsValidSlug(t *testing.T) {
	valid := []string{"a", "acme", "acme-corp", "team-1a2b3c", "a1"}
	for _, s := range valid {
		assert.True(t, IsValidSlug(s), "slug %q should be valid", s)
	}
	invalid := []string{"", "-acme", "Acme", "acme_corp", "acme.corp"}
	for _, s := range invalid {
		assert.False(t, IsValidSlug(s), "slug %q should be invalid", s)
	}
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("a@b.com"))
	assert.True(t, IsValidEmail("first.last@sub.example.io"))
	assert.False(t, IsValidEmail("no-at-sign"))
	assert.False(t, IsValidEmail("two@@b.com"))
	assert.False(t, IsValidEmail("spaces in@b.com"))
}

func TestCheckCollectsFieldErrors(t *testing.T) {
	errs := Check(
		Required("email", ""),
		Email("email", ""),
		Required("name", "Ann"),
		MinLength("password", "short", 8),
	)
	assert.Len(t, errs, 2)
	assert.Equal(t, "email", errs[0].Field)
	assert.Equal(t, "password", errs[1].Field)
}
