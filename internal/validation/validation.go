// Package validation provides input validation helpers for the API.
package validation

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// MaxStringLength is the maximum length for free-form string fields
const MaxStringLength = 10000

var (
	// emailRegex is a pragmatic format check, not a full RFC 5322 parser
	emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	// slugRegex validates tenant subdomain slugs
	slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,62}$`)
	// nonAlnumRegex strips everything outside [a-z0-9] when deriving slugs
	nonAlnumRegex = regexp.MustCompile(`[^a-z0-9]`)
)

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidEmail checks if a string looks like an email address
func IsValidEmail(email string) bool {
	return len(email) <= 254 && emailRegex.MatchString(email)
}

// IsValidSlug checks if a string is a valid tenant slug
func IsValidSlug(slug string) bool {
	return slugRegex.MatchString(slug)
}

// SlugFromEmail derives a tenant slug from the local part of an email:
// everything before the first '@', lowercased, non-alphanumerics stripped.
func SlugFromEmail(email string) string {
	local := strings.SplitN(email, "@", 2)[0]
	return nonAlnumRegex.ReplaceAllString(strings.ToLower(local), "")
}

// SanitizeString removes dangerous characters and limits length
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	s = strings.ReplaceAll(s, "\x00", "")
	return s
}

// FieldError represents a validation error on a single field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors is a collection of field validation errors
type FieldErrors []FieldError

// Error implements the error interface
func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Field + ": " + e[0].Message
}

// Check runs validators and collects their errors
func Check(validators ...func() *FieldError) FieldErrors {
	var errs FieldErrors
	for _, v := range validators {
		if err := v(); err != nil {
			errs = append(errs, *err)
		}
	}
	return errs
}

// Required checks if a field is non-empty
func Required(field, value string) func() *FieldError {
	return func() *FieldError {
		if strings.TrimSpace(value) == "" {
			return &FieldError{Field: field, Message: "is required"}
		}
		return nil
	}
}

// Email checks if a field is a well-formed email address
func Email(field, value string) func() *FieldError {
	return func() *FieldError {
		if value == "" {
			return nil // use Required for required fields
		}
		if !IsValidEmail(value) {
			return &FieldError{Field: field, Message: "must be a valid email address"}
		}
		return nil
	}
}

// MinLength checks if a field meets a minimum length
func MinLength(field, value string, min int) func() *FieldError {
	return func() *FieldError {
		if value != "" && len(value) < min {
			return &FieldError{Field: field, Message: "must be at least " + strconv.Itoa(min) + " characters"}
		}
		return nil
	}
}

// MaxLength checks if a field exceeds a maximum length
func MaxLength(field, value string, max int) func() *FieldError {
	return func() *FieldError {
		if len(value) > max {
			return &FieldError{Field: field, Message: "must be at most " + strconv.Itoa(max) + " characters"}
		}
		return nil
	}
}
