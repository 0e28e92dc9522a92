// Package usage provides durable usage metering with a fast counter cache.
//
// Every usage event lands in an append-only log (the source of truth) and
// increments a monthly counter keyed per tenant and usage type. Limit checks
// read the counter only; the reconciler periodically rewrites counters from
// the log to recover from drift.
package usage

import (
	"errors"
	"fmt"
	"time"
)

// Well-known usage types.
const (
	TypeTokens   = "tokens"
	TypeAPICalls = "api_calls"
)

// ErrEventNotFound is returned for lookups of unknown events.
var ErrEventNotFound = errors.New("usage: event not found")

// Event is one append-only usage record.
type Event struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenantId"`
	Type      string            `json:"type"`
	Quantity  int64             `json:"quantity"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// TypeTotal is one row of a monthly breakdown.
type TypeTotal struct {
	Type     string `json:"type"`
	Quantity int64  `json:"quantity"`
}

// LimitCheck is the result of comparing current usage against a plan limit.
type LimitCheck struct {
	Allowed bool  `json:"allowed"`
	Current int64 `json:"current"`
	Limit   int64 `json:"limit"`
}

// CounterKey builds the monthly counter key for a tenant and usage type,
// e.g. "usage:ten_abc:tokens:2026-08".
func CounterKey(tenantID, usageType string, month time.Time) string {
	return fmt.Sprintf("usage:%s:%s:%s", tenantID, usageType, month.Format("2006-01"))
}

// MonthStart returns midnight on the first of t's month, in t's location.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
