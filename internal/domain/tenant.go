// Package domain defines core types, interfaces, and errors for lakefence.
package domain

import "time"

// TenantID identifies a logical partition of the shared sales table.
type TenantID string

// SessionKey is the opaque identifier of one execution session. It is
// assigned by the engine layer (one key per physical DuckDB connection),
// never chosen by a caller. Pooled connections reuse keys across logically
// distinct requests, which is the central hazard the context broker
// defends against.
type SessionKey string

// TenantRecord is the single channel through which tenant identity crosses
// from the secure executor into the tenant-filtered view. At most one record
// exists per session key at any instant.
type TenantRecord struct {
	SessionKey SessionKey
	TenantID   TenantID
	CreatedAt  time.Time
}

// Principal is an authenticated caller of the HTTP API.
type Principal struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// TenantGrant authorizes a principal to declare a tenant on Execute calls.
type TenantGrant struct {
	ID          string
	PrincipalID string
	TenantID    TenantID
	CreatedAt   time.Time
}

// AuditEntry records one secure-executor invocation.
type AuditEntry struct {
	ID           string
	Principal    string
	TenantID     TenantID
	SQLText      string
	Status       string // ALLOWED, DENIED, ERROR
	ErrorMessage *string
	DurationMs   *int64
	CreatedAt    time.Time
}

// Audit status values.
const (
	AuditAllowed = "ALLOWED"
	AuditDenied  = "DENIED"
	AuditError   = "ERROR"
)
