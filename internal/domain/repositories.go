package domain

import "context"

// TenantGrantRepository answers whether a principal may declare a tenant.
type TenantGrantRepository interface {
	Grant(ctx context.Context, principalID string, tenantID TenantID) error
	Revoke(ctx context.Context, principalID string, tenantID TenantID) error
	HasGrant(ctx context.Context, principalID string, tenantID TenantID) (bool, error)
	ListForPrincipal(ctx context.Context, principalID string) ([]TenantGrant, error)
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Insert(ctx context.Context, entry *AuditEntry) error
	ListRecent(ctx context.Context, limit int) ([]AuditEntry, error)
}
