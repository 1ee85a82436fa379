package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"lakefence/internal/domain"
	"lakefence/internal/repository"
)

// AuthorizationService manages principals, API keys, and tenant grants.
type AuthorizationService struct {
	principals *repository.PrincipalRepo
	apiKeys    *repository.APIKeyRepo
	grants     domain.TenantGrantRepository
}

func NewAuthorizationService(principals *repository.PrincipalRepo, apiKeys *repository.APIKeyRepo, grants domain.TenantGrantRepository) *AuthorizationService {
	return &AuthorizationService{principals: principals, apiKeys: apiKeys, grants: grants}
}

// EnsurePrincipal returns the named principal, creating it if absent.
func (s *AuthorizationService) EnsurePrincipal(ctx context.Context, name string) (*domain.Principal, error) {
	p, err := s.principals.GetByName(ctx, name)
	if err == nil {
		return p, nil
	}
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		return nil, err
	}
	return s.principals.Create(ctx, name)
}

// IssueAPIKey stores the digest of plaintextKey for the principal. The
// caller keeps the plaintext; it is never persisted.
func (s *AuthorizationService) IssueAPIKey(ctx context.Context, principalID, plaintextKey string) error {
	return s.apiKeys.Create(ctx, principalID, HashAPIKey(plaintextKey))
}

// GrantTenant authorizes the principal for the tenant. Granting twice is not
// an error.
func (s *AuthorizationService) GrantTenant(ctx context.Context, principalID string, tenantID domain.TenantID) error {
	err := s.grants.Grant(ctx, principalID, tenantID)
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		return nil
	}
	return err
}

// RevokeTenant removes the principal's grant for the tenant.
func (s *AuthorizationService) RevokeTenant(ctx context.Context, principalID string, tenantID domain.TenantID) error {
	return s.grants.Revoke(ctx, principalID, tenantID)
}

// Grants lists the tenants the principal may declare.
func (s *AuthorizationService) Grants(ctx context.Context, principalID string) ([]domain.TenantGrant, error) {
	return s.grants.ListForPrincipal(ctx, principalID)
}

// HashAPIKey returns the hex SHA-256 digest used to store and look up API
// keys.
func HashAPIKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
