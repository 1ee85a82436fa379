package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"lakefence/internal/domain"
)

type principalKey struct{}

// WithPrincipal stores the authenticated principal in the context.
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (*domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*domain.Principal)
	return p, ok
}

// PrincipalResolver maps a validated JWT identity to a principal record,
// creating it on first sight.
type PrincipalResolver interface {
	EnsurePrincipal(ctx context.Context, name string) (*domain.Principal, error)
}

// APIKeyLookup resolves an API key digest to its principal.
type APIKeyLookup interface {
	GetPrincipalByKeyHash(ctx context.Context, keyHash string) (*domain.Principal, error)
}

// AuthConfig wires the authentication middleware.
type AuthConfig struct {
	Validator    JWTValidator // nil disables JWT auth
	Resolver     PrincipalResolver
	APIKeys      APIKeyLookup // nil disables API key auth
	APIKeyHeader string       // defaults to X-API-Key
	NameClaim    string       // JWT claim used as principal name (defaults to sub)
}

// Auth tries JWT first, then API key. Returns 401 if both fail.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	header := cfg.APIKeyHeader
	if header == "" {
		header = "X-API-Key"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Validator != nil {
				if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
					tokenStr := strings.TrimPrefix(auth, "Bearer ")
					if claims, err := cfg.Validator.Validate(r.Context(), tokenStr); err == nil {
						name := claims.Claim(cfg.NameClaim)
						if name != "" {
							principal, err := cfg.Resolver.EnsurePrincipal(r.Context(), name)
							if err == nil {
								next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
								return
							}
						}
					}
				}
			}

			if cfg.APIKeys != nil {
				if apiKey := r.Header.Get(header); apiKey != "" {
					hash := sha256.Sum256([]byte(apiKey))
					principal, err := cfg.APIKeys.GetPrincipalByKeyHash(r.Context(), hex.EncodeToString(hash[:]))
					if err == nil {
						next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
						return
					}
				}
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"code":    401,
				"message": "unauthorized: provide a valid JWT Bearer token or API key",
			})
		})
	}
}
