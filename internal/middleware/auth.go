package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"queryd/internal/domain"
)

// APIKeyLookup resolves a hashed API key to its owning principal.
type APIKeyLookup interface {
	PrincipalForKeyHash(ctx context.Context, keyHash string) (string, error)
}

// HashAPIKey returns the hex-encoded SHA-256 of an API key, the form keys
// are stored and looked up in.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Auth tries JWT Bearer auth first, then API key. Returns 401 if both fail.
// keys may be nil to disable API key auth.
func Auth(validator JWTValidator, keys APIKeyLookup, apiKeyHeader string) func(http.Handler) http.Handler {
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				tokenStr := strings.TrimPrefix(auth, "Bearer ")
				claims, err := validator.Validate(r.Context(), tokenStr)
				if err == nil && claims.Subject != "" {
					ctx := domain.WithPrincipal(r.Context(), domain.ContextPrincipal{
						Name: claims.Subject,
						Type: "user",
					})
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			if apiKey := r.Header.Get(apiKeyHeader); apiKey != "" && keys != nil {
				principal, err := keys.PrincipalForKeyHash(r.Context(), HashAPIKey(apiKey))
				if err == nil {
					ctx := domain.WithPrincipal(r.Context(), domain.ContextPrincipal{
						Name: principal,
						Type: "api_key",
					})
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
				"code":    401,
				"message": "unauthorized: provide a valid JWT Bearer token or API key",
			})
		})
	}
}
