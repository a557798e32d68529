package api

import (
	"net/http"
	"strings"

	"github.com/practicehub/ledger/internal/auth"
	"github.com/practicehub/ledger/internal/domain"
)

// Authenticate resolves the API key on each request and stores the caller
// identity in the request context. Organization membership is checked later,
// per command.
func Authenticate(keys auth.KeyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawKey := extractAPIKey(r)
			if rawKey == "" {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "API key required")
				return
			}

			id, err := keys.Resolve(r.Context(), rawKey)
			if err != nil {
				writeDomainError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// extractAPIKey reads "Authorization: Bearer <key>", falling back to
// X-API-Key.
func extractAPIKey(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if key, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(key)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

func statusFor(err error) int {
	switch domain.Code(err) {
	case "validation":
		return http.StatusBadRequest
	case "unauthenticated":
		return http.StatusUnauthorized
	case "forbidden":
		return http.StatusForbidden
	case "not_found":
		return http.StatusNotFound
	case "conflict":
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
