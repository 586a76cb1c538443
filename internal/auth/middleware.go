package auth

import (
	"net/http"
	"strings"

	"github.com/manigandan-posana/vebops/internal/common"
	"github.com/manigandan-posana/vebops/internal/tenant"
)

// Middleware authenticates requests with backend-issued bearer tokens.
type Middleware struct {
	Verifier *Verifier
}

// RequireAuth rejects requests without a valid token. On success the user id
// and the raw token are stored on the context so backend calls act as the caller.
// A token bound to a tenant must match the tenant resolved for the request.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Verifier == nil {
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "authentication not configured", nil)
			return
		}
		token := bearerToken(r)
		if token == "" {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		claims, err := m.Verifier.Verify(token)
		if err != nil {
			common.WriteError(w, err)
			return
		}
		if claims.TenantID != "" {
			if id, ok := tenant.FromContext(r.Context()); ok && id != tenant.Normalize(claims.TenantID) {
				common.JSONError(w, http.StatusForbidden, "TENANT_MISMATCH", "token was issued for another tenant", nil)
				return
			}
		}
		ctx := common.WithUserID(r.Context(), claims.UserID)
		ctx = common.WithAccessToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ForwardToken keeps the caller's bearer token for backend calls without
// verifying it. The backend remains the judge of the token.
func ForwardToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			r = r.WithContext(common.WithAccessToken(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
