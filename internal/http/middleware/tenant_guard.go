// Package middleware holds HTTP guards shared by the API routes.
package middleware

import (
	"net/http"

	"github.com/manigandan-posana/vebops/internal/common"
	"github.com/manigandan-posana/vebops/internal/tenant"
)

// RequireTenant rejects requests that reached it without a resolved tenant.
// header is named in the error so clients know what to send.
func RequireTenant(header string) func(http.Handler) http.Handler {
	if header == "" {
		header = tenant.DefaultHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := tenant.FromContext(r.Context()); !ok {
				common.JSONError(w, http.StatusBadRequest, "TENANT_REQUIRED", "tenant is required",
					map[string]string{"header": header})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
