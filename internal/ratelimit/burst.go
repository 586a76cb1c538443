package ratelimit

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/manigandan-posana/vebops/internal/common"
)

// Burst returns a per-instance limiter for expensive write routes. Requests
// are keyed by the authenticated user when known, else by tenant or address.
// A non-positive max disables it.
func Burst(max int, window time.Duration) func(http.Handler) http.Handler {
	if max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(max, window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if id, ok := common.UserID(r.Context()); ok && id != "" {
				return "user:" + id, nil
			}
			return KeyByTenantOrIP(r), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many submissions", nil)
		}),
	)
}
