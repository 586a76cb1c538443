package security

import (
	"net/http"
	"strconv"
	"strings"
)

// Headers sets hardening headers on every response. Totals and documents are
// tenant data, so responses are never cacheable.
type Headers struct {
	Enable     bool
	EnableHSTS bool
	// HSTSMaxAge is in seconds; zero means one year.
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
}

var apiHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Cache-Control", "no-store"},
}

// Middleware returns next wrapped with the configured headers.
func (h Headers) Middleware(next http.Handler) http.Handler {
	if !h.Enable {
		return next
	}
	hsts := h.hstsValue()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		for _, kv := range apiHeaders {
			header.Set(kv[0], kv[1])
		}
		if hsts != "" && isHTTPS(r) {
			header.Set("Strict-Transport-Security", hsts)
		}
		next.ServeHTTP(w, r)
	})
}

func (h Headers) hstsValue() string {
	if !h.EnableHSTS {
		return ""
	}
	maxAge := h.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = 365 * 24 * 60 * 60
	}
	v := "max-age=" + strconv.Itoa(maxAge)
	if h.HSTSIncludeSubdomains {
		v += "; includeSubDomains"
	}
	return v
}

// isHTTPS reports TLS on the connection or, behind a terminating proxy, an
// https X-Forwarded-Proto.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https")
}
