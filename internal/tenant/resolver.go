package tenant

import (
	"net"
	"net/http"
	"strings"
)

// DefaultHeader is the request header naming the tenant.
const DefaultHeader = "X-Tenant-ID"

// Resolver finds the tenant of a request from a header, then from the
// subdomain of Host, then from DefaultTenant.
type Resolver struct {
	HeaderName    string
	RootDomain    string
	DefaultTenant string
}

// NewResolver builds a Resolver. An empty headerName means DefaultHeader.
func NewResolver(headerName, rootDomain, defaultTenant string) *Resolver {
	if headerName == "" {
		headerName = DefaultHeader
	}
	return &Resolver{
		HeaderName:    headerName,
		RootDomain:    strings.Trim(strings.ToLower(strings.TrimSpace(rootDomain)), "."),
		DefaultTenant: Normalize(defaultTenant),
	}
}

// Middleware stores the resolved tenant on the request context. Requests with
// no resolvable tenant pass through untouched.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := r.Resolve(req)
		if id == "" {
			id = r.DefaultTenant
		}
		if id != "" {
			req = req.WithContext(WithTenant(req.Context(), id))
		}
		next.ServeHTTP(w, req)
	})
}

// Resolve returns the tenant named by the header or the Host subdomain, or "".
func (r *Resolver) Resolve(req *http.Request) string {
	if r == nil || req == nil {
		return ""
	}
	if id := Normalize(req.Header.Get(r.HeaderName)); id != "" {
		return id
	}
	return Normalize(r.subdomain(hostname(req.Host)))
}

// subdomain returns the left-most label of host. With a root domain only its
// direct children count; without one, host needs at least two labels.
func (r *Resolver) subdomain(host string) string {
	if host == "" {
		return ""
	}
	if r.RootDomain != "" {
		label, ok := strings.CutSuffix(host, "."+r.RootDomain)
		if !ok || label == "" {
			return ""
		}
		first, _, _ := strings.Cut(label, ".")
		return first
	}
	first, rest, ok := strings.Cut(host, ".")
	if !ok || rest == "" {
		return ""
	}
	return first
}

func hostname(hostport string) string {
	hostport = strings.ToLower(strings.TrimSpace(hostport))
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return strings.Trim(host, "[]")
	}
	return strings.Trim(hostport, "[]")
}
