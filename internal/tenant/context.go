// Package tenant carries the calling tenant through request contexts.
package tenant

import (
	"context"
	"regexp"
	"strings"
)

var validID = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

type ctxKey struct{}

// Normalize lowercases id and returns "" when it is not a valid tenant
// identifier. Ids end up inside cache keys, task ids and backend headers, so
// only [a-z0-9_-] is accepted.
func Normalize(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if !validID.MatchString(id) {
		return ""
	}
	return id
}

// WithTenant returns a copy of ctx carrying id.
func WithTenant(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, strings.TrimSpace(id))
}

// FromContext reports the tenant on ctx, if any.
func FromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id, id != ""
}

// PrefixKey namespaces a cache or lock key per tenant.
func PrefixKey(id, key string) string {
	if id == "" {
		return key
	}
	return "tenant:" + id + ":" + key
}
