package common

import "context"

type ctxKey string

const (
	userIDKey      ctxKey = "auth/user-id"
	accessTokenKey ctxKey = "auth/access-token"
	idemKey        ctxKey = "http/idempotency-key"
)

// WithUserID stores the authenticated user identifier on the provided context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID extracts the authenticated user identifier from the context if present.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

// WithAccessToken keeps the caller's bearer token so it can be forwarded to the backend.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey, token)
}

// AccessToken returns the caller's bearer token if one was presented.
func AccessToken(ctx context.Context) (string, bool) {
	tok, ok := ctx.Value(accessTokenKey).(string)
	return tok, ok && tok != ""
}

// WithIdempotencyKey stores the client supplied Idempotency-Key.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idemKey, key)
}

// IdempotencyKey returns the client supplied Idempotency-Key.
func IdempotencyKey(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(idemKey).(string)
	return key, ok && key != ""
}
