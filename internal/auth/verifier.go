package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/manigandan-posana/vebops/internal/common"
)

// TenantClaim is the private claim naming the tenant a token was issued for.
const TenantClaim = "tenant"

// Claims are the parts of a backend-issued token this service relies on.
type Claims struct {
	UserID   string
	TenantID string
}

// Verifier checks HS256 tokens issued by the backend.
type Verifier struct {
	Secret    []byte
	Validator TokenValidator
	Now       func() time.Time
}

// NewVerifier constructs a Verifier for the shared secret.
func NewVerifier(secret, issuer, audience string) *Verifier {
	return &Verifier{
		Secret: []byte(secret),
		Validator: TokenValidator{
			Issuer:    issuer,
			Audience:  audience,
			ClockSkew: 30 * time.Second,
			Algorithm: jwa.HS256,
		},
		Now: time.Now,
	}
}

// Verify parses and validates token.
func (v *Verifier) Verify(token string) (Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Claims{}, unauthorized("missing token", nil)
	}
	algorithm, err := tokenAlgorithm(trimmed)
	if err != nil {
		return Claims{}, unauthorized("invalid token", err)
	}
	if v.Validator.Algorithm != "" && algorithm != v.Validator.Algorithm {
		return Claims{}, unauthorized("invalid token", fmt.Errorf("auth: unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, v.Secret), jwt.WithValidate(false))
	if err != nil {
		return Claims{}, unauthorized("invalid token", err)
	}
	if err := v.Validator.Validate(parsed, algorithm, v.now()); err != nil {
		return Claims{}, unauthorized("invalid token", err)
	}
	claims := Claims{UserID: parsed.Subject()}
	if raw, ok := parsed.Get(TenantClaim); ok {
		if s, ok := raw.(string); ok {
			claims.TenantID = s
		}
	}
	return claims, nil
}

// TokenValidator checks the registered claims of a parsed token against the
// expected issuer, audience and signing algorithm.
type TokenValidator struct {
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Algorithm jwa.SignatureAlgorithm
}

// Validate checks algorithm, issuer, audience and the time window at now. A
// token must name a subject, which is forwarded as the acting user.
func (tv TokenValidator) Validate(tok jwt.Token, alg jwa.SignatureAlgorithm, now time.Time) error {
	switch {
	case tok == nil:
		return errors.New("auth: token is nil")
	case alg == "":
		return errors.New("auth: token missing algorithm")
	case tv.Algorithm != "" && alg != tv.Algorithm:
		return fmt.Errorf("auth: unexpected token algorithm %s", alg)
	}

	opts := []jwt.ValidateOption{jwt.WithClock(jwt.ClockFunc(func() time.Time { return now }))}
	if tv.ClockSkew > 0 {
		opts = append(opts, jwt.WithAcceptableSkew(tv.ClockSkew))
	}
	if tv.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(tv.Issuer))
	}
	if tv.Audience != "" {
		opts = append(opts, jwt.WithAudience(tv.Audience))
	}
	if err := jwt.Validate(tok, opts...); err != nil {
		return err
	}
	if tok.Subject() == "" {
		return errors.New("auth: token missing subject")
	}
	return nil
}

func (v *Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

func tokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) != 1 {
		return "", errors.New("auth: token must carry exactly one signature")
	}
	headers := signatures[0].ProtectedHeaders()
	if headers == nil {
		return "", errors.New("auth: token missing protected headers")
	}
	alg := headers.Algorithm()
	switch alg {
	case "":
		return "", errors.New("auth: token missing algorithm")
	case jwa.NoSignature:
		return "", errors.New("auth: token uses none algorithm")
	}
	return alg, nil
}

func unauthorized(message string, err error) *common.AppError {
	return common.NewAppError("UNAUTHORIZED", message, http.StatusUnauthorized, err)
}
