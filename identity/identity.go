// Package identity validates the bearer tokens that gate publishing.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

// ErrInvalidToken is returned for any token that does not validate.
var ErrInvalidToken = errors.New("invalid token")

// DefaultLeeway is the clock skew tolerated on exp, nbf and iat.
const DefaultLeeway = 5 * time.Minute

// Principal is the authenticated caller behind a token.
type Principal struct {
	Subject   string
	Email     string
	Role      string
	ExpiresAt time.Time
}

// Validator checks a bearer token and returns its principal.
type Validator interface {
	Validate(ctx context.Context, token string) (Principal, error)
}

// HS256Validator validates JWTs signed with a shared HMAC secret, as issued
// by Supabase-style identity providers. Issuer and audience are not checked.
type HS256Validator struct {
	secret []byte
	leeway time.Duration
	now    func() time.Time
}

// NewHS256Validator returns a validator for tokens signed with secret.
func NewHS256Validator(secret string) (*HS256Validator, error) {
	if secret == "" {
		return nil, errors.New("identity: jwt secret is required")
	}
	return &HS256Validator{secret: []byte(secret), leeway: DefaultLeeway, now: time.Now}, nil
}

type providerClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (v *HS256Validator) Validate(_ context.Context, token string) (Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, fmt.Errorf("empty token: %w", ErrInvalidToken)
	}
	tok, err := jwt.ParseSigned(token, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return Principal{}, fmt.Errorf("parse: %v: %w", err, ErrInvalidToken)
	}

	var std jwt.Claims
	var extra providerClaims
	if err := tok.Claims(v.secret, &std, &extra); err != nil {
		return Principal{}, fmt.Errorf("signature: %v: %w", err, ErrInvalidToken)
	}
	if std.Expiry == nil {
		return Principal{}, fmt.Errorf("missing exp claim: %w", ErrInvalidToken)
	}
	if err := std.ValidateWithLeeway(jwt.Expected{Time: v.now()}, v.leeway); err != nil {
		return Principal{}, fmt.Errorf("claims: %v: %w", err, ErrInvalidToken)
	}

	return Principal{
		Subject:   std.Subject,
		Email:     extra.Email,
		Role:      extra.Role,
		ExpiresAt: std.Expiry.Time().UTC(),
	}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
