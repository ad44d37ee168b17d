package identity

import (
	"context"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testClaims struct {
	jwt.Claims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

func sign(t *testing.T, secret string, alg jose.SignatureAlgorithm, c testClaims) string {
	t.Helper()
	sig, err := jose.NewSigner(jose.SigningKey{Algorithm: alg, Key: []byte(secret)}, (&jose.SignerOptions{}).WithType("JWT"))
	require.NoError(t, err)
	raw, err := jwt.Signed(sig).Claims(c).Serialize()
	require.NoError(t, err)
	return raw
}

func newTestValidator(t *testing.T, now time.Time) *HS256Validator {
	t.Helper()
	v, err := NewHS256Validator(testSecret)
	require.NoError(t, err)
	v.now = func() time.Time { return now }
	return v
}

func TestValidateAcceptsValidToken(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	v := newTestValidator(t, now)

	token := sign(t, testSecret, jose.HS256, testClaims{
		Claims: jwt.Claims{
			Subject:  "user-42",
			IssuedAt: jwt.NewNumericDate(now.Add(-time.Minute)),
			Expiry:   jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Email: "ada@example.com",
		Role:  "authenticated",
	})

	p, err := v.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", p.Subject)
	assert.Equal(t, "ada@example.com", p.Email)
	assert.Equal(t, "authenticated", p.Role)
	assert.Equal(t, now.Add(time.Hour), p.ExpiresAt)
}

func TestValidateRejects(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	v := newTestValidator(t, now)
	valid := jwt.Claims{Subject: "u", Expiry: jwt.NewNumericDate(now.Add(time.Hour))}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"wrong secret", sign(t, "ffffffffffffffffffffffffffffffff", jose.HS256, testClaims{Claims: valid})},
		{"wrong algorithm", sign(t, testSecret+testSecret, jose.HS512, testClaims{Claims: valid})},
		{"expired", sign(t, testSecret, jose.HS256, testClaims{Claims: jwt.Claims{
			Subject: "u",
			Expiry:  jwt.NewNumericDate(now.Add(-10 * time.Minute)),
		}})},
		{"not yet valid", sign(t, testSecret, jose.HS256, testClaims{Claims: jwt.Claims{
			Subject:   "u",
			NotBefore: jwt.NewNumericDate(now.Add(time.Hour)),
			Expiry:    jwt.NewNumericDate(now.Add(2 * time.Hour)),
		}})},
		{"missing expiry", sign(t, testSecret, jose.HS256, testClaims{Claims: jwt.Claims{Subject: "u"}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(context.Background(), tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestValidateToleratesClockSkew(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	v := newTestValidator(t, now)

	token := sign(t, testSecret, jose.HS256, testClaims{Claims: jwt.Claims{
		Subject: "u",
		Expiry:  jwt.NewNumericDate(now.Add(-2 * time.Minute)),
	}})

	_, err := v.Validate(context.Background(), token)
	assert.NoError(t, err)
}

func TestNewHS256ValidatorRequiresSecret(t *testing.T) {
	_, err := NewHS256Validator("")
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"bearer   abc", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer   ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := BearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.want, got, tt.header)
	}
}
