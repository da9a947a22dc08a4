package jwtx

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failures are collapsed into three buckets so callers can
// log the distinction without leaking it to clients.
var (
	ErrMalformed    = errors.New("token_malformed")
	ErrBadSignature = errors.New("token_bad_signature")
	ErrExpired      = errors.New("token_expired")
)

// MinSecretLength is the minimum accepted HMAC secret size in bytes.
const MinSecretLength = 32

// Codec signs and verifies session tokens with a single HS256 secret.
type Codec struct {
	secret []byte
	issuer string
}

func NewCodec(secret []byte, issuer string) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwtx: secret must be at least %d bytes, got %d", MinSecretLength, len(secret))
	}
	return &Codec{secret: secret, issuer: issuer}, nil
}

// Issuer returns the issuer the codec stamps into and expects from tokens.
func (c *Codec) Issuer() string { return c.issuer }

// ValidateToken verifies a token with no checks beyond the signature and
// registered claims, letting a bare codec stand in where no richer
// session validation is wired.
func (c *Codec) ValidateToken(_ context.Context, token string) (Claims, error) {
	return c.Verify(token)
}

// Sign produces a compact HS256 token for the given claims.
func (c *Codec) Sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a compact token. The signing method is
// pinned to HMAC so an asymmetric token cannot be replayed against the
// shared secret.
func (c *Codec) Verify(tokenString string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithIssuer(c.issuer), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return Claims{}, classifyError(err)
	}
	return claims, nil
}

func classifyError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrBadSignature
	default:
		return ErrMalformed
	}
}
