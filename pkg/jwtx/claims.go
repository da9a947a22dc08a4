// Package jwtx issues and verifies the HMAC-signed session tokens used by
// the auth service.
package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs. A full session lasts a working day; a bootstrap
// session only lives long enough to finish MFA enrollment.
const (
	DefaultSessionTTL   = 8 * time.Hour
	DefaultBootstrapTTL = 15 * time.Minute
)

// Claims are the session-token claims. Changes must stay additive so that
// tokens issued before a deploy keep verifying after it.
type Claims struct {
	jwt.RegisteredClaims

	// Role is the platform role of the subject, e.g. "AZOR" or "COVENANT".
	Role string `json:"role,omitempty"`

	// MFASatisfied marks whether this session completed a second factor.
	// Bootstrap sessions carry false and may only reach MFA enrollment.
	MFASatisfied bool `json:"mfa"`
}

// NewSessionClaims builds claims for a freshly authenticated session.
func NewSessionClaims(subject, role string, mfaSatisfied bool, ttl time.Duration, issuer string, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Role:         role,
		MFASatisfied: mfaSatisfied,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic("jwtx: failed to read random bytes for jti: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
