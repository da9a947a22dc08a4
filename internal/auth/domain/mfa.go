package domain

import "time"

// MFACredential is a user's TOTP enrollment. A row exists from the moment
// setup is requested; Enabled flips true only after the first code is
// verified, so an abandoned setup can be restarted with the same secret.
type MFACredential struct {
	UserID    string
	Secret    string // base32 TOTP secret
	Enabled   bool
	EnabledAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MFAEnrollment is returned from setup so the client can render a QR code.
type MFAEnrollment struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
	Issuer     string `json:"issuer"`
	Account    string `json:"account"`
}

// RecoveryCode is the at-rest form of a one-time recovery code.
type RecoveryCode struct {
	UserID    string
	CodeHash  string // SHA-256 fingerprint, base64url
	CreatedAt time.Time
}
