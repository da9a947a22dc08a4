package domain

import "time"

// LoginOutcome classifies the result of a credential presentation. Every
// login attempt lands on exactly one of these.
type LoginOutcome string

const (
	// LoginSuccess issued a full session.
	LoginSuccess LoginOutcome = "success"
	// LoginInvalidCredentials covers unknown email, disabled user, missing
	// password hash and wrong password alike.
	LoginInvalidCredentials LoginOutcome = "invalid_credentials"
	// LoginMFACodeRequired means the password was right but the enrolled
	// user supplied no second factor.
	LoginMFACodeRequired LoginOutcome = "mfa_code_required"
	// LoginMFACodeInvalid means the supplied code matched neither the TOTP
	// window nor a recovery code.
	LoginMFACodeInvalid LoginOutcome = "mfa_code_invalid"
	// LoginMFAEnrollmentRequired means policy demands MFA, the user is not
	// enrolled, and bootstrap sessions are disallowed.
	LoginMFAEnrollmentRequired LoginOutcome = "mfa_enrollment_required"
	// LoginBootstrapIssued issued a short-lived session that can only reach
	// the MFA enrollment endpoints.
	LoginBootstrapIssued LoginOutcome = "bootstrap_issued"
)

// IssuedSession is a freshly minted session token plus the metadata the
// client needs to use it.
type IssuedSession struct {
	Token        string
	TokenType    string // always "bearer"
	ExpiresIn    time.Duration
	MFASatisfied bool
	Bootstrap    bool
}

// LoginResult is what the session service returns for a login attempt.
// Session is non-nil only for LoginSuccess and LoginBootstrapIssued.
type LoginResult struct {
	Outcome LoginOutcome
	Session *IssuedSession
	User    *User
	// MFAEnroll signals the client should steer the user into enrollment.
	MFAEnroll bool
}
