package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/covenantlabs/azor-auth/internal/auth/domain"
	"github.com/covenantlabs/azor-auth/internal/auth/store"
	"github.com/covenantlabs/azor-auth/pkg/cryptox"
	"github.com/covenantlabs/azor-auth/pkg/jwtx"
)

var (
	ErrInvalidToken = errors.New("invalid_token")
	ErrUserDisabled = errors.New("user_disabled")
)

// totpSkew tolerates one time-step of clock drift either side (~30s each
// way). Widening this trades security for usability; keep it deliberate.
const totpSkew = 1

// SessionService runs the login state machine and validates issued
// sessions. It is transport-agnostic: cookie and bearer handling live in
// the HTTP layer.
type SessionService struct {
	Store store.Store
	Codec *jwtx.Codec
	MFA   *MFAService
	Audit *AuditService

	SessionTTL   time.Duration
	BootstrapTTL time.Duration

	// RequireMFA demands a second factor from every user; AllowBootstrap
	// lets un-enrolled users in on a short-lived session that can only
	// reach enrollment.
	RequireMFA     bool
	AllowBootstrap bool
}

// Login evaluates one credential presentation. The returned error is only
// for internal faults; every user-visible outcome is in the LoginResult.
func (s *SessionService) Login(ctx context.Context, email, password, mfaCode string) (domain.LoginResult, error) {
	fail := func() domain.LoginResult {
		s.Audit.Record(ctx, domain.AuditLoginFailed, "", "", "email="+email)
		return domain.LoginResult{Outcome: domain.LoginInvalidCredentials}
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a full hash derivation so an unknown email costs the
			// same as a wrong password.
			cryptox.BurnVerify(password)
			return fail(), nil
		}
		return domain.LoginResult{}, fmt.Errorf("user lookup: %w", err)
	}

	if !user.IsActive || user.PasswordHash == "" {
		cryptox.BurnVerify(password)
		return fail(), nil
	}
	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		return fail(), nil
	}

	// Password accepted; MFA is evaluated only now so the MFA status of a
	// wrong email/password pair never leaks.
	cred, err := s.Store.MFACredentials().GetMFACredential(ctx, user.ID)
	enrolled := err == nil && cred.Enabled
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.LoginResult{}, fmt.Errorf("mfa lookup: %w", err)
	}

	if enrolled {
		return s.loginWithMFA(ctx, user, cred, mfaCode)
	}
	return s.loginWithoutMFA(ctx, user)
}

func (s *SessionService) loginWithMFA(ctx context.Context, user domain.User, cred domain.MFACredential, code string) (domain.LoginResult, error) {
	if code == "" {
		return domain.LoginResult{Outcome: domain.LoginMFACodeRequired, User: &user}, nil
	}

	if !validateTOTP(code, cred.Secret, time.Now().UTC()) {
		// Fall back to a recovery code before giving up.
		err := s.MFA.ConsumeRecoveryCode(ctx, user.ID, code)
		if err != nil {
			if errors.Is(err, ErrInvalidRecoveryCode) {
				s.Audit.Record(ctx, domain.AuditLoginFailed, user.ID, user.ID, "mfa_code_invalid")
				return domain.LoginResult{Outcome: domain.LoginMFACodeInvalid, User: &user}, nil
			}
			return domain.LoginResult{}, err
		}
		s.Audit.Record(ctx, domain.AuditRecoveryCodeUsed, user.ID, user.ID, "")
	}

	session, err := s.issue(user, true, s.SessionTTL)
	if err != nil {
		return domain.LoginResult{}, err
	}
	s.Audit.Record(ctx, domain.AuditLogin, user.ID, user.ID, "mfa=true")
	return domain.LoginResult{Outcome: domain.LoginSuccess, Session: session, User: &user}, nil
}

func (s *SessionService) loginWithoutMFA(ctx context.Context, user domain.User) (domain.LoginResult, error) {
	if !s.RequireMFA {
		session, err := s.issue(user, false, s.SessionTTL)
		if err != nil {
			return domain.LoginResult{}, err
		}
		s.Audit.Record(ctx, domain.AuditLogin, user.ID, user.ID, "mfa=off")
		return domain.LoginResult{Outcome: domain.LoginSuccess, Session: session, User: &user}, nil
	}

	if !s.AllowBootstrap {
		return domain.LoginResult{Outcome: domain.LoginMFAEnrollmentRequired, User: &user, MFAEnroll: true}, nil
	}

	session, err := s.issue(user, false, s.BootstrapTTL)
	if err != nil {
		return domain.LoginResult{}, err
	}
	session.Bootstrap = true
	s.Audit.Record(ctx, domain.AuditLogin, user.ID, user.ID, "bootstrap")
	return domain.LoginResult{Outcome: domain.LoginBootstrapIssued, Session: session, User: &user, MFAEnroll: true}, nil
}

func (s *SessionService) issue(user domain.User, mfaSatisfied bool, ttl time.Duration) (*domain.IssuedSession, error) {
	claims := jwtx.NewSessionClaims(user.ID, string(user.Role), mfaSatisfied, ttl, s.Codec.Issuer(), time.Now().UTC())
	token, err := s.Codec.Sign(claims)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	return &domain.IssuedSession{
		Token:        token,
		TokenType:    "bearer",
		ExpiresIn:    ttl,
		MFASatisfied: mfaSatisfied,
	}, nil
}

// Validate decodes a session token and re-reads the user so a disabled
// account is locked out immediately, not at token expiry.
func (s *SessionService) Validate(ctx context.Context, token string) (domain.User, jwtx.Claims, error) {
	claims, err := s.Codec.Verify(token)
	if err != nil {
		return domain.User{}, jwtx.Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, jwtx.Claims{}, ErrInvalidToken
		}
		return domain.User{}, jwtx.Claims{}, err
	}
	if !user.IsActive {
		return domain.User{}, jwtx.Claims{}, ErrUserDisabled
	}
	return user, claims, nil
}

// ValidateToken adapts Validate for the HTTP authn middleware, which only
// needs the claims.
func (s *SessionService) ValidateToken(ctx context.Context, token string) (jwtx.Claims, error) {
	_, claims, err := s.Validate(ctx, token)
	return claims, err
}

func validateTOTP(code, secret string, now time.Time) bool {
	valid, err := totp.ValidateCustom(code, secret, now, totp.ValidateOpts{
		Period:    30,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && valid
}
