package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/pquerna/otp"

	"github.com/covenantlabs/azor-auth/internal/auth/domain"
	"github.com/covenantlabs/azor-auth/internal/auth/notify"
	"github.com/covenantlabs/azor-auth/internal/auth/store"
	"github.com/covenantlabs/azor-auth/pkg/cryptox"
	"github.com/covenantlabs/azor-auth/pkg/slogx"
)

const totpSecretBytes = 20 // 160-bit secret, RFC 4226 recommendation

var (
	ErrInvalidTOTPCode     = errors.New("invalid TOTP code")
	ErrMFANotEnrolled      = errors.New("MFA not enrolled for this user")
	ErrMFAAlreadyEnabled   = errors.New("MFA already enabled for this user")
	ErrInvalidRecoveryCode = errors.New("invalid recovery code")
)

type MFAService struct {
	Store    store.Store
	Audit    *AuditService
	Notifier notify.Notifier
	Issuer   string // issuer label in authenticator apps, e.g. "Azor"
}

// Setup generates (or re-serves) the user's pending TOTP secret and
// returns the provisioning data for the QR code. MFA is not enabled yet;
// the user must verify a code first. An abandoned setup returns the same
// secret so the authenticator entry stays valid.
func (s *MFAService) Setup(ctx context.Context, userID string) (domain.MFAEnrollment, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.MFAEnrollment{}, fmt.Errorf("user lookup: %w", err)
	}

	cred, err := s.Store.MFACredentials().GetMFACredential(ctx, userID)
	switch {
	case err == nil && cred.Enabled:
		return domain.MFAEnrollment{}, ErrMFAAlreadyEnabled
	case err == nil:
		// pending enrollment, reuse the secret
	case errors.Is(err, store.ErrNotFound):
		secret, err := generateTOTPSecret()
		if err != nil {
			return domain.MFAEnrollment{}, err
		}
		if err := s.Store.MFACredentials().UpsertSecret(ctx, userID, secret); err != nil {
			return domain.MFAEnrollment{}, fmt.Errorf("store secret: %w", err)
		}
		// The upsert never overwrites an existing row, so a concurrent
		// setup may have won the insert. Always serve the stored secret.
		cred, err = s.Store.MFACredentials().GetMFACredential(ctx, userID)
		if err != nil {
			return domain.MFAEnrollment{}, fmt.Errorf("mfa lookup: %w", err)
		}
		if cred.Enabled {
			return domain.MFAEnrollment{}, ErrMFAAlreadyEnabled
		}
	default:
		return domain.MFAEnrollment{}, fmt.Errorf("mfa lookup: %w", err)
	}

	return domain.MFAEnrollment{
		Secret:     cred.Secret,
		OTPAuthURL: provisioningURI(cred.Secret, user.Email, s.Issuer),
		Issuer:     s.Issuer,
		Account:    user.Email,
	}, nil
}

// Verify checks the first TOTP code against the pending secret and, on
// success, enables MFA and issues a fresh batch of recovery codes. The
// plaintext codes are returned exactly once.
func (s *MFAService) Verify(ctx context.Context, userID string, code string) ([]string, error) {
	cred, err := s.Store.MFACredentials().GetMFACredential(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMFANotEnrolled
		}
		return nil, fmt.Errorf("mfa lookup: %w", err)
	}
	if cred.Enabled {
		return nil, ErrMFAAlreadyEnabled
	}

	if !validateTOTP(code, cred.Secret, time.Now().UTC()) {
		return nil, ErrInvalidTOTPCode
	}

	codes, err := cryptox.GenerateRecoveryCodes()
	if err != nil {
		return nil, fmt.Errorf("generate recovery codes: %w", err)
	}
	hashes := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = cryptox.FingerprintRecoveryCode(c)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RecoveryCodes().ReplaceRecoveryCodes(ctx, userID, hashes); err != nil {
			return fmt.Errorf("store recovery codes: %w", err)
		}
		if err := tx.MFACredentials().Enable(ctx, userID); err != nil {
			return fmt.Errorf("enable mfa: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, domain.AuditMFAEnrolled, userID, userID, "")
	s.notify(ctx, notify.KindMFAEnrolled, userID)

	return codes, nil
}

// Reset wipes the user's MFA enrollment: secret, enabled flag and all
// recovery codes. The next login falls back to the un-enrolled branch of
// the policy.
func (s *MFAService) Reset(ctx context.Context, actorID, userID string) error {
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.MFACredentials().Delete(ctx, userID); err != nil {
			return fmt.Errorf("delete credential: %w", err)
		}
		if err := tx.RecoveryCodes().DeleteAllRecoveryCodes(ctx, userID); err != nil {
			return fmt.Errorf("delete recovery codes: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Audit.Record(ctx, domain.AuditMFAReset, actorID, userID, "")
	s.notify(ctx, notify.KindMFAReset, userID)
	return nil
}

// ConsumeRecoveryCode burns one recovery code. Exactly the matched hash
// is removed; each candidate-hash comparison is constant time so a near
// miss looks like any other miss.
func (s *MFAService) ConsumeRecoveryCode(ctx context.Context, userID, code string) error {
	candidate := []byte(cryptox.FingerprintRecoveryCode(code))

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		hashes, err := tx.RecoveryCodes().ListRecoveryCodeHashes(ctx, userID)
		if err != nil {
			return fmt.Errorf("list recovery codes: %w", err)
		}

		for _, h := range hashes {
			if subtle.ConstantTimeCompare([]byte(h), candidate) == 1 {
				return tx.RecoveryCodes().DeleteRecoveryCode(ctx, userID, h)
			}
		}
		return ErrInvalidRecoveryCode
	})
}

// RemainingRecoveryCodes reports how many codes the user has left.
func (s *MFAService) RemainingRecoveryCodes(ctx context.Context, userID string) (int, error) {
	return s.Store.RecoveryCodes().CountRecoveryCodes(ctx, userID)
}

func (s *MFAService) notify(ctx context.Context, kind, userID string) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return
	}
	if err := s.Notifier.Publish(context.WithoutCancel(ctx), notify.Event{Kind: kind, Email: user.Email}); err != nil {
		slogx.FromContext(ctx).Warn("notification publish failed", "kind", kind, "err", err)
	}
}

func generateTOTPSecret() (string, error) {
	buf := make([]byte, totpSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate totp secret: %w", err)
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf), nil
}

// provisioningURI builds the otpauth:// URL by hand so a stored secret
// can be re-served; totp.Generate would mint a new one.
func provisioningURI(secret, account, issuer string) string {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", issuer)
	v.Set("period", "30")
	v.Set("algorithm", otp.AlgorithmSHA1.String())
	v.Set("digits", otp.DigitsSix.String())

	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + issuer + ":" + account,
		RawQuery: v.Encode(),
	}
	return u.String()
}
