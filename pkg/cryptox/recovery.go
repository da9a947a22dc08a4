package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Recovery code format: two groups of five characters drawn from an
// alphabet without ambiguous glyphs (no 0/O, 1/I/L).
const (
	recoveryAlphabet  = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	recoveryGroupLen  = 5
	recoveryGroups    = 2
	RecoveryCodeCount = 10
)

// GenerateRecoveryCodes returns a fresh batch of one-time recovery codes in
// their display form, e.g. "K7MRW-2XQ4H". Callers must persist fingerprints
// only; plaintext codes are shown to the user exactly once.
func GenerateRecoveryCodes() ([]string, error) {
	codes := make([]string, 0, RecoveryCodeCount)
	for range RecoveryCodeCount {
		code, err := generateRecoveryCode()
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, nil
}

func generateRecoveryCode() (string, error) {
	groups := make([]string, 0, recoveryGroups)
	for range recoveryGroups {
		var sb strings.Builder
		for range recoveryGroupLen {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(recoveryAlphabet))))
			if err != nil {
				return "", fmt.Errorf("failed to generate recovery code: %w", err)
			}
			sb.WriteByte(recoveryAlphabet[n.Int64()])
		}
		groups = append(groups, sb.String())
	}
	return strings.Join(groups, "-"), nil
}

// NormalizeRecoveryCode canonicalises user input before fingerprinting:
// uppercased with separators and whitespace stripped.
func NormalizeRecoveryCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	code = strings.ReplaceAll(code, "-", "")
	return strings.ReplaceAll(code, " ", "")
}

// FingerprintRecoveryCode returns the at-rest form of a recovery code.
func FingerprintRecoveryCode(code string) string {
	return FingerprintToken(NormalizeRecoveryCode(code))
}
