package cryptox_test

import (
	"regexp"
	"testing"

	"github.com/covenantlabs/azor-auth/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateRecoveryCodes(t *testing.T) {
	codes, err := cryptox.GenerateRecoveryCodes()
	require.NoError(t, err)
	require.Len(t, codes, cryptox.RecoveryCodeCount)

	format := regexp.MustCompile(`^[ABCDEFGHJKMNPQRSTUVWXYZ23456789]{5}-[ABCDEFGHJKMNPQRSTUVWXYZ23456789]{5}$`)
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		require.Regexp(t, format, code)
		require.False(t, seen[code], "duplicate code in batch")
		seen[code] = true
	}
}

func TestNormalizeRecoveryCode(t *testing.T) {
	require.Equal(t, "K7MRW2XQ4H", cryptox.NormalizeRecoveryCode("k7mrw-2xq4h"))
	require.Equal(t, "K7MRW2XQ4H", cryptox.NormalizeRecoveryCode("  K7MRW 2XQ4H "))
}

func TestFingerprintRecoveryCodeStable(t *testing.T) {
	a := cryptox.FingerprintRecoveryCode("K7MRW-2XQ4H")
	b := cryptox.FingerprintRecoveryCode("k7mrw 2xq4h")
	require.Equal(t, a, b)
	require.NotEqual(t, a, cryptox.FingerprintRecoveryCode("K7MRW-2XQ4J"))
}

func TestGenerateTokenAndFingerprint(t *testing.T) {
	tok, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	require.Len(t, tok, 43)

	require.Equal(t, cryptox.FingerprintToken(tok), cryptox.FingerprintToken(tok))

	_, err = cryptox.GenerateToken(0)
	require.Error(t, err)
}
