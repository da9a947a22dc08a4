package cryptox_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/covenantlabs/azor-auth/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "cryptox-test-*")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := cryptox.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	require.NoError(t, cryptox.VerifyPassword("correct horse battery staple", hash))
	require.Error(t, cryptox.VerifyPassword("wrong password", hash))
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	require.Error(t, cryptox.VerifyPassword("anything", ""))
	require.Error(t, cryptox.VerifyPassword("anything", "$bcrypt$whatever"))
	require.Error(t, cryptox.VerifyPassword("anything", "$argon2id$v=18$m=1,t=1,p=1$aaaa$bbbb"))
}

func TestBurnVerifyCostsAFullDerivation(t *testing.T) {
	hash, err := cryptox.HashPassword("correct horse battery staple")
	require.NoError(t, err)

	// the first call mints the burn hash; keep that out of the timings
	cryptox.BurnVerify("warmup")

	mismatch := fastestOf(5, func() { _ = cryptox.VerifyPassword("wrong password", hash) })
	burn := fastestOf(5, func() { cryptox.BurnVerify("wrong password") })

	require.Greater(t, burn, mismatch/10,
		"a burned verification must pay for a real argon2 derivation")
}

func fastestOf(n int, fn func()) time.Duration {
	var best time.Duration
	for i := 0; i < n; i++ {
		start := time.Now()
		fn()
		if d := time.Since(start); i == 0 || d < best {
			best = d
		}
	}
	return best
}

func TestHashPasswordUniqueSalts(t *testing.T) {
	a, err := cryptox.HashPassword("same input")
	require.NoError(t, err)
	b, err := cryptox.HashPassword("same input")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
