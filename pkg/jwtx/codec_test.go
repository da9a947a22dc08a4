package jwtx_test

import (
	"testing"
	"time"

	"github.com/covenantlabs/azor-auth/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testIssuer = "azor-auth-test"

func testSecret(b byte) []byte {
	secret := make([]byte, jwtx.MinSecretLength)
	for i := range secret {
		secret[i] = b
	}
	return secret
}

func newTestCodec(t *testing.T) *jwtx.Codec {
	t.Helper()
	codec, err := jwtx.NewCodec(testSecret(0x42), testIssuer)
	require.NoError(t, err)
	return codec
}

func TestNewCodecRejectsShortSecret(t *testing.T) {
	_, err := jwtx.NewCodec([]byte("too short"), testIssuer)
	require.Error(t, err)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	claims := jwtx.NewSessionClaims("user-1", "AZOR", true, time.Hour, testIssuer, time.Now())
	token, err := codec.Sign(claims)
	require.NoError(t, err)

	got, err := codec.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, "AZOR", got.Role)
	require.True(t, got.MFASatisfied)
	require.NotEmpty(t, got.ID)
}

func TestVerifyExpired(t *testing.T) {
	codec := newTestCodec(t)

	claims := jwtx.NewSessionClaims("user-1", "AZOR", false, -time.Minute, testIssuer, time.Now().Add(-time.Hour))
	token, err := codec.Sign(claims)
	require.NoError(t, err)

	_, err = codec.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestVerifyBadSignature(t *testing.T) {
	codec := newTestCodec(t)
	other, err := jwtx.NewCodec(testSecret(0x99), testIssuer)
	require.NoError(t, err)

	token, err := other.Sign(jwtx.NewSessionClaims("user-1", "AZOR", true, time.Hour, testIssuer, time.Now()))
	require.NoError(t, err)

	_, err = codec.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrBadSignature)
}

func TestVerifyMalformed(t *testing.T) {
	codec := newTestCodec(t)

	_, err := codec.Verify("not.a.token")
	require.ErrorIs(t, err, jwtx.ErrMalformed)

	_, err = codec.Verify("")
	require.ErrorIs(t, err, jwtx.ErrMalformed)
}

func TestVerifyRejectsUnsignedToken(t *testing.T) {
	codec := newTestCodec(t)

	claims := jwtx.NewSessionClaims("user-1", "AZOR", true, time.Hour, testIssuer, time.Now())
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = codec.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	codec := newTestCodec(t)

	claims := jwtx.NewSessionClaims("user-1", "AZOR", true, time.Hour, "someone-else", time.Now())
	token, err := codec.Sign(claims)
	require.NoError(t, err)

	_, err = codec.Verify(token)
	require.Error(t, err)
}
