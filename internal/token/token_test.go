package token

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func parseablePKCS8(priv *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

func parseablePKIX(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	priv, pub, err := GenerateDevKeyPair()
	require.NoError(t, err)
	return New(priv, pub)
}

func TestRoundTrip(t *testing.T) {
	c := newTestCodec(t)

	tok, err := c.Issue(42, "alice", "tc-user", time.Hour)
	require.NoError(t, err)

	claims, err := c.Verify(tok, "tc-user")
	require.NoError(t, err)

	uid, err := claims.UserID()
	require.NoError(t, err)
	require.EqualValues(t, 42, uid)
	require.Equal(t, "alice", claims.Username)
	require.InDelta(t, time.Hour, claims.Remaining(time.Now()), float64(5*time.Second))
}

func TestScopeMismatch(t *testing.T) {
	c := newTestCodec(t)

	tok, err := c.Issue(42, "alice", "user-svc", time.Hour)
	require.NoError(t, err)

	_, err = c.Verify(tok, "auth-svc")
	require.ErrorIs(t, err, ErrScopeMismatch)
}

func TestExpiredToken(t *testing.T) {
	c := newTestCodec(t)

	issued := time.Now()
	c.SetClock(func() time.Time { return issued })

	tok, err := c.Issue(42, "alice", "tc-user", time.Minute)
	require.NoError(t, err)

	c.SetClock(func() time.Time { return issued.Add(2 * time.Minute) })
	_, err = c.Verify(tok, "tc-user")
	require.ErrorIs(t, err, ErrExpired, "a valid signature must not rescue an expired token")
}

func TestBadSignature(t *testing.T) {
	signer := newTestCodec(t)

	_, otherPub, err := GenerateDevKeyPair()
	require.NoError(t, err)
	verifier := NewVerifier(otherPub)

	tok, err := signer.Issue(42, "alice", "tc-user", time.Hour)
	require.NoError(t, err)

	_, err = verifier.Verify(tok, "tc-user")
	require.ErrorIs(t, err, ErrBadSignature)
}

func TestMalformedInput(t *testing.T) {
	c := newTestCodec(t)

	for _, input := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := c.Verify(input, "tc-user")
		require.ErrorIs(t, err, ErrMalformed, "input %q", input)
	}
}

func TestVerifierCannotIssue(t *testing.T) {
	_, pub, err := GenerateDevKeyPair()
	require.NoError(t, err)

	_, err = NewVerifier(pub).Issue(1, "alice", "tc-user", time.Hour)
	require.Error(t, err)
}

func TestKeyPEMRoundTrip(t *testing.T) {
	priv, _, err := GenerateDevKeyPair()
	require.NoError(t, err)

	privDER, err := parseablePKCS8(priv)
	require.NoError(t, err)
	parsedPriv, err := ParsePrivateKeyPEM(privDER)
	require.NoError(t, err)
	require.True(t, priv.Equal(parsedPriv))

	pubPEM, err := parseablePKIX(&priv.PublicKey)
	require.NoError(t, err)
	parsedPub, err := ParsePublicKeyPEM(pubPEM)
	require.NoError(t, err)
	require.True(t, priv.PublicKey.Equal(parsedPub))
}
