package auth_test

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-iam-server/auth"
	"github.com/jrsteele09/go-iam-server/internal/errors"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://auth.example.com/oidc"

func signToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestOIDCVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	verifier := auth.NewOIDCVerifierWithKeySet(testIssuer, &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{key.Public()}})

	t.Run("builds principal from claims", func(t *testing.T) {
		raw := signToken(t, key, jwt.MapClaims{
			"iss":       testIssuer,
			"sub":       "user-1",
			"aud":       "urn:logto:organization:t1",
			"scope":     "tenant:read tenant:write",
			"sid":       "session-1",
			"client_id": "console",
			"exp":       time.Now().Add(time.Hour).Unix(),
		})

		p, err := verifier.Verify(t.Context(), raw)
		require.NoError(t, err)
		require.Equal(t, "user-1", p.ID)
		require.Equal(t, "session-1", p.SessionID)
		require.Equal(t, "console", p.ClientID)
		require.True(t, p.Scopes.Has("tenant:write"))
		aud, ok := p.Audience.Single()
		require.True(t, ok)
		require.Equal(t, "urn:logto:organization:t1", aud)
	})

	t.Run("rejects foreign issuer", func(t *testing.T) {
		raw := signToken(t, key, jwt.MapClaims{
			"iss": "https://evil.example.com",
			"sub": "user-1",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		_, err := verifier.Verify(t.Context(), raw)
		require.ErrorIs(t, err, errors.ErrUnauthenticated)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		raw := signToken(t, key, jwt.MapClaims{
			"iss": testIssuer,
			"sub": "user-1",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		_, err := verifier.Verify(t.Context(), raw)
		require.ErrorIs(t, err, errors.ErrUnauthenticated)
	})

	t.Run("rejects token signed by another key", func(t *testing.T) {
		other, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		raw := signToken(t, other, jwt.MapClaims{
			"iss": testIssuer,
			"sub": "user-1",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		_, err = verifier.Verify(t.Context(), raw)
		require.ErrorIs(t, err, errors.ErrUnauthenticated)
	})
}
