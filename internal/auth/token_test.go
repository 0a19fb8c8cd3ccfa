package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 30)

	token, expiresAt, err := tm.GenerateToken("ops@example.com", []string{ScopeSLARead})
	require.NoError(t, err)
	require.True(t, expiresAt.After(time.Now()))

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, "ops@example.com", claims.Subject)
	require.Equal(t, []string{ScopeSLARead}, claims.Scopes)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret-a", 30).GenerateToken("ops", nil)
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", 30).ParseToken(token)
	require.Error(t, err)
}

func TestVerifyAPIKey(t *testing.T) {
	hash, err := HashAPIKey("super-secret-key", bcrypt.MinCost)
	require.NoError(t, err)

	require.NoError(t, VerifyAPIKey(hash, "super-secret-key"))
	require.Error(t, VerifyAPIKey(hash, "wrong-key"))
}

func TestPrincipalHasScope(t *testing.T) {
	principal := &Principal{Scopes: []string{ScopeSLARead}}
	require.True(t, principal.HasScope(ScopeSLARead))
	require.False(t, principal.HasScope(ScopeSLATrigger))
}
