package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")

	s := NewSession(path)
	require.NoError(t, s.Init())
	assert.Empty(t, s.Token())

	require.NoError(t, s.Set("  abc.def.ghi \n"))
	assert.Equal(t, "abc.def.ghi", s.Token())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// a fresh session picks the token up from disk
	reloaded := NewSession(path)
	require.NoError(t, reloaded.Init())
	assert.Equal(t, "abc.def.ghi", reloaded.Token())

	require.NoError(t, reloaded.Clear())
	assert.Empty(t, reloaded.Token())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// clearing twice is fine
	require.NoError(t, reloaded.Clear())
}

func TestClaims(t *testing.T) {
	exp := time.Now().Add(-time.Hour).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	s := NewSession(filepath.Join(t.TempDir(), "token"))
	require.NoError(t, s.Set(signed))

	claims, err := s.Claims()
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.Subject)
	assert.True(t, claims.ExpiresAt.Equal(exp))
	assert.True(t, claims.Expired(time.Now()))
}

func TestClaimsWithoutToken(t *testing.T) {
	s := NewSession(filepath.Join(t.TempDir(), "token"))
	_, err := s.Claims()
	assert.Error(t, err)
}
