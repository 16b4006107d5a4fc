package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(accessExpiry time.Duration) *Manager {
	return NewManager("test-secret-key-32-chars-long-minimum!!", "amz-saas-test", accessExpiry, 7*24*time.Hour)
}

func TestGenerateTokenPair(t *testing.T) {
	manager := newTestManager(15 * time.Minute)

	pair, err := manager.GenerateTokenPair("admin-1", "admin", true)
	require.NoError(t, err)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int64(15*60), pair.ExpiresIn)
}

func TestValidateToken(t *testing.T) {
	manager := newTestManager(15 * time.Minute)

	pair, err := manager.GenerateTokenPair("admin-1", "admin", true)
	require.NoError(t, err)

	claims, err := manager.ValidateToken(pair.AccessToken)
	require.NoError(t, err)

	assert.Equal(t, "admin-1", claims.AdminID)
	assert.Equal(t, "admin", claims.Username)
	assert.True(t, claims.IsSuperAdmin)
	assert.Equal(t, "amz-saas-test", claims.Issuer)
}

func TestValidateToken_Invalid(t *testing.T) {
	manager := newTestManager(15 * time.Minute)

	_, err := manager.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	manager := newTestManager(15 * time.Minute)
	other := NewManager("another-secret-key-32-chars-long!!!!!!!", "amz-saas-test", 15*time.Minute, time.Hour)

	pair, err := other.GenerateTokenPair("admin-1", "admin", false)
	require.NoError(t, err)

	_, err = manager.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Expired(t *testing.T) {
	manager := newTestManager(-time.Minute)

	pair, err := manager.GenerateTokenPair("admin-1", "admin", false)
	require.NoError(t, err)

	_, err = manager.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestRefreshAccessToken(t *testing.T) {
	manager := newTestManager(15 * time.Minute)

	pair, err := manager.GenerateTokenPair("admin-1", "admin", true)
	require.NoError(t, err)

	newAccess, err := manager.RefreshAccessToken(pair.RefreshToken)
	require.NoError(t, err)

	claims, err := manager.ValidateToken(newAccess)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.AdminID)
	assert.True(t, claims.IsSuperAdmin)
}
