package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"im-social/internal/config"
)

var testAuthCfg = config.AuthConfig{JWTSecretKey: "test-secret", JWTExpiry: time.Hour}

func TestTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	token, err := GenerateToken(7, "u7@example.com", testAuthCfg)
	require.NoError(t, err)

	claims, err := ValidateToken(ctx, token, testAuthCfg.JWTSecretKey, nil)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "u7@example.com", claims.Email)
	assert.NotEmpty(t, claims.ID)

	_, err = ValidateToken(ctx, token, "wrong-secret", nil)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenExpired(t *testing.T) {
	cfg := testAuthCfg
	cfg.JWTExpiry = -time.Minute
	token, err := GenerateToken(1, "a@example.com", cfg)
	require.NoError(t, err)

	_, err = ValidateToken(context.Background(), token, cfg.JWTSecretKey, nil)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenRevoked(t *testing.T) {
	ctx := context.Background()
	bl := NewMemoryBlacklist()
	token, err := GenerateToken(3, "c@example.com", testAuthCfg)
	require.NoError(t, err)

	claims, err := ValidateToken(ctx, token, testAuthCfg.JWTSecretKey, bl)
	require.NoError(t, err)

	require.NoError(t, bl.Add(ctx, claims.ID, claims.ExpiresAt.Time))
	_, err = ValidateToken(ctx, token, testAuthCfg.JWTSecretKey, bl)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestMemoryBlacklist_ExpiredEntries(t *testing.T) {
	ctx := context.Background()
	bl := NewMemoryBlacklist()

	require.NoError(t, bl.Add(ctx, "old", time.Now().Add(-time.Second)))
	revoked, err := bl.IsBlacklisted(ctx, "old")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("Secret#123")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("Secret#123", hash))
	assert.False(t, CheckPasswordHash("secret#123", hash))
}

func TestIsStrongPassword(t *testing.T) {
	cases := map[string]bool{
		"Secret#123": true,
		"Sh0rt!":     false,
		"alllower1!": false,
		"ALLUPPER1!": false,
		"NoDigits!!": false,
		"NoSpecial1": false,
		"Pässwörd1$": true,
	}
	for pw, want := range cases {
		assert.Equal(t, want, IsStrongPassword(pw), pw)
	}
}
