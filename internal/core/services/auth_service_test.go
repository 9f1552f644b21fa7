package services

import (
	"testing"
	"time"

	"notemesh/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_GenerateAndValidateToken(t *testing.T) {
	svc := NewAuthService("test-secret", time.Hour, 24*time.Hour)

	token, err := svc.GenerateToken("alice", "alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("alice"), claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Username)

	identity := claims.Identity()
	assert.Equal(t, domain.UserID("alice"), identity.UserID)
}

func TestAuthService_RejectsGarbage(t *testing.T) {
	svc := NewAuthService("test-secret", time.Hour, 24*time.Hour)

	_, err := svc.ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_RejectsWrongSecret(t *testing.T) {
	issuer := NewAuthService("secret-a", time.Hour, 24*time.Hour)
	verifier := NewAuthService("secret-b", time.Hour, 24*time.Hour)

	token, err := issuer.GenerateToken("alice", "alice")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_RejectsExpiredToken(t *testing.T) {
	svc := NewAuthService("test-secret", -time.Minute, 24*time.Hour)

	token, err := svc.GenerateToken("alice", "alice")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestAuthService_RefreshTokenRoundtrip(t *testing.T) {
	svc := NewAuthService("test-secret", time.Hour, 24*time.Hour)

	token, err := svc.GenerateRefreshToken("alice")
	require.NoError(t, err)

	claims, err := svc.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("alice"), claims.UserID)
}
