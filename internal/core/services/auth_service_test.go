package services

import (
	"testing"
	"time"

	"streampulse/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_RoundTrip(t *testing.T) {
	svc := NewAuthService("secret", time.Hour)

	token, err := svc.GenerateToken("alice", domain.RoleOperator)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, domain.RoleOperator, claims.Role)
}

func TestAuthService_Rejects(t *testing.T) {
	svc := NewAuthService("secret", time.Hour)

	other, err := NewAuthService("other-secret", time.Hour).GenerateToken("bob", domain.RoleOperator)
	require.NoError(t, err)
	_, err = svc.ValidateToken(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewAuthService("secret", -time.Minute).GenerateToken("carol", domain.RoleViewer)
	require.NoError(t, err)
	_, err = svc.ValidateToken(expired)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestOperatorRole_Allows(t *testing.T) {
	assert.True(t, domain.RoleOperator.Allows(domain.RoleViewer))
	assert.True(t, domain.RoleOperator.Allows(domain.RoleOperator))
	assert.True(t, domain.RoleViewer.Allows(domain.RoleViewer))
	assert.False(t, domain.RoleViewer.Allows(domain.RoleOperator))
	assert.False(t, domain.OperatorRole("").Allows(domain.RoleViewer))
}
