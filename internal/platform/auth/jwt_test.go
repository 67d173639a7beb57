package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)
	userID := uuid.New()

	token, err := m.GenerateAccessToken(userID, RoleHost)
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, RoleHost, claims.Role)
}

func TestJWTManager_Rejects(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)

	foreign, err := NewJWTManager("other", time.Minute).GenerateAccessToken(uuid.New(), RoleGuest)
	require.NoError(t, err)
	_, err = m.ValidateToken(foreign)
	assert.Error(t, err)

	expired, err := NewJWTManager("secret", -time.Minute).GenerateAccessToken(uuid.New(), RoleGuest)
	require.NoError(t, err)
	_, err = m.ValidateToken(expired)
	assert.Error(t, err)

	anonymous, err := m.GenerateAccessToken(uuid.Nil, RoleGuest)
	require.NoError(t, err)
	_, err = m.ValidateToken(anonymous)
	assert.Error(t, err)
}

func TestActor_IsAdmin(t *testing.T) {
	assert.True(t, Actor{Role: RoleAdmin}.IsAdmin())
	assert.True(t, SystemActor.IsAdmin())
	assert.False(t, Actor{Role: RoleHost}.IsAdmin())
}
