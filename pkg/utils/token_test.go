package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appnity/bannerstudio-backend/internal/config"
)

func withSecret(t *testing.T, secret string) {
	t.Helper()
	prev := config.AppConfig
	config.AppConfig = &config.Config{JWTSecret: secret}
	t.Cleanup(func() { config.AppConfig = prev })
}

func TestGenerateAndValidateToken(t *testing.T) {
	withSecret(t, "test_secret_key_12345")

	token, err := GenerateToken("ops@acme.test", RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@acme.test", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken_Rejects(t *testing.T) {
	withSecret(t, "test_secret_key_12345")

	expired, err := GenerateToken("ops", RoleAdmin, -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken(expired)
	assert.Error(t, err)

	good, err := GenerateToken("ops", RoleAdmin, time.Hour)
	require.NoError(t, err)
	config.AppConfig.JWTSecret = "another_secret"
	_, err = ValidateToken(good)
	assert.Error(t, err)

	_, err = ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestGenerateToken_RequiresSecret(t *testing.T) {
	withSecret(t, "")
	_, err := GenerateToken("ops", RoleAdmin, time.Hour)
	assert.ErrorIs(t, err, ErrNoSigningSecret)
}

func TestIsUUID(t *testing.T) {
	assert.True(t, IsUUID(GenerateID()))
	assert.False(t, IsUUID("design-1"))
}
