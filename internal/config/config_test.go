package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *AppConfig {
	return &AppConfig{
		Environment: "development",
		Security: SecurityConfig{
			JWTSecret: "0123456789abcdef0123456789abcdef",
			TokenTTL:  24 * time.Hour,
		},
	}
}

func TestValidateAcceptsGoodConfig(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateRejectsShortSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Security.JWTSecret = "too-short"

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 characters")
}

func TestValidateRejectsUnknownEnvironment(t *testing.T) {
	cfg := validConfig()
	cfg.Environment = "staging"

	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsZeroTTL(t *testing.T) {
	cfg := validConfig()
	cfg.Security.TokenTTL = 0

	assert.Error(t, cfg.Validate())
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CODESENSEI_SECURITY_JWTSECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 5000, cfg.HTTP.Port)
	assert.Equal(t, 24*time.Hour, cfg.Security.TokenTTL)
	assert.Equal(t, 100, cfg.RateLimit.GlobalMax)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.GlobalWindow)
	assert.Equal(t, 10, cfg.RateLimit.ReviewMax)
	assert.Equal(t, "codesensei-submissions", cfg.Storage.BucketSubmissions)
	assert.False(t, cfg.Production())
}
