package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "session-secret")
	t.Setenv("JWT_FORGET_PASSWORD", "reset-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "authgate", cfg.MongoDB)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10*time.Minute, cfg.ResetTTL)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, "http://localhost:3000/resetPassword", cfg.ResetURLBase)
	assert.False(t, cfg.ResetSingleUse)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("RESET_SINGLE_USE", "true")
	t.Setenv("SEND_EMAIL", "mailer@example.com")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.True(t, cfg.ResetSingleUse)
	assert.Equal(t, "mailer@example.com", cfg.SendEmail)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOriginList())
}

func TestValidate(t *testing.T) {
	base := Config{
		Port:              5000,
		JWTSecret:         "a",
		JWTForgetPassword: "b",
		SessionTTL:        time.Hour,
		ResetTTL:          10 * time.Minute,
	}

	t.Run("valid", func(t *testing.T) {
		c := base
		assert.NoError(t, c.Validate())
	})

	t.Run("missing secrets", func(t *testing.T) {
		c := base
		c.JWTSecret = ""
		c.JWTForgetPassword = ""
		err := c.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT_SECRET is required")
		assert.Contains(t, err.Error(), "JWT_FORGET_PASSWORD is required")
	})

	t.Run("shared secret", func(t *testing.T) {
		c := base
		c.JWTForgetPassword = c.JWTSecret
		assert.ErrorContains(t, c.Validate(), "must differ")
	})

	t.Run("bad ttl", func(t *testing.T) {
		c := base
		c.ResetTTL = 0
		assert.ErrorContains(t, c.Validate(), "RESET_TTL")
	})
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("MONGO_DB=fromfile\n"), 0o600))
	t.Setenv("MONGO_DB", "")
	require.NoError(t, os.Unsetenv("MONGO_DB"))

	require.NoError(t, LoadDotEnv(path))
	t.Cleanup(func() { _ = os.Unsetenv("MONGO_DB") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "fromfile", cfg.MongoDB)
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	assert.Error(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}
