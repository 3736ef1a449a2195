package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("OTP_MAX_PER_WINDOW", "")

	cfg := Load(zap.NewNop())

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mysql", cfg.Storage)
	assert.Equal(t, 3, cfg.OTPMaxPerWindow)
	assert.Equal(t, 72*time.Hour, cfg.SessionTTL)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.True(t, cfg.Zarinpal.Sandbox)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE", "memory")
	t.Setenv("OTP_TTL", "90s")
	t.Setenv("OTP_MAX_ATTEMPTS", "7")
	t.Setenv("ALLOWED_ORIGINS", "https://shop.example, https://admin.example ,")
	t.Setenv("BASE_URL", "https://api.example/")
	t.Setenv("ZARINPAL_SANDBOX", "false")

	cfg := Load(zap.NewNop())

	assert.Equal(t, "memory", cfg.Storage)
	assert.Equal(t, 90*time.Second, cfg.OTPTTL)
	assert.Equal(t, 7, cfg.OTPMaxAttempts)
	assert.Equal(t, []string{"https://shop.example", "https://admin.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "https://api.example", cfg.BaseURL)
	assert.False(t, cfg.Zarinpal.Sandbox)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SESSION_TTL", "three days")
	t.Setenv("OTP_MAX_PER_WINDOW", "many")

	cfg := Load(zap.NewNop())

	assert.Equal(t, 72*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 3, cfg.OTPMaxPerWindow)
}
