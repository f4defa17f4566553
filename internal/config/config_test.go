package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("EXPOSE_CODES", "")

	cfg := Load()

	assert.Equal(t, "3000", cfg.AppPort)
	assert.True(t, cfg.ExposeCodes)
	assert.Equal(t, "dynamo", cfg.DurableStore)
	assert.Equal(t, "memory", cfg.StageStore)
	assert.Equal(t, DefaultRegistration(), cfg.Registration)
}

func TestLoad_ProductionHidesCodes(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("EXPOSE_CODES", "")

	assert.False(t, Load().ExposeCodes)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STAGE_TTL_MINUTES", "5")
	t.Setenv("RESEND_CODE_CEILING", "7")
	t.Setenv("REDIS_DIAL_TIMEOUT", "250ms")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg := Load()

	assert.Equal(t, 5*time.Minute, cfg.Registration.StageTTL)
	assert.Equal(t, 7, cfg.Registration.ResendCodeCeiling)
	assert.Equal(t, 250*time.Millisecond, cfg.Redis.DialTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("MAX_CODE_ATTEMPTS", "lots")
	assert.Equal(t, 5, Load().Registration.MaxCodeAttempts)
}
