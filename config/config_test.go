package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("KEYCLOAK_URL", "http://kc.local:8081/")

	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "burncare_db", cfg.Database.DBName)
	assert.Equal(t, "http://kc.local:8081", cfg.Keycloak.BaseURL)
	assert.Equal(t, "springboot-app", cfg.Keycloak.ClientID)
	assert.Equal(t, "keycloak", cfg.Identity.Mode)
	assert.Equal(t, "burncare.accounts", cfg.Broker.Channel)
	assert.Equal(t, 30*time.Second, cfg.Redis.StatsTTL)
}

func TestGetEnvHelpers(t *testing.T) {
	tests := []struct {
		name  string
		value string
		check func(t *testing.T)
	}{
		{"int parses", "42", func(t *testing.T) { assert.Equal(t, 42, getEnvInt("CFG_TEST", 7)) }},
		{"int falls back", "abc", func(t *testing.T) { assert.Equal(t, 7, getEnvInt("CFG_TEST", 7)) }},
		{"bool true", "yes", func(t *testing.T) { assert.True(t, getEnvBool("CFG_TEST", false)) }},
		{"bool false", "0", func(t *testing.T) { assert.False(t, getEnvBool("CFG_TEST", true)) }},
		{"bool garbage", "maybe", func(t *testing.T) { assert.True(t, getEnvBool("CFG_TEST", true)) }},
		{"duration parses", "2m", func(t *testing.T) {
			assert.Equal(t, 2*time.Minute, getEnvDuration("CFG_TEST", time.Second))
		}},
		{"duration falls back", "soon", func(t *testing.T) {
			assert.Equal(t, time.Second, getEnvDuration("CFG_TEST", time.Second))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CFG_TEST", tt.value)
			tt.check(t)
		})
	}
}
