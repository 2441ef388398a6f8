package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "5000", cfg.ServerPort)
	assert.Equal(t, "models/patient_dependability_model", cfg.ArtifactPrefix)
	assert.Equal(t, "Ensemble", cfg.DefaultModel)
	assert.False(t, cfg.PredictionLogEnabled)
	assert.Equal(t, "dependability.predicted", cfg.EventsTopic)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "8090")
	t.Setenv("RESULT_CACHE_ENABLED", "true")
	t.Setenv("RESULT_CACHE_TTL", "30s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("RATE_LIMIT_RPS", "not-a-number")

	cfg := Load()

	assert.Equal(t, "8090", cfg.ServerPort)
	assert.True(t, cfg.ResultCacheEnabled)
	assert.Equal(t, 30*time.Second, cfg.ResultCacheTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 20, cfg.RateLimitRPS)
}

func TestGetBoolEnvInvalid(t *testing.T) {
	t.Setenv("EVENTS_ENABLED", "maybe")
	assert.False(t, Load().EventsEnabled)
}
