package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ML_BASE_URL", "http://ml.internal:8000")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("ML_WEBHOOK_SECRET", "webhook-secret")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, DispatchModeQueued, cfg.DispatchMode)
	assert.Equal(t, 3, cfg.Queue.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Queue.BaseBackoff)
	assert.Equal(t, 500, cfg.Queue.FailedRetention)
	assert.Equal(t, 3, cfg.Queue.Workers)
	assert.Equal(t, 5*time.Minute, cfg.Queue.VisibilityTimeout)
	assert.Equal(t, 25*time.Second, cfg.ML.Timeout)
	assert.Equal(t, "http://ml.internal:8000", cfg.ML.BaseURL)
	assert.Equal(t, "localhost", cfg.Database.Host)
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	testCases := []struct {
		name string
		skip string
	}{
		{"missing ML_BASE_URL", "ML_BASE_URL"},
		{"missing JWT_SECRET", "JWT_SECRET"},
		{"missing ML_WEBHOOK_SECRET", "ML_WEBHOOK_SECRET"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			envs := map[string]string{
				"ML_BASE_URL":       "http://ml.internal:8000",
				"JWT_SECRET":        "jwt-secret",
				"ML_WEBHOOK_SECRET": "webhook-secret",
			}
			for key, value := range envs {
				if key == tc.skip {
					t.Setenv(key, "")
					continue
				}
				t.Setenv(key, value)
			}

			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.skip)
		})
	}
}

func TestLoadConfig_DispatchMode(t *testing.T) {
	setRequiredEnv(t)

	t.Setenv("DISPATCH_MODE", "sync")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DispatchModeSync, cfg.DispatchMode)

	t.Setenv("DISPATCH_MODE", "fire-and-forget")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "DISPATCH_MODE")
}

func TestLoadConfig_QueueOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("QUEUE_MAX_ATTEMPTS", "5")
	t.Setenv("QUEUE_BASE_BACKOFF", "2s")
	t.Setenv("WORKER_COUNT", "8")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Queue.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Queue.BaseBackoff)
	assert.Equal(t, 8, cfg.Queue.Workers)
}
