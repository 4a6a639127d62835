package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigDefaults(t *testing.T) {
	v, err := LoadConfigFrom(t.TempDir())
	require.NoError(t, err)

	cfg, err := ParseConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, int64(10<<20), cfg.Detection.MaxUploadBytes)
	assert.Equal(t, "http://localhost:8080", cfg.Backend.BaseURL)
	assert.Equal(t, time.Duration(0), cfg.Backend.Timeout)
	assert.True(t, cfg.Backend.Breaker.Enabled)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Storage.ResultTTL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "drug-detections", cfg.Kafka.Topic)
}

func TestAPIURLOverridesBackendBaseURL(t *testing.T) {
	t.Setenv("API_URL", "https://detector.example.com")

	v, err := LoadConfigFrom(t.TempDir())
	require.NoError(t, err)
	cfg, err := ParseConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "https://detector.example.com", cfg.Backend.BaseURL)
}

func TestConfigFileAndPrefixedEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("server:\n  port: \"9090\"\ndetection:\n  max_upload_bytes: 2048\nstorage:\n  driver: redis\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))
	t.Setenv("DRUG_SERVER_MODE", "release")

	v, err := LoadConfigFrom(dir)
	require.NoError(t, err)
	cfg, err := ParseConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, int64(2048), cfg.Detection.MaxUploadBytes)
	assert.Equal(t, "redis", cfg.Storage.Driver)
}

func TestParseConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "unknown storage driver", yaml: "storage:\n  driver: s3\n"},
		{name: "non positive upload limit", yaml: "detection:\n  max_upload_bytes: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(tt.yaml), 0o644))

			v, err := LoadConfigFrom(dir)
			require.NoError(t, err)
			_, err = ParseConfig(v)
			assert.Error(t, err)
		})
	}
}
