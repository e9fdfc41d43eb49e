package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"API_BASE_URL", "CONSOLE_ADDR", "METRICS_ADDR", "FORMS_FILE", "DIRECTORY_TIMEOUT", "SUBMIT_CONCURRENCY"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	assert.Equal(t, "http://localhost:8080", cfg.APIBaseURL)
	assert.Equal(t, ":3000", cfg.ConsoleAddr)
	assert.Equal(t, 8*time.Second, cfg.DirectoryTimeout)
	assert.Equal(t, 4, cfg.SubmitConcurrency)
	assert.Empty(t, cfg.MetricsAddr)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://hr.example.com/api/")
	t.Setenv("DIRECTORY_TIMEOUT", "2s")
	t.Setenv("SUBMIT_CONCURRENCY", "9")

	cfg := FromEnv()
	assert.Equal(t, "https://hr.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, 2*time.Second, cfg.DirectoryTimeout)
	assert.Equal(t, 9, cfg.SubmitConcurrency)
}

func TestLoadReadsDotEnv(t *testing.T) {
	t.Setenv("CONSOLE_ADDR", "")
	os.Unsetenv("CONSOLE_ADDR")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CONSOLE_ADDR=:3999\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":3999", cfg.ConsoleAddr)
}
