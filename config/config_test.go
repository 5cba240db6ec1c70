package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverrides(t *testing.T) {
	t.Run("ANALYZE_URL replaces default endpoint", func(t *testing.T) {
		t.Setenv("ANALYZE_URL", "https://analysis.internal/analyze")

		cfg := DefaultConfigWithRoot(t.TempDir())
		cfg.LoadFromEnv()

		assert.Equal(t, "https://analysis.internal/analyze", cfg.AnalyzeURL)
	})

	t.Run("REQUEST_TIMEOUT accepts seconds and durations", func(t *testing.T) {
		cfg := DefaultConfigWithRoot(t.TempDir())

		t.Setenv("REQUEST_TIMEOUT", "45")
		cfg.LoadFromEnv()
		assert.Equal(t, 45*time.Second, cfg.RequestTimeout())

		t.Setenv("REQUEST_TIMEOUT", "2m")
		cfg.LoadFromEnv()
		assert.Equal(t, 2*time.Minute, cfg.RequestTimeout())
	})

	t.Run("sub-second REQUEST_TIMEOUT rounds up instead of disabling the timeout", func(t *testing.T) {
		cfg := DefaultConfigWithRoot(t.TempDir())

		t.Setenv("REQUEST_TIMEOUT", "500ms")
		cfg.LoadFromEnv()
		assert.Equal(t, time.Second, cfg.RequestTimeout())

		t.Setenv("REQUEST_TIMEOUT", "1500ms")
		cfg.LoadFromEnv()
		assert.Equal(t, 2*time.Second, cfg.RequestTimeout())

		t.Setenv("REQUEST_TIMEOUT", "0s")
		cfg.LoadFromEnv()
		assert.Equal(t, time.Duration(0), cfg.RequestTimeout())
	})

	t.Run("garbage values are ignored", func(t *testing.T) {
		t.Setenv("REQUEST_TIMEOUT", "soon")
		t.Setenv("STOCKANALYZER_DEBUG", "maybe")

		cfg := DefaultConfigWithRoot(t.TempDir())
		cfg.LoadFromEnv()

		assert.Equal(t, DefaultTimeoutSeconds, cfg.RequestTimeoutSeconds)
		assert.False(t, cfg.Debug)
	})

	t.Run("LOG_FORMAT is case insensitive", func(t *testing.T) {
		t.Setenv("LOG_FORMAT", "Console")

		cfg := DefaultConfigWithRoot(t.TempDir())
		cfg.LoadFromEnv()

		assert.Equal(t, LogFormatConsole, cfg.LogFormat)
		require.NoError(t, cfg.Validate())
	})
}

func TestRequestTimeoutZeroMeansUnbounded(t *testing.T) {
	cfg := DefaultConfigWithRoot(t.TempDir())
	cfg.RequestTimeoutSeconds = 0
	assert.Equal(t, time.Duration(0), cfg.RequestTimeout())
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"https endpoint", func(c *Config) { c.AnalyzeURL = "https://api.example.com/analyze" }, true},
		{"no scheme", func(c *Config) { c.AnalyzeURL = "localhost:5000/analyze" }, false},
		{"no host", func(c *Config) { c.AnalyzeURL = "http:///analyze" }, false},
		{"negative timeout", func(c *Config) { c.RequestTimeoutSeconds = -1 }, false},
		{"empty listen addr", func(c *Config) { c.ListenAddr = " " }, false},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfigWithRoot(t.TempDir())
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSet(t *testing.T) {
	cfg := DefaultConfigWithRoot(t.TempDir())

	require.NoError(t, cfg.Set("debug", "true"))
	assert.True(t, cfg.Debug)

	require.NoError(t, cfg.Set("listen_addr", ":9090"))
	assert.Equal(t, ":9090", cfg.ListenAddr)

	assert.Error(t, cfg.Set("request_timeout_seconds", "ten"))
	assert.Error(t, cfg.Set("nope", "x"))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("STOCKANALYZER_DOTENV_PROBE=from-dotenv\n"), 0o600))
	t.Chdir(dir)
	t.Cleanup(func() { _ = os.Unsetenv("STOCKANALYZER_DOTENV_PROBE") })

	LoadDotEnv()

	assert.Equal(t, "from-dotenv", os.Getenv("STOCKANALYZER_DOTENV_PROBE"))
}
