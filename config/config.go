package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAnalyzeURL     = "http://localhost:5000/analyze"
	DefaultListenAddr     = "127.0.0.1:8080"
	DefaultTimeoutSeconds = 180

	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// Config holds the non-secret settings of the analyzer. The API key the user
// types into the form is never part of it.
type Config struct {
	AnalyzeURL            string `json:"analyze_url"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
	ListenAddr            string `json:"listen_addr"`

	LogFormat string `json:"log_format"`
	LogDir    string `json:"log_dir"`
	Debug     bool   `json:"debug"`
}

// LoadDotEnv loads a .env file from the working directory when one exists.
// Values already present in the environment win.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// DefaultConfigWithRoot returns the built-in defaults with logs kept under root.
func DefaultConfigWithRoot(root string) *Config {
	return &Config{
		AnalyzeURL:            DefaultAnalyzeURL,
		RequestTimeoutSeconds: DefaultTimeoutSeconds,
		ListenAddr:            DefaultListenAddr,
		LogFormat:             LogFormatJSON,
		LogDir:                root,
		Debug:                 false,
	}
}

// LoadFromEnv overrides fields with environment variables when they are set.
func (c *Config) LoadFromEnv() {
	if val := os.Getenv("ANALYZE_URL"); val != "" {
		c.AnalyzeURL = val
	}
	if val := os.Getenv("REQUEST_TIMEOUT"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.RequestTimeoutSeconds = v
		} else if d, err := time.ParseDuration(val); err == nil {
			c.RequestTimeoutSeconds = durationSeconds(d)
		}
	}
	if val := os.Getenv("LISTEN_ADDR"); val != "" {
		c.ListenAddr = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.LogFormat = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_DIR"); val != "" {
		c.LogDir = val
	}
	if val := os.Getenv("STOCKANALYZER_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}
}

// durationSeconds rounds positive durations up so that a sub-second value
// never turns into 0, which would mean no timeout at all.
func durationSeconds(d time.Duration) int {
	if d <= 0 {
		return int(d / time.Second)
	}
	return int((d + time.Second - 1) / time.Second)
}

// RequestTimeout is zero when requests may wait indefinitely.
func (c *Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c *Config) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.AnalyzeURL))
	if err != nil {
		return fmt.Errorf("invalid analyze_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid analyze_url %q: scheme must be http or https", c.AnalyzeURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid analyze_url %q: missing host", c.AnalyzeURL)
	}
	if c.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("request_timeout_seconds must not be negative")
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("listen_addr is required")
	}
	switch c.LogFormat {
	case LogFormatJSON, LogFormatConsole:
	default:
		return fmt.Errorf("log_format must be %q or %q, got %q", LogFormatJSON, LogFormatConsole, c.LogFormat)
	}
	return nil
}

// Set assigns one field by its JSON key. It is what `config set` uses.
func (c *Config) Set(key, value string) error {
	switch key {
	case "analyze_url":
		c.AnalyzeURL = value
	case "request_timeout_seconds":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("request_timeout_seconds: %w", err)
		}
		c.RequestTimeoutSeconds = v
	case "listen_addr":
		c.ListenAddr = value
	case "log_format":
		c.LogFormat = strings.ToLower(value)
	case "log_dir":
		c.LogDir = value
	case "debug":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("debug: %w", err)
		}
		c.Debug = v
	default:
		return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	return nil
}

func Keys() []string {
	return []string{
		"analyze_url",
		"request_timeout_seconds",
		"listen_addr",
		"log_format",
		"log_dir",
		"debug",
	}
}

func (c *Config) EnsureDirectories() error {
	path := strings.TrimSpace(c.LogDir)
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}
