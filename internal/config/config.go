// Package config loads newsburr settings from flags, the environment and
// .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingAPIKey is returned by Validate when no API key is configured.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY environment variable is required")

// Keys shared by viper, cobra flags and the environment.
const (
	KeyAPIKey         = "api-key"
	KeyBaseURL        = "base-url"
	KeyVariant        = "variant"
	KeyModel          = "model"
	KeyMaxRetries     = "max-retries"
	KeyOutputDir      = "output-dir"
	KeyTimeout        = "timeout"
	KeyHistoryBackend = "history-backend"
	KeyHistoryDSN     = "history-dsn"
	KeyVerify         = "verify"
	KeyFingerprint    = "fingerprint"
	KeyLogLevel       = "log-level"
	KeyLogFormat      = "log-format"
	KeyMetricsFile    = "metrics-file"
)

// Default values
const (
	DefaultBaseURL    = "https://api.openai.com"
	DefaultMaxRetries = 3
	DefaultOutputDir  = "."
	DefaultTimeout    = 60 * time.Second
)

// HistoryBackends lists the accepted history backend names.
var HistoryBackends = []string{"none", "jsonl", "csv", "sqlite", "postgres"}

var envNames = map[string]string{
	KeyAPIKey:  "OPENAI_API_KEY",
	KeyBaseURL: "OPENAI_BASE_URL",
}

// EnvName returns the environment variable that feeds key.
func EnvName(key string) string {
	if name, ok := envNames[key]; ok {
		return name
	}
	return "NEWSBURR_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// Config holds the resolved settings of one run.
type Config struct {
	APIKey         string
	BaseURL        string
	Variant        string
	Model          string
	MaxRetries     int
	OutputDir      string
	Timeout        time.Duration
	HistoryBackend string
	HistoryDSN     string
	Verify         bool
	Fingerprint    string
	LogLevel       string
	LogFormat      string
	MetricsFile    string
}

// New returns a viper instance with defaults and environment bindings for
// every key. Callers may bind command line flags on top of it.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyBaseURL, DefaultBaseURL)
	v.SetDefault(KeyMaxRetries, DefaultMaxRetries)
	v.SetDefault(KeyOutputDir, DefaultOutputDir)
	v.SetDefault(KeyTimeout, DefaultTimeout.String())
	v.SetDefault(KeyHistoryBackend, "none")
	v.SetDefault(KeyFingerprint, "go")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")

	for _, key := range []string{
		KeyAPIKey, KeyBaseURL, KeyVariant, KeyModel, KeyMaxRetries, KeyOutputDir,
		KeyTimeout, KeyHistoryBackend, KeyHistoryDSN, KeyVerify, KeyFingerprint,
		KeyLogLevel, KeyLogFormat, KeyMetricsFile,
	} {
		_ = v.BindEnv(key, EnvName(key))
	}
	return v
}

// LoadDotEnv loads the .env files found in the working directory and under
// ~/.config/newsburr. Variables already set in the environment win. A file
// that exists but cannot be parsed is an error.
func LoadDotEnv() error {
	for _, path := range envPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

func envPaths() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "newsburr", ".env"))
	}
	return paths
}

// Load resolves a Config from v. It does not require an API key; call
// Validate before talking to the model API.
func Load(v *viper.Viper) (*Config, error) {
	timeout, err := parseDuration(v.GetString(KeyTimeout))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", KeyTimeout, err)
	}

	maxRetries, err := strconv.Atoi(strings.TrimSpace(v.GetString(KeyMaxRetries)))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", KeyMaxRetries, err)
	}

	cfg := &Config{
		APIKey:         strings.TrimSpace(v.GetString(KeyAPIKey)),
		BaseURL:        strings.TrimRight(v.GetString(KeyBaseURL), "/"),
		Variant:        v.GetString(KeyVariant),
		Model:          v.GetString(KeyModel),
		MaxRetries:     maxRetries,
		OutputDir:      v.GetString(KeyOutputDir),
		Timeout:        timeout,
		HistoryBackend: strings.ToLower(v.GetString(KeyHistoryBackend)),
		HistoryDSN:     v.GetString(KeyHistoryDSN),
		Verify:         v.GetBool(KeyVerify),
		Fingerprint:    v.GetString(KeyFingerprint),
		LogLevel:       v.GetString(KeyLogLevel),
		LogFormat:      v.GetString(KeyLogFormat),
		MetricsFile:    v.GetString(KeyMetricsFile),
	}

	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("%s must be at least 1, got %d", KeyMaxRetries, cfg.MaxRetries)
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("%s must be positive, got %s", KeyTimeout, cfg.Timeout)
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.HistoryBackend == "" {
		cfg.HistoryBackend = "none"
	}
	if !validBackend(cfg.HistoryBackend) {
		return nil, fmt.Errorf("unknown %s %q (want one of %s)",
			KeyHistoryBackend, cfg.HistoryBackend, strings.Join(HistoryBackends, ", "))
	}

	return cfg, nil
}

// Validate checks the settings needed to run a search.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func validBackend(name string) bool {
	for _, b := range HistoryBackends {
		if b == name {
			return true
		}
	}
	return false
}

// parseDuration accepts Go durations ("90s", "2m") and bare seconds ("60").
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}
