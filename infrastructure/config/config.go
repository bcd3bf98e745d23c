// Package config reads runtime settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"browser_agent/application/executor"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Headless        bool
	LogLevel        logrus.Level
	RunDBPath       string
	SiteProfiles    string
	ComparisonSites []string

	LLMAPIKey string
	LLMAPIURL string
	LLMModel  string

	SelectorRetries int
	SelectorBackoff time.Duration
	CloseGrace      time.Duration
}

// Load - reads envFile when it exists, then the process environment.
// Variables already set in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}
	return FromEnv()
}

// FromEnv - builds Config from environment variables only
func FromEnv() (Config, error) {
	defaults := executor.DefaultConfig()
	cfg := Config{
		RunDBPath:       os.Getenv("RUN_DB_PATH"),
		SiteProfiles:    os.Getenv("SITE_PROFILES_PATH"),
		ComparisonSites: []string{"flipkart", "amazon"},
		LLMAPIKey:       os.Getenv("OPENROUTER_API_KEY"),
		LLMAPIURL:       os.Getenv("OPENROUTER_API_URL"),
		LLMModel:        os.Getenv("LLM_MODEL"),
		SelectorRetries: defaults.Retries,
		SelectorBackoff: defaults.BackoffBase,
		CloseGrace:      defaults.CloseGrace,
		LogLevel:        logrus.InfoLevel,
	}

	var err error
	if cfg.Headless, err = boolEnv("BROWSER_HEADLESS", false); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if cfg.LogLevel, err = logrus.ParseLevel(v); err != nil {
			return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}
	if v := os.Getenv("COMPARISON_SITES"); v != "" {
		cfg.ComparisonSites = splitList(v)
	}
	if cfg.SelectorRetries, err = intEnv("SELECTOR_RETRIES", cfg.SelectorRetries); err != nil {
		return Config{}, err
	}
	if cfg.SelectorRetries < 1 {
		return Config{}, fmt.Errorf("SELECTOR_RETRIES must be at least 1, got %d", cfg.SelectorRetries)
	}
	if cfg.SelectorBackoff, err = durationEnv("SELECTOR_BACKOFF", cfg.SelectorBackoff); err != nil {
		return Config{}, err
	}
	if cfg.CloseGrace, err = durationEnv("BROWSER_CLOSE_GRACE", cfg.CloseGrace); err != nil {
		return Config{}, err
	}

	if cfg.RunDBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		cfg.RunDBPath = filepath.Join(home, ".browser_agent", "runs.db")
	}
	return cfg, nil
}

// ExecutorConfig - execution tunables with the environment overrides applied
func (c Config) ExecutorConfig() executor.Config {
	ec := executor.DefaultConfig()
	ec.Headless = c.Headless
	ec.Retries = c.SelectorRetries
	ec.BackoffBase = c.SelectorBackoff
	ec.CloseGrace = c.CloseGrace
	return ec
}

// NewLogger - text logger at the configured level
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return logger
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// durationEnv accepts Go durations ("1.5s") or plain seconds ("2")
func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(strings.ToLower(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
