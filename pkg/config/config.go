// Package config provides environment-based configuration for the remediation daemon.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the remediation daemon.
type Config struct {
	// Deployment platform API
	PlatformURL   string
	PlatformToken string
	ProjectID     string

	// Source-control host
	SCMBaseURL string
	SCMToken   string
	RepoOwner  string
	RepoName   string

	// Workflow orchestration engine
	EngineURL    string
	EngineAPIKey string
	EngineFlowID string

	// AI analysis provider
	ProviderURL   string
	ProviderToken string
	ProviderModel string

	// Optional ledger archive database. Empty disables archiving.
	DatabaseDSN string

	// API server
	APIHost   string
	APIPort   int
	JWTSecret string

	// Path to the YAML watch list of projects to monitor.
	WatchListPath string

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration

	Monitor  MonitorConfig
	Analyzer AnalyzerConfig
	Merge    MergeConfig
}

// MonitorConfig holds poller-specific configuration.
type MonitorConfig struct {
	// PollInterval is the period between status/log polls.
	PollInterval time.Duration
	// Window is the maximum time one deployment is monitored before
	// polling stops regardless of status.
	Window time.Duration
}

// AnalyzerConfig holds AI provider call discipline configuration.
type AnalyzerConfig struct {
	// RateLimit is the maximum number of provider calls per minute.
	RateLimit int
	// MinSpacing is the minimum gap between consecutive provider calls.
	MinSpacing time.Duration
	// BackoffBase is the initial retry delay after a rate-limited call.
	BackoffBase time.Duration
	// MaxRetries bounds the number of retries before degrading to a
	// template fix.
	MaxRetries int
}

// MergeConfig holds merge supervision configuration.
type MergeConfig struct {
	// CheckInterval is the period between change-status polls.
	CheckInterval time.Duration
	// Deadline is the maximum time to wait for checks to pass before
	// requiring manual intervention.
	Deadline time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := loadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithDefaults loads configuration with defaults for development.
// It does not validate required fields, useful for testing.
func LoadWithDefaults() *Config {
	return loadFromEnv()
}

func loadFromEnv() *Config {
	return &Config{
		PlatformURL:     getEnv("PLATFORM_URL", "https://api.vercel.com"),
		PlatformToken:   getEnv("PLATFORM_TOKEN", ""),
		ProjectID:       getEnv("PROJECT_ID", ""),
		SCMBaseURL:      getEnv("SCM_BASE_URL", "https://api.github.com"),
		SCMToken:        getEnv("SCM_TOKEN", ""),
		RepoOwner:       getEnv("REPO_OWNER", ""),
		RepoName:        getEnv("REPO_NAME", ""),
		EngineURL:       getEnv("ENGINE_URL", "http://localhost:5678"),
		EngineAPIKey:    getEnv("ENGINE_API_KEY", ""),
		EngineFlowID:    getEnv("ENGINE_FLOW_ID", "deployment-remediation"),
		ProviderURL:     getEnv("PROVIDER_URL", ""),
		ProviderToken:   getEnv("PROVIDER_TOKEN", ""),
		ProviderModel:   getEnv("PROVIDER_MODEL", "claude-sonnet-4-20250514"),
		DatabaseDSN:     getEnv("DATABASE_URL", ""),
		APIHost:         getEnv("API_HOST", "0.0.0.0"),
		APIPort:         getIntEnv("API_PORT", 8080),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		WatchListPath:   getEnv("WATCH_LIST", ""),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		Monitor: MonitorConfig{
			PollInterval: getDurationEnv("POLL_INTERVAL", 10*time.Second),
			Window:       getDurationEnv("MONITOR_WINDOW", 10*time.Minute),
		},
		Analyzer: AnalyzerConfig{
			RateLimit:   getIntEnv("PROVIDER_RATE_LIMIT", 15),
			MinSpacing:  getDurationEnv("PROVIDER_MIN_SPACING", 2*time.Second),
			BackoffBase: getDurationEnv("PROVIDER_BACKOFF_BASE", 1*time.Second),
			MaxRetries:  getIntEnv("PROVIDER_MAX_RETRIES", 3),
		},
		Merge: MergeConfig{
			CheckInterval: getDurationEnv("CHECK_INTERVAL", 30*time.Second),
			Deadline:      getDurationEnv("MERGE_DEADLINE", 10*time.Minute),
		},
	}
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.PlatformToken == "" {
		return fmt.Errorf("PLATFORM_TOKEN is required")
	}
	if c.SCMToken == "" {
		return fmt.Errorf("SCM_TOKEN is required")
	}
	if c.RepoOwner == "" || c.RepoName == "" {
		return fmt.Errorf("REPO_OWNER and REPO_NAME are required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
