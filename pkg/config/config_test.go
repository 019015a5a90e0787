package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PLATFORM_TOKEN", "platform-token")
	t.Setenv("SCM_TOKEN", "scm-token")
	t.Setenv("REPO_OWNER", "acme")
	t.Setenv("REPO_NAME", "web-app")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.PlatformURL != "https://api.vercel.com" {
		t.Errorf("PlatformURL = %q", cfg.PlatformURL)
	}
	if cfg.SCMBaseURL != "https://api.github.com" {
		t.Errorf("SCMBaseURL = %q", cfg.SCMBaseURL)
	}
	if cfg.APIPort != 8080 {
		t.Errorf("APIPort = %d", cfg.APIPort)
	}
	if cfg.Monitor.PollInterval != 10*time.Second {
		t.Errorf("PollInterval = %s", cfg.Monitor.PollInterval)
	}
	if cfg.Monitor.Window != 10*time.Minute {
		t.Errorf("Window = %s", cfg.Monitor.Window)
	}
	if cfg.Analyzer.RateLimit != 15 {
		t.Errorf("RateLimit = %d", cfg.Analyzer.RateLimit)
	}
	if cfg.Analyzer.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d", cfg.Analyzer.MaxRetries)
	}
	if cfg.Merge.Deadline != 10*time.Minute {
		t.Errorf("Merge.Deadline = %s", cfg.Merge.Deadline)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("API_PORT", "9090")
	t.Setenv("POLL_INTERVAL", "5s")
	t.Setenv("PROVIDER_RATE_LIMIT", "30")
	t.Setenv("MERGE_DEADLINE", "2m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", cfg.APIPort)
	}
	if cfg.Monitor.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %s, want 5s", cfg.Monitor.PollInterval)
	}
	if cfg.Analyzer.RateLimit != 30 {
		t.Errorf("RateLimit = %d, want 30", cfg.Analyzer.RateLimit)
	}
	if cfg.Merge.Deadline != 2*time.Minute {
		t.Errorf("Merge.Deadline = %s, want 2m", cfg.Merge.Deadline)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("API_PORT", "not-a-number")
	t.Setenv("POLL_INTERVAL", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIPort != 8080 {
		t.Errorf("APIPort = %d, want the 8080 default", cfg.APIPort)
	}
	if cfg.Monitor.PollInterval != 10*time.Second {
		t.Errorf("PollInterval = %s, want the 10s default", cfg.Monitor.PollInterval)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			PlatformToken: "p",
			SCMToken:      "s",
			RepoOwner:     "acme",
			RepoName:      "web-app",
			JWTSecret:     "0123456789abcdef0123456789abcdef",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing platform token", func(c *Config) { c.PlatformToken = "" }, "PLATFORM_TOKEN"},
		{"missing scm token", func(c *Config) { c.SCMToken = "" }, "SCM_TOKEN"},
		{"missing repo owner", func(c *Config) { c.RepoOwner = "" }, "REPO_OWNER"},
		{"missing repo name", func(c *Config) { c.RepoName = "" }, "REPO_OWNER"},
		{"missing jwt secret", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET"},
		{"short jwt secret", func(c *Config) { c.JWTSecret = "too-short" }, "32 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFailsWithoutRequiredEnv(t *testing.T) {
	t.Setenv("PLATFORM_TOKEN", "")
	t.Setenv("SCM_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded without required environment")
	}
}
