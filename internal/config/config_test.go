// ABOUTME: Tests for client and mock backend configuration
// ABOUTME: Covers defaults, overrides, validation and .env loading

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cleanEnv(t, nil)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.APIURL != "http://localhost:5000" {
		t.Errorf("Expected default API URL, got %s", cfg.APIURL)
	}
	if cfg.Store != "file" {
		t.Errorf("Expected file store, got %s", cfg.Store)
	}
	if filepath.Base(cfg.ConfigDir) != "equiplend" {
		t.Errorf("Expected XDG config dir, got %s", cfg.ConfigDir)
	}
	if cfg.VerifyTimeout != 5*time.Second || cfg.RetryDelay != 2*time.Second {
		t.Errorf("Unexpected bootstrap timings %s / %s", cfg.VerifyTimeout, cfg.RetryDelay)
	}
	if cfg.RateLimitCooldown != time.Minute {
		t.Errorf("Expected 60s cooldown, got %s", cfg.RateLimitCooldown)
	}
	if cfg.MaintenanceInterval != 30*time.Second || cfg.NotificationInterval != time.Minute {
		t.Errorf("Unexpected poll intervals %s / %s", cfg.MaintenanceInterval, cfg.NotificationInterval)
	}
	if !cfg.AutoReverify || !cfg.InvalidateOnNetworkError {
		t.Error("Expected reference bootstrap policy by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	cleanEnv(t, map[string]string{
		"EQUIPLEND_API_URL":                     "https://lend.example.edu/",
		"EQUIPLEND_STORE":                       "SQLite",
		"EQUIPLEND_CONFIG_DIR":                  "/tmp/eq",
		"EQUIPLEND_VERIFY_TIMEOUT":              "750ms",
		"EQUIPLEND_RETRY_DELAY":                 "3",
		"EQUIPLEND_INVALIDATE_ON_NETWORK_ERROR": "false",
		"EQUIPLEND_ALL_PROXY":                   "ssh+socks5://u@jump:22?private-key=/k",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.APIURL != "https://lend.example.edu" {
		t.Errorf("Expected trailing slash trimmed, got %s", cfg.APIURL)
	}
	if cfg.Store != "sqlite" {
		t.Errorf("Expected sqlite store, got %s", cfg.Store)
	}
	if cfg.ConfigDir != "/tmp/eq" {
		t.Errorf("Expected /tmp/eq, got %s", cfg.ConfigDir)
	}
	if cfg.VerifyTimeout != 750*time.Millisecond {
		t.Errorf("Expected 750ms, got %s", cfg.VerifyTimeout)
	}
	if cfg.RetryDelay != 3*time.Second {
		t.Errorf("Expected bare seconds to parse, got %s", cfg.RetryDelay)
	}
	if cfg.InvalidateOnNetworkError {
		t.Error("Expected relaxed network policy")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad url", map[string]string{"EQUIPLEND_API_URL": "localhost:5000"}},
		{"ftp url", map[string]string{"EQUIPLEND_API_URL": "ftp://host"}},
		{"unknown store", map[string]string{"EQUIPLEND_STORE": "redis"}},
		{"zero timeout", map[string]string{"EQUIPLEND_VERIFY_TIMEOUT": "0s"}},
		{"negative interval", map[string]string{"EQUIPLEND_MAINTENANCE_INTERVAL": "-1s"}},
		{"bad proxy scheme", map[string]string{"EQUIPLEND_ALL_PROXY": "http://proxy:3128"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanEnv(t, tt.env)
			if _, err := Load(); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}

func TestLoad_UnparsableFallsBackToDefault(t *testing.T) {
	cleanEnv(t, map[string]string{
		"EQUIPLEND_RETRY_DELAY":   "soon",
		"EQUIPLEND_AUTO_REVERIFY": "maybe",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.RetryDelay != 2*time.Second {
		t.Errorf("Expected default retry delay, got %s", cfg.RetryDelay)
	}
	if !cfg.AutoReverify {
		t.Error("Expected default auto reverify")
	}
}

func TestLoadMock_Defaults(t *testing.T) {
	cleanEnv(t, nil)

	cfg, err := LoadMock()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Port != "5000" || cfg.JWTSecret != "dev-secret" || cfg.TokenTTL != time.Hour {
		t.Errorf("Unexpected defaults %+v", cfg)
	}
	if cfg.RateLimitAuth != 5 || cfg.RateLimitDefault != 100 {
		t.Errorf("Unexpected rate limits %d / %d", cfg.RateLimitAuth, cfg.RateLimitDefault)
	}
}

func TestLoadMock_RateLimitBounds(t *testing.T) {
	for _, value := range []string{"0", "10001"} {
		t.Run(value, func(t *testing.T) {
			cleanEnv(t, map[string]string{"MOCK_RATE_LIMIT_AUTH": value})
			if _, err := LoadMock(); err == nil {
				t.Errorf("Expected error for MOCK_RATE_LIMIT_AUTH=%s", value)
			}
		})
	}
}

func TestLoadMock_BadPort(t *testing.T) {
	cleanEnv(t, map[string]string{"MOCK_PORT": "http"})
	if _, err := LoadMock(); err == nil {
		t.Error("Expected error for non-numeric port")
	}
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	cleanEnv(t, map[string]string{"EQUIPLEND_STORE": "memory"})

	dir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "equiplend")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	content := "EQUIPLEND_STORE=sqlite\nEQUIPLEND_API_URL=http://dotenv:9000\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	LoadDotEnv()

	if got := os.Getenv("EQUIPLEND_STORE"); got != "memory" {
		t.Errorf("Expected existing env to win, got %s", got)
	}
	if got := os.Getenv("EQUIPLEND_API_URL"); got != "http://dotenv:9000" {
		t.Errorf("Expected .env value loaded, got %s", got)
	}
}

func TestDefaultConfigDir(t *testing.T) {
	cleanEnv(t, map[string]string{"XDG_CONFIG_HOME": "/xdg"})
	if got := DefaultConfigDir(); got != "/xdg/equiplend" {
		t.Errorf("Expected /xdg/equiplend, got %s", got)
	}
}
