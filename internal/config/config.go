// ABOUTME: Configuration loader for the equiplend client and mock backend
// ABOUTME: Loads settings from environment variables (and optional .env files) with defaults

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	appName = "equiplend"

	// DefaultAPIURL is the backend used when nothing else is configured
	DefaultAPIURL = "http://localhost:5000"
)

// Config holds client settings
type Config struct {
	// Backend
	APIURL      string
	HTTPTimeout time.Duration
	AllProxy    string // ssh+socks5://user@host:port?private-key=path, optional

	// Session storage
	ConfigDir string
	Store     string // file, sqlite, memory

	// Bootstrap
	VerifyTimeout            time.Duration
	RetryDelay               time.Duration
	AutoReverify             bool // re-verify whenever credentials are set
	InvalidateOnNetworkError bool // log out when the backend cannot be reached

	// UI timings
	RateLimitCooldown    time.Duration
	MaintenanceInterval  time.Duration
	NotificationInterval time.Duration

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string
}

// MockConfig holds settings for the local mock backend
type MockConfig struct {
	Port             string
	JWTSecret        string
	TokenTTL         time.Duration
	RateLimitAuth    int // requests per minute for auth endpoints
	RateLimitDefault int // requests per minute for everything else
	Maintenance      bool
	MaintenanceMsg   string
}

// Valid store kinds
var storeKinds = []string{"file", "sqlite", "memory"}

// LoadDotEnv loads .env from the working directory and then from the config
// directory. Variables already set in the environment are never overridden.
func LoadDotEnv() {
	for _, path := range []string{".env", filepath.Join(DefaultConfigDir(), ".env")} {
		err := godotenv.Load(path)
		switch {
		case err == nil:
			slog.Debug("Loaded environment file", "path", path)
		case errors.Is(err, fs.ErrNotExist):
		default:
			slog.Warn("Failed to load environment file", "path", path, "error", err)
		}
	}
}

// Load reads client configuration from the environment
func Load() (*Config, error) {
	cfg := &Config{
		APIURL:      strings.TrimRight(getEnv("EQUIPLEND_API_URL", DefaultAPIURL), "/"),
		HTTPTimeout: getEnvDuration("EQUIPLEND_HTTP_TIMEOUT", 30*time.Second),
		AllProxy:    os.Getenv("EQUIPLEND_ALL_PROXY"),

		ConfigDir: getEnv("EQUIPLEND_CONFIG_DIR", DefaultConfigDir()),
		Store:     strings.ToLower(getEnv("EQUIPLEND_STORE", "file")),

		VerifyTimeout:            getEnvDuration("EQUIPLEND_VERIFY_TIMEOUT", 5*time.Second),
		RetryDelay:               getEnvDuration("EQUIPLEND_RETRY_DELAY", 2*time.Second),
		AutoReverify:             getEnvBool("EQUIPLEND_AUTO_REVERIFY", true),
		InvalidateOnNetworkError: getEnvBool("EQUIPLEND_INVALIDATE_ON_NETWORK_ERROR", true),

		RateLimitCooldown:    getEnvDuration("EQUIPLEND_RATE_LIMIT_COOLDOWN", 60*time.Second),
		MaintenanceInterval:  getEnvDuration("EQUIPLEND_MAINTENANCE_INTERVAL", 30*time.Second),
		NotificationInterval: getEnvDuration("EQUIPLEND_NOTIFICATION_INTERVAL", 60*time.Second),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		LogFile:   os.Getenv("LOG_FILE"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges. Load calls it; callers that override fields
// from flags should call it again.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("EQUIPLEND_API_URL must be an http(s) URL, got %q", c.APIURL)
	}

	if !contains(storeKinds, c.Store) {
		return fmt.Errorf("EQUIPLEND_STORE must be one of %s, got %q", strings.Join(storeKinds, ", "), c.Store)
	}
	if c.Store != "memory" && c.ConfigDir == "" {
		return fmt.Errorf("EQUIPLEND_CONFIG_DIR is required for the %s store", c.Store)
	}

	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"EQUIPLEND_HTTP_TIMEOUT", c.HTTPTimeout},
		{"EQUIPLEND_VERIFY_TIMEOUT", c.VerifyTimeout},
		{"EQUIPLEND_RETRY_DELAY", c.RetryDelay},
		{"EQUIPLEND_RATE_LIMIT_COOLDOWN", c.RateLimitCooldown},
		{"EQUIPLEND_MAINTENANCE_INTERVAL", c.MaintenanceInterval},
		{"EQUIPLEND_NOTIFICATION_INTERVAL", c.NotificationInterval},
	} {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}

	if c.AllProxy != "" && !strings.HasPrefix(c.AllProxy, "ssh+socks5://") {
		return fmt.Errorf("EQUIPLEND_ALL_PROXY must use the ssh+socks5:// scheme")
	}
	return nil
}

// LoadMock reads mock backend configuration from the environment
func LoadMock() (*MockConfig, error) {
	cfg := &MockConfig{
		Port:             getEnv("MOCK_PORT", "5000"),
		JWTSecret:        getEnv("MOCK_JWT_SECRET", "dev-secret"),
		TokenTTL:         getEnvDuration("MOCK_TOKEN_TTL", time.Hour),
		RateLimitAuth:    getEnvInt("MOCK_RATE_LIMIT_AUTH", 5),
		RateLimitDefault: getEnvInt("MOCK_RATE_LIMIT_DEFAULT", 100),
		Maintenance:      getEnvBool("MOCK_MAINTENANCE", false),
		MaintenanceMsg:   os.Getenv("MOCK_MAINTENANCE_MESSAGE"),
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("MOCK_PORT must be numeric, got %q", cfg.Port)
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("MOCK_TOKEN_TTL must be positive, got %s", cfg.TokenTTL)
	}

	for _, rl := range []struct {
		name  string
		value int
	}{
		{"MOCK_RATE_LIMIT_AUTH", cfg.RateLimitAuth},
		{"MOCK_RATE_LIMIT_DEFAULT", cfg.RateLimitDefault},
	} {
		if rl.value < 1 || rl.value > 10000 {
			return nil, fmt.Errorf("%s must be between 1 and 10000, got %d", rl.name, rl.value)
		}
	}

	return cfg, nil
}

// DefaultConfigDir returns $XDG_CONFIG_HOME/equiplend or ~/.config/equiplend
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("5s") or bare seconds ("5")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
