package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Redis     RedisConfig     `koanf:"redis"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Auth      AuthConfig      `koanf:"auth"`
	CORS      CORSConfig      `koanf:"cors"`
	Routes    []Route         `koanf:"routes"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	// Timeout bounds every call to the store. On expiry the admission
	// checks fail open rather than hang the request.
	Timeout time.Duration `koanf:"timeout"`
}

type RateLimitConfig struct {
	// MaxRequests is the number of requests admitted per client per window.
	MaxRequests int           `koanf:"max_requests"`
	Window      time.Duration `koanf:"window"`
}

type AuthConfig struct {
	// Secret is the shared HMAC key used to verify bearer tokens.
	// It must be set; startup fails without it.
	Secret string `koanf:"secret"`
	// PublicPaths are path prefixes served without authentication
	// (login/callback endpoints, API docs, health and metrics).
	PublicPaths []string `koanf:"public_paths"`
}

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// Route maps a path prefix to an upstream backend service.
type Route struct {
	Prefix      string `koanf:"prefix"`
	Upstream    string `koanf:"upstream"`
	StripPrefix bool   `koanf:"strip_prefix"`
}

// Load reads configuration from an optional config.yaml overlaid with
// GATE_-prefixed environment variables (GATE_AUTH__SECRET, GATE_REDIS__ADDR, ...).
func Load() (*Config, error) {
	return LoadFile("config.yaml")
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	// Environment variables override file config
	if err := k.Load(env.Provider("GATE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "GATE_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	setDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"server.port":             8080,
		"server.shutdown_timeout": "10s",
		"redis.addr":              "localhost:6379",
		"redis.timeout":           "2s",
		"ratelimit.max_requests":  100,
		"ratelimit.window":        "60s",
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}
	if !k.Exists("auth.public_paths") {
		k.Set("auth.public_paths", []string{"/api/oauth/", "/oauth/", "/docs", "/health", "/metrics"})
	}
}

func (c *Config) validate() error {
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required (set GATE_AUTH__SECRET)")
	}
	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("ratelimit.max_requests must be positive, got %d", c.RateLimit.MaxRequests)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("ratelimit.window must be positive, got %s", c.RateLimit.Window)
	}
	for _, route := range c.Routes {
		if route.Prefix == "" || route.Upstream == "" {
			return fmt.Errorf("route requires both prefix and upstream: %+v", route)
		}
	}
	return nil
}
