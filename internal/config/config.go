// Package config loads process configuration from config.yaml and
// WAPPA_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Cache     CacheConfig     `koanf:"cache"`
	Dispatch  DispatchConfig  `koanf:"dispatch"`
	Messenger MessengerConfig `koanf:"messenger"`
	Journal   JournalConfig   `koanf:"journal"`
	Tenants   []TenantConfig  `koanf:"tenants"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

// CacheConfig selects the process-wide cache backend. The choice is made
// once at startup and threaded explicitly into the collaborator factory.
type CacheConfig struct {
	Type  string      `koanf:"type"` // memory, jsonfile, redis
	Path  string      `koanf:"path"` // jsonfile backend
	Redis RedisConfig `koanf:"redis"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type DispatchConfig struct {
	// Timeout bounds a single handler invocation.
	Timeout time.Duration `koanf:"timeout"`

	// LockWait bounds how long a dispatch waits for the per-conversation
	// lock before failing fast with a busy outcome.
	LockWait time.Duration `koanf:"lock_wait"`
}

type MessengerConfig struct {
	BaseURL    string        `koanf:"base_url"`
	APIVersion string        `koanf:"api_version"`
	PoolSize   int           `koanf:"pool_size"`
	IdleTTL    time.Duration `koanf:"idle_ttl"`
}

type JournalConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// TenantConfig holds one business number's identity and credentials.
type TenantConfig struct {
	ID            string `koanf:"id"`
	Name          string `koanf:"name"`
	PhoneNumberID string `koanf:"phone_number_id"`
	AccessToken   string `koanf:"access_token"`
	AppSecret     string `koanf:"app_secret"`
	VerifyToken   string `koanf:"verify_token"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads config.yaml (optional) and applies WAPPA_ env overrides,
// where WAPPA_SERVER__PORT maps to server.port.
func Load() (*Config, error) {
	return LoadFile("config.yaml")
}

// LoadFile is Load with an explicit file path, for tests.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars.
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("WAPPA_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "WAPPA_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	setDefault(k, "server.port", 8080)
	setDefault(k, "cache.type", "memory")
	setDefault(k, "dispatch.timeout", "30s")
	setDefault(k, "dispatch.lock_wait", "15s")
	setDefault(k, "messenger.base_url", "https://graph.facebook.com")
	setDefault(k, "messenger.api_version", "v18.0")
	setDefault(k, "messenger.pool_size", 64)
	setDefault(k, "messenger.idle_ttl", "5m")

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// Substitute ${VAR} in tenant secrets so credentials stay out of the file.
	for i := range cfg.Tenants {
		cfg.Tenants[i].AccessToken = substituteEnvVars(cfg.Tenants[i].AccessToken)
		cfg.Tenants[i].AppSecret = substituteEnvVars(cfg.Tenants[i].AppSecret)
		cfg.Tenants[i].VerifyToken = substituteEnvVars(cfg.Tenants[i].VerifyToken)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Cache.Type {
	case "memory", "jsonfile", "redis":
	default:
		return fmt.Errorf("config: unknown cache type %q", c.Cache.Type)
	}
	if c.Cache.Type == "jsonfile" && c.Cache.Path == "" {
		return fmt.Errorf("config: cache.path is required for the jsonfile backend")
	}
	if c.Cache.Type == "redis" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("config: cache.redis.addr is required for the redis backend")
	}
	return nil
}

func setDefault(k *koanf.Koanf, key string, value any) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
