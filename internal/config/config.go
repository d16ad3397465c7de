package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	defaultAppName         = "MooviAuth"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultChannelTimeout  = 10 * time.Second
	defaultEmailDomain     = "moovi.app"
	defaultBcryptCost      = 12
	shutdownSecondsKey     = "shutdown_timeout_seconds"
	shutdownDurationKey    = "shutdown_timeout"
	configFileEnvVar       = "CONFIG_FILE"
	RateLimitStoreMemory   = "memory"
	RateLimitStoreRedis    = "redis"
	IdentityBackendGoTrue  = "gotrue"
	IdentityBackendLocal   = "local"
	defaultIdentityBackend = IdentityBackendLocal
)

// Config captures application runtime configuration.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration

	RateLimitStore   string
	CORSAllowOrigins []string
	// ProxyHeader names the header carrying the client address behind a proxy.
	ProxyHeader string

	ChannelBaseURL string
	ChannelAPIKey  string
	ChannelTimeout time.Duration

	IdentityBackend     string
	IdentityBaseURL     string
	IdentityServiceKey  string
	IdentityAnonKey     string
	IdentityEmailDomain string
	LocalJWTSecret      string
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration

	BcryptCost int
}

// Load reads configuration from an optional YAML file named by CONFIG_FILE,
// then overlays non-empty environment variables. Keys are the lowercased
// variable names (DATABASE_URL is database_url in YAML).
func Load() (Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(configFileEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, errors.Wrapf(err, "read config file %s", path)
		}
	}
	if err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			if value == "" {
				return "", nil
			}
			return strings.ToLower(key), value
		},
	}), nil); err != nil {
		return Config{}, errors.Wrap(err, "load env variables")
	}

	cfg := Config{
		AppName:             get(k, "app_name", defaultAppName),
		AppEnv:              get(k, "app_env", defaultAppEnv),
		Port:                get(k, "port", defaultPort),
		LogLevel:            strings.ToLower(get(k, "log_level", defaultLogLevel)),
		DatabaseURL:         k.String("database_url"),
		RedisURL:            k.String("redis_url"),
		ShutdownPeriod:      defaultShutdownDelay,
		RateLimitStore:      strings.ToLower(get(k, "rate_limit_store", RateLimitStoreMemory)),
		CORSAllowOrigins:    splitList(k.String("cors_allow_origins")),
		ProxyHeader:         k.String("proxy_header"),
		ChannelBaseURL:      strings.TrimRight(k.String("channel_base_url"), "/"),
		ChannelAPIKey:       k.String("channel_api_key"),
		IdentityBackend:     strings.ToLower(get(k, "identity_backend", defaultIdentityBackend)),
		IdentityBaseURL:     strings.TrimRight(k.String("identity_base_url"), "/"),
		IdentityServiceKey:  k.String("identity_service_key"),
		IdentityAnonKey:     k.String("identity_anon_key"),
		IdentityEmailDomain: get(k, "identity_email_domain", defaultEmailDomain),
		LocalJWTSecret:      k.String("local_jwt_secret"),
		BcryptCost:          defaultBcryptCost,
	}

	if v := k.String(shutdownSecondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", strings.ToUpper(shutdownSecondsKey), err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := k.String(shutdownDurationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", strings.ToUpper(shutdownDurationKey), err)
		}
		cfg.ShutdownPeriod = d
	}

	var err error
	if cfg.ChannelTimeout, err = duration(k, "channel_timeout", defaultChannelTimeout); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = duration(k, "access_token_ttl", 0); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = duration(k, "refresh_token_ttl", 0); err != nil {
		return Config{}, err
	}
	if v := k.String("bcrypt_cost"); v != "" {
		cost, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid BCRYPT_COST: %w", err)
		}
		cfg.BcryptCost = cost
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.RateLimitStore {
	case RateLimitStoreMemory:
	case RateLimitStoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL must be set when RATE_LIMIT_STORE=redis")
		}
	default:
		return fmt.Errorf("unknown RATE_LIMIT_STORE %q", c.RateLimitStore)
	}

	switch c.IdentityBackend {
	case IdentityBackendGoTrue:
		if c.IdentityBaseURL == "" || c.IdentityServiceKey == "" {
			return fmt.Errorf("IDENTITY_BASE_URL and IDENTITY_SERVICE_KEY must be set for the gotrue backend")
		}
	case IdentityBackendLocal:
		if c.LocalJWTSecret == "" && !c.IsDev() {
			return fmt.Errorf("LOCAL_JWT_SECRET must be set when APP_ENV=%s", c.AppEnv)
		}
	default:
		return fmt.Errorf("unknown IDENTITY_BACKEND %q", c.IdentityBackend)
	}

	if c.IsDev() {
		return nil
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", c.AppEnv)
	}
	if c.ChannelBaseURL == "" {
		return fmt.Errorf("CHANNEL_BASE_URL must be set when APP_ENV=%s", c.AppEnv)
	}
	return nil
}

// IsDev reports whether the app runs in a development environment, where
// Postgres, Redis and the webhook channel are optional.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func get(k *koanf.Koanf, key, fallback string) string {
	if value := k.String(key); value != "" {
		return value
	}
	return fallback
}

func duration(k *koanf.Koanf, key string, fallback time.Duration) (time.Duration, error) {
	v := k.String(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", strings.ToUpper(key), err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
