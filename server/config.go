package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	"github.com/goliatone/go-vss/auth"
	"github.com/goliatone/go-vss/store"
)

const (
	BackendMemory   = "memory"
	BackendBolt     = "bolt"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"

	defaultAddr            = ":8080"
	defaultRequestBodySize = 16 << 20
)

type Config struct {
	Addr                string      `koanf:"addr" mapstructure:"addr"`
	VersionPolicy       string      `koanf:"version_policy" mapstructure:"version_policy"`
	MaxRequestBodyBytes int64       `koanf:"max_request_body_bytes" mapstructure:"max_request_body_bytes"`
	Auth                AuthConfig  `koanf:"auth" mapstructure:"auth"`
	Store               StoreConfig `koanf:"store" mapstructure:"store"`
}

// AuthConfig enables bearer token verification when JWTSecret is set.
type AuthConfig struct {
	JWTSecret     string `koanf:"jwt_secret" mapstructure:"jwt_secret"`
	Issuer        string `koanf:"issuer" mapstructure:"issuer"`
	Audience      string `koanf:"audience" mapstructure:"audience"`
	LeewaySeconds int    `koanf:"leeway_seconds" mapstructure:"leeway_seconds"`
}

type StoreConfig struct {
	Backend string `koanf:"backend" mapstructure:"backend"`
	// Path is the bbolt database file.
	Path string `koanf:"path" mapstructure:"path"`
	// DSN is the SQLite or Postgres connection string.
	DSN   string `koanf:"dsn" mapstructure:"dsn"`
	Debug bool   `koanf:"debug" mapstructure:"debug"`
	// CacheTTLSeconds enables a read-through item cache when positive.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds" mapstructure:"cache_ttl_seconds"`
}

func DefaultConfig() Config {
	return Config{
		Addr:                defaultAddr,
		VersionPolicy:       string(store.KeepNewest),
		MaxRequestBodyBytes: defaultRequestBodySize,
		Store: StoreConfig{
			Backend: BackendMemory,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("server: addr is required")
	}
	if _, err := store.ParseVersionPolicy(c.VersionPolicy); err != nil {
		return err
	}
	if c.MaxRequestBodyBytes < 0 {
		return fmt.Errorf("server: max_request_body_bytes must not be negative")
	}
	if c.Auth.LeewaySeconds < 0 {
		return fmt.Errorf("server: auth.leeway_seconds must not be negative")
	}
	return c.Store.Validate()
}

func (c StoreConfig) Validate() error {
	if c.CacheTTLSeconds < 0 {
		return fmt.Errorf("server: store.cache_ttl_seconds must not be negative")
	}
	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case BackendMemory:
		return nil
	case BackendBolt:
		if strings.TrimSpace(c.Path) == "" {
			return fmt.Errorf("server: store.path is required for the bolt backend")
		}
		return nil
	case BackendSQLite, BackendPostgres:
		if strings.TrimSpace(c.DSN) == "" {
			return fmt.Errorf("server: store.dsn is required for the %s backend", c.Backend)
		}
		return nil
	default:
		return fmt.Errorf("server: unknown store backend %q", c.Backend)
	}
}

// LoadConfig decodes raw over DefaultConfig and validates the result.
func LoadConfig(raw map[string]any) (Config, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	return cfgx.Build[Config](raw,
		cfgx.WithDefaults(DefaultConfig()),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
}

// Options translates cfg into server options. A verifier is only installed
// when a JWT secret is configured.
func (c Config) Options() ([]Option, error) {
	policy, err := store.ParseVersionPolicy(c.VersionPolicy)
	if err != nil {
		return nil, err
	}
	opts := []Option{
		WithVersionPolicy(policy),
		WithMaxRequestBodyBytes(c.MaxRequestBodyBytes),
	}
	if secret := strings.TrimSpace(c.Auth.JWTSecret); secret != "" {
		opts = append(opts, WithVerifier(auth.NewHS256Verifier(auth.HS256VerifierConfig{
			Secret:   secret,
			Issuer:   c.Auth.Issuer,
			Audience: c.Auth.Audience,
			Leeway:   time.Duration(c.Auth.LeewaySeconds) * time.Second,
		})))
	}
	return opts, nil
}
