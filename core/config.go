package core

import (
	"fmt"
	"strings"
)

const DefaultTransportKind = "rest"

type Config struct {
	BaseURL              string `koanf:"base_url" mapstructure:"base_url"`
	Mode                 string `koanf:"mode" mapstructure:"mode"`
	Transport            string `koanf:"transport" mapstructure:"transport"`
	UserAgent            string `koanf:"user_agent" mapstructure:"user_agent"`
	MaxResponseBodyBytes int64  `koanf:"max_response_body_bytes" mapstructure:"max_response_body_bytes"`
}

func DefaultConfig() Config {
	return Config{
		Mode:                 string(ModeAnonymous),
		Transport:            DefaultTransportKind,
		MaxResponseBodyBytes: defaultResponseBodyLimit,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("core: base_url is required")
	}
	if _, ok := ParseMode(c.Mode); !ok {
		return fmt.Errorf("core: invalid mode %q", c.Mode)
	}
	if strings.TrimSpace(c.Transport) == "" {
		return fmt.Errorf("core: transport is required")
	}
	if c.MaxResponseBodyBytes < 0 {
		return fmt.Errorf("core: max_response_body_bytes must not be negative")
	}
	return nil
}
