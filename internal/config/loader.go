package config

import (
	"errors"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "SUBNET_NEXUS_"

// Load builds a Config by layering defaults, an optional YAML file and env
// vars. Precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) when path is non-empty
//  3. env (prefix SUBNET_NEXUS_)
func Load(path string) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Env keys map flat: SUBNET_NEXUS_POSTGRES_DSN -> postgres_dsn.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if c.DefaultExchangeRate <= 0 {
		return errors.New("default_exchange_rate must be positive")
	}
	if c.DailyEmission <= 0 {
		return errors.New("daily_emission must be positive")
	}
	if !c.UseMemory {
		if c.PostgresDSN == "" {
			return errors.New("postgres_dsn must not be empty")
		}
		if c.ClickhouseDSN == "" {
			return errors.New("clickhouse_dsn must not be empty")
		}
	}
	return nil
}
