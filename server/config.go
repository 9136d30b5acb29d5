package main

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds the server configuration.
type Config struct {
	Listen      string `koanf:"listen"`
	DatabaseURL string `koanf:"database-url"`
	LogLevel    string `koanf:"log-level"`
	LogJSON     bool   `koanf:"log-json"`
}

// loadConfig layers defaults, botflow.toml, BOTFLOW_* env vars and flags,
// later sources winning.
func loadConfig(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"listen":       ":3000",
		"database-url": "",
		"log-level":    "info",
		"log-json":     false,
	}
	if err := k.Load(makeMapProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// Config file is optional.
	_ = k.Load(file.Provider("botflow.toml"), toml.Parser())

	// BOTFLOW_DATABASE_URL maps to database-url, etc.
	if err := k.Load(env.Provider("BOTFLOW_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, "BOTFLOW_")), "_", "-")
	}), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
