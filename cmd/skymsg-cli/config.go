package main

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces the environment overlay, e.g. SKYMSG_USERNAME or
// SKYMSG_TRACE_EXPORTER.
const envPrefix = "SKYMSG_"

// Config collects everything the CLI needs. Sources, later overriding
// earlier: YAML file, then environment.
type Config struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Cache    string `koanf:"cache"`
	Login    string `koanf:"login"`
	Host     string `koanf:"host"`
	Timeout  int    `koanf:"timeout"`

	Trace TraceConfig `koanf:"trace"`
}

// TraceConfig selects the tracing exporter.
type TraceConfig struct {
	Exporter string `koanf:"exporter"`
	Endpoint string `koanf:"endpoint"`
	Insecure bool   `koanf:"insecure"`
}

func loadConfig(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	transform := func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "_", ".")
	}
	if err := k.Load(env.Provider(envPrefix, ".", transform), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
