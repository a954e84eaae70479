package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Store       StoreConfig     `yaml:"store"`
	Definitions DefsConfig      `yaml:"definitions"`
	Events      EventsConfig    `yaml:"events"`
	Providers   ProvidersConfig `yaml:"providers"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type DefsConfig struct {
	Dir string `yaml:"dir"`
}

type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	DataDir string `yaml:"data_dir"`
}

type ProvidersConfig struct {
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type AnthropicConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Version string `yaml:"version"`
}

func defaults() Config {
	return Config{
		Store: StoreConfig{
			Path: "data/axon.db",
		},
		Definitions: DefsConfig{
			Dir: "definitions",
		},
		Events: EventsConfig{
			Enabled: true,
			Port:    4222,
			DataDir: "data/nats",
		},
		Providers: ProvidersConfig{
			OpenAI: OpenAIConfig{
				BaseURL: "https://api.openai.com/v1",
			},
			Anthropic: AnthropicConfig{
				BaseURL: "https://api.anthropic.com/v1",
				Version: "2023-06-01",
			},
		},
	}
}

func Load() (*Config, error) {
	cfg := defaults()

	path := os.Getenv("AXON_CONFIG")
	if path == "" {
		path = "config/axon.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults + env
	} else {
		// Expand environment variables in YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("AXON_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("AXON_DEFINITIONS_DIR"); v != "" {
		cfg.Definitions.Dir = v
	}
	if v := os.Getenv("AXON_EVENTS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Events.Port = port
		}
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Providers.OpenAI.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Providers.Anthropic.APIKey = v
	}
}
