package main

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ai-rea/assistant/pkg/bus"
)

// Config is the sidecar's YAML configuration. Every field has a flag
// override on the serve command.
type Config struct {
	ListenAddr      string        `yaml:"listen_addr"`
	AgentURL        string        `yaml:"agent_url"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	DefaultLanguage string        `yaml:"default_language"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	TranscriptDSN   string        `yaml:"transcript_dsn"`
	I18nOverrides   string        `yaml:"i18n_overrides"`

	Redis bus.RedisSettings `yaml:"redis"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr:      ":8093",
		AgentURL:        "http://localhost:8000",
		RequestTimeout:  30 * time.Second,
		DefaultLanguage: "en",
		IdleTimeout:     5 * time.Minute,
		Redis: bus.RedisSettings{
			Group:    "rea-assistant",
			Consumer: "rea-assistant-1",
		},
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "parse config")
	}
	return cfg, nil
}
