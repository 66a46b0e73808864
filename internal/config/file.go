package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	DatabaseURL    string `yaml:"database_url"`
	RedisURL       string `yaml:"redis_url"`
	ServerPort     string `yaml:"server_port"`
	UserAgent      string `yaml:"user_agent"`
	Timeout        string `yaml:"timeout"`
	VoyageAPIKey   string `yaml:"voyage_api_key"`
	VoyageModel    string `yaml:"voyage_model"`
	LogLevel       string `yaml:"log_level"`
	MigrationsPath string `yaml:"migrations_path"`
}

// LoadFromFile loads config from a YAML file. Missing keys take the same
// defaults as Load; a malformed timeout is an error.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	c := &Config{
		DatabaseURL:    f.DatabaseURL,
		RedisURL:       f.RedisURL,
		ServerPort:     f.ServerPort,
		UserAgent:      f.UserAgent,
		VoyageAPIKey:   f.VoyageAPIKey,
		VoyageModel:    f.VoyageModel,
		LogLevel:       f.LogLevel,
		MigrationsPath: f.MigrationsPath,
	}
	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return nil, fmt.Errorf("timeout: %w", err)
		}
		c.Timeout = d
	}
	c.applyDefaults()
	return c, nil
}
