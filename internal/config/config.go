// Package config loads runtime settings from the environment, .env files or YAML.
package config

import (
	"os"
	"time"
)

const (
	defaultServerPort     = "8080"
	defaultUserAgent      = "TVOnline/1.0"
	defaultTimeout        = 30 * time.Second
	defaultLogLevel       = "info"
	defaultMigrationsPath = "file://migrations"
)

// Config holds application configuration. Everything except the listen port
// is optional: without DATABASE_URL state lives in memory, without REDIS_URL
// there is no cache, queue or import lock, and without VOYAGE_API_KEY
// semantic search is off.
type Config struct {
	DatabaseURL    string        `yaml:"database_url" env:"DATABASE_URL"`
	RedisURL       string        `yaml:"redis_url" env:"REDIS_URL"`
	ServerPort     string        `yaml:"server_port" env:"SERVER_PORT"`
	UserAgent      string        `yaml:"user_agent" env:"FETCHER_USER_AGENT"`
	Timeout        time.Duration `yaml:"timeout" env:"FETCHER_TIMEOUT"`
	VoyageAPIKey   string        `yaml:"voyage_api_key" env:"VOYAGE_API_KEY"`
	VoyageModel    string        `yaml:"voyage_model" env:"VOYAGE_MODEL"`
	LogLevel       string        `yaml:"log_level" env:"LOG_LEVEL"`
	MigrationsPath string        `yaml:"migrations_path" env:"MIGRATIONS_PATH"`
}

// Load builds config from environment variables after merging .env.local and
// .env from the working directory (variables already set win).
func Load() *Config {
	loadEnvFiles()
	c := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		ServerPort:     os.Getenv("SERVER_PORT"),
		UserAgent:      os.Getenv("FETCHER_USER_AGENT"),
		VoyageAPIKey:   os.Getenv("VOYAGE_API_KEY"),
		VoyageModel:    os.Getenv("VOYAGE_MODEL"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
	}
	if s := os.Getenv("FETCHER_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			c.Timeout = d
		}
	}
	c.applyDefaults()
	return c
}

// HasDatabase reports whether Postgres persistence is configured.
func (c *Config) HasDatabase() bool { return c.DatabaseURL != "" }

// HasRedis reports whether Redis is configured.
func (c *Config) HasRedis() bool { return c.RedisURL != "" }

// HasEmbeddings reports whether semantic search can be enabled. It needs
// both an embedding key and Postgres for the vector index.
func (c *Config) HasEmbeddings() bool { return c.VoyageAPIKey != "" && c.HasDatabase() }

func (c *Config) applyDefaults() {
	if c.ServerPort == "" {
		c.ServerPort = defaultServerPort
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.MigrationsPath == "" {
		c.MigrationsPath = defaultMigrationsPath
	}
}
