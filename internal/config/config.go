// Package config loads the service configuration from YAML with environment
// overrides for the secrets that never belong in a file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Postgres PostgresConfig `yaml:"postgres"`
	Auth     AuthConfig     `yaml:"auth"`
	OCR      OCRConfig      `yaml:"ocr"`
	Blob     BlobConfig     `yaml:"blob"`
	Query    QueryConfig    `yaml:"query"`
}

type ServiceConfig struct {
	Name                string `yaml:"name"`
	Port                int    `yaml:"port"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	MetricsPort         int    `yaml:"metrics_port"`
}

type PostgresConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Database       string `yaml:"database"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	SSLMode        string `yaml:"sslmode"`
	MaxConnections int    `yaml:"max_connections"`
}

type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
}

type OCRConfig struct {
	Enabled             bool   `yaml:"enabled"`
	BaseURL             string `yaml:"base_url"`
	APIKey              string `yaml:"api_key"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	MaxPollAttempts     int    `yaml:"max_poll_attempts"`
}

type BlobConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

type QueryConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyDefaults()
	config.applyEnv()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = "fuelsync"
	}
	if c.Service.Port == 0 {
		c.Service.Port = 8080
	}
	if c.Service.ReadTimeoutSeconds == 0 {
		c.Service.ReadTimeoutSeconds = 30
	}
	if c.Service.WriteTimeoutSeconds == 0 {
		c.Service.WriteTimeoutSeconds = 30
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.SSLMode == "" {
		c.Postgres.SSLMode = "disable"
	}
	if c.Postgres.MaxConnections == 0 {
		c.Postgres.MaxConnections = 10
	}
	if c.Auth.TokenTTLHours == 0 {
		c.Auth.TokenTTLHours = 24
	}
	if c.OCR.PollIntervalSeconds == 0 {
		c.OCR.PollIntervalSeconds = 2
	}
	if c.OCR.MaxPollAttempts == 0 {
		c.OCR.MaxPollAttempts = 15
	}
	if c.Query.DefaultLimit == 0 {
		c.Query.DefaultLimit = 20
	}
	if c.Query.MaxLimit == 0 {
		c.Query.MaxLimit = 100
	}
}

// applyEnv lets deployments inject secrets without touching the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		c.Postgres.Host = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Postgres.Port = p
		}
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		c.Postgres.Database = v
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		c.Postgres.User = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		c.Postgres.Password = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("OCR_API_KEY"); v != "" {
		c.OCR.APIKey = v
	}
	if v := os.Getenv("BLOB_API_KEY"); v != "" {
		c.Blob.APIKey = v
	}
}

// Validate rejects configurations that cannot start a server.
func (c *Config) Validate() error {
	if c.Postgres.Host == "" || c.Postgres.Database == "" || c.Postgres.User == "" {
		return fmt.Errorf("postgres host, database, and user are required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret (or JWT_SECRET) is required")
	}
	if c.OCR.Enabled && c.OCR.BaseURL == "" {
		return fmt.Errorf("ocr.base_url is required when ocr is enabled")
	}
	if c.Blob.Enabled && c.Blob.BaseURL == "" {
		return fmt.Errorf("blob.base_url is required when blob storage is enabled")
	}
	return nil
}

func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}
