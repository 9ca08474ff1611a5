// Package config loads runtime configuration from environment variables
// and an optional .env file, the way the wider example stack does it.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all configuration for the transitraptor HTTP service. The
// raptorcli command does not read it; it takes its settings from flags.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Routing  RoutingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `mapstructure:"SERVER_HOST"`
	Port int    `mapstructure:"SERVER_PORT"`
}

// PostgresConfig holds the build-record cache's connection settings.
// Empty Host disables the cache. The index is built from the feed
// directory whether or not the cache is enabled.
type PostgresConfig struct {
	Host     string `mapstructure:"POSTGRES_HOST"`
	Port     int    `mapstructure:"POSTGRES_PORT"`
	User     string `mapstructure:"POSTGRES_USER"`
	Password string `mapstructure:"POSTGRES_PASSWORD"`
	DBName   string `mapstructure:"POSTGRES_DB"`
	SSLMode  string `mapstructure:"POSTGRES_SSLMODE"`
	MaxConns int32  `mapstructure:"POSTGRES_MAX_CONNS"`
}

// RoutingConfig holds defaults for the index build and the query engine.
type RoutingConfig struct {
	Dataset       string `mapstructure:"DATASET_DIR"`
	DefaultRounds int    `mapstructure:"DEFAULT_ROUNDS"`
}

// DSN returns the build-record cache's PostgreSQL connection string.
func (p *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode,
	)
}

// Enabled reports whether a build-record cache was configured.
func (p *PostgresConfig) Enabled() bool {
	return p.Host != ""
}

// Addr returns the HTTP listen address in host:port form.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from environment variables and an optional
// .env file in the working directory.
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", 8080)

	viper.SetDefault("POSTGRES_HOST", "")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "transitraptor")
	viper.SetDefault("POSTGRES_PASSWORD", "")
	viper.SetDefault("POSTGRES_DB", "transitraptor")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")
	viper.SetDefault("POSTGRES_MAX_CONNS", 10)

	viper.SetDefault("DATASET_DIR", "./dataset")
	viper.SetDefault("DEFAULT_ROUNDS", 5)

	// Missing .env is fine outside local development: env vars injected by
	// the container runtime take over.
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("SERVER_HOST"),
			Port: viper.GetInt("SERVER_PORT"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
			MaxConns: viper.GetInt32("POSTGRES_MAX_CONNS"),
		},
		Routing: RoutingConfig{
			Dataset:       viper.GetString("DATASET_DIR"),
			DefaultRounds: viper.GetInt("DEFAULT_ROUNDS"),
		},
	}

	return cfg, nil
}
