/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads coordination-core configuration from a YAML file,
// with environment-variable overrides layered on top for the Postgres
// section.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP RPC listener.
type ServerConfig struct {
	Address string `yaml:"address"`
	CORS    struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
}

// PostgresConfig configures the Lifecycle & Upgrade snapshot store.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DefaultPostgresConfig returns sane local-development connection settings.
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:            "localhost",
		Port:            5432,
		User:            "coordinator",
		Database:        "skill_coordinator",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// LoadFromEnv overrides p with DB_* environment variables when present.
func (p *PostgresConfig) LoadFromEnv() {
	if v := os.Getenv("DB_HOST"); v != "" {
		p.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			p.Port = port
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		p.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		p.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		p.Database = v
	}
	if v := os.Getenv("DB_SSL_MODE"); v != "" {
		p.SSLMode = v
	}
}

// DSN renders the libpq connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// RedisConfig configures the query-surface cache.
type RedisConfig struct {
	Address string        `yaml:"address"`
	DB      int           `yaml:"db"`
	TTL     time.Duration `yaml:"ttl"`
}

// CapsConfig holds the resource bounds the core applies to history
// length, file size and file count. MaxClaimBatch is not read by the core;
// claims are capped by jobs.DefaultClaimLimit.
type CapsConfig struct {
	MaxHistoryEntries int   `yaml:"max_history_entries"`
	MaxFileSizeBytes  int64 `yaml:"max_file_size_bytes"`
	MaxFilesPerSkill  int   `yaml:"max_files_per_skill"`
	MaxClaimBatch     int   `yaml:"max_claim_batch"`
}

// DefaultCaps returns the suggested resource bounds.
func DefaultCaps() CapsConfig {
	return CapsConfig{
		MaxHistoryEntries: 50,
		MaxFileSizeBytes:  500 * 1024,
		MaxFilesPerSkill:  50,
		MaxClaimBatch:     10,
	}
}

// IdentityConfig seeds the admin/worker allow-lists and kill-switch.
type IdentityConfig struct {
	SeedAdmins       []string `yaml:"seed_admins"`
	SeedWorkers      []string `yaml:"seed_workers"`
	AnalysisEnabled  bool     `yaml:"analysis_enabled"`
	TeeWorkerURL     string   `yaml:"tee_worker_url"`
}

// LoggingConfig controls log level/format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the top-level coordination-core configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Caps     CapsConfig     `yaml:"caps"`
	Identity IdentityConfig `yaml:"identity"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Default returns a config usable without a file: the built-in defaults,
// with no env or file overrides applied (Load layers those on).
func Default() *Config {
	return &Config{
		Server: ServerConfig{Address: ":8080"},
		Postgres: DefaultPostgresConfig(),
		Redis: RedisConfig{Address: "localhost:6379", TTL: 30 * time.Second},
		Caps: DefaultCaps(),
		Identity: IdentityConfig{AnalysisEnabled: true},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads path as YAML, keeping the defaults for fields the file omits,
// then applies DB_* env var overrides to the Postgres section.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Postgres.LoadFromEnv()
	return cfg, nil
}
