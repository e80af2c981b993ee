// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// GmailConfig holds OAuth2 credentials for a Gmail account.
type GmailConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
}

// IMAPConfig holds credentials for a generic IMAP mailbox.
type IMAPConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	TLS      bool   `yaml:"tls"`
}

// GraphConfig holds client-credentials for a Microsoft 365 mailbox.
type GraphConfig struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Mailbox      string `yaml:"mailbox"`
}

// AccountConfig holds one connected email account. Provider is "gmail",
// "imap", or "m365"; exactly one of the provider sections applies.
type AccountConfig struct {
	Alias    string      `yaml:"alias"`
	UserID   string      `yaml:"user_id"`
	Provider string      `yaml:"provider"`
	Gmail    GmailConfig `yaml:"gmail"`
	IMAP     IMAPConfig  `yaml:"imap"`
	Graph    GraphConfig `yaml:"graph"`
}

// Config holds all configuration for the inbox actions service.
type Config struct {
	Accounts []AccountConfig

	// Postgres
	DatabaseURL string

	// Redis
	RedisURL     string
	DigestsQueue string

	// Sync job
	SyncInterval time.Duration
	SyncLookback time.Duration
	MaxFetch     int // emails listed per account per run
	MaxAnalyze   int // emails run through extraction per account per run

	// Digest notifications
	DigestHour int // local hour of day, 0-23

	// Cleanup job
	CleanupInterval time.Duration
	Retention       time.Duration // completed/ignored actions older than this are pruned

	// HTTP API
	Port int
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Accounts []AccountConfig `yaml:"accounts"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		URL    string `yaml:"url"`
		Queues struct {
			Digests string `yaml:"digests"`
		} `yaml:"queues"`
	} `yaml:"redis"`
}

// Load reads configuration from config.yaml (with env var expansion) and
// environment variables for non-YAML settings.
func Load() (*Config, error) {
	configPath := envOrDefault("CONFIG_PATH", "/app/config/config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	// Expand ${VAR} references in the YAML
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	cfg := &Config{
		DatabaseURL:     firstNonEmpty(raw.Database.URL, envOrDefault("DATABASE_URL", "postgres://localhost:5432/inboxactions")),
		RedisURL:        firstNonEmpty(raw.Redis.URL, envOrDefault("REDIS_URL", "redis://localhost:6379/0")),
		DigestsQueue:    firstNonEmpty(raw.Redis.Queues.Digests, envOrDefault("DIGESTS_QUEUE", "digests")),
		SyncInterval:    envOrDefaultDuration("SYNC_INTERVAL", 24*time.Hour),
		SyncLookback:    envOrDefaultDuration("SYNC_LOOKBACK", 48*time.Hour),
		MaxFetch:        envOrDefaultInt("MAX_FETCH", 100),
		MaxAnalyze:      envOrDefaultInt("MAX_ANALYZE", 50),
		DigestHour:      envOrDefaultInt("DIGEST_HOUR", 7),
		CleanupInterval: envOrDefaultDuration("CLEANUP_INTERVAL", 12*time.Hour),
		Retention:       envOrDefaultDuration("RETENTION", 30*24*time.Hour),
		Port:            envOrDefaultInt("PORT", 8080),
	}

	// Build account configs
	for _, a := range raw.Accounts {
		if a.UserID == "" {
			// Skip accounts with no owner (commented out in YAML)
			continue
		}

		if a.Provider == "" {
			a.Provider = "gmail"
		}

		if a.Alias == "" {
			a.Alias = a.UserID
		}

		switch a.Provider {
		case "gmail":
			if a.Gmail.ClientID == "" || a.Gmail.ClientSecret == "" || a.Gmail.RefreshToken == "" {
				continue
			}
		case "imap":
			if a.IMAP.Host == "" || a.IMAP.Username == "" || a.IMAP.Password == "" {
				continue
			}
			if a.IMAP.Port == "" {
				a.IMAP.Port = "993"
			}
		case "m365":
			if a.Graph.TenantID == "" || a.Graph.ClientID == "" || a.Graph.ClientSecret == "" || a.Graph.Mailbox == "" {
				continue
			}
		default:
			return nil, fmt.Errorf("account %s: unknown provider %q", a.Alias, a.Provider)
		}

		cfg.Accounts = append(cfg.Accounts, a)
	}

	if len(cfg.Accounts) == 0 {
		return nil, fmt.Errorf("no accounts configured — check config.yaml and environment variables")
	}

	if cfg.DigestHour < 0 || cfg.DigestHour > 23 {
		return nil, fmt.Errorf("DIGEST_HOUR must be 0-23, got %d", cfg.DigestHour)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
