package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Postgres PostgresConfig `yaml:"postgres"`
	NATS     NATSConfig     `yaml:"nats"`
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Canon    CanonConfig    `yaml:"canon"`
	Backup   BackupConfig   `yaml:"backup"`
	Rounds   RoundsConfig   `yaml:"rounds"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration. An empty URL disables the event bus.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// HTTPConfig holds the listen address and the externally visible base URL
// (used in notification payload links).
type HTTPConfig struct {
	Addr    string `yaml:"addr"`
	BaseURL string `yaml:"base_url"`
}

// AuthConfig holds OAuth and session configuration.
type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	RedirectURL  string        `yaml:"redirect_url"`
	AdminIDs     []int64       `yaml:"admin_ids"`
}

// CanonConfig holds the anonymization service configuration. An empty URL
// disables anonymity entirely.
type CanonConfig struct {
	URL string `yaml:"url"`
}

// BackupConfig holds the backup directory. Empty disables backups.
type BackupConfig struct {
	Dir string `yaml:"dir"`
}

// RoundsConfig holds the advisory stage durations.
type RoundsConfig struct {
	WritingDuration  time.Duration `yaml:"writing_duration"`
	GuessingDuration time.Duration `yaml:"guessing_duration"`
	NextRoundDelay   time.Duration `yaml:"next_round_delay"`
}

// LoadConfig loads the configuration from a YAML file, then applies
// environment variable overrides. A missing file is not an error; env vars
// alone can configure the app.
func LoadConfig(filename string) (*Config, error) {
	cfg := &Config{}

	if data, err := os.ReadFile(filename); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		cfg.HTTP.BaseURL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("DISCORD_CLIENT_ID"); v != "" {
		cfg.Auth.ClientID = v
	}
	if v := os.Getenv("DISCORD_CLIENT_SECRET"); v != "" {
		cfg.Auth.ClientSecret = v
	}
	if v := os.Getenv("OAUTH_REDIRECT_URL"); v != "" {
		cfg.Auth.RedirectURL = v
	}
	if v := os.Getenv("ADMIN_IDS"); v != "" {
		ids, err := parseIDList(v)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ADMIN_IDS: %w", err)
		}
		cfg.Auth.AdminIDs = ids
	}
	if v := os.Getenv("CANON_URL"); v != "" {
		cfg.Canon.URL = v
	}
	if v := os.Getenv("BACKUP_DIR"); v != "" {
		cfg.Backup.Dir = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = 7 * 24 * time.Hour
	}
	if c.Rounds.WritingDuration == 0 {
		c.Rounds.WritingDuration = 7 * 24 * time.Hour
	}
	if c.Rounds.GuessingDuration == 0 {
		c.Rounds.GuessingDuration = 4 * 24 * time.Hour
	}
	if c.Rounds.NextRoundDelay == 0 {
		c.Rounds.NextRoundDelay = 3 * 24 * time.Hour
	}
}

func parseIDList(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
