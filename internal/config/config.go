package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Queue struct {
		// Backend selects the pending-queue store: "file" or "sqlite".
		Backend  string `yaml:"backend"`
		FilePath string `yaml:"file_path"`
	} `yaml:"queue"`

	Saver struct {
		IdleIntervalMs int `yaml:"idle_interval_ms"`
		BetweenJobsMs  int `yaml:"between_jobs_ms"`
	} `yaml:"saver"`

	Sheets struct {
		Enabled         bool    `yaml:"enabled"`
		CredentialsFile string  `yaml:"credentials_file"`
		SpreadsheetID   string  `yaml:"spreadsheet_id"`
		RatePerSecond   float64 `yaml:"rate_per_second"`
	} `yaml:"sheets"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		StoragePath   string `yaml:"storage_path"`
		IntervalHours int    `yaml:"interval_hours"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/callbook.db"
	}
	if cfg.Queue.Backend == "" {
		cfg.Queue.Backend = "sqlite"
	}
	if cfg.Queue.Backend != "file" && cfg.Queue.Backend != "sqlite" {
		return nil, fmt.Errorf("unknown queue backend %q", cfg.Queue.Backend)
	}
	if cfg.Queue.FilePath == "" {
		cfg.Queue.FilePath = "data/pending_reservations.json"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) SaverIdleInterval() time.Duration {
	if c.Saver.IdleIntervalMs <= 0 {
		return time.Second
	}
	return time.Duration(c.Saver.IdleIntervalMs) * time.Millisecond
}

func (c *Config) SaverBetweenJobs() time.Duration {
	if c.Saver.BetweenJobsMs <= 0 {
		return 200 * time.Millisecond
	}
	return time.Duration(c.Saver.BetweenJobsMs) * time.Millisecond
}

func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

func (c *Config) RedisCacheTTL() time.Duration {
	if c.Redis.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}
