package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	PoolSize int    `yaml:"pool_size"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// TelegramConfig holds the MTProto application credentials shared by every
// account client, and where session blobs live.
type TelegramConfig struct {
	AppID       int    `yaml:"app_id"`
	AppHash     string `yaml:"app_hash"`
	SessionPath string `yaml:"session_path"` // bbolt file for session blobs
	Device      string `yaml:"device"`       // device model reported to Telegram
	RPSPerClient float64 `yaml:"rps_per_client"`
}

// NotifierConfig configures the operator-facing bot.
type NotifierConfig struct {
	BotToken string `yaml:"bot_token"`
}

type AIConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	DefaultModel string `yaml:"default_model"`
}

type SMSConfig struct {
	APIKey     string  `yaml:"api_key"`
	BaseURL    string  `yaml:"base_url"`
	MinBalance float64 `yaml:"min_balance"`
}

// WorkersConfig sets the tick interval per worker loop; zero means default.
type WorkersConfig struct {
	TickInterval      time.Duration `yaml:"tick_interval"`
	CampaignBatchSize int           `yaml:"campaign_batch_size"`
	CampaignWorkers   int           `yaml:"campaign_workers"` // pool size for concurrent campaigns
	ReportEvery       int           `yaml:"report_every"`
}

type MetricsConfig struct {
	Port int `yaml:"port"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Telegram TelegramConfig `yaml:"telegram"`
	Notifier NotifierConfig `yaml:"notifier"`
	AI       AIConfig       `yaml:"ai"`
	SMS      SMSConfig      `yaml:"sms"`
	Workers  WorkersConfig  `yaml:"workers"`
	Metrics  MetricsConfig  `yaml:"metrics"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.PoolSize <= 0 {
		cfg.Database.PoolSize = 10
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = time.Hour
	}
	if cfg.Telegram.SessionPath == "" {
		cfg.Telegram.SessionPath = "sessions.db"
	}
	if cfg.Telegram.Device == "" {
		cfg.Telegram.Device = "Desktop"
	}
	if cfg.Telegram.RPSPerClient <= 0 {
		cfg.Telegram.RPSPerClient = 1
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gpt-4o-mini"
	}
	if cfg.SMS.BaseURL == "" {
		cfg.SMS.BaseURL = "https://smshub.org/stubs/handler_api.php"
	}
	if cfg.SMS.MinBalance <= 0 {
		cfg.SMS.MinBalance = 20
	}
	if cfg.Workers.TickInterval <= 0 {
		cfg.Workers.TickInterval = 10 * time.Second
	}
	if cfg.Workers.CampaignBatchSize <= 0 {
		cfg.Workers.CampaignBatchSize = 10
	}
	if cfg.Workers.CampaignWorkers <= 0 {
		cfg.Workers.CampaignWorkers = 4
	}
	if cfg.Workers.ReportEvery <= 0 {
		cfg.Workers.ReportEvery = 50
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Telegram.AppID == 0 || cfg.Telegram.AppHash == "" {
		return nil, errors.New("telegram.app_id and telegram.app_hash are required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
