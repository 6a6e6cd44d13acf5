package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSnapshotPath = "home_inspection_bookings.csv"
	DefaultPollInterval = 60 * time.Second
	DefaultListKey      = "bookings:list"
	DefaultRecordPrefix = "booking:"
	DefaultConfigPath   = "configs/config.yaml"
)

type Config struct {
	Sync       SyncConfig       `yaml:"sync"`
	Upstash    UpstashConfig    `yaml:"upstash"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Exports    ExportConfig     `yaml:"exports"`
	Google     GoogleConfig     `yaml:"google"`
	Journal    JournalConfig    `yaml:"journal"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type SyncConfig struct {
	SnapshotPath        string `yaml:"snapshot_path"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	ListKey             string `yaml:"list_key"`
	RecordPrefix        string `yaml:"record_prefix"`
}

// UpstashConfig addresses the REST endpoint of the key-value store.
type UpstashConfig struct {
	URL                string  `yaml:"url"`
	Token              string  `yaml:"token"`
	TimeoutSeconds     int     `yaml:"timeout_seconds"`
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
	RateLimitBurst     int     `yaml:"rate_limit_burst"`
}

// RedisConfig selects the native protocol instead of REST when Address is set.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type ExportConfig struct {
	XLSXPath string `yaml:"xlsx_path"`
}

type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	SpreadsheetID   string `yaml:"bookings_spreadsheet_id"`
	SheetName       string `yaml:"sheet_name"`
}

type JournalConfig struct {
	Path string `yaml:"path"`
}

type TelegramConfig struct {
	BotToken string  `yaml:"bot_token"`
	ChatIDs  []int64 `yaml:"chat_ids"`
	Debug    bool    `yaml:"debug"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
	HealthCheckPort   int  `yaml:"health_check_port"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads the YAML config at path after loading an optional .env file.
// A missing config file is not an error: defaults and the
// UPSTASH_REDIS_REST_URL / UPSTASH_REDIS_REST_TOKEN environment variables
// are used instead.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Support ${ENV_VAR} placeholders in YAML config.
		data = []byte(os.ExpandEnv(string(data)))
		if err = yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Sync.SnapshotPath == "" {
		c.Sync.SnapshotPath = DefaultSnapshotPath
	}
	if c.Sync.ListKey == "" {
		c.Sync.ListKey = DefaultListKey
	}
	if c.Sync.RecordPrefix == "" {
		c.Sync.RecordPrefix = DefaultRecordPrefix
	}
	if c.Upstash.URL == "" {
		c.Upstash.URL = os.Getenv("UPSTASH_REDIS_REST_URL")
	}
	if c.Upstash.Token == "" {
		c.Upstash.Token = os.Getenv("UPSTASH_REDIS_REST_TOKEN")
	}
	if c.Google.SheetName == "" {
		c.Google.SheetName = "Bookings"
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate reports configuration that makes the sync loop impossible.
func (c *Config) Validate() error {
	if c.Redis.Address == "" && c.Upstash.URL == "" {
		return errors.New("set upstash.url (or UPSTASH_REDIS_REST_URL) or redis.address")
	}
	if c.Redis.Address == "" && c.Upstash.Token == "" {
		return errors.New("set upstash.token (or UPSTASH_REDIS_REST_TOKEN)")
	}
	if c.Google.SpreadsheetID != "" && c.Google.CredentialsFile == "" {
		return errors.New("google.credentials_file is required with google.bookings_spreadsheet_id")
	}
	if len(c.Telegram.ChatIDs) > 0 && c.Telegram.BotToken == "" {
		return errors.New("telegram.bot_token is required with telegram.chat_ids")
	}
	return nil
}

func (c *Config) PollInterval() time.Duration {
	if c.Sync.PollIntervalSeconds <= 0 {
		return DefaultPollInterval
	}
	return time.Duration(c.Sync.PollIntervalSeconds) * time.Second
}

func (c *Config) HTTPTimeout() time.Duration {
	if c.Upstash.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Upstash.TimeoutSeconds) * time.Second
}
