package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	TelegramToken     string  `yaml:"telegram_token"`
	NexonAPIKey       string  `yaml:"nexon_api_key"`
	NexonBaseURL      string  `yaml:"nexon_base_url"`
	Timezone          string  `yaml:"timezone"`
	FetchTimeoutSecs  int     `yaml:"fetch_timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	FetchConcurrency  int     `yaml:"fetch_concurrency"`
	OCIDCacheSize     int     `yaml:"ocid_cache_size"`
	OCIDCacheTTLMins  int     `yaml:"ocid_cache_ttl_mins"`
	AnnounceWeekday   string  `yaml:"announce_weekday"`
	AnnounceTime      string  `yaml:"announce_time"`
	EventListURL      string  `yaml:"event_list_url"`
	ScouterBaseURL    string  `yaml:"scouter_base_url"`
	DBPath            string  `yaml:"db_path"`
	MetricsAddr       string  `yaml:"metrics_addr"`
	LogLevel          string  `yaml:"log_level"`
}

// envOverrides are applied on top of the YAML file when set.
type envOverrides struct {
	TelegramToken string `env:"MAPLE_BOT_TELEGRAM_TOKEN"`
	NexonAPIKey   string `env:"MAPLE_BOT_NEXON_API_KEY"`
	DBPath        string `env:"MAPLE_BOT_DB"`
	MetricsAddr   string `env:"MAPLE_BOT_METRICS_ADDR"`
	LogLevel      string `env:"MAPLE_BOT_LOG_LEVEL"`
}

// announceTimeRegex validates HH:MM format with proper ranges.
var announceTimeRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

var weekdays = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// Load reads configuration from a YAML file, applies environment overrides
// and defaults, then validates the result. A .env file in the working
// directory is loaded first if present.
func Load(path string) (*Config, error) {
	return load(path, true)
}

// LoadForRender is Load without the Telegram token requirement, for
// commands that only call the game API.
func LoadForRender(path string) (*Config, error) {
	return load(path, false)
}

func load(path string, requireTelegram bool) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	if err := applyEnvironmentOverrides(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if err := validate(cfg, requireTelegram); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// GetConfigPath returns the config file path from environment or default.
func GetConfigPath() string {
	if path := os.Getenv("MAPLE_BOT_CONFIG"); path != "" {
		return path
	}
	return "./config.yaml"
}

// FetchTimeout returns the HTTP timeout as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSecs) * time.Second
}

// OCIDCacheTTL returns the name lookup cache TTL as a duration.
func (c *Config) OCIDCacheTTL() time.Duration {
	return time.Duration(c.OCIDCacheTTLMins) * time.Minute
}

func applyDefaults(cfg *Config) {
	if cfg.NexonBaseURL == "" {
		cfg.NexonBaseURL = "https://open.api.nexon.com/maplestory/v1"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Asia/Seoul"
	}
	if cfg.FetchTimeoutSecs == 0 {
		cfg.FetchTimeoutSecs = 10
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.FetchConcurrency == 0 {
		cfg.FetchConcurrency = 4
	}
	if cfg.OCIDCacheSize == 0 {
		cfg.OCIDCacheSize = 256
	}
	if cfg.OCIDCacheTTLMins == 0 {
		cfg.OCIDCacheTTLMins = 60
	}
	if cfg.AnnounceWeekday == "" {
		cfg.AnnounceWeekday = "friday"
	}
	if cfg.AnnounceTime == "" {
		cfg.AnnounceTime = "10:01"
	}
	if cfg.EventListURL == "" {
		cfg.EventListURL = "https://maplestory.nexon.com/News/Event/Ongoing"
	}
	if cfg.ScouterBaseURL == "" {
		cfg.ScouterBaseURL = "https://maplescouter.com/info?name="
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./maple-bot.db"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func applyEnvironmentOverrides(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.TelegramToken != "" {
		cfg.TelegramToken = o.TelegramToken
	}
	if o.NexonAPIKey != "" {
		cfg.NexonAPIKey = o.NexonAPIKey
	}
	if o.DBPath != "" {
		cfg.DBPath = o.DBPath
	}
	if o.MetricsAddr != "" {
		cfg.MetricsAddr = o.MetricsAddr
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	return nil
}

func validate(cfg *Config, requireTelegram bool) error {
	if requireTelegram && cfg.TelegramToken == "" {
		return fmt.Errorf("telegram_token is required")
	}
	if cfg.NexonAPIKey == "" {
		return fmt.Errorf("nexon_api_key is required")
	}
	if !announceTimeRegex.MatchString(cfg.AnnounceTime) {
		return fmt.Errorf("announce_time must be in HH:MM format (00:00-23:59), got %q", cfg.AnnounceTime)
	}
	if !validWeekday(cfg.AnnounceWeekday) {
		return fmt.Errorf("invalid announce_weekday %q", cfg.AnnounceWeekday)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	if cfg.FetchTimeoutSecs < 0 || cfg.FetchConcurrency < 0 || cfg.OCIDCacheSize < 0 || cfg.OCIDCacheTTLMins < 0 {
		return fmt.Errorf("numeric settings must not be negative")
	}
	if cfg.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative, got %v", cfg.RequestsPerSecond)
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", cfg.LogLevel)
	}
	return nil
}

func validWeekday(s string) bool {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, d := range weekdays {
		if name == d || name == d[:3] {
			return true
		}
	}
	return false
}
