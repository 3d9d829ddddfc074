package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverJSON     = "json"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	DiscordToken       string        `yaml:"discord_token" validate:"required_without=TelegramBotToken"`
	TelegramBotToken   string        `yaml:"telegram_bot_token"`
	GitHubToken        string        `yaml:"github_token"`
	StoreDriver        string        `yaml:"store_driver" validate:"oneof=json postgres sqlite"`
	StatePath          string        `yaml:"state_path" validate:"required_if=StoreDriver json"`
	DatabaseURL        string        `yaml:"database_url" validate:"required_if=StoreDriver postgres"`
	SQLitePath         string        `yaml:"sqlite_path" validate:"required_if=StoreDriver sqlite"`
	PollInterval       time.Duration `yaml:"poll_interval" validate:"gte=1s"`
	RequestTimeout     time.Duration `yaml:"request_timeout" validate:"gte=1s"`
	NotifyOnFirstSight bool          `yaml:"notify_on_first_sight"`
	SendRatePerSec     int           `yaml:"send_rate_per_sec" validate:"gte=1"`
	PollingTimeout     int           `yaml:"telegram_polling_timeout" validate:"gte=0"`
	Debug              bool          `yaml:"debug"`
}

func defaults() *Config {
	return &Config{
		StoreDriver:        DriverJSON,
		StatePath:          "repos.json",
		SQLitePath:         "relay.db",
		PollInterval:       30 * time.Minute,
		RequestTimeout:     30 * time.Second,
		NotifyOnFirstSight: true,
		SendRatePerSec:     5,
		PollingTimeout:     60,
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment (including a .env file in the working directory), in that order.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.DiscordToken, "DISCORD_TOKEN")
	setString(&cfg.TelegramBotToken, "TELEGRAM_BOT_TOKEN")
	setString(&cfg.GitHubToken, "GITHUB_TOKEN")
	setString(&cfg.StoreDriver, "STORE_DRIVER")
	setString(&cfg.StatePath, "STATE_FILE")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.SQLitePath, "SQLITE_PATH")

	if v, ok := os.LookupEnv("POLL_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid POLL_INTERVAL: %w", err)
		}
		cfg.PollInterval = d
	}

	if v, ok := os.LookupEnv("REQUEST_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}

	if v, ok := os.LookupEnv("NOTIFY_ON_FIRST_SIGHT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid NOTIFY_ON_FIRST_SIGHT: %w", err)
		}
		cfg.NotifyOnFirstSight = b
	}

	if v, ok := os.LookupEnv("SEND_RATE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SEND_RATE: %w", err)
		}
		cfg.SendRatePerSec = n
	}

	if v, ok := os.LookupEnv("DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DEBUG: %w", err)
		}
		cfg.Debug = b
	}

	return nil
}

func setString(dst *string, key string) {
	if value, exists := os.LookupEnv(key); exists {
		*dst = value
	}
}
