package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr     string `yaml:"http_addr"`
	DatabaseURL  string `yaml:"database_url"`
	JWTSecret    string `yaml:"jwt_secret"`
	RedisURL     string `yaml:"redis_url"`
	PublicURL    string `yaml:"public_url"`
	DashboardURL string `yaml:"dashboard_url"`
	AlertEmail   string `yaml:"alert_email"`

	Log      LogConfig      `yaml:"log"`
	Shopify  ShopifyConfig  `yaml:"shopify"`
	Track123 Track123Config `yaml:"track123"`
	Resend   ResendConfig   `yaml:"resend"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Hub      HubConfig      `yaml:"hub"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ShopifyConfig struct {
	APIKey      string `yaml:"api_key"`
	APISecret   string `yaml:"api_secret"`
	APIVersion  string `yaml:"api_version"`
	Scopes      string `yaml:"scopes"`
	RedirectURI string `yaml:"redirect_uri"`
	// EnforceProxySignature turns on App Proxy signature checks. Off by
	// default so the hub keeps working behind theme previews.
	EnforceProxySignature bool `yaml:"enforce_proxy_signature"`
}

type Track123Config struct {
	APIKey   string        `yaml:"api_key"`
	BaseURL  string        `yaml:"base_url"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type ResendConfig struct {
	APIKey string `yaml:"api_key"`
	From   string `yaml:"from"`
}

type KafkaConfig struct {
	Brokers       []string      `yaml:"brokers"`
	RelayInterval time.Duration `yaml:"relay_interval"`
	Topics        KafkaTopics   `yaml:"topics"`
}

type KafkaTopics struct {
	RequestSubmitted     string `yaml:"request_submitted"`
	RequestStatusChanged string `yaml:"request_status_changed"`
}

type HubConfig struct {
	APIBase  string `yaml:"api_base"`
	AssetURL string `yaml:"asset_url"`
}

type MonitorConfig struct {
	Cron        string `yaml:"cron"`
	Concurrency int    `yaml:"concurrency"`
}

type WorkerConfig struct {
	Concurrency int `yaml:"concurrency"`
}

func Default() Config {
	return Config{
		HTTPAddr:     ":8080",
		PublicURL:    "http://localhost:8080",
		DashboardURL: "http://localhost:5173",
		Log:          LogConfig{Level: "info", Format: "json"},
		Shopify: ShopifyConfig{
			APIVersion: "2024-10",
			Scopes:     "read_orders,read_customers,read_fulfillments,read_shopify_payments_disputes",
		},
		Track123: Track123Config{CacheTTL: 30 * 24 * time.Hour},
		Resend:   ResendConfig{From: "ChargeMind <noreply@chargemind.io>"},
		Kafka: KafkaConfig{
			RelayInterval: 2 * time.Second,
			Topics: KafkaTopics{
				RequestSubmitted:     "chargemind.dispute-requests.submitted",
				RequestStatusChanged: "chargemind.dispute-requests.status-changed",
			},
		},
		Hub:     HubConfig{APIBase: "/apps/chargemind/api"},
		Monitor: MonitorConfig{Cron: "*/15 * * * *", Concurrency: 4},
		Worker:  WorkerConfig{Concurrency: 10},
	}
}

// Load reads defaults, then the YAML file at path when it exists, then the
// environment. A .env file in the working directory is loaded first without
// overriding variables that are already set.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = envOrDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.DatabaseURL = envOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.PublicURL = envOrDefault("PUBLIC_URL", cfg.PublicURL)
	cfg.DashboardURL = envOrDefault("DASHBOARD_URL", cfg.DashboardURL)
	cfg.AlertEmail = envOrDefault("ALERT_EMAIL", cfg.AlertEmail)

	cfg.Log.Level = envOrDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envOrDefault("LOG_FORMAT", cfg.Log.Format)

	cfg.Shopify.APIKey = envOrDefault("SHOPIFY_API_KEY", cfg.Shopify.APIKey)
	cfg.Shopify.APISecret = envOrDefault("SHOPIFY_API_SECRET", cfg.Shopify.APISecret)
	cfg.Shopify.APIVersion = envOrDefault("SHOPIFY_API_VERSION", cfg.Shopify.APIVersion)
	cfg.Shopify.Scopes = envOrDefault("SHOPIFY_SCOPES", cfg.Shopify.Scopes)
	cfg.Shopify.RedirectURI = envOrDefault("SHOPIFY_REDIRECT_URI", cfg.Shopify.RedirectURI)
	cfg.Shopify.EnforceProxySignature = envBool("SHOPIFY_ENFORCE_PROXY_SIGNATURE", cfg.Shopify.EnforceProxySignature)

	cfg.Track123.APIKey = envOrDefault("TRACK123_API_KEY", cfg.Track123.APIKey)
	cfg.Track123.BaseURL = envOrDefault("TRACK123_BASE_URL", cfg.Track123.BaseURL)

	cfg.Resend.APIKey = envOrDefault("RESEND_API_KEY", cfg.Resend.APIKey)
	cfg.Resend.From = envOrDefault("RESEND_FROM", cfg.Resend.From)

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}

	cfg.Monitor.Cron = envOrDefault("MONITOR_CRON", cfg.Monitor.Cron)
	cfg.Monitor.Concurrency = envInt("MONITOR_CONCURRENCY", cfg.Monitor.Concurrency)
	cfg.Worker.Concurrency = envInt("WORKER_CONCURRENCY", cfg.Worker.Concurrency)
}

// Validate checks the settings every subcommand needs.
func (c Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("database_url is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	}
	if c.RedisURL == "" {
		errs = append(errs, errors.New("redis_url is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func envOrDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
