package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "config.yaml", `
http_addr: ":9000"
database_url: postgres://file
log:
  level: debug
shopify:
  api_key: file-key
  enforce_proxy_signature: true
kafka:
  brokers: [kafka-1:9092]
  relay_interval: 5s
monitor:
  concurrency: 8
`)
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("SHOPIFY_ENFORCE_PROXY_SIGNATURE", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9000" || cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.DatabaseURL != "postgres://env" {
		t.Fatalf("env should win, got %q", cfg.DatabaseURL)
	}
	if strings.Join(cfg.Kafka.Brokers, "|") != "a:9092|b:9092" {
		t.Fatalf("unexpected brokers %v", cfg.Kafka.Brokers)
	}
	if cfg.Kafka.RelayInterval != 5*time.Second || cfg.Monitor.Concurrency != 8 {
		t.Fatalf("unexpected kafka/monitor %+v %+v", cfg.Kafka, cfg.Monitor)
	}
	if cfg.Shopify.EnforceProxySignature {
		t.Fatal("env should disable proxy signature enforcement")
	}
	if cfg.Shopify.APIKey != "file-key" || cfg.Monitor.Cron != "*/15 * * * *" {
		t.Fatalf("unexpected shopify/monitor %+v %+v", cfg.Shopify, cfg.Monitor)
	}
}

func TestLoad_MissingFileUsesDefaultsAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, ".env", "JWT_SECRET=from-dotenv\nALERT_EMAIL=ops@chargemind.io\n")
	t.Setenv("ALERT_EMAIL", "preset@chargemind.io")
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWTSecret != "from-dotenv" {
		t.Fatalf("expected .env value, got %q", cfg.JWTSecret)
	}
	if cfg.AlertEmail != "preset@chargemind.io" {
		t.Fatalf(".env must not override the environment, got %q", cfg.AlertEmail)
	}
	if cfg.HTTPAddr != ":8080" || cfg.Track123.CacheTTL != 30*24*time.Hour {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "config.yaml", "http_addr: [")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	err := Default().Validate()
	if err == nil {
		t.Fatal("expected missing settings")
	}
	for _, want := range []string{"database_url", "jwt_secret", "redis_url"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %v", want, err)
		}
	}
	cfg := Default()
	cfg.DatabaseURL, cfg.JWTSecret, cfg.RedisURL = "postgres://x", "s", "redis://x"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
