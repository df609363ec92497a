package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "binance:\n  enabled: true\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "data/raw" {
		t.Fatalf("data_dir default not applied: %q", cfg.DataDir)
	}
	if cfg.Binance.BaseURL != "https://api.binance.com" {
		t.Fatalf("binance base_url default not applied: %q", cfg.Binance.BaseURL)
	}
	if cfg.Binance.Rate.Limit != 50 || cfg.Binance.Rate.Window != time.Minute {
		t.Fatalf("binance rate default not applied: %+v", cfg.Binance.Rate)
	}
	if cfg.Oanda.Rate.Window != time.Second {
		t.Fatalf("oanda rate window should default to one second, got %v", cfg.Oanda.Rate.Window)
	}
	if cfg.Fred.LookbackYears != 15 {
		t.Fatalf("fred lookback default not applied: %d", cfg.Fred.LookbackYears)
	}
	if cfg.Collection.Retries != 3 || cfg.Collection.RetryBackoff != 2*time.Second {
		t.Fatalf("collection defaults not applied: %+v", cfg.Collection)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
data_dir: /tmp/series
binance:
  enabled: true
  max_calls: 10
  rate:
    limit: 5
checkpoint:
  backend: redis
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "/tmp/series" {
		t.Fatalf("data_dir override lost: %q", cfg.DataDir)
	}
	if cfg.Binance.MaxCalls != 10 {
		t.Fatalf("max_calls override lost: %d", cfg.Binance.MaxCalls)
	}
	if cfg.Binance.Rate.Limit != 5 {
		t.Fatalf("rate limit override lost: %d", cfg.Binance.Rate.Limit)
	}
	if cfg.Binance.Rate.Window != time.Minute {
		t.Fatalf("rate window should keep default: %v", cfg.Binance.Rate.Window)
	}
	if cfg.Checkpoint.Backend != "redis" {
		t.Fatalf("checkpoint backend override lost: %q", cfg.Checkpoint.Backend)
	}
}

func TestValidateRejectsBadBackend(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "checkpoint:\n  backend: dynamo\n")

	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for unknown checkpoint backend")
	}
}

func TestValidateKafkaNeedsBrokers(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "kafka:\n  enabled: true\n")

	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for kafka without brokers")
	}
}

func TestLoadWithEnvCredentials(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "oanda:\n  enabled: true\n")

	t.Setenv("OANDA_KEY", "token-from-env")
	t.Setenv("TD_KEY", "td-from-env")
	t.Setenv("FRED_KEY", "fred-from-env")

	cfg, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Oanda.Token != "token-from-env" {
		t.Fatalf("OANDA_KEY not applied: %q", cfg.Oanda.Token)
	}
	if cfg.TwelveData.APIKey != "td-from-env" {
		t.Fatalf("TD_KEY not applied: %q", cfg.TwelveData.APIKey)
	}
	if cfg.Fred.APIKey != "fred-from-env" {
		t.Fatalf("FRED_KEY not applied: %q", cfg.Fred.APIKey)
	}
}

func TestLoadSymbols(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "coins.txt", `
# majors
BTC
ETH  # smart contracts

SOL
`)

	symbols, err := LoadSymbols(path)
	if err != nil {
		t.Fatalf("load symbols: %v", err)
	}
	want := []string{"BTC", "ETH", "SOL"}
	if len(symbols) != len(want) {
		t.Fatalf("expected %d symbols, got %v", len(want), symbols)
	}
	for i := range want {
		if symbols[i] != want[i] {
			t.Fatalf("symbol %d = %q, want %q", i, symbols[i], want[i])
		}
	}
}
