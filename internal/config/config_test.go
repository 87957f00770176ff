package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := `server:
  port: "9090"
  mode: release
jdpay:
  merchant: "110000000001"
  des_key: "a2V5"
callback:
  max_body_bytes: 4096
  rate_limit:
    max_requests: 10
relay:
  url: "http://127.0.0.1:9000/notify"
  timeout_ms: 1500
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Server.Mode != "release" || cfg.Server.Host != "0.0.0.0" {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.JDPay.Merchant != "110000000001" || cfg.JDPay.DESKey != "a2V5" {
		t.Fatalf("unexpected jdpay config: %+v", cfg.JDPay)
	}
	if cfg.Callback.MaxBodyBytes != 4096 || cfg.Callback.RateLimit.MaxRequests != 10 || cfg.Callback.RateLimit.WindowSeconds != 60 {
		t.Fatalf("unexpected callback config: %+v", cfg.Callback)
	}
	if !cfg.Relay.Enabled() || cfg.Relay.Timeout() != 1500*time.Millisecond {
		t.Fatalf("unexpected relay config: %+v", cfg.Relay)
	}
	if cfg.Server.ReadHeaderTimeout() != 5*time.Second || cfg.Server.IdleTimeout() != time.Minute {
		t.Fatalf("unexpected server timeout defaults: %+v", cfg.Server)
	}
	if cfg.Queue.Queues["critical"] != 5 {
		t.Fatalf("unexpected queue defaults: %+v", cfg.Queue.Queues)
	}
}

func TestLoadFromEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte("jdpay:\n  merchant: \"file\"\n"), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	t.Setenv("JDPAY_MERCHANT", "from-env")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if cfg.JDPay.Merchant != "from-env" {
		t.Fatalf("env should override file, got %q", cfg.JDPay.Merchant)
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	if _, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestDurationsFallback(t *testing.T) {
	if (RelayConfig{}).Timeout() != 5*time.Second {
		t.Fatalf("unexpected default relay timeout")
	}
	if (CallbackConfig{}).DedupTTL() != 24*time.Hour {
		t.Fatalf("unexpected default dedup ttl")
	}
	if (RelayConfig{URL: "  "}).Enabled() {
		t.Fatalf("blank relay url should be disabled")
	}
}

func TestServerTimeouts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := `server:
  read_header_timeout_ms: 1500
  write_timeout_ms: 3000
  shutdown_timeout_ms: 2500
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if cfg.Server.ReadHeaderTimeout() != 1500*time.Millisecond {
		t.Fatalf("unexpected read header timeout: %v", cfg.Server.ReadHeaderTimeout())
	}
	if cfg.Server.WriteTimeout() != 3*time.Second {
		t.Fatalf("unexpected write timeout: %v", cfg.Server.WriteTimeout())
	}
	if cfg.Server.ReadTimeout() != 15*time.Second {
		t.Fatalf("unexpected read timeout: %v", cfg.Server.ReadTimeout())
	}
	if cfg.Server.ShutdownTimeout() != 2500*time.Millisecond {
		t.Fatalf("unexpected shutdown timeout: %v", cfg.Server.ShutdownTimeout())
	}

	var zero ServerConfig
	if zero.ReadHeaderTimeout() <= 0 || zero.ReadTimeout() <= 0 || zero.WriteTimeout() <= 0 || zero.IdleTimeout() <= 0 {
		t.Fatalf("zero server config must still yield bounded timeouts")
	}
	if zero.ShutdownTimeout() != 10*time.Second {
		t.Fatalf("unexpected default shutdown timeout: %v", zero.ShutdownTimeout())
	}
}
