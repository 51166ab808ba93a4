package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Server.Host != "localhost" {
		t.Errorf("server defaults = %s:%d, want localhost:8080", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Server.WebSocketPath != "/ws" {
		t.Errorf("websocket path = %q, want /ws", cfg.Server.WebSocketPath)
	}
	if cfg.Backtest.InitialCapital != 10000 {
		t.Errorf("initial capital = %v, want 10000", cfg.Backtest.InitialCapital)
	}
	if cfg.Quant.MaxDrawdownPct != 10 {
		t.Errorf("max drawdown = %v, want 10", cfg.Quant.MaxDrawdownPct)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "server:\n  port: 9000\n  dataDir: /tmp/candles\nbacktest:\n  feeRate: 0.001\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Server.DataDir != "/tmp/candles" {
		t.Errorf("dataDir = %q", cfg.Server.DataDir)
	}
	if cfg.Backtest.FeeRate != 0.001 {
		t.Errorf("feeRate = %v, want 0.001", cfg.Backtest.FeeRate)
	}
	if cfg.Server.Host != "localhost" {
		t.Errorf("host default lost: %q", cfg.Server.Host)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("QUANTDESK_SERVER_PORT", "7777")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("port = %d, want env override 7777", cfg.Server.Port)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("QUANTDESK_SERVER_PORT", "-1")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for negative port")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
