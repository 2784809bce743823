package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/the-noise-box/noised/netman"
)

func writeTuningFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tuning.yaml")

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("could not write tuning file: %v", err)
	}

	return path
}

func TestApplyTuningEmptyPathKeepsConfig(t *testing.T) {
	cfg := netman.Config{APSsid: "keep"}

	if err := applyTuning("", &cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APSsid != "keep" {
		t.Errorf("config was modified: %+v", cfg)
	}
}

func TestApplyTuning(t *testing.T) {
	path := writeTuningFile(t, `
ap:
  ssid: workshop
  psk: supersecret
  channel: 11
  max_clients: 5
  lifetime_ms: 60000
station:
  minimum_rssi: -75
  minimum_auth: wpa2
max_connection_attempts: 7
monitor_frequency_ms: 2500
`)

	var cfg netman.Config

	if err := applyTuning(path, &cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APSsid != "workshop" || cfg.APPsk != "supersecret" {
		t.Errorf("unexpected ap credentials: %+v", cfg)
	}

	if cfg.APChannel != 11 || cfg.APMaxClients != 5 {
		t.Errorf("unexpected ap settings: %+v", cfg)
	}

	if cfg.APLifetime != 60*time.Second {
		t.Errorf("unexpected ap lifetime %v", cfg.APLifetime)
	}

	if cfg.StationMinimumRssi != -75 {
		t.Errorf("unexpected minimum rssi %v", cfg.StationMinimumRssi)
	}

	if cfg.StationMinimumAuth != netman.AuthWpa2Psk {
		t.Errorf("unexpected minimum auth %v", cfg.StationMinimumAuth)
	}

	if cfg.MaxConnectionAttempts != 7 {
		t.Errorf("unexpected attempts %v", cfg.MaxConnectionAttempts)
	}

	if cfg.MonitorFrequency != 2500*time.Millisecond {
		t.Errorf("unexpected monitor frequency %v", cfg.MonitorFrequency)
	}
}

func TestApplyTuningUnknownAuthMode(t *testing.T) {
	path := writeTuningFile(t, `
station:
  minimum_auth: wpa9
`)

	var cfg netman.Config

	if err := applyTuning(path, &cfg); err == nil {
		t.Error("expected an error")
	}
}

func TestApplyTuningMissingFile(t *testing.T) {
	var cfg netman.Config

	if err := applyTuning("/nonexistent/tuning.yaml", &cfg); err == nil {
		t.Error("expected an error")
	}
}
