package main

import (
	"os"
	"time"

	"github.com/go-errors/errors"
	"github.com/jessevdk/go-flags"
	"github.com/the-noise-box/noised/netman"
	"gopkg.in/yaml.v3"
)

const (
	defaultDataDir   = "./data"
	defaultListen    = ":9000"
	defaultNet       = "mock"
	defaultInterface = "wlan0"
	defaultPlayer    = "none"
)

type config struct {
	ShowVersion bool   `long:"version" description:"Display version information and exit"`
	Debug       bool   `long:"debug" description:"Start in debug mode"`
	DataDir     string `long:"datadir" description:"The directory to store noised's data within"`
	Listen      string `long:"listen" description:"Address to serve the web app on once connectivity is up"`
	Net         string `long:"net" description:"The networking driver" choice:"wpa" choice:"mock"`
	Interface   string `long:"interface" description:"The wireless interface managed by the wpa driver"`
	Player      string `long:"player" description:"The audio backend" choice:"none"`
	Tuning      string `long:"tuning" description:"Path to an optional YAML file with networking tunables"`
}

func loadConfig() (*config, error) {
	cfg := config{
		DataDir:   defaultDataDir,
		Listen:    defaultListen,
		Net:       defaultNet,
		Interface: defaultInterface,
		Player:    defaultPlayer,
	}

	if _, err := flags.Parse(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// tuning mirrors the networking tunables of netman.Config in a file-friendly
// shape. Durations are given in milliseconds; absent values keep the
// defaults.
type tuning struct {
	Ap struct {
		Ssid       string `yaml:"ssid"`
		Psk        string `yaml:"psk"`
		Channel    int    `yaml:"channel"`
		MaxClients int    `yaml:"max_clients"`
		LifetimeMs int    `yaml:"lifetime_ms"`
	} `yaml:"ap"`
	Station struct {
		MinimumRssi int    `yaml:"minimum_rssi"`
		MinimumAuth string `yaml:"minimum_auth"`
	} `yaml:"station"`
	MaxConnectionAttempts int `yaml:"max_connection_attempts"`
	MonitorFrequencyMs    int `yaml:"monitor_frequency_ms"`
}

// applyTuning reads a tuning file and folds its values into the networking
// config. An empty path leaves the config untouched.
func applyTuning(path string, cfg *netman.Config) error {
	if path == "" {
		return nil
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		return errors.Errorf("could not read tuning file: %v", err)
	}

	var t tuning

	if err := yaml.Unmarshal(payload, &t); err != nil {
		return errors.Errorf("could not parse tuning file: %v", err)
	}

	cfg.APSsid = t.Ap.Ssid
	cfg.APPsk = t.Ap.Psk
	cfg.APChannel = t.Ap.Channel
	cfg.APMaxClients = t.Ap.MaxClients
	cfg.APLifetime = time.Duration(t.Ap.LifetimeMs) * time.Millisecond
	cfg.StationMinimumRssi = t.Station.MinimumRssi
	cfg.MaxConnectionAttempts = t.MaxConnectionAttempts
	cfg.MonitorFrequency = time.Duration(t.MonitorFrequencyMs) * time.Millisecond

	if t.Station.MinimumAuth != "" {
		auth, err := parseAuthMode(t.Station.MinimumAuth)
		if err != nil {
			return err
		}
		cfg.StationMinimumAuth = auth
	}

	return nil
}

func parseAuthMode(mode string) (netman.AuthMode, error) {
	switch mode {
	case "open":
		return netman.AuthOpen, nil
	case "wep":
		return netman.AuthWep, nil
	case "wpa":
		return netman.AuthWpaPsk, nil
	case "wpa2":
		return netman.AuthWpa2Psk, nil
	default:
		return netman.AuthOpen, errors.Errorf("unknown auth mode %v", mode)
	}
}
