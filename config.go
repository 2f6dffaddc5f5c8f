package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr     string `yaml:"addr"`
	TLSCert  string `yaml:"tlsCert"`
	TLSKey   string `yaml:"tlsKey"`
	MediaDir string `yaml:"mediaDir"`
	Origin   string `yaml:"origin"`

	// SharedToken enables auth when non-empty: API requests need it as a
	// bearer token, WebSocket connects need it as a query parameter.
	SharedToken string `yaml:"sharedToken"`

	MaxRooms          int           `yaml:"maxRooms"`
	MaxClientsPerRoom int           `yaml:"maxClientsPerRoom"`
	RoomIdleTimeout   time.Duration `yaml:"roomIdleTimeout"`
	RateLimitPerIP    float64       `yaml:"rateLimitPerIP"`

	// Sync tunables (see pkg/driftsync for what they mean).
	ResyncThresholdSec float64       `yaml:"resyncThresholdSec"`
	DriftCompensation  float64       `yaml:"driftCompensation"`
	HandoffDelay       time.Duration `yaml:"handoffDelay"`
}

// LoadConfig reads an optional YAML file named by CONFIG_PATH, then applies
// VIDEOPARTY_* environment overrides on top.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Addr:               ":8080",
		MediaDir:           "./media",
		Origin:             "http://localhost:5173",
		MaxRooms:           1000,
		MaxClientsPerRoom:  20,
		RoomIdleTimeout:    time.Hour,
		RateLimitPerIP:     100,
		ResyncThresholdSec: 0.35,
		DriftCompensation:  1.0,
		HandoffDelay:       100 * time.Millisecond,
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.Addr = envStr("VIDEOPARTY_ADDR", cfg.Addr)
	cfg.TLSCert = envStr("VIDEOPARTY_TLS_CERT", cfg.TLSCert)
	cfg.TLSKey = envStr("VIDEOPARTY_TLS_KEY", cfg.TLSKey)
	cfg.MediaDir = envStr("VIDEOPARTY_MEDIA_DIR", cfg.MediaDir)
	cfg.Origin = envStr("VIDEOPARTY_ORIGIN", cfg.Origin)
	cfg.SharedToken = envStr("VIDEOPARTY_SHARED_TOKEN", cfg.SharedToken)
	cfg.MaxRooms = envInt("VIDEOPARTY_MAX_ROOMS", cfg.MaxRooms)
	cfg.MaxClientsPerRoom = envInt("VIDEOPARTY_MAX_CLIENTS_PER_ROOM", cfg.MaxClientsPerRoom)
	cfg.RoomIdleTimeout = time.Duration(envInt("VIDEOPARTY_ROOM_IDLE_TIMEOUT", int(cfg.RoomIdleTimeout/time.Second))) * time.Second
	cfg.RateLimitPerIP = envFloat("VIDEOPARTY_RATE_LIMIT_PER_IP", cfg.RateLimitPerIP)
	cfg.ResyncThresholdSec = envFloat("VIDEOPARTY_RESYNC_THRESHOLD", cfg.ResyncThresholdSec)
	cfg.DriftCompensation = envFloat("VIDEOPARTY_DRIFT_COMPENSATION", cfg.DriftCompensation)
	cfg.HandoffDelay = time.Duration(envInt("VIDEOPARTY_HANDOFF_DELAY_MS", int(cfg.HandoffDelay/time.Millisecond))) * time.Millisecond

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if c.MediaDir == "" {
		return errors.New("mediaDir is required")
	}
	if c.ResyncThresholdSec <= 0 {
		return errors.New("resyncThresholdSec must be positive")
	}
	if c.DriftCompensation < 0 {
		return errors.New("driftCompensation must not be negative")
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
