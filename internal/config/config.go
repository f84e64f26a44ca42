package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.rtlink/config.toml.
type Config struct {
	DefaultProfile string `toml:"default_profile"`
}

// Duration is a time.Duration that reads and writes as "2s", "1m30s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Profile represents ~/.rtlink/profiles/<name>/profile.toml.
type Profile struct {
	ServerURL            string   `toml:"server_url"`
	UserID               string   `toml:"user_id"`
	Token                string   `toml:"token"`
	MaxReconnectAttempts int      `toml:"max_reconnect_attempts"`
	BaseDelay            Duration `toml:"base_delay"`
	MaxDelay             Duration `toml:"max_delay"`
	SettleDelay          Duration `toml:"settle_delay"`
	TypingTimeout        Duration `toml:"typing_timeout"`
	ReconnectOnDrop      bool     `toml:"reconnect_on_drop"`
	StableAfter          Duration `toml:"stable_after"`
	PingInterval         Duration `toml:"ping_interval"`
	MetricsAddr          string   `toml:"metrics_addr"`
	JournalRetention     Duration `toml:"journal_retention"`
}

// DefaultProfile returns a profile with the stock connection policy and no
// server or principal configured.
func DefaultProfile() *Profile {
	return &Profile{
		MaxReconnectAttempts: 5,
		BaseDelay:            Duration{2 * time.Second},
		MaxDelay:             Duration{30 * time.Second},
		SettleDelay:          Duration{time.Second},
		TypingTimeout:        Duration{3 * time.Second},
		ReconnectOnDrop:      true,
		StableAfter:          Duration{30 * time.Second},
		PingInterval:         Duration{25 * time.Second},
		JournalRetention:     Duration{7 * 24 * time.Hour},
	}
}

// Validate checks the fields the daemon cannot start without.
func (p *Profile) Validate() error {
	if p.ServerURL == "" {
		return errors.New("server_url is required")
	}
	u, err := url.Parse(p.ServerURL)
	if err != nil {
		return fmt.Errorf("server_url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("server_url: unsupported scheme %q", u.Scheme)
	}
	if p.MaxReconnectAttempts < 0 {
		return fmt.Errorf("max_reconnect_attempts must not be negative")
	}
	if p.MaxDelay.Duration > 0 && p.BaseDelay.Duration > p.MaxDelay.Duration {
		return fmt.Errorf("base_delay %s exceeds max_delay %s", p.BaseDelay, p.MaxDelay)
	}
	if p.StableAfter.Duration < 0 {
		return fmt.Errorf("stable_after must not be negative")
	}
	if p.JournalRetention.Duration < 0 {
		return fmt.Errorf("journal_retention must not be negative")
	}
	return nil
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	return writeTOML(path, cfg)
}

// LoadProfile reads a profile, filling unset fields from DefaultProfile.
func LoadProfile(path string) (*Profile, error) {
	p := DefaultProfile()
	if _, err := toml.DecodeFile(path, p); err != nil {
		return nil, fmt.Errorf("load profile %s: %w", path, err)
	}
	return p, nil
}

// SaveProfile writes a profile. The file holds a token, so it is 0600.
func SaveProfile(path string, p *Profile) error {
	return writeTOML(path, p)
}

func writeTOML(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(v)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
