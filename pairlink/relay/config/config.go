// Package config loads the relay daemon's TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/pairlink/go-pairlink/pairlink/relay"
)

// Config is the relay daemon configuration.
//
// Example file:
//
//	Listen = "0.0.0.0:7447"
//	MailboxSize = 256
//	HelloTimeoutSec = 10
//	LogLevel = "info"
type Config struct {
	Listen          string
	MailboxSize     int
	HelloTimeoutSec int
	LogLevel        string
}

func (cfg *Config) applyDefaults() {
	d := relay.DefaultServerConfig()
	if cfg.Listen == "" {
		cfg.Listen = d.Addr
	}
	if cfg.MailboxSize == 0 {
		cfg.MailboxSize = d.MailboxSize
	}
	if cfg.HelloTimeoutSec == 0 {
		cfg.HelloTimeoutSec = int(d.HelloTimeout / time.Second)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// Validate returns nil if the config is valid and otherwise an error.
func (cfg *Config) Validate() error {
	if cfg.MailboxSize < 0 {
		return errors.New("config: MailboxSize must not be negative")
	}
	if cfg.HelloTimeoutSec < 0 {
		return errors.New("config: HelloTimeoutSec must not be negative")
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("config: bad LogLevel %q: %w", cfg.LogLevel, err)
	}
	return nil
}

// Level returns the parsed log level. Call Validate first.
func (cfg *Config) Level() zerolog.Level {
	lvl, _ := zerolog.ParseLevel(cfg.LogLevel)
	return lvl
}

// Server converts the file config into the relay server config.
func (cfg *Config) Server() relay.ServerConfig {
	return relay.ServerConfig{
		Addr:         cfg.Listen,
		MailboxSize:  cfg.MailboxSize,
		HelloTimeout: time.Duration(cfg.HelloTimeoutSec) * time.Second,
	}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := new(Config)
	cfg.applyDefaults()
	return cfg
}

// Load parses and validates the provided buffer b as a config file body and
// returns the Config. Unknown keys are an error, not a silent typo.
func Load(b []byte) (*Config, error) {
	cfg := new(Config)
	md, err := toml.Decode(string(b), cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("config: undecoded keys in config file: %v", undecoded)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses and validates the provided file and returns the
// Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}
