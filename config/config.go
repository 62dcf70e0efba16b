// Copyright (C) 2025 salt contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package config loads and validates the minion's on-disk configuration:
// identity paths, the sign-in handshake options of auth.Config, and the
// ambient logging/metrics settings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ethanculler/salt/auth"
)

// Config is the on-disk, YAML-native configuration for a minion process.
// Its sign-in fields mirror auth.Config field-for-field; ToAuthConfig
// converts between the two.
type Config struct {
	Environment string `yaml:"environment" json:"environment"`

	ID       string `yaml:"id" json:"id"`
	PKIDir   string `yaml:"pki_dir" json:"pki_dir"`
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	OpenMode bool `yaml:"open_mode" json:"open_mode"`

	VerifyMasterPubkeySign bool   `yaml:"verify_master_pubkey_sign" json:"verify_master_pubkey_sign"`
	MasterSignKeyName      string `yaml:"master_sign_key_name" json:"master_sign_key_name"`
	AlwaysVerifySignature  bool   `yaml:"always_verify_signature" json:"always_verify_signature"`
	MasterFinger           string `yaml:"master_finger" json:"master_finger"`

	RejectedRetry bool `yaml:"rejected_retry" json:"rejected_retry"`
	Caller        bool `yaml:"caller" json:"caller"`

	AcceptanceWaitTime    time.Duration `yaml:"acceptance_wait_time" json:"acceptance_wait_time"`
	AcceptanceWaitTimeMax time.Duration `yaml:"acceptance_wait_time_max" json:"acceptance_wait_time_max"`
	AuthTimeout           time.Duration `yaml:"auth_timeout" json:"auth_timeout"`
	AuthTries             int           `yaml:"auth_tries" json:"auth_tries"`
	AuthTraceback         bool          `yaml:"auth_trb" json:"auth_trb"`

	Logging *LoggingConfig `yaml:"logging" json:"logging"`
	Metrics *MetricsConfig `yaml:"metrics" json:"metrics"`
}

// LoggingConfig holds the logging settings of the config file. No package
// in this repository applies them to internal/logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // json, text
	Output string `yaml:"output" json:"output"` // stdout, stderr, file path
}

// MetricsConfig holds the settings for internal/metrics' standalone HTTP
// exposition server. No package in this repository reads them;
// metrics.StartServer takes only an address and always serves /metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
	Path    string `yaml:"path" json:"path"`
}

// ToAuthConfig projects the sign-in handshake fields into an auth.Config.
func (c *Config) ToAuthConfig() auth.Config {
	return auth.Config{
		PKIDir:                 c.PKIDir,
		ID:                     c.ID,
		OpenMode:               c.OpenMode,
		VerifyMasterPubkeySign: c.VerifyMasterPubkeySign,
		MasterSignKeyName:      c.MasterSignKeyName,
		AlwaysVerifySignature:  c.AlwaysVerifySignature,
		MasterFinger:           c.MasterFinger,
		RejectedRetry:          c.RejectedRetry,
		Caller:                 c.Caller,
		AcceptanceWaitTime:     c.AcceptanceWaitTime,
		AcceptanceWaitTimeMax:  c.AcceptanceWaitTimeMax,
		AuthTimeout:            c.AuthTimeout,
		AuthTries:              c.AuthTries,
		AuthTraceback:          c.AuthTraceback,
	}
}

// LoadFromFile reads and parses a YAML configuration file, applying defaults
// after parsing.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	setDefaults(cfg)
	return cfg, nil
}

// SaveToFile writes cfg to path as YAML.
func SaveToFile(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshaling: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.PKIDir == "" {
		cfg.PKIDir = "/etc/salt/pki/minion"
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = "/var/cache/salt/minion"
	}
	if cfg.AcceptanceWaitTime == 0 {
		cfg.AcceptanceWaitTime = 10 * time.Second
	}
	if cfg.AuthTimeout == 0 {
		cfg.AuthTimeout = 60 * time.Second
	}
	if cfg.AuthTries == 0 {
		cfg.AuthTries = 7
	}

	if cfg.Logging == nil {
		cfg.Logging = &LoggingConfig{}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Metrics == nil {
		cfg.Metrics = &MetricsConfig{}
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9100"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// Validate checks that a Config carries everything a sign-in handshake
// needs before Auth.New is called against it.
func Validate(cfg *Config) error {
	if cfg.ID == "" {
		return fmt.Errorf("config: id is required")
	}
	if cfg.PKIDir == "" {
		return fmt.Errorf("config: pki_dir is required")
	}
	if cfg.VerifyMasterPubkeySign && cfg.MasterSignKeyName == "" {
		return fmt.Errorf("config: master_sign_key_name is required when verify_master_pubkey_sign is set")
	}
	if cfg.AcceptanceWaitTimeMax != 0 && cfg.AcceptanceWaitTimeMax < cfg.AcceptanceWaitTime {
		return fmt.Errorf("config: acceptance_wait_time_max must be >= acceptance_wait_time")
	}
	return nil
}
