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

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LoaderOptions configures the configuration loader.
type LoaderOptions struct {
	// ConfigDir is the directory containing config files (default: ./config).
	ConfigDir string
	// Environment overrides automatic environment detection.
	Environment string
	// SkipEnvSubstitution disables ${VAR} substitution.
	SkipEnvSubstitution bool
	// SkipValidation disables Validate.
	SkipValidation bool
}

// DefaultLoaderOptions returns default loader options.
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{ConfigDir: "config"}
}

// Load loads configuration with automatic environment detection: it tries
// <ConfigDir>/<env>.yaml, then <ConfigDir>/default.yaml, then
// <ConfigDir>/config.yaml, falling back to a bare defaulted Config if none
// exist.
func Load(opts ...LoaderOptions) (*Config, error) {
	options := DefaultLoaderOptions()
	if len(opts) > 0 {
		options = opts[0]
	}

	env := options.Environment
	if env == "" {
		env = GetEnvironment()
	}

	cfg, err := loadConfigFile(filepath.Join(options.ConfigDir, fmt.Sprintf("%s.yaml", env)))
	if err != nil {
		cfg, err = loadConfigFile(filepath.Join(options.ConfigDir, "default.yaml"))
		if err != nil {
			cfg, err = loadConfigFile(filepath.Join(options.ConfigDir, "config.yaml"))
			if err != nil {
				cfg = &Config{}
				setDefaults(cfg)
			}
		}
	}

	if cfg.Environment == "" {
		cfg.Environment = env
	}

	if !options.SkipEnvSubstitution {
		SubstituteEnvVarsInConfig(cfg)
	}
	applyEnvironmentOverrides(cfg)

	if !options.SkipValidation {
		if err := Validate(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func loadConfigFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config: file not found: %s", path)
	}
	return LoadFromFile(path)
}

// applyEnvironmentOverrides overrides cfg with SALT_*-prefixed environment
// variables, the highest-priority configuration source.
func applyEnvironmentOverrides(cfg *Config) {
	if id := os.Getenv("SALT_ID"); id != "" {
		cfg.ID = id
	}
	if dir := os.Getenv("SALT_PKI_DIR"); dir != "" {
		cfg.PKIDir = dir
	}
	if dir := os.Getenv("SALT_CACHE_DIR"); dir != "" {
		cfg.CacheDir = dir
	}
	if finger := os.Getenv("SALT_MASTER_FINGER"); finger != "" {
		cfg.MasterFinger = finger
	}
	if v, ok := boolEnv("SALT_OPEN_MODE"); ok {
		cfg.OpenMode = v
	}
	if v, ok := boolEnv("SALT_VERIFY_MASTER_PUBKEY_SIGN"); ok {
		cfg.VerifyMasterPubkeySign = v
	}
	if wait := os.Getenv("SALT_ACCEPTANCE_WAIT_TIME"); wait != "" {
		if d, err := time.ParseDuration(wait); err == nil {
			cfg.AcceptanceWaitTime = d
		}
	}

	if logLevel := os.Getenv("SALT_LOG_LEVEL"); logLevel != "" && cfg.Logging != nil {
		cfg.Logging.Level = logLevel
	}
	if logFormat := os.Getenv("SALT_LOG_FORMAT"); logFormat != "" && cfg.Logging != nil {
		cfg.Logging.Format = logFormat
	}
	if v, ok := boolEnv("SALT_METRICS_ENABLED"); ok && cfg.Metrics != nil {
		cfg.Metrics.Enabled = v
	}
}

func boolEnv(name string) (bool, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// LoadForEnvironment loads configuration for a specific environment.
func LoadForEnvironment(environment string) (*Config, error) {
	return Load(LoaderOptions{ConfigDir: "config", Environment: environment})
}

// MustLoad loads configuration or panics on error.
func MustLoad(opts ...LoaderOptions) *Config {
	cfg, err := Load(opts...)
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}
