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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFileAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "minion.yaml")
	require.NoError(t, SaveToFile(&Config{ID: "minion-1", PKIDir: "/etc/salt/pki/minion"}, path))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "minion-1", cfg.ID)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 10*time.Second, cfg.AcceptanceWaitTime)
	assert.Equal(t, 7, cfg.AuthTries)
	require.NotNil(t, cfg.Logging)
	assert.Equal(t, "info", cfg.Logging.Level)
	require.NotNil(t, cfg.Metrics)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "minion.yaml")
	original := &Config{
		ID:                     "minion-2",
		PKIDir:                 "/etc/salt/pki/minion",
		VerifyMasterPubkeySign: true,
		MasterSignKeyName:      "master_sign",
		AcceptanceWaitTimeMax:  2 * time.Minute,
	}
	require.NoError(t, SaveToFile(original, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, original.ID, loaded.ID)
	assert.True(t, loaded.VerifyMasterPubkeySign)
	assert.Equal(t, "master_sign", loaded.MasterSignKeyName)
	assert.Equal(t, 2*time.Minute, loaded.AcceptanceWaitTimeMax)
}

func TestToAuthConfig(t *testing.T) {
	cfg := &Config{
		ID:                "minion-3",
		PKIDir:             "/etc/salt/pki/minion",
		MasterFinger:       "ab:cd",
		RejectedRetry:      true,
		AuthTries:          5,
		AcceptanceWaitTime: 3 * time.Second,
	}
	authCfg := cfg.ToAuthConfig()
	assert.Equal(t, cfg.ID, authCfg.ID)
	assert.Equal(t, cfg.PKIDir, authCfg.PKIDir)
	assert.Equal(t, cfg.MasterFinger, authCfg.MasterFinger)
	assert.True(t, authCfg.RejectedRetry)
	assert.Equal(t, 5, authCfg.AuthTries)
}

func TestValidate(t *testing.T) {
	t.Run("missing id", func(t *testing.T) {
		err := Validate(&Config{PKIDir: "/etc/salt/pki/minion"})
		assert.Error(t, err)
	})

	t.Run("missing pki dir", func(t *testing.T) {
		err := Validate(&Config{ID: "minion-1"})
		assert.Error(t, err)
	})

	t.Run("verify signing requires key name", func(t *testing.T) {
		err := Validate(&Config{ID: "minion-1", PKIDir: "/x", VerifyMasterPubkeySign: true})
		assert.Error(t, err)
	})

	t.Run("wait max below wait", func(t *testing.T) {
		err := Validate(&Config{
			ID: "minion-1", PKIDir: "/x",
			AcceptanceWaitTime:    10 * time.Second,
			AcceptanceWaitTimeMax: 5 * time.Second,
		})
		assert.Error(t, err)
	})

	t.Run("valid config", func(t *testing.T) {
		err := Validate(&Config{ID: "minion-1", PKIDir: "/x"})
		assert.NoError(t, err)
	})
}
