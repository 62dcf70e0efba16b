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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("SALT_TEST_VAR", "resolved")

	assert.Equal(t, "resolved", SubstituteEnvVars("${SALT_TEST_VAR}"))
	assert.Equal(t, "fallback", SubstituteEnvVars("${SALT_TEST_VAR_UNSET:fallback}"))
	assert.Equal(t, "plain text", SubstituteEnvVars("plain text"))
}

func TestSubstituteEnvVarsInConfig(t *testing.T) {
	t.Setenv("SALT_TEST_PKI_DIR", "/opt/salt/pki")

	cfg := &Config{
		PKIDir:  "${SALT_TEST_PKI_DIR}",
		Logging: &LoggingConfig{Level: "${SALT_TEST_LEVEL:warn}"},
	}
	SubstituteEnvVarsInConfig(cfg)

	assert.Equal(t, "/opt/salt/pki", cfg.PKIDir)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestGetEnvironment(t *testing.T) {
	t.Setenv("SALT_ENV", "production")
	assert.Equal(t, "production", GetEnvironment())
	assert.True(t, IsProduction())
	assert.False(t, IsDevelopment())
}
