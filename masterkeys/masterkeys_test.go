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

package masterkeys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGeneratesIdentity(t *testing.T) {
	dir := t.TempDir()
	ck, err := Load(dir, "master")
	require.NoError(t, err)
	require.NotNil(t, ck.Identity)
}

func TestPublicKeyPEMLazyWrite(t *testing.T) {
	dir := t.TempDir()
	ck, err := Load(dir, "master")
	require.NoError(t, err)

	pemBytes, err := ck.PublicKeyPEM()
	require.NoError(t, err)
	assert.Contains(t, string(pemBytes), "PUBLIC KEY")
}

func TestSignSessionKeyUsesIdentityKeyWithoutSigningKey(t *testing.T) {
	dir := t.TempDir()
	ck, err := Load(dir, "master")
	require.NoError(t, err)

	sessionKey := []byte("session-key-material")
	sig, err := ck.SignSessionKey(sessionKey)
	require.NoError(t, err)

	err = VerifySessionKeySignature(&ck.Identity.Private.PublicKey, sessionKey, sig)
	assert.NoError(t, err)
}

func TestSignSessionKeyRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ck, err := Load(dir, "master")
	require.NoError(t, err)
	require.NoError(t, ck.WithSigningKey(dir, "master_sign"))

	// SignSessionKey always signs with the controller's own identity key,
	// not the separate signing key — WithSigningKey only affects
	// PubSig-over-public-key verification.
	sessionKey := []byte("a rotated session key string")
	sig, err := ck.SignSessionKey(sessionKey)
	require.NoError(t, err)

	err = VerifySessionKeySignature(&ck.Identity.Private.PublicKey, sessionKey, sig)
	assert.NoError(t, err)

	err = VerifySessionKeySignature(&ck.Identity.Private.PublicKey, []byte("tampered"), sig)
	assert.Error(t, err)
}
