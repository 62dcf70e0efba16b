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

package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrGenerate(t *testing.T) {
	t.Run("GeneratesOnFirstCall", func(t *testing.T) {
		dir := t.TempDir()
		keyPath := filepath.Join(dir, "minion.pem")
		pubPath := filepath.Join(dir, "minion.pub")

		handle, err := LoadOrGenerate(keyPath, pubPath)
		require.NoError(t, err)
		require.NotNil(t, handle.Private)
		assert.Equal(t, KeyBits, handle.Private.N.BitLen())

		info, err := os.Stat(keyPath)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(privateKeyPerm), info.Mode().Perm())

		info, err = os.Stat(pubPath)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(publicKeyPerm), info.Mode().Perm())
	})

	t.Run("LoadsExistingKeyUnchanged", func(t *testing.T) {
		dir := t.TempDir()
		keyPath := filepath.Join(dir, "minion.pem")
		pubPath := filepath.Join(dir, "minion.pub")

		first, err := LoadOrGenerate(keyPath, pubPath)
		require.NoError(t, err)

		second, err := LoadOrGenerate(keyPath, pubPath)
		require.NoError(t, err)

		assert.True(t, first.Private.Equal(second.Private))
	})
}

func TestSignVerify(t *testing.T) {
	dir := t.TempDir()
	handle, err := LoadOrGenerate(filepath.Join(dir, "k.pem"), filepath.Join(dir, "k.pub"))
	require.NoError(t, err)

	msg := []byte("session key digest")
	sig, err := handle.Sign(msg)
	require.NoError(t, err)

	assert.NoError(t, Verify(&handle.Private.PublicKey, msg, sig))
	assert.Error(t, Verify(&handle.Private.PublicKey, []byte("tampered"), sig))
}

func TestPublicKeyPEMRoundTrip(t *testing.T) {
	dir := t.TempDir()
	handle, err := LoadOrGenerate(filepath.Join(dir, "k.pem"), filepath.Join(dir, "k.pub"))
	require.NoError(t, err)

	pemBytes, err := handle.PublicPEM()
	require.NoError(t, err)

	pub, err := PublicKeyFromPEM(pemBytes)
	require.NoError(t, err)
	assert.True(t, handle.Private.PublicKey.Equal(pub))
}

func TestFingerprintStable(t *testing.T) {
	dir := t.TempDir()
	handle, err := LoadOrGenerate(filepath.Join(dir, "k.pem"), filepath.Join(dir, "k.pub"))
	require.NoError(t, err)

	fp1, err := Fingerprint(&handle.Private.PublicKey)
	require.NoError(t, err)
	fp2, err := Fingerprint(&handle.Private.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 64)
}
