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

// Package identity manages the long-term RSA identity keypair a minion or
// master uses to authenticate itself: load-or-generate on disk, PEM export,
// PKCS#1v1.5 signing and verification, and a fingerprint for pinning.
package identity

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// KeyBits is the RSA modulus size generated for new identity keys.
	KeyBits = 2048

	privateKeyPerm = 0o400
	publicKeyPerm  = 0o644
)

var (
	// ErrInvalidKey indicates a key that failed a structural or size check.
	ErrInvalidKey = errors.New("identity: invalid key")
	// ErrKeyParse indicates a PEM block could not be parsed as the expected
	// key type.
	ErrKeyParse = errors.New("identity: failed to parse key")
	// ErrIO wraps filesystem failures while loading or generating keys.
	ErrIO = errors.New("identity: io error")
)

// KeyHandle holds an RSA keypair along with the paths it was loaded from
// (or generated to), mirroring the minion/master on-disk identity key.
type KeyHandle struct {
	Private *rsa.PrivateKey
	KeyPath string
	PubPath string
}

// LoadOrGenerate loads an RSA private key from keyPath, writing a fresh
// KeyBits-sized keypair to keyPath/pubPath first if keyPath does not exist.
// Generated files are written with the same restrictive permissions as the
// original implementation: 0400 for the private key, 0644 for the public.
func LoadOrGenerate(keyPath, pubPath string) (*KeyHandle, error) {
	if _, err := os.Stat(keyPath); errors.Is(err, os.ErrNotExist) {
		if err := generate(keyPath, pubPath); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", ErrIO, keyPath, err)
	}

	priv, err := loadPrivateKey(keyPath)
	if err != nil {
		return nil, err
	}

	return &KeyHandle{Private: priv, KeyPath: keyPath, PubPath: pubPath}, nil
}

func generate(keyPath, pubPath string) error {
	if err := os.MkdirAll(filepath.Dir(keyPath), 0o755); err != nil {
		return fmt.Errorf("%w: creating key dir: %v", ErrIO, err)
	}

	priv, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return fmt.Errorf("identity: generating RSA key: %w", err)
	}

	privBlock := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(priv),
	}
	if err := writeFile(keyPath, pem.EncodeToMemory(privBlock), privateKeyPerm); err != nil {
		return err
	}

	pubBytes, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return fmt.Errorf("identity: marshaling public key: %w", err)
	}
	pubBlock := &pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes}
	if err := writeFile(pubPath, pem.EncodeToMemory(pubBlock), publicKeyPerm); err != nil {
		return err
	}

	return nil
}

func writeFile(path string, data []byte, perm os.FileMode) error {
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrIO, path, err)
	}
	// os.WriteFile applies perm subject to umask; force the exact mode since
	// the private key permission is a security invariant, not a default.
	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("%w: chmod %s: %v", ErrIO, path, err)
	}
	return nil
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrIO, path, err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block in %s", ErrKeyParse, path)
	}
	if priv, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return priv, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyParse, err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrInvalidKey)
	}
	return rsaKey, nil
}

// PublicPEM returns the PKIX PEM encoding of the public half of the key.
func (k *KeyHandle) PublicPEM() ([]byte, error) {
	return PublicKeyToPEM(&k.Private.PublicKey)
}

// PublicKeyToPEM PKIX-encodes pub as a PEM "PUBLIC KEY" block.
func PublicKeyToPEM(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("identity: marshaling public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// PublicKeyFromPEM parses a PKIX PEM "PUBLIC KEY" block into an RSA public
// key.
func PublicKeyFromPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block", ErrKeyParse)
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyParse, err)
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA public key", ErrInvalidKey)
	}
	return rsaKey, nil
}

// Sign produces a PKCS#1v1.5 signature over the SHA-256 digest of data.
func (k *KeyHandle) Sign(data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, k.Private, crypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("identity: signing: %w", err)
	}
	return sig, nil
}

// Verify checks a PKCS#1v1.5 signature over the SHA-256 digest of data
// against pub.
func Verify(pub *rsa.PublicKey, data, sig []byte) error {
	digest := sha256.Sum256(data)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return nil
}

// Fingerprint returns the SHA-256 fingerprint of the PKIX-encoded public
// key, as a lowercase hex string — used to pin a controller's identity
// across sign-ins (spec's "finger_fail" comparison).
func Fingerprint(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("identity: marshaling public key: %w", err)
	}
	sum := sha256.Sum256(der)
	return fmt.Sprintf("%x", sum), nil
}
