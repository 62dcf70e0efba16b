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

// Package masterkeys manages the controller's own identity keypair, an
// optional separate signing keypair, and the recoverable signature it
// attaches to outgoing session keys so minions can verify a key rotation
// actually came from the pinned controller.
package masterkeys

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethanculler/salt/identity"
)

// ControllerKeys bundles the controller's own identity key with an
// optional, separate signing keypair used to sign its public key for
// minions that enable verify_master_pubkey_sign.
type ControllerKeys struct {
	Identity *identity.KeyHandle

	signing *identity.KeyHandle
	pubPath string
}

// Load loads or generates the controller's identity keypair at
// pkiDir/<name>.pem and pkiDir/<name>.pub.
func Load(pkiDir, name string) (*ControllerKeys, error) {
	pubPath := filepath.Join(pkiDir, name+".pub")
	keyPath := filepath.Join(pkiDir, name+".pem")

	handle, err := identity.LoadOrGenerate(keyPath, pubPath)
	if err != nil {
		return nil, err
	}
	return &ControllerKeys{Identity: handle, pubPath: pubPath}, nil
}

// WithSigningKey loads or generates a separate signing keypair at
// pkiDir/<signName>.{pem,pub} and attaches it to ck for PubSignature.
func (ck *ControllerKeys) WithSigningKey(pkiDir, signName string) error {
	pubPath := filepath.Join(pkiDir, signName+".pub")
	keyPath := filepath.Join(pkiDir, signName+".pem")

	handle, err := identity.LoadOrGenerate(keyPath, pubPath)
	if err != nil {
		return err
	}
	ck.signing = handle
	return nil
}

// PublicKeyPEM returns the PEM encoding of the controller's public key,
// writing it to disk first if, for whatever reason, it is not already
// there — mirroring the original's get_pub_str lazy-write-then-read.
func (ck *ControllerKeys) PublicKeyPEM() ([]byte, error) {
	if _, err := os.Stat(ck.pubPath); errors.Is(err, os.ErrNotExist) {
		pemBytes, err := ck.Identity.PublicPEM()
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(ck.pubPath, pemBytes, 0o644); err != nil {
			return nil, fmt.Errorf("masterkeys: writing %s: %w", ck.pubPath, err)
		}
	}
	return os.ReadFile(ck.pubPath)
}

// PubSignature signs the controller's public key PEM with the signing key
// attached by WithSigningKey, giving the pub_sig that minions configured
// with verify_master_pubkey_sign check. It returns nil, nil when no
// signing key is attached.
func (ck *ControllerKeys) PubSignature() ([]byte, error) {
	if ck.signing == nil {
		return nil, nil
	}
	pubPEM, err := ck.PublicKeyPEM()
	if err != nil {
		return nil, err
	}
	return ck.signing.Sign(pubPEM)
}

// SignSessionKey produces the "recoverable" signature attached to a
// rotated session key: a raw PKCS#1v1.5 signature (crypto.Hash(0), not a
// DigestInfo-wrapped hash) over the ASCII hex-encoded SHA-256 digest of
// sessionKey. A minion recovers the digest with rsa.VerifyPKCS1v15 using
// the same crypto.Hash(0) convention and compares it against its own
// locally computed hex digest.
//
// This always signs with the controller's own identity key, never the
// optional signing key — the separate signing key (WithSigningKey) is
// only used to sign the controller's public key itself for
// verify_master_pubkey_sign (see Auth.verifyPubkeySig), not session keys.
func (ck *ControllerKeys) SignSessionKey(sessionKey []byte) ([]byte, error) {
	digest := sha256.Sum256(sessionKey)
	hexDigest := []byte(hex.EncodeToString(digest[:]))
	sig, err := rsa.SignPKCS1v15(rand.Reader, ck.Identity.Private, crypto.Hash(0), hexDigest)
	if err != nil {
		return nil, fmt.Errorf("masterkeys: signing session key: %w", err)
	}
	return sig, nil
}

// VerifySessionKeySignature recovers the hex digest embedded in sig under
// signerPub and compares it against the caller's own hex-SHA256 digest of
// sessionKey, using the raw (crypto.Hash(0)) PKCS#1v1.5 convention.
func VerifySessionKeySignature(signerPub *rsa.PublicKey, sessionKey, sig []byte) error {
	digest := sha256.Sum256(sessionKey)
	hexDigest := []byte(hex.EncodeToString(digest[:]))
	if err := rsa.VerifyPKCS1v15(signerPub, crypto.Hash(0), hexDigest, sig); err != nil {
		return fmt.Errorf("masterkeys: session key signature invalid: %w", err)
	}
	return nil
}
