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

package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"

	"github.com/ethanculler/salt/crypticle"
	"github.com/ethanculler/salt/identity"
	"github.com/ethanculler/salt/internal/logger"
	"github.com/ethanculler/salt/internal/metrics"
	"github.com/ethanculler/salt/masterkeys"
)

const controllerPubFilename = "controller_master.pub"

// Auth drives one minion's side of the sign-in handshake: building signed
// payloads, and verifying a controller's reply against the pinned
// controller public key.
type Auth struct {
	cfg  Config
	self *identity.KeyHandle
	log  logger.Logger

	controllerPubPath string
}

// New loads (or generates) this minion's own identity keypair at
// cfg.PKIDir/minion.{pem,pub} and returns an Auth ready to build sign-in
// payloads and verify replies.
func New(cfg Config, log logger.Logger) (*Auth, error) {
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	self, err := identity.LoadOrGenerate(
		filepath.Join(cfg.PKIDir, "minion.pem"),
		filepath.Join(cfg.PKIDir, "minion.pub"),
	)
	if err != nil {
		return nil, err
	}
	return &Auth{
		cfg:               cfg,
		self:              self,
		log:               log,
		controllerPubPath: filepath.Join(cfg.PKIDir, controllerPubFilename),
	}, nil
}

// BuildSignInPayload constructs a fresh sign-in request. A new 32-byte
// token is generated on every call — see DESIGN.md's Open Question
// resolution — so that consecutive sign-ins never carry the same token
// even when nothing else about the minion has changed. The token is placed
// in the payload as plain bytes; it is not encrypted under the pinned
// controller key.
func (a *Auth) BuildSignInPayload() (*SignInPayload, error) {
	pubPEM, err := a.self.PublicPEM()
	if err != nil {
		return nil, err
	}
	token := make([]byte, 32)
	if _, err := rand.Read(token); err != nil {
		return nil, fmt.Errorf("auth: generating sign-in token: %w", err)
	}
	return &SignInPayload{
		ID:            a.cfg.ID,
		PublicKey:     string(pubPEM),
		Token:         token,
		CorrelationID: uuid.NewString(),
	}, nil
}

// pinnedControllerKey returns the currently pinned controller public key,
// or nil if none has been pinned yet.
func (a *Auth) pinnedControllerKey() (*rsa.PublicKey, []byte, error) {
	data, err := os.ReadFile(a.controllerPubPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("auth: reading pinned controller key: %w", err)
	}
	pub, err := identity.PublicKeyFromPEM(data)
	if err != nil {
		return nil, nil, err
	}
	return pub, data, nil
}

func (a *Auth) pinControllerKey(pemBytes []byte) error {
	if err := os.WriteFile(a.controllerPubPath, pemBytes, 0o644); err != nil {
		return fmt.Errorf("auth: pinning controller key: %w", err)
	}
	return nil
}

// verifyPubkeySig checks reply.PubSig (base64-free, raw signature bytes)
// over reply.PublicKey using the pack's verification key at
// cfg.MasterSignKeyName.pub.
func (a *Auth) verifyPubkeySig(pubKeyPEM, sig []byte) error {
	if a.cfg.MasterSignKeyName == "" {
		return fmt.Errorf("%w: master_sign_key_name not configured", ErrAuthenticationFailed)
	}
	signPubPath := filepath.Join(a.cfg.PKIDir, a.cfg.MasterSignKeyName+".pub")
	data, err := os.ReadFile(signPubPath)
	if err != nil {
		return fmt.Errorf("%w: reading verification key: %v", ErrAuthenticationFailed, err)
	}
	verifyKey, err := identity.PublicKeyFromPEM(data)
	if err != nil {
		return err
	}
	if err := identity.Verify(verifyKey, pubKeyPEM, sig); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	return nil
}

// decryptAES unwraps the RSA-OAEP encrypted session key and the
// re-encrypted sign-in token. sessionKeyString is the base64 Crypticle
// key string; token is the decrypted echo of the minion's own sign-in
// token, used by VerifyMaster to catch a controller that can't actually
// decrypt with the claimed identity. The session-key signature, a pinned
// controller key and the token echo are all required: a reply lacking any
// of them is rejected with ErrAuthenticationFailed, on first contact too.
func (a *Auth) decryptAES(reply *SignInReply) (sessionKeyString string, token []byte, err error) {
	if a.cfg.AuthTraceback {
		buf := make([]byte, 4096)
		n := runtime.Stack(buf, false)
		a.log.Debug("decrypting controller session key", logger.String("stack", string(buf[:n])))
	} else {
		a.log.Debug("decrypting controller session key")
	}

	keyBytes, err := rsaOAEPDecrypt(a.self.Private, reply.AESPayload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: decrypting session key: %v", ErrAuthenticationFailed, err)
	}

	if len(reply.Sig) == 0 {
		return "", nil, fmt.Errorf("%w: reply carries no session-key signature", ErrAuthenticationFailed)
	}
	controllerPub, _, pinErr := a.pinnedControllerKey()
	if pinErr != nil {
		return "", nil, pinErr
	}
	if controllerPub == nil {
		return "", nil, fmt.Errorf("%w: no pinned controller key to verify session-key signature", ErrAuthenticationFailed)
	}
	if err := masterkeys.VerifySessionKeySignature(controllerPub, keyBytes, reply.Sig); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	if len(reply.Token) == 0 {
		return "", nil, fmt.Errorf("%w: reply carries no token echo", ErrAuthenticationFailed)
	}
	token, err = rsaOAEPDecrypt(a.self.Private, reply.Token)
	if err != nil {
		return "", nil, fmt.Errorf("%w: decrypting token echo: %v", ErrAuthenticationFailed, err)
	}

	return string(keyBytes), token, nil
}

// VerifyMaster implements the controller-pinning decision table (spec
// §4.4): it decides whether to trust reply.PublicKey, pins it on first
// use or on a verified rotation, and — only once trust is established —
// decrypts and returns the session key string.
func (a *Auth) VerifyMaster(reply *SignInReply, sentToken []byte) (string, error) {
	pinned, pinnedPEM, err := a.pinnedControllerKey()
	if err != nil {
		return "", err
	}
	if a.cfg.OpenMode {
		// Open mode ignores the pinned key: the reply's key is pinned afresh.
		pinned = nil
	}

	keyChanged := pinned != nil && string(pinnedPEM) != string(reply.PublicKey)
	hasSig := len(reply.PubSig) > 0

	switch {
	case pinned == nil:
		// Trust-on-first-use: accept unconditionally unless the minion
		// demands a verified signature up front.
		if a.cfg.VerifyMasterPubkeySign {
			if !hasSig {
				return "", fmt.Errorf("%w: no controller pubkey signature to verify on first sign-in", ErrAuthenticationFailed)
			}
			if err := a.verifyPubkeySig(reply.PublicKey, reply.PubSig); err != nil {
				return "", err
			}
		}
		if err := a.pinControllerKey(reply.PublicKey); err != nil {
			return "", err
		}

	case keyChanged:
		metrics.SessionDriverKeyRotations.Inc()
		if !a.cfg.VerifyMasterPubkeySign {
			return "", ErrControllerKeyChanged
		}
		if !hasSig {
			return "", fmt.Errorf("%w: received a new controller key without a signature", ErrControllerKeyChanged)
		}
		if err := a.verifyPubkeySig(reply.PublicKey, reply.PubSig); err != nil {
			return "", fmt.Errorf("%w: %v", ErrControllerKeyChanged, err)
		}
		if err := a.pinControllerKey(reply.PublicKey); err != nil {
			return "", err
		}

	default:
		// Unchanged key: reject an unsolicited signature the minion isn't
		// configured to check, reject a missing signature the minion's
		// policy requires, and re-verify a present one only when
		// always_verify_signature demands it on every sign-in.
		if hasSig && !a.cfg.VerifyMasterPubkeySign {
			return "", fmt.Errorf("%w: received unsolicited controller pubkey signature", ErrAuthenticationFailed)
		}
		if a.cfg.VerifyMasterPubkeySign {
			if !hasSig {
				return "", fmt.Errorf("%w: signature required by policy but not present", ErrAuthenticationFailed)
			}
			if a.cfg.AlwaysVerifySignature {
				if err := a.verifyPubkeySig(reply.PublicKey, reply.PubSig); err != nil {
					return "", err
				}
			}
		}
	}

	if a.cfg.MasterFinger != "" {
		fp, err := identity.Fingerprint(mustParsePub(reply.PublicKey))
		if err != nil {
			return "", err
		}
		if fp != a.cfg.MasterFinger {
			return "", ErrFingerprintMismatch
		}
	}

	sessionKeyString, echoedToken, err := a.decryptAES(reply)
	if err != nil {
		return "", err
	}
	if string(echoedToken) != string(sentToken) {
		return "", fmt.Errorf("%w: controller failed to echo our sign-in token", ErrAuthenticationFailed)
	}

	return sessionKeyString, nil
}

func mustParsePub(pemBytes []byte) *rsa.PublicKey {
	pub, err := identity.PublicKeyFromPEM(pemBytes)
	if err != nil {
		return &rsa.PublicKey{}
	}
	return pub
}

// SignIn performs a single sign-in round trip: build a payload, send it,
// and interpret the reply's disposition. A non-accepted, retryable
// disposition is reported via the returned Disposition with a nil error;
// only terminal failures return an error.
func (a *Auth) SignIn(ctx context.Context, t Transporter) (*crypticle.Crypticle, Disposition, error) {
	payload, err := a.BuildSignInPayload()
	if err != nil {
		return nil, "", err
	}

	metrics.SignInsInitiated.WithLabelValues("minion").Inc()
	sendCtx := ctx
	if a.cfg.AuthTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, a.cfg.AuthTimeout)
		defer cancel()
	}
	reply, err := t.SendSignIn(sendCtx, payload)
	if err != nil {
		metrics.SignInsFailed.WithLabelValues("timeout").Inc()
		return nil, "", fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	switch reply.Disposition {
	case DispositionPending:
		metrics.SignInsCompleted.WithLabelValues("pending").Inc()
		return nil, DispositionPending, nil
	case DispositionRejected:
		metrics.SignInsCompleted.WithLabelValues("rejected").Inc()
		if a.cfg.RejectedRetry {
			return nil, DispositionRejected, nil
		}
		return nil, DispositionRejected, ErrRejectedByController
	case DispositionFull:
		metrics.SignInsCompleted.WithLabelValues("full").Inc()
		return nil, DispositionFull, ErrCapacityFull
	}

	sessionKeyString, err := a.VerifyMaster(reply, payload.Token)
	if err != nil {
		metrics.SignInsFailed.WithLabelValues("verify_master").Inc()
		return nil, "", err
	}

	env, err := crypticle.New(sessionKeyString, crypticle.DefaultKeySize)
	if err != nil {
		metrics.SignInsFailed.WithLabelValues("crypticle").Inc()
		return nil, "", err
	}

	metrics.SignInsCompleted.WithLabelValues("accepted").Inc()
	return env, DispositionAccepted, nil
}
