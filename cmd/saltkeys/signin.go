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

package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ethanculler/salt/auth"
	"github.com/ethanculler/salt/crypticle"
	"github.com/ethanculler/salt/identity"
	"github.com/ethanculler/salt/internal/logger"
	"github.com/ethanculler/salt/masterkeys"
)

var (
	controllerPKIDir string
	signInID         string
	callerMode       bool
)

var signinCmd = &cobra.Command{
	Use:   "signin",
	Short: "Run the sign-in handshake against a local in-process controller, for smoke testing",
	Long: `signin drives auth.SessionDriver through a full sign-in handshake
against a controller identity loaded from --controller-pki-dir, entirely
in-process. It exercises the same code path a real minion/controller pair
would, without needing a network transport.`,
	Example: `  saltkeys signin --pki-dir ./minion --controller-pki-dir ./controller --id minion-1`,
	RunE:    runSignin,
}

func init() {
	rootCmd.AddCommand(signinCmd)
	signinCmd.Flags().StringVar(&controllerPKIDir, "controller-pki-dir", "/etc/salt/pki/master", "directory holding the controller identity to sign in against")
	signinCmd.Flags().StringVar(&signInID, "id", "", "this minion's id (required)")
	signinCmd.Flags().BoolVar(&callerMode, "caller", false, "abort immediately instead of retrying if not yet accepted")
}

func runSignin(cmd *cobra.Command, args []string) error {
	if signInID == "" {
		return fmt.Errorf("--id is required")
	}

	log := logger.NewDefaultLogger()

	a, err := auth.New(auth.Config{
		PKIDir:                pkiDirFlag,
		ID:                    signInID,
		Caller:                callerMode,
		AcceptanceWaitTime:    2 * time.Second,
		AcceptanceWaitTimeMax: 30 * time.Second,
	}, log)
	if err != nil {
		return fmt.Errorf("initializing minion identity: %w", err)
	}

	ck, err := masterkeys.Load(controllerPKIDir, "controller")
	if err != nil {
		return fmt.Errorf("loading controller identity: %w", err)
	}
	// The handshake always signs its session key with the controller's
	// identity key (spec §4.4's recoverable signature). A signing keypair is
	// provisioned as well; this smoke test sends no pub_sig with it.
	if err := ck.WithSigningKey(controllerPKIDir, "controller_sign"); err != nil {
		return fmt.Errorf("loading controller signing key: %w", err)
	}

	driver := auth.NewSessionDriver(a, &localController{ck: ck}, log)
	env, err := driver.Authenticate(cmd.Context())
	if err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}
	defer env.Close()

	fmt.Println("Sign-in accepted; session key established.")
	return nil
}

// localController is a minimal in-process stand-in for a controller,
// answering sign-in requests directly from an on-disk ControllerKeys. It
// exists only to give `signin` something to talk to without a real
// network transport.
type localController struct {
	ck *masterkeys.ControllerKeys
}

func (c *localController) SendSignIn(_ context.Context, payload *auth.SignInPayload) (*auth.SignInReply, error) {
	minionPub, err := identity.PublicKeyFromPEM([]byte(payload.PublicKey))
	if err != nil {
		return nil, err
	}

	pubPEM, err := c.ck.PublicKeyPEM()
	if err != nil {
		return nil, err
	}

	sessionKeyString, err := crypticle.GenerateKeyString(crypticle.DefaultKeySize)
	if err != nil {
		return nil, err
	}

	aesPayload, err := rsaOAEPEncrypt(minionPub, []byte(sessionKeyString))
	if err != nil {
		return nil, err
	}

	sig, err := c.ck.SignSessionKey([]byte(sessionKeyString))
	if err != nil {
		return nil, err
	}

	token, err := rsaOAEPEncrypt(minionPub, payload.Token)
	if err != nil {
		return nil, err
	}

	return &auth.SignInReply{
		Disposition: auth.DispositionAccepted,
		PublicKey:   pubPEM,
		AESPayload:  aesPayload,
		Sig:         sig,
		Token:       token,
	}, nil
}

func rsaOAEPEncrypt(pub *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	return rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, plaintext, nil)
}
