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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethanculler/salt/masterkeys"
)

var (
	controllerKeyName string
	signingKeyName    string
)

var signControllerCmd = &cobra.Command{
	Use:   "sign-controller",
	Short: "Generate the controller's identity keypair and an optional signing keypair",
	Long: `Generate (or load) the controller's long-term identity keypair, and
optionally a separate signing keypair used to prove key rotations to
minions configured with verify_master_pubkey_sign.`,
	Example: `  saltkeys sign-controller --pki-dir /etc/salt/pki/master --signing-key-name controller_sign`,
	RunE:    runSignController,
}

func init() {
	rootCmd.AddCommand(signControllerCmd)
	signControllerCmd.Flags().StringVar(&controllerKeyName, "name", "controller", "filename stem for the controller identity key")
	signControllerCmd.Flags().StringVar(&signingKeyName, "signing-key-name", "", "filename stem for a separate signing keypair (empty disables it)")
}

func runSignController(cmd *cobra.Command, args []string) error {
	ck, err := masterkeys.Load(pkiDirFlag, controllerKeyName)
	if err != nil {
		return fmt.Errorf("loading controller identity: %w", err)
	}

	pubPEM, err := ck.PublicKeyPEM()
	if err != nil {
		return err
	}
	fmt.Printf("Controller identity ready: %s.{pem,pub}\n", controllerKeyName)
	fmt.Print(string(pubPEM))

	if signingKeyName != "" {
		if err := ck.WithSigningKey(pkiDirFlag, signingKeyName); err != nil {
			return fmt.Errorf("loading signing key: %w", err)
		}
		fmt.Printf("Signing keypair ready: %s.{pem,pub}\n", signingKeyName)
	}

	return nil
}
