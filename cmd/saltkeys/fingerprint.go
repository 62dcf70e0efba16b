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
	"os"

	"github.com/spf13/cobra"

	"github.com/ethanculler/salt/identity"
)

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint <pubkey.pem>",
	Short: "Print the SHA-256 fingerprint of a public key",
	Long: `Print the fingerprint used to pin a controller's public key
(config's master_finger, spec §4.4). Compare this against what an
operator expects before approving a sign-in.`,
	Args:    cobra.ExactArgs(1),
	Example: `  saltkeys fingerprint /etc/salt/pki/minion/controller_master.pub`,
	RunE:    runFingerprint,
}

func init() {
	rootCmd.AddCommand(fingerprintCmd)
}

func runFingerprint(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	pub, err := identity.PublicKeyFromPEM(data)
	if err != nil {
		return err
	}

	fp, err := identity.Fingerprint(pub)
	if err != nil {
		return err
	}

	fmt.Println(fp)
	return nil
}
