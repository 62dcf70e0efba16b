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

	"github.com/ethanculler/salt/auth"
)

var rootCmd = &cobra.Command{
	Use:   "saltkeys",
	Short: "saltkeys manages minion/controller identity keys and the sign-in handshake",
	Long: `saltkeys provides tools for the minion/controller key exchange:

- key pair generation for minions and controllers
- controller key fingerprinting and pinning
- session-key rotation dropfile publishing
- a local sign-in smoke test driving the full handshake state machine`,
}

// pkiDirFlag is shared by every subcommand that touches identity material.
var pkiDirFlag string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(auth.ExitCode(err))
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&pkiDirFlag, "pki-dir", "/etc/salt/pki/minion", "directory holding identity keys")

	// Subcommands register themselves in their own files:
	// - generate.go: generateCmd
	// - sign_controller.go: signControllerCmd
	// - fingerprint.go: fingerprintCmd
	// - rotate.go: rotateCmd
	// - signin.go: signinCmd
}
