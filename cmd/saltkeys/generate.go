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
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ethanculler/salt/identity"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate this minion's identity keypair",
	Long: `Generate (or load, if already present) the minion's long-term RSA
identity keypair at <pki-dir>/minion.{pem,pub}.`,
	Example: `  saltkeys generate --pki-dir /etc/salt/pki/minion`,
	RunE:    runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	keyPath := filepath.Join(pkiDirFlag, "minion.pem")
	pubPath := filepath.Join(pkiDirFlag, "minion.pub")

	handle, err := identity.LoadOrGenerate(keyPath, pubPath)
	if err != nil {
		return fmt.Errorf("generating minion identity: %w", err)
	}

	fp, err := identity.Fingerprint(&handle.Private.PublicKey)
	if err != nil {
		return err
	}

	fmt.Printf("Minion identity ready:\n")
	fmt.Printf("  Private key: %s\n", keyPath)
	fmt.Printf("  Public key:  %s\n", pubPath)
	fmt.Printf("  Fingerprint: %s\n", fp)
	return nil
}
