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

	"github.com/ethanculler/salt/crypticle"
	"github.com/ethanculler/salt/rotation"
)

var cacheDirFlag string

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Publish a fresh session-key dropfile, signaling connected minions to re-authenticate",
	Long: `Generate a new Crypticle session key and atomically publish it as the
controller's dropfile (spec §4.6). Minions watching the cache directory
will detect the rename and drive a fresh sign-in.`,
	Example: `  saltkeys rotate --cache-dir /var/cache/salt/master`,
	RunE:    runRotate,
}

func init() {
	rootCmd.AddCommand(rotateCmd)
	rotateCmd.Flags().StringVar(&cacheDirFlag, "cache-dir", "/var/cache/salt/master", "directory holding the dropfile")
}

func runRotate(cmd *cobra.Command, args []string) error {
	keyString, err := crypticle.GenerateKeyString(crypticle.DefaultKeySize)
	if err != nil {
		return fmt.Errorf("generating session key: %w", err)
	}

	if err := rotation.Publish(cacheDirFlag, []byte(keyString)); err != nil {
		return fmt.Errorf("publishing dropfile: %w", err)
	}

	fmt.Printf("Published new session key to %s\n", rotation.Path(cacheDirFlag))
	return nil
}
