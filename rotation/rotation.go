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

// Package rotation implements the controller-side "dropfile" signal that
// tells running workers a new session key has been published: write a temp
// file, chmod it restrictively, and atomically rename it over the live
// dropfile, waiting out any same-second mtime collision so a second-
// precision mtime watcher never misses the change.
package rotation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	tempName  = ".dfnt"
	finalName = ".dfn"

	// dropfilePerm is owner read/write only. Like the original's
	// umask(0277) it denies group and other all access; unlike that umask
	// it leaves the owner write permission.
	dropfilePerm = 0o600
)

// Clock abstracts time for deterministic tests of the mtime-collision wait.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time      { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// Publish writes data to the dropfile in cacheDir, waiting out any
// same-second mtime collision with the file it is replacing.
func Publish(cacheDir string, data []byte) error {
	return PublishWithClock(cacheDir, data, realClock{})
}

// PublishWithClock is Publish with an injectable Clock, for tests that
// need to force (or skip) the same-second collision wait deterministically.
func PublishWithClock(cacheDir string, data []byte, clock Clock) error {
	tmpPath := filepath.Join(cacheDir, tempName)
	finalPath := filepath.Join(cacheDir, finalName)

	for !ready(finalPath, clock) {
		clock.Sleep(1 * time.Second)
	}

	if err := os.WriteFile(tmpPath, data, dropfilePerm); err != nil {
		return fmt.Errorf("rotation: writing dropfile temp: %w", err)
	}
	if err := os.Chmod(tmpPath, dropfilePerm); err != nil {
		return fmt.Errorf("rotation: chmod dropfile temp: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("rotation: renaming dropfile into place: %w", err)
	}
	return nil
}

// ready reports whether it is safe to write the dropfile: either no
// dropfile exists yet, or the existing one's mtime is not the current
// second. Because consumers detect a dropfile change via second-precision
// mtime, writing two versions in the same second would make the second
// write invisible.
func ready(finalPath string, clock Clock) bool {
	info, err := os.Stat(finalPath)
	if errors.Is(err, os.ErrNotExist) {
		return true
	}
	if err != nil {
		return true
	}
	return info.ModTime().Truncate(time.Second) != clock.Now().Truncate(time.Second)
}

// Path returns the path of the live dropfile within cacheDir, for
// consumers that want to stat or read it directly.
func Path(cacheDir string) string {
	return filepath.Join(cacheDir, finalName)
}
