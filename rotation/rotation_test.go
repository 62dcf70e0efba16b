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

package rotation

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now    time.Time
	slept  []time.Duration
	ticked int
}

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Sleep(d time.Duration) {
	c.slept = append(c.slept, d)
	c.ticked++
	c.now = c.now.Add(d)
}

func TestPublishCreatesDropfile(t *testing.T) {
	dir := t.TempDir()
	err := Publish(dir, []byte("session-key-material"))
	require.NoError(t, err)

	data, err := os.ReadFile(Path(dir))
	require.NoError(t, err)
	assert.Equal(t, "session-key-material", string(data))

	info, err := os.Stat(Path(dir))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(dropfilePerm), info.Mode().Perm())
}

func TestPublishWaitsOutSameSecondCollision(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Publish(dir, []byte("first")))

	info, err := os.Stat(Path(dir))
	require.NoError(t, err)

	clock := &fakeClock{now: info.ModTime()}
	err = PublishWithClock(dir, []byte("second"), clock)
	require.NoError(t, err)

	assert.NotEmpty(t, clock.slept, "expected at least one wait for the mtime to move on")

	data, err := os.ReadFile(Path(dir))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestPublishNoWaitWhenNoCollision(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Publish(dir, []byte("first")))

	clock := &fakeClock{now: time.Now().Add(10 * time.Second)}
	require.NoError(t, PublishWithClock(dir, []byte("second"), clock))
	assert.Empty(t, clock.slept)
}

func TestPollMTimeDetectsChange(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Publish(dir, []byte("first")))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events := PollMTime(ctx, dir, 20*time.Millisecond)

	// The first tick reports the existing dropfile; consume that event so
	// the wait below is satisfied only by the second Publish.
	select {
	case <-events:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the initial mtime observation")
	}
	require.NoError(t, Publish(dir, []byte("second")))

	select {
	case <-events:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for mtime-change notification")
	}
}
