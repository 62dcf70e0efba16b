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
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches cacheDir for the dropfile's create-or-rename event and
// emits on Events each time it fires. It does not fall back to polling:
// if the underlying fsnotify watch cannot be established (e.g. the cache
// directory is on a filesystem that doesn't support inotify), NewWatcher
// returns an error. PollMTime is the separate mtime-polling alternative,
// matching the original's own reliance on mtime polling.
type Watcher struct {
	Events chan struct{}

	cacheDir string
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a Watcher over cacheDir. Call Run to start it.
func NewWatcher(cacheDir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("rotation: creating fsnotify watcher: %w", err)
	}
	if err := fw.Add(cacheDir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("rotation: watching %s: %w", cacheDir, err)
	}
	return &Watcher{
		Events:   make(chan struct{}, 1),
		cacheDir: cacheDir,
		watcher:  fw,
	}, nil
}

// Run blocks, forwarding dropfile rename/create events to Events until ctx
// is canceled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.Events)
	dropfile := Path(w.cacheDir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != dropfile {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Rename|fsnotify.Write) == 0 {
				continue
			}
			w.notify()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("rotation: watcher error: %w", err)
		}
	}
}

func (w *Watcher) notify() {
	select {
	case w.Events <- struct{}{}:
	default:
	}
}

// Close releases the underlying fsnotify watch.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// PollMTime polls the dropfile's mtime every interval until ctx is
// canceled, sending on the returned channel whenever the mtime changes.
// Used as a fallback where fsnotify is unavailable.
func PollMTime(ctx context.Context, cacheDir string, interval time.Duration) <-chan struct{} {
	events := make(chan struct{}, 1)
	go func() {
		defer close(events)
		dropfile := Path(cacheDir)
		var lastMTime time.Time

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(dropfile)
				if err != nil {
					continue
				}
				if mtime := info.ModTime(); mtime != lastMTime {
					lastMTime = mtime
					select {
					case events <- struct{}{}:
					default:
					}
				}
			}
		}
	}()
	return events
}
