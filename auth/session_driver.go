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
	"errors"
	"time"

	"github.com/ethanculler/salt/crypticle"
	"github.com/ethanculler/salt/internal/logger"
	"github.com/ethanculler/salt/internal/metrics"
)

// SessionDriver repeatedly drives Auth.SignIn until it lands a working
// Crypticle session, applying the original's geometric backoff: wait
// AcceptanceWaitTime, then double it on each subsequent retry up to
// AcceptanceWaitTimeMax.
type SessionDriver struct {
	auth        *Auth
	transporter Transporter
	log         logger.Logger

	// sleep is overridable for tests.
	sleep func(time.Duration)
}

// NewSessionDriver builds a SessionDriver around an already-constructed
// Auth and Transporter.
func NewSessionDriver(a *Auth, t Transporter, log logger.Logger) *SessionDriver {
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &SessionDriver{auth: a, transporter: t, log: log, sleep: time.Sleep}
}

// Authenticate blocks until a Crypticle session is established, ctx is
// canceled, or a terminal error occurs. Every error SignIn returns is
// terminal, among them ErrRejectedByController (RejectedRetry disabled),
// ErrCapacityFull, ErrFingerprintMismatch, ErrControllerKeyChanged (when
// signing isn't configured to resolve it), ErrAuthenticationFailed and
// ErrTimeout; ErrCallerAbort is returned when Config.Caller is set and the
// controller has not yet accepted this minion.
func (d *SessionDriver) Authenticate(ctx context.Context) (*crypticle.Crypticle, error) {
	wait := d.auth.cfg.AcceptanceWaitTime
	waitMax := d.auth.cfg.AcceptanceWaitTimeMax
	if waitMax == 0 {
		waitMax = wait
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		env, disposition, err := d.auth.SignIn(ctx, d.transporter)
		if err != nil {
			metrics.SessionDriverAttempts.WithLabelValues("error").Inc()
			return nil, err
		}
		if disposition == DispositionAccepted {
			metrics.SessionDriverAttempts.WithLabelValues("accepted").Inc()
			return env, nil
		}

		// disposition is pending or rejected (with RejectedRetry): retry.
		metrics.SessionDriverAttempts.WithLabelValues(string(disposition)).Inc()

		if d.auth.cfg.Caller {
			d.log.Warn("minion not accepted by controller, aborting in caller mode",
				logger.String("disposition", string(disposition)))
			return nil, ErrCallerAbort
		}

		if wait > 0 {
			d.log.Info("waiting before retrying sign-in",
				logger.Duration("wait", wait))
			metrics.SessionDriverBackoffSeconds.Observe(wait.Seconds())
			d.sleep(wait)
		}
		if wait < waitMax {
			wait *= 2
			if wait > waitMax {
				wait = waitMax
			}
		}
		metrics.SessionDriverRetries.Inc()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}
}

// ExitCode maps a terminal Authenticate error to the process exit code the
// original CLI used: 0 when sign-in was cleanly rejected and the caller
// should just stop, 2 for an interactive caller-mode abort, 42 for an
// authentication/identity failure serious enough to warrant operator
// attention. cmd/saltkeys is the only place this mapping is applied.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrRejectedByController):
		return 0
	case isCallerAbort(err):
		return 2
	case isIdentityFailure(err):
		return 42
	default:
		return 1
	}
}

func isCallerAbort(err error) bool {
	return errors.Is(err, ErrCallerAbort)
}

func isIdentityFailure(err error) bool {
	return errors.Is(err, ErrFingerprintMismatch) ||
		errors.Is(err, ErrControllerKeyChanged) ||
		errors.Is(err, ErrAuthenticationFailed)
}
