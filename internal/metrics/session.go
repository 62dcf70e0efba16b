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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionDriverAttempts tracks SessionDriver sign-in attempts.
	SessionDriverAttempts = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session_driver",
			Name:      "attempts_total",
			Help:      "Total number of SessionDriver sign-in attempts",
		},
		[]string{"outcome"}, // accepted, pending, rejected, error
	)

	// SessionDriverRetries tracks SessionDriver retry-loop iterations.
	SessionDriverRetries = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session_driver",
			Name:      "retries_total",
			Help:      "Total number of SessionDriver retry-loop iterations",
		},
	)

	// SessionDriverBackoffSeconds tracks the backoff interval chosen before
	// each retry.
	SessionDriverBackoffSeconds = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session_driver",
			Name:      "backoff_seconds",
			Help:      "Backoff interval chosen before a SessionDriver retry",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	// SessionDriverKeyRotations tracks controller-key-changed events observed
	// during sign-in.
	SessionDriverKeyRotations = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session_driver",
			Name:      "controller_key_rotations_total",
			Help:      "Total number of controller public key changes observed during sign-in",
		},
	)
)
