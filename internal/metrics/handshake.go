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
	// SignInsInitiated tracks sign-in handshakes started.
	SignInsInitiated = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handshake",
			Name:      "sign_ins_initiated_total",
			Help:      "Total number of sign-in handshakes initiated",
		},
		[]string{"role"}, // minion, master
	)

	// SignInsCompleted tracks sign-in handshakes that reached a terminal
	// disposition (accepted, pending, rejected, full).
	SignInsCompleted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handshake",
			Name:      "sign_ins_completed_total",
			Help:      "Total number of sign-in handshakes completed by disposition",
		},
		[]string{"disposition"}, // accepted, pending, rejected, full
	)

	// SignInsFailed tracks sign-in handshake failures by error type.
	SignInsFailed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handshake",
			Name:      "sign_ins_failed_total",
			Help:      "Total number of sign-in handshake failures by error type",
		},
		[]string{"error_type"}, // timeout, verify_master, crypticle
	)

	// SignInDuration tracks sign-in handshake stage durations.
	SignInDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "handshake",
			Name:      "duration_seconds",
			Help:      "Sign-in handshake stage duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
		},
		[]string{"stage"}, // build_payload, verify_master, decrypt_aes
	)
)
