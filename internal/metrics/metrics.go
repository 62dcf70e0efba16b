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

// Package metrics exposes the Prometheus instrumentation shared by the
// auth and crypticle packages.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "salt"

// Registry is the process-wide collector registry. Handler/StartServer
// expose it; library packages only register against it. No cmd/ package
// starts that exposition.
var Registry = prometheus.NewRegistry()

// Now returns the current time for duration measurement.
func Now() time.Time { return time.Now() }

// Since reports the elapsed seconds since start, for histogram Observe calls.
func Since(start time.Time) float64 { return time.Since(start).Seconds() }
