// Copyright (C) 2025 ringmesh-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SwarmTransportsActive is the current number of transports registered
	// with this node's swarm.
	SwarmTransportsActive = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "swarm",
			Name:      "transports_active",
			Help:      "Current number of transports registered with the swarm",
		},
	)

	// SwarmDialAttempts tracks Swarm.SendPayload attempts by result.
	SwarmDialAttempts = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swarm",
			Name:      "dial_attempts_total",
			Help:      "Total number of outbound transport dial attempts",
		},
		[]string{"result"}, // ok, no_transport, send_error
	)

	// SwarmMessagesQueued observes the size of a transport's pending inbound
	// message queue when a message is polled.
	SwarmMessagesQueued = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "swarm",
			Name:      "messages_queued",
			Help:      "Queue depth observed at poll time for a transport's inbound messages",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
)
