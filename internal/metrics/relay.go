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
	// RelayEnvelopesForwarded tracks envelopes this node has forwarded toward
	// the next hop of a source-routed path.
	RelayEnvelopesForwarded = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "envelopes_forwarded_total",
			Help:      "Total number of relay envelopes forwarded to a next hop",
		},
		[]string{"method"}, // send, report
	)

	// RelayEnvelopesDropped tracks envelopes rejected before forwarding.
	RelayEnvelopesDropped = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "envelopes_dropped_total",
			Help:      "Total number of relay envelopes dropped",
		},
		[]string{"reason"}, // expired, bad_signature, replayed
	)

	// RelayHopCount observes path length at the point a node handles an
	// envelope addressed to it.
	RelayHopCount = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "hop_count",
			Help:      "Number of hops an envelope's path had traveled when received",
			Buckets:   prometheus.LinearBuckets(1, 1, 16),
		},
	)
)
