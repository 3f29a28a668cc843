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
	// DHTStabilizeRuns tracks stabilization driver ticks.
	DHTStabilizeRuns = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dht",
			Name:      "stabilize_runs_total",
			Help:      "Total number of stabilization-loop ticks by kind",
		},
		[]string{"kind"}, // stabilize, fix_fingers, check_predecessor
	)

	// DHTSuccessorChanges tracks how often this node's successor changes.
	DHTSuccessorChanges = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dht",
			Name:      "successor_changes_total",
			Help:      "Total number of times this node's successor changed",
		},
	)

	// DHTFingerTableSize observes the live finger-table size after each
	// fix-fingers pass.
	DHTFingerTableSize = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dht",
			Name:      "finger_table_size",
			Help:      "Current number of resolved finger-table entries",
		},
	)

	// DHTStoreKeys tracks the number of keys this vnode is responsible for.
	DHTStoreKeys = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dht",
			Name:      "store_keys",
			Help:      "Current number of keys stored by this vnode",
		},
	)
)
