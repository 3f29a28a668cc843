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

// SPDX-License-Identifier: LGPL-3.0-or-later

package swarm

import (
	"context"
	"sync"

	"github.com/ringmesh-project/ringmesh/ringid"
)

// MemNetwork is a shared in-process rendezvous standing in for a physical
// network: every Handler that wants to reach another purely through
// relay-routed Connect, with no address or socket either side already
// holds, must be wired to the same MemNetwork. Dial deposits one half of a
// fresh MemTransport pair for the target to claim with Accept, mirroring
// how a real dial creates a socket on one host and a pending accept queue
// entry on the other.
type MemNetwork struct {
	mu      sync.Mutex
	waiting map[ringid.Did]map[ringid.Did]*MemTransport
}

// NewMemNetwork returns an empty rendezvous network.
func NewMemNetwork() *MemNetwork {
	return &MemNetwork{waiting: make(map[ringid.Did]map[ringid.Did]*MemTransport)}
}

// Dial creates a fresh transport pair connecting from to to: the caller
// gets the local half immediately, and the remote half is queued for to to
// claim with Accept(to, from). It never blocks; an Accept that never comes
// just leaves the remote half queued, same as an unanswered real dial.
func (n *MemNetwork) Dial(_ context.Context, from, to ringid.Did) (*MemTransport, error) {
	local, remote := NewMemTransportPair()
	n.mu.Lock()
	byFrom, ok := n.waiting[to]
	if !ok {
		byFrom = make(map[ringid.Did]*MemTransport)
		n.waiting[to] = byFrom
	}
	byFrom[from] = remote
	n.mu.Unlock()
	return local, nil
}

// Accept claims the transport half a prior Dial(_, from, self) queued for
// self. The second return is false when no such dial has happened (yet).
func (n *MemNetwork) Accept(self, from ringid.Did) (*MemTransport, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	byFrom, ok := n.waiting[self]
	if !ok {
		return nil, false
	}
	t, ok := byFrom[from]
	if ok {
		delete(byFrom, from)
	}
	return t, ok
}
