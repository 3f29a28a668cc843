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

// Package swarm tracks the set of live per-peer connections a node has
// established, keyed by ring.Did, and mediates sending/receiving the
// gzip+base64 wire encoding of relay.Envelope payloads over whatever
// Transport a connection negotiated.
package swarm

import (
	"context"

	"github.com/google/uuid"

	"github.com/ringmesh-project/ringmesh/ringid"
)

// Transport is the minimal surface swarm needs from a connection, whether
// it is backed by a WebSocket, an in-process channel pair for tests, or any
// future carrier: send/receive opaque encoded envelope bytes, report the
// remote peer's address once the handshake has resolved it, and close.
type Transport interface {
	// UUID identifies this transport instance for pending-transport lookup
	// before the remote Did is known.
	UUID() uuid.UUID

	// Send writes one already-encoded envelope to the peer.
	Send(ctx context.Context, payload []byte) error

	// Recv blocks until the next payload arrives or ctx is done.
	Recv(ctx context.Context) ([]byte, error)

	// Address returns the remote peer's Did, if the handshake has resolved
	// it yet.
	Address() (ringid.Did, bool)

	// SetAddress binds the remote peer's Did once connect/accept resolves
	// who is on the other end.
	SetAddress(id ringid.Did)

	// Close tears down the underlying connection.
	Close() error
}
