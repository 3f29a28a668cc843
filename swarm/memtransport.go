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

package swarm

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/ringmesh-project/ringmesh/ringid"
)

// MemTransport is an in-process Transport backed by a pair of buffered
// channels, used by tests and by single-process simulations of a ring that
// never touch a real socket.
type MemTransport struct {
	id   uuid.UUID
	out  chan []byte
	in   chan []byte
	mu   sync.Mutex
	addr *ringid.Did
	done chan struct{}
	once sync.Once
}

// NewMemTransportPair returns two MemTransports wired to each other: sends
// on one arrive as receives on the other.
func NewMemTransportPair() (*MemTransport, *MemTransport) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)

	a := &MemTransport{id: uuid.New(), out: ab, in: ba, done: make(chan struct{})}
	b := &MemTransport{id: uuid.New(), out: ba, in: ab, done: make(chan struct{})}
	return a, b
}

func (t *MemTransport) UUID() uuid.UUID { return t.id }

func (t *MemTransport) Send(ctx context.Context, payload []byte) error {
	select {
	case t.out <- payload:
		return nil
	case <-t.done:
		return errors.New("swarm: transport closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *MemTransport) Recv(ctx context.Context) ([]byte, error) {
	select {
	case payload, ok := <-t.in:
		if !ok {
			return nil, errors.New("swarm: transport closed")
		}
		return payload, nil
	case <-t.done:
		return nil, errors.New("swarm: transport closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *MemTransport) Address() (ringid.Did, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.addr == nil {
		return ringid.Did{}, false
	}
	return *t.addr, true
}

func (t *MemTransport) SetAddress(id ringid.Did) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.addr = &id
}

func (t *MemTransport) Close() error {
	t.once.Do(func() { close(t.done) })
	return nil
}
