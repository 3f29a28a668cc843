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
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ringmesh-project/ringmesh/internal/metrics"
	"github.com/ringmesh-project/ringmesh/ringid"
	"github.com/ringmesh-project/ringmesh/session"
)

// Swarm owns every live Transport a node currently has open, indexed both
// by the remote peer's resolved Did and, while a connection is still
// mid-handshake and its remote Did is unknown, by the transport's own UUID.
type Swarm struct {
	mu          sync.RWMutex
	transports  map[ringid.Did]Transport
	pending     map[uuid.UUID]Transport
	sessions    *session.Manager
	selfAddress ringid.Did
}

// New returns an empty Swarm for the node identified by self.
func New(self ringid.Did, sessions *session.Manager) *Swarm {
	return &Swarm{
		transports:  make(map[ringid.Did]Transport),
		pending:     make(map[uuid.UUID]Transport),
		sessions:    sessions,
		selfAddress: self,
	}
}

// NewTransport registers t as pending, keyed by its own UUID, before its
// remote address is known — used while a connect/accept handshake is still
// in flight.
func (s *Swarm) NewTransport(t Transport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[t.UUID()] = t
	metrics.SwarmTransportsActive.Set(float64(len(s.transports)))
}

// FindPendingTransport looks up a transport still awaiting address
// resolution by its UUID.
func (s *Swarm) FindPendingTransport(id uuid.UUID) (Transport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.pending[id]
	return t, ok
}

// PopPendingTransport removes a transport from the pending set and promotes
// it into the addressed transport table under addr — the final step of a
// completed handshake.
func (s *Swarm) PopPendingTransport(id uuid.UUID, addr ringid.Did) (Transport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.pending[id]
	if !ok {
		return nil, false
	}
	delete(s.pending, id)
	t.SetAddress(addr)
	s.transports[addr] = t
	metrics.SwarmTransportsActive.Set(float64(len(s.transports)))
	return t, true
}

// Register directly associates an already-addressed transport with its
// peer, bypassing the pending stage — used when a transport's remote
// address is known up front (e.g. a dial initiated by us).
func (s *Swarm) Register(addr ringid.Did, t Transport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.SetAddress(addr)
	s.transports[addr] = t
	metrics.SwarmTransportsActive.Set(float64(len(s.transports)))
}

// GetTransport returns the live transport for a peer, if any.
func (s *Swarm) GetTransport(addr ringid.Did) (Transport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transports[addr]
	return t, ok
}

// RemoveTransport closes and forgets the transport registered for addr.
func (s *Swarm) RemoveTransport(addr ringid.Did) {
	s.mu.Lock()
	t, ok := s.transports[addr]
	if ok {
		delete(s.transports, addr)
	}
	metrics.SwarmTransportsActive.Set(float64(len(s.transports)))
	s.mu.Unlock()

	if ok {
		_ = t.Close()
	}
}

// TransportCount reports how many addressed transports are currently live.
func (s *Swarm) TransportCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transports)
}

// SendPayload writes an already-encoded envelope to addr's transport.
func (s *Swarm) SendPayload(ctx context.Context, addr ringid.Did, payload []byte) error {
	t, ok := s.GetTransport(addr)
	if !ok {
		metrics.SwarmDialAttempts.WithLabelValues("no_transport").Inc()
		return fmt.Errorf("swarm: no transport to %s", addr)
	}
	if err := t.Send(ctx, payload); err != nil {
		metrics.SwarmDialAttempts.WithLabelValues("send_error").Inc()
		return fmt.Errorf("swarm: send to %s: %w", addr, err)
	}
	metrics.SwarmDialAttempts.WithLabelValues("ok").Inc()
	return nil
}

// PollMessage blocks for the next payload from addr's transport.
func (s *Swarm) PollMessage(ctx context.Context, addr ringid.Did) ([]byte, error) {
	t, ok := s.GetTransport(addr)
	if !ok {
		return nil, fmt.Errorf("swarm: no transport to %s", addr)
	}
	return t.Recv(ctx)
}

// Peers returns every currently addressed peer Did.
func (s *Swarm) Peers() []ringid.Did {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ringid.Did, 0, len(s.transports))
	for addr := range s.transports {
		out = append(out, addr)
	}
	return out
}

// Self returns the Did this swarm's owner identifies as.
func (s *Swarm) Self() ringid.Did { return s.selfAddress }

// Sessions returns the session manager backing session-authenticated
// connections, if one was configured.
func (s *Swarm) Sessions() *session.Manager { return s.sessions }
