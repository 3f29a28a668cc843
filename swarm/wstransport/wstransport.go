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

// Package wstransport implements swarm.Transport over a persistent
// gorilla/websocket connection, carrying gzip+base64-encoded relay
// envelopes as binary frames.
package wstransport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ringmesh-project/ringmesh/ringid"
)

// Transport wraps a single WebSocket connection, either dialed outbound or
// accepted inbound, and exposes it as a swarm.Transport.
type Transport struct {
	id   uuid.UUID
	conn *websocket.Conn

	writeMu      sync.Mutex
	writeTimeout time.Duration

	inbound chan []byte
	errCh   chan error

	closeOnce sync.Once
	closed    chan struct{}

	addrMu sync.RWMutex
	addr   *ringid.Did
}

// Dialer controls outbound connection parameters.
type Dialer struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

// DefaultDialer returns a Dialer with conservative production timeouts.
func DefaultDialer() Dialer {
	return Dialer{HandshakeTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second}
}

// Dial opens an outbound WebSocket connection to url and wraps it.
func (d Dialer) Dial(ctx context.Context, url string) (*Transport, error) {
	dialer := &websocket.Dialer{HandshakeTimeout: d.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("wstransport: dial %s failed (HTTP %d): %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("wstransport: dial %s failed: %w", url, err)
	}
	return wrap(conn, d.WriteTimeout), nil
}

// Accept upgrades an inbound HTTP request to a WebSocket connection and
// wraps it. upgrader is caller-owned so servers can share buffer pools and
// origin-check policy across connections.
func Accept(upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request, writeTimeout time.Duration) (*Transport, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("wstransport: upgrade failed: %w", err)
	}
	return wrap(conn, writeTimeout), nil
}

func wrap(conn *websocket.Conn, writeTimeout time.Duration) *Transport {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	t := &Transport{
		id:           uuid.New(),
		conn:         conn,
		writeTimeout: writeTimeout,
		inbound:      make(chan []byte, 64),
		errCh:        make(chan error, 1),
		closed:       make(chan struct{}),
	}
	go t.readLoop()
	return t
}

func (t *Transport) readLoop() {
	for {
		_, payload, err := t.conn.ReadMessage()
		if err != nil {
			select {
			case t.errCh <- err:
			default:
			}
			close(t.inbound)
			return
		}
		select {
		case t.inbound <- payload:
		case <-t.closed:
			return
		}
	}
}

func (t *Transport) UUID() uuid.UUID { return t.id }

func (t *Transport) Send(ctx context.Context, payload []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	deadline := time.Now().Add(t.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("wstransport: set write deadline: %w", err)
	}
	if err := t.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		return fmt.Errorf("wstransport: write: %w", err)
	}
	return nil
}

func (t *Transport) Recv(ctx context.Context) ([]byte, error) {
	select {
	case payload, ok := <-t.inbound:
		if !ok {
			select {
			case err := <-t.errCh:
				return nil, fmt.Errorf("wstransport: closed: %w", err)
			default:
				return nil, fmt.Errorf("wstransport: closed")
			}
		}
		return payload, nil
	case <-t.closed:
		return nil, fmt.Errorf("wstransport: closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *Transport) Address() (ringid.Did, bool) {
	t.addrMu.RLock()
	defer t.addrMu.RUnlock()
	if t.addr == nil {
		return ringid.Did{}, false
	}
	return *t.addr, true
}

func (t *Transport) SetAddress(id ringid.Did) {
	t.addrMu.Lock()
	defer t.addrMu.Unlock()
	t.addr = &id
}

func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.closed)
		_ = t.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = t.conn.Close()
	})
	return err
}
