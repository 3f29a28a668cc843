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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ringmesh-project/ringmesh/handler"
	"github.com/ringmesh-project/ringmesh/internal/logger"
	"github.com/ringmesh-project/ringmesh/ringid"
	"github.com/ringmesh-project/ringmesh/swarm"
	"github.com/ringmesh-project/ringmesh/swarm/wstransport"
)

// helloPayload is exchanged once, in both directions, the instant a raw
// transport connects and before any relay envelope crosses it: it is how
// each side learns the other's Did and dial-back address, neither of
// which a bare websocket connection carries on its own.
type helloPayload struct {
	Did        string `json:"did"`
	ListenAddr string `json:"listen_addr"`
}

var (
	addressBookMu sync.Mutex
	addressBook   = map[ringid.Did]string{}
)

func recordAddress(did ringid.Did, addr string) {
	if addr == "" {
		return
	}
	addressBookMu.Lock()
	addressBook[did] = addr
	addressBookMu.Unlock()
}

func lookupAddress(did ringid.Did) (string, bool) {
	addressBookMu.Lock()
	defer addressBookMu.Unlock()
	addr, ok := addressBook[did]
	return addr, ok
}

// exchangeHello sends our own hello and reads the peer's, recording its
// dial-back address if it gave one.
func exchangeHello(ctx context.Context, t swarm.Transport, self ringid.Did, listenAddr string) (ringid.Did, error) {
	out, err := json.Marshal(helloPayload{Did: self.String(), ListenAddr: listenAddr})
	if err != nil {
		return ringid.Did{}, fmt.Errorf("encode hello: %w", err)
	}
	if err := t.Send(ctx, out); err != nil {
		return ringid.Did{}, fmt.Errorf("send hello: %w", err)
	}

	raw, err := t.Recv(ctx)
	if err != nil {
		return ringid.Did{}, fmt.Errorf("recv hello: %w", err)
	}
	var in helloPayload
	if err := json.Unmarshal(raw, &in); err != nil {
		return ringid.Did{}, fmt.Errorf("decode hello: %w", err)
	}

	var peer ringid.Did
	if err := peer.UnmarshalText([]byte(in.Did)); err != nil {
		return ringid.Did{}, fmt.Errorf("parse peer did: %w", err)
	}
	recordAddress(peer, in.ListenAddr)
	return peer, nil
}

// pumpInbound runs the hello handshake on a freshly connected transport
// (inbound accept or an outbound bootstrap dial), registers it under the
// peer's Did, feeds a loopback JoinDHT to kick off ring maintenance with
// the new peer, then pumps relay envelopes until the connection drops.
func pumpInbound(ctx context.Context, h *handler.Handler, t swarm.Transport, listenAddr string, log *logger.StructuredLogger) {
	peer, err := exchangeHello(ctx, t, h.Self(), listenAddr)
	if err != nil {
		log.Warn("hello handshake failed", logger.Error(err))
		_ = t.Close()
		return
	}

	h.Swarm().Register(peer, t)
	log.Info("peer connected", logger.String("peer", peer.String()))

	if err := h.Loopback(ctx, handler.JoinDHT(peer)); err != nil {
		log.Warn("join dispatch failed", logger.Error(err), logger.String("peer", peer.String()))
	}

	pumpPending(ctx, h, t, log)
	h.Swarm().RemoveTransport(peer)
	log.Info("peer disconnected", logger.String("peer", peer.String()))
}

// pumpPending reads and dispatches raw envelopes off a transport whose Did
// may not be registered yet (an outbound dial still awaiting its
// ConnectNodeReport), stopping when Recv fails.
func pumpPending(ctx context.Context, h *handler.Handler, t swarm.Transport, log *logger.StructuredLogger) {
	for {
		payload, err := t.Recv(ctx)
		if err != nil {
			return
		}
		if err := h.HandleEncoded(ctx, payload); err != nil {
			log.Warn("handle envelope failed", logger.Error(err))
		}
	}
}

// dialerFor builds the handler.TransportDialer used for ring-internal
// connection attempts (auto-connect to a successor, routing a
// ConnectNodeSend toward a resolved target): it only succeeds for peers
// whose dial-back address was already learned through a prior hello
// exchange. Peers we have never spoken to directly are reached through
// relay routing instead, never a direct dial.
func dialerFor(h *handler.Handler, timeout time.Duration, log *logger.StructuredLogger) handler.TransportDialer {
	d := wstransport.Dialer{HandshakeTimeout: timeout, WriteTimeout: timeout}
	return func(ctx context.Context, address ringid.Did) (swarm.Transport, error) {
		addr, ok := lookupAddress(address)
		if !ok {
			return nil, fmt.Errorf("no known network address for %s", address)
		}
		t, err := d.Dial(ctx, addr)
		if err != nil {
			return nil, err
		}
		go pumpPending(ctx, h, t, log)
		return t, nil
	}
}

// bootstrap dials an already-known ring member by network address to join
// the overlay for the first time.
func bootstrap(ctx context.Context, h *handler.Handler, peerURL, listenAddr string, log *logger.StructuredLogger) {
	dialer := wstransport.DefaultDialer()
	t, err := dialer.Dial(ctx, peerURL)
	if err != nil {
		log.Warn("bootstrap dial failed", logger.Error(err), logger.String("peer", peerURL))
		return
	}
	pumpInbound(ctx, h, t, listenAddr, log)
}
