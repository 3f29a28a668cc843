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

// Package relay implements the source-routed, sender-signed envelope that
// carries every application and ring-maintenance message between peers.
package relay

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	ringmeshcrypto "github.com/ringmesh-project/ringmesh/crypto"
	"github.com/ringmesh-project/ringmesh/ringid"
)

// Method is the relay direction a live envelope travels in.
type Method string

const (
	// MethodSend records forward hops as the envelope travels toward its
	// destination.
	MethodSend Method = "send"
	// MethodReport walks the same path in reverse, from destination back
	// to originator, using PathEndCursor as the index from the end.
	MethodReport Method = "report"
	// MethodNone exists only for wire compatibility with envelopes that
	// predate the SEND/REPORT distinction; Relay rejects it.
	MethodNone Method = "none"
)

// DefaultTTL is the liveness window applied when New is not given one.
const DefaultTTL = 60 * time.Second

// Envelope is the signed, source-routed wrapper around any message
// variant T. Path/NextHop/Destination are routing metadata mutated by
// every hop and are deliberately outside the signature (see the "per-hop
// mutation is unsigned" limitation documented on Verify).
type Envelope[T any] struct {
	Data          T          `json:"data"`
	TxID          string     `json:"tx_id"`
	TTLMs         int64      `json:"ttl_ms"`
	TsMs          int64      `json:"ts_ms"`
	Method        Method     `json:"method"`
	Path          []ringid.Did `json:"path"`
	PathEndCursor int        `json:"path_end_cursor"`
	NextHop       *ringid.Did `json:"next_hop,omitempty"`
	Destination   ringid.Did `json:"destination"`
	SenderAddr    ringid.Did `json:"sender_addr"`
	Sig           []byte     `json:"sig"`
}

// New stamps TsMs = now, signs canonical(data, ts_ms, ttl_ms) with key, and
// sets SenderAddr/Destination/NextHop from pathTo (self if pathTo is
// empty).
func New[T any](data T, key ringmeshcrypto.KeyPair, ttl time.Duration, pathTo []ringid.Did, method Method) (*Envelope[T], error) {
	selfAddr, err := AddressOf(key)
	if err != nil {
		return nil, newError(ErrBadSignature, "new", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	dest := selfAddr
	if len(pathTo) > 0 {
		dest = pathTo[len(pathTo)-1]
	}

	var nextHop *ringid.Did
	if len(pathTo) > 0 {
		h := pathTo[0]
		nextHop = &h
	}

	env := &Envelope[T]{
		Data:        data,
		TxID:        newTxID(),
		TTLMs:       ttl.Milliseconds(),
		TsMs:        time.Now().UnixMilli(),
		Method:      method,
		Path:        []ringid.Did{selfAddr},
		NextHop:     nextHop,
		Destination: dest,
		SenderAddr:  selfAddr,
	}

	sig, err := signEnvelope(env, key)
	if err != nil {
		return nil, newError(ErrBadSignature, "new", err)
	}
	env.Sig = sig

	return env, nil
}

// canonical builds the exact byte sequence that is signed:
// utf8(json(data)) || "\n" || dec(ts_ms) || "\n" || dec(ttl_ms).
func (e *Envelope[T]) canonical() ([]byte, error) {
	dataJSON, err := json.Marshal(e.Data)
	if err != nil {
		return nil, newError(ErrSerializeFailure, "canonical", err)
	}

	buf := make([]byte, 0, len(dataJSON)+32)
	buf = append(buf, dataJSON...)
	buf = append(buf, '\n')
	buf = append(buf, []byte(strconv.FormatInt(e.TsMs, 10))...)
	buf = append(buf, '\n')
	buf = append(buf, []byte(strconv.FormatInt(e.TTLMs, 10))...)
	return buf, nil
}

func signEnvelope[T any](e *Envelope[T], key ringmeshcrypto.KeyPair) ([]byte, error) {
	msg, err := e.canonical()
	if err != nil {
		return nil, err
	}
	return key.Sign(msg)
}

// Verify recomputes the canonical form and checks it against Sig using
// verifier, which must hold the public key matching SenderAddr. Path,
// NextHop, and Destination are not covered by the signature: hops mutate
// them during relay, which permits tampering by intermediaries. A
// hardened design would chain per-hop signatures; this is a known,
// accepted limitation (see spec open question 3).
func (e *Envelope[T]) Verify(verifier ringmeshcrypto.KeyPair) error {
	msg, err := e.canonical()
	if err != nil {
		return err
	}
	if err := verifier.Verify(msg, e.Sig); err != nil {
		return newError(ErrBadSignature, "verify", err)
	}
	return nil
}

// IsLive reports whether the envelope is still within its TTL window at
// instant now: now < ts_ms + ttl_ms. Named IsLive (not IsExpired) so
// callers never have to reason about a double negative; the source
// repo's is_expired name was a historical inversion bug, not reproduced
// here.
func (e *Envelope[T]) IsLive(now time.Time) bool {
	deadline := e.TsMs + e.TTLMs
	return now.UnixMilli() < deadline
}

// Sender returns the original sender of the envelope: path[0].
func (e *Envelope[T]) Sender() (ringid.Did, bool) {
	if len(e.Path) == 0 {
		return ringid.Did{}, false
	}
	return e.Path[0], true
}

// ResetDestination overwrites Destination mid-flight, used when a handler
// re-targets a lookup to the closest preceding node.
func (e *Envelope[T]) ResetDestination(newDest ringid.Did) {
	e.Destination = newDest
}

// AddressOf derives the ring Did for the given key pair's public half,
// dispatching on key algorithm the same way the teacher's RFC-9421
// verifier dispatches on signature algorithm.
func AddressOf(key ringmeshcrypto.KeyPair) (ringid.Did, error) {
	switch pub := key.PublicKey().(type) {
	case ed25519.PublicKey:
		return ringid.FromEd25519PublicKey(pub), nil
	case *secp256k1.PublicKey:
		return ringid.FromSecp256k1PublicKey(pub), nil
	default:
		return ringid.Did{}, fmt.Errorf("unsupported public key type %T", pub)
	}
}

var txIDCounter atomic.Uint64

// newTxID produces a correlation id for an outbound envelope chain from the
// wall clock and a process-wide counter, so ids never repeat within one
// process. handler.Handle uses it, together with the sender address, as its
// replay-guard key. It is not cryptographically unpredictable.
func newTxID() string {
	n := txIDCounter.Add(1)
	return fmt.Sprintf("tx-%d-%d", time.Now().UnixNano(), n)
}
