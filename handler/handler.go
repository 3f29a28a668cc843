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

package handler

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	ringmeshcrypto "github.com/ringmesh-project/ringmesh/crypto"
	"github.com/ringmesh-project/ringmesh/dht"
	"github.com/ringmesh-project/ringmesh/internal/logger"
	"github.com/ringmesh-project/ringmesh/internal/metrics"
	"github.com/ringmesh-project/ringmesh/relay"
	"github.com/ringmesh-project/ringmesh/ringid"
	"github.com/ringmesh-project/ringmesh/swarm"
)

// CustomFunc receives Custom-variant payloads; ring/swarm state is not
// touched on this path.
type CustomFunc func(ctx context.Context, env *relay.Envelope[Message]) error

// TransportDialer returns a fresh, not-yet-addressed Transport for an
// outbound connection attempt to address. Production wiring injects one
// backed by a real network dial (see cmd/ringmesh-node); when unset,
// Connect falls back to a shared swarm.MemNetwork, which is enough for
// same-process tests and simulations but never leaves the process.
type TransportDialer func(ctx context.Context, address ringid.Did) (swarm.Transport, error)

// FixFingerReportFunc is invoked with the resolved Did whenever a
// FindSuccessorReport(for_fix=true) is dispatched. The generic dispatch
// path has no notion of which finger slot a for-fix lookup was issued
// for, so it hands the resolved address to this callback and lets the
// stabilize driver (the only caller that tracks slot/lookup correlation)
// finish the job via dht.Ring.CompleteFixFinger.
type FixFingerReportFunc func(resolved ringid.Did)

// Handler is the mediator between ring maintenance and swarm connections:
// it owns both directly so neither needs a reference back to the other.
type Handler struct {
	self ringid.Did
	key  ringmeshcrypto.KeyPair
	ring *dht.Ring
	sw   *swarm.Swarm
	ttl  time.Duration

	custom          CustomFunc
	fixFingerReport FixFingerReportFunc
	dialer          TransportDialer
	memNet          *swarm.MemNetwork

	connectGroup singleflight.Group
}

// New constructs a Handler for one process's ring and swarm.
func New(key ringmeshcrypto.KeyPair, ring *dht.Ring, sw *swarm.Swarm, ttl time.Duration, custom CustomFunc) *Handler {
	if ttl <= 0 {
		ttl = relay.DefaultTTL
	}
	return &Handler{self: ring.ID, key: key, ring: ring, sw: sw, ttl: ttl, custom: custom}
}

// Self returns the Did this handler's process identifies as.
func (h *Handler) Self() ringid.Did { return h.self }

// Ring exposes the owned ring for stabilize-driver wiring.
func (h *Handler) Ring() *dht.Ring { return h.ring }

// Swarm exposes the owned swarm for transport wiring.
func (h *Handler) Swarm() *swarm.Swarm { return h.sw }

// SetFixFingerCallback registers the stabilize driver's slot-correlation
// hook. Only one callback is supported, matching the one-driver-per-process
// process model.
func (h *Handler) SetFixFingerCallback(fn FixFingerReportFunc) { h.fixFingerReport = fn }

// SetTransportDialer installs the outbound dial strategy Connect uses to
// create a transport before the swarm handshake completes.
func (h *Handler) SetTransportDialer(fn TransportDialer) { h.dialer = fn }

// SetMemNetwork wires this handler into a shared in-process rendezvous,
// used by Connect and the ConnectNodeSend acceptor path whenever no
// TransportDialer is configured. Every handler meant to reach every other
// through pure relay-routed Connect in a test or single-process simulation
// must share the same MemNetwork instance.
func (h *Handler) SetMemNetwork(n *swarm.MemNetwork) { h.memNet = n }

// SendNotifyPredecessor sends a NotifyPredecessorSend envelope announcing
// self to dest, driven by the stabilize loop on every successor in the
// successor list.
func (h *Handler) SendNotifyPredecessor(ctx context.Context, dest ringid.Did) error {
	return h.newSend(ctx, NotifyPredecessorSend(h.self), dest)
}

// SendFindSuccessorForFix issues a for-fix FindSuccessorSend lookup for
// target, routed via dest. The resolved address arrives later through the
// registered FixFingerReportFunc rather than a return value.
func (h *Handler) SendFindSuccessorForFix(ctx context.Context, dest, target ringid.Did) error {
	return h.newSend(ctx, FindSuccessorSend(target, true), dest)
}

// Loopback builds a self-addressed envelope carrying msg and dispatches it
// straight through Handle, for notifying this handler's own ring
// maintenance about events the wire protocol never carries, such as a
// transport newly reaching a peer.
func (h *Handler) Loopback(ctx context.Context, msg Message) error {
	env, err := relay.New(msg, h.key, h.ttl, nil, relay.MethodSend)
	if err != nil {
		return fmt.Errorf("handler: new loopback envelope: %w", err)
	}
	return h.Handle(ctx, env)
}

// HandleEncoded decodes and dispatches one inbound encoded envelope
// received from a transport.
func (h *Handler) HandleEncoded(ctx context.Context, encoded []byte) error {
	env, err := relay.Decode[Message](relay.Encoded(encoded))
	if err != nil {
		logger.Warn("dropping malformed envelope", logger.Error(err))
		return nil
	}
	return h.Handle(ctx, env)
}

// Handle dispatches a single decoded envelope: liveness check, signature
// check, replay check, relay transition, then the variant-specific arm.
func (h *Handler) Handle(ctx context.Context, env *relay.Envelope[Message]) error {
	if !env.IsLive(time.Now()) {
		logger.Warn("dropping expired envelope", logger.String("method", string(env.Method)))
		metrics.RelayEnvelopesDropped.WithLabelValues("expired").Inc()
		return nil
	}
	if err := env.Verify(h.key); err != nil {
		logger.Warn("dropping envelope with bad signature", logger.Error(err))
		metrics.RelayEnvelopesDropped.WithLabelValues("bad_signature").Inc()
		return nil
	}

	if sm := h.sw.Sessions(); sm != nil {
		if sm.ReplayGuardSeenOnce(env.SenderAddr.String(), env.TxID) {
			logger.Warn("dropping replayed envelope", logger.String("sender", env.SenderAddr.String()), logger.String("tx_id", env.TxID))
			metrics.RelayEnvelopesDropped.WithLabelValues("replayed").Inc()
			return nil
		}
	}

	sender, _ := env.Sender()

	var nextHop *ringid.Did
	if env.Method == relay.MethodSend && env.Destination != h.self {
		next := h.routeTowardDestination(env.Destination)
		nextHop = &next
	}
	if err := relay.Relay(env, h.self, nextHop); err != nil {
		return fmt.Errorf("handler: relay transition: %w", err)
	}

	if env.Method == relay.MethodSend && env.Destination != h.self {
		return h.forward(ctx, env)
	}

	metrics.RelayEnvelopesForwarded.WithLabelValues(string(env.Data.Kind)).Inc()
	metrics.RelayHopCount.Observe(float64(len(env.Path)))

	switch env.Method {
	case relay.MethodSend:
		return h.dispatchSend(ctx, env, sender)
	case relay.MethodReport:
		return h.dispatchReport(ctx, env)
	default:
		return fmt.Errorf("handler: unsupported method %q", env.Method)
	}
}

// routeTowardDestination resolves the next hop for a SEND envelope that
// hasn't reached its destination yet: prefer an existing direct transport,
// otherwise fall back to the ring's closest preceding node.
func (h *Handler) routeTowardDestination(dest ringid.Did) ringid.Did {
	if _, ok := h.sw.GetTransport(dest); ok {
		return dest
	}
	return h.ring.Finger.ClosestPrecedingNode(h.self, dest)
}

func (h *Handler) forward(ctx context.Context, env *relay.Envelope[Message]) error {
	encoded, err := relay.Encode(env)
	if err != nil {
		return fmt.Errorf("handler: encode for forward: %w", err)
	}
	if env.NextHop == nil {
		return fmt.Errorf("handler: %w", relayErrNoNextHop)
	}
	return h.sw.SendPayload(ctx, *env.NextHop, []byte(encoded))
}

var relayErrNoNextHop = fmt.Errorf("missing next hop on forward")

// send encodes and dispatches env to env.NextHop via the swarm.
func (h *Handler) send(ctx context.Context, env *relay.Envelope[Message]) error {
	if env.NextHop == nil {
		return nil
	}
	encoded, err := relay.Encode(env)
	if err != nil {
		return fmt.Errorf("handler: encode: %w", err)
	}
	return h.sw.SendPayload(ctx, *env.NextHop, []byte(encoded))
}

// newSend builds and sends a fresh SEND envelope carrying msg to dest.
func (h *Handler) newSend(ctx context.Context, msg Message, dest ringid.Did) error {
	env, err := relay.New(msg, h.key, h.ttl, []ringid.Did{dest}, relay.MethodSend)
	if err != nil {
		return fmt.Errorf("handler: new envelope: %w", err)
	}
	return h.send(ctx, env)
}

// reply converts ctx into its REPORT counterpart carrying msg and sends it
// back along the inherited path.
func (h *Handler) reply(ctx context.Context, src *relay.Envelope[Message], msg Message) error {
	report, err := relay.New(msg, h.key, h.ttl, nil, relay.MethodReport)
	if err != nil {
		return fmt.Errorf("handler: new report envelope: %w", err)
	}
	relay.InheritPath(report, src)
	if err := relay.Relay(report, h.self, nil); err != nil {
		return fmt.Errorf("handler: relay report: %w", err)
	}
	return h.send(ctx, report)
}

func (h *Handler) dispatchSend(ctx context.Context, env *relay.Envelope[Message], sender ringid.Did) error {
	msg := env.Data
	switch msg.Kind {
	case KindJoinDHT:
		return h.handleJoinDHT(ctx, msg.ID, sender)
	case KindLeaveDHT:
		h.ring.Remove(msg.ID)
		h.sw.RemoveTransport(msg.ID)
		return nil
	case KindConnectNodeSend:
		return h.handleConnectNodeSend(ctx, env, msg, sender)
	case KindFindSuccessorSend:
		return h.handleFindSuccessorSend(ctx, env, msg)
	case KindNotifyPredecessorSend:
		h.ring.Notify(msg.ID)
		return h.reply(ctx, env, NotifyPredecessorReport(h.self))
	case KindSyncVNodeWithSuccessor:
		for _, v := range msg.VNodes {
			h.ring.Store(v)
		}
		return nil
	case KindStoreVNode:
		return h.handleStoreVNode(ctx, msg)
	case KindCustom:
		if h.custom != nil {
			return h.custom(ctx, env)
		}
		return nil
	default:
		return fmt.Errorf("handler: unknown SEND variant %q", msg.Kind)
	}
}

func (h *Handler) dispatchReport(ctx context.Context, env *relay.Envelope[Message]) error {
	msg := env.Data

	if !relay.Delivered(env) {
		return h.send(ctx, env)
	}

	// The REPORT envelope's path is inherited unchanged from the SEND that
	// spawned it, so path[0] (sender()) is always the originator itself by
	// the time the REPORT is delivered back. The remote peer this REPORT
	// actually answers from is the other end of that path.
	remotePeer := env.Path[len(env.Path)-1]

	switch msg.Kind {
	case KindConnectNodeReport:
		return h.handleConnectNodeReport(ctx, msg, remotePeer)
	case KindAlreadyConnected:
		if _, ok := h.sw.GetTransport(remotePeer); !ok {
			return fmt.Errorf("handler: AlreadyConnected from %s but no transport registered", remotePeer)
		}
		return nil
	case KindFindSuccessorReport:
		return h.handleFindSuccessorReport(ctx, msg)
	case KindNotifyPredecessorReport:
		return h.syncSuccessor(ctx, msg.ID)
	default:
		return fmt.Errorf("handler: unknown REPORT variant %q", msg.Kind)
	}
}

func (h *Handler) handleJoinDHT(ctx context.Context, id ringid.Did, sender ringid.Did) error {
	act := h.ring.Join(id)
	metrics.DHTSuccessorChanges.Inc()
	if act.IsRemote() && act.Next != sender {
		return h.newSend(ctx, FindSuccessorSend(id, false), act.Next)
	}
	return nil
}

func (h *Handler) handleFindSuccessorSend(ctx context.Context, env *relay.Envelope[Message], msg Message) error {
	act := h.ring.FindSuccessor(msg.ID)
	switch {
	case act.IsSome():
		return h.reply(ctx, env, FindSuccessorReport(act.Did, msg.ForFix))
	case act.IsRemote():
		next := act.Next
		if err := relay.Relay(env, h.self, &next); err != nil {
			return err
		}
		env.ResetDestination(next)
		return h.send(ctx, env)
	default:
		return nil
	}
}

func (h *Handler) handleFindSuccessorReport(ctx context.Context, msg Message) error {
	if msg.ForFix {
		// Slot correlation lives with whoever issued the lookup (the
		// stabilize driver); hand the resolved address back through the
		// registered callback instead of touching Ring state directly.
		if h.fixFingerReport != nil {
			h.fixFingerReport(msg.ID)
		}
		return nil
	}
	h.ring.Successors.Update(h.self, msg.ID)
	metrics.DHTSuccessorChanges.Inc()
	return h.syncSuccessor(ctx, msg.ID)
}

func (h *Handler) syncSuccessor(ctx context.Context, succ ringid.Did) error {
	if succ == h.self {
		return nil
	}
	h.ring.Successors.Update(h.self, succ)

	if _, ok := h.sw.GetTransport(succ); !ok {
		if err := h.Connect(ctx, succ); err != nil {
			logger.Warn("auto-connect to successor failed", logger.Error(err), logger.String("peer", succ.String()))
		}
	}

	var toHandOff []dht.VirtualNode
	for _, v := range h.ring.VNodesInRange(h.self, succ) {
		toHandOff = append(toHandOff, v)
	}
	if len(toHandOff) > 0 {
		return h.newSend(ctx, SyncVNodeWithSuccessor(toHandOff), succ)
	}
	return nil
}

func (h *Handler) handleStoreVNode(ctx context.Context, msg Message) error {
	for _, v := range msg.VNodes {
		act := h.ring.FindSuccessor(v.Address)
		if act.IsSome() && act.Did == h.self {
			h.ring.Store(v)
			metrics.DHTStoreKeys.Set(float64(h.ring.StorageCount()))
			continue
		}
		target := h.self
		if act.IsRemote() {
			target = act.Next
		} else if act.IsSome() {
			target = act.Did
		}
		if target == h.self {
			continue
		}
		if err := h.newSend(ctx, StoreVNode([]dht.VirtualNode{v}), target); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) handleConnectNodeSend(ctx context.Context, env *relay.Envelope[Message], msg Message, sender ringid.Did) error {
	if env.Destination != h.self {
		return h.forward(ctx, env)
	}

	if _, ok := h.sw.GetTransport(sender); ok {
		return h.reply(ctx, env, AlreadyConnected())
	}

	t, err := h.acceptTransport(ctx, sender)
	if err != nil {
		return fmt.Errorf("handler: accept connection from %s: %w", sender, err)
	}
	h.sw.Register(sender, t)
	if h.dialer == nil {
		go h.pump(ctx, t)
	}

	return h.reply(ctx, env, ConnectNodeReport(msg.TransportUUID, h.self.String()))
}

func (h *Handler) handleConnectNodeReport(ctx context.Context, msg Message, sender ringid.Did) error {
	if _, ok := h.sw.PopPendingTransport(msg.TransportUUID, sender); !ok {
		return fmt.Errorf("handler: pending transport %s: %w", msg.TransportUUID, ErrNotFound)
	}
	return h.Loopback(ctx, JoinDHT(sender))
}

// acceptTransport obtains the accepting side's half of a connection a peer
// is establishing via ConnectNodeSend, mirroring the initiator's own
// dialTransport strategy: a shared MemNetwork lets it claim the queued
// peer half of the pair the initiator's dial deposited there, and absent
// one it falls back to dialing sender directly.
func (h *Handler) acceptTransport(ctx context.Context, sender ringid.Did) (swarm.Transport, error) {
	if h.dialer == nil && h.memNet != nil {
		if t, ok := h.memNet.Accept(h.self, sender); ok {
			return t, nil
		}
		return nil, fmt.Errorf("handler: no pending dial from %s on mem network", sender)
	}
	return h.dialTransport(ctx, sender)
}

// Connect initiates a connection to address: it builds a pending
// transport, routes a ConnectNodeSend toward address via find_successor,
// and registers the UUID pending the REPORT. Concurrent Connect calls for
// the same address are deduplicated.
func (h *Handler) Connect(ctx context.Context, address ringid.Did) error {
	_, err, _ := h.connectGroup.Do(address.String(), func() (interface{}, error) {
		return nil, h.connect(ctx, address)
	})
	return err
}

func (h *Handler) connect(ctx context.Context, address ringid.Did) error {
	if address == h.self {
		return nil
	}
	if _, ok := h.sw.GetTransport(address); ok {
		return nil
	}

	t, err := h.dialTransport(ctx, address)
	if err != nil {
		return fmt.Errorf("handler: dial %s: %w", address, err)
	}
	h.sw.NewTransport(t)
	if h.dialer == nil {
		go h.pump(ctx, t)
	}

	act := h.ring.FindSuccessor(address)
	target := address
	if act.IsRemote() {
		target = act.Next
	} else if act.IsSome() {
		target = act.Did
	}

	env, err := relay.New(ConnectNodeSend(t.UUID(), h.self.String()), h.key, h.ttl, []ringid.Did{target}, relay.MethodSend)
	if err != nil {
		return fmt.Errorf("handler: new connect envelope: %w", err)
	}
	env.ResetDestination(address)
	return h.send(ctx, env)
}

// dialTransport uses the injected dialer when one is configured, falling
// back to the shared in-process MemNetwork for tests and single-process
// simulations that never leave the host. With neither configured it
// returns an error instead of fabricating a transport nothing is
// listening on.
func (h *Handler) dialTransport(ctx context.Context, address ringid.Did) (swarm.Transport, error) {
	if h.dialer != nil {
		return h.dialer(ctx, address)
	}
	if h.memNet != nil {
		return h.memNet.Dial(ctx, h.self, address)
	}
	return nil, fmt.Errorf("handler: no transport dialer or mem network configured for %s", address)
}

// pump reads and dispatches envelopes off a transport this handler
// established itself (the MemNetwork path, which has no external reader
// the way cmd/ringmesh-node's pumpPending is for a dialer-provided
// transport), stopping when Recv fails.
func (h *Handler) pump(ctx context.Context, t swarm.Transport) {
	for {
		payload, err := t.Recv(ctx)
		if err != nil {
			return
		}
		if err := h.HandleEncoded(ctx, payload); err != nil {
			logger.Warn("handle envelope failed", logger.Error(err))
		}
	}
}
