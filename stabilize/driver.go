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

// Package stabilize runs the periodic ring-maintenance loop: notifying
// successors, advancing the finger-fixing cursor, and handing off vnodes
// that now belong to a different successor.
package stabilize

import (
	"context"
	"sync"
	"time"

	"github.com/ringmesh-project/ringmesh/handler"
	"github.com/ringmesh-project/ringmesh/internal/logger"
	"github.com/ringmesh-project/ringmesh/internal/metrics"
	"github.com/ringmesh-project/ringmesh/ringid"
)

// Config tunes the three independent tickers the Driver runs. A zero
// interval disables that sub-loop entirely.
type Config struct {
	StabilizeInterval  time.Duration
	FixFingersInterval time.Duration
	CheckPredInterval  time.Duration
}

// pendingFix correlates a fix-finger lookup in flight with the slot it was
// issued for; Handler's generic dispatch has no way to know which slot a
// FindSuccessorReport(for_fix=true) answers, so the Driver tracks it here
// and resolves it out of band via Ring.CompleteFixFinger.
type pendingFix struct {
	slot int
}

// Driver owns the three ticker loops described in the stabilization
// section: notify successors, fix one finger per tick, and check that the
// predecessor is still reachable. It is started and stopped independently
// of the Handler it drives.
type Driver struct {
	h   *handler.Handler
	cfg Config

	mu         sync.Mutex
	lastTick   time.Time
	pendingFix *pendingFix

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// New constructs a Driver bound to h and registers its fix-finger
// completion callback with h, so a FindSuccessorReport(for_fix=true) that
// arrives through h's normal dispatch path resolves the slot this Driver
// is currently waiting on.
func New(h *handler.Handler, cfg Config) *Driver {
	d := &Driver{
		h:    h,
		cfg:  cfg,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	h.SetFixFingerCallback(d.onFixFingerResolved)
	return d
}

func (d *Driver) onFixFingerResolved(resolved ringid.Did) {
	d.mu.Lock()
	pf := d.pendingFix
	d.pendingFix = nil
	d.mu.Unlock()

	if pf == nil {
		return
	}
	d.h.Ring().CompleteFixFinger(pf.slot, resolved)
}

// LastTick returns the instant of the most recently completed stabilize
// tick, for use by a health.StabilizeHeartbeatCheck.
func (d *Driver) LastTick() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastTick
}

// Start launches the background loops. It returns immediately; call Stop
// to shut them down.
func (d *Driver) Start(ctx context.Context) {
	go d.run(ctx)
}

// Stop halts the loops and waits for them to exit.
func (d *Driver) Stop() {
	d.once.Do(func() { close(d.stop) })
	<-d.done
}

func (d *Driver) run(ctx context.Context) {
	defer close(d.done)

	stabilizeTicker := newTicker(d.cfg.StabilizeInterval)
	fixFingersTicker := newTicker(d.cfg.FixFingersInterval)
	checkPredTicker := newTicker(d.cfg.CheckPredInterval)
	defer stabilizeTicker.Stop()
	defer fixFingersTicker.Stop()
	defer checkPredTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stop:
			return
		case <-stabilizeTicker.C:
			d.tickStabilize(ctx)
		case <-fixFingersTicker.C:
			d.tickFixFingers(ctx)
		case <-checkPredTicker.C:
			d.tickCheckPredecessor(ctx)
		}
	}
}

// newTicker returns a ticker for interval, or a ticker on a channel that
// never fires when interval is 0 (the sub-loop is disabled).
func newTicker(interval time.Duration) *time.Ticker {
	if interval <= 0 {
		return &time.Ticker{C: make(chan time.Time)}
	}
	return time.NewTicker(interval)
}

// tickStabilize notifies every known successor of our presence and hands
// off any vnodes that now belong to the current successor.
func (d *Driver) tickStabilize(ctx context.Context) {
	defer d.recordTick()
	metrics.DHTStabilizeRuns.WithLabelValues("stabilize").Inc()

	ring := d.h.Ring()
	self := d.h.Self()

	for _, succ := range ring.Successors.List() {
		if succ == self {
			continue
		}
		if err := d.h.Connect(ctx, succ); err != nil {
			logger.Warn("stabilize: connect to successor failed",
				logger.Error(err), logger.String("peer", succ.String()))
		}
		if err := d.h.SendNotifyPredecessor(ctx, succ); err != nil {
			logger.Warn("stabilize: notify predecessor failed",
				logger.Error(err), logger.String("peer", succ.String()))
		}
	}
}

// tickFixFingers issues one fix-finger lookup per tick, the pacing the
// stabilization section calls for so a single tick never blocks on more
// than one outstanding remote round trip.
func (d *Driver) tickFixFingers(ctx context.Context) {
	metrics.DHTStabilizeRuns.WithLabelValues("fix_fingers").Inc()
	ring := d.h.Ring()
	slot, act := ring.FixFinger()
	metrics.DHTFingerTableSize.Set(float64(ring.Finger.Len()))

	d.mu.Lock()
	d.pendingFix = nil
	d.mu.Unlock()

	if !act.IsRemote() {
		return
	}

	d.mu.Lock()
	d.pendingFix = &pendingFix{slot: slot}
	d.mu.Unlock()

	if err := d.h.SendFindSuccessorForFix(ctx, act.Next, act.Query.Target); err != nil {
		logger.Warn("stabilize: fix-finger lookup failed", logger.Error(err))
	}
}

// tickCheckPredecessor verifies the current predecessor still has a live
// transport; a predecessor that has dropped its transport and cannot be
// reconnected is evicted so a stale reference doesn't linger in Ring state.
func (d *Driver) tickCheckPredecessor(ctx context.Context) {
	metrics.DHTStabilizeRuns.WithLabelValues("check_predecessor").Inc()
	ring := d.h.Ring()
	pred, ok := ring.PredecessorID()
	if !ok {
		return
	}
	if _, ok := d.h.Swarm().GetTransport(pred); ok {
		return
	}
	if err := d.h.Connect(ctx, pred); err != nil {
		logger.Warn("stabilize: predecessor unreachable, evicting",
			logger.Error(err), logger.String("peer", pred.String()))
		ring.Remove(pred)
	}
}

func (d *Driver) recordTick() {
	d.mu.Lock()
	d.lastTick = time.Now()
	d.mu.Unlock()
}
