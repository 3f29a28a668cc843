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

package dht

import (
	"sync"

	"github.com/ringmesh-project/ringmesh/ringid"
)

// Ring holds one node's view of the Chord overlay: its own address, its
// bounded successor list, its predecessor, and its finger table, plus the
// vnodes it is currently responsible for storing. All mutation goes through
// methods that take ring.mu, held only for the duration of the in-memory
// update — never across a network round trip. Operations that need a
// remote peer return an Action instead of blocking.
type Ring struct {
	mu sync.Mutex

	ID         ringid.Did
	Successors *SuccessorList
	Predecessor *ringid.Did
	Finger     *FingerTable

	fixFingerIndex int
	storage        map[ringid.Did]VirtualNode
}

// NewRing constructs a ring rooted at self with a successor list bounded to
// successorListSize entries (clamped to at least 1).
func NewRing(self ringid.Did, successorListSize int) *Ring {
	return &Ring{
		ID:         self,
		Successors: NewSuccessorList(successorListSize),
		Finger:     NewFingerTable(),
		storage:    make(map[ringid.Did]VirtualNode),
	}
}

// FindSuccessor resolves the node responsible for id. If id falls within
// (self, successor], the immediate successor is returned directly. Otherwise
// routing continues toward the closest preceding finger, returned as a
// Remote action the caller must forward a find_successor query through.
func (r *Ring) FindSuccessor(id ringid.Did) Action {
	r.mu.Lock()
	defer r.mu.Unlock()

	succ, ok := r.Successors.Min()
	if !ok {
		// No known successor yet: we are, as far as we know, alone on the
		// ring, so we are our own successor.
		return ActionSome(r.ID)
	}

	if ringid.BetweenInclusive(r.ID, succ, id) {
		return ActionSome(succ)
	}

	next := r.Finger.ClosestPrecedingNode(r.ID, id)
	if next == r.ID {
		// No finger is any closer than we are; hand back our successor as
		// the best current guess rather than looping forever.
		return ActionSome(succ)
	}

	return ActionRemote(next, RemoteQuery{Kind: QueryFindSuccessor, Target: id})
}

// Join records a candidate peer discovered during bootstrap: it seeds the
// finger table's first slot and is offered to the successor list. The
// caller is still responsible for driving find_successor(self) against the
// candidate to discover the true successor.
func (r *Ring) Join(candidate ringid.Did) Action {
	r.mu.Lock()
	defer r.mu.Unlock()

	if candidate == r.ID {
		return ActionNone()
	}

	r.Finger.Join(r.ID, candidate)
	r.Successors.Update(r.ID, candidate)

	return ActionRemote(candidate, RemoteQuery{Kind: QueryFindSuccessor, Target: r.ID})
}

// Notify processes a predecessor candidate announced by another peer. If we
// have no predecessor, or candidate lies strictly between our current
// predecessor and us, candidate becomes our new predecessor.
func (r *Ring) Notify(candidate ringid.Did) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if candidate == r.ID {
		return
	}
	if r.Predecessor == nil || ringid.Between(*r.Predecessor, r.ID, candidate) {
		c := candidate
		r.Predecessor = &c
	}
}

// SyncWithSuccessor folds the predecessor a successor reported into our
// successor list, where Update places it by bias: it becomes our immediate
// successor if it is closer than the current one. A nil or self value is
// ignored.
func (r *Ring) SyncWithSuccessor(succPredecessor *ringid.Did) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if succPredecessor == nil || *succPredecessor == r.ID {
		return
	}
	r.Successors.Update(r.ID, *succPredecessor)
}

// FixFinger advances the fix-finger cursor by one slot per call and returns
// the slot together with the Action needed to resolve it: a lookup for
// self + 2^i, one tick at a time, matching the spec's "one fix-finger
// lookup per stabilize tick" pacing. The caller (the stabilize driver)
// keeps the returned slot around to correlate the eventual remote answer
// back via CompleteFixFinger.
func (r *Ring) FixFinger() (int, Action) {
	r.mu.Lock()
	i := r.fixFingerIndex
	r.fixFingerIndex = (r.fixFingerIndex + 1) % ringid.Width
	self := r.ID
	r.mu.Unlock()

	target := self.Add(uint(i))
	return i, r.findSuccessorForFinger(i, target)
}

func (r *Ring) findSuccessorForFinger(slot int, target ringid.Did) Action {
	act := r.FindSuccessor(target)
	if act.IsSome() {
		r.mu.Lock()
		found := act.Did
		r.Finger.Set(slot, &found)
		r.mu.Unlock()
	}
	return act
}

// CompleteFixFinger records the resolved successor for finger slot i once
// the caller has driven the Remote action returned by FixFinger to
// completion.
func (r *Ring) CompleteFixFinger(slot int, resolved ringid.Did) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Finger.Set(slot, &resolved)
}

// Remove evicts a peer known to have left or failed from every piece of
// local state that referenced it.
func (r *Ring) Remove(id ringid.Did) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Successors.Remove(id)
	r.Finger.Remove(id)
	if r.Predecessor != nil && *r.Predecessor == id {
		r.Predecessor = nil
	}
}

// Store records a vnode we are responsible for.
func (r *Ring) Store(v VirtualNode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storage[v.Address] = v
}

// Load returns a previously stored vnode, if any.
func (r *Ring) Load(address ringid.Did) (VirtualNode, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.storage[address]
	return v, ok
}

// Drop evicts a vnode from local storage.
func (r *Ring) Drop(address ringid.Did) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.storage, address)
}

// VNodesInRange returns every locally stored vnode whose address falls in
// (lo, hi], used when handing off storage responsibility to a new successor
// during stabilization.
func (r *Ring) VNodesInRange(lo, hi ringid.Did) []VirtualNode {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []VirtualNode
	for addr, v := range r.storage {
		if ringid.BetweenInclusive(lo, hi, addr) {
			out = append(out, v)
		}
	}
	return out
}

// StorageCount returns the number of vnodes currently stored locally.
func (r *Ring) StorageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.storage)
}

// PredecessorID returns the current predecessor, if any.
func (r *Ring) PredecessorID() (ringid.Did, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Predecessor == nil {
		return ringid.Did{}, false
	}
	return *r.Predecessor, true
}

// SuccessorID returns the immediate successor, if any.
func (r *Ring) SuccessorID() (ringid.Did, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Successors.Min()
}
