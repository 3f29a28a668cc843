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

// Package dht implements the Chord ring: finger table, successor list,
// join/stabilize/fix-fingers maintenance, and content-addressed virtual
// node storage. It is entirely I/O-free — every operation that needs a
// remote peer to continue returns an Action for the caller to act on, it
// never performs network calls itself.
//
// The finger table and successor list here are plain structs with no
// internal locking; they are always accessed under their owning Ring's
// mutex, matching the "coarse-grained, held for one message" concurrency
// model.
package dht

import "github.com/ringmesh-project/ringmesh/ringid"

// FingerTable is an array of ringid.Width entries; entry i ideally points
// to successor(self + 2^i). Entries start unresolved (nil) and are filled
// in one at a time by the stabilization driver's fix-finger tick.
type FingerTable struct {
	entries [ringid.Width]*ringid.Did
}

// NewFingerTable returns an empty finger table.
func NewFingerTable() *FingerTable {
	return &FingerTable{}
}

// Len returns the number of resolved (non-nil) finger table entries.
func (ft *FingerTable) Len() int {
	n := 0
	for _, e := range ft.entries {
		if e != nil {
			n++
		}
	}
	return n
}

// ClosestPrecedingNode returns the largest finger entry f such that
// bias_self(f) < bias_self(id); if no such entry exists, it returns self.
// Ties are broken toward the higher bias (i.e. the later/higher-index
// finger entry wins when biases are equal, which cannot happen for
// distinct Dids but is specified for completeness).
func (ft *FingerTable) ClosestPrecedingNode(self, id ringid.Did) ringid.Did {
	targetBias := ringid.Bias(self, id)

	best := self
	bestBias := ringid.Bias(self, self) // zero

	for i := len(ft.entries) - 1; i >= 0; i-- {
		f := ft.entries[i]
		if f == nil {
			continue
		}
		fb := ringid.Bias(self, *f)
		if fb.Cmp(targetBias) < 0 && fb.Cmp(bestBias) > 0 {
			best = *f
			bestBias = fb
		}
	}
	return best
}

// Join records id in finger[0] if it is empty or closer to self than the
// current finger[0].
func (ft *FingerTable) Join(self, id ringid.Did) {
	if id == self {
		return
	}
	cur := ft.entries[0]
	if cur == nil || ringid.Less(self, id, *cur) {
		v := id
		ft.entries[0] = &v
	}
}

// Set overwrites finger table entry i with id. A nil id clears the entry.
func (ft *FingerTable) Set(i int, id *ringid.Did) {
	if i < 0 || i >= len(ft.entries) {
		return
	}
	if id == nil {
		ft.entries[i] = nil
		return
	}
	v := *id
	ft.entries[i] = &v
}

// Get returns finger table entry i.
func (ft *FingerTable) Get(i int) (ringid.Did, bool) {
	if i < 0 || i >= len(ft.entries) {
		return ringid.Did{}, false
	}
	if ft.entries[i] == nil {
		return ringid.Did{}, false
	}
	return *ft.entries[i], true
}

// Contains reports whether id currently occupies any finger table slot.
func (ft *FingerTable) Contains(id ringid.Did) bool {
	for _, f := range ft.entries {
		if f != nil && *f == id {
			return true
		}
	}
	return false
}

// Remove clears every slot pointing at id.
func (ft *FingerTable) Remove(id ringid.Did) {
	for i, f := range ft.entries {
		if f != nil && *f == id {
			ft.entries[i] = nil
		}
	}
}

// Clone returns a deep copy of the finger table, used to derive a
// SubRing's own finger table from an existing ring's.
func (ft *FingerTable) Clone() *FingerTable {
	out := &FingerTable{}
	for i, f := range ft.entries {
		if f != nil {
			v := *f
			out.entries[i] = &v
		}
	}
	return out
}
