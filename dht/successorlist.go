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

package dht

import "github.com/ringmesh-project/ringmesh/ringid"

// DefaultSuccessorListSize is the recommended k from the spec.
const DefaultSuccessorListSize = 3

// SuccessorList is an ordered, bounded list of up to k successors,
// bias-sorted from the owning node, deduplicated, and never containing
// the owning node itself.
type SuccessorList struct {
	k     int
	items []ringid.Did
}

// NewSuccessorList returns an empty successor list bounded to k entries.
// k is clamped to at least 1.
func NewSuccessorList(k int) *SuccessorList {
	if k < 1 {
		k = 1
	}
	return &SuccessorList{k: k}
}

// Update inserts id preserving bias_self-sorted order, drops the farthest
// entry if the list grows past k, and is a no-op if id == self or id is
// already present.
func (sl *SuccessorList) Update(self, id ringid.Did) {
	if id == self {
		return
	}
	for _, existing := range sl.items {
		if existing == id {
			return
		}
	}

	idx := 0
	idBias := ringid.Bias(self, id)
	for idx < len(sl.items) && ringid.Bias(self, sl.items[idx]).Cmp(idBias) < 0 {
		idx++
	}

	sl.items = append(sl.items, ringid.Did{})
	copy(sl.items[idx+1:], sl.items[idx:])
	sl.items[idx] = id

	if len(sl.items) > sl.k {
		sl.items = sl.items[:sl.k]
	}
}

// Remove evicts id from the list, if present.
func (sl *SuccessorList) Remove(id ringid.Did) {
	for i, existing := range sl.items {
		if existing == id {
			sl.items = append(sl.items[:i], sl.items[i+1:]...)
			return
		}
	}
}

// Min returns the closest successor (lowest bias from self), if any.
func (sl *SuccessorList) Min() (ringid.Did, bool) {
	if len(sl.items) == 0 {
		return ringid.Did{}, false
	}
	return sl.items[0], true
}

// Max returns the farthest successor currently tracked (highest bias from
// self among the bounded list), if any.
func (sl *SuccessorList) Max() (ringid.Did, bool) {
	if len(sl.items) == 0 {
		return ringid.Did{}, false
	}
	return sl.items[len(sl.items)-1], true
}

// List returns a copy of the successor list in bias-sorted order.
func (sl *SuccessorList) List() []ringid.Did {
	out := make([]ringid.Did, len(sl.items))
	copy(out, sl.items)
	return out
}

// Len returns the number of successors currently tracked.
func (sl *SuccessorList) Len() int {
	return len(sl.items)
}

// Contains reports whether id is present in the list.
func (sl *SuccessorList) Contains(id ringid.Did) bool {
	for _, existing := range sl.items {
		if existing == id {
			return true
		}
	}
	return false
}
