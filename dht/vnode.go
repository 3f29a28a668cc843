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

// VNodeKind distinguishes opaque application data from a SubRing's own
// bootstrap record, both of which live in the same content-addressed store.
type VNodeKind string

const (
	VNodeKindData    VNodeKind = "data"
	VNodeKindSubRing VNodeKind = "subring"
)

// VirtualNode is a content-addressed record stored by the node whose ring
// range covers Address. Data carries opaque, already-encoded payloads
// (relay.Encoded) so the storage layer never needs to know the concrete
// application type they were encoded from.
type VirtualNode struct {
	Address ringid.Did
	Kind    VNodeKind
	Data    [][]byte
}

// NewDataVNode builds a VNodeKindData virtual node.
func NewDataVNode(address ringid.Did, data [][]byte) VirtualNode {
	return VirtualNode{Address: address, Kind: VNodeKindData, Data: data}
}
