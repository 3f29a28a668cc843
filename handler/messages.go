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

// Package handler binds the relay envelope layer to ring maintenance and
// swarm connection bring-up: the Handler owns both a dht.Ring and a
// swarm.Swarm directly and mediates between them, so neither needs a back
// reference to the other.
package handler

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/ringmesh-project/ringmesh/dht"
	"github.com/ringmesh-project/ringmesh/ringid"
)

// Kind tags the variant carried by a Message.
type Kind string

const (
	KindJoinDHT                 Kind = "join_dht"
	KindLeaveDHT                Kind = "leave_dht"
	KindConnectNodeSend         Kind = "connect_node_send"
	KindConnectNodeReport       Kind = "connect_node_report"
	KindAlreadyConnected        Kind = "already_connected"
	KindFindSuccessorSend       Kind = "find_successor_send"
	KindFindSuccessorReport     Kind = "find_successor_report"
	KindNotifyPredecessorSend   Kind = "notify_predecessor_send"
	KindNotifyPredecessorReport Kind = "notify_predecessor_report"
	KindSyncVNodeWithSuccessor  Kind = "sync_vnode_with_successor"
	KindStoreVNode              Kind = "store_vnode"
	KindCustom                  Kind = "custom"
)

// Message is the tagged union of every ring-maintenance and connection
// variant the handler dispatches on. A single struct with per-variant
// optional fields keeps dispatch to one switch instead of per-variant
// trait implementations.
type Message struct {
	Kind Kind `json:"kind"`

	// JoinDHT, LeaveDHT, NotifyPredecessorSend/Report
	ID ringid.Did `json:"id,omitempty"`

	// ConnectNodeSend/Report
	TransportUUID uuid.UUID `json:"transport_uuid,omitempty"`
	Handshake     string    `json:"handshake,omitempty"`

	// FindSuccessorSend/Report
	ForFix bool `json:"for_fix,omitempty"`

	// SyncVNodeWithSuccessor, StoreVNode
	VNodes []dht.VirtualNode `json:"vnodes,omitempty"`

	// Custom
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinDHT builds a JoinDHT message.
func JoinDHT(id ringid.Did) Message { return Message{Kind: KindJoinDHT, ID: id} }

// LeaveDHT builds a LeaveDHT message.
func LeaveDHT(id ringid.Did) Message { return Message{Kind: KindLeaveDHT, ID: id} }

// ConnectNodeSend builds a ConnectNodeSend message.
func ConnectNodeSend(transportUUID uuid.UUID, handshake string) Message {
	return Message{Kind: KindConnectNodeSend, TransportUUID: transportUUID, Handshake: handshake}
}

// ConnectNodeReport builds a ConnectNodeReport message.
func ConnectNodeReport(transportUUID uuid.UUID, handshake string) Message {
	return Message{Kind: KindConnectNodeReport, TransportUUID: transportUUID, Handshake: handshake}
}

// AlreadyConnected builds an AlreadyConnected message.
func AlreadyConnected() Message { return Message{Kind: KindAlreadyConnected} }

// FindSuccessorSend builds a FindSuccessorSend message.
func FindSuccessorSend(id ringid.Did, forFix bool) Message {
	return Message{Kind: KindFindSuccessorSend, ID: id, ForFix: forFix}
}

// FindSuccessorReport builds a FindSuccessorReport message.
func FindSuccessorReport(id ringid.Did, forFix bool) Message {
	return Message{Kind: KindFindSuccessorReport, ID: id, ForFix: forFix}
}

// NotifyPredecessorSend builds a NotifyPredecessorSend message.
func NotifyPredecessorSend(id ringid.Did) Message {
	return Message{Kind: KindNotifyPredecessorSend, ID: id}
}

// NotifyPredecessorReport builds a NotifyPredecessorReport message.
func NotifyPredecessorReport(id ringid.Did) Message {
	return Message{Kind: KindNotifyPredecessorReport, ID: id}
}

// SyncVNodeWithSuccessor builds a SyncVNodeWithSuccessor message.
func SyncVNodeWithSuccessor(vnodes []dht.VirtualNode) Message {
	return Message{Kind: KindSyncVNodeWithSuccessor, VNodes: vnodes}
}

// StoreVNode builds a StoreVNode message.
func StoreVNode(vnodes []dht.VirtualNode) Message {
	return Message{Kind: KindStoreVNode, VNodes: vnodes}
}

// CustomMessage wraps an application payload for delivery to the injected
// custom-message callback, with no ring side effects.
func CustomMessage(payload json.RawMessage) Message {
	return Message{Kind: KindCustom, Payload: payload}
}
