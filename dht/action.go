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
// GNU Lesser License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package dht

import "github.com/ringmesh-project/ringmesh/ringid"

// RemoteQueryKind tags the variant carried by a RemoteQuery.
type RemoteQueryKind string

const (
	QueryFindSuccessor          RemoteQueryKind = "find_successor"
	QuerySyncVNodeWithSuccessor RemoteQueryKind = "sync_vnode_with_successor"
	QueryFindAndJoinSubRing     RemoteQueryKind = "find_and_join_subring"
	QueryStoreVNode             RemoteQueryKind = "store_vnode"
	QueryNotifyPredecessor      RemoteQueryKind = "notify_predecessor"
)

// RemoteQuery is the payload a Ring operation wants relayed to Next when it
// cannot resolve something from local state alone.
type RemoteQuery struct {
	Kind      RemoteQueryKind
	Target    ringid.Did    // FindSuccessor / FindAndJoinSubRing target
	VNodes    []VirtualNode // SyncVNodeWithSuccessor / StoreVNode payload
	Candidate ringid.Did    // NotifyPredecessor candidate
}

// ActionKind tags the variant carried by an Action.
type ActionKind string

const (
	ActionKindNone   ActionKind = "none"
	ActionKindSome   ActionKind = "some"
	ActionKindRemote ActionKind = "remote"
)

// Action is the result of every dht.Ring operation: either nothing further
// is needed (None), the operation resolved to a local Did (Some), or the
// caller must relay a RemoteQuery on to Next and feed the reply back in
// (Remote). dht never performs network I/O itself — Action is how it hands
// that responsibility back to the handler layer.
type Action struct {
	Kind  ActionKind
	Did   ringid.Did
	Next  ringid.Did
	Query RemoteQuery
}

// ActionNone is the no-op action.
func ActionNone() Action {
	return Action{Kind: ActionKindNone}
}

// ActionSome wraps a locally-resolved Did.
func ActionSome(id ringid.Did) Action {
	return Action{Kind: ActionKindSome, Did: id}
}

// ActionRemote wraps a query that must be relayed to next.
func ActionRemote(next ringid.Did, query RemoteQuery) Action {
	return Action{Kind: ActionKindRemote, Next: next, Query: query}
}

// IsNone reports whether a is the no-op action.
func (a Action) IsNone() bool { return a.Kind == ActionKindNone }

// IsSome reports whether a resolved to a local Did.
func (a Action) IsSome() bool { return a.Kind == ActionKindSome }

// IsRemote reports whether a requires forwarding a RemoteQuery.
func (a Action) IsRemote() bool { return a.Kind == ActionKindRemote }
