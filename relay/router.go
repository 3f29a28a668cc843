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

package relay

import "github.com/ringmesh-project/ringmesh/ringid"

// Relay performs the single-hop routing transition on env as it passes
// through selfID; NextHop is updated according to Method.
//
// In SEND mode, the path grows by selfID (unless selfID is already the
// tail), and nextHop is taken from the caller's routing decision and
// stored verbatim; it is an error to pass nil unless env has already
// reached its Destination. In REPORT mode, Path is fixed (set once by
// InheritPath when the SEND envelope was turned into its REPORT reply)
// and must never be mutated here; nextHop is ignored and the reverse hop
// is computed from Path and PathEndCursor, which advances by one. When
// the cursor runs past the head of Path, the envelope has been delivered
// to the originator and NextHop becomes nil.
//
// MethodNone is rejected: it exists only for wire compatibility with
// envelopes captured before the SEND/REPORT split and carries no routing
// semantics.
func Relay[T any](env *Envelope[T], selfID ringid.Did, nextHop *ringid.Did) error {
	switch env.Method {
	case MethodSend:
		if len(env.Path) == 0 || env.Path[len(env.Path)-1] != selfID {
			env.Path = append(env.Path, selfID)
		}
		if nextHop == nil && env.Destination != selfID {
			return newError(ErrCannotInferNextHop, "relay", nil)
		}
		env.NextHop = nextHop
		return nil

	case MethodReport:
		env.PathEndCursor++
		idx := len(env.Path) - 1 - env.PathEndCursor
		if idx < 0 {
			env.NextHop = nil
			return nil
		}
		next := env.Path[idx]
		env.NextHop = &next
		return nil

	default:
		return newError(ErrUnsupportedMethod, "relay", nil)
	}
}

// Delivered reports whether a REPORT envelope has finished its reverse
// walk and been delivered back to the originator (NextHop == nil after a
// Relay call in REPORT mode).
func Delivered[T any](env *Envelope[T]) bool {
	return env.Method == MethodReport && env.NextHop == nil
}

// InheritPath clones src's path onto dst, as required when a handler
// converts a SEND envelope into its REPORT reply.
func InheritPath[A, B any](dst *Envelope[B], src *Envelope[A]) {
	dst.Path = append([]ringid.Did(nil), src.Path...)
	dst.PathEndCursor = 0
}
