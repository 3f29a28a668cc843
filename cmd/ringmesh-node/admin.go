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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ringmesh-project/ringmesh/handler"
	"github.com/ringmesh-project/ringmesh/ringid"
)

// ringState is the JSON shape served by /admin/ring and parsed by the
// `ring` subcommand; it is this process's own administrative surface, not
// part of the overlay's wire protocol.
type ringState struct {
	Self          string   `json:"self"`
	Predecessor   string   `json:"predecessor,omitempty"`
	Successor     string   `json:"successor,omitempty"`
	Successors    []string `json:"successors"`
	Peers         []string `json:"peers"`
	FingersFilled int      `json:"fingers_filled"`
}

func ringStateHandler(h *handler.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ring := h.Ring()
		st := ringState{Self: h.Self().String()}

		if pred, ok := ring.PredecessorID(); ok {
			st.Predecessor = pred.String()
		}
		if succ, ok := ring.SuccessorID(); ok {
			st.Successor = succ.String()
		}
		for _, s := range ring.Successors.List() {
			st.Successors = append(st.Successors, s.String())
		}
		for _, p := range h.Swarm().Peers() {
			st.Peers = append(st.Peers, p.String())
		}
		st.FingersFilled = ring.Finger.Len()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(st)
	}
}

// connectRequest is the body accepted by /admin/connect.
type connectRequest struct {
	Address string `json:"address"`
}

func connectHandler(h *handler.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req connectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
			return
		}

		var addr ringid.Did
		if err := addr.UnmarshalText([]byte(req.Address)); err != nil {
			http.Error(w, fmt.Sprintf("bad address: %v", err), http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		if err := h.Connect(ctx, addr); err != nil {
			http.Error(w, fmt.Sprintf("connect failed: %v", err), http.StatusBadGateway)
			return
		}

		w.WriteHeader(http.StatusAccepted)
	}
}

// fetchRingState queries a running node's admin surface for its ring state.
func fetchRingState(adminAddr string) (*ringState, error) {
	resp, err := http.Get(fmt.Sprintf("http://%s/admin/ring", adminAddr))
	if err != nil {
		return nil, fmt.Errorf("request ring state: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ring state request failed: %s", resp.Status)
	}

	var st ringState
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode ring state: %w", err)
	}
	return &st, nil
}

// requestConnect asks a running node's admin surface to open a connection
// toward address.
func requestConnect(adminAddr, address string) error {
	body, err := json.Marshal(connectRequest{Address: address})
	if err != nil {
		return fmt.Errorf("encode connect request: %w", err)
	}

	resp, err := http.Post(fmt.Sprintf("http://%s/admin/connect", adminAddr), "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("connect request failed: %s", resp.Status)
	}
	return nil
}
