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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringmesh-project/ringmesh/crypto/keys"
	"github.com/ringmesh-project/ringmesh/dht"
	"github.com/ringmesh-project/ringmesh/handler"
	"github.com/ringmesh-project/ringmesh/relay"
	"github.com/ringmesh-project/ringmesh/swarm"
)

func newTestHandler(t *testing.T) *handler.Handler {
	t.Helper()
	kp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	id, err := relay.AddressOf(kp)
	require.NoError(t, err)

	r := dht.NewRing(id, dht.DefaultSuccessorListSize)
	sw := swarm.New(id, nil)
	return handler.New(kp, r, sw, 0, nil)
}

func TestRingStateHandler_ReportsSelfAndEmptyRing(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/ring", nil)
	rec := httptest.NewRecorder()
	ringStateHandler(h)(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var st ringState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, h.Self().String(), st.Self)
	assert.Empty(t, st.Predecessor)
	assert.Empty(t, st.Peers)
}

func TestConnectHandler_RejectsNonPost(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/connect", nil)
	rec := httptest.NewRecorder()
	connectHandler(h)(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestConnectHandler_RejectsBadAddress(t *testing.T) {
	h := newTestHandler(t)

	body, err := json.Marshal(connectRequest{Address: "not-a-did"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/admin/connect", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	connectHandler(h)(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFetchRingState_RoundTripsOverHTTP(t *testing.T) {
	h := newTestHandler(t)

	srv := httptest.NewServer(http.HandlerFunc(ringStateHandler(h)))
	defer srv.Close()

	st, err := fetchRingState(srv.Listener.Addr().String())
	require.NoError(t, err)
	assert.Equal(t, h.Self().String(), st.Self)
}
