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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringmesh-project/ringmesh/crypto/keys"
	"github.com/ringmesh-project/ringmesh/relay"
	"github.com/ringmesh-project/ringmesh/ringid"
	"github.com/ringmesh-project/ringmesh/swarm"
)

func TestExchangeHello_LearnsPeerDidAndAddress(t *testing.T) {
	akp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	aid, err := relay.AddressOf(akp)
	require.NoError(t, err)

	bkp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	bid, err := relay.AddressOf(bkp)
	require.NoError(t, err)

	ta, tb := swarm.NewMemTransportPair()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var gotB ringid.Did
	done := make(chan struct{})
	go func() {
		gotB, _ = exchangeHello(ctx, tb, bid, "ws://b:9000")
		close(done)
	}()

	gotA, err := exchangeHello(ctx, ta, aid, "ws://a:9000")
	require.NoError(t, err)
	<-done

	assert.Equal(t, bid, gotA)
	assert.Equal(t, aid, gotB)

	addr, ok := lookupAddress(bid)
	require.True(t, ok)
	assert.Equal(t, "ws://b:9000", addr)

	addr, ok = lookupAddress(aid)
	require.True(t, ok)
	assert.Equal(t, "ws://a:9000", addr)
}
