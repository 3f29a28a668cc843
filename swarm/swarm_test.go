package swarm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringmesh-project/ringmesh/ringid"
)

func testDid(b byte) ringid.Did {
	var d ringid.Did
	for i := range d {
		d[i] = b + byte(i)
	}
	return d
}

func TestSwarm_PendingTransportLifecycle(t *testing.T) {
	self := testDid(1)
	s := New(self, nil)

	a, _ := NewMemTransportPair()
	s.NewTransport(a)

	_, ok := s.FindPendingTransport(a.UUID())
	require.True(t, ok)

	peer := testDid(9)
	promoted, ok := s.PopPendingTransport(a.UUID(), peer)
	require.True(t, ok)
	assert.Same(t, Transport(a), promoted)

	_, stillPending := s.FindPendingTransport(a.UUID())
	assert.False(t, stillPending)

	got, ok := s.GetTransport(peer)
	require.True(t, ok)
	assert.Same(t, Transport(a), got)
}

func TestSwarm_RegisterDirect(t *testing.T) {
	self := testDid(1)
	s := New(self, nil)
	a, _ := NewMemTransportPair()

	peer := testDid(5)
	s.Register(peer, a)

	got, ok := s.GetTransport(peer)
	require.True(t, ok)
	assert.Same(t, Transport(a), got)
	assert.Equal(t, 1, s.TransportCount())

	addr, ok := a.Address()
	require.True(t, ok)
	assert.Equal(t, peer, addr)
}

func TestSwarm_SendPayloadRoundTrip(t *testing.T) {
	self := testDid(1)
	peer := testDid(2)

	sA := New(self, nil)
	sB := New(peer, nil)

	a, b := NewMemTransportPair()
	sA.Register(peer, a)
	sB.Register(self, b)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, sA.SendPayload(ctx, peer, []byte("hello")))

	got, err := sB.PollMessage(ctx, self)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestSwarm_SendPayload_NoTransport(t *testing.T) {
	s := New(testDid(1), nil)
	err := s.SendPayload(context.Background(), testDid(2), []byte("x"))
	assert.Error(t, err)
}

func TestSwarm_RemoveTransport(t *testing.T) {
	s := New(testDid(1), nil)
	a, _ := NewMemTransportPair()
	peer := testDid(7)
	s.Register(peer, a)

	s.RemoveTransport(peer)
	_, ok := s.GetTransport(peer)
	assert.False(t, ok)
	assert.Equal(t, 0, s.TransportCount())
}

func TestSwarm_Peers(t *testing.T) {
	s := New(testDid(1), nil)
	a, _ := NewMemTransportPair()
	c, _ := NewMemTransportPair()
	s.Register(testDid(2), a)
	s.Register(testDid(3), c)

	peers := s.Peers()
	assert.Len(t, peers, 2)
}
