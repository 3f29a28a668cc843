package handler

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringmesh-project/ringmesh/ringid"
	"github.com/ringmesh-project/ringmesh/swarm"
)

// orderedTriple returns three nodes a, b, c such that b lies strictly
// between a and c on the ring (ringid.Less(a.id, b.id, c.id)), so a's
// finger table has exactly one usable route toward c: through b.
func orderedTriple(t *testing.T) (a, b, c *node) {
	t.Helper()
	candidates := make([]*node, 5)
	for i := range candidates {
		candidates[i] = newNode(t)
	}
	a = candidates[0]
	rest := candidates[1:]
	sort.Slice(rest, func(i, j int) bool {
		return ringid.Less(a.id, rest[i].id, rest[j].id)
	})
	return a, rest[0], rest[1]
}

// TestHandler_Connect_TransitiveThroughRelay exercises S3 (transitive
// connect): a has a direct transport only to b, b has a direct transport
// only to c, and a has never exchanged a single byte with c. a.Connect(c)
// must route a ConnectNodeSend through b, have c accept and register its
// own half of a brand new transport, and walk a ConnectNodeReport back
// through b to a, ending with both a and c holding a working transport to
// each other.
func TestHandler_Connect_TransitiveThroughRelay(t *testing.T) {
	a, b, c := orderedTriple(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wire(a, b)
	wire(b, c)

	// a knows b as its successor and finger[0], so its route toward c
	// goes through b.
	a.h.Ring().Join(b.id)

	net := swarm.NewMemNetwork()
	a.h.SetMemNetwork(net)
	c.h.SetMemNetwork(net)

	require.NoError(t, a.h.Connect(ctx, c.id))

	// a -> b: the initial ConnectNodeSend, not yet at its destination.
	payload, err := b.h.Swarm().PollMessage(ctx, a.id)
	require.NoError(t, err)
	require.NoError(t, b.h.HandleEncoded(ctx, payload))

	// b -> c: forwarded along b's only route to c.
	payload, err = c.h.Swarm().PollMessage(ctx, b.id)
	require.NoError(t, err)
	require.NoError(t, c.h.HandleEncoded(ctx, payload))

	// c -> b: the ConnectNodeReport walking the inherited path in reverse.
	payload, err = b.h.Swarm().PollMessage(ctx, c.id)
	require.NoError(t, err)
	require.NoError(t, b.h.HandleEncoded(ctx, payload))

	// b -> a: delivered back to the originator.
	payload, err = a.h.Swarm().PollMessage(ctx, b.id)
	require.NoError(t, err)
	require.NoError(t, a.h.HandleEncoded(ctx, payload))

	_, ok := a.h.Swarm().GetTransport(c.id)
	require.True(t, ok, "initiator should hold a transport to the relay-only peer")
	_, ok = c.h.Swarm().GetTransport(a.id)
	require.True(t, ok, "acceptor should hold a transport back to the initiator")

	succA, ok := a.h.Ring().SuccessorID()
	require.True(t, ok)
	assert.Equal(t, b.id, succA)
}

// TestHandler_Connect_NoDialerOrMemNetwork verifies that Connect fails
// loudly instead of fabricating a transport nothing else is listening on
// when a handler was never given a TransportDialer or a MemNetwork.
func TestHandler_Connect_NoDialerOrMemNetwork(t *testing.T) {
	a := newNode(t)
	c := newNode(t)

	err := a.h.Connect(context.Background(), c.id)
	require.Error(t, err)

	_, ok := a.h.Swarm().GetTransport(c.id)
	assert.False(t, ok)
}

