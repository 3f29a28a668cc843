package handler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ringmeshcrypto "github.com/ringmesh-project/ringmesh/crypto"
	"github.com/ringmesh-project/ringmesh/crypto/keys"
	"github.com/ringmesh-project/ringmesh/dht"
	"github.com/ringmesh-project/ringmesh/relay"
	"github.com/ringmesh-project/ringmesh/ringid"
	"github.com/ringmesh-project/ringmesh/swarm"
)

type node struct {
	key ringmeshcrypto.KeyPair
	id  ringid.Did
	h   *Handler
}

func newNode(t *testing.T) *node {
	t.Helper()
	kp, err := keys.GenerateEd25519KeyPair()
	require.NoError(t, err)
	id, err := relay.AddressOf(kp)
	require.NoError(t, err)

	r := dht.NewRing(id, dht.DefaultSuccessorListSize)
	sw := swarm.New(id, nil)
	h := New(kp, r, sw, 0, nil)
	return &node{key: kp, id: id, h: h}
}

// wire connects two nodes' swarms with an in-memory transport pair and
// registers each side under the other's address, mirroring what a
// completed ConnectNodeReport handshake would leave behind.
func wire(a, b *node) {
	ta, tb := swarm.NewMemTransportPair()
	a.h.Swarm().Register(b.id, ta)
	b.h.Swarm().Register(a.id, tb)
}

func TestHandler_JoinDHT_TwoPeerBringUp(t *testing.T) {
	a := newNode(t)
	b := newNode(t)
	wire(a, b)

	ctx := context.Background()

	// A and B each self-loopback JoinDHT with the other's id, as link-up
	// would trigger.
	envA, err := relay.New(JoinDHT(b.id), a.key, 0, nil, relay.MethodSend)
	require.NoError(t, err)
	require.NoError(t, a.h.Handle(ctx, envA))

	envB, err := relay.New(JoinDHT(a.id), b.key, 0, nil, relay.MethodSend)
	require.NoError(t, err)
	require.NoError(t, b.h.Handle(ctx, envB))

	succA, ok := a.h.Ring().SuccessorID()
	require.True(t, ok)
	assert.Equal(t, b.id, succA)

	succB, ok := b.h.Ring().SuccessorID()
	require.True(t, ok)
	assert.Equal(t, a.id, succB)
}

func TestHandler_Handle_DropsExpiredEnvelope(t *testing.T) {
	a := newNode(t)
	b := newNode(t)

	env, err := relay.New(JoinDHT(b.id), a.key, time.Millisecond, nil, relay.MethodSend)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, a.h.Handle(context.Background(), env))
	_, ok := a.h.Ring().SuccessorID()
	assert.False(t, ok)
}

func TestHandler_Handle_DropsBadSignature(t *testing.T) {
	a := newNode(t)
	b := newNode(t)

	env, err := relay.New(JoinDHT(b.id), a.key, 0, nil, relay.MethodSend)
	require.NoError(t, err)
	env.Data = JoinDHT(a.id) // mutate payload after signing

	require.NoError(t, a.h.Handle(context.Background(), env))
	_, ok := a.h.Ring().SuccessorID()
	assert.False(t, ok)
}

func TestHandler_NotifyPredecessor_RoundTrip(t *testing.T) {
	a := newNode(t)
	b := newNode(t)
	wire(a, b)
	ctx := context.Background()

	env, err := relay.New(NotifyPredecessorSend(a.id), a.key, 0, []ringid.Did{b.id}, relay.MethodSend)
	require.NoError(t, err)
	require.NoError(t, b.h.Handle(ctx, env))

	pred, ok := b.h.Ring().PredecessorID()
	require.True(t, ok)
	assert.Equal(t, a.id, pred)
}

func TestHandler_StoreVNode_LocalWhenResponsible(t *testing.T) {
	a := newNode(t)
	ctx := context.Background()

	v := dht.NewDataVNode(a.id, [][]byte{[]byte("hello")})
	env, err := relay.New(StoreVNode([]dht.VirtualNode{v}), a.key, 0, nil, relay.MethodSend)
	require.NoError(t, err)
	require.NoError(t, a.h.Handle(ctx, env))

	got, ok := a.h.Ring().Load(a.id)
	require.True(t, ok)
	assert.Equal(t, v.Data, got.Data)
}
