package dht

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringmesh-project/ringmesh/ringid"
)

func TestRing_FindSuccessor_AloneReturnsSelf(t *testing.T) {
	self := randDid(t, 1)
	r := NewRing(self, DefaultSuccessorListSize)

	act := r.FindSuccessor(randDid(t, 77))
	require.True(t, act.IsSome())
	assert.Equal(t, self, act.Did)
}

func TestRing_FindSuccessor_DirectHitOnSuccessor(t *testing.T) {
	self := randDid(t, 1)
	r := NewRing(self, DefaultSuccessorListSize)

	succ := self.Add(10)
	r.Successors.Update(self, succ)

	act := r.FindSuccessor(succ)
	require.True(t, act.IsSome())
	assert.Equal(t, succ, act.Did)
}

func TestRing_FindSuccessor_RoutesRemoteWhenFarther(t *testing.T) {
	self := randDid(t, 1)
	r := NewRing(self, DefaultSuccessorListSize)

	succ := self.Add(5)
	r.Successors.Update(self, succ)

	finger := self.Add(100)
	r.Finger.Set(100, &finger)

	target := self.Add(150)
	act := r.FindSuccessor(target)
	require.True(t, act.IsRemote())
	assert.Equal(t, finger, act.Next)
	assert.Equal(t, QueryFindSuccessor, act.Query.Kind)
	assert.Equal(t, target, act.Query.Target)
}

func TestRing_Join_SeedsFingerAndSuccessorAndReturnsRemote(t *testing.T) {
	self := randDid(t, 1)
	r := NewRing(self, DefaultSuccessorListSize)

	candidate := randDid(t, 40)
	act := r.Join(candidate)
	require.True(t, act.IsRemote())
	assert.Equal(t, candidate, act.Next)
	assert.Equal(t, QueryFindSuccessor, act.Query.Kind)

	got, ok := r.Finger.Get(0)
	require.True(t, ok)
	assert.Equal(t, candidate, got)
	assert.True(t, r.Successors.Contains(candidate))
}

func TestRing_Join_IgnoresSelf(t *testing.T) {
	self := randDid(t, 1)
	r := NewRing(self, DefaultSuccessorListSize)
	act := r.Join(self)
	assert.True(t, act.IsNone())
}

func TestRing_Notify_AcceptsFirstPredecessor(t *testing.T) {
	self := randDid(t, 1)
	r := NewRing(self, DefaultSuccessorListSize)

	cand := randDid(t, 20)
	r.Notify(cand)

	got, ok := r.PredecessorID()
	require.True(t, ok)
	assert.Equal(t, cand, got)
}

func valueDid(n uint64) ringid.Did {
	var d ringid.Did
	for i := 0; i < 8; i++ {
		d[19-i] = byte(n >> (8 * i))
	}
	return d
}

func TestRing_Notify_OnlyAcceptsCloserPredecessor(t *testing.T) {
	self := valueDid(1000)
	r := NewRing(self, DefaultSuccessorListSize)

	pred0 := valueDid(100)
	r.Notify(pred0)
	got, ok := r.PredecessorID()
	require.True(t, ok)
	assert.Equal(t, pred0, got)

	// candidate strictly between current predecessor and self is accepted
	// and moves the predecessor forward.
	closer := valueDid(500)
	r.Notify(closer)
	got, ok = r.PredecessorID()
	require.True(t, ok)
	assert.Equal(t, closer, got)

	// candidate outside (predecessor, self) is rejected.
	notBetween := valueDid(50)
	r.Notify(notBetween)
	got, ok = r.PredecessorID()
	require.True(t, ok)
	assert.Equal(t, closer, got)
}

func TestRing_Remove_ClearsAllReferences(t *testing.T) {
	self := randDid(t, 1)
	r := NewRing(self, DefaultSuccessorListSize)

	peer := randDid(t, 33)
	r.Successors.Update(self, peer)
	r.Finger.Set(3, &peer)
	r.Notify(peer)

	r.Remove(peer)

	assert.False(t, r.Successors.Contains(peer))
	assert.False(t, r.Finger.Contains(peer))
	_, ok := r.PredecessorID()
	assert.False(t, ok)
}

func TestRing_StoreLoadDrop(t *testing.T) {
	self := randDid(t, 1)
	r := NewRing(self, DefaultSuccessorListSize)

	v := NewDataVNode(randDid(t, 5), [][]byte{[]byte("hello")})
	r.Store(v)

	got, ok := r.Load(v.Address)
	require.True(t, ok)
	assert.Equal(t, v.Data, got.Data)

	r.Drop(v.Address)
	_, ok = r.Load(v.Address)
	assert.False(t, ok)
}

func TestRing_FixFinger_AdvancesCursorEachCall(t *testing.T) {
	self := randDid(t, 1)
	r := NewRing(self, DefaultSuccessorListSize)

	r.FixFinger()
	assert.Equal(t, 1, r.fixFingerIndex)
	r.FixFinger()
	assert.Equal(t, 2, r.fixFingerIndex)
}

func TestRing_FixFinger_WrapsAfterFullCircuit(t *testing.T) {
	self := randDid(t, 1)
	r := NewRing(self, DefaultSuccessorListSize)

	for i := 0; i < ringid.Width; i++ {
		r.FixFinger()
	}
	assert.Equal(t, 0, r.fixFingerIndex)
}

func TestRing_VNodesInRange(t *testing.T) {
	self := randDid(t, 1)
	r := NewRing(self, DefaultSuccessorListSize)

	inRange := self.Add(3)
	outOfRange := self.Add(150)

	r.Store(NewDataVNode(inRange, nil))
	r.Store(NewDataVNode(outOfRange, nil))

	hi := self.Add(10)
	got := r.VNodesInRange(self, hi)
	require.Len(t, got, 1)
	assert.Equal(t, inRange, got[0].Address)
}
