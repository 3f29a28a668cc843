package dht

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringmesh-project/ringmesh/ringid"
)

func randDid(t *testing.T, seed byte) ringid.Did {
	t.Helper()
	var d ringid.Did
	for i := range d {
		d[i] = seed + byte(i)*7 + 1
	}
	return d
}

func TestFingerTable_ClosestPrecedingNode_EmptyReturnsSelf(t *testing.T) {
	ft := NewFingerTable()
	self := randDid(t, 1)
	id := randDid(t, 100)
	assert.Equal(t, self, ft.ClosestPrecedingNode(self, id))
}

func TestFingerTable_ClosestPrecedingNode_PicksLargestStrictlyLess(t *testing.T) {
	ft := NewFingerTable()
	self := randDid(t, 1)
	id := randDid(t, 200)

	near := self.Add(2)
	far := self.Add(5)
	tooFar := self.Add(159) // likely beyond id's bias depending on id

	ft.Set(2, &near)
	ft.Set(5, &far)
	ft.Set(10, &tooFar)

	got := ft.ClosestPrecedingNode(self, id)
	// got must have bias_self(got) < bias_self(id), and no entry in the
	// table may have a bias between got's and id's.
	targetBias := ringid.Bias(self, id)
	gotBias := ringid.Bias(self, got)
	require.True(t, gotBias.Cmp(targetBias) < 0)

	for i := 0; i < ringid.Width; i++ {
		f, ok := ft.Get(i)
		if !ok {
			continue
		}
		fb := ringid.Bias(self, f)
		if fb.Cmp(targetBias) < 0 {
			require.True(t, fb.Cmp(gotBias) <= 0, "entry %d closer to id than chosen result", i)
		}
	}
}

func TestFingerTable_Join_SetsClosestFirstEntry(t *testing.T) {
	ft := NewFingerTable()
	self := randDid(t, 1)
	other := randDid(t, 50)

	ft.Join(self, other)
	got, ok := ft.Get(0)
	require.True(t, ok)
	assert.Equal(t, other, got)

	// self is never joined
	ft.Join(self, self)
	got, ok = ft.Get(0)
	require.True(t, ok)
	assert.Equal(t, other, got)
}

func TestFingerTable_SetGetContainsRemove(t *testing.T) {
	ft := NewFingerTable()
	id := randDid(t, 9)

	_, ok := ft.Get(3)
	assert.False(t, ok)
	assert.False(t, ft.Contains(id))

	ft.Set(3, &id)
	got, ok := ft.Get(3)
	require.True(t, ok)
	assert.Equal(t, id, got)
	assert.True(t, ft.Contains(id))

	ft.Remove(id)
	assert.False(t, ft.Contains(id))
	_, ok = ft.Get(3)
	assert.False(t, ok)
}

func TestFingerTable_Set_OutOfRangeIsNoop(t *testing.T) {
	ft := NewFingerTable()
	id := randDid(t, 9)
	ft.Set(-1, &id)
	ft.Set(ringid.Width, &id)
	assert.False(t, ft.Contains(id))
}

func TestFingerTable_Clone_IsDeepCopy(t *testing.T) {
	ft := NewFingerTable()
	id := randDid(t, 9)
	ft.Set(4, &id)

	clone := ft.Clone()
	require.True(t, clone.Contains(id))

	other := randDid(t, 80)
	clone.Set(4, &other)

	// original untouched
	got, ok := ft.Get(4)
	require.True(t, ok)
	assert.Equal(t, id, got)
}
