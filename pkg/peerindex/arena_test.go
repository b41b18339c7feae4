package peerindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaHandsOutTheLowestIDFirst(t *testing.T) {
	// given
	arena := newArena(slabSize)

	// when
	first := arena.allocate()
	second := arena.allocate()

	// then
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, PeerID(1), first.id)
	assert.Equal(t, PeerID(2), second.id)
}

func TestArenaReusesReleasedIDs(t *testing.T) {
	// given
	arena := newArena(slabSize)
	first := arena.allocate()
	arena.allocate()
	released := first.id

	// when
	arena.release(first)
	next := arena.allocate()

	// then
	require.NotNil(t, next)
	assert.Equal(t, released, next.id)
}

func TestArenaEntryAddressesSurviveGrowth(t *testing.T) {
	// given
	arena := newArena(4 * slabSize)
	first := arena.allocate()

	// when the arena grows by several slabs
	for n := 1; n < 3*slabSize; n++ {
		require.NotNil(t, arena.allocate())
	}

	// then the first entry is still reachable at its old address
	assert.Same(t, first, arena.entryAt(first.id))
}

func TestArenaRoundsCapacityToWholeSlabs(t *testing.T) {
	tests := []struct {
		name       string
		maxEntries int
		capacity   int
	}{
		{"zero picks the default", 0, slabSize},
		{"small caps round up", 1, slabSize},
		{"exact slabs stay", 2 * slabSize, 2 * slabSize},
		{"one past a slab adds another", slabSize + 1, 2 * slabSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.capacity, newArena(tt.maxEntries).capacity())
		})
	}
}

func TestArenaRefusesToGrowPastTheCap(t *testing.T) {
	// given
	arena := newArena(slabSize)
	for n := 0; n < slabSize; n++ {
		require.NotNil(t, arena.allocate())
	}

	// when
	extra := arena.allocate()

	// then
	assert.Nil(t, extra)
	assert.Equal(t, 0, arena.freeCount())
}

func TestArenaEntryAtOutOfRange(t *testing.T) {
	// given
	arena := newArena(slabSize)
	arena.allocate()

	// then
	assert.Nil(t, arena.entryAt(NullPeerID))
	assert.Nil(t, arena.entryAt(PeerID(slabSize+1)))
}

func TestArenaPanicsOnDoubleRelease(t *testing.T) {
	// given
	arena := newArena(slabSize)
	e := arena.allocate()
	arena.release(e)

	// then
	assert.Panics(t, func() { arena.release(e) })
}

func TestArenaPanicsOnReleaseWithPendingConnection(t *testing.T) {
	// given
	arena := newArena(slabSize)
	e := arena.allocate()
	e.pending = &PendingConn{}

	// then
	assert.Panics(t, func() { arena.release(e) })
}
