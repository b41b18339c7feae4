package peerindex

import (
	"fmt"
	"net/netip"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talonbgp/talon/pkg/peers"
)

func testPeer(addr string, asn uint32) *peers.Peer {
	return &peers.Peer{
		Address: netip.MustParseAddr(addr),
		ASN:     asn,
	}
}

func TestRegisterAssignsSequentialIDs(t *testing.T) {
	// given
	index := NewIndex(Config{})

	// when
	first, firstErr := index.Register(testPeer("10.0.0.1", 64512))
	second, secondErr := index.Register(testPeer("10.0.0.2", 64513))

	// then
	require.NoError(t, firstErr)
	require.NoError(t, secondErr)
	assert.Equal(t, PeerID(1), first)
	assert.Equal(t, PeerID(2), second)
}

func TestRegisterIsIdempotentForTheSamePeer(t *testing.T) {
	// given
	index := NewIndex(Config{})
	peer := testPeer("10.0.0.1", 64512)
	id, err := index.Register(peer)
	require.NoError(t, err)

	// when
	again, err := index.Register(peer)

	// then
	assert.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, 1, index.Stats().Peers)
}

func TestRegisterRejectsBoundAddress(t *testing.T) {
	// given
	index := NewIndex(Config{})
	_, err := index.Register(testPeer("10.0.0.1", 64512))
	require.NoError(t, err)

	// when
	id, err := index.Register(testPeer("10.0.0.1", 64999))

	// then
	assert.ErrorIs(t, err, ErrAddressBound)
	assert.Equal(t, NullPeerID, id)
	assert.Equal(t, uint64(1), index.Stats().Conflicts)
}

func TestRegisterRejectsPeerBoundElsewhere(t *testing.T) {
	// given
	index := NewIndex(Config{})
	peer := testPeer("10.0.0.1", 64512)
	_, err := index.Register(peer)
	require.NoError(t, err)

	// when the caller rebinds the address behind the index's back
	peer.Address = netip.MustParseAddr("10.0.0.2")
	id, err := index.Register(peer)

	// then
	assert.ErrorIs(t, err, ErrPeerRegistered)
	assert.Equal(t, NullPeerID, id)
}

func TestRegisterRejectsPeerWithoutAddress(t *testing.T) {
	// given
	index := NewIndex(Config{})

	// when
	id, err := index.Register(&peers.Peer{ASN: 64512})

	// then
	assert.Error(t, err)
	assert.Equal(t, NullPeerID, id)
}

func TestDeregisterReleasesTheIDForReuse(t *testing.T) {
	// given
	index := NewIndex(Config{})
	first, err := index.Register(testPeer("10.0.0.1", 64512))
	require.NoError(t, err)
	_, err = index.Register(testPeer("10.0.0.2", 64513))
	require.NoError(t, err)

	// when
	_, ok := index.Deregister(netip.MustParseAddr("10.0.0.1"))
	require.True(t, ok)
	reused, err := index.Register(testPeer("10.0.0.3", 64514))

	// then
	require.NoError(t, err)
	assert.Equal(t, first, reused)
}

func TestDeregisterUnknownAddress(t *testing.T) {
	// given
	index := NewIndex(Config{})

	// when
	orphan, ok := index.Deregister(netip.MustParseAddr("10.0.0.1"))

	// then
	assert.False(t, ok)
	assert.Nil(t, orphan)
}

func TestSeekFindsRegisteredPeers(t *testing.T) {
	// given
	index := NewIndex(Config{})
	peer := testPeer("2001:db8::1", 64512)
	_, err := index.Register(peer)
	require.NoError(t, err)

	// when
	found, ok := index.Seek(netip.MustParseAddr("2001:db8::1"))
	_, missOK := index.Seek(netip.MustParseAddr("2001:db8::2"))

	// then
	assert.True(t, ok)
	assert.Same(t, peer, found)
	assert.False(t, missOK)
}

func TestSeekUnmapsFourInSixAddresses(t *testing.T) {
	// given
	index := NewIndex(Config{})
	peer := testPeer("10.0.0.1", 64512)
	_, err := index.Register(peer)
	require.NoError(t, err)

	// when the kernel reports the peer as a mapped IPv6 address
	found, ok := index.Seek(netip.MustParseAddr("::ffff:10.0.0.1"))

	// then
	assert.True(t, ok)
	assert.Same(t, peer, found)
}

func TestSeekEntrySnapshotsTheEntry(t *testing.T) {
	// given
	index := NewIndex(Config{})
	peer := testPeer("10.0.0.1", 64512)
	peer.AcceptTTL = 255
	id, err := index.Register(peer)
	require.NoError(t, err)

	// when
	view, ok := index.SeekEntry(peer.Address)

	// then
	require.True(t, ok)
	assert.Equal(t, id, view.ID)
	assert.Equal(t, peer.Address, view.Addr)
	assert.Equal(t, 255, view.AcceptTTL)
	assert.True(t, view.Enabled)
	assert.False(t, view.HasSession)
	assert.False(t, view.HasPending)
}

func TestSeekByID(t *testing.T) {
	// given
	index := NewIndex(Config{})
	id, err := index.Register(testPeer("10.0.0.1", 64512))
	require.NoError(t, err)

	// when
	view, ok := index.SeekByID(id)
	_, nullOK := index.SeekByID(NullPeerID)
	_, missOK := index.SeekByID(PeerID(4096))

	// then
	require.True(t, ok)
	assert.Equal(t, id, view.ID)
	assert.False(t, nullOK)
	assert.False(t, missOK)
}

func TestSetSessionAttachesAndDetaches(t *testing.T) {
	// given
	index := NewIndex(Config{})
	addr := netip.MustParseAddr("10.0.0.1")
	_, err := index.Register(testPeer("10.0.0.1", 64512))
	require.NoError(t, err)
	session := peers.NewMockSession()

	// when
	replaced, attachErr := index.SetSession(addr, session)
	view, _ := index.SeekEntry(addr)
	previous, detachErr := index.SetSession(addr, nil)
	detached, _ := index.SeekEntry(addr)

	// then
	assert.NoError(t, attachErr)
	assert.Nil(t, replaced)
	assert.True(t, view.HasSession)
	assert.NoError(t, detachErr)
	assert.Same(t, session, previous)
	assert.False(t, detached.HasSession)
}

func TestSetSessionUnknownAddress(t *testing.T) {
	// given
	index := NewIndex(Config{})

	// when
	_, err := index.SetSession(netip.MustParseAddr("10.0.0.1"), peers.NewMockSession())

	// then
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetEnabledFlipsTheEntry(t *testing.T) {
	// given
	index := NewIndex(Config{})
	addr := netip.MustParseAddr("10.0.0.1")
	_, err := index.Register(testPeer("10.0.0.1", 64512))
	require.NoError(t, err)

	// when
	_, err = index.SetEnabled(addr, false)
	disabled, _ := index.SeekEntry(addr)
	_, enableErr := index.SetEnabled(addr, true)
	enabled, _ := index.SeekEntry(addr)

	// then
	assert.NoError(t, err)
	assert.False(t, disabled.Enabled)
	assert.NoError(t, enableErr)
	assert.True(t, enabled.Enabled)
}

func TestEntriesOrderedByID(t *testing.T) {
	// given
	index := NewIndex(Config{})
	for n := 1; n <= 5; n++ {
		_, err := index.Register(testPeer(fmt.Sprintf("10.0.0.%d", n), 64512))
		require.NoError(t, err)
	}

	// when
	views := index.Entries()

	// then
	require.Len(t, views, 5)
	for n, view := range views {
		assert.Equal(t, PeerID(n+1), view.ID)
	}
}

func TestConcurrentChurnKeepsIDsAndAddressesUnique(t *testing.T) {
	// given
	index := NewIndex(Config{MaxPeers: 256})
	var wg sync.WaitGroup

	// when two goroutines register and deregister disjoint address ranges
	for g := 0; g < 2; g++ {
		wg.Add(1)
		go func(subnet int) {
			defer wg.Done()
			for n := 0; n < 50; n++ {
				peer := testPeer(fmt.Sprintf("10.0.%d.%d", subnet, n), 64512)
				_, err := index.Register(peer)
				assert.NoError(t, err)
				if n%2 == 0 {
					index.Deregister(peer.Address)
				}
			}
		}(g)
	}
	wg.Wait()

	// then every surviving entry holds a unique non-zero id and address
	seenIDs := map[PeerID]bool{}
	seenAddrs := map[netip.Addr]bool{}
	for _, view := range index.Entries() {
		assert.NotEqual(t, NullPeerID, view.ID)
		assert.False(t, seenIDs[view.ID], "id %d handed out twice", view.ID)
		assert.False(t, seenAddrs[view.Addr], "address %s bound twice", view.Addr)
		seenIDs[view.ID] = true
		seenAddrs[view.Addr] = true
	}
	assert.Len(t, seenIDs, 50)
	assert.Equal(t, 50, index.Stats().Peers)
}

func TestIndexCapacity(t *testing.T) {
	// given a single-slab index
	index := NewIndex(Config{MaxPeers: 10})

	// when
	var lastErr error
	registered := 0
	for n := 0; n < 65; n++ {
		_, err := index.Register(testPeer(fmt.Sprintf("10.0.%d.%d", n/256, n%256), 64512))
		if err != nil {
			lastErr = err
			break
		}
		registered++
	}

	// then the cap is rounded up to a whole slab
	assert.Equal(t, 64, registered)
	assert.ErrorIs(t, lastErr, ErrIndexFull)
	assert.Equal(t, 64, index.Stats().Capacity)
	assert.Equal(t, 0, index.Stats().FreeIDs)
}
