package acceptor

import (
	"fmt"
	"io"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talonbgp/talon/pkg/peerindex"
	"github.com/talonbgp/talon/pkg/peers"
	"github.com/talonbgp/talon/pkg/wake"
)

var loopback = netip.MustParseAddr("127.0.0.1")

func indexWithLoopbackNeighbor(t *testing.T) *peerindex.Index {
	t.Helper()
	index := peerindex.NewIndex(peerindex.Config{})
	_, err := index.Register(&peers.Peer{Address: loopback, ASN: 64512})
	require.NoError(t, err)
	return index
}

func startAcceptor(t *testing.T, index *peerindex.Index, waker *wake.Waker, timeout time.Duration) *Acceptor {
	t.Helper()
	theAcceptor := NewAcceptor(index, waker, Config{
		ListenAddr:     "127.0.0.1:0",
		PendingTimeout: timeout,
	})
	require.NoError(t, theAcceptor.Listen())
	t.Cleanup(func() { theAcceptor.Close() })
	go theAcceptor.Run()
	return theAcceptor
}

func dialAcceptor(t *testing.T, theAcceptor *Acceptor) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", theAcceptor.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, check func() error) {
	t.Helper()
	assert.Nil(t, retry.Do(check, retry.Attempts(50), retry.Delay(time.Millisecond*20)))
}

func readsEOF(t *testing.T, conn net.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second*2)))
	_, err := conn.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}

func TestAddrBeforeListen(t *testing.T) {
	// given an acceptor that never bound its listener
	theAcceptor := NewAcceptor(peerindex.NewIndex(peerindex.Config{}), wake.NewWaker(), Config{
		ListenAddr: "127.0.0.1:0",
	})

	// then
	assert.Nil(t, theAcceptor.Addr())
}

func TestConnectionFromKnownNeighborIsParked(t *testing.T) {
	// given
	index := indexWithLoopbackNeighbor(t)
	theAcceptor := startAcceptor(t, index, wake.NewWaker(), 0)

	// when
	dialAcceptor(t, theAcceptor)

	// then
	waitFor(t, func() error {
		if pending := index.Stats().Pending; pending != 1 {
			return fmt.Errorf("there should be 1 parked connection, found %d", pending)
		}
		return nil
	})
	claimed, ok := index.SeekAccept(loopback)
	require.True(t, ok)
	assert.NotNil(t, claimed.Conn)
	claimed.Conn.Close()
}

func TestConnectionFromUnknownSourceIsClosed(t *testing.T) {
	// given an index with no neighbors at all
	index := peerindex.NewIndex(peerindex.Config{})
	theAcceptor := startAcceptor(t, index, wake.NewWaker(), 0)

	// when
	conn := dialAcceptor(t, theAcceptor)

	// then
	readsEOF(t, conn)
	assert.Equal(t, uint64(0), index.Stats().Deposits)
}

func TestConnectionFromDisabledNeighborIsClosed(t *testing.T) {
	// given
	index := indexWithLoopbackNeighbor(t)
	_, err := index.SetEnabled(loopback, false)
	require.NoError(t, err)
	theAcceptor := startAcceptor(t, index, wake.NewWaker(), 0)

	// when
	conn := dialAcceptor(t, theAcceptor)

	// then
	readsEOF(t, conn)
	assert.Equal(t, uint64(0), index.Stats().Deposits)
}

func TestFreshConnectionReplacesTheParkedOne(t *testing.T) {
	// given
	index := indexWithLoopbackNeighbor(t)
	theAcceptor := startAcceptor(t, index, wake.NewWaker(), 0)
	first := dialAcceptor(t, theAcceptor)
	waitFor(t, func() error {
		if pending := index.Stats().Pending; pending != 1 {
			return fmt.Errorf("there should be 1 parked connection, found %d", pending)
		}
		return nil
	})

	// when the neighbor retries before anybody claimed the first connection
	dialAcceptor(t, theAcceptor)

	// then the stale connection is closed and the fresh one is parked
	readsEOF(t, first)
	waitFor(t, func() error {
		if replaced := index.Stats().Replaced; replaced != 1 {
			return fmt.Errorf("there should be 1 replaced connection, found %d", replaced)
		}
		return nil
	})
	claimed, ok := index.SeekAccept(loopback)
	require.True(t, ok)
	claimed.Conn.Close()
	assert.Equal(t, 0, index.Stats().Pending)
}

func TestUnclaimedConnectionIsDiscarded(t *testing.T) {
	// given an acceptor with a very short claim window
	index := indexWithLoopbackNeighbor(t)
	theAcceptor := startAcceptor(t, index, wake.NewWaker(), time.Millisecond*50)

	// when
	conn := dialAcceptor(t, theAcceptor)

	// then
	waitFor(t, func() error {
		if discarded := index.Stats().Discarded; discarded != 1 {
			return fmt.Errorf("there should be 1 discarded connection, found %d", discarded)
		}
		return nil
	})
	readsEOF(t, conn)
	_, ok := index.SeekAccept(loopback)
	assert.False(t, ok)
}

func TestAcceptedConnectionKicksTheWaker(t *testing.T) {
	// given
	index := indexWithLoopbackNeighbor(t)
	waker := wake.NewWaker()
	theAcceptor := startAcceptor(t, index, waker, 0)

	// when
	dialAcceptor(t, theAcceptor)

	// then
	select {
	case <-waker.C():
	case <-time.After(time.Second * 2):
		t.Fatal("the session side was never woken up")
	}
}
