// Package peerindex keeps the authoritative mapping between neighbor
// addresses, peer ids and live peer state. The accept path and the session
// side share it through a single mutex; no operation does I/O or invokes
// callbacks while the lock is held.
package peerindex

import (
	"fmt"
	"net/netip"
	"sort"
	"sync"

	"github.com/talonbgp/talon/pkg/peers"
)

// Config carries the index limits.
type Config struct {
	// MaxPeers caps the number of ids the index will assign. Zero selects
	// a small default. The cap is rounded up to a whole allocation slab.
	MaxPeers int
}

// Index is the peer registry. All exported methods are safe for concurrent
// use.
type Index struct {
	mu      sync.Mutex
	arena   *arena
	byAddr  map[netip.Addr]*entry
	pending int

	deposits  uint64
	claims    uint64
	replaced  uint64
	discarded uint64
	conflicts uint64
}

// NewIndex creates Index instances.
func NewIndex(config Config) *Index {
	return &Index{
		arena:  newArena(config.MaxPeers),
		byAddr: make(map[netip.Addr]*entry),
	}
}

// Register assigns an id to the peer and binds its address. Registering the
// same peer under its existing address again returns the id it already
// holds.
func (i *Index) Register(p *peers.Peer) (PeerID, error) {
	addr := p.Address.Unmap()
	if !addr.IsValid() {
		return NullPeerID, fmt.Errorf("peer %q has no address", p.Description)
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	if e, ok := i.byAddr[addr]; ok {
		if e.peer == p {
			return e.id, nil
		}
		i.conflicts++
		return NullPeerID, fmt.Errorf("%w: %s", ErrAddressBound, addr)
	}
	for _, e := range i.byAddr {
		if e.peer == p {
			i.conflicts++
			return NullPeerID, fmt.Errorf("%w: %s is bound to %s", ErrPeerRegistered, p, e.addr)
		}
	}

	e := i.arena.allocate()
	if e == nil {
		i.conflicts++
		return NullPeerID, fmt.Errorf("%w: %d peers", ErrIndexFull, i.arena.capacity())
	}
	e.bind(p, addr)
	i.byAddr[addr] = e
	return e.id, nil
}

// Deregister unbinds the address and frees the peer's id for reuse. It
// returns the pending connection the entry still held, if any; the caller
// closes it outside the index.
func (i *Index) Deregister(addr netip.Addr) (*PendingConn, bool) {
	addr = addr.Unmap()
	i.mu.Lock()
	defer i.mu.Unlock()

	e, ok := i.byAddr[addr]
	if !ok {
		return nil, false
	}
	orphan := i.detachPending(e)
	delete(i.byAddr, addr)
	i.arena.release(e)
	return orphan, true
}

// Seek returns the peer bound to the address. It reflects registry state
// only and never waits on whatever the peer's session is doing.
func (i *Index) Seek(addr netip.Addr) (*peers.Peer, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	e, ok := i.byAddr[addr.Unmap()]
	if !ok {
		return nil, false
	}
	return e.peer, true
}

// SeekEntry returns a snapshot of the entry bound to the address.
func (i *Index) SeekEntry(addr netip.Addr) (EntryView, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	e, ok := i.byAddr[addr.Unmap()]
	if !ok {
		return EntryView{}, false
	}
	return e.view(), true
}

// SeekByID returns a snapshot of the entry holding the id.
func (i *Index) SeekByID(id PeerID) (EntryView, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	e := i.arena.entryAt(id)
	if e == nil || e.state != entryInUse {
		return EntryView{}, false
	}
	return e.view(), true
}

// SetSession attaches the session handling the peer and returns the one it
// replaces. Passing nil detaches. The caller owns closing the replaced
// session, outside the index.
func (i *Index) SetSession(addr netip.Addr, s peers.Session) (peers.Session, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	e, ok := i.byAddr[addr.Unmap()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, addr)
	}
	previous := e.session
	e.session = s
	return previous, nil
}

// SetEnabled flips the administrative state of the peer. Disabling returns
// the pending connection the entry held, if any, for the caller to close.
func (i *Index) SetEnabled(addr netip.Addr, enabled bool) (*PendingConn, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	e, ok := i.byAddr[addr.Unmap()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, addr)
	}
	e.enabled = enabled
	if enabled {
		return nil, nil
	}
	return i.detachPending(e), nil
}

// Entries returns a snapshot of every registered peer, ordered by id.
func (i *Index) Entries() []EntryView {
	i.mu.Lock()
	defer i.mu.Unlock()

	views := make([]EntryView, 0, len(i.byAddr))
	for _, e := range i.byAddr {
		views = append(views, e.view())
	}
	sort.Slice(views, func(a, b int) bool { return views[a].ID < views[b].ID })
	return views
}

// detachPending is called with the lock held.
func (i *Index) detachPending(e *entry) *PendingConn {
	pc := e.pending
	if pc != nil {
		e.pending = nil
		i.pending--
	}
	return pc
}
