package peerindex

import (
	"fmt"
	"net/netip"

	"github.com/talonbgp/talon/pkg/peers"
)

// Deposit parks an accepted connection on the peer's entry until the
// session side claims it. A connection already parked there is displaced
// and returned to the caller, who closes it outside the index. An error
// means the index did not take ownership of the connection.
func (i *Index) Deposit(addr netip.Addr, pc *PendingConn) (*PendingConn, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	e, ok := i.byAddr[addr.Unmap()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, addr)
	}
	if !e.enabled {
		return nil, fmt.Errorf("%w: %s", ErrPeerDisabled, addr)
	}
	replaced := i.detachPending(e)
	e.pending = pc
	i.pending++
	i.deposits++
	if replaced != nil {
		i.replaced++
	}
	return replaced, nil
}

// SeekAccept claims the pending connection deposited for the address. A
// connection is handed out exactly once; a second call finds nothing until
// the acceptor deposits again. Unknown addresses, disabled peers and empty
// pending slots all report not found.
func (i *Index) SeekAccept(addr netip.Addr) (*PendingConn, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	e, ok := i.byAddr[addr.Unmap()]
	if !ok || !e.enabled || e.pending == nil {
		return nil, false
	}
	pc := i.detachPending(e)
	i.claims++
	return pc, true
}

// Claimed pairs a pending connection with the session that should adopt
// it.
type Claimed struct {
	ID      PeerID
	Addr    netip.Addr
	Session peers.Session
	Pending *PendingConn
}

// DrainPending claims every pending connection whose entry has a session
// attached, in one pass under the lock. Entries without a session keep
// their connection parked until a session shows up or the discard timer
// fires.
func (i *Index) DrainPending() []Claimed {
	i.mu.Lock()
	defer i.mu.Unlock()

	var claimed []Claimed
	for _, e := range i.byAddr {
		if e.pending == nil || e.session == nil {
			continue
		}
		claimed = append(claimed, Claimed{
			ID:      e.id,
			Addr:    e.addr,
			Session: e.session,
			Pending: i.detachPending(e),
		})
		i.claims++
	}
	return claimed
}

// DiscardPending removes the pending connection only if it still is the
// one carrying the tag. Timers racing a claim or a newer deposit therefore
// discard nothing.
func (i *Index) DiscardPending(addr netip.Addr, tag string) (*PendingConn, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	e, ok := i.byAddr[addr.Unmap()]
	if !ok || e.pending == nil || e.pending.Tag != tag {
		return nil, false
	}
	pc := i.detachPending(e)
	i.discarded++
	return pc, true
}

// Stats is a point-in-time copy of the index counters.
type Stats struct {
	Peers    int
	Capacity int
	FreeIDs  int
	Pending  int

	Deposits  uint64
	Claims    uint64
	Replaced  uint64
	Discarded uint64
	Conflicts uint64
}

// Stats reports the current gauges and the running counters.
func (i *Index) Stats() Stats {
	i.mu.Lock()
	defer i.mu.Unlock()

	return Stats{
		Peers:     len(i.byAddr),
		Capacity:  i.arena.capacity(),
		FreeIDs:   i.arena.freeCount(),
		Pending:   i.pending,
		Deposits:  i.deposits,
		Claims:    i.claims,
		Replaced:  i.replaced,
		Discarded: i.discarded,
		Conflicts: i.conflicts,
	}
}
