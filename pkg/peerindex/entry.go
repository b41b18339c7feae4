package peerindex

import (
	"net"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/talonbgp/talon/pkg/peers"
)

// PeerID is the small ordinal assigned to every indexed peer. Released ids
// are handed out again to later registrations, so ids stay dense and can be
// used for direct slot addressing.
type PeerID uint32

// NullPeerID is never assigned to a peer.
const NullPeerID PeerID = 0

type entryState uint8

const (
	entryFree entryState = iota
	entryInUse
)

// entry is one slot of the index, either free or bound to exactly one peer.
// All fields are guarded by the Index mutex.
type entry struct {
	state entryState
	id    PeerID

	addr    netip.Addr
	peer    *peers.Peer
	session peers.Session

	enabled   bool
	acceptTTL int

	pending *PendingConn
}

func (e *entry) bind(p *peers.Peer, addr netip.Addr) {
	e.addr = addr
	e.peer = p
	e.enabled = true
	e.acceptTTL = p.AcceptTTL
}

func (e *entry) clear() {
	e.state = entryFree
	e.id = NullPeerID
	e.addr = netip.Addr{}
	e.peer = nil
	e.session = nil
	e.enabled = false
	e.acceptTTL = 0
	e.pending = nil
}

// EntryView is a copy of the entry, taken under the index lock. The Peer
// pointer is safe to carry out of the lock because peers are immutable.
// Everything else is a snapshot; the accept path works on the copy and
// therefore never races with the session side mutating the live entry.
type EntryView struct {
	ID         PeerID
	Addr       netip.Addr
	Peer       *peers.Peer
	Enabled    bool
	AcceptTTL  int
	HasSession bool
	HasPending bool
}

func (e *entry) view() EntryView {
	return EntryView{
		ID:         e.id,
		Addr:       e.addr,
		Peer:       e.peer,
		Enabled:    e.enabled,
		AcceptTTL:  e.acceptTTL,
		HasSession: e.session != nil,
		HasPending: e.pending != nil,
	}
}

// PendingConn is an accepted connection deposited for a peer and not yet
// claimed by the session side. The Tag correlates log lines across the two
// goroutines that touch the connection.
type PendingConn struct {
	Conn        net.Conn
	Tag         string
	DepositedAt time.Time
}

// NewPendingConn wraps a freshly accepted connection. Call it before
// Deposit, not inside any index operation.
func NewPendingConn(conn net.Conn) *PendingConn {
	return &PendingConn{
		Conn:        conn,
		Tag:         uuid.New().String()[:6],
		DepositedAt: time.Now(),
	}
}
