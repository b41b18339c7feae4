package peers

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
)

// ErrSessionClosed is returned when a connection is handed to a session
// that was already torn down
var ErrSessionClosed = errors.New("session is closed")

// Peer is a single configured BGP neighbor. The fields describe the
// neighbor as configured and are never modified after construction, so a
// *Peer can be shared between the accept side and the session side without
// any locking of its own.
type Peer struct {
	Address     netip.Addr `json:"address"`
	ASN         uint32     `json:"asn"`
	Description string     `json:"description"`

	// Passive peers never dial out, they only adopt inbound connections.
	Passive bool `json:"passive"`

	// AcceptTTL, when non-zero, is applied as the IP TTL on connections
	// accepted for this peer. GTSM-style neighbors expect 255 here.
	AcceptTTL int `json:"acceptTTL"`
}

func (p *Peer) String() string {
	return fmt.Sprintf("%s (AS%d)", p.Address, p.ASN)
}

// Session is the protocol engine run for a peer once a connection is
// available. The index stores Session references but never calls into
// them, the methods exist for the session manager and the status API.
type Session interface {
	// Adopt hands a freshly claimed connection over to the session. The
	// session takes ownership of the connection and closes it on teardown.
	Adopt(conn net.Conn) error

	// Established reports whether the session currently runs on a live
	// connection.
	Established() bool

	Close() error
}
