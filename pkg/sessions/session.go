package sessions

import (
	"net"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/talonbgp/talon/pkg/peers"
)

// Factory builds the session that will handle a newly added peer.
type Factory func(p *peers.Peer) peers.Session

// session tracks the transport connection of one peer. Adopting a
// connection while another is live hands the old one back to the kernel;
// the newest connection always wins.
type session struct {
	mu     sync.Mutex
	conn   net.Conn
	closed bool
	logger *logrus.Entry
}

// NewSession creates session instances for a single peer
func NewSession(p *peers.Peer) peers.Session {
	return &session{
		logger: logrus.WithField("peer", p.String()),
	}
}

func (s *session) Adopt(conn net.Conn) error {
	s.mu.Lock()
	previous := s.conn
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return peers.ErrSessionClosed
	}
	s.conn = conn
	s.mu.Unlock()

	if previous != nil {
		s.logger.Info("Session swaps its connection for a fresher one")
		previous.Close()
	} else {
		s.logger.Infof("Session adopted connection from %s", conn.RemoteAddr())
	}
	return nil
}

func (s *session) Established() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil && !s.closed
}

func (s *session) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.closed = true
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	s.logger.Info("Session closed")
	return conn.Close()
}
