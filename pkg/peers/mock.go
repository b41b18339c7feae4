package peers

import (
	"net"
	"sync"
)

// MockSession implements Session and can be used for unit tests
type MockSession struct {
	mu      sync.Mutex
	conn    net.Conn
	adopted []net.Conn
	closed  bool
}

// Adopt implements Session
func (s *MockSession) Adopt(conn net.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.conn = conn
	s.adopted = append(s.adopted, conn)
	return nil
}

// Established implements Session
func (s *MockSession) Established() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil && !s.closed
}

// Close implements Session
func (s *MockSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	return nil
}

// Adopted returns every connection the session was ever handed, in order
func (s *MockSession) Adopted() []net.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]net.Conn, len(s.adopted))
	copy(out, s.adopted)
	return out
}

// NewMockSession creates MockSession instances
func NewMockSession() *MockSession {
	return &MockSession{}
}
