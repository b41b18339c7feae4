package sessions

import (
	"context"
	"net/netip"

	"github.com/sirupsen/logrus"
	"github.com/talonbgp/talon/pkg/peerindex"
	"github.com/talonbgp/talon/pkg/peers"
	"github.com/talonbgp/talon/pkg/wake"
	"go.uber.org/multierr"
)

// Manager runs the session side of the index. It owns session lifecycles,
// wakes up when the acceptor parks connections and delivers every claimed
// connection to the session of its peer.
type Manager struct {
	index   *peerindex.Index
	waker   *wake.Waker
	factory Factory
	dialer  Dialer
	logger  *logrus.Entry
}

// NewManager creates Manager instances. A nil factory selects the default
// session implementation, a nil dialer disables outbound connects.
func NewManager(index *peerindex.Index, waker *wake.Waker, factory Factory, dialer Dialer) *Manager {
	if factory == nil {
		factory = NewSession
	}
	return &Manager{
		index:   index,
		waker:   waker,
		factory: factory,
		dialer:  dialer,
		logger:  logrus.WithField("component", "sessions"),
	}
}

// AddPeer registers the peer in the index and attaches a fresh session to
// it. Non-passive peers also get an outbound connection attempt.
func (m *Manager) AddPeer(ctx context.Context, p *peers.Peer) (peerindex.PeerID, error) {
	id, registerErr := m.index.Register(p)
	if registerErr != nil {
		return peerindex.NullPeerID, registerErr
	}
	if view, ok := m.index.SeekEntry(p.Address); ok && view.HasSession {
		return id, nil
	}
	session := m.factory(p)
	displaced, sessionErr := m.index.SetSession(p.Address, session)
	if sessionErr != nil {
		return peerindex.NullPeerID, sessionErr
	}
	if displaced != nil {
		displaced.Close()
	}
	m.logger.Infof("Added neighbor %s, peer id %d", p, id)
	// a connection accepted before the session was attached is waiting in
	// the index already, claim it now instead of waiting for the next kick
	if pc, ok := m.index.SeekAccept(p.Address); ok {
		m.adopt(p.Address, session, pc)
	}
	if !p.Passive && m.dialer != nil {
		go m.dial(ctx, p, session)
	}
	return id, nil
}

// RemovePeer tears the peer down: session detached and closed, id freed,
// any parked connection closed.
func (m *Manager) RemovePeer(addr netip.Addr) error {
	previous, detachErr := m.index.SetSession(addr, nil)
	if detachErr != nil {
		return detachErr
	}
	orphan, _ := m.index.Deregister(addr)
	var result error
	if previous != nil {
		result = multierr.Append(result, previous.Close())
	}
	if orphan != nil {
		orphan.Conn.Close()
	}
	m.logger.Infof("Removed neighbor %s", addr)
	return result
}

// SetEnabled flips the administrative state. Disabling closes the session
// and whatever connection was parked; enabling attaches a fresh session
// and dials active peers again.
func (m *Manager) SetEnabled(ctx context.Context, addr netip.Addr, enabled bool) error {
	orphan, err := m.index.SetEnabled(addr, enabled)
	if err != nil {
		return err
	}
	if orphan != nil {
		orphan.Conn.Close()
	}
	if !enabled {
		previous, _ := m.index.SetSession(addr, nil)
		if previous != nil {
			previous.Close()
		}
		m.logger.Infof("Disabled neighbor %s", addr)
		return nil
	}
	view, ok := m.index.SeekEntry(addr)
	if ok && !view.HasSession {
		session := m.factory(view.Peer)
		displaced, _ := m.index.SetSession(addr, session)
		if displaced != nil {
			displaced.Close()
		}
		if pc, claimedOK := m.index.SeekAccept(addr); claimedOK {
			m.adopt(addr, session, pc)
		}
		if !view.Peer.Passive && m.dialer != nil {
			go m.dial(ctx, view.Peer, session)
		}
	}
	m.logger.Infof("Enabled neighbor %s", addr)
	return nil
}

// Run delivers parked connections until the context is cancelled. The
// waker is rearmed before draining, so a connection parked mid-drain
// schedules the next round instead of getting stuck.
func (m *Manager) Run(ctx context.Context) error {
	m.logger.Info("Session manager running")
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Session manager shut down")
			return nil
		case <-m.waker.C():
			m.waker.Done()
			m.deliver()
		}
	}
}

// Close tears down every attached session. Connections still parked in
// the index are left to their discard timers.
func (m *Manager) Close() error {
	var result error
	for _, view := range m.index.Entries() {
		previous, err := m.index.SetSession(view.Addr, nil)
		if err != nil || previous == nil {
			continue
		}
		result = multierr.Append(result, previous.Close())
	}
	return result
}

func (m *Manager) deliver() {
	for _, claimed := range m.index.DrainPending() {
		m.adopt(claimed.Addr, claimed.Session, claimed.Pending)
	}
}

// adopt hands a claimed connection over, closing it when the session
// refuses.
func (m *Manager) adopt(addr netip.Addr, session peers.Session, pc *peerindex.PendingConn) {
	logger := m.logger.WithField("conn", pc.Tag)
	if adoptErr := session.Adopt(pc.Conn); adoptErr != nil {
		logger.Warnf("Session of %s refused the connection: %v", addr, adoptErr)
		pc.Conn.Close()
		return
	}
	logger.Infof("Delivered connection to the session of %s", addr)
}

func (m *Manager) dial(ctx context.Context, p *peers.Peer, session peers.Session) {
	conn, dialErr := m.dialer.Dial(ctx, p.Address)
	if dialErr != nil {
		m.logger.Warnf("Could not connect to %s: %v", p, dialErr)
		return
	}
	if adoptErr := session.Adopt(conn); adoptErr != nil {
		m.logger.Warnf("Session of %s refused the dialed connection: %v", p, adoptErr)
		conn.Close()
	}
}
