package acceptor

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/talonbgp/talon/pkg/peerindex"
	"github.com/talonbgp/talon/pkg/wake"
)

// Config adjusts how the acceptor listens and how long deposited
// connections may wait for the session side.
type Config struct {
	ListenAddr     string
	PendingTimeout time.Duration
}

// Acceptor owns the listening socket. It validates the source address of
// every inbound connection against the index, parks accepted connections
// there and kicks the session side. It never talks to sessions directly.
type Acceptor struct {
	index    *peerindex.Index
	waker    *wake.Waker
	config   Config
	listener net.Listener
	logger   *logrus.Entry
}

// NewAcceptor creates Acceptor instances
func NewAcceptor(index *peerindex.Index, waker *wake.Waker, config Config) *Acceptor {
	if config.PendingTimeout <= 0 {
		config.PendingTimeout = time.Second * 30
	}
	return &Acceptor{
		index:  index,
		waker:  waker,
		config: config,
		logger: logrus.WithField("component", "acceptor"),
	}
}

// Listen binds the listening socket without accepting yet, so that callers
// can fail fast on a busy port.
func (a *Acceptor) Listen() error {
	listener, listenErr := net.Listen("tcp", a.config.ListenAddr)
	if listenErr != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.config.ListenAddr, listenErr)
	}
	a.listener = listener
	a.logger.Infof("Listening for neighbors at %s", listener.Addr())
	return nil
}

// Addr returns the bound listener address, nil before Listen.
func (a *Acceptor) Addr() net.Addr {
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Run accepts connections until the listener is closed.
func (a *Acceptor) Run() error {
	for {
		conn, acceptErr := a.listener.Accept()
		if acceptErr != nil {
			if errors.Is(acceptErr, net.ErrClosed) {
				a.logger.Info("Acceptor shut down")
				return nil
			}
			return fmt.Errorf("failed to accept: %w", acceptErr)
		}
		a.handle(conn)
	}
}

// Close closes the listening socket, which ends Run.
func (a *Acceptor) Close() error {
	if a.listener == nil {
		return nil
	}
	return a.listener.Close()
}

func (a *Acceptor) handle(conn net.Conn) {
	addr, ok := remoteAddr(conn)
	if !ok {
		a.logger.Warnf("Dropping connection with unusable remote address %s", conn.RemoteAddr())
		conn.Close()
		return
	}
	view, found := a.index.SeekEntry(addr)
	if !found {
		a.logger.Infof("Dropping connection from unknown source %s", addr)
		conn.Close()
		return
	}
	if !view.Enabled {
		a.logger.Infof("Dropping connection from disabled neighbor %s", addr)
		conn.Close()
		return
	}
	if optErr := applyAcceptOptions(conn, view.AcceptTTL); optErr != nil {
		a.logger.Warnf("Could not set socket options for %s: %v", addr, optErr)
	}
	pending := peerindex.NewPendingConn(conn)
	replaced, depositErr := a.index.Deposit(addr, pending)
	if depositErr != nil {
		// the neighbor was removed or disabled after the lookup
		a.logger.Infof("Dropping connection from %s: %v", addr, depositErr)
		conn.Close()
		return
	}
	if replaced != nil {
		a.logger.Infof("Connection %s from %s replaces stale connection %s", pending.Tag, addr, replaced.Tag)
		replaced.Conn.Close()
	} else {
		a.logger.Debugf("Parked connection %s from neighbor %s, peer id %d", pending.Tag, addr, view.ID)
	}
	a.scheduleDiscard(addr, pending.Tag)
	a.waker.Kick()
}

// scheduleDiscard arms the timer that reclaims the connection if no
// session picks it up. The tag check inside DiscardPending makes a timer
// that lost the race a no-op.
func (a *Acceptor) scheduleDiscard(addr netip.Addr, tag string) {
	time.AfterFunc(a.config.PendingTimeout, func() {
		if stale, ok := a.index.DiscardPending(addr, tag); ok {
			a.logger.Infof("Discarding connection %s from %s, unclaimed for %s", tag, addr, a.config.PendingTimeout)
			stale.Conn.Close()
		}
	})
}

func remoteAddr(conn net.Conn) (netip.Addr, bool) {
	tcp, ok := conn.RemoteAddr().(*net.TCPAddr)
	if !ok {
		return netip.Addr{}, false
	}
	addr, ok := netip.AddrFromSlice(tcp.IP)
	if !ok {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
