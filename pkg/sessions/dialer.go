package sessions

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
)

// Dialer opens the outbound connection towards a neighbor.
type Dialer interface {
	Dial(ctx context.Context, addr netip.Addr) (net.Conn, error)
}

type netDialer struct {
	port    int
	timeout time.Duration
}

// NewNetDialer creates Dialer instances that connect over plain TCP,
// retrying a few times before giving up on the neighbor.
func NewNetDialer(port int, timeout time.Duration) Dialer {
	if port <= 0 {
		port = 179
	}
	if timeout <= 0 {
		timeout = time.Second * 5
	}
	return &netDialer{port: port, timeout: timeout}
}

func (d *netDialer) Dial(ctx context.Context, addr netip.Addr) (net.Conn, error) {
	target := net.JoinHostPort(addr.String(), strconv.Itoa(d.port))
	return retry.DoWithData(func() (net.Conn, error) {
		dialCtx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		var dialer net.Dialer
		conn, dialErr := dialer.DialContext(dialCtx, "tcp", target)
		if dialErr != nil {
			return nil, fmt.Errorf("failed to dial %s: %w", target, dialErr)
		}
		return conn, nil
	}, retry.Context(ctx), retry.Attempts(5), retry.Delay(time.Second))
}
