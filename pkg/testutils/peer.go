package testutils

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

// RunTestPeer connects to a BGP listener a number of times and reports
// whether each connection was dropped or parked, used as the counterpart
// for integration tests
func RunTestPeer(target string, connections int, wait time.Duration) error {
	for n := 1; n <= connections; n++ {
		conn, dialErr := net.Dial("tcp", target)
		if dialErr != nil {
			return fmt.Errorf("failed to connect to %s: %w", target, dialErr)
		}
		if deadlineErr := conn.SetReadDeadline(time.Now().Add(wait)); deadlineErr != nil {
			conn.Close()
			return deadlineErr
		}
		_, readErr := conn.Read(make([]byte, 1))
		var netErr net.Error
		switch {
		case errors.Is(readErr, io.EOF):
			logrus.Infof("Connection %d was accepted and closed by the daemon", n)
		case errors.As(readErr, &netErr) && netErr.Timeout():
			logrus.Infof("Connection %d was parked, the daemon kept it open for %s", n, wait)
		case readErr != nil:
			logrus.Warnf("Connection %d failed: %v", n, readErr)
		default:
			logrus.Infof("Connection %d unexpectedly received data", n)
		}
		conn.Close()
	}
	return nil
}
