package acceptor

import (
	"net"

	"golang.org/x/sys/unix"
)

// applyAcceptOptions raises the IP TTL on the accepted socket. GTSM
// neighbors expect 255 on both directions of the session.
func applyAcceptOptions(conn net.Conn, ttl int) error {
	if ttl <= 0 {
		return nil
	}
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	raw, rawErr := tcp.SyscallConn()
	if rawErr != nil {
		return rawErr
	}
	var optErr error
	if ctrlErr := raw.Control(func(fd uintptr) {
		optErr = setTTL(int(fd), conn, ttl)
	}); ctrlErr != nil {
		return ctrlErr
	}
	return optErr
}

func setTTL(fd int, conn net.Conn, ttl int) error {
	local, ok := conn.LocalAddr().(*net.TCPAddr)
	if ok && local.IP.To4() == nil {
		return unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_UNICAST_HOPS, ttl)
	}
	return unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TTL, ttl)
}
