//go:build linux || darwin

package badezimmer

import (
	"context"
	"net"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"
)

const (
	multicastGroup = "224.0.0.251"
	multicastPort  = 5369
)

func multicastGroupAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(multicastGroup), Port: multicastPort}
}

// listenMulticast binds 0.0.0.0:5369 with SO_REUSEPORT set (so several
// engines can coexist on one host, per spec.md §4.4) and joins the
// multicast group on the any-interface. net.ListenPacket alone cannot set
// SO_REUSEPORT, hence the raw-syscall control callback via golang.org/x/sys.
func listenMulticast() (*ipv4.PacketConn, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}

	conn, err := lc.ListenPacket(context.Background(), "udp4", ":5369")
	if err != nil {
		return nil, errors.Wrap(err, "listen multicast socket")
	}

	pconn := ipv4.NewPacketConn(conn)
	if err := pconn.JoinGroup(nil, multicastGroupAddr()); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "join multicast group")
	}
	if err := pconn.SetMulticastLoopback(true); err != nil {
		// Loopback delivery is informational only; self-echo is
		// suppressed via sent-packet tracking regardless.
	}

	return pconn, nil
}
