// Package netutil holds the TCP primitives the service uses to reach the
// child server: dial with timeout, peer-gone detection, and a loopback
// listener for tests.
package netutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

// Address joins host and port, bracketing IPv6 literals.
func Address(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Connect opens a TCP connection to host:port. A zero timeout means no
// dial timeout beyond ctx.
func Connect(ctx context.Context, host string, port int, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", Address(host, port))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to %s: %w", Address(host, port), err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
	return conn, nil
}

// Listen binds a TCP listener on host:port. Port 0 picks a free port.
func Listen(ctx context.Context, host string, port int) (net.Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", Address(host, port))
	if err != nil {
		return nil, fmt.Errorf("cannot listen on %s: %w", Address(host, port), err)
	}
	return ln, nil
}

// IsClosed reports whether err means the peer went away: EOF, a reset, or
// use of a closed connection.
func IsClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	return isReset(err)
}
