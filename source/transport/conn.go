// Package transport wraps a UDP datagram socket with the receive-timeout,
// buffer-sizing and optional zero-copy send behaviour spec.md §5 and §9
// ask for, while keeping the engine in source/session correct regardless of
// which send path is actually used. Grounded on the teacher's
// source/server/server.go (net.ListenUDP, conn.WriteToUDP) and on the
// platform-split pattern in runZeroInc-sockstats/pkg/tcpinfo
// (tcpinfo_linux.go / tcpinfo_darwin.go / tcpinfo_windows.go).
package transport

import (
	"fmt"
	"net"
	"time"
)

// Conn is the datagram capability the session engine depends on. Both the
// real UDP-backed implementation here and internal/simlink's virtual link
// satisfy it, so the engine never has to know which one it's talking to.
type Conn interface {
	// Send transmits b to addr, using zero-copy if the implementation
	// supports and was configured for it; falls back transparently
	// otherwise. Correctness never depends on which path ran.
	Send(addr *net.UDPAddr, b []byte) (int, error)
	// Recv blocks for at most timeout waiting for a datagram, returning
	// the sender's address. A timeout is reported as (0, nil, os.ErrDeadlineExceeded)
	// wrapped per the net package convention (err.(net.Error).Timeout() == true).
	Recv(buf []byte, timeout time.Duration) (int, *net.UDPAddr, error)
	LocalAddr() *net.UDPAddr
	Close() error
}

// udpConn is the real implementation, backed by *net.UDPConn.
type udpConn struct {
	pc       *net.UDPConn
	zeroCopy bool
	// zcDisabled latches true the first time a zero-copy send attempt
	// fails for any reason; after that every subsequent Send falls back
	// to the portable path for the rest of the session's lifetime.
	zcDisabled bool
}

// Listen opens a receiver-side socket bound to addr (nil/zero port means
// "any available port").
func Listen(addr *net.UDPAddr, recvBufBytes int, zeroCopy bool) (Conn, error) {
	pc, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: listen %s: %v", errIO, addr, err)
	}
	return newConn(pc, recvBufBytes, zeroCopy), nil
}

// Dial opens a sender-side socket with no fixed peer (FRFTP addresses each
// send explicitly, since the receiver may reply from the same local port it
// was bound on but the sender doesn't connect()).
func Dial(recvBufBytes int, zeroCopy bool) (Conn, error) {
	pc, err := net.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("%w: open sender socket: %v", errIO, err)
	}
	return newConn(pc, recvBufBytes, zeroCopy), nil
}

func newConn(pc *net.UDPConn, recvBufBytes int, zeroCopy bool) *udpConn {
	if recvBufBytes <= 0 {
		recvBufBytes = 8 * 1024 * 1024
	}
	tuneBuffers(pc, recvBufBytes)
	return &udpConn{pc: pc, zeroCopy: zeroCopy}
}

func (c *udpConn) Send(addr *net.UDPAddr, b []byte) (int, error) {
	if c.zeroCopy && !c.zcDisabled {
		n, ok, err := trySendZeroCopy(c.pc, addr, b)
		if ok {
			return n, err
		}
		// Zero-copy unavailable or failed on first attempt: disable for
		// the remainder of the session and fall through to the portable
		// path for this send too.
		c.zcDisabled = true
	}
	return c.pc.WriteToUDP(b, addr)
}

func (c *udpConn) Recv(buf []byte, timeout time.Duration) (int, *net.UDPAddr, error) {
	if err := c.pc.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, nil, fmt.Errorf("%w: set read deadline: %v", errIO, err)
	}
	n, addr, err := c.pc.ReadFromUDP(buf)
	return n, addr, err
}

func (c *udpConn) LocalAddr() *net.UDPAddr {
	return c.pc.LocalAddr().(*net.UDPAddr)
}

func (c *udpConn) Close() error {
	return c.pc.Close()
}
