//go:build !linux

package transport

import "net"

// tuneBuffers falls back to the portable net.UDPConn setters on platforms
// where we don't have a golang.org/x/sys/unix binding wired up. Best-effort:
// errors are ignored exactly like the Linux path ignores setsockopt errors.
func tuneBuffers(pc *net.UDPConn, bytes int) {
	_ = pc.SetReadBuffer(bytes)
	_ = pc.SetWriteBuffer(bytes)
}

// trySendZeroCopy has no portable equivalent outside Linux's MSG_ZEROCOPY;
// always report "not used" so the caller falls back transparently, per
// spec.md §5 ("the implementation falls back transparently").
func trySendZeroCopy(pc *net.UDPConn, addr *net.UDPAddr, b []byte) (n int, ok bool, err error) {
	return 0, false, nil
}
