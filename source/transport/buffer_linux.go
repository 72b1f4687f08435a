//go:build linux

package transport

import (
	"net"

	"golang.org/x/sys/unix"
)

// tuneBuffers raises SO_RCVBUF/SO_SNDBUF via unix.SetsockoptInt on the raw
// socket. Best-effort: setsockopt errors are ignored, and the kernel may
// still cap the values at net.core.rmem_max/wmem_max.
func tuneBuffers(pc *net.UDPConn, bytes int) {
	raw, err := pc.SyscallConn()
	if err != nil {
		return
	}
	_ = raw.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, bytes)
		_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, bytes)
	})
}

// trySendZeroCopy attempts one MSG_ZEROCOPY send. ok reports whether the
// zero-copy path was actually exercised (true) or the caller should fall
// back to the portable WriteToUDP path (false, e.g. ENOTSUP on kernels
// built without CONFIG_NET_SOCK_MSG zero-copy support, or a cgroup that
// disallows CAP_NET_ADMIN for zerocopy notifications).
func trySendZeroCopy(pc *net.UDPConn, addr *net.UDPAddr, b []byte) (n int, ok bool, err error) {
	raw, err := pc.SyscallConn()
	if err != nil {
		return 0, false, nil
	}
	sa := &unix.SockaddrInet4{Port: addr.Port}
	ip4 := addr.IP.To4()
	if ip4 == nil {
		// MSG_ZEROCOPY path only implemented for IPv4 here; IPv6 falls
		// back to the portable send.
		return 0, false, nil
	}
	copy(sa.Addr[:], ip4)

	var sendErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		sendErr = unix.Sendto(int(fd), b, unix.MSG_ZEROCOPY, sa)
	})
	if ctrlErr != nil {
		return 0, false, nil
	}
	if sendErr != nil {
		// Treat any failure (unsupported flag, ENOBUFS under memory
		// pressure, etc.) as "not available" rather than fatal: the
		// caller sends this same datagram through the portable path.
		return 0, false, nil
	}
	return len(b), true, nil
}
