package netutil

import "golang.org/x/sys/unix"

// setReusePort enables SO_REUSEPORT so multiple listeners (typically one per
// worker loop) can share the same address:port, letting the kernel load
// balance accepts across them instead of funneling everything through a
// single Acceptor.
func setReusePort(fd int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
}
