package netutil

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Socket owns exactly one file descriptor for its lifetime: each
// descriptor has exactly one owner at all times. Close is idempotent;
// the zero value is not usable.
type Socket struct {
	fd     int
	closed bool
}

// NewSocket wraps an already-open, non-blocking descriptor.
func NewSocket(fd int) *Socket { return &Socket{fd: fd} }

// CreateNonblockingSocket creates a non-blocking, close-on-exec TCP socket
// for the given address family (unix.AF_INET or unix.AF_INET6).
func CreateNonblockingSocket(family int) (*Socket, error) {
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("netutil: socket: %w", err)
	}
	return &Socket{fd: fd}, nil
}

// FD returns the underlying descriptor.
func (s *Socket) FD() int { return s.fd }

// Close closes the descriptor. Safe to call more than once.
func (s *Socket) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return unix.Close(s.fd)
}

// BindAndListen binds to addr and begins listening, honoring reuseAddr and
// reusePort.
func (s *Socket) BindAndListen(addr Address, reuseAddr, reusePort bool) error {
	if reuseAddr {
		if err := unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			return fmt.Errorf("netutil: SO_REUSEADDR: %w", err)
		}
	}
	if reusePort {
		if err := setReusePort(s.fd); err != nil {
			return fmt.Errorf("netutil: SO_REUSEPORT: %w", err)
		}
	}

	sa := toSockaddr(addr)
	if err := unix.Bind(s.fd, sa); err != nil {
		return fmt.Errorf("netutil: bind %s: %w", addr, err)
	}
	const backlog = 1024
	if err := unix.Listen(s.fd, backlog); err != nil {
		return fmt.Errorf("netutil: listen %s: %w", addr, err)
	}
	return nil
}

// Accept drains one connection from the accept queue. The returned fd is
// already non-blocking and close-on-exec, via accept4's SOCK_NONBLOCK and
// SOCK_CLOEXEC flags.
func (s *Socket) Accept() (fd int, peer Address, err error) {
	nfd, sa, err := unix.Accept4(s.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		return -1, Address{}, err
	}
	peer = fromSockaddr(sa)
	return nfd, peer, nil
}

// Connect issues a non-blocking connect to addr. The caller inspects errno
// via the returned error to classify retryable vs. fatal failures.
func (s *Socket) Connect(addr Address) error {
	return unix.Connect(s.fd, toSockaddr(addr))
}

// SetKeepAlive toggles SO_KEEPALIVE.
func (s *Socket) SetKeepAlive(on bool) error {
	v := 0
	if on {
		v = 1
	}
	return unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, v)
}

// SetNoDelay toggles TCP_NODELAY.
func (s *Socket) SetNoDelay(on bool) error {
	v := 0
	if on {
		v = 1
	}
	return unix.SetsockoptInt(s.fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, v)
}

// ShutdownWrite half-closes the write side.
func (s *Socket) ShutdownWrite() error {
	return unix.Shutdown(s.fd, unix.SHUT_WR)
}

// SOError reads and clears SO_ERROR, used after a writable event on a
// connecting socket to learn whether connect() actually succeeded.
func (s *Socket) SOError() (int, error) {
	errno, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return 0, err
	}
	return errno, nil
}

// LocalAddr and PeerAddr are used for self-connect detection: a
// non-blocking connect to a loopback ephemeral port can race such that
// the kernel picks a local port identical to the peer port.
func (s *Socket) LocalAddr() (Address, error) {
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return Address{}, err
	}
	return fromSockaddr(sa), nil
}

func (s *Socket) PeerAddr() (Address, error) {
	sa, err := unix.Getpeername(s.fd)
	if err != nil {
		return Address{}, err
	}
	return fromSockaddr(sa), nil
}

// SetReadDeadline returns the time d from now. Nothing in this module calls
// it; the reactor's own read/write paths are entirely non-blocking.
func SetReadDeadline(d time.Duration) time.Time { return time.Now().Add(d) }

func toSockaddr(a Address) unix.Sockaddr {
	if a.IsIPv6() {
		sa := &unix.SockaddrInet6{Port: int(a.Port())}
		copy(sa.Addr[:], a.IP().As16())
		return sa
	}
	sa := &unix.SockaddrInet4{Port: int(a.Port())}
	copy(sa.Addr[:], a.IP().As4())
	return sa
}

func fromSockaddr(sa unix.Sockaddr) Address {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return NewAddress(addrFrom4(v.Addr), uint16(v.Port))
	case *unix.SockaddrInet6:
		return NewAddress(addrFrom16(v.Addr), uint16(v.Port))
	default:
		return Address{}
	}
}
