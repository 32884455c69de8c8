package tcp

import (
	"fmt"

	"github.com/frezcirno/rpx/netutil"
	"github.com/frezcirno/rpx/reactor"
	"golang.org/x/sys/unix"
)

// NewConnectionCallback receives an accepted connection's raw descriptor
// and peer address.
type NewConnectionCallback func(fd int, peer netutil.Address)

// Acceptor wraps a listening socket and drains its accept queue on
// readiness, recovering from file-descriptor exhaustion by holding a spare
// descriptor in reserve.
type Acceptor struct {
	loop    *reactor.EventLoop
	socket  *netutil.Socket
	channel *reactor.Channel
	idleFD  int

	newConnectionCallback NewConnectionCallback
	metrics               Metrics
}

// NewAcceptor binds and listens on addr; accepted connections are not
// drained until Listen starts watching the socket for readability.
func NewAcceptor(loop *reactor.EventLoop, addr netutil.Address, reusePort bool) (*Acceptor, error) {
	family := unix.AF_INET
	if addr.IsIPv6() {
		family = unix.AF_INET6
	}
	sock, err := netutil.CreateNonblockingSocket(family)
	if err != nil {
		return nil, fmt.Errorf("tcp: acceptor socket: %w", err)
	}
	if err := sock.BindAndListen(addr, true, reusePort); err != nil {
		_ = sock.Close()
		return nil, err
	}

	idleFD, err := unix.Open("/dev/null", unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		_ = sock.Close()
		return nil, fmt.Errorf("tcp: acceptor idle fd: %w", err)
	}

	a := &Acceptor{loop: loop, socket: sock, idleFD: idleFD, metrics: noopMetrics{}}
	a.channel = reactor.NewChannel(loop, sock.FD())
	a.channel.OnReadable(a.handleRead)
	return a, nil
}

// SetNewConnectionCallback installs the callback invoked for each accepted
// connection. If unset, accepted descriptors are closed immediately.
func (a *Acceptor) SetNewConnectionCallback(cb NewConnectionCallback) {
	a.newConnectionCallback = cb
}

// SetMetrics installs the collector used to report accept errors.
func (a *Acceptor) SetMetrics(m Metrics) {
	if m == nil {
		m = noopMetrics{}
	}
	a.metrics = m
}

// Listen begins watching the listening socket for readability. Must be
// called on the acceptor's loop.
func (a *Acceptor) Listen() {
	a.channel.EnableReading()
}

// Close stops watching and releases both descriptors.
func (a *Acceptor) Close() {
	a.channel.DisableAll()
	a.channel.Remove()
	_ = unix.Close(a.idleFD)
	_ = a.socket.Close()
}

func (a *Acceptor) handleRead() {
	for {
		fd, peer, err := a.socket.Accept()
		if err != nil {
			if err != unix.EAGAIN {
				a.metrics.AcceptError()
			}
			if err == unix.EMFILE {
				// fd-exhaustion recovery: close the reserved descriptor,
				// accept the stuck connection just to reset it,
				// then reopen the reserve so the listener never gets stuck
				// ready-but-undrainable.
				_ = unix.Close(a.idleFD)
				if stuck, _, acceptErr := a.socket.Accept(); acceptErr == nil {
					_ = unix.Close(stuck)
				}
				a.idleFD, _ = unix.Open("/dev/null", unix.O_RDONLY|unix.O_CLOEXEC, 0)
			}
			return
		}

		if a.newConnectionCallback != nil {
			a.newConnectionCallback(fd, peer)
		} else {
			_ = unix.Close(fd)
		}
	}
}
