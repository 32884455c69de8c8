package tcp

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/frezcirno/rpx/netutil"
	"github.com/frezcirno/rpx/reactor"
	"golang.org/x/sys/unix"
)

type connectorState int32

// Connector's state set is consolidated to three members: a connect attempt
// that is retrying-after-failure is still "disconnected", just with a
// pending timer, rather than a distinct retrying state.
const (
	connectorDisconnected connectorState = iota
	connectorConnecting
	connectorConnected
)

const (
	initialRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 30 * time.Second
)

// Connector drives an active (outbound) non-blocking connect attempt,
// retrying with exponential backoff on transient failure.
type Connector struct {
	loop       *reactor.EventLoop
	serverAddr netutil.Address
	logger     reactor.Logger

	connect atomic.Bool // Start/Stop-controlled: whether (re)connecting is wanted
	state   atomic.Int32

	channel    *reactor.Channel
	retryDelay time.Duration
	maxDelay   time.Duration
	baseDelay  time.Duration

	newConnectionCallback func(fd int, peer netutil.Address)
}

// NewConnector prepares (but does not start) an outbound connection attempt
// to addr.
func NewConnector(loop *reactor.EventLoop, addr netutil.Address) *Connector {
	c := &Connector{
		loop:       loop,
		serverAddr: addr,
		logger:     reactor.NopLogger{},
		retryDelay: initialRetryDelay,
		baseDelay:  initialRetryDelay,
		maxDelay:   maxRetryDelay,
	}
	c.state.Store(int32(connectorDisconnected))
	return c
}

// SetNewConnectionCallback installs the callback invoked once connect()
// actually succeeds.
func (c *Connector) SetNewConnectionCallback(cb func(fd int, peer netutil.Address)) {
	c.newConnectionCallback = cb
}

// SetLogger installs the logger used for connect diagnostics.
func (c *Connector) SetLogger(logger reactor.Logger) { c.logger = logger }

// SetRetryBackoff configures the initial and maximum retry delay. Must be
// called before Start.
func (c *Connector) SetRetryBackoff(initial, max time.Duration) {
	c.baseDelay = initial
	c.maxDelay = max
	c.retryDelay = initial
}

// Start begins (re)connecting. Safe to call from any goroutine.
func (c *Connector) Start() {
	c.connect.Store(true)
	c.loop.RunInLoop(c.startInLoop)
}

// Stop cancels any in-flight connect attempt and pending retry.
func (c *Connector) Stop() {
	c.connect.Store(false)
	c.loop.QueueInLoop(func() {
		if connectorState(c.state.Load()) == connectorConnecting {
			c.state.Store(int32(connectorDisconnected))
			c.removeAndResetChannel(func(int) {})
		}
	})
}

func (c *Connector) startInLoop() {
	if !c.connect.Load() {
		return
	}
	c.connectAttempt()
}

func (c *Connector) connectAttempt() {
	family := unix.AF_INET
	if c.serverAddr.IsIPv6() {
		family = unix.AF_INET6
	}
	sock, err := netutil.CreateNonblockingSocket(family)
	if err != nil {
		c.logger.Log(reactor.LogEntry{Level: reactor.LevelError, Message: "connector: create socket failed", Err: err})
		return
	}

	err = sock.Connect(c.serverAddr)
	errno, isErrno := err.(unix.Errno)
	switch {
	case err == nil, isErrno && errno == unix.EINPROGRESS:
		c.connecting(sock)
	case isErrno && isSelfRetryable(errno):
		_ = sock.Close()
		c.retry()
	case isErrno && errno == unix.EISCONN:
		c.connecting(sock)
	default:
		_ = sock.Close()
		c.logger.Log(reactor.LogEntry{
			Level:   reactor.LevelError,
			Message: fmt.Sprintf("connector: fatal connect error to %s", c.serverAddr),
			Err:     err,
		})
	}
}

func isSelfRetryable(errno unix.Errno) bool {
	switch errno {
	case unix.EAGAIN, unix.EADDRINUSE, unix.EADDRNOTAVAIL, unix.ECONNREFUSED, unix.ENETUNREACH, unix.ETIMEDOUT:
		return true
	default:
		return false
	}
}

func (c *Connector) connecting(sock *netutil.Socket) {
	c.state.Store(int32(connectorConnecting))
	c.channel = reactor.NewChannel(c.loop, sock.FD())
	c.channel.OnWritable(func() { c.handleWrite(sock) })
	c.channel.OnError(func() { c.handleError(sock) })
	c.channel.EnableWriting()
}

// removeAndResetChannel defers the channel's removal onto the loop rather
// than resetting it from within its own callback, so handleWrite/handleError
// never tear down the Channel that is currently dispatching them.
func (c *Connector) removeAndResetChannel(after func(fd int)) {
	ch := c.channel
	c.channel = nil
	fd := ch.FD()
	c.loop.QueueInLoop(func() {
		ch.DisableAll()
		ch.Remove()
		after(fd)
	})
}

func (c *Connector) handleWrite(sock *netutil.Socket) {
	if connectorState(c.state.Load()) != connectorConnecting {
		return
	}

	c.removeAndResetChannel(func(fd int) {
		errno, err := sock.SOError()
		switch {
		case err != nil || errno != 0:
			c.logger.Log(reactor.LogEntry{
				Level:   reactor.LevelWarn,
				Message: fmt.Sprintf("connector: SO_ERROR after connect to %s", c.serverAddr),
				Fields:  map[string]any{"errno": errno},
			})
			c.state.Store(int32(connectorDisconnected))
			c.retry()
			return
		}

		local, lerr := sock.LocalAddr()
		peer, perr := sock.PeerAddr()
		if lerr == nil && perr == nil && local.Equal(peer) {
			// Loopback self-connect race: the kernel picked an ephemeral
			// local port identical to the peer port.
			c.state.Store(int32(connectorDisconnected))
			c.retry()
			return
		}

		c.state.Store(int32(connectorConnected))
		c.retryDelay = c.baseDelay
		if c.connect.Load() && c.newConnectionCallback != nil {
			c.newConnectionCallback(fd, peer)
		} else {
			_ = unix.Close(fd)
		}
	})
}

func (c *Connector) handleError(sock *netutil.Socket) {
	if connectorState(c.state.Load()) != connectorConnecting {
		return
	}
	errno, _ := sock.SOError()
	c.logger.Log(reactor.LogEntry{
		Level:   reactor.LevelWarn,
		Message: fmt.Sprintf("connector: connect error to %s", c.serverAddr),
		Fields:  map[string]any{"errno": errno},
	})
	c.state.Store(int32(connectorDisconnected))
	c.removeAndResetChannel(func(fd int) { _ = unix.Close(fd) })
	c.retry()
}

func (c *Connector) retry() {
	if !c.connect.Load() {
		return
	}
	delay := c.retryDelay
	c.retryDelay *= 2
	if c.retryDelay > c.maxDelay {
		c.retryDelay = c.maxDelay
	}
	c.loop.RunAfter(delay, func() {
		if c.connect.Load() {
			c.connectAttempt()
		}
	})
}
