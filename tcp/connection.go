// Package tcp composes the reactor core into connection-oriented servers
// and clients: Acceptor and Connector establish connections, TcpConnection
// drives the per-connection state machine and buffered I/O, and
// EventLoopThreadPool fans accepted connections out across worker loops.
package tcp

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/frezcirno/rpx/netutil"
	"github.com/frezcirno/rpx/reactor"
)

// ConnState is the lifecycle state of a TcpConnection: it only ever
// advances monotonically along its closed-paths transitions.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateConnected
	StateDisconnecting
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ConnCallback is invoked for connect/close events.
type ConnCallback func(*Connection)

// MessageCallback is invoked when new data has arrived; buf is the
// connection's read buffer, which the callback is expected to drain with
// Retrieve/RetrieveString before returning.
type MessageCallback func(*Connection, *netutil.Buffer)

// Metrics is the narrow seam Server/Client/Connection/Acceptor report
// traffic through. Left nil, nothing is recorded; package rpxmetrics
// provides a Prometheus-backed implementation.
type Metrics interface {
	ConnectionOpened()
	ConnectionClosed()
	AcceptError()
	BytesRead(n int)
	BytesWritten(n int)
}

type noopMetrics struct{}

func (noopMetrics) ConnectionOpened() {}
func (noopMetrics) ConnectionClosed() {}
func (noopMetrics) AcceptError()      {}
func (noopMetrics) BytesRead(int)     {}
func (noopMetrics) BytesWritten(int)  {}

// Connection is one TCP connection's state machine, buffered write path,
// and read dispatch. It is always driven from its own
// EventLoop's goroutine; cross-thread callers use Shutdown/ForceClose,
// which are themselves loop-affine via QueueInLoop/RunInLoop.
type Connection struct {
	loop    *reactor.EventLoop
	channel *reactor.Channel
	socket  *netutil.Socket
	peer    netutil.Address

	state atomic.Int32

	readBuf  *netutil.Buffer
	writeBuf *netutil.Buffer

	connectCallback       ConnCallback
	messageCallback       MessageCallback
	closeCallback         ConnCallback
	writeCompleteCallback ConnCallback

	userData any
	logger   reactor.Logger
	metrics  Metrics

	// alive backs Channel.Tie: once the connection has been destroyed, a
	// racing event delivery is dropped rather than dispatched into a
	// connection that has already run its teardown.
	alive atomic.Bool
}

// NewConnection wraps an already-accepted or already-connected socket.
func NewConnection(loop *reactor.EventLoop, sockfd int, peer netutil.Address) *Connection {
	c := &Connection{
		loop:     loop,
		socket:   netutil.NewSocket(sockfd),
		peer:     peer,
		readBuf:  netutil.NewBuffer(),
		writeBuf: netutil.NewBuffer(),
		logger:   reactor.NopLogger{},
		metrics:  noopMetrics{},
	}
	c.state.Store(int32(StateConnecting))
	c.alive.Store(true)

	c.channel = reactor.NewChannel(loop, sockfd)
	c.channel.Tie(c.alive.Load)
	c.channel.OnReadable(c.handleRead)
	c.channel.OnWritable(c.handleWrite)
	c.channel.OnClose(c.handleClose)
	c.channel.OnError(c.handleError)

	_ = c.socket.SetKeepAlive(true)
	return c
}

func (c *Connection) Loop() *reactor.EventLoop  { return c.loop }
func (c *Connection) FD() int                   { return c.channel.FD() }
func (c *Connection) PeerAddr() netutil.Address { return c.peer }
func (c *Connection) State() ConnState          { return ConnState(c.state.Load()) }

func (c *Connection) SetConnectCallback(cb ConnCallback)       { c.connectCallback = cb }
func (c *Connection) SetMessageCallback(cb MessageCallback)    { c.messageCallback = cb }
func (c *Connection) SetCloseCallback(cb ConnCallback)         { c.closeCallback = cb }
func (c *Connection) SetWriteCompleteCallback(cb ConnCallback) { c.writeCompleteCallback = cb }

// UserData returns the opaque per-connection slot callers can use to stash
// state (e.g. the proxy handler's upstream client).
func (c *Connection) UserData() any        { return c.userData }
func (c *Connection) SetUserData(data any) { c.userData = data }

// Write appends data to the connection's outbound stream. If the write
// buffer is currently empty and writability isn't already being watched,
// it tries an eager direct write first so the
// common "small write, buffer empty" case never takes the buffered path
// at all.
func (c *Connection) Write(data []byte) {
	if !c.loop.InLoop() {
		buf := append([]byte(nil), data...)
		c.loop.QueueInLoop(func() { c.writeInLoop(buf) })
		return
	}
	c.writeInLoop(data)
}

func (c *Connection) writeInLoop(data []byte) {
	if c.State() == StateDisconnected {
		return
	}

	remaining := len(data)
	written := 0
	if !c.channel.HasWriteInterest() && c.writeBuf.ReadableBytes() == 0 {
		n, err := rawWrite(c.channel.FD(), data)
		if err != nil && !errors.Is(err, errWouldBlock) {
			c.handleError()
			return
		}
		written = n
		remaining -= n
		c.metrics.BytesWritten(n)
		if remaining == 0 {
			if c.writeCompleteCallback != nil {
				c.loop.QueueInLoop(func() {
					if c.writeCompleteCallback != nil {
						c.writeCompleteCallback(c)
					}
				})
			}
			return
		}
	}

	if remaining > 0 {
		c.writeBuf.Append(data[written:])
		if !c.channel.HasWriteInterest() {
			c.channel.EnableWriting()
		}
	}
}

// connectEstablished transitions a freshly accepted/connected socket into
// StateConnected and begins watching it for readability. Called once, on
// the connection's own loop, by whichever of Server/Client created it.
func (c *Connection) connectEstablished() {
	c.state.Store(int32(StateConnected))
	c.channel.EnableReading()
	if c.connectCallback != nil {
		c.connectCallback(c)
	}
}

// connectDestroyed tears down the channel and closes the socket once the
// connection has already reached its terminal handleClose. Must run on the
// connection's own loop and must not be called from within handleClose's
// own closeCallback.
func (c *Connection) connectDestroyed() {
	if c.state.CompareAndSwap(int32(StateConnected), int32(StateDisconnected)) {
		c.channel.DisableAll()
	}
	c.alive.Store(false)
	c.channel.Remove()
	_ = c.socket.Close()
}

// Shutdown half-closes the write side once any buffered output has
// drained; the connection keeps reading until the peer closes too.
func (c *Connection) Shutdown() {
	if c.state.CompareAndSwap(int32(StateConnected), int32(StateDisconnecting)) {
		c.loop.RunInLoop(func() {
			// With output still buffered, handleWrite half-closes once the
			// buffer drains.
			if !c.channel.HasWriteInterest() {
				_ = c.socket.ShutdownWrite()
			}
		})
	}
}

// ForceClose tears the connection down immediately regardless of buffered
// output or half-close state.
func (c *Connection) ForceClose() {
	state := ConnState(c.state.Load())
	if state == StateDisconnected {
		return
	}
	c.state.Store(int32(StateDisconnecting))
	c.loop.QueueInLoop(c.handleClose)
}

func (c *Connection) handleRead() {
	n, err := netutil.ReadFD(c.channel.FD(), c.readBuf, rawRead)
	switch {
	case errors.Is(err, errWouldBlock):
		return
	case n > 0:
		c.metrics.BytesRead(n)
		if c.messageCallback != nil {
			c.messageCallback(c, c.readBuf)
		}
	case n == 0:
		c.handleClose()
	default:
		c.handleError()
	}
}

func (c *Connection) handleWrite() {
	if !c.channel.HasWriteInterest() {
		return
	}
	n, err := rawWrite(c.channel.FD(), c.writeBuf.Peek())
	if err != nil {
		if !errors.Is(err, errWouldBlock) {
			c.handleError()
		}
		return
	}
	c.writeBuf.Retrieve(n)
	c.metrics.BytesWritten(n)
	if c.writeBuf.ReadableBytes() == 0 {
		c.channel.DisableWriting()
		if c.writeCompleteCallback != nil {
			cb := c.writeCompleteCallback
			c.loop.QueueInLoop(func() { cb(c) })
		}
		if c.State() == StateDisconnecting {
			_ = c.socket.ShutdownWrite()
		}
	}
}

// handleClose runs the user's close callback exactly once and leaves the
// connection in StateDisconnected; no further user callbacks fire after
// that. It intentionally does not call connectDestroyed itself — the
// owning Server/Client schedules that separately once it has removed the
// connection from its own bookkeeping.
func (c *Connection) handleClose() {
	state := c.State()
	if state == StateDisconnected {
		return
	}
	c.state.Store(int32(StateDisconnected))
	c.channel.DisableAll()

	cb := c.closeCallback
	c.connectCallback = nil
	c.messageCallback = nil
	c.writeCompleteCallback = nil
	c.closeCallback = nil
	if cb != nil {
		cb(c)
	}
}

// SetLogger installs the logger used for connection-level diagnostics.
func (c *Connection) SetLogger(logger reactor.Logger) { c.logger = logger }

// SetKeepAlive toggles SO_KEEPALIVE. NewConnection enables it by default.
func (c *Connection) SetKeepAlive(on bool) error { return c.socket.SetKeepAlive(on) }

// SetMetrics installs the collector this connection reports byte counts
// through. Server/Client also report ConnectionOpened/ConnectionClosed.
func (c *Connection) SetMetrics(m Metrics) {
	if m == nil {
		m = noopMetrics{}
	}
	c.metrics = m
}

func (c *Connection) handleError() {
	errno, _ := c.socket.SOError()
	c.logger.Log(reactor.LogEntry{
		Level:   reactor.LevelError,
		Message: fmt.Sprintf("connection error, peer=%s", c.peer),
		Fields:  map[string]any{"errno": errno},
	})
}
