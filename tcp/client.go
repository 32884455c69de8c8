package tcp

import (
	"sync"
	"time"

	"github.com/frezcirno/rpx/netutil"
	"github.com/frezcirno/rpx/reactor"
)

// Client drives a single outbound connection via a Connector, optionally
// reconnecting whenever the active connection closes.
type Client struct {
	loop      *reactor.EventLoop
	connector *Connector
	logger    reactor.Logger
	metrics   Metrics
	keepalive bool

	reconnect bool
	running   bool

	mu   sync.Mutex
	conn *Connection

	connectCallback       ConnCallback
	messageCallback       MessageCallback
	closeCallback         ConnCallback
	writeCompleteCallback ConnCallback
}

// NewClient prepares a client targeting addr on loop.
func NewClient(loop *reactor.EventLoop, addr netutil.Address) *Client {
	c := &Client{
		loop:      loop,
		connector: NewConnector(loop, addr),
		logger:    reactor.NopLogger{},
		metrics:   noopMetrics{},
		keepalive: true,
		reconnect: true,
	}
	c.connector.SetNewConnectionCallback(c.newConnection)
	return c
}

func (c *Client) SetLogger(logger reactor.Logger) {
	c.logger = logger
	c.connector.SetLogger(logger)
}
func (c *Client) SetConnectCallback(cb ConnCallback)       { c.connectCallback = cb }
func (c *Client) SetMessageCallback(cb MessageCallback)    { c.messageCallback = cb }
func (c *Client) SetCloseCallback(cb ConnCallback)         { c.closeCallback = cb }
func (c *Client) SetWriteCompleteCallback(cb ConnCallback) { c.writeCompleteCallback = cb }

// SetMetrics installs the collector this client's connection reports
// traffic through.
func (c *Client) SetMetrics(m Metrics) {
	if m == nil {
		m = noopMetrics{}
	}
	c.metrics = m
}

// SetKeepalive controls whether the established connection has
// SO_KEEPALIVE enabled. Defaults to true.
func (c *Client) SetKeepalive(on bool) { c.keepalive = on }

// SetReconnect controls whether a dropped connection is automatically
// retried. Defaults to true.
func (c *Client) SetReconnect(on bool) { c.reconnect = on }

// SetRetryBackoff configures the Connector's initial and maximum retry
// delay.
func (c *Client) SetRetryBackoff(initial, max time.Duration) {
	c.connector.SetRetryBackoff(initial, max)
}

// Connect starts the Connector.
func (c *Client) Connect() {
	c.running = true
	c.connector.Start()
}

// Disconnect requests a graceful half-close of the current connection, if
// any, without affecting reconnect behavior for future connects.
func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		conn.Shutdown()
	}
}

// Stop cancels any pending connect/retry and disables reconnect.
func (c *Client) Stop() {
	c.running = false
	c.reconnect = false
	c.connector.Stop()
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		conn.ForceClose()
	}
}

// Connection returns the current connection, or nil if not connected.
func (c *Client) Connection() *Connection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Client) newConnection(fd int, peer netutil.Address) {
	conn := NewConnection(c.loop, fd, peer)
	conn.SetLogger(c.logger)
	conn.SetMetrics(c.metrics)
	_ = conn.SetKeepAlive(c.keepalive)
	conn.SetConnectCallback(c.connectCallback)
	conn.SetMessageCallback(c.messageCallback)
	conn.SetWriteCompleteCallback(c.writeCompleteCallback)
	conn.SetCloseCallback(c.handleClose)

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.metrics.ConnectionOpened()
	conn.connectEstablished()
}

func (c *Client) handleClose(conn *Connection) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()

	c.metrics.ConnectionClosed()
	c.loop.QueueInLoop(conn.connectDestroyed)
	if c.closeCallback != nil {
		c.closeCallback(conn)
	}

	if c.running && c.reconnect {
		c.connector.Start()
	}
}
