package httpx

import (
	"time"

	"github.com/frezcirno/rpx/netutil"
	"github.com/frezcirno/rpx/reactor"
	"github.com/frezcirno/rpx/tcp"
)

// Client is an HTTP/1.1 client built on tcp.Client: it feeds the
// connection's bytes through a response Parser and hands completed
// responses to the response callback via a Context.
type Client struct {
	tcpClient *tcp.Client

	connectCallback       func(*Context)
	responseCallback      func(*Context)
	writeCompleteCallback func(*Context)
	closeCallback         func(*Context)
}

// NewClient prepares a client targeting addr on loop.
func NewClient(loop *reactor.EventLoop, addr netutil.Address) *Client {
	tc := tcp.NewClient(loop, addr)
	c := &Client{tcpClient: tc}
	tc.SetConnectCallback(c.handleConnect)
	tc.SetMessageCallback(c.handleMessage)
	tc.SetCloseCallback(c.handleClose)
	tc.SetWriteCompleteCallback(c.handleWriteComplete)
	return c
}

// SetConnectCallback installs the handler invoked once the underlying
// connection is established, before any bytes are parsed. This is where a
// caller sends the outbound request (see package proxy).
func (c *Client) SetConnectCallback(cb func(*Context)) { c.connectCallback = cb }

// SetResponseCallback installs the handler invoked once a full response has
// been parsed.
func (c *Client) SetResponseCallback(cb func(*Context)) { c.responseCallback = cb }

// SetWriteCompleteCallback installs the default write-complete hook new
// Contexts are created with.
func (c *Client) SetWriteCompleteCallback(cb func(*Context)) { c.writeCompleteCallback = cb }

// SetCloseCallback installs the default close hook new Contexts are created
// with.
func (c *Client) SetCloseCallback(cb func(*Context)) { c.closeCallback = cb }

// SetLogger installs the logger used by the underlying tcp.Client.
func (c *Client) SetLogger(logger reactor.Logger) { c.tcpClient.SetLogger(logger) }

// SetMetrics installs the collector the underlying tcp.Client reports
// connection and byte counts through.
func (c *Client) SetMetrics(m tcp.Metrics) { c.tcpClient.SetMetrics(m) }

// SetKeepalive controls SO_KEEPALIVE on the established connection.
func (c *Client) SetKeepalive(on bool) { c.tcpClient.SetKeepalive(on) }

// SetReconnect controls automatic reconnect on close.
func (c *Client) SetReconnect(on bool) { c.tcpClient.SetReconnect(on) }

// SetRetryBackoff configures the underlying Connector's retry delay bounds.
func (c *Client) SetRetryBackoff(initial, max time.Duration) {
	c.tcpClient.SetRetryBackoff(initial, max)
}

// Connect starts the underlying connector.
func (c *Client) Connect() { c.tcpClient.Connect() }

// Disconnect half-closes the current connection, if any.
func (c *Client) Disconnect() { c.tcpClient.Disconnect() }

// Stop cancels reconnect and tears the connection down.
func (c *Client) Stop() { c.tcpClient.Stop() }

// Context returns the Context for the current connection, or nil if not
// currently connected.
func (c *Client) Context() *Context {
	conn := c.tcpClient.Connection()
	if conn == nil {
		return nil
	}
	st, _ := conn.UserData().(*connState)
	if st == nil {
		return nil
	}
	return st.ctx
}

func (c *Client) handleConnect(conn *tcp.Connection) {
	ctx := newContext(conn)
	ctx.writeCompleteCallback = c.writeCompleteCallback
	ctx.closeCallback = c.closeCallback

	parser := NewParser(ModeResponse)
	parser.OnHeadersComplete(func(m *Message) { ctx.setMessage(m) })
	parser.OnMessageComplete(func(m *Message) {
		ctx.setMessage(m)
		if c.responseCallback != nil {
			c.responseCallback(ctx)
		}
	})
	conn.SetUserData(&connState{ctx: ctx, parser: parser})

	if c.connectCallback != nil {
		c.connectCallback(ctx)
	}
}

func (c *Client) handleMessage(conn *tcp.Connection, buf *netutil.Buffer) {
	st, _ := conn.UserData().(*connState)
	if st == nil {
		buf.RetrieveAll()
		return
	}
	data := buf.Peek()
	n := len(data)
	if err := st.parser.Advance(data); err != nil {
		buf.RetrieveAll()
		conn.ForceClose()
		return
	}
	buf.Retrieve(n)
}

func (c *Client) handleClose(conn *tcp.Connection) {
	if st, ok := conn.UserData().(*connState); ok && st.ctx.closeCallback != nil {
		st.ctx.closeCallback(st.ctx)
	}
}

func (c *Client) handleWriteComplete(conn *tcp.Connection) {
	if st, ok := conn.UserData().(*connState); ok && st.ctx.writeCompleteCallback != nil {
		st.ctx.writeCompleteCallback(st.ctx)
	}
}
