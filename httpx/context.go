package httpx

import (
	"fmt"

	"github.com/frezcirno/rpx/tcp"
)

// Context is a per-connection object exposing write helpers for
// request/response framing and an opaque user-data slot request
// handlers use to keep state alive across a request's lifetime (for example,
// the proxy handler's upstream client).
type Context struct {
	conn *tcp.Connection
	msg  *Message

	userData any

	writeCompleteCallback func(*Context)
	closeCallback         func(*Context)
}

func newContext(conn *tcp.Connection) *Context {
	return &Context{conn: conn}
}

// Connection returns the underlying TCP connection.
func (c *Context) Connection() *tcp.Connection { return c.conn }

// Message returns the most recently completed (or in-progress) parsed
// message for this connection.
func (c *Context) Message() *Message { return c.msg }

func (c *Context) setMessage(m *Message) { c.msg = m }

// UserData and SetUserData hold request-handler-owned state.
func (c *Context) UserData() any     { return c.userData }
func (c *Context) SetUserData(v any) { c.userData = v }

// SetWriteCompleteCallback installs the callback forwarded from the
// underlying connection's write-complete event.
func (c *Context) SetWriteCompleteCallback(cb func(*Context)) { c.writeCompleteCallback = cb }

// SetCloseCallback installs the callback forwarded from the underlying
// connection's close event.
func (c *Context) SetCloseCallback(cb func(*Context)) { c.closeCallback = cb }

// StartRequest writes a request line.
func (c *Context) StartRequest(method, url string) {
	c.conn.Write([]byte(fmt.Sprintf("%s %s HTTP/1.1\r\n", method, url)))
}

// StartResponse writes a status line, defaulting the reason phrase from the
// status table when none is given.
func (c *Context) StartResponse(code int, reason ...string) {
	r := ReasonPhrase(code)
	if len(reason) > 0 && reason[0] != "" {
		r = reason[0]
	}
	c.conn.Write([]byte(fmt.Sprintf("HTTP/1.1 %d %s\r\n", code, r)))
}

// SendHeader writes one CRLF-terminated header line.
func (c *Context) SendHeader(name, value string) {
	c.conn.Write([]byte(fmt.Sprintf("%s: %s\r\n", name, value)))
}

// EndHeaders writes the blank line terminating the header block.
func (c *Context) EndHeaders() {
	c.conn.Write([]byte("\r\n"))
}

// Send writes body bytes.
func (c *Context) Send(data []byte) {
	c.conn.Write(data)
}

// SendError emits a minimal status-code error page and closes out the
// headers so the page is a complete response.
func (c *Context) SendError(code int) {
	body := errorPage(code)
	c.StartResponse(code)
	c.SendHeader("Content-Type", "text/html")
	c.SendHeader("Content-Length", fmt.Sprintf("%d", len(body)))
	c.SendHeader("Connection", "close")
	c.EndHeaders()
	c.Send([]byte(body))
	c.Shutdown()
}

// Shutdown half-closes the underlying connection.
func (c *Context) Shutdown() { c.conn.Shutdown() }

// ForceClose tears the underlying connection down immediately.
func (c *Context) ForceClose() { c.conn.ForceClose() }
