package httpx

import (
	"github.com/frezcirno/rpx/netutil"
	"github.com/frezcirno/rpx/reactor"
	"github.com/frezcirno/rpx/tcp"
)

// connState is the per-connection slot stashed in tcp.Connection's
// UserData, pairing the incremental parser with the Context handlers see.
type connState struct {
	ctx    *Context
	parser *Parser
}

// Server is an HTTP/1.1 server built on tcp.Server: it feeds every
// connection's bytes through a request Parser and hands completed requests
// to the request callback via a Context.
type Server struct {
	tcpServer *tcp.Server

	connectCallback       func(*Context)
	requestCallback       func(*Context)
	writeCompleteCallback func(*Context)
	closeCallback         func(*Context)
}

// NewServer prepares an HTTP server bound to addr on loop. reusePort
// enables SO_REUSEPORT on the listening socket.
func NewServer(loop *reactor.EventLoop, addr netutil.Address, reusePort bool) (*Server, error) {
	ts, err := tcp.NewServer(loop, addr, reusePort)
	if err != nil {
		return nil, err
	}
	s := &Server{tcpServer: ts}
	ts.SetConnectCallback(s.handleConnect)
	ts.SetMessageCallback(s.handleMessage)
	ts.SetCloseCallback(s.handleClose)
	ts.SetWriteCompleteCallback(s.handleWriteComplete)
	return s, nil
}

// SetConnectCallback installs the handler invoked once a new connection's
// Context has been created, before any bytes are parsed. It may override
// the Context's own write-complete/close hooks for that one connection.
func (s *Server) SetConnectCallback(cb func(*Context)) { s.connectCallback = cb }

// SetRequestCallback installs the handler invoked once a full request has
// been parsed.
func (s *Server) SetRequestCallback(cb func(*Context)) { s.requestCallback = cb }

// SetWriteCompleteCallback installs the default write-complete hook new
// Contexts are created with.
func (s *Server) SetWriteCompleteCallback(cb func(*Context)) { s.writeCompleteCallback = cb }

// SetCloseCallback installs the default close hook new Contexts are created
// with.
func (s *Server) SetCloseCallback(cb func(*Context)) { s.closeCallback = cb }

// SetLogger installs the logger used by the underlying tcp.Server.
func (s *Server) SetLogger(logger reactor.Logger) { s.tcpServer.SetLogger(logger) }

// SetMetrics installs the collector the underlying tcp.Server reports
// connection and byte counts through.
func (s *Server) SetMetrics(m tcp.Metrics) { s.tcpServer.SetMetrics(m) }

// SetKeepalive controls SO_KEEPALIVE on accepted connections.
func (s *Server) SetKeepalive(on bool) { s.tcpServer.SetKeepalive(on) }

// SetThreadNum sizes the worker-loop pool fanning connections out.
func (s *Server) SetThreadNum(n int) { s.tcpServer.SetThreadNum(n) }

// Start begins listening.
func (s *Server) Start() { s.tcpServer.Start() }

// Stop tears the server down.
func (s *Server) Stop() { s.tcpServer.Stop() }

func (s *Server) handleConnect(conn *tcp.Connection) {
	ctx := newContext(conn)
	ctx.writeCompleteCallback = s.writeCompleteCallback
	ctx.closeCallback = s.closeCallback

	parser := NewParser(ModeRequest)
	parser.OnHeadersComplete(func(m *Message) { ctx.setMessage(m) })
	parser.OnMessageComplete(func(m *Message) {
		ctx.setMessage(m)
		if s.requestCallback != nil {
			s.requestCallback(ctx)
		}
	})
	conn.SetUserData(&connState{ctx: ctx, parser: parser})

	if s.connectCallback != nil {
		s.connectCallback(ctx)
	}
}

func (s *Server) handleMessage(conn *tcp.Connection, buf *netutil.Buffer) {
	st, _ := conn.UserData().(*connState)
	if st == nil {
		buf.RetrieveAll()
		return
	}
	data := buf.Peek()
	n := len(data)
	if err := st.parser.Advance(data); err != nil {
		buf.RetrieveAll()
		st.ctx.SendError(400)
		return
	}
	buf.Retrieve(n)
}

func (s *Server) handleClose(conn *tcp.Connection) {
	if st, ok := conn.UserData().(*connState); ok && st.ctx.closeCallback != nil {
		st.ctx.closeCallback(st.ctx)
	}
}

func (s *Server) handleWriteComplete(conn *tcp.Connection) {
	if st, ok := conn.UserData().(*connState); ok && st.ctx.writeCompleteCallback != nil {
		st.ctx.writeCompleteCallback(st.ctx)
	}
}
