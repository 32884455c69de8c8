package tcp

import (
	"fmt"
	"os/signal"
	"sync"

	"github.com/frezcirno/rpx/netutil"
	"github.com/frezcirno/rpx/reactor"
	"golang.org/x/sys/unix"
)

var ignoreSigpipeOnce sync.Once

// Server accepts inbound connections on a base loop and fans each one out
// to a worker loop from its EventLoopThreadPool.
type Server struct {
	baseLoop  *reactor.EventLoop
	pool      *reactor.EventLoopThreadPool
	acceptor  *Acceptor
	addr      netutil.Address
	logger    reactor.Logger
	metrics   Metrics
	keepalive bool

	mu          sync.Mutex
	connections map[int]*Connection
	nextConnID  int

	started bool

	connectCallback       ConnCallback
	messageCallback       MessageCallback
	closeCallback         ConnCallback
	writeCompleteCallback ConnCallback
}

// NewServer prepares a server bound to addr on baseLoop; call SetThreadNum
// before Start to fan connections out across additional worker loops.
// reusePort enables SO_REUSEPORT on the listening socket.
func NewServer(baseLoop *reactor.EventLoop, addr netutil.Address, reusePort bool) (*Server, error) {
	ignoreSigpipeOnce.Do(func() { signal.Ignore(unix.SIGPIPE) })

	acceptor, err := NewAcceptor(baseLoop, addr, reusePort)
	if err != nil {
		return nil, fmt.Errorf("tcp: server acceptor: %w", err)
	}

	s := &Server{
		baseLoop:    baseLoop,
		pool:        reactor.NewEventLoopThreadPool(baseLoop),
		acceptor:    acceptor,
		addr:        addr,
		logger:      reactor.NopLogger{},
		metrics:     noopMetrics{},
		keepalive:   true,
		connections: make(map[int]*Connection),
	}
	acceptor.SetNewConnectionCallback(s.handleNewConnection)
	return s, nil
}

func (s *Server) SetLogger(logger reactor.Logger)          { s.logger = logger }
func (s *Server) SetConnectCallback(cb ConnCallback)       { s.connectCallback = cb }
func (s *Server) SetMessageCallback(cb MessageCallback)    { s.messageCallback = cb }
func (s *Server) SetCloseCallback(cb ConnCallback)         { s.closeCallback = cb }
func (s *Server) SetWriteCompleteCallback(cb ConnCallback) { s.writeCompleteCallback = cb }

// SetMetrics installs the collector this server and every connection it
// accepts report traffic through.
func (s *Server) SetMetrics(m Metrics) {
	if m == nil {
		m = noopMetrics{}
	}
	s.metrics = m
	s.acceptor.SetMetrics(m)
}

// SetKeepalive controls whether accepted connections have SO_KEEPALIVE
// enabled. Defaults to true.
func (s *Server) SetKeepalive(on bool) { s.keepalive = on }

// SetThreadNum configures the size of the worker-loop pool used to fan out
// accepted connections; must be called before Start.
func (s *Server) SetThreadNum(n int) {
	if !s.started {
		_ = s.pool.Start(n)
	}
}

// Start begins listening. Idempotent.
func (s *Server) Start() {
	if s.started {
		return
	}
	s.started = true
	s.baseLoop.RunInLoop(s.acceptor.Listen)
}

// Stop quits the worker pool and the base loop's acceptor.
func (s *Server) Stop() {
	s.pool.Stop()
	s.baseLoop.RunInLoop(s.acceptor.Close)
}

func (s *Server) handleNewConnection(fd int, peer netutil.Address) {
	loop := s.pool.NextLoop()

	s.mu.Lock()
	id := s.nextConnID
	s.nextConnID++
	s.mu.Unlock()

	conn := NewConnection(loop, fd, peer)
	conn.SetLogger(s.logger)
	conn.SetMetrics(s.metrics)
	_ = conn.SetKeepAlive(s.keepalive)
	conn.SetConnectCallback(s.connectCallback)
	conn.SetMessageCallback(s.messageCallback)
	conn.SetWriteCompleteCallback(s.writeCompleteCallback)
	conn.SetCloseCallback(func(c *Connection) { s.handleClose(id, c) })

	s.mu.Lock()
	s.connections[id] = conn
	s.mu.Unlock()

	s.metrics.ConnectionOpened()
	loop.RunInLoop(conn.connectEstablished)
}

// handleClose runs on the connection's own loop (it is the close callback
// wired in handleNewConnection). The map removal is dispatched back onto
// the base loop first: the server's bookkeeping is always mutated from
// one place, then the connection's own loop finishes tearing the channel
// down.
func (s *Server) handleClose(id int, conn *Connection) {
	s.baseLoop.RunInLoop(func() {
		s.mu.Lock()
		delete(s.connections, id)
		s.mu.Unlock()
		s.metrics.ConnectionClosed()
		conn.Loop().QueueInLoop(conn.connectDestroyed)
		if s.closeCallback != nil {
			s.closeCallback(conn)
		}
	})
}
