package httpx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/frezcirno/rpx/netutil"
	"github.com/frezcirno/rpx/reactor"
	"github.com/frezcirno/rpx/tcp"
)

// newLoopbackContext wires a Context to one end of a socketpair, running on
// a live EventLoop, so Context's write helpers exercise a real Connection
// instead of a hand-rolled fake. The test reads the raw bytes off the other
// fd directly.
func newLoopbackContext(t *testing.T) (ctx *Context, loop *reactor.EventLoop, peerFD int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	require.NoError(t, err)

	loop, err = reactor.NewEventLoop()
	require.NoError(t, err)
	t.Cleanup(func() { _ = loop.Close() })

	conn := tcp.NewConnection(loop, fds[0], netutil.Address{})
	ctx = newContext(conn)

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()
	t.Cleanup(func() {
		loop.Quit()
		<-done
	})

	return ctx, loop, fds[1]
}

func readAll(t *testing.T, fd int, timeout time.Duration) string {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var out []byte
	buf := make([]byte, 4096)
	for time.Now().Before(deadline) {
		n, err := unix.Read(fd, buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err == unix.EAGAIN {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if len(out) > 0 {
			break
		}
	}
	return string(out)
}

func TestRouter_LongestPrefixWins(t *testing.T) {
	router := NewRouter()
	var hit string
	router.AddRoute("/", func(c *Context) { hit = "root" })
	router.AddRoute("/api", func(c *Context) { hit = "api" })
	router.AddRoute("/api/users", func(c *Context) { hit = "api/users" })

	ctx, _, peerFD := newLoopbackContext(t)
	defer unix.Close(peerFD)
	ctx.setMessage(&Message{Path: "/api/users/42"})

	router.HandleRequest(ctx)
	assert.Equal(t, "api/users", hit)
}

func TestRouter_PrefixBoundaryDoesNotMatchSuffix(t *testing.T) {
	router := NewRouter()
	matched := false
	router.AddRoute("/foo", func(c *Context) { matched = true })

	ctx, _, peerFD := newLoopbackContext(t)
	defer unix.Close(peerFD)
	ctx.setMessage(&Message{Path: "/foobar"})

	router.HandleRequest(ctx)
	assert.False(t, matched)

	out := readAll(t, peerFD, time.Second)
	assert.Contains(t, out, "404")
}

func TestRouter_RegexRouteMatchesWhenNoPrefixFits(t *testing.T) {
	router := NewRouter()
	require.NoError(t, router.AddRegexRoute(`^/item/\d+$`, func(c *Context) {
		c.StartResponse(200)
		c.EndHeaders()
	}))

	ctx, _, peerFD := newLoopbackContext(t)
	defer unix.Close(peerFD)
	ctx.setMessage(&Message{Path: "/item/42"})

	router.HandleRequest(ctx)

	out := readAll(t, peerFD, time.Second)
	assert.Contains(t, out, "200")
}

func TestRouter_NoMatchSendsNotFound(t *testing.T) {
	router := NewRouter()

	ctx, _, peerFD := newLoopbackContext(t)
	defer unix.Close(peerFD)
	ctx.setMessage(&Message{Path: "/nowhere"})

	router.HandleRequest(ctx)

	out := readAll(t, peerFD, time.Second)
	assert.Contains(t, out, "404")
}
