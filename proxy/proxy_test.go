package proxy_test

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/frezcirno/rpx/httpx"
	"github.com/frezcirno/rpx/netutil"
	"github.com/frezcirno/rpx/proxy"
	"github.com/frezcirno/rpx/reactor"
)

func freePort(t *testing.T) uint16 {
	t.Helper()
	sock, err := netutil.CreateNonblockingSocket(unix.AF_INET)
	require.NoError(t, err)
	addr := netutil.NewAddress(netip.MustParseAddr("127.0.0.1"), 0)
	require.NoError(t, sock.BindAndListen(addr, true, false))
	local, err := sock.LocalAddr()
	require.NoError(t, err)
	require.NoError(t, sock.Close())
	return local.Port()
}

func TestHandler_ForwardsRequestAndStreamsResponseBack(t *testing.T) {
	loop, err := reactor.NewEventLoop()
	require.NoError(t, err)
	defer loop.Close()

	upstreamAddr := netutil.NewAddress(netip.MustParseAddr("127.0.0.1"), freePort(t))
	upstream, err := httpx.NewServer(loop, upstreamAddr, false)
	require.NoError(t, err)
	upstream.SetRequestCallback(func(ctx *httpx.Context) {
		req := ctx.Message()
		ctx.StartResponse(200)
		ctx.SendHeader("Content-Type", "text/plain")
		ctx.SendHeader("Content-Length", "11")
		ctx.EndHeaders()
		_ = req
		ctx.Send([]byte("hello proxy"))
	})

	downstreamAddr := netutil.NewAddress(netip.MustParseAddr("127.0.0.1"), freePort(t))
	downstream, err := httpx.NewServer(loop, downstreamAddr, false)
	require.NoError(t, err)
	handler := proxy.NewHandler(upstreamAddr)
	downstream.SetRequestCallback(handler.Handle)

	client := httpx.NewClient(loop, downstreamAddr)
	client.SetReconnect(false)
	client.SetConnectCallback(func(ctx *httpx.Context) {
		ctx.StartRequest("GET", "/anything")
		ctx.SendHeader("Host", "downstream.example")
		ctx.EndHeaders()
	})

	respCh := make(chan *httpx.Message, 1)
	client.SetResponseCallback(func(ctx *httpx.Context) {
		respCh <- ctx.Message()
	})

	loop.RunInLoop(func() {
		upstream.Start()
		downstream.Start()
		client.Connect()
	})

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()

	select {
	case resp := <-respCh:
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, "hello proxy", string(resp.Body))
	case <-time.After(3 * time.Second):
		t.Fatal("proxied response never arrived")
	}

	loop.Quit()
	<-done
}

func TestHandler_UpstreamDownLeavesDownstreamConnected(t *testing.T) {
	loop, err := reactor.NewEventLoop()
	require.NoError(t, err)
	defer loop.Close()

	// Nothing is listening on this address: the connector will retry
	// forever, so this test only asserts the downstream connection is
	// established, without a crash, while the connect attempt is in flight.
	deadUpstream := netutil.NewAddress(netip.MustParseAddr("127.0.0.1"), freePort(t))

	downstreamAddr := netutil.NewAddress(netip.MustParseAddr("127.0.0.1"), freePort(t))
	downstream, err := httpx.NewServer(loop, downstreamAddr, false)
	require.NoError(t, err)
	handler := proxy.NewHandler(deadUpstream)
	downstream.SetRequestCallback(handler.Handle)

	client := httpx.NewClient(loop, downstreamAddr)
	client.SetReconnect(false)
	connected := make(chan struct{}, 1)
	client.SetConnectCallback(func(ctx *httpx.Context) {
		ctx.StartRequest("GET", "/x")
		ctx.EndHeaders()
		connected <- struct{}{}
	})

	loop.RunInLoop(func() {
		downstream.Start()
		client.Connect()
	})

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("downstream connect never happened")
	}

	loop.Quit()
	<-done
}
