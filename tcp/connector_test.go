package tcp

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frezcirno/rpx/netutil"
	"github.com/frezcirno/rpx/reactor"
	"golang.org/x/sys/unix"
)

func TestConnector_SetRetryBackoff_OverridesDefaults(t *testing.T) {
	loop, err := reactor.NewEventLoop()
	require.NoError(t, err)
	defer loop.Close()

	addr := netutil.NewAddress(netip.MustParseAddr("127.0.0.1"), 1)
	c := NewConnector(loop, addr)
	assert.Equal(t, initialRetryDelay, c.retryDelay)

	c.SetRetryBackoff(10*time.Millisecond, 100*time.Millisecond)
	assert.Equal(t, 10*time.Millisecond, c.retryDelay)
	assert.Equal(t, 10*time.Millisecond, c.baseDelay)
	assert.Equal(t, 100*time.Millisecond, c.maxDelay)
}

func TestConnector_Retry_CapsAtMaxDelay(t *testing.T) {
	loop, err := reactor.NewEventLoop()
	require.NoError(t, err)
	defer loop.Close()

	addr := netutil.NewAddress(netip.MustParseAddr("127.0.0.1"), 1)
	c := NewConnector(loop, addr)
	c.SetRetryBackoff(10*time.Millisecond, 15*time.Millisecond)
	c.connect.Store(true)

	fired := make(chan struct{}, 1)
	c.loop.RunInLoop(func() {
		c.retry()
		fired <- struct{}{}
	})

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()
	<-fired

	assert.Equal(t, 15*time.Millisecond, c.retryDelay)

	loop.Quit()
	<-done
}

func TestConnector_ConnectsToListeningServer(t *testing.T) {
	loop, err := reactor.NewEventLoop()
	require.NoError(t, err)
	defer loop.Close()

	listener, err := netutil.CreateNonblockingSocket(unix.AF_INET)
	require.NoError(t, err)
	addr := netutil.NewAddress(netip.MustParseAddr("127.0.0.1"), 0)
	require.NoError(t, listener.BindAndListen(addr, true, false))
	local, err := listener.LocalAddr()
	require.NoError(t, err)

	connected := make(chan int, 1)
	c := NewConnector(loop, local)
	c.SetNewConnectionCallback(func(fd int, peer netutil.Address) {
		connected <- fd
	})
	c.Start()

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()

	select {
	case fd := <-connected:
		assert.Greater(t, fd, 0)
		_ = unix.Close(fd)
	case <-time.After(2 * time.Second):
		t.Fatal("connector never connected")
	}

	loop.Quit()
	<-done
	_ = listener.Close()
}
