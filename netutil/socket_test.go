package netutil_test

import (
	"net/netip"
	"testing"
	"time"

	"github.com/frezcirno/rpx/netutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestSocket_BindListenAcceptConnectRoundTrip(t *testing.T) {
	listener, err := netutil.CreateNonblockingSocket(unix.AF_INET)
	require.NoError(t, err)
	defer listener.Close()

	bindAddr := netutil.NewAddress(netip.MustParseAddr("127.0.0.1"), 0)
	require.NoError(t, listener.BindAndListen(bindAddr, true, false))

	local, err := listener.LocalAddr()
	require.NoError(t, err)
	require.NotZero(t, local.Port())

	client, err := netutil.CreateNonblockingSocket(unix.AF_INET)
	require.NoError(t, err)
	defer client.Close()

	err = client.Connect(local)
	if err != nil && err != unix.EINPROGRESS {
		require.NoError(t, err)
	}

	var acceptedFD int
	require.Eventually(t, func() bool {
		fd, _, acceptErr := listener.Accept()
		if acceptErr == nil {
			acceptedFD = fd
			return true
		}
		return false
	}, time.Second, 10*time.Millisecond)
	defer unix.Close(acceptedFD)

	errno, err := client.SOError()
	require.NoError(t, err)
	assert.Equal(t, 0, errno)

	peer, err := client.PeerAddr()
	require.NoError(t, err)
	assert.Equal(t, local.Port(), peer.Port())
}

func TestSocket_SetKeepAliveAndNoDelay(t *testing.T) {
	s, err := netutil.CreateNonblockingSocket(unix.AF_INET)
	require.NoError(t, err)
	defer s.Close()

	assert.NoError(t, s.SetKeepAlive(true))
	assert.NoError(t, s.SetNoDelay(true))
}

func TestSocket_ShutdownWriteHalfCloses(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	require.NoError(t, err)
	defer unix.Close(fds[1])

	s := netutil.NewSocket(fds[0])
	require.NoError(t, s.ShutdownWrite())

	n, err := unix.Read(fds[1], make([]byte, 1))
	assert.Equal(t, 0, n)
	assert.NoError(t, err)
}

func TestSocket_CloseIsIdempotent(t *testing.T) {
	s, err := netutil.CreateNonblockingSocket(unix.AF_INET)
	require.NoError(t, err)

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestSocket_ReusePortAllowsSecondBindToSamePort(t *testing.T) {
	first, err := netutil.CreateNonblockingSocket(unix.AF_INET)
	require.NoError(t, err)
	defer first.Close()

	bindAddr := netutil.NewAddress(netip.MustParseAddr("127.0.0.1"), 0)
	require.NoError(t, first.BindAndListen(bindAddr, true, true))

	local, err := first.LocalAddr()
	require.NoError(t, err)

	second, err := netutil.CreateNonblockingSocket(unix.AF_INET)
	require.NoError(t, err)
	defer second.Close()

	assert.NoError(t, second.BindAndListen(local, true, true))
}
