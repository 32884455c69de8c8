package netutil_test

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frezcirno/rpx/netutil"
)

func TestNewAddress(t *testing.T) {
	ip := netip.MustParseAddr("127.0.0.1")
	addr := netutil.NewAddress(ip, 8080)
	assert.Equal(t, ip, addr.IP())
	assert.Equal(t, uint16(8080), addr.Port())
	assert.Equal(t, "127.0.0.1:8080", addr.String())
	assert.False(t, addr.IsIPv6())
}

func TestResolveAddress_Literal(t *testing.T) {
	addr, err := netutil.ResolveAddress("tcp", "192.168.1.1:9000")
	require.NoError(t, err)
	assert.Equal(t, uint16(9000), addr.Port())
	assert.Equal(t, "192.168.1.1", addr.IP().String())
}

func TestResolveAddress_IPv6Literal(t *testing.T) {
	addr, err := netutil.ResolveAddress("tcp", "[::1]:9000")
	require.NoError(t, err)
	assert.True(t, addr.IsIPv6())
}

func TestResolveAddress_InvalidHostPort(t *testing.T) {
	_, err := netutil.ResolveAddress("tcp", "not-a-hostport")
	assert.Error(t, err)
}

func TestAddress_Equal(t *testing.T) {
	a := netutil.NewAddress(netip.MustParseAddr("10.0.0.1"), 80)
	b := netutil.NewAddress(netip.MustParseAddr("10.0.0.1"), 80)
	c := netutil.NewAddress(netip.MustParseAddr("10.0.0.2"), 80)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestAddress_SockAddr(t *testing.T) {
	addr := netutil.NewAddress(netip.MustParseAddr("127.0.0.1"), 1234)
	sa := addr.SockAddr()
	assert.Equal(t, 1234, sa.Port)
	assert.Equal(t, "127.0.0.1", sa.IP.String())
}
