package netutil_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frezcirno/rpx/netutil"
)

func TestBuffer_AppendRetrieve(t *testing.T) {
	b := netutil.NewBuffer()
	require.Equal(t, netutil.DefaultPrependSize, b.PrependableBytes())

	b.AppendString("hello world")
	assert.Equal(t, 11, b.ReadableBytes())
	assert.Equal(t, "hello world", string(b.Peek()))

	assert.Equal(t, "hello", b.RetrieveString(5))
	assert.Equal(t, 6, b.ReadableBytes())
	assert.Equal(t, " world", string(b.Peek()))
}

func TestBuffer_RetrieveAllResetsCursors(t *testing.T) {
	b := netutil.NewBuffer()
	b.AppendString("payload")
	assert.Equal(t, "payload", b.RetrieveAllString())
	assert.Equal(t, 0, b.ReadableBytes())
	assert.Equal(t, netutil.DefaultPrependSize, b.PrependableBytes())
}

func TestBuffer_RetrieveBeyondReadableDrainsEverything(t *testing.T) {
	b := netutil.NewBuffer()
	b.AppendString("abc")
	b.Retrieve(100)
	assert.Equal(t, 0, b.ReadableBytes())
}

func TestBuffer_PrependInt32(t *testing.T) {
	b := netutil.NewBuffer()
	b.AppendString("body")
	b.PrependInt32(4)
	assert.Equal(t, 8, b.ReadableBytes())
	assert.Equal(t, []byte{0, 0, 0, 4}, b.Peek()[:4])
}

func TestBuffer_PrependPanicsWhenHeadroomExhausted(t *testing.T) {
	b := netutil.NewBufferSize(16)
	assert.Panics(t, func() {
		b.Prepend(make([]byte, netutil.DefaultPrependSize+1))
	})
}

func TestBuffer_EnsureWritableGrowsBackingArray(t *testing.T) {
	b := netutil.NewBufferSize(4)
	b.AppendString("xx")
	before := b.WritableBytes()
	b.EnsureWritable(before + 64)
	assert.GreaterOrEqual(t, b.WritableBytes(), before+64)
	assert.Equal(t, "xx", string(b.Peek()))
}

func TestReadFD_FillsBufferThenSpills(t *testing.T) {
	b := netutil.NewBufferSize(8)
	data := make([]byte, 8+100)
	for i := range data {
		data[i] = byte(i)
	}
	reader := func(fd int, p []byte) (int, error) {
		n := copy(p, data)
		data = data[n:]
		return n, nil
	}

	n, err := netutil.ReadFD(0, b, reader)
	require.NoError(t, err)
	assert.Equal(t, 108, n)
	assert.Equal(t, 108, b.ReadableBytes())
}

func TestReadFD_PeerCloseReturnsEOF(t *testing.T) {
	b := netutil.NewBuffer()
	reader := func(fd int, p []byte) (int, error) { return 0, io.EOF }
	n, err := netutil.ReadFD(0, b, reader)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}
