package reactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoop(t *testing.T) *EventLoop {
	t.Helper()
	loop, err := NewEventLoop()
	require.NoError(t, err)
	t.Cleanup(func() { _ = loop.Close() })
	return loop
}

func TestChannel_InterestToggling(t *testing.T) {
	loop := newTestLoop(t)
	ch := NewChannel(loop, 0)
	assert.True(t, ch.HasNoneInterest())

	ch.EnableReading()
	assert.True(t, ch.HasReadInterest())
	assert.False(t, ch.HasWriteInterest())

	ch.EnableWriting()
	assert.True(t, ch.HasWriteInterest())

	ch.DisableReading()
	assert.False(t, ch.HasReadInterest())

	ch.DisableAll()
	assert.True(t, ch.HasNoneInterest())
}

func TestChannel_HandleEvent_HangupWithoutReadDispatchesCloseOnly(t *testing.T) {
	loop := newTestLoop(t)
	ch := NewChannel(loop, 0)

	var order []string
	ch.OnClose(func() { order = append(order, "close") })
	ch.OnReadable(func() { order = append(order, "read") })

	ch.setRevents(EventHangup)
	ch.HandleEvent()

	assert.Equal(t, []string{"close"}, order)
}

func TestChannel_HandleEvent_HangupWithReadDispatchesReadOnly(t *testing.T) {
	loop := newTestLoop(t)
	ch := NewChannel(loop, 0)

	var order []string
	ch.OnClose(func() { order = append(order, "close") })
	ch.OnReadable(func() { order = append(order, "read") })

	ch.setRevents(EventHangup | EventRead)
	ch.HandleEvent()

	assert.Equal(t, []string{"read"}, order)
}

func TestChannel_HandleEvent_TieDeadSuppressesDispatch(t *testing.T) {
	loop := newTestLoop(t)
	ch := NewChannel(loop, 0)

	fired := false
	ch.OnReadable(func() { fired = true })
	ch.Tie(func() bool { return false })

	ch.setRevents(EventRead)
	ch.HandleEvent()

	assert.False(t, fired)
}

func TestChannel_HandleEvent_ErrorAndWrite(t *testing.T) {
	loop := newTestLoop(t)
	ch := NewChannel(loop, 0)

	var order []string
	ch.OnError(func() { order = append(order, "error") })
	ch.OnWritable(func() { order = append(order, "write") })

	ch.setRevents(EventError | EventWrite)
	ch.HandleEvent()

	assert.Equal(t, []string{"error", "write"}, order)
}
