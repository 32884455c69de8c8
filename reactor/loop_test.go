package reactor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runLoopInBackground(t *testing.T, loop *EventLoop) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- loop.Run() }()
	return done
}

func TestEventLoop_RunAndQuit(t *testing.T) {
	loop, err := NewEventLoop()
	require.NoError(t, err)
	defer loop.Close()

	done := runLoopInBackground(t, loop)
	time.Sleep(10 * time.Millisecond)
	loop.Quit()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not quit in time")
	}
}

func TestEventLoop_RunInLoop_FromForeignGoroutineIsQueued(t *testing.T) {
	loop, err := NewEventLoop()
	require.NoError(t, err)
	defer loop.Close()

	done := runLoopInBackground(t, loop)

	var ran atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	loop.RunInLoop(func() {
		ran.Store(true)
		wg.Done()
	})

	wg.Wait()
	assert.True(t, ran.Load())

	loop.Quit()
	<-done
}

func TestEventLoop_QueueInLoop_RunsEventually(t *testing.T) {
	loop, err := NewEventLoop()
	require.NoError(t, err)
	defer loop.Close()

	done := runLoopInBackground(t, loop)

	var count atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		loop.QueueInLoop(func() {
			count.Add(1)
			wg.Done()
		})
	}
	wg.Wait()
	assert.Equal(t, int32(3), count.Load())

	loop.Quit()
	<-done
}

func TestEventLoop_RunAfter_FiresOnce(t *testing.T) {
	loop, err := NewEventLoop()
	require.NoError(t, err)
	defer loop.Close()

	done := runLoopInBackground(t, loop)

	fired := make(chan struct{}, 2)
	loop.RunAfter(10*time.Millisecond, func() { fired <- struct{}{} })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}

	select {
	case <-fired:
		t.Fatal("one-shot timer fired more than once")
	case <-time.After(100 * time.Millisecond):
	}

	loop.Quit()
	<-done
}

func TestEventLoop_Cancel_PreventsFiring(t *testing.T) {
	loop, err := NewEventLoop()
	require.NoError(t, err)
	defer loop.Close()

	done := runLoopInBackground(t, loop)

	fired := make(chan struct{}, 1)
	var id TimerID
	loop.RunInLoop(func() {
		id = loop.RunAfter(20*time.Millisecond, func() { fired <- struct{}{} })
		loop.Cancel(id)
	})

	select {
	case <-fired:
		t.Fatal("cancelled timer fired")
	case <-time.After(100 * time.Millisecond):
	}

	loop.Quit()
	<-done
}

func TestEventLoop_RunEvery_FiresRepeatedly(t *testing.T) {
	loop, err := NewEventLoop()
	require.NoError(t, err)
	defer loop.Close()

	done := runLoopInBackground(t, loop)

	var count atomic.Int32
	loop.RunEvery(10*time.Millisecond, func() { count.Add(1) })

	time.Sleep(150 * time.Millisecond)
	loop.Quit()
	<-done

	assert.GreaterOrEqual(t, count.Load(), int32(3))
}
