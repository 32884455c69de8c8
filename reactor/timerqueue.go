package reactor

import (
	"container/heap"
	"sync/atomic"
	"time"
)

// TimerID identifies a scheduled timer for cancellation.
type TimerID int64

// timerEntry is one scheduled callback.
type timerEntry struct {
	seq      int64
	expiry   time.Time
	interval time.Duration // zero for one-shot
	callback func()
	index    int // heap index, maintained by container/heap
}

// timerHeap orders entries by expiry, ties broken by sequence id, so two
// timers armed in the same instant still fire in scheduling order.
type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].expiry.Equal(h[j].expiry) {
		return h[i].seq < h[j].seq
	}
	return h[i].expiry.Before(h[j].expiry)
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *timerHeap) Push(x any) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// minTimerInterval is the floor imposed on timerfd re-arming, so an
// overdue or zero-delay timer can never busy-loop the kernel timer.
const minTimerInterval = time.Millisecond

// TimerQueue owns every timer scheduled on one EventLoop, armed via a
// kernel timer channel so expirations surface as ordinary readability
// events. The arming mechanism is platform-specific: see
// timerqueue_linux.go (timerfd) and timerqueue_darwin.go (kqueue has no
// timerfd equivalent, so a self-pipe driven by a runtime timer stands in —
// see that file's doc comment).
type TimerQueue struct {
	loop *EventLoop

	arming  timerArming
	channel *Channel

	heap    timerHeap
	active  map[int64]*timerEntry
	nextSeq int64

	firing    bool
	cancelled map[int64]struct{}
}

func newTimerQueue(loop *EventLoop) (*TimerQueue, error) {
	arming, fd, err := newTimerArming()
	if err != nil {
		return nil, err
	}
	tq := &TimerQueue{
		loop:      loop,
		arming:    arming,
		active:    make(map[int64]*timerEntry),
		cancelled: make(map[int64]struct{}),
	}
	tq.channel = NewChannel(loop, fd)
	tq.channel.OnReadable(tq.handleExpire)
	tq.channel.EnableReading()
	return tq, nil
}

func (tq *TimerQueue) close() {
	tq.channel.DisableAll()
	tq.channel.Remove()
	tq.arming.close()
}

// RunAt schedules cb to fire at when.
func (tq *TimerQueue) RunAt(when time.Time, cb func()) TimerID {
	return tq.schedule(when, 0, cb)
}

// RunAfter schedules cb to fire once, delay from now.
func (tq *TimerQueue) RunAfter(delay time.Duration, cb func()) TimerID {
	return tq.schedule(time.Now().Add(delay), 0, cb)
}

// RunEvery schedules cb to fire repeatedly, every interval starting one
// interval from now.
func (tq *TimerQueue) RunEvery(interval time.Duration, cb func()) TimerID {
	return tq.schedule(time.Now().Add(interval), interval, cb)
}

func (tq *TimerQueue) schedule(when time.Time, interval time.Duration, cb func()) TimerID {
	seq := atomic.AddInt64(&tq.nextSeq, 1)
	e := &timerEntry{seq: seq, expiry: when, interval: interval, callback: cb}
	tq.insert(e)
	return TimerID(seq)
}

func (tq *TimerQueue) insert(e *timerEntry) {
	wasEarliest := tq.heap.Len() == 0 || e.expiry.Before(tq.heap[0].expiry)
	heap.Push(&tq.heap, e)
	tq.active[e.seq] = e
	if wasEarliest {
		tq.rearm()
	}
}

// Cancel removes a scheduled timer. If called while that timer's callback
// is currently firing, the cancellation is recorded so the post-fire
// re-insertion (for interval timers) is suppressed instead.
func (tq *TimerQueue) Cancel(id TimerID) {
	seq := int64(id)
	e, ok := tq.active[seq]
	if !ok {
		if tq.firing {
			tq.cancelled[seq] = struct{}{}
		}
		return
	}
	delete(tq.active, seq)
	if e.index >= 0 {
		heap.Remove(&tq.heap, e.index)
	}
	if tq.firing {
		tq.cancelled[seq] = struct{}{}
	}
}

func (tq *TimerQueue) handleExpire() {
	tq.arming.drain()

	now := time.Now()
	var expired []*timerEntry
	for tq.heap.Len() > 0 && !tq.heap[0].expiry.After(now) {
		e := heap.Pop(&tq.heap).(*timerEntry)
		delete(tq.active, e.seq)
		expired = append(expired, e)
	}

	tq.firing = true
	tq.cancelled = make(map[int64]struct{})
	for _, e := range expired {
		e.callback()
	}
	for _, e := range expired {
		if e.interval <= 0 {
			continue
		}
		if _, dead := tq.cancelled[e.seq]; dead {
			continue
		}
		e.expiry = now.Add(e.interval)
		tq.insert(e)
	}
	tq.firing = false

	tq.rearm()
}

// rearm re-arms the kernel timer to the queue's new earliest expiry: the
// queue's head always equals the armed expiration whenever the queue is
// non-empty.
func (tq *TimerQueue) rearm() {
	if tq.heap.Len() == 0 {
		tq.arming.disarm()
		return
	}
	d := time.Until(tq.heap[0].expiry)
	if d < minTimerInterval {
		d = minTimerInterval
	}
	tq.arming.arm(d)
}

// timerArming is the platform-specific half of TimerQueue: it owns the
// descriptor that becomes readable when the armed duration elapses.
type timerArming interface {
	arm(d time.Duration)
	disarm()
	drain()
	close()
}
