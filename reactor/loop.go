package reactor

import (
	"runtime"
	"sync/atomic"
	"time"
)

// EventLoop is the single-threaded execution vehicle for I/O, timers, and
// cross-thread tasks. It must be run on the goroutine
// that will service it for its entire life; Run never migrates to another
// OS thread's worth of logic, and every Channel/TimerQueue operation other
// than the explicitly cross-thread entry points below must originate from
// that same goroutine.
type EventLoop struct {
	poller *FastPoller
	timers *TimerQueue
	tasks  taskQueue
	wakeup *wakeupDescriptor

	logger Logger

	state FastState

	ownerGoroutine atomic.Int64
	draining       atomic.Bool

	activeEvents []pendingEvent
}

type pendingEvent struct {
	channel *Channel
	events  IOEvents
}

// NewEventLoop constructs an EventLoop bound to the platform poller. The
// loop does not start servicing events until Run is called, on the
// goroutine that owns it thereafter.
func NewEventLoop(opts ...LoopOption) (*EventLoop, error) {
	cfg := resolveLoopOptions(opts)

	poller, err := newPoller()
	if err != nil {
		return nil, wrapf(err, "reactor: create poller")
	}

	loop := &EventLoop{
		poller: poller,
		logger: cfg.logger,
	}
	loop.state.Store(StateAwake)
	loop.ownerGoroutine.Store(-1)

	timers, err := newTimerQueue(loop)
	if err != nil {
		_ = poller.Close()
		return nil, wrapf(err, "reactor: create timer queue")
	}
	loop.timers = timers

	wakeup, err := newWakeupDescriptor(loop, loop.wakeupTriggered)
	if err != nil {
		timers.close()
		_ = poller.Close()
		return nil, wrapf(err, "reactor: create wakeup descriptor")
	}
	loop.wakeup = wakeup

	return loop, nil
}

func (l *EventLoop) wakeupTriggered() {
	// The eventfd/self-pipe read alone is enough to unblock PollIO; the
	// loop picks up whatever was queued on its next pass through Run.
}

// InLoop reports whether the calling goroutine owns this loop.
func (l *EventLoop) InLoop() bool {
	return l.ownerGoroutine.Load() == currentGoroutineID()
}

// Run executes until Quit is called. It must be invoked on the goroutine
// that will own the loop from then on.
func (l *EventLoop) Run() error {
	l.ownerGoroutine.Store(currentGoroutineID())
	if !l.state.TryTransition(StateAwake, StateRunning) {
		return ErrLoopTerminated
	}

	for {
		state := l.state.Load()
		if state == StateTerminating {
			break
		}

		l.state.TryTransition(StateRunning, StateSleeping)
		_, err := l.poller.PollIO(pollTimeoutMs)
		l.state.TryTransition(StateSleeping, StateRunning)
		if err != nil {
			l.logger.Log(LogEntry{Level: LevelError, Message: "poll error", Err: err})
		}

		l.dispatchActiveChannels()

		l.draining.Store(true)
		tasks := l.tasks.drain()
		for _, task := range tasks {
			l.safeRun(task)
		}
		l.draining.Store(false)
	}

	l.state.Store(StateTerminated)
	return nil
}

// pollTimeoutMs bounds how long PollIO blocks with no registered timer, so
// Quit called from another goroutine is noticed promptly even without the
// wakeup descriptor (belt-and-braces; the wakeup descriptor is what makes
// this responsive in practice).
const pollTimeoutMs = 1000

func (l *EventLoop) dispatchActiveChannels() {
	for _, pe := range l.activeEvents {
		pe.channel.setRevents(pe.events)
		l.safeRun(pe.channel.HandleEvent)
	}
	l.activeEvents = l.activeEvents[:0]
}

func (l *EventLoop) safeRun(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Log(LogEntry{Level: LevelError, Message: "recovered panic in loop callback", Fields: map[string]any{"panic": r}})
		}
	}()
	fn()
}

// Quit requests the loop stop after its current iteration. Safe to call
// from any goroutine.
func (l *EventLoop) Quit() {
	if l.state.TransitionAny([]LoopState{StateRunning, StateSleeping, StateAwake}, StateTerminating) {
		l.wakeup.wake()
	}
}

// RunInLoop executes task immediately if called from the loop's own
// goroutine and the loop is not currently draining its task queue;
// otherwise it queues task and wakes the loop.
func (l *EventLoop) RunInLoop(task func()) {
	if l.InLoop() && !l.draining.Load() {
		task()
		return
	}
	l.QueueInLoop(task)
}

// QueueInLoop always enqueues task, waking the loop if the caller isn't
// its owner or the loop is mid-drain — a task queued by another task
// during drain must still be picked up on the very next iteration rather
// than silently wait for some later external wake.
func (l *EventLoop) QueueInLoop(task func()) {
	l.tasks.push(task)
	if !l.InLoop() || l.draining.Load() {
		l.wakeup.wake()
	}
}

// RunAt, RunAfter, RunEvery, and Cancel delegate to the loop's TimerQueue.
func (l *EventLoop) RunAt(when time.Time, cb func()) TimerID     { return l.timers.RunAt(when, cb) }
func (l *EventLoop) RunAfter(d time.Duration, cb func()) TimerID { return l.timers.RunAfter(d, cb) }
func (l *EventLoop) RunEvery(d time.Duration, cb func()) TimerID { return l.timers.RunEvery(d, cb) }
func (l *EventLoop) Cancel(id TimerID)                           { l.timers.Cancel(id) }

// updateChannel registers or updates a channel's interest set with the
// poller; invoked only via Channel's own methods.
func (l *EventLoop) updateChannel(ch *Channel) {
	if ch.state == channelUnset || ch.state == channelDeleted {
		if ch.HasNoneInterest() {
			return
		}
		ch.state = channelAdded
		_ = l.poller.RegisterFD(ch.fd, ch.interests, func(events IOEvents) {
			l.activeEvents = append(l.activeEvents, pendingEvent{channel: ch, events: events})
		})
		return
	}

	if ch.HasNoneInterest() {
		_ = l.poller.UnregisterFD(ch.fd)
		ch.state = channelDeleted
		return
	}
	_ = l.poller.ModifyFD(ch.fd, ch.interests)
}

// removeChannel fully deregisters a channel. It must have no interests
// left before this is called.
func (l *EventLoop) removeChannel(ch *Channel) {
	if ch.state == channelAdded {
		_ = l.poller.UnregisterFD(ch.fd)
	}
	ch.state = channelUnset
}

// Close releases the loop's own descriptors (poller, timer, wakeup). Call
// it only after Run has returned.
func (l *EventLoop) Close() error {
	l.timers.close()
	l.wakeup.close()
	return l.poller.Close()
}

// currentGoroutineID extracts the calling goroutine's id from its stack
// trace header. It backs Run's owner record and the InLoop affinity check,
// so it runs once per Run and once per RunInLoop/QueueInLoop call.
func currentGoroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parseGoroutineID(buf[:n])
}

func parseGoroutineID(b []byte) int64 {
	// Stack traces begin with "goroutine 123 [running]:".
	const prefix = "goroutine "
	if len(b) < len(prefix) || string(b[:len(prefix)]) != prefix {
		return -1
	}
	b = b[len(prefix):]
	var id int64
	for _, c := range b {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + int64(c-'0')
	}
	return id
}
