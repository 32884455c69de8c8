package reactor

// Channel binds one file descriptor to the callbacks interested in its
// readiness events and tracks which events it currently asks the poller to
// watch for. It does no I/O itself; TcpConnection, Acceptor, and Connector
// each own one and drive it.
//
// A Channel belongs to exactly one EventLoop for its entire life and every
// method below must only be called from that loop's thread.
type Channel struct {
	loop *EventLoop
	fd   int

	interests IOEvents
	events    IOEvents

	readCallback  func()
	writeCallback func()
	closeCallback func()
	errorCallback func()

	state channelState

	// tie, when set, is checked before dispatching events so a Channel
	// whose owner has already been destroyed doesn't fire into freed
	// state. TcpConnection ties its channel to itself for this reason.
	tie     any
	tied    bool
	tieDead func() bool
}

type channelState int

const (
	channelUnset channelState = iota
	channelAdded
	channelDeleted
)

// NewChannel creates a Channel for fd on loop. The channel starts with no
// interests; callers must call EnableReading/EnableWriting to begin
// receiving events.
func NewChannel(loop *EventLoop, fd int) *Channel {
	return &Channel{loop: loop, fd: fd, state: channelUnset}
}

// FD returns the underlying descriptor.
func (c *Channel) FD() int { return c.fd }

// OnReadable, OnWritable, OnClose, and OnError register the callbacks
// invoked from HandleEvent. Calling these concurrently with event dispatch
// is only safe from the owning loop's thread.
func (c *Channel) OnReadable(cb func()) { c.readCallback = cb }
func (c *Channel) OnWritable(cb func()) { c.writeCallback = cb }
func (c *Channel) OnClose(cb func())    { c.closeCallback = cb }
func (c *Channel) OnError(cb func())    { c.errorCallback = cb }

// Tie ties the channel's lifetime to a liveness check: if alive returns
// false when an event fires, the event is dropped instead of dispatched.
// TcpConnection uses this to guard against events racing its own
// destruction once its shared ownership has dropped to zero.
func (c *Channel) Tie(alive func() bool) { c.tieDead = alive }

// HasReadInterest, HasWriteInterest report the channel's current registered
// interest set.
func (c *Channel) HasReadInterest() bool  { return c.interests&EventRead != 0 }
func (c *Channel) HasWriteInterest() bool { return c.interests&EventWrite != 0 }
func (c *Channel) HasNoneInterest() bool  { return c.interests == 0 }

// EnableReading, DisableReading, EnableWriting, and DisableWriting adjust
// the interest set and push the change to the poller via the owning loop.
func (c *Channel) EnableReading() {
	c.interests |= EventRead
	c.update()
}

func (c *Channel) DisableReading() {
	c.interests &^= EventRead
	c.update()
}

func (c *Channel) EnableWriting() {
	c.interests |= EventWrite
	c.update()
}

func (c *Channel) DisableWriting() {
	c.interests &^= EventWrite
	c.update()
}

func (c *Channel) DisableAll() {
	c.interests = 0
	c.update()
}

func (c *Channel) update() {
	c.loop.updateChannel(c)
}

// Remove deregisters the channel from its loop's poller entirely. The
// channel must have no interests left: it is only removed once its owner
// has fully quiesced it.
func (c *Channel) Remove() {
	c.loop.removeChannel(c)
}

// setRevents records the event mask the poller observed for this fd on the
// most recent poll; only the loop's dispatch path calls this.
func (c *Channel) setRevents(events IOEvents) { c.events = events }

// HandleEvent dispatches the channel's most recently observed events to its
// registered callbacks, in the order hang-up, error, readable, writable:
// a hang-up without a pending readable event is treated as close, not as
// data available to read first.
func (c *Channel) HandleEvent() {
	if c.tieDead != nil && !c.tieDead() {
		return
	}

	if c.events&EventHangup != 0 && c.events&EventRead == 0 {
		if c.closeCallback != nil {
			c.closeCallback()
		}
	}
	if c.events&EventError != 0 {
		if c.errorCallback != nil {
			c.errorCallback()
		}
	}
	if c.events&EventRead != 0 {
		if c.readCallback != nil {
			c.readCallback()
		}
	}
	if c.events&EventWrite != 0 {
		if c.writeCallback != nil {
			c.writeCallback()
		}
	}
}
