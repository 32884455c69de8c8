package reactor

// wakeupDescriptor is the cross-thread notification primitive every
// EventLoop owns: a write to it makes a blocked poll return immediately.
// Linux backs this with an eventfd (wakeup_linux.go); Darwin has no
// eventfd, so wakeup_darwin.go substitutes a self-pipe — both expose the
// same read/write fd pair.
type wakeupDescriptor struct {
	readFD, writeFD int
	channel         *Channel
}

func newWakeupDescriptor(loop *EventLoop, onWake func()) (*wakeupDescriptor, error) {
	r, w, err := createWakeFd(0, EFD_NONBLOCK|EFD_CLOEXEC)
	if err != nil {
		return nil, err
	}
	wd := &wakeupDescriptor{readFD: r, writeFD: w}
	wd.channel = NewChannel(loop, r)
	wd.channel.OnReadable(func() {
		wd.drain()
		onWake()
	})
	wd.channel.EnableReading()
	return wd, nil
}

func (wd *wakeupDescriptor) drain() {
	_ = drainWakeUpPipeFD(wd.readFD)
}

func (wd *wakeupDescriptor) wake() {
	_ = writeWakeFD(wd.writeFD)
}

func (wd *wakeupDescriptor) close() {
	wd.channel.DisableAll()
	wd.channel.Remove()
	_ = closeWakeFd(wd.readFD, wd.writeFD)
}
