//go:build darwin

package reactor

import (
	"sync"
	"syscall"
	"time"
)

// darwinTimerArming stands in for a kernel timerfd, which Darwin's kqueue
// has no equivalent of as a registrable descriptor compatible with this
// package's fd-indexed FastPoller (EVFILT_TIMER identifies timers by an
// arbitrary ident rather than a real descriptor, which doesn't fit the
// fd-keyed dispatch table poller_darwin.go already uses for every other
// channel). Instead, a runtime timer drives a self-pipe: the read end is
// registered as an ordinary Channel like any other fd, so TimerQueue's
// platform-independent half never has to know the difference.
type darwinTimerArming struct {
	readFD, writeFD int

	mu    sync.Mutex
	timer *time.Timer
}

func newTimerArming() (timerArming, int, error) {
	r, w, err := createWakeFd(0, 0)
	if err != nil {
		return nil, -1, err
	}
	return &darwinTimerArming{readFD: r, writeFD: w}, r, nil
}

func (a *darwinTimerArming) arm(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(d, a.fire)
}

func (a *darwinTimerArming) disarm() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func (a *darwinTimerArming) fire() {
	var one [1]byte
	_, _ = syscall.Write(a.writeFD, one[:])
}

func (a *darwinTimerArming) drain() {
	var buf [64]byte
	for {
		n, err := syscall.Read(a.readFD, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

func (a *darwinTimerArming) close() {
	a.disarm()
	_ = closeWakeFd(a.readFD, a.writeFD)
}
