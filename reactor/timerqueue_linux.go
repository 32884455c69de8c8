//go:build linux

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// linuxTimerArming arms a kernel timerfd directly: the kernel itself
// tracks the deadline and the descriptor becomes readable on expiry, with
// no polling or auxiliary goroutine.
type linuxTimerArming struct {
	fd int
}

func newTimerArming() (timerArming, int, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return nil, -1, err
	}
	return &linuxTimerArming{fd: fd}, fd, nil
}

func (a *linuxTimerArming) arm(d time.Duration) {
	spec := unix.ItimerSpec{
		Value: unix.NsecToTimespec(d.Nanoseconds()),
	}
	_ = unix.TimerfdSettime(a.fd, 0, &spec, nil)
}

func (a *linuxTimerArming) disarm() {
	_ = unix.TimerfdSettime(a.fd, 0, &unix.ItimerSpec{}, nil)
}

func (a *linuxTimerArming) drain() {
	var buf [8]byte
	_, _ = unix.Read(a.fd, buf[:])
}

func (a *linuxTimerArming) close() {
	_ = unix.Close(a.fd)
}
