package reactor

import (
	"errors"
	"fmt"
)

// Sentinel errors of the reactor package. EventLoop.Run returns
// ErrLoopTerminated; the other three are defined but not returned by any
// function in this package.
var (
	ErrLoopTerminated  = errors.New("reactor: loop is terminated")
	ErrNotLoopThread   = errors.New("reactor: operation requires the loop's own thread")
	ErrChannelNotAdded = errors.New("reactor: channel is not registered with this loop")
	ErrTimerNotFound   = errors.New("reactor: timer id not found")
)

// wrapf annotates err with a formatted prefix, following the package's
// consistent fmt.Errorf("...: %w", err) wrapping style.
func wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
