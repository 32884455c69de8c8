package reactor

// loopOptions holds configuration resolved from LoopOption values passed to
// NewEventLoop.
type loopOptions struct {
	logger Logger
}

// LoopOption configures an EventLoop at construction time, following the
// functional-options pattern used throughout this package's lineage.
type LoopOption interface {
	applyLoop(*loopOptions)
}

type loopOptionFunc func(*loopOptions)

func (f loopOptionFunc) applyLoop(opts *loopOptions) { f(opts) }

// WithLogger installs a Logger used for diagnostic messages (panics
// recovered from tasks and timers, errors from the poller). The default is
// NopLogger.
func WithLogger(logger Logger) LoopOption {
	return loopOptionFunc(func(opts *loopOptions) {
		opts.logger = logger
	})
}

func resolveLoopOptions(opts []LoopOption) *loopOptions {
	cfg := &loopOptions{logger: NopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt.applyLoop(cfg)
		}
	}
	return cfg
}
