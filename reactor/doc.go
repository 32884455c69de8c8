// Package reactor implements a single-threaded, readiness-based event loop:
// a Poller (epoll on Linux, kqueue on Darwin) multiplexes file descriptors
// wrapped as Channels, a TimerQueue arms a kernel-backed timer so
// expirations surface as ordinary readability, and a mutex-guarded task
// queue plus a wakeup descriptor (eventfd or, on Darwin, a self-pipe) let
// other goroutines schedule work onto the loop.
//
// # Thread affinity
//
// An EventLoop, once Run, belongs to exactly one goroutine for its entire
// life. Every Channel operation and every callback registered on it must
// only be invoked from that goroutine; EventLoop.InLoop reports whether the
// calling goroutine is the owner. RunInLoop, QueueInLoop, and Quit are the
// only methods meant to be called from other goroutines.
//
// # Usage
//
//	loop, err := reactor.NewEventLoop()
//	if err != nil {
//		return err
//	}
//	ch := reactor.NewChannel(loop, fd)
//	ch.OnReadable(func() { /* fd is readable */ })
//	ch.EnableReading()
//	go func() { _ = loop.Run() }()
//	// ... later, from any goroutine ...
//	loop.Quit()
package reactor
