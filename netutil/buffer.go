// Package netutil provides the leaf-level building blocks of the reactor
// core: a growable byte buffer with prepend headroom, endpoint address
// resolution, and owning-socket wrappers.
package netutil

import (
	"encoding/binary"
	"errors"
	"io"
	"sync"
)

// Default buffer geometry: small enough to stay cache-friendly, large
// enough to avoid churn on typical HTTP request/response framing.
const (
	// DefaultPrependSize reserves room at the front of the buffer so a
	// length-prefix or similar framing header can be written in place
	// without a second copy.
	DefaultPrependSize = 8
	// DefaultInitialSize is the initial readable+writable capacity,
	// excluding the prepend region.
	DefaultInitialSize = 1024
	// spillSize bounds a single vectored-read syscall: readers fill the
	// buffer's own tail room first, then spill any remainder from the
	// kernel into a pooled scratch buffer of this size, so one readv() call never
	// blindly grows the heap buffer to an attacker-controlled size.
	spillSize = 64 * 1024
)

var spillPool = sync.Pool{
	New: func() any {
		b := make([]byte, spillSize)
		return &b
	},
}

// Buffer is a contiguous byte buffer with prepend headroom at the front and
// spare room at the back, used as the read/write buffer for TcpConnection.
// Copying a Buffer value copies the slice header only, so the copy shares
// its backing storage with the original.
type Buffer struct {
	buf        []byte
	readIndex  int
	writeIndex int
}

// NewBuffer returns a Buffer with DefaultPrependSize headroom and
// DefaultInitialSize of usable capacity.
func NewBuffer() *Buffer {
	return NewBufferSize(DefaultInitialSize)
}

// NewBufferSize returns a Buffer with the given initial usable capacity.
func NewBufferSize(size int) *Buffer {
	b := &Buffer{
		buf: make([]byte, DefaultPrependSize+size),
	}
	b.readIndex = DefaultPrependSize
	b.writeIndex = DefaultPrependSize
	return b
}

// ReadableBytes returns the number of bytes available to read.
func (b *Buffer) ReadableBytes() int { return b.writeIndex - b.readIndex }

// WritableBytes returns the number of bytes that can be appended without
// growing the backing array.
func (b *Buffer) WritableBytes() int { return len(b.buf) - b.writeIndex }

// PrependableBytes returns the headroom available before the read cursor.
func (b *Buffer) PrependableBytes() int { return b.readIndex }

// Peek returns the unread portion of the buffer without consuming it. The
// returned slice aliases the buffer's storage and is invalidated by any
// subsequent mutating call.
func (b *Buffer) Peek() []byte { return b.buf[b.readIndex:b.writeIndex] }

// Retrieve consumes n bytes from the front of the readable region. Once the
// buffer is fully drained, both cursors reset to DefaultPrependSize (the
// end of the prepend region) so accumulated garbage at the front doesn't leak capacity forever.
func (b *Buffer) Retrieve(n int) {
	if n >= b.ReadableBytes() {
		b.RetrieveAll()
		return
	}
	b.readIndex += n
}

// RetrieveAll discards every readable byte.
func (b *Buffer) RetrieveAll() {
	b.readIndex = DefaultPrependSize
	b.writeIndex = DefaultPrependSize
}

// RetrieveAllString consumes and returns every readable byte as a string.
func (b *Buffer) RetrieveAllString() string {
	s := string(b.Peek())
	b.RetrieveAll()
	return s
}

// RetrieveString consumes and returns n readable bytes as a string.
func (b *Buffer) RetrieveString(n int) string {
	s := string(b.buf[b.readIndex : b.readIndex+n])
	b.Retrieve(n)
	return s
}

// EnsureWritable grows the backing array, if needed, so at least n more
// bytes can be appended without reallocating on the next call.
func (b *Buffer) EnsureWritable(n int) {
	if b.WritableBytes() >= n {
		return
	}
	b.makeSpace(n)
}

// makeSpace either compacts the buffer (sliding readable bytes down to
// reclaim prepend+trailing garbage) or grows the backing array, whichever
// is cheaper.
func (b *Buffer) makeSpace(n int) {
	if b.WritableBytes()+b.PrependableBytes()-DefaultPrependSize < n {
		readable := b.ReadableBytes()
		newLen := DefaultPrependSize + readable + n
		buf := make([]byte, newLen)
		copy(buf[DefaultPrependSize:], b.buf[b.readIndex:b.writeIndex])
		b.buf = buf
		b.readIndex = DefaultPrependSize
		b.writeIndex = DefaultPrependSize + readable
		return
	}
	readable := b.ReadableBytes()
	copy(b.buf[DefaultPrependSize:], b.buf[b.readIndex:b.writeIndex])
	b.readIndex = DefaultPrependSize
	b.writeIndex = DefaultPrependSize + readable
}

// Append writes data to the writable end, growing the buffer if necessary.
func (b *Buffer) Append(data []byte) {
	b.EnsureWritable(len(data))
	n := copy(b.buf[b.writeIndex:], data)
	b.writeIndex += n
}

// AppendString is a convenience wrapper around Append.
func (b *Buffer) AppendString(s string) { b.Append([]byte(s)) }

// Prepend writes data into the reserved headroom immediately before the
// current readable region. It panics if there isn't enough prepend room;
// callers reserve prepend space up front specifically to make this safe
// for framing headers written after the payload.
func (b *Buffer) Prepend(data []byte) {
	if len(data) > b.PrependableBytes() {
		panic(errors.New("netutil: not enough prependable bytes"))
	}
	b.readIndex -= len(data)
	copy(b.buf[b.readIndex:], data)
}

// PrependInt32 prepends a big-endian length prefix, the common framing use
// of the prepend region.
func (b *Buffer) PrependInt32(v int32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(v))
	b.Prepend(tmp[:])
}

// fder describes a descriptor reader with the same shape as ReadFD's reader
// parameter; ReadFD itself takes a plain function, not this interface.
type fder interface {
	ReadFD(fd int, p []byte) (int, error)
}

// ReadFD performs one vectored fill from fd: readable tail room in the
// buffer is used first, and any remainder the kernel still has queued
// spills into a pooled 64KiB scratch buffer, so a single syscall never reads
// an unbounded amount into the heap buffer directly. Returns the total
// bytes read (buffer + spill) and an error if the read failed. A return of
// (0, nil) or (0, io.EOF) indicates the peer closed its write side.
func ReadFD(fd int, b *Buffer, reader func(fd int, p []byte) (int, error)) (int, error) {
	writable := b.WritableBytes()
	if writable == 0 {
		b.EnsureWritable(DefaultInitialSize)
		writable = b.WritableBytes()
	}

	spillPtr := spillPool.Get().(*[]byte)
	spill := *spillPtr
	defer spillPool.Put(spillPtr)

	iov := [][]byte{b.buf[b.writeIndex : b.writeIndex+writable], spill}
	n, err := readvInto(fd, iov, reader)
	if n <= 0 {
		return n, err
	}

	if n <= writable {
		b.writeIndex += n
		return n, err
	}

	b.writeIndex += writable
	spillover := n - writable
	b.Append(spill[:spillover])
	return n, err
}

// readvInto emulates readv() in terms of a single-buffer reader so callers
// on platforms without a direct readv binding (or in tests) still get the
// two-region fill semantics. Real connections pass unix.Read-backed readers
// that see the kernel's actual short-read/would-block behavior per region.
func readvInto(fd int, iov [][]byte, reader func(fd int, p []byte) (int, error)) (int, error) {
	total := 0
	for _, region := range iov {
		if len(region) == 0 {
			continue
		}
		n, err := reader(fd, region)
		total += n
		if err != nil {
			if total > 0 {
				// Like readv, bytes already read win over a later error;
				// the error recurs on the next read.
				return total, nil
			}
			return total, err
		}
		if n < len(region) {
			// Short read: kernel had no more to give right now.
			break
		}
	}
	if total == 0 {
		return 0, io.EOF
	}
	return total, nil
}
