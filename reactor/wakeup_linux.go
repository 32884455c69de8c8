//go:build linux

package reactor

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

const (
	EFD_CLOEXEC  = unix.EFD_CLOEXEC
	EFD_NONBLOCK = unix.EFD_NONBLOCK
)

// createWakeFd creates an eventfd for wake-up notifications (Linux). Both
// the read and write ends are the same descriptor.
func createWakeFd(initval uint, flags int) (int, int, error) {
	fd, err := unix.Eventfd(initval, flags)
	return fd, fd, err
}

// closeWakeFd closes the wake eventfd on Linux.
func closeWakeFd(wakeFd, wakeWriteFd int) error {
	if wakeFd >= 0 {
		return unix.Close(wakeFd)
	}
	return nil
}

// drainWakeUpPipeFD drains every pending wake-up on the eventfd.
func drainWakeUpPipeFD(fd int) error {
	var buf [8]byte
	_, err := unix.Read(fd, buf[:])
	return err
}

// writeWakeFD raises one wake-up notification.
func writeWakeFD(fd int) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(fd, buf[:])
	return err
}
