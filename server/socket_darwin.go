package server

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// socket opens an IPv4 stream socket. Darwin has no SOCK_CLOEXEC, so the flag
// is set with the fork lock held.
func socket() (int, error) {
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(fd)
	return fd, nil
}
