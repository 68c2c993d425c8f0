package server

import "golang.org/x/sys/unix"

// socket opens an IPv4 stream socket that is closed on exec from creation.
func socket() (int, error) {
	return unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
}
