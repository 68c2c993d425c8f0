//go:build linux || darwin

package server

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// listenTCP opens an IPv4 stream socket with SO_REUSEADDR, binds it on all
// local addresses and listens with the given backlog.
func listenTCP(port, backlog int) (net.Listener, error) {
	fd, err := socket()
	if err != nil {
		return nil, &SocketError{Err: err}
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, &SocketError{Err: err}
	}

	// Zero address is INADDR_ANY
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port}); err != nil {
		unix.Close(fd)
		return nil, &BindError{Port: port, Err: err}
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, &ListenError{Port: port, Err: err}
	}

	// FileListener dups the descriptor, so the file is closed either way
	f := os.NewFile(uintptr(fd), fmt.Sprintf("tcp4:%d", port))
	defer f.Close()

	l, err := net.FileListener(f)
	if err != nil {
		return nil, &ListenError{Port: port, Err: err}
	}
	return l, nil
}
