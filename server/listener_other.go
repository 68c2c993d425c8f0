//go:build !linux && !darwin

package server

import (
	"fmt"
	"net"
)

// listenTCP falls back to the runtime's listener where raw socket control is
// unavailable; the backlog is left to the operating system.
func listenTCP(port, _ int) (net.Listener, error) {
	l, err := net.Listen("tcp4", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return nil, &ListenError{Port: port, Err: err}
	}
	return l, nil
}
