package server

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyStarted = errors.New("server already started")
	ErrNotStarted     = errors.New("server not started")
	ErrAlreadyServing = errors.New("server already serving")
)

// SocketError reports a failure to create the listening endpoint.
type SocketError struct {
	Err error
}

func (e *SocketError) Error() string {
	return fmt.Sprintf("creating server socket: %v", e.Err)
}

func (e *SocketError) Unwrap() error { return e.Err }

// BindError reports a failure to bind the listening endpoint to its port.
type BindError struct {
	Port int
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("binding server socket to port %d: %v", e.Port, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// ListenError reports a failure to put a bound endpoint into accept mode.
type ListenError struct {
	Port int
	Err  error
}

func (e *ListenError) Error() string {
	return fmt.Sprintf("listening on server socket port %d: %v", e.Port, e.Err)
}

func (e *ListenError) Unwrap() error { return e.Err }
