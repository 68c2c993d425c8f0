//go:build linux || darwin

package server_test

import (
	"net"
	"strconv"
	"syscall"
	"testing"

	"github.com/fanatic/kvserver/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartBindError(t *testing.T) {
	first, done := startServer(t, echo, &recordingSink{})
	defer func() {
		first.Shutdown()
		waitServe(t, done)
	}()

	port := first.Addr().(*net.TCPAddr).Port

	sink := &recordingSink{}
	second := server.New(port, echo, sink)
	err := second.Start()

	var bindErr *server.BindError
	require.ErrorAs(t, err, &bindErr)
	assert.Equal(t, port, bindErr.Port)
	assert.ErrorIs(t, err, syscall.EADDRINUSE)

	assert.ErrorIs(t, second.Serve(), server.ErrNotStarted)
	second.Shutdown()
	assert.Empty(t, sink.Dumps())
}

func TestStartBindsAllAddresses(t *testing.T) {
	s, done := startServer(t, echo, &recordingSink{})
	defer func() {
		s.Shutdown()
		waitServe(t, done)
	}()

	addr := s.Addr().(*net.TCPAddr)
	assert.True(t, addr.IP.IsUnspecified())
	assert.NotZero(t, addr.Port)

	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(addr.Port)))
	require.NoError(t, err)
	conn.Close()
}
