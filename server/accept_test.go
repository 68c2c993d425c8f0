package server

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type countingSink struct{ n atomic.Int32 }

func (c *countingSink) Dump(string) error {
	c.n.Add(1)
	return nil
}

type failingListener struct {
	err    error
	closed atomic.Int32
}

func (f *failingListener) Accept() (net.Conn, error) { return nil, f.err }
func (f *failingListener) Close() error              { f.closed.Add(1); return nil }
func (f *failingListener) Addr() net.Addr            { return &net.TCPAddr{} }

type blockingListener struct {
	once   sync.Once
	done   chan struct{}
	closed atomic.Int32
}

func (b *blockingListener) Accept() (net.Conn, error) {
	<-b.done
	return nil, net.ErrClosed
}

func (b *blockingListener) Close() error {
	b.closed.Add(1)
	b.once.Do(func() { close(b.done) })
	return nil
}

func (b *blockingListener) Addr() net.Addr { return &net.TCPAddr{} }

func TestAcceptLoop(t *testing.T) {
	nop := ProcessorFunc(func(req []byte) []byte { return nil })

	t.Run("accept-error-while-running-ends-loop", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		sink := &countingSink{}
		l := &failingListener{err: errors.New("too many open files")}

		s := New(0, nop, sink, WithLogger(zap.New(core)))
		s.l = l

		require.NoError(t, s.Serve())

		assert.False(t, s.Running())
		assert.Equal(t, 1, logs.FilterMessage("accept").Len())
		assert.Equal(t, int32(1), l.closed.Load())
		assert.Equal(t, int32(1), sink.n.Load())
	})

	t.Run("accept-error-after-shutdown-is-silent", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		sink := &countingSink{}
		l := &blockingListener{done: make(chan struct{})}

		s := New(0, nop, sink, WithLogger(zap.New(core)))
		s.l = l

		served := make(chan error, 1)
		go func() { served <- s.Serve() }()

		s.Shutdown()
		require.NoError(t, <-served)

		assert.Equal(t, 0, logs.FilterMessage("accept").Len())
		assert.Equal(t, int32(1), l.closed.Load())
		assert.Equal(t, int32(2), sink.n.Load())
	})
}
