package server

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	proxyproto "github.com/pires/go-proxyproto"
	"go.uber.org/zap"
)

const (
	DefaultDumpPath = "dump.my_rdb"

	listenBacklog = 10
)

// Processor turns one request buffer into one response buffer. The request
// slice is reused by the caller after Process returns.
type Processor interface {
	Process(request []byte) []byte
}

// ProcessorFunc adapts a plain function to a Processor.
type ProcessorFunc func(request []byte) []byte

func (f ProcessorFunc) Process(request []byte) []byte { return f(request) }

// Persister writes the current state of the store to path.
type Persister interface {
	Dump(path string) error
}

type Option func(*Server)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithDumpPath(path string) Option {
	return func(s *Server) { s.dumpPath = path }
}

// WithProxyProtocol accepts an optional PROXY protocol header at the start of
// every connection.
func WithProxyProtocol() Option {
	return func(s *Server) { s.proxy = true }
}

type Server struct {
	port      int
	processor Processor
	sink      Persister
	dumpPath  string
	proxy     bool
	logger    *zap.Logger

	running atomic.Bool
	serving atomic.Bool

	mu        sync.Mutex
	l         net.Listener
	closeOnce sync.Once

	// The accept loop is the only caller of wg.Add, and Serve waits on the
	// same goroutine once that loop has returned.
	wg       sync.WaitGroup
	active   atomic.Int64
	accepted atomic.Int64
}

// New configures a server for port. No socket is opened until Start.
func New(port int, processor Processor, sink Persister, opts ...Option) *Server {
	s := &Server{
		port:      port,
		processor: processor,
		sink:      sink,
		dumpPath:  DefaultDumpPath,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.running.Store(true)
	return s
}

// Start opens the listening endpoint. It returns a *SocketError, *BindError
// or *ListenError when the operating system refuses.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.l != nil {
		return ErrAlreadyStarted
	}

	l, err := listenTCP(s.port, listenBacklog)
	if err != nil {
		s.logger.Error("server.listen", zap.Int("port", s.port), zap.Error(err))
		return err
	}

	if s.proxy {
		l = &proxyproto.Listener{Listener: l}
	}

	s.l = l
	s.logger.Info("server.listening", zap.String("addr", l.Addr().String()))
	return nil
}

// Serve runs the accept loop until the server is shut down or Accept fails.
// It then releases the endpoint, joins every connection worker and dumps the
// store.
func (s *Server) Serve() error {
	s.mu.Lock()
	l := s.l
	s.mu.Unlock()

	if l == nil {
		return ErrNotStarted
	}
	if !s.serving.CompareAndSwap(false, true) {
		return ErrAlreadyServing
	}

	s.acceptLoop(l)

	s.running.Store(false)
	s.closeListener()

	// A worker blocked reading from a silent peer holds this up indefinitely
	s.wg.Wait()
	s.logger.Info("server.workers-joined", zap.Int64("accepted", s.accepted.Load()))

	s.persist()
	return nil
}

// Run is Start followed by Serve.
func (s *Server) Run() error {
	if err := s.Start(); err != nil {
		return err
	}
	return s.Serve()
}

// Shutdown stops the accept loop, releases the listening endpoint and dumps
// the store. Dump failures are logged only. Calling it more than once is safe;
// every call on a started server attempts a dump.
func (s *Server) Shutdown() {
	s.running.Store(false)

	s.mu.Lock()
	l := s.l
	s.mu.Unlock()

	if l != nil {
		s.closeListener()
		s.persist()
	}
	s.logger.Info("server.shutdown.complete")
}

func (s *Server) closeListener() {
	s.closeOnce.Do(func() {
		if err := s.l.Close(); err != nil {
			s.logger.Warn("server.close", zap.Error(err))
		}
	})
}

func (s *Server) persist() {
	if err := s.sink.Dump(s.dumpPath); err != nil {
		s.logger.Error("dump", zap.String("path", s.dumpPath), zap.Error(err))
		return
	}
	s.logger.Info("dump", zap.String("path", s.dumpPath))
}

func (s *Server) acceptLoop(l net.Listener) {
	for s.running.Load() {
		conn, err := l.Accept()
		if err != nil {
			// Closing the listener during shutdown lands here with running
			// already false
			if s.running.Load() {
				s.logger.Error("accept", zap.Error(err))
			}
			return
		}

		s.accepted.Add(1)
		s.active.Add(1)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.active.Add(-1)
			s.handleConn(conn)
		}()
	}
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.l == nil {
		return nil
	}
	return s.l.Addr()
}

func (s *Server) Running() bool { return s.running.Load() }

func (s *Server) ActiveWorkers() int64 { return s.active.Load() }

func (s *Server) AcceptedConnections() int64 { return s.accepted.Load() }

// Wait blocks until no connection worker is running or ctx is done, and
// reports whether the workers drained.
func (s *Server) Wait(ctx context.Context) bool {
	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()

	for s.active.Load() > 0 {
		select {
		case <-ctx.Done():
			return false
		case <-t.C:
		}
	}
	return true
}
