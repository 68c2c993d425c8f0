// Package interrupt routes SIGINT to a shutdown callback owned by the caller
// and then terminates the process.
package interrupt

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

type Option func(*watcher)

func WithLogger(logger *zap.Logger) Option {
	return func(w *watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithExit replaces os.Exit as the final step after shutdown.
func WithExit(exit func(code int)) Option {
	return func(w *watcher) { w.exit = exit }
}

// WithGrace waits up to d for wait to report that in-flight work has drained
// before exiting. Without it the process exits as soon as shutdown returns.
func WithGrace(d time.Duration, wait func(ctx context.Context) bool) Option {
	return func(w *watcher) {
		w.grace = d
		w.wait = wait
	}
}

type watcher struct {
	shutdown func()
	exit     func(code int)
	grace    time.Duration
	wait     func(ctx context.Context) bool
	logger   *zap.Logger
}

// Watch calls shutdown and then exits with the signal number when the process
// receives an interrupt. The returned function unregisters the handler.
func Watch(ctx context.Context, shutdown func(), opts ...Option) (stop func()) {
	w := &watcher{
		shutdown: shutdown,
		exit:     os.Exit,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-ctx.Done():
		case sig := <-c:
			w.handle(sig)
		}
	}()

	return func() {
		signal.Stop(c)
		cancel()
		<-done
	}
}

func (w *watcher) handle(sig os.Signal) {
	code := 1
	if s, ok := sig.(syscall.Signal); ok {
		code = int(s)
	}
	w.logger.Info("server.exiting", zap.Int("sig", code), zap.String("name", sig.String()))

	w.shutdown()

	if w.grace > 0 && w.wait != nil {
		ctx, cancel := context.WithTimeout(context.Background(), w.grace)
		drained := w.wait(ctx)
		cancel()
		if !drained {
			w.logger.Warn("server.exiting.grace-expired", zap.Duration("grace", w.grace))
		}
	}

	w.exit(code)
}
