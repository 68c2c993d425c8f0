package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fanatic/kvserver/command"
	"github.com/fanatic/kvserver/config"
	"github.com/fanatic/kvserver/interrupt"
	"github.com/fanatic/kvserver/logging"
	"github.com/fanatic/kvserver/server"
	"github.com/fanatic/kvserver/store"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "kvserver at=config err=%q\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kvserver at=logging err=%q\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	st := store.New()
	if cfg.LoadOnStart {
		if err := st.Load(cfg.DumpPath); err != nil {
			logger.Warn("store.load", zap.String("path", cfg.DumpPath), zap.Error(err))
		} else {
			logger.Info("store.load", zap.String("path", cfg.DumpPath), zap.Int("keys", st.Len()))
		}
	}

	opts := []server.Option{server.WithLogger(logger), server.WithDumpPath(cfg.DumpPath)}
	if cfg.ProxyProtocol {
		opts = append(opts, server.WithProxyProtocol())
	}
	s := server.New(cfg.Port, command.NewHandler(st, command.WithLogger(logger)), st, opts...)

	stop := interrupt.Watch(context.Background(), s.Shutdown,
		interrupt.WithLogger(logger),
		interrupt.WithGrace(cfg.ShutdownGrace, s.Wait),
		interrupt.WithExit(func(code int) {
			logger.Sync()
			os.Exit(code)
		}),
	)
	defer stop()

	if err := s.Run(); err != nil {
		// Setup failures are already logged by the server
		return
	}
	logger.Info("server.finish")
}
