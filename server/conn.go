package server

import (
	"errors"
	"io"
	"net"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const readBufferSize = 1024

// handleConn serves one client until it disconnects or an I/O call fails.
// Each read is handed to the processor as one complete request; nothing is
// reassembled across reads.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	logger := s.logger.With(
		zap.String("conn-id", uuid.NewString()),
		zap.Stringer("remote-addr", conn.RemoteAddr()),
	)
	logger.Info("handle-connection.start")

	// A panicking processor takes down only this connection
	defer func() {
		if r := recover(); r != nil {
			logger.Error("handle-connection.panic", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			resp := s.processor.Process(buf[:n])
			if len(resp) > 0 {
				if _, werr := conn.Write(resp); werr != nil {
					logger.Debug("handle-connection.write", zap.Error(werr))
					break
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logger.Debug("handle-connection.read", zap.Error(err))
			}
			break
		}
	}

	logger.Info("handle-connection.finish")
}
