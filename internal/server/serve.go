package server

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/eternalApril/moonbeam/internal/resp"
	"go.uber.org/zap"
)

// Server accepts connections and pumps them through the engine
type Server struct {
	eng    *Engine
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewServer(eng *Engine, logger *zap.Logger) *Server {
	return &Server{
		eng:    eng,
		logger: logger,
	}
}

// Serve runs the accept loop until the listener is closed
func (s *Server) Serve(listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error("accept error", zap.Error(err))
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// Wait blocks until every connection handler returned
func (s *Server) Wait() {
	s.wg.Wait()
}

// handleConnection handles a connection for a single client
func (s *Server) handleConnection(netConn net.Conn) {
	log := s.logger
	if log.Core().Enabled(zap.DebugLevel) {
		log.Debug("client connected", zap.String("addr", netConn.RemoteAddr().String()))
	}

	peer := NewPeer(netConn)
	conn := s.eng.NewConn()
	conn.OnPush(func(v resp.Value) {
		peer.Send(v) //nolint:errcheck
	})

	defer func() {
		s.eng.CloseConn(conn)
		peer.Close() //nolint:errcheck
		if log.Core().Enabled(zap.DebugLevel) {
			log.Debug("client disconnected", zap.String("addr", netConn.RemoteAddr().String()))
		}
	}()

	for {
		args, err := peer.ReadCommand()
		if err != nil {
			if errors.Is(err, resp.ErrProtocol) {
				// fatal framing error: close without a reply
				log.Warn("protocol error", zap.Error(err))
			} else if err != io.EOF {
				log.Warn("read command failed", zap.Error(err))
			}
			return
		}
		if len(args) == 0 {
			continue
		}

		result := s.eng.Dispatch(conn, args)
		peer.SetProtocol(conn.Protocol())

		if result.Type != 0 {
			if err := peer.SendNoFlush(result); err != nil {
				log.Error("error writing response", zap.Error(err))
				return
			}
		}

		if peer.InputBuffered() == 0 {
			if err := peer.Flush(); err != nil {
				return
			}
		}

		if conn.Closed() {
			peer.Flush() //nolint:errcheck
			return
		}
	}
}
