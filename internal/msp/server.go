package msp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
)

// Server accepts configurator connections over TCP and serves the protocol
// on each. Connections are independent; a malformed frame on one does not
// disturb the others.
type Server struct {
	dispatcher *Dispatcher
	log        *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
}

func NewServer(dispatcher *Dispatcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		dispatcher: dispatcher,
		log:        logger.With("component", "msp-server"),
		conns:      make(map[net.Conn]struct{}),
	}
}

func (s *Server) Listen(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errors.New("server is already listening")
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %q: %w", addr, err)
	}
	s.listener = listener
	s.log.Info("listening", "addr", listener.Addr().String())

	return nil
}

// Addr reports the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

// Serve accepts connections until ctx is done or the listener closes. It
// returns nil on a clean shutdown.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return errors.New("server is not listening")
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = listener.Close()
		case <-stop:
		}
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.closeConns()
			s.wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}

			return fmt.Errorf("accept: %w", err)
		}

		s.track(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, conn)
		}()
	}
}

func (s *Server) Close() error {
	s.mu.Lock()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()
	if listener == nil {
		return nil
	}

	return listener.Close()
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	logger := s.log.With("remote", conn.RemoteAddr().String())
	logger.Info("configurator connected")
	defer func() {
		s.untrack(conn)
		_ = conn.Close()
		logger.Info("configurator disconnected")
	}()

	readFull := ioReadFullFunc(conn)
	for {
		req, err := ReadFrame(readFull)
		if err != nil {
			if errors.Is(err, ErrChecksumMismatch) {
				logger.Warn("dropping frame", "error", err)

				continue
			}
			if ctx.Err() == nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logger.Debug("read failed", "error", err)
			}

			return
		}

		reply, ok := s.dispatcher.Handle(ctx, req)
		if !ok {
			continue
		}

		data, err := EncodeFrame(reply)
		if err != nil {
			logger.Warn("encode reply failed", "cmd", reply.Cmd, "error", err)

			continue
		}
		if _, err := conn.Write(data); err != nil {
			logger.Debug("write failed", "error", err)

			return
		}
	}
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
	}
}
