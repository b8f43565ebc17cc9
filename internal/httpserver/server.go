package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/go-ozzo/ozzo-validation/is"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ConnHandler serves a single accepted connection. The server closes the
// connection once ServeConn returns.
type ConnHandler interface {
	ServeConn(ctx context.Context, conn net.Conn) error
}

// IdleFunc runs when no connection arrived within the idle timeout.
type IdleFunc func(ctx context.Context)

// Server is a plain TCP server, not an HTTP one: it accepts connections one at
// a time and hands each raw net.Conn to a ConnHandler.
// When the listener sees no connection for idleTimeout, onIdle runs before
// accepting resumes.
type Server struct {
	addr        string
	handler     ConnHandler
	idleTimeout time.Duration
	onIdle      IdleFunc
	logger      *slog.Logger

	mu       sync.Mutex
	listener net.Listener
}

// deadliner is implemented by *net.TCPListener and *net.UnixListener.
type deadliner interface {
	SetDeadline(t time.Time) error
}

// New creates a server for addr. The address is validated before anything is
// bound. An idleTimeout of zero disables the idle callback.
func New(addr string, handler ConnHandler, idleTimeout time.Duration, onIdle IdleFunc, logger *slog.Logger) (*Server, error) {
	if err := validateHost(addr); err != nil {
		return nil, err
	}

	if idleTimeout < 0 {
		return nil, validation.NewError("validation_invalid_idle_timeout", "idle timeout cant be negative")
	}

	return &Server{
		addr:        addr,
		handler:     handler,
		idleTimeout: idleTimeout,
		onIdle:      onIdle,
		logger:      logger,
	}, nil
}

// Listen binds the listening socket. Port 0 picks a free port; the bound
// address is logged and available from Addr.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("Balancer listening", slog.String("address", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve runs the accept loop until ctx is cancelled or Shutdown is called,
// binding first if Listen was not called. It returns nil on a clean stop.
func (s *Server) Serve(ctx context.Context) error {
	if s.Addr() == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()

	dl, canDeadline := ln.(deadliner)

	for {
		if s.idleTimeout > 0 && canDeadline {
			if err := dl.SetDeadline(time.Now().Add(s.idleTimeout)); err != nil {
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				return fmt.Errorf("set accept deadline: %w", err)
			}
		}

		conn, err := ln.Accept()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				s.idle(ctx)
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.serveConn(ctx, conn)
	}
}

// Shutdown closes the listener. A connection being served is not waited for.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}

	err := s.listener.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *Server) idle(ctx context.Context) {
	if ctx.Err() != nil || s.onIdle == nil {
		return
	}

	s.logger.Info("No connection within idle timeout", slog.Duration("idle_timeout", s.idleTimeout))
	s.onIdle(ctx)
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if err := s.handler.ServeConn(ctx, conn); err != nil {
		s.logger.Warn("Connection terminated",
			slog.String("remote", conn.RemoteAddr().String()),
			slog.Any("err", err))
	}
}

func validateHost(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cant be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}
