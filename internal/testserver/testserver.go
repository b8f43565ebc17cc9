// Package testserver runs a backend file server that speaks the balancer's
// wire protocol. Tests use it as a probe target and redirect destination;
// cmd/fileserver exposes it for local runs.
package testserver

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/angeloszaimis/redirect-balancer/internal/backend"
	"github.com/angeloszaimis/redirect-balancer/internal/wire"
)

// Server serves files from an fs.FS, one goroutine per connection.
type Server struct {
	files    fs.FS
	delay    time.Duration
	logger   *slog.Logger
	listener net.Listener
	requests atomic.Int64
	wg       sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithDelay holds every response for d before writing it, simulating a slow
// backend.
func WithDelay(d time.Duration) Option {
	return func(s *Server) {
		s.delay = d
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New returns an unstarted server for files.
func New(files fs.FS, opts ...Option) *Server {
	s := &Server{
		files:  files,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info("File server listening", slog.String("address", ln.Addr().String()))
	return nil
}

// Endpoint returns the address the server is bound to.
func (s *Server) Endpoint() backend.Endpoint {
	addr := s.listener.Addr().(*net.TCPAddr)
	return backend.Endpoint{Host: addr.IP.String(), Port: addr.Port}
}

// Requests returns how many requests were served.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

// Close stops accepting connections and waits for in-flight ones.
func (s *Server) Close() error {
	err := s.listener.Close()
	s.wg.Wait()
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.logger.Error("Accept failed", slog.Any("err", err))
			}
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conn.Close()
			s.serve(conn)
		}()
	}
}

func (s *Server) serve(conn net.Conn) {
	req, err := wire.ReadRequest(wire.NewLineReader(conn))
	if err != nil {
		s.logger.Warn("Bad request", slog.Any("err", err))
		return
	}
	s.requests.Add(1)

	name := strings.TrimLeft(req.Path, "/")
	body, err := fs.ReadFile(s.files, name)

	status, contentType := "200 OK", wire.ContentType(name)
	if err != nil {
		status, contentType = "404 Not Found", "text/html"
		body = []byte("<html><body><h1>404 Not Found</h1></body></html>")
	}

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	head := fmt.Sprintf("HTTP/1.1 %s\r\nContent-Type: %s\r\nContent-Length: %d\r\n\r\n", status, contentType, len(body))
	if _, err := conn.Write(append([]byte(head), body...)); err != nil {
		s.logger.Warn("Write failed", slog.Any("err", err))
		return
	}

	s.logger.Debug("Served file",
		slog.String("path", name),
		slog.String("status", status))
}
