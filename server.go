package mqtt311

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Server errors.
var (
	ErrServerClosed   = errors.New("mqtt311: server closed")
	ErrServerRunning  = errors.New("mqtt311: server already running")
	ErrMaxConnections = errors.New("mqtt311: maximum connections reached")
)

// Server accepts stream connections and runs the protocol engine on each.
// It is a thin accept loop around ServeConn; all protocol behavior comes
// from the options.
type Server struct {
	cfg      *config
	listener net.Listener
	limiter  *rate.Limiter
	running  atomic.Bool
	done     chan struct{}
	wg       sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer creates a server listening on the given TCP address.
func NewServer(addr string, opts ...Option) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	return NewServerWithListener(listener, opts...), nil
}

// NewServerWithListener creates a server accepting from a custom listener.
func NewServerWithListener(listener net.Listener, opts ...Option) *Server {
	cfg := newConfig(opts...)

	var limiter *rate.Limiter
	if cfg.connectRate > 0 {
		burst := cfg.connectBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(cfg.connectRate, burst)
	}

	return &Server{
		cfg:      cfg,
		listener: listener,
		limiter:  limiter,
		done:     make(chan struct{}),
		conns:    make(map[net.Conn]struct{}),
	}
}

// Addr returns the listener's network address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// ListenAndServe accepts connections until the server is closed.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerRunning
	}

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return ErrServerClosed
			default:
				// Backoff so a persistent accept error does not spin.
				time.Sleep(100 * time.Millisecond)
				continue
			}
		}

		if s.limiter != nil && !s.limiter.Allow() {
			s.cfg.logger.Warn("connection dropped: rate limit", LogFields{
				LogFieldRemoteAddr: conn.RemoteAddr(),
			})
			conn.Close()
			continue
		}

		if !s.track(conn) {
			s.cfg.logger.Warn("connection dropped: connection limit", LogFields{
				LogFieldRemoteAddr: conn.RemoteAddr(),
			})
			conn.Close()
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)

			serveConn(ctx, NewFrameConn(conn, s.cfg.maxPacketSize), conn.RemoteAddr(), s.cfg)
		}()
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.maxConnections > 0 && len(s.conns) >= s.cfg.maxConnections {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// ConnectionCount returns the number of connections currently served.
func (s *Server) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close stops accepting, closes every open connection and waits for their
// serve loops to finish.
func (s *Server) Close() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	close(s.done)
	err := s.listener.Close()

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}
