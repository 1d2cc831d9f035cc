package mqtt311

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"
)

// connCloser owns connection teardown. The first close call records the
// reason and closes the transport, which unblocks the read loop; later
// calls are no-ops. This lets the keep-alive ticker, the handshake timer,
// the ack writer and the application race to kill a connection without
// trampling each other's error.
type connCloser struct {
	conn FrameConn

	mu       sync.Mutex
	isClosed bool
	err      error
}

func newConnCloser(conn FrameConn) *connCloser {
	return &connCloser{conn: conn}
}

func (c *connCloser) close(reason error) {
	c.mu.Lock()
	if c.isClosed {
		c.mu.Unlock()
		return
	}
	c.isClosed = true
	c.err = reason
	c.mu.Unlock()

	c.conn.Close()
}

func (c *connCloser) closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isClosed
}

// reason returns the recorded close reason, or fallback when the connection
// was not closed deliberately.
func (c *connCloser) reason(fallback error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isClosed {
		return c.err
	}
	return fallback
}

// classifyReadError maps transport errors from a dropped peer to
// ErrDisconnected. Decode errors pass through untouched, including an
// io.ErrUnexpectedEOF raised while decoding a fully framed body.
func classifyReadError(err error) error {
	if errors.Is(err, ErrMalformedPacket) {
		return err
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return ErrDisconnected
	}
	return err
}

// ServeConn runs the MQTT protocol engine over a single accepted stream
// connection: handshake, keep-alive supervision and packet dispatch. It
// blocks until the connection ends and returns the reason. A nil return
// means the peer sent a clean DISCONNECT.
func ServeConn(ctx context.Context, conn net.Conn, opts ...Option) error {
	cfg := newConfig(opts...)
	return serveConn(ctx, NewFrameConn(conn, cfg.maxPacketSize), conn.RemoteAddr(), cfg)
}

func serveConn(ctx context.Context, conn FrameConn, remoteAddr net.Addr, cfg *config) error {
	log := cfg.logger.WithFields(LogFields{LogFieldRemoteAddr: remoteAddr})
	closer := newConnCloser(conn)
	session := newSession(conn)

	defer conn.Close()

	start := time.Now()
	req, keepAlive, err := runHandshake(ctx, conn, session, remoteAddr, closer, cfg)
	if err != nil {
		session.fail(err)
		if errors.Is(err, ErrConnectRejected) {
			log.Info("connection rejected", LogFields{LogFieldClientID: req.ClientID()})
			return err
		}
		err = classifyReadError(err)
		log.Warn("handshake failed", LogFields{LogFieldError: err})
		return err
	}

	log = log.WithFields(LogFields{LogFieldClientID: req.ClientID()})
	log.Info("connection accepted", LogFields{LogFieldDuration: time.Since(start)})

	// Application side Close tears the connection down.
	session.setOnClose(func(reason error) {
		closer.close(reason)
	})

	monitor := newKeepAliveMonitor(keepAlive)
	if monitor != nil {
		stopKeepAlive := make(chan struct{})
		defer close(stopKeepAlive)
		go superviseKeepAlive(monitor, closer, cfg.keepAliveTick, stopKeepAlive)
	}

	d := newDispatcher(conn, session, monitor, closer, cfg, log)
	err = d.run(ctx)
	if err != nil {
		err = classifyReadError(err)
	}

	session.fail(err)

	if cfg.onDisconnect != nil {
		cfg.onDisconnect(session, err)
	}

	if err != nil {
		log.Warn("connection closed", LogFields{LogFieldError: err})
	} else {
		log.Info("connection closed", nil)
	}

	return err
}

// superviseKeepAlive polls the monitor and kills the connection once the
// peer has been silent past the grace deadline.
func superviseKeepAlive(monitor *keepAliveMonitor, closer *connCloser, tick time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if monitor.Expired() {
				closer.close(ErrKeepAliveTimeout)
				return
			}
		case <-stop:
			return
		}
	}
}
