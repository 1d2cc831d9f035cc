package mqtt311

import (
	"net"
	"sync"
)

// Conn represents a network connection carrying MQTT traffic.
type Conn interface {
	net.Conn
}

// Listener accepts incoming MQTT connections.
type Listener interface {
	// Accept waits for and returns the next connection.
	Accept() (Conn, error)

	// Close closes the listener.
	Close() error

	// Addr returns the listener's network address.
	Addr() net.Addr
}

// TCPListener wraps net.Listener for TCP connections.
type TCPListener struct {
	listener net.Listener
}

// NewTCPListener creates a new TCP listener on the given address.
func NewTCPListener(address string) (*TCPListener, error) {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	return &TCPListener{listener: l}, nil
}

// Accept waits for and returns the next connection.
func (l *TCPListener) Accept() (Conn, error) {
	conn, err := l.listener.Accept()
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Close closes the listener.
func (l *TCPListener) Close() error {
	return l.listener.Close()
}

// Addr returns the listener's network address.
func (l *TCPListener) Addr() net.Addr {
	return l.listener.Addr()
}

// FrameWriter writes complete MQTT packets to a transport.
type FrameWriter interface {
	// WriteFrame encodes and writes a single packet. The packet either
	// reaches the transport whole or not at all.
	WriteFrame(packet Packet) error
}

// FrameConn is a packet-oriented view of a connection. The protocol engine
// depends only on this surface, so any framed transport can back it.
type FrameConn interface {
	FrameWriter

	// ReadFrame blocks until the next complete packet arrives.
	ReadFrame() (Packet, error)

	// Close closes the underlying transport. It unblocks a pending
	// ReadFrame and is safe to call multiple times.
	Close() error
}

const readChunkSize = 4096

// netFrameConn adapts a stream connection to FrameConn using a FrameDecoder
// for inbound fragmentation and a write lock so concurrent writers cannot
// interleave frames.
type netFrameConn struct {
	conn    net.Conn
	decoder *FrameDecoder
	maxSize uint32
	chunk   []byte

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewFrameConn wraps a stream connection in a FrameConn. If maxSize is
// greater than 0, inbound and outbound packets whose remaining length
// exceeds it are rejected.
func NewFrameConn(conn net.Conn, maxSize uint32) FrameConn {
	return &netFrameConn{
		conn:    conn,
		decoder: NewFrameDecoder(maxSize),
		maxSize: maxSize,
		chunk:   make([]byte, readChunkSize),
	}
}

// ReadFrame blocks until the next complete packet arrives.
// Only one goroutine may call ReadFrame at a time.
func (c *netFrameConn) ReadFrame() (Packet, error) {
	for {
		packet, err := c.decoder.Next()
		if err != nil {
			return nil, err
		}
		if packet != nil {
			return packet, nil
		}

		n, err := c.conn.Read(c.chunk)
		if n > 0 {
			c.decoder.Feed(c.chunk[:n])
			continue
		}
		if err != nil {
			return nil, err
		}
	}
}

// WriteFrame encodes and writes a single packet.
func (c *netFrameConn) WriteFrame(packet Packet) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_, err := WritePacket(c.conn, packet, c.maxSize)
	return err
}

// Close closes the underlying connection.
func (c *netFrameConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
