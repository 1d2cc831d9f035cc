package mqtt311

import (
	"errors"
	"fmt"
)

// Connection level errors.
var (
	// ErrProtocolViolation indicates the peer sent something the protocol
	// does not allow in the current state.
	ErrProtocolViolation = errors.New("mqtt311: protocol violation")

	// ErrHandshakeTimeout indicates the peer did not complete the CONNECT
	// handshake within the configured bound. It is distinct from protocol
	// errors so callers can tell slow peers from broken ones.
	ErrHandshakeTimeout = errors.New("mqtt311: handshake timeout")

	// ErrKeepAliveTimeout indicates the peer stayed silent past one and a
	// half times the negotiated keep-alive interval.
	ErrKeepAliveTimeout = errors.New("mqtt311: keep-alive timeout")

	// ErrDisconnected indicates the transport dropped without a DISCONNECT
	// packet from the peer.
	ErrDisconnected = errors.New("mqtt311: peer disconnected")

	// ErrConnectRejected is returned by ServeConn when the connect handler
	// refused the connection. The CONNACK carrying the refusal code has
	// already been written.
	ErrConnectRejected = errors.New("mqtt311: connection rejected")
)

// UnexpectedPacketError reports a packet type that is not allowed in the
// state the connection was in, such as anything but CONNECT during the
// handshake. It unwraps to ErrProtocolViolation.
type UnexpectedPacketError struct {
	PacketType PacketType
}

// Error returns the error message.
func (e *UnexpectedPacketError) Error() string {
	return fmt.Sprintf("mqtt311: unexpected %s packet", e.PacketType)
}

// Unwrap returns ErrProtocolViolation.
func (e *UnexpectedPacketError) Unwrap() error {
	return ErrProtocolViolation
}

// HandlerError wraps an error returned by an application handler, so callers
// of ServeConn can distinguish their own failures from protocol or
// transport ones.
type HandlerError struct {
	Err error
}

// Error returns the error message.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("mqtt311: handler: %v", e.Err)
}

// Unwrap returns the wrapped handler error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}
