package mqtt311

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/google/uuid"
)

// ConnectRequest carries the CONNECT packet of an incoming connection to the
// connect handler, together with the session that will serve the connection
// if it is accepted.
type ConnectRequest struct {
	packet     *ConnectPacket
	session    *Session
	remoteAddr net.Addr
	clientID   string
	assignedID bool
}

func newConnectRequest(packet *ConnectPacket, session *Session, remoteAddr net.Addr) *ConnectRequest {
	req := &ConnectRequest{
		packet:     packet,
		session:    session,
		remoteAddr: remoteAddr,
		clientID:   packet.ClientID,
	}

	// A zero byte client identifier with clean session set asks the server
	// to assign one.
	if req.clientID == "" {
		req.clientID = "auto-" + uuid.NewString()
		req.assignedID = true
	}

	return req
}

// Packet returns the raw CONNECT packet.
func (r *ConnectRequest) Packet() *ConnectPacket {
	return r.packet
}

// Session returns the session that will serve this connection if accepted.
func (r *ConnectRequest) Session() *Session {
	return r.session
}

// RemoteAddr returns the peer's transport address.
func (r *ConnectRequest) RemoteAddr() net.Addr {
	return r.remoteAddr
}

// ClientID returns the effective client identifier. When the peer sent a
// zero byte identifier this is a server assigned one.
func (r *ConnectRequest) ClientID() string {
	return r.clientID
}

// AssignedClientID reports whether the client identifier was assigned by
// the server.
func (r *ConnectRequest) AssignedClientID() bool {
	return r.assignedID
}

// CleanSession returns the CONNECT clean session flag.
func (r *ConnectRequest) CleanSession() bool {
	return r.packet.CleanSession
}

// KeepAlive returns the requested keep-alive interval in seconds.
func (r *ConnectRequest) KeepAlive() uint16 {
	return r.packet.KeepAlive
}

// Username returns the CONNECT user name, or an empty string.
func (r *ConnectRequest) Username() string {
	return r.packet.Username
}

// Password returns the CONNECT password, or nil.
func (r *ConnectRequest) Password() []byte {
	return r.packet.Password
}

// Will returns the last will, or nil when the peer did not set one.
func (r *ConnectRequest) Will() *LastWill {
	return r.packet.Will
}

// ConnectDecision is the connect handler's verdict on a ConnectRequest.
type ConnectDecision struct {
	code           ConnectCode
	sessionPresent bool
	keepAlive      uint16
	keepAliveSet   bool
}

// Accept builds a decision accepting the connection. The session present
// flag tells the peer whether server side state from an earlier connection
// survives.
func Accept(sessionPresent bool) *ConnectDecision {
	return &ConnectDecision{
		code:           CodeAccepted,
		sessionPresent: sessionPresent,
	}
}

// Reject builds a decision refusing the connection with the given return
// code. Rejecting with CodeAccepted is normalized to CodeServerUnavailable.
func Reject(code ConnectCode) *ConnectDecision {
	if code == CodeAccepted || !code.Valid() {
		code = CodeServerUnavailable
	}
	return &ConnectDecision{code: code}
}

// WithKeepAlive overrides the keep-alive interval requested by the peer.
// At protocol level 4 the override is server internal; the peer is not told.
func (d *ConnectDecision) WithKeepAlive(seconds uint16) *ConnectDecision {
	d.keepAlive = seconds
	d.keepAliveSet = true
	return d
}

// Accepted reports whether the decision accepts the connection.
func (d *ConnectDecision) Accepted() bool {
	return d.code == CodeAccepted
}

// Code returns the CONNACK return code carried by the decision.
func (d *ConnectDecision) Code() ConnectCode {
	return d.code
}

// runHandshake drives a connection from transport accept to a written
// CONNACK. Exactly one CONNECT is consumed; any other packet type first is
// a protocol violation. When a handshake timeout is configured, both the
// frame read and the connect handler have to finish inside it, and an
// expiry surfaces as ErrHandshakeTimeout.
func runHandshake(ctx context.Context, conn FrameConn, session *Session, remoteAddr net.Addr, closer *connCloser, cfg *config) (*ConnectRequest, uint16, error) {
	if cfg.handshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.handshakeTimeout)
		defer cancel()

		timer := time.AfterFunc(cfg.handshakeTimeout, func() {
			closer.close(ErrHandshakeTimeout)
		})
		defer timer.Stop()
	}

	packet, err := conn.ReadFrame()
	if err != nil {
		return nil, 0, closer.reason(err)
	}

	connect, ok := packet.(*ConnectPacket)
	if !ok {
		return nil, 0, &UnexpectedPacketError{PacketType: packet.Type()}
	}

	if err := connect.Validate(); err != nil {
		return nil, 0, err
	}

	req := newConnectRequest(connect, session, remoteAddr)

	decision, err := cfg.connect(ctx, req)
	if err != nil {
		// The handler may observe the ctx deadline before the close timer
		// fires; both are the same handshake timeout.
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, 0, ErrHandshakeTimeout
		}
		return nil, 0, &HandlerError{Err: err}
	}
	if decision == nil {
		decision = Reject(CodeServerUnavailable)
	}

	ack := &ConnackPacket{
		SessionPresent: decision.Accepted() && decision.sessionPresent,
		ReturnCode:     decision.code,
	}
	if err := conn.WriteFrame(ack); err != nil {
		return nil, 0, closer.reason(err)
	}

	if !decision.Accepted() {
		return req, 0, ErrConnectRejected
	}

	keepAlive := connect.KeepAlive
	if decision.keepAliveSet {
		keepAlive = decision.keepAlive
	}

	return req, keepAlive, nil
}
