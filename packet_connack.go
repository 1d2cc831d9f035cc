package mqtt311

import (
	"errors"
	"io"
)

// ErrReservedConnackFlag is returned when the CONNACK acknowledge flags byte
// has any bit other than session-present set.
var ErrReservedConnackFlag = errors.New("reserved connack flag is set")

// ConnectCode is the CONNACK return code.
type ConnectCode byte

// CONNACK return codes.
const (
	CodeAccepted                    ConnectCode = 0
	CodeUnacceptableProtocolVersion ConnectCode = 1
	CodeIdentifierRejected          ConnectCode = 2
	CodeServerUnavailable           ConnectCode = 3
	CodeBadUsernameOrPassword       ConnectCode = 4
	CodeNotAuthorized               ConnectCode = 5
)

// Valid returns true if the return code is defined by the protocol.
func (c ConnectCode) Valid() bool {
	return c <= CodeNotAuthorized
}

// Reason returns a human readable description of the return code.
func (c ConnectCode) Reason() string {
	switch c {
	case CodeAccepted:
		return "connection accepted"
	case CodeUnacceptableProtocolVersion:
		return "protocol version is not supported"
	case CodeIdentifierRejected:
		return "client identifier is rejected"
	case CodeServerUnavailable:
		return "service is unavailable"
	case CodeBadUsernameOrPassword:
		return "bad user name or password"
	case CodeNotAuthorized:
		return "client is not authorized"
	default:
		return "reserved return code"
	}
}

const connackFlagSessionPresent = 0x01

// ConnackPacket represents the MQTT CONNACK packet.
type ConnackPacket struct {
	SessionPresent bool
	ReturnCode     ConnectCode
}

// Type returns the packet type.
func (p *ConnackPacket) Type() PacketType {
	return PacketCONNACK
}

// Size returns the encoded size of the variable header and payload.
func (p *ConnackPacket) Size() int {
	return 2
}

// Encode writes the packet to the writer.
// Returns the number of bytes written.
func (p *ConnackPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	header := FixedHeader{
		PacketType:      PacketCONNACK,
		RemainingLength: uint32(p.Size()),
	}

	n, err := header.Encode(w)
	if err != nil {
		return n, err
	}

	var flags byte
	if p.SessionPresent {
		flags = connackFlagSessionPresent
	}

	n2, err := w.Write([]byte{flags, byte(p.ReturnCode)})
	return n + n2, err
}

// Decode reads the packet body from the reader.
// Returns the number of bytes read.
func (p *ConnackPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	var buf [2]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil {
		return n, err
	}

	if buf[0]&^connackFlagSessionPresent != 0 {
		return n, ErrReservedConnackFlag
	}

	p.SessionPresent = buf[0]&connackFlagSessionPresent != 0
	p.ReturnCode = ConnectCode(buf[1])

	return n, nil
}

// Validate validates the packet contents.
func (p *ConnackPacket) Validate() error {
	if !p.ReturnCode.Valid() {
		return ErrInvalidReturnCode
	}
	return nil
}
