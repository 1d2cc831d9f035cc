package mqtt311

import (
	"errors"
	"io"
)

// CONNECT packet errors.
var (
	ErrInvalidProtocolName      = errors.New("invalid protocol name")
	ErrUnsupportedProtocolLevel = errors.New("unsupported protocol level")
	ErrReservedConnectFlag      = errors.New("reserved connect flag is set")
	ErrClientIDRequired         = errors.New("client identifier required without clean session")
	ErrWillQoSWithoutWill       = errors.New("will QoS set without will flag")
	ErrWillRetainWithoutWill    = errors.New("will retain set without will flag")
)

const (
	protocolName  = "MQTT"
	protocolLevel = 4
)

// Connect flag bits.
const (
	connectFlagReserved     = 0x01
	connectFlagCleanSession = 0x02
	connectFlagWill         = 0x04
	connectFlagWillQoS      = 0x18
	connectFlagWillRetain   = 0x20
	connectFlagPassword     = 0x40
	connectFlagUsername     = 0x80

	willQoSShift = 3
)

// LastWill is the message published on behalf of the client when its
// connection terminates without a DISCONNECT packet.
type LastWill struct {
	QoS     QoS
	Retain  bool
	Topic   string
	Message []byte
}

// ConnectPacket represents the MQTT CONNECT packet.
type ConnectPacket struct {
	ClientID     string
	CleanSession bool
	KeepAlive    uint16
	Will         *LastWill
	Username     string
	Password     []byte
}

// Type returns the packet type.
func (p *ConnectPacket) Type() PacketType {
	return PacketCONNECT
}

// Size returns the encoded size of the variable header and payload.
func (p *ConnectPacket) Size() int {
	// protocol name + level + flags + keep alive
	n := 2 + len(protocolName) + 1 + 1 + 2

	n += 2 + len(p.ClientID)

	if p.Will != nil {
		n += 2 + len(p.Will.Topic)
		n += 2 + len(p.Will.Message)
	}

	if p.Username != "" {
		n += 2 + len(p.Username)
	}

	if len(p.Password) > 0 {
		n += 2 + len(p.Password)
	}

	return n
}

func (p *ConnectPacket) connectFlags() byte {
	var flags byte

	if p.CleanSession {
		flags |= connectFlagCleanSession
	}

	if p.Will != nil {
		flags |= connectFlagWill
		flags |= byte(p.Will.QoS) << willQoSShift
		if p.Will.Retain {
			flags |= connectFlagWillRetain
		}
	}

	if p.Username != "" {
		flags |= connectFlagUsername
	}

	if len(p.Password) > 0 {
		flags |= connectFlagPassword
	}

	return flags
}

// Encode writes the packet to the writer.
// Returns the number of bytes written.
func (p *ConnectPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	header := FixedHeader{
		PacketType:      PacketCONNECT,
		RemainingLength: uint32(p.Size()),
	}

	n, err := header.Encode(w)
	if err != nil {
		return n, err
	}

	n2, err := encodeString(w, protocolName)
	n += n2
	if err != nil {
		return n, err
	}

	n2, err = w.Write([]byte{protocolLevel, p.connectFlags(), byte(p.KeepAlive >> 8), byte(p.KeepAlive)})
	n += n2
	if err != nil {
		return n, err
	}

	n2, err = encodeString(w, p.ClientID)
	n += n2
	if err != nil {
		return n, err
	}

	if p.Will != nil {
		n2, err = encodeString(w, p.Will.Topic)
		n += n2
		if err != nil {
			return n, err
		}

		n2, err = encodeBinary(w, p.Will.Message)
		n += n2
		if err != nil {
			return n, err
		}
	}

	if p.Username != "" {
		n2, err = encodeString(w, p.Username)
		n += n2
		if err != nil {
			return n, err
		}
	}

	if len(p.Password) > 0 {
		n2, err = encodeBinary(w, p.Password)
		n += n2
		if err != nil {
			return n, err
		}
	}

	return n, nil
}

// Decode reads the packet body from the reader.
// Returns the number of bytes read.
func (p *ConnectPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	name, n, err := decodeString(r)
	if err != nil {
		return n, err
	}
	if name != protocolName {
		return n, ErrInvalidProtocolName
	}

	var buf [4]byte
	n2, err := io.ReadFull(r, buf[:])
	n += n2
	if err != nil {
		return n, err
	}

	if buf[0] != protocolLevel {
		return n, ErrUnsupportedProtocolLevel
	}

	flags := buf[1]
	if flags&connectFlagReserved != 0 {
		return n, ErrReservedConnectFlag
	}

	p.CleanSession = flags&connectFlagCleanSession != 0
	p.KeepAlive = uint16(buf[2])<<8 | uint16(buf[3])

	p.ClientID, n2, err = decodeString(r)
	n += n2
	if err != nil {
		return n, err
	}

	if p.ClientID == "" && !p.CleanSession {
		return n, ErrClientIDRequired
	}

	if flags&connectFlagWill != 0 {
		will := &LastWill{
			QoS:    QoS(flags & connectFlagWillQoS >> willQoSShift),
			Retain: flags&connectFlagWillRetain != 0,
		}
		if !will.QoS.Valid() {
			return n, ErrInvalidQoS
		}

		will.Topic, n2, err = decodeString(r)
		n += n2
		if err != nil {
			return n, err
		}

		will.Message, n2, err = decodeBinary(r)
		n += n2
		if err != nil {
			return n, err
		}

		p.Will = will
	} else if flags&(connectFlagWillQoS|connectFlagWillRetain) != 0 {
		if flags&connectFlagWillQoS != 0 {
			return n, ErrWillQoSWithoutWill
		}
		return n, ErrWillRetainWithoutWill
	}

	if flags&connectFlagUsername != 0 {
		p.Username, n2, err = decodeString(r)
		n += n2
		if err != nil {
			return n, err
		}
	}

	if flags&connectFlagPassword != 0 {
		p.Password, n2, err = decodeBinary(r)
		n += n2
		if err != nil {
			return n, err
		}
	}

	return n, nil
}

// Validate validates the packet contents.
func (p *ConnectPacket) Validate() error {
	if p.ClientID == "" && !p.CleanSession {
		return ErrClientIDRequired
	}

	if p.Will != nil {
		if !p.Will.QoS.Valid() {
			return ErrInvalidQoS
		}
		if p.Will.Topic == "" || containsWildcard(p.Will.Topic) {
			return ErrInvalidTopicName
		}
	}

	return nil
}
