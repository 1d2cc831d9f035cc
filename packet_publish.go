package mqtt311

import (
	"errors"
	"io"
	"strings"
)

// PUBLISH packet errors.
var (
	ErrInvalidTopicName   = errors.New("invalid topic name")
	ErrPacketIDRequired   = errors.New("packet identifier required for QoS > 0")
	ErrZeroPacketID       = errors.New("packet identifier must be non-zero")
	ErrUnexpectedPacketID = errors.New("packet identifier not allowed for QoS 0")
)

// containsWildcard reports whether a topic name contains filter wildcards,
// which are not allowed in published topic names.
func containsWildcard(topic string) bool {
	return strings.ContainsAny(topic, "+#")
}

// PublishPacket represents the MQTT PUBLISH packet.
type PublishPacket struct {
	DUP     bool
	QoS     QoS
	Retain  bool
	Topic   string
	ID      uint16
	Payload []byte
}

// Type returns the packet type.
func (p *PublishPacket) Type() PacketType {
	return PacketPUBLISH
}

// PacketID returns the packet identifier. It is zero for QoS 0 publishes.
func (p *PublishPacket) PacketID() uint16 {
	return p.ID
}

// SetPacketID sets the packet identifier.
func (p *PublishPacket) SetPacketID(id uint16) {
	p.ID = id
}

// Size returns the encoded size of the variable header and payload.
func (p *PublishPacket) Size() int {
	n := 2 + len(p.Topic) + len(p.Payload)
	if p.QoS > QoSAtMostOnce {
		n += 2
	}
	return n
}

func (p *PublishPacket) flags() byte {
	var header FixedHeader
	header.SetDUP(p.DUP)
	header.SetQoS(p.QoS)
	header.SetRetain(p.Retain)
	return header.Flags
}

// Encode writes the packet to the writer.
// Returns the number of bytes written.
func (p *PublishPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	header := FixedHeader{
		PacketType:      PacketPUBLISH,
		Flags:           p.flags(),
		RemainingLength: uint32(p.Size()),
	}

	n, err := header.Encode(w)
	if err != nil {
		return n, err
	}

	n2, err := encodeString(w, p.Topic)
	n += n2
	if err != nil {
		return n, err
	}

	if p.QoS > QoSAtMostOnce {
		n2, err = w.Write([]byte{byte(p.ID >> 8), byte(p.ID)})
		n += n2
		if err != nil {
			return n, err
		}
	}

	n2, err = w.Write(p.Payload)
	return n + n2, err
}

// Decode reads the packet body from the reader.
// The payload is whatever remains of the frame after the variable header.
// Returns the number of bytes read.
func (p *PublishPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if err := header.ValidateFlags(); err != nil {
		return 0, err
	}

	p.DUP = header.DUP()
	p.QoS = header.QoS()
	p.Retain = header.Retain()

	topic, n, err := decodeString(r)
	if err != nil {
		return n, err
	}
	p.Topic = topic

	if p.QoS > QoSAtMostOnce {
		var buf [2]byte
		n2, err := io.ReadFull(r, buf[:])
		n += n2
		if err != nil {
			return n, err
		}

		p.ID = uint16(buf[0])<<8 | uint16(buf[1])
		if p.ID == 0 {
			return n, ErrZeroPacketID
		}
	}

	payload, err := io.ReadAll(r)
	n += len(payload)
	if err != nil {
		return n, err
	}
	if len(payload) > 0 {
		p.Payload = payload
	}

	return n, nil
}

// Validate validates the packet contents.
func (p *PublishPacket) Validate() error {
	if !p.QoS.Valid() {
		return ErrInvalidQoS
	}

	if p.Topic == "" || containsWildcard(p.Topic) {
		return ErrInvalidTopicName
	}

	if p.QoS > QoSAtMostOnce && p.ID == 0 {
		return ErrPacketIDRequired
	}

	if p.QoS == QoSAtMostOnce && p.ID != 0 {
		return ErrUnexpectedPacketID
	}

	return nil
}
