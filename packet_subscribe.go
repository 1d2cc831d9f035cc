package mqtt311

import (
	"errors"
	"io"
)

// SUBSCRIBE and SUBACK packet errors.
var (
	ErrEmptySubscription = errors.New("subscribe packet without topic filters")
	ErrInvalidReturnCode = errors.New("invalid return code")
)

// TopicSubscription is a single topic filter with its requested QoS level.
type TopicSubscription struct {
	TopicFilter string
	QoS         QoS
}

// SubscribePacket represents the MQTT SUBSCRIBE packet.
type SubscribePacket struct {
	ID            uint16
	Subscriptions []TopicSubscription
}

// Type returns the packet type.
func (p *SubscribePacket) Type() PacketType {
	return PacketSUBSCRIBE
}

// PacketID returns the packet identifier.
func (p *SubscribePacket) PacketID() uint16 {
	return p.ID
}

// SetPacketID sets the packet identifier.
func (p *SubscribePacket) SetPacketID(id uint16) {
	p.ID = id
}

// Size returns the encoded size of the variable header and payload.
func (p *SubscribePacket) Size() int {
	n := 2
	for _, sub := range p.Subscriptions {
		n += 2 + len(sub.TopicFilter) + 1
	}
	return n
}

// Encode writes the packet to the writer.
// Returns the number of bytes written.
func (p *SubscribePacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	header := FixedHeader{
		PacketType:      PacketSUBSCRIBE,
		Flags:           0x02,
		RemainingLength: uint32(p.Size()),
	}

	n, err := header.Encode(w)
	if err != nil {
		return n, err
	}

	n2, err := w.Write([]byte{byte(p.ID >> 8), byte(p.ID)})
	n += n2
	if err != nil {
		return n, err
	}

	for _, sub := range p.Subscriptions {
		n2, err = encodeString(w, sub.TopicFilter)
		n += n2
		if err != nil {
			return n, err
		}

		n2, err = w.Write([]byte{byte(sub.QoS)})
		n += n2
		if err != nil {
			return n, err
		}
	}

	return n, nil
}

// Decode reads the packet body from the reader.
// Returns the number of bytes read.
func (p *SubscribePacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if err := header.ValidateFlags(); err != nil {
		return 0, err
	}

	id, n, err := decodeIDOnly(r)
	if err != nil {
		return n, err
	}
	p.ID = id

	remaining := int(header.RemainingLength) - n
	for remaining > 0 {
		filter, n2, err := decodeString(r)
		n += n2
		remaining -= n2
		if err != nil {
			return n, err
		}

		var buf [1]byte
		n2, err = io.ReadFull(r, buf[:])
		n += n2
		remaining -= n2
		if err != nil {
			return n, err
		}

		qos := QoS(buf[0])
		if !qos.Valid() {
			return n, ErrInvalidQoS
		}

		p.Subscriptions = append(p.Subscriptions, TopicSubscription{
			TopicFilter: filter,
			QoS:         qos,
		})
	}

	if len(p.Subscriptions) == 0 {
		return n, ErrEmptySubscription
	}

	return n, nil
}

// Validate validates the packet contents.
func (p *SubscribePacket) Validate() error {
	if p.ID == 0 {
		return ErrZeroPacketID
	}

	if len(p.Subscriptions) == 0 {
		return ErrEmptySubscription
	}

	for _, sub := range p.Subscriptions {
		if !sub.QoS.Valid() {
			return ErrInvalidQoS
		}
	}

	return nil
}

// SubscribeReturnCode is a per-filter outcome carried in a SUBACK packet.
type SubscribeReturnCode byte

// SubscribeFailure indicates the server refused the subscription.
const SubscribeFailure SubscribeReturnCode = 0x80

// GrantedQoS builds a success return code carrying the granted QoS level.
func GrantedQoS(qos QoS) SubscribeReturnCode {
	return SubscribeReturnCode(qos)
}

// Valid returns true if the return code is either a granted QoS or failure.
func (c SubscribeReturnCode) Valid() bool {
	return c == SubscribeFailure || QoS(c).Valid()
}

// Failed returns true if the return code indicates a refused subscription.
func (c SubscribeReturnCode) Failed() bool {
	return c == SubscribeFailure
}

// SubackPacket represents the MQTT SUBACK packet.
type SubackPacket struct {
	ID          uint16
	ReturnCodes []SubscribeReturnCode
}

// Type returns the packet type.
func (p *SubackPacket) Type() PacketType {
	return PacketSUBACK
}

// PacketID returns the packet identifier.
func (p *SubackPacket) PacketID() uint16 {
	return p.ID
}

// SetPacketID sets the packet identifier.
func (p *SubackPacket) SetPacketID(id uint16) {
	p.ID = id
}

// Size returns the encoded size of the variable header and payload.
func (p *SubackPacket) Size() int {
	return 2 + len(p.ReturnCodes)
}

// Encode writes the packet to the writer.
// Returns the number of bytes written.
func (p *SubackPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	header := FixedHeader{
		PacketType:      PacketSUBACK,
		RemainingLength: uint32(p.Size()),
	}

	n, err := header.Encode(w)
	if err != nil {
		return n, err
	}

	n2, err := w.Write([]byte{byte(p.ID >> 8), byte(p.ID)})
	n += n2
	if err != nil {
		return n, err
	}

	codes := make([]byte, len(p.ReturnCodes))
	for i, code := range p.ReturnCodes {
		codes[i] = byte(code)
	}

	n2, err = w.Write(codes)
	return n + n2, err
}

// Decode reads the packet body from the reader.
// Returns the number of bytes read.
func (p *SubackPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	id, n, err := decodeIDOnly(r)
	if err != nil {
		return n, err
	}
	p.ID = id

	codes, err := io.ReadAll(r)
	n += len(codes)
	if err != nil {
		return n, err
	}

	p.ReturnCodes = make([]SubscribeReturnCode, len(codes))
	for i, code := range codes {
		rc := SubscribeReturnCode(code)
		if !rc.Valid() {
			return n, ErrInvalidReturnCode
		}
		p.ReturnCodes[i] = rc
	}

	return n, nil
}

// Validate validates the packet contents.
func (p *SubackPacket) Validate() error {
	if p.ID == 0 {
		return ErrZeroPacketID
	}

	for _, code := range p.ReturnCodes {
		if !code.Valid() {
			return ErrInvalidReturnCode
		}
	}

	return nil
}
