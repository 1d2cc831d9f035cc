package mqtt311

import (
	"errors"
	"io"
)

// ErrEmptyUnsubscribe is returned for an UNSUBSCRIBE packet with no filters.
var ErrEmptyUnsubscribe = errors.New("unsubscribe packet without topic filters")

// UnsubscribePacket represents the MQTT UNSUBSCRIBE packet.
type UnsubscribePacket struct {
	ID           uint16
	TopicFilters []string
}

// Type returns the packet type.
func (p *UnsubscribePacket) Type() PacketType {
	return PacketUNSUBSCRIBE
}

// PacketID returns the packet identifier.
func (p *UnsubscribePacket) PacketID() uint16 {
	return p.ID
}

// SetPacketID sets the packet identifier.
func (p *UnsubscribePacket) SetPacketID(id uint16) {
	p.ID = id
}

// Size returns the encoded size of the variable header and payload.
func (p *UnsubscribePacket) Size() int {
	n := 2
	for _, filter := range p.TopicFilters {
		n += 2 + len(filter)
	}
	return n
}

// Encode writes the packet to the writer.
// Returns the number of bytes written.
func (p *UnsubscribePacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	header := FixedHeader{
		PacketType:      PacketUNSUBSCRIBE,
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

	for _, filter := range p.TopicFilters {
		n2, err = encodeString(w, filter)
		n += n2
		if err != nil {
			return n, err
		}
	}

	return n, nil
}

// Decode reads the packet body from the reader.
// Returns the number of bytes read.
func (p *UnsubscribePacket) Decode(r io.Reader, header FixedHeader) (int, error) {
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

		p.TopicFilters = append(p.TopicFilters, filter)
	}

	if len(p.TopicFilters) == 0 {
		return n, ErrEmptyUnsubscribe
	}

	return n, nil
}

// Validate validates the packet contents.
func (p *UnsubscribePacket) Validate() error {
	if p.ID == 0 {
		return ErrZeroPacketID
	}

	if len(p.TopicFilters) == 0 {
		return ErrEmptyUnsubscribe
	}

	return nil
}
