package mqtt311

import "io"

// The acknowledgement packets PUBACK, PUBREC, PUBREL, PUBCOMP and UNSUBACK
// share the same shape: a two byte packet identifier and nothing else.

func encodeIDOnly(w io.Writer, packetType PacketType, flags byte, id uint16) (int, error) {
	if id == 0 {
		return 0, ErrZeroPacketID
	}

	header := FixedHeader{
		PacketType:      packetType,
		Flags:           flags,
		RemainingLength: 2,
	}

	n, err := header.Encode(w)
	if err != nil {
		return n, err
	}

	n2, err := w.Write([]byte{byte(id >> 8), byte(id)})
	return n + n2, err
}

func decodeIDOnly(r io.Reader) (uint16, int, error) {
	var buf [2]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil {
		return 0, n, err
	}

	id := uint16(buf[0])<<8 | uint16(buf[1])
	if id == 0 {
		return 0, n, ErrZeroPacketID
	}

	return id, n, nil
}

// PubackPacket represents the MQTT PUBACK packet.
type PubackPacket struct {
	ID uint16
}

// Type returns the packet type.
func (p *PubackPacket) Type() PacketType { return PacketPUBACK }

// PacketID returns the packet identifier.
func (p *PubackPacket) PacketID() uint16 { return p.ID }

// SetPacketID sets the packet identifier.
func (p *PubackPacket) SetPacketID(id uint16) { p.ID = id }

// Size returns the encoded size of the variable header and payload.
func (p *PubackPacket) Size() int { return 2 }

// Encode writes the packet to the writer.
func (p *PubackPacket) Encode(w io.Writer) (int, error) {
	return encodeIDOnly(w, PacketPUBACK, 0, p.ID)
}

// Decode reads the packet body from the reader.
func (p *PubackPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	id, n, err := decodeIDOnly(r)
	p.ID = id
	return n, err
}

// Validate validates the packet contents.
func (p *PubackPacket) Validate() error {
	if p.ID == 0 {
		return ErrZeroPacketID
	}
	return nil
}

// PubrecPacket represents the MQTT PUBREC packet.
type PubrecPacket struct {
	ID uint16
}

// Type returns the packet type.
func (p *PubrecPacket) Type() PacketType { return PacketPUBREC }

// PacketID returns the packet identifier.
func (p *PubrecPacket) PacketID() uint16 { return p.ID }

// SetPacketID sets the packet identifier.
func (p *PubrecPacket) SetPacketID(id uint16) { p.ID = id }

// Size returns the encoded size of the variable header and payload.
func (p *PubrecPacket) Size() int { return 2 }

// Encode writes the packet to the writer.
func (p *PubrecPacket) Encode(w io.Writer) (int, error) {
	return encodeIDOnly(w, PacketPUBREC, 0, p.ID)
}

// Decode reads the packet body from the reader.
func (p *PubrecPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	id, n, err := decodeIDOnly(r)
	p.ID = id
	return n, err
}

// Validate validates the packet contents.
func (p *PubrecPacket) Validate() error {
	if p.ID == 0 {
		return ErrZeroPacketID
	}
	return nil
}

// PubrelPacket represents the MQTT PUBREL packet.
// Its fixed header flags are always 0x02.
type PubrelPacket struct {
	ID uint16
}

// Type returns the packet type.
func (p *PubrelPacket) Type() PacketType { return PacketPUBREL }

// PacketID returns the packet identifier.
func (p *PubrelPacket) PacketID() uint16 { return p.ID }

// SetPacketID sets the packet identifier.
func (p *PubrelPacket) SetPacketID(id uint16) { p.ID = id }

// Size returns the encoded size of the variable header and payload.
func (p *PubrelPacket) Size() int { return 2 }

// Encode writes the packet to the writer.
func (p *PubrelPacket) Encode(w io.Writer) (int, error) {
	return encodeIDOnly(w, PacketPUBREL, 0x02, p.ID)
}

// Decode reads the packet body from the reader.
func (p *PubrelPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if err := header.ValidateFlags(); err != nil {
		return 0, err
	}

	id, n, err := decodeIDOnly(r)
	p.ID = id
	return n, err
}

// Validate validates the packet contents.
func (p *PubrelPacket) Validate() error {
	if p.ID == 0 {
		return ErrZeroPacketID
	}
	return nil
}

// PubcompPacket represents the MQTT PUBCOMP packet.
type PubcompPacket struct {
	ID uint16
}

// Type returns the packet type.
func (p *PubcompPacket) Type() PacketType { return PacketPUBCOMP }

// PacketID returns the packet identifier.
func (p *PubcompPacket) PacketID() uint16 { return p.ID }

// SetPacketID sets the packet identifier.
func (p *PubcompPacket) SetPacketID(id uint16) { p.ID = id }

// Size returns the encoded size of the variable header and payload.
func (p *PubcompPacket) Size() int { return 2 }

// Encode writes the packet to the writer.
func (p *PubcompPacket) Encode(w io.Writer) (int, error) {
	return encodeIDOnly(w, PacketPUBCOMP, 0, p.ID)
}

// Decode reads the packet body from the reader.
func (p *PubcompPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	id, n, err := decodeIDOnly(r)
	p.ID = id
	return n, err
}

// Validate validates the packet contents.
func (p *PubcompPacket) Validate() error {
	if p.ID == 0 {
		return ErrZeroPacketID
	}
	return nil
}

// UnsubackPacket represents the MQTT UNSUBACK packet.
type UnsubackPacket struct {
	ID uint16
}

// Type returns the packet type.
func (p *UnsubackPacket) Type() PacketType { return PacketUNSUBACK }

// PacketID returns the packet identifier.
func (p *UnsubackPacket) PacketID() uint16 { return p.ID }

// SetPacketID sets the packet identifier.
func (p *UnsubackPacket) SetPacketID(id uint16) { p.ID = id }

// Size returns the encoded size of the variable header and payload.
func (p *UnsubackPacket) Size() int { return 2 }

// Encode writes the packet to the writer.
func (p *UnsubackPacket) Encode(w io.Writer) (int, error) {
	return encodeIDOnly(w, PacketUNSUBACK, 0, p.ID)
}

// Decode reads the packet body from the reader.
func (p *UnsubackPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	id, n, err := decodeIDOnly(r)
	p.ID = id
	return n, err
}

// Validate validates the packet contents.
func (p *UnsubackPacket) Validate() error {
	if p.ID == 0 {
		return ErrZeroPacketID
	}
	return nil
}
