package mqtt311

import "io"

func encodeEmpty(w io.Writer, packetType PacketType) (int, error) {
	header := FixedHeader{PacketType: packetType}
	return header.Encode(w)
}

// PingreqPacket represents the MQTT PINGREQ packet. It has no body.
type PingreqPacket struct{}

// Type returns the packet type.
func (p *PingreqPacket) Type() PacketType { return PacketPINGREQ }

// Size returns the encoded size of the variable header and payload.
func (p *PingreqPacket) Size() int { return 0 }

// Encode writes the packet to the writer.
func (p *PingreqPacket) Encode(w io.Writer) (int, error) {
	return encodeEmpty(w, PacketPINGREQ)
}

// Decode reads the packet body from the reader. PINGREQ has none.
func (p *PingreqPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	return 0, nil
}

// Validate validates the packet contents.
func (p *PingreqPacket) Validate() error { return nil }

// PingrespPacket represents the MQTT PINGRESP packet. It has no body.
type PingrespPacket struct{}

// Type returns the packet type.
func (p *PingrespPacket) Type() PacketType { return PacketPINGRESP }

// Size returns the encoded size of the variable header and payload.
func (p *PingrespPacket) Size() int { return 0 }

// Encode writes the packet to the writer.
func (p *PingrespPacket) Encode(w io.Writer) (int, error) {
	return encodeEmpty(w, PacketPINGRESP)
}

// Decode reads the packet body from the reader. PINGRESP has none.
func (p *PingrespPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	return 0, nil
}

// Validate validates the packet contents.
func (p *PingrespPacket) Validate() error { return nil }
