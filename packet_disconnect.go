package mqtt311

import "io"

// DisconnectPacket represents the MQTT DISCONNECT packet. At protocol level 4
// it has no body and no reason code.
type DisconnectPacket struct{}

// Type returns the packet type.
func (p *DisconnectPacket) Type() PacketType { return PacketDISCONNECT }

// Size returns the encoded size of the variable header and payload.
func (p *DisconnectPacket) Size() int { return 0 }

// Encode writes the packet to the writer.
func (p *DisconnectPacket) Encode(w io.Writer) (int, error) {
	return encodeEmpty(w, PacketDISCONNECT)
}

// Decode reads the packet body from the reader. DISCONNECT has none.
func (p *DisconnectPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	return 0, nil
}

// Validate validates the packet contents.
func (p *DisconnectPacket) Validate() error { return nil }
