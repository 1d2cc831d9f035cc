package mqtt311

import (
	"errors"
	"fmt"
	"io"
)

var (
	ErrPacketTooLarge    = errors.New("mqtt311: packet exceeds maximum size")
	ErrUnknownPacketType = errors.New("mqtt311: unknown packet type")

	// ErrMalformedPacket wraps decode failures inside a complete frame, such
	// as an inner length field promising more bytes than the body holds. It
	// keeps truncated-but-framed data distinct from a dropped transport.
	ErrMalformedPacket = errors.New("mqtt311: malformed packet")
)

// packetForType returns an empty packet of the given type.
func packetForType(packetType PacketType) (Packet, error) {
	switch packetType {
	case PacketCONNECT:
		return &ConnectPacket{}, nil
	case PacketCONNACK:
		return &ConnackPacket{}, nil
	case PacketPUBLISH:
		return &PublishPacket{}, nil
	case PacketPUBACK:
		return &PubackPacket{}, nil
	case PacketPUBREC:
		return &PubrecPacket{}, nil
	case PacketPUBREL:
		return &PubrelPacket{}, nil
	case PacketPUBCOMP:
		return &PubcompPacket{}, nil
	case PacketSUBSCRIBE:
		return &SubscribePacket{}, nil
	case PacketSUBACK:
		return &SubackPacket{}, nil
	case PacketUNSUBSCRIBE:
		return &UnsubscribePacket{}, nil
	case PacketUNSUBACK:
		return &UnsubackPacket{}, nil
	case PacketPINGREQ:
		return &PingreqPacket{}, nil
	case PacketPINGRESP:
		return &PingrespPacket{}, nil
	case PacketDISCONNECT:
		return &DisconnectPacket{}, nil
	default:
		return nil, ErrUnknownPacketType
	}
}

// decodeBody decodes a packet from a fully buffered frame body.
func decodeBody(body []byte, header FixedHeader) (Packet, error) {
	packet, err := packetForType(header.PacketType)
	if err != nil {
		return nil, err
	}

	if _, err := packet.Decode(newBytesReader(body), header); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPacket, err)
	}

	return packet, nil
}

// ReadPacket reads a complete MQTT packet from the reader.
// If maxSize is greater than 0, packets whose remaining length exceeds
// maxSize return ErrPacketTooLarge.
func ReadPacket(r io.Reader, maxSize uint32) (Packet, int, error) {
	var header FixedHeader
	n, err := header.Decode(r)
	if err != nil {
		return nil, n, err
	}

	if err := header.ValidateFlags(); err != nil {
		return nil, n, err
	}

	if maxSize > 0 && header.RemainingLength > maxSize {
		return nil, n, ErrPacketTooLarge
	}

	body := make([]byte, header.RemainingLength)
	if header.RemainingLength > 0 {
		rn, err := io.ReadFull(r, body)
		n += rn
		if err != nil {
			return nil, n, err
		}
	}

	packet, err := decodeBody(body, header)
	if err != nil {
		return nil, n, err
	}

	return packet, n, nil
}

// WritePacket writes a complete MQTT packet to the writer.
// The packet is encoded into a buffer first and handed to the writer in a
// single Write call, so a partially written frame never reaches the wire.
// If maxSize is greater than 0, packets whose remaining length exceeds
// maxSize return ErrPacketTooLarge.
func WritePacket(w io.Writer, packet Packet, maxSize uint32) (int, error) {
	if err := packet.Validate(); err != nil {
		return 0, err
	}

	size := packet.Size()
	if uint32(size) > maxVarint {
		return 0, ErrRemainingLengthTooLarge
	}
	if maxSize > 0 && uint32(size) > maxSize {
		return 0, ErrPacketTooLarge
	}

	var buf bytesBuffer
	n, err := packet.Encode(&buf)
	if err != nil {
		return 0, err
	}

	if n != size+headerSize(uint32(size)) {
		return 0, errEncodedSizeMismatch
	}

	return w.Write(buf.Bytes())
}

var errEncodedSizeMismatch = errors.New("mqtt311: encoded size does not match declared size")

// headerSize returns the fixed header length for a body of the given size.
func headerSize(remainingLength uint32) int {
	return 1 + varintSize(remainingLength)
}

// bytesReader wraps a byte slice for the io.Reader interface.
type bytesReader struct {
	data []byte
	pos  int
}

func newBytesReader(data []byte) *bytesReader {
	return &bytesReader{data: data}
}

func (r *bytesReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

// bytesBuffer is a simple buffer for encoding.
type bytesBuffer struct {
	data []byte
}

func (b *bytesBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *bytesBuffer) Bytes() []byte {
	return b.data
}
