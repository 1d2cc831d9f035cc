package mqtt311

// FrameDecoder turns an arbitrarily fragmented byte stream into complete
// MQTT packets. Bytes are appended with Feed; Next returns the next complete
// packet, or (nil, nil) when more bytes are needed. Decode errors are fatal:
// once Next returns an error the decoder must be discarded along with the
// connection it was reading.
type FrameDecoder struct {
	buf        []byte
	header     FixedHeader
	haveHeader bool
	maxSize    uint32
	failed     error
}

// NewFrameDecoder creates a frame decoder. If maxSize is greater than 0,
// frames whose remaining length exceeds maxSize fail with ErrPacketTooLarge
// as soon as the fixed header is complete, before the body arrives.
func NewFrameDecoder(maxSize uint32) *FrameDecoder {
	return &FrameDecoder{maxSize: maxSize}
}

// Feed appends bytes received from the transport to the decode buffer.
func (d *FrameDecoder) Feed(data []byte) {
	d.buf = append(d.buf, data...)
}

// Buffered returns the number of bytes waiting to be decoded.
func (d *FrameDecoder) Buffered() int {
	return len(d.buf)
}

// Next decodes and returns the next complete packet from the buffer.
// It returns (nil, nil) when the buffer does not yet hold a complete frame.
func (d *FrameDecoder) Next() (Packet, error) {
	if d.failed != nil {
		return nil, d.failed
	}

	if !d.haveHeader {
		ok, err := d.decodeHeader()
		if err != nil {
			d.failed = err
			return nil, err
		}
		if !ok {
			return nil, nil
		}
	}

	if uint32(len(d.buf)) < d.header.RemainingLength {
		return nil, nil
	}

	body := d.buf[:d.header.RemainingLength]
	d.buf = d.buf[d.header.RemainingLength:]
	d.haveHeader = false

	packet, err := decodeBody(body, d.header)
	if err != nil {
		d.failed = err
		return nil, err
	}

	return packet, nil
}

func (d *FrameDecoder) decodeHeader() (bool, error) {
	if len(d.buf) < 2 {
		return false, nil
	}

	length, lengthBytes, err := decodeVarintBytes(d.buf[1:])
	if err != nil {
		return false, err
	}
	if lengthBytes == 0 {
		// Length bytes still arriving.
		return false, nil
	}

	header := FixedHeader{
		PacketType:      PacketType(d.buf[0] >> 4),
		Flags:           d.buf[0] & 0x0F,
		RemainingLength: length,
	}

	if !header.PacketType.Valid() {
		return false, ErrInvalidPacketType
	}

	if err := header.ValidateFlags(); err != nil {
		return false, err
	}

	if d.maxSize > 0 && header.RemainingLength > d.maxSize {
		return false, ErrPacketTooLarge
	}

	d.buf = d.buf[1+lengthBytes:]
	d.header = header
	d.haveHeader = true

	return true, nil
}
