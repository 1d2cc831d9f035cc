package mqtt311

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePacket(t *testing.T, packet Packet) []byte {
	t.Helper()

	var buf bytes.Buffer
	_, err := WritePacket(&buf, packet, 0)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestFrameDecoderWholeFrame(t *testing.T) {
	decoder := NewFrameDecoder(0)
	decoder.Feed(encodePacket(t, &PingreqPacket{}))

	packet, err := decoder.Next()
	require.NoError(t, err)
	assert.Equal(t, &PingreqPacket{}, packet)

	// Buffer exhausted.
	packet, err = decoder.Next()
	require.NoError(t, err)
	assert.Nil(t, packet)
	assert.Equal(t, 0, decoder.Buffered())
}

func TestFrameDecoderByteByByte(t *testing.T) {
	want := &PublishPacket{
		QoS:     QoSAtLeastOnce,
		Topic:   "sport/tennis",
		ID:      7,
		Payload: []byte("score"),
	}
	data := encodePacket(t, want)

	decoder := NewFrameDecoder(0)
	for i, b := range data {
		packet, err := decoder.Next()
		require.NoError(t, err)
		require.Nil(t, packet, "complete packet before byte %d", i)

		decoder.Feed([]byte{b})
	}

	packet, err := decoder.Next()
	require.NoError(t, err)
	assert.Equal(t, want, packet)
}

func TestFrameDecoderMultipleFramesOneFeed(t *testing.T) {
	var data []byte
	data = append(data, encodePacket(t, &PubackPacket{ID: 1})...)
	data = append(data, encodePacket(t, &PingreqPacket{})...)
	data = append(data, encodePacket(t, &PubackPacket{ID: 2})...)

	decoder := NewFrameDecoder(0)
	decoder.Feed(data)

	packet, err := decoder.Next()
	require.NoError(t, err)
	assert.Equal(t, &PubackPacket{ID: 1}, packet)

	packet, err = decoder.Next()
	require.NoError(t, err)
	assert.Equal(t, &PingreqPacket{}, packet)

	packet, err = decoder.Next()
	require.NoError(t, err)
	assert.Equal(t, &PubackPacket{ID: 2}, packet)

	packet, err = decoder.Next()
	require.NoError(t, err)
	assert.Nil(t, packet)
}

func TestFrameDecoderSplitAcrossFeeds(t *testing.T) {
	data := encodePacket(t, &PublishPacket{Topic: "a/b", Payload: bytes.Repeat([]byte("x"), 300)})

	decoder := NewFrameDecoder(0)
	decoder.Feed(data[:5])

	packet, err := decoder.Next()
	require.NoError(t, err)
	require.Nil(t, packet)

	decoder.Feed(data[5:])
	packet, err = decoder.Next()
	require.NoError(t, err)
	require.NotNil(t, packet)
	assert.Len(t, packet.(*PublishPacket).Payload, 300)
}

func TestFrameDecoderMaxSizeAtHeader(t *testing.T) {
	// Header declares a 300 byte body; the body never arrives but the size
	// check fires as soon as the header is complete.
	decoder := NewFrameDecoder(100)
	decoder.Feed([]byte{0x30, 0xAC, 0x02})

	_, err := decoder.Next()
	assert.ErrorIs(t, err, ErrPacketTooLarge)

	// The decoder stays failed.
	_, err = decoder.Next()
	assert.ErrorIs(t, err, ErrPacketTooLarge)
}

func TestFrameDecoderMalformedLength(t *testing.T) {
	decoder := NewFrameDecoder(0)
	decoder.Feed([]byte{0x30, 0xFF, 0xFF, 0xFF, 0xFF})

	_, err := decoder.Next()
	assert.ErrorIs(t, err, ErrVarintMalformed)
}

func TestFrameDecoderIncompleteLength(t *testing.T) {
	decoder := NewFrameDecoder(0)
	decoder.Feed([]byte{0x30, 0xFF, 0xFF})

	// Three length bytes with continuation bits could still become a valid
	// four byte length.
	packet, err := decoder.Next()
	require.NoError(t, err)
	assert.Nil(t, packet)

	decoder.Feed([]byte{0x7F})
	packet, err = decoder.Next()
	require.NoError(t, err)
	assert.Nil(t, packet) // header complete, body outstanding
}

func TestFrameDecoderTruncatedBody(t *testing.T) {
	// Remaining length 3, but the topic length field inside promises 10
	// bytes. The frame is complete, so this is a malformed packet rather
	// than a transport truncation.
	decoder := NewFrameDecoder(0)
	decoder.Feed([]byte{0x30, 0x03, 0x00, 0x0A, 0x61})

	_, err := decoder.Next()
	assert.ErrorIs(t, err, ErrMalformedPacket)
}

func TestFrameDecoderInvalidType(t *testing.T) {
	decoder := NewFrameDecoder(0)
	decoder.Feed([]byte{0xF0, 0x00})

	_, err := decoder.Next()
	assert.ErrorIs(t, err, ErrInvalidPacketType)
}

func TestFrameDecoderInvalidFlags(t *testing.T) {
	decoder := NewFrameDecoder(0)
	decoder.Feed([]byte{0xC1, 0x00})

	_, err := decoder.Next()
	assert.ErrorIs(t, err, ErrInvalidPacketFlags)
}
