package mqtt311

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketTypeString(t *testing.T) {
	tests := []struct {
		pt   PacketType
		want string
	}{
		{PacketCONNECT, "CONNECT"},
		{PacketCONNACK, "CONNACK"},
		{PacketPUBLISH, "PUBLISH"},
		{PacketPUBACK, "PUBACK"},
		{PacketPUBREC, "PUBREC"},
		{PacketPUBREL, "PUBREL"},
		{PacketPUBCOMP, "PUBCOMP"},
		{PacketSUBSCRIBE, "SUBSCRIBE"},
		{PacketSUBACK, "SUBACK"},
		{PacketUNSUBSCRIBE, "UNSUBSCRIBE"},
		{PacketUNSUBACK, "UNSUBACK"},
		{PacketPINGREQ, "PINGREQ"},
		{PacketPINGRESP, "PINGRESP"},
		{PacketDISCONNECT, "DISCONNECT"},
		{PacketType(0), "UNKNOWN"},
		{PacketType(15), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pt.String())
		})
	}
}

func TestPacketTypeValid(t *testing.T) {
	tests := []struct {
		pt    PacketType
		valid bool
	}{
		{PacketType(0), false},
		{PacketCONNECT, true},
		{PacketPUBLISH, true},
		{PacketDISCONNECT, true},
		{PacketType(15), false},
		{PacketType(16), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, tt.pt.Valid(), "type %d", tt.pt)
	}
}

func TestFixedHeaderEncodeDecode(t *testing.T) {
	tests := []struct {
		name     string
		header   FixedHeader
		wantSize int
	}{
		{"no body", FixedHeader{PacketType: PacketPINGREQ}, 2},
		{"small body", FixedHeader{PacketType: PacketPUBACK, RemainingLength: 2}, 2},
		{"one byte length max", FixedHeader{PacketType: PacketPUBLISH, RemainingLength: 127}, 2},
		{"two byte length min", FixedHeader{PacketType: PacketPUBLISH, RemainingLength: 128}, 3},
		{"two byte length max", FixedHeader{PacketType: PacketPUBLISH, RemainingLength: 16383}, 3},
		{"three byte length min", FixedHeader{PacketType: PacketPUBLISH, RemainingLength: 16384}, 4},
		{"three byte length max", FixedHeader{PacketType: PacketPUBLISH, RemainingLength: 2097151}, 4},
		{"four byte length min", FixedHeader{PacketType: PacketPUBLISH, RemainingLength: 2097152}, 5},
		{"four byte length max", FixedHeader{PacketType: PacketPUBLISH, RemainingLength: 268435455}, 5},
		{"with flags", FixedHeader{PacketType: PacketSUBSCRIBE, Flags: 0x02, RemainingLength: 10}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := tt.header.Encode(&buf)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSize, n)
			assert.Equal(t, tt.wantSize, tt.header.Size())

			var decoded FixedHeader
			dn, err := decoded.Decode(&buf)
			require.NoError(t, err)
			assert.Equal(t, n, dn)
			assert.Equal(t, tt.header, decoded)
		})
	}
}

func TestFixedHeaderEncodeInvalidType(t *testing.T) {
	var buf bytes.Buffer
	header := FixedHeader{PacketType: PacketType(15)}
	_, err := header.Encode(&buf)
	assert.ErrorIs(t, err, ErrInvalidPacketType)
}

func TestFixedHeaderEncodeLengthTooLarge(t *testing.T) {
	var buf bytes.Buffer
	header := FixedHeader{PacketType: PacketPUBLISH, RemainingLength: maxVarint + 1}
	_, err := header.Encode(&buf)
	assert.ErrorIs(t, err, ErrRemainingLengthTooLarge)
}

func TestFixedHeaderDecodeInvalidType(t *testing.T) {
	var header FixedHeader
	_, err := header.Decode(bytes.NewReader([]byte{0x00, 0x00}))
	assert.ErrorIs(t, err, ErrInvalidPacketType)

	_, err = header.Decode(bytes.NewReader([]byte{0xF0, 0x00}))
	assert.ErrorIs(t, err, ErrInvalidPacketType)
}

func TestFixedHeaderValidateFlags(t *testing.T) {
	tests := []struct {
		name   string
		header FixedHeader
		valid  bool
	}{
		{"connect zero", FixedHeader{PacketType: PacketCONNECT}, true},
		{"connect nonzero", FixedHeader{PacketType: PacketCONNECT, Flags: 0x01}, false},
		{"publish qos1", FixedHeader{PacketType: PacketPUBLISH, Flags: 0x02}, true},
		{"publish qos3", FixedHeader{PacketType: PacketPUBLISH, Flags: 0x06}, false},
		{"publish dup retain", FixedHeader{PacketType: PacketPUBLISH, Flags: 0x0B}, true},
		{"pubrel correct", FixedHeader{PacketType: PacketPUBREL, Flags: 0x02}, true},
		{"pubrel zero", FixedHeader{PacketType: PacketPUBREL}, false},
		{"subscribe correct", FixedHeader{PacketType: PacketSUBSCRIBE, Flags: 0x02}, true},
		{"subscribe wrong", FixedHeader{PacketType: PacketSUBSCRIBE, Flags: 0x00}, false},
		{"unsubscribe correct", FixedHeader{PacketType: PacketUNSUBSCRIBE, Flags: 0x02}, true},
		{"pingreq zero", FixedHeader{PacketType: PacketPINGREQ}, true},
		{"pingreq nonzero", FixedHeader{PacketType: PacketPINGREQ, Flags: 0x0F}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.header.ValidateFlags()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidPacketFlags)
			}
		})
	}
}

func TestFixedHeaderPublishFlags(t *testing.T) {
	var header FixedHeader

	header.SetDUP(true)
	header.SetQoS(QoSAtLeastOnce)
	header.SetRetain(true)

	assert.True(t, header.DUP())
	assert.Equal(t, QoSAtLeastOnce, header.QoS())
	assert.True(t, header.Retain())
	assert.Equal(t, byte(0x0B), header.Flags)

	header.SetDUP(false)
	header.SetQoS(QoSExactlyOnce)
	header.SetRetain(false)

	assert.False(t, header.DUP())
	assert.Equal(t, QoSExactlyOnce, header.QoS())
	assert.False(t, header.Retain())
	assert.Equal(t, byte(0x04), header.Flags)
}
