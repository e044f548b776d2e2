package mqttv3

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnackPacketType(t *testing.T) {
	p := &ConnackPacket{}
	assert.Equal(t, PacketCONNACK, p.Type())
}

func TestConnackPacketEncodeDecode(t *testing.T) {
	tests := []struct {
		name   string
		packet ConnackPacket
	}{
		{
			name:   "accepted new session",
			packet: ConnackPacket{ReturnCode: ConnectionAccepted},
		},
		{
			name:   "accepted session present",
			packet: ConnackPacket{SessionPresent: true, ReturnCode: ConnectionAccepted},
		},
		{
			name:   "refused bad credentials",
			packet: ConnackPacket{ReturnCode: ConnectionRefusedBadCredentials},
		},
		{
			name:   "refused not authorized",
			packet: ConnackPacket{ReturnCode: ConnectionRefusedNotAuthorized},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := tt.packet.Encode(&buf)
			require.NoError(t, err)
			assert.Equal(t, 4, n)

			decoded, _, err := DecodePacket(buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, &tt.packet, decoded)
		})
	}
}

func TestConnackPacketDecodeErrors(t *testing.T) {
	t.Run("reserved acknowledge flag bits", func(t *testing.T) {
		_, _, err := DecodePacket([]byte{0x20, 0x02, 0x02, 0x00})
		assert.ErrorIs(t, err, ErrInvalidConnackFlag)
	})

	t.Run("undefined return code", func(t *testing.T) {
		_, _, err := DecodePacket([]byte{0x20, 0x02, 0x00, 0x06})
		assert.ErrorIs(t, err, ErrInvalidReturnCode)
	})

	t.Run("session present with refusal", func(t *testing.T) {
		_, _, err := DecodePacket([]byte{0x20, 0x02, 0x01, 0x05})
		assert.ErrorIs(t, err, ErrInvalidConnackFlag)
	})
}

func TestConnackPacketValidation(t *testing.T) {
	valid := ConnackPacket{ReturnCode: ConnectionAccepted}
	assert.NoError(t, valid.Validate())

	invalid := ConnackPacket{ReturnCode: 6}
	assert.ErrorIs(t, invalid.Validate(), ErrInvalidReturnCode)

	refusedWithSession := ConnackPacket{SessionPresent: true, ReturnCode: ConnectionRefusedServerUnavailable}
	assert.ErrorIs(t, refusedWithSession.Validate(), ErrInvalidConnackFlag)
}

func TestConnectReturnCodeString(t *testing.T) {
	assert.Equal(t, "connection accepted", ConnectionAccepted.String())
	assert.Contains(t, ConnectionRefusedBadCredentials.String(), "bad user name")
	assert.Contains(t, ConnectReturnCode(9).String(), "unknown")
}
