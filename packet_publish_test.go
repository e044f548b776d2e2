package mqttv3

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishPacketType(t *testing.T) {
	p := &PublishPacket{}
	assert.Equal(t, PacketPUBLISH, p.Type())
}

func TestPublishPacketID(t *testing.T) {
	p := &PublishPacket{}
	p.SetPacketID(12345)
	assert.Equal(t, uint16(12345), p.PacketID())
}

func TestPublishPacketEncodeDecode(t *testing.T) {
	tests := []struct {
		name   string
		packet PublishPacket
	}{
		{
			name:   "qos0",
			packet: PublishPacket{Topic: "sensors/temp", Payload: []byte("21.5")},
		},
		{
			name:   "qos0 empty payload",
			packet: PublishPacket{Topic: "sensors/presence"},
		},
		{
			name:   "qos1",
			packet: PublishPacket{Topic: "a/b", Payload: []byte("x"), QoS: QoSAtLeastOnce, ID: 1},
		},
		{
			name:   "qos1 dup",
			packet: PublishPacket{Topic: "a/b", Payload: []byte("x"), QoS: QoSAtLeastOnce, DUP: true, ID: 10},
		},
		{
			name:   "qos2 retain",
			packet: PublishPacket{Topic: "a/b", Payload: []byte("x"), QoS: QoSExactlyOnce, Retain: true, ID: 65535},
		},
		{
			name:   "binary payload",
			packet: PublishPacket{Topic: "data", Payload: []byte{0x00, 0xFF, 0x10}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := tt.packet.Encode(&buf)
			require.NoError(t, err)
			assert.Equal(t, buf.Len(), n)

			decoded, dn, err := DecodePacket(buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, buf.Len(), dn)

			got := decoded.(*PublishPacket)
			assert.Equal(t, tt.packet.Topic, got.Topic)
			assert.Equal(t, tt.packet.QoS, got.QoS)
			assert.Equal(t, tt.packet.Retain, got.Retain)
			assert.Equal(t, tt.packet.DUP, got.DUP)
			assert.Equal(t, tt.packet.ID, got.ID)
			if len(tt.packet.Payload) > 0 {
				assert.Equal(t, tt.packet.Payload, got.Payload)
			} else {
				assert.Empty(t, got.Payload)
			}
		})
	}
}

func TestPublishPacketDecodeErrors(t *testing.T) {
	t.Run("zero identifier with qos1", func(t *testing.T) {
		// PUBLISH qos1: topic "a", id 0
		data := []byte{0x32, 0x05, 0x00, 0x01, 'a', 0x00, 0x00}
		_, _, err := DecodePacket(data)
		assert.ErrorIs(t, err, ErrPacketIDRequired)
	})

	t.Run("wildcard in topic", func(t *testing.T) {
		data := []byte{0x30, 0x05, 0x00, 0x03, 'a', '/', '#'}
		_, _, err := DecodePacket(data)
		assert.ErrorIs(t, err, ErrInvalidTopicName)
	})

	t.Run("dup with qos0", func(t *testing.T) {
		var packet PublishPacket
		header := FixedHeader{PacketType: PacketPUBLISH, Flags: 0x08, RemainingLength: 3}
		body := bytesReader{data: []byte{0x00, 0x01, 'a'}}
		_, err := packet.Decode(&body, header)
		assert.ErrorIs(t, err, ErrInvalidDupFlag)
	})

	t.Run("remaining length shorter than variable header", func(t *testing.T) {
		// Declared remaining length cuts into the topic string.
		data := []byte{0x30, 0x02, 0x00, 0x03, 'a', 'b', 'c'}
		_, _, err := DecodePacket(data)
		var malformed *MalformedPacketError
		assert.ErrorAs(t, err, &malformed)
	})
}

func TestPublishPacketValidation(t *testing.T) {
	tests := []struct {
		name    string
		packet  PublishPacket
		wantErr error
	}{
		{
			name:   "valid qos0",
			packet: PublishPacket{Topic: "a"},
		},
		{
			name:    "qos3",
			packet:  PublishPacket{Topic: "a", QoS: 3, ID: 1},
			wantErr: ErrInvalidQoS,
		},
		{
			name:    "dup with qos0",
			packet:  PublishPacket{Topic: "a", DUP: true},
			wantErr: ErrInvalidDupFlag,
		},
		{
			name:    "qos1 without identifier",
			packet:  PublishPacket{Topic: "a", QoS: QoSAtLeastOnce},
			wantErr: ErrPacketIDRequired,
		},
		{
			name:    "qos2 without identifier",
			packet:  PublishPacket{Topic: "a", QoS: QoSExactlyOnce},
			wantErr: ErrPacketIDRequired,
		},
		{
			name:    "empty topic",
			packet:  PublishPacket{},
			wantErr: ErrEmptyTopic,
		},
		{
			name:    "wildcard topic",
			packet:  PublishPacket{Topic: "a/+/b"},
			wantErr: ErrInvalidTopicName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.packet.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPublishPacketMessageConversion(t *testing.T) {
	packet := PublishPacket{
		Topic:   "a/b",
		Payload: []byte("x"),
		QoS:     QoSAtLeastOnce,
		Retain:  true,
		DUP:     true,
		ID:      7,
	}

	msg := packet.ToMessage()
	assert.Equal(t, "a/b", msg.Topic)
	assert.Equal(t, []byte("x"), msg.Payload)
	assert.Equal(t, QoSAtLeastOnce, msg.QoS)
	assert.True(t, msg.Retain)
	assert.True(t, msg.Duplicate)

	var back PublishPacket
	back.FromMessage(msg)
	assert.Equal(t, packet.Topic, back.Topic)
	assert.Equal(t, packet.Payload, back.Payload)
	assert.Equal(t, packet.QoS, back.QoS)
	assert.Equal(t, packet.Retain, back.Retain)
	assert.Equal(t, packet.DUP, back.DUP)
	assert.Zero(t, back.ID)
}

func BenchmarkPublishPacketEncode(b *testing.B) {
	packet := PublishPacket{Topic: "sensors/temp", Payload: []byte("21.5"), QoS: QoSAtLeastOnce, ID: 1}
	var buf bytes.Buffer
	buf.Grow(64)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		buf.Reset()
		_, _ = packet.Encode(&buf)
	}
}
