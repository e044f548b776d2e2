package mqttv3

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribePacketType(t *testing.T) {
	p := &SubscribePacket{}
	assert.Equal(t, PacketSUBSCRIBE, p.Type())
}

func TestSubscribePacketEncodeDecode(t *testing.T) {
	tests := []struct {
		name   string
		packet SubscribePacket
	}{
		{
			name: "single filter",
			packet: SubscribePacket{
				ID:            1,
				Subscriptions: []Subscription{{Filter: "sensors/temp", QoS: QoSAtMostOnce}},
			},
		},
		{
			name: "multiple filters mixed qos",
			packet: SubscribePacket{
				ID: 100,
				Subscriptions: []Subscription{
					{Filter: "sensors/#", QoS: QoSAtLeastOnce},
					{Filter: "alerts/+/critical", QoS: QoSExactlyOnce},
					{Filter: "status", QoS: QoSAtMostOnce},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			_, err := tt.packet.Encode(&buf)
			require.NoError(t, err)

			decoded, _, err := DecodePacket(buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, &tt.packet, decoded)
		})
	}
}

func TestSubscribePacketValidation(t *testing.T) {
	t.Run("zero packet id", func(t *testing.T) {
		p := SubscribePacket{Subscriptions: []Subscription{{Filter: "a", QoS: 0}}}
		assert.ErrorIs(t, p.Validate(), ErrPacketIDRequired)
	})

	t.Run("no filters", func(t *testing.T) {
		p := SubscribePacket{ID: 1}
		assert.ErrorIs(t, p.Validate(), ErrNoSubscriptions)
	})

	t.Run("invalid filter", func(t *testing.T) {
		p := SubscribePacket{ID: 1, Subscriptions: []Subscription{{Filter: "a/#/b", QoS: 0}}}
		assert.ErrorIs(t, p.Validate(), ErrInvalidTopicFilter)
	})

	t.Run("invalid qos", func(t *testing.T) {
		p := SubscribePacket{ID: 1, Subscriptions: []Subscription{{Filter: "a", QoS: 3}}}
		assert.ErrorIs(t, p.Validate(), ErrInvalidQoS)
	})
}

func TestSubscribePacketDecodeErrors(t *testing.T) {
	t.Run("requested qos3", func(t *testing.T) {
		// id 1, filter "a" with qos 3
		data := []byte{0x82, 0x06, 0x00, 0x01, 0x00, 0x01, 'a', 0x03}
		_, _, err := DecodePacket(data)
		assert.ErrorIs(t, err, ErrInvalidQoS)
	})

	t.Run("empty payload", func(t *testing.T) {
		data := []byte{0x82, 0x02, 0x00, 0x01}
		_, _, err := DecodePacket(data)
		assert.ErrorIs(t, err, ErrNoSubscriptions)
	})

	t.Run("wrong fixed header flags", func(t *testing.T) {
		data := []byte{0x80, 0x06, 0x00, 0x01, 0x00, 0x01, 'a', 0x00}
		_, _, err := DecodePacket(data)
		assert.ErrorIs(t, err, ErrReservedFlags)
	})
}

func TestSubackPacketEncodeDecode(t *testing.T) {
	packet := SubackPacket{
		ID: 100,
		ReturnCodes: []SubscribeReturnCode{
			SubscribeGrantedQoS1,
			SubscribeFailure,
			SubscribeGrantedQoS0,
		},
	}

	var buf bytes.Buffer
	_, err := packet.Encode(&buf)
	require.NoError(t, err)

	decoded, _, err := DecodePacket(buf.Bytes())
	require.NoError(t, err)

	got := decoded.(*SubackPacket)
	assert.Equal(t, packet.ID, got.ID)
	// Order is positional and must survive the round trip.
	assert.Equal(t, packet.ReturnCodes, got.ReturnCodes)
}

func TestSubackPacketDecodeErrors(t *testing.T) {
	t.Run("undefined return code", func(t *testing.T) {
		data := []byte{0x90, 0x03, 0x00, 0x01, 0x03}
		_, _, err := DecodePacket(data)
		assert.ErrorIs(t, err, ErrInvalidSubackReturnCode)
	})

	t.Run("no return codes", func(t *testing.T) {
		data := []byte{0x90, 0x02, 0x00, 0x01}
		_, _, err := DecodePacket(data)
		assert.ErrorIs(t, err, ErrNoReturnCodes)
	})
}

func TestSubscribeReturnCode(t *testing.T) {
	qos, ok := SubscribeGrantedQoS2.GrantedQoS()
	assert.True(t, ok)
	assert.Equal(t, QoSExactlyOnce, qos)

	_, ok = SubscribeFailure.GrantedQoS()
	assert.False(t, ok)

	assert.True(t, SubscribeFailure.Valid())
	assert.False(t, SubscribeReturnCode(0x03).Valid())
	assert.False(t, SubscribeReturnCode(0x81).Valid())
}

func TestUnsubscribePacketEncodeDecode(t *testing.T) {
	packet := UnsubscribePacket{
		ID:      9,
		Filters: []string{"sensors/#", "alerts/+"},
	}

	var buf bytes.Buffer
	_, err := packet.Encode(&buf)
	require.NoError(t, err)

	decoded, _, err := DecodePacket(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, &packet, decoded)
}

func TestUnsubscribePacketValidation(t *testing.T) {
	t.Run("zero packet id", func(t *testing.T) {
		p := UnsubscribePacket{Filters: []string{"a"}}
		assert.ErrorIs(t, p.Validate(), ErrPacketIDRequired)
	})

	t.Run("no filters", func(t *testing.T) {
		p := UnsubscribePacket{ID: 1}
		assert.ErrorIs(t, p.Validate(), ErrNoTopicFilters)
	})

	t.Run("invalid filter", func(t *testing.T) {
		p := UnsubscribePacket{ID: 1, Filters: []string{"a/#/b"}}
		assert.ErrorIs(t, p.Validate(), ErrInvalidTopicFilter)
	})
}
