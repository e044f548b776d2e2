package mqttv3

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePackets(t *testing.T, packets ...Packet) []byte {
	t.Helper()

	var buf bytes.Buffer
	for _, p := range packets {
		_, err := p.Encode(&buf)
		require.NoError(t, err)
	}
	return buf.Bytes()
}

func drainAssembler(t *testing.T, a *FrameAssembler) []Packet {
	t.Helper()

	var packets []Packet
	for {
		p, err := a.Next()
		require.NoError(t, err)
		if p == nil {
			return packets
		}
		packets = append(packets, p)
	}
}

func TestFrameAssemblerSinglePacket(t *testing.T) {
	var a FrameAssembler
	a.Feed(encodePackets(t, &PingreqPacket{}))

	packets := drainAssembler(t, &a)
	require.Len(t, packets, 1)
	assert.Equal(t, PacketPINGREQ, packets[0].Type())
	assert.Zero(t, a.Buffered())
}

func TestFrameAssemblerCoalescedPackets(t *testing.T) {
	var a FrameAssembler
	a.Feed(encodePackets(t,
		&PublishPacket{Topic: "a/b", Payload: []byte("one"), QoS: QoSAtLeastOnce, ID: 1},
		&PubackPacket{ID: 2},
		&PingrespPacket{},
	))

	packets := drainAssembler(t, &a)
	require.Len(t, packets, 3)
	assert.Equal(t, PacketPUBLISH, packets[0].Type())
	assert.Equal(t, PacketPUBACK, packets[1].Type())
	assert.Equal(t, PacketPINGRESP, packets[2].Type())
}

// Feeding the stream split at every possible byte boundary must produce the
// same packets as feeding it whole.
func TestFrameAssemblerArbitrarySplit(t *testing.T) {
	data := encodePackets(t,
		&PublishPacket{Topic: "sensors/temp", Payload: []byte("21.5"), QoS: QoSExactlyOnce, ID: 9},
		&SubscribePacket{ID: 3, Subscriptions: []Subscription{{Filter: "a/+", QoS: QoSAtLeastOnce}}},
		&DisconnectPacket{},
	)

	for split := 0; split <= len(data); split++ {
		var a FrameAssembler
		var packets []Packet

		a.Feed(data[:split])
		packets = append(packets, drainAssembler(t, &a)...)
		a.Feed(data[split:])
		packets = append(packets, drainAssembler(t, &a)...)

		require.Len(t, packets, 3, "split at %d", split)
		assert.Equal(t, PacketPUBLISH, packets[0].Type())
		assert.Equal(t, PacketSUBSCRIBE, packets[1].Type())
		assert.Equal(t, PacketDISCONNECT, packets[2].Type())
		assert.Zero(t, a.Buffered())
	}
}

func TestFrameAssemblerByteAtATime(t *testing.T) {
	data := encodePackets(t, &PublishPacket{Topic: "a", Payload: []byte("x"), QoS: QoSAtLeastOnce, ID: 1})

	var a FrameAssembler
	for i, b := range data {
		a.Feed([]byte{b})
		p, err := a.Next()
		require.NoError(t, err)

		if i < len(data)-1 {
			assert.Nil(t, p, "byte %d", i)
		} else {
			require.NotNil(t, p)
			assert.Equal(t, PacketPUBLISH, p.Type())
		}
	}
}

func TestFrameAssemblerMalformed(t *testing.T) {
	var a FrameAssembler
	a.Feed([]byte{0x00, 0x00})

	p, err := a.Next()
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrUnknownPacketType)
}

func TestFrameAssemblerReset(t *testing.T) {
	var a FrameAssembler
	a.Feed([]byte{0x30})
	assert.Equal(t, 1, a.Buffered())

	a.Reset()
	assert.Zero(t, a.Buffered())

	p, err := a.Next()
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestFrameAssemblerCompaction(t *testing.T) {
	// Many small packets followed by a partial one keeps the consumed
	// prefix bounded.
	var a FrameAssembler

	whole := encodePackets(t, &PubackPacket{ID: 1})
	for i := 0; i < 64; i++ {
		a.Feed(whole)
	}
	packets := drainAssembler(t, &a)
	assert.Len(t, packets, 64)

	a.Feed(whole[:1])
	assert.Equal(t, 1, a.Buffered())

	a.Feed(whole[1:])
	packets = drainAssembler(t, &a)
	assert.Len(t, packets, 1)
	assert.Zero(t, a.Buffered())
}
