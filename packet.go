package mqttv3

import "io"

// Packet is the interface that all MQTT control packets implement.
type Packet interface {
	// Type returns the packet type.
	Type() PacketType

	// Encode writes the packet to the writer.
	// Returns the number of bytes written.
	Encode(w io.Writer) (int, error)

	// Decode reads the packet from the reader.
	// The fixed header should already be decoded.
	// Returns the number of bytes read.
	Decode(r io.Reader, header FixedHeader) (int, error)

	// Validate validates the packet contents.
	Validate() error
}

// PacketWithID is implemented by packets that carry a packet identifier.
type PacketWithID interface {
	Packet

	// PacketID returns the packet identifier.
	PacketID() uint16

	// SetPacketID sets the packet identifier.
	SetPacketID(id uint16)
}

// Message represents an MQTT application message as surfaced to and from
// the application layer.
type Message struct {
	// Topic is the topic name to publish to or received from.
	Topic string

	// Payload is the application message payload.
	Payload []byte

	// QoS is the Quality of Service level (0, 1, or 2).
	QoS QoS

	// Retain indicates if this is a retained message.
	Retain bool

	// Duplicate indicates the message arrived in a PUBLISH marked DUP,
	// meaning it may be a re-delivery of an earlier attempt.
	Duplicate bool
}

// Clone creates a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}

	clone := &Message{
		Topic:     m.Topic,
		QoS:       m.QoS,
		Retain:    m.Retain,
		Duplicate: m.Duplicate,
	}

	if m.Payload != nil {
		clone.Payload = make([]byte, len(m.Payload))
		copy(clone.Payload, m.Payload)
	}

	return clone
}
