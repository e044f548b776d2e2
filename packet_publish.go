package mqttv3

import (
	"errors"
	"io"
)

// PUBLISH packet errors.
var (
	ErrInvalidQoS       = errors.New("invalid QoS level")
	ErrPacketIDRequired = errors.New("packet identifier required for QoS > 0")
	ErrInvalidDupFlag   = errors.New("DUP flag must be zero for QoS 0")
)

// PublishPacket represents an MQTT PUBLISH packet.
type PublishPacket struct {
	// Topic is the topic name.
	Topic string

	// Payload is the application message. It is carried raw: its length is
	// the remaining length minus the variable header, never prefixed.
	Payload []byte

	// QoS is the Quality of Service level (0, 1, or 2).
	QoS QoS

	// Retain indicates if the message should be retained.
	Retain bool

	// DUP indicates if this is a retransmission.
	DUP bool

	// ID is the packet identifier (only for QoS > 0).
	ID uint16
}

// Type returns the packet type.
func (p *PublishPacket) Type() PacketType {
	return PacketPUBLISH
}

// PacketID returns the packet identifier.
func (p *PublishPacket) PacketID() uint16 {
	return p.ID
}

// SetPacketID sets the packet identifier.
func (p *PublishPacket) SetPacketID(id uint16) {
	p.ID = id
}

// flags returns the fixed header flags.
func (p *PublishPacket) flags() byte {
	var flags byte
	if p.DUP {
		flags |= 0x08
	}
	flags |= (byte(p.QoS) & 0x03) << 1
	if p.Retain {
		flags |= 0x01
	}
	return flags
}

// setFlags parses the fixed header flags.
func (p *PublishPacket) setFlags(flags byte) {
	p.DUP = flags&0x08 != 0
	p.QoS = QoS((flags >> 1) & 0x03)
	p.Retain = flags&0x01 != 0
}

// Encode writes the packet to the writer.
func (p *PublishPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	buf := getBuffer()
	defer putBuffer(buf)

	// Topic Name
	if _, err := encodeString(buf, p.Topic); err != nil {
		return 0, err
	}

	// Packet Identifier (only for QoS > 0)
	if p.QoS > QoSAtMostOnce {
		if _, err := encodeUint16(buf, p.ID); err != nil {
			return 0, err
		}
	}

	// Payload
	if _, err := buf.Write(p.Payload); err != nil {
		return 0, err
	}

	header := FixedHeader{
		PacketType:      PacketPUBLISH,
		Flags:           p.flags(),
		RemainingLength: uint32(len(buf.Bytes())),
	}

	total, err := header.Encode(w)
	if err != nil {
		return total, err
	}

	n, err := w.Write(buf.Bytes())
	return total + n, err
}

// Decode reads the packet from the reader.
func (p *PublishPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketPUBLISH {
		return 0, ErrInvalidPacketType
	}

	p.setFlags(header.Flags)

	if !p.QoS.Valid() {
		return 0, ErrInvalidQoS
	}

	if p.QoS == QoSAtMostOnce && p.DUP {
		return 0, ErrInvalidDupFlag
	}

	var totalRead int

	// Topic Name
	var n int
	var err error
	p.Topic, n, err = decodeString(r)
	totalRead += n
	if err != nil {
		return totalRead, err
	}

	if err := ValidateTopicName(p.Topic); err != nil {
		return totalRead, err
	}

	// Packet Identifier (only for QoS > 0)
	if p.QoS > QoSAtMostOnce {
		p.ID, n, err = decodeUint16(r)
		totalRead += n
		if err != nil {
			return totalRead, err
		}
		if p.ID == 0 {
			return totalRead, ErrPacketIDRequired
		}
	}

	// Payload: the rest of the remaining length, raw
	payloadLen := int(header.RemainingLength) - totalRead
	if payloadLen < 0 {
		return totalRead, ErrPayloadLengthMismatch
	}
	if payloadLen > 0 {
		p.Payload = make([]byte, payloadLen)
		n, err = io.ReadFull(r, p.Payload)
		totalRead += n
		if err != nil {
			return totalRead, err
		}
	}

	return totalRead, nil
}

// Validate validates the packet contents.
func (p *PublishPacket) Validate() error {
	if !p.QoS.Valid() {
		return ErrInvalidQoS
	}

	if p.QoS == QoSAtMostOnce && p.DUP {
		return ErrInvalidDupFlag
	}

	if p.QoS > QoSAtMostOnce && p.ID == 0 {
		return ErrPacketIDRequired
	}

	return ValidateTopicName(p.Topic)
}

// ToMessage converts the PUBLISH packet to a Message.
func (p *PublishPacket) ToMessage() *Message {
	return &Message{
		Topic:     p.Topic,
		Payload:   p.Payload,
		QoS:       p.QoS,
		Retain:    p.Retain,
		Duplicate: p.DUP,
	}
}

// FromMessage populates the PUBLISH packet from a Message.
func (p *PublishPacket) FromMessage(m *Message) {
	p.Topic = m.Topic
	p.Payload = m.Payload
	p.QoS = m.QoS
	p.Retain = m.Retain
	p.DUP = m.Duplicate
}
