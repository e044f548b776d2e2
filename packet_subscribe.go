package mqttv3

import (
	"errors"
	"io"
)

// SUBSCRIBE packet errors.
var (
	ErrNoSubscriptions = errors.New("subscribe packet must contain at least one topic filter")
)

// Subscription pairs a topic filter with the QoS level requested for it.
type Subscription struct {
	Filter string
	QoS    QoS
}

// SubscribePacket represents an MQTT SUBSCRIBE packet.
type SubscribePacket struct {
	// ID is the packet identifier.
	ID uint16

	// Subscriptions is the ordered list of requested topic filters. The
	// SUBACK return codes match this order positionally.
	Subscriptions []Subscription
}

// Type returns the packet type.
func (p *SubscribePacket) Type() PacketType {
	return PacketSUBSCRIBE
}

// PacketID returns the packet identifier.
func (p *SubscribePacket) PacketID() uint16 { return p.ID }

// SetPacketID sets the packet identifier.
func (p *SubscribePacket) SetPacketID(id uint16) { p.ID = id }

// Encode writes the packet to the writer.
func (p *SubscribePacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	buf := getBuffer()
	defer putBuffer(buf)

	if _, err := encodeUint16(buf, p.ID); err != nil {
		return 0, err
	}

	for _, sub := range p.Subscriptions {
		if _, err := encodeString(buf, sub.Filter); err != nil {
			return 0, err
		}
		if _, err := buf.Write([]byte{byte(sub.QoS)}); err != nil {
			return 0, err
		}
	}

	header := FixedHeader{
		PacketType:      PacketSUBSCRIBE,
		Flags:           0x02,
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
func (p *SubscribePacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketSUBSCRIBE {
		return 0, ErrInvalidPacketType
	}

	var totalRead int

	id, n, err := decodeUint16(r)
	totalRead += n
	if err != nil {
		return totalRead, err
	}
	if id == 0 {
		return totalRead, ErrPacketIDRequired
	}
	p.ID = id

	for totalRead < int(header.RemainingLength) {
		filter, n, err := decodeString(r)
		totalRead += n
		if err != nil {
			return totalRead, err
		}

		if err := ValidateTopicFilter(filter); err != nil {
			return totalRead, err
		}

		var qosBuf [1]byte
		n, err = io.ReadFull(r, qosBuf[:])
		totalRead += n
		if err != nil {
			return totalRead, err
		}

		qos := QoS(qosBuf[0])
		if !qos.Valid() {
			return totalRead, ErrInvalidQoS
		}

		p.Subscriptions = append(p.Subscriptions, Subscription{Filter: filter, QoS: qos})
	}

	if len(p.Subscriptions) == 0 {
		return totalRead, ErrNoSubscriptions
	}

	return totalRead, nil
}

// Validate validates the packet contents.
func (p *SubscribePacket) Validate() error {
	if p.ID == 0 {
		return ErrPacketIDRequired
	}

	if len(p.Subscriptions) == 0 {
		return ErrNoSubscriptions
	}

	for _, sub := range p.Subscriptions {
		if !sub.QoS.Valid() {
			return ErrInvalidQoS
		}
		if err := ValidateTopicFilter(sub.Filter); err != nil {
			return err
		}
	}

	return nil
}
