package mqttv3

import (
	"errors"
	"io"
)

// UNSUBSCRIBE packet errors.
var (
	ErrNoTopicFilters = errors.New("unsubscribe packet must contain at least one topic filter")
)

// UnsubscribePacket represents an MQTT UNSUBSCRIBE packet.
type UnsubscribePacket struct {
	// ID is the packet identifier.
	ID uint16

	// Filters is the list of topic filters to remove.
	Filters []string
}

// Type returns the packet type.
func (p *UnsubscribePacket) Type() PacketType {
	return PacketUNSUBSCRIBE
}

// PacketID returns the packet identifier.
func (p *UnsubscribePacket) PacketID() uint16 { return p.ID }

// SetPacketID sets the packet identifier.
func (p *UnsubscribePacket) SetPacketID(id uint16) { p.ID = id }

// Encode writes the packet to the writer.
func (p *UnsubscribePacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	buf := getBuffer()
	defer putBuffer(buf)

	if _, err := encodeUint16(buf, p.ID); err != nil {
		return 0, err
	}

	for _, filter := range p.Filters {
		if _, err := encodeString(buf, filter); err != nil {
			return 0, err
		}
	}

	header := FixedHeader{
		PacketType:      PacketUNSUBSCRIBE,
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
func (p *UnsubscribePacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketUNSUBSCRIBE {
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

		p.Filters = append(p.Filters, filter)
	}

	if len(p.Filters) == 0 {
		return totalRead, ErrNoTopicFilters
	}

	return totalRead, nil
}

// Validate validates the packet contents.
func (p *UnsubscribePacket) Validate() error {
	if p.ID == 0 {
		return ErrPacketIDRequired
	}

	if len(p.Filters) == 0 {
		return ErrNoTopicFilters
	}

	for _, filter := range p.Filters {
		if err := ValidateTopicFilter(filter); err != nil {
			return err
		}
	}

	return nil
}
