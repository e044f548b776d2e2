package mqttv3

import "io"

// PubrelPacket represents an MQTT PUBREL packet, the release step of the
// QoS 2 flow. Its fixed header flags are 0x02 rather than zero.
type PubrelPacket struct {
	ID uint16
}

// Type returns the packet type.
func (p *PubrelPacket) Type() PacketType { return PacketPUBREL }

// PacketID returns the packet identifier.
func (p *PubrelPacket) PacketID() uint16 { return p.ID }

// SetPacketID sets the packet identifier.
func (p *PubrelPacket) SetPacketID(id uint16) { p.ID = id }

// Encode writes the packet to the writer.
func (p *PubrelPacket) Encode(w io.Writer) (int, error) {
	return encodeAck(w, PacketPUBREL, 0x02, p.ID)
}

// Decode reads the packet from the reader.
func (p *PubrelPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketPUBREL {
		return 0, ErrInvalidPacketType
	}
	id, n, err := decodeAck(r, header)
	p.ID = id
	return n, err
}

// Validate validates the packet contents.
func (p *PubrelPacket) Validate() error {
	if p.ID == 0 {
		return ErrPacketIDRequired
	}
	return nil
}
