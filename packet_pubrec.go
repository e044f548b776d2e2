//nolint:dupl // MQTT requires separate packet types with the same structure
package mqttv3

import "io"

// PubrecPacket represents an MQTT PUBREC packet, the first acknowledgment
// of a QoS 2 PUBLISH.
type PubrecPacket struct {
	ID uint16
}

// Type returns the packet type.
func (p *PubrecPacket) Type() PacketType { return PacketPUBREC }

// PacketID returns the packet identifier.
func (p *PubrecPacket) PacketID() uint16 { return p.ID }

// SetPacketID sets the packet identifier.
func (p *PubrecPacket) SetPacketID(id uint16) { p.ID = id }

// Encode writes the packet to the writer.
func (p *PubrecPacket) Encode(w io.Writer) (int, error) {
	return encodeAck(w, PacketPUBREC, 0x00, p.ID)
}

// Decode reads the packet from the reader.
func (p *PubrecPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketPUBREC {
		return 0, ErrInvalidPacketType
	}
	id, n, err := decodeAck(r, header)
	p.ID = id
	return n, err
}

// Validate validates the packet contents.
func (p *PubrecPacket) Validate() error {
	if p.ID == 0 {
		return ErrPacketIDRequired
	}
	return nil
}
