//nolint:dupl // MQTT requires separate packet types with the same structure
package mqttv3

import "io"

// PubcompPacket represents an MQTT PUBCOMP packet, the terminal
// acknowledgment of a QoS 2 exchange.
type PubcompPacket struct {
	ID uint16
}

// Type returns the packet type.
func (p *PubcompPacket) Type() PacketType { return PacketPUBCOMP }

// PacketID returns the packet identifier.
func (p *PubcompPacket) PacketID() uint16 { return p.ID }

// SetPacketID sets the packet identifier.
func (p *PubcompPacket) SetPacketID(id uint16) { p.ID = id }

// Encode writes the packet to the writer.
func (p *PubcompPacket) Encode(w io.Writer) (int, error) {
	return encodeAck(w, PacketPUBCOMP, 0x00, p.ID)
}

// Decode reads the packet from the reader.
func (p *PubcompPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketPUBCOMP {
		return 0, ErrInvalidPacketType
	}
	id, n, err := decodeAck(r, header)
	p.ID = id
	return n, err
}

// Validate validates the packet contents.
func (p *PubcompPacket) Validate() error {
	if p.ID == 0 {
		return ErrPacketIDRequired
	}
	return nil
}
