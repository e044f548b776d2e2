//nolint:dupl // MQTT requires separate packet types with the same structure
package mqttv3

import "io"

// UnsubackPacket represents an MQTT UNSUBACK packet.
type UnsubackPacket struct {
	ID uint16
}

// Type returns the packet type.
func (p *UnsubackPacket) Type() PacketType { return PacketUNSUBACK }

// PacketID returns the packet identifier.
func (p *UnsubackPacket) PacketID() uint16 { return p.ID }

// SetPacketID sets the packet identifier.
func (p *UnsubackPacket) SetPacketID(id uint16) { p.ID = id }

// Encode writes the packet to the writer.
func (p *UnsubackPacket) Encode(w io.Writer) (int, error) {
	return encodeAck(w, PacketUNSUBACK, 0x00, p.ID)
}

// Decode reads the packet from the reader.
func (p *UnsubackPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketUNSUBACK {
		return 0, ErrInvalidPacketType
	}
	id, n, err := decodeAck(r, header)
	p.ID = id
	return n, err
}

// Validate validates the packet contents.
func (p *UnsubackPacket) Validate() error {
	if p.ID == 0 {
		return ErrPacketIDRequired
	}
	return nil
}
