package mqttv3

import "io"

// DisconnectPacket represents an MQTT DISCONNECT packet. In v3 it carries
// no reason code: it only announces a clean shutdown.
type DisconnectPacket struct{}

// Type returns the packet type.
func (p *DisconnectPacket) Type() PacketType { return PacketDISCONNECT }

// Encode writes the packet to the writer.
func (p *DisconnectPacket) Encode(w io.Writer) (int, error) {
	return encodeEmpty(w, PacketDISCONNECT)
}

// Decode reads the packet from the reader.
func (p *DisconnectPacket) Decode(_ io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketDISCONNECT {
		return 0, ErrInvalidPacketType
	}
	return decodeEmpty(header)
}

// Validate validates the packet contents.
func (p *DisconnectPacket) Validate() error { return nil }
