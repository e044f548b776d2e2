package mqttv3

import "io"

// PINGREQ and PINGRESP have no variable header and no payload.

// encodeEmpty encodes a packet consisting of a fixed header only.
func encodeEmpty(w io.Writer, packetType PacketType) (int, error) {
	header := FixedHeader{PacketType: packetType}
	return header.Encode(w)
}

// decodeEmpty validates the body of a packet that must be empty.
func decodeEmpty(header FixedHeader) (int, error) {
	if header.RemainingLength != 0 {
		return 0, ErrPayloadLengthMismatch
	}
	return 0, nil
}

// PingreqPacket represents an MQTT PINGREQ packet.
type PingreqPacket struct{}

// Type returns the packet type.
func (p *PingreqPacket) Type() PacketType { return PacketPINGREQ }

// Encode writes the packet to the writer.
func (p *PingreqPacket) Encode(w io.Writer) (int, error) {
	return encodeEmpty(w, PacketPINGREQ)
}

// Decode reads the packet from the reader.
func (p *PingreqPacket) Decode(_ io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketPINGREQ {
		return 0, ErrInvalidPacketType
	}
	return decodeEmpty(header)
}

// Validate validates the packet contents.
func (p *PingreqPacket) Validate() error { return nil }

// PingrespPacket represents an MQTT PINGRESP packet.
type PingrespPacket struct{}

// Type returns the packet type.
func (p *PingrespPacket) Type() PacketType { return PacketPINGRESP }

// Encode writes the packet to the writer.
func (p *PingrespPacket) Encode(w io.Writer) (int, error) {
	return encodeEmpty(w, PacketPINGRESP)
}

// Decode reads the packet from the reader.
func (p *PingrespPacket) Decode(_ io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketPINGRESP {
		return 0, ErrInvalidPacketType
	}
	return decodeEmpty(header)
}

// Validate validates the packet contents.
func (p *PingrespPacket) Validate() error { return nil }
