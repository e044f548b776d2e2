package mqttv3

import "io"

// In MQTT v3 the four publish acknowledgments (PUBACK, PUBREC, PUBREL,
// PUBCOMP) and UNSUBACK share the same shape: a 2-byte packet identifier
// and nothing else.

// encodeAck encodes an acknowledgment packet with the given packet type and flags.
func encodeAck(w io.Writer, packetType PacketType, flags byte, packetID uint16) (int, error) {
	if packetID == 0 {
		return 0, ErrPacketIDRequired
	}

	header := FixedHeader{
		PacketType:      packetType,
		Flags:           flags,
		RemainingLength: 2,
	}

	total, err := header.Encode(w)
	if err != nil {
		return total, err
	}

	n, err := w.Write([]byte{byte(packetID >> 8), byte(packetID)})
	return total + n, err
}

// decodeAck decodes an acknowledgment packet body.
func decodeAck(r io.Reader, header FixedHeader) (uint16, int, error) {
	if header.RemainingLength != 2 {
		return 0, 0, ErrPayloadLengthMismatch
	}

	id, n, err := decodeUint16(r)
	if err != nil {
		return 0, n, err
	}

	if id == 0 {
		return 0, n, ErrPacketIDRequired
	}

	return id, n, nil
}
