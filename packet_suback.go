package mqttv3

import (
	"errors"
	"io"
)

// SubscribeReturnCode is the per-filter result carried by SUBACK: the
// granted QoS level, or 0x80 for failure.
type SubscribeReturnCode byte

const (
	// SubscribeGrantedQoS0: subscription accepted at QoS 0.
	SubscribeGrantedQoS0 SubscribeReturnCode = 0x00
	// SubscribeGrantedQoS1: subscription accepted at QoS 1.
	SubscribeGrantedQoS1 SubscribeReturnCode = 0x01
	// SubscribeGrantedQoS2: subscription accepted at QoS 2.
	SubscribeGrantedQoS2 SubscribeReturnCode = 0x02
	// SubscribeFailure: subscription refused.
	SubscribeFailure SubscribeReturnCode = 0x80
)

// Valid returns true if the return code is defined by the MQTT specification.
func (c SubscribeReturnCode) Valid() bool {
	return c <= SubscribeGrantedQoS2 || c == SubscribeFailure
}

// GrantedQoS returns the granted QoS level and whether the subscription
// succeeded.
func (c SubscribeReturnCode) GrantedQoS() (QoS, bool) {
	if c == SubscribeFailure {
		return 0, false
	}
	return QoS(c), true
}

// SUBACK packet errors.
var (
	ErrNoReturnCodes           = errors.New("suback packet must contain at least one return code")
	ErrInvalidSubackReturnCode = errors.New("invalid suback return code")
)

// SubackPacket represents an MQTT SUBACK packet. Its return codes match
// the filters of the acknowledged SUBSCRIBE positionally, in order.
type SubackPacket struct {
	// ID is the packet identifier echoed from the SUBSCRIBE.
	ID uint16

	// ReturnCodes holds one result per requested filter, in request order.
	ReturnCodes []SubscribeReturnCode
}

// Type returns the packet type.
func (p *SubackPacket) Type() PacketType {
	return PacketSUBACK
}

// PacketID returns the packet identifier.
func (p *SubackPacket) PacketID() uint16 { return p.ID }

// SetPacketID sets the packet identifier.
func (p *SubackPacket) SetPacketID(id uint16) { p.ID = id }

// Encode writes the packet to the writer.
func (p *SubackPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	header := FixedHeader{
		PacketType:      PacketSUBACK,
		RemainingLength: uint32(2 + len(p.ReturnCodes)),
	}

	total, err := header.Encode(w)
	if err != nil {
		return total, err
	}

	n, err := encodeUint16(w, p.ID)
	total += n
	if err != nil {
		return total, err
	}

	codes := make([]byte, len(p.ReturnCodes))
	for i, code := range p.ReturnCodes {
		codes[i] = byte(code)
	}

	n, err = w.Write(codes)
	return total + n, err
}

// Decode reads the packet from the reader.
func (p *SubackPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketSUBACK {
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

	if header.RemainingLength < 3 {
		return totalRead, ErrNoReturnCodes
	}

	codes := make([]byte, header.RemainingLength-2)
	n, err = io.ReadFull(r, codes)
	totalRead += n
	if err != nil {
		return totalRead, err
	}

	p.ReturnCodes = make([]SubscribeReturnCode, len(codes))
	for i, code := range codes {
		rc := SubscribeReturnCode(code)
		if !rc.Valid() {
			return totalRead, ErrInvalidSubackReturnCode
		}
		p.ReturnCodes[i] = rc
	}

	return totalRead, nil
}

// Validate validates the packet contents.
func (p *SubackPacket) Validate() error {
	if p.ID == 0 {
		return ErrPacketIDRequired
	}

	if len(p.ReturnCodes) == 0 {
		return ErrNoReturnCodes
	}

	for _, code := range p.ReturnCodes {
		if !code.Valid() {
			return ErrInvalidSubackReturnCode
		}
	}

	return nil
}
