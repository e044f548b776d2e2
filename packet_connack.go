package mqttv3

import (
	"errors"
	"io"
)

// ConnectReturnCode is the CONNACK return code in MQTT v3.
type ConnectReturnCode byte

const (
	// ConnectionAccepted: connection accepted.
	ConnectionAccepted ConnectReturnCode = 0
	// ConnectionRefusedProtocolVersion: unacceptable protocol version.
	ConnectionRefusedProtocolVersion ConnectReturnCode = 1
	// ConnectionRefusedIdentifierRejected: client identifier rejected.
	ConnectionRefusedIdentifierRejected ConnectReturnCode = 2
	// ConnectionRefusedServerUnavailable: server unavailable.
	ConnectionRefusedServerUnavailable ConnectReturnCode = 3
	// ConnectionRefusedBadCredentials: bad user name or password.
	ConnectionRefusedBadCredentials ConnectReturnCode = 4
	// ConnectionRefusedNotAuthorized: not authorized.
	ConnectionRefusedNotAuthorized ConnectReturnCode = 5
)

// String returns the string representation of the return code.
func (c ConnectReturnCode) String() string {
	switch c {
	case ConnectionAccepted:
		return "connection accepted"
	case ConnectionRefusedProtocolVersion:
		return "connection refused: unacceptable protocol version"
	case ConnectionRefusedIdentifierRejected:
		return "connection refused: identifier rejected"
	case ConnectionRefusedServerUnavailable:
		return "connection refused: server unavailable"
	case ConnectionRefusedBadCredentials:
		return "connection refused: bad user name or password"
	case ConnectionRefusedNotAuthorized:
		return "connection refused: not authorized"
	default:
		return "connection refused: unknown return code"
	}
}

// Valid returns true if the return code is defined by the MQTT specification.
func (c ConnectReturnCode) Valid() bool {
	return c <= ConnectionRefusedNotAuthorized
}

// CONNACK packet errors.
var (
	ErrInvalidReturnCode  = errors.New("invalid connect return code")
	ErrInvalidConnackFlag = errors.New("invalid connect acknowledge flags")
)

// ConnackPacket represents an MQTT CONNACK packet.
type ConnackPacket struct {
	// SessionPresent indicates the server holds session state for the
	// client from a previous connection.
	SessionPresent bool

	// ReturnCode is the connection result.
	ReturnCode ConnectReturnCode
}

// Type returns the packet type.
func (p *ConnackPacket) Type() PacketType {
	return PacketCONNACK
}

// Encode writes the packet to the writer.
func (p *ConnackPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	var ackFlags byte
	if p.SessionPresent {
		ackFlags = 0x01
	}

	header := FixedHeader{
		PacketType:      PacketCONNACK,
		RemainingLength: 2,
	}

	total, err := header.Encode(w)
	if err != nil {
		return total, err
	}

	n, err := w.Write([]byte{ackFlags, byte(p.ReturnCode)})
	return total + n, err
}

// Decode reads the packet from the reader.
func (p *ConnackPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketCONNACK {
		return 0, ErrInvalidPacketType
	}

	var buf [2]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil {
		return n, err
	}

	// Bits 7-1 of the acknowledge flags are reserved
	if buf[0]&0xFE != 0 {
		return n, ErrInvalidConnackFlag
	}

	p.SessionPresent = buf[0]&0x01 != 0
	p.ReturnCode = ConnectReturnCode(buf[1])

	if !p.ReturnCode.Valid() {
		return n, ErrInvalidReturnCode
	}

	// Session present must be 0 when the connection is refused
	if p.ReturnCode != ConnectionAccepted && p.SessionPresent {
		return n, ErrInvalidConnackFlag
	}

	return n, nil
}

// Validate validates the packet contents.
func (p *ConnackPacket) Validate() error {
	if !p.ReturnCode.Valid() {
		return ErrInvalidReturnCode
	}
	if p.ReturnCode != ConnectionAccepted && p.SessionPresent {
		return ErrInvalidConnackFlag
	}
	return nil
}
