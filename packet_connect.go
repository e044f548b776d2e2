package mqttv3

import (
	"errors"
	"io"
)

// ProtocolVersion selects the MQTT protocol revision spoken on the wire.
// The two v3 revisions differ in the protocol name and level carried by
// CONNECT: v3.1 uses "MQIsdp" level 3, v3.1.1 uses "MQTT" level 4.
type ProtocolVersion byte

const (
	// ProtocolV31 is MQTT v3.1.
	ProtocolV31 ProtocolVersion = 3
	// ProtocolV311 is MQTT v3.1.1.
	ProtocolV311 ProtocolVersion = 4
)

// Name returns the protocol name string carried in CONNECT.
func (v ProtocolVersion) Name() string {
	if v == ProtocolV31 {
		return "MQIsdp"
	}
	return "MQTT"
}

// Valid returns true if the version is a supported v3 revision.
func (v ProtocolVersion) Valid() bool {
	return v == ProtocolV31 || v == ProtocolV311
}

// String returns the string representation of the protocol version.
func (v ProtocolVersion) String() string {
	switch v {
	case ProtocolV31:
		return "MQTT/3.1"
	case ProtocolV311:
		return "MQTT/3.1.1"
	default:
		return "unknown"
	}
}

// Connect flag bit positions.
const (
	connectFlagCleanSession = 0x02
	connectFlagWillFlag     = 0x04
	connectFlagWillRetain   = 0x20
	connectFlagPasswordFlag = 0x40
	connectFlagUsernameFlag = 0x80
)

// The v3.1 client identifier limit. v3.1.1 servers may accept longer ids,
// so the check is opt-in via StrictClientID.
const compatClientIDMaxLen = 23

// CONNECT packet errors.
var (
	ErrInvalidProtocolName    = errors.New("invalid protocol name")
	ErrInvalidProtocolVersion = errors.New("unsupported protocol level")
	ErrInvalidConnectFlags    = errors.New("invalid connect flags")
	ErrClientIDTooLong        = errors.New("client ID too long")
	ErrInvalidClientID        = errors.New("client ID contains invalid characters")
	ErrClientIDRequired       = errors.New("client ID required with clean session false")
)

// Will describes the message the server publishes on the client's behalf
// when the connection terminates abnormally.
type Will struct {
	Topic   string
	Payload []byte
	QoS     QoS
	Retain  bool
}

// ConnectPacket represents an MQTT CONNECT packet.
type ConnectPacket struct {
	// Version is the protocol revision. The zero value encodes as v3.1.1.
	Version ProtocolVersion

	// ClientID is the client identifier.
	ClientID string

	// CleanSession indicates whether prior session state is discarded.
	CleanSession bool

	// KeepAlive is the keep alive interval in seconds.
	KeepAlive uint16

	// Will is the optional will message.
	Will *Will

	// Username for authentication.
	Username string

	// Password for authentication.
	Password []byte

	// StrictClientID enforces the v3.1 broker compatibility rules: at most
	// 23 bytes, alphanumeric only.
	StrictClientID bool
}

// Type returns the packet type.
func (p *ConnectPacket) Type() PacketType {
	return PacketCONNECT
}

// effectiveVersion maps the zero value to v3.1.1.
func (p *ConnectPacket) effectiveVersion() ProtocolVersion {
	if p.Version == 0 {
		return ProtocolV311
	}
	return p.Version
}

// connectFlags returns the connect flags byte.
func (p *ConnectPacket) connectFlags() byte {
	var flags byte

	if p.CleanSession {
		flags |= connectFlagCleanSession
	}

	if p.Will != nil {
		flags |= connectFlagWillFlag
		flags |= (byte(p.Will.QoS) & 0x03) << 3
		if p.Will.Retain {
			flags |= connectFlagWillRetain
		}
	}

	if len(p.Password) > 0 {
		flags |= connectFlagPasswordFlag
	}

	if p.Username != "" {
		flags |= connectFlagUsernameFlag
	}

	return flags
}

// setConnectFlags parses the connect flags byte. The will fields are filled
// in later from the payload.
func (p *ConnectPacket) setConnectFlags(flags byte) (willFlag, usernameFlag, passwordFlag bool, err error) {
	// Reserved bit must be 0
	if flags&0x01 != 0 {
		return false, false, false, ErrInvalidConnectFlags
	}

	p.CleanSession = flags&connectFlagCleanSession != 0

	willFlag = flags&connectFlagWillFlag != 0
	willQoS := QoS((flags >> 3) & 0x03)
	willRetain := flags&connectFlagWillRetain != 0

	if !willFlag && (willQoS != 0 || willRetain) {
		return false, false, false, ErrInvalidConnectFlags
	}

	if !willQoS.Valid() {
		return false, false, false, ErrInvalidConnectFlags
	}

	if willFlag {
		p.Will = &Will{QoS: willQoS, Retain: willRetain}
	}

	usernameFlag = flags&connectFlagUsernameFlag != 0
	passwordFlag = flags&connectFlagPasswordFlag != 0

	// Password requires username in v3
	if passwordFlag && !usernameFlag {
		return false, false, false, ErrInvalidConnectFlags
	}

	return willFlag, usernameFlag, passwordFlag, nil
}

// Encode writes the packet to the writer.
func (p *ConnectPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	version := p.effectiveVersion()

	buf := getBuffer()
	defer putBuffer(buf)

	// Protocol name and level
	if _, err := encodeString(buf, version.Name()); err != nil {
		return 0, err
	}
	if _, err := buf.Write([]byte{byte(version)}); err != nil {
		return 0, err
	}

	// Connect flags and keep alive
	if _, err := buf.Write([]byte{p.connectFlags()}); err != nil {
		return 0, err
	}
	if _, err := encodeUint16(buf, p.KeepAlive); err != nil {
		return 0, err
	}

	// Payload: client id, will topic/message, username, password
	if _, err := encodeString(buf, p.ClientID); err != nil {
		return 0, err
	}

	if p.Will != nil {
		if _, err := encodeString(buf, p.Will.Topic); err != nil {
			return 0, err
		}
		if _, err := encodeBinary(buf, p.Will.Payload); err != nil {
			return 0, err
		}
	}

	if p.Username != "" {
		if _, err := encodeString(buf, p.Username); err != nil {
			return 0, err
		}
	}

	if len(p.Password) > 0 {
		if _, err := encodeBinary(buf, p.Password); err != nil {
			return 0, err
		}
	}

	header := FixedHeader{
		PacketType:      PacketCONNECT,
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
func (p *ConnectPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketCONNECT {
		return 0, ErrInvalidPacketType
	}

	var totalRead int

	// Protocol name and level
	name, n, err := decodeString(r)
	totalRead += n
	if err != nil {
		return totalRead, err
	}

	var levelBuf [1]byte
	n, err = io.ReadFull(r, levelBuf[:])
	totalRead += n
	if err != nil {
		return totalRead, err
	}
	level := ProtocolVersion(levelBuf[0])

	switch name {
	case ProtocolV311.Name():
		if level != ProtocolV311 {
			return totalRead, ErrInvalidProtocolVersion
		}
	case ProtocolV31.Name():
		if level != ProtocolV31 {
			return totalRead, ErrInvalidProtocolVersion
		}
	default:
		return totalRead, ErrInvalidProtocolName
	}
	p.Version = level

	// Connect flags
	var flagsBuf [1]byte
	n, err = io.ReadFull(r, flagsBuf[:])
	totalRead += n
	if err != nil {
		return totalRead, err
	}

	willFlag, usernameFlag, passwordFlag, err := p.setConnectFlags(flagsBuf[0])
	if err != nil {
		return totalRead, err
	}

	// Keep alive
	p.KeepAlive, n, err = decodeUint16(r)
	totalRead += n
	if err != nil {
		return totalRead, err
	}

	// Payload
	p.ClientID, n, err = decodeString(r)
	totalRead += n
	if err != nil {
		return totalRead, err
	}

	if willFlag {
		p.Will.Topic, n, err = decodeString(r)
		totalRead += n
		if err != nil {
			return totalRead, err
		}

		p.Will.Payload, n, err = decodeBinary(r)
		totalRead += n
		if err != nil {
			return totalRead, err
		}
	}

	if usernameFlag {
		p.Username, n, err = decodeString(r)
		totalRead += n
		if err != nil {
			return totalRead, err
		}
	}

	if passwordFlag {
		p.Password, n, err = decodeBinary(r)
		totalRead += n
		if err != nil {
			return totalRead, err
		}
	}

	return totalRead, nil
}

// Validate validates the packet contents.
func (p *ConnectPacket) Validate() error {
	if p.Version != 0 && !p.Version.Valid() {
		return ErrInvalidProtocolVersion
	}

	if p.ClientID == "" && !p.CleanSession {
		return ErrClientIDRequired
	}

	if p.StrictClientID {
		if len(p.ClientID) > compatClientIDMaxLen {
			return ErrClientIDTooLong
		}
		for i := 0; i < len(p.ClientID); i++ {
			c := p.ClientID[i]
			if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
				return ErrInvalidClientID
			}
		}
	}

	if p.Will != nil {
		if !p.Will.QoS.Valid() {
			return ErrInvalidQoS
		}
		if err := ValidateTopicName(p.Will.Topic); err != nil {
			return err
		}
	}

	if len(p.Password) > 0 && p.Username == "" {
		return ErrInvalidConnectFlags
	}

	return nil
}
