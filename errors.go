package mqttv3

import (
	"errors"
	"fmt"
)

// ErrIncompletePacket signals that the input does not yet hold a complete
// packet. It is a control signal, not a protocol failure: retry the decode
// once more bytes have arrived.
var ErrIncompletePacket = errors.New("incomplete packet")

// MalformedPacketError reports input that violates the wire format. MQTT
// mandates closing the connection on malformed input, so the session treats
// every malformed packet as fatal.
type MalformedPacketError struct {
	PacketType PacketType
	Err        error
}

// Error implements the error interface.
func (e *MalformedPacketError) Error() string {
	return fmt.Sprintf("malformed %s packet: %v", e.PacketType, e.Err)
}

// Unwrap returns the underlying decode error.
func (e *MalformedPacketError) Unwrap() error {
	return e.Err
}

// ProtocolViolationError reports a packet that is valid on the wire but
// illegal for the current session state, for example a duplicate CONNECT or
// an acknowledgment for an identifier that is not in flight. Violations are
// fatal: the session transitions to Disconnected.
type ProtocolViolationError struct {
	State      SessionState
	PacketType PacketType
	PacketID   uint16
	Reason     string
}

// Error implements the error interface.
func (e *ProtocolViolationError) Error() string {
	if e.PacketID != 0 {
		return fmt.Sprintf("protocol violation in state %s: %s (packet %s, id %d)",
			e.State, e.Reason, e.PacketType, e.PacketID)
	}
	return fmt.Sprintf("protocol violation in state %s: %s (packet %s)",
		e.State, e.Reason, e.PacketType)
}

// RetryExhaustedError reports an in-flight exchange whose configured retry
// cap has been reached without a terminal acknowledgment. It is recoverable:
// the session stops resending the exchange but stays connected, and the
// caller decides whether to abandon it or close the connection.
type RetryExhaustedError struct {
	PacketType PacketType
	PacketID   uint16
	Attempts   int
}

// Error implements the error interface.
func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted for %s id %d after %d attempts",
		e.PacketType, e.PacketID, e.Attempts)
}

// ConnectionRefusedError reports a CONNACK carrying a non-zero return code.
type ConnectionRefusedError struct {
	Code ConnectReturnCode
}

// Error implements the error interface.
func (e *ConnectionRefusedError) Error() string {
	return fmt.Sprintf("connection refused: %s", e.Code)
}
