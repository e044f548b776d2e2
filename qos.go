package mqttv3

// QoS is an MQTT Quality of Service level. The numeric order reflects the
// strength of the delivery guarantee and is never used for packet layout.
type QoS byte

const (
	// QoSAtMostOnce delivers the message at most once (fire and forget).
	QoSAtMostOnce QoS = 0
	// QoSAtLeastOnce delivers the message at least once (PUBACK flow).
	QoSAtLeastOnce QoS = 1
	// QoSExactlyOnce delivers the message exactly once (PUBREC/PUBREL/PUBCOMP flow).
	QoSExactlyOnce QoS = 2
)

// String returns the string representation of the QoS level.
func (q QoS) String() string {
	switch q {
	case QoSAtMostOnce:
		return "at most once"
	case QoSAtLeastOnce:
		return "at least once"
	case QoSExactlyOnce:
		return "exactly once"
	default:
		return "invalid"
	}
}

// Valid returns true if the QoS level is 0, 1 or 2.
func (q QoS) Valid() bool {
	return q <= QoSExactlyOnce
}
