package mqttv3

import "time"

// inflightState is the protocol sub-state of an unacknowledged exchange.
type inflightState int

const (
	// awaitingPuback: QoS 1 PUBLISH sent, waiting for PUBACK.
	awaitingPuback inflightState = iota
	// awaitingPubrec: QoS 2 PUBLISH sent, waiting for PUBREC.
	awaitingPubrec
	// awaitingPubcomp: PUBREL sent, waiting for PUBCOMP.
	awaitingPubcomp
	// awaitingSuback: SUBSCRIBE sent, waiting for SUBACK.
	awaitingSuback
	// awaitingUnsuback: UNSUBSCRIBE sent, waiting for UNSUBACK.
	awaitingUnsuback
)

func (s inflightState) String() string {
	switch s {
	case awaitingPuback:
		return "awaiting PUBACK"
	case awaitingPubrec:
		return "awaiting PUBREC"
	case awaitingPubcomp:
		return "awaiting PUBCOMP"
	case awaitingSuback:
		return "awaiting SUBACK"
	case awaitingUnsuback:
		return "awaiting UNSUBACK"
	default:
		return "unknown"
	}
}

// inflightEntry tracks one outstanding exchange: the packet to resend, the
// sub-state it is waiting in, and its retry deadline.
type inflightEntry struct {
	id        uint16
	state     inflightState
	packet    Packet
	deadline  time.Time
	retries   int
	exhausted bool
}

// inflightTable holds all outstanding sender-side exchanges keyed by packet
// identifier. It is owned by one Session and never locked.
type inflightTable struct {
	entries map[uint16]*inflightEntry
}

func newInflightTable() *inflightTable {
	return &inflightTable{entries: make(map[uint16]*inflightEntry)}
}

func (t *inflightTable) add(e *inflightEntry) {
	t.entries[e.id] = e
}

func (t *inflightTable) get(id uint16) (*inflightEntry, bool) {
	e, ok := t.entries[id]
	return e, ok
}

func (t *inflightTable) remove(id uint16) {
	delete(t.entries, id)
}

func (t *inflightTable) len() int {
	return len(t.entries)
}

func (t *inflightTable) clear() {
	t.entries = make(map[uint16]*inflightEntry)
}

// nextDeadline returns the earliest retry deadline among exchanges that are
// still being retried.
func (t *inflightTable) nextDeadline() (time.Time, bool) {
	var min time.Time
	found := false

	for _, e := range t.entries {
		if e.exhausted {
			continue
		}
		if !found || e.deadline.Before(min) {
			min = e.deadline
			found = true
		}
	}

	return min, found
}

// expired returns exchanges whose retry deadline has passed, excluding
// those already reported exhausted.
func (t *inflightTable) expired(now time.Time) []*inflightEntry {
	var due []*inflightEntry

	for _, e := range t.entries {
		if e.exhausted {
			continue
		}
		if !e.deadline.After(now) {
			due = append(due, e)
		}
	}

	return due
}
