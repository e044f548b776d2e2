package mqttv3

import "errors"

var (
	// ErrPacketIDExhausted is returned when all 65535 identifiers are in
	// flight. It is recoverable: stop issuing QoS > 0 operations until an
	// exchange completes.
	ErrPacketIDExhausted = errors.New("no available packet IDs")
)

// PacketIDAllocator issues non-zero 16-bit packet identifiers for QoS 1/2
// exchanges. Identifiers are unique among live exchanges and reused only
// after release; the smallest free identifier is always issued first.
//
// The allocator is owned by a single Session and inherits its single-writer
// discipline; it performs no internal locking.
type PacketIDAllocator struct {
	used map[uint16]struct{}

	// lowest is the smallest identifier that can possibly be free; every
	// identifier below it is live.
	lowest uint16
}

// NewPacketIDAllocator creates a new allocator with all identifiers free.
func NewPacketIDAllocator() *PacketIDAllocator {
	return &PacketIDAllocator{
		used:   make(map[uint16]struct{}),
		lowest: 1,
	}
}

// Allocate returns the smallest currently-unused identifier, or
// ErrPacketIDExhausted when all 65535 values are live.
func (a *PacketIDAllocator) Allocate() (uint16, error) {
	if len(a.used) >= maxUint16 {
		return 0, ErrPacketIDExhausted
	}

	id := a.lowest
	for {
		if _, ok := a.used[id]; !ok {
			break
		}
		id++
		if id == 0 {
			id = 1
		}
	}

	a.used[id] = struct{}{}

	a.lowest = id + 1
	if a.lowest == 0 {
		a.lowest = 1
	}

	return id, nil
}

// Release marks an identifier free for reuse. Releasing an identifier that
// is already free is a no-op, so duplicate acknowledgments cannot corrupt
// the allocator state.
func (a *PacketIDAllocator) Release(id uint16) {
	if id == 0 {
		return
	}

	delete(a.used, id)

	if id < a.lowest {
		a.lowest = id
	}
}

// InUse returns true if the identifier is currently live.
func (a *PacketIDAllocator) InUse(id uint16) bool {
	_, ok := a.used[id]
	return ok
}

// Len returns the count of identifiers currently live.
func (a *PacketIDAllocator) Len() int {
	return len(a.used)
}
