package mqttv3

import "errors"

// FrameAssembler reassembles complete MQTT packets from a byte stream
// delivered in arbitrary chunks. Feed appends received bytes; Next returns
// the next complete packet, or nil when more bytes are needed.
//
// Consumed bytes are tracked with an offset into the internal buffer and
// the buffer is compacted only once the offset passes half its length, so
// the amortized cost is proportional to the bytes processed rather than the
// buffer size.
//
// The zero value is ready to use. A FrameAssembler is not safe for
// concurrent use.
type FrameAssembler struct {
	buf []byte
	pos int
}

// Feed appends received bytes to the assembler.
func (a *FrameAssembler) Feed(data []byte) {
	if a.pos == len(a.buf) {
		// Everything consumed, start over
		a.buf = a.buf[:0]
		a.pos = 0
	} else if a.pos > len(a.buf)/2 {
		a.compact()
	}

	a.buf = append(a.buf, data...)
}

// Next decodes and returns the next complete packet from the buffered
// bytes. It returns (nil, nil) when the buffer does not yet hold a complete
// packet. Any non-nil error is malformed input and fatal to the stream.
//
// A single Feed can make zero, one, or many packets available: call Next
// repeatedly until it returns nil.
func (a *FrameAssembler) Next() (Packet, error) {
	if a.pos == len(a.buf) {
		return nil, nil
	}

	packet, n, err := DecodePacket(a.buf[a.pos:])
	if errors.Is(err, ErrIncompletePacket) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	a.pos += n
	return packet, nil
}

// Buffered returns the number of bytes waiting to be decoded.
func (a *FrameAssembler) Buffered() int {
	return len(a.buf) - a.pos
}

// Reset discards all buffered bytes.
func (a *FrameAssembler) Reset() {
	a.buf = a.buf[:0]
	a.pos = 0
}

// compact moves unconsumed bytes to the front of the buffer.
func (a *FrameAssembler) compact() {
	n := copy(a.buf, a.buf[a.pos:])
	a.buf = a.buf[:n]
	a.pos = 0
}
