package mqttv3

import (
	"errors"
	"io"
	"sync"
)

var (
	ErrPacketTooLarge        = errors.New("packet exceeds maximum size")
	ErrPayloadLengthMismatch = errors.New("remaining length does not match packet contents")
)

// newPacket returns an empty packet value for the given type.
func newPacket(t PacketType) Packet {
	switch t {
	case PacketCONNECT:
		return &ConnectPacket{}
	case PacketCONNACK:
		return &ConnackPacket{}
	case PacketPUBLISH:
		return &PublishPacket{}
	case PacketPUBACK:
		return &PubackPacket{}
	case PacketPUBREC:
		return &PubrecPacket{}
	case PacketPUBREL:
		return &PubrelPacket{}
	case PacketPUBCOMP:
		return &PubcompPacket{}
	case PacketSUBSCRIBE:
		return &SubscribePacket{}
	case PacketSUBACK:
		return &SubackPacket{}
	case PacketUNSUBSCRIBE:
		return &UnsubscribePacket{}
	case PacketUNSUBACK:
		return &UnsubackPacket{}
	case PacketPINGREQ:
		return &PingreqPacket{}
	case PacketPINGRESP:
		return &PingrespPacket{}
	case PacketDISCONNECT:
		return &DisconnectPacket{}
	default:
		return nil
	}
}

// DecodePacket decodes one complete MQTT packet from the start of data and
// returns it together with the number of bytes consumed.
//
// If data does not yet hold a complete packet, DecodePacket returns
// ErrIncompletePacket; the caller should retry once more bytes are
// available. Any other error is a MalformedPacketError and is fatal to the
// connection. Decoding never reads past the declared remaining length, and
// a packet whose contents do not fill it exactly is rejected with
// ErrPayloadLengthMismatch.
func DecodePacket(data []byte) (Packet, int, error) {
	var header FixedHeader

	hn, err := header.decodeBytes(data)
	if err != nil {
		if errors.Is(err, ErrIncompletePacket) {
			return nil, 0, err
		}
		return nil, 0, &MalformedPacketError{PacketType: header.PacketType, Err: err}
	}

	if err := header.ValidateFlags(); err != nil {
		return nil, 0, &MalformedPacketError{PacketType: header.PacketType, Err: err}
	}

	total := hn + int(header.RemainingLength)
	if len(data) < total {
		return nil, 0, ErrIncompletePacket
	}

	packet := newPacket(header.PacketType)

	body := bytesReader{data: data[hn:total]}
	n, err := packet.Decode(&body, header)
	if err != nil {
		// Running out of bytes inside a complete frame means the declared
		// remaining length was too small for the packet contents.
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = ErrPayloadLengthMismatch
		}
		return nil, 0, &MalformedPacketError{PacketType: header.PacketType, Err: err}
	}

	if n != int(header.RemainingLength) {
		return nil, 0, &MalformedPacketError{PacketType: header.PacketType, Err: ErrPayloadLengthMismatch}
	}

	return packet, total, nil
}

// ReadPacket reads a complete MQTT packet from the reader.
// If maxSize is greater than 0, packets larger than maxSize will return ErrPacketTooLarge.
func ReadPacket(r io.Reader, maxSize uint32) (Packet, int, error) {
	var header FixedHeader
	n, err := header.Decode(r)
	if err != nil {
		return nil, n, err
	}

	if err := header.ValidateFlags(); err != nil {
		return nil, n, &MalformedPacketError{PacketType: header.PacketType, Err: err}
	}

	if maxSize > 0 && header.RemainingLength > maxSize {
		return nil, n, ErrPacketTooLarge
	}

	remaining := make([]byte, header.RemainingLength)
	if header.RemainingLength > 0 {
		rn, err := io.ReadFull(r, remaining)
		n += rn
		if err != nil {
			return nil, n, err
		}
	}

	packet := newPacket(header.PacketType)
	if packet == nil {
		return nil, n, ErrUnknownPacketType
	}

	body := bytesReader{data: remaining}
	dn, err := packet.Decode(&body, header)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = ErrPayloadLengthMismatch
		}
		return nil, n, &MalformedPacketError{PacketType: header.PacketType, Err: err}
	}

	if dn != int(header.RemainingLength) {
		return nil, n, &MalformedPacketError{PacketType: header.PacketType, Err: ErrPayloadLengthMismatch}
	}

	return packet, n, nil
}

// WritePacket writes a complete MQTT packet to the writer.
// If maxSize is greater than 0, packets larger than maxSize will return ErrPacketTooLarge.
func WritePacket(w io.Writer, packet Packet, maxSize uint32) (int, error) {
	if err := packet.Validate(); err != nil {
		return 0, err
	}

	// If max size check is needed, encode to buffer first
	if maxSize > 0 {
		buf := getBuffer()
		defer putBuffer(buf)

		n, err := packet.Encode(buf)
		if err != nil {
			return 0, err
		}
		if uint32(n) > maxSize {
			return 0, ErrPacketTooLarge
		}
		return w.Write(buf.Bytes())
	}

	return packet.Encode(w)
}

// bytesReader wraps a byte slice for io.Reader interface.
type bytesReader struct {
	data []byte
	pos  int
}

func (r *bytesReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

// bytesBuffer is a simple buffer for encoding.
type bytesBuffer struct {
	data []byte
}

func (b *bytesBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *bytesBuffer) Bytes() []byte {
	return b.data
}

// Encode paths assemble the variable header and payload in a scratch buffer
// before the remaining length is known. The buffers cycle through a pool so
// steady-state encoding does not allocate.
var bufferPool = sync.Pool{
	New: func() any {
		return &bytesBuffer{}
	},
}

// Buffers that grew past this are dropped instead of returned to the pool.
const maxPooledBufferSize = 64 << 10

func getBuffer() *bytesBuffer {
	b := bufferPool.Get().(*bytesBuffer)
	b.data = b.data[:0]
	return b
}

func putBuffer(b *bytesBuffer) {
	if b == nil || cap(b.data) > maxPooledBufferSize {
		return
	}
	b.data = b.data[:0]
	bufferPool.Put(b)
}
