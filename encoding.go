package mqttv3

import (
	"encoding/binary"
	"errors"
	"io"
	"unicode/utf8"
)

// Encoding errors.
var (
	ErrStringTooLong          = errors.New("string exceeds maximum length of 65535 bytes")
	ErrBinaryTooLong          = errors.New("binary data exceeds maximum length of 65535 bytes")
	ErrInvalidUTF8            = errors.New("invalid UTF-8 string")
	ErrStringContainsControl  = errors.New("string contains control character")
	ErrInvalidRemainingLength = errors.New("invalid remaining length")
)

const (
	maxUint16         = 65535
	maxRemainingLen   = 268435455 // 0x0FFFFFFF, largest 4-byte varint
	varintContinueBit = 0x80
	varintValueMask   = 0x7F
	maxVarintBytes    = 4
)

// validateString checks MQTT string constraints: well-formed UTF-8 with no
// NUL or other control characters.
func validateString(s string) error {
	if !utf8.ValidString(s) {
		return ErrInvalidUTF8
	}

	for _, r := range s {
		if r <= 0x1F || (r >= 0x7F && r <= 0x9F) {
			return ErrStringContainsControl
		}
	}

	return nil
}

// encodeUint16 writes a big-endian 16-bit integer to w.
func encodeUint16(w io.Writer, v uint16) (int, error) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	return w.Write(buf[:])
}

// decodeUint16 reads a big-endian 16-bit integer from r.
func decodeUint16(r io.Reader) (uint16, int, error) {
	var buf [2]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil {
		return 0, n, err
	}
	return binary.BigEndian.Uint16(buf[:]), n, nil
}

// encodeString writes a UTF-8 string with 2-byte length prefix to w.
// Returns the number of bytes written.
func encodeString(w io.Writer, s string) (int, error) {
	if len(s) > maxUint16 {
		return 0, ErrStringTooLong
	}

	if err := validateString(s); err != nil {
		return 0, err
	}

	n, err := encodeUint16(w, uint16(len(s)))
	if err != nil {
		return n, err
	}

	n2, err := io.WriteString(w, s)
	return n + n2, err
}

// decodeString reads a UTF-8 string with 2-byte length prefix from r.
func decodeString(r io.Reader) (string, int, error) {
	length, n, err := decodeUint16(r)
	if err != nil {
		return "", n, err
	}

	if length == 0 {
		return "", n, nil
	}

	buf := make([]byte, length)
	n2, err := io.ReadFull(r, buf)
	n += n2
	if err != nil {
		return "", n, err
	}

	if err := validateString(string(buf)); err != nil {
		return "", n, err
	}

	return string(buf), n, nil
}

// encodeBinary writes binary data with 2-byte length prefix to w.
// Returns the number of bytes written.
func encodeBinary(w io.Writer, data []byte) (int, error) {
	if len(data) > maxUint16 {
		return 0, ErrBinaryTooLong
	}

	n, err := encodeUint16(w, uint16(len(data)))
	if err != nil {
		return n, err
	}

	n2, err := w.Write(data)
	return n + n2, err
}

// decodeBinary reads binary data with 2-byte length prefix from r.
func decodeBinary(r io.Reader) ([]byte, int, error) {
	length, n, err := decodeUint16(r)
	if err != nil {
		return nil, n, err
	}

	if length == 0 {
		return nil, n, nil
	}

	buf := make([]byte, length)
	n2, err := io.ReadFull(r, buf)
	n += n2
	if err != nil {
		return nil, n, err
	}

	return buf, n, nil
}

// encodeVarint writes a remaining-length variable byte integer to w.
// Returns the number of bytes written.
func encodeVarint(w io.Writer, value uint32) (int, error) {
	if value > maxRemainingLen {
		return 0, ErrInvalidRemainingLength
	}

	var buf [maxVarintBytes]byte
	n := 0

	for {
		encodedByte := byte(value & varintValueMask)
		value >>= 7

		if value > 0 {
			encodedByte |= varintContinueBit
		}

		buf[n] = encodedByte
		n++

		if value == 0 {
			break
		}
	}

	return w.Write(buf[:n])
}

// decodeVarint reads a remaining-length variable byte integer from r.
// A continuation bit in the fourth byte is rejected as malformed.
func decodeVarint(r io.Reader) (uint32, int, error) {
	var value uint32
	var shift uint
	var buf [1]byte
	bytesRead := 0

	for {
		n, err := io.ReadFull(r, buf[:])
		bytesRead += n
		if err != nil {
			return 0, bytesRead, err
		}

		encodedByte := buf[0]
		value |= uint32(encodedByte&varintValueMask) << shift

		if encodedByte&varintContinueBit == 0 {
			return value, bytesRead, nil
		}

		if bytesRead == maxVarintBytes {
			return 0, bytesRead, ErrInvalidRemainingLength
		}
		shift += 7
	}
}

// decodeVarintBytes decodes a remaining-length variable byte integer from
// the start of data. Returns ErrIncompletePacket if data holds a valid but
// truncated encoding.
func decodeVarintBytes(data []byte) (uint32, int, error) {
	var value uint32
	var shift uint

	for i := 0; i < maxVarintBytes; i++ {
		if i >= len(data) {
			return 0, i, ErrIncompletePacket
		}

		encodedByte := data[i]
		value |= uint32(encodedByte&varintValueMask) << shift

		if encodedByte&varintContinueBit == 0 {
			return value, i + 1, nil
		}
		shift += 7
	}

	return 0, maxVarintBytes, ErrInvalidRemainingLength
}

// varintSize returns the number of bytes needed to encode a remaining length.
func varintSize(value uint32) int {
	switch {
	case value < 128:
		return 1
	case value < 16384:
		return 2
	case value < 2097152:
		return 3
	default:
		return 4
	}
}
