package mqttv3

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarintEncodeDecode(t *testing.T) {
	tests := []struct {
		name  string
		value uint32
		size  int
	}{
		{name: "zero", value: 0, size: 1},
		{name: "one byte max", value: 127, size: 1},
		{name: "two byte min", value: 128, size: 2},
		{name: "two byte max", value: 16383, size: 2},
		{name: "three byte min", value: 16384, size: 3},
		{name: "three byte max", value: 2097151, size: 3},
		{name: "four byte min", value: 2097152, size: 4},
		{name: "four byte max", value: 268435455, size: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := encodeVarint(&buf, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.size, n)
			assert.Equal(t, tt.size, varintSize(tt.value))

			decoded, dn, err := decodeVarint(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			assert.Equal(t, tt.value, decoded)
			assert.Equal(t, tt.size, dn)
		})
	}
}

func TestVarintEncodeOverflow(t *testing.T) {
	var buf bytes.Buffer
	_, err := encodeVarint(&buf, maxRemainingLen+1)
	assert.ErrorIs(t, err, ErrInvalidRemainingLength)
}

func TestVarintDecodeErrors(t *testing.T) {
	t.Run("fourth byte with continuation bit", func(t *testing.T) {
		_, _, err := decodeVarint(bytes.NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF}))
		assert.ErrorIs(t, err, ErrInvalidRemainingLength)
	})

	t.Run("truncated input", func(t *testing.T) {
		_, _, err := decodeVarint(bytes.NewReader([]byte{0x80}))
		assert.Error(t, err)
	})

	t.Run("empty input", func(t *testing.T) {
		_, _, err := decodeVarint(bytes.NewReader(nil))
		assert.Error(t, err)
	})
}

func TestVarintDecodeBytes(t *testing.T) {
	t.Run("complete", func(t *testing.T) {
		value, n, err := decodeVarintBytes([]byte{0xC1, 0x02})
		require.NoError(t, err)
		assert.Equal(t, uint32(321), value)
		assert.Equal(t, 2, n)
	})

	t.Run("incomplete reports retryable error", func(t *testing.T) {
		_, _, err := decodeVarintBytes([]byte{0x80})
		assert.ErrorIs(t, err, ErrIncompletePacket)
	})

	t.Run("overlong is malformed not incomplete", func(t *testing.T) {
		_, _, err := decodeVarintBytes([]byte{0xFF, 0xFF, 0xFF, 0xFF})
		assert.ErrorIs(t, err, ErrInvalidRemainingLength)
		assert.NotErrorIs(t, err, ErrIncompletePacket)
	})
}

func TestStringEncodeDecode(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "empty", value: ""},
		{name: "ascii", value: "sensors/temperature"},
		{name: "multibyte", value: "датчик/温度"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := encodeString(&buf, tt.value)
			require.NoError(t, err)
			assert.Equal(t, 2+len(tt.value), n)

			decoded, dn, err := decodeString(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			assert.Equal(t, tt.value, decoded)
			assert.Equal(t, n, dn)
		})
	}
}

func TestStringEncodeErrors(t *testing.T) {
	t.Run("too long", func(t *testing.T) {
		var buf bytes.Buffer
		_, err := encodeString(&buf, strings.Repeat("a", maxUint16+1))
		assert.ErrorIs(t, err, ErrStringTooLong)
	})

	t.Run("ill-formed utf-8", func(t *testing.T) {
		var buf bytes.Buffer
		_, err := encodeString(&buf, string([]byte{0xC3, 0x28}))
		assert.ErrorIs(t, err, ErrInvalidUTF8)
	})

	t.Run("control character", func(t *testing.T) {
		var buf bytes.Buffer
		_, err := encodeString(&buf, "topic\x00name")
		assert.ErrorIs(t, err, ErrStringContainsControl)
	})
}

func TestStringDecodeErrors(t *testing.T) {
	t.Run("truncated length", func(t *testing.T) {
		_, _, err := decodeString(bytes.NewReader([]byte{0x00}))
		assert.Error(t, err)
	})

	t.Run("truncated body", func(t *testing.T) {
		_, _, err := decodeString(bytes.NewReader([]byte{0x00, 0x05, 'a', 'b'}))
		assert.Error(t, err)
	})

	t.Run("ill-formed utf-8 body", func(t *testing.T) {
		_, _, err := decodeString(bytes.NewReader([]byte{0x00, 0x02, 0xC3, 0x28}))
		assert.ErrorIs(t, err, ErrInvalidUTF8)
	})
}

func TestBinaryEncodeDecode(t *testing.T) {
	var buf bytes.Buffer
	data := []byte{0x01, 0x00, 0xFF, 0x7F}
	n, err := encodeBinary(&buf, data)
	require.NoError(t, err)
	assert.Equal(t, 2+len(data), n)

	decoded, dn, err := decodeBinary(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
	assert.Equal(t, n, dn)
}

func TestUint16EncodeDecode(t *testing.T) {
	for _, v := range []uint16{0, 1, 256, 0x1234, 65535} {
		var buf bytes.Buffer
		n, err := encodeUint16(&buf, v)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		decoded, _, err := decodeUint16(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, v, decoded)
	}
}

func BenchmarkVarintEncode(b *testing.B) {
	var buf bytes.Buffer
	buf.Grow(8)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		buf.Reset()
		_, _ = encodeVarint(&buf, 2097152)
	}
}
