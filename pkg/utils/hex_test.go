package utils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatHex_Width8(t *testing.T) {
	assert.Equal(t, "00000000", FormatHex(uint32(0), 8))
	assert.Equal(t, "deadbeef", FormatHex(uint32(0xDEADBEEF), 8))
	assert.Equal(t, "ffffffff", FormatHex(uint32(0xFFFFFFFF), 8))
	assert.Equal(t, "00000001", FormatHex(uint32(1), 8))
}

func TestFormatHex_Width16(t *testing.T) {
	assert.Equal(t, "0000000000000000", FormatHex(uint64(0), 16))
	assert.Equal(t, "3ff0000000000000", FormatHex(uint64(0x3FF0000000000000), 16))
	assert.Equal(t, "ffffffffffffffff", FormatHex(uint64(0xFFFFFFFFFFFFFFFF), 16))
}

func TestFormatHex_ParseHexRoundTrip(t *testing.T) {
	samples32 := []uint32{0, 1, 0x80, 0xDEADBEEF, 0x82001234, 0xFFFFFFFF}
	for _, v := range samples32 {
		t.Run(fmt.Sprintf("u32_%08x", v), func(t *testing.T) {
			assert.Equal(t, v, ParseHex[uint32](FormatHex(v, 8)))
		})
	}

	samples64 := []uint64{0, 1, 0x3FF0000000000000, 0x7FF6000012345678, ^uint64(0)}
	for _, v := range samples64 {
		t.Run(fmt.Sprintf("u64_%016x", v), func(t *testing.T) {
			assert.Equal(t, v, ParseHex[uint64](FormatHex(v, 16)))
		})
	}
}

func TestParseHex_StopsAtNonHex(t *testing.T) {
	assert.Equal(t, uint32(0x8200), ParseHex[uint32]("8200,4"))
	assert.Equal(t, uint32(0xAB), ParseHex[uint32]("AB"))
	assert.Zero(t, ParseHex[uint32](""))
	assert.Zero(t, ParseHex[uint32]("zzz"))
}

func TestHexNibble(t *testing.T) {
	for i, c := range []byte("0123456789abcdef") {
		v, ok := HexNibble(c)
		assert.True(t, ok)
		assert.Equal(t, byte(i), v)
	}
	for i, c := range []byte("ABCDEF") {
		v, ok := HexNibble(c)
		assert.True(t, ok)
		assert.Equal(t, byte(i+10), v)
	}
	_, ok := HexNibble('g')
	assert.False(t, ok)
}

func TestHexByte(t *testing.T) {
	assert.Equal(t, "00", HexByte(0))
	assert.Equal(t, "0f", HexByte(0x0F))
	assert.Equal(t, "de", HexByte(0xDE))
	assert.Equal(t, "ff", HexByte(0xFF))
}
