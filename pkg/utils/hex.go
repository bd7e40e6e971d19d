package utils

import (
	"golang.org/x/exp/constraints"
)

const hexDigits = "0123456789abcdef"

// Formats an unsigned value as lower-case hex, zero-padded to the given
// number of nibbles. Values wider than the requested width keep only the
// low nibbles.
func FormatHex[T constraints.Unsigned](value T, nibbles int) string {
	buf := make([]byte, nibbles)
	v := uint64(value)
	for i := nibbles - 1; i >= 0; i-- {
		buf[i] = hexDigits[v&0xF]
		v >>= 4
	}
	return string(buf)
}

// Parses a lower or upper-case hex string into an unsigned value.
// Parsing stops at the first non-hex character; an empty or non-hex
// prefix yields zero, matching the permissive reads the RSP wire needs.
func ParseHex[T constraints.Unsigned](s string) T {
	var v uint64
	for i := 0; i < len(s); i++ {
		n, ok := HexNibble(s[i])
		if !ok {
			break
		}
		v = v<<4 | uint64(n)
	}
	return T(v)
}

// Decodes a single hex digit. Reports false for non-hex bytes.
func HexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// Encodes a byte as two lower-case hex digits.
func HexByte(b byte) string {
	return string([]byte{hexDigits[b>>4], hexDigits[b&0xF]})
}
