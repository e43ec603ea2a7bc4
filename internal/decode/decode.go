// Package decode turns raw server log bytes into text.
//
// Game servers on Linux write UTF-8, but some Windows-hosted servers write
// UTF-16LE with a byte order mark. Decode handles both and never fails.
package decode

import (
	"encoding/binary"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Decode converts a chunk read from a log file into a string.
//
// Order of attempts:
//  1. valid UTF-8 is returned as-is
//  2. UTF-16LE (leading FF FE BOM skipped, trailing odd byte dropped)
//  3. lossy UTF-8 of the original bytes, invalid bytes replaced by U+FFFD
func Decode(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if utf8.Valid(b) {
		return string(b)
	}

	units := b
	if len(units) >= 2 && units[0] == 0xFF && units[1] == 0xFE {
		units = units[2:]
	}
	if len(units) < 2 {
		return lossyUTF8(b)
	}
	if len(units)%2 != 0 {
		units = units[:len(units)-1]
	}

	if s, ok := decodeUTF16LE(units); ok {
		return s
	}
	return lossyUTF8(b)
}

// decodeUTF16LE decodes little-endian code units. Unpaired surrogates make it fail
// instead of being silently replaced.
func decodeUTF16LE(b []byte) (string, bool) {
	codeUnits := make([]uint16, len(b)/2)
	for i := range codeUnits {
		codeUnits[i] = binary.LittleEndian.Uint16(b[2*i:])
	}

	for i := 0; i < len(codeUnits); i++ {
		u := codeUnits[i]
		switch {
		case u >= 0xD800 && u <= 0xDBFF:
			if i+1 >= len(codeUnits) || codeUnits[i+1] < 0xDC00 || codeUnits[i+1] > 0xDFFF {
				return "", false
			}
			i++ // low half of the pair
		case u >= 0xDC00 && u <= 0xDFFF:
			return "", false
		}
	}

	return string(utf16.Decode(codeUnits)), true
}

// lossyUTF8 replaces every invalid byte with U+FFFD
func lossyUTF8(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			sb.WriteRune(utf8.RuneError)
		} else {
			sb.Write(b[:size])
		}
		b = b[size:]
	}
	return sb.String()
}
