// Package base16 transcodes the uppercase hexadecimal text used to ship
// assets as printable lines.
//
// Only the digits 0-9 and A-F are accepted. Lowercase digits, whitespace and an
// odd number of characters are rejected rather than silently mapped.
package base16

import (
	"github.com/wippyai/pixelbridge/errors"
)

const digits = "0123456789ABCDEF"

// invalid marks a byte that is not a hex digit in the reverse table.
const invalid = 0xFF

var reverse = func() [256]byte {
	var t [256]byte
	for i := range t {
		t[i] = invalid
	}
	for i := 0; i < len(digits); i++ {
		t[digits[i]] = byte(i)
	}
	return t
}()

// ErrOddLength is returned for input that cannot be split into digit pairs.
var ErrOddLength = errors.New(errors.PhaseDecode, errors.KindInvalidHex).
	Detail("odd number of hex digits").
	Build()

// DecodedLen returns the number of bytes n hex digits decode to.
func DecodedLen(n int) int { return n / 2 }

// EncodedLen returns the number of hex digits n bytes encode to.
func EncodedLen(n int) int { return n * 2 }

// Decode converts pairs of hex digits into bytes: value = hi*16 + lo.
func Decode(text []byte) ([]byte, error) {
	if len(text)%2 != 0 {
		return nil, ErrOddLength
	}
	out := make([]byte, DecodedLen(len(text)))
	for i := 0; i < len(text); i += 2 {
		hi := reverse[text[i]]
		if hi == invalid {
			return nil, errors.InvalidHex(i, "invalid hex digit "+quote(text[i]))
		}
		lo := reverse[text[i+1]]
		if lo == invalid {
			return nil, errors.InvalidHex(i+1, "invalid hex digit "+quote(text[i+1]))
		}
		out[i/2] = hi<<4 | lo
	}
	return out, nil
}

// DecodeString is Decode for string input.
func DecodeString(s string) ([]byte, error) {
	return Decode([]byte(s))
}

// Encode renders b as uppercase hex digits.
func Encode(b []byte) string {
	out := make([]byte, EncodedLen(len(b)))
	for i, v := range b {
		out[2*i] = digits[v>>4]
		out[2*i+1] = digits[v&0x0F]
	}
	return string(out)
}

func quote(c byte) string {
	if c >= 0x20 && c < 0x7F {
		return "'" + string(rune(c)) + "'"
	}
	return "0x" + string(digits[c>>4]) + string(digits[c&0x0F])
}
