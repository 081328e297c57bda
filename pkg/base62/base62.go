// Package base62 converts non-negative integers to and from short strings
// over the alphabet 0-9, a-z, A-Z.
//
// Encoding is positional: the most significant digit comes first and the
// result has no leading zeros, except for the value 0 which encodes to "0".
package base62

import (
	"errors"
	"fmt"
	"math"
)

// Alphabet is the ordered digit set. The index of a character is its value.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const base = uint64(len(Alphabet))

// ErrInvalidEncoding is returned by Decode for empty input, characters outside
// the alphabet and values that do not fit into uint64.
var ErrInvalidEncoding = errors.New("invalid base62 encoding")

var digits [256]int8

func init() {
	for i := range digits {
		digits[i] = -1
	}
	for i := 0; i < len(Alphabet); i++ {
		digits[Alphabet[i]] = int8(i)
	}
}

// IsValidChar reports whether c belongs to the alphabet.
func IsValidChar(c byte) bool {
	return digits[c] >= 0
}

// IsValid reports whether s is a non-empty string made of alphabet characters only.
func IsValid(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !IsValidChar(s[i]) {
			return false
		}
	}
	return true
}

// Encode returns the minimal base62 representation of n.
func Encode(n uint64) string {
	if n == 0 {
		return Alphabet[:1]
	}

	// 11 digits cover math.MaxUint64.
	var buf [11]byte
	i := len(buf)

	for n > 0 {
		i--
		buf[i] = Alphabet[n%base]
		n /= base
	}

	return string(buf[i:])
}

// Decode is the inverse of Encode.
func Decode(s string) (uint64, error) {
	const op = "base62.Decode"

	if s == "" {
		return 0, fmt.Errorf("%s: empty string: %w", op, ErrInvalidEncoding)
	}

	var n uint64

	for i := 0; i < len(s); i++ {
		d := digits[s[i]]
		if d < 0 {
			return 0, fmt.Errorf("%s: invalid character %q at position %d: %w", op, s[i], i, ErrInvalidEncoding)
		}

		if n > (math.MaxUint64-uint64(d))/base {
			return 0, fmt.Errorf("%s: value overflows uint64: %w", op, ErrInvalidEncoding)
		}

		n = n*base + uint64(d)
	}

	return n, nil
}
