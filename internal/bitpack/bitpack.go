// Package bitpack packs unsigned codes of a fixed bit width into bytes.
//
// Codes are stored little-endian: code i occupies bits [i*w, (i+1)*w) of the
// byte stream, least significant bit first. Supported widths are 1, 2, 4, 8
// and 16, so a code never straddles a width-aligned boundary.
package bitpack

import (
	"encoding/binary"
	"fmt"
)

// Widths lists the supported bit widths in ascending order.
var Widths = [...]uint8{1, 2, 4, 8, 16}

// ValidWidth reports whether w is a supported bit width.
func ValidWidth(w uint8) bool {
	switch w {
	case 1, 2, 4, 8, 16:
		return true
	}
	return false
}

// Size returns the number of bytes needed for n codes of width w.
func Size(n int, w uint8) int {
	return (n*int(w) + 7) / 8
}

// MaxCode returns the largest code representable in w bits.
func MaxCode(w uint8) uint32 {
	return 1<<w - 1
}

// Pack writes codes into dst with width w. dst must hold Size(len(codes), w)
// bytes; codes wider than w are truncated.
func Pack(dst []byte, codes []uint32, w uint8) error {
	if !ValidWidth(w) {
		return fmt.Errorf("bitpack: unsupported width %d", w)
	}
	if need := Size(len(codes), w); len(dst) < need {
		return fmt.Errorf("bitpack: destination holds %d bytes, need %d", len(dst), need)
	}
	if w == 16 {
		for i, c := range codes {
			binary.LittleEndian.PutUint16(dst[2*i:], uint16(c))
		}
		return nil
	}
	clear(dst[:Size(len(codes), w)])
	perByte := 8 / int(w)
	mask := byte(MaxCode(w))
	for i, c := range codes {
		shift := uint(i%perByte) * uint(w)
		dst[i/perByte] |= (byte(c) & mask) << shift
	}
	return nil
}

// Get returns code i of a stream packed with width w. w must be valid.
func Get(src []byte, i int, w uint8) uint32 {
	if w == 16 {
		return uint32(binary.LittleEndian.Uint16(src[2*i:]))
	}
	perByte := 8 / int(w)
	shift := uint(i%perByte) * uint(w)
	return uint32(src[i/perByte]>>shift) & MaxCode(w)
}
