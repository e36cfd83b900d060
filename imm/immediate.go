// Package imm implements ARM's rotated 8-bit immediate encoding: whether a
// 32-bit value fits the data-processing Operand2 immediate form, its
// two-instruction decomposition when it doesn't, and the "nearest
// encodable at or above n" helper used for stack-frame rounding.
package imm

import (
	"fmt"
	"math/bits"
)

// Encoded is an already-packed 12-bit Operand2 immediate: (rotate<<8)|imm8,
// where rotate is the 4-bit field (the CPU rotates imm8 right by
// rotate*2 bits to reconstruct the value).
type Encoded uint32

// IsEncodable reports whether v can be expressed as imm8 rotated right by
// some even amount 0..30, returning the packed 12-bit form. v==0 falls out
// of the general search at rotate 0 without needing special-casing.
func IsEncodable(v uint32) (Encoded, bool) {
	for rotate := uint32(0); rotate < 32; rotate += 2 {
		rotated := bits.RotateLeft32(v, -int(rotate))
		if rotated <= 0xFF {
			decodeRotate := (32 - rotate) % 32
			return Encoded((decodeRotate/2)<<8 | rotated), true
		}
	}
	return 0, false
}

// Decode reconstitutes the 32-bit value an encoded Operand2 immediate
// represents: imm8 rotated right by (rotate field)*2 bits. This is the
// inverse of IsEncodable and is exercised by the VM's operand2 decode and
// by the round-trip testable property in the design notes.
func Decode(e Encoded) uint32 {
	rotate := (uint32(e) >> 8) & 0xF
	imm8 := uint32(e) & 0xFF
	return bits.RotateLeft32(imm8, -int(rotate*2))
}

// EncodeLvl2 decomposes v, which must not itself be singly encodable, into
// two encoded immediates (e1, e2) such that Decode(e1)+Decode(e2) == v
// (mod 2^32). The caller emits two dependent instructions, e.g.
// "ADD Rd, Rd, #e1 ; ADD Rd, Rd, #e2", the second reading back the first's
// destination as its own Op1.
//
// The search scans every (rotate, imm8) pair in ascending order, treating
// each as a candidate "hi" term, and accepts the first whose complement
// "lo = v - hi" is itself singly encodable.
func EncodeLvl2(v uint32) (e1, e2 Encoded, ok bool) {
	for rotate := uint32(0); rotate < 16; rotate++ {
		for imm8 := uint32(1); imm8 <= 0xFF; imm8++ {
			hi := bits.RotateLeft32(imm8, -int(rotate*2))
			if hi == 0 {
				continue
			}
			lo := v - hi
			if loEnc, ok := IsEncodable(lo); ok {
				hiEnc := Encoded(rotate<<8 | imm8)
				return loEnc, hiEnc, true
			}
		}
	}
	return 0, 0, false
}

// Nearest returns the packed Operand2 encoding of the smallest value >= n
// that IsEncodable accepts, used to round a stack frame up to an
// encodable immediate (spec §4.4: "nearest encodable >= n ... return the
// encoded form"). It errors if rounding up would overflow 32 bits.
func Nearest(n uint32) (Encoded, error) {
	if enc, ok := IsEncodable(n); ok {
		return enc, nil
	}

	highBit := bits.Len32(n) - 1
	shift := highBit - 7
	if shift%2 != 0 {
		shift++
	}
	if shift < 2 {
		shift = 2
	}
	mult := uint64(1) << uint(shift)

	rounded := ((uint64(n) + mult - 1) / mult) * mult
	if rounded > 0xFFFFFFFF {
		return 0, fmt.Errorf("imm: %#x has no encodable value at or above it within 32 bits", n)
	}
	enc, ok := IsEncodable(uint32(rounded))
	if !ok {
		return 0, fmt.Errorf("imm: rounded value %#x is still not encodable", rounded)
	}
	return enc, nil
}
