package armisa

import "github.com/basic-arm/codegen/oppool"

// Op is the node type stored in a section's op pool: an Instruction plus
// the intrusive doubly-linked-list pointers that give the pool O(1)
// splice-insert without moving existing nodes.
type Op struct {
	Instruction
	Prev, Next oppool.Index
}

// FPAEncodableReals is the authoritative table of FPA immediates encodable
// directly in a data-processing instruction's Op2 field, indexed by the
// low nibble of the 4-bit immediate-select field (0x8-0xF select entries
// 0-7 here). This table is the union observed across the upstream headers
// (one of which omits 2.0): it is taken as authoritative per the rule that
// the implementation's own C table, not a header comment, decides ties.
var FPAEncodableReals = [8]float64{0, 1, 2, 3, 4, 5, 0.5, 10}

// EncodeFPAReal returns the 4-bit encoded index for an FPA-encodable real,
// and false if v is not one of the eight values in FPAEncodableReals.
func EncodeFPAReal(v float64) (uint8, bool) {
	for i, candidate := range FPAEncodableReals {
		if candidate == v {
			return uint8(0x8 + i), true
		}
	}
	return 0, false
}

// DecodeFPAReal reconstitutes the real value from its 4-bit encoded index.
func DecodeFPAReal(encoded uint8) (float64, bool) {
	if encoded < 0x8 || encoded > 0xF {
		return 0, false
	}
	return FPAEncodableReals[encoded-0x8], true
}
