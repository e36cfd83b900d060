// Package fpiface holds the small vtable interface that lets a single
// code generator target either FPA or VFP through the same builder call
// sites (spec §4.6, "FP interface vtable"). It is split out from package
// fpbuilder (which provides the two concrete implementations) solely so
// that package section can hold a reference to "the FP interface for this
// section" without importing the builders that implement it.
package fpiface

import "github.com/basic-arm/codegen/armisa"

// Interface is the dispatch surface a code generator calls through to
// remain agnostic to FPA vs VFP.
type Interface interface {
	// MaxRegs is the number of addressable FP registers in this
	// sub-architecture's virtual namespace (8 for FPA, 16 doubles for
	// VFP).
	MaxRegs() uint32

	// MaxOffset is the largest byte offset a single store-double
	// instruction can address directly (1020 for both FPA and VFP: an
	// 8-bit word-scaled immediate).
	MaxOffset() int32

	// IsFixed reports whether reg is an architectural (non-virtual) FP
	// register in this sub-architecture's namespace.
	IsFixed(reg uint32) bool

	// Preamble emits whatever register-saving prologue sequence this
	// sub-architecture needs before a function body begins.
	Preamble(sec Section)

	// PreserveRegs/RestoreRegs emit the callee-save push/pop sequence for
	// the FP registers named in regList (a bitmap over this namespace).
	PreserveRegs(sec Section, regList uint32)
	RestoreRegs(sec Section, regList uint32)

	// StoreDouble emits a store of freg to [base, #offset], materializing
	// the address in a scratch integer register first if offset exceeds
	// MaxOffset.
	StoreDouble(sec Section, freg uint32, base armisa.IntReg, offset int32)
}

// Section is the narrow slice of *section.Section an FP implementation
// needs: enough to append instructions and allocate fresh registers,
// without fpiface importing package section (which would cycle back).
type Section interface {
	AddInstr(kind armisa.Kind) (*armisa.Instruction, error)
	NewFReg() uint32
	NewIntReg() armisa.IntReg
}
