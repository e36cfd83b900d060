// Package armisa is the typed ARM instruction model: registers, operand
// shapes, condition codes, and the tagged-union Instruction that every
// other package in this module builds, walks, encodes, or interprets.
package armisa

// IntReg is an ARM integer register index. 0..15 are fixed architectural
// registers; indices at or above FirstVirtualIntReg are virtual registers
// assigned by a Section's register counter and rewritten in place by the
// (separately specified) register allocator.
type IntReg uint32

// Fixed integer register numbers.
const (
	R0 IntReg = iota
	R1
	R2
	R3
	R4
	R5
	R6
	R7
	R8
	R9
	R10
	R11 // frame / locals base
	R12 // globals base
	R13 // stack pointer
	R14 // link register
	R15 // program counter
)

const (
	FP  = R11 // frame / locals base, per spec section 3
	GBL = R12 // globals base
	SP  = R13
	LR  = R14
	PC  = R15
)

// FirstVirtualIntReg is the first index handed out by a Section's register
// counter; everything below it is architecturally fixed.
const FirstVirtualIntReg IntReg = 16

// MaxAllocatableIntRegs mirrors the source's SUBTILIS_ARM_REG_MAX_INT_REGS.
// Some liveness helpers (see section.MaxRegs) iterate only registers
// 0..MaxAllocatableIntRegs-1 and implicitly assume R12-R15 never appear in
// the liveness set computed over that range; this constant documents that
// assumption at its one call site rather than silently baking it in.
const MaxAllocatableIntRegs = 11

// IsFixedInt reports whether reg is an architectural (non-virtual) integer
// register.
func IsFixedInt(reg IntReg) bool {
	return reg < FirstVirtualIntReg
}

// FPAReg is an FPA floating point register index. 0..7 are fixed; indices
// at or above FirstVirtualFPAReg are virtual.
type FPAReg uint32

const FirstVirtualFPAReg FPAReg = 8

func IsFixedFPA(reg FPAReg) bool {
	return reg < FirstVirtualFPAReg
}

// VFPReg is a VFP register index within one of its two namespaces (double
// or single precision), each counted separately.
type VFPReg uint32

const (
	FirstVirtualVFPDouble VFPReg = 16
	FirstVirtualVFPSingle VFPReg = 32
)

func IsFixedVFPDouble(reg VFPReg) bool { return reg < FirstVirtualVFPDouble }
func IsFixedVFPSingle(reg VFPReg) bool { return reg < FirstVirtualVFPSingle }

// LabelID names a section-local label, constant-pool entry, or directive
// target. Labels are allocated by a Section's label counter.
type LabelID uint32

// NoLabel is the sentinel for "no label attached".
const NoLabel LabelID = 0xFFFFFFFF
