package armvm

import (
	"math"

	"github.com/basic-arm/codegen/armisa"
)

// updateNZ sets N and Z from result; every S-bit data processing op does
// this regardless of which carry/overflow rule (if any) also applies.
func (vm *VM) updateNZ(result uint32) {
	vm.CPSR.N = result&0x80000000 != 0
	vm.CPSR.Z = result == 0
}

// addCarry reports unsigned overflow for a+b producing result, the ARM
// definition of C for ADD-shaped operations (carry out of bit 31).
func addCarry(a, b, result uint32) bool { return result < a }

// addOverflow reports signed overflow for a+b: operands share a sign but
// the result doesn't.
func addOverflow(a, b, result uint32) bool {
	aSign := a & 0x80000000
	bSign := b & 0x80000000
	rSign := result & 0x80000000
	return aSign == bSign && aSign != rSign
}

// subCarry is ARM's inverted borrow convention: C==1 means no borrow was
// needed, i.e. a >= b unsigned.
func subCarry(a, b uint32) bool { return a >= b }

func subOverflow(a, b, result uint32) bool {
	aSign := a & 0x80000000
	bSign := b & 0x80000000
	rSign := result & 0x80000000
	return aSign != bSign && aSign != rSign
}

func evaluateCondition(c CPSR, cond armisa.Condition) bool {
	switch cond {
	case armisa.CondEQ:
		return c.Z
	case armisa.CondNE:
		return !c.Z
	case armisa.CondCS:
		return c.C
	case armisa.CondCC:
		return !c.C
	case armisa.CondMI:
		return c.N
	case armisa.CondPL:
		return !c.N
	case armisa.CondVS:
		return c.V
	case armisa.CondVC:
		return !c.V
	case armisa.CondHI:
		return c.C && !c.Z
	case armisa.CondLS:
		return !c.C || c.Z
	case armisa.CondGE:
		return c.N == c.V
	case armisa.CondLT:
		return c.N != c.V
	case armisa.CondGT:
		return !c.Z && c.N == c.V
	case armisa.CondLE:
		return c.Z || c.N != c.V
	case armisa.CondAL:
		return true
	default: // CondNV
		return false
	}
}

// shiftWithCarry applies one of the four ARM barrel-shifter operations
// and returns the shifted value plus the carry-out operand2 contributes
// to a flag-setting data processing instruction (spec §4.10's C8 rule:
// LSL k∈[1,31] takes C from bit 32-k; k=32 from bit 0; k>32 clears C;
// LSR/ASR/ROR symmetrically; RRX rotates the whole word through carry).
func shiftWithCarry(value uint32, amount uint32, kind armisa.ShiftType, carryIn bool) (uint32, bool) {
	switch kind {
	case armisa.ShiftLSL:
		switch {
		case amount == 0:
			return value, carryIn
		case amount < 32:
			return value << amount, value&(1<<(32-amount)) != 0
		case amount == 32:
			return 0, value&1 != 0
		default:
			return 0, false
		}
	case armisa.ShiftLSR:
		switch {
		case amount == 0 || amount == 32:
			return 0, value&0x80000000 != 0
		case amount < 32:
			return value >> amount, value&(1<<(amount-1)) != 0
		default:
			return 0, false
		}
	case armisa.ShiftASR:
		if amount == 0 {
			amount = 32
		}
		if amount >= 32 {
			if value&0x80000000 != 0 {
				return 0xFFFFFFFF, true
			}
			return 0, false
		}
		return uint32(int32(value) >> amount), value&(1<<(amount-1)) != 0
	case armisa.ShiftROR:
		if amount == 0 {
			return value, carryIn
		}
		amount %= 32
		if amount == 0 {
			return value, value&0x80000000 != 0
		}
		return (value >> amount) | (value << (32 - amount)), value&(1<<(amount-1)) != 0
	case armisa.ShiftRRX:
		result := value >> 1
		if carryIn {
			result |= 0x80000000
		}
		return result, value&1 != 0
	}
	return value, carryIn
}

func float64FromWords(lo, hi uint32) float64 {
	return math.Float64frombits(uint64(lo) | uint64(hi)<<32)
}

func wordsFromFloat64(d float64) (lo, hi uint32) {
	bits := math.Float64bits(d)
	return uint32(bits), uint32(bits >> 32)
}
