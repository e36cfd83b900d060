package builder

import (
	"github.com/basic-arm/codegen/armisa"
	"github.com/basic-arm/codegen/imm"
)

// altOpcode returns the sibling opcode that can absorb a negated immediate
// in op's place (ADD<->SUB, CMP<->CMN), and whether op has one. RSB, MUL,
// and the move-shaped ops are handled by their own callers instead.
func altOpcode(op armisa.DPOp) (armisa.DPOp, bool) {
	switch op {
	case armisa.DPAdd:
		return armisa.DPSub, true
	case armisa.DPSub:
		return armisa.DPAdd, true
	case armisa.DPCmp:
		return armisa.DPCmn, true
	case armisa.DPCmn:
		return armisa.DPCmp, true
	default:
		return op, false
	}
}

// negate produces the two's complement negation of v, treating it as a
// signed 32-bit value.
func negate(v uint32) uint32 {
	return uint32(-int32(v))
}

// immCascade is the outcome of classifying a data-processing immediate
// that does not fit Operand2 directly: which opcode and encoded field(s)
// to use, or whether every encodable route was exhausted and the value
// must be spilled through the literal pool instead.
type immCascade struct {
	op      armisa.DPOp
	e1, e2  imm.Encoded
	split   bool
	literal bool
}

// planImmCascade implements spec's instruction-builder fallback order for
// a two-register-operand data-processing op carrying an immediate that
// does not fit a single rotated 8-bit field: try the opcode's sibling
// with the value negated (ADD<->SUB, CMP<->CMN) when the value is
// negative, then a two-instruction split, and finally fall back to a
// literal-pool load. allowSplit is false when the caller sets flags under
// a non-AL condition, since the split's intermediate instruction would
// clobber flags mid-conditional-sequence.
func planImmCascade(op armisa.DPOp, value uint32, allowSplit bool) immCascade {
	if enc, ok := imm.IsEncodable(value); ok {
		return immCascade{op: op, e1: enc}
	}

	altOp, hasAlt := altOpcode(op)
	negative := int32(value) < 0
	if hasAlt && negative {
		if enc, ok := imm.IsEncodable(negate(value)); ok {
			return immCascade{op: altOp, e1: enc}
		}
	}

	if allowSplit {
		if e1, e2, ok := imm.EncodeLvl2(value); ok {
			return immCascade{op: op, e1: e1, e2: e2, split: true}
		}
		// The split search, like the single-instruction one, is also
		// retried against the alt-opcode form of a negative value
		// before giving up and spilling.
		if hasAlt && negative {
			if e1, e2, ok := imm.EncodeLvl2(negate(value)); ok {
				return immCascade{op: altOp, e1: e1, e2: e2, split: true}
			}
		}
	}

	return immCascade{op: op, literal: true}
}

// emitDPImm runs the immediate cascade for a register-destination op
// (ADD/SUB) and emits the resulting instruction(s).
func emitDPImm(sec Section, cond armisa.Condition, op armisa.DPOp, setFlags bool, dest, op1 armisa.IntReg, value uint32) ([]*armisa.Instruction, error) {
	allowSplit := !(setFlags && cond != armisa.CondAL)
	plan := planImmCascade(op, value, allowSplit)

	if plan.literal {
		tmp := sec.NewIntReg()
		lit, err := LoadConst(sec, cond, tmp, value, false)
		if err != nil {
			return nil, err
		}
		inst, err := DataProcessing(sec, cond, op, setFlags, dest, op1, armisa.Reg2(tmp))
		if err != nil {
			return nil, err
		}
		return []*armisa.Instruction{lit, inst}, nil
	}

	if plan.split {
		first, err := DataProcessing(sec, cond, plan.op, setFlags, dest, op1, armisa.Imm2(uint32(plan.e1)))
		if err != nil {
			return nil, err
		}
		second, err := DataProcessing(sec, cond, plan.op, setFlags, dest, dest, armisa.Imm2(uint32(plan.e2)))
		if err != nil {
			return nil, err
		}
		return []*armisa.Instruction{first, second}, nil
	}

	inst, err := DataProcessing(sec, cond, plan.op, setFlags, dest, op1, armisa.Imm2(uint32(plan.e1)))
	if err != nil {
		return nil, err
	}
	return []*armisa.Instruction{inst}, nil
}

// emitCompareImm runs the cascade for a compare-shaped op (CMP/CMN),
// which always sets flags and has no destination. A split is never
// attempted: there is no register to accumulate a partial sum into
// between the two halves of a comparison.
func emitCompareImm(sec Section, cond armisa.Condition, op armisa.DPOp, op1 armisa.IntReg, value uint32) ([]*armisa.Instruction, error) {
	plan := planImmCascade(op, value, false)

	if plan.literal {
		tmp := sec.NewIntReg()
		lit, err := LoadConst(sec, cond, tmp, value, false)
		if err != nil {
			return nil, err
		}
		inst, err := DataProcessing(sec, cond, op, true, 0, op1, armisa.Reg2(tmp))
		if err != nil {
			return nil, err
		}
		return []*armisa.Instruction{lit, inst}, nil
	}

	inst, err := DataProcessing(sec, cond, plan.op, true, 0, op1, armisa.Imm2(uint32(plan.e1)))
	if err != nil {
		return nil, err
	}
	return []*armisa.Instruction{inst}, nil
}

// AddImm emits dest = op1 + value, falling back from a single ADD to a
// SUB of the negated value, a two-instruction split, or a literal-pool
// load, per spec's immediate-builder cascade.
func AddImm(sec Section, cond armisa.Condition, setFlags bool, dest, op1 armisa.IntReg, value uint32) ([]*armisa.Instruction, error) {
	return emitDPImm(sec, cond, armisa.DPAdd, setFlags, dest, op1, value)
}

// SubImm emits dest = op1 - value, with the same fallback cascade as
// AddImm (its alt-opcode sibling is ADD).
func SubImm(sec Section, cond armisa.Condition, setFlags bool, dest, op1 armisa.IntReg, value uint32) ([]*armisa.Instruction, error) {
	return emitDPImm(sec, cond, armisa.DPSub, setFlags, dest, op1, value)
}

// RsbImm emits dest = value - op1. RSB has no sibling opcode to swap to,
// so its own special case for an unencodable negative value is to negate
// op1 first (RSB dest, op1, #0) and subtract the (positive, often
// encodable) magnitude with a SUB; any other unencodable value is loaded
// from the literal pool (no split is tried).
func RsbImm(sec Section, cond armisa.Condition, setFlags bool, dest, op1 armisa.IntReg, value uint32) ([]*armisa.Instruction, error) {
	if enc, ok := imm.IsEncodable(value); ok {
		inst, err := Rsb(sec, cond, setFlags, dest, op1, armisa.Imm2(uint32(enc)))
		if err != nil {
			return nil, err
		}
		return []*armisa.Instruction{inst}, nil
	}

	// RSB has no sibling opcode the way ADD/SUB do, but a negative value
	// can still be folded: negate op1 into dest (RSB dest, op1, #0
	// computes -op1), then SUB the positive magnitude from it —
	// dest - |value| == -op1 - |value| == value - op1, the result RSB was
	// asked for. Skipped when flags are set under a non-AL condition (the
	// intermediate RSB would corrupt them first).
	allowFallback := !(setFlags && cond != armisa.CondAL)
	if allowFallback && int32(value) < 0 {
		if enc, ok := imm.IsEncodable(negate(value)); ok {
			zero, err := Rsb(sec, cond, false, dest, op1, armisa.Imm2(0))
			if err != nil {
				return nil, err
			}
			sub, err := Sub(sec, cond, setFlags, dest, dest, armisa.Imm2(uint32(enc)))
			if err != nil {
				return nil, err
			}
			return []*armisa.Instruction{zero, sub}, nil
		}
	}

	tmp := sec.NewIntReg()
	lit, err := LoadConst(sec, cond, tmp, value, false)
	if err != nil {
		return nil, err
	}
	inst, err := Rsb(sec, cond, setFlags, dest, op1, armisa.Reg2(tmp))
	if err != nil {
		return nil, err
	}
	return []*armisa.Instruction{lit, inst}, nil
}

// CmpImm emits a comparison of op1 against value, falling back from CMP
// to CMN of the negated value or a literal-pool load.
func CmpImm(sec Section, cond armisa.Condition, op1 armisa.IntReg, value uint32) ([]*armisa.Instruction, error) {
	return emitCompareImm(sec, cond, armisa.DPCmp, op1, value)
}

// CmnImm emits the CMN-shaped comparison of op1 against value (its
// alt-opcode sibling is CMP).
func CmnImm(sec Section, cond armisa.Condition, op1 armisa.IntReg, value uint32) ([]*armisa.Instruction, error) {
	return emitCompareImm(sec, cond, armisa.DPCmn, op1, value)
}

// MulImm emits dest = op1 * value. ARM2 has no multiply-immediate
// encoding, so the constant is always materialized into a fresh register
// first (via MovImm's own cascade) and the multiply emitted in register
// form; the fresh register can never collide with dest, so when dest ==
// op1 the operands are swapped to put the fresh register in Rm.
func MulImm(sec Section, cond armisa.Condition, setFlags bool, dest, op1 armisa.IntReg, value uint32) ([]*armisa.Instruction, error) {
	tmp := sec.NewIntReg()
	movs, err := MovImm(sec, cond, tmp, value)
	if err != nil {
		return nil, err
	}
	rm, rs := op1, tmp
	if dest == rm {
		rm, rs = rs, rm
	}
	mul, err := Mul(sec, cond, setFlags, dest, rm, rs)
	if err != nil {
		return nil, err
	}
	return append(movs, mul), nil
}
