// Package builder provides the constructive, one-call-per-instruction API
// the rule engine uses to emit integer ARM instructions into a Section
// (spec §4.5). Every function here appends exactly one instruction (or,
// where the immediate does not fit in a single rotated 8-bit field, the
// documented two-instruction cascade) and returns the op(s) it created so
// a caller can fix up fields it could not know in advance (e.g. patch a
// branch target once a label resolves).
package builder

import (
	"fmt"

	"github.com/basic-arm/codegen/armisa"
	"github.com/basic-arm/codegen/imm"
)

// Section is the narrow slice of *section.Section this package needs.
// Kept as an interface (rather than importing package section directly)
// so builder has no hard dependency on section's exported surface beyond
// what it actually calls, mirroring the fpiface split.
type Section interface {
	AddInstr(kind armisa.Kind) (*armisa.Instruction, error)
	DupInstr() (*armisa.Instruction, error)
	NewIntReg() armisa.IntReg
	NewLabel() armisa.LabelID
	AddDataImmLDR(value uint32, linkTime bool) armisa.LabelID
}

// DataProcessing emits one AND/EOR/.../MVN instruction with a
// register-or-shifted-register Op2. For compare-shaped ops (TST/TEQ/CMP/
// CMN) dest is ignored by the encoder but still recorded.
func DataProcessing(sec Section, cond armisa.Condition, op armisa.DPOp, setFlags bool, dest, op1 armisa.IntReg, op2 armisa.Operand2) (*armisa.Instruction, error) {
	inst, err := sec.AddInstr(armisa.KindDataProcessing)
	if err != nil {
		return nil, err
	}
	inst.Cond = cond
	inst.DPOp = op
	inst.SetFlags = setFlags
	inst.Dest = dest
	inst.Op1 = op1
	inst.Op2 = op2
	return inst, nil
}

// Mov is shorthand for DataProcessing with DPMov (which ignores Op1).
func Mov(sec Section, cond armisa.Condition, dest armisa.IntReg, op2 armisa.Operand2) (*armisa.Instruction, error) {
	return DataProcessing(sec, cond, armisa.DPMov, false, dest, 0, op2)
}

// MovImm emits a MOV (or a single MVN of the inverted value, or the
// two-instruction MOV+ORR pair per imm.EncodeLvl2 when neither fits a
// single rotated 8-bit immediate) loading a 32-bit constant into dest.
func MovImm(sec Section, cond armisa.Condition, dest armisa.IntReg, value uint32) ([]*armisa.Instruction, error) {
	if enc, ok := imm.IsEncodable(value); ok {
		inst, err := Mov(sec, cond, dest, armisa.Imm2(uint32(enc)))
		if err != nil {
			return nil, err
		}
		return []*armisa.Instruction{inst}, nil
	}
	if enc, ok := imm.IsEncodable(^value); ok {
		inst, err := DataProcessing(sec, cond, armisa.DPMvn, false, dest, 0, armisa.Imm2(uint32(enc)))
		if err != nil {
			return nil, err
		}
		return []*armisa.Instruction{inst}, nil
	}
	e1, e2, ok := imm.EncodeLvl2(value)
	if !ok {
		return nil, fmt.Errorf("builder: %#x has no lvl-2 immediate encoding", value)
	}
	first, err := Mov(sec, cond, dest, armisa.Imm2(uint32(e1)))
	if err != nil {
		return nil, err
	}
	second, err := DataProcessing(sec, cond, armisa.DPOrr, false, dest, dest, armisa.Imm2(uint32(e2)))
	if err != nil {
		return nil, err
	}
	return []*armisa.Instruction{first, second}, nil
}

// LoadConst loads a 32-bit constant via the section's literal pool (LDRC)
// rather than an inline MOV cascade; used by the rule engine when the
// value is reused across the section, per spec §3's per-section
// deduplication.
func LoadConst(sec Section, cond armisa.Condition, dest armisa.IntReg, value uint32, linkTime bool) (*armisa.Instruction, error) {
	label := sec.AddDataImmLDR(value, linkTime)
	inst, err := sec.AddInstr(armisa.KindLiteralLoad)
	if err != nil {
		return nil, err
	}
	inst.Cond = cond
	inst.Dest = dest
	inst.LitLabel = label
	inst.LinkTime = linkTime
	inst.LitSize = 4
	return inst, nil
}

// Add/Sub/Rsb/And/Orr/Eor/Bic are thin DataProcessing wrappers for the
// common two-source-operand ops; each takes Op2 pre-built by the caller
// (via armisa.Reg2/Imm2/ShiftedImm2/ShiftedReg2 or ImmOperand2 below).
func Add(sec Section, cond armisa.Condition, setFlags bool, dest, op1 armisa.IntReg, op2 armisa.Operand2) (*armisa.Instruction, error) {
	return DataProcessing(sec, cond, armisa.DPAdd, setFlags, dest, op1, op2)
}

func Sub(sec Section, cond armisa.Condition, setFlags bool, dest, op1 armisa.IntReg, op2 armisa.Operand2) (*armisa.Instruction, error) {
	return DataProcessing(sec, cond, armisa.DPSub, setFlags, dest, op1, op2)
}

func Rsb(sec Section, cond armisa.Condition, setFlags bool, dest, op1 armisa.IntReg, op2 armisa.Operand2) (*armisa.Instruction, error) {
	return DataProcessing(sec, cond, armisa.DPRsb, setFlags, dest, op1, op2)
}

func And(sec Section, cond armisa.Condition, setFlags bool, dest, op1 armisa.IntReg, op2 armisa.Operand2) (*armisa.Instruction, error) {
	return DataProcessing(sec, cond, armisa.DPAnd, setFlags, dest, op1, op2)
}

func Orr(sec Section, cond armisa.Condition, setFlags bool, dest, op1 armisa.IntReg, op2 armisa.Operand2) (*armisa.Instruction, error) {
	return DataProcessing(sec, cond, armisa.DPOrr, setFlags, dest, op1, op2)
}

func Eor(sec Section, cond armisa.Condition, setFlags bool, dest, op1 armisa.IntReg, op2 armisa.Operand2) (*armisa.Instruction, error) {
	return DataProcessing(sec, cond, armisa.DPEor, setFlags, dest, op1, op2)
}

func Bic(sec Section, cond armisa.Condition, setFlags bool, dest, op1 armisa.IntReg, op2 armisa.Operand2) (*armisa.Instruction, error) {
	return DataProcessing(sec, cond, armisa.DPBic, setFlags, dest, op1, op2)
}

// Cmp/Cmn/Tst/Teq are the compare-shaped ops: they always set flags and
// take no destination.
func Cmp(sec Section, cond armisa.Condition, op1 armisa.IntReg, op2 armisa.Operand2) (*armisa.Instruction, error) {
	return DataProcessing(sec, cond, armisa.DPCmp, true, 0, op1, op2)
}

func Cmn(sec Section, cond armisa.Condition, op1 armisa.IntReg, op2 armisa.Operand2) (*armisa.Instruction, error) {
	return DataProcessing(sec, cond, armisa.DPCmn, true, 0, op1, op2)
}

func Tst(sec Section, cond armisa.Condition, op1 armisa.IntReg, op2 armisa.Operand2) (*armisa.Instruction, error) {
	return DataProcessing(sec, cond, armisa.DPTst, true, 0, op1, op2)
}

func Teq(sec Section, cond armisa.Condition, op1 armisa.IntReg, op2 armisa.Operand2) (*armisa.Instruction, error) {
	return DataProcessing(sec, cond, armisa.DPTeq, true, 0, op1, op2)
}

// Mul/Mla emit a 32x32 multiply (MLA accumulates Rn). The ARM2 encoding
// forbids Dest == Rm: Mul swaps Rm and Rs to avoid the collision and
// returns an error only when Dest == Rm == Rs; Mla returns an error
// whenever Dest == Rm.
func Mul(sec Section, cond armisa.Condition, setFlags bool, dest, rm, rs armisa.IntReg) (*armisa.Instruction, error) {
	if dest == rm {
		if rm == rs {
			return nil, fmt.Errorf("builder: MUL dest == Rm == Rs (%v) is not encodable", dest)
		}
		rm, rs = rs, rm
	}
	inst, err := sec.AddInstr(armisa.KindMultiply)
	if err != nil {
		return nil, err
	}
	inst.Cond = cond
	inst.SetFlags = setFlags
	inst.Dest = dest
	inst.Rm = rm
	inst.Rs = rs
	return inst, nil
}

func Mla(sec Section, cond armisa.Condition, setFlags bool, dest, rm, rs, rn armisa.IntReg) (*armisa.Instruction, error) {
	if dest == rm {
		return nil, fmt.Errorf("builder: MLA dest == Rm (%v) is not encodable", dest)
	}
	inst, err := sec.AddInstr(armisa.KindMultiply)
	if err != nil {
		return nil, err
	}
	inst.Cond = cond
	inst.SetFlags = setFlags
	inst.Dest = dest
	inst.Rm = rm
	inst.Rs = rs
	inst.Rn = rn
	inst.Accumulate = true
	return inst, nil
}

// Ldr/Str emit a single-register transfer. offset is pre-indexed and
// added unless offsetSub is set.
func Ldr(sec Section, cond armisa.Condition, dest, base armisa.IntReg, offset armisa.Operand2, offsetSub, writeBack, byteTransfer bool) (*armisa.Instruction, error) {
	return singleTransfer(sec, cond, dest, base, offset, offsetSub, writeBack, byteTransfer, true)
}

func Str(sec Section, cond armisa.Condition, src, base armisa.IntReg, offset armisa.Operand2, offsetSub, writeBack, byteTransfer bool) (*armisa.Instruction, error) {
	return singleTransfer(sec, cond, src, base, offset, offsetSub, writeBack, byteTransfer, false)
}

func singleTransfer(sec Section, cond armisa.Condition, reg, base armisa.IntReg, offset armisa.Operand2, offsetSub, writeBack, byteTransfer, load bool) (*armisa.Instruction, error) {
	inst, err := sec.AddInstr(armisa.KindSingleTransfer)
	if err != nil {
		return nil, err
	}
	inst.Cond = cond
	inst.Dest = reg
	inst.Base = base
	inst.Offset = offset
	inst.PreIndexed = true
	inst.WriteBack = writeBack
	inst.OffsetSub = offsetSub
	inst.Byte = byteTransfer
	inst.Load = load
	return inst, nil
}

// Stm/Ldm emit a multi-register transfer across the bitmap regList (bit i
// set => Ri included), in ascending register order per ARM2 semantics.
func Stm(sec Section, cond armisa.Condition, base armisa.IntReg, regList uint16, mode armisa.MultiMode, writeBack bool) (*armisa.Instruction, error) {
	return multiTransfer(sec, cond, base, regList, mode, writeBack, false, false)
}

func Ldm(sec Section, cond armisa.Condition, base armisa.IntReg, regList uint16, mode armisa.MultiMode, writeBack, restoreCPSR bool) (*armisa.Instruction, error) {
	return multiTransfer(sec, cond, base, regList, mode, writeBack, true, restoreCPSR)
}

func multiTransfer(sec Section, cond armisa.Condition, base armisa.IntReg, regList uint16, mode armisa.MultiMode, writeBack, load, status bool) (*armisa.Instruction, error) {
	inst, err := sec.AddInstr(armisa.KindMultiTransfer)
	if err != nil {
		return nil, err
	}
	inst.Cond = cond
	inst.Base = base
	inst.RegList = regList
	inst.Mode = mode
	inst.WriteBack = writeBack
	inst.Load = load
	inst.Status = status
	return inst, nil
}

// Branch emits an unresolved branch to a section-local label; the walker
// or encoder resolves TargetLabel to TargetOffset in its backpatch pass.
func Branch(sec Section, cond armisa.Condition, link bool, target armisa.LabelID) (*armisa.Instruction, error) {
	inst, err := sec.AddInstr(armisa.KindBranch)
	if err != nil {
		return nil, err
	}
	inst.Cond = cond
	inst.Link = link
	inst.Local = true
	inst.TargetLabel = target
	return inst, nil
}

// BranchExternal emits a call to a section outside this one, resolved by
// the linker stage rather than this section's own backpatch pass.
func BranchExternal(sec Section, cond armisa.Condition, link bool, target armisa.LabelID, linkType armisa.LinkType) (*armisa.Instruction, error) {
	inst, err := sec.AddInstr(armisa.KindBranch)
	if err != nil {
		return nil, err
	}
	inst.Cond = cond
	inst.Link = link
	inst.Local = false
	inst.TargetLabel = target
	inst.LinkType = linkType
	return inst, nil
}

// Swi emits an OS call. readMask/writeMask document which of R0-R9 the
// callee reads/writes, for the register allocator's liveness analysis.
func Swi(sec Section, cond armisa.Condition, code, readMask, writeMask uint32) (*armisa.Instruction, error) {
	inst, err := sec.AddInstr(armisa.KindSWI)
	if err != nil {
		return nil, err
	}
	inst.Cond = cond
	inst.SWICode = code
	inst.ReadMask = readMask
	inst.WriteMask = writeMask
	return inst, nil
}

// CMov emits the conditional-move pseudo-instruction: dest gets op2 under
// trueCond, op3 under falseCond. The walker/encoder lowers this into two
// real conditional MOVs.
func CMov(sec Section, dest armisa.IntReg, trueCond armisa.Condition, op2 armisa.Operand2, falseCond armisa.Condition, op3 armisa.Operand2) (*armisa.Instruction, error) {
	inst, err := sec.AddInstr(armisa.KindCondMove)
	if err != nil {
		return nil, err
	}
	inst.Dest = dest
	inst.TrueCond = trueCond
	inst.Op2 = op2
	inst.FalseCond = falseCond
	inst.Op3 = op3
	inst.Fused = true
	return inst, nil
}

// Label appends a label-definition node and returns its ID.
func Label(sec Section) (armisa.LabelID, error) {
	id := sec.NewLabel()
	inst, err := sec.AddInstr(armisa.KindLabel)
	if err != nil {
		return armisa.NoLabel, err
	}
	inst.Label = id
	return id, nil
}
