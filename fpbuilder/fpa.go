// Package fpbuilder provides the two concrete floating point builder
// backends (FPA and VFP) behind the fpiface.Interface vtable (spec §4.6),
// plus the data-processing/transfer instruction constructors each one
// uses. Callers that only need to emit FP instructions without caring
// which sub-architecture is active should go through the vtable; callers
// that know they are targeting one specific sub-architecture (e.g. the
// rule engine's FPA-only peephole rules) call these constructors
// directly.
package fpbuilder

import (
	"github.com/basic-arm/codegen/armisa"
	"github.com/basic-arm/codegen/fpiface"
	"github.com/basic-arm/codegen/imm"
)

// FPA implements fpiface.Interface for the FPA co-processor (8 fixed
// double registers F0-F7).
type FPA struct{}

var _ fpiface.Interface = FPA{}

func (FPA) MaxRegs() uint32 { return 8 }

// MaxOffset is FPA's 8-bit word-scaled STF/LDF immediate: 255*4.
func (FPA) MaxOffset() int32 { return 255 * 4 }

func (FPA) IsFixed(reg uint32) bool { return armisa.IsFixedFPA(armisa.FPAReg(reg)) }

// Preamble emits nothing extra for FPA; the co-processor needs no mode
// switch before use, unlike VFP's FMXR-to-FPSCR dance.
func (FPA) Preamble(sec fpiface.Section) {}

func (FPA) PreserveRegs(sec fpiface.Section, regList uint32) {
	pushFPARegList(sec, regList, true)
}

func (FPA) RestoreRegs(sec fpiface.Section, regList uint32) {
	pushFPARegList(sec, regList, false)
}

// pushFPARegList emits one STF/LDF per set bit, highest register first on
// push (so registers come off in ascending order on restore, matching
// the source's save/restore symmetry).
func pushFPARegList(sec fpiface.Section, regList uint32, store bool) {
	order := make([]uint32, 0, 8)
	for i := uint32(0); i < 8; i++ {
		if regList&(1<<i) != 0 {
			order = append(order, i)
		}
	}
	if store {
		for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
			order[i], order[j] = order[j], order[i]
		}
	}
	for _, freg := range order {
		if store {
			StfPreDec(sec, armisa.CondAL, freg, armisa.SP, 8)
		} else {
			LdfPostInc(sec, armisa.CondAL, freg, armisa.SP, 8)
		}
	}
}

func (FPA) StoreDouble(sec fpiface.Section, freg uint32, base armisa.IntReg, offset int32) {
	if offset >= 0 && offset <= 255*4 && offset%4 == 0 {
		Stf(sec, armisa.CondAL, freg, base, offset, false)
		return
	}
	scratch := sec.NewIntReg()
	loadOffsetInto(sec, scratch, offset)
	addrReg := sec.NewIntReg()
	addDP(sec, addrReg, base, scratch)
	Stf(sec, armisa.CondAL, freg, addrReg, 0, false)
}

// loadOffsetInto and addDP are tiny local helpers kept free of package
// builder to avoid fpbuilder depending on it just for two instructions:
// loadOffsetInto emits one MOV (or one MVN of the inverted value) with a
// rotated 8-bit immediate, and addDP one register-form ADD.
func loadOffsetInto(sec fpiface.Section, dest armisa.IntReg, value int32) {
	op := armisa.DPMov
	enc, ok := imm.IsEncodable(uint32(value))
	if !ok {
		op = armisa.DPMvn
		enc, _ = imm.IsEncodable(^uint32(value))
	}
	inst, err := sec.AddInstr(armisa.KindDataProcessing)
	if err != nil {
		return
	}
	inst.Cond = armisa.CondAL
	inst.DPOp = op
	inst.Dest = dest
	inst.Op2 = armisa.Imm2(uint32(enc))
}

func addDP(sec fpiface.Section, dest, op1, op2 armisa.IntReg) {
	inst, err := sec.AddInstr(armisa.KindDataProcessing)
	if err != nil {
		return
	}
	inst.Cond = armisa.CondAL
	inst.DPOp = armisa.DPAdd
	inst.Dest = dest
	inst.Op1 = op1
	inst.Op2 = armisa.Reg2(op2)
}

// FPAData emits an FPA dyadic/monadic data-processing op (ADF/MUF/.../SQT).
func FPAData(sec fpiface.Section, cond armisa.Condition, op armisa.FPAOp, rounding armisa.RoundMode, dest, op1, op2Reg uint32, op2Imm uint8, op2IsImm bool) (*armisa.Instruction, error) {
	inst, err := sec.AddInstr(armisa.KindFPAData)
	if err != nil {
		return nil, err
	}
	inst.Cond = cond
	inst.FPAOp = op
	inst.Rounding = rounding
	inst.FDest = dest
	inst.FOp1 = op1
	inst.FOp2Reg = op2Reg
	inst.FOp2Imm = op2Imm
	inst.FOp2IsImm = op2IsImm
	inst.FPSize = 8
	return inst, nil
}

// Flt converts an ARM integer register to an FPA register (FLT).
func Flt(sec fpiface.Section, cond armisa.Condition, dest uint32, src armisa.IntReg, rounding armisa.RoundMode) (*armisa.Instruction, error) {
	inst, err := sec.AddInstr(armisa.KindFPATransfer)
	if err != nil {
		return nil, err
	}
	inst.Cond = cond
	inst.FPATransferOp = armisa.FPATransferFlt
	inst.FDest = dest
	inst.FOp1 = uint32(src)
	inst.Rounding = rounding
	return inst, nil
}

// Fix converts an FPA register to an ARM integer register (FIX).
func Fix(sec fpiface.Section, cond armisa.Condition, dest armisa.IntReg, src uint32, rounding armisa.RoundMode) (*armisa.Instruction, error) {
	inst, err := sec.AddInstr(armisa.KindFPATransfer)
	if err != nil {
		return nil, err
	}
	inst.Cond = cond
	inst.FPATransferOp = armisa.FPATransferFix
	inst.FDest = uint32(dest)
	inst.FOp1 = src
	inst.Rounding = rounding
	return inst, nil
}

// Stf/Ldf emit a single FPA store/load (always double precision in this
// backend, per spec §4.6's "FPA always operates on doubles").
func Stf(sec fpiface.Section, cond armisa.Condition, freg uint32, base armisa.IntReg, offset int32, writeBack bool) (*armisa.Instruction, error) {
	return fpaTransferMem(sec, cond, freg, base, offset, writeBack, false, false, false)
}

func Ldf(sec fpiface.Section, cond armisa.Condition, freg uint32, base armisa.IntReg, offset int32, writeBack bool) (*armisa.Instruction, error) {
	return fpaTransferMem(sec, cond, freg, base, offset, writeBack, true, false, false)
}

// StfPreDec/LdfPostInc are the push/pop-shaped variants used for callee
// save sequences: pre-decrement store, post-increment load, both by one
// double (8 bytes).
func StfPreDec(sec fpiface.Section, cond armisa.Condition, freg uint32, base armisa.IntReg, size int32) (*armisa.Instruction, error) {
	return fpaTransferMem(sec, cond, freg, base, -size, true, false, true, true)
}

func LdfPostInc(sec fpiface.Section, cond armisa.Condition, freg uint32, base armisa.IntReg, size int32) (*armisa.Instruction, error) {
	return fpaTransferMem(sec, cond, freg, base, size, true, true, false, true)
}

func fpaTransferMem(sec fpiface.Section, cond armisa.Condition, freg uint32, base armisa.IntReg, offset int32, writeBack, load, preIndexed, forcePre bool) (*armisa.Instruction, error) {
	kind := armisa.KindFPATransfer
	op := armisa.FPATransferStf
	if load {
		op = armisa.FPATransferLdf
	}
	inst, err := sec.AddInstr(kind)
	if err != nil {
		return nil, err
	}
	inst.Cond = cond
	inst.FPATransferOp = op
	inst.FDest = freg
	inst.Base = base
	sub := offset < 0
	abs := offset
	if sub {
		abs = -offset
	}
	inst.Offset = armisa.Operand2{Kind: armisa.Op2Immediate, Encoded: uint32(abs/4) & 0xFF}
	inst.OffsetSub = sub
	inst.WriteBack = writeBack
	inst.PreIndexed = preIndexed || (!forcePre && offset != 0)
	inst.Load = load
	inst.FPSize = 8
	return inst, nil
}
