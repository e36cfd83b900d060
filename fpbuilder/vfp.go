package fpbuilder

import (
	"github.com/basic-arm/codegen/armisa"
	"github.com/basic-arm/codegen/fpiface"
)

// VFP implements fpiface.Interface for the VFP co-processor. This backend
// only uses VFP's double-precision registers (D0-D15 fixed, virtual
// doubles counted separately per armisa.FirstVirtualVFPDouble); singles
// appear only as the scratch registers of the integer conversions
// (Fsitod/Ftosizd).
type VFP struct{}

var _ fpiface.Interface = VFP{}

func (VFP) MaxRegs() uint32 { return 16 }

// MaxOffset is VFP's 8-bit word-scaled FLDD/FSTD immediate: 255*4, same
// encoding shape as FPA despite the different instruction mnemonics.
func (VFP) MaxOffset() int32 { return 255 * 4 }

func (VFP) IsFixed(reg uint32) bool { return armisa.IsFixedVFPDouble(armisa.VFPReg(reg)) }

// Preamble emits the FMXR-to-FPSCR sequence enabling VFP before first
// use... in a fuller VFP runtime this would set the default NaN/flush-
// to-zero control bits; this backend assumes the OS has already enabled
// the coprocessor and a control-register warm-up is unnecessary, so
// Preamble is a no-op, mirroring FPA's.
func (VFP) Preamble(sec fpiface.Section) {}

func (VFP) PreserveRegs(sec fpiface.Section, regList uint32) {
	pushVFPRegList(sec, regList, true)
}

func (VFP) RestoreRegs(sec fpiface.Section, regList uint32) {
	pushVFPRegList(sec, regList, false)
}

func pushVFPRegList(sec fpiface.Section, regList uint32, store bool) {
	order := make([]uint32, 0, 16)
	for i := uint32(0); i < 16; i++ {
		if regList&(1<<i) != 0 {
			order = append(order, i)
		}
	}
	if store {
		for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
			order[i], order[j] = order[j], order[i]
		}
	}
	for _, dreg := range order {
		if store {
			Fstd(sec, armisa.CondAL, dreg, armisa.SP, -8, true)
		} else {
			Fldd(sec, armisa.CondAL, dreg, armisa.SP, 8, true)
		}
	}
}

func (VFP) StoreDouble(sec fpiface.Section, freg uint32, base armisa.IntReg, offset int32) {
	if offset >= 0 && offset <= 255*4 && offset%4 == 0 {
		Fstd(sec, armisa.CondAL, freg, base, offset, false)
		return
	}
	scratch := sec.NewIntReg()
	loadOffsetInto(sec, scratch, offset)
	addrReg := sec.NewIntReg()
	addDP(sec, addrReg, base, scratch)
	Fstd(sec, armisa.CondAL, freg, addrReg, 0, false)
}

// VFPData emits a dyadic/monadic VFP data op (FADD/FSUB/.../FSQRT),
// always double-precision in this backend.
func VFPData(sec fpiface.Section, cond armisa.Condition, op armisa.VFPOp, dest, op1, op2 uint32) (*armisa.Instruction, error) {
	inst, err := sec.AddInstr(armisa.KindVFPData)
	if err != nil {
		return nil, err
	}
	inst.Cond = cond
	inst.VFPOp = op
	inst.FDest = dest
	inst.FOp1 = op1
	inst.FOp2Reg = op2
	inst.IsDouble = true
	inst.FPSize = 8
	return inst, nil
}

// Fcmp emits a single VFPCmp node; the encoder writes it as one word and
// no separate FMRX transfer to the ARM flags is emitted (the VM sets CPSR
// directly when it executes the compare).
func Fcmp(sec fpiface.Section, cond armisa.Condition, op1, op2 uint32) (*armisa.Instruction, error) {
	inst, err := sec.AddInstr(armisa.KindVFPData)
	if err != nil {
		return nil, err
	}
	inst.Cond = cond
	inst.VFPOp = armisa.VFPCmp
	inst.FOp1 = op1
	inst.FOp2Reg = op2
	inst.IsDouble = true
	return inst, nil
}

// Fsitod/Ftosizd convert between an ARM integer register and a VFP double,
// routing through a VFP single scratch register as the real ISA requires
// (FMSR then FSITOD, or FTOSIZD then FMRS).
func Fsitod(sec fpiface.Section, cond armisa.Condition, dest uint32, src armisa.IntReg, singleScratch uint32) error {
	mov, err := sec.AddInstr(armisa.KindVFPTransfer)
	if err != nil {
		return err
	}
	mov.Cond = cond
	mov.VFPTransferOp = armisa.VFPTransferFmsr
	mov.FDest = singleScratch
	mov.FOp1 = uint32(src)

	conv, err := sec.AddInstr(armisa.KindVFPData)
	if err != nil {
		return err
	}
	conv.Cond = cond
	conv.VFPOp = armisa.VFPSitod
	conv.FDest = dest
	conv.FOp1 = singleScratch
	conv.IsDouble = true
	return nil
}

func Ftosizd(sec fpiface.Section, cond armisa.Condition, dest armisa.IntReg, src uint32, singleScratch uint32) error {
	conv, err := sec.AddInstr(armisa.KindVFPData)
	if err != nil {
		return err
	}
	conv.Cond = cond
	conv.VFPOp = armisa.VFPTosizd
	conv.FDest = singleScratch
	conv.FOp1 = src
	conv.IsDouble = false

	mov, err := sec.AddInstr(armisa.KindVFPTransfer)
	if err != nil {
		return err
	}
	mov.Cond = cond
	mov.VFPTransferOp = armisa.VFPTransferFmrs
	mov.FDest = uint32(dest)
	mov.FOp1 = singleScratch
	return nil
}

// Fstd/Fldd emit a VFP double store/load, pre- or post-indexed.
func Fstd(sec fpiface.Section, cond armisa.Condition, dreg uint32, base armisa.IntReg, offset int32, writeBack bool) (*armisa.Instruction, error) {
	return vfpTransferMem(sec, cond, dreg, base, offset, writeBack, false)
}

func Fldd(sec fpiface.Section, cond armisa.Condition, dreg uint32, base armisa.IntReg, offset int32, writeBack bool) (*armisa.Instruction, error) {
	return vfpTransferMem(sec, cond, dreg, base, offset, writeBack, true)
}

func vfpTransferMem(sec fpiface.Section, cond armisa.Condition, dreg uint32, base armisa.IntReg, offset int32, writeBack, load bool) (*armisa.Instruction, error) {
	op := armisa.VFPTransferFstd
	if load {
		op = armisa.VFPTransferFldd
	}
	inst, err := sec.AddInstr(armisa.KindVFPTransfer)
	if err != nil {
		return nil, err
	}
	inst.Cond = cond
	inst.VFPTransferOp = op
	inst.FDest = dreg
	inst.Base = base
	sub := offset < 0
	abs := offset
	if sub {
		abs = -offset
	}
	inst.Offset = armisa.Operand2{Kind: armisa.Op2Immediate, Encoded: uint32(abs/4) & 0xFF}
	inst.OffsetSub = sub
	inst.WriteBack = writeBack
	inst.PreIndexed = true
	inst.Load = load
	inst.IsDouble = true
	inst.FPSize = 8
	return inst, nil
}
