package armvm

import (
	"fmt"

	"github.com/basic-arm/codegen/armisa"
)

// decode is the disassembler: the inverse of package armencoder for the
// instruction subset this backend emits (spec §4.10, "the disassembler
// is the inverse of the encoder for the supported subset"). It rejects a
// handful of real ARM2 forms this backend never constructs and the rule
// engine never needs: BX/BLX-shaped indirect branches, MRS/MSR PSR
// transfers, and halfword LDRH/STRH bit patterns — all three are
// genuine ARM2 encodings, just ones outside this compiler's output, so
// decoding one means either memory corruption or a hand-crafted test
// image probing the boundary; either way the VM halts with a named
// error rather than guessing.
// Disassemble decodes a single encoded word, exported for the dump CLI
// subcommand and for tooling outside this package that wants the
// decoder without standing up a full VM.
func Disassemble(word uint32) (armisa.Instruction, error) {
	return decode(word)
}

func decode(word uint32) (armisa.Instruction, error) {
	cond := armisa.Condition((word >> 28) & 0xF)
	top3 := (word >> 25) & 0x7

	switch {
	case (word>>24)&0xF == 0xF:
		return armisa.Instruction{
			Kind:    armisa.KindSWI,
			Cond:    cond,
			SWICode: word & 0xFFFFFF &^ 0x20000,
		}, nil

	case top3 == 0x5: // 101: B/BL
		if word&(1<<4) != 0 && (word>>25)&0x7 == 0x5 && false {
			// placeholder branch never taken; kept for documentation of
			// the bit position BX would occupy if this backend emitted it.
		}
		offset := int32(word & 0xFFFFFF)
		if offset&0x800000 != 0 {
			offset |= ^0xFFFFFF // sign extend 24 -> 32
		}
		return armisa.Instruction{
			Kind:         armisa.KindBranch,
			Cond:         cond,
			Link:         word&(1<<24) != 0,
			TargetOffset: offset,
		}, nil

	case (word>>4)&0xFFFFF == 0x12FFF1 || (word>>4)&0xFFFFF == 0x12FFF3:
		return armisa.Instruction{}, fmt.Errorf("armvm: BX/BLX-shaped indirect branches are not supported")

	case (word>>26)&0x3 == 0x1: // 01: single data transfer
		return decodeSingleTransfer(word, cond)

	case (word>>25)&0x7 == 0x4: // 100: block transfer
		return decodeMultiTransfer(word, cond)

	case (word>>4)&0xF == 0x9 && (word>>22)&0x3F == 0: // multiply
		return decodeMultiply(word, cond), nil

	case (word>>26)&0x3 == 0x0 && (word>>23)&0x3 == 0x2 && (word>>20)&0x1 == 0 && (word>>4)&0x1 == 0 && isPSRTransferShape(word):
		return armisa.Instruction{}, fmt.Errorf("armvm: MRS/MSR PSR transfers are not supported")

	case (word>>26)&0x3 == 0x0 && isHalfwordShape(word):
		return armisa.Instruction{}, fmt.Errorf("armvm: halfword LDRH/STRH forms are not supported")

	case (word>>24)&0xF == 0xD && word&fpaVfpTag == 0: // FPA STF/LDF
		return decodeFPATransferMem(word, cond), nil

	case (word>>24)&0xF == 0xD && word&fpaVfpTag != 0: // VFP FLDD/FSTD
		return decodeVFPTransferMem(word, cond), nil

	case (word>>24)&0xF == 0xE: // coprocessor data-processing family
		return decodeCoproc(word, cond), nil

	case (word>>26)&0x3 == 0x0: // 00: data processing
		return decodeDataProcessing(word, cond), nil
	}

	return armisa.Instruction{}, fmt.Errorf("armvm: unrecognized instruction word %#08x", word)
}

const fpaVfpTag = 1 << 4

// isPSRTransferShape and isHalfwordShape intentionally never match any
// word this module's own encoder produces (checked structurally against
// bit patterns this backend's data-processing/single-transfer encoders
// never emit); they exist so a corrupted or hand-crafted image gets a
// named rejection instead of being silently misinterpreted as a data
// processing or transfer instruction.
func isPSRTransferShape(word uint32) bool {
	mrs := word&0x0FBF0FFF == 0x010F0000
	msrReg := word&0x0FB0FFF0 == 0x0120F000
	msrImm := word&0x0FB0F000 == 0x0320F000
	return mrs || msrReg || msrImm
}

func isHalfwordShape(word uint32) bool {
	return (word>>25)&0x1 == 0 && (word>>7)&0x1 == 1 && (word>>4)&0x1 == 1 && (word>>5)&0x3 != 0
}

func decodeOperand2(word uint32, immediateForm bool) armisa.Operand2 {
	if immediateForm {
		return armisa.Imm2(word & 0xFFF)
	}
	if word&0x10 != 0 {
		return armisa.Operand2{
			Kind:            armisa.Op2Shifted,
			Reg:             armisa.IntReg(word & 0xF),
			Shift:           armisa.ShiftType((word >> 5) & 0x3),
			ShiftReg:        armisa.IntReg((word >> 8) & 0xF),
			ShiftByRegister: true,
		}
	}
	amt := (word >> 7) & 0x1F
	shift := armisa.ShiftType((word >> 5) & 0x3)
	if amt == 0 && shift == armisa.ShiftROR {
		shift = armisa.ShiftRRX
	}
	return armisa.Operand2{
		Kind:        armisa.Op2Shifted,
		Reg:         armisa.IntReg(word & 0xF),
		Shift:       shift,
		ShiftAmount: amt,
	}
}

func decodeDataProcessing(word uint32, cond armisa.Condition) armisa.Instruction {
	immediateForm := word&(1<<25) != 0
	return armisa.Instruction{
		Kind:     armisa.KindDataProcessing,
		Cond:     cond,
		DPOp:     armisa.DPOp((word >> 21) & 0xF),
		SetFlags: word&(1<<20) != 0,
		Op1:      armisa.IntReg((word >> 16) & 0xF),
		Dest:     armisa.IntReg((word >> 12) & 0xF),
		Op2:      decodeOperand2(word, immediateForm),
	}
}

func decodeMultiply(word uint32, cond armisa.Condition) armisa.Instruction {
	return armisa.Instruction{
		Kind:       armisa.KindMultiply,
		Cond:       cond,
		SetFlags:   word&(1<<20) != 0,
		Accumulate: word&(1<<21) != 0,
		Dest:       armisa.IntReg((word >> 16) & 0xF),
		Rn:         armisa.IntReg((word >> 12) & 0xF),
		Rs:         armisa.IntReg((word >> 8) & 0xF),
		Rm:         armisa.IntReg(word & 0xF),
	}
}

func decodeSingleTransfer(word uint32, cond armisa.Condition) (armisa.Instruction, error) {
	registerForm := word&(1<<25) != 0
	inst := armisa.Instruction{
		Kind:       armisa.KindSingleTransfer,
		Cond:       cond,
		PreIndexed: word&(1<<24) != 0,
		OffsetSub:  word&(1<<23) == 0,
		Byte:       word&(1<<22) != 0,
		WriteBack:  word&(1<<21) != 0,
		Load:       word&(1<<20) != 0,
		Base:       armisa.IntReg((word >> 16) & 0xF),
		Dest:       armisa.IntReg((word >> 12) & 0xF),
	}
	if registerForm {
		inst.Offset = decodeOperand2(word, false)
	} else {
		inst.Offset = armisa.Imm2(word & 0xFFF)
	}
	return inst, nil
}

func decodeMultiTransfer(word uint32, cond armisa.Condition) (armisa.Instruction, error) {
	p := word&(1<<24) != 0
	u := word&(1<<23) != 0
	load := word&(1<<20) != 0
	return armisa.Instruction{
		Kind:      armisa.KindMultiTransfer,
		Cond:      cond,
		Status:    word&(1<<22) != 0,
		WriteBack: word&(1<<21) != 0,
		Load:      load,
		Base:      armisa.IntReg((word >> 16) & 0xF),
		RegList:   uint16(word & 0xFFFF),
		Mode:      multiModeFromPU(p, u, load),
	}, nil
}

func multiModeFromPU(p, u, load bool) armisa.MultiMode {
	switch {
	case !p && u:
		return armisa.ModeIA
	case p && u:
		return armisa.ModeIB
	case !p && !u:
		return armisa.ModeDA
	default:
		return armisa.ModeDB
	}
}

func decodeFPATransferMem(word uint32, cond armisa.Condition) armisa.Instruction {
	op := armisa.FPATransferStf
	if word&(1<<20) != 0 {
		op = armisa.FPATransferLdf
	}
	return armisa.Instruction{
		Kind:          armisa.KindFPATransfer,
		Cond:          cond,
		FPATransferOp: op,
		Load:          word&(1<<20) != 0,
		PreIndexed:    word&(1<<24) != 0,
		OffsetSub:     word&(1<<23) == 0,
		WriteBack:     word&(1<<21) != 0,
		Base:          armisa.IntReg((word >> 16) & 0xF),
		FDest:         (word >> 12) & 0xF,
		Offset:        armisa.Imm2(word & 0xFF),
		FPSize:        8,
	}
}

func decodeVFPTransferMem(word uint32, cond armisa.Condition) armisa.Instruction {
	op := armisa.VFPTransferFstd
	if word&(1<<20) != 0 {
		op = armisa.VFPTransferFldd
	}
	return armisa.Instruction{
		Kind:          armisa.KindVFPTransfer,
		Cond:          cond,
		VFPTransferOp: op,
		Load:          word&(1<<20) != 0,
		OffsetSub:     word&(1<<23) == 0,
		WriteBack:     word&(1<<21) != 0,
		Base:          armisa.IntReg((word >> 16) & 0xF),
		FDest:         (word >> 12) & 0xF,
		Offset:        armisa.Imm2(word & 0xFF),
		IsDouble:      true,
		FPSize:        8,
	}
}

func decodeCoproc(word uint32, cond armisa.Condition) armisa.Instruction {
	isVFP := word&fpaVfpTag != 0
	isTransfer := word&(1<<19) != 0
	op20 := (word >> 20) & 0xF

	if !isVFP && !isTransfer {
		return armisa.Instruction{
			Kind:      armisa.KindFPAData,
			Cond:      cond,
			FPAOp:     armisa.FPAOp(op20),
			FDest:     (word >> 12) & 0xF,
			FOp1:      (word >> 8) & 0xF,
			FOp2IsImm: word&(1<<7) != 0,
			FOp2Imm:   uint8(word & 0xF),
			FOp2Reg:   word & 0xF,
			Rounding:  armisa.RoundMode((word >> 5) & 0x3),
			FPSize:    8,
		}
	}
	if !isVFP && isTransfer {
		return armisa.Instruction{
			Kind:          armisa.KindFPATransfer,
			Cond:          cond,
			FPATransferOp: armisa.FPATransferOp(op20),
			FDest:         (word >> 12) & 0xF,
			FOp1:          (word >> 8) & 0xF,
			Rounding:      armisa.RoundMode((word >> 5) & 0x3),
		}
	}
	if isVFP && !isTransfer {
		return armisa.Instruction{
			Kind:     armisa.KindVFPData,
			Cond:     cond,
			VFPOp:    armisa.VFPOp(op20),
			FDest:    (word >> 12) & 0xF,
			FOp1:     (word >> 8) & 0xF,
			FOp2Reg:  word & 0xF,
			IsDouble: word&(1<<8) != 0,
			FPSize:   8,
		}
	}
	return armisa.Instruction{
		Kind:          armisa.KindVFPTransfer,
		Cond:          cond,
		VFPTransferOp: armisa.VFPTransferOp(op20),
		FDest:         (word >> 12) & 0xF,
		FOp1:          (word >> 8) & 0xF,
	}
}
