// Package armencoder implements the two-pass linearizer (spec §4.9,
// component C9): walk a section via package walker, emit one or more
// 32-bit words per instruction, record a back-patch entry for anything
// that references a label, then resolve every back-patch once every
// label's word offset is known.
package armencoder

import (
	"fmt"
	"math"

	"github.com/basic-arm/codegen/armisa"
	"github.com/basic-arm/codegen/imm"
	"github.com/basic-arm/codegen/oppool"
	"github.com/basic-arm/codegen/section"
	"github.com/basic-arm/codegen/walker"
)

// BackpatchKind discriminates the two fix-up shapes the encoder defers to
// pass 2.
type BackpatchKind uint8

const (
	BPBranch BackpatchKind = iota
	BPPcLdr
)

type backpatch struct {
	label armisa.LabelID
	word  int
	kind  BackpatchKind
}

// Result is the linearized output of encoding one section: the word
// stream and the final label->word-offset table (useful for tests and
// for disassembly tooling).
type Result struct {
	Words        []uint32
	LabelOffsets map[armisa.LabelID]int
}

type encoder struct {
	words        []uint32
	labelOffsets map[armisa.LabelID]int
	backpatches  []backpatch
	err          error
}

// Encode linearizes sec into a word stream, resolving every label
// reference. It returns an error if a branch distance or PC-relative
// load offset does not fit its encoding, if a referenced label is never
// defined, or if the instruction stream contains a form this backend
// does not support encoding (an indirect/BX-shaped branch, or a MUL/MLA
// whose Dest equals Rm).
func Encode(sec *section.Section) (*Result, error) {
	e := &encoder{labelOffsets: make(map[armisa.LabelID]int)}

	w := &walker.Walker{
		DataProcessing: e.dataProcessing,
		Multiply:       e.multiply,
		SingleTransfer: e.singleTransfer,
		MultiTransfer:  e.multiTransfer,
		Branch:         e.branch,
		SWI:            e.swi,
		LiteralLoad:    e.literalLoad,
		ADR:            e.adr,
		CondMove:       e.condMove,
		FPAData:        e.fpaData,
		FPATransfer:    e.fpaTransfer,
		VFPData:        e.vfpData,
		VFPTransfer:    e.vfpTransfer,
		Byte:           e.byteDirective,
		Word:           e.wordDirective,
		Double:         e.doubleDirective,
		Float:          e.floatDirective,
		String:         e.stringDirective,
		Align:          e.alignDirective,
		Label:          e.label,
		PhiPlaceholder: func(oppool.Index, *armisa.Instruction) error { return nil },
	}
	if err := w.Walk(sec); err != nil {
		return nil, err
	}
	if e.err != nil {
		return nil, e.err
	}

	e.appendConstantPools(sec)

	if err := e.resolveBackpatches(); err != nil {
		return nil, err
	}

	return &Result{Words: e.words, LabelOffsets: e.labelOffsets}, nil
}

func (e *encoder) emit(word uint32) { e.words = append(e.words, word) }

func (e *encoder) label(_ oppool.Index, inst *armisa.Instruction) error {
	e.labelOffsets[inst.Label] = len(e.words)
	return nil
}

// --- operand2 encoding, shared by data-processing and compares ---

func encodeOperand2(op2 armisa.Operand2) uint32 {
	switch op2.Kind {
	case armisa.Op2Immediate:
		return 1<<25 | (op2.Encoded & 0xFFF)
	case armisa.Op2Register:
		return uint32(op2.Reg) & 0xF
	case armisa.Op2Shifted:
		shiftBits := uint32(op2.Shift) & 0x3
		if op2.Shift == armisa.ShiftRRX {
			shiftBits = uint32(armisa.ShiftROR)
		}
		if op2.ShiftByRegister {
			return (uint32(op2.ShiftReg)&0xF)<<8 | shiftBits<<5 | 1<<4 | uint32(op2.Reg)&0xF
		}
		amt := op2.ShiftAmount & 0x1F
		return amt<<7 | shiftBits<<5 | uint32(op2.Reg)&0xF
	default:
		return 0
	}
}

func (e *encoder) dataProcessing(_ oppool.Index, inst *armisa.Instruction) error {
	word := uint32(inst.Cond)<<28 | uint32(inst.DPOp)<<21 | encodeOperand2(inst.Op2)
	if inst.SetFlags {
		word |= 1 << 20
	}
	word |= uint32(inst.Op1&0xF) << 16
	word |= uint32(inst.Dest&0xF) << 12
	e.emit(word)
	return nil
}

func (e *encoder) multiply(_ oppool.Index, inst *armisa.Instruction) error {
	if inst.Dest == inst.Rm {
		return fmt.Errorf("armencoder: MUL/MLA dest == Rm (%v) is not encodable", inst.Dest)
	}
	word := uint32(inst.Cond)<<28 | 0x90 | uint32(inst.Rs&0xF)<<8 | uint32(inst.Rm&0xF)
	word |= uint32(inst.Dest&0xF) << 16
	if inst.SetFlags {
		word |= 1 << 20
	}
	if inst.Accumulate {
		word |= 1 << 21
		word |= uint32(inst.Rn&0xF) << 12
	}
	e.emit(word)
	return nil
}

func (e *encoder) singleTransfer(_ oppool.Index, inst *armisa.Instruction) error {
	word := uint32(inst.Cond)<<28 | 0x01<<26
	if inst.Offset.Kind != armisa.Op2Immediate {
		word |= 1 << 25
	}
	if inst.PreIndexed {
		word |= 1 << 24
	}
	if !inst.OffsetSub {
		word |= 1 << 23
	}
	if inst.Byte {
		word |= 1 << 22
	}
	if inst.WriteBack {
		word |= 1 << 21
	}
	if inst.Load {
		word |= 1 << 20
	}
	word |= uint32(inst.Base&0xF) << 16
	word |= uint32(inst.Dest&0xF) << 12

	if inst.Offset.Kind == armisa.Op2Immediate {
		word |= inst.Offset.Encoded & 0xFFF
	} else {
		word |= encodeOperand2(inst.Offset) & 0xFFF
	}
	e.emit(word)
	return nil
}

// multiModePU returns the P,U bits for a multi-register transfer, taking
// the load/store-dependent aliasing of FA/FD/EA/ED into account exactly
// as the real ISA does (the "full/empty, ascending/descending" names mean
// different canonical modes depending on transfer direction).
func multiModePU(mode armisa.MultiMode, load bool) (p, u bool) {
	switch mode {
	case armisa.ModeIA:
		return false, true
	case armisa.ModeIB:
		return true, true
	case armisa.ModeDA:
		return false, false
	case armisa.ModeDB:
		return true, false
	case armisa.ModeFA:
		if load {
			return true, true
		}
		return true, false
	case armisa.ModeFD:
		if load {
			return false, true
		}
		return false, false
	case armisa.ModeEA:
		if load {
			return true, false
		}
		return true, true
	case armisa.ModeED:
		if load {
			return false, false
		}
		return false, true
	default:
		return false, true
	}
}

func (e *encoder) multiTransfer(_ oppool.Index, inst *armisa.Instruction) error {
	word := uint32(inst.Cond)<<28 | 0x08<<24
	p, u := multiModePU(inst.Mode, inst.Load)
	if p {
		word |= 1 << 24
	}
	if u {
		word |= 1 << 23
	}
	if inst.Status {
		word |= 1 << 22
	}
	if inst.WriteBack {
		word |= 1 << 21
	}
	if inst.Load {
		word |= 1 << 20
	}
	word |= uint32(inst.Base&0xF) << 16
	word |= uint32(inst.RegList)
	e.emit(word)
	return nil
}

func (e *encoder) branch(_ oppool.Index, inst *armisa.Instruction) error {
	if inst.HasIndirect {
		return fmt.Errorf("armencoder: indirect (BX-shaped) branches are not supported by this encoder")
	}
	word := uint32(inst.Cond)<<28 | 0x05<<25
	if inst.Link {
		word |= 1 << 24
	}
	if inst.Local {
		e.backpatches = append(e.backpatches, backpatch{label: inst.TargetLabel, word: len(e.words), kind: BPBranch})
		e.emit(word)
		return nil
	}
	// External target: the caller is expected to have already resolved
	// TargetOffset (the linker/assembly front-end's job, out of scope
	// here per spec §1).
	word |= uint32(inst.TargetOffset) & 0xFFFFFF
	e.emit(word)
	return nil
}

func (e *encoder) swi(_ oppool.Index, inst *armisa.Instruction) error {
	word := uint32(inst.Cond)<<28 | 0xF<<24 | (inst.SWICode & 0xFFFFFF)
	e.emit(word)
	return nil
}

func (e *encoder) literalLoad(_ oppool.Index, inst *armisa.Instruction) error {
	word := uint32(inst.Cond)<<28 | 0x01<<26 | 1<<24 | 1<<20
	word |= uint32(armisa.PC&0xF) << 16
	word |= uint32(inst.Dest&0xF) << 12
	e.backpatches = append(e.backpatches, backpatch{label: inst.LitLabel, word: len(e.words), kind: BPPcLdr})
	e.emit(word)
	return nil
}

// adr materializes a label's address directly via ADD/SUB Rd, PC, #imm,
// rather than loading through memory; it shares the PcLdr backpatch kind
// because both need "distance from this instruction's own word" but ADR
// patches a data-processing rotated immediate instead of an offset12.
func (e *encoder) adr(_ oppool.Index, inst *armisa.Instruction) error {
	word := uint32(inst.Cond)<<28 | uint32(armisa.DPAdd)<<21
	word |= uint32(armisa.PC&0xF) << 16
	word |= uint32(inst.Dest&0xF) << 12
	e.backpatches = append(e.backpatches, backpatch{label: inst.LitLabel, word: len(e.words), kind: BPPcLdr})
	e.emit(word)
	return nil
}

func (e *encoder) condMove(_ oppool.Index, inst *armisa.Instruction) error {
	trueCond := inst.TrueCond
	falseCond := inst.FalseCond
	if !inst.Fused {
		trueCond, falseCond = armisa.CondNE, armisa.CondEQ
	}
	e.emit(uint32(trueCond)<<28 | uint32(armisa.DPMov)<<21 | uint32(inst.Dest&0xF)<<12 | encodeOperand2(inst.Op2))
	e.emit(uint32(falseCond)<<28 | uint32(armisa.DPMov)<<21 | uint32(inst.Dest&0xF)<<12 | encodeOperand2(inst.Op3))
	return nil
}

// FPA/VFP data-processing and transfer instructions use a compact
// internal word layout of this backend's own choosing (this module never
// has to interoperate with a real FPA/VFP assembler's bit-exact
// coprocessor encoding — only its own VM decodes these words), documented
// once here rather than per function: byte 0 selects the op family via
// Kind already; bits mirror the Instruction struct's field order.

func (e *encoder) fpaData(_ oppool.Index, inst *armisa.Instruction) error {
	word := uint32(inst.Cond)<<28 | 0x0E<<24 | uint32(inst.FPAOp)<<20
	word |= inst.FDest << 12
	word |= inst.FOp1 << 8
	if inst.FOp2IsImm {
		word |= 1<<7 | uint32(inst.FOp2Imm)&0xF
	} else {
		word |= inst.FOp2Reg & 0xF
	}
	word |= uint32(inst.Rounding) << 5
	e.emit(word)
	return nil
}

func (e *encoder) fpaTransfer(_ oppool.Index, inst *armisa.Instruction) error {
	switch inst.FPATransferOp {
	case armisa.FPATransferStf, armisa.FPATransferLdf:
		word := uint32(inst.Cond)<<28 | 0x0D<<24
		if inst.Load {
			word |= 1 << 20
		}
		if inst.PreIndexed {
			word |= 1 << 24
		}
		if !inst.OffsetSub {
			word |= 1 << 23
		}
		if inst.WriteBack {
			word |= 1 << 21
		}
		word |= uint32(inst.Base&0xF) << 16
		word |= inst.FDest << 12
		word |= inst.Offset.Encoded & 0xFF
		e.emit(word)
	default:
		// bit19 tags this as a transfer-family op (FIX/FLT/WFS/RFS) to
		// disambiguate from fpaData, which otherwise shares the same
		// cond|0x0E<<24|op<<20 byte shape.
		word := uint32(inst.Cond)<<28 | 0x0E<<24 | 1<<19 | uint32(inst.FPATransferOp)<<20
		word |= inst.FDest << 12
		word |= inst.FOp1 << 8
		word |= uint32(inst.Rounding) << 5
		e.emit(word)
	}
	return nil
}

// fpaVfpTagBit marks a non-memory coprocessor word as VFP rather than
// FPA; both families otherwise share the cond|0x0E<<24 top byte in this
// backend's internal encoding.
const fpaVfpTagBit = 1 << 4

func (e *encoder) vfpData(_ oppool.Index, inst *armisa.Instruction) error {
	word := uint32(inst.Cond)<<28 | 0x0E<<24 | fpaVfpTagBit | uint32(inst.VFPOp)<<20
	word |= inst.FDest << 12
	word |= inst.FOp1 << 8
	word |= inst.FOp2Reg & 0xF
	if inst.IsDouble {
		word |= 1 << 8
	}
	e.emit(word)
	return nil
}

func (e *encoder) vfpTransfer(_ oppool.Index, inst *armisa.Instruction) error {
	switch inst.VFPTransferOp {
	case armisa.VFPTransferFldd, armisa.VFPTransferFstd:
		word := uint32(inst.Cond)<<28 | 0x0D<<24 | fpaVfpTagBit
		if inst.VFPTransferOp == armisa.VFPTransferFldd {
			word |= 1 << 20
		}
		if !inst.OffsetSub {
			word |= 1 << 23
		}
		if inst.WriteBack {
			word |= 1 << 21
		}
		word |= uint32(inst.Base&0xF) << 16
		word |= inst.FDest << 12
		word |= inst.Offset.Encoded & 0xFF
		e.emit(word)
	default:
		word := uint32(inst.Cond)<<28 | 0x0E<<24 | fpaVfpTagBit | 1<<19 | uint32(inst.VFPTransferOp)<<20
		word |= inst.FDest << 12
		word |= inst.FOp1 << 8
		e.emit(word)
	}
	return nil
}

func (e *encoder) byteDirective(_ oppool.Index, inst *armisa.Instruction) error {
	e.packBytes(inst.Bytes)
	return nil
}

func (e *encoder) wordDirective(_ oppool.Index, inst *armisa.Instruction) error {
	e.words = append(e.words, inst.Words...)
	return nil
}

func (e *encoder) doubleDirective(_ oppool.Index, inst *armisa.Instruction) error {
	for _, d := range inst.Doubles {
		lo, hi := doubleWords(d)
		if inst.ReverseWordOrder {
			e.emit(hi)
			e.emit(lo)
		} else {
			e.emit(lo)
			e.emit(hi)
		}
	}
	return nil
}

func (e *encoder) floatDirective(_ oppool.Index, inst *armisa.Instruction) error {
	for _, d := range inst.Doubles {
		e.emit(math.Float32bits(float32(d)))
	}
	return nil
}

func (e *encoder) stringDirective(_ oppool.Index, inst *armisa.Instruction) error {
	e.packBytes([]byte(inst.Str))
	return nil
}

func (e *encoder) alignDirective(_ oppool.Index, inst *armisa.Instruction) error {
	align := inst.AlignTo
	if align == 0 {
		align = 4
	}
	for uint32(len(e.words))%((align+3)/4) != 0 {
		e.emit(0)
	}
	return nil
}

func (e *encoder) packBytes(data []byte) {
	for i := 0; i < len(data); i += 4 {
		var word uint32
		for j := 0; j < 4; j++ {
			if i+j < len(data) {
				word |= uint32(data[i+j]) << (8 * j)
			}
		}
		e.emit(word)
	}
}

func doubleWords(d float64) (lo, hi uint32) {
	bitsVal := math.Float64bits(d)
	return uint32(bitsVal), uint32(bitsVal >> 32)
}

func (e *encoder) appendConstantPools(sec *section.Section) {
	for _, c := range sec.IntConsts {
		e.labelOffsets[c.Label] = len(e.words)
		e.emit(c.Value)
	}
	for _, c := range sec.RealConsts {
		e.labelOffsets[c.Label] = len(e.words)
		lo, hi := doubleWords(c.Value)
		if sec.Settings.ReverseFPAConsts {
			e.emit(hi)
			e.emit(lo)
		} else {
			e.emit(lo)
			e.emit(hi)
		}
	}
}

func (e *encoder) resolveBackpatches() error {
	for _, bp := range e.backpatches {
		target, ok := e.labelOffsets[bp.label]
		if !ok {
			return fmt.Errorf("armencoder: unresolved label %d", bp.label)
		}
		switch bp.kind {
		case BPBranch:
			dist := int64(target) - int64(bp.word) - 2
			if dist < -(1<<23) || dist > (1<<23)-1 {
				return fmt.Errorf("armencoder: branch distance %d words out of range at word %d", dist, bp.word)
			}
			e.words[bp.word] |= uint32(dist) & 0xFFFFFF
		case BPPcLdr:
			distWords := int64(target) - int64(bp.word) - 2
			distBytes := distWords * 4
			abs := distBytes
			if abs < 0 {
				abs = -abs
			}
			if abs > 4095 {
				return fmt.Errorf("armencoder: PC-relative distance %d bytes out of range at word %d", distBytes, bp.word)
			}
			if distBytes >= 0 {
				e.words[bp.word] |= 1 << 23
			}
			if isAdrWord(e.words[bp.word]) {
				enc, ok := imm.IsEncodable(uint32(abs))
				if !ok {
					return fmt.Errorf("armencoder: ADR distance %d is not a rotatable immediate", abs)
				}
				e.words[bp.word] |= 1<<25 | (uint32(enc) & 0xFFF)
			} else {
				e.words[bp.word] |= uint32(abs) & 0xFFF
			}
		}
	}
	return nil
}

// isAdrWord distinguishes an ADR placeholder (a data-processing ADD,
// identification bits 27-26 == 00) from an LDRC placeholder (single
// transfer, bits 27-26 == 01), both of which use the PcLdr backpatch kind.
func isAdrWord(word uint32) bool {
	return (word>>26)&0x3 == 0
}
