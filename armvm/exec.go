package armvm

import (
	"fmt"

	"github.com/basic-arm/codegen/armisa"
)

// Run executes from the current PC until the code region is exhausted or
// an OS_Exit SWI sets the quit flag, mirroring the source interpreter's
// fetch-decode-dispatch loop (spec §4.10).
func (vm *VM) Run() error {
	for {
		pcWord := (int64(vm.Regs[15]) - int64(vm.StartAddr)) / 4
		if vm.Quit || pcWord < 0 || pcWord >= int64(vm.CodeWords) {
			return nil
		}
		word, err := vm.readWord(vm.Regs[15])
		if err != nil {
			return err
		}
		inst, err := decode(word)
		if err != nil {
			return err
		}
		if !evaluateCondition(vm.CPSR, inst.Cond) {
			vm.Regs[15] += 4
			continue
		}
		nextPC := vm.Regs[15] + 4
		if err := vm.dispatch(&inst); err != nil {
			return err
		}
		if vm.Regs[15] == nextPC-4 {
			// the handler didn't branch; advance normally.
			vm.Regs[15] = nextPC
		}
	}
}

func (vm *VM) dispatch(inst *armisa.Instruction) error {
	switch inst.Kind {
	case armisa.KindDataProcessing:
		return vm.execDataProcessing(inst)
	case armisa.KindMultiply:
		return vm.execMultiply(inst)
	case armisa.KindSingleTransfer:
		return vm.execSingleTransfer(inst)
	case armisa.KindMultiTransfer:
		return vm.execMultiTransfer(inst)
	case armisa.KindBranch:
		return vm.execBranch(inst)
	case armisa.KindSWI:
		return vm.execSWI(inst)
	case armisa.KindFPAData:
		return vm.execFPAData(inst)
	case armisa.KindFPATransfer:
		return vm.execFPATransfer(inst)
	case armisa.KindVFPData:
		return vm.execVFPData(inst)
	case armisa.KindVFPTransfer:
		return vm.execVFPTransfer(inst)
	default:
		return fmt.Errorf("armvm: no execution handler for instruction kind %v", inst.Kind)
	}
}

// evalOperand2 resolves an Operand2 against the current register file and
// flags, returning the value and the carry-out the barrel shifter
// produced (used only when the caller is a flag-setting instruction).
func (vm *VM) evalOperand2(op armisa.Operand2) (uint32, bool) {
	switch op.Kind {
	case armisa.Op2Immediate:
		rot := (op.Encoded >> 8) & 0xF
		imm8 := op.Encoded & 0xFF
		if rot == 0 {
			return imm8, vm.CPSR.C
		}
		val := (imm8 >> (rot * 2)) | (imm8 << (32 - rot*2))
		return val, val&0x80000000 != 0
	case armisa.Op2Register:
		return vm.readReg(uint8(op.Reg)), vm.CPSR.C
	default: // Op2Shifted
		amount := op.ShiftAmount
		if op.ShiftByRegister {
			amount = vm.readReg(uint8(op.ShiftReg)) & 0xFF
		}
		return shiftWithCarry(vm.readReg(uint8(op.Reg)), amount, op.Shift, vm.CPSR.C)
	}
}

func (vm *VM) execDataProcessing(inst *armisa.Instruction) error {
	op1 := vm.readReg(uint8(inst.Op1))
	op2, shiftCarry := vm.evalOperand2(inst.Op2)
	var result uint32
	arithmetic := false
	subtractLike := false

	switch inst.DPOp {
	case armisa.DPAnd, armisa.DPTst:
		result = op1 & op2
	case armisa.DPEor, armisa.DPTeq:
		result = op1 ^ op2
	case armisa.DPOrr:
		result = op1 | op2
	case armisa.DPBic:
		result = op1 &^ op2
	case armisa.DPMov:
		result = op2
	case armisa.DPMvn:
		result = ^op2
	case armisa.DPAdd, armisa.DPCmn:
		result = op1 + op2
		arithmetic, subtractLike = true, false
	case armisa.DPAdc:
		carryIn := uint32(0)
		if vm.CPSR.C {
			carryIn = 1
		}
		result = op1 + op2 + carryIn
		arithmetic, subtractLike = true, false
	case armisa.DPSub, armisa.DPCmp:
		result = op1 - op2
		arithmetic, subtractLike = true, true
	case armisa.DPSbc:
		borrow := uint32(1)
		if vm.CPSR.C {
			borrow = 0
		}
		result = op1 - op2 - borrow
		arithmetic, subtractLike = true, true
	case armisa.DPRsb:
		result = op2 - op1
		arithmetic, subtractLike = true, true
		op1, op2 = op2, op1
	case armisa.DPRsc:
		borrow := uint32(1)
		if vm.CPSR.C {
			borrow = 0
		}
		result = op2 - op1 - borrow
		arithmetic, subtractLike = true, true
		op1, op2 = op2, op1
	default:
		return fmt.Errorf("armvm: unknown data processing opcode %v", inst.DPOp)
	}

	if inst.SetFlags {
		vm.updateNZ(result)
		switch {
		case arithmetic && subtractLike:
			vm.CPSR.C = subCarry(op1, op2)
			vm.CPSR.V = subOverflow(op1, op2, result)
		case arithmetic:
			vm.CPSR.C = addCarry(op1, op2, result)
			vm.CPSR.V = addOverflow(op1, op2, result)
		default:
			vm.CPSR.C = shiftCarry
		}
	}

	if !inst.DPOp.IsCompare() {
		vm.writeReg(uint8(inst.Dest), result)
		if inst.Dest == armisa.R15 {
			vm.Regs[15] &^= 3
		}
	}
	return nil
}

func (vm *VM) execMultiply(inst *armisa.Instruction) error {
	rm := vm.readReg(uint8(inst.Rm))
	rs := vm.readReg(uint8(inst.Rs))
	result := rm * rs
	if inst.Accumulate {
		result += vm.readReg(uint8(inst.Rn))
	}
	if inst.SetFlags {
		vm.updateNZ(result)
	}
	vm.writeReg(uint8(inst.Dest), result)
	return nil
}

func (vm *VM) transferAddress(inst *armisa.Instruction) (addr, writeBackAddr uint32) {
	base := vm.readReg(uint8(inst.Base))
	offVal, _ := vm.evalOperand2(inst.Offset)
	var effective uint32
	if inst.OffsetSub {
		effective = base - offVal
	} else {
		effective = base + offVal
	}
	if inst.PreIndexed {
		return effective, effective
	}
	return base, effective
}

func (vm *VM) execSingleTransfer(inst *armisa.Instruction) error {
	addr, writeBack := vm.transferAddress(inst)
	if inst.Load {
		if inst.Byte {
			b, err := vm.readByte(addr)
			if err != nil {
				return err
			}
			vm.writeReg(uint8(inst.Dest), uint32(b))
		} else {
			w, err := vm.readWord(addr)
			if err != nil {
				return err
			}
			vm.writeReg(uint8(inst.Dest), w)
			if inst.Dest == armisa.R15 {
				vm.Regs[15] &^= 3
			}
		}
	} else {
		v := vm.readReg(uint8(inst.Dest))
		if inst.Byte {
			if err := vm.writeByte(addr, byte(v)); err != nil {
				return err
			}
		} else {
			if err := vm.writeWord(addr, v); err != nil {
				return err
			}
		}
	}
	if !inst.PreIndexed || inst.WriteBack {
		vm.Regs[inst.Base] = writeBack
	}
	return nil
}

func (vm *VM) execMultiTransfer(inst *armisa.Instruction) error {
	base := vm.readReg(uint8(inst.Base))
	ascending := inst.Mode == armisa.ModeIA || inst.Mode == armisa.ModeIB
	before := inst.Mode == armisa.ModeIB || inst.Mode == armisa.ModeDB

	count := 0
	for i := 0; i < 16; i++ {
		if inst.RegList&(1<<uint(i)) != 0 {
			count++
		}
	}
	addr := base
	if !ascending {
		addr = base - uint32(count*4)
		if !before {
			addr += 4
		}
	} else if before {
		addr += 4
	}

	for i := 0; i < 16; i++ {
		if inst.RegList&(1<<uint(i)) == 0 {
			continue
		}
		if inst.Load {
			w, err := vm.readWord(addr)
			if err != nil {
				return err
			}
			vm.writeReg(uint8(i), w)
		} else {
			if err := vm.writeWord(addr, vm.readReg(uint8(i))); err != nil {
				return err
			}
		}
		addr += 4
	}

	if inst.WriteBack {
		if ascending {
			vm.Regs[inst.Base] = base + uint32(count*4)
		} else {
			vm.Regs[inst.Base] = base - uint32(count*4)
		}
	}
	if inst.Load && inst.RegList&(1<<15) != 0 {
		vm.Regs[15] &^= 3
	}
	return nil
}

func (vm *VM) execBranch(inst *armisa.Instruction) error {
	if inst.HasIndirect {
		return fmt.Errorf("armvm: indirect branches are not supported")
	}
	targetWord := (vm.Regs[15]-vm.StartAddr)/4 + 2 + uint32(inst.TargetOffset)
	target := vm.StartAddr + targetWord*4
	if inst.Link {
		vm.Regs[14] = vm.Regs[15] + 4
	}
	vm.Regs[15] = target
	return nil
}
