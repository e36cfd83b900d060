package armvm

import (
	"fmt"
	"math"

	"github.com/basic-arm/codegen/armisa"
)

func (vm *VM) fpaOperand2(inst *armisa.Instruction) (float64, error) {
	if inst.FOp2IsImm {
		v, ok := armisa.DecodeFPAReal(inst.FOp2Imm)
		if !ok {
			return 0, fmt.Errorf("armvm: invalid FPA immediate index %#x", inst.FOp2Imm)
		}
		return v, nil
	}
	return vm.FRegs[inst.FOp2Reg], nil
}

func (vm *VM) execFPAData(inst *armisa.Instruction) error {
	op1 := vm.FRegs[inst.FOp1]
	op2, err := vm.fpaOperand2(inst)
	if err != nil {
		return err
	}

	var result float64
	switch inst.FPAOp {
	case armisa.FPAAdf:
		result = op1 + op2
	case armisa.FPASuf:
		result = op1 - op2
	case armisa.FPARsf:
		result = op2 - op1
	case armisa.FPAMuf:
		result = op1 * op2
	case armisa.FPADvf:
		if op2 == 0 {
			vm.FPAStatus.DivByZero = true
		}
		result = op1 / op2
	case armisa.FPARdf:
		if op1 == 0 {
			vm.FPAStatus.DivByZero = true
		}
		result = op2 / op1
	case armisa.FPAMvf:
		result = op2
	case armisa.FPAMnf:
		result = -op2
	case armisa.FPAAbs:
		result = math.Abs(op2)
	case armisa.FPASqt:
		result = math.Sqrt(op2)
	case armisa.FPASin:
		result = math.Sin(op2)
	case armisa.FPACos:
		result = math.Cos(op2)
	default:
		return fmt.Errorf("armvm: unknown FPA op %v", inst.FPAOp)
	}
	vm.FRegs[inst.FDest] = result
	vm.FRegSize[inst.FDest] = 8
	return nil
}

// fixRound applies an FPA rounding mode to a float before truncating it to
// an integer, per spec §4.10 ("Near/+Inf/-Inf/Zero -> round/ceil/floor/
// trunc").
func fixRound(v float64, mode armisa.RoundMode) int32 {
	switch mode {
	case armisa.RoundPlusInf:
		return int32(math.Ceil(v))
	case armisa.RoundMinusInf:
		return int32(math.Floor(v))
	case armisa.RoundZero:
		return int32(math.Trunc(v))
	default: // RoundNear
		return int32(math.Round(v))
	}
}

func (vm *VM) execFPATransfer(inst *armisa.Instruction) error {
	switch inst.FPATransferOp {
	case armisa.FPATransferFlt:
		vm.FRegs[inst.FDest] = float64(int32(vm.readReg(uint8(inst.FOp1))))
		vm.FRegSize[inst.FDest] = 8
	case armisa.FPATransferFix:
		vm.writeReg(uint8(inst.FDest), uint32(fixRound(vm.FRegs[inst.FOp1], inst.Rounding)))
	case armisa.FPATransferWfs:
		vm.FPAStatus = FPAStatus{
			LogDomain: vm.readReg(uint8(inst.FOp1))&1 != 0,
			DivByZero: vm.readReg(uint8(inst.FOp1))&2 != 0,
		}
	case armisa.FPATransferRfs:
		vm.writeReg(uint8(inst.FDest), vm.FPAStatus.Word())
	case armisa.FPATransferStf, armisa.FPATransferLdf:
		return vm.execFPATransferMem(inst)
	default:
		return fmt.Errorf("armvm: unknown FPA transfer op %v", inst.FPATransferOp)
	}
	return nil
}

func (vm *VM) execFPATransferMem(inst *armisa.Instruction) error {
	addr, writeBack := vm.transferAddress(fpaMemAsSingleTransfer(inst))
	if inst.Load {
		d, err := vm.readDouble(addr)
		if err != nil {
			return err
		}
		vm.FRegs[inst.FDest] = d
		vm.FRegSize[inst.FDest] = 8
	} else {
		if err := vm.writeDouble(addr, vm.FRegs[inst.FDest]); err != nil {
			return err
		}
	}
	if !inst.PreIndexed || inst.WriteBack {
		vm.Regs[inst.Base] = writeBack
	}
	return nil
}

// fpaMemAsSingleTransfer rewrites an FPA/VFP memory-transfer Instruction's
// word-scaled 8-bit Offset into the byte-scaled form transferAddress
// expects, since FPA/VFP STF/LDF/FLDD/FSTD always address in 4-byte
// units while the integer single-transfer path already stores a byte
// offset.
func fpaMemAsSingleTransfer(inst *armisa.Instruction) *armisa.Instruction {
	clone := *inst
	clone.Offset = armisa.Imm2((inst.Offset.Encoded & 0xFF) * 4)
	return &clone
}

func (vm *VM) execVFPData(inst *armisa.Instruction) error {
	op1 := vm.VFPDoubles[inst.FOp1]
	op2 := vm.VFPDoubles[inst.FOp2Reg]

	switch inst.VFPOp {
	case armisa.VFPAdd:
		vm.VFPDoubles[inst.FDest] = op1 + op2
	case armisa.VFPSub:
		vm.VFPDoubles[inst.FDest] = op1 - op2
	case armisa.VFPMul:
		vm.VFPDoubles[inst.FDest] = op1 * op2
	case armisa.VFPDiv:
		vm.VFPDoubles[inst.FDest] = op1 / op2
	case armisa.VFPNeg:
		vm.VFPDoubles[inst.FDest] = -op1
	case armisa.VFPAbs:
		vm.VFPDoubles[inst.FDest] = math.Abs(op1)
	case armisa.VFPSqrt:
		vm.VFPDoubles[inst.FDest] = math.Sqrt(op1)
	case armisa.VFPCpy:
		vm.VFPDoubles[inst.FDest] = op1
	case armisa.VFPCmp:
		vm.compareVFP(op1, op2)
	case armisa.VFPSitod:
		vm.VFPDoubles[inst.FDest] = float64(math.Float32frombits(vm.VFPSingles[inst.FOp1]))
	case armisa.VFPTosizd:
		vm.VFPSingles[inst.FDest] = math.Float32bits(float32(vm.VFPDoubles[inst.FOp1]))
	default:
		return fmt.Errorf("armvm: unknown VFP op %v", inst.VFPOp)
	}
	return nil
}

// compareVFP sets the flags FCMP would leave in FPSCR, mirroring them
// straight into CPSR: this backend's encoder folds FCMP+FMRX into a
// single VFPCmp word (see fpbuilder.Fcmp), so there is never a separate
// encoded FMRX for the VM to execute.
func (vm *VM) compareVFP(a, b float64) {
	n, z, c, v := false, false, false, false
	switch {
	case math.IsNaN(a) || math.IsNaN(b):
		c, v = true, true
	case a == b:
		z, c = true, true
	case a > b:
		c = true
	default:
		n = true
	}
	vm.CPSR.N, vm.CPSR.Z, vm.CPSR.C, vm.CPSR.V = n, z, c, v
	vm.FPSCR = vm.CPSR.Word()
}

func (c CPSR) Word() uint32 {
	var w uint32
	if c.N {
		w |= 1 << 31
	}
	if c.Z {
		w |= 1 << 30
	}
	if c.C {
		w |= 1 << 29
	}
	if c.V {
		w |= 1 << 28
	}
	return w
}

func (vm *VM) execVFPTransfer(inst *armisa.Instruction) error {
	switch inst.VFPTransferOp {
	case armisa.VFPTransferFmrx:
		vm.CPSR.N = vm.FPSCR&(1<<31) != 0
		vm.CPSR.Z = vm.FPSCR&(1<<30) != 0
		vm.CPSR.C = vm.FPSCR&(1<<29) != 0
		vm.CPSR.V = vm.FPSCR&(1<<28) != 0
	case armisa.VFPTransferFmxr:
		vm.FPSCR = vm.readReg(uint8(inst.FOp1))
	case armisa.VFPTransferFmrs:
		vm.writeReg(uint8(inst.FDest), vm.VFPSingles[inst.FOp1])
	case armisa.VFPTransferFmsr:
		vm.VFPSingles[inst.FDest] = vm.readReg(uint8(inst.FOp1))
	case armisa.VFPTransferFcvtds:
		vm.VFPDoubles[inst.FDest] = float64(math.Float32frombits(vm.VFPSingles[inst.FOp1]))
	case armisa.VFPTransferFcvtsd:
		vm.VFPSingles[inst.FDest] = math.Float32bits(float32(vm.VFPDoubles[inst.FOp1]))
	case armisa.VFPTransferFldd, armisa.VFPTransferFstd:
		return vm.execVFPTransferMem(inst)
	default:
		return fmt.Errorf("armvm: unknown VFP transfer op %v", inst.VFPTransferOp)
	}
	return nil
}

func (vm *VM) execVFPTransferMem(inst *armisa.Instruction) error {
	addr, writeBack := vm.transferAddress(fpaMemAsSingleTransfer(inst))
	if inst.Load {
		d, err := vm.readDouble(addr)
		if err != nil {
			return err
		}
		vm.VFPDoubles[inst.FDest] = d
	} else {
		if err := vm.writeDouble(addr, vm.VFPDoubles[inst.FDest]); err != nil {
			return err
		}
	}
	if inst.WriteBack {
		vm.Regs[inst.Base] = writeBack
	}
	return nil
}
