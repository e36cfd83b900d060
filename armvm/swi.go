package armvm

import (
	"fmt"

	"github.com/basic-arm/codegen/armisa"
)

// RISC OS SWI numbers this backend's runtime actually dispatches into
// (spec §4.10's "fixed table implemented as a switch"). No attempt is
// made to cover the rest of the RISC OS SWI space.
const (
	swiWriteC           = 0x00
	swiWrite0           = 0x02
	swiNewLine          = 0x03
	swiReadC            = 0x04
	swiByte             = 0x06
	swiWord             = 0x07
	swiGetEnv           = 0x10
	swiExit             = 0x11
	swiReadPoint        = 0x32
	swiWriteN           = 0x46
	swiConvertHex8      = 0xD4
	swiConvertInteger4  = 0xDC
	swiXBit             = 0x20000
	osByteInkey         = 129
	osBytePosVPos       = 134
)

func (vm *VM) execSWI(inst *armisa.Instruction) error {
	code := inst.SWICode &^ swiXBit

	if code >= 256 {
		c := code - 256
		if c >= 32 {
			vm.Out = append(vm.Out, byte(c))
			return nil
		}
	}

	switch code {
	case swiWriteC:
		c := byte(vm.Regs[0] & 0xFF)
		if c == '\r' || c == '\n' || (c >= 32 && c < 127) {
			vm.Out = append(vm.Out, c)
		}
	case swiWrite0:
		addr := vm.Regs[0]
		for {
			b, err := vm.readByte(addr)
			if err != nil {
				return err
			}
			if b == 0 {
				addr++
				break
			}
			vm.Out = append(vm.Out, b)
			addr++
		}
		vm.Regs[0] = addr
	case swiNewLine:
		vm.Out = append(vm.Out, '\n')
	case swiReadC:
		if len(vm.Stdin) > 0 {
			vm.Regs[0] = uint32(vm.Stdin[0])
			vm.Stdin = vm.Stdin[1:]
		} else {
			vm.Regs[0] = 0
		}
	case swiByte:
		switch vm.Regs[0] & 0xFF {
		case osByteInkey:
			if len(vm.Stdin) > 0 {
				vm.Regs[1] = uint32(vm.Stdin[0])
				vm.Stdin = vm.Stdin[1:]
			} else {
				vm.Regs[1] = 0xFFFFFFFF
			}
		case osBytePosVPos:
			vm.Regs[1], vm.Regs[2] = 0, 0
		}
	case swiWord:
		switch vm.Regs[0] & 0xFF {
		case 7:
			if err := vm.writeWord(vm.Regs[1], vm.clock); err != nil {
				return err
			}
			vm.clock++
		}
	case swiExit:
		vm.Quit = true
	case swiGetEnv:
		vm.Regs[1] = vm.StartAddr + uint32(len(vm.Memory))
	case swiConvertHex8:
		return vm.convertFormatted(fmt.Sprintf("%08X", vm.Regs[0]))
	case swiConvertInteger4:
		return vm.convertFormatted(fmt.Sprintf("%d", int32(vm.Regs[0])))
	case swiWriteN:
		addr, n := vm.Regs[0], vm.Regs[1]
		for i := uint32(0); i < n; i++ {
			b, err := vm.readByte(addr + i)
			if err != nil {
				return err
			}
			vm.Out = append(vm.Out, b)
		}
	case swiReadPoint:
		vm.Regs[2], vm.Regs[3], vm.Regs[4] = 0, 0, 0
	default:
		return fmt.Errorf("armvm: unsupported SWI %#x", code)
	}
	return nil
}

// convertFormatted writes s (plus a NUL terminator) into the buffer at R1
// with capacity R2, per OS_ConvertHex8/OS_ConvertInteger4: on overflow it
// sets V and writes a fixed error code word at the top of memory instead
// of corrupting past the caller's buffer.
func (vm *VM) convertFormatted(s string) error {
	buf := vm.Regs[1]
	capacity := vm.Regs[2]
	if uint32(len(s)+1) > capacity {
		vm.CPSR.V = true
		errAddr := vm.StartAddr + uint32(len(vm.Memory)) - 4
		return vm.writeWord(errAddr, 0xFFFFFFFF)
	}
	for i := 0; i < len(s); i++ {
		if err := vm.writeByte(buf+uint32(i), s[i]); err != nil {
			return err
		}
	}
	if err := vm.writeByte(buf+uint32(len(s)), 0); err != nil {
		return err
	}
	vm.Regs[0] = buf + uint32(len(s)) + 1
	return nil
}
