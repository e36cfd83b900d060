package armisa

// ShiftType is the kind of shift applied to a shifted-register Operand2.
type ShiftType uint8

const (
	ShiftLSL ShiftType = iota
	ShiftLSR
	ShiftASR
	ShiftROR
	ShiftRRX // rotate right through carry by one bit; encoded as ROR #0
)

// ShiftASL is the historical alias for ShiftLSL used by some ARM
// assemblers (logical == arithmetic for a left shift).
const ShiftASL = ShiftLSL

// Op2Kind discriminates the three shapes Operand2 may take.
type Op2Kind uint8

const (
	Op2Register Op2Kind = iota
	Op2Immediate
	Op2Shifted
)

// Operand2 is ARM's second data-processing operand: a bare register, a
// rotated 8-bit immediate already folded into its 12-bit encoded form, or
// a register with a shift applied.
type Operand2 struct {
	Kind Op2Kind

	// Op2Register / Op2Shifted
	Reg IntReg

	// Op2Immediate: the already-encoded 12-bit value, (rotate<<8)|imm8.
	Encoded uint32

	// Op2Shifted
	Shift        ShiftType
	ShiftAmount  uint32 // valid when ShiftByRegister is false
	ShiftReg     IntReg // valid when ShiftByRegister is true
	ShiftByRegister bool
}

// Reg2 builds a bare-register Operand2.
func Reg2(r IntReg) Operand2 {
	return Operand2{Kind: Op2Register, Reg: r}
}

// Imm2 builds an Operand2 from an already-encoded 12-bit immediate.
func Imm2(encoded uint32) Operand2 {
	return Operand2{Kind: Op2Immediate, Encoded: encoded & 0xFFF}
}

// ShiftedImm2 builds a register shifted by an immediate amount.
func ShiftedImm2(r IntReg, shift ShiftType, amount uint32) Operand2 {
	return Operand2{Kind: Op2Shifted, Reg: r, Shift: shift, ShiftAmount: amount & 0x1F}
}

// ShiftedReg2 builds a register shifted by another register's low byte.
func ShiftedReg2(r IntReg, shift ShiftType, shiftReg IntReg) Operand2 {
	return Operand2{Kind: Op2Shifted, Reg: r, Shift: shift, ShiftReg: shiftReg, ShiftByRegister: true}
}
