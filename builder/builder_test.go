package builder_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/basic-arm/codegen/armisa"
	"github.com/basic-arm/codegen/builder"
	"github.com/basic-arm/codegen/imm"
	"github.com/basic-arm/codegen/oppool"
	"github.com/basic-arm/codegen/section"
	"github.com/basic-arm/codegen/settings"
)

func newSection(t *testing.T) *section.Section {
	t.Helper()
	pool := oppool.New[armisa.Op](16)
	return section.New(pool, nil, settings.Default())
}

func TestMovImmSingleInstruction(t *testing.T) {
	sec := newSection(t)
	insts, err := builder.MovImm(sec, armisa.CondAL, armisa.R0, 173)
	require.NoError(t, err)
	require.Len(t, insts, 1)
	require.Equal(t, armisa.DPMov, insts[0].DPOp)
}

func TestMovImmMvnFallback(t *testing.T) {
	sec := newSection(t)
	// 0xFFFFFF00 == ^0xFF, encodable directly as MVN #0xFF but not as a
	// plain rotated immediate (only one bit pattern's worth of 1s at the
	// top, not representable as a single rotated 8-bit value containing
	// mostly 1 bits starting from bit 0).
	insts, err := builder.MovImm(sec, armisa.CondAL, armisa.R0, 0xFFFFFF00)
	require.NoError(t, err)
	require.Len(t, insts, 1)
	require.Equal(t, armisa.DPMvn, insts[0].DPOp)
}

func TestMovImmLvl2Cascade(t *testing.T) {
	sec := newSection(t)
	insts, err := builder.MovImm(sec, armisa.CondAL, armisa.R0, 19968+3)
	require.NoError(t, err)
	require.Len(t, insts, 2)
	require.Equal(t, armisa.DPMov, insts[0].DPOp)
	require.Equal(t, armisa.DPOrr, insts[1].DPOp)
}

func TestMulRejectsDestEqualsRmEqualsRs(t *testing.T) {
	sec := newSection(t)
	_, err := builder.Mul(sec, armisa.CondAL, false, armisa.R1, armisa.R1, armisa.R1)
	require.Error(t, err)
}

func TestBranchLocalUnresolved(t *testing.T) {
	sec := newSection(t)
	label, err := builder.Label(sec)
	require.NoError(t, err)

	inst, err := builder.Branch(sec, armisa.CondAL, false, label)
	require.NoError(t, err)
	require.True(t, inst.Local)
	require.Equal(t, label, inst.TargetLabel)
}

func TestLoadConstDeduplicatesThroughSection(t *testing.T) {
	sec := newSection(t)
	a, err := builder.LoadConst(sec, armisa.CondAL, armisa.R0, 0x12345678, false)
	require.NoError(t, err)
	b, err := builder.LoadConst(sec, armisa.CondAL, armisa.R1, 0x12345678, false)
	require.NoError(t, err)
	require.Equal(t, a.LitLabel, b.LitLabel)
}

func TestStmLdmRoundTripFields(t *testing.T) {
	sec := newSection(t)
	inst, err := builder.Stm(sec, armisa.CondAL, armisa.SP, 0x000F, armisa.ModeFD, true)
	require.NoError(t, err)
	require.False(t, inst.Load)
	require.Equal(t, uint16(0x000F), inst.RegList)
	require.Equal(t, armisa.ModeFD, inst.Mode)
	require.True(t, inst.WriteBack)
}

// immOf reads the decoded numeric value out of an Imm2-kind Operand2, for
// asserting what a cascade actually encoded rather than just its shape.
func immOf(t *testing.T, op2 armisa.Operand2) uint32 {
	t.Helper()
	require.Equal(t, armisa.Op2Immediate, op2.Kind)
	return imm.Decode(imm.Encoded(op2.Encoded))
}

func TestAddImmSingleInstruction(t *testing.T) {
	sec := newSection(t)
	insts, err := builder.AddImm(sec, armisa.CondAL, false, armisa.R0, armisa.R1, 127)
	require.NoError(t, err)
	require.Len(t, insts, 1)
	require.Equal(t, armisa.DPAdd, insts[0].DPOp)
	require.Equal(t, uint32(127), immOf(t, insts[0].Op2))
}

// #257 does not fit a single rotated immediate and is not negative, so
// AddImm must fall through to the two-instruction split, both legs
// summing back to 257 (spec's #257 -> two ADDs scenario).
func TestAddImmSplitsUnencodableValue(t *testing.T) {
	sec := newSection(t)
	insts, err := builder.AddImm(sec, armisa.CondAL, false, armisa.R0, armisa.R1, 257)
	require.NoError(t, err)
	require.Len(t, insts, 2)
	require.Equal(t, armisa.DPAdd, insts[0].DPOp)
	require.Equal(t, armisa.DPAdd, insts[1].DPOp)
	require.Equal(t, armisa.R1, insts[0].Op1)
	require.Equal(t, armisa.R0, insts[0].Dest)
	require.Equal(t, armisa.R0, insts[1].Op1)
	require.Equal(t, armisa.R0, insts[1].Dest)
	require.Equal(t, uint32(257), immOf(t, insts[0].Op2)+immOf(t, insts[1].Op2))
}

// 0xF0F0F0F0 is singly unencodable, its negation (0x0F0F0F10) is also
// unencodable, and it has no two-instruction split (no even-rotated byte
// leaves an encodable remainder), so AddImm must spill it through the
// literal pool: one LDRC feeding one register-form ADD.
func TestAddImmSpillsToLiteralPool(t *testing.T) {
	sec := newSection(t)
	insts, err := builder.AddImm(sec, armisa.CondAL, false, armisa.R0, armisa.R1, 0xF0F0F0F0)
	require.NoError(t, err)
	require.Len(t, insts, 2)
	require.Equal(t, uint8(4), insts[0].LitSize)
	require.Equal(t, armisa.DPAdd, insts[1].DPOp)
	require.Equal(t, armisa.Op2Register, insts[1].Op2.Kind)
	require.Len(t, sec.IntConsts, 1)
	require.Equal(t, uint32(0xF0F0F0F0), sec.IntConsts[0].Value)
}

// 0xFFFFFF00 is -256 as a signed 32-bit value; ADD has no single or split
// encoding for it, but its negation (256) is directly encodable, so the
// cascade swaps to a single SUB rather than spilling or splitting.
func TestAddImmAltSwapsToSub(t *testing.T) {
	sec := newSection(t)
	insts, err := builder.AddImm(sec, armisa.CondAL, false, armisa.R0, armisa.R1, 0xFFFFFF00)
	require.NoError(t, err)
	require.Len(t, insts, 1)
	require.Equal(t, armisa.DPSub, insts[0].DPOp)
	require.Equal(t, uint32(256), immOf(t, insts[0].Op2))
}

func TestSubImmAltSwapsToAdd(t *testing.T) {
	sec := newSection(t)
	// 0xFFFFFF00 is -256 and singly unencodable for SUB, but its negation
	// (256) is directly encodable, so SUB's alt-swap fires to ADD.
	insts, err := builder.SubImm(sec, armisa.CondAL, false, armisa.R0, armisa.R1, 0xFFFFFF00)
	require.NoError(t, err)
	require.Len(t, insts, 1)
	require.Equal(t, armisa.DPAdd, insts[0].DPOp)
	require.Equal(t, uint32(256), immOf(t, insts[0].Op2))
}

func TestAddImmSplitSkippedUnderConditionalFlags(t *testing.T) {
	sec := newSection(t)
	// setFlags under a non-AL condition must not split into two
	// instructions (the intermediate ADD would clobber flags before the
	// conditional sequence completes), so 257 goes straight to the
	// literal pool instead.
	insts, err := builder.AddImm(sec, armisa.CondGT, true, armisa.R0, armisa.R1, 257)
	require.NoError(t, err)
	require.Len(t, insts, 2)
	require.Equal(t, uint8(4), insts[0].LitSize)
	require.Equal(t, armisa.Op2Register, insts[1].Op2.Kind)
}

func TestRsbImmSingleInstruction(t *testing.T) {
	sec := newSection(t)
	insts, err := builder.RsbImm(sec, armisa.CondAL, false, armisa.R0, armisa.R1, 127)
	require.NoError(t, err)
	require.Len(t, insts, 1)
	require.Equal(t, armisa.DPRsb, insts[0].DPOp)
}

// RSB has no sibling opcode, so a negative unencodable value is handled
// by negating op1 (RSB dest, op1, #0) and subtracting the positive
// magnitude with a SUB.
func TestRsbImmNegatesThenSubtracts(t *testing.T) {
	sec := newSection(t)
	insts, err := builder.RsbImm(sec, armisa.CondAL, false, armisa.R0, armisa.R1, 0xFFFFFF00)
	require.NoError(t, err)
	require.Len(t, insts, 2)
	require.Equal(t, armisa.DPRsb, insts[0].DPOp)
	require.Equal(t, uint32(0), immOf(t, insts[0].Op2))
	require.Equal(t, armisa.DPSub, insts[1].DPOp)
	require.Equal(t, uint32(256), immOf(t, insts[1].Op2))
}

func TestCmpImmSingleInstruction(t *testing.T) {
	sec := newSection(t)
	insts, err := builder.CmpImm(sec, armisa.CondAL, armisa.R0, 10)
	require.NoError(t, err)
	require.Len(t, insts, 1)
	require.Equal(t, armisa.DPCmp, insts[0].DPOp)
	require.True(t, insts[0].SetFlags)
}

func TestCmpImmAltSwapsToCmn(t *testing.T) {
	sec := newSection(t)
	insts, err := builder.CmpImm(sec, armisa.CondAL, armisa.R0, 0xFFFFFF00)
	require.NoError(t, err)
	require.Len(t, insts, 1)
	require.Equal(t, armisa.DPCmn, insts[0].DPOp)
	require.Equal(t, uint32(256), immOf(t, insts[0].Op2))
}

// A compare has no destination to accumulate a partial sum into, so an
// unencodable, unswappable value must go straight to the literal pool
// rather than a split.
func TestCmpImmSpillsToLiteralPool(t *testing.T) {
	sec := newSection(t)
	insts, err := builder.CmpImm(sec, armisa.CondAL, armisa.R0, 0xF0F0F0F0)
	require.NoError(t, err)
	require.Len(t, insts, 2)
	require.Equal(t, uint8(4), insts[0].LitSize)
	require.Equal(t, armisa.DPCmp, insts[1].DPOp)
	require.Equal(t, armisa.Op2Register, insts[1].Op2.Kind)
}

func TestMulImmMaterializesThenMultiplies(t *testing.T) {
	sec := newSection(t)
	insts, err := builder.MulImm(sec, armisa.CondAL, false, armisa.R0, armisa.R1, 7)
	require.NoError(t, err)
	require.Len(t, insts, 2)
	require.Equal(t, armisa.DPMov, insts[0].DPOp)
	mul := insts[len(insts)-1]
	require.Equal(t, armisa.R0, mul.Dest)
	require.Equal(t, armisa.R1, mul.Rm)
	require.GreaterOrEqual(t, mul.Rs, armisa.FirstVirtualIntReg)
}

// When dest and op1 collide, MulImm must swap Rm/Rs rather than hand Mul
// a dest==Rm pair it would reject.
func TestMulImmSwapsWhenDestEqualsOp1(t *testing.T) {
	sec := newSection(t)
	insts, err := builder.MulImm(sec, armisa.CondAL, false, armisa.R1, armisa.R1, 7)
	require.NoError(t, err)
	mul := insts[len(insts)-1]
	require.NotEqual(t, mul.Dest, mul.Rm)
}
