package armvm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/basic-arm/codegen/armencoder"
	"github.com/basic-arm/codegen/armisa"
	"github.com/basic-arm/codegen/armvm"
	"github.com/basic-arm/codegen/builder"
	"github.com/basic-arm/codegen/oppool"
	"github.com/basic-arm/codegen/section"
	"github.com/basic-arm/codegen/settings"
)

const startAddr = 0x8000

func newSection(t *testing.T) *section.Section {
	t.Helper()
	pool := oppool.New[armisa.Op](16)
	return section.New(pool, nil, settings.Default())
}

func buildVM(t *testing.T, sec *section.Section, memSize int) *armvm.VM {
	t.Helper()
	res, err := armencoder.Encode(sec)
	require.NoError(t, err)
	return armvm.New(startAddr, memSize, res.Words)
}

func TestMovImmThenAddUpdatesRegisterAndFlags(t *testing.T) {
	sec := newSection(t)
	_, err := builder.MovImm(sec, armisa.CondAL, armisa.R0, 5)
	require.NoError(t, err)
	inst, err := builder.Add(sec, armisa.CondAL, true, armisa.R0, armisa.R0, armisa.Imm2(7))
	require.NoError(t, err)
	require.NotNil(t, inst)

	vm := buildVM(t, sec, 0x1000)
	require.NoError(t, vm.Run())
	require.Equal(t, uint32(12), vm.Regs[0])
	require.False(t, vm.CPSR.Z)
	require.False(t, vm.CPSR.N)
}

func TestSubSetsZeroFlagOnEqualOperands(t *testing.T) {
	sec := newSection(t)
	_, err := builder.MovImm(sec, armisa.CondAL, armisa.R1, 9)
	require.NoError(t, err)
	_, err = builder.Cmp(sec, armisa.CondAL, armisa.R1, armisa.Imm2(9))
	require.NoError(t, err)

	vm := buildVM(t, sec, 0x1000)
	require.NoError(t, vm.Run())
	require.True(t, vm.CPSR.Z)
	require.True(t, vm.CPSR.C)
}

func TestForwardBranchSkipsInstruction(t *testing.T) {
	sec := newSection(t)
	label := sec.NewLabel()
	_, err := builder.Branch(sec, armisa.CondAL, false, label)
	require.NoError(t, err)
	_, err = builder.MovImm(sec, armisa.CondAL, armisa.R0, 0xAA) // skipped
	require.NoError(t, err)
	require.NoError(t, sec.AddLabel(label))
	_, err = builder.MovImm(sec, armisa.CondAL, armisa.R1, 0xBB)
	require.NoError(t, err)

	vm := buildVM(t, sec, 0x1000)
	require.NoError(t, vm.Run())
	require.Equal(t, uint32(0), vm.Regs[0])
	require.Equal(t, uint32(0xBB), vm.Regs[1])
}

func TestConditionalBranchNotTaken(t *testing.T) {
	sec := newSection(t)
	_, err := builder.MovImm(sec, armisa.CondAL, armisa.R0, 1)
	require.NoError(t, err)
	_, err = builder.Cmp(sec, armisa.CondAL, armisa.R0, armisa.Imm2(2))
	require.NoError(t, err)
	label, err := builder.Label(sec)
	require.NoError(t, err)
	br, err := sec.AddInstr(armisa.KindBranch)
	require.NoError(t, err)
	br.Cond = armisa.CondEQ
	br.Local = true
	br.TargetLabel = label
	_, err = builder.MovImm(sec, armisa.CondAL, armisa.R2, 42)
	require.NoError(t, err)

	vm := buildVM(t, sec, 0x1000)
	require.NoError(t, vm.Run())
	require.Equal(t, uint32(42), vm.Regs[2])
}

func TestLoadStoreRoundTrip(t *testing.T) {
	sec := newSection(t)
	_, err := builder.MovImm(sec, armisa.CondAL, armisa.R0, startAddr+0x100)
	require.NoError(t, err)
	_, err = builder.MovImm(sec, armisa.CondAL, armisa.R1, 0x55)
	require.NoError(t, err)
	_, err = builder.Str(sec, armisa.CondAL, armisa.R1, armisa.R0, armisa.Imm2(0), false, false, false)
	require.NoError(t, err)
	_, err = builder.Ldr(sec, armisa.CondAL, armisa.R2, armisa.R0, armisa.Imm2(0), false, false, false)
	require.NoError(t, err)

	vm := buildVM(t, sec, 0x1000)
	require.NoError(t, vm.Run())
	require.Equal(t, uint32(0x55), vm.Regs[2])
}

func TestSWIExitSetsQuit(t *testing.T) {
	sec := newSection(t)
	_, err := builder.Swi(sec, armisa.CondAL, 0x11, 0, 0)
	require.NoError(t, err)
	_, err = builder.MovImm(sec, armisa.CondAL, armisa.R0, 0xFF) // must not execute
	require.NoError(t, err)

	vm := buildVM(t, sec, 0x1000)
	require.NoError(t, vm.Run())
	require.True(t, vm.Quit)
	require.Equal(t, uint32(0), vm.Regs[0])
}

func TestEndToEndPrintsHelloNewline(t *testing.T) {
	sec := newSection(t)
	dataAddr := uint32(startAddr + 0x800)
	_, err := builder.MovImm(sec, armisa.CondAL, armisa.R0, dataAddr)
	require.NoError(t, err)
	_, err = builder.Swi(sec, armisa.CondAL, 0x02, 0, 0) // OS_Write0
	require.NoError(t, err)
	_, err = builder.Swi(sec, armisa.CondAL, 0x03, 0, 0) // OS_NewLine
	require.NoError(t, err)
	_, err = builder.Swi(sec, armisa.CondAL, 0x11, 0, 0) // OS_Exit
	require.NoError(t, err)

	vm := buildVM(t, sec, 0x1000)
	require.NoError(t, vm.WriteBytes(dataAddr, []byte("HELLO\x00")))
	require.NoError(t, vm.Run())
	require.Equal(t, "HELLO\n", string(vm.Out))
}

func TestFPAAddAndFix(t *testing.T) {
	sec := newSection(t)
	inst, err := sec.AddInstr(armisa.KindFPAData)
	require.NoError(t, err)
	inst.Cond = armisa.CondAL
	inst.FPAOp = armisa.FPAAdf
	inst.FDest = 0
	inst.FOp1 = 1
	inst.FOp2IsImm = true
	enc, ok := armisa.EncodeFPAReal(2)
	require.True(t, ok)
	inst.FOp2Imm = enc

	fix, err := sec.AddInstr(armisa.KindFPATransfer)
	require.NoError(t, err)
	fix.Cond = armisa.CondAL
	fix.FPATransferOp = armisa.FPATransferFix
	fix.FDest = uint32(armisa.R0)
	fix.FOp1 = 0
	fix.Rounding = armisa.RoundNear

	vm := buildVM(t, sec, 0x1000)
	vm.FRegs[1] = 3.5
	require.NoError(t, vm.Run())
	require.Equal(t, uint32(6), vm.Regs[0]) // round(3.5+2) == 6
}

func TestDecodeRejectsIndirectBranchShape(t *testing.T) {
	sec := newSection(t)
	_, err := builder.Swi(sec, armisa.CondAL, 0, 0, 0)
	require.NoError(t, err)
	res, err := armencoder.Encode(sec)
	require.NoError(t, err)

	vm := armvm.New(startAddr, 0x1000, res.Words)
	require.NoError(t, vm.WriteBytes(startAddr, []byte{0x1E, 0xFF, 0x2F, 0xE1})) // BX LR
	err = vm.Run()
	require.Error(t, err)
}
