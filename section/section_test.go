package section_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/basic-arm/codegen/armisa"
	"github.com/basic-arm/codegen/oppool"
	"github.com/basic-arm/codegen/section"
	"github.com/basic-arm/codegen/settings"
)

func newSection(t *testing.T) *section.Section {
	t.Helper()
	pool := oppool.New[armisa.Op](16)
	return section.New(pool, nil, settings.Default())
}

func TestNewSectionEmptyInvariant(t *testing.T) {
	s := newSection(t)
	require.Equal(t, oppool.Nil, s.FirstOp)
	require.Equal(t, oppool.Nil, s.LastOp)
	require.Equal(t, 0, s.Len)
}

func TestAddInstrLinksChain(t *testing.T) {
	s := newSection(t)

	first, err := s.AddInstr(armisa.KindDataProcessing)
	require.NoError(t, err)
	first.DPOp = armisa.DPMov

	second, err := s.AddInstr(armisa.KindDataProcessing)
	require.NoError(t, err)
	second.DPOp = armisa.DPAdd

	require.Equal(t, 2, s.Len)
	require.NotEqual(t, oppool.Nil, s.FirstOp)
	require.NotEqual(t, oppool.Nil, s.LastOp)
	require.NotEqual(t, s.FirstOp, s.LastOp)
}

func TestInsertInstrBeforeFirst(t *testing.T) {
	s := newSection(t)

	only, err := s.AddInstr(armisa.KindDataProcessing)
	require.NoError(t, err)
	only.DPOp = armisa.DPMov
	onlyIdx := s.LastOp

	inserted, err := s.InsertInstr(onlyIdx, armisa.KindDataProcessing)
	require.NoError(t, err)
	inserted.DPOp = armisa.DPAdd

	require.Equal(t, 2, s.Len)
	require.NotEqual(t, onlyIdx, s.FirstOp, "insert-before-first must move FirstOp")
	require.Equal(t, onlyIdx, s.LastOp, "the original single op stays last")
}

func TestDupInstrClonesLast(t *testing.T) {
	s := newSection(t)

	orig, err := s.AddInstr(armisa.KindDataProcessing)
	require.NoError(t, err)
	orig.DPOp = armisa.DPOrr
	orig.Dest = armisa.R3

	dup, err := s.DupInstr()
	require.NoError(t, err)
	require.Equal(t, armisa.DPOrr, dup.DPOp)
	require.Equal(t, armisa.R3, dup.Dest)
	require.Equal(t, 2, s.Len)
}

func TestAddDataImmLDRDeduplicates(t *testing.T) {
	s := newSection(t)

	l1 := s.AddDataImmLDR(0xCAFEBABE, false)
	l2 := s.AddDataImmLDR(0xCAFEBABE, false)
	l3 := s.AddDataImmLDR(0xDEADBEEF, false)

	require.Equal(t, l1, l2, "identical constants must share a label")
	require.NotEqual(t, l1, l3)
	require.Len(t, s.IntConsts, 2)
}

func TestRestoreStackPatchesRetSites(t *testing.T) {
	s := newSection(t)

	ret, err := s.AddInstr(armisa.KindDataProcessing)
	require.NoError(t, err)
	ret.DPOp = armisa.DPAdd
	ret.Dest = armisa.SP
	ret.Op1 = armisa.SP
	s.AddRetSite(s.LastOp)

	require.NoError(t, s.RestoreStack(64))
	require.Equal(t, uint32(64), ret.Op2.Encoded&0xFF, "64 rotates to a zero-rotate immediate")
}

func TestRestoreStackRejectsUnencodable(t *testing.T) {
	s := newSection(t)

	_, err := s.AddInstr(armisa.KindDataProcessing)
	require.NoError(t, err)
	s.AddRetSite(s.LastOp)

	err = s.RestoreStack(0xFFFFFFF0)
	require.Error(t, err)
}

func TestNewIntRegSequentialAndAboveFixedBank(t *testing.T) {
	s := newSection(t)
	first := s.NewIntReg()
	second := s.NewIntReg()
	require.Equal(t, first+1, second)
	require.GreaterOrEqual(t, uint32(first), uint32(armisa.FirstVirtualIntReg))
}
