package fpbuilder_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/basic-arm/codegen/armisa"
	"github.com/basic-arm/codegen/fpbuilder"
	"github.com/basic-arm/codegen/fpiface"
	"github.com/basic-arm/codegen/oppool"
	"github.com/basic-arm/codegen/section"
	"github.com/basic-arm/codegen/settings"
)

func newSection(t *testing.T) *section.Section {
	t.Helper()
	pool := oppool.New[armisa.Op](16)
	return section.New(pool, nil, settings.Default())
}

func TestFPASatisfiesInterface(t *testing.T) {
	var iface fpiface.Interface = fpbuilder.FPA{}
	require.Equal(t, uint32(8), iface.MaxRegs())
	require.False(t, iface.IsFixed(10))
	require.True(t, iface.IsFixed(7))
}

func TestVFPSatisfiesInterface(t *testing.T) {
	var iface fpiface.Interface = fpbuilder.VFP{}
	require.Equal(t, uint32(16), iface.MaxRegs())
	require.True(t, iface.IsFixed(15))
	require.False(t, iface.IsFixed(20))
}

func TestStfInRangeOffset(t *testing.T) {
	sec := newSection(t)
	inst, err := fpbuilder.Stf(sec, armisa.CondAL, 2, armisa.FP, 16, false)
	require.NoError(t, err)
	require.Equal(t, armisa.FPATransferStf, inst.FPATransferOp)
	require.Equal(t, uint32(4), inst.Offset.Encoded)
}

func TestFPAStoreDoubleOutOfRangeMaterializesAddress(t *testing.T) {
	sec := newSection(t)
	fpa := fpbuilder.FPA{}
	fpa.StoreDouble(sec, 1, armisa.FP, 1<<20)
	require.Equal(t, 3, sec.Len, "MOV offset; ADD address; STF")
}

func TestVFPFsitodEmitsTwoInstructions(t *testing.T) {
	sec := newSection(t)
	err := fpbuilder.Fsitod(sec, armisa.CondAL, 0, armisa.R0, 0)
	require.NoError(t, err)
	require.Equal(t, 2, sec.Len)
}

func TestFcmpRecordsOperands(t *testing.T) {
	sec := newSection(t)
	inst, err := fpbuilder.Fcmp(sec, armisa.CondAL, 3, 4)
	require.NoError(t, err)
	require.Equal(t, armisa.VFPCmp, inst.VFPOp)
	require.Equal(t, uint32(3), inst.FOp1)
	require.Equal(t, uint32(4), inst.FOp2Reg)
}
