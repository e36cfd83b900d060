package armencoder_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/basic-arm/codegen/armencoder"
	"github.com/basic-arm/codegen/armisa"
	"github.com/basic-arm/codegen/builder"
	"github.com/basic-arm/codegen/oppool"
	"github.com/basic-arm/codegen/section"
	"github.com/basic-arm/codegen/settings"
)

func newSection(t *testing.T) *section.Section {
	t.Helper()
	pool := oppool.New[armisa.Op](16)
	return section.New(pool, nil, settings.Default())
}

func TestEncodeSingleMov(t *testing.T) {
	sec := newSection(t)
	_, err := builder.MovImm(sec, armisa.CondAL, armisa.R0, 173)
	require.NoError(t, err)

	res, err := armencoder.Encode(sec)
	require.NoError(t, err)
	require.Len(t, res.Words, 1)

	word := res.Words[0]
	require.Equal(t, uint32(armisa.CondAL), word>>28)
	require.Equal(t, uint32(armisa.DPMov), (word>>21)&0xF)
	require.Equal(t, uint32(1), (word>>25)&1, "immediate form sets the I bit")
}

func TestEncodeLocalBranchResolvesForward(t *testing.T) {
	sec := newSection(t)
	label := sec.NewLabel()
	_, err := builder.Branch(sec, armisa.CondAL, false, label)
	require.NoError(t, err)
	require.NoError(t, sec.AddLabel(label))

	res, err := armencoder.Encode(sec)
	require.NoError(t, err)
	require.Len(t, res.Words, 1, "the label op contributes no word of its own")

	word := res.Words[0]
	require.Equal(t, uint32(0x05), (word>>25)&0x7)
	// Branch at word 0, label at word 1: offset 1 - 0 - 2 = -1.
	require.Equal(t, uint32(0xFFFFFF), word&0xFFFFFF)
}

func TestEncodeUnresolvedLabelErrors(t *testing.T) {
	sec := newSection(t)
	_, err := builder.Branch(sec, armisa.CondAL, false, armisa.LabelID(9999))
	require.NoError(t, err)

	_, err = armencoder.Encode(sec)
	require.Error(t, err)
}

func TestEncodeRejectsIndirectBranch(t *testing.T) {
	sec := newSection(t)
	inst, err := sec.AddInstr(armisa.KindBranch)
	require.NoError(t, err)
	inst.Cond = armisa.CondAL
	inst.HasIndirect = true

	_, err = armencoder.Encode(sec)
	require.Error(t, err)
}

func TestEncodeSWI(t *testing.T) {
	sec := newSection(t)
	_, err := builder.Swi(sec, armisa.CondAL, 0x11, 0, 0)
	require.NoError(t, err)

	res, err := armencoder.Encode(sec)
	require.NoError(t, err)
	require.Equal(t, uint32(0xEF000011), res.Words[0])
}

func TestEncodeAppendsIntConstantPool(t *testing.T) {
	sec := newSection(t)
	_, err := builder.LoadConst(sec, armisa.CondAL, armisa.R0, 0xCAFEBABE, false)
	require.NoError(t, err)

	res, err := armencoder.Encode(sec)
	require.NoError(t, err)
	require.Len(t, res.Words, 2, "one LDR placeholder word + one literal pool word")
	require.Equal(t, uint32(0xCAFEBABE), res.Words[1])
}
