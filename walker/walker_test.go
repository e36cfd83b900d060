package walker_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/basic-arm/codegen/armisa"
	"github.com/basic-arm/codegen/builder"
	"github.com/basic-arm/codegen/oppool"
	"github.com/basic-arm/codegen/section"
	"github.com/basic-arm/codegen/settings"
	"github.com/basic-arm/codegen/walker"
)

func newSection(t *testing.T) *section.Section {
	t.Helper()
	pool := oppool.New[armisa.Op](16)
	return section.New(pool, nil, settings.Default())
}

func noop(oppool.Index, *armisa.Instruction) error { return nil }

func TestWalkVisitsEveryOp(t *testing.T) {
	sec := newSection(t)
	_, err := builder.MovImm(sec, armisa.CondAL, armisa.R0, 1)
	require.NoError(t, err)
	_, err = builder.Label(sec)
	require.NoError(t, err)
	_, err = builder.Add(sec, armisa.CondAL, false, armisa.R1, armisa.R0, armisa.Reg2(armisa.R0))
	require.NoError(t, err)

	var seen int
	w := &walker.Walker{
		DataProcessing: func(oppool.Index, *armisa.Instruction) error { seen++; return nil },
		Label:          func(oppool.Index, *armisa.Instruction) error { seen++; return nil },
	}
	require.NoError(t, w.Walk(sec))
	require.Equal(t, 3, seen)
}

func TestWalkMissingCallbackErrors(t *testing.T) {
	sec := newSection(t)
	_, err := builder.Label(sec)
	require.NoError(t, err)

	w := &walker.Walker{}
	err = w.Walk(sec)
	require.Error(t, err)
}

func TestWalkFromToStopsAtBoundary(t *testing.T) {
	sec := newSection(t)
	_, err := builder.MovImm(sec, armisa.CondAL, armisa.R0, 1)
	require.NoError(t, err)
	mid := sec.LastOp
	_, err = builder.MovImm(sec, armisa.CondAL, armisa.R1, 2)
	require.NoError(t, err)

	var seen int
	w := &walker.Walker{DataProcessing: func(oppool.Index, *armisa.Instruction) error { seen++; return nil }}
	require.NoError(t, w.WalkFromTo(sec, sec.FirstOp, mid))
	require.Equal(t, 1, seen)
}
