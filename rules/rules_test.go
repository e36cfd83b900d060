package rules_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/basic-arm/codegen/armisa"
	"github.com/basic-arm/codegen/imm"
	"github.com/basic-arm/codegen/ir"
	"github.com/basic-arm/codegen/oppool"
	"github.com/basic-arm/codegen/rules"
	"github.com/basic-arm/codegen/section"
	"github.com/basic-arm/codegen/settings"
)

func newSection(t *testing.T) *section.Section {
	t.Helper()
	pool := oppool.New[armisa.Op](16)
	return section.New(pool, nil, settings.Default())
}

func TestMovImmRule(t *testing.T) {
	sec := newSection(t)
	ops := []ir.Op{
		{Mnemonic: "movii32", Operands: []ir.Operand{ir.Reg(16), ir.ImmInt(173)}},
	}
	require.NoError(t, rules.New().Run(sec, ops))
	require.Equal(t, 1, sec.Len)
}

func TestFusedCompareBranchRule(t *testing.T) {
	sec := newSection(t)
	ops := []ir.Op{
		{Mnemonic: "ltii32", Operands: []ir.Operand{ir.Reg(17), ir.Reg(16), ir.ImmInt(10)}},
		{Mnemonic: "jmpc", Operands: []ir.Operand{ir.LabelRef("L1")}},
		{Mnemonic: "label", Operands: []ir.Operand{ir.LabelRef("L1")}},
	}
	require.NoError(t, rules.New().Run(sec, ops))
	require.Equal(t, 3, sec.Len, "CMP + B<cond>, then the label op emits its own node")
}

func TestForwardLabelReferenceResolves(t *testing.T) {
	sec := newSection(t)
	ops := []ir.Op{
		{Mnemonic: "jmp", Operands: []ir.Operand{ir.LabelRef("fwd")}},
		{Mnemonic: "label", Operands: []ir.Operand{ir.LabelRef("fwd")}},
	}
	require.NoError(t, rules.New().Run(sec, ops))
	require.Equal(t, 2, sec.Len)
}

func TestUnmatchedMnemonicErrors(t *testing.T) {
	sec := newSection(t)
	ops := []ir.Op{{Mnemonic: "nonexistentop"}}
	err := rules.New().Run(sec, ops)
	require.Error(t, err)
}

// collectOps walks a section's op pool in stream order, for asserting on
// what a rule actually emitted rather than just the final count.
func collectOps(sec *section.Section) []armisa.Instruction {
	var out []armisa.Instruction
	for idx := sec.First(); idx != oppool.Nil; {
		node := sec.Pool().Get(idx)
		out = append(out, node.Instruction)
		idx = node.Next
	}
	return out
}

// addii32 with a value that splits (257 = 1 + 256) must emit two ADDs
// that together add up to 257, not the old MOV-into-temp-then-register-ADD
// collapse.
func TestAddRuleSplitsUnencodableImmediate(t *testing.T) {
	sec := newSection(t)
	ops := []ir.Op{
		{Mnemonic: "addii32", Operands: []ir.Operand{ir.Reg(16), ir.Reg(0), ir.ImmInt(257)}},
	}
	require.NoError(t, rules.New().Run(sec, ops))
	insts := collectOps(sec)
	require.Len(t, insts, 2)
	require.Equal(t, armisa.DPAdd, insts[0].DPOp)
	require.Equal(t, armisa.DPAdd, insts[1].DPOp)
	sum := imm.Decode(imm.Encoded(insts[0].Op2.Encoded)) + imm.Decode(imm.Encoded(insts[1].Op2.Encoded))
	require.Equal(t, uint32(257), sum)
}

// addii32 with 0xF0F0F0F0 has no single or split encoding, so the rule
// must emit exactly one LDRC feeding one register-form ADD.
func TestAddRuleSpillsThroughLiteralPool(t *testing.T) {
	sec := newSection(t)
	ops := []ir.Op{
		{Mnemonic: "addii32", Operands: []ir.Operand{ir.Reg(16), ir.Reg(0), ir.ImmInt(0xF0F0F0F0)}},
	}
	require.NoError(t, rules.New().Run(sec, ops))
	insts := collectOps(sec)
	require.Len(t, insts, 2)
	require.Equal(t, armisa.KindLiteralLoad, insts[0].Kind)
	require.Equal(t, armisa.DPAdd, insts[1].DPOp)
	require.Equal(t, armisa.Op2Register, insts[1].Op2.Kind)
	require.Len(t, sec.IntConsts, 1)
	require.Equal(t, uint32(0xF0F0F0F0), sec.IntConsts[0].Value)
}

// addii32 with 0xFFFFFF00 (-256) has no single ADD encoding, but its
// negation is directly encodable, so the rule must emit a single SUB via
// the alt-opcode swap rather than a MOV cascade.
func TestAddRuleAltSwapsToSub(t *testing.T) {
	sec := newSection(t)
	ops := []ir.Op{
		{Mnemonic: "addii32", Operands: []ir.Operand{ir.Reg(16), ir.Reg(0), ir.ImmInt(0xFFFFFF00)}},
	}
	require.NoError(t, rules.New().Run(sec, ops))
	insts := collectOps(sec)
	require.Len(t, insts, 1)
	require.Equal(t, armisa.DPSub, insts[0].DPOp)
	require.Equal(t, uint32(256), imm.Decode(imm.Encoded(insts[0].Op2.Encoded)))
}
