// Package rules is the IR → ARM glue (spec §4.7, component C7): a small
// table of tree-pattern rules, each recognizing one or more consecutive
// IR ops and firing an action that calls into package builder. The
// engine walks an ir.Section's op list linearly, trying each rule's
// matcher at the current position and firing the longest match.
package rules

import (
	"fmt"

	"github.com/basic-arm/codegen/armisa"
	"github.com/basic-arm/codegen/builder"
	"github.com/basic-arm/codegen/ir"
)

// Section is the narrow slice of *section.Section the rule actions need.
type Section interface {
	builder.Section
	NewIntReg() armisa.IntReg
	AddLabel(label armisa.LabelID) error
}

// Rule is one pattern/action pair. Match reports how many consecutive IR
// ops starting at pos it recognizes (0 means no match); Action performs
// the corresponding builder calls and must consume exactly that many.
type Rule struct {
	Name   string
	Match  func(ops []ir.Op, pos int) int
	Action func(e *Engine, sec Section, ops []ir.Op, pos int) error
}

// Engine holds an ordered rule table plus the label-name resolution map
// built by a pre-pass over the section's label ops; rules earlier in the
// table are tried first at each position, and the first successful match
// fires (ties are broken by table order, which lists more specific
// multi-instruction fusions before their single-instruction fallbacks).
type Engine struct {
	rules  []Rule
	labels map[string]armisa.LabelID
}

// New builds an Engine with the standard rule table.
func New() *Engine {
	return &Engine{rules: defaultRules()}
}

// Run lowers every IR op in section into ARM instructions. It first scans
// for every "label" op to pre-allocate section-local label IDs, so that a
// branch can reference a label defined later in the stream.
func (e *Engine) Run(sec Section, ops []ir.Op) error {
	e.labels = make(map[string]armisa.LabelID)
	for _, op := range ops {
		if op.Mnemonic == "label" && len(op.Operands) > 0 {
			e.labels[op.Operands[0].Label] = sec.NewLabel()
		}
	}

	pos := 0
	for pos < len(ops) {
		consumed, err := e.step(sec, ops, pos)
		if err != nil {
			return err
		}
		pos += consumed
	}
	return nil
}

func (e *Engine) step(sec Section, ops []ir.Op, pos int) (int, error) {
	for _, r := range e.rules {
		if n := r.Match(ops, pos); n > 0 {
			if err := r.Action(e, sec, ops, pos); err != nil {
				return 0, fmt.Errorf("rules: %s at op %d: %w", r.Name, pos, err)
			}
			return n, nil
		}
	}
	return 0, fmt.Errorf("rules: no rule matches %q at op %d", ops[pos].Mnemonic, pos)
}

func (e *Engine) labelFor(name string) armisa.LabelID {
	if id, ok := e.labels[name]; ok {
		return id
	}
	return armisa.NoLabel
}

func mnemonicIs(ops []ir.Op, pos int, name string) bool {
	return pos < len(ops) && ops[pos].Mnemonic == name
}

func condFromIR(mnemonic string) armisa.Condition {
	switch mnemonic {
	case "ltii32", "ltir32":
		return armisa.CondLT
	case "gtii32", "gtir32":
		return armisa.CondGT
	case "leii32", "leir32":
		return armisa.CondLE
	case "geii32", "geir32":
		return armisa.CondGE
	case "eqii32", "eqir32":
		return armisa.CondEQ
	case "neii32", "neir32":
		return armisa.CondNE
	default:
		return armisa.CondAL
	}
}

func isCompareMnemonic(m string) bool {
	switch m {
	case "ltii32", "gtii32", "leii32", "geii32", "eqii32", "neii32":
		return true
	default:
		return false
	}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func defaultRules() []Rule {
	return []Rule{
		// Fused compare-and-branch: "ltii32 r_1,*,*; jmpc r_1,label_1,*;
		// label_1" collapses to a single CMP + B<cond>, skipping the
		// materialized boolean entirely (spec §4.7's flagship example).
		{
			Name: "cmp-jmpc-fused",
			Match: func(ops []ir.Op, pos int) int {
				if pos+1 >= len(ops) {
					return 0
				}
				if !isCompareMnemonic(ops[pos].Mnemonic) {
					return 0
				}
				if ops[pos+1].Mnemonic != "jmpc" {
					return 0
				}
				return 2
			},
			Action: func(e *Engine, sec Section, ops []ir.Op, pos int) error {
				cmpOp := ops[pos]
				jmpOp := ops[pos+1]
				if len(cmpOp.Operands) < 3 || len(jmpOp.Operands) < 1 {
					return fmt.Errorf("cmp-jmpc-fused: malformed operands")
				}
				lhs := armisa.IntReg(cmpOp.Operands[1].Reg)
				rhs := cmpOp.Operands[2]
				if rhs.Kind == ir.OperandImmInt {
					if _, err := builder.CmpImm(sec, armisa.CondAL, lhs, uint32(rhs.ImmInt)); err != nil {
						return err
					}
				} else {
					if _, err := builder.Cmp(sec, armisa.CondAL, lhs, armisa.Reg2(armisa.IntReg(rhs.Reg))); err != nil {
						return err
					}
				}
				cond := condFromIR(cmpOp.Mnemonic)
				target := jmpOp.Operands[0].Label
				_, err := builder.Branch(sec, cond, false, e.labelFor(target))
				return err
			},
		},
		{
			Name: "movii32",
			Match: func(ops []ir.Op, pos int) int {
				if mnemonicIs(ops, pos, "movii32") {
					return 1
				}
				return 0
			},
			Action: func(e *Engine, sec Section, ops []ir.Op, pos int) error {
				op := ops[pos]
				if len(op.Operands) < 2 {
					return fmt.Errorf("movii32: expected 2 operands, got %d", len(op.Operands))
				}
				dest := armisa.IntReg(op.Operands[0].Reg)
				_, err := builder.MovImm(sec, armisa.CondAL, dest, uint32(op.Operands[1].ImmInt))
				return err
			},
		},
		{
			Name: "addii32",
			Match: func(ops []ir.Op, pos int) int {
				if mnemonicIs(ops, pos, "addii32") {
					return 1
				}
				return 0
			},
			Action: func(e *Engine, sec Section, ops []ir.Op, pos int) error {
				op := ops[pos]
				if len(op.Operands) < 3 {
					return fmt.Errorf("addii32: expected 3 operands, got %d", len(op.Operands))
				}
				dest := armisa.IntReg(op.Operands[0].Reg)
				op1 := armisa.IntReg(op.Operands[1].Reg)
				rhs := op.Operands[2]
				if rhs.Kind == ir.OperandImmInt {
					_, err := builder.AddImm(sec, armisa.CondAL, false, dest, op1, uint32(rhs.ImmInt))
					return err
				}
				_, err := builder.Add(sec, armisa.CondAL, false, dest, op1, armisa.Reg2(armisa.IntReg(rhs.Reg)))
				return err
			},
		},
		{
			Name: "storeoi32",
			Match: func(ops []ir.Op, pos int) int {
				if mnemonicIs(ops, pos, "storeoi32") {
					return 1
				}
				return 0
			},
			Action: func(e *Engine, sec Section, ops []ir.Op, pos int) error {
				op := ops[pos]
				if len(op.Operands) < 3 {
					return fmt.Errorf("storeoi32: expected 3 operands, got %d", len(op.Operands))
				}
				base := armisa.IntReg(op.Operands[0].Reg)
				offset := int32(op.Operands[1].ImmInt)
				src := armisa.IntReg(op.Operands[2].Reg)
				_, err := builder.Str(sec, armisa.CondAL, src, base, armisa.Imm2(uint32(abs32(offset))), offset < 0, false, false)
				return err
			},
		},
		{
			Name: "loadoi32",
			Match: func(ops []ir.Op, pos int) int {
				if mnemonicIs(ops, pos, "loadoi32") {
					return 1
				}
				return 0
			},
			Action: func(e *Engine, sec Section, ops []ir.Op, pos int) error {
				op := ops[pos]
				if len(op.Operands) < 3 {
					return fmt.Errorf("loadoi32: expected 3 operands, got %d", len(op.Operands))
				}
				dest := armisa.IntReg(op.Operands[0].Reg)
				base := armisa.IntReg(op.Operands[1].Reg)
				offset := int32(op.Operands[2].ImmInt)
				_, err := builder.Ldr(sec, armisa.CondAL, dest, base, armisa.Imm2(uint32(abs32(offset))), offset < 0, false, false)
				return err
			},
		},
		{
			Name: "label",
			Match: func(ops []ir.Op, pos int) int {
				if mnemonicIs(ops, pos, "label") {
					return 1
				}
				return 0
			},
			Action: func(e *Engine, sec Section, ops []ir.Op, pos int) error {
				op := ops[pos]
				if len(op.Operands) < 1 {
					return fmt.Errorf("label: missing label operand")
				}
				id := e.labelFor(op.Operands[0].Label)
				return sec.AddLabel(id)
			},
		},
		{
			Name: "jmp",
			Match: func(ops []ir.Op, pos int) int {
				if mnemonicIs(ops, pos, "jmp") {
					return 1
				}
				return 0
			},
			Action: func(e *Engine, sec Section, ops []ir.Op, pos int) error {
				op := ops[pos]
				if len(op.Operands) < 1 {
					return fmt.Errorf("jmp: missing label operand")
				}
				_, err := builder.Branch(sec, armisa.CondAL, false, e.labelFor(op.Operands[0].Label))
				return err
			},
		},
		{
			Name: "printi32",
			Match: func(ops []ir.Op, pos int) int {
				if mnemonicIs(ops, pos, "printi32") {
					return 1
				}
				return 0
			},
			Action: func(e *Engine, sec Section, ops []ir.Op, pos int) error {
				// Routes through the runtime's integer-to-string SWI
				// (OS_ConvertInteger4 in the VM's SWI table), then
				// OS_Write0; R0 already holds the value per IR convention.
				if _, err := builder.Swi(sec, armisa.CondAL, 0xDC, 0x1, 0x2); err != nil {
					return err
				}
				_, err := builder.Swi(sec, armisa.CondAL, 0x2, 0x2, 0)
				return err
			},
		},
		{
			Name: "prints",
			Match: func(ops []ir.Op, pos int) int {
				if mnemonicIs(ops, pos, "prints") {
					return 1
				}
				return 0
			},
			Action: func(e *Engine, sec Section, ops []ir.Op, pos int) error {
				if _, err := builder.Swi(sec, armisa.CondAL, 0x2, 0x1, 0x1); err != nil {
					return err
				}
				_, err := builder.Swi(sec, armisa.CondAL, 0x3, 0, 0)
				return err
			},
		},
	}
}
