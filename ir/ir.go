// Package ir defines the stable handle types this backend consumes from
// its upstream collaborator: the lexer and expression parser that produce
// the SSA-like intermediate representation, and the IR data model itself.
// Per spec §1 these are external collaborators, not specified here — this
// package only pins down the narrow interface surface spec §6 promises
// ("To the parser / rule engine (in)"): section iteration, per-section op
// iteration, per-op opcode + operands, and the virtual register/label
// counters a Section is seeded from.
package ir

// RegID is an IR-level register reference. A handful of IDs are reserved
// for pseudo-registers the rule engine maps into the ARM namespace (the
// globals base, the locals/frame base, and the stack pointer); anything at
// or above TempStart is a genuine virtual temporary.
type RegID uint32

const (
	RegGlobal RegID = iota
	RegLocal
	RegStack
	TempStart
)

// OperandKind discriminates the shape of an Operand.
type OperandKind int

const (
	OperandReg OperandKind = iota
	OperandImmInt
	OperandImmReal
	OperandLabel
	OperandString
	OperandConst
)

// Operand is one operand of an IR Op: a register, an immediate, a label
// reference, or an index into the opaque string/constant pools.
type Operand struct {
	Kind     OperandKind
	Reg      RegID
	ImmInt   uint64
	ImmReal  float64
	Label    string
	PoolIdx  int
}

// Op is one IR instruction: a mnemonic (e.g. "movii32", "addii32",
// "jmpc") and its operands, in the rule engine's pattern-matching order.
type Op struct {
	Mnemonic string
	Operands []Operand
}

// Section is one IR function body, as the rule engine walks it.
type Section interface {
	Ops() []Op
	RegCounter() uint32
	FRegCounter() uint32
	LabelCounter() uint32
	LocalsBytes() uint32
}

// Program is the top-level IR handle: an ordered set of sections.
type Program interface {
	Sections() []Section
}
