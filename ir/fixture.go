package ir

// FixtureSection is a minimal in-memory Section implementation used to
// build IR fixtures for rule-engine and builder tests without standing up
// the full upstream lexer/parser (an external collaborator, per spec §1,
// not specified by this backend).
type FixtureSection struct {
	OpList   []Op
	Regs     uint32
	FRegs    uint32
	Labels   uint32
	Locals   uint32
}

func (s *FixtureSection) Ops() []Op           { return s.OpList }
func (s *FixtureSection) RegCounter() uint32  { return s.Regs }
func (s *FixtureSection) FRegCounter() uint32 { return s.FRegs }
func (s *FixtureSection) LabelCounter() uint32 { return s.Labels }
func (s *FixtureSection) LocalsBytes() uint32 { return s.Locals }

// FixtureProgram is a minimal in-memory Program implementation.
type FixtureProgram struct {
	SectionList []Section
}

func (p *FixtureProgram) Sections() []Section { return p.SectionList }

// Reg builds a register operand.
func Reg(r RegID) Operand { return Operand{Kind: OperandReg, Reg: r} }

// ImmInt builds an integer-immediate operand.
func ImmInt(v uint64) Operand { return Operand{Kind: OperandImmInt, ImmInt: v} }

// ImmReal builds a real-immediate operand.
func ImmReal(v float64) Operand { return Operand{Kind: OperandImmReal, ImmReal: v} }

// LabelRef builds a label operand.
func LabelRef(name string) Operand { return Operand{Kind: OperandLabel, Label: name} }
