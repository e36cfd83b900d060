// Package section implements the per-function instruction stream (spec
// §4.3, component C3): Section and Program, their call-site/return-site
// bookkeeping, and the per-section constant pools. It owns the only APIs
// through which builders (package builder / fpbuilder) are allowed to
// mutate a section's op pool, so the prev/next linked-list invariant in
// spec §3 has a single choke point to maintain it.
package section

import (
	"fmt"

	"github.com/basic-arm/codegen/armisa"
	"github.com/basic-arm/codegen/fpiface"
	"github.com/basic-arm/codegen/imm"
	"github.com/basic-arm/codegen/ir"
	"github.com/basic-arm/codegen/oppool"
	"github.com/basic-arm/codegen/settings"
)

// CallSite records the bracketing STM/LDM (and FP equivalents) of one
// call, the argument counts, and the op indices of stack-passed arguments
// (those beyond the first four of each register class) — the only ones
// the register allocator and FP layer need to revisit after allocation.
type CallSite struct {
	STM, LDM   oppool.Index
	STF, LDF   oppool.Index
	IntArgs    int
	RealArgs   int
	BranchOp   oppool.Index
	IntArgOps  []oppool.Index
	RealArgOps []oppool.Index
}

// RetSite is the op index of a frame-teardown SUB/ADD whose immediate is
// patched once the final frame size is known (see Section.RestoreStack).
type RetSite struct {
	Op oppool.Index
}

// IntConst is one entry of a section's integer literal pool, loaded by an
// LDRC.
type IntConst struct {
	Value    uint32
	Label    armisa.LabelID
	LinkTime bool
}

// RealConst is one entry of a section's real literal pool, loaded by an
// FPA-LDRC or VFP-LDRC.
type RealConst struct {
	Value float64
	Label armisa.LabelID
}

// Section is the compiled body of one IR function: its instruction
// stream, its virtual-register/label counters, and its local constant
// pools and call/return bookkeeping.
type Section struct {
	pool *oppool.Pool[armisa.Op]

	regCounter  armisa.IntReg
	fregCounter uint32

	labelCounter armisa.LabelID

	FirstOp oppool.Index
	LastOp  oppool.Index
	Len     int

	LocalsBytes uint32

	CallSites []CallSite
	RetSites  []RetSite

	IntConsts  []IntConst
	RealConsts []RealConst

	Settings settings.Settings
	FPIface  fpiface.Interface

	NoCleanupLabel armisa.LabelID
	StartAddress   uint32

	// TypeSection is an owned copy of the IR type-section this Section
	// was created from. It is opaque to this backend; ir.Section is the
	// external collaborator's handle type.
	TypeSection ir.Section
}

// New constructs a Section sharing pool, seeded from an IR section's
// counters per spec §4.3 section_new. It reserves a no-cleanup label
// immediately, mirroring the source's label_counter++ at construction.
func New(pool *oppool.Pool[armisa.Op], typeSection ir.Section, st settings.Settings) *Section {
	s := &Section{
		pool:         pool,
		FirstOp:      oppool.Nil,
		LastOp:       oppool.Nil,
		Settings:     st,
		StartAddress: st.StartAddress,
		TypeSection:  typeSection,
	}
	if typeSection != nil {
		s.regCounter = armisa.IntReg(typeSection.RegCounter())
		s.fregCounter = typeSection.FRegCounter()
		s.labelCounter = armisa.LabelID(typeSection.LabelCounter())
		s.LocalsBytes = typeSection.LocalsBytes()
	} else {
		s.regCounter = armisa.FirstVirtualIntReg
	}
	s.NoCleanupLabel = s.labelCounter
	s.labelCounter++
	return s
}

// NewIntReg allocates a fresh virtual integer register.
func (s *Section) NewIntReg() armisa.IntReg {
	r := s.regCounter
	s.regCounter++
	return r
}

// NewFReg allocates a fresh virtual FP register (namespace-agnostic; the
// active fpiface.Interface interprets it according to FPA or VFP).
func (s *Section) NewFReg() uint32 {
	r := s.fregCounter
	s.fregCounter++
	return r
}

// NewLabel allocates a fresh section-local label.
func (s *Section) NewLabel() armisa.LabelID {
	l := s.labelCounter
	s.labelCounter++
	return l
}

func (s *Section) node(idx oppool.Index) *armisa.Op {
	return s.pool.Get(idx)
}

// Pool exposes the shared op pool for walker.Walker and the encoder.
func (s *Section) Pool() *oppool.Pool[armisa.Op] { return s.pool }

// First is the index of the first op in the stream, or oppool.Nil if empty.
func (s *Section) First() oppool.Index { return s.FirstOp }

// Last is the index of the last op in the stream, or oppool.Nil if empty.
func (s *Section) Last() oppool.Index { return s.LastOp }

// AddInstr appends an empty instruction of the given kind to the end of
// the stream and returns it for the caller to populate.
func (s *Section) AddInstr(kind armisa.Kind) (*armisa.Instruction, error) {
	idx, node, err := s.pool.Alloc()
	if err != nil {
		return nil, fmt.Errorf("section: add instruction: %w", err)
	}
	node.Kind = kind
	node.Prev = s.LastOp
	node.Next = oppool.Nil

	if s.LastOp == oppool.Nil {
		s.FirstOp = idx
	} else {
		s.node(s.LastOp).Next = idx
	}
	s.LastOp = idx
	s.Len++
	return &node.Instruction, nil
}

// InsertInstr inserts a new instruction immediately before pos (which
// must be a live op index in this section), splicing the prev/next links.
func (s *Section) InsertInstr(pos oppool.Index, kind armisa.Kind) (*armisa.Instruction, error) {
	if pos == oppool.Nil {
		return s.AddInstr(kind)
	}
	idx, node, err := s.pool.Alloc()
	if err != nil {
		return nil, fmt.Errorf("section: insert instruction: %w", err)
	}
	node.Kind = kind

	target := s.node(pos)
	node.Prev = target.Prev
	node.Next = pos

	if target.Prev == oppool.Nil {
		s.FirstOp = idx
	} else {
		s.node(target.Prev).Next = idx
	}
	target.Prev = idx
	s.Len++
	return &node.Instruction, nil
}

// DupInstr clones the last instruction in the stream, appends the clone,
// and returns it. Used by builders that need to emit a second instruction
// identical in shape to the first (e.g. the lvl-2 immediate cascade).
func (s *Section) DupInstr() (*armisa.Instruction, error) {
	if s.LastOp == oppool.Nil {
		return nil, fmt.Errorf("section: DupInstr on empty section")
	}
	last := s.node(s.LastOp).Instruction
	idx, node, err := s.pool.Alloc()
	if err != nil {
		return nil, fmt.Errorf("section: dup instruction: %w", err)
	}
	node.Instruction = last
	node.Prev = s.LastOp
	node.Next = oppool.Nil
	s.node(s.LastOp).Next = idx
	s.LastOp = idx
	s.Len++
	return &node.Instruction, nil
}

// AddLabel appends a label node at the current end of the stream.
func (s *Section) AddLabel(label armisa.LabelID) error {
	_, err := s.AddInstr(armisa.KindLabel)
	if err != nil {
		return err
	}
	s.node(s.LastOp).Label = label
	return nil
}

// InsertLabel inserts a label node immediately before pos.
func (s *Section) InsertLabel(pos oppool.Index, label armisa.LabelID) error {
	inst, err := s.InsertInstr(pos, armisa.KindLabel)
	if err != nil {
		return err
	}
	inst.Label = label
	return nil
}

// AddCallSite records the bookkeeping for one call, keeping only the
// stack-passed argument ops (args 5..N per class) as spec §3 requires.
func (s *Section) AddCallSite(stm, ldm, stf, ldf oppool.Index, intArgs, realArgs int, branchOp oppool.Index, intArgOps, realArgOps []oppool.Index) {
	s.CallSites = append(s.CallSites, CallSite{
		STM: stm, LDM: ldm, STF: stf, LDF: ldf,
		IntArgs: intArgs, RealArgs: realArgs,
		BranchOp:   branchOp,
		IntArgOps:  intArgOps,
		RealArgOps: realArgOps,
	})
}

// AddRetSite records a frame-teardown instruction's op index for later
// patching by RestoreStack.
func (s *Section) AddRetSite(op oppool.Index) {
	s.RetSites = append(s.RetSites, RetSite{Op: op})
}

// RestoreStack patches the immediate field of every recorded return-site
// SUB/ADD to the final frame size, once it is known. A frame size that
// does not itself fit the Operand2 immediate form is rounded up to the
// nearest one that does via imm.Nearest, matching the over-allocation the
// prologue's own frame-size rounding performs, so the two always agree on
// the actual number of bytes reserved.
func (s *Section) RestoreStack(bytes uint32) error {
	enc, ok := imm.IsEncodable(bytes)
	if !ok {
		var err error
		enc, err = imm.Nearest(bytes)
		if err != nil {
			return fmt.Errorf("section: frame size %d bytes is not encodable: %w", bytes, err)
		}
	}
	for _, rs := range s.RetSites {
		inst := s.node(rs.Op)
		inst.Op2 = armisa.Imm2(uint32(enc))
	}
	return nil
}

// MaxRegs translates the virtual register counters back into ARM register
// space sizes, clamping integer registers to a minimum of 16 (so callers
// never ask the allocator for fewer physical slots than the fixed bank
// already occupies).
func (s *Section) MaxRegs() (intRegs, realRegs uint32) {
	intRegs = uint32(s.regCounter)
	if intRegs < 16 {
		intRegs = 16
	}
	realRegs = s.fregCounter
	return intRegs, realRegs
}

// AddDataImmLDR records an integer constant for later PC-relative load,
// deduplicating against existing entries with the same value as spec §3
// requires ("Per-section constants are deduplicated").
func (s *Section) AddDataImmLDR(value uint32, linkTime bool) armisa.LabelID {
	for _, c := range s.IntConsts {
		if c.Value == value && c.LinkTime == linkTime {
			return c.Label
		}
	}
	label := s.NewLabel()
	s.IntConsts = append(s.IntConsts, IntConst{Value: value, Label: label, LinkTime: linkTime})
	return label
}

// AddRealConst records a real constant for later PC-relative load. Real
// constants are not deduplicated in the source and neither are they here;
// NaN-bit-pattern equality would be needed to do so safely and no caller
// relies on it.
func (s *Section) AddRealConst(value float64) armisa.LabelID {
	label := s.NewLabel()
	s.RealConsts = append(s.RealConsts, RealConst{Value: value, Label: label})
	return label
}
