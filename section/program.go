package section

import (
	"github.com/basic-arm/codegen/armisa"
	"github.com/basic-arm/codegen/fpiface"
	"github.com/basic-arm/codegen/ir"
	"github.com/basic-arm/codegen/oppool"
	"github.com/basic-arm/codegen/settings"
)

// Program is the top-level compiled unit: every Section sharing a single
// op pool (so backpatch targets and dumps can address any instruction in
// the program by one Index space), plus the program-wide settings and the
// active FP interface every Section is seeded with.
type Program struct {
	Pool     *oppool.Pool[armisa.Op]
	Sections []*Section

	Settings settings.Settings
	FPIface  fpiface.Interface

	StartAddress     uint32
	ReverseFPAConsts bool
}

// NewProgram constructs an empty Program ready to accept sections built
// from an ir.Program, with pool granularity tuned for typical BASIC
// procedure sizes.
func NewProgram(st settings.Settings, fp fpiface.Interface) *Program {
	return &Program{
		Pool:             oppool.New[armisa.Op](oppool.DefaultGranularity),
		Settings:         st,
		FPIface:          fp,
		StartAddress:     st.StartAddress,
		ReverseFPAConsts: st.ReverseFPAConsts,
	}
}

// AddSection builds a new Section from one IR section and appends it.
func (p *Program) AddSection(typeSection ir.Section) *Section {
	s := New(p.Pool, typeSection, p.Settings)
	s.FPIface = p.FPIface
	p.Sections = append(p.Sections, s)
	return s
}

// FromIR lowers every section of an IR program into fresh Sections,
// leaving instruction-level lowering to the rule engine (package rules).
func FromIR(prog ir.Program, st settings.Settings, fp fpiface.Interface) *Program {
	p := NewProgram(st, fp)
	for _, ts := range prog.Sections() {
		p.AddSection(ts)
	}
	return p
}
