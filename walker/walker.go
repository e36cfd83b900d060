// Package walker implements the single visitor (spec §4.8, component C8)
// that every other consumer of a section's instruction stream — dump,
// encoder, VM, distance analysis, register allocator — drives instead of
// re-deriving prev/next traversal and kind dispatch themselves. It is the
// one place in the module that enumerates every armisa.Kind; a Walker
// missing a callback for a kind present in the stream is a programmer
// error, surfaced immediately rather than silently skipped.
package walker

import (
	"fmt"

	"github.com/basic-arm/codegen/armisa"
	"github.com/basic-arm/codegen/oppool"
)

// Section is the narrow slice of *section.Section the walker needs: raw
// access to op-chain endpoints and the ability to resolve an index to its
// node.
type Section interface {
	Pool() *oppool.Pool[armisa.Op]
	First() oppool.Index
	Last() oppool.Index
}

// Walker is a struct of callback function pointers, one per instruction
// category plus label and directive, mirroring the source's dispatch
// table shape exactly (spec §4.8).
type Walker struct {
	DataProcessing func(idx oppool.Index, inst *armisa.Instruction) error
	Multiply       func(idx oppool.Index, inst *armisa.Instruction) error
	SingleTransfer func(idx oppool.Index, inst *armisa.Instruction) error
	MultiTransfer  func(idx oppool.Index, inst *armisa.Instruction) error
	Branch         func(idx oppool.Index, inst *armisa.Instruction) error
	SWI            func(idx oppool.Index, inst *armisa.Instruction) error
	LiteralLoad    func(idx oppool.Index, inst *armisa.Instruction) error
	ADR            func(idx oppool.Index, inst *armisa.Instruction) error
	CondMove       func(idx oppool.Index, inst *armisa.Instruction) error
	FPAData        func(idx oppool.Index, inst *armisa.Instruction) error
	FPATransfer    func(idx oppool.Index, inst *armisa.Instruction) error
	VFPData        func(idx oppool.Index, inst *armisa.Instruction) error
	VFPTransfer    func(idx oppool.Index, inst *armisa.Instruction) error

	Byte      func(idx oppool.Index, inst *armisa.Instruction) error
	Word      func(idx oppool.Index, inst *armisa.Instruction) error
	Double    func(idx oppool.Index, inst *armisa.Instruction) error
	Float     func(idx oppool.Index, inst *armisa.Instruction) error
	String    func(idx oppool.Index, inst *armisa.Instruction) error
	Align     func(idx oppool.Index, inst *armisa.Instruction) error
	Label     func(idx oppool.Index, inst *armisa.Instruction) error
	PhiPlaceholder func(idx oppool.Index, inst *armisa.Instruction) error
}

func (w *Walker) dispatch(pool *oppool.Pool[armisa.Op], idx oppool.Index) error {
	node := pool.Get(idx)
	inst := &node.Instruction

	var cb func(oppool.Index, *armisa.Instruction) error
	switch inst.Kind {
	case armisa.KindDataProcessing:
		cb = w.DataProcessing
	case armisa.KindMultiply:
		cb = w.Multiply
	case armisa.KindSingleTransfer:
		cb = w.SingleTransfer
	case armisa.KindMultiTransfer:
		cb = w.MultiTransfer
	case armisa.KindBranch:
		cb = w.Branch
	case armisa.KindSWI:
		cb = w.SWI
	case armisa.KindLiteralLoad:
		cb = w.LiteralLoad
	case armisa.KindADR:
		cb = w.ADR
	case armisa.KindCondMove:
		cb = w.CondMove
	case armisa.KindFPAData:
		cb = w.FPAData
	case armisa.KindFPATransfer:
		cb = w.FPATransfer
	case armisa.KindVFPData:
		cb = w.VFPData
	case armisa.KindVFPTransfer:
		cb = w.VFPTransfer
	case armisa.KindByteDirective:
		cb = w.Byte
	case armisa.KindWordDirective:
		cb = w.Word
	case armisa.KindDoubleDirective:
		cb = w.Double
	case armisa.KindFloatDirective:
		cb = w.Float
	case armisa.KindStringDirective:
		cb = w.String
	case armisa.KindAlignDirective:
		cb = w.Align
	case armisa.KindLabel:
		cb = w.Label
	case armisa.KindPhiPlaceholder:
		cb = w.PhiPlaceholder
	default:
		return fmt.Errorf("walker: unhandled instruction kind %d", inst.Kind)
	}
	if cb == nil {
		return fmt.Errorf("walker: no callback registered for kind %d", inst.Kind)
	}
	return cb(idx, inst)
}

// Walk visits every op in sec from first to last.
func (w *Walker) Walk(sec Section) error {
	return w.WalkFromTo(sec, sec.First(), oppool.Nil)
}

// WalkFrom visits every op in sec starting at from (inclusive) through the
// end of the stream.
func (w *Walker) WalkFrom(sec Section, from oppool.Index) error {
	return w.WalkFromTo(sec, from, oppool.Nil)
}

// WalkFromTo visits every op in sec starting at from (inclusive) up to
// and including to; if to is oppool.Nil, walks to the end of the stream.
func (w *Walker) WalkFromTo(sec Section, from, to oppool.Index) error {
	pool := sec.Pool()
	idx := from
	for idx != oppool.Nil {
		if err := w.dispatch(pool, idx); err != nil {
			return err
		}
		if idx == to {
			return nil
		}
		idx = pool.Get(idx).Next
	}
	return nil
}
