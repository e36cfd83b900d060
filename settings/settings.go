// Package settings holds the immutable target configuration the backend
// receives from its caller (spec §6, "To the settings module"): whether to
// target FPA or VFP, FPA's word-endian layout, the image start address,
// and a heap-size hint. It also supports loading overrides from an
// on-disk TOML file, mirroring the teacher's config package.
package settings

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/BurntSushi/toml"
)

// FPTarget selects which floating-point sub-architecture the FP
// instruction builders (package fpbuilder) target.
type FPTarget int

const (
	TargetFPA FPTarget = iota
	TargetVFP
)

func (t FPTarget) String() string {
	if t == TargetVFP {
		return "vfp"
	}
	return "fpa"
}

// Settings is the immutable struct threaded through section creation,
// builders, and the encoder. Once constructed it must not be mutated;
// callers needing different settings construct a new value.
type Settings struct {
	FPTarget FPTarget `toml:"fp_target"`

	// ReverseFPAConsts controls whether FPA double literals are emitted
	// with their two words swapped (big-word-ordered) regardless of host
	// byte order, matching real RISC OS FPA behavior. Programs normally
	// leave this unset and let Default (or Load) compute it from the host
	// byte order.
	ReverseFPAConsts bool `toml:"-"`

	StartAddress uint32 `toml:"start_address"`
	HeapSizeHint uint32 `toml:"heap_size_hint"`

	// MaxIntRegs records the allocatable integer register count; see
	// armisa.MaxAllocatableIntRegs for why 11 is the ARM2 default.
	// section.MaxRegs does not read it.
	MaxIntRegs uint32 `toml:"max_int_regs"`
}

// Default returns RISC OS-shaped defaults: FPA target, start address
// 0x8000 (matching the teacher's CodeSegmentStart), and a 64KB heap hint.
func Default() Settings {
	s := Settings{
		FPTarget:     TargetFPA,
		StartAddress: 0x8000,
		HeapSizeHint: 0x10000,
		MaxIntRegs:   11,
	}
	s.ReverseFPAConsts = hostIsLittleEndian()
	return s
}

// hostIsLittleEndian probes host byte order once, the same technique the
// spec's Program construction uses to compute reverse_fpa_consts: FPA
// doubles must be emitted big-word-ordered regardless of host order, so
// the flag records whether a swap is needed on this host.
func hostIsLittleEndian() bool {
	var x uint16 = 1
	return *(*byte)(unsafe.Pointer(&x)) == 1
}

// Load reads overrides from path, falling back to Default() fields for
// anything the file doesn't specify. A missing file is not an error; a
// malformed one is.
func Load(path string) (Settings, error) {
	s := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return s, nil
	}
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return Settings{}, fmt.Errorf("settings: failed to parse %s: %w", path, err)
	}
	s.ReverseFPAConsts = hostIsLittleEndian()
	return s, nil
}
