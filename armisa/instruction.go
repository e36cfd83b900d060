package armisa

// Kind discriminates the tagged union of everything that can live in a
// section's instruction stream: real ARM/FPA/VFP instructions plus the
// directive nodes (bytes, words, doubles, strings, labels, alignment).
//
// Adding a new Kind requires extending: the walker's dispatch table, the
// encoder's case table, the VM's case table, and any dumpers. The walker
// (package walker) is the single chokepoint that enumerates every Kind; it
// is the place a missing-callback bug becomes visible at run time via an
// assertion rather than silently skipping the new instruction.
type Kind uint8

const (
	KindDataProcessing Kind = iota
	KindMultiply
	KindSingleTransfer // LDR/STR (word or byte)
	KindMultiTransfer  // LDM/STM
	KindBranch         // B/BL, including indirect (BX-shaped) branches
	KindSWI
	KindLiteralLoad // LDRC: PC-relative integer literal load
	KindADR
	KindCondMove // CMOV pseudo-instruction, plain or fused
	KindFPAData
	KindFPATransfer // FLT/FIX/WFS/RFS and STF/LDF (including push/pop)
	KindVFPData
	KindVFPTransfer

	KindByteDirective
	KindWordDirective
	KindDoubleDirective
	KindFloatDirective
	KindStringDirective
	KindAlignDirective
	KindLabel
	KindPhiPlaceholder
)

// DPOp is the data-processing opcode (the ARM "op" field), including the
// comparison-shaped and move-shaped variants that omit one operand.
type DPOp uint8

const (
	DPAnd DPOp = iota
	DPEor
	DPSub
	DPRsb
	DPAdd
	DPAdc
	DPSbc
	DPRsc
	DPTst
	DPTeq
	DPCmp
	DPCmn
	DPOrr
	DPMov
	DPBic
	DPMvn
)

var dpNames = [...]string{
	"AND", "EOR", "SUB", "RSB", "ADD", "ADC", "SBC", "RSC",
	"TST", "TEQ", "CMP", "CMN", "ORR", "MOV", "BIC", "MVN",
}

func (op DPOp) String() string { return dpNames[op&0xF] }

// IsCompare reports whether op is one of the status-only forms (TST TEQ
// CMP CMN) that always set flags and never write a destination register.
func (op DPOp) IsCompare() bool {
	switch op {
	case DPTst, DPTeq, DPCmp, DPCmn:
		return true
	default:
		return false
	}
}

// IsMoveShaped reports whether op is MOV or MVN, the two data-processing
// opcodes that take no Op1.
func (op DPOp) IsMoveShaped() bool {
	return op == DPMov || op == DPMvn
}

// MultiMode is the addressing mode of a multi-register transfer.
type MultiMode uint8

const (
	ModeIA MultiMode = iota
	ModeIB
	ModeDA
	ModeDB
	ModeFA
	ModeFD
	ModeEA
	ModeED
)

// LinkType records what a BL call returns, for the register allocator's
// benefit in deciding which registers a call clobbers.
type LinkType uint8

const (
	LinkVoid LinkType = iota
	LinkInt
	LinkReal
)

// RoundMode is an FPA rounding mode.
type RoundMode uint8

const (
	RoundNear RoundMode = iota
	RoundPlusInf
	RoundMinusInf
	RoundZero
)

// FPAOp enumerates the FPA data-processing mnemonics this backend emits.
type FPAOp uint8

const (
	FPAAdf FPAOp = iota
	FPAMuf
	FPASuf
	FPARsf
	FPADvf
	FPARdf
	FPAMvf
	FPAMnf
	FPAAbs
	FPASqt
	FPASin
	FPACos
)

// VFPOp enumerates the VFP data-processing mnemonics this backend emits.
type VFPOp uint8

const (
	VFPAdd VFPOp = iota
	VFPSub
	VFPMul
	VFPDiv
	VFPNeg
	VFPAbs
	VFPSqrt
	VFPCpy
	VFPCmp
	VFPSitod // FSITOD: widen the single scratch register (already holding
	// an ARM int's raw bits via FMSR) into FDest as a double
	VFPTosizd // FTOSIZD: truncate FOp1 (a double) into the single scratch
	// register FDest, to be read out via FMRS
)

// FPATransferOp enumerates the FPA register-transfer family: FIX, FLT,
// WFS, RFS, and the push/pop via STF/LDF used for double spills.
type FPATransferOp uint8

const (
	FPATransferFix FPATransferOp = iota
	FPATransferFlt
	FPATransferWfs
	FPATransferRfs
	FPATransferStf
	FPATransferLdf
)

// VFPTransferOp enumerates the VFP register-transfer family.
type VFPTransferOp uint8

const (
	VFPTransferFmrx VFPTransferOp = iota // FPSCR -> ARM reg (used after FCMP, writes R15 encodes "into flags")
	VFPTransferFmxr                      // ARM reg -> FPSCR
	VFPTransferFmrs                      // VFP single -> ARM reg
	VFPTransferFmsr                      // ARM reg -> VFP single
	VFPTransferFcvtds                    // single -> double widen
	VFPTransferFcvtsd                    // double -> single narrow
	VFPTransferFldd
	VFPTransferFstd
)

// Instruction is the flat, un-boxed payload for one Kind. Only the fields
// relevant to the current Kind are meaningful; this mirrors the source's
// C tagged union without resorting to interface{} boxing or a variant per
// Go type, keeping the walker/encoder/VM switches exhaustive and cheap.
type Instruction struct {
	Kind Kind
	Cond Condition

	// --- Data processing (AND..MVN), including compare-shaped and
	// move-shaped forms. ---
	DPOp     DPOp
	SetFlags bool
	Dest     IntReg
	Op1      IntReg
	Op2      Operand2

	// --- Multiply (MUL, MLA). Invariant: Dest != Rm (builders enforce
	// this by swapping operands or inserting a MOV). ---
	Rm, Rs, Rn IntReg
	Accumulate bool

	// --- Single-register transfer (LDR/STR, word or byte). ---
	Base        IntReg
	Offset      Operand2
	PreIndexed  bool
	WriteBack   bool
	OffsetSub   bool // true: subtract Offset from Base
	Byte        bool
	Load        bool // true == LDR, false == STR

	// --- Multi-register transfer (LDM/STM). ---
	RegList uint16 // bitmap, bit i set => Ri included
	Mode    MultiMode
	Status  bool // ^ suffix: transfer user-mode / restore CPSR on LDM of PC

	// --- Branch (B, BL, and indirect/BX-shaped branches). ---
	Link         bool
	Local        bool
	LinkType     LinkType
	TargetLabel  LabelID
	TargetOffset int32 // used once the encoder resolves a word-distance
	HasIndirect  bool
	IndirectReg  IntReg

	// --- SWI. ---
	SWICode   uint32
	ReadMask  uint32 // bitmap over R0-R9: which the callee reads
	WriteMask uint32 // bitmap over R0-R9: which the callee writes

	// --- PC-relative literal load (LDRC) / ADR. ---
	LitLabel LabelID
	LinkTime bool
	LitSize  uint8 // bytes: 4 (word), 8 (double)

	// --- Conditional move (CMOV). ---
	Op3       Operand2
	TrueCond  Condition
	FalseCond Condition
	Fused     bool // true: caller supplied TrueCond/FalseCond directly

	// --- FPA / VFP data processing. ---
	FPAOp    FPAOp
	VFPOp    VFPOp
	Rounding RoundMode
	FPSize   uint8 // 4, 8, or 10 bytes
	FDest    uint32
	FOp1     uint32
	FOp2Reg  uint32
	FOp2Imm  uint8 // encoded FPA immediate index (4 bits: 0x8-0xF select table entries)
	FOp2IsImm bool
	IsDouble bool // VFP: operating on doubles (vs singles)

	// --- FPA / VFP register transfer. ---
	FPATransferOp FPATransferOp
	VFPTransferOp VFPTransferOp

	// --- Directive payloads. ---
	Bytes            []byte
	Words            []uint32
	Doubles          []float64
	ReverseWordOrder bool // FPA doubles are emitted big-word-ordered
	Str              string
	AlignTo          uint32
	Label            LabelID
}

// NewLabelNode returns a directive-kind Instruction that attaches a label
// to the current stream position.
func NewLabelNode(id LabelID) Instruction {
	return Instruction{Kind: KindLabel, Label: id}
}
