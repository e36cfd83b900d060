// Command runarm drives the three external entry points this backend
// exposes to the outside world (spec §6): assembling a textual IR
// fixture into an encoded ARM image, disassembling an encoded image
// back to readable mnemonics, and running one under the interpreter
// against the simulated RISC OS SWI surface.
package main

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/basic-arm/codegen/armencoder"
	"github.com/basic-arm/codegen/armisa"
	"github.com/basic-arm/codegen/armvm"
	"github.com/basic-arm/codegen/fpbuilder"
	"github.com/basic-arm/codegen/fpiface"
	"github.com/basic-arm/codegen/ir"
	"github.com/basic-arm/codegen/oppool"
	"github.com/basic-arm/codegen/rules"
	"github.com/basic-arm/codegen/section"
	"github.com/basic-arm/codegen/settings"
)

func main() {
	root := &cobra.Command{
		Use:   "runarm",
		Short: "Assemble, disassemble, and run ARM2/FPA/VFP images generated by this backend",
	}
	root.AddCommand(newAsmCmd(), newDumpCmd(), newRunCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// irOpFixture and irOperandFixture are the JSON shape an "asm" input
// file is read as: a flat op list, matching the fixtures rules_test.go
// builds by hand, just externalized to a file so the CLI has something
// to read without standing up the real upstream lexer/parser.
type irOpFixture struct {
	Mnemonic string              `json:"mnemonic"`
	Operands []irOperandFixture `json:"operands"`
}

type irOperandFixture struct {
	Kind    string  `json:"kind"` // reg, imm_int, imm_real, label
	Reg     uint32  `json:"reg,omitempty"`
	ImmInt  uint64  `json:"imm_int,omitempty"`
	ImmReal float64 `json:"imm_real,omitempty"`
	Label   string  `json:"label,omitempty"`
}

func (o irOperandFixture) toIR() (ir.Operand, error) {
	switch o.Kind {
	case "reg":
		return ir.Reg(ir.RegID(o.Reg)), nil
	case "imm_int":
		return ir.ImmInt(o.ImmInt), nil
	case "imm_real":
		return ir.ImmReal(o.ImmReal), nil
	case "label":
		return ir.LabelRef(o.Label), nil
	default:
		return ir.Operand{}, fmt.Errorf("runarm: unknown operand kind %q", o.Kind)
	}
}

func loadFixture(path string) ([]ir.Op, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []irOpFixture
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("runarm: parsing IR fixture %s: %w", path, err)
	}
	ops := make([]ir.Op, len(raw))
	for i, ro := range raw {
		ops[i].Mnemonic = ro.Mnemonic
		ops[i].Operands = make([]ir.Operand, len(ro.Operands))
		for j, roo := range ro.Operands {
			operand, err := roo.toIR()
			if err != nil {
				return nil, err
			}
			ops[i].Operands[j] = operand
		}
	}
	return ops, nil
}

func fpInterface(st settings.Settings) fpiface.Interface {
	if st.FPTarget == settings.TargetVFP {
		return fpbuilder.VFP{}
	}
	return fpbuilder.FPA{}
}

func newAsmCmd() *cobra.Command {
	var output string
	var settingsFile string
	cmd := &cobra.Command{
		Use:   "asm <fixture.json>",
		Short: "Lower a textual IR fixture through the rule engine and encode it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := loadFixture(args[0])
			if err != nil {
				return err
			}
			st := settings.Default()
			if settingsFile != "" {
				st, err = settings.Load(settingsFile)
				if err != nil {
					return err
				}
			}

			pool := oppool.New[armisa.Op](oppool.DefaultGranularity)
			sec := section.New(pool, nil, st)
			sec.FPIface = fpInterface(st)

			if err := rules.New().Run(sec, ops); err != nil {
				return fmt.Errorf("runarm: lowering IR: %w", err)
			}
			res, err := armencoder.Encode(sec)
			if err != nil {
				return fmt.Errorf("runarm: encoding: %w", err)
			}

			out := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return writeWords(out, res.Words)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output image path (default: stdout)")
	cmd.Flags().StringVar(&settingsFile, "settings", "", "optional TOML settings override")
	return cmd
}

func newDumpCmd() *cobra.Command {
	var startAddr uint32
	cmd := &cobra.Command{
		Use:   "dump <image>",
		Short: "Disassemble an encoded image, one line per word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			words, err := readWords(args[0])
			if err != nil {
				return err
			}
			for i, w := range words {
				addr := startAddr + uint32(i*4)
				inst, err := armvm.Disassemble(w)
				if err != nil {
					fmt.Printf("%08x: %08x  ; %v\n", addr, w, err)
					continue
				}
				fmt.Printf("%08x: %08x  %s\n", addr, w, describeInstruction(inst))
			}
			return nil
		},
	}
	cmd.Flags().Uint32Var(&startAddr, "entry", 0x8000, "address the first word is loaded at")
	return cmd
}

func newRunCmd() *cobra.Command {
	var startAddr uint32
	var memSize uint32
	cmd := &cobra.Command{
		Use:   "run <image>",
		Short: "Execute an encoded image under the ARM2/FPA/VFP interpreter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			words, err := readWords(args[0])
			if err != nil {
				return err
			}
			vm := armvm.New(startAddr, int(memSize), words)
			if err := vm.Run(); err != nil {
				return fmt.Errorf("runarm: %w", err)
			}
			os.Stdout.Write(vm.Out)
			return nil
		},
	}
	cmd.Flags().Uint32Var(&startAddr, "entry", 0x8000, "load/execution start address")
	cmd.Flags().Uint32Var(&memSize, "mem", 0x10000, "simulated memory size in bytes")
	return cmd
}

func readWords(path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("runarm: %s is not a whole number of 32-bit words", path)
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words, nil
}

func writeWords(f *os.File, words []uint32) error {
	buf := make([]byte, 4)
	for _, w := range words {
		binary.LittleEndian.PutUint32(buf, w)
		if _, err := f.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func describeInstruction(inst armisa.Instruction) string {
	switch inst.Kind {
	case armisa.KindDataProcessing:
		return fmt.Sprintf("%s%s R%d, R%d, ...", inst.DPOp, inst.Cond, inst.Dest, inst.Op1)
	case armisa.KindMultiply:
		return fmt.Sprintf("MUL%s R%d, R%d, R%d", inst.Cond, inst.Dest, inst.Rm, inst.Rs)
	case armisa.KindSingleTransfer:
		op := "STR"
		if inst.Load {
			op = "LDR"
		}
		if inst.Byte {
			op += "B"
		}
		return fmt.Sprintf("%s%s R%d, [R%d, ...]", op, inst.Cond, inst.Dest, inst.Base)
	case armisa.KindMultiTransfer:
		op := "STM"
		if inst.Load {
			op = "LDM"
		}
		return fmt.Sprintf("%s%s R%d!, {%#04x}", op, inst.Cond, inst.Base, inst.RegList)
	case armisa.KindBranch:
		op := "B"
		if inst.Link {
			op = "BL"
		}
		return fmt.Sprintf("%s%s #%d", op, inst.Cond, inst.TargetOffset)
	case armisa.KindSWI:
		return fmt.Sprintf("SWI%s &%X", inst.Cond, inst.SWICode)
	case armisa.KindFPAData:
		return fmt.Sprintf("FPA op %d F%d, F%d", inst.FPAOp, inst.FDest, inst.FOp1)
	case armisa.KindVFPData:
		return fmt.Sprintf("VFP op %d D%d, D%d", inst.VFPOp, inst.FDest, inst.FOp1)
	default:
		return fmt.Sprintf("kind %d", inst.Kind)
	}
}
