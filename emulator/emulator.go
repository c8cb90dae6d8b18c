// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"maps"
	"strconv"
	"strings"

	"github.com/ezrec/vcpu/asm"
	"github.com/ezrec/vcpu/breakpoint"
	"github.com/ezrec/vcpu/cpu"
	"github.com/ezrec/vcpu/device"
	"github.com/ezrec/vcpu/internal"
)

const (
	TAPE_BASE = 0xfff0 // Tape ports, above the vector table.
)

// Emulator state. CPU + memory + breakpoints + tape.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *asm.Program // Reference to the currently loaded program listing.

	Tape device.Tape // Tape IO device.
}

// NewEmulator creates a new emulator, with the tape mapped at TAPE_BASE
// when the address space reaches it.
func NewEmulator(config cpu.Config) (emu *Emulator, err error) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(config),
		Program: &asm.Program{},
	}

	emu.Tape.Base = TAPE_BASE
	if emu.Tape.Base+device.TAPE_SIZE <= uint32(emu.Bus.Size()) {
		err = emu.Bus.Map(emu.Tape.Base, emu.Tape.Base+device.TAPE_SIZE-1, &emu.Tape)
		if err != nil {
			return
		}
	}

	return
}

// Defines returns an iterator over all of the defines, in name order.
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	defines := map[string]string{
		"MEMORY_SIZE": fmt.Sprintf("%v", emu.Bus.Size()),
		"STACK_TOP":   fmt.Sprintf("$%04X", emu.Config.StackTop),
		"VECTOR_BASE": fmt.Sprintf("$%04X", emu.Config.VectorBase),
	}

	return internal.IterSeq2Sorted(internal.IterSeq2Concat(maps.All(defines),
		emu.Tape.Defines(),
	))
}

// Assemble assembles source against the emulator defines, and loads it.
func (emu *Emulator) Assemble(input io.Reader) (prog *asm.Program, err error) {
	assembler := &asm.Assembler{
		Verbose: emu.Verbose,
		Origin:  emu.Config.Origin,
	}
	for name, value := range emu.Defines() {
		assembler.Predefine(name, value)
	}

	prog, err = assembler.Assemble(input)
	if err != nil {
		return
	}

	err = emu.Load(prog)
	return
}

// Load copies a program into memory and resets the emulator.
func (emu *Emulator) Load(prog *asm.Program) (err error) {
	for addr, code := range prog.Codes() {
		err = emu.Bus.Load(addr, code)
		if err != nil {
			return
		}
	}

	emu.Program = prog
	emu.Reset()

	if emu.Verbose {
		log.Printf("emulator: loaded $%04X-$%04X", prog.Origin, prog.End())
	}

	return
}

// Reset the CPU and the tape. Memory is kept.
func (emu *Emulator) Reset() {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Breakpoints.Verbose = emu.Verbose
	emu.Tape.Verbose = emu.Verbose
	emu.Cpu.Reset()
	emu.Tape.Rewind()
}

// LineNo returns the source line number of the instruction at the PC, or
// 0 if it is not part of the program.
func (emu *Emulator) LineNo() int {
	line, ok := emu.Program.Lookup(emu.Cpu.PC)
	if !ok {
		return 0
	}

	return line.LineNo
}

// wrap annotates a faulted result with its source line.
func (emu *Emulator) wrap(result cpu.StepResult) (err error) {
	if result.Reason != cpu.REASON_FAULTED {
		return
	}

	lineno := 0
	var fault *cpu.ErrFault
	if errors.As(result.Err, &fault) {
		if line, ok := emu.Program.Lookup(fault.PC); ok {
			lineno = line.LineNo
		}
	}

	err = &ErrRuntime{LineNo: lineno, Err: result.Err}
	return
}

// Step performs a single step of the emulator.
func (emu *Emulator) Step() (result cpu.StepResult, err error) {
	emu.Cpu.Verbose = emu.Verbose

	result = emu.Cpu.Step()
	err = emu.wrap(result)

	return
}

// Run runs the emulator, until it halts, faults, hits a breakpoint, is
// stopped, or completes maxSteps steps.
func (emu *Emulator) Run(maxSteps int) (result cpu.StepResult, err error) {
	emu.Cpu.Verbose = emu.Verbose

	result = emu.Cpu.Run(maxSteps)
	err = emu.wrap(result)

	return
}

// Address resolves a program label, or a $hex, 0x or decimal number.
func (emu *Emulator) Address(name string) (addr uint32, err error) {
	if value, ok := emu.Program.Symbols[name]; ok {
		addr = value
		return
	}

	text := name
	if strings.HasPrefix(text, "$") {
		text = "0x" + text[1:]
	}

	value, perr := strconv.ParseUint(text, 0, 32)
	if perr != nil || value >= uint64(emu.Bus.Size()) {
		err = fmt.Errorf("%w: %v", ErrAddressUnknown, name)
		return
	}

	addr = uint32(value)
	return
}

// BreakAt adds an address breakpoint at a label or address.
func (emu *Emulator) BreakAt(name string) (id breakpoint.ID, err error) {
	addr, err := emu.Address(name)
	if err != nil {
		return
	}

	id, err = emu.Breakpoints.Add(breakpoint.At(addr))
	return
}

// Listing disassembles memory in [start, end), annotated with program
// labels and source line numbers.
func (emu *Emulator) Listing(start, end uint32) iter.Seq[string] {
	return func(yield func(string) bool) {
		for line := range asm.Disassemble(emu.Bus, start, end) {
			for _, label := range emu.Program.Labels(line.Address) {
				if !yield(label + ":") {
					return
				}
			}

			text := "      " + line.String()
			if line.Address == emu.Cpu.PC {
				text = "=>    " + line.String()
			}
			if src, ok := emu.Program.Lookup(line.Address); ok && len(line.Bytes) != 0 {
				text = fmt.Sprintf("%-40s ; line %d", text, src.LineNo)
			}
			if !yield(text) {
				return
			}
		}
	}
}
