package cpu

import (
	"fmt"
	"log"
	"slices"
	"sync/atomic"

	"github.com/ezrec/vcpu/breakpoint"
	"github.com/ezrec/vcpu/isa"
	"github.com/ezrec/vcpu/memory"
)

// Cpu is the simulation context of the virtual CPU.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Config      Config              // Machine configuration.
	Bus         *memory.Bus         // Memory bus.
	Breakpoints *breakpoint.Manager // Breakpoints checked after each step.

	Register [isa.REGISTER_COUNT]uint8 // Register bank.
	Flags    isa.Flags                 // Flags register.
	PC       uint32                    // Program counter.
	SP       uint32                    // Stack pointer, full descending.
	Cycles   uint64                    // Cycles since reset.
	State    State                     // Execution state.

	fault   error    // Fault, while STATE_FAULTED.
	pending []int    // Queued interrupt vectors.
	written []uint32 // Addresses stored to by the last step.
	stop    atomic.Bool
}

// Snapshot is a read-only copy of the CPU registers.
type Snapshot struct {
	Register [isa.REGISTER_COUNT]uint8
	Flags    isa.Flags
	PC       uint32
	SP       uint32
	Cycles   uint64
	State    State
	Pending  []int // Queued interrupt vectors, oldest first.
}

// NewCpu creates a reset CPU with a fresh bus and breakpoint manager.
func NewCpu(config Config) (cpu *Cpu) {
	cpu = &Cpu{
		Config:      config,
		Bus:         memory.NewBus(config.MemorySize),
		Breakpoints: breakpoint.NewManager(),
	}

	cpu.Reset()

	return
}

// Reset the CPU state.
// - Clears the registers, flags and cycle counter.
// - Drops pending interrupts and any fault.
// - Sets PC to the origin, and SP to the stack top.
// Memory is not modified.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Register[:])
	cpu.Flags = 0
	cpu.PC = cpu.Config.Origin
	cpu.SP = min(cpu.Config.StackTop, uint32(cpu.Bus.Size()))
	cpu.Cycles = 0
	cpu.State = STATE_READY
	cpu.fault = nil
	cpu.pending = nil
	cpu.written = nil
	cpu.stop.Store(false)
}

// Fault returns the fault of a STATE_FAULTED cpu, otherwise nil.
func (cpu *Cpu) Fault() error {
	return cpu.fault
}

// Snapshot returns a copy of the CPU registers.
func (cpu *Cpu) Snapshot() Snapshot {
	return Snapshot{
		Register: cpu.Register,
		Flags:    cpu.Flags,
		PC:       cpu.PC,
		SP:       cpu.SP,
		Cycles:   cpu.Cycles,
		State:    cpu.State,
		Pending:  slices.Clone(cpu.pending),
	}
}

// Written returns the addresses stored to by the last step.
func (cpu *Cpu) Written() []uint32 {
	return slices.Clone(cpu.written)
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	regs := []string{
		"state", "pc", "sp", "flags",
		"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7",
		"cycles",
	}
	for _, reg := range regs {
		var strval string
		switch reg {
		case "state":
			strval = cpu.State.String()
		case "pc":
			strval = fmt.Sprintf("%04X", cpu.PC)
		case "sp":
			strval = fmt.Sprintf("%04X", cpu.SP)
		case "flags":
			strval = cpu.Flags.String()
		case "r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7":
			strval = fmt.Sprintf("%02X", cpu.Register[reg[1]-'0'])
		case "cycles":
			strval = fmt.Sprintf("%v", cpu.Cycles)
		}
		text += fmt.Sprintf("% 6s: %v\n", reg, strval)
	}

	return
}

// view is the breakpoint view of a cpu.
type view struct {
	cpu *Cpu
}

var _ breakpoint.View = view{}

func (v view) PC() uint32                    { return v.cpu.PC }
func (v view) SP() uint32                    { return v.cpu.SP }
func (v view) Register(r isa.Register) uint8 { return v.cpu.Register[r] }
func (v view) Flags() isa.Flags              { return v.cpu.Flags }
func (v view) Cycles() uint64                { return v.cpu.Cycles }
func (v view) Written() []uint32             { return v.cpu.written }

func (v view) Peek(addr uint32) (byte, error) {
	return v.cpu.Bus.Peek(addr)
}
