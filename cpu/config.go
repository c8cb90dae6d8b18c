package cpu

import (
	"github.com/ezrec/vcpu/memory"
)

const (
	VECTOR_COUNT      = 8      // Number of interrupt vectors.
	VECTOR_BASE       = 0xffe0 // Default address of the interrupt vector table.
	STACK_TOP         = 0xffe0 // Default initial stack pointer.
	INTERRUPT_CYCLES  = 7      // Cycle cost of an interrupt entry.
	INTERRUPT_PENDING = 16     // Maximum number of queued interrupts.
)

// Config is the machine configuration applied at Reset.
type Config struct {
	MemorySize int    // Size of the address space, in bytes.
	Origin     uint32 // Program counter after reset.
	StackTop   uint32 // Stack pointer after reset, clamped to MemorySize.
	VectorBase uint32 // Address of the interrupt vector table.
}

// DefaultConfig returns the standard 64K machine.
func DefaultConfig() Config {
	return Config{
		MemorySize: memory.MAX_SIZE,
		Origin:     0,
		StackTop:   STACK_TOP,
		VectorBase: VECTOR_BASE,
	}
}
