package cpu

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezrec/vcpu/breakpoint"
	"github.com/ezrec/vcpu/isa"
	"github.com/ezrec/vcpu/memory"
)

// load builds a cpu with code at address 0.
func load(t *testing.T, code ...byte) (cpu *Cpu) {
	cpu = NewCpu(DefaultConfig())
	require.NoError(t, cpu.Bus.Load(0, code))
	return
}

// run executes code to a HALT.
func run(t *testing.T, code ...byte) (cpu *Cpu) {
	cpu = load(t, append(code, byte(isa.OP_HALT))...)
	result := cpu.Run(1000)
	require.Equal(t, REASON_HALTED, result.Reason, "%v", result.Err)
	return
}

func TestCpu_Example(t *testing.T) {
	assert := assert.New(t)

	// LOAD R0, #5 ; ADD R0, R0 ; HALT
	cpu := load(t, 0x10, 0x00, 0x05, 0x20, 0x00, 0x01)
	assert.Equal(STATE_READY, cpu.State)

	result := cpu.Run(0)
	assert.Equal(REASON_HALTED, result.Reason)
	assert.Equal(3, result.Steps)
	assert.Equal(uint64(4), result.Cycles)
	assert.Equal(uint8(10), cpu.Register[0])
	assert.Equal(STATE_HALTED, cpu.State)
	assert.Equal(uint32(6), cpu.PC)

	// Halted persists.
	result = cpu.Step()
	assert.Equal(REASON_HALTED, result.Reason)
	assert.Equal(0, result.Steps)
	assert.Equal(uint64(4), cpu.Cycles)

	cpu.Reset()
	assert.Equal(STATE_READY, cpu.State)
	assert.Equal(uint32(0), cpu.PC)
	assert.Equal(uint32(STACK_TOP), cpu.SP)
	assert.Equal(uint8(0), cpu.Register[0])
}

func TestCpu_Determinism(t *testing.T) {
	assert := assert.New(t)

	code := []byte{
		0x10, 0x00, 0x03, // LOAD R0, #3
		0x21, 0x01, 0x07, // ADD R1, #7
		0x3a, 0x00, // DEC R0
		0x44, 0xf9, // BNE $0003
		0x14, 0x01, 0x00, 0x02, // STORE R1, $0200
		0x01, // HALT
	}

	first := load(t, code...)
	second := load(t, code...)

	r1 := first.Run(0)
	r2 := second.Run(0)

	assert.Equal(REASON_HALTED, r1.Reason)
	assert.Equal(r1, r2)
	assert.Equal(first.Snapshot(), second.Snapshot())
	assert.Equal(first.Bus.Dump(), second.Bus.Dump())
	assert.Equal(uint8(21), first.Register[1])

	value, err := first.Bus.Peek(0x200)
	assert.NoError(err)
	assert.Equal(uint8(21), value)
}

func TestCpu_Breakpoint(t *testing.T) {
	assert := assert.New(t)

	cpu := load(t, 0x10, 0x00, 0x05, 0x20, 0x00, 0x01)
	id, err := cpu.Breakpoints.Add(breakpoint.At(3))
	require.NoError(t, err)

	result := cpu.Run(0)
	assert.Equal(REASON_BREAKPOINT, result.Reason)
	assert.Equal([]breakpoint.ID{id}, result.Breakpoints)
	assert.Equal(uint32(3), cpu.PC)
	assert.Equal(uint8(5), cpu.Register[0])
	assert.Equal(STATE_RUNNING, cpu.State)

	result = cpu.Run(0)
	assert.Equal(REASON_HALTED, result.Reason)
	assert.Equal(uint8(10), cpu.Register[0])

	bp, err := cpu.Breakpoints.Get(id)
	assert.NoError(err)
	assert.Equal(uint64(1), bp.Hits)

	// Disabled breakpoints are passed through.
	cpu.Reset()
	assert.NoError(cpu.Breakpoints.Disable(id))
	result = cpu.Run(0)
	assert.Equal(REASON_HALTED, result.Reason)
	assert.Empty(result.Breakpoints)
}

func TestCpu_DataBreakpoint(t *testing.T) {
	assert := assert.New(t)

	cpu := load(t,
		0x10, 0x00, 0x01, // LOAD R0, #1
		0x14, 0x00, 0x00, 0x01, // STORE R0, $0100
		0x50, 0x00, // PUSH R0
		0x01, // HALT
	)
	data, err := cpu.Breakpoints.Add(breakpoint.Write(0x100, 0x100))
	require.NoError(t, err)
	stack, err := cpu.Breakpoints.Add(breakpoint.Write(STACK_TOP-1, STACK_TOP-1))
	require.NoError(t, err)

	result := cpu.Run(0)
	assert.Equal(REASON_BREAKPOINT, result.Reason)
	assert.Equal([]breakpoint.ID{data}, result.Breakpoints)
	assert.Equal(uint32(7), cpu.PC)
	assert.Equal([]uint32{0x100}, cpu.Written())

	result = cpu.Run(0)
	assert.Equal(REASON_BREAKPOINT, result.Reason)
	assert.Equal([]breakpoint.ID{stack}, result.Breakpoints)
	assert.Equal([]uint32{STACK_TOP - 1}, cpu.Written())

	result = cpu.Run(0)
	assert.Equal(REASON_HALTED, result.Reason)
}

func TestCpu_ExpressionBreakpoint(t *testing.T) {
	assert := assert.New(t)

	cpu := load(t,
		0x39, 0x02, // INC R2
		0x40, 0x00, 0x00, // JMP $0000
	)
	_, err := cpu.Breakpoints.Add(breakpoint.When("r2 == 3"))
	require.NoError(t, err)

	result := cpu.Run(100)
	assert.Equal(REASON_BREAKPOINT, result.Reason)
	assert.Equal(5, result.Steps)
	assert.Equal(uint8(3), cpu.Register[2])
}

func TestCpu_Fault(t *testing.T) {
	assert := assert.New(t)

	cpu := load(t, 0x00, 0xff)

	result := cpu.Step()
	assert.Equal(REASON_STEPPED, result.Reason)

	result = cpu.Step()
	assert.Equal(REASON_FAULTED, result.Reason)
	assert.ErrorIs(result.Err, isa.ErrIllegalOpcode)
	assert.Equal(STATE_FAULTED, cpu.State)

	var fault *ErrFault
	require.True(t, errors.As(result.Err, &fault))
	assert.Equal(uint32(1), fault.PC)
	assert.Equal(uint32(1), cpu.PC)

	// Faults persist until reset.
	again := cpu.Step()
	assert.Equal(REASON_FAULTED, again.Reason)
	assert.Equal(result.Err, again.Err)
	assert.Equal(result.Err, cpu.Fault())

	cpu.Reset()
	assert.Equal(STATE_READY, cpu.State)
	assert.NoError(cpu.Fault())
}

func TestCpu_MemoryFault(t *testing.T) {
	assert := assert.New(t)

	cpu := load(t,
		0x10, 0x01, 0x10, // LOAD R1, #$10
		0x12, 0x01, 0xf8, 0xff, // LOAD R0, [$FFF8+R1]
	)

	result := cpu.Run(0)
	assert.Equal(REASON_FAULTED, result.Reason)
	assert.ErrorIs(result.Err, memory.ErrAddressOutOfRange)
	assert.Equal(uint32(3), cpu.PC)

	cpu = load(t,
		0x10, 0x00, 0x42, // LOAD R0, #$42
		0x50, 0x00, // PUSH R0
		0x14, 0x00, 0x00, 0x10, // STORE R0, $1000
	)
	require.NoError(t, cpu.Bus.Protect(0x1000, 0x1fff))

	result = cpu.Run(0)
	assert.Equal(REASON_FAULTED, result.Reason)
	assert.ErrorIs(result.Err, memory.ErrReadOnly)
	assert.Equal(uint32(5), cpu.PC)
	assert.Equal(uint32(STACK_TOP-1), cpu.SP)
	assert.Empty(cpu.Written())

	cpu = load(t, 0x02) // RET
	result = cpu.Run(0)
	assert.ErrorIs(result.Err, ErrStackUnderflow)
	assert.Equal(uint32(STACK_TOP), cpu.SP)
}

func TestCpu_PCEndOfMemory(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(DefaultConfig())
	require.NoError(t, cpu.Bus.Load(0xffff, []byte{byte(isa.OP_NOP)}))
	cpu.PC = 0xffff

	result := cpu.Step()
	assert.Equal(REASON_FAULTED, result.Reason)
	assert.ErrorIs(result.Err, memory.ErrAddressOutOfRange)
	assert.Equal(STATE_FAULTED, cpu.State)
	assert.Equal(uint32(0xffff), cpu.PC)
	assert.Equal(uint64(0), cpu.Cycles)

	var fault *ErrFault
	require.True(t, errors.As(result.Err, &fault))
	assert.Equal(uint32(0xffff), fault.PC)

	var ea *memory.ErrAddress
	require.True(t, errors.As(result.Err, &ea))
	assert.Equal(uint32(0x10000), ea.Addr)
}

func TestCpu_PCSmallBus(t *testing.T) {
	config := Config{MemorySize: 0x1000, StackTop: 0x1000, VectorBase: 0xff0}

	table := [...]struct {
		name string
		code []byte
		pc   uint32 // Address of the faulting instruction.
	}{
		{"jmp", []byte{0x40, 0x00, 0x20}, 0},
		{"call", []byte{0x41, 0x00, 0x30}, 0},
		{"ret", []byte{0x54, 0x20, 0x54, 0x00, 0x02}, 4},
		{"int", []byte{0x60, 0x01}, 0},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			assert := assert.New(t)

			cpu := NewCpu(config)
			require.NoError(t, cpu.Bus.Load(0, entry.code))
			require.NoError(t, cpu.Bus.Load(0xff2, []byte{0x00, 0x40}))

			result := cpu.Run(10)
			assert.Equal(REASON_FAULTED, result.Reason)
			assert.ErrorIs(result.Err, memory.ErrAddressOutOfRange)
			assert.Less(cpu.PC, uint32(cpu.Bus.Size()))
			assert.Equal(entry.pc, cpu.PC)

			var fault *ErrFault
			require.True(t, errors.As(result.Err, &fault))
			assert.Equal(entry.pc, fault.PC)
		})
	}
}

func TestCpu_PCInterruptVector(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(Config{MemorySize: 0x1000, StackTop: 0x1000, VectorBase: 0xff0})
	require.NoError(t, cpu.Bus.Load(0, []byte{0x04, 0x00}))    // EI ; NOP
	require.NoError(t, cpu.Bus.Load(0xff0, []byte{0x00, 0x80})) // vector 0 -> $8000
	require.NoError(t, cpu.RaiseInterrupt(0))

	result := cpu.Run(10)
	assert.Equal(REASON_FAULTED, result.Reason)
	assert.ErrorIs(result.Err, memory.ErrAddressOutOfRange)
	assert.Equal(uint32(1), cpu.PC)
	assert.Equal(uint32(0x1000), cpu.SP)
	assert.Equal([]int{0}, cpu.Snapshot().Pending)
}

func TestCpu_Flags(t *testing.T) {
	table := [...]struct {
		name  string
		code  []byte
		value uint8
		flags isa.Flags
	}{
		{"load-zero", []byte{0x10, 0x00, 0x00}, 0x00, isa.FLAG_Z},
		{"add-overflow", []byte{0x10, 0x00, 0x7f, 0x21, 0x00, 0x01}, 0x80, isa.FLAG_N | isa.FLAG_V},
		{"add-carry", []byte{0x10, 0x00, 0xff, 0x21, 0x00, 0x01}, 0x00, isa.FLAG_Z | isa.FLAG_C},
		{"adc", []byte{0x06, 0x10, 0x00, 0x01, 0x24, 0x00, 0x01}, 0x03, 0},
		{"sub-borrow", []byte{0x26, 0x00, 0x01}, 0xff, isa.FLAG_N | isa.FLAG_C},
		{"sub-overflow", []byte{0x10, 0x00, 0x80, 0x26, 0x00, 0x01}, 0x7f, isa.FLAG_V},
		{"sbc", []byte{0x06, 0x10, 0x00, 0x05, 0x29, 0x00, 0x01}, 0x03, 0},
		{"cmp-equal", []byte{0x10, 0x00, 0x09, 0x2b, 0x00, 0x09}, 0x09, isa.FLAG_Z},
		{"and-clears", []byte{0x06, 0x10, 0x00, 0xf0, 0x31, 0x00, 0x0f}, 0x00, isa.FLAG_Z},
		{"xor", []byte{0x10, 0x00, 0xf0, 0x35, 0x00, 0x0f}, 0xff, isa.FLAG_N},
		{"not", []byte{0x10, 0x00, 0xff, 0x36, 0x00}, 0x00, isa.FLAG_Z},
		{"shl", []byte{0x10, 0x00, 0x81, 0x37, 0x00}, 0x02, isa.FLAG_C},
		{"shr", []byte{0x10, 0x00, 0x81, 0x38, 0x00}, 0x40, isa.FLAG_C},
		{"inc-overflow", []byte{0x10, 0x00, 0x7f, 0x39, 0x00}, 0x80, isa.FLAG_N | isa.FLAG_V},
		{"dec-keeps-carry", []byte{0x06, 0x3a, 0x00}, 0xff, isa.FLAG_N | isa.FLAG_C},
		{"popf-masks", []byte{0x54, 0xff, 0x53}, 0x00, isa.FLAG_MASK},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			assert := assert.New(t)

			cpu := run(t, entry.code...)
			assert.Equal(entry.value, cpu.Register[0])
			assert.Equal(entry.flags, cpu.Flags, "flags %v", cpu.Flags)
		})
	}
}

func TestCpu_Branch(t *testing.T) {
	assert := assert.New(t)

	cpu := run(t,
		0x10, 0x00, 0x00, // LOAD R0, #0
		0x43, 0x03, // BEQ $0008
		0x10, 0x01, 0x01, // LOAD R1, #1
		0x10, 0x02, 0x02, // LOAD R2, #2
		0x44, 0x03, // BNE $0010
		0x10, 0x03, 0x03, // LOAD R3, #3
	)

	assert.Equal(uint8(0), cpu.Register[1])
	assert.Equal(uint8(2), cpu.Register[2])
	assert.Equal(uint8(0), cpu.Register[3])
	assert.Equal(uint32(17), cpu.PC)
}

func TestCpu_CallReturn(t *testing.T) {
	assert := assert.New(t)

	code := make([]byte, 0x20)
	copy(code, []byte{
		0x41, 0x10, 0x00, // CALL $0010
		0x01, // HALT
	})
	copy(code[0x10:], []byte{
		0x10, 0x01, 0x07, // LOAD R1, #7
		0x02, // RET
	})
	cpu := load(t, code...)

	result := cpu.Step()
	assert.Equal(REASON_STEPPED, result.Reason)
	assert.Equal(uint32(0x10), cpu.PC)
	assert.Equal(uint32(STACK_TOP-2), cpu.SP)
	assert.Equal([]uint32{STACK_TOP - 1, STACK_TOP - 2}, cpu.Written())

	hi, _ := cpu.Bus.Peek(STACK_TOP - 1)
	lo, _ := cpu.Bus.Peek(STACK_TOP - 2)
	assert.Equal(uint8(0x00), hi)
	assert.Equal(uint8(0x03), lo)

	result = cpu.Run(0)
	assert.Equal(REASON_HALTED, result.Reason)
	assert.Equal(uint8(7), cpu.Register[1])
	assert.Equal(uint32(STACK_TOP), cpu.SP)
	assert.Equal(uint32(4), cpu.PC)
}

func TestCpu_Interrupt(t *testing.T) {
	assert := assert.New(t)

	cpu := load(t,
		0x04, // EI
		0x00, // NOP
		0x01, // HALT
	)
	require.NoError(t, cpu.Bus.Load(0x20, []byte{
		0x10, 0x02, 0x09, // LOAD R2, #9
		0x03, // RETI
	}))
	require.NoError(t, cpu.Bus.Load(VECTOR_BASE+2, []byte{0x20, 0x00}))

	assert.ErrorIs(cpu.RaiseInterrupt(VECTOR_COUNT), ErrVectorInvalid)
	assert.ErrorIs(cpu.RaiseInterrupt(-1), ErrVectorInvalid)

	// Pending while interrupts are disabled.
	require.NoError(t, cpu.RaiseInterrupt(1))
	result := cpu.Step()
	assert.Equal(REASON_STEPPED, result.Reason)
	assert.Equal(isa.OP_EI, result.Instruction.Opcode)
	assert.Equal([]int{1}, cpu.Snapshot().Pending)

	result = cpu.Step()
	assert.Equal(REASON_INTERRUPTED, result.Reason)
	assert.Equal(1, result.Interrupt)
	assert.Equal(uint64(INTERRUPT_CYCLES), result.Cycles)
	assert.Equal(uint32(0x20), cpu.PC)
	assert.Equal(uint32(STACK_TOP-3), cpu.SP)
	assert.False(cpu.Flags.Has(isa.FLAG_I))
	assert.Empty(cpu.Snapshot().Pending)

	saved, _ := cpu.Bus.Peek(STACK_TOP - 3)
	assert.Equal(uint8(isa.FLAG_I), saved)

	result = cpu.Run(0)
	assert.Equal(REASON_HALTED, result.Reason)
	assert.Equal(uint8(9), cpu.Register[2])
	assert.True(cpu.Flags.Has(isa.FLAG_I))
	assert.Equal(uint32(STACK_TOP), cpu.SP)
	assert.Equal(uint32(3), cpu.PC)
}

func TestCpu_SoftwareInterrupt(t *testing.T) {
	assert := assert.New(t)

	cpu := load(t,
		0x60, 0x02, // INT #2
	)
	require.NoError(t, cpu.Bus.Load(0x30, []byte{0x01}))
	require.NoError(t, cpu.Bus.Load(VECTOR_BASE+4, []byte{0x30, 0x00}))

	result := cpu.Run(0)
	assert.Equal(REASON_HALTED, result.Reason)
	assert.Equal(uint32(0x31), cpu.PC)
	assert.Equal(uint64(8), cpu.Cycles)

	cpu = load(t, 0x60, 0x08) // INT #8
	result = cpu.Run(0)
	assert.ErrorIs(result.Err, ErrVectorInvalid)
}

func TestCpu_Limit(t *testing.T) {
	assert := assert.New(t)

	cpu := load(t, 0x40, 0x00, 0x00) // JMP $0000

	result := cpu.Run(10)
	assert.Equal(REASON_LIMIT, result.Reason)
	assert.Equal(10, result.Steps)
	assert.Equal(uint64(30), result.Cycles)

	cpu.Stop()
	result = cpu.Run(0)
	assert.Equal(REASON_BREAK, result.Reason)
	assert.Equal(0, result.Steps)

	go func() {
		time.Sleep(10 * time.Millisecond)
		cpu.Stop()
	}()
	result = cpu.Run(0)
	assert.Equal(REASON_BREAK, result.Reason)
	assert.Equal(STATE_RUNNING, cpu.State)
}

func TestCpu_String(t *testing.T) {
	assert := assert.New(t)

	cpu := run(t, 0x10, 0x03, 0xab)

	text := cpu.String()
	assert.Contains(text, " state: halted\n")
	assert.Contains(text, "    pc: 0004\n")
	assert.Contains(text, "    sp: FFE0\n")
	assert.Contains(text, " flags: N-------\n")
	assert.Contains(text, "    r3: AB\n")
}
