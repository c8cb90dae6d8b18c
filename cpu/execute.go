package cpu

import (
	"log"

	"github.com/ezrec/vcpu/breakpoint"
	"github.com/ezrec/vcpu/isa"
	"github.com/ezrec/vcpu/memory"
)

// StepResult is the outcome of a Step or Run.
type StepResult struct {
	Reason      Reason
	Instruction isa.Instruction // Last executed instruction, if any.
	Interrupt   int             // Serviced vector, for REASON_INTERRUPTED.
	Breakpoints []breakpoint.ID // Matching breakpoints, ascending.
	Cycles      uint64          // Cycles consumed.
	Steps       int             // Steps completed.
	Err         error           // Fault, for REASON_FAULTED.
}

// Stop requests a running Run to return with REASON_BREAK at the next
// instruction boundary. Stop may be called from any goroutine.
func (cpu *Cpu) Stop() {
	cpu.stop.Store(true)
}

// RaiseInterrupt queues a hardware interrupt. It is serviced at an
// instruction boundary once interrupts are enabled.
func (cpu *Cpu) RaiseInterrupt(vector int) (err error) {
	if vector < 0 || vector >= VECTOR_COUNT {
		err = ErrVectorInvalid
		return
	}

	if len(cpu.pending) >= INTERRUPT_PENDING {
		err = ErrInterruptQueueFull
		return
	}

	cpu.pending = append(cpu.pending, vector)
	return
}

// Run steps until the CPU halts, faults, hits a breakpoint, is stopped, or
// completes maxSteps steps. maxSteps <= 0 runs without a limit.
func (cpu *Cpu) Run(maxSteps int) (result StepResult) {
	var cycles uint64
	var steps int

	for maxSteps <= 0 || steps < maxSteps {
		if cpu.stop.Swap(false) {
			result.Reason = REASON_BREAK
			break
		}

		result = cpu.Step()
		cycles += result.Cycles
		steps += result.Steps

		if result.Reason != REASON_STEPPED && result.Reason != REASON_INTERRUPTED {
			break
		}

		if maxSteps > 0 && steps >= maxSteps {
			result.Reason = REASON_LIMIT
		}
	}

	result.Cycles = cycles
	result.Steps = steps

	return
}

// Step executes one instruction, or enters one pending interrupt handler.
// A halted or faulted CPU does not change state until Reset.
func (cpu *Cpu) Step() (result StepResult) {
	switch cpu.State {
	case STATE_HALTED:
		result.Reason = REASON_HALTED
		return
	case STATE_FAULTED:
		result.Reason = REASON_FAULTED
		result.Err = cpu.fault
		return
	}

	cpu.written = cpu.written[:0]
	saved := cpu.registers()
	start := cpu.Cycles

	var err error
	if len(cpu.pending) != 0 && cpu.Flags.Has(isa.FLAG_I) {
		vector := cpu.pending[0]
		err = cpu.interrupt(vector, cpu.PC)
		if err == nil {
			err = cpu.checkPC()
		}
		if err == nil {
			cpu.pending = cpu.pending[1:]
			cpu.Cycles += INTERRUPT_CYCLES
			result.Reason = REASON_INTERRUPTED
			result.Interrupt = vector
			if cpu.Verbose {
				log.Printf("cpu: interrupt %d -> $%04X", vector, cpu.PC)
			}
		}
	} else {
		var ins isa.Instruction
		var next uint32
		ins, next, err = isa.Decode(cpu.Bus, cpu.PC)
		if err == nil {
			if cpu.Verbose {
				log.Printf("cpu: $%04X %v", ins.Address, ins)
			}
			result.Instruction = ins
			err = cpu.execute(ins, next)
		}
		if err == nil {
			err = cpu.checkPC()
		}
		if err == nil {
			cpu.Cycles += uint64(ins.Cycles)
			result.Reason = REASON_STEPPED
			if ins.Opcode == isa.OP_HALT {
				result.Reason = REASON_HALTED
			}
		}
	}

	if err != nil {
		// Registers are left as they were before the step.
		cpu.restoreRegisters(saved)
		cpu.fault = &ErrFault{PC: saved.PC, Err: err}
		cpu.State = STATE_FAULTED
		if cpu.Verbose {
			log.Printf("cpu: %v", cpu.fault)
		}
		result.Reason = REASON_FAULTED
		result.Err = cpu.fault
		return
	}

	if cpu.State == STATE_READY {
		cpu.State = STATE_RUNNING
	}

	result.Cycles = cpu.Cycles - start
	result.Steps = 1

	if cpu.Breakpoints != nil && cpu.Breakpoints.Len() != 0 {
		result.Breakpoints = cpu.Breakpoints.Check(view{cpu})
		if len(result.Breakpoints) != 0 && result.Reason != REASON_HALTED {
			result.Reason = REASON_BREAKPOINT
		}
	}

	return
}

// checkPC faults a step that left the program counter outside memory.
func (cpu *Cpu) checkPC() (err error) {
	if cpu.PC >= uint32(cpu.Bus.Size()) {
		err = &memory.ErrAddress{Addr: cpu.PC, Err: memory.ErrAddressOutOfRange}
	}
	return
}

type registers struct {
	register [isa.REGISTER_COUNT]uint8
	flags    isa.Flags
	PC, SP   uint32
}

func (cpu *Cpu) registers() registers {
	return registers{cpu.Register, cpu.Flags, cpu.PC, cpu.SP}
}

func (cpu *Cpu) restoreRegisters(regs registers) {
	cpu.Register = regs.register
	cpu.Flags = regs.flags
	cpu.PC = regs.PC
	cpu.SP = regs.SP
}

func (cpu *Cpu) read(addr uint32) (value uint8, err error) {
	return cpu.Bus.Read(addr)
}

func (cpu *Cpu) write(addr uint32, value uint8) (err error) {
	err = cpu.Bus.Write(addr, value)
	if err != nil {
		return
	}

	cpu.written = append(cpu.written, addr)
	return
}

func (cpu *Cpu) push(value uint8) (err error) {
	if cpu.SP == 0 {
		err = ErrStackOverflow
		return
	}

	err = cpu.write(cpu.SP-1, value)
	if err != nil {
		return
	}

	cpu.SP--
	return
}

func (cpu *Cpu) pop() (value uint8, err error) {
	if cpu.SP >= min(cpu.Config.StackTop, uint32(cpu.Bus.Size())) {
		err = ErrStackUnderflow
		return
	}

	value, err = cpu.read(cpu.SP)
	if err != nil {
		return
	}

	cpu.SP++
	return
}

func (cpu *Cpu) pushAddr(addr uint32) (err error) {
	err = cpu.push(uint8(addr >> 8))
	if err != nil {
		return
	}

	err = cpu.push(uint8(addr))
	return
}

func (cpu *Cpu) popAddr() (addr uint32, err error) {
	lo, err := cpu.pop()
	if err != nil {
		return
	}

	hi, err := cpu.pop()
	if err != nil {
		return
	}

	addr = uint32(hi)<<8 | uint32(lo)
	return
}

// interrupt enters the handler of a vector, returning to ret.
func (cpu *Cpu) interrupt(vector int, ret uint32) (err error) {
	if vector < 0 || vector >= VECTOR_COUNT {
		err = ErrVectorInvalid
		return
	}

	entry := cpu.Config.VectorBase + 2*uint32(vector)
	lo, err := cpu.read(entry)
	if err != nil {
		return
	}
	hi, err := cpu.read(entry + 1)
	if err != nil {
		return
	}

	err = cpu.pushAddr(ret)
	if err != nil {
		return
	}

	err = cpu.push(uint8(cpu.Flags))
	if err != nil {
		return
	}

	cpu.Flags = cpu.Flags.With(isa.FLAG_I, false)
	cpu.PC = uint32(hi)<<8 | uint32(lo)

	return
}

// operand returns the source value of a two operand instruction.
func (cpu *Cpu) operand(ins isa.Instruction) (value uint8, err error) {
	switch ins.Mode {
	case isa.MODE_REG_REG:
		value = cpu.Register[ins.Src]
	case isa.MODE_REG_IMM:
		value = ins.Imm
	case isa.MODE_REG_ABS:
		value, err = cpu.read(ins.Addr)
	case isa.MODE_REG_IDX:
		value, err = cpu.read(ins.Addr + uint32(cpu.Register[ins.Src]))
	}

	return
}

// effective returns the memory address of a load or store.
func (cpu *Cpu) effective(ins isa.Instruction) uint32 {
	if ins.Mode == isa.MODE_REG_IDX {
		return ins.Addr + uint32(cpu.Register[ins.Src])
	}
	return ins.Addr
}

func zn(fl isa.Flags, value uint8) isa.Flags {
	return fl.With(isa.FLAG_Z, value == 0).With(isa.FLAG_N, value&0x80 != 0)
}

func add(fl isa.Flags, a, b, carry uint8) (value uint8, flags isa.Flags) {
	sum := uint16(a) + uint16(b) + uint16(carry)
	value = uint8(sum)
	flags = zn(fl, value).
		With(isa.FLAG_C, sum > 0xff).
		With(isa.FLAG_V, (^(a^b))&(a^value)&0x80 != 0)
	return
}

func sub(fl isa.Flags, a, b, borrow uint8) (value uint8, flags isa.Flags) {
	diff := int16(a) - int16(b) - int16(borrow)
	value = uint8(diff)
	flags = zn(fl, value).
		With(isa.FLAG_C, diff < 0).
		With(isa.FLAG_V, (a^b)&(a^value)&0x80 != 0)
	return
}

func logic(fl isa.Flags, value uint8) isa.Flags {
	return zn(fl, value).With(isa.FLAG_C|isa.FLAG_V, false)
}

// branch returns true if a relative branch is taken.
func branch(op isa.Opcode, fl isa.Flags) (taken bool) {
	switch op {
	case isa.OP_BRA:
		taken = true
	case isa.OP_BEQ:
		taken = fl.Has(isa.FLAG_Z)
	case isa.OP_BNE:
		taken = !fl.Has(isa.FLAG_Z)
	case isa.OP_BCS:
		taken = fl.Has(isa.FLAG_C)
	case isa.OP_BCC:
		taken = !fl.Has(isa.FLAG_C)
	case isa.OP_BMI:
		taken = fl.Has(isa.FLAG_N)
	case isa.OP_BPL:
		taken = !fl.Has(isa.FLAG_N)
	case isa.OP_BVS:
		taken = fl.Has(isa.FLAG_V)
	case isa.OP_BVC:
		taken = !fl.Has(isa.FLAG_V)
	}

	return
}

// execute applies a decoded instruction.
func (cpu *Cpu) execute(ins isa.Instruction, next uint32) (err error) {
	cpu.PC = next

	reg := &cpu.Register[ins.Reg]
	carry := uint8(cpu.Flags & isa.FLAG_C)

	switch ins.Opcode {
	case isa.OP_NOP:
	case isa.OP_HALT:
		cpu.State = STATE_HALTED
	case isa.OP_RET:
		cpu.PC, err = cpu.popAddr()
	case isa.OP_RETI:
		var fl uint8
		fl, err = cpu.pop()
		if err != nil {
			return
		}
		cpu.PC, err = cpu.popAddr()
		cpu.Flags = isa.Flags(fl) & isa.FLAG_MASK
	case isa.OP_EI:
		cpu.Flags = cpu.Flags.With(isa.FLAG_I, true)
	case isa.OP_DI:
		cpu.Flags = cpu.Flags.With(isa.FLAG_I, false)
	case isa.OP_SEC:
		cpu.Flags = cpu.Flags.With(isa.FLAG_C, true)
	case isa.OP_CLC:
		cpu.Flags = cpu.Flags.With(isa.FLAG_C, false)

	case isa.OP_LOAD_IMM, isa.OP_LOAD_ABS, isa.OP_LOAD_IDX, isa.OP_LOAD_REG:
		var value uint8
		value, err = cpu.operand(ins)
		if err != nil {
			return
		}
		*reg = value
		cpu.Flags = zn(cpu.Flags, value)
	case isa.OP_STORE_ABS, isa.OP_STORE_IDX:
		err = cpu.write(cpu.effective(ins), *reg)

	case isa.OP_ADD_REG, isa.OP_ADD_IMM, isa.OP_ADD_ABS,
		isa.OP_ADC_REG, isa.OP_ADC_IMM,
		isa.OP_SUB_REG, isa.OP_SUB_IMM, isa.OP_SUB_ABS,
		isa.OP_SBC_REG, isa.OP_SBC_IMM,
		isa.OP_CMP_REG, isa.OP_CMP_IMM, isa.OP_CMP_ABS,
		isa.OP_AND_REG, isa.OP_AND_IMM,
		isa.OP_OR_REG, isa.OP_OR_IMM,
		isa.OP_XOR_REG, isa.OP_XOR_IMM:
		var value uint8
		value, err = cpu.operand(ins)
		if err != nil {
			return
		}
		switch ins.Mnemonic {
		case "ADD":
			*reg, cpu.Flags = add(cpu.Flags, *reg, value, 0)
		case "ADC":
			*reg, cpu.Flags = add(cpu.Flags, *reg, value, carry)
		case "SUB":
			*reg, cpu.Flags = sub(cpu.Flags, *reg, value, 0)
		case "SBC":
			*reg, cpu.Flags = sub(cpu.Flags, *reg, value, carry)
		case "CMP":
			_, cpu.Flags = sub(cpu.Flags, *reg, value, 0)
		case "AND":
			*reg &= value
			cpu.Flags = logic(cpu.Flags, *reg)
		case "OR":
			*reg |= value
			cpu.Flags = logic(cpu.Flags, *reg)
		case "XOR":
			*reg ^= value
			cpu.Flags = logic(cpu.Flags, *reg)
		}
	case isa.OP_NOT:
		*reg = ^*reg
		cpu.Flags = logic(cpu.Flags, *reg)
	case isa.OP_SHL:
		out := *reg&0x80 != 0
		*reg <<= 1
		cpu.Flags = logic(cpu.Flags, *reg).With(isa.FLAG_C, out)
	case isa.OP_SHR:
		out := *reg&0x01 != 0
		*reg >>= 1
		cpu.Flags = logic(cpu.Flags, *reg).With(isa.FLAG_C, out)
	case isa.OP_INC:
		cpu.Flags = zn(cpu.Flags, *reg+1).With(isa.FLAG_V, *reg == 0x7f)
		*reg++
	case isa.OP_DEC:
		cpu.Flags = zn(cpu.Flags, *reg-1).With(isa.FLAG_V, *reg == 0x80)
		*reg--

	case isa.OP_JMP:
		cpu.PC = ins.Addr
	case isa.OP_CALL:
		err = cpu.pushAddr(next)
		cpu.PC = ins.Addr
	case isa.OP_BRA, isa.OP_BEQ, isa.OP_BNE, isa.OP_BCS, isa.OP_BCC,
		isa.OP_BMI, isa.OP_BPL, isa.OP_BVS, isa.OP_BVC:
		if branch(ins.Opcode, cpu.Flags) {
			cpu.PC = ins.Target
		}

	case isa.OP_PUSH:
		err = cpu.push(*reg)
	case isa.OP_PUSH_IMM:
		err = cpu.push(ins.Imm)
	case isa.OP_POP:
		var value uint8
		value, err = cpu.pop()
		if err != nil {
			return
		}
		*reg = value
		cpu.Flags = zn(cpu.Flags, value)
	case isa.OP_PUSHF:
		err = cpu.push(uint8(cpu.Flags))
	case isa.OP_POPF:
		var value uint8
		value, err = cpu.pop()
		cpu.Flags = isa.Flags(value) & isa.FLAG_MASK

	case isa.OP_INT:
		err = cpu.interrupt(int(ins.Imm), next)
	}

	return
}
