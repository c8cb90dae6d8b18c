package isa

import (
	"fmt"
)

// Instruction is a decoded instruction. It is never modified after Decode
// returns it.
type Instruction struct {
	*Descriptor

	Address uint32 // Address of the opcode byte.
	Bytes   []byte // Raw encoding, opcode first.

	Reg    Register // Destination or only register operand.
	Src    Register // Source register, or index register in MODE_REG_IDX.
	Imm    uint8    // Immediate value.
	Addr   uint32   // Absolute address, or index base in MODE_REG_IDX.
	Disp   int8     // Relative displacement.
	Target uint32   // Resolved relative branch destination.
}

// Length returns the encoded length in bytes.
func (ins Instruction) Length() int {
	return len(ins.Bytes)
}

// Next returns the address following the instruction.
func (ins Instruction) Next() uint32 {
	return ins.Address + uint32(len(ins.Bytes))
}

// Operands renders the operand text of the instruction.
func (ins Instruction) Operands() (text string) {
	switch ins.Mode {
	case MODE_IMPLIED:
	case MODE_REGISTER:
		text = ins.Reg.String()
	case MODE_REG_REG:
		text = fmt.Sprintf("%v, %v", ins.Reg, ins.Src)
	case MODE_REG_IMM:
		text = fmt.Sprintf("%v, #$%02X", ins.Reg, ins.Imm)
	case MODE_REG_ABS:
		text = fmt.Sprintf("%v, $%04X", ins.Reg, ins.Addr)
	case MODE_REG_IDX:
		text = fmt.Sprintf("%v, [$%04X+%v]", ins.Reg, ins.Addr, ins.Src)
	case MODE_IMM:
		text = fmt.Sprintf("#$%02X", ins.Imm)
	case MODE_ABS:
		text = fmt.Sprintf("$%04X", ins.Addr)
	case MODE_REL:
		text = fmt.Sprintf("$%04X", ins.Target)
	}

	return
}

// String renders the instruction in assembler syntax. The text assembles
// back to the same bytes.
func (ins Instruction) String() string {
	operands := ins.Operands()
	if len(operands) == 0 {
		return ins.Mnemonic
	}

	return ins.Mnemonic + " " + operands
}
