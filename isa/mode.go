package isa

// Mode is an addressing mode. The set is closed: every descriptor uses
// exactly one of these.
type Mode int

//go:generate go tool stringer -linecomment -type=Mode
const (
	MODE_IMPLIED  = Mode(0) // implied
	MODE_REGISTER = Mode(1) // register
	MODE_REG_REG  = Mode(2) // reg-reg
	MODE_REG_IMM  = Mode(3) // reg-imm
	MODE_REG_ABS  = Mode(4) // reg-abs
	MODE_REG_IDX  = Mode(5) // reg-idx
	MODE_IMM      = Mode(6) // imm
	MODE_ABS      = Mode(7) // abs
	MODE_REL      = Mode(8) // rel
)

// Operand is the syntactic kind of an assembler operand.
type Operand int

//go:generate go tool stringer -linecomment -type=Operand
const (
	OPERAND_NONE    = Operand(0) // none
	OPERAND_REG     = Operand(1) // register
	OPERAND_IMM     = Operand(2) // immediate
	OPERAND_ADDR    = Operand(3) // address
	OPERAND_INDEXED = Operand(4) // indexed
)

// Shape is the operand kinds of an instruction, in source order.
type Shape [2]Operand

// Len returns the number of operands in the shape.
func (sh Shape) Len() (n int) {
	for _, op := range sh {
		if op != OPERAND_NONE {
			n++
		}
	}
	return
}

// Length returns the number of operand bytes that follow the opcode.
func (m Mode) Length() int {
	switch m {
	case MODE_IMPLIED:
		return 0
	case MODE_REGISTER, MODE_REG_REG, MODE_IMM, MODE_REL:
		return 1
	case MODE_REG_IMM, MODE_ABS:
		return 2
	case MODE_REG_ABS, MODE_REG_IDX:
		return 3
	}

	panic("unknown addressing mode")
}

// Shape returns the operand kinds the assembler accepts for the mode.
func (m Mode) Shape() Shape {
	switch m {
	case MODE_IMPLIED:
		return Shape{}
	case MODE_REGISTER:
		return Shape{OPERAND_REG}
	case MODE_REG_REG:
		return Shape{OPERAND_REG, OPERAND_REG}
	case MODE_REG_IMM:
		return Shape{OPERAND_REG, OPERAND_IMM}
	case MODE_REG_ABS:
		return Shape{OPERAND_REG, OPERAND_ADDR}
	case MODE_REG_IDX:
		return Shape{OPERAND_REG, OPERAND_INDEXED}
	case MODE_IMM:
		return Shape{OPERAND_IMM}
	case MODE_ABS, MODE_REL:
		return Shape{OPERAND_ADDR}
	}

	panic("unknown addressing mode")
}
