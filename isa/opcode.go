package isa

import (
	"fmt"
	"iter"
	"strings"
)

// Opcode is the first byte of every instruction.
type Opcode uint8

const (
	OP_NOP  = Opcode(0x00)
	OP_HALT = Opcode(0x01)
	OP_RET  = Opcode(0x02)
	OP_RETI = Opcode(0x03)
	OP_EI   = Opcode(0x04)
	OP_DI   = Opcode(0x05)
	OP_SEC  = Opcode(0x06)
	OP_CLC  = Opcode(0x07)

	OP_LOAD_IMM  = Opcode(0x10)
	OP_LOAD_ABS  = Opcode(0x11)
	OP_LOAD_IDX  = Opcode(0x12)
	OP_LOAD_REG  = Opcode(0x13)
	OP_STORE_ABS = Opcode(0x14)
	OP_STORE_IDX = Opcode(0x15)

	OP_ADD_REG = Opcode(0x20)
	OP_ADD_IMM = Opcode(0x21)
	OP_ADD_ABS = Opcode(0x22)
	OP_ADC_REG = Opcode(0x23)
	OP_ADC_IMM = Opcode(0x24)
	OP_SUB_REG = Opcode(0x25)
	OP_SUB_IMM = Opcode(0x26)
	OP_SUB_ABS = Opcode(0x27)
	OP_SBC_REG = Opcode(0x28)
	OP_SBC_IMM = Opcode(0x29)
	OP_CMP_REG = Opcode(0x2a)
	OP_CMP_IMM = Opcode(0x2b)
	OP_CMP_ABS = Opcode(0x2c)

	OP_AND_REG = Opcode(0x30)
	OP_AND_IMM = Opcode(0x31)
	OP_OR_REG  = Opcode(0x32)
	OP_OR_IMM  = Opcode(0x33)
	OP_XOR_REG = Opcode(0x34)
	OP_XOR_IMM = Opcode(0x35)
	OP_NOT     = Opcode(0x36)
	OP_SHL     = Opcode(0x37)
	OP_SHR     = Opcode(0x38)
	OP_INC     = Opcode(0x39)
	OP_DEC     = Opcode(0x3a)

	OP_JMP  = Opcode(0x40)
	OP_CALL = Opcode(0x41)
	OP_BRA  = Opcode(0x42)
	OP_BEQ  = Opcode(0x43)
	OP_BNE  = Opcode(0x44)
	OP_BCS  = Opcode(0x45)
	OP_BCC  = Opcode(0x46)
	OP_BMI  = Opcode(0x47)
	OP_BPL  = Opcode(0x48)
	OP_BVS  = Opcode(0x49)
	OP_BVC  = Opcode(0x4a)

	OP_PUSH     = Opcode(0x50)
	OP_POP      = Opcode(0x51)
	OP_PUSHF    = Opcode(0x52)
	OP_POPF     = Opcode(0x53)
	OP_PUSH_IMM = Opcode(0x54)

	OP_INT = Opcode(0x60)
)

// Descriptor is the static description of one opcode.
type Descriptor struct {
	Opcode   Opcode
	Mnemonic string
	Mode     Mode
	Cycles   int // Cycle cost of the instruction.
}

// Length returns the total encoded length, including the opcode.
func (desc *Descriptor) Length() int {
	return 1 + desc.Mode.Length()
}

func (desc *Descriptor) String() string {
	return fmt.Sprintf("$%02X %v %v", uint8(desc.Opcode), desc.Mnemonic, desc.Mode)
}

var descriptors = [...]Descriptor{
	{OP_NOP, "NOP", MODE_IMPLIED, 1},
	{OP_HALT, "HALT", MODE_IMPLIED, 1},
	{OP_RET, "RET", MODE_IMPLIED, 4},
	{OP_RETI, "RETI", MODE_IMPLIED, 5},
	{OP_EI, "EI", MODE_IMPLIED, 1},
	{OP_DI, "DI", MODE_IMPLIED, 1},
	{OP_SEC, "SEC", MODE_IMPLIED, 1},
	{OP_CLC, "CLC", MODE_IMPLIED, 1},

	{OP_LOAD_IMM, "LOAD", MODE_REG_IMM, 2},
	{OP_LOAD_ABS, "LOAD", MODE_REG_ABS, 4},
	{OP_LOAD_IDX, "LOAD", MODE_REG_IDX, 5},
	{OP_LOAD_REG, "LOAD", MODE_REG_REG, 1},
	{OP_STORE_ABS, "STORE", MODE_REG_ABS, 4},
	{OP_STORE_IDX, "STORE", MODE_REG_IDX, 5},

	{OP_ADD_REG, "ADD", MODE_REG_REG, 1},
	{OP_ADD_IMM, "ADD", MODE_REG_IMM, 2},
	{OP_ADD_ABS, "ADD", MODE_REG_ABS, 4},
	{OP_ADC_REG, "ADC", MODE_REG_REG, 1},
	{OP_ADC_IMM, "ADC", MODE_REG_IMM, 2},
	{OP_SUB_REG, "SUB", MODE_REG_REG, 1},
	{OP_SUB_IMM, "SUB", MODE_REG_IMM, 2},
	{OP_SUB_ABS, "SUB", MODE_REG_ABS, 4},
	{OP_SBC_REG, "SBC", MODE_REG_REG, 1},
	{OP_SBC_IMM, "SBC", MODE_REG_IMM, 2},
	{OP_CMP_REG, "CMP", MODE_REG_REG, 1},
	{OP_CMP_IMM, "CMP", MODE_REG_IMM, 2},
	{OP_CMP_ABS, "CMP", MODE_REG_ABS, 4},

	{OP_AND_REG, "AND", MODE_REG_REG, 1},
	{OP_AND_IMM, "AND", MODE_REG_IMM, 2},
	{OP_OR_REG, "OR", MODE_REG_REG, 1},
	{OP_OR_IMM, "OR", MODE_REG_IMM, 2},
	{OP_XOR_REG, "XOR", MODE_REG_REG, 1},
	{OP_XOR_IMM, "XOR", MODE_REG_IMM, 2},
	{OP_NOT, "NOT", MODE_REGISTER, 1},
	{OP_SHL, "SHL", MODE_REGISTER, 1},
	{OP_SHR, "SHR", MODE_REGISTER, 1},
	{OP_INC, "INC", MODE_REGISTER, 1},
	{OP_DEC, "DEC", MODE_REGISTER, 1},

	{OP_JMP, "JMP", MODE_ABS, 3},
	{OP_CALL, "CALL", MODE_ABS, 5},
	{OP_BRA, "BRA", MODE_REL, 2},
	{OP_BEQ, "BEQ", MODE_REL, 2},
	{OP_BNE, "BNE", MODE_REL, 2},
	{OP_BCS, "BCS", MODE_REL, 2},
	{OP_BCC, "BCC", MODE_REL, 2},
	{OP_BMI, "BMI", MODE_REL, 2},
	{OP_BPL, "BPL", MODE_REL, 2},
	{OP_BVS, "BVS", MODE_REL, 2},
	{OP_BVC, "BVC", MODE_REL, 2},

	{OP_PUSH, "PUSH", MODE_REGISTER, 2},
	{OP_POP, "POP", MODE_REGISTER, 2},
	{OP_PUSHF, "PUSHF", MODE_IMPLIED, 2},
	{OP_POPF, "POPF", MODE_IMPLIED, 2},
	{OP_PUSH_IMM, "PUSH", MODE_IMM, 2},

	{OP_INT, "INT", MODE_IMM, 7},
}

type shapeKey struct {
	mnemonic string
	shape    Shape
}

var (
	byOpcode   [256]*Descriptor
	byShape    = map[shapeKey]*Descriptor{}
	mnemonicOf = map[string]bool{}
)

func init() {
	for n := range descriptors {
		desc := &descriptors[n]
		if byOpcode[desc.Opcode] != nil {
			panic(fmt.Sprintf("isa: opcode $%02X defined twice", uint8(desc.Opcode)))
		}
		byOpcode[desc.Opcode] = desc

		key := shapeKey{desc.Mnemonic, desc.Mode.Shape()}
		if byShape[key] != nil {
			panic(fmt.Sprintf("isa: %v %v is ambiguous", desc.Mnemonic, desc.Mode))
		}
		byShape[key] = desc
		mnemonicOf[desc.Mnemonic] = true
	}
}

// Lookup returns the descriptor of an opcode. Illegal opcodes have none.
func Lookup(op Opcode) (desc *Descriptor, ok bool) {
	desc = byOpcode[op]
	ok = desc != nil
	return
}

// Find returns the descriptor for a mnemonic used with an operand shape.
// The mnemonic is matched without regard to case.
func Find(mnemonic string, shape Shape) (desc *Descriptor, ok bool) {
	desc, ok = byShape[shapeKey{strings.ToUpper(mnemonic), shape}]
	return
}

// IsMnemonic returns true if the name is a known instruction mnemonic.
func IsMnemonic(name string) bool {
	return mnemonicOf[strings.ToUpper(name)]
}

// Descriptors iterates over every legal opcode, in ascending order.
func Descriptors() iter.Seq[*Descriptor] {
	return func(yield func(*Descriptor) bool) {
		for _, desc := range byOpcode {
			if desc == nil {
				continue
			}
			if !yield(desc) {
				return
			}
		}
	}
}
