package isa

import (
	"encoding/binary"
	"errors"

	"github.com/ezrec/vcpu/memory"
)

// Source is a side-effect free byte source the decoder can read.
type Source interface {
	// Peek returns the byte at addr.
	Peek(addr uint32) (byte, error)
	// Size returns the size of the address space.
	Size() int
}

var _ Source = (*memory.Bus)(nil)

// Bytes is a Source over a byte slice placed at Origin in a full sized
// address space. Only the bytes of Data are readable.
type Bytes struct {
	Origin uint32
	Data   []byte
}

func (b *Bytes) Peek(addr uint32) (value byte, err error) {
	if addr < b.Origin || addr-b.Origin >= uint32(len(b.Data)) {
		err = &memory.ErrAddress{Addr: addr, Err: memory.ErrAddressOutOfRange}
		return
	}

	value = b.Data[addr-b.Origin]
	return
}

func (b *Bytes) Size() int {
	return memory.MAX_SIZE
}

func registerPair(value byte) (hi, lo Register, ok bool) {
	hi = Register(value >> 4)
	lo = Register(value & 0xf)
	ok = hi.Valid() && lo.Valid()
	return
}

// Decode decodes the instruction at addr, and returns it with the address of
// the following instruction. Decode only reads from src.
func Decode(src Source, addr uint32) (ins Instruction, next uint32, err error) {
	op, err := src.Peek(addr)
	if err != nil {
		return
	}

	defer func() {
		if err != nil {
			err = &ErrDecode{Addr: addr, Opcode: op, Err: err}
		}
	}()

	desc, ok := Lookup(Opcode(op))
	if !ok {
		err = ErrIllegalOpcode
		return
	}

	length := desc.Length()
	if uint64(addr)+uint64(length) > uint64(src.Size()) {
		err = ErrTruncatedInstruction
		return
	}

	raw := make([]byte, length)
	raw[0] = op
	for n := 1; n < length; n++ {
		raw[n], err = src.Peek(addr + uint32(n))
		if err != nil {
			err = errors.Join(ErrTruncatedInstruction, err)
			return
		}
	}

	ins = Instruction{
		Descriptor: desc,
		Address:    addr,
		Bytes:      raw,
	}
	next = addr + uint32(length)

	operand := raw[1:]
	switch desc.Mode {
	case MODE_IMPLIED:
	case MODE_REGISTER:
		ins.Reg = Register(operand[0])
		ok = ins.Reg.Valid()
	case MODE_REG_REG:
		ins.Reg, ins.Src, ok = registerPair(operand[0])
	case MODE_REG_IMM:
		ins.Reg = Register(operand[0])
		ins.Imm = operand[1]
		ok = ins.Reg.Valid()
	case MODE_REG_ABS:
		ins.Reg = Register(operand[0])
		ins.Addr = uint32(binary.LittleEndian.Uint16(operand[1:]))
		ok = ins.Reg.Valid()
	case MODE_REG_IDX:
		ins.Reg, ins.Src, ok = registerPair(operand[0])
		ins.Addr = uint32(binary.LittleEndian.Uint16(operand[1:]))
	case MODE_IMM:
		ins.Imm = operand[0]
	case MODE_ABS:
		ins.Addr = uint32(binary.LittleEndian.Uint16(operand))
	case MODE_REL:
		ins.Disp = int8(operand[0])
		target := int64(next) + int64(ins.Disp)
		if target < 0 || target >= int64(src.Size()) {
			err = &memory.ErrAddress{Addr: uint32(target), Err: memory.ErrAddressOutOfRange}
			ins = Instruction{}
			next = 0
			return
		}
		ins.Target = uint32(target)
	}

	if !ok {
		err = errors.Join(ErrIllegalOpcode, ErrRegisterInvalid)
		ins = Instruction{}
		next = 0
		return
	}

	return
}
