package asm

import (
	"fmt"
	"iter"
	"strings"

	"github.com/ezrec/vcpu/isa"
)

// Line is a single disassembled instruction, or a placeholder for a byte
// that does not decode.
type Line struct {
	Address     uint32
	Bytes       []byte
	Instruction isa.Instruction // Zero for a placeholder.
	Text        string          // Assembler text.
	Err         error           // Decode error, for a placeholder.
}

func (line Line) String() string {
	var hex []string
	for _, b := range line.Bytes {
		hex = append(hex, fmt.Sprintf("%02X", b))
	}

	return fmt.Sprintf("%04X  %-11s  %v", line.Address, strings.Join(hex, " "), line.Text)
}

// Render returns the canonical assembler text of an instruction. The text
// assembles, at the same address, to the same bytes.
func Render(ins isa.Instruction) string {
	return ins.String()
}

// Disassemble lazily decodes [start, end) of src. A byte that does not
// decode is rendered as a .byte placeholder, and decoding resumes at the
// following byte. The sequence ends early at an unreadable address.
func Disassemble(src isa.Source, start, end uint32) iter.Seq[Line] {
	return func(yield func(Line) bool) {
		addr := start
		for addr < end {
			ins, next, err := isa.Decode(src, addr)
			if err == nil {
				line := Line{
					Address:     addr,
					Bytes:       ins.Bytes,
					Instruction: ins,
					Text:        Render(ins),
				}
				if !yield(line) {
					return
				}
				addr = next
				continue
			}

			value, perr := src.Peek(addr)
			if perr != nil {
				yield(Line{Address: addr, Err: perr})
				return
			}

			line := Line{
				Address: addr,
				Bytes:   []byte{value},
				Text:    fmt.Sprintf(".byte $%02X", value),
				Err:     err,
			}
			if !yield(line) {
				return
			}
			addr++
		}
	}
}
