package asm

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
)

// Program is the output of the assembler.
type Program struct {
	Origin  uint32            // Address of Bytes[0].
	Bytes   []byte            // Memory image, gaps zero filled.
	Symbols map[string]uint32 // Labels and equates.
	Lines   []SourceLine      // Source lines, in order.
}

// place copies data into the image at addr.
func (prog *Program) place(addr uint32, data []byte) {
	if len(data) == 0 {
		return
	}

	offset := int(addr - prog.Origin)
	if end := offset + len(data); end > len(prog.Bytes) {
		prog.Bytes = append(prog.Bytes, make([]byte, end-len(prog.Bytes))...)
	}
	copy(prog.Bytes[offset:], data)
}

// End returns the address after the last byte of the image.
func (prog *Program) End() uint32 {
	return prog.Origin + uint32(len(prog.Bytes))
}

// Lookup returns the source line that emitted the byte at addr.
func (prog *Program) Lookup(addr uint32) (line *SourceLine, ok bool) {
	for n := range prog.Lines {
		sl := &prog.Lines[n]
		if sl.Length != 0 && addr >= sl.Address && addr < sl.Address+uint32(sl.Length) {
			line, ok = sl, true
			break
		}
	}

	return
}

// Labels returns the symbols whose value is addr, sorted.
func (prog *Program) Labels(addr uint32) (names []string) {
	for name, value := range prog.Symbols {
		if value == addr {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return
}

// Codes iterates over the emitting lines, by address.
func (prog *Program) Codes() iter.Seq2[uint32, []byte] {
	return func(yield func(addr uint32, code []byte) bool) {
		for _, line := range prog.Lines {
			if len(line.Bytes) == 0 {
				continue
			}
			if !yield(line.Address, line.Bytes) {
				return
			}
		}
	}
}

// Listing iterates over the listing text of every source line.
func (prog *Program) Listing() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range prog.Lines {
			var hex []string
			for _, b := range line.Bytes {
				hex = append(hex, fmt.Sprintf("%02X", b))
			}
			addr := "    "
			if line.Length != 0 || len(line.Labels) != 0 {
				addr = fmt.Sprintf("%04X", line.Address)
			}
			text := fmt.Sprintf("%5d  %v  %-11s  %v", line.LineNo, addr, strings.Join(hex, " "), line.Text)
			if !yield(strings.TrimRight(text, " ")) {
				return
			}
		}
	}
}

// SymbolNames returns the symbol names, sorted.
func (prog *Program) SymbolNames() []string {
	return slices.Sorted(maps.Keys(prog.Symbols))
}
