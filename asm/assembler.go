// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/ezrec/vcpu/isa"
	"github.com/ezrec/vcpu/memory"
)

// EXPR_STEP_LIMIT bounds the work of a single $(...) expression.
const EXPR_STEP_LIMIT = 100000

type symbol struct {
	value  uint32
	lineNo int
}

// Assembler is a two pass assembler for the virtual CPU.
type Assembler struct {
	Verbose bool   // If set, verbosely logs the assembler actions.
	Origin  uint32 // Address of the first line, unless set by .org.

	predefine map[string]string // Predefines
	symbols   map[string]symbol // Labels and equates of the last Scan.
	origin    uint32            // Origin of the last Scan.
}

// Predefine defines a system equate, such as a device port.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// Symbols returns the labels and equates of the last Scan.
func (asm *Assembler) Symbols() (symbols map[string]uint32) {
	symbols = make(map[string]uint32, len(asm.symbols))
	for name, sym := range asm.symbols {
		symbols[name] = sym.value
	}
	return
}

// define adds a label or equate.
func (asm *Assembler) define(name string, value uint32, lineno int) (err error) {
	if !identRe.MatchString(name) {
		err = errors.Join(ErrLabelInvalid, fmt.Errorf("%v", name))
		return
	}
	if _, ok := isa.ParseRegister(name); ok || isa.IsMnemonic(name) {
		err = ErrLabelInvalid
		return
	}
	_, defined := asm.symbols[name]
	_, predefined := asm.predefine[name]
	if defined || predefined {
		err = ErrLabelDuplicate(name)
		return
	}

	asm.symbols[name] = symbol{value: value, lineNo: lineno}
	return
}

// Assemble assembles a source stream into a program. On failure, the error
// is an ErrorList of every line error.
func (asm *Assembler) Assemble(input io.Reader) (prog *Program, err error) {
	lines, err := asm.Scan(input)
	var scanErrs ErrorList
	if err != nil && !errors.As(err, &scanErrs) {
		return
	}

	prog, err = asm.Generate(lines)
	var genErrs ErrorList
	if err != nil && !errors.As(err, &genErrs) {
		return
	}

	if len(scanErrs) != 0 || len(genErrs) != 0 {
		prog = nil
		err = mergeErrors(scanErrs, genErrs)
	}

	return
}

// lineOf returns the line number of a line error.
func lineOf(err error) int {
	var se *ErrSyntax
	if errors.As(err, &se) {
		return se.LineNo
	}
	return 0
}

// mergeErrors merges two line ordered error lists.
func mergeErrors(a, b ErrorList) (list ErrorList) {
	for len(a) != 0 && len(b) != 0 {
		if lineOf(b[0]) < lineOf(a[0]) {
			list = append(list, b[0])
			b = b[1:]
		} else {
			list = append(list, a[0])
			a = a[1:]
		}
	}
	list = append(list, a...)
	list = append(list, b...)
	return
}

// Scan is the first pass. It tokenizes the source, assigns addresses to
// every line, and defines labels and equates.
func (asm *Assembler) Scan(input io.Reader) (lines []SourceLine, err error) {
	var errs ErrorList

	asm.symbols = map[string]symbol{}
	asm.origin = asm.Origin

	scanner := bufio.NewScanner(input)

	address := asm.Origin
	emitted := false
	var lineno int

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("asm: %v: %v\n", lineno, text)
		}

		line, lerr := tokenize(lineno, text)
		if lerr == nil {
			if strings.EqualFold(line.Mnemonic, ".org") {
				// The labels of a .org line take the new address.
				address, lerr = asm.scanOrigin(&line, address, emitted)
				if !emitted {
					asm.origin = address
				}
			}
		}
		line.Address = address

		for _, label := range line.Labels {
			if lerr != nil {
				break
			}
			lerr = asm.define(label, address, lineno)
		}

		if lerr == nil && !strings.EqualFold(line.Mnemonic, ".org") {
			lerr = asm.scanLine(&line)
		}

		if lerr == nil && uint64(address)+uint64(line.Length) > memory.MAX_SIZE {
			lerr = ErrProgramOverflow
		}

		if lerr != nil {
			line.failed = true
			line.Length = 0
			errs = append(errs, &ErrSyntax{LineNo: lineno, Line: text, Err: lerr})
		}

		if line.Length != 0 {
			if !emitted {
				asm.origin = address
			}
			emitted = true
		}

		address += uint32(line.Length)
		lines = append(lines, line)
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if len(errs) != 0 {
		err = errs
	}

	return
}

// scanOrigin evaluates a .org line.
func (asm *Assembler) scanOrigin(line *SourceLine, address uint32, emitted bool) (next uint32, err error) {
	next = address
	if len(line.Operands) != 1 {
		err = ErrMalformedOperand
		return
	}

	value, err := asm.rangeOf(line.Operands[0], address, 0, memory.MAX_SIZE-1)
	if err != nil {
		return
	}

	if emitted && uint32(value) < address {
		err = ErrOriginInvalid
		return
	}

	next = uint32(value)
	return
}

// scanLine determines the length of a line, and defines its equate.
func (asm *Assembler) scanLine(line *SourceLine) (err error) {
	if len(line.Mnemonic) == 0 {
		return
	}

	switch strings.ToLower(line.Mnemonic) {
	case ".equ":
		var name, value string
		if len(line.Operands) == 2 {
			name, value = line.Operands[0], line.Operands[1]
		} else if len(line.Operands) == 1 {
			name, value, _ = strings.Cut(line.Operands[0], " ")
		}
		if len(name) == 0 || len(strings.TrimSpace(value)) == 0 {
			err = ErrMalformedOperand
			return
		}
		var v int64
		v, err = asm.rangeOf(value, line.Address, 0, memory.MAX_SIZE-1)
		if err != nil {
			return
		}
		err = asm.define(name, uint32(v), line.LineNo)
	case ".byte":
		if len(line.Operands) == 0 {
			err = ErrMalformedOperand
			return
		}
		line.Length = len(line.Operands)
	case ".word":
		if len(line.Operands) == 0 {
			err = ErrMalformedOperand
			return
		}
		line.Length = 2 * len(line.Operands)
	case ".ascii":
		var text string
		text, err = asciiOf(line.Operands)
		line.Length = len(text)
	default:
		if strings.HasPrefix(line.Mnemonic, ".") {
			err = ErrUnknownInstruction
			return
		}
		err = asm.scanInstruction(line)
	}

	return
}

// asciiOf decodes the string operand of .ascii.
func asciiOf(operands []string) (text string, err error) {
	if len(operands) != 1 || !strings.HasPrefix(operands[0], `"`) {
		err = ErrMalformedOperand
		return
	}

	text, err = strconv.Unquote(operands[0])
	if err != nil {
		err = errors.Join(ErrMalformedOperand, err)
		return
	}

	for _, c := range []byte(text) {
		if c >= 0x80 {
			err = ErrValueOutOfRange(text)
			return
		}
	}

	return
}

// scanInstruction matches an instruction to its descriptor.
func (asm *Assembler) scanInstruction(line *SourceLine) (err error) {
	if !isa.IsMnemonic(line.Mnemonic) {
		err = errors.Join(ErrUnknownInstruction, fmt.Errorf("%v", line.Mnemonic))
		return
	}

	line.operands = make([]operand, len(line.Operands))
	for n, text := range line.Operands {
		line.operands[n], err = parseOperand(text)
		if err != nil {
			return
		}
	}

	sh, ok := shape(line.operands)
	if ok {
		line.desc, ok = isa.Find(line.Mnemonic, sh)
	}
	if !ok {
		err = ErrMalformedOperand
		return
	}

	line.Length = line.desc.Length()
	return
}

// Generate is the second pass. It resolves operand values and encodes the
// lines from the last Scan.
func (asm *Assembler) Generate(lines []SourceLine) (prog *Program, err error) {
	var errs ErrorList

	prog = &Program{
		Origin:  asm.origin,
		Symbols: asm.Symbols(),
	}

	for n := range lines {
		line := &lines[n]
		if line.failed || line.Length == 0 {
			continue
		}

		line.Bytes, err = asm.encode(line)
		if err != nil {
			if asm.Verbose {
				log.Printf("asm: %v: %v\n", line.LineNo, err)
			}
			errs = append(errs, &ErrSyntax{LineNo: line.LineNo, Line: line.Text, Err: err})
			line.Bytes = make([]byte, line.Length)
		}

		prog.place(line.Address, line.Bytes)
	}

	prog.Lines = lines

	err = nil
	if len(errs) != 0 {
		err = errs
	}

	return
}

// encode emits the bytes of a line.
func (asm *Assembler) encode(line *SourceLine) (data []byte, err error) {
	pc := line.Address

	switch strings.ToLower(line.Mnemonic) {
	case ".byte":
		for _, word := range line.Operands {
			var v int64
			v, err = asm.rangeOf(word, pc, -0x80, 0xff)
			if err != nil {
				return
			}
			data = append(data, byte(v))
		}
		return
	case ".word":
		for _, word := range line.Operands {
			var v int64
			v, err = asm.rangeOf(word, pc, -0x8000, 0xffff)
			if err != nil {
				return
			}
			data = append(data, byte(v), byte(v>>8))
		}
		return
	case ".ascii":
		var text string
		text, err = asciiOf(line.Operands)
		data = []byte(text)
		return
	}

	desc := line.desc
	data = append(data, byte(desc.Opcode))

	var imm, addr int64
	var regs []isa.Register
	for _, op := range line.operands {
		switch op.kind {
		case isa.OPERAND_REG:
			regs = append(regs, op.reg)
		case isa.OPERAND_IMM:
			imm, err = asm.rangeOf(op.value, pc, -0x80, 0xff)
		case isa.OPERAND_ADDR:
			addr, err = asm.rangeOf(op.value, pc, 0, memory.MAX_SIZE-1)
		case isa.OPERAND_INDEXED:
			regs = append(regs, op.reg)
			addr, err = asm.rangeOf(op.value, pc, 0, memory.MAX_SIZE-1)
		}
		if err != nil {
			return
		}
	}

	switch desc.Mode {
	case isa.MODE_IMPLIED:
	case isa.MODE_REGISTER:
		data = append(data, byte(regs[0]))
	case isa.MODE_REG_REG, isa.MODE_REG_IDX:
		data = append(data, byte(regs[0])<<4|byte(regs[1]))
		if desc.Mode == isa.MODE_REG_IDX {
			data = append(data, byte(addr), byte(addr>>8))
		}
	case isa.MODE_REG_IMM:
		data = append(data, byte(regs[0]), byte(imm))
	case isa.MODE_REG_ABS:
		data = append(data, byte(regs[0]), byte(addr), byte(addr>>8))
	case isa.MODE_IMM:
		data = append(data, byte(imm))
	case isa.MODE_ABS:
		data = append(data, byte(addr), byte(addr>>8))
	case isa.MODE_REL:
		disp := addr - (int64(pc) + int64(desc.Length()))
		if disp < -0x80 || disp > 0x7f {
			err = errors.Join(ErrBranchRange, fmt.Errorf("$%04X", addr))
			return
		}
		data = append(data, byte(int8(disp)))
	}

	return
}
