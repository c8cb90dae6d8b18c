package asm

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezrec/vcpu/isa"
)

func assemble(t *testing.T, source string) (prog *Program) {
	asm := &Assembler{}
	prog, err := asm.Assemble(strings.NewReader(source))
	require.NoError(t, err)
	return
}

// lineErrors returns the line numbers of an assembly error.
func lineErrors(t *testing.T, err error) (lines []int) {
	var list ErrorList
	require.True(t, errors.As(err, &list), "%v", err)
	for _, e := range list {
		var se *ErrSyntax
		require.True(t, errors.As(e, &se))
		lines = append(lines, se.LineNo)
	}
	return
}

func TestAssembler_Example(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t, "LOAD R0, #5\nADD R0, R0\nHALT\n")
	assert.Equal(uint32(0), prog.Origin)
	assert.Equal([]byte{0x10, 0x00, 0x05, 0x20, 0x00, 0x01}, prog.Bytes)
	assert.Len(prog.Lines, 3)
}

func TestAssembler_ForwardReference(t *testing.T) {
	assert := assert.New(t)

	source := `
start:  LOAD R1, #0     ; counter
loop:   INC R1
        CMP R1, #COUNT
        BNE loop
        JMP done
        .equ COUNT 10
done:   HALT
`
	prog := assemble(t, source)
	assert.Equal([]byte{
		0x10, 0x01, 0x00,
		0x39, 0x01,
		0x2b, 0x01, 0x0a,
		0x44, 0xf9,
		0x40, 0x0d, 0x00,
		0x01,
	}, prog.Bytes)
	assert.Equal(map[string]uint32{
		"start": 0,
		"loop":  3,
		"done":  13,
		"COUNT": 10,
	}, prog.Symbols)
	assert.Equal([]string{"COUNT", "done", "loop", "start"}, prog.SymbolNames())
	assert.Equal([]string{"done"}, prog.Labels(13))
}

func TestAssembler_UndefinedLabel(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog, err := asm.Assemble(strings.NewReader("NOP\nJMP nowhere\n"))
	assert.Nil(prog)
	assert.ErrorIs(err, ErrUndefinedLabel)
	assert.Equal([]int{2}, lineErrors(t, err))
	assert.ErrorIs(err, ErrLabelMissing("nowhere"))
}

func TestAssembler_DuplicateLabel(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	_, err := asm.Assemble(strings.NewReader("a: NOP\nb: NOP\na: NOP\n.equ b 4\n"))
	assert.ErrorIs(err, ErrDuplicateLabel)
	assert.Equal([]int{3, 4}, lineErrors(t, err))
}

func TestAssembler_ErrorsCollected(t *testing.T) {
	assert := assert.New(t)

	source := `FOO R0
LOAD R0, #300
BEQ far
LOAD R0
ADD R0, #1, #2
LOAD R0, [R1]
.org $200
far: NOP
.bogus 1
`
	asm := &Assembler{}
	_, err := asm.Assemble(strings.NewReader(source))
	require.Error(t, err)
	assert.Equal([]int{1, 2, 3, 4, 5, 6, 9}, lineErrors(t, err))

	var list ErrorList
	require.True(t, errors.As(err, &list))
	assert.ErrorIs(list[0], ErrUnknownInstruction)
	assert.ErrorIs(list[1], ErrValueRange)
	assert.ErrorIs(list[2], ErrBranchRange)
	assert.ErrorIs(list[3], ErrMalformedOperand)
	assert.ErrorIs(list[4], ErrMalformedOperand)
	assert.ErrorIs(list[5], ErrMalformedOperand)
	assert.ErrorIs(list[6], ErrUnknownInstruction)
}

func TestAssembler_Values(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t, `
	.byte $10, 0x11, %1010, 0b11, 'A', -1, 255
	.word $1234, -2
	.ascii "hi;\n"
	.byte ',', ';'
`)
	assert.Equal([]byte{
		0x10, 0x11, 0x0a, 0x03, 'A', 0xff, 0xff,
		0x34, 0x12, 0xfe, 0xff,
		'h', 'i', ';', '\n',
		',', ';',
	}, prog.Bytes)

	asm := &Assembler{}
	_, err := asm.Assemble(strings.NewReader(".byte 256\n.byte $XY\n.word $10000\n.ascii hi\n"))
	assert.Equal([]int{1, 2, 3, 4}, lineErrors(t, err))
	assert.ErrorIs(err, ErrValueRange)
	assert.ErrorIs(err, ErrMalformedOperand)
}

func TestAssembler_Expression(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t, `
	.equ BASE $8000
	LOAD R0, [$(BASE + 2)+R1]
	LOAD R0, #$(BASE >> 8)
	LOAD R2, #$(max(3, 4))
	STORE R0, [R3+BASE]
`)
	assert.Equal([]byte{
		0x12, 0x01, 0x02, 0x80,
		0x10, 0x00, 0x80,
		0x10, 0x02, 0x04,
		0x15, 0x03, 0x00, 0x80,
	}, prog.Bytes)

	asm := &Assembler{}
	_, err := asm.Assemble(strings.NewReader("LOAD R0, #$(missing + 1)\nLOAD R0, #$(1 +)\nLOAD R0, #$(\"x\")\n"))
	assert.Equal([]int{1, 2, 3}, lineErrors(t, err))

	var list ErrorList
	require.True(t, errors.As(err, &list))
	assert.ErrorIs(list[0], ErrUndefinedLabel)
	assert.ErrorIs(list[1], ErrMalformedOperand)
	assert.ErrorIs(list[2], ErrMalformedOperand)
}

func TestAssembler_Indexed(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t, `
	.equ X 4
	LOAD R0, [R1+$(X+1)]
	LOAD R0, [$(X+1)+R1]
	STORE R2, [ R3 + $(X + 2) ]
	LOAD R0, ['+'+R1]
`)
	assert.Equal([]byte{
		0x12, 0x01, 0x05, 0x00,
		0x12, 0x01, 0x05, 0x00,
		0x15, 0x23, 0x06, 0x00,
		0x12, 0x01, '+', 0x00,
	}, prog.Bytes)

	asm := &Assembler{}
	_, err := asm.Assemble(strings.NewReader("LOAD R0, [$(X+R1)]\nLOAD R0, [4+5]\n"))
	assert.Equal([]int{1, 2}, lineErrors(t, err))
	assert.ErrorIs(err, isa.ErrRegisterInvalid)
}

func TestAssembler_ValueRange(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	_, err := asm.Assemble(strings.NewReader("LOAD R0, #300\n.ascii \"\\xff\"\n"))
	assert.Equal([]int{1, 2}, lineErrors(t, err))

	var list ErrorList
	require.True(t, errors.As(err, &list))
	assert.ErrorIs(list[0], ErrValueRange)
	assert.ErrorIs(list[1], ErrValueRange)

	var word ErrValueOutOfRange
	require.True(t, errors.As(list[0], &word))
	assert.Equal(ErrValueOutOfRange("300"), word)
	assert.NotContains(list[0].Error(), "not a number")
}

func TestAssembler_Predefine(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("TAPE_DATA", "$FF00")

	prog, err := asm.Assemble(strings.NewReader("STORE R0, TAPE_DATA\nLOAD R1, #$(TAPE_DATA & 0xff)\n"))
	require.NoError(t, err)
	assert.Equal([]byte{0x14, 0x00, 0x00, 0xff, 0x10, 0x01, 0x00}, prog.Bytes)
	assert.NotContains(prog.Symbols, "TAPE_DATA")

	_, err = asm.Assemble(strings.NewReader("TAPE_DATA: NOP\n"))
	assert.ErrorIs(err, ErrDuplicateLabel)

	_, err = asm.Assemble(strings.NewReader("r1: NOP\nhalt: NOP\n"))
	assert.Equal([]int{1, 2}, lineErrors(t, err))
	assert.ErrorIs(err, ErrLabelInvalid)
}

func TestAssembler_Origin(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t, ".org $100\nstart: NOP\n.org $104\nend: HALT\n")
	assert.Equal(uint32(0x100), prog.Origin)
	assert.Equal([]byte{0x00, 0x00, 0x00, 0x00, 0x01}, prog.Bytes)
	assert.Equal(uint32(0x100), prog.Symbols["start"])
	assert.Equal(uint32(0x104), prog.Symbols["end"])
	assert.Equal(uint32(0x105), prog.End())

	asm := &Assembler{Origin: 0x200}
	prog, err := asm.Assemble(strings.NewReader("NOP\n"))
	require.NoError(t, err)
	assert.Equal(uint32(0x200), prog.Origin)

	_, err = asm.Assemble(strings.NewReader(".org $100\nNOP\n.org $80\nNOP\n"))
	assert.ErrorIs(err, ErrOriginInvalid)
	assert.Equal([]int{3}, lineErrors(t, err))

	_, err = asm.Assemble(strings.NewReader(".org $FFFE\nJMP $0000\n"))
	assert.ErrorIs(err, ErrProgramOverflow)
}

func TestAssembler_Syntax(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t, "  load r0, #';' ; comment\n\t\tinc\tR7\nloop: bra *\nx: y: Halt\n")
	assert.Equal([]byte{0x10, 0x00, ';', 0x39, 0x07, 0x42, 0xfe, 0x01}, prog.Bytes)
	assert.Equal(uint32(7), prog.Symbols["x"])
	assert.Equal(uint32(7), prog.Symbols["y"])
}

func TestProgram_Lookup(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t, "; header\nLOAD R0, #5\n\nADD R0, R0\nHALT\n")

	line, ok := prog.Lookup(0)
	assert.True(ok)
	assert.Equal(2, line.LineNo)

	line, ok = prog.Lookup(2)
	assert.True(ok)
	assert.Equal(2, line.LineNo)

	line, ok = prog.Lookup(4)
	assert.True(ok)
	assert.Equal(4, line.LineNo)
	assert.Equal([]byte{0x20, 0x00}, line.Bytes)

	_, ok = prog.Lookup(6)
	assert.False(ok)

	var codes []uint32
	for addr := range prog.Codes() {
		codes = append(codes, addr)
	}
	assert.Equal([]uint32{0, 3, 5}, codes)

	var listing []string
	for text := range prog.Listing() {
		listing = append(listing, text)
	}
	require.Len(t, listing, 5)
	assert.Equal("    1                     ; header", listing[0])
	assert.Equal("    2  0000  10 00 05     LOAD R0, #5", listing[1])
	assert.Equal("    5  0005  01           HALT", listing[4])
}

func TestAssembler_Robustness(t *testing.T) {
	inputs := []string{
		"", ":", "::", "a:", "LOAD", "LOAD ,", "LOAD R0,", "LOAD R0, #", "LOAD R0, []",
		"LOAD R0, [+]", "LOAD R0, [$10+R9]", "JMP $(", "JMP $()", "JMP 'ab'", ".org",
		".equ", ".equ X", ".byte", ".word ,", ".ascii \"open", "BEQ -$(", "PUSH #-129",
		"JMP --1", "INT #$FFFFFFFFF", "'", "\"", "[", "]", ")", "LOAD R0, #$(1//0)",
		"LOAD R0, #$(len)", "JMP $((1)", ".org $(-1)",
	}

	for _, input := range inputs {
		asm := &Assembler{}
		assert.NotPanics(t, func() {
			asm.Assemble(strings.NewReader(input))
		}, input)
	}
}
