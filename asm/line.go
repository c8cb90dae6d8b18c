package asm

import (
	"errors"
	"regexp"
	"strings"

	"github.com/ezrec/vcpu/isa"
)

// SourceLine is a tokenized line of assembly source.
type SourceLine struct {
	LineNo   int      // Line number, from 1.
	Text     string   // Source text.
	Labels   []string // Labels defined on the line.
	Mnemonic string   // Mnemonic or directive, as written.
	Operands []string // Operand text.

	Address uint32 // Address of the first emitted byte.
	Length  int    // Number of bytes emitted.
	Bytes   []byte // Emitted bytes, after Generate.

	desc     *isa.Descriptor
	operands []operand
	failed   bool
}

var labelRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*):`)
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// stripComment removes a ';' comment that is not inside quotes.
func stripComment(text string) string {
	var quote byte
	for n := 0; n < len(text); n++ {
		c := text[n]
		switch {
		case quote != 0 && c == '\\':
			n++
		case quote != 0 && c == quote:
			quote = 0
		case quote != 0:
		case c == '\'' || c == '"':
			quote = c
		case c == ';':
			return text[:n]
		}
	}

	return text
}

// splitOperands splits operand text on top level commas.
func splitOperands(text string) (ops []string, err error) {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return
	}

	var quote byte
	depth := 0
	start := 0
	for n := 0; n < len(text); n++ {
		c := text[n]
		switch {
		case quote != 0 && c == '\\':
			n++
		case quote != 0 && c == quote:
			quote = 0
		case quote != 0:
		case c == '\'' || c == '"':
			quote = c
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
			if depth < 0 {
				err = ErrMalformedOperand
				return
			}
		case c == ',' && depth == 0:
			ops = append(ops, strings.TrimSpace(text[start:n]))
			start = n + 1
		}
	}

	if quote != 0 || depth != 0 {
		err = ErrMalformedOperand
		return
	}

	ops = append(ops, strings.TrimSpace(text[start:]))
	for _, op := range ops {
		if len(op) == 0 {
			err = ErrMalformedOperand
			return
		}
	}

	return
}

// tokenize splits a line into labels, mnemonic and operands.
func tokenize(lineno int, text string) (line SourceLine, err error) {
	line = SourceLine{
		LineNo: lineno,
		Text:   text,
	}

	rest := strings.TrimSpace(stripComment(text))
	for {
		match := labelRe.FindStringSubmatch(rest)
		if match == nil {
			break
		}
		line.Labels = append(line.Labels, match[1])
		rest = strings.TrimSpace(rest[len(match[0]):])
	}

	if len(rest) == 0 {
		return
	}

	mnemonic, operands, _ := strings.Cut(rest, " ")
	if tab := strings.IndexByte(mnemonic, '\t'); tab >= 0 {
		operands = mnemonic[tab+1:] + " " + operands
		mnemonic = mnemonic[:tab]
	}
	line.Mnemonic = mnemonic

	line.Operands, err = splitOperands(operands)
	return
}

type operand struct {
	kind  isa.Operand
	reg   isa.Register // OPERAND_REG, or the index of OPERAND_INDEXED.
	value string       // Value text of OPERAND_IMM, OPERAND_ADDR and OPERAND_INDEXED.
}

// parseOperand classifies an operand.
func parseOperand(text string) (op operand, err error) {
	if reg, ok := isa.ParseRegister(text); ok {
		op = operand{kind: isa.OPERAND_REG, reg: reg}
		return
	}

	switch {
	case strings.HasPrefix(text, "#"):
		op = operand{kind: isa.OPERAND_IMM, value: strings.TrimSpace(text[1:])}
	case strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]"):
		base, reg, ok := splitIndexed(text[1 : len(text)-1])
		if !ok {
			err = errors.Join(ErrMalformedOperand, isa.ErrRegisterInvalid)
			return
		}
		op = operand{kind: isa.OPERAND_INDEXED, reg: reg, value: base}
	default:
		op = operand{kind: isa.OPERAND_ADDR, value: text}
	}

	if len(op.value) == 0 {
		err = ErrMalformedOperand
	}

	return
}

// splitIndexed splits the inside of an indexed operand, [value+Rn] or
// [Rn+value], on the top level '+' next to the index register.
func splitIndexed(inner string) (base string, reg isa.Register, ok bool) {
	var quote byte
	depth := 0
	for n := 0; n < len(inner); n++ {
		c := inner[n]
		switch {
		case quote != 0 && c == '\\':
			n++
		case quote != 0 && c == quote:
			quote = 0
		case quote != 0:
		case c == '\'' || c == '"':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == '+' && depth == 0:
			left := strings.TrimSpace(inner[:n])
			right := strings.TrimSpace(inner[n+1:])
			if reg, ok = isa.ParseRegister(right); ok {
				base = left
				return
			}
			if reg, ok = isa.ParseRegister(left); ok {
				base = right
				return
			}
		}
	}

	return
}

// shape returns the operand shape of the parsed operands.
func shape(ops []operand) (sh isa.Shape, ok bool) {
	if len(ops) > len(sh) {
		return
	}

	for n, op := range ops {
		sh[n] = op.kind
	}

	ok = true
	return
}
