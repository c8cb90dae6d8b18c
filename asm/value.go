package asm

import (
	"errors"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// parseNumber parses a numeric literal.
func parseNumber(word string) (value int64, err error) {
	base := 10
	digits := word
	switch {
	case strings.HasPrefix(word, "$"):
		base, digits = 16, word[1:]
	case strings.HasPrefix(word, "0x"), strings.HasPrefix(word, "0X"):
		base, digits = 16, word[2:]
	case strings.HasPrefix(word, "%"):
		base, digits = 2, word[1:]
	case strings.HasPrefix(word, "0b"), strings.HasPrefix(word, "0B"):
		base, digits = 2, word[2:]
	}

	v, err := strconv.ParseUint(digits, base, 32)
	if err != nil {
		err = errors.Join(ErrMalformedOperand, ErrParseNumber(word))
		return
	}

	value = int64(v)
	return
}

// parseChar parses a quoted character literal.
func parseChar(word string) (value int64, err error) {
	str, err := strconv.Unquote(word)
	if err != nil || len(str) != 1 {
		err = errors.Join(ErrMalformedOperand, ErrParseNumber(word))
		return
	}

	value = int64(str[0])
	return
}

// symbol looks up a label, equate or predefine.
func (asm *Assembler) symbol(name string) (value int64, ok bool) {
	sym, ok := asm.symbols[name]
	if ok {
		value = int64(sym.value)
		return
	}

	text, ok := asm.predefine[name]
	if !ok {
		return
	}

	value, err := parseNumber(text)
	ok = err == nil
	return
}

// valueOf returns the value of an operand value, at address pc.
func (asm *Assembler) valueOf(word string, pc uint32) (value int64, err error) {
	word = strings.TrimSpace(word)

	switch {
	case len(word) == 0:
		err = ErrMalformedOperand
	case word == "*":
		value = int64(pc)
	case strings.HasPrefix(word, "$("):
		if !strings.HasSuffix(word, ")") {
			err = errors.Join(ErrMalformedOperand, ErrParseExpression(word[2:]))
			return
		}
		value, err = asm.parenEval(word[2:len(word)-1], pc)
	case word[0] == '-':
		value, err = asm.valueOf(word[1:], pc)
		value = -value
	case word[0] == '\'':
		value, err = parseChar(word)
	case identRe.MatchString(word):
		var ok bool
		value, ok = asm.symbol(word)
		if !ok {
			err = ErrLabelMissing(word)
		}
	default:
		value, err = parseNumber(word)
	}

	return
}

// rangeOf returns a value that must lie in [low, high].
func (asm *Assembler) rangeOf(word string, pc uint32, low, high int64) (value int64, err error) {
	value, err = asm.valueOf(word, pc)
	if err != nil {
		return
	}

	if value < low || value > high {
		err = ErrValueOutOfRange(word)
	}

	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string, pc uint32) (value int64, err error) {
	thread := starlark.Thread{Name: "asm"}
	thread.SetMaxExecutionSteps(EXPR_STEP_LIMIT)

	opts := syntax.FileOptions{}
	pred := starlark.StringDict{
		"PC": starlark.MakeInt64(int64(pc)),
	}
	for name := range asm.predefine {
		if v, ok := asm.symbol(name); ok {
			pred[name] = starlark.MakeInt64(v)
		}
	}
	for name, sym := range asm.symbols {
		pred[name] = starlark.MakeInt64(int64(sym.value))
	}

	prog := "rc=(" + expr + ")\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		if name, ok := undefinedName(&opts, prog, pred); ok {
			err = ErrLabelMissing(name)
		} else {
			err = errors.Join(ErrMalformedOperand, ErrParseExpression(expr), err)
		}
		return
	}

	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = errors.Join(ErrMalformedOperand, ErrParseExpression(expr))
		return
	}

	value, ok = st_int.Int64()
	if !ok {
		err = errors.Join(ErrValueRange, ErrParseExpression(expr))
		return
	}

	return
}

// undefinedName finds the first identifier of an expression program that
// is neither predeclared nor universal.
func undefinedName(opts *syntax.FileOptions, prog string, pred starlark.StringDict) (name string, ok bool) {
	file, err := opts.Parse("expr", prog, 0)
	if err != nil {
		return
	}

	syntax.Walk(file, func(node syntax.Node) bool {
		if ok {
			return false
		}
		id, is := node.(*syntax.Ident)
		if !is || id.Name == "rc" {
			return true
		}
		if _, found := pred[id.Name]; found {
			return true
		}
		if _, found := starlark.Universe[id.Name]; found {
			return true
		}
		name, ok = id.Name, true
		return false
	})

	return
}
