package asm

import (
	"errors"
	"strings"

	"github.com/ezrec/vcpu/translate"
)

var f = translate.From

var (
	ErrDuplicateLabel     = errors.New(f("duplicate label"))
	ErrUndefinedLabel     = errors.New(f("undefined label"))
	ErrMalformedOperand   = errors.New(f("malformed operand"))
	ErrUnknownInstruction = errors.New(f("unknown instruction"))
	ErrBranchRange        = errors.New(f("branch target out of range"))
	ErrValueRange         = errors.New(f("value out of range"))
	ErrLabelInvalid       = errors.New(f("label invalid"))
	ErrOriginInvalid      = errors.New(f(".org moves backwards"))
	ErrProgramOverflow    = errors.New(f("program exceeds the address space"))
)

// ErrLabelMissing is the name of an undefined label.
type ErrLabelMissing string

func (err ErrLabelMissing) Error() string {
	return f("label %v undefined", string(err))
}

func (err ErrLabelMissing) Is(target error) bool {
	return target == ErrUndefinedLabel
}

// ErrLabelDuplicate is the name of a label defined twice.
type ErrLabelDuplicate string

func (err ErrLabelDuplicate) Error() string {
	return f("label %v duplicated", string(err))
}

func (err ErrLabelDuplicate) Is(target error) bool {
	return target == ErrDuplicateLabel
}

// ErrParseNumber is a word that is not a number.
type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

// ErrValueOutOfRange is a value that does not fit its operand or directive.
type ErrValueOutOfRange string

func (err ErrValueOutOfRange) Error() string {
	return f("'%v' is out of range", string(err))
}

func (err ErrValueOutOfRange) Is(target error) bool {
	return target == ErrValueRange
}

// ErrParseExpression is a $(...) expression that did not evaluate to an
// integer.
type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

// ErrSyntax is an error at a source line.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrSyntax) Unwrap() error {
	return err.Err
}

// ErrorList is every line error of an assembly, in line order.
type ErrorList []error

func (list ErrorList) Error() string {
	text := make([]string, len(list))
	for n, err := range list {
		text[n] = err.Error()
	}
	return strings.Join(text, "\n")
}

func (list ErrorList) Unwrap() []error {
	return list
}
