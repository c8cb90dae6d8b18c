package breakpoint

import (
	"errors"

	"github.com/ezrec/vcpu/translate"
)

var f = translate.From

var (
	ErrUnknownBreakpoint  = errors.New(f("unknown breakpoint"))
	ErrConditionInvalid   = errors.New(f("breakpoint condition invalid"))
	ErrMalformedCondition = errors.New(f("breakpoint expression malformed"))
	ErrExpressionAddress  = errors.New(f("mem: address invalid"))
)

// ErrUnknownID reports a breakpoint id that is not in the manager.
type ErrUnknownID ID

func (err ErrUnknownID) Error() string {
	return f("breakpoint %d unknown", int(err))
}

func (err ErrUnknownID) Is(target error) bool {
	return target == ErrUnknownBreakpoint
}
