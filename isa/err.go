package isa

import (
	"errors"

	"github.com/ezrec/vcpu/translate"
)

var f = translate.From

var (
	ErrIllegalOpcode        = errors.New(f("illegal opcode"))
	ErrTruncatedInstruction = errors.New(f("truncated instruction"))
	ErrRegisterInvalid      = errors.New(f("register invalid"))
)

// ErrDecode reports the location of a decode failure.
type ErrDecode struct {
	Addr   uint32
	Opcode byte
	Err    error
}

func (err *ErrDecode) Error() string {
	return f("decode $%04X (op $%02X): %v", err.Addr, err.Opcode, err.Err)
}

func (err *ErrDecode) Unwrap() error {
	return err.Err
}
