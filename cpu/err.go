package cpu

import (
	"errors"

	"github.com/ezrec/vcpu/translate"
)

var f = translate.From

var (
	ErrVectorInvalid        = errors.New(f("interrupt vector invalid"))
	ErrInterruptQueueFull   = errors.New(f("interrupt queue full"))
	ErrStackOverflow        = errors.New(f("stack overflow"))
	ErrStackUnderflow       = errors.New(f("stack underflow"))
	ErrFaultRestored        = errors.New(f("fault restored from snapshot"))
	ErrSnapshotInvalid      = errors.New(f("snapshot invalid"))
	ErrSnapshotVersion      = errors.New(f("snapshot version unsupported"))
	ErrSnapshotCorrupt      = errors.New(f("snapshot corrupt"))
	ErrSnapshotSizeMismatch = errors.New(f("snapshot memory size mismatch"))
)

// ErrFault is the error of an instruction that could not complete.
type ErrFault struct {
	PC  uint32 // Address of the faulting instruction.
	Err error
}

func (err *ErrFault) Error() string {
	return f("fault at $%04X: %v", err.PC, err.Err)
}

func (err *ErrFault) Unwrap() error {
	return err.Err
}
