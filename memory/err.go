package memory

import (
	"errors"

	"github.com/ezrec/vcpu/translate"
)

var f = translate.From

var (
	ErrAddressOutOfRange = errors.New(f("address out of range"))
	ErrReadOnly          = errors.New(f("address is read-only"))
	ErrRegionInvalid     = errors.New(f("region invalid"))
	ErrRegionOverlap     = errors.New(f("region overlaps a mapped device"))
)

// ErrAddress reports the address of a failed bus access.
type ErrAddress struct {
	Addr uint32
	Err  error
}

func (err *ErrAddress) Error() string {
	return f("$%04X: %v", err.Addr, err.Err)
}

func (err *ErrAddress) Unwrap() error {
	return err.Err
}
