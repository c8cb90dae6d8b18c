package isa

import (
	"fmt"
	"strings"
)

// Register is a general purpose register index.
type Register uint8

const (
	R0 = Register(iota)
	R1
	R2
	R3
	R4
	R5
	R6
	R7

	REGISTER_COUNT = 8
)

// Valid returns true if the register exists.
func (r Register) Valid() bool {
	return r < REGISTER_COUNT
}

func (r Register) String() string {
	return fmt.Sprintf("R%d", uint8(r))
}

// ParseRegister parses a register name, ignoring case.
func ParseRegister(name string) (r Register, ok bool) {
	if len(name) != 2 || (name[0] != 'r' && name[0] != 'R') {
		return
	}
	if name[1] < '0' || name[1] >= '0'+REGISTER_COUNT {
		return
	}

	return Register(name[1] - '0'), true
}

// Flags is the condition flags register.
type Flags uint8

const (
	FLAG_C = Flags(1 << 0) // Carry, or borrow after subtraction.
	FLAG_Z = Flags(1 << 1) // Zero.
	FLAG_I = Flags(1 << 2) // Interrupts enabled.
	FLAG_V = Flags(1 << 6) // Signed overflow.
	FLAG_N = Flags(1 << 7) // Sign.

	FLAG_MASK = FLAG_C | FLAG_Z | FLAG_I | FLAG_V | FLAG_N
)

// Has returns true if every flag in mask is set.
func (fl Flags) Has(mask Flags) bool {
	return fl&mask == mask
}

// With returns the flags with mask set or cleared.
func (fl Flags) With(mask Flags, on bool) Flags {
	if on {
		return fl | mask
	}
	return fl &^ mask
}

// String renders set flags as letters, clear flags as '-', MSB first.
func (fl Flags) String() string {
	const names = "NV---IZC"

	var sb strings.Builder
	for n := range 8 {
		bit := Flags(1 << (7 - n))
		if fl&bit != 0 && names[n] != '-' {
			sb.WriteByte(names[n])
		} else {
			sb.WriteByte('-')
		}
	}

	return sb.String()
}
