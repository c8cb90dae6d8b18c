// Package device provides memory-mapped peripherals for the virtual CPU.
package device

import (
	"fmt"
	"io"
	"iter"
	"log"
	"maps"
)

// Tape port offsets.
const (
	TAPE_DATA   = 0 // Read the next input byte, write an output byte.
	TAPE_STATUS = 1 // Tape status bits.
	TAPE_SIZE   = 2 // Number of mapped ports.
)

// Tape status bits.
const (
	TAPE_STATUS_READY = 1 << 0 // An input byte is available.
	TAPE_STATUS_EOF   = 1 << 1 // Input is exhausted.
)

// Tape provides sequential byte I/O to a program. Input is read lazily from
// an io.Reader and output is written to an io.Writer, one byte at a time.
type Tape struct {
	Verbose bool   // Set to log output errors.
	Base    uint32 // Base address the tape is mapped at.
	Input   io.Reader
	Output  io.Writer

	hasInput  bool
	lastInput byte
	eof       bool
	err       error // First output error.
}

// Defines returns the port addresses for use as assembler equates.
func (tc *Tape) Defines() iter.Seq2[string, string] {
	return maps.All(map[string]string{
		"TAPE_DATA":   fmt.Sprintf("$%04X", tc.Base+TAPE_DATA),
		"TAPE_STATUS": fmt.Sprintf("$%04X", tc.Base+TAPE_STATUS),
		"TAPE_READY":  fmt.Sprintf("%v", TAPE_STATUS_READY),
		"TAPE_EOF":    fmt.Sprintf("%v", TAPE_STATUS_EOF),
	})
}

// Rewind forgets any buffered input.
func (tc *Tape) Rewind() {
	tc.hasInput = false
	tc.lastInput = 0
	tc.eof = false
	tc.err = nil
}

// Err returns the first output error since the last Rewind.
func (tc *Tape) Err() error {
	return tc.err
}

// fill reads ahead one byte of input, if possible.
func (tc *Tape) fill() {
	if tc.hasInput || tc.eof {
		return
	}

	if tc.Input == nil {
		tc.eof = true
		return
	}

	var one [1]byte
	n, err := tc.Input.Read(one[:])
	if n == 1 {
		tc.lastInput = one[0]
		tc.hasInput = true
		return
	}
	if err != nil {
		tc.eof = true
	}
}

func (tc *Tape) status() (value byte) {
	if tc.hasInput {
		value |= TAPE_STATUS_READY
	}
	if tc.eof {
		value |= TAPE_STATUS_EOF
	}
	return
}

// Read consumes input on the data port, or refreshes the status port.
func (tc *Tape) Read(offset uint32) (value byte) {
	switch offset {
	case TAPE_DATA:
		tc.fill()
		if tc.hasInput {
			value = tc.lastInput
			tc.hasInput = false
		}
	case TAPE_STATUS:
		tc.fill()
		value = tc.status()
	}

	return
}

// Peek reports the port contents without reading more input.
func (tc *Tape) Peek(offset uint32) (value byte) {
	switch offset {
	case TAPE_DATA:
		if tc.hasInput {
			value = tc.lastInput
		}
	case TAPE_STATUS:
		value = tc.status()
	}

	return
}

// Write emits value on the data port. Writes to other ports are ignored.
func (tc *Tape) Write(offset uint32, value byte) {
	if offset != TAPE_DATA || tc.Output == nil {
		return
	}

	_, err := tc.Output.Write([]byte{value})
	if err != nil {
		if tc.Verbose {
			log.Printf("device: tape: %v", err)
		}
		if tc.err == nil {
			tc.err = err
		}
	}
}
