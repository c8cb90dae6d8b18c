// Package isa defines the instruction model of the virtual CPU, and the
// decoder shared by the execution engine and the disassembler.
//
// The CPU has eight 8-bit general purpose registers (R0-R7), a 16-bit
// program counter, a descending stack pointer and a flags register. Every
// instruction is a single opcode byte followed by zero to three operand
// bytes, as determined by the addressing mode of its descriptor. Multi-byte
// addresses are little-endian.
package isa
