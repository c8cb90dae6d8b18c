// Package memory implements the byte addressable memory bus of the virtual CPU.
//
// The bus is a flat array of bytes with optional read-only regions and
// memory-mapped device regions. Every access is bounds checked; there is no
// implicit address wraparound.
package memory
