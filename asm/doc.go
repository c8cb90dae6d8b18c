// Package asm is the two pass assembler and the disassembler of the
// virtual CPU.
//
// Source syntax:
//
//	label:  MNEMONIC operand, operand   ; comment
//
// Operands are a register (R0-R7), an immediate (#value), an address
// (value), or an indexed address ([value+Rn]). Values are decimal, $hex,
// 0xhex, %binary, 0bbinary, 'c', a label or equate, * for the address of
// the current line, or a $(expr) Starlark expression over the symbols.
//
// Directives are .org, .equ, .byte, .word and .ascii.
package asm
