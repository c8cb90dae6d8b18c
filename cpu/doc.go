// Package cpu is the execution engine of the virtual CPU.
//
// A Cpu fetches, decodes and executes one instruction per Step against its
// memory Bus, services queued interrupts at instruction boundaries, and
// checks its breakpoint Manager after every completed step.
package cpu
