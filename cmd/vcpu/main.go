// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/ezrec/vcpu/asm"
	"github.com/ezrec/vcpu/cpu"
	"github.com/ezrec/vcpu/emulator"
	"github.com/ezrec/vcpu/translate"
)

func main() {
	var compile string
	var listing bool
	var breaks []string
	var maxSteps int
	var input string
	var output string
	var save string
	var restore string
	var verbose bool
	var lang string

	flag.StringVar(&compile, "c", "", ".asm file to assemble and load")
	flag.BoolVar(&listing, "l", false, "Print the program listing, do not execute")
	flag.Func("b", "Breakpoint at a label or address (repeatable)", func(text string) error {
		breaks = append(breaks, text)
		return nil
	})
	flag.IntVar(&maxSteps, "n", 0, "Maximum steps to execute (0 is unlimited)")
	flag.StringVar(&input, "i", "-", "Tape input")
	flag.StringVar(&output, "o", "-", "Tape output")
	flag.StringVar(&save, "save", "", "Save the machine state here on exit")
	flag.StringVar(&restore, "restore", "", "Restore the machine state from here before running")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.StringVar(&lang, "lang", "", "Message locale, such as en-US")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if len(lang) != 0 {
		translate.Set(lang)
	}

	emu, err := emulator.NewEmulator(cpu.DefaultConfig())
	if err != nil {
		log.Fatal(err)
	}
	emu.Verbose = verbose

	// Assemble a new program.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		_, err = emu.Assemble(inf)
		var list asm.ErrorList
		if errors.As(err, &list) {
			for _, lerr := range list {
				log.Printf("%v: %v", compile, lerr)
			}
			os.Exit(1)
		}
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	}

	if listing {
		for text := range emu.Program.Listing() {
			fmt.Println(text)
		}
		for _, name := range emu.Program.SymbolNames() {
			fmt.Printf("%-16s $%04X\n", name, emu.Program.Symbols[name])
		}
		return
	}

	if len(restore) != 0 {
		blob, err := os.ReadFile(restore)
		if err != nil {
			log.Fatalf("%v: %v", restore, err)
		}
		err = emu.Restore(blob)
		if err != nil {
			log.Fatalf("%v: %v", restore, err)
		}
	}

	for _, name := range breaks {
		_, err := emu.BreakAt(name)
		if err != nil {
			log.Fatalf("-b %v: %v", name, err)
		}
	}

	if input == "-" {
		emu.Tape.Input = os.Stdin
	} else {
		inf, err := os.Open(input)
		if err != nil {
			log.Fatalf("%v: %v", input, err)
		}
		defer inf.Close()
		emu.Tape.Input = inf
	}

	if output == "-" {
		emu.Tape.Output = os.Stdout
	} else {
		ouf, err := os.Create(output)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		defer ouf.Close()
		emu.Tape.Output = ouf
	}

	// Interrupt stops the run at the next instruction boundary.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		for range sig {
			emu.Stop()
		}
	}()

	steps := 0
	for done := false; !done; {
		budget := 0
		if maxSteps > 0 {
			budget = maxSteps - steps
		}

		result, err := emu.Run(budget)
		steps += result.Steps
		if err != nil {
			log.Printf("%v", err)
			fmt.Fprint(os.Stderr, emu.Cpu.String())
			break
		}

		switch result.Reason {
		case cpu.REASON_BREAKPOINT:
			log.Printf("break %v at $%04X (line %d)", result.Breakpoints, emu.Cpu.PC, emu.LineNo())
			fmt.Fprint(os.Stderr, emu.Cpu.String())
		case cpu.REASON_LIMIT:
			log.Printf("step limit %d reached at $%04X", maxSteps, emu.Cpu.PC)
			done = true
		case cpu.REASON_BREAK:
			log.Printf("stopped at $%04X", emu.Cpu.PC)
			done = true
		default:
			if verbose {
				log.Printf("%v after %d steps, %d cycles", result.Reason, steps, emu.Cpu.Cycles)
			}
			done = true
		}

		if maxSteps > 0 && steps >= maxSteps {
			done = true
		}
	}

	if err := emu.Tape.Err(); err != nil {
		log.Printf("%v: %v", output, err)
	}

	if len(save) != 0 {
		blob, err := emu.Save()
		if err != nil {
			log.Fatalf("%v: %v", save, err)
		}
		err = os.WriteFile(save, blob, 0o644)
		if err != nil {
			log.Fatalf("%v: %v", save, err)
		}
	}
}
