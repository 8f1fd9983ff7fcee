//go:build !js

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mkchaos/rsc/pkg/asm"
	"github.com/mkchaos/rsc/pkg/compiler"
	"github.com/mkchaos/rsc/pkg/utils"
	"github.com/mkchaos/rsc/pkg/vm"
)

func main() {
	inPath := flag.String("in", "", "input file: C source, or an assembler listing (.rsa)")
	outPath := flag.String("out", "", "listing output path (default: input with .rsa extension)")
	runProgram := flag.Bool("run", false, "run the compiled program on the VM")
	runAsmPath := flag.String("run-asm", "", "assemble and run an existing listing")
	stackSize := flag.Int("stack", 4096, "VM capacity in cells (globals plus stack)")
	dump := flag.Bool("dump", false, "print the listing to stdout")
	trace := flag.Bool("trace", false, "trace every executed instruction to stderr")
	flag.Parse()

	if *runProgram && *runAsmPath != "" {
		fmt.Fprintln(os.Stderr, "use either -run or -run-asm, not both")
		os.Exit(2)
	}
	if *inPath == "" && *runAsmPath == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: provide -in to compile, optionally with -run, or -run-asm <file>")
		flag.Usage()
		os.Exit(2)
	}

	var prog *vm.Program
	if *inPath != "" {
		p, listing, err := build(*inPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", *inPath, err)
			os.Exit(1)
		}
		prog = p

		if *dump {
			fmt.Print(listing)
		}
		if !utils.IsListing(*inPath) {
			output := *outPath
			if output == "" {
				output = utils.ListingPath(*inPath)
			}
			if err := os.WriteFile(output, []byte(listing), 0o644); err != nil {
				log.Fatalf("failed to write listing %q: %v", output, err)
			}
			fmt.Fprintf(os.Stderr, "compiled %d instructions, %d globals -> %s\n", len(prog.Codes), len(prog.Memory), output)
		}
	}

	switch {
	case *runAsmPath != "":
		_, src, err := utils.ReadSource(*runAsmPath)
		if err != nil {
			log.Fatal(err)
		}
		if prog, err = asm.Assemble(src); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", *runAsmPath, err)
			os.Exit(1)
		}
	case !*runProgram:
		return
	}

	var traceOut io.Writer
	if *trace {
		traceOut = os.Stderr
	}
	if err := run(prog, *stackSize, os.Stdout, traceOut); err != nil {
		fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
		os.Exit(1)
	}
}

// build compiles C source or assembles a listing, returning the program and
// its listing text.
func build(path string) (*vm.Program, string, error) {
	_, src, err := utils.ReadSource(path)
	if err != nil {
		return nil, "", err
	}
	if utils.IsListing(path) {
		prog, err := asm.Assemble(src)
		if err != nil {
			return nil, "", err
		}
		return prog, src, nil
	}
	prog, err := compiler.Compile(src)
	if err != nil {
		return nil, "", err
	}
	return prog, asm.Disassemble(prog), nil
}

func run(prog *vm.Program, capacity int, out, trace io.Writer) error {
	opts := []vm.Option{vm.Output(out)}
	if trace != nil {
		opts = append(opts, vm.Trace(trace))
	}
	m, err := vm.New(capacity, prog, opts...)
	if err != nil {
		return err
	}
	if err := m.Run(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "run complete: %d instructions, pc=%d sp=%d\n", m.InstructionCount(), m.PC(), m.SP())
	return nil
}
