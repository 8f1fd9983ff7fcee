package main

import (
	"fmt"

	"github.com/mkchaos/rsc/pkg/vm"
)

// maxStepsPerFrame bounds how much a free run advances between redraws.
const maxStepsPerFrame = 10000

// Stepper drives a machine one instruction at a time and remembers the
// first runtime error.
type Stepper struct {
	prog     *vm.Program
	capacity int
	m        *vm.Machine
	err      error
}

func NewStepper(prog *vm.Program, capacity int) (*Stepper, error) {
	s := &Stepper{prog: prog, capacity: capacity}
	if err := s.Reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset reloads the program image and clears the error.
func (s *Stepper) Reset() error {
	m, err := vm.New(s.capacity, s.prog)
	if err != nil {
		return err
	}
	s.m = m
	s.err = nil
	return nil
}

func (s *Stepper) Done() bool { return s.m.Halted() || s.err != nil }
func (s *Stepper) Err() error { return s.err }

// Step executes one instruction unless the machine already stopped.
func (s *Stepper) Step() {
	if s.Done() {
		return
	}
	s.err = s.m.Step()
}

// RunFrame executes up to maxStepsPerFrame instructions and reports whether
// the machine is still running.
func (s *Stepper) RunFrame() bool {
	for i := 0; i < maxStepsPerFrame && !s.Done(); i++ {
		s.Step()
	}
	return !s.Done()
}

// ListingLines renders every instruction, marking the one at pc.
func (s *Stepper) ListingLines() []string {
	names := make(map[int]string)
	for name, pc := range s.prog.Symbols {
		names[pc] = name
	}
	lines := make([]string, 0, len(s.prog.Codes))
	for pc, c := range s.prog.Codes {
		marker := "  "
		if pc == s.m.PC() {
			marker = "> "
		}
		label := ""
		if n, ok := names[pc]; ok {
			label = n + ":"
		}
		lines = append(lines, fmt.Sprintf("%s%04d %-8s %s", marker, pc, label, c))
	}
	return lines
}

// StackLines renders the live stack top first, marking the frame base.
func (s *Stepper) StackLines() []string {
	stack := s.m.Stack()
	base := len(s.m.Globals())
	lines := make([]string, 0, len(stack)+1)
	for i := len(stack) - 1; i >= 0; i-- {
		addr := base + i
		marker := "   "
		if addr == s.m.FP() {
			marker = "fp>"
		}
		lines = append(lines, fmt.Sprintf("%s %5d  %d", marker, addr, stack[i]))
	}
	lines = append(lines, fmt.Sprintf("ps=%d fp=%d", s.m.SP(), s.m.FP()))
	return lines
}

// OutputLines lists the printed values in order.
func (s *Stepper) OutputLines() []string {
	out := s.m.Printed()
	lines := make([]string, len(out))
	for i, v := range out {
		lines[i] = fmt.Sprint(v)
	}
	return lines
}

// Status summarizes the machine state in one line.
func (s *Stepper) Status() string {
	switch {
	case s.err != nil:
		return fmt.Sprintf("error: %v", s.err)
	case s.m.Halted():
		return fmt.Sprintf("halted after %d instructions", s.m.InstructionCount())
	}
	return fmt.Sprintf("pc=%d  %d instructions  [space] step  [r] run  [backspace] reset", s.m.PC(), s.m.InstructionCount())
}
