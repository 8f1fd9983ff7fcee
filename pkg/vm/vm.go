// Package vm implements the stack machine that runs compiled programs.
//
// A single flat array of cells holds global memory (at the bottom) followed by
// the operand/call stack. Three registers drive execution:
//
//	pc  next instruction
//	ps  stack top (first free cell)
//	pd  frame base of the running call
//
// A call frame is two saved cells (return pc, caller pd) immediately below the
// callee's parameters, which become its first locals.
package vm

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/mkchaos/rsc/pkg/errs"
)

// Headroom is the minimum number of stack cells required above global memory.
const Headroom = 100

// ErrCapacity is returned by New when the requested capacity cannot hold the
// program's globals plus Headroom.
var ErrCapacity = errors.New("vm: capacity too small")

// Machine is a VM instance. It is not safe for concurrent use.
type Machine struct {
	pc, ps, pd int

	codes   []Code
	data    []Cell
	globals int

	halted   bool
	out      []Cell
	insCount int64

	output io.Writer
	trace  io.Writer
}

// Option configures a Machine.
type Option func(*Machine) error

// Output mirrors every printed value to w, one decimal value per line.
func Output(w io.Writer) Option {
	return func(m *Machine) error { m.output = w; return nil }
}

// Trace writes one line per executed instruction to w.
func Trace(w io.Writer) Option {
	return func(m *Machine) error { m.trace = w; return nil }
}

// New creates a machine with capacity cells of memory and loads prog into it.
// Global memory is copied to the bottom of the array and execution starts at
// prog.Entry.
func New(capacity int, prog *Program, opts ...Option) (*Machine, error) {
	if prog == nil {
		return nil, errors.New("vm: nil program")
	}
	need := len(prog.Memory) + Headroom
	if capacity < need {
		return nil, errors.Wrapf(ErrCapacity, "requested %d cells, need at least %d", capacity, need)
	}
	for i, c := range prog.Codes {
		if c.HasTarget() && !c.Target.Linked() {
			return nil, errors.Errorf("vm: unlinked target %s at pc %d", c.Target, i)
		}
	}
	m := &Machine{
		codes:   prog.Codes,
		data:    make([]Cell, capacity),
		globals: len(prog.Memory),
	}
	copy(m.data, prog.Memory)
	m.Reset(prog.Entry)
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Reset rewinds the registers to a fresh call of the entry point. Global
// memory keeps whatever values the previous run left in it.
func (m *Machine) Reset(entry int) {
	m.pc = entry
	m.ps = m.globals
	m.pd = m.globals
	m.halted = false
	m.out = nil
	m.insCount = 0
}

// PC returns the index of the next instruction.
func (m *Machine) PC() int { return m.pc }

// SP returns the stack pointer ps, one past the top cell.
func (m *Machine) SP() int { return m.ps }

// FP returns the frame pointer pd, the address of the current frame's first
// argument or local.
func (m *Machine) FP() int { return m.pd }

// Halted reports whether a Ret from the outermost frame or an Exit ran.
func (m *Machine) Halted() bool { return m.halted }

// InstructionCount returns the number of instructions executed since the
// last Reset.
func (m *Machine) InstructionCount() int64 { return m.insCount }

// Stack returns the live part of the stack, above global memory. It is empty
// when ps was left below the globals by a failed instruction.
func (m *Machine) Stack() []Cell {
	if m.ps < m.globals || m.ps > len(m.data) {
		return nil
	}
	return m.data[m.globals:m.ps]
}

// Globals returns global memory.
func (m *Machine) Globals() []Cell { return m.data[:m.globals] }

// Printed returns the values printed so far.
func (m *Machine) Printed() []Cell { return m.out }

func (m *Machine) load(a MemAddr) Cell {
	switch a.Mode {
	case Direct:
		return m.data[a.N]
	case Indirect:
		return m.data[m.pd+a.N]
	}
	return Cell(a.N)
}

func (m *Machine) store(a MemAddr, v Cell) {
	switch a.Mode {
	case Direct:
		m.data[a.N] = v
	case Indirect:
		m.data[m.pd+a.N] = v
	}
}

func (m *Machine) overflow(need int) error {
	return errs.New(errs.StackOverFlow, 0, "pc %d: need %d cells at ps=%d, capacity %d", m.pc-1, need, m.ps, len(m.data))
}

func (m *Machine) underflow(need int) error {
	return errors.Errorf("vm: stack underflow @pc=%d: need %d cells at ps=%d, globals %d", m.pc-1, need, m.ps, m.globals)
}

// Step executes a single instruction. It is a no-op once the machine halted.
// A malformed program that indexes outside memory is reported as an error
// with the register state, not a panic.
func (m *Machine) Step() (err error) {
	if m.halted {
		return nil
	}
	defer func() {
		if e := recover(); e != nil {
			switch e := e.(type) {
			case error:
				err = errors.Wrapf(e, "recovered @pc=%d/%d ps=%d pd=%d cap=%d", m.pc, len(m.codes), m.ps, m.pd, len(m.data))
			default:
				panic(e)
			}
		}
	}()
	if m.pc < 0 || m.pc >= len(m.codes) {
		return errors.Errorf("vm: pc %d out of range [0, %d)", m.pc, len(m.codes))
	}
	c := m.codes[m.pc]
	if m.trace != nil {
		fmt.Fprintf(m.trace, "%04d  %-18s ps=%d pd=%d\n", m.pc, c, m.ps, m.pd)
	}
	m.pc++
	m.insCount++

	switch c.Opcode {
	case OpPush:
		if m.ps >= len(m.data) {
			return m.overflow(1)
		}
		m.data[m.ps] = m.load(c.Mem)
		m.ps++

	case OpPop:
		if m.ps-1 < m.globals {
			return m.underflow(1)
		}
		m.ps--
		m.store(c.Mem, m.data[m.ps])

	case OpPopN:
		if c.N < 0 || m.ps-c.N < m.globals {
			return m.underflow(c.N)
		}
		m.ps -= c.N

	case OpCalc:
		if m.ps-c.Op.Arity() < m.globals {
			return m.underflow(c.Op.Arity())
		}
		if c.Op.Arity() == 1 {
			v, err := Eval1(c.Op, m.data[m.ps-1])
			if err != nil {
				return err
			}
			m.data[m.ps-1] = v
			break
		}
		v, err := Eval2(c.Op, m.data[m.ps-2], m.data[m.ps-1])
		if err != nil {
			return err
		}
		m.data[m.ps-2] = v
		m.ps--

	case OpCall:
		if m.ps+2 > len(m.data) {
			return m.overflow(2)
		}
		// Shift the arguments up two cells to make room for the saved
		// registers below them.
		if c.N < 0 || m.ps-c.N < m.globals {
			return m.underflow(c.N)
		}
		base := m.ps - c.N
		for i := c.N - 1; i >= 0; i-- {
			m.data[base+2+i] = m.data[base+i]
		}
		m.data[base] = Cell(m.pc)
		m.data[base+1] = Cell(m.pd)
		m.pd = base + 2
		m.ps = m.pd + c.N
		m.pc = c.Target.N

	case OpJump:
		m.pc = c.Target.N

	case OpCondJump:
		if m.ps-1 < m.globals {
			return m.underflow(1)
		}
		m.ps--
		if m.data[m.ps] == 0 {
			m.pc = c.Target.N
		}

	case OpPrint:
		if m.ps-1 < m.globals {
			return m.underflow(1)
		}
		v := m.data[m.ps-1]
		m.out = append(m.out, v)
		if m.output != nil {
			fmt.Fprintln(m.output, v)
		}

	case OpRet:
		if m.pd <= m.globals {
			m.halted = true
			break
		}
		if c.N < 0 || m.ps-c.N < m.pd {
			return m.underflow(c.N)
		}
		top := m.ps
		base := m.pd - 2
		m.pc = int(m.data[base])
		m.pd = int(m.data[base+1])
		m.ps = base
		copy(m.data[m.ps:m.ps+c.N], m.data[top-c.N:top])
		m.ps += c.N

	case OpExit:
		m.halted = true

	default:
		return errors.Errorf("vm: invalid opcode %d at pc %d", c.Opcode, m.pc-1)
	}
	return nil
}

// Run executes instructions until the machine halts or fails.
func (m *Machine) Run() error {
	for !m.halted {
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Execute runs the program to completion and returns the printed values in
// order, or the first runtime error.
func (m *Machine) Execute() ([]Cell, error) {
	if err := m.Run(); err != nil {
		return nil, err
	}
	out := make([]Cell, len(m.out))
	copy(out, m.out)
	return out, nil
}
