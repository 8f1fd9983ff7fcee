// Package asm converts between vm.Program and its textual listing.
//
// A listing is one instruction per line with optional labels:
//
//	.entry main
//	.word 5
//	main:
//	    push #1        ; immediate
//	    push [3]       ; global cell
//	    push fp[0]     ; frame-relative cell
//	    call fib, 1
//	    jz .L12
//	    ret 1
//
// Labels starting with '.' are local. Every other label is recorded in
// Program.Symbols.
package asm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/mkchaos/rsc/pkg/errs"
	"github.com/mkchaos/rsc/pkg/vm"
)

var zeroOperandOps = map[string]vm.Opcode{
	"print": vm.OpPrint,
	"exit":  vm.OpExit,
}

var memOperandOps = map[string]vm.Opcode{
	"push": vm.OpPush,
	"pop":  vm.OpPop,
}

var countOperandOps = map[string]vm.Opcode{
	"popn": vm.OpPopN,
	"ret":  vm.OpRet,
}

var targetOperandOps = map[string]vm.Opcode{
	"jmp": vm.OpJump,
	"jz":  vm.OpCondJump,
}

type Assembler struct {
	labels map[string]int
	order  []string
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]int),
	}
}

// Assemble parses a listing into a linked program.
func Assemble(code string) (*vm.Program, error) {
	p, _, err := NewAssembler().Assemble(code)
	return p, err
}

// Assemble parses a listing and also returns a map from instruction index to
// the 1-based source line it came from.
func (a *Assembler) Assemble(code string) (*vm.Program, map[int]int, error) {
	lines := strings.Split(code, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, nil, err
	}

	return a.pass2(lines)
}

// pass1 assigns an instruction index to every label.
func (a *Assembler) pass1(lines []string) error {
	pc := 0

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		for _, lbl := range p.labels {
			if _, exists := a.labels[lbl]; exists {
				return errs.New(errs.ParseErr, lineNo, "duplicate label '%s'", lbl)
			}
			a.labels[lbl] = pc
			a.order = append(a.order, lbl)
		}

		switch {
		case p.mnemonic == "":
		case strings.HasPrefix(p.mnemonic, "."):
			if p.mnemonic != ".entry" && p.mnemonic != ".word" {
				return errs.New(errs.ParseErr, lineNo, "unknown directive %s", p.mnemonic)
			}
		default:
			if _, ok := vm.LookupOpcode(p.mnemonic); !ok {
				return errs.New(errs.ParseErr, lineNo, "unknown instruction %s", p.mnemonic)
			}
			pc++
		}
	}

	return nil
}

func (a *Assembler) pass2(lines []string) (*vm.Program, map[int]int, error) {
	prog := &vm.Program{Symbols: make(map[string]int)}
	sourceMap := make(map[int]int)

	for _, lbl := range a.order {
		if !strings.HasPrefix(lbl, ".") {
			prog.Symbols[lbl] = a.labels[lbl]
		}
	}

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, nil, err
		}

		if p.mnemonic == "" {
			continue
		}

		mnemonic := p.mnemonic
		ops := p.operands

		if mnemonic == ".entry" {
			if len(ops) != 1 {
				return nil, nil, errs.New(errs.ParseErr, lineNo, ".entry expects exactly one operand")
			}
			entry, err := a.parseTarget(ops[0], lineNo)
			if err != nil {
				return nil, nil, err
			}
			prog.Entry = entry
			continue
		}

		if mnemonic == ".word" {
			if len(ops) != 1 {
				return nil, nil, errs.New(errs.ParseErr, lineNo, ".word expects exactly one operand")
			}
			val, err := parseInt(ops[0], lineNo)
			if err != nil {
				return nil, nil, err
			}
			prog.Memory = append(prog.Memory, vm.Cell(val))
			continue
		}

		sourceMap[len(prog.Codes)] = lineNo
		code, err := a.instruction(mnemonic, ops, lineNo)
		if err != nil {
			return nil, nil, err
		}
		prog.Codes = append(prog.Codes, code)
	}

	return prog, sourceMap, nil
}

func (a *Assembler) instruction(mnemonic string, ops []string, lineNo int) (vm.Code, error) {
	expect := func(n int) error {
		if len(ops) != n {
			return errs.New(errs.ParseErr, lineNo, "%s expects %d operand(s), got %d", mnemonic, n, len(ops))
		}
		return nil
	}

	if opcode, ok := zeroOperandOps[mnemonic]; ok {
		if err := expect(0); err != nil {
			return vm.Code{}, err
		}
		return vm.Code{Opcode: opcode}, nil
	}

	if opcode, ok := memOperandOps[mnemonic]; ok {
		if err := expect(1); err != nil {
			return vm.Code{}, err
		}
		addr, err := parseMemAddr(ops[0], lineNo)
		if err != nil {
			return vm.Code{}, err
		}
		return vm.Code{Opcode: opcode, Mem: addr}, nil
	}

	if opcode, ok := countOperandOps[mnemonic]; ok {
		if err := expect(1); err != nil {
			return vm.Code{}, err
		}
		n, err := parseCount(ops[0], lineNo)
		if err != nil {
			return vm.Code{}, err
		}
		return vm.Code{Opcode: opcode, N: n}, nil
	}

	if opcode, ok := targetOperandOps[mnemonic]; ok {
		if err := expect(1); err != nil {
			return vm.Code{}, err
		}
		pc, err := a.parseTarget(ops[0], lineNo)
		if err != nil {
			return vm.Code{}, err
		}
		return vm.Code{Opcode: opcode, Target: vm.AbsAddr(pc)}, nil
	}

	switch mnemonic {
	case "op":
		if err := expect(1); err != nil {
			return vm.Code{}, err
		}
		op, ok := vm.LookupOp(ops[0])
		if !ok {
			return vm.Code{}, errs.New(errs.ParseErr, lineNo, "unknown operator '%s'", ops[0])
		}
		return vm.Calc(op), nil

	case "call":
		if err := expect(2); err != nil {
			return vm.Code{}, err
		}
		pc, err := a.parseTarget(ops[0], lineNo)
		if err != nil {
			return vm.Code{}, err
		}
		n, err := parseCount(ops[1], lineNo)
		if err != nil {
			return vm.Code{}, err
		}
		return vm.Call(vm.AbsAddr(pc), n), nil
	}

	return vm.Code{}, errs.New(errs.ParseErr, lineNo, "unknown instruction %s", mnemonic)
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t") {
			break
		}

		if !isLabel(beforeColon) {
			return p, errs.New(errs.ParseErr, lineNo, "invalid label '%s'", beforeColon)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	mnemonic, rest := line, ""
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		mnemonic, rest = line[:i], line[i+1:]
	}
	p.mnemonic = strings.ToLower(mnemonic)

	rest = strings.TrimSpace(rest)
	if rest != "" {
		for _, op := range strings.Split(rest, ",") {
			op = strings.TrimSpace(op)
			if op == "" {
				return p, errs.New(errs.ParseErr, lineNo, "empty operand")
			}
			p.operands = append(p.operands, op)
		}
	}

	return p, nil
}

func stripComments(line string) string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		return line[:i]
	}
	return line
}

func parseInt(token string, lineNo int) (int64, error) {
	v, err := strconv.ParseInt(token, 0, 32)
	if err != nil {
		return 0, errs.New(errs.ParseErr, lineNo, "invalid integer '%s'", token)
	}
	return v, nil
}

func parseCount(token string, lineNo int) (int, error) {
	v, err := parseInt(token, lineNo)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, errs.New(errs.ParseErr, lineNo, "negative count '%s'", token)
	}
	return int(v), nil
}

// parseMemAddr accepts #n, [n] and fp[n].
func parseMemAddr(token string, lineNo int) (vm.MemAddr, error) {
	switch {
	case strings.HasPrefix(token, "#"):
		v, err := parseInt(token[1:], lineNo)
		if err != nil {
			return vm.MemAddr{}, err
		}
		return vm.ValueAddr(vm.Cell(v)), nil

	case strings.HasPrefix(token, "fp[") && strings.HasSuffix(token, "]"):
		v, err := parseInt(strings.TrimSpace(token[3:len(token)-1]), lineNo)
		if err != nil {
			return vm.MemAddr{}, err
		}
		return vm.IndirectAddr(int(v)), nil

	case strings.HasPrefix(token, "[") && strings.HasSuffix(token, "]"):
		v, err := parseCount(strings.TrimSpace(token[1:len(token)-1]), lineNo)
		if err != nil {
			return vm.MemAddr{}, err
		}
		return vm.DirectAddr(v), nil
	}
	return vm.MemAddr{}, errs.New(errs.ParseErr, lineNo, "invalid address '%s'", token)
}

// parseTarget resolves a label or a literal instruction index.
func (a *Assembler) parseTarget(token string, lineNo int) (int, error) {
	if pc, ok := a.labels[token]; ok {
		return pc, nil
	}

	if isLabel(token) {
		return 0, errs.New(errs.ParseErr, lineNo, "undefined label '%s'", token)
	}

	return parseCount(token, lineNo)
}

// isLabel accepts identifiers, optionally prefixed with '.' for local labels.
func isLabel(s string) bool {
	s = strings.TrimPrefix(s, ".")
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}

	return true
}

// Disassemble renders p as a listing that Assemble accepts. Function entries
// are labelled from p.Symbols; other jump targets get local .L<pc> labels.
func Disassemble(p *vm.Program) string {
	names := make(map[int][]string)
	for name, pc := range p.Symbols {
		names[pc] = append(names[pc], name)
	}
	for _, ns := range names {
		sort.Strings(ns)
	}

	local := make(map[int]string)
	for _, c := range p.Codes {
		if !c.HasTarget() {
			continue
		}
		if _, ok := names[c.Target.N]; !ok {
			local[c.Target.N] = fmt.Sprintf(".L%d", c.Target.N)
		}
	}

	target := func(pc int) string {
		if ns, ok := names[pc]; ok {
			return ns[0]
		}
		if l, ok := local[pc]; ok {
			return l
		}
		return strconv.Itoa(pc)
	}

	var b strings.Builder
	fmt.Fprintf(&b, ".entry %s\n", target(p.Entry))
	for i, w := range p.Memory {
		fmt.Fprintf(&b, ".word %d\t; [%d]\n", w, i)
	}

	for pc := 0; pc <= len(p.Codes); pc++ {
		if ns, ok := names[pc]; ok {
			b.WriteString("\n")
			for _, n := range ns {
				fmt.Fprintf(&b, "%s:\n", n)
			}
		}
		if l, ok := local[pc]; ok {
			fmt.Fprintf(&b, "%s:\n", l)
		}
		if pc == len(p.Codes) {
			break
		}

		c := p.Codes[pc]
		var text string
		switch c.Opcode {
		case vm.OpCall:
			text = fmt.Sprintf("%s %s, %d", c.Opcode, target(c.Target.N), c.N)
		case vm.OpJump, vm.OpCondJump:
			text = fmt.Sprintf("%s %s", c.Opcode, target(c.Target.N))
		default:
			text = c.String()
		}
		fmt.Fprintf(&b, "    %-20s ; %d\n", text, pc)
	}

	return b.String()
}
