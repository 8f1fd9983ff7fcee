package compiler

import (
	"github.com/pkg/errors"

	"github.com/mkchaos/rsc/pkg/vm"
)

type region struct {
	start, end int
	closed     bool
}

// CodeGen turns an analyzed AST into a linked program. Control flow is
// emitted against symbolic region addresses (start/end of a loop, an if, a
// function) and resolved once every region is known.
type CodeGen struct {
	sem     *Semantic
	codes   []vm.Code
	regions map[SymbolID]*region
	memory  []vm.Cell
	ret     Type // result type of the function being emitted
}

func newCodeGen(sem *Semantic) *CodeGen {
	return &CodeGen{
		sem:     sem,
		regions: make(map[SymbolID]*region),
	}
}

func (cg *CodeGen) emit(c ...vm.Code) {
	cg.codes = append(cg.codes, c...)
}

func (cg *CodeGen) enter(id SymbolID) {
	cg.regions[id] = &region{start: len(cg.codes)}
}

func (cg *CodeGen) exit(id SymbolID) {
	r := cg.regions[id]
	r.end = len(cg.codes)
	r.closed = true
}

// Generate emits code for every function definition and builds the initial
// global memory image. sem must come from Analyze on the same stmts.
func Generate(stmts []Stmt, sem *Semantic) (*vm.Program, error) {
	cg := newCodeGen(sem)

	for _, s := range stmts {
		switch s := s.(type) {
		case *VariableDecl:
			if err := cg.global(s); err != nil {
				return nil, err
			}
		case *FunctionDecl:
			if s.Body != nil {
				cg.function(s)
			}
		}
	}

	if err := cg.link(); err != nil {
		return nil, err
	}

	main, ok := cg.regions[sem.Main]
	if !ok {
		return nil, errors.Errorf("codegen: main has no code")
	}
	prog := &vm.Program{
		Codes:   cg.codes,
		Memory:  cg.memory,
		Entry:   main.start,
		Symbols: make(map[string]int),
	}
	for id, f := range sem.Funcs {
		if r, ok := cg.regions[id]; ok {
			prog.Symbols[f.Name] = r.start
		}
	}
	return prog, nil
}

func (cg *CodeGen) global(d *VariableDecl) error {
	id := cg.sem.Refs[d.ID]
	if off := cg.sem.Layouts[id].Offset; off != len(cg.memory) {
		return errors.Errorf("codegen: global %s at offset %d, memory has %d cells", d.Name, off, len(cg.memory))
	}
	var v vm.Cell
	if d.Init != nil {
		var err error
		if v, err = FoldConst(d.Init); err != nil {
			return err
		}
	}
	cg.memory = append(cg.memory, v)
	return nil
}

// link replaces every start/end operand with the instruction index it names.
func (cg *CodeGen) link() error {
	for pc := range cg.codes {
		c := &cg.codes[pc]
		if !c.HasTarget() || c.Target.Linked() {
			continue
		}
		r, ok := cg.regions[SymbolID(c.Target.N)]
		if !ok || !r.closed {
			return errors.Errorf("codegen: unresolved target %s at pc %d", c.Target, pc)
		}
		if c.Target.Kind == vm.Start {
			c.Target = vm.AbsAddr(r.start)
		} else {
			c.Target = vm.AbsAddr(r.end)
		}
	}
	return nil
}

func (cg *CodeGen) addr(v *VarRef) vm.MemAddr {
	id := cg.sem.Refs[v.ID]
	off := cg.sem.Layouts[id].Offset
	if cg.sem.Vars[id].Func == GlobalScope {
		return vm.DirectAddr(off)
	}
	return vm.IndirectAddr(off)
}

func (cg *CodeGen) function(f *FunctionDecl) {
	id := cg.sem.Refs[f.ID]
	cg.ret = f.Ret
	cg.enter(id)
	for _, s := range f.Body.Stmts {
		cg.stmt(s)
	}

	// falling off the end returns zero (int) or nothing (void)
	n := len(f.Body.Stmts)
	if n == 0 || !isReturn(f.Body.Stmts[n-1]) {
		if f.Ret == TypeInt {
			cg.emit(vm.Push(vm.ValueAddr(0)), vm.Ret(1))
		} else {
			cg.emit(vm.Ret(0))
		}
	}
	cg.exit(id)
}

func isReturn(s Stmt) bool {
	_, ok := s.(*ReturnStmt)
	return ok
}

func (cg *CodeGen) stmt(s Stmt) {
	switch s := s.(type) {
	case *VariableDecl:
		if s.Init != nil {
			cg.expr(s.Init)
		} else {
			cg.emit(vm.Push(vm.ValueAddr(0)))
		}

	case *Assignment:
		cg.expr(s.Value)
		cg.emit(vm.Pop(cg.addr(s.Target)))

	case *PrintStmt:
		cg.emit(vm.Push(cg.addr(s.Var)), vm.Print(), vm.PopN(1))

	case *ExprStmt:
		cg.expr(s.Expr)
		if !cg.isVoidCall(s.Expr) {
			cg.emit(vm.PopN(1))
		}

	case *ReturnStmt:
		switch {
		case s.Expr != nil:
			cg.expr(s.Expr)
			cg.emit(vm.Ret(1))
		case cg.ret == TypeInt:
			cg.emit(vm.Push(vm.ValueAddr(0)), vm.Ret(1))
		default:
			cg.emit(vm.Ret(0))
		}

	case *BlockStmt:
		for _, item := range s.Stmts {
			cg.stmt(item)
		}
		if size := cg.sem.Layouts[cg.sem.Refs[s.ID]].Size; size > 0 {
			cg.emit(vm.PopN(size))
		}

	case *IfStmt:
		id, then := cg.sem.Refs[s.ID], cg.sem.Refs[s.ThenID]
		cg.enter(id)
		cg.expr(s.Condition)
		cg.emit(vm.CondJump(vm.EndOf(int(then))))
		cg.enter(then)
		cg.stmt(s.Body)
		if s.ElseBody != nil {
			cg.emit(vm.Jump(vm.EndOf(int(id))))
		}
		cg.exit(then)
		if s.ElseBody != nil {
			cg.stmt(s.ElseBody)
		}
		cg.exit(id)

	case *WhileStmt:
		id := cg.sem.Refs[s.ID]
		cg.enter(id)
		cg.expr(s.Condition)
		cg.emit(vm.CondJump(vm.EndOf(int(id))))
		cg.stmt(s.Body)
		cg.emit(vm.Jump(vm.StartOf(int(id))))
		cg.exit(id)

	case *BreakStmt:
		cg.unwind(s.ID)
		cg.emit(vm.Jump(vm.EndOf(int(cg.sem.Refs[s.ID]))))

	case *ContinueStmt:
		cg.unwind(s.ID)
		cg.emit(vm.Jump(vm.StartOf(int(cg.sem.Refs[s.ID]))))
	}
}

func (cg *CodeGen) unwind(id NodeID) {
	if n := cg.sem.Unwind[id]; n > 0 {
		cg.emit(vm.PopN(n))
	}
}

func (cg *CodeGen) isVoidCall(e *Expr) bool {
	if len(e.Items) == 0 {
		return false
	}
	call, ok := e.Items[len(e.Items)-1].(*CallExpr)
	if !ok {
		return false
	}
	return cg.sem.Funcs[cg.sem.Refs[call.ID]].Type.Ret == TypeVoid
}

func (cg *CodeGen) expr(e *Expr) {
	for _, it := range e.Items {
		switch it := it.(type) {
		case *Literal:
			cg.emit(vm.Push(vm.ValueAddr(it.Value)))
		case *VarRef:
			cg.emit(vm.Push(cg.addr(it)))
		case *CallExpr:
			for _, arg := range it.Args {
				cg.expr(arg)
			}
			cg.emit(vm.Call(vm.StartOf(int(cg.sem.Refs[it.ID])), len(it.Args)))
		case *OpItem:
			cg.emit(vm.Calc(it.Op))
		}
	}
}
