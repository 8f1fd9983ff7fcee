package compiler

import (
	"github.com/mkchaos/rsc/pkg/errs"
	"github.com/mkchaos/rsc/pkg/vm"
)

// Semantic is the result of analysis. The AST is left untouched; every
// resolution lives in these tables.
type Semantic struct {
	// Refs maps a node to the symbol it declares or uses: variable
	// references, declarations and parameters to variables, calls and
	// function declarations to functions, blocks to scopes, loops and ifs
	// to their regions, break/continue to the enclosing loop.
	Refs map[NodeID]SymbolID

	// Unwind holds the number of stack slots a break or continue discards
	// before jumping.
	Unwind map[NodeID]int

	Vars    map[SymbolID]*VarInfo
	Funcs   map[SymbolID]*FuncInfo
	Layouts map[SymbolID]Layout

	Main SymbolID
}

type loopCtx struct {
	id     SymbolID
	cursor int
}

type analyzer struct {
	st    *SymbolTable
	sem   *Semantic
	ret   Type
	loops []loopCtx
}

// Analyze resolves names, checks types and assigns memory layout in a single
// left-to-right pass over stmts.
func Analyze(stmts []Stmt) (*Semantic, error) {
	st := NewSymbolTable()
	a := &analyzer{
		st: st,
		sem: &Semantic{
			Refs:    make(map[NodeID]SymbolID),
			Unwind:  make(map[NodeID]int),
			Vars:    st.Vars,
			Funcs:   st.Funcs,
			Layouts: st.Layouts,
		},
	}

	for _, stmt := range stmts {
		var err error
		switch s := stmt.(type) {
		case *VariableDecl:
			err = a.globalDecl(s)
		case *FunctionDecl:
			err = a.function(s)
		default:
			err = errs.New(errs.ParseErr, 0, "unexpected top-level %s", stmt)
		}
		if err != nil {
			return nil, err
		}
	}

	mainID, err := st.Finalize()
	if err != nil {
		return nil, err
	}
	a.sem.Main = mainID
	return a.sem, nil
}

func (a *analyzer) globalDecl(d *VariableDecl) error {
	if d.Init != nil {
		if _, err := FoldConst(d.Init); err != nil {
			return err
		}
	}
	id, err := a.st.DeclareVar(d.Name, d.Type, d.Line)
	if err != nil {
		return err
	}
	a.sem.Refs[d.ID] = id
	return nil
}

// FoldConst evaluates an expression made only of literals and operators.
func FoldConst(e *Expr) (vm.Cell, error) {
	var stack []vm.Cell
	for _, it := range e.Items {
		switch it := it.(type) {
		case *Literal:
			stack = append(stack, it.Value)
		case *OpItem:
			var (
				v   vm.Cell
				err error
			)
			if it.Op.Arity() == 1 {
				v, err = vm.Eval1(it.Op, stack[len(stack)-1])
				stack = stack[:len(stack)-1]
			} else {
				v, err = vm.Eval2(it.Op, stack[len(stack)-2], stack[len(stack)-1])
				stack = stack[:len(stack)-2]
			}
			if err != nil {
				if k := errs.KindOf(err); k != errs.Unknown {
					return 0, errs.New(k, e.Line, "in constant expression %s", e)
				}
				return 0, err
			}
			stack = append(stack, v)
		default:
			return 0, errs.New(errs.GlobalNeedConst, e.Line, "%s is not a constant", it)
		}
	}
	return stack[0], nil
}

func (a *analyzer) function(f *FunctionDecl) error {
	for _, p := range f.Params {
		if p.Type == TypeVoid {
			return errs.New(errs.TypeErr, f.Line, "parameter of %s declared void", f.Name)
		}
	}
	ft := f.Type()

	if f.Body == nil {
		id, err := a.st.DeclareFn(f.Name, ft, f.Line)
		if err != nil {
			return err
		}
		a.sem.Refs[f.ID] = id
		return nil
	}

	for i, p := range f.Params {
		if p.Name == "" {
			return errs.New(errs.FormatErr, f.Line, "parameter %d of %s has no name", i+1, f.Name)
		}
	}
	id, err := a.st.ImplFn(f.Name, ft, f.Line)
	if err != nil {
		return err
	}
	a.sem.Refs[f.ID] = id

	a.st.EnterFunction(id)
	for _, p := range f.Params {
		pid, err := a.st.DeclareVar(p.Name, p.Type, f.Line)
		if err != nil {
			return err
		}
		a.sem.Refs[p.ID] = pid
	}

	// The body block shares the parameter scope.
	a.sem.Refs[f.Body.ID] = id
	a.ret = f.Ret
	for _, stmt := range f.Body.Stmts {
		if err := a.stmt(stmt); err != nil {
			return err
		}
	}
	a.st.ExitFunction()
	return nil
}

func (a *analyzer) stmt(stmt Stmt) error {
	switch s := stmt.(type) {
	case *VariableDecl:
		if s.Init != nil {
			if err := a.expectInt(s.Init); err != nil {
				return err
			}
		}
		id, err := a.st.DeclareVar(s.Name, s.Type, s.Line)
		if err != nil {
			return err
		}
		a.sem.Refs[s.ID] = id

	case *Assignment:
		if err := a.expectInt(s.Value); err != nil {
			return err
		}
		return a.varRef(s.Target)

	case *PrintStmt:
		return a.varRef(s.Var)

	case *ExprStmt:
		_, err := a.expr(s.Expr)
		return err

	case *ReturnStmt:
		switch {
		case s.Expr == nil:
		case a.ret == TypeVoid:
			return errs.New(errs.TypeErr, s.Line, "void function returns a value")
		default:
			return a.expectInt(s.Expr)
		}

	case *BlockStmt:
		a.sem.Refs[s.ID] = a.st.EnterScope()
		for _, item := range s.Stmts {
			if err := a.stmt(item); err != nil {
				return err
			}
		}
		a.st.ExitScope()

	case *IfStmt:
		a.sem.Refs[s.ID] = a.st.NewID()
		a.sem.Refs[s.ThenID] = a.st.NewID()
		if err := a.expectInt(s.Condition); err != nil {
			return err
		}
		if err := a.stmt(s.Body); err != nil {
			return err
		}
		if s.ElseBody != nil {
			return a.stmt(s.ElseBody)
		}

	case *WhileStmt:
		id := a.st.NewID()
		a.sem.Refs[s.ID] = id
		if err := a.expectInt(s.Condition); err != nil {
			return err
		}
		a.loops = append(a.loops, loopCtx{id: id, cursor: a.st.Cursor()})
		err := a.stmt(s.Body)
		a.loops = a.loops[:len(a.loops)-1]
		return err

	case *BreakStmt:
		return a.loopJump(s.ID, s.Line, "break")

	case *ContinueStmt:
		return a.loopJump(s.ID, s.Line, "continue")

	default:
		return errs.New(errs.ParseErr, 0, "unexpected statement %s", stmt)
	}
	return nil
}

func (a *analyzer) loopJump(id NodeID, line int, what string) error {
	if len(a.loops) == 0 {
		return errs.New(errs.FormatErr, line, "%s outside a loop", what)
	}
	loop := a.loops[len(a.loops)-1]
	a.sem.Refs[id] = loop.id
	a.sem.Unwind[id] = a.st.Cursor() - loop.cursor
	return nil
}

func (a *analyzer) varRef(v *VarRef) error {
	info, err := a.st.FetchVar(v.Name, v.Line)
	if err != nil {
		return err
	}
	a.sem.Refs[v.ID] = info.ID
	return nil
}

func (a *analyzer) expectInt(e *Expr) error {
	t, err := a.expr(e)
	if err != nil {
		return err
	}
	if t != TypeInt {
		return errs.New(errs.TypeErr, e.Line, "%s has no value", e)
	}
	return nil
}

// expr resolves every name in e and returns its type. Operands of every
// operator must be int.
func (a *analyzer) expr(e *Expr) (Type, error) {
	var stack []Type
	for _, it := range e.Items {
		switch it := it.(type) {
		case *Literal:
			stack = append(stack, TypeInt)

		case *VarRef:
			if err := a.varRef(it); err != nil {
				return 0, err
			}
			stack = append(stack, a.sem.Vars[a.sem.Refs[it.ID]].Type)

		case *CallExpr:
			fn, err := a.st.FetchFunc(it.Name, it.Line)
			if err != nil {
				return 0, err
			}
			a.sem.Refs[it.ID] = fn.ID
			if len(it.Args) != len(fn.Type.Params) {
				return 0, errs.New(errs.TypeErr, it.Line, "%s takes %d argument(s), got %d", it.Name, len(fn.Type.Params), len(it.Args))
			}
			for _, arg := range it.Args {
				if err := a.expectInt(arg); err != nil {
					return 0, err
				}
			}
			stack = append(stack, fn.Type.Ret)

		case *OpItem:
			n := it.Op.Arity()
			for _, t := range stack[len(stack)-n:] {
				if t != TypeInt {
					return 0, errs.New(errs.TypeErr, e.Line, "operand of %s has no value", it.Op)
				}
			}
			stack = append(stack[:len(stack)-n], TypeInt)
		}
	}
	return stack[0], nil
}
