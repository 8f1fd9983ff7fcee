package compiler

import (
	"fmt"
	"strings"

	"github.com/mkchaos/rsc/pkg/errs"
)

// SymbolID identifies a variable, function, scope or control-flow region.
// IDs come from a counter owned by one SymbolTable, so a compilation always
// produces the same IDs for the same source. ID 0 is the global scope.
type SymbolID int

// GlobalScope is the scope holding globals and functions.
const GlobalScope SymbolID = 0

// Layout is an (offset, size) region of the memory/stack array.
type Layout struct {
	Offset int
	Size   int
}

type VarInfo struct {
	ID    SymbolID
	Name  string
	Scope SymbolID
	Func  SymbolID // 0 for globals
	Type  Type
}

type FuncInfo struct {
	ID      SymbolID
	Name    string
	Type    FuncType
	HasImpl bool
}

type scope struct {
	id    SymbolID
	base  int
	names map[string]SymbolID
}

// SymbolTable tracks the active scope stack and allocates slots. Every
// variable takes one slot. Offsets grow from a single cursor; leaving a scope
// records its size and rewinds the cursor, so sibling scopes reuse slots the
// same way the running program reuses stack cells.
type SymbolTable struct {
	lastID SymbolID
	scopes []*scope
	cursor int
	fn     SymbolID // function being analyzed, 0 at top level

	Vars    map[SymbolID]*VarInfo
	Funcs   map[SymbolID]*FuncInfo
	Layouts map[SymbolID]Layout
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		scopes:  []*scope{{id: GlobalScope, names: make(map[string]SymbolID)}},
		Vars:    make(map[SymbolID]*VarInfo),
		Funcs:   make(map[SymbolID]*FuncInfo),
		Layouts: make(map[SymbolID]Layout),
	}
}

// NewID returns a fresh symbol ID.
func (s *SymbolTable) NewID() SymbolID {
	s.lastID++
	return s.lastID
}

func (s *SymbolTable) current() *scope {
	return s.scopes[len(s.scopes)-1]
}

// Depth returns the number of active scopes, the global scope included.
func (s *SymbolTable) Depth() int { return len(s.scopes) }

// Cursor returns the next slot to be allocated.
func (s *SymbolTable) Cursor() int { return s.cursor }

// EnterScope opens a new scope at the current cursor and returns its ID.
func (s *SymbolTable) EnterScope() SymbolID {
	id := s.NewID()
	s.enter(id)
	return id
}

func (s *SymbolTable) enter(id SymbolID) {
	s.scopes = append(s.scopes, &scope{id: id, base: s.cursor, names: make(map[string]SymbolID)})
}

// ExitScope closes the innermost scope and records its layout.
func (s *SymbolTable) ExitScope() {
	if len(s.scopes) == 1 {
		panic("ExitScope called at global scope")
	}
	sc := s.current()
	s.Layouts[sc.id] = Layout{Offset: sc.base, Size: s.cursor - sc.base}
	s.cursor = sc.base
	s.scopes = s.scopes[:len(s.scopes)-1]
}

// EnterFunction opens the scope holding fn's parameters and top-level locals.
// The scope shares fn's ID and its base becomes the function's frame base.
func (s *SymbolTable) EnterFunction(fn SymbolID) {
	s.fn = fn
	s.enter(fn)
}

// ExitFunction closes the function scope.
func (s *SymbolTable) ExitFunction() {
	s.ExitScope()
	s.fn = 0
}

// DeclareVar allocates name in the current scope.
func (s *SymbolTable) DeclareVar(name string, t Type, line int) (SymbolID, error) {
	if t == TypeVoid {
		return 0, errs.New(errs.TypeErr, line, "variable %s declared void", name)
	}
	sc := s.current()
	if _, ok := sc.names[name]; ok {
		return 0, errs.New(errs.ReDeclare, line, "%s already declared in this scope", name)
	}
	id := s.NewID()
	sc.names[name] = id
	s.Vars[id] = &VarInfo{ID: id, Name: name, Scope: sc.id, Func: s.fn, Type: t}
	s.Layouts[id] = Layout{Offset: s.cursor, Size: 1}
	s.cursor++
	return id, nil
}

// Fetch resolves name from the innermost active scope outwards.
func (s *SymbolTable) Fetch(name string, line int) (SymbolID, error) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if id, ok := s.scopes[i].names[name]; ok {
			return id, nil
		}
	}
	return 0, errs.New(errs.NoDeclare, line, "%s is not declared", name)
}

// FetchVar resolves name and requires it to be a variable.
func (s *SymbolTable) FetchVar(name string, line int) (*VarInfo, error) {
	id, err := s.Fetch(name, line)
	if err != nil {
		return nil, err
	}
	v, ok := s.Vars[id]
	if !ok {
		return nil, errs.New(errs.TypeErr, line, "%s is a function, not a variable", name)
	}
	return v, nil
}

// FetchFunc resolves name and requires it to be a function.
func (s *SymbolTable) FetchFunc(name string, line int) (*FuncInfo, error) {
	id, err := s.Fetch(name, line)
	if err != nil {
		return nil, err
	}
	f, ok := s.Funcs[id]
	if !ok {
		return nil, errs.New(errs.TypeErr, line, "%s is not a function", name)
	}
	return f, nil
}

// DeclareFn registers a prototype at global scope.
func (s *SymbolTable) DeclareFn(name string, ft FuncType, line int) (SymbolID, error) {
	global := s.scopes[0]
	if _, ok := global.names[name]; ok {
		return 0, errs.New(errs.ReDeclare, line, "%s already declared", name)
	}
	id := s.NewID()
	global.names[name] = id
	s.Funcs[id] = &FuncInfo{ID: id, Name: name, Type: ft}
	return id, nil
}

// ImplFn marks name as defined, declaring it first when no prototype exists.
// The frame base of the function is the current cursor.
func (s *SymbolTable) ImplFn(name string, ft FuncType, line int) (SymbolID, error) {
	global := s.scopes[0]
	id, ok := global.names[name]
	if !ok {
		var err error
		if id, err = s.DeclareFn(name, ft, line); err != nil {
			return 0, err
		}
	}
	f, isFn := s.Funcs[id]
	switch {
	case !isFn:
		return 0, errs.New(errs.ReDeclare, line, "%s already declared as a variable", name)
	case f.HasImpl:
		return 0, errs.New(errs.ReImpl, line, "%s already defined", name)
	case !f.Type.Equal(ft):
		return 0, errs.New(errs.TypeErr, line, "%s defined as %s, declared as %s", name, ft, f.Type)
	}
	f.HasImpl = true
	s.Layouts[id] = Layout{Offset: s.cursor}
	return id, nil
}

// Finalize checks the whole-program rules and rebases every local's offset
// on its function's frame base.
func (s *SymbolTable) Finalize() (SymbolID, error) {
	mainID, ok := s.scopes[0].names["main"]
	if !ok {
		return 0, errs.New(errs.NoMainFunc, 0, "no main function")
	}
	main, isFn := s.Funcs[mainID]
	if !isFn {
		return 0, errs.New(errs.TypeErr, 0, "main is not a function")
	}
	if !main.Type.Equal(FuncType{Ret: TypeInt}) {
		return 0, errs.New(errs.TypeErr, 0, "main must be () -> int, got %s", main.Type)
	}

	// report the first unimplemented function in declaration order
	for id := SymbolID(1); id <= s.lastID; id++ {
		if f, ok := s.Funcs[id]; ok && !f.HasImpl {
			return 0, errs.New(errs.FuncNoImpl, 0, "%s declared but never defined", f.Name)
		}
	}

	for id, v := range s.Vars {
		if v.Func == 0 {
			continue
		}
		l := s.Layouts[id]
		l.Offset -= s.Layouts[v.Func].Offset
		s.Layouts[id] = l
	}
	return mainID, nil
}

// Dump renders the functions and variables of sem with their layouts, in
// declaration order.
func Dump(sem *Semantic) string {
	var b strings.Builder
	last := SymbolID(0)
	for id := range sem.Layouts {
		if id > last {
			last = id
		}
	}
	fmt.Fprintf(&b, "%-5s %-6s %-12s %-16s %s\n", "ID", "KIND", "NAME", "TYPE", "LAYOUT")
	for id := SymbolID(1); id <= last; id++ {
		l, ok := sem.Layouts[id]
		if !ok {
			continue
		}
		if f, ok := sem.Funcs[id]; ok {
			fmt.Fprintf(&b, "%-5d %-6s %-12s %-16s base=%d frame=%d\n", id, "func", f.Name, f.Type, l.Offset, l.Size)
			continue
		}
		if v, ok := sem.Vars[id]; ok {
			where := "global"
			if v.Func != GlobalScope {
				where = "fp"
			}
			fmt.Fprintf(&b, "%-5d %-6s %-12s %-16s %s[%d]\n", id, "var", v.Name, v.Type, where, l.Offset)
			continue
		}
		fmt.Fprintf(&b, "%-5d %-6s %-12s %-16s offset=%d size=%d\n", id, "scope", "", "", l.Offset, l.Size)
	}
	return b.String()
}
