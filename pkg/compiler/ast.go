package compiler

import (
	"fmt"
	"strings"

	"github.com/mkchaos/rsc/pkg/vm"
)

// NodeID identifies an AST node that the analyzer resolves. IDs are assigned
// by the parser in source order, starting at 1.
type NodeID int

// Type is the declared type of a variable or a function result.
type Type int

const (
	TypeVoid Type = iota
	TypeInt
)

func (t Type) String() string {
	if t == TypeInt {
		return "int"
	}
	return "void"
}

// FuncType is a signature: ordered parameter types plus the result type.
type FuncType struct {
	Params []Type
	Ret    Type
}

func (f FuncType) Equal(o FuncType) bool {
	if f.Ret != o.Ret || len(f.Params) != len(o.Params) {
		return false
	}
	for i := range f.Params {
		if f.Params[i] != o.Params[i] {
			return false
		}
	}
	return true
}

func (f FuncType) String() string {
	ps := make([]string, len(f.Params))
	for i, p := range f.Params {
		ps[i] = p.String()
	}
	return fmt.Sprintf("(%s) -> %s", strings.Join(ps, ", "), f.Ret)
}

//  Expression items

// Item is one element of a postfix expression: an operand or an operator.
type Item interface {
	itemNode()
	String() string
}

// Literal is a compile-time integer constant.
//
//	int x = 10;
//	        ^^  Literal{Value: 10}
type Literal struct {
	Value vm.Cell
}

func (*Literal) itemNode()        {}
func (l *Literal) String() string { return fmt.Sprintf("%d", l.Value) }

// VarRef is a read of a named variable.
type VarRef struct {
	ID   NodeID
	Name string
	Line int
}

func (*VarRef) itemNode()        {}
func (v *VarRef) String() string { return v.Name }

// CallExpr represents name(args).
type CallExpr struct {
	ID   NodeID
	Name string
	Args []*Expr
	Line int
}

func (*CallExpr) itemNode() {}
func (c *CallExpr) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(args, ", "))
}

// OpItem applies an operator to the operands before it.
type OpItem struct {
	Op vm.Op
}

func (*OpItem) itemNode()        {}
func (o *OpItem) String() string { return o.Op.String() }

// Expr is a flattened expression in postfix order.
//
//	a + b * 2   =>   [a b 2 * +]
type Expr struct {
	Items []Item
	Line  int
}

func (e *Expr) String() string {
	parts := make([]string, len(e.Items))
	for i, it := range e.Items {
		parts[i] = it.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// BareName returns the variable reference when the expression is a single
// name and nothing else.
func (e *Expr) BareName() (*VarRef, bool) {
	if len(e.Items) != 1 {
		return nil, false
	}
	v, ok := e.Items[0].(*VarRef)
	return v, ok
}

//  Statement nodes

// Stmt is implemented by every statement and top-level declaration.
type Stmt interface {
	stmtNode()
	String() string
}

// VariableDecl represents  int name = expr;  at global or block scope.
type VariableDecl struct {
	ID   NodeID
	Type Type
	Name string
	Init *Expr // may be nil
	Line int
}

func (*VariableDecl) stmtNode() {}
func (d *VariableDecl) String() string {
	if d.Init == nil {
		return fmt.Sprintf("VariableDecl(%s %s)", d.Type, d.Name)
	}
	return fmt.Sprintf("VariableDecl(%s %s = %s)", d.Type, d.Name, d.Init)
}

// Assignment represents  name = expr;
type Assignment struct {
	Target *VarRef
	Value  *Expr
	Line   int
}

func (*Assignment) stmtNode() {}
func (a *Assignment) String() string {
	return fmt.Sprintf("Assignment(%s = %s)", a.Target, a.Value)
}

// PrintStmt is a statement made of a single variable name. It prints the
// variable's value.
type PrintStmt struct {
	Var *VarRef
}

func (*PrintStmt) stmtNode()        {}
func (p *PrintStmt) String() string { return fmt.Sprintf("PrintStmt(%s)", p.Var) }

// ExprStmt represents an expression evaluated for its side effects.
type ExprStmt struct {
	Expr *Expr
}

func (*ExprStmt) stmtNode()        {}
func (e *ExprStmt) String() string { return fmt.Sprintf("ExprStmt(%s)", e.Expr) }

// ReturnStmt represents  return expr;
type ReturnStmt struct {
	Expr *Expr // nil for a bare return
	Line int
}

func (*ReturnStmt) stmtNode() {}
func (r *ReturnStmt) String() string {
	if r.Expr == nil {
		return "ReturnStmt()"
	}
	return fmt.Sprintf("ReturnStmt(%s)", r.Expr)
}

// BlockStmt represents { item ... }. It opens a scope.
type BlockStmt struct {
	ID    NodeID
	Stmts []Stmt
	Line  int
}

func (*BlockStmt) stmtNode() {}
func (b *BlockStmt) String() string {
	return fmt.Sprintf("BlockStmt(len=%d)", len(b.Stmts))
}

// IfStmt represents if (cond) body [else elseBody]. ThenID names the region
// holding the condition check and the then branch; ID names the whole statement.
type IfStmt struct {
	ID        NodeID
	ThenID    NodeID
	Condition *Expr
	Body      Stmt
	ElseBody  Stmt // may be nil
	Line      int
}

func (*IfStmt) stmtNode() {}
func (i *IfStmt) String() string {
	if i.ElseBody != nil {
		return fmt.Sprintf("IfStmt(if %s then %s else %s)", i.Condition, i.Body, i.ElseBody)
	}
	return fmt.Sprintf("IfStmt(if %s then %s)", i.Condition, i.Body)
}

// WhileStmt represents while (cond) body
type WhileStmt struct {
	ID        NodeID
	Condition *Expr
	Body      Stmt
	Line      int
}

func (*WhileStmt) stmtNode() {}
func (w *WhileStmt) String() string {
	return fmt.Sprintf("WhileStmt(while %s do %s)", w.Condition, w.Body)
}

// BreakStmt represents break;
type BreakStmt struct {
	ID   NodeID
	Line int
}

func (*BreakStmt) stmtNode()        {}
func (s *BreakStmt) String() string { return "BreakStmt" }

// ContinueStmt represents continue;
type ContinueStmt struct {
	ID   NodeID
	Line int
}

func (*ContinueStmt) stmtNode()        {}
func (s *ContinueStmt) String() string { return "ContinueStmt" }

// Param is one entry of a parameter list. Name is empty for an unnamed
// parameter, which only a prototype may have.
type Param struct {
	ID   NodeID
	Type Type
	Name string
}

// FunctionDecl represents a prototype (Body == nil) or a definition.
type FunctionDecl struct {
	ID     NodeID
	Name   string
	Params []Param
	Ret    Type
	Body   *BlockStmt
	Line   int
}

func (f *FunctionDecl) Type() FuncType {
	ft := FuncType{Params: make([]Type, len(f.Params)), Ret: f.Ret}
	for i, p := range f.Params {
		ft.Params[i] = p.Type
	}
	return ft
}

func (*FunctionDecl) stmtNode() {}
func (f *FunctionDecl) String() string {
	if f.Body == nil {
		return fmt.Sprintf("FunctionDecl(%s %s, proto)", f.Name, f.Type())
	}
	return fmt.Sprintf("FunctionDecl(%s %s, body=%s)", f.Name, f.Type(), f.Body)
}
