package vm

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/mkchaos/rsc/pkg/errs"
)

// Op is an arithmetic, comparison or logical operator evaluated by the
// machine. The same table is used by the compiler to fold constants.
type Op uint8

const (
	OpNeg Op = iota // unary -
	OpNot           // unary !

	OpMul
	OpDiv
	OpMod
	OpAdd
	OpSub
	OpGe
	OpGt
	OpLe
	OpLt
	OpEq
	OpNe
	OpAnd
	OpOr
)

var opSymbols = [...]string{
	OpNeg: "neg",
	OpNot: "!",
	OpMul: "*",
	OpDiv: "/",
	OpMod: "%",
	OpAdd: "+",
	OpSub: "-",
	OpGe:  ">=",
	OpGt:  ">",
	OpLe:  "<=",
	OpLt:  "<",
	OpEq:  "==",
	OpNe:  "!=",
	OpAnd: "&&",
	OpOr:  "||",
}

func (op Op) String() string {
	if int(op) < len(opSymbols) {
		return opSymbols[op]
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// Arity returns the number of operands op consumes.
func (op Op) Arity() int {
	if op == OpNeg || op == OpNot {
		return 1
	}
	return 2
}

// LookupOp maps a listing symbol back to its operator.
func LookupOp(sym string) (Op, bool) {
	for i, s := range opSymbols {
		if s == sym {
			return Op(i), true
		}
	}
	return 0, false
}

func bool2cell(b bool) Cell {
	if b {
		return 1
	}
	return 0
}

// Eval1 applies a unary operator.
func Eval1(op Op, a Cell) (Cell, error) {
	switch op {
	case OpNeg:
		return -a, nil
	case OpNot:
		return bool2cell(a == 0), nil
	}
	return 0, errors.Errorf("vm: %s is not a unary operator", op)
}

// Eval2 applies a binary operator to a and b (a is the left operand).
// Division and modulo by zero fail with errs.DivideZero.
func Eval2(op Op, a, b Cell) (Cell, error) {
	switch op {
	case OpMul:
		return a * b, nil
	case OpDiv:
		if b == 0 {
			return 0, errs.New(errs.DivideZero, 0, "%d / 0", a)
		}
		return a / b, nil
	case OpMod:
		if b == 0 {
			return 0, errs.New(errs.DivideZero, 0, "%d %% 0", a)
		}
		return a % b, nil
	case OpAdd:
		return a + b, nil
	case OpSub:
		return a - b, nil
	case OpGe:
		return bool2cell(a >= b), nil
	case OpGt:
		return bool2cell(a > b), nil
	case OpLe:
		return bool2cell(a <= b), nil
	case OpLt:
		return bool2cell(a < b), nil
	case OpEq:
		return bool2cell(a == b), nil
	case OpNe:
		return bool2cell(a != b), nil
	case OpAnd:
		return bool2cell(a != 0 && b != 0), nil
	case OpOr:
		return bool2cell(a != 0 || b != 0), nil
	}
	return 0, errors.Errorf("vm: %s is not a binary operator", op)
}
