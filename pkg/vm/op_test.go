package vm

import (
	"testing"

	"github.com/mkchaos/rsc/pkg/errs"
)

func TestOpSymbols(t *testing.T) {
	for op := OpNeg; op <= OpOr; op++ {
		got, ok := LookupOp(op.String())
		if !ok || got != op {
			t.Errorf("LookupOp(%q) = %v, %v; want %v", op.String(), got, ok, op)
		}
	}
	if _, ok := LookupOp("<<"); ok {
		t.Error("LookupOp(\"<<\") should fail")
	}
}

func TestEval2(t *testing.T) {
	tests := []struct {
		op   Op
		a, b Cell
		want Cell
	}{
		{OpMul, 6, 7, 42},
		{OpDiv, 7, 2, 3},
		{OpMod, -7, 2, -1},
		{OpAdd, 2147483647, 1, -2147483648},
		{OpSub, 1, 2, -1},
		{OpGe, 2, 2, 1},
		{OpGt, 2, 2, 0},
		{OpLe, 1, 2, 1},
		{OpLt, 2, 1, 0},
		{OpEq, 3, 3, 1},
		{OpNe, 3, 3, 0},
		{OpAnd, 2, 3, 1},
		{OpOr, 0, 0, 0},
	}
	for _, tt := range tests {
		got, err := Eval2(tt.op, tt.a, tt.b)
		if err != nil {
			t.Errorf("Eval2(%s, %d, %d): %v", tt.op, tt.a, tt.b, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Eval2(%s, %d, %d) = %d, want %d", tt.op, tt.a, tt.b, got, tt.want)
		}
	}
}

func TestEvalErrors(t *testing.T) {
	if _, err := Eval2(OpDiv, 1, 0); !errs.Is(err, errs.DivideZero) {
		t.Errorf("div by zero: got %v", err)
	}
	if _, err := Eval2(OpMod, 1, 0); !errs.Is(err, errs.DivideZero) {
		t.Errorf("mod by zero: got %v", err)
	}
	if _, err := Eval1(OpAdd, 1); err == nil {
		t.Error("Eval1 accepted a binary operator")
	}
	if _, err := Eval2(OpNot, 1, 2); err == nil {
		t.Error("Eval2 accepted a unary operator")
	}
}
