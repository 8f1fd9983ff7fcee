package compiler

import (
	"reflect"
	"testing"

	"github.com/mkchaos/rsc/pkg/errs"
	"github.com/mkchaos/rsc/pkg/vm"
)

const testCapacity = 4096

// runCode compiles and executes src, failing the test on any error.
func runCode(t *testing.T, src string) []vm.Cell {
	t.Helper()
	out, err := Run(src, testCapacity)
	if err != nil {
		t.Fatalf("Run failed: %v\nsource:\n%s", err, src)
	}
	return out
}

func cells(vs ...int) []vm.Cell {
	out := make([]vm.Cell, len(vs))
	for i, v := range vs {
		out[i] = vm.Cell(v)
	}
	return out
}

func TestScenarios(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		expected []vm.Cell
	}{
		{
			name:     "round trip",
			src:      "int main() { int a = 1; int b = 2; int c = a + b + 3; a; b; c; return 0; }",
			expected: cells(1, 2, 6),
		},
		{
			name:     "basic block",
			src:      "int main() { { int a = 0; a; a = a + 23; a; } return 0; }",
			expected: cells(0, 23),
		},
		{
			name: "while countdown",
			src: `int main() {
	int i = 10;
	while (i > 0) {
		i;
		i = i - 3;
	}
	return 0;
}`,
			expected: cells(10, 7, 4, 1),
		},
		{
			name: "if chain",
			src: `int main() {
	int i = 10;
	while (1) {
		if (i < 0) {
			break;
		} else if (i % 2 == 0) {
			i;
		}
		i = i - 1;
	}
	return 0;
}`,
			expected: cells(10, 8, 6, 4, 2, 0),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runCode(t, tt.src); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("output = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCompileErrorsPassThrough(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want errs.Kind
	}{
		{"lex", "int main() { return 1 $ 2; }", errs.LexErr},
		{"preprocess", "#include \"x.c\"\nint main() { return 0; }", errs.ParseErr},
		{"parse", "int main() { return 1 }", errs.ParseErr},
		{"analyze", "int main() { return x; }", errs.NoDeclare},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := Compile(tt.src)
			if prog != nil {
				t.Error("expected no program on error")
			}
			if got := errs.KindOf(err); got != tt.want {
				t.Errorf("kind = %s (%v), want %s", got, err, tt.want)
			}
		})
	}
}

func TestBuildArtifacts(t *testing.T) {
	a, err := Build("#define N 3\nint main() { int x = N; x; return 0; }")
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Tokens) == 0 || a.Tokens[len(a.Tokens)-1].Type != EOF {
		t.Error("tokens missing or not EOF-terminated")
	}
	if len(a.AST) != 1 || a.Semantic == nil || a.Program == nil {
		t.Fatalf("incomplete artifacts: %+v", a)
	}
	if a.Semantic.Main == 0 {
		t.Error("main not resolved")
	}

	partial, err := Build("int main() { return y; }")
	if err == nil {
		t.Fatal("expected error")
	}
	if partial.AST == nil || partial.Semantic != nil || partial.Program != nil {
		t.Errorf("partial artifacts should stop at the failing phase: %+v", partial)
	}
}

func TestRuntimeErrors(t *testing.T) {
	t.Run("DivideZero", func(t *testing.T) {
		_, err := Run("int main() { int z = 0; int x = 1 / z; return x; }", testCapacity)
		if !errs.Is(err, errs.DivideZero) {
			t.Errorf("expected DivideZero, got %v", err)
		}
	})
	t.Run("ModuloZero", func(t *testing.T) {
		_, err := Run("int main() { int z = 0; z = 7 % z; return z; }", testCapacity)
		if !errs.Is(err, errs.DivideZero) {
			t.Errorf("expected DivideZero, got %v", err)
		}
	})
	t.Run("StackOverFlow", func(t *testing.T) {
		_, err := Run("int f(int n) { return f(n + 1); }\nint main() { return f(0); }", testCapacity)
		if !errs.Is(err, errs.StackOverFlow) {
			t.Errorf("expected StackOverFlow, got %v", err)
		}
	})
	t.Run("OutputBeforeFailure", func(t *testing.T) {
		prog, err := Compile("int main() { int a = 5; a; a = a / 0; return 0; }")
		if err != nil {
			t.Fatal(err)
		}
		m, err := vm.New(testCapacity, prog)
		if err != nil {
			t.Fatal(err)
		}
		if err := m.Run(); !errs.Is(err, errs.DivideZero) {
			t.Fatalf("expected DivideZero, got %v", err)
		}
		if got := m.Printed(); !reflect.DeepEqual(got, cells(5)) {
			t.Errorf("printed before failure = %v, want [5]", got)
		}
	})
	t.Run("CapacityTooSmall", func(t *testing.T) {
		_, err := Run("int a; int b;\nint main() { return 0; }", vm.Headroom+1)
		if err == nil {
			t.Error("expected capacity error")
		}
	})
}
