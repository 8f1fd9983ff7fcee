package compiler

import (
	"strings"
	"testing"

	"github.com/mkchaos/rsc/pkg/errs"
)

func parseSource(t *testing.T, src string) []Stmt {
	t.Helper()
	tokens, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	stmts, err := Parse(tokens, src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return stmts
}

func mainBody(t *testing.T, body string) []Stmt {
	t.Helper()
	stmts := parseSource(t, "int main() {\n"+body+"\n}")
	fn, ok := stmts[len(stmts)-1].(*FunctionDecl)
	if !ok || fn.Body == nil {
		t.Fatalf("expected a function definition, got %v", stmts[len(stmts)-1])
	}
	return fn.Body.Stmts
}

// TestParseExpressions checks precedence, associativity and postfix order.
func TestParseExpressions(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3", "[1 2 3 * +]"},
		{"(1 + 2) * 3", "[1 2 + 3 *]"},
		{"10 - 3 - 2", "[10 3 - 2 -]"},
		{"8 / 4 % 3", "[8 4 / 3 %]"},
		{"-a + !b", "[a neg b ! +]"},
		{"- - 5", "[5 neg neg]"},
		{"a < b == c", "[a b < c ==]"},
		{"a || b && c", "[a b c && ||]"},
		{"a >= 1 && b != 2", "[a 1 >= b 2 != &&]"},
		{"f(1, x + 1) % 4", "[f([1], [x 1 +]) 4 %]"},
		{"g()", "[g()]"},
		{"4294967297", "[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			stmts := parseSource(t, "int r = "+tt.input+";")
			decl := stmts[0].(*VariableDecl)
			if got := decl.Init.String(); got != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestParseStatements(t *testing.T) {
	body := mainBody(t, `
	int a = 1;
	int b;
	a = a + 1;
	a;
	f(a);
	;
	return a;
	return;`)

	want := []string{
		"VariableDecl(int a = [1])",
		"VariableDecl(int b)",
		"Assignment(a = [a 1 +])",
		"PrintStmt(a)",
		"ExprStmt([f([a])])",
		"ReturnStmt([a])",
		"ReturnStmt()",
	}
	if len(body) != len(want) {
		t.Fatalf("got %d statements, want %d: %v", len(body), len(want), body)
	}
	for i, s := range body {
		if s.String() != want[i] {
			t.Errorf("stmt %d: got %s, want %s", i, s, want[i])
		}
	}
}

func TestParseControlFlow(t *testing.T) {
	t.Run("IfElse", func(t *testing.T) {
		body := mainBody(t, "if (a) a; else { b; }")
		stmt, ok := body[0].(*IfStmt)
		if !ok {
			t.Fatalf("expected IfStmt, got %T", body[0])
		}
		if _, ok := stmt.Body.(*PrintStmt); !ok {
			t.Errorf("then: expected PrintStmt, got %T", stmt.Body)
		}
		if _, ok := stmt.ElseBody.(*BlockStmt); !ok {
			t.Errorf("else: expected BlockStmt, got %T", stmt.ElseBody)
		}
		if stmt.ID == stmt.ThenID {
			t.Errorf("if and then regions share ID %d", stmt.ID)
		}
	})

	t.Run("ElseIfChain", func(t *testing.T) {
		body := mainBody(t, "if (a) a; else if (b) b; else c;")
		outer := body[0].(*IfStmt)
		inner, ok := outer.ElseBody.(*IfStmt)
		if !ok {
			t.Fatalf("expected nested IfStmt, got %T", outer.ElseBody)
		}
		if inner.ElseBody == nil {
			t.Error("inner else lost")
		}
	})

	t.Run("WhileEmptyBody", func(t *testing.T) {
		body := mainBody(t, "while (1);")
		loop := body[0].(*WhileStmt)
		block, ok := loop.Body.(*BlockStmt)
		if !ok || len(block.Stmts) != 0 {
			t.Errorf("expected empty block body, got %v", loop.Body)
		}
	})

	t.Run("BreakContinue", func(t *testing.T) {
		body := mainBody(t, "while (1) { break; continue; }")
		block := body[0].(*WhileStmt).Body.(*BlockStmt)
		if _, ok := block.Stmts[0].(*BreakStmt); !ok {
			t.Errorf("expected BreakStmt, got %T", block.Stmts[0])
		}
		if _, ok := block.Stmts[1].(*ContinueStmt); !ok {
			t.Errorf("expected ContinueStmt, got %T", block.Stmts[1])
		}
	})

	t.Run("NestedBlocks", func(t *testing.T) {
		body := mainBody(t, "{ int a; { int a; } }")
		outer := body[0].(*BlockStmt)
		if len(outer.Stmts) != 2 {
			t.Fatalf("expected 2 items, got %d", len(outer.Stmts))
		}
		if _, ok := outer.Stmts[1].(*BlockStmt); !ok {
			t.Errorf("expected inner BlockStmt, got %T", outer.Stmts[1])
		}
	})
}

func TestParseFunctions(t *testing.T) {
	stmts := parseSource(t, `
int add(int, int);
void g(void);
int add(int a, int b) { return a + b; }
int main() { return add(1, 2); }
`)
	if len(stmts) != 4 {
		t.Fatalf("expected 4 declarations, got %d", len(stmts))
	}

	proto := stmts[0].(*FunctionDecl)
	if proto.Body != nil || len(proto.Params) != 2 || proto.Params[0].Name != "" {
		t.Errorf("bad prototype: %v", proto)
	}
	if got := proto.Type().String(); got != "(int, int) -> int" {
		t.Errorf("prototype type = %s", got)
	}

	g := stmts[1].(*FunctionDecl)
	if len(g.Params) != 0 || g.Ret != TypeVoid {
		t.Errorf("bad void prototype: %v", g)
	}

	def := stmts[2].(*FunctionDecl)
	if def.Body == nil || def.Params[0].Name != "a" || def.Params[1].Name != "b" {
		t.Errorf("bad definition: %v", def)
	}
	if !def.Type().Equal(proto.Type()) {
		t.Errorf("definition type %s differs from prototype %s", def.Type(), proto.Type())
	}
}

func TestParseNodeIDs(t *testing.T) {
	stmts := parseSource(t, "int a;\nint main() { a; }")
	decl := stmts[0].(*VariableDecl)
	fn := stmts[1].(*FunctionDecl)
	ref := fn.Body.Stmts[0].(*PrintStmt).Var

	got := []NodeID{decl.ID, fn.ID, fn.Body.ID, ref.ID}
	for i, id := range got {
		if id != NodeID(i+1) {
			t.Errorf("IDs = %v, want 1..4 in source order", got)
			break
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"statement at top level", "x = 1;"},
		{"missing semicolon", "int main() { int x = 1 }"},
		{"declaration as if body", "int main() { if (1) int x; }"},
		{"declaration as while body", "int main() { while (1) int x; }"},
		{"unbalanced paren", "int main() { return (1; }"},
		{"dangling operator", "int main() { 1 + ; }"},
		{"bad parameter list", "int main( { }"},
		{"untyped parameter", "int f(x) { }"},
		{"unterminated body", "int main() {"},
		{"number as name", "int 5;"},
		{"missing global semicolon", "int a = 1 int b;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Lex(tt.input)
			if err != nil {
				t.Fatalf("Lex failed: %v", err)
			}
			_, err = Parse(tokens, tt.input)
			if !errs.Is(err, errs.ParseErr) {
				t.Errorf("expected ParseErr, got %v", err)
			}
		})
	}
}

func TestParseErrorSnippet(t *testing.T) {
	src := "int main() {\n  int x = 1\n}"
	tokens, _ := Lex(src)
	_, err := Parse(tokens, src)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "|> }") {
		t.Errorf("error should quote the offending line: %v", err)
	}
}
