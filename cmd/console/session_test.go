package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mkchaos/rsc/pkg/errs"
)

func TestBalanced(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"int a;", true},
		{"int main() {", false},
		{"int main() {\n  return 0;\n}", true},
		{"int f(int a,", false},
		{"}", true},
		{"int main() {\n  // }", false},
		{"int main() { /* } */", false},
		{"int main() { return 0; } // {", true},
		{"int a; /* {", false},
		{"/* ( */ int a;", true},
	}
	for _, tt := range tests {
		if got := balanced(tt.src); got != tt.want {
			t.Errorf("balanced(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}

func TestSessionRun(t *testing.T) {
	var out bytes.Buffer
	s := newSession(4096, &out)

	steps := []string{
		"int base = 40;",
		"int add(int a, int b) { return a + b; }",
		"int main() {\n  int r = add(base, 2);\n  r;\n  return 0;\n}",
	}
	for _, code := range steps {
		if err := s.add(code); err != nil {
			t.Fatalf("add(%q): %v", code, err)
		}
	}

	if exit, err := s.command(":run"); exit || err != nil {
		t.Fatalf(":run = %v, %v", exit, err)
	}
	if !strings.HasPrefix(out.String(), "42\n") {
		t.Errorf("output = %q, want 42 first", out.String())
	}

	out.Reset()
	if _, err := s.command(":asm"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "main:") || !strings.Contains(out.String(), "call add, 2") {
		t.Errorf("listing missing entries:\n%s", out.String())
	}
}

func TestSessionRejectsBadChunk(t *testing.T) {
	s := newSession(4096, &bytes.Buffer{})
	if err := s.add("int main() { return 0; }"); err != nil {
		t.Fatal(err)
	}
	err := s.add("int broken(")
	if !errs.Is(err, errs.ParseErr) {
		t.Errorf("expected ParseErr, got %v", err)
	}
	if strings.Contains(s.source(), "broken") {
		t.Error("rejected chunk was kept")
	}
}

func TestSessionCommands(t *testing.T) {
	var out bytes.Buffer
	s := newSession(4096, &out)
	s.add("int g;")

	if _, err := s.command(":run"); !errs.Is(err, errs.NoMainFunc) {
		t.Errorf(":run without main: expected NoMainFunc, got %v", err)
	}

	s.command(":reset")
	if s.source() != "" {
		t.Errorf("source after reset = %q", s.source())
	}

	if exit, _ := s.command(":QUIT"); !exit {
		t.Error(":quit should exit")
	}
	out.Reset()
	s.command(":help")
	if !strings.Contains(out.String(), ":run") {
		t.Errorf("unknown command should list commands, got %q", out.String())
	}
}
