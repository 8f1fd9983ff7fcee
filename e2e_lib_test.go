package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/mkchaos/rsc/pkg/asm"
	"github.com/mkchaos/rsc/pkg/vm"
)

var testPrograms = []struct {
	file     string
	expected []vm.Cell
}{
	{"basic.c", []vm.Cell{0, 23}},
	{"while.c", []vm.Cell{10, 7, 4, 1}},
	{"if.c", []vm.Cell{10, 8, 6, 4, 2, 0}},
	{"fib.c", []vm.Cell{0, 1, 1, 2, 3, 5, 8, 13, 21, 34, 55, 89}},
}

func TestPrograms(t *testing.T) {
	for _, tt := range testPrograms {
		t.Run(tt.file, func(t *testing.T) {
			prog, listing, err := build(filepath.Join("testdata", tt.file))
			if err != nil {
				t.Fatalf("build failed: %v", err)
			}
			m, err := vm.New(4096, prog)
			if err != nil {
				t.Fatal(err)
			}
			got, err := m.Execute()
			if err != nil {
				t.Fatalf("Execute failed: %v\nlisting:\n%s", err, listing)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("output = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestListingRoundTrip writes each listing to disk and runs it back through
// the assembler path of the CLI.
func TestListingRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, tt := range testPrograms {
		t.Run(tt.file, func(t *testing.T) {
			prog, listing, err := build(filepath.Join("testdata", tt.file))
			if err != nil {
				t.Fatal(err)
			}
			path := filepath.Join(dir, strings.TrimSuffix(tt.file, ".c")+".rsa")
			if err := os.WriteFile(path, []byte(listing), 0o644); err != nil {
				t.Fatal(err)
			}

			again, text, err := build(path)
			if err != nil {
				t.Fatalf("assembling listing failed: %v\n%s", err, listing)
			}
			if text != listing {
				t.Error("listing input should be returned unchanged")
			}
			if !reflect.DeepEqual(prog.Codes, again.Codes) || !reflect.DeepEqual(prog.Entry, again.Entry) {
				t.Errorf("round trip changed the program:\n%s", asm.Disassemble(again))
			}

			var out bytes.Buffer
			if err := run(again, 4096, &out, nil); err != nil {
				t.Fatal(err)
			}
			var want strings.Builder
			for _, v := range tt.expected {
				fmt.Fprintln(&want, v)
			}
			if out.String() != want.String() {
				t.Errorf("printed %q, want %q", out.String(), want.String())
			}
		})
	}
}

func TestBuildErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.c")
	if err := os.WriteFile(bad, []byte("int main() { return x; }"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := build(bad); err == nil {
		t.Error("expected analysis error")
	}
	if _, _, err := build(filepath.Join(dir, "missing.c")); err == nil {
		t.Error("expected read error")
	}
}

func TestRunTrace(t *testing.T) {
	prog, _, err := build(filepath.Join("testdata", "basic.c"))
	if err != nil {
		t.Fatal(err)
	}
	var out, trace bytes.Buffer
	if err := run(prog, 4096, &out, &trace); err != nil {
		t.Fatal(err)
	}
	if out.String() != "0\n23\n" {
		t.Errorf("output = %q", out.String())
	}
	if lines := strings.Count(trace.String(), "\n"); lines != len(prog.Codes) {
		t.Errorf("trace has %d lines, want one per executed instruction (%d)", lines, len(prog.Codes))
	}
}
