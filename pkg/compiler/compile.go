package compiler

import (
	"github.com/mkchaos/rsc/pkg/vm"
)

// Artifacts holds the output of every phase for one compilation.
type Artifacts struct {
	Source   string // after preprocessing
	Tokens   []Token
	AST      []Stmt
	Semantic *Semantic
	Program  *vm.Program
}

// Build runs the whole pipeline and keeps each intermediate result. On error
// the artifacts of the phases that succeeded are returned alongside it.
func Build(src string) (*Artifacts, error) {
	a := &Artifacts{}
	var err error

	if a.Source, err = Preprocess(src); err != nil {
		return a, err
	}
	if a.Tokens, err = Lex(a.Source); err != nil {
		return a, err
	}
	if a.AST, err = Parse(a.Tokens, a.Source); err != nil {
		return a, err
	}
	if a.Semantic, err = Analyze(a.AST); err != nil {
		return a, err
	}
	if a.Program, err = Generate(a.AST, a.Semantic); err != nil {
		return a, err
	}
	return a, nil
}

// Compile turns source text into a linked program.
func Compile(src string) (*vm.Program, error) {
	a, err := Build(src)
	if err != nil {
		return nil, err
	}
	return a.Program, nil
}

// Run compiles src and executes it on a machine of the given capacity,
// returning the printed values.
func Run(src string, capacity int, opts ...vm.Option) ([]vm.Cell, error) {
	prog, err := Compile(src)
	if err != nil {
		return nil, err
	}
	m, err := vm.New(capacity, prog, opts...)
	if err != nil {
		return nil, err
	}
	return m.Execute()
}
