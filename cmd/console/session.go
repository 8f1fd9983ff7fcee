package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mkchaos/rsc/pkg/asm"
	"github.com/mkchaos/rsc/pkg/compiler"
	"github.com/mkchaos/rsc/pkg/vm"
)

// session accumulates top-level declarations typed at the prompt. Every
// accepted chunk keeps the whole buffer parseable.
type session struct {
	chunks   []string
	capacity int
	out      io.Writer
}

func newSession(capacity int, out io.Writer) *session {
	return &session{capacity: capacity, out: out}
}

func (s *session) source() string {
	return strings.Join(s.chunks, "\n")
}

// add appends code to the buffer if the result still lexes and parses.
func (s *session) add(code string) error {
	src := strings.Join(append(s.chunks[:len(s.chunks):len(s.chunks)], code), "\n")
	pre, err := compiler.Preprocess(src)
	if err != nil {
		return err
	}
	tokens, err := compiler.Lex(pre)
	if err != nil {
		return err
	}
	if _, err := compiler.Parse(tokens, pre); err != nil {
		return err
	}
	s.chunks = append(s.chunks, code)
	return nil
}

func (s *session) reset() {
	s.chunks = nil
}

func (s *session) compile() (*vm.Program, error) {
	return compiler.Compile(s.source())
}

// run compiles the buffer and executes it, writing printed values to out.
func (s *session) run() error {
	prog, err := s.compile()
	if err != nil {
		return err
	}
	m, err := vm.New(s.capacity, prog, vm.Output(s.out))
	if err != nil {
		return err
	}
	if err := m.Run(); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "(%d instructions)\n", m.InstructionCount())
	return nil
}

func (s *session) listing() (string, error) {
	prog, err := s.compile()
	if err != nil {
		return "", err
	}
	return asm.Disassemble(prog), nil
}

// command handles a ":" command line. It returns exit=true for :quit.
func (s *session) command(line string) (exit bool, err error) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case ":quit", ":q":
		return true, nil
	case ":run":
		return false, s.run()
	case ":asm":
		text, err := s.listing()
		if err != nil {
			return false, err
		}
		fmt.Fprint(s.out, text)
	case ":src":
		fmt.Fprintln(s.out, s.source())
	case ":reset":
		s.reset()
		fmt.Fprintln(s.out, "buffer cleared")
	default:
		fmt.Fprintln(s.out, "commands: :run :asm :src :reset :quit")
	}
	return false, nil
}

// balanced reports whether every brace and parenthesis opened in src has
// been closed. Comment text is skipped, and an unterminated block comment
// counts as open.
func balanced(src string) bool {
	depth := 0
	for i := 0; i < len(src); i++ {
		switch {
		case strings.HasPrefix(src[i:], "//"):
			nl := strings.IndexByte(src[i:], '\n')
			if nl < 0 {
				return depth <= 0
			}
			i += nl
		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return false
			}
			i += end + 3
		case src[i] == '{' || src[i] == '(':
			depth++
		case src[i] == '}' || src[i] == ')':
			depth--
		}
	}
	return depth <= 0
}
