// Package errs defines the error taxonomy shared by every phase of the
// pipeline: lexing, parsing, semantic analysis, code generation and execution.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies the category of a pipeline failure.
type Kind int

const (
	Unknown Kind = iota

	// Front end
	LexErr
	ParseErr

	// Semantic analysis
	ReDeclare
	NoDeclare
	ReImpl
	FuncNoImpl
	NoMainFunc
	TypeErr
	FormatErr
	GlobalNeedConst

	// Runtime
	StackOverFlow
	DivideZero
)

var kindNames = [...]string{
	Unknown:         "Unknown",
	LexErr:          "LexErr",
	ParseErr:        "ParseErr",
	ReDeclare:       "ReDeclare",
	NoDeclare:       "NoDeclare",
	ReImpl:          "ReImpl",
	FuncNoImpl:      "FuncNoImpl",
	NoMainFunc:      "NoMainFunc",
	TypeErr:         "TypeErr",
	FormatErr:       "FormatErr",
	GlobalNeedConst: "GlobalNeedConst",
	StackOverFlow:   "StackOverFlow",
	DivideZero:      "DivideZero",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error makes a bare Kind usable as a sentinel with errors.Is.
func (k Kind) Error() string { return k.String() }

// Error is a failure raised by one phase. Line is 0 when no source position
// applies (finalization checks, runtime faults).
type Error struct {
	Kind Kind
	Line int
	Msg  string
}

func (e *Error) Error() string {
	switch {
	case e.Line > 0 && e.Msg != "":
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Kind, e.Msg)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, e.Kind)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Kind }

// New builds a positioned error of the given kind.
func New(kind Kind, line int, format string, args ...any) error {
	return &Error{Kind: kind, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// KindOf reports the Kind carried by err, looking through wrapping done with
// github.com/pkg/errors or fmt.Errorf("%w"). It returns Unknown for foreign
// errors and for nil.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(errors.Cause(err), &k) {
		return k
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
