package compiler

import (
	"reflect"
	"testing"

	"github.com/pkg/errors"

	"github.com/mkchaos/rsc/pkg/errs"
)

func TestLex(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
	}{
		{
			name:  "Empty",
			input: "",
			expected: []Token{
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Basic Tokens",
			input: "+ - * / % = == != < > <= >= && || ! ; , { } ( )",
			expected: []Token{
				{Type: PLUS, Lexeme: "+", Line: 1},
				{Type: MINUS, Lexeme: "-", Line: 1},
				{Type: STAR, Lexeme: "*", Line: 1},
				{Type: SLASH, Lexeme: "/", Line: 1},
				{Type: PERCENT, Lexeme: "%", Line: 1},
				{Type: ASSIGN, Lexeme: "=", Line: 1},
				{Type: EQUALS, Lexeme: "==", Line: 1},
				{Type: NOT_EQ, Lexeme: "!=", Line: 1},
				{Type: LESS, Lexeme: "<", Line: 1},
				{Type: GREATER, Lexeme: ">", Line: 1},
				{Type: LESS_EQ, Lexeme: "<=", Line: 1},
				{Type: GREATER_EQ, Lexeme: ">=", Line: 1},
				{Type: AND_LOGICAL, Lexeme: "&&", Line: 1},
				{Type: OR_LOGICAL, Lexeme: "||", Line: 1},
				{Type: NOT, Lexeme: "!", Line: 1},
				{Type: SEMICOLON, Lexeme: ";", Line: 1},
				{Type: COMMA, Lexeme: ",", Line: 1},
				{Type: LBRACE, Lexeme: "{", Line: 1},
				{Type: RBRACE, Lexeme: "}", Line: 1},
				{Type: LPAREN, Lexeme: "(", Line: 1},
				{Type: RPAREN, Lexeme: ")", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Keywords and Identifiers",
			input: "int void if else while return break continue variableName _under_score x1",
			expected: []Token{
				{Type: INT, Lexeme: "int", Line: 1},
				{Type: VOID, Lexeme: "void", Line: 1},
				{Type: IF, Lexeme: "if", Line: 1},
				{Type: ELSE, Lexeme: "else", Line: 1},
				{Type: WHILE, Lexeme: "while", Line: 1},
				{Type: RETURN, Lexeme: "return", Line: 1},
				{Type: BREAK, Lexeme: "break", Line: 1},
				{Type: CONTINUE, Lexeme: "continue", Line: 1},
				{Type: IDENTIFIER, Lexeme: "variableName", Line: 1},
				{Type: IDENTIFIER, Lexeme: "_under_score", Line: 1},
				{Type: IDENTIFIER, Lexeme: "x1", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Integers",
			input: "0 42 4294967296",
			expected: []Token{
				{Type: INTEGER, Lexeme: "0", Line: 1},
				{Type: INTEGER, Lexeme: "42", Line: 1},
				{Type: INTEGER, Lexeme: "4294967296", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
		{
			name:  "Comments and Lines",
			input: "a // one\n/* two\nthree */ b\n\nc",
			expected: []Token{
				{Type: IDENTIFIER, Lexeme: "a", Line: 1},
				{Type: IDENTIFIER, Lexeme: "b", Line: 3},
				{Type: IDENTIFIER, Lexeme: "c", Line: 5},
				{Type: EOF, Lexeme: "", Line: 5},
			},
		},
		{
			name:  "No Spaces",
			input: "a=b+1;",
			expected: []Token{
				{Type: IDENTIFIER, Lexeme: "a", Line: 1},
				{Type: ASSIGN, Lexeme: "=", Line: 1},
				{Type: IDENTIFIER, Lexeme: "b", Line: 1},
				{Type: PLUS, Lexeme: "+", Line: 1},
				{Type: INTEGER, Lexeme: "1", Line: 1},
				{Type: SEMICOLON, Lexeme: ";", Line: 1},
				{Type: EOF, Lexeme: "", Line: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Lex(tt.input)
			if err != nil {
				t.Fatalf("Lex() error = %v", err)
			}
			if !reflect.DeepEqual(tokens, tt.expected) {
				t.Errorf("Lex() =\n%v\nwant\n%v", tokens, tt.expected)
			}
		})
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
	}{
		{"single ampersand", "a & b", 1},
		{"single pipe", "a | b", 1},
		{"unknown char", "int x = 1;\nx @ 2;", 2},
		{"malformed number", "int x = 12ab;", 1},
		{"unterminated comment", "int x;\n/* never closed", 2},
		{"non-ascii", "int é;", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Lex(tt.input)
			if !errs.Is(err, errs.LexErr) {
				t.Fatalf("expected LexErr, got %v", err)
			}
			var e *errs.Error
			if !errors.As(err, &e) || e.Line != tt.wantLine {
				t.Errorf("error line = %v, want %d", err, tt.wantLine)
			}
		})
	}
}
