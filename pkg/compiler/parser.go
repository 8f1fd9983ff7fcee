package compiler

import (
	"fmt"
	"strings"

	"github.com/mkchaos/rsc/pkg/errs"
	"github.com/mkchaos/rsc/pkg/vm"
)

// Parser consumes the flat token slice produced by the Lexer and builds an AST.
//
// Grammar:
//
//	program    = (funcDecl | globalDecl)* EOF
//	globalDecl = type IDENTIFIER ("=" expression)? ";"
//	funcDecl   = type IDENTIFIER "(" params? ")" (block | ";")
//	params     = "void" | type IDENTIFIER? ("," type IDENTIFIER?)*
//	block      = "{" item* "}"
//	item       = block | if | while | return | break | continue | statement
//	statement  = varDecl | assignment | exprStmt | ";"
//	if         = "if" "(" expression ")" item ("else" item)?
//	while      = "while" "(" expression ")" item
//	return     = "return" expression? ";"
//	expression = logical_or
//	logical_or = logical_and ("||" logical_and)*
//	logical_and = equality ("&&" equality)*
//	equality   = relational (("==" | "!=") relational)*
//	relational = additive (("<" | "<=" | ">" | ">=") additive)*
//	additive   = multiplicative (("+" | "-") multiplicative)*
//	multiplicative = unary (("*" | "/" | "%") unary)*
//	unary      = ("-" | "!") unary | primary
//	primary    = INTEGER | IDENTIFIER | IDENTIFIER "(" args? ")" | "(" expression ")"
//
// Expressions are emitted in postfix order straight into an Expr.
type Parser struct {
	tokens      []Token
	pos         int
	sourceLines []string
	lastID      NodeID
}

func NewParser(tokens []Token, rawSource string) *Parser {
	return &Parser{tokens: tokens, sourceLines: strings.Split(rawSource, "\n")}
}

// fmtError builds a ParseErr that quotes the source line where the token appears.
func (p *Parser) fmtError(tok Token, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	lineIdx := tok.Line - 1 // Lines are 1-based

	snippet := "<source unavailable>"
	if lineIdx >= 0 && lineIdx < len(p.sourceLines) {
		snippet = strings.TrimSpace(p.sourceLines[lineIdx])
	}

	return errs.New(errs.ParseErr, tok.Line, "%s\n  |> %s", msg, snippet)
}

func (p *Parser) nextID() NodeID {
	p.lastID++
	return p.lastID
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos]
}

// peekAt returns the token at the given offset from the current position.
func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos+offset]
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// expect consumes the current token if it matches tt, otherwise returns an error.
func (p *Parser) expect(tt TokenType) (Token, error) {
	tok := p.advance()
	if tok.Type != tt {
		return tok, p.fmtError(tok, "expected %s, got %s (%q)", tt, tok.Type, tok.Lexeme)
	}
	return tok, nil
}

func isTypeToken(tt TokenType) bool {
	return tt == INT || tt == VOID
}

func typeOf(tt TokenType) Type {
	if tt == INT {
		return TypeInt
	}
	return TypeVoid
}

// binaryLevels lists binary operators from the loosest binding level to the
// tightest. All of them associate to the left.
var binaryLevels = []map[TokenType]vm.Op{
	{OR_LOGICAL: vm.OpOr},
	{AND_LOGICAL: vm.OpAnd},
	{EQUALS: vm.OpEq, NOT_EQ: vm.OpNe},
	{LESS: vm.OpLt, LESS_EQ: vm.OpLe, GREATER: vm.OpGt, GREATER_EQ: vm.OpGe},
	{PLUS: vm.OpAdd, MINUS: vm.OpSub},
	{STAR: vm.OpMul, SLASH: vm.OpDiv, PERCENT: vm.OpMod},
}

// parseExpression is the entry point for expression parsing.
func (p *Parser) parseExpression() (*Expr, error) {
	e := &Expr{Line: p.peek().Line}
	if err := p.parseLevel(e, 0); err != nil {
		return nil, err
	}
	return e, nil
}

// parseLevel parses one binary precedence level, appending postfix items to e.
func (p *Parser) parseLevel(e *Expr, level int) error {
	if level == len(binaryLevels) {
		return p.parseUnary(e)
	}
	if err := p.parseLevel(e, level+1); err != nil {
		return err
	}
	for {
		op, ok := binaryLevels[level][p.peek().Type]
		if !ok {
			return nil
		}
		p.advance()
		if err := p.parseLevel(e, level+1); err != nil {
			return err
		}
		e.Items = append(e.Items, &OpItem{Op: op})
	}
}

// parseUnary handles prefix - and !
func (p *Parser) parseUnary(e *Expr) error {
	switch p.peek().Type {
	case MINUS, NOT:
		op := vm.OpNeg
		if p.advance().Type == NOT {
			op = vm.OpNot
		}
		if err := p.parseUnary(e); err != nil {
			return err
		}
		e.Items = append(e.Items, &OpItem{Op: op})
		return nil
	}
	return p.parsePrimary(e)
}

// parsePrimary handles literals, variables, calls and parenthesised expressions.
func (p *Parser) parsePrimary(e *Expr) error {
	tok := p.advance()
	switch tok.Type {
	case INTEGER:
		e.Items = append(e.Items, &Literal{Value: parseLiteral(tok.Lexeme)})
		return nil

	case IDENTIFIER:
		if p.peek().Type != LPAREN {
			e.Items = append(e.Items, &VarRef{ID: p.nextID(), Name: tok.Lexeme, Line: tok.Line})
			return nil
		}
		p.advance() // (
		call := &CallExpr{ID: p.nextID(), Name: tok.Lexeme, Line: tok.Line}
		if p.peek().Type != RPAREN {
			for {
				arg, err := p.parseExpression()
				if err != nil {
					return err
				}
				call.Args = append(call.Args, arg)
				if p.peek().Type != COMMA {
					break
				}
				p.advance()
			}
		}
		if _, err := p.expect(RPAREN); err != nil {
			return err
		}
		e.Items = append(e.Items, call)
		return nil

	case LPAREN:
		if err := p.parseLevel(e, 0); err != nil {
			return err
		}
		_, err := p.expect(RPAREN)
		return err
	}
	return p.fmtError(tok, "unexpected %s (%q) in expression", tok.Type, tok.Lexeme)
}

// parseLiteral converts a run of decimal digits, wrapping at 32 bits.
func parseLiteral(s string) vm.Cell {
	var v uint32
	for i := 0; i < len(s); i++ {
		v = v*10 + uint32(s[i]-'0')
	}
	return vm.Cell(int32(v))
}

// parseVarDecl parses  type name ("=" expr)? ";"
func (p *Parser) parseVarDecl() (*VariableDecl, error) {
	typeTok := p.advance()
	nameTok, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	decl := &VariableDecl{ID: p.nextID(), Type: typeOf(typeTok.Type), Name: nameTok.Lexeme, Line: nameTok.Line}
	if p.peek().Type == ASSIGN {
		p.advance()
		decl.Init, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parseReturn() (Stmt, error) {
	tok := p.advance() // return
	ret := &ReturnStmt{Line: tok.Line}
	if p.peek().Type != SEMICOLON {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		ret.Expr = expr
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return ret, nil
}

// parseBlock parses { item ... }
func (p *Parser) parseBlock() (*BlockStmt, error) {
	open, err := p.expect(LBRACE)
	if err != nil {
		return nil, err
	}
	block := &BlockStmt{ID: p.nextID(), Line: open.Line}
	for p.peek().Type != RBRACE && p.peek().Type != EOF {
		stmt, err := p.parseItem(true)
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
	}
	if _, err := p.expect(RBRACE); err != nil {
		return nil, err
	}
	return block, nil
}

// parseIf parses if ( cond ) body [ else elseBody ]
func (p *Parser) parseIf() (Stmt, error) {
	tok := p.advance() // if
	stmt := &IfStmt{ID: p.nextID(), ThenID: p.nextID(), Line: tok.Line}
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	stmt.Condition = cond
	if stmt.Body, err = p.parseItem(false); err != nil {
		return nil, err
	}

	if p.peek().Type == ELSE {
		p.advance()
		if stmt.ElseBody, err = p.parseItem(false); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

// parseWhile parses while ( cond ) body
func (p *Parser) parseWhile() (Stmt, error) {
	tok := p.advance() // while
	stmt := &WhileStmt{ID: p.nextID(), Line: tok.Line}
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	stmt.Condition = cond
	if stmt.Body, err = p.parseItem(false); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseItem parses one statement inside a function body. It returns a nil
// Stmt for an empty statement. allowDecl is false for the item controlled by
// if, else or while: a declaration there would leave a slot nobody owns.
func (p *Parser) parseItem(allowDecl bool) (Stmt, error) {
	tok := p.peek()
	switch tok.Type {
	case LBRACE:
		return p.parseBlock()
	case IF:
		return p.parseIf()
	case WHILE:
		return p.parseWhile()
	case RETURN:
		return p.parseReturn()
	case BREAK, CONTINUE:
		p.advance()
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		if tok.Type == BREAK {
			return &BreakStmt{ID: p.nextID(), Line: tok.Line}, nil
		}
		return &ContinueStmt{ID: p.nextID(), Line: tok.Line}, nil
	case SEMICOLON:
		p.advance()
		if !allowDecl {
			// keep `while (x);` a real (empty) body
			return &BlockStmt{ID: p.nextID(), Line: tok.Line}, nil
		}
		return nil, nil
	case INT, VOID:
		if !allowDecl {
			return nil, p.fmtError(tok, "declaration must be inside a block")
		}
		return p.parseVarDecl()
	}

	if tok.Type == IDENTIFIER && p.peekAt(1).Type == ASSIGN {
		p.advance() // name
		p.advance() // =
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		target := &VarRef{ID: p.nextID(), Name: tok.Lexeme, Line: tok.Line}
		return &Assignment{Target: target, Value: value, Line: tok.Line}, nil
	}

	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	if v, ok := expr.BareName(); ok {
		return &PrintStmt{Var: v}, nil
	}
	return &ExprStmt{Expr: expr}, nil
}

// parseParams parses the parameter list after "(" up to and including ")".
func (p *Parser) parseParams() ([]Param, error) {
	var params []Param
	if p.peek().Type == VOID && p.peekAt(1).Type == RPAREN {
		p.advance()
	} else if p.peek().Type != RPAREN {
		for {
			typeTok := p.advance()
			if !isTypeToken(typeTok.Type) {
				return nil, p.fmtError(typeTok, "expected parameter type, got %s (%q)", typeTok.Type, typeTok.Lexeme)
			}
			param := Param{ID: p.nextID(), Type: typeOf(typeTok.Type)}
			if p.peek().Type == IDENTIFIER {
				param.Name = p.advance().Lexeme
			}
			params = append(params, param)

			if p.peek().Type != COMMA {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return params, nil
}

// parseFunctionDecl parses a prototype or a definition.
func (p *Parser) parseFunctionDecl() (Stmt, error) {
	typeTok := p.advance()
	nameTok := p.advance()
	p.advance() // (

	fn := &FunctionDecl{ID: p.nextID(), Name: nameTok.Lexeme, Ret: typeOf(typeTok.Type), Line: nameTok.Line}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	fn.Params = params

	if p.peek().Type == SEMICOLON {
		p.advance()
		return fn, nil
	}
	if fn.Body, err = p.parseBlock(); err != nil {
		return nil, err
	}
	return fn, nil
}

// Parse enforces that only declarations are allowed at the top level and that
// the whole token stream is consumed.
func Parse(tokens []Token, rawSource string) ([]Stmt, error) {
	p := NewParser(tokens, rawSource)
	var stmts []Stmt
	for p.peek().Type != EOF {
		tok := p.peek()
		if !isTypeToken(tok.Type) || p.peekAt(1).Type != IDENTIFIER {
			return nil, p.fmtError(tok, "expected declaration at top level, got %s (%q)", tok.Type, tok.Lexeme)
		}

		var (
			stmt Stmt
			err  error
		)
		if p.peekAt(2).Type == LPAREN {
			stmt, err = p.parseFunctionDecl()
		} else {
			stmt, err = p.parseVarDecl()
		}
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}
