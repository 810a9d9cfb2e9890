// Copyright 2025 The MiniLua Authors
// SPDX-License-Identifier: MIT

// Package luasyntax provides an abstract syntax tree for the interpreted
// Lua dialect and a recursive-descent parser that produces it.
//
// Every node keeps the tokens that back it,
// so the runtime can construct origins pointing at exact byte ranges.
package luasyntax

import (
	"fmt"

	"minilua.dev/pkg/internal/lualex"
)

// Parse tokenizes and parses a source file.
// The returned token stream includes every token of src
// and re-serializes to it byte-for-byte.
func Parse(src string) (*Chunk, []lualex.Token, error) {
	tokens, err := lualex.Tokenize(src)
	if err != nil {
		return nil, tokens, err
	}
	p := &parser{tokens: tokens}
	chunk, err := p.block()
	if err != nil {
		return nil, tokens, err
	}
	if p.pos < len(p.tokens) {
		return nil, tokens, syntaxError(p.curr(), "<eof> expected")
	}
	return chunk, tokens, nil
}

// parser is the in-progress state of a [Parse] call.
type parser struct {
	tokens []lualex.Token
	pos    int
}

func (p *parser) curr() lualex.Token {
	if p.pos >= len(p.tokens) {
		end := 0
		if len(p.tokens) > 0 {
			end = p.tokens[len(p.tokens)-1].End()
		}
		return lualex.Token{Kind: lualex.ErrorToken, Pos: end}
	}
	return p.tokens[p.pos]
}

// peek returns the token after the current one without advancing.
func (p *parser) peek() lualex.Token {
	if p.pos+1 >= len(p.tokens) {
		return lualex.Token{Kind: lualex.ErrorToken}
	}
	return p.tokens[p.pos+1]
}

func (p *parser) advance() lualex.Token {
	tok := p.curr()
	p.pos++
	return tok
}

func (p *parser) expect(kind lualex.TokenKind) (lualex.Token, error) {
	tok := p.curr()
	if tok.Kind != kind {
		return tok, syntaxError(tok, "'%v' expected", kind)
	}
	p.pos++
	return tok, nil
}

func syntaxError(tok lualex.Token, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if tok.Kind == lualex.ErrorToken {
		return fmt.Errorf("offset %d: %s near <eof>", tok.Pos, msg)
	}
	return fmt.Errorf("offset %d: %s near '%s'", tok.Pos, msg, tok.Text)
}

// blockFollow reports whether the current token ends a block.
func (p *parser) blockFollow() bool {
	switch p.curr().Kind {
	case lualex.ErrorToken, lualex.EndToken, lualex.ElseToken, lualex.ElseifToken, lualex.UntilToken:
		return true
	default:
		return false
	}
}

// block parses a possibly empty list of statements,
// where a return or break statement must be the last one.
func (p *parser) block() (*Chunk, error) {
	chunk := new(Chunk)
	for !p.blockFollow() {
		switch p.curr().Kind {
		case lualex.SemiToken:
			p.pos++
			continue
		case lualex.ReturnToken:
			p.pos++
			stmt := new(ReturnStmt)
			if !p.blockFollow() && p.curr().Kind != lualex.SemiToken {
				exps, err := p.explist()
				if err != nil {
					return nil, err
				}
				stmt.Values = exps
			}
			if p.curr().Kind == lualex.SemiToken {
				p.pos++
			}
			chunk.Stmts = append(chunk.Stmts, stmt)
			return chunk, nil
		case lualex.BreakToken:
			tok := p.advance()
			if p.curr().Kind == lualex.SemiToken {
				p.pos++
			}
			chunk.Stmts = append(chunk.Stmts, &BreakStmt{Token: tok})
			return chunk, nil
		}
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		chunk.Stmts = append(chunk.Stmts, stmt)
	}
	return chunk, nil
}

func (p *parser) statement() (Stmt, error) {
	switch p.curr().Kind {
	case lualex.DoToken:
		p.pos++
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lualex.EndToken); err != nil {
			return nil, err
		}
		return &DoStmt{Body: body}, nil
	case lualex.WhileToken:
		return p.whileStatement()
	case lualex.RepeatToken:
		return p.repeatStatement()
	case lualex.IfToken:
		return p.ifStatement()
	case lualex.ForToken:
		return p.forStatement()
	case lualex.FunctionToken:
		return p.functionStatement()
	case lualex.LocalToken:
		return p.localStatement()
	default:
		return p.exprStatement()
	}
}

func (p *parser) whileStatement() (Stmt, error) {
	p.pos++ // while
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lualex.DoToken); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lualex.EndToken); err != nil {
		return nil, err
	}
	return &LoopStmt{HeadControlled: true, Cond: cond, Body: body}, nil
}

func (p *parser) repeatStatement() (Stmt, error) {
	p.pos++ // repeat
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	untilTok, err := p.expect(lualex.UntilToken)
	if err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	// The loop continues while the until-condition is false.
	notCond := &UnaryExp{
		Op:      lualex.Token{Kind: lualex.NotToken, Pos: untilTok.Pos, Text: "not"},
		Operand: cond,
	}
	return &LoopStmt{HeadControlled: false, Cond: notCond, Body: body}, nil
}

func (p *parser) ifStatement() (Stmt, error) {
	stmt := new(IfStmt)
	for {
		p.pos++ // if or elseif
		cond, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lualex.ThenToken); err != nil {
			return nil, err
		}
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		stmt.Branches = append(stmt.Branches, IfBranch{Cond: cond, Body: body})
		if p.curr().Kind != lualex.ElseifToken {
			break
		}
	}
	if p.curr().Kind == lualex.ElseToken {
		elseTok := p.advance()
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		trueCond := &LiteralExp{Token: lualex.Token{Kind: lualex.TrueToken, Pos: elseTok.Pos, Text: "true"}}
		stmt.Branches = append(stmt.Branches, IfBranch{Cond: trueCond, Body: body})
	}
	if _, err := p.expect(lualex.EndToken); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *parser) forStatement() (Stmt, error) {
	p.pos++ // for
	first, err := p.name()
	if err != nil {
		return nil, err
	}
	switch p.curr().Kind {
	case lualex.AssignToken:
		p.pos++
		stmt := &NumericForStmt{Var: first}
		if stmt.Start, err = p.expression(); err != nil {
			return nil, err
		}
		if _, err := p.expect(lualex.CommaToken); err != nil {
			return nil, err
		}
		if stmt.Limit, err = p.expression(); err != nil {
			return nil, err
		}
		if p.curr().Kind == lualex.CommaToken {
			p.pos++
			if stmt.Step, err = p.expression(); err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(lualex.DoToken); err != nil {
			return nil, err
		}
		if stmt.Body, err = p.block(); err != nil {
			return nil, err
		}
		if _, err := p.expect(lualex.EndToken); err != nil {
			return nil, err
		}
		return stmt, nil
	case lualex.CommaToken, lualex.InToken:
		stmt := &GenericForStmt{Names: []*Name{first}}
		for p.curr().Kind == lualex.CommaToken {
			p.pos++
			n, err := p.name()
			if err != nil {
				return nil, err
			}
			stmt.Names = append(stmt.Names, n)
		}
		if _, err := p.expect(lualex.InToken); err != nil {
			return nil, err
		}
		if stmt.Exps, err = p.explist(); err != nil {
			return nil, err
		}
		if _, err := p.expect(lualex.DoToken); err != nil {
			return nil, err
		}
		if stmt.Body, err = p.block(); err != nil {
			return nil, err
		}
		if _, err := p.expect(lualex.EndToken); err != nil {
			return nil, err
		}
		return stmt, nil
	default:
		return nil, syntaxError(p.curr(), "'=' or 'in' expected")
	}
}

// functionStatement parses "function funcname funcbody",
// desugaring it into an assignment of a function literal.
// A method name ("function t:m") prepends a "self" parameter.
func (p *parser) functionStatement() (Stmt, error) {
	p.pos++ // function
	target, isMethod, err := p.functionName()
	if err != nil {
		return nil, err
	}
	fn, err := p.functionBody(isMethod)
	if err != nil {
		return nil, err
	}
	return &Assignment{
		Targets: []Exp{target},
		Values:  []Exp{fn},
	}, nil
}

// functionName parses "Name {'.' Name} [':' Name]".
func (p *parser) functionName() (Var, bool, error) {
	n, err := p.name()
	if err != nil {
		return nil, false, err
	}
	var v Var = &NameExp{Name: n}
	for p.curr().Kind == lualex.DotToken {
		p.pos++
		member, err := p.name()
		if err != nil {
			return nil, false, err
		}
		v = &MemberExp{Table: v, Member: member}
	}
	if p.curr().Kind == lualex.ColonToken {
		p.pos++
		member, err := p.name()
		if err != nil {
			return nil, false, err
		}
		return &MemberExp{Table: v, Member: member}, true, nil
	}
	return v, false, nil
}

func (p *parser) localStatement() (Stmt, error) {
	p.pos++ // local
	if p.curr().Kind == lualex.FunctionToken {
		p.pos++
		n, err := p.name()
		if err != nil {
			return nil, err
		}
		fn, err := p.functionBody(false)
		if err != nil {
			return nil, err
		}
		return &Assignment{
			Local:   true,
			Targets: []Exp{&NameExp{Name: n}},
			Values:  []Exp{fn},
		}, nil
	}

	stmt := &Assignment{Local: true}
	for {
		n, err := p.name()
		if err != nil {
			return nil, err
		}
		stmt.Targets = append(stmt.Targets, &NameExp{Name: n})
		if p.curr().Kind != lualex.CommaToken {
			break
		}
		p.pos++
	}
	if p.curr().Kind == lualex.AssignToken {
		p.pos++
		values, err := p.explist()
		if err != nil {
			return nil, err
		}
		stmt.Values = values
	}
	return stmt, nil
}

// exprStatement parses a statement beginning with an expression:
// either an assignment or a function call.
func (p *parser) exprStatement() (Stmt, error) {
	first, err := p.suffixedExpression()
	if err != nil {
		return nil, err
	}
	if p.curr().Kind != lualex.AssignToken && p.curr().Kind != lualex.CommaToken {
		call, ok := first.(*CallExp)
		if !ok {
			return nil, syntaxError(p.curr(), "syntax error (unexpected expression statement)")
		}
		return &CallStmt{Call: call}, nil
	}

	stmt := new(Assignment)
	if _, ok := first.(Var); !ok {
		return nil, syntaxError(p.curr(), "cannot assign to this expression")
	}
	stmt.Targets = append(stmt.Targets, first)
	for p.curr().Kind == lualex.CommaToken {
		p.pos++
		target, err := p.suffixedExpression()
		if err != nil {
			return nil, err
		}
		if _, ok := target.(Var); !ok {
			return nil, syntaxError(p.curr(), "cannot assign to this expression")
		}
		stmt.Targets = append(stmt.Targets, target)
	}
	if _, err := p.expect(lualex.AssignToken); err != nil {
		return nil, err
	}
	if stmt.Values, err = p.explist(); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *parser) name() (*Name, error) {
	tok, err := p.expect(lualex.IdentifierToken)
	if err != nil {
		return nil, err
	}
	return &Name{Token: tok}, nil
}

func (p *parser) explist() ([]Exp, error) {
	var exps []Exp
	for {
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		exps = append(exps, e)
		if p.curr().Kind != lualex.CommaToken {
			return exps, nil
		}
		p.pos++
	}
}

// Binary operator precedence.
// A right-associative operator has a smaller right priority,
// so recursion at that priority reclaims the operator.
var binaryPrecedence = map[lualex.TokenKind]struct{ left, right int }{
	lualex.OrToken:           {1, 1},
	lualex.AndToken:          {2, 2},
	lualex.LessToken:         {3, 3},
	lualex.LessEqualToken:    {3, 3},
	lualex.GreaterToken:      {3, 3},
	lualex.GreaterEqualToken: {3, 3},
	lualex.EqualToken:        {3, 3},
	lualex.NotEqualToken:     {3, 3},
	lualex.ConcatToken:       {4, 3},
	lualex.AddToken:          {5, 5},
	lualex.SubToken:          {5, 5},
	lualex.MulToken:          {6, 6},
	lualex.DivToken:          {6, 6},
	lualex.ModToken:          {6, 6},
	lualex.PowToken:          {8, 7},
	lualex.LiveToken:         {9, 9},
}

func (p *parser) expression() (Exp, error) {
	return p.subExpression(0)
}

func (p *parser) subExpression(limit int) (Exp, error) {
	lhs, err := p.unaryExpression()
	if err != nil {
		return nil, err
	}
	for {
		op := p.curr()
		prec, isBinary := binaryPrecedence[op.Kind]
		if !isBinary || prec.left <= limit {
			return lhs, nil
		}
		if op.Kind == lualex.LiveToken && !p.startsExpression(p.peek()) {
			// No right operand follows: "\" is postfix.
			p.pos++
			lhs = &UnaryExp{Op: op, Operand: lhs, Postfix: true}
			continue
		}
		p.pos++
		rhs, err := p.subExpression(prec.right)
		if err != nil {
			return nil, err
		}
		lhs = &BinaryExp{LHS: lhs, Op: op, RHS: rhs}
	}
}

// startsExpression reports whether tok can begin an expression.
func (p *parser) startsExpression(tok lualex.Token) bool {
	switch tok.Kind {
	case lualex.NilToken, lualex.TrueToken, lualex.FalseToken,
		lualex.NumeralToken, lualex.StringToken, lualex.IdentifierToken,
		lualex.LParenToken, lualex.LBraceToken, lualex.FunctionToken,
		lualex.VarargToken, lualex.SubToken, lualex.NotToken,
		lualex.LenToken, lualex.StripToken:
		return true
	default:
		return false
	}
}

// unaryExpression parses zero or more prefix operators
// applied to a suffixed expression.
// Prefix operators bind tighter than every binary operator.
func (p *parser) unaryExpression() (Exp, error) {
	switch tok := p.curr(); tok.Kind {
	case lualex.SubToken, lualex.NotToken, lualex.LenToken, lualex.StripToken:
		p.pos++
		operand, err := p.unaryExpression()
		if err != nil {
			return nil, err
		}
		return &UnaryExp{Op: tok, Operand: operand}, nil
	}
	return p.simpleExpression()
}

func (p *parser) simpleExpression() (Exp, error) {
	switch tok := p.curr(); tok.Kind {
	case lualex.NilToken, lualex.TrueToken, lualex.FalseToken,
		lualex.NumeralToken, lualex.StringToken:
		p.pos++
		return &LiteralExp{Token: tok}, nil
	case lualex.VarargToken:
		p.pos++
		return &VarargExp{Token: tok}, nil
	case lualex.FunctionToken:
		p.pos++
		return p.functionBody(false)
	case lualex.LBraceToken:
		return p.tableConstructor()
	default:
		return p.suffixedExpression()
	}
}

// suffixedExpression parses a primary expression
// followed by any number of index, member, and call suffixes.
func (p *parser) suffixedExpression() (Exp, error) {
	var e Exp
	switch tok := p.curr(); tok.Kind {
	case lualex.IdentifierToken:
		p.pos++
		e = &NameExp{Name: &Name{Token: tok}}
	case lualex.LParenToken:
		p.pos++
		inner, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lualex.RParenToken); err != nil {
			return nil, err
		}
		e = inner
	default:
		return nil, syntaxError(tok, "unexpected symbol")
	}

	for {
		switch p.curr().Kind {
		case lualex.DotToken:
			p.pos++
			member, err := p.name()
			if err != nil {
				return nil, err
			}
			e = &MemberExp{Table: e, Member: member}
		case lualex.LBracketToken:
			p.pos++
			index, err := p.expression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lualex.RBracketToken); err != nil {
				return nil, err
			}
			e = &IndexExp{Table: e, Index: index}
		case lualex.ColonToken:
			p.pos++
			method, err := p.name()
			if err != nil {
				return nil, err
			}
			args, err := p.callArguments()
			if err != nil {
				return nil, err
			}
			e = &CallExp{Func: e, Method: method, Args: args}
		case lualex.LParenToken, lualex.StringToken, lualex.LBraceToken:
			args, err := p.callArguments()
			if err != nil {
				return nil, err
			}
			e = &CallExp{Func: e, Args: args}
		default:
			return e, nil
		}
	}
}

// callArguments parses "( [explist] )", a string literal argument,
// or a table constructor argument.
func (p *parser) callArguments() ([]Exp, error) {
	switch tok := p.curr(); tok.Kind {
	case lualex.StringToken:
		p.pos++
		return []Exp{&LiteralExp{Token: tok}}, nil
	case lualex.LBraceToken:
		table, err := p.tableConstructor()
		if err != nil {
			return nil, err
		}
		return []Exp{table}, nil
	case lualex.LParenToken:
		p.pos++
		var args []Exp
		if p.curr().Kind != lualex.RParenToken {
			var err error
			args, err = p.explist()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(lualex.RParenToken); err != nil {
			return nil, err
		}
		return args, nil
	default:
		return nil, syntaxError(tok, "function arguments expected")
	}
}

// functionBody parses "( [parlist] ) block end".
// The "function" keyword has already been consumed.
func (p *parser) functionBody(isMethod bool) (*FunctionExp, error) {
	fn := new(FunctionExp)
	if isMethod {
		fn.Params = append(fn.Params, &Name{Token: lualex.Token{
			Kind:  lualex.IdentifierToken,
			Value: "self",
		}})
	}
	if _, err := p.expect(lualex.LParenToken); err != nil {
		return nil, err
	}
	if p.curr().Kind != lualex.RParenToken {
		for {
			if p.curr().Kind == lualex.VarargToken {
				p.pos++
				fn.IsVararg = true
				break
			}
			n, err := p.name()
			if err != nil {
				return nil, err
			}
			fn.Params = append(fn.Params, n)
			if p.curr().Kind != lualex.CommaToken {
				break
			}
			p.pos++
		}
	}
	if _, err := p.expect(lualex.RParenToken); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	fn.Body = body
	if _, err := p.expect(lualex.EndToken); err != nil {
		return nil, err
	}
	return fn, nil
}

// tableConstructor parses "{ [fieldlist] }".
func (p *parser) tableConstructor() (*TableExp, error) {
	if _, err := p.expect(lualex.LBraceToken); err != nil {
		return nil, err
	}
	table := new(TableExp)
	for p.curr().Kind != lualex.RBraceToken {
		var field TableField
		switch {
		case p.curr().Kind == lualex.LBracketToken:
			p.pos++
			key, err := p.expression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lualex.RBracketToken); err != nil {
				return nil, err
			}
			if _, err := p.expect(lualex.AssignToken); err != nil {
				return nil, err
			}
			field.Key = key
		case p.curr().Kind == lualex.IdentifierToken && p.peek().Kind == lualex.AssignToken:
			n, err := p.name()
			if err != nil {
				return nil, err
			}
			p.pos++ // =
			field.NameKey = n
		}
		value, err := p.expression()
		if err != nil {
			return nil, err
		}
		field.Value = value
		table.Fields = append(table.Fields, field)

		if k := p.curr().Kind; k == lualex.CommaToken || k == lualex.SemiToken {
			p.pos++
		} else {
			break
		}
	}
	if _, err := p.expect(lualex.RBraceToken); err != nil {
		return nil, err
	}
	return table, nil
}
