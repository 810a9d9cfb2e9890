// Copyright 2025 The MiniLua Authors
// SPDX-License-Identifier: MIT

package luasyntax

import (
	"minilua.dev/pkg/internal/lualex"
)

// A Chunk is a sequence of statements,
// either a whole source file or a block body.
type Chunk struct {
	Stmts []Stmt
}

// Stmt is the interface implemented by all statement nodes.
type Stmt interface {
	stmt()
}

// Exp is the interface implemented by all expression nodes.
type Exp interface {
	exp()
}

// Var is the subset of expressions that may appear
// as an assignment target: [*NameExp], [*IndexExp], and [*MemberExp].
type Var interface {
	Exp
	assignable()
}

// Name is an identifier occurrence.
type Name struct {
	Token lualex.Token
}

// Ident returns the identifier the name spells.
func (n *Name) Ident() string {
	return n.Token.Value
}

// Assignment is "varlist = explist", "local namelist = explist",
// or the desugared form of a function statement.
type Assignment struct {
	Local   bool
	Targets []Exp
	Values  []Exp
}

// CallStmt is a function call in statement position.
// Its results are discarded.
type CallStmt struct {
	Call *CallExp
}

// ReturnStmt is "return [explist]".
type ReturnStmt struct {
	Values []Exp
}

// BreakStmt is "break".
type BreakStmt struct {
	Token lualex.Token
}

// DoStmt is "do block end".
type DoStmt struct {
	Body *Chunk
}

// LoopStmt is a while loop (head-controlled)
// or a repeat loop (tail-controlled).
// For a repeat loop the parser wraps the until-condition in "not",
// so Cond is always the continue-condition.
type LoopStmt struct {
	HeadControlled bool
	Cond           Exp
	Body           *Chunk
}

// NumericForStmt is "for name = start, limit [, step] do block end".
// Step is nil when the source omits it.
type NumericForStmt struct {
	Var   *Name
	Start Exp
	Limit Exp
	Step  Exp
	Body  *Chunk
}

// GenericForStmt is "for namelist in explist do block end".
type GenericForStmt struct {
	Names []*Name
	Exps  []Exp
	Body  *Chunk
}

// IfStmt is an if/elseif/else chain.
// An else branch is stored with a synthetic "true" condition.
type IfStmt struct {
	Branches []IfBranch
}

// IfBranch is one condition/body pair of an [IfStmt].
type IfBranch struct {
	Cond Exp
	Body *Chunk
}

// LiteralExp is nil, true, false, a numeral, or a string literal.
type LiteralExp struct {
	Token lualex.Token
}

// VarargExp is "...".
type VarargExp struct {
	Token lualex.Token
}

// NameExp is a variable reference in expression position.
type NameExp struct {
	Name *Name
}

// IndexExp is "prefixexp [ exp ]".
type IndexExp struct {
	Table Exp
	Index Exp
}

// MemberExp is "prefixexp . Name".
type MemberExp struct {
	Table  Exp
	Member *Name
}

// CallExp is a function or method call.
// For a method call "o:m(args)", Method is m
// and Func is the receiver expression;
// the receiver is evaluated once and passed as the first argument.
type CallExp struct {
	Func   Exp
	Method *Name
	Args   []Exp
}

// FunctionExp is a function literal.
type FunctionExp struct {
	Params   []*Name
	IsVararg bool
	Body     *Chunk
}

// BinaryExp is "exp binop exp".
type BinaryExp struct {
	LHS Exp
	Op  lualex.Token
	RHS Exp
}

// UnaryExp is "unop exp", or "exp \" when Postfix is set.
type UnaryExp struct {
	Op      lualex.Token
	Operand Exp
	Postfix bool
}

// TableExp is a table constructor.
type TableExp struct {
	Fields []TableField
}

// TableField is one field of a [TableExp]:
// "[key] = value" (Key set), "name = value" (NameKey set),
// or a bare positional expression (neither set).
type TableField struct {
	Key     Exp
	NameKey *Name
	Value   Exp
}

func (*Assignment) stmt()     {}
func (*CallStmt) stmt()       {}
func (*ReturnStmt) stmt()     {}
func (*BreakStmt) stmt()      {}
func (*DoStmt) stmt()         {}
func (*LoopStmt) stmt()       {}
func (*NumericForStmt) stmt() {}
func (*GenericForStmt) stmt() {}
func (*IfStmt) stmt()         {}

func (*LiteralExp) exp()  {}
func (*VarargExp) exp()   {}
func (*NameExp) exp()     {}
func (*IndexExp) exp()    {}
func (*MemberExp) exp()   {}
func (*CallExp) exp()     {}
func (*FunctionExp) exp() {}
func (*BinaryExp) exp()   {}
func (*UnaryExp) exp()    {}
func (*TableExp) exp()    {}

func (*NameExp) assignable()   {}
func (*IndexExp) assignable()  {}
func (*MemberExp) assignable() {}
