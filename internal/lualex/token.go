// Copyright 2025 The MiniLua Authors
// SPDX-License-Identifier: MIT

package lualex

import "strconv"

// Token represents a single lexical element in a Lua source file.
//
// Tokens remember their exact source text and the whitespace (including
// comments) that preceded them, so that a token stream can be re-serialized
// byte-for-byte and individual tokens can be rewritten in place.
type Token struct {
	Kind TokenKind
	// Pos is the byte offset of the first byte of Text within the source.
	Pos int
	// Text is the exact source text of the token,
	// including quotes for a [StringToken].
	Text string
	// Space holds the whitespace and comments that precede the token.
	Space string
	// Value holds the decoded string for a [StringToken]
	// and the identifier for an [IdentifierToken].
	Value string
}

// Len returns the length of the token's source text in bytes.
func (tok Token) Len() int {
	return len(tok.Text)
}

// End returns the byte offset just past the token's source text.
func (tok Token) End() int {
	return tok.Pos + len(tok.Text)
}

// String formats the token as it would appear in Lua source.
// String returns "<eof>" for [ErrorToken].
func (tok Token) String() string {
	if tok.Kind == ErrorToken {
		return "<eof>"
	}
	return tok.Text
}

// TokenKind is an enumeration of valid [Token] types.
// The zero value is [ErrorToken].
type TokenKind int

// [TokenKind] values.
const (
	// ErrorToken indicates an invalid token.
	ErrorToken TokenKind = iota
	// IdentifierToken indicates a name.
	// The Value field of [Token] will contain the identifier.
	IdentifierToken
	// StringToken indicates a literal string.
	// The Value field of [Token] will contain the parsed value of the string.
	StringToken
	// NumeralToken indicates a numeric constant.
	// The Text field of [Token] will contain the constant as written.
	NumeralToken

	// Keywords

	AndToken      // and
	BreakToken    // break
	DoToken       // do
	ElseToken     // else
	ElseifToken   // elseif
	EndToken      // end
	FalseToken    // false
	ForToken      // for
	FunctionToken // function
	IfToken       // if
	InToken       // in
	LocalToken    // local
	NilToken      // nil
	NotToken      // not
	OrToken       // or
	RepeatToken   // repeat
	ReturnToken   // return
	ThenToken     // then
	TrueToken     // true
	UntilToken    // until
	WhileToken    // while

	// Operators

	AddToken          // +
	SubToken          // -
	MulToken          // *
	DivToken          // /
	ModToken          // %
	PowToken          // ^
	LenToken          // #
	StripToken        // $
	LiveToken         // \
	EqualToken        // ==
	NotEqualToken     // ~=
	LessEqualToken    // <=
	GreaterEqualToken // >=
	LessToken         // <
	GreaterToken      // >
	AssignToken       // =
	LParenToken       // (
	RParenToken       // )
	LBraceToken       // {
	RBraceToken       // }
	LBracketToken     // [
	RBracketToken     // ]
	SemiToken         // ;
	ColonToken        // :
	CommaToken        // ,
	DotToken          // .
	ConcatToken       // ..
	VarargToken       // ...
)

var tokenKindStrings = map[TokenKind]string{
	ErrorToken:      "<error>",
	IdentifierToken: "<identifier>",
	StringToken:     "<string>",
	NumeralToken:    "<numeral>",

	AndToken:      "and",
	BreakToken:    "break",
	DoToken:       "do",
	ElseToken:     "else",
	ElseifToken:   "elseif",
	EndToken:      "end",
	FalseToken:    "false",
	ForToken:      "for",
	FunctionToken: "function",
	IfToken:       "if",
	InToken:       "in",
	LocalToken:    "local",
	NilToken:      "nil",
	NotToken:      "not",
	OrToken:       "or",
	RepeatToken:   "repeat",
	ReturnToken:   "return",
	ThenToken:     "then",
	TrueToken:     "true",
	UntilToken:    "until",
	WhileToken:    "while",

	AddToken:          "+",
	SubToken:          "-",
	MulToken:          "*",
	DivToken:          "/",
	ModToken:          "%",
	PowToken:          "^",
	LenToken:          "#",
	StripToken:        "$",
	LiveToken:         `\`,
	EqualToken:        "==",
	NotEqualToken:     "~=",
	LessEqualToken:    "<=",
	GreaterEqualToken: ">=",
	LessToken:         "<",
	GreaterToken:      ">",
	AssignToken:       "=",
	LParenToken:       "(",
	RParenToken:       ")",
	LBraceToken:       "{",
	RBraceToken:       "}",
	LBracketToken:     "[",
	RBracketToken:     "]",
	SemiToken:         ";",
	ColonToken:        ":",
	CommaToken:        ",",
	DotToken:          ".",
	ConcatToken:       "..",
	VarargToken:       "...",
}

// String returns the source spelling of the token kind,
// or a bracketed placeholder for value-carrying kinds.
func (kind TokenKind) String() string {
	if s, ok := tokenKindStrings[kind]; ok {
		return s
	}
	return "lualex.TokenKind(" + strconv.Itoa(int(kind)) + ")"
}

var keywords = map[string]TokenKind{
	"and":      AndToken,
	"break":    BreakToken,
	"do":       DoToken,
	"else":     ElseToken,
	"elseif":   ElseifToken,
	"end":      EndToken,
	"false":    FalseToken,
	"for":      ForToken,
	"function": FunctionToken,
	"if":       IfToken,
	"in":       InToken,
	"local":    LocalToken,
	"nil":      NilToken,
	"not":      NotToken,
	"or":       OrToken,
	"repeat":   RepeatToken,
	"return":   ReturnToken,
	"then":     ThenToken,
	"true":     TrueToken,
	"until":    UntilToken,
	"while":    WhileToken,
}
