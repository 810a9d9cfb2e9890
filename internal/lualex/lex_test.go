// Copyright 2025 The MiniLua Authors
// SPDX-License-Identifier: MIT

package lualex

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		s    string
		want []Token
		bad  bool
	}{
		{s: "", want: nil},
		{
			s: "foo",
			want: []Token{
				{Kind: IdentifierToken, Pos: 0, Text: "foo", Value: "foo"},
			},
		},
		{
			s: "  foo  ",
			want: []Token{
				{Kind: IdentifierToken, Pos: 2, Text: "foo", Space: "  ", Value: "foo"},
			},
		},
		{
			s: "3",
			want: []Token{
				{Kind: NumeralToken, Pos: 0, Text: "3"},
			},
		},
		{
			s: "345  0xff",
			want: []Token{
				{Kind: NumeralToken, Pos: 0, Text: "345"},
				{Kind: NumeralToken, Pos: 5, Text: "0xff", Space: "  "},
			},
		},
		{
			s: "314.16e-2",
			want: []Token{
				{Kind: NumeralToken, Pos: 0, Text: "314.16e-2"},
			},
		},
		{
			s: ".5",
			want: []Token{
				{Kind: NumeralToken, Pos: 0, Text: ".5"},
			},
		},
		{
			s: "5.",
			want: []Token{
				{Kind: NumeralToken, Pos: 0, Text: "5."},
			},
		},
		{
			s: `a = 'alo\n123"'`,
			want: []Token{
				{Kind: IdentifierToken, Pos: 0, Text: "a", Value: "a"},
				{Kind: AssignToken, Pos: 2, Text: "=", Space: " "},
				{Kind: StringToken, Pos: 4, Text: `'alo\n123"'`, Space: " ", Value: "alo\n123\""},
			},
		},
		{
			s: `"\97lo\10\04923"`,
			want: []Token{
				{Kind: StringToken, Pos: 0, Text: `"\97lo\10\04923"`, Value: "alo\n123"},
			},
		},
		{
			s: "[[alo\n123\"]]",
			want: []Token{
				{Kind: StringToken, Pos: 0, Text: "[[alo\n123\"]]", Value: "alo\n123\""},
			},
		},
		{
			s: "[==[\nalo\n123\"]==]",
			want: []Token{
				{Kind: StringToken, Pos: 0, Text: "[==[\nalo\n123\"]==]", Value: "alo\n123\""},
			},
		},
		{
			s: "-- a comment\nx",
			want: []Token{
				{Kind: IdentifierToken, Pos: 13, Text: "x", Space: "-- a comment\n", Value: "x"},
			},
		},
		{
			s: "x --[==[ long\ncomment ]==] y",
			want: []Token{
				{Kind: IdentifierToken, Pos: 0, Text: "x", Value: "x"},
				{Kind: IdentifierToken, Pos: 27, Text: "y", Space: " --[==[ long\ncomment ]==] ", Value: "y"},
			},
		},
		{
			s: "a+b-c*d/e%f^g",
			want: []Token{
				{Kind: IdentifierToken, Pos: 0, Text: "a", Value: "a"},
				{Kind: AddToken, Pos: 1, Text: "+"},
				{Kind: IdentifierToken, Pos: 2, Text: "b", Value: "b"},
				{Kind: SubToken, Pos: 3, Text: "-"},
				{Kind: IdentifierToken, Pos: 4, Text: "c", Value: "c"},
				{Kind: MulToken, Pos: 5, Text: "*"},
				{Kind: IdentifierToken, Pos: 6, Text: "d", Value: "d"},
				{Kind: DivToken, Pos: 7, Text: "/"},
				{Kind: IdentifierToken, Pos: 8, Text: "e", Value: "e"},
				{Kind: ModToken, Pos: 9, Text: "%"},
				{Kind: IdentifierToken, Pos: 10, Text: "f", Value: "f"},
				{Kind: PowToken, Pos: 11, Text: "^"},
				{Kind: IdentifierToken, Pos: 12, Text: "g", Value: "g"},
			},
		},
		{
			s: "a == b ~= c <= d >= e < f > g",
			want: []Token{
				{Kind: IdentifierToken, Pos: 0, Text: "a", Value: "a"},
				{Kind: EqualToken, Pos: 2, Text: "==", Space: " "},
				{Kind: IdentifierToken, Pos: 5, Text: "b", Space: " ", Value: "b"},
				{Kind: NotEqualToken, Pos: 7, Text: "~=", Space: " "},
				{Kind: IdentifierToken, Pos: 10, Text: "c", Space: " ", Value: "c"},
				{Kind: LessEqualToken, Pos: 12, Text: "<=", Space: " "},
				{Kind: IdentifierToken, Pos: 15, Text: "d", Space: " ", Value: "d"},
				{Kind: GreaterEqualToken, Pos: 17, Text: ">=", Space: " "},
				{Kind: IdentifierToken, Pos: 20, Text: "e", Space: " ", Value: "e"},
				{Kind: LessToken, Pos: 22, Text: "<", Space: " "},
				{Kind: IdentifierToken, Pos: 24, Text: "f", Space: " ", Value: "f"},
				{Kind: GreaterToken, Pos: 26, Text: ">", Space: " "},
				{Kind: IdentifierToken, Pos: 28, Text: "g", Space: " ", Value: "g"},
			},
		},
		{
			s: "$x",
			want: []Token{
				{Kind: StripToken, Pos: 0, Text: "$"},
				{Kind: IdentifierToken, Pos: 1, Text: "x", Value: "x"},
			},
		},
		{
			s: `a\3`,
			want: []Token{
				{Kind: IdentifierToken, Pos: 0, Text: "a", Value: "a"},
				{Kind: LiveToken, Pos: 1, Text: `\`},
				{Kind: NumeralToken, Pos: 2, Text: "3"},
			},
		},
		{
			s: ".. ... . , ; :",
			want: []Token{
				{Kind: ConcatToken, Pos: 0, Text: ".."},
				{Kind: VarargToken, Pos: 3, Text: "...", Space: " "},
				{Kind: DotToken, Pos: 7, Text: ".", Space: " "},
				{Kind: CommaToken, Pos: 9, Text: ",", Space: " "},
				{Kind: SemiToken, Pos: 11, Text: ";", Space: " "},
				{Kind: ColonToken, Pos: 13, Text: ":", Space: " "},
			},
		},
		{
			s: "while true do break end",
			want: []Token{
				{Kind: WhileToken, Pos: 0, Text: "while"},
				{Kind: TrueToken, Pos: 6, Text: "true", Space: " "},
				{Kind: DoToken, Pos: 11, Text: "do", Space: " "},
				{Kind: BreakToken, Pos: 14, Text: "break", Space: " "},
				{Kind: EndToken, Pos: 20, Text: "end", Space: " "},
			},
		},
		{
			s: "a[1] = {x = 2}",
			want: []Token{
				{Kind: IdentifierToken, Pos: 0, Text: "a", Value: "a"},
				{Kind: LBracketToken, Pos: 1, Text: "["},
				{Kind: NumeralToken, Pos: 2, Text: "1"},
				{Kind: RBracketToken, Pos: 3, Text: "]"},
				{Kind: AssignToken, Pos: 5, Text: "=", Space: " "},
				{Kind: LBraceToken, Pos: 7, Text: "{", Space: " "},
				{Kind: IdentifierToken, Pos: 8, Text: "x", Value: "x"},
				{Kind: AssignToken, Pos: 10, Text: "=", Space: " "},
				{Kind: NumeralToken, Pos: 12, Text: "2", Space: " "},
				{Kind: RBraceToken, Pos: 13, Text: "}"},
			},
		},
		{s: `"unterminated`, bad: true},
		{s: "'newline\n'", bad: true},
		{s: "3x", bad: true},
		{s: "~", bad: true},
		{s: "?", bad: true},
		{s: "[==[never closed", bad: true},
	}
	for _, test := range tests {
		got, err := Tokenize(test.s)
		if err != nil != test.bad {
			wantErr := "<nil>"
			if test.bad {
				wantErr = "<error>"
			}
			t.Errorf("Tokenize(%q) error = %v; want %s", test.s, err, wantErr)
			continue
		}
		if test.bad {
			continue
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("Tokenize(%q) (-want +got):\n%s", test.s, diff)
		}
	}
}

func TestSerialize(t *testing.T) {
	sources := []string{
		"",
		"x = 1 + 2  -- trailing comment\nprint(x)\n",
		"for i=1, 10, 1 do \n    print('hello world ', i)\nend",
		"s = [==[\nlong\nstring]==] .. 'tail'",
	}
	for _, src := range sources {
		tokens, err := Tokenize(src)
		if err != nil {
			t.Errorf("Tokenize(%q): %v", src, err)
			continue
		}
		if got := Serialize(tokens); got != src {
			t.Errorf("Serialize(Tokenize(%q)) = %q", src, got)
		}
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		s    string
		want string
	}{
		{``, `""`},
		{`abc`, `"abc"`},
		{"a\nb", `"a\nb"`},
		{`a"b`, `"a\"b"`},
		{`a\b`, `"a\\b"`},
		{"\x00", `"\0"`},
		{"\x001", `"\0001"`},
		{"\x07\x0b", `"\a\v"`},
		{"\xff", `"\255"`},
	}
	for _, test := range tests {
		if got := Quote(test.s); got != test.want {
			t.Errorf("Quote(%q) = %s; want %s", test.s, got, test.want)
		}
	}
}

func TestQuoteRoundTrip(t *testing.T) {
	tests := []string{
		"",
		"hello",
		"tab\tnewline\n",
		`quotes "'`,
		"\x00\x01\xfe\xff",
		"hello world 123",
	}
	for _, test := range tests {
		quoted := Quote(test)
		got, err := Unquote(quoted)
		if got != test || err != nil {
			t.Errorf("Unquote(Quote(%q)) = Unquote(%s) = %q, %v; want %q, <nil>", test, quoted, got, err, test)
		}
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		s    string
		want float64
		bad  bool
	}{
		{s: "3", want: 3},
		{s: "345", want: 345},
		{s: "3.0", want: 3},
		{s: "3.1416", want: 3.1416},
		{s: "314.16e-2", want: 3.1416},
		{s: "0.31416E1", want: 3.1416},
		{s: "34e1", want: 340},
		{s: "0xff", want: 255},
		{s: "0x0.8", want: 0.5},
		{s: "0xA23p-4", want: 0xa23p-4},
		{s: ".5", want: 0.5},
		{s: "5.", want: 5},
		{s: "  42  ", want: 42},
		{s: "-7", want: -7},
		{s: "inf", bad: true},
		{s: "nan", bad: true},
		{s: "1_000", bad: true},
		{s: "bork", bad: true},
		{s: "", bad: true},
	}
	for _, test := range tests {
		got, err := ParseNumber(test.s)
		if err != nil != test.bad {
			t.Errorf("ParseNumber(%q) error = %v; want bad=%t", test.s, err, test.bad)
			continue
		}
		if !test.bad && got != test.want {
			t.Errorf("ParseNumber(%q) = %g; want %g", test.s, got, test.want)
		}
	}
}
