// Copyright 2025 The MiniLua Authors
// SPDX-License-Identifier: MIT

package luart

import (
	"fmt"
	"math"

	"minilua.dev/pkg/internal/lualex"
)

// The operator kernel.
//
// Each operator is a pure function over operand values.
// On numeric success, the result carries a fresh unary- or binary-op
// origin capturing the original operands
// whenever at least one operand has an origin,
// so that chains of operations preserve derivability.
// On type mismatch, an error describes the offending types.

// Arith evaluates one of the arithmetic operators + - * / % ^.
// Both operands must be numbers.
func Arith(a, b Value, op lualex.Token) (Value, error) {
	if !a.IsNumber() || !b.IsNumber() {
		return Nil, fmt.Errorf("could not apply '%s' to values of type other than number (%v, %v)", opText(op), a.Type(), b.Type())
	}
	x, y := a.Number(), b.Number()
	var r float64
	switch op.Kind {
	case lualex.AddToken:
		r = x + y
	case lualex.SubToken:
		r = x - y
	case lualex.MulToken:
		r = x * y
	case lualex.DivToken:
		r = x / y
	case lualex.ModToken:
		r = math.Mod(x, y)
	case lualex.PowToken:
		r = math.Pow(x, y)
	default:
		return Nil, fmt.Errorf("'%s' is not an arithmetic operator", opText(op))
	}
	return Number(r).WithOrigin(NewBinaryOrigin(a, b, op)), nil
}

// Concat evaluates the ".." operator.
// It stringifies numbers and strings and rejects everything else.
func Concat(a, b Value) (Value, error) {
	if !concatOperand(a) || !concatOperand(b) {
		return Nil, fmt.Errorf("could not concatenate other types than strings or numbers (%v, %v)", a.Type(), b.Type())
	}
	return String(a.ToString() + b.ToString()), nil
}

func concatOperand(v Value) bool {
	if v.IsNumber() {
		return true
	}
	_, isString := v.Str()
	return isString
}

// Compare evaluates one of < <= > >=.
// It is defined on two numbers or two strings (lexicographic).
func Compare(a, b Value, op lualex.Token) (Value, error) {
	var less, equal bool
	switch {
	case a.IsNumber() && b.IsNumber():
		less = a.Number() < b.Number()
		equal = a.Number() == b.Number()
	default:
		as, aok := a.Str()
		bs, bok := b.Str()
		if !aok || !bok {
			return Nil, fmt.Errorf("only strings and numbers can be compared (%v, %v)", a.Type(), b.Type())
		}
		less = as < bs
		equal = as == bs
	}
	switch op.Kind {
	case lualex.LessToken:
		return Bool(less), nil
	case lualex.LessEqualToken:
		return Bool(less || equal), nil
	case lualex.GreaterToken:
		return Bool(!less && !equal), nil
	case lualex.GreaterEqualToken:
		return Bool(!less), nil
	default:
		return Nil, fmt.Errorf("'%s' is not a comparison operator", opText(op))
	}
}

// Equals evaluates == and ~=.
// Equality is structural for primitives,
// by reference for tables and functions,
// and always false across differing types (no coercion).
func Equals(a, b Value, op lualex.Token) (Value, error) {
	eq := a.Equal(b)
	if op.Kind == lualex.NotEqualToken {
		eq = !eq
	}
	return Bool(eq), nil
}

// Len evaluates the unary "#" operator:
// a linear scan for the table border.
func Len(v Value) (Value, error) {
	tab := v.Table()
	if tab == nil {
		return Nil, fmt.Errorf("unary # can only be applied to a table (is %v)", v.Type())
	}
	return Int(tab.Border()), nil
}

// Neg evaluates unary minus on a number,
// attaching a unary origin so the negation stays reversible.
func Neg(v Value, op lualex.Token) (Value, error) {
	if !v.IsNumber() {
		return Nil, fmt.Errorf("unary - can only be applied to a number (is %v)", v.Type())
	}
	return Number(-v.Number()).WithOrigin(NewUnaryOrigin(v, op)), nil
}

// Not evaluates the "not" operator on any value.
// The boolean result carries a unary origin supporting reversal.
func Not(v Value, op lualex.Token) (Value, error) {
	return Bool(!v.ToBool()).WithOrigin(NewUnaryOrigin(v, op)), nil
}

// Strip evaluates the "$" operator:
// it returns the operand with its origin cleared,
// anchoring the value against further forces.
func Strip(v Value) (Value, error) {
	return v.StripOrigin(), nil
}

// LiveEval evaluates the binary "\" operator.
// The result is the left operand (with a binary origin),
// and if the right operand is a plain literal,
// the operator records a change replacing that literal
// with the left operand's literal form.
func LiveEval(a, b Value, op lualex.Token) (Value, SourceChange, error) {
	result := a.WithOrigin(NewBinaryOrigin(a, b, op))
	lit, isLiteral := b.Origin().(*literalOrigin)
	if !isLiteral {
		return result, nil, nil
	}
	newText, err := a.ToLiteral()
	if err != nil {
		return result, nil, nil
	}
	and := new(And)
	for i, tok := range lit.location {
		single := &Single{Pos: tok.Pos, OldText: tok.Text}
		if i == 0 {
			single.Replacement = newText
		}
		and.Changes = append(and.Changes, single)
	}
	return result, and, nil
}

// PostfixLiveEval evaluates the postfix "\" operator:
// the operand passes through (with a unary origin),
// and the operator records a one-shot rewrite of itself
// into "\" followed by the operand's literal form.
func PostfixLiveEval(v Value, op lualex.Token) (Value, SourceChange, error) {
	result := v.WithOrigin(NewUnaryOrigin(v, op))
	lit, err := v.ToLiteral()
	if err != nil {
		return result, nil, nil
	}
	return result, &Single{Pos: op.Pos, OldText: op.Text, Replacement: `\` + lit}, nil
}

func opText(op lualex.Token) string {
	if op.Text != "" {
		return op.Text
	}
	return op.Kind.String()
}
