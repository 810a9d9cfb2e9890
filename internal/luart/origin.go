// Copyright 2025 The MiniLua Authors
// SPDX-License-Identifier: MIT

package luart

import (
	"math"

	"minilua.dev/pkg/internal/lualex"
)

// An Origin records how a value was derived from source literals.
// Reverse answers the inverse question:
// which source change would make this expression evaluate to target?
//
// Origins hold copies of their operand values,
// frozen at evaluation time,
// so reverse evaluation operates against a snapshot.
type Origin interface {
	// Reverse returns a source change that, if applied and the program
	// re-run, would make this expression evaluate to target.
	// It returns nil if no such change exists
	// within the system's rewriting ability.
	Reverse(target Value) SourceChange
	// Tokens returns all source tokens backing this origin.
	Tokens() []lualex.Token
	// Dirty reports whether an applied source change has invalidated
	// this origin, so that re-evaluation would produce a different value.
	Dirty() bool
	// WithIdentifier returns a copy of the origin tagged with the given
	// identifier, used as the hint on emitted changes.
	WithIdentifier(name string) Origin
	// WithUpdatedRanges returns a copy of the origin whose token offsets
	// are rebased through the given range map.
	WithUpdatedRanges(m RangeMap) Origin
}

// literalOrigin marks a value that came from source literals.
type literalOrigin struct {
	location   []lualex.Token
	identifier string
	dirty      bool
}

// NewLiteralOrigin returns an origin for a value
// backed by the given literal tokens.
func NewLiteralOrigin(tokens ...lualex.Token) Origin {
	return &literalOrigin{location: tokens}
}

func (o *literalOrigin) Reverse(target Value) SourceChange {
	lit, err := target.ToLiteral()
	if err != nil {
		return nil
	}
	// Replace the first token with the new literal and blank the rest.
	and := new(And)
	for i, tok := range o.location {
		single := &Single{Pos: tok.Pos, OldText: tok.Text}
		if i == 0 {
			single.Replacement = lit
			single.Hint = o.identifier
		}
		and.Changes = append(and.Changes, single)
	}
	if len(and.Changes) == 0 {
		return nil
	}
	return and
}

func (o *literalOrigin) Tokens() []lualex.Token {
	return o.location
}

func (o *literalOrigin) Dirty() bool {
	return o.dirty
}

func (o *literalOrigin) WithIdentifier(name string) Origin {
	c := *o
	c.identifier = name
	return &c
}

func (o *literalOrigin) WithUpdatedRanges(m RangeMap) Origin {
	c := *o
	c.location = make([]lualex.Token, len(o.location))
	for i, tok := range o.location {
		if m.Replaced(tok.Pos, tok.Len()) {
			c.dirty = true
		}
		tok.Pos = m.MapOffset(tok.Pos)
		c.location[i] = tok
	}
	return &c
}

// unaryOrigin marks a value produced by a unary operator.
type unaryOrigin struct {
	operand    Value
	op         lualex.Token
	identifier string
}

// NewUnaryOrigin returns an origin for op(operand),
// or nil if the operand itself has no origin.
func NewUnaryOrigin(operand Value, op lualex.Token) Origin {
	if operand.Origin() == nil {
		return nil
	}
	return &unaryOrigin{operand: operand, op: op}
}

func (o *unaryOrigin) Reverse(target Value) SourceChange {
	switch o.op.Kind {
	case lualex.SubToken:
		if !target.IsNumber() {
			return nil
		}
		var result SourceChange
		// First alternative: negate the operand, keeping the leading "-".
		// Skipped when the operand literal directly follows the minus sign:
		// rewriting it to a negative numeral would fuse into "--",
		// which starts a comment.
		if !o.operandAdjacent() {
			result = MergeOr(result, o.operand.Force(Number(-target.Number())))
		}
		// Second alternative: change the operand to the target
		// and delete the "-" itself.
		if operandChange := o.operand.Force(target); operandChange != nil {
			deleteOp := &Single{Pos: o.op.Pos, OldText: o.op.Text, Hint: o.identifier}
			result = MergeOr(result, MergeAnd(operandChange, deleteOp))
		}
		return result
	case lualex.NotToken:
		b, isBool := boolValue(target)
		if !isBool {
			return nil
		}
		if Bool(!o.operand.ToBool()).Equal(target) {
			// Already evaluates to the target.
			return nil
		}
		return o.operand.Force(Bool(!b))
	case lualex.LiveToken:
		return o.operand.Force(target)
	default:
		return nil
	}
}

// operandAdjacent reports whether the operand's first backing token
// immediately follows the operator token in the source.
func (o *unaryOrigin) operandAdjacent() bool {
	lit, ok := o.operand.Origin().(*literalOrigin)
	if !ok || len(lit.location) == 0 {
		return false
	}
	return lit.location[0].Pos == o.op.End()
}

func (o *unaryOrigin) Tokens() []lualex.Token {
	tokens := []lualex.Token{o.op}
	if inner := o.operand.Origin(); inner != nil {
		tokens = append(tokens, inner.Tokens()...)
	}
	return tokens
}

func (o *unaryOrigin) Dirty() bool {
	inner := o.operand.Origin()
	return inner != nil && inner.Dirty()
}

func (o *unaryOrigin) WithIdentifier(name string) Origin {
	c := *o
	c.identifier = name
	return &c
}

func (o *unaryOrigin) WithUpdatedRanges(m RangeMap) Origin {
	c := *o
	c.op.Pos = m.MapOffset(o.op.Pos)
	if inner := o.operand.Origin(); inner != nil {
		c.operand = o.operand.WithOrigin(inner.WithUpdatedRanges(m))
	}
	return &c
}

// binaryOrigin marks a value produced by a binary operator.
type binaryOrigin struct {
	lhs, rhs   Value
	op         lualex.Token
	identifier string
}

// NewBinaryOrigin returns an origin for lhs op rhs,
// or nil if neither operand has an origin.
func NewBinaryOrigin(lhs, rhs Value, op lualex.Token) Origin {
	if lhs.Origin() == nil && rhs.Origin() == nil {
		return nil
	}
	return &binaryOrigin{lhs: lhs, rhs: rhs, op: op}
}

func (o *binaryOrigin) Reverse(target Value) SourceChange {
	switch o.op.Kind {
	case lualex.AndToken, lualex.OrToken:
		// Force the operand that the operator selected.
		surviving := o.rhs
		if (o.op.Kind == lualex.AndToken) != o.lhs.ToBool() {
			surviving = o.lhs
		}
		return surviving.Force(target)
	case lualex.LiveToken:
		// Both sides must come to agree with the target.
		return MergeAnd(o.lhs.Force(target), o.rhs.Force(target))
	}

	if !target.IsNumber() {
		return nil
	}
	v := target.Number()
	a, b := o.lhs.Number(), o.rhs.Number()

	// A side can absorb the force when it has an origin
	// and its partner holds a known number to invert against.
	var result SourceChange
	forceLHS := func(newLHS float64) {
		if o.lhs.Origin() != nil && o.rhs.IsNumber() {
			result = MergeOr(result, o.lhs.Force(Number(newLHS)))
		}
	}
	forceRHS := func(newRHS float64) {
		if o.rhs.Origin() != nil && o.lhs.IsNumber() {
			result = MergeOr(result, o.rhs.Force(Number(newRHS)))
		}
	}

	switch o.op.Kind {
	case lualex.AddToken:
		forceLHS(v - b)
		forceRHS(v - a)
	case lualex.SubToken:
		forceLHS(v + b)
		forceRHS(a - v)
	case lualex.MulToken:
		forceLHS(v / b)
		forceRHS(v / a)
	case lualex.DivToken:
		forceLHS(v * b)
		forceRHS(a / v)
	case lualex.PowToken:
		forceLHS(math.Pow(v, 1/b))
		if newRHS := math.Log(v) / math.Log(a); !math.IsNaN(newRHS) {
			forceRHS(newRHS)
		}
	case lualex.ModToken:
		if b > v {
			forceLHS(v)
		}
		forceRHS(a - v)
	}
	return result
}

func (o *binaryOrigin) Tokens() []lualex.Token {
	tokens := []lualex.Token{o.op}
	if inner := o.lhs.Origin(); inner != nil {
		tokens = append(tokens, inner.Tokens()...)
	}
	if inner := o.rhs.Origin(); inner != nil {
		tokens = append(tokens, inner.Tokens()...)
	}
	return tokens
}

func (o *binaryOrigin) Dirty() bool {
	if inner := o.lhs.Origin(); inner != nil && inner.Dirty() {
		return true
	}
	inner := o.rhs.Origin()
	return inner != nil && inner.Dirty()
}

func (o *binaryOrigin) WithIdentifier(name string) Origin {
	c := *o
	c.identifier = name
	return &c
}

func (o *binaryOrigin) WithUpdatedRanges(m RangeMap) Origin {
	c := *o
	c.op.Pos = m.MapOffset(o.op.Pos)
	if inner := o.lhs.Origin(); inner != nil {
		c.lhs = o.lhs.WithOrigin(inner.WithUpdatedRanges(m))
	}
	if inner := o.rhs.Origin(); inner != nil {
		c.rhs = o.rhs.WithOrigin(inner.WithUpdatedRanges(m))
	}
	return &c
}

// lambdaOrigin is the escape hatch for native functions:
// it captures the argument the function was applied to
// and an arbitrary inversion closure.
type lambdaOrigin struct {
	operand Value
	reverse func(operand, target Value) SourceChange
}

// NewLambdaOrigin returns an origin whose reverse is computed
// by the given closure over the captured operand,
// or nil if the operand has no origin of its own.
func NewLambdaOrigin(operand Value, reverse func(operand, target Value) SourceChange) Origin {
	if operand.Origin() == nil {
		return nil
	}
	return &lambdaOrigin{operand: operand, reverse: reverse}
}

func (o *lambdaOrigin) Reverse(target Value) SourceChange {
	return o.reverse(o.operand, target)
}

func (o *lambdaOrigin) Tokens() []lualex.Token {
	if inner := o.operand.Origin(); inner != nil {
		return inner.Tokens()
	}
	return nil
}

func (o *lambdaOrigin) Dirty() bool {
	inner := o.operand.Origin()
	return inner != nil && inner.Dirty()
}

func (o *lambdaOrigin) WithIdentifier(name string) Origin {
	return o
}

func (o *lambdaOrigin) WithUpdatedRanges(m RangeMap) Origin {
	c := *o
	if inner := o.operand.Origin(); inner != nil {
		c.operand = o.operand.WithOrigin(inner.WithUpdatedRanges(m))
	}
	return &c
}

func boolValue(v Value) (b, isBool bool) {
	p, isBool := v.p.(boolPayload)
	return bool(p), isBool
}
