// Copyright 2025 The MiniLua Authors
// SPDX-License-Identifier: MIT

// Package minilua is an interpreter for a subset of Lua 5
// with bidirectional evaluation:
// every runtime value carries an origin recording how it was derived
// from source literals,
// and the interpreter can answer the inverse question —
// which edit to the source text would make an expression
// evaluate to a different value —
// by returning a source change the host can apply to the program text.
package minilua

import (
	"context"
	"fmt"

	"minilua.dev/pkg/internal/lualex"
	"minilua.dev/pkg/internal/luart"
	"minilua.dev/pkg/internal/luasyntax"
)

// Re-exported runtime types.
// The runtime package is internal;
// hosts interact with it through these names.
type (
	// Value is a Lua value paired with an optional origin.
	Value = luart.Value
	// Environment is a scope chain rooted at the global scope.
	Environment = luart.Environment
	// SourceChange is a tree of edits combined by And/Or nodes.
	SourceChange = luart.SourceChange
	// Single is one token replacement.
	Single = luart.Single
	// RangeMap translates byte offsets across an applied edit.
	RangeMap = luart.RangeMap
	// Table is the Lua table type.
	Table = luart.Table
	// Vallist packs multiple values.
	Vallist = luart.Vallist
	// CallResult is what a native function returns.
	CallResult = luart.CallResult
)

// Value constructors for host-inserted bindings.
var (
	// NumberValue returns a number value.
	NumberValue = luart.Number
	// StringValue returns a string value.
	StringValue = luart.String
	// BoolValue returns a boolean value.
	BoolValue = luart.Bool
	// NilValue is the nil value.
	NilValue = luart.Nil
	// NewGoFunction returns a native function value.
	NewGoFunction = luart.NewGoFunction
)

// CollectFirstAlternative flattens a change tree into the edits of its
// preferred alternative.
func CollectFirstAlternative(sc SourceChange) []*Single {
	return luart.CollectFirstAlternative(sc)
}

// An Interpreter owns a source text, its parse, and an environment.
// It is not safe for concurrent use.
type Interpreter struct {
	source string
	tokens []lualex.Token
	chunk  *luasyntax.Chunk
	env    *luart.Environment
}

// New returns an interpreter with an empty source
// and an environment populated with the standard bindings.
func New() *Interpreter {
	env := luart.NewEnvironment()
	luart.PopulateStdlib(env)
	return &Interpreter{env: env}
}

// NewFromSource returns an interpreter preloaded with source,
// along with the result of parsing it.
func NewFromSource(source string) (*Interpreter, ParseResult) {
	in := New()
	return in, in.Parse(source)
}

// Environment returns the interpreter's environment
// so a host can insert bindings before running.
func (in *Interpreter) Environment() *Environment {
	return in.env
}

// SourceCode returns the current program text.
func (in *Interpreter) SourceCode() string {
	return in.source
}

// ParseResult reports the outcome of a parse.
type ParseResult struct {
	// Errors holds parse error messages.
	// An empty list means the parse succeeded.
	Errors []string
}

// Ok reports whether the parse succeeded.
func (r ParseResult) Ok() bool {
	return len(r.Errors) == 0
}

// Parse replaces the interpreter's source text and parses it.
// Evaluating after a failed parse is undefined.
func (in *Interpreter) Parse(source string) ParseResult {
	in.source = source
	chunk, tokens, err := luasyntax.Parse(source)
	in.tokens = tokens
	in.chunk = chunk
	if err != nil {
		return ParseResult{Errors: []string{err.Error()}}
	}
	return ParseResult{}
}

// EvalResult pairs the program's result value with the source changes
// surfaced during evaluation (by builtins like force).
type EvalResult struct {
	Value        Value
	SourceChange SourceChange
}

// Evaluate runs the most recently parsed source.
// The context bounds evaluation alongside the visit-count guard.
func (in *Interpreter) Evaluate(ctx context.Context) (EvalResult, error) {
	if in.chunk == nil {
		return EvalResult{}, fmt.Errorf("minilua: evaluate: no parsed source")
	}
	value, sc, err := luart.Evaluate(ctx, in.chunk, in.env)
	if err != nil {
		return EvalResult{}, fmt.Errorf("minilua: evaluate: %w", err)
	}
	return EvalResult{Value: value, SourceChange: sc}, nil
}

// ApplySourceChanges rewrites the stored source text with the given
// edits and returns the offset remapping.
// The rewritten source must be re-parsed before the next evaluation;
// values holding origins can be rebased through the returned map.
func (in *Interpreter) ApplySourceChanges(changes []*Single) (RangeMap, error) {
	newTokens, m, err := luart.ApplyChanges(in.tokens, changes)
	if err != nil {
		return RangeMap{}, fmt.Errorf("minilua: %v", err)
	}
	in.tokens = newTokens
	in.source = lualex.Serialize(newTokens)
	return m, nil
}
