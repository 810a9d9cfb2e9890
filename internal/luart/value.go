// Copyright 2025 The MiniLua Authors
// SPDX-License-Identifier: MIT

// Package luart implements the interpreter runtime:
// values paired with origins, the environment chain,
// the tree-walking evaluator, the operator kernel,
// and the source-change algebra and applier.
package luart

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"minilua.dev/pkg/internal/lualex"
	"minilua.dev/pkg/internal/luasyntax"
)

// Type is an enumeration of the interpreter's data types.
type Type int

// Value types.
const (
	TypeNil Type = iota
	TypeBool
	TypeNumber
	TypeString
	TypeTable
	TypeFunction
	TypeVallist
)

// String returns the Lua name of the type ("nil", "number", ...).
func (tp Type) String() string {
	switch tp {
	case TypeNil:
		return "nil"
	case TypeBool:
		return "bool"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeTable:
		return "table"
	case TypeFunction:
		return "function"
	case TypeVallist:
		return "vallist"
	default:
		return fmt.Sprintf("luart.Type(%d)", int(tp))
	}
}

// payload is the internal representation of a value
// without its origin.
type payload interface {
	payloadType() Type
}

type boolPayload bool
type numberPayload float64
type stringPayload string

func (boolPayload) payloadType() Type   { return TypeBool }
func (numberPayload) payloadType() Type { return TypeNumber }
func (stringPayload) payloadType() Type { return TypeString }

// A Value is a tagged Lua value with an optional origin
// describing how it was derived from source literals.
// Values are cheap to copy;
// tables, functions, and vallists are reference-shared.
type Value struct {
	p      payload
	origin Origin
}

// Nil is the nil value without an origin.
var Nil = Value{}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{p: boolPayload(b)}
}

// Number returns a number value.
func Number(f float64) Value {
	return Value{p: numberPayload(f)}
}

// Int returns a number value for an integer.
func Int(i int) Value {
	return Value{p: numberPayload(i)}
}

// String returns a string value.
func String(s string) Value {
	return Value{p: stringPayload(s)}
}

// Type returns the value's type tag.
func (v Value) Type() Type {
	if v.p == nil {
		return TypeNil
	}
	return v.p.payloadType()
}

// TypeName returns the type tag's name.
func (v Value) TypeName() string {
	return v.Type().String()
}

// IsNil reports whether the value is nil.
func (v Value) IsNil() bool {
	return v.p == nil
}

// IsNumber reports whether the value is a number.
func (v Value) IsNumber() bool {
	_, ok := v.p.(numberPayload)
	return ok
}

// Number returns the numeric payload.
// It is zero if the value is not a number.
func (v Value) Number() float64 {
	n, _ := v.p.(numberPayload)
	return float64(n)
}

// Str returns the string payload and whether the value is a string.
func (v Value) Str() (string, bool) {
	s, ok := v.p.(stringPayload)
	return string(s), ok
}

// Table returns the table payload, or nil if the value is not a table.
func (v Value) Table() *Table {
	t, _ := v.p.(*Table)
	return t
}

// GoFunc returns the native function payload,
// or nil if the value is not a native function.
func (v Value) GoFunc() *GoFunction {
	f, _ := v.p.(*GoFunction)
	return f
}

// LuaFunc returns the Lua function payload,
// or nil if the value is not a Lua function.
func (v Value) LuaFunc() *LuaFunction {
	f, _ := v.p.(*LuaFunction)
	return f
}

// Vallist returns the vallist payload,
// or nil if the value is not a vallist.
func (v Value) Vallist() *Vallist {
	l, _ := v.p.(*Vallist)
	return l
}

// ToBool returns the value's truthiness:
// exactly nil and false are falsey.
func (v Value) ToBool() bool {
	if v.p == nil {
		return false
	}
	b, ok := v.p.(boolPayload)
	return !ok || bool(b)
}

// Origin returns the value's origin, or nil if it has none.
func (v Value) Origin() Origin {
	return v.origin
}

// WithOrigin returns a copy of the value re-tagged with the given origin.
func (v Value) WithOrigin(o Origin) Value {
	v.origin = o
	return v
}

// StripOrigin returns a copy of the value with no origin.
func (v Value) StripOrigin() Value {
	v.origin = nil
	return v
}

// Force asks the value's origin for a source change that would make
// this expression evaluate to target instead.
// It returns nil if the value has no origin
// or no such change exists.
func (v Value) Force(target Value) SourceChange {
	if v.origin == nil {
		return nil
	}
	return v.origin.Reverse(target)
}

// Equal reports value equality:
// structural for nil, booleans, numbers, and strings;
// reference identity for tables and functions.
// Values of different types are unequal.
func (v Value) Equal(w Value) bool {
	switch a := v.p.(type) {
	case nil:
		return w.p == nil
	case boolPayload:
		b, ok := w.p.(boolPayload)
		return ok && a == b
	case numberPayload:
		b, ok := w.p.(numberPayload)
		return ok && a == b
	case stringPayload:
		b, ok := w.p.(stringPayload)
		return ok && a == b
	case *Table:
		b, ok := w.p.(*Table)
		return ok && a == b
	case *GoFunction:
		b, ok := w.p.(*GoFunction)
		return ok && a == b
	case *LuaFunction:
		b, ok := w.p.(*LuaFunction)
		return ok && a == b
	case *Vallist:
		b, ok := w.p.(*Vallist)
		return ok && a == b
	default:
		return false
	}
}

// ToString returns the human-readable form used by print.
func (v Value) ToString() string {
	switch p := v.p.(type) {
	case nil:
		return "nil"
	case boolPayload:
		if p {
			return "true"
		}
		return "false"
	case numberPayload:
		return formatNumber(float64(p))
	case stringPayload:
		return string(p)
	case *Table:
		return fmt.Sprintf("table: 0x%08x", p.id)
	case *GoFunction:
		return fmt.Sprintf("function: builtin: %s", p.Name)
	case *LuaFunction:
		return fmt.Sprintf("function: 0x%08x", p.id)
	case *Vallist:
		parts := make([]string, 0, len(p.Values))
		for _, elem := range p.Values {
			parts = append(parts, elem.ToString())
		}
		return strings.Join(parts, ", ")
	default:
		return "invalid"
	}
}

// ToLiteral returns source-level syntax that evaluates back to the value.
// Strings are quoted and numbers minimally formatted.
// ToLiteral returns an error for values with no source form
// (functions, vallists) and for cyclic tables.
func (v Value) ToLiteral() (string, error) {
	sb := new(strings.Builder)
	if err := v.appendLiteral(sb, make(map[*Table]bool)); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (v Value) appendLiteral(sb *strings.Builder, visiting map[*Table]bool) error {
	switch p := v.p.(type) {
	case nil:
		sb.WriteString("nil")
	case boolPayload:
		if p {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case numberPayload:
		sb.WriteString(formatNumber(float64(p)))
	case stringPayload:
		sb.WriteString(lualex.Quote(string(p)))
	case *Table:
		if visiting[p] {
			return fmt.Errorf("cannot write cyclic table as literal")
		}
		visiting[p] = true
		sb.WriteByte('{')
		for i, e := range p.entries {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('[')
			if err := e.key.appendLiteral(sb, visiting); err != nil {
				return err
			}
			sb.WriteString("] = ")
			if err := e.value.appendLiteral(sb, visiting); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
		delete(visiting, p)
	default:
		return fmt.Errorf("%v has no literal form", v.Type())
	}
	return nil
}

// formatNumber formats a float the way Lua prints numbers:
// integral values without a decimal point,
// everything else in the shortest round-trip form.
func formatNumber(f float64) string {
	if f == float64(int64(f)) && f >= -1e15 && f <= 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// compareValues imposes a total order over values
// so table entries stay sorted and iteration is deterministic.
// Values of differing types are ordered by their [Type] tags;
// tables and functions are ordered by allocation id.
func compareValues(v1, v2 Value) int {
	if c := cmp.Compare(v1.Type(), v2.Type()); c != 0 {
		return c
	}
	switch a := v1.p.(type) {
	case nil:
		return 0
	case boolPayload:
		b := v2.p.(boolPayload)
		switch {
		case bool(a && !b):
			return 1
		case bool(!a && b):
			return -1
		default:
			return 0
		}
	case numberPayload:
		return cmp.Compare(a, v2.p.(numberPayload))
	case stringPayload:
		return cmp.Compare(a, v2.p.(stringPayload))
	case *Table:
		return cmp.Compare(a.id, v2.p.(*Table).id)
	case *GoFunction:
		return cmp.Compare(a.id, v2.p.(*GoFunction).id)
	case *LuaFunction:
		return cmp.Compare(a.id, v2.p.(*LuaFunction).id)
	case *Vallist:
		return cmp.Compare(a.id, v2.p.(*Vallist).id)
	default:
		panic("unhandled type")
	}
}

// A Table maps values to values.
// All copies of a table value alias the same storage.
// Entries are kept sorted by the total value order,
// so lookup is a binary search and iteration is deterministic.
type Table struct {
	id      uint64
	entries []tableEntry
}

type tableEntry struct {
	key, value Value
}

// NewTable returns a new, empty table.
func NewTable() *Table {
	return &Table{id: nextID()}
}

// Value returns the table as a [Value] without an origin.
func (tab *Table) Value() Value {
	return Value{p: tab}
}

// Get returns the value stored for a key,
// or nil if the key is absent.
// Keys are compared ignoring origins.
func (tab *Table) Get(key Value) Value {
	if tab == nil {
		return Nil
	}
	i, found := findEntry(tab.entries, key)
	if !found {
		return Nil
	}
	return tab.entries[i].value
}

// Set stores a value for a key.
// Storing nil removes the entry.
// The key's origin is discarded.
func (tab *Table) Set(key, value Value) error {
	if key.IsNil() {
		return fmt.Errorf("table index is nil")
	}
	key = key.StripOrigin()
	i, found := findEntry(tab.entries, key)
	switch {
	case found && !value.IsNil():
		tab.entries[i].value = value
	case found && value.IsNil():
		tab.entries = slices.Delete(tab.entries, i, i+1)
	case !found && !value.IsNil():
		tab.entries = slices.Insert(tab.entries, i, tableEntry{key: key, value: value})
	}
	return nil
}

// Len returns the number of entries in the table.
func (tab *Table) Len() int {
	if tab == nil {
		return 0
	}
	return len(tab.entries)
}

// Next returns the entry following the given key in iteration order,
// or ok=false when iteration is exhausted.
// A nil key starts the iteration.
func (tab *Table) Next(key Value) (nextKey, value Value, ok bool) {
	if tab == nil || len(tab.entries) == 0 {
		return Nil, Nil, false
	}
	var i int
	if key.IsNil() {
		i = 0
	} else {
		j, found := findEntry(tab.entries, key)
		if !found {
			return Nil, Nil, false
		}
		i = j + 1
	}
	if i >= len(tab.entries) {
		return Nil, Nil, false
	}
	e := tab.entries[i]
	return e.key, e.value, true
}

// Border returns the table's border:
// the largest n such that the keys 1..n are all present.
// This is the Lua length ("#") operator for tables.
func (tab *Table) Border() int {
	if tab == nil {
		return 0
	}
	n := 0
	for {
		if _, found := findEntry(tab.entries, Int(n+1)); !found {
			return n
		}
		n++
	}
}

func findEntry(entries []tableEntry, key Value) (int, bool) {
	return slices.BinarySearchFunc(entries, key, func(e tableEntry, key Value) int {
		return compareValues(e.key, key)
	})
}

func (tab *Table) payloadType() Type { return TypeTable }

// CallResult is what a native function returns:
// a list of result values and, optionally,
// a source-change tree to surface to the caller
// (the mechanism behind the force builtin).
type CallResult struct {
	Values *Vallist
	Change SourceChange
}

// A GoFunction is a host-provided callable.
type GoFunction struct {
	id   uint64
	Name string
	Fn   func(args *Vallist) (CallResult, error)
}

// NewGoFunction returns a native function value.
func NewGoFunction(name string, fn func(args *Vallist) (CallResult, error)) Value {
	return Value{p: &GoFunction{id: nextID(), Name: name, Fn: fn}}
}

func (f *GoFunction) payloadType() Type { return TypeFunction }

// A LuaFunction pairs a function body with the environment
// that was active when the function was defined.
type LuaFunction struct {
	id       uint64
	Params   []string
	IsVararg bool
	Body     *luasyntax.Chunk
	Env      *Environment
}

func (f *LuaFunction) payloadType() Type { return TypeFunction }

// A Vallist packs multiple values.
// In a non-tail position of a sequence it collapses to its first element;
// in tail position it spreads.
type Vallist struct {
	id     uint64
	Values []Value
}

// NewVallist returns a vallist over the given values.
func NewVallist(values ...Value) *Vallist {
	return &Vallist{id: nextID(), Values: values}
}

// Value returns the vallist as a [Value].
func (l *Vallist) Value() Value {
	return Value{p: l}
}

// First returns the vallist's first element, or nil if it is empty.
func (l *Vallist) First() Value {
	if l == nil || len(l.Values) == 0 {
		return Nil
	}
	return l.Values[0]
}

// Arg returns the i-th element, or nil if the list is shorter.
func (l *Vallist) Arg(i int) Value {
	if l == nil || i >= len(l.Values) {
		return Nil
	}
	return l.Values[i]
}

func (l *Vallist) payloadType() Type { return TypeVallist }

// First collapses a vallist value to its first element;
// any other value passes through unchanged.
func First(v Value) Value {
	if l := v.Vallist(); l != nil {
		return l.First()
	}
	return v
}

// Flatten realises the vallist sequencing rule:
// every element but the last collapses to its first value,
// and a trailing vallist spreads.
func Flatten(values []Value) []Value {
	if len(values) == 0 {
		return nil
	}
	result := make([]Value, 0, len(values))
	for _, v := range values[:len(values)-1] {
		result = append(result, First(v))
	}
	if l := values[len(values)-1].Vallist(); l != nil {
		result = append(result, l.Values...)
	} else {
		result = append(result, values[len(values)-1])
	}
	return result
}

var globalIDs struct {
	mu sync.Mutex
	n  uint64
}

func nextID() uint64 {
	globalIDs.mu.Lock()
	defer globalIDs.mu.Unlock()
	globalIDs.n++
	return globalIDs.n
}
