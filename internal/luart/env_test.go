// Copyright 2025 The MiniLua Authors
// SPDX-License-Identifier: MIT

package luart

import (
	"testing"
)

func TestEnvironmentScoping(t *testing.T) {
	root := NewEnvironment()
	root.SetVar("a", Number(1))
	if got := root.GetVar("a"); !got.Equal(Number(1)) {
		t.Errorf("GetVar(a) = %s; want 1", got.ToString())
	}

	child := root.Child()
	if got := child.GetVar("a"); !got.Equal(Number(1)) {
		t.Errorf("child GetVar(a) = %s; want 1", got.ToString())
	}

	// Plain assignment in the child updates the outer binding.
	child.SetVar("a", Number(2))
	if got := root.GetVar("a"); !got.Equal(Number(2)) {
		t.Errorf("root GetVar(a) after child SetVar = %s; want 2", got.ToString())
	}

	// A local shadows without touching the outer binding.
	child.SetLocal("a", Number(3))
	child.SetVar("a", Number(4))
	if got := root.GetVar("a"); !got.Equal(Number(2)) {
		t.Errorf("root GetVar(a) after shadowed SetVar = %s; want 2", got.ToString())
	}
	if got := child.GetVar("a"); !got.Equal(Number(4)) {
		t.Errorf("child GetVar(a) = %s; want 4", got.ToString())
	}
}

func TestEnvironmentUnboundReadsNil(t *testing.T) {
	env := NewEnvironment()
	if got := env.GetVar("never_bound"); !got.IsNil() {
		t.Errorf("GetVar(never_bound) = %s; want nil", got.ToString())
	}
}

func TestEnvironmentAssignFallsBackToGlobal(t *testing.T) {
	root := NewEnvironment()
	inner := root.Child().Child()
	inner.SetVar("g", Number(7))
	if got := root.GetGlobal("g"); !got.Equal(Number(7)) {
		t.Errorf("GetGlobal(g) = %s; want 7", got.ToString())
	}
}

func TestNilLocalStillShadows(t *testing.T) {
	root := NewEnvironment()
	root.SetVar("a", Number(1))
	child := root.Child()
	child.DeclareLocal("a")
	if got := child.GetVar("a"); !got.IsNil() {
		t.Errorf("GetVar(a) = %s; want nil (shadowed)", got.ToString())
	}
	child.SetVar("a", Number(5))
	if got := root.GetVar("a"); !got.Equal(Number(1)) {
		t.Errorf("root GetVar(a) = %s; want 1 (untouched)", got.ToString())
	}
}

func TestGlobalsTableSelfReference(t *testing.T) {
	env := NewEnvironment()
	PopulateStdlib(env)

	g := env.GetGlobal("_G").Table()
	if g == nil {
		t.Fatal("_G is not a table")
	}
	if g != env.Globals() {
		t.Error("_G is not the globals table")
	}
	// _G._G._G reflects back to the same table.
	inner := g.Get(String("_G")).Table()
	if inner != g {
		t.Error("_G._G is not _G")
	}

	// Globals set through the table are visible as variables.
	g.Set(String("fromTable"), Number(9))
	if got := env.GetVar("fromTable"); !got.Equal(Number(9)) {
		t.Errorf("GetVar(fromTable) = %s; want 9", got.ToString())
	}
}

func TestVarargs(t *testing.T) {
	root := NewEnvironment()
	fnEnv := root.Child()
	fnEnv.SetVarargs(NewVallist(Number(1), Number(2)))

	// Nested blocks see the enclosing function's varargs.
	block := fnEnv.Child()
	got := block.GetVarargs()
	if got == nil || len(got.Values) != 2 {
		t.Fatalf("GetVarargs() = %v; want 2 values", got)
	}

	if root.GetVarargs() != nil {
		t.Error("root GetVarargs() != nil; want nil")
	}
}
