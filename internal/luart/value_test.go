// Copyright 2025 The MiniLua Authors
// SPDX-License-Identifier: MIT

package luart

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTruthiness(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{Nil, false},
		{Bool(false), false},
		{Bool(true), true},
		{Number(0), true},
		{Number(1), true},
		{String(""), true},
		{String("false"), true},
		{NewTable().Value(), true},
	}
	for _, test := range tests {
		if got := test.v.ToBool(); got != test.want {
			t.Errorf("(%s).ToBool() = %t; want %t", test.v.ToString(), got, test.want)
		}
	}
}

func TestEqual(t *testing.T) {
	tab := NewTable()
	tests := []struct {
		a, b Value
		want bool
	}{
		{Nil, Nil, true},
		{Nil, Bool(false), false},
		{Bool(true), Bool(true), true},
		{Number(1), Number(1), true},
		{Number(1), Number(2), false},
		{Number(0), String("0"), false},
		{String("a"), String("a"), true},
		{tab.Value(), tab.Value(), true},
		{NewTable().Value(), NewTable().Value(), false},
	}
	for _, test := range tests {
		if got := test.a.Equal(test.b); got != test.want {
			t.Errorf("(%s).Equal(%s) = %t; want %t", test.a.ToString(), test.b.ToString(), got, test.want)
		}
	}
}

func TestToLiteral(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Nil, "nil"},
		{Bool(true), "true"},
		{Bool(false), "false"},
		{Number(3), "3"},
		{Number(2.5), "2.5"},
		{Number(-4.5), "-4.5"},
		{String("hi"), `"hi"`},
		{String("a\nb"), `"a\nb"`},
	}
	for _, test := range tests {
		got, err := test.v.ToLiteral()
		if got != test.want || err != nil {
			t.Errorf("(%s).ToLiteral() = %q, %v; want %q, <nil>", test.v.ToString(), got, err, test.want)
		}
	}
}

func TestToLiteralTable(t *testing.T) {
	tab := NewTable()
	tab.Set(Int(1), Number(4))
	tab.Set(String("foo"), String("bar"))
	got, err := tab.Value().ToLiteral()
	if err != nil {
		t.Fatal(err)
	}
	want := `{[1] = 4, ["foo"] = "bar"}`
	if got != want {
		t.Errorf("ToLiteral() = %s; want %s", got, want)
	}
}

func TestToLiteralCyclicTable(t *testing.T) {
	tab := NewTable()
	tab.Set(String("self"), tab.Value())
	if lit, err := tab.Value().ToLiteral(); err == nil {
		t.Errorf("ToLiteral() = %q; want cycle error", lit)
	}
}

func TestTableSetGet(t *testing.T) {
	tab := NewTable()
	if err := tab.Set(String("k"), Number(1)); err != nil {
		t.Fatal(err)
	}
	if got := tab.Get(String("k")); !got.Equal(Number(1)) {
		t.Errorf("Get(k) = %s; want 1", got.ToString())
	}
	if got := tab.Get(String("missing")); !got.IsNil() {
		t.Errorf("Get(missing) = %s; want nil", got.ToString())
	}

	// Storing nil removes the entry.
	if err := tab.Set(String("k"), Nil); err != nil {
		t.Fatal(err)
	}
	if tab.Len() != 0 {
		t.Errorf("Len() = %d after deleting only entry; want 0", tab.Len())
	}

	if err := tab.Set(Nil, Number(1)); err == nil {
		t.Error("Set(nil, 1) succeeded; want error")
	}
}

func TestTableBorder(t *testing.T) {
	tests := []struct {
		keys []Value
		want int
	}{
		{nil, 0},
		{[]Value{Int(1)}, 1},
		{[]Value{Int(1), Int(2), Int(3)}, 3},
		{[]Value{Int(1), Int(2), Int(4)}, 2},
		{[]Value{Int(2)}, 0},
		{[]Value{Int(1), String("x")}, 1},
	}
	for _, test := range tests {
		tab := NewTable()
		for _, k := range test.keys {
			tab.Set(k, Bool(true))
		}
		if got := tab.Border(); got != test.want {
			t.Errorf("Border() with keys %v = %d; want %d", test.keys, got, test.want)
		}
	}
}

func TestTableNext(t *testing.T) {
	tab := NewTable()
	tab.Set(Int(1), String("a"))
	tab.Set(Int(2), String("b"))
	tab.Set(String("x"), String("c"))

	var seen []string
	key := Nil
	for {
		k, v, ok := tab.Next(key)
		if !ok {
			break
		}
		s, _ := v.Str()
		seen = append(seen, s)
		key = k
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, seen); diff != "" {
		t.Errorf("iteration (-want +got):\n%s", diff)
	}
}

func TestFlatten(t *testing.T) {
	inner := NewVallist(Number(1), Number(2))
	tests := []struct {
		name   string
		values []Value
		want   []float64
	}{
		{name: "Empty", values: nil, want: nil},
		{name: "TailSpreads", values: []Value{Number(9), inner.Value()}, want: []float64{9, 1, 2}},
		{name: "NonTailCollapses", values: []Value{inner.Value(), Number(9)}, want: []float64{1, 9}},
		{name: "EmptyListCollapsesToNil", values: []Value{NewVallist().Value(), Number(9)}, want: []float64{0, 9}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := Flatten(test.values)
			if len(got) != len(test.want) {
				t.Fatalf("len = %d; want %d", len(got), len(test.want))
			}
			for i, f := range test.want {
				if test.name == "EmptyListCollapsesToNil" && i == 0 {
					if !got[0].IsNil() {
						t.Errorf("got[0] = %s; want nil", got[0].ToString())
					}
					continue
				}
				if got[i].Number() != f {
					t.Errorf("got[%d] = %s; want %g", i, got[i].ToString(), f)
				}
			}
		})
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		f    float64
		want string
	}{
		{0, "0"},
		{3, "3"},
		{-7, "-7"},
		{2.5, "2.5"},
		{1e21, "1e+21"},
		{0.1, "0.1"},
	}
	for _, test := range tests {
		if got := formatNumber(test.f); got != test.want {
			t.Errorf("formatNumber(%v) = %q; want %q", test.f, got, test.want)
		}
	}
}

func TestToStringVallist(t *testing.T) {
	l := NewVallist(Number(1), String("x"))
	if got := l.Value().ToString(); !strings.Contains(got, "1") || !strings.Contains(got, "x") {
		t.Errorf("vallist ToString = %q", got)
	}
}
