// Copyright 2025 The MiniLua Authors
// SPDX-License-Identifier: MIT

package luart

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// PopulateStdlib installs the built-in bindings into the environment:
// print, force, sleep, the math table, the _G globals table,
// and the visit-count registers.
func PopulateStdlib(env *Environment) {
	env.SetGlobal("print", NewGoFunction("print", func(args *Vallist) (CallResult, error) {
		parts := make([]string, 0, len(args.Values))
		for _, v := range args.Values {
			parts = append(parts, v.ToString())
		}
		fmt.Fprintln(env.Stdout(), strings.Join(parts, "\t"))
		return CallResult{}, nil
	}))

	env.SetGlobal("force", NewGoFunction("force", func(args *Vallist) (CallResult, error) {
		if len(args.Values) != 2 {
			return CallResult{}, fmt.Errorf("force: wrong number of arguments (expected 2)")
		}
		// A target without an origin silently refuses the force.
		return CallResult{Change: args.Arg(0).Force(args.Arg(1))}, nil
	}))

	env.SetGlobal("sleep", NewGoFunction("sleep", func(args *Vallist) (CallResult, error) {
		if !args.Arg(0).IsNumber() {
			return CallResult{}, fmt.Errorf("sleep: one number argument expected")
		}
		time.Sleep(time.Duration(args.Arg(0).Number() * float64(time.Second)))
		return CallResult{}, nil
	}))

	mathTable := NewTable()
	mathTable.Set(String("sin"), mathFunction("sin", math.Sin, func(target float64) (float64, bool) {
		x := math.Asin(target)
		return x, !math.IsNaN(x) && !math.IsInf(x, 0)
	}))
	mathTable.Set(String("cos"), mathFunction("cos", math.Cos, func(target float64) (float64, bool) {
		x := math.Acos(target)
		return x, !math.IsNaN(x) && !math.IsInf(x, 0)
	}))
	mathTable.Set(String("tan"), mathFunction("tan", math.Tan, func(target float64) (float64, bool) {
		x := math.Atan(target)
		return x, !math.IsNaN(x) && !math.IsInf(x, 0)
	}))
	mathTable.Set(String("sqrt"), mathFunction("sqrt", math.Sqrt, func(target float64) (float64, bool) {
		x := target * target
		return x, target >= 0 && !math.IsNaN(x) && !math.IsInf(x, 0)
	}))
	mathTable.Set(String("pi"), Number(math.Pi))
	env.SetGlobal("math", mathTable.Value())

	env.SetGlobal("_G", env.Globals().Value())

	env.SetGlobal(VisitCountName, Int(0))
	env.SetGlobal(VisitLimitName, Int(DefaultVisitLimit))
}

// mathFunction wraps a one-argument math function
// whose result carries a lambda origin:
// forcing the result to a new value
// forces the argument to inverse(new value)
// when the inverse is defined there.
func mathFunction(name string, forward func(float64) float64, inverse func(float64) (float64, bool)) Value {
	return NewGoFunction(name, func(args *Vallist) (CallResult, error) {
		arg := args.Arg(0)
		if len(args.Values) != 1 || !arg.IsNumber() {
			return CallResult{}, fmt.Errorf("%s: one number argument expected", name)
		}
		result := Number(forward(arg.Number()))
		result = result.WithOrigin(NewLambdaOrigin(arg, func(operand, target Value) SourceChange {
			if !target.IsNumber() {
				return nil
			}
			x, ok := inverse(target.Number())
			if !ok {
				return nil
			}
			return operand.Force(Number(x))
		}))
		return CallResult{Values: NewVallist(result)}, nil
	})
}
