// Copyright 2025 The MiniLua Authors
// SPDX-License-Identifier: MIT

package luart

import (
	"context"
	"errors"
	"fmt"

	"minilua.dev/pkg/internal/lualex"
	"minilua.dev/pkg/internal/luasyntax"
)

// ErrVisitLimit is the error reported when the visit-count guard trips.
var ErrVisitLimit = errors.New("visit limit reached, stopping")

// signalKind distinguishes ordinary completion
// from the evaluator's non-local exits.
type signalKind int

const (
	signalNone signalKind = iota
	// signalBreak unwinds to the nearest enclosing loop.
	signalBreak
	// signalReturn unwinds to the enclosing function call
	// (or the top level), carrying the returned values.
	signalReturn
)

type signal struct {
	kind   signalKind
	values *Vallist
}

// Evaluate runs a parsed chunk in the given environment.
// It returns the chunk's result value
// (the values of a top-level return statement, or nil)
// together with any source changes surfaced by builtins like force,
// combined bottom-up with the And combinator.
//
// Errors are runtime failures;
// they leave the environment in a coherent intermediate state.
// The context is checked at the visit-count guard,
// so a host can bound evaluation by deadline.
func Evaluate(ctx context.Context, chunk *luasyntax.Chunk, env *Environment) (Value, SourceChange, error) {
	ev := &evaluator{ctx: ctx}
	sig, sc, err := ev.chunk(chunk, env)
	if err != nil {
		return Nil, nil, err
	}
	if sig.kind == signalReturn {
		return sig.values.Value(), sc, nil
	}
	return Nil, sc, nil
}

type evaluator struct {
	ctx context.Context
}

// countVisit enforces the termination bound:
// it compares the scope chain's __visit_count register
// against __visit_limit before every node visit.
func (ev *evaluator) countVisit(env *Environment) error {
	if err := ev.ctx.Err(); err != nil {
		return err
	}
	limit := env.GetVar(VisitLimitName)
	if !limit.IsNumber() {
		// The registers are absent; run unguarded.
		return nil
	}
	count := env.GetVar(VisitCountName).Number()
	if count+1 > limit.Number() {
		return ErrVisitLimit
	}
	env.SetVar(VisitCountName, Number(count+1))
	return nil
}

func (ev *evaluator) chunk(c *luasyntax.Chunk, env *Environment) (signal, SourceChange, error) {
	var combined SourceChange
	for _, stmt := range c.Stmts {
		sig, sc, err := ev.stmt(stmt, env)
		combined = MergeAnd(combined, sc)
		if err != nil {
			return signal{}, combined, err
		}
		if sig.kind != signalNone {
			return sig, combined, nil
		}
	}
	return signal{}, combined, nil
}

func (ev *evaluator) stmt(s luasyntax.Stmt, env *Environment) (signal, SourceChange, error) {
	if err := ev.countVisit(env); err != nil {
		return signal{}, nil, err
	}
	switch s := s.(type) {
	case *luasyntax.Assignment:
		sc, err := ev.assignment(s, env)
		return signal{}, sc, err
	case *luasyntax.CallStmt:
		_, sc, err := ev.exp(s.Call, env)
		return signal{}, sc, err
	case *luasyntax.ReturnStmt:
		values, sc, err := ev.explist(s.Values, env)
		if err != nil {
			return signal{}, sc, err
		}
		return signal{kind: signalReturn, values: NewVallist(values...)}, sc, nil
	case *luasyntax.BreakStmt:
		return signal{kind: signalBreak}, nil, nil
	case *luasyntax.DoStmt:
		return ev.chunk(s.Body, env.Child())
	case *luasyntax.LoopStmt:
		return ev.loop(s, env)
	case *luasyntax.NumericForStmt:
		return ev.numericFor(s, env)
	case *luasyntax.GenericForStmt:
		return ev.genericFor(s, env)
	case *luasyntax.IfStmt:
		return ev.ifStmt(s, env)
	default:
		return signal{}, nil, fmt.Errorf("unhandled statement %T", s)
	}
}

// assignment evaluates the right-hand explist first,
// flattens it, then walks the targets in parallel;
// missing values assign nil.
func (ev *evaluator) assignment(s *luasyntax.Assignment, env *Environment) (SourceChange, error) {
	values, combined, err := ev.explist(s.Values, env)
	if err != nil {
		return combined, err
	}
	for i, target := range s.Targets {
		v := Nil
		if i < len(values) {
			v = values[i]
		}
		sc, err := ev.assignTo(target, v, s.Local, env)
		combined = MergeAnd(combined, sc)
		if err != nil {
			return combined, err
		}
	}
	return combined, nil
}

func (ev *evaluator) assignTo(target luasyntax.Exp, v Value, local bool, env *Environment) (SourceChange, error) {
	switch target := target.(type) {
	case *luasyntax.NameExp:
		name := target.Name.Ident()
		if local {
			env.SetLocal(name, v)
		} else {
			env.SetVar(name, v)
		}
		return nil, nil
	case *luasyntax.IndexExp:
		index, sc1, err := ev.exp(target.Index, env)
		if err != nil {
			return sc1, err
		}
		tableVal, sc2, err := ev.exp(target.Table, env)
		combined := MergeAnd(sc1, sc2)
		if err != nil {
			return combined, err
		}
		tab := First(tableVal).Table()
		if tab == nil {
			return combined, fmt.Errorf("cannot access index on %v", First(tableVal).Type())
		}
		return combined, tab.Set(First(index), v)
	case *luasyntax.MemberExp:
		tableVal, sc, err := ev.exp(target.Table, env)
		if err != nil {
			return sc, err
		}
		tab := First(tableVal).Table()
		if tab == nil {
			return sc, fmt.Errorf("cannot access member on %v", First(tableVal).Type())
		}
		return sc, tab.Set(String(target.Member.Ident()), v)
	default:
		return nil, fmt.Errorf("cannot assign to %T", target)
	}
}

func (ev *evaluator) loop(s *luasyntax.LoopStmt, env *Environment) (signal, SourceChange, error) {
	var combined SourceChange
	if s.HeadControlled {
		cond, sc, err := ev.exp(s.Cond, env)
		combined = MergeAnd(combined, sc)
		if err != nil {
			return signal{}, combined, err
		}
		if !First(cond).ToBool() {
			return signal{}, combined, nil
		}
	}
	for {
		iterEnv := env.Child()
		sig, sc, err := ev.chunk(s.Body, iterEnv)
		combined = MergeAnd(combined, sc)
		if err != nil {
			return signal{}, combined, err
		}
		switch sig.kind {
		case signalBreak:
			return signal{}, combined, nil
		case signalReturn:
			return sig, combined, nil
		}

		// The loop condition sees bindings made in the loop body.
		cond, sc, err := ev.exp(s.Cond, iterEnv)
		combined = MergeAnd(combined, sc)
		if err != nil {
			return signal{}, combined, err
		}
		if !First(cond).ToBool() {
			return signal{}, combined, nil
		}
	}
}

// numericFor evaluates "for v = start, limit [, step] do body end".
// The limit and step expressions are evaluated once, before the loop.
func (ev *evaluator) numericFor(s *luasyntax.NumericForStmt, env *Environment) (signal, SourceChange, error) {
	start, combined, err := ev.exp(s.Start, env)
	if err != nil {
		return signal{}, combined, err
	}
	limit, sc, err := ev.exp(s.Limit, env)
	combined = MergeAnd(combined, sc)
	if err != nil {
		return signal{}, combined, err
	}
	step := Int(1)
	stepTok := lualex.Token{Kind: lualex.AddToken, Text: "+"}
	if s.Step != nil {
		step, sc, err = ev.exp(s.Step, env)
		combined = MergeAnd(combined, sc)
		if err != nil {
			return signal{}, combined, err
		}
	}
	start, limit, step = First(start), First(limit), First(step)
	if !start.IsNumber() || !limit.IsNumber() || !step.IsNumber() {
		return signal{}, combined, errors.New("'for' loop bounds must be numbers")
	}

	current := start
	for {
		if err := ev.countVisit(env); err != nil {
			return signal{}, combined, err
		}
		if step.Number() < 0 {
			if current.Number() < limit.Number() {
				return signal{}, combined, nil
			}
		} else if current.Number() > limit.Number() {
			return signal{}, combined, nil
		}

		iterEnv := env.Child()
		iterEnv.SetLocal(s.Var.Ident(), current)
		sig, sc, err := ev.chunk(s.Body, iterEnv)
		combined = MergeAnd(combined, sc)
		if err != nil {
			return signal{}, combined, err
		}
		switch sig.kind {
		case signalBreak:
			return signal{}, combined, nil
		case signalReturn:
			return sig, combined, nil
		}

		next, err := Arith(current, step, stepTok)
		if err != nil {
			return signal{}, combined, err
		}
		current = next
	}
}

// genericFor evaluates "for names in explist do body end"
// via the iterator protocol:
// f, s, var = explist; repeatedly call f(s, var),
// stop when the first result is nil,
// else bind names and advance var.
func (ev *evaluator) genericFor(s *luasyntax.GenericForStmt, env *Environment) (signal, SourceChange, error) {
	exps, combined, err := ev.explist(s.Exps, env)
	if err != nil {
		return signal{}, combined, err
	}
	get := func(i int) Value {
		if i < len(exps) {
			return exps[i]
		}
		return Nil
	}
	f, state, control := get(0), get(1), get(2)

	for {
		if err := ev.countVisit(env); err != nil {
			return signal{}, combined, err
		}
		results, sc, err := ev.call(f, NewVallist(state, control))
		combined = MergeAnd(combined, sc)
		if err != nil {
			return signal{}, combined, err
		}
		if results.First().IsNil() {
			return signal{}, combined, nil
		}
		control = results.First()

		iterEnv := env.Child()
		for i, name := range s.Names {
			iterEnv.SetLocal(name.Ident(), results.Arg(i))
		}
		sig, sc, err := ev.chunk(s.Body, iterEnv)
		combined = MergeAnd(combined, sc)
		if err != nil {
			return signal{}, combined, err
		}
		switch sig.kind {
		case signalBreak:
			return signal{}, combined, nil
		case signalReturn:
			return sig, combined, nil
		}
	}
}

func (ev *evaluator) ifStmt(s *luasyntax.IfStmt, env *Environment) (signal, SourceChange, error) {
	var combined SourceChange
	for _, branch := range s.Branches {
		cond, sc, err := ev.exp(branch.Cond, env)
		combined = MergeAnd(combined, sc)
		if err != nil {
			return signal{}, combined, err
		}
		if First(cond).ToBool() {
			sig, sc, err := ev.chunk(branch.Body, env.Child())
			combined = MergeAnd(combined, sc)
			return sig, combined, err
		}
	}
	return signal{}, combined, nil
}

// explist evaluates an expression list
// and flattens it per the vallist rules.
func (ev *evaluator) explist(exps []luasyntax.Exp, env *Environment) ([]Value, SourceChange, error) {
	var combined SourceChange
	values := make([]Value, 0, len(exps))
	for _, e := range exps {
		v, sc, err := ev.exp(e, env)
		combined = MergeAnd(combined, sc)
		if err != nil {
			return nil, combined, err
		}
		values = append(values, v)
	}
	return Flatten(values), combined, nil
}

func (ev *evaluator) exp(e luasyntax.Exp, env *Environment) (Value, SourceChange, error) {
	if err := ev.countVisit(env); err != nil {
		return Nil, nil, err
	}
	switch e := e.(type) {
	case *luasyntax.LiteralExp:
		v, err := ev.literal(e.Token)
		return v, nil, err
	case *luasyntax.VarargExp:
		if l := env.GetVarargs(); l != nil {
			return NewVallist(l.Values...).Value(), nil, nil
		}
		return NewVallist().Value(), nil, nil
	case *luasyntax.NameExp:
		name := e.Name.Ident()
		v := env.GetVar(name)
		if o := v.Origin(); o != nil {
			// Tag the origin so emitted changes carry the variable name
			// as their hint.
			v = v.WithOrigin(o.WithIdentifier(name))
		}
		return v, nil, nil
	case *luasyntax.IndexExp:
		index, sc1, err := ev.exp(e.Index, env)
		if err != nil {
			return Nil, sc1, err
		}
		tableVal, sc2, err := ev.exp(e.Table, env)
		combined := MergeAnd(sc1, sc2)
		if err != nil {
			return Nil, combined, err
		}
		tab := First(tableVal).Table()
		if tab == nil {
			return Nil, combined, fmt.Errorf("cannot access index on %v", First(tableVal).Type())
		}
		return tab.Get(First(index)), combined, nil
	case *luasyntax.MemberExp:
		tableVal, sc, err := ev.exp(e.Table, env)
		if err != nil {
			return Nil, sc, err
		}
		tab := First(tableVal).Table()
		if tab == nil {
			return Nil, sc, fmt.Errorf("cannot access member on %v", First(tableVal).Type())
		}
		return tab.Get(String(e.Member.Ident())), sc, nil
	case *luasyntax.CallExp:
		return ev.callExp(e, env)
	case *luasyntax.FunctionExp:
		params := make([]string, len(e.Params))
		for i, p := range e.Params {
			params[i] = p.Ident()
		}
		fn := &LuaFunction{
			id:       nextID(),
			Params:   params,
			IsVararg: e.IsVararg,
			Body:     e.Body,
			Env:      env,
		}
		return Value{p: fn}, nil, nil
	case *luasyntax.BinaryExp:
		return ev.binary(e, env)
	case *luasyntax.UnaryExp:
		return ev.unary(e, env)
	case *luasyntax.TableExp:
		return ev.tableConstructor(e, env)
	default:
		return Nil, nil, fmt.Errorf("unhandled expression %T", e)
	}
}

// literal materializes a literal token as a value
// carrying a literal origin pointing at the token.
func (ev *evaluator) literal(tok lualex.Token) (Value, error) {
	switch tok.Kind {
	case lualex.NilToken:
		return Nil.WithOrigin(NewLiteralOrigin(tok)), nil
	case lualex.FalseToken:
		return Bool(false).WithOrigin(NewLiteralOrigin(tok)), nil
	case lualex.TrueToken:
		return Bool(true).WithOrigin(NewLiteralOrigin(tok)), nil
	case lualex.NumeralToken:
		f, err := lualex.ParseNumber(tok.Text)
		if err != nil {
			return Nil, fmt.Errorf("malformed number %q", tok.Text)
		}
		return Number(f).WithOrigin(NewLiteralOrigin(tok)), nil
	case lualex.StringToken:
		return String(tok.Value).WithOrigin(NewLiteralOrigin(tok)), nil
	default:
		return Nil, fmt.Errorf("unexpected literal token %v", tok.Kind)
	}
}

func (ev *evaluator) binary(e *luasyntax.BinaryExp, env *Environment) (Value, SourceChange, error) {
	// and/or short-circuit: the right operand
	// is only evaluated when it decides the result.
	if e.Op.Kind == lualex.AndToken || e.Op.Kind == lualex.OrToken {
		lhs, combined, err := ev.exp(e.LHS, env)
		if err != nil {
			return Nil, combined, err
		}
		lhs = First(lhs)
		if (e.Op.Kind == lualex.AndToken) != lhs.ToBool() {
			return lhs.WithOrigin(NewBinaryOrigin(lhs, Nil, e.Op)), combined, nil
		}
		rhs, sc, err := ev.exp(e.RHS, env)
		combined = MergeAnd(combined, sc)
		if err != nil {
			return Nil, combined, err
		}
		rhs = First(rhs)
		return rhs.WithOrigin(NewBinaryOrigin(lhs, rhs, e.Op)), combined, nil
	}

	lhs, sc1, err := ev.exp(e.LHS, env)
	if err != nil {
		return Nil, sc1, err
	}
	rhs, sc2, err := ev.exp(e.RHS, env)
	combined := MergeAnd(sc1, sc2)
	if err != nil {
		return Nil, combined, err
	}
	lhs, rhs = First(lhs), First(rhs)

	switch e.Op.Kind {
	case lualex.AddToken, lualex.SubToken, lualex.MulToken, lualex.DivToken, lualex.ModToken, lualex.PowToken:
		v, err := Arith(lhs, rhs, e.Op)
		return v, combined, err
	case lualex.ConcatToken:
		v, err := Concat(lhs, rhs)
		return v, combined, err
	case lualex.LessToken, lualex.LessEqualToken, lualex.GreaterToken, lualex.GreaterEqualToken:
		v, err := Compare(lhs, rhs, e.Op)
		return v, combined, err
	case lualex.EqualToken, lualex.NotEqualToken:
		v, err := Equals(lhs, rhs, e.Op)
		return v, combined, err
	case lualex.LiveToken:
		v, sc, err := LiveEval(lhs, rhs, e.Op)
		return v, MergeAnd(combined, sc), err
	default:
		return Nil, combined, fmt.Errorf("'%s' is not a binary operator", e.Op.Text)
	}
}

func (ev *evaluator) unary(e *luasyntax.UnaryExp, env *Environment) (Value, SourceChange, error) {
	operand, combined, err := ev.exp(e.Operand, env)
	if err != nil {
		return Nil, combined, err
	}
	operand = First(operand)

	if e.Postfix {
		v, sc, err := PostfixLiveEval(operand, e.Op)
		return v, MergeAnd(combined, sc), err
	}
	switch e.Op.Kind {
	case lualex.SubToken:
		v, err := Neg(operand, e.Op)
		return v, combined, err
	case lualex.LenToken:
		v, err := Len(operand)
		return v, combined, err
	case lualex.NotToken:
		v, err := Not(operand, e.Op)
		return v, combined, err
	case lualex.StripToken:
		v, err := Strip(operand)
		return v, combined, err
	default:
		return Nil, combined, fmt.Errorf("'%s' is not a unary operator", e.Op.Text)
	}
}

func (ev *evaluator) tableConstructor(e *luasyntax.TableExp, env *Environment) (Value, SourceChange, error) {
	tab := NewTable()
	var combined SourceChange
	nextIndex := 1
	for _, field := range e.Fields {
		value, sc, err := ev.exp(field.Value, env)
		combined = MergeAnd(combined, sc)
		if err != nil {
			return Nil, combined, err
		}
		switch {
		case field.Key != nil:
			key, sc, err := ev.exp(field.Key, env)
			combined = MergeAnd(combined, sc)
			if err != nil {
				return Nil, combined, err
			}
			if err := tab.Set(First(key), First(value)); err != nil {
				return Nil, combined, err
			}
		case field.NameKey != nil:
			if err := tab.Set(String(field.NameKey.Ident()), First(value)); err != nil {
				return Nil, combined, err
			}
		default:
			if err := tab.Set(Int(nextIndex), First(value)); err != nil {
				return Nil, combined, err
			}
			nextIndex++
		}
	}
	return tab.Value(), combined, nil
}

// callExp evaluates callee and arguments, then dispatches the call.
// A method call evaluates the receiver once,
// looks the method up as a member,
// and passes the receiver as the first argument.
func (ev *evaluator) callExp(e *luasyntax.CallExp, env *Environment) (Value, SourceChange, error) {
	callee, combined, err := ev.exp(e.Func, env)
	if err != nil {
		return Nil, combined, err
	}
	callee = First(callee)

	argValues := make([]Value, 0, len(e.Args)+1)
	if e.Method != nil {
		receiver := callee
		tab := receiver.Table()
		if tab == nil {
			return Nil, combined, fmt.Errorf("cannot access member on %v", receiver.Type())
		}
		callee = tab.Get(String(e.Method.Ident()))
		argValues = append(argValues, receiver)
	}

	for _, arg := range e.Args {
		v, sc, err := ev.exp(arg, env)
		combined = MergeAnd(combined, sc)
		if err != nil {
			return Nil, combined, err
		}
		argValues = append(argValues, v)
	}
	args := NewVallist(Flatten(argValues)...)

	result, sc, err := ev.call(callee, args)
	combined = MergeAnd(combined, sc)
	if err != nil {
		return Nil, combined, err
	}
	return result.Value(), combined, nil
}

// call dispatches on the callee kind.
func (ev *evaluator) call(callee Value, args *Vallist) (*Vallist, SourceChange, error) {
	switch {
	case callee.GoFunc() != nil:
		result, err := callee.GoFunc().Fn(args)
		if err != nil {
			return nil, nil, err
		}
		values := result.Values
		if values == nil {
			values = NewVallist()
		}
		return values, result.Change, nil
	case callee.LuaFunc() != nil:
		fn := callee.LuaFunc()
		callEnv := fn.Env.Child()
		for i, param := range fn.Params {
			callEnv.SetLocal(param, args.Arg(i))
		}
		if fn.IsVararg {
			var extra []Value
			if len(args.Values) > len(fn.Params) {
				extra = args.Values[len(fn.Params):]
			}
			callEnv.SetVarargs(NewVallist(extra...))
		}
		sig, sc, err := ev.chunk(fn.Body, callEnv)
		if err != nil {
			return nil, sc, err
		}
		if sig.kind == signalReturn {
			return sig.values, sc, nil
		}
		return NewVallist(), sc, nil
	case callee.IsNil():
		return nil, nil, errors.New("attempted to call a nil value")
	default:
		return nil, nil, fmt.Errorf("attempted to call a %v value", callee.Type())
	}
}
