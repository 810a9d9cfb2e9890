// Copyright 2025 The MiniLua Authors
// SPDX-License-Identifier: MIT

package luart

import (
	"strings"
)

// A SourceChange is a rewrite prescription over the program text:
// a tree of [Single] replacements combined by [And] and [Or] nodes.
type SourceChange interface {
	// String renders the tree in the "(a & b)" / "(a | b)" debug form.
	String() string

	sourceChange()
}

// A Single replaces one token of the source with new text.
// The token is identified by its byte offset
// and the length of its original text.
type Single struct {
	// Pos is the byte offset of the token to replace.
	Pos int `json:"pos"`
	// OldText is the token's source text at the time the change was made.
	OldText string `json:"oldText"`
	// Replacement is the new source text.
	// An empty replacement deletes the token.
	Replacement string `json:"replacement"`
	// Hint is a human-readable tag (e.g. the identifier name)
	// used for disambiguation when multiple forces
	// target overlapping regions.
	Hint string `json:"hint,omitzero"`
}

// Len returns the length of the replaced span in bytes.
func (s *Single) Len() int {
	return len(s.OldText)
}

func (s *Single) String() string {
	sb := new(strings.Builder)
	sb.WriteString(s.OldText)
	sb.WriteString(" -> ")
	sb.WriteString(s.Replacement)
	sb.WriteString(" [")
	if s.Hint == "" {
		sb.WriteString("?")
	} else {
		sb.WriteString(s.Hint)
	}
	sb.WriteString("]")
	return sb.String()
}

// An And is an ordered list of source changes
// that must all be applied together.
type And struct {
	Changes []SourceChange
}

func (a *And) String() string {
	return joinChanges(a.Changes, " & ")
}

// An Or is an ordered list of alternative source changes.
// The first alternative is preferred.
type Or struct {
	Alternatives []SourceChange
}

func (o *Or) String() string {
	return joinChanges(o.Alternatives, " | ")
}

func (*Single) sourceChange() {}
func (*And) sourceChange()    {}
func (*Or) sourceChange()     {}

func joinChanges(changes []SourceChange, sep string) string {
	sb := new(strings.Builder)
	sb.WriteString("(")
	for i, c := range changes {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(c.String())
	}
	sb.WriteString(")")
	return sb.String()
}

// MergeOr combines two change trees into alternatives.
// A nil operand yields the other operand,
// and combining two nils yields nil.
// The result is deliberately left unflattened
// so that labels survive until the applier runs.
func MergeOr(lhs, rhs SourceChange) SourceChange {
	if lhs == nil {
		return rhs
	}
	if rhs == nil {
		return lhs
	}
	return &Or{Alternatives: []SourceChange{lhs, rhs}}
}

// MergeAnd combines two change trees
// into changes that apply together.
// A nil operand yields the other operand,
// and combining two nils yields nil.
func MergeAnd(lhs, rhs SourceChange) SourceChange {
	if lhs == nil {
		return rhs
	}
	if rhs == nil {
		return lhs
	}
	return &And{Changes: []SourceChange{lhs, rhs}}
}

// CollectFirstAlternative walks the tree depth-first,
// picking the first child of every [Or],
// and returns the [Single] changes encountered in order.
func CollectFirstAlternative(sc SourceChange) []*Single {
	var singles []*Single
	collectFirstAlternative(sc, &singles)
	return singles
}

func collectFirstAlternative(sc SourceChange, out *[]*Single) {
	switch sc := sc.(type) {
	case nil:
	case *Single:
		*out = append(*out, sc)
	case *And:
		for _, c := range sc.Changes {
			collectFirstAlternative(c, out)
		}
	case *Or:
		if len(sc.Alternatives) > 0 {
			collectFirstAlternative(sc.Alternatives[0], out)
		}
	}
}

// RemoveAlternative removes the first alternative from a change tree
// in place, pruning emptied And/Or nodes along the way.
// It does a depth-first search for a no-op [Single]
// (one whose replacement equals its original text,
// as produced by forcing a value to itself) and removes it.
// It reports whether such a change was found.
func RemoveAlternative(sc SourceChange) bool {
	switch sc := sc.(type) {
	case *Single:
		return sc.OldText == sc.Replacement
	case *And:
		return removeAlternativeFrom(&sc.Changes)
	case *Or:
		return removeAlternativeFrom(&sc.Alternatives)
	default:
		return false
	}
}

func removeAlternativeFrom(children *[]SourceChange) bool {
	for i, c := range *children {
		if !RemoveAlternative(c) {
			continue
		}
		remove := false
		switch c := c.(type) {
		case *Single:
			remove = true
		case *And:
			remove = len(c.Changes) == 0
		case *Or:
			remove = len(c.Alternatives) == 0
		}
		if remove {
			*children = append((*children)[:i], (*children)[i+1:]...)
		}
		return true
	}
	return false
}

// ChangeLabels enumerates one label per candidate edit for a value:
// every alternative of every Or is visited,
// and within an And only the last change contributes
// (the one carrying the edit's hint).
// It returns nil if the value has no origin or refuses the force.
func ChangeLabels(v Value) []string {
	if v.Origin() == nil {
		return nil
	}
	sc := v.Force(v)
	if sc == nil {
		return nil
	}
	var singles []*Single
	collectAllAlternatives(sc, &singles)
	labels := make([]string, 0, len(singles))
	for _, s := range singles {
		labels = append(labels, s.String())
	}
	return labels
}

func collectAllAlternatives(sc SourceChange, out *[]*Single) {
	switch sc := sc.(type) {
	case *Single:
		*out = append(*out, sc)
	case *And:
		if len(sc.Changes) > 0 {
			collectAllAlternatives(sc.Changes[len(sc.Changes)-1], out)
		}
	case *Or:
		for _, c := range sc.Alternatives {
			collectAllAlternatives(c, out)
		}
	}
}

// DefaultChangeLabel returns the label of the edit that would be applied
// by default when forcing the value:
// the first hinted Single of the first alternative,
// falling back to the first Single.
func DefaultChangeLabel(v Value) (string, bool) {
	if v.Origin() == nil {
		return "", false
	}
	sc := v.Force(v)
	if sc == nil {
		return "", false
	}
	singles := CollectFirstAlternative(sc)
	if len(singles) == 0 {
		return "", false
	}
	for _, s := range singles {
		if s.Hint != "" {
			return s.String(), true
		}
	}
	return singles[0].String(), true
}

// FirstAlternativeByHint steps through the candidate edits for a value
// until it finds one whose label matches hint.
// The no-op edits (replacement equal to the original text)
// of the discarded alternatives are accumulated as
// negative changes (replacement "$" + original text,
// marking "not this change") so a front-end can show
// which candidates were passed over.
// It returns nil, false if no alternative matches.
func FirstAlternativeByHint(v Value, hint string) (SourceChange, bool) {
	if v.Origin() == nil {
		return nil, false
	}
	sc := v.Force(v)
	if sc == nil {
		return nil, false
	}

	accumulated := new(And)
	for {
		singles := CollectFirstAlternative(sc)
		for _, s := range singles {
			if s.String() == hint {
				return accumulated, true
			}
		}
		if len(singles) == 0 {
			return nil, false
		}
		RemoveAlternative(sc)
		for _, s := range singles {
			if s.OldText == s.Replacement {
				accumulated.Changes = append(accumulated.Changes, &Single{
					Pos:         s.Pos,
					OldText:     s.OldText,
					Replacement: "$" + s.Replacement,
					Hint:        s.Hint,
				})
			}
		}
	}
}
