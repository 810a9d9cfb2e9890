// Copyright 2025 The MiniLua Authors
// SPDX-License-Identifier: MIT

package luart

import (
	"fmt"
	"slices"

	"minilua.dev/pkg/internal/lualex"
)

// A RangeMap is a monotone function from byte offsets in the source
// before a set of edits was applied to byte offsets after.
// Values holding origins use it to rebase their token spans.
type RangeMap struct {
	edits []mapEdit
}

// mapEdit records one applied replacement,
// sorted by ascending oldPos.
type mapEdit struct {
	oldPos int
	oldLen int
	newLen int
}

// MapOffset translates a pre-edit byte offset to its post-edit position.
// Offsets inside a replaced span clamp to the span's replacement.
func (m RangeMap) MapOffset(old int) int {
	delta := 0
	for _, e := range m.edits {
		switch {
		case e.oldPos+e.oldLen <= old:
			delta += e.newLen - e.oldLen
		case e.oldPos <= old:
			return e.oldPos + delta + min(old-e.oldPos, e.newLen)
		default:
			return old + delta
		}
	}
	return old + delta
}

// Replaced reports whether any applied edit
// overlaps the span [pos, pos+length).
func (m RangeMap) Replaced(pos, length int) bool {
	for _, e := range m.edits {
		if e.oldPos < pos+length && pos < e.oldPos+e.oldLen {
			return true
		}
	}
	return false
}

// ApplyChanges rewrites a token stream with the given changes.
// Each Single must name the byte offset of exactly one token in the stream,
// and its OldText must have that token's length;
// the token's text itself is not compared.
// Overlapping or conflicting edits are a caller error and are reported.
//
// ApplyChanges returns the rewritten tokens
// (with positions recomputed)
// and the [RangeMap] from old offsets to new.
func ApplyChanges(tokens []lualex.Token, changes []*Single) ([]lualex.Token, RangeMap, error) {
	sorted := slices.Clone(changes)
	slices.SortFunc(sorted, func(a, b *Single) int {
		return a.Pos - b.Pos
	})
	for i := 1; i < len(sorted); i++ {
		prev, curr := sorted[i-1], sorted[i]
		if curr.Pos < prev.Pos+prev.Len() {
			return nil, RangeMap{}, fmt.Errorf("apply source changes: overlapping edits at offsets %d and %d", prev.Pos, curr.Pos)
		}
	}

	newTokens := slices.Clone(tokens)
	var m RangeMap
	for _, change := range sorted {
		found := false
		for i := range newTokens {
			if tokens[i].Pos == change.Pos && tokens[i].Len() == change.Len() {
				newTokens[i].Text = change.Replacement
				found = true
				break
			}
		}
		if !found {
			return nil, RangeMap{}, fmt.Errorf("apply source changes: no token at offset %d with length %d", change.Pos, change.Len())
		}
		m.edits = append(m.edits, mapEdit{
			oldPos: change.Pos,
			oldLen: change.Len(),
			newLen: len(change.Replacement),
		})
	}

	// Recompute token offsets for the rewritten stream.
	pos := 0
	for i := range newTokens {
		pos += len(newTokens[i].Space)
		newTokens[i].Pos = pos
		pos += len(newTokens[i].Text)
	}
	return newTokens, m, nil
}
