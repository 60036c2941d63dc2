/*
Package semtok computes semantic tokens for dbt jinja templates.

	       Input
	         |
	         v
	  +------------+
	  | cst.Tree   |
	  +------------+
	         |
	  Classify Tokens
	         |
	         v
	  +------------+
	  | []Token    |
	  +------------+
	         |
	  Encode Relative
	         |
	         v
	  +------------+
	  | []uint32   |
	  +------------+
*/
package semtok

import (
	"github.com/walteh/dbtls/pkg/cst"
	"github.com/walteh/dbtls/pkg/position"
)

// GetTokens returns the semantic tokens of tree in source order.
func GetTokens(tree *cst.Tree) []Token {
	return GetTokensForRange(tree, cst.Range{Start: 0, End: len(tree.Source())})
}

// GetTokensForRange returns the semantic tokens overlapping r.
func GetTokensForRange(tree *cst.Tree, r cst.Range) []Token {
	v := newTokenVisitor(r)
	for tok := range tree.Tokens() {
		if tok.Range().Start >= r.End {
			break
		}
		v.visit(tok)
	}
	return v.tokens
}

// Encode packs tokens into the LSP relative format: five integers per token
// holding the line delta, start delta, length, type and modifiers. Lengths
// and starts count UTF-16 units. Tokens spanning lines are split into one
// entry per line.
func Encode(tokens []Token, idx *position.Index) []uint32 {
	out := make([]uint32, 0, len(tokens)*5)
	var prev position.Place
	text := idx.Text()

	emit := func(start, end int, t Token) {
		from, to := idx.Position(start), idx.Position(end)
		if to.Character <= from.Character {
			return
		}
		deltaStart := from.Character
		if from.Line == prev.Line {
			deltaStart -= prev.Character
		}
		out = append(out,
			uint32(from.Line-prev.Line),
			uint32(deltaStart),
			uint32(to.Character-from.Character),
			uint32(t.Type),
			uint32(t.Modifier),
		)
		prev = from
	}

	for _, t := range tokens {
		start := t.Range.Start
		for i := t.Range.Start; i < t.Range.End; i++ {
			if text[i] != '\n' && text[i] != '\r' {
				continue
			}
			emit(start, i, t)
			if text[i] == '\r' && i+1 < t.Range.End && text[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
		emit(start, t.Range.End, t)
	}
	return out
}
