// Package position converts between byte offsets and editor positions.
//
// Editors address text by line and UTF-16 code unit; the tree addresses it by
// byte offset. An Index keeps the start offset of every line so both
// directions are a tree lookup plus a scan of one line.
package position

import (
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/tidwall/btree"
	"github.com/walteh/dbtls/pkg/cst"
)

// Place is a zero-based line and UTF-16 character offset.
type Place struct {
	Line      int
	Character int
}

func (p Place) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Character)
}

type Range struct {
	Start Place
	End   Place
}

// Index maps line start offsets to line numbers. Lines end at "\n", "\r\n"
// or a lone "\r".
type Index struct {
	text  string
	lines btree.Map[int, int]
}

func NewIndex(text string) *Index {
	me := &Index{text: text}
	me.lines.Set(0, 0)
	line := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
		case '\n':
		default:
			continue
		}
		line++
		me.lines.Set(i+1, line)
	}
	return me
}

func (me *Index) Text() string { return me.text }

// LineCount is the number of lines; an empty text has one.
func (me *Index) LineCount() int { return me.lines.Len() }

// lineOf returns the line containing offset and where it starts.
func (me *Index) lineOf(offset int) (line, start int) {
	me.lines.Descend(offset, func(key, value int) bool {
		start, line = key, value
		return false
	})
	return line, start
}

// lineBounds returns the byte range of line, excluding its terminator.
func (me *Index) lineBounds(line int) (start, end int) {
	start, _, _ = me.lines.GetAt(line)
	end = len(me.text)
	if next, _, ok := me.lines.GetAt(line + 1); ok {
		end = next
	}
	for end > start && (me.text[end-1] == '\n' || me.text[end-1] == '\r') {
		end--
	}
	return start, end
}

// Position converts a byte offset, clamped to the text, to a Place.
func (me *Index) Position(offset int) Place {
	offset = max(0, min(offset, len(me.text)))
	line, start := me.lineOf(offset)

	char := 0
	for _, r := range me.text[start:offset] {
		char += utf16.RuneLen(r)
	}
	return Place{Line: line, Character: char}
}

// Offset converts a Place to a byte offset. Lines past the end clamp to the
// end of the text and characters past the end of a line clamp to the line
// end.
func (me *Index) Offset(p Place) int {
	if p.Line < 0 {
		return 0
	}
	if p.Line >= me.lines.Len() {
		return len(me.text)
	}
	start, end := me.lineBounds(p.Line)

	off := start
	units := 0
	for off < end && units < p.Character {
		r, size := utf8.DecodeRuneInString(me.text[off:end])
		if units+utf16.RuneLen(r) > p.Character {
			// inside a surrogate pair
			break
		}
		units += utf16.RuneLen(r)
		off += size
	}
	return off
}

func (me *Index) Range(r cst.Range) Range {
	return Range{Start: me.Position(r.Start), End: me.Position(r.End)}
}

// Contains reports whether p falls within r, end inclusive.
func (r Range) Contains(p Place) bool {
	if p.Line < r.Start.Line || p.Line > r.End.Line {
		return false
	}
	if p.Line == r.Start.Line && p.Character < r.Start.Character {
		return false
	}
	if p.Line == r.End.Line && p.Character > r.End.Character {
		return false
	}
	return true
}
