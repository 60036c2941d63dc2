package position_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/walteh/dbtls/pkg/cst"
	"github.com/walteh/dbtls/pkg/position"
)

func TestPosition(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		offset int
		want   position.Place
	}{
		{"empty text", "", 0, position.Place{}},
		{"single line", "select 1", 7, position.Place{Line: 0, Character: 7}},
		{"second line", "select\n1", 7, position.Place{Line: 1, Character: 0}},
		{"crlf", "a\r\nb", 3, position.Place{Line: 1, Character: 0}},
		{"lone cr", "a\rb", 2, position.Place{Line: 1, Character: 0}},
		{"on the newline", "ab\ncd", 2, position.Place{Line: 0, Character: 2}},
		{"after multibyte", "é{{ x }}", 2, position.Place{Line: 0, Character: 1}},
		{"after astral", "😀x", 4, position.Place{Line: 0, Character: 2}},
		{"past the end", "ab", 10, position.Place{Line: 0, Character: 2}},
		{"negative", "ab", -1, position.Place{}},
		{"jinja", "{% if x %}\n  {{ ref('orders') }}\n{% endif %}", 16, position.Place{Line: 1, Character: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := position.NewIndex(tt.text)
			assert.Equal(t, tt.want, idx.Position(tt.offset))
		})
	}
}

func TestOffset(t *testing.T) {
	text := "ab\r\n😀cd\nlast"
	idx := position.NewIndex(text)
	assert.Equal(t, 3, idx.LineCount())

	tests := []struct {
		place position.Place
		want  int
	}{
		{position.Place{Line: 0, Character: 0}, 0},
		{position.Place{Line: 0, Character: 9}, 2},
		{position.Place{Line: 1, Character: 0}, 4},
		{position.Place{Line: 1, Character: 1}, 4},
		{position.Place{Line: 1, Character: 2}, 8},
		{position.Place{Line: 1, Character: 3}, 9},
		{position.Place{Line: 2, Character: 4}, 15},
		{position.Place{Line: 7, Character: 0}, len(text)},
		{position.Place{Line: -1, Character: 3}, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, idx.Offset(tt.place), tt.place.String())
	}
}

func TestRoundTrip(t *testing.T) {
	text := "{% macro m(a) %}\r\n  héllo {{ a }}\n{% endmacro %}\n"
	idx := position.NewIndex(text)
	for off := 0; off <= len(text); off++ {
		if off < len(text) && text[off]&0xC0 == 0x80 {
			continue
		}
		p := idx.Position(off)
		got := idx.Offset(p)
		if off > 0 && text[off-1] == '\r' && off < len(text) && text[off] == '\n' {
			// the \n of a \r\n pair shares the line end position
			assert.Equal(t, off-1, got)
			continue
		}
		assert.Equal(t, off, got, "offset %d at %s", off, p)
	}
}

func TestRange(t *testing.T) {
	idx := position.NewIndex("a\nbcd")
	r := idx.Range(cst.Range{Start: 1, End: 4})
	assert.Equal(t, position.Range{
		Start: position.Place{Line: 0, Character: 1},
		End:   position.Place{Line: 1, Character: 2},
	}, r)
	assert.True(t, r.Contains(position.Place{Line: 1, Character: 0}))
	assert.True(t, r.Contains(position.Place{Line: 1, Character: 2}))
	assert.False(t, r.Contains(position.Place{Line: 1, Character: 3}))
	assert.False(t, r.Contains(position.Place{Line: 0, Character: 0}))
}
