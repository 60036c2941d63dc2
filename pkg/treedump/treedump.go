// Package treedump renders a syntax tree as indented text, one element per
// line.
//
//	Template@0..9
//	  Variable@0..9
//	    VariableBegin@0..2 "{{"
//	    Whitespace@2..3 " "
//	    ExprName@3..6
//	      Name@3..6 "foo"
//	    ...
//
// Error nodes and error tokens are prefixed with "!! ".
package treedump

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/apparentlymart/go-textseg/v13/textseg"
	"github.com/walteh/dbtls/pkg/cst"
	"gitlab.com/tozd/go/errors"
)

type Options struct {
	// Indent is the number of spaces per level. Zero means 2.
	Indent int
	// MaxText caps leaf text at this many grapheme clusters. Zero means no
	// limit.
	MaxText int
}

func Render(tree *cst.Tree) string {
	var sb strings.Builder
	// strings.Builder never fails
	_ = Write(&sb, tree, Options{})
	return sb.String()
}

func Write(w io.Writer, tree *cst.Tree, opts Options) error {
	if opts.Indent <= 0 {
		opts.Indent = 2
	}
	bw := bufio.NewWriter(w)
	writeNode(bw, tree.Root(), 0, opts)
	if err := bw.Flush(); err != nil {
		return errors.Errorf("writing tree dump: %w", err)
	}
	return nil
}

func writeNode(w *bufio.Writer, n cst.Node, depth int, opts Options) {
	writeHead(w, n.Element(), depth, opts)
	w.WriteByte('\n')
	for _, c := range n.Children() {
		if cn, ok := c.AsNode(); ok {
			writeNode(w, cn, depth+1, opts)
			continue
		}
		writeHead(w, c, depth+1, opts)
		w.WriteByte(' ')
		w.WriteString(quote(c.Text(), opts.MaxText))
		w.WriteByte('\n')
	}
}

func writeHead(w *bufio.Writer, e cst.Element, depth int, opts Options) {
	w.WriteString(strings.Repeat(" ", depth*opts.Indent))
	if e.Kind().IsError() {
		w.WriteString("!! ")
	}
	if tok, ok := e.AsToken(); ok {
		w.WriteString(tok.TokenKind().String())
	} else {
		w.WriteString(e.Kind().String())
	}
	w.WriteByte('@')
	w.WriteString(e.Range().String())
}

func quote(text string, limit int) string {
	if limit <= 0 {
		return strconv.Quote(text)
	}
	cut, truncated := graphemePrefix(text, limit)
	if !truncated {
		return strconv.Quote(text)
	}
	return strconv.Quote(cut) + "..."
}

// graphemePrefix returns the first n grapheme clusters of s.
func graphemePrefix(s string, n int) (string, bool) {
	data := []byte(s)
	off := 0
	for i := 0; i < n; i++ {
		if off >= len(data) {
			return s, false
		}
		advance, _, err := textseg.ScanGraphemeClusters(data[off:], true)
		if err != nil || advance == 0 {
			return s, false
		}
		off += advance
	}
	if off >= len(data) {
		return s, false
	}
	return s[:off], true
}
