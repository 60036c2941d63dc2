package parser

import (
	"fmt"

	"github.com/walteh/dbtls/pkg/cst"
	"github.com/walteh/dbtls/pkg/kind"
)

// Category groups recoverable parse failures.
type Category int

const (
	// LexError is a character no lexer rule accepts. It appears in the tree
	// as an ErrorToken leaf.
	LexError Category = iota
	// SyntaxError is an unexpected or missing token inside an expression or
	// statement header.
	SyntaxError
	// StructuralError is a block opener without its closer, or a closer or
	// interior marker with no opener. The error points at the marker.
	StructuralError
)

func (c Category) String() string {
	switch c {
	case LexError:
		return "lex"
	case SyntaxError:
		return "syntax"
	case StructuralError:
		return "structural"
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// ParseError is a recoverable failure recorded next to the tree.
type ParseError struct {
	Range    cst.Range
	Message  string
	Category Category
	// Kind is the offending or expected kind, ErrorNode when neither applies.
	Kind kind.SyntaxKind
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%s error at %s: %s", e.Category, e.Range, e.Message)
}

// Filter returns the errors of category c.
func Filter(errs []ParseError, c Category) []ParseError {
	var out []ParseError
	for _, e := range errs {
		if e.Category == c {
			out = append(out, e)
		}
	}
	return out
}
