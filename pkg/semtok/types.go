package semtok

/*
Token Types and Modifiers:
------------------------
Types are numbered in legend order, so a TokenType is also its index in
the legend the server advertises.

	+-------------+     +-----------+
	| TokenType   | --> | cst.Range |
	+-------------+     +-----------+
	      |                  |
	      v                  v
	[keyword,          byte offsets,
	 function,         split per line
	 variable,         when encoded
	 etc.]
*/

import (
	"github.com/walteh/dbtls/pkg/cst"
)

// TokenType represents the semantic meaning of a token
type TokenType uint32

const (
	// TokenKeyword is a tag word, a keyword operator or a constant (for, in, true)
	TokenKeyword TokenType = iota

	// TokenFunction is a called name, a macro or a filter (ref, upper)
	TokenFunction

	// TokenVariable is any other name in an expression
	TokenVariable

	// TokenProperty is an attribute after a dot that is not called
	TokenProperty

	// TokenParameter is a macro argument or a keyword argument name
	TokenParameter

	// TokenOperator is a symbol such as | or ==
	TokenOperator

	// TokenString represents a string literal
	TokenString

	// TokenNumber represents a numeric literal (e.g., 0, 1.5)
	TokenNumber

	// TokenComment represents a jinja comment, delimiters included
	TokenComment

	tokenTypeCount
)

// TokenModifier is a bit set of additional characteristics of a token
type TokenModifier uint32

const (
	// ModifierNone indicates no special characteristics
	ModifierNone TokenModifier = 0

	// ModifierDeclaration marks the name a macro or argument is defined by
	ModifierDeclaration TokenModifier = 1 << (iota - 1)

	// ModifierReadonly marks constants
	ModifierReadonly

	// ModifierDefaultLibrary marks dbt's own functions
	ModifierDefaultLibrary

	modifierCount = iota - 1
)

// Token represents a semantic token with its type, modifiers, and position
type Token struct {
	Type     TokenType
	Modifier TokenModifier
	Range    cst.Range
}

var tokenTypeNames = [tokenTypeCount]string{
	TokenKeyword:   "keyword",
	TokenFunction:  "function",
	TokenVariable:  "variable",
	TokenProperty:  "property",
	TokenParameter: "parameter",
	TokenOperator:  "operator",
	TokenString:    "string",
	TokenNumber:    "number",
	TokenComment:   "comment",
}

var modifierNames = [modifierCount]string{
	"declaration",
	"readonly",
	"defaultLibrary",
}

// String returns the LSP name of the token type
func (t TokenType) String() string {
	if t < tokenTypeCount {
		return tokenTypeNames[t]
	}
	return "unknown"
}

// String lists the LSP names of the set modifiers, joined by commas
func (m TokenModifier) String() string {
	if m == ModifierNone {
		return "none"
	}
	out := ""
	for i, name := range modifierNames {
		if m&(1<<i) == 0 {
			continue
		}
		if out != "" {
			out += ","
		}
		out += name
	}
	if out == "" {
		return "unknown"
	}
	return out
}

// Legend returns the token type and modifier names in encoding order.
func Legend() (types []string, modifiers []string) {
	return append([]string(nil), tokenTypeNames[:]...), append([]string(nil), modifierNames[:]...)
}
