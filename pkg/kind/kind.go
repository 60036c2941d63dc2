package kind

import (
	"fmt"
	"sync"
)

// TokenKind classifies a terminal produced by the lexer.
type TokenKind uint16

// SyntaxKind classifies a tree element. Ids below the root kind are leaf
// mirrors of the token kind with the same id.
type SyntaxKind uint16

// Default returns the table decoded from the embedded syntax.toml. It is
// built on first use and never mutated afterwards.
var Default = sync.OnceValue(func() *Table {
	t := MustLoad(syntaxTOML)
	if t.TokenCount() != tokenKindCount || t.SyntaxCount() != syntaxKindCount {
		panic(fmt.Sprintf("kind: syntax.toml (%d tokens, %d syntax kinds) is out of date with kind_gen.go (%d, %d); run go generate",
			t.TokenCount(), t.SyntaxCount(), tokenKindCount, syntaxKindCount))
	}
	return t
})

// LookupOperator resolves an operator or comparison symbol. Unknown symbols
// resolve to ErrorToken.
func LookupOperator(symbol string) TokenKind {
	return Default().Operator(symbol)
}

// LookupKeyword resolves a block keyword ("for", "endif", ...) to the syntax
// kind it introduces. Unknown keywords resolve to ErrorNode.
func LookupKeyword(word string) SyntaxKind {
	return Default().Tag(word)
}

// LookupNameOperator resolves a keyword operator ("and", "not in", ...).
// Unknown words resolve to ErrorNode.
func LookupNameOperator(word string) SyntaxKind {
	return Default().NameOperator(word)
}

func (k TokenKind) String() string {
	if name := Default().TokenName(k); name != "" {
		return name
	}
	return fmt.Sprintf("TokenKind(%d)", uint16(k))
}

// Symbol is the literal text of an operator kind, or "" for other kinds.
func (k TokenKind) Symbol() string {
	return Default().TokenSymbol(k)
}

// IsTrivia reports whether tokens of this kind carry no grammatical meaning.
func (k TokenKind) IsTrivia() bool {
	switch k {
	case Whitespace, CommentBegin, CommentData, CommentEnd:
		return true
	}
	return false
}

func (k TokenKind) IsComparison() bool {
	return Default().IsComparison(k)
}

func (k TokenKind) IsError() bool {
	return k == ErrorToken
}

// Syntax lifts a token kind into its leaf syntax kind.
func (k TokenKind) Syntax() SyntaxKind {
	return SyntaxKind(k)
}

func (k SyntaxKind) String() string {
	if name := Default().SyntaxName(k); name != "" {
		return name
	}
	return fmt.Sprintf("SyntaxKind(%d)", uint16(k))
}

// IsLeaf reports whether k mirrors a token kind.
func (k SyntaxKind) IsLeaf() bool {
	return k < Template
}

func (k SyntaxKind) IsError() bool {
	return k == ErrorNode
}

// Token returns the token kind a leaf kind mirrors.
func (k SyntaxKind) Token() (TokenKind, bool) {
	if !k.IsLeaf() {
		return ErrorToken, false
	}
	return TokenKind(k), true
}
