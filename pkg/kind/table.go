// Package kind holds the closed taxonomy of token (terminal) and syntax
// (nonterminal) kinds shared by the lexer, parser and tree.
//
// The taxonomy is described once in syntax.toml. kind_gen.go carries the
// generated constants and the same file is embedded and decoded at startup
// into the process-wide lookup table.
package kind

import (
	"bytes"
	_ "embed"
	"io"
	"maps"
	"slices"

	"github.com/BurntSushi/toml"
	"gitlab.com/tozd/go/errors"
)

//go:generate go run ../../cmd/kindgen -in syntax.toml -out kind_gen.go

//go:embed syntax.toml
var syntaxTOML []byte

// errorName is the display name of both reserved sentinels.
const errorName = "Error"

// Grammar is the decoded form of syntax.toml.
type Grammar struct {
	Root          string     `toml:"root"`
	Comparisons   [][]string `toml:"comparisons"`
	Operators     [][]string `toml:"operators"`
	Tokens        []string   `toml:"tokens"`
	Statements    []string   `toml:"statements"`
	Expressions   []string   `toml:"expressions"`
	Composites    []string   `toml:"composites"`
	NameOperators [][]string `toml:"name_operators"`
	Tags          [][]string `toml:"tags"`
}

// Table is an immutable id assignment built from a Grammar.
type Table struct {
	tokenNames   []string
	tokenSymbols []string
	syntaxNames  []string

	comparisons int
	operators   map[string]TokenKind

	nameOperators map[string]SyntaxKind
	tags          map[string]SyntaxKind

	tokenByName  map[string]TokenKind
	syntaxByName map[string]SyntaxKind
}

// Load decodes a grammar description and assigns ids in declaration order.
func Load(r io.Reader) (*Table, error) {
	var g Grammar
	md, err := toml.NewDecoder(r).Decode(&g)
	if err != nil {
		return nil, errors.Errorf("decoding syntax description: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Errorf("unknown keys in syntax description: %v", undecoded)
	}
	return g.Build()
}

// MustLoad is Load for embedded descriptions that are known to be valid.
func MustLoad(data []byte) *Table {
	t, err := Load(bytes.NewReader(data))
	if err != nil {
		panic(err)
	}
	return t
}

// Build assigns ids to every kind in g.
func (g *Grammar) Build() (*Table, error) {
	t := &Table{
		tokenNames:    []string{errorName},
		tokenSymbols:  []string{""},
		operators:     map[string]TokenKind{},
		nameOperators: map[string]SyntaxKind{},
		tags:          map[string]SyntaxKind{},
		tokenByName:   map[string]TokenKind{},
		syntaxByName:  map[string]SyntaxKind{},
	}

	addToken := func(symbol, name string) error {
		if _, dup := t.tokenByName[name]; dup || name == errorName {
			return errors.Errorf("duplicate token kind %q", name)
		}
		id := TokenKind(len(t.tokenNames))
		t.tokenNames = append(t.tokenNames, name)
		t.tokenSymbols = append(t.tokenSymbols, symbol)
		t.tokenByName[name] = id
		if symbol != "" {
			if _, dup := t.operators[symbol]; dup {
				return errors.Errorf("duplicate operator symbol %q", symbol)
			}
			t.operators[symbol] = id
		}
		return nil
	}

	for _, pair := range g.Comparisons {
		if len(pair) != 2 {
			return nil, errors.Errorf("comparison entry %v: want [symbol, name]", pair)
		}
		if err := addToken(pair[0], pair[1]); err != nil {
			return nil, err
		}
	}
	t.comparisons = len(g.Comparisons)
	for _, pair := range g.Operators {
		if len(pair) != 2 {
			return nil, errors.Errorf("operator entry %v: want [symbol, name]", pair)
		}
		if err := addToken(pair[0], pair[1]); err != nil {
			return nil, err
		}
	}
	for _, name := range g.Tokens {
		if err := addToken("", name); err != nil {
			return nil, err
		}
	}

	// leaf mirrors share the token ids
	t.syntaxNames = slices.Clone(t.tokenNames)
	for name, id := range t.tokenByName {
		t.syntaxByName[name] = SyntaxKind(id)
	}

	addSyntax := func(name string) error {
		if _, dup := t.syntaxByName[name]; dup || name == errorName {
			return errors.Errorf("duplicate syntax kind %q", name)
		}
		t.syntaxByName[name] = SyntaxKind(len(t.syntaxNames))
		t.syntaxNames = append(t.syntaxNames, name)
		return nil
	}

	if g.Root == "" {
		return nil, errors.New("syntax description has no root kind")
	}
	if err := addSyntax(g.Root); err != nil {
		return nil, err
	}
	for _, group := range [][]string{g.Statements, g.Expressions, g.Composites} {
		for _, name := range group {
			if err := addSyntax(name); err != nil {
				return nil, err
			}
		}
	}
	for _, pair := range g.NameOperators {
		if len(pair) != 2 {
			return nil, errors.Errorf("name operator entry %v: want [keyword, name]", pair)
		}
		if err := addSyntax(pair[1]); err != nil {
			return nil, err
		}
		t.nameOperators[pair[0]] = t.syntaxByName[pair[1]]
	}

	for _, pair := range g.Tags {
		if len(pair) != 2 {
			return nil, errors.Errorf("tag entry %v: want [keyword, kind]", pair)
		}
		k, ok := t.syntaxByName[pair[1]]
		if !ok {
			return nil, errors.Errorf("tag %q refers to unknown syntax kind %q", pair[0], pair[1])
		}
		if _, dup := t.tags[pair[0]]; dup {
			return nil, errors.Errorf("duplicate tag %q", pair[0])
		}
		t.tags[pair[0]] = k
	}

	return t, nil
}

// TokenCount is the number of token kinds, including ErrorToken.
func (t *Table) TokenCount() int { return len(t.tokenNames) }

// SyntaxCount is the number of syntax kinds, including ErrorNode and the leaf mirrors.
func (t *Table) SyntaxCount() int { return len(t.syntaxNames) }

// Root is the kind of the tree root; it is the first id after the leaf mirrors.
func (t *Table) Root() SyntaxKind { return SyntaxKind(len(t.tokenNames)) }

// TokenName returns the name of k, or "" if k is not in the table.
func (t *Table) TokenName(k TokenKind) string {
	if int(k) >= len(t.tokenNames) {
		return ""
	}
	return t.tokenNames[k]
}

// TokenSymbol returns the literal text of an operator or comparison kind.
func (t *Table) TokenSymbol(k TokenKind) string {
	if int(k) >= len(t.tokenSymbols) {
		return ""
	}
	return t.tokenSymbols[k]
}

// SyntaxName returns the name of k, or "" if k is not in the table.
func (t *Table) SyntaxName(k SyntaxKind) string {
	if int(k) >= len(t.syntaxNames) {
		return ""
	}
	return t.syntaxNames[k]
}

// Operator resolves an exact operator or comparison symbol.
func (t *Table) Operator(symbol string) TokenKind {
	return t.operators[symbol]
}

// IsComparison reports whether k was declared under comparisons.
func (t *Table) IsComparison(k TokenKind) bool {
	return k > ErrorToken && int(k) <= t.comparisons
}

// NameOperator resolves a keyword operator such as "and" or "not in".
func (t *Table) NameOperator(word string) SyntaxKind {
	return t.nameOperators[word]
}

// Tag resolves a block keyword to the kind of construct it introduces.
func (t *Table) Tag(word string) SyntaxKind {
	return t.tags[word]
}

// TokenByName finds a token kind by its declared name.
func (t *Table) TokenByName(name string) (TokenKind, bool) {
	k, ok := t.tokenByName[name]
	return k, ok
}

// SyntaxByName finds a syntax kind by its declared name.
func (t *Table) SyntaxByName(name string) (SyntaxKind, bool) {
	k, ok := t.syntaxByName[name]
	return k, ok
}

// Symbols returns a copy of the operator symbol to id mapping.
func (t *Table) Symbols() map[string]TokenKind {
	return maps.Clone(t.operators)
}

// SyntaxNames returns every syntax kind name indexed by id.
func (t *Table) SyntaxNames() []string { return slices.Clone(t.syntaxNames) }

// TokenNames returns every token kind name indexed by id.
func (t *Table) TokenNames() []string { return slices.Clone(t.tokenNames) }

// Equal reports whether both tables assign the same ids to the same names,
// symbols and keywords.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	return slices.Equal(t.tokenNames, o.tokenNames) &&
		slices.Equal(t.tokenSymbols, o.tokenSymbols) &&
		slices.Equal(t.syntaxNames, o.syntaxNames) &&
		t.comparisons == o.comparisons &&
		maps.Equal(t.nameOperators, o.nameOperators) &&
		maps.Equal(t.tags, o.tags)
}
