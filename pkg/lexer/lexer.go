// Package lexer splits dbt jinja source into a gapless sequence of tokens.
package lexer

import (
	"context"
	"regexp"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/rs/zerolog"
	"github.com/walteh/dbtls/pkg/kind"
	"gitlab.com/tozd/go/errors"
)

// ErrInvalidEncoding is returned for input that is not valid UTF-8. It is the
// only error Tokenize reports; every other irregularity becomes an
// ErrorToken in the output.
var ErrInvalidEncoding = errors.Base("source is not valid UTF-8")

// Token is a classified byte range of the source.
type Token struct {
	Kind  kind.TokenKind
	Start int
	End   int
	Text  string
}

func (t Token) IsTrivia() bool { return t.Kind.IsTrivia() }

func (t Token) Len() int { return t.End - t.Start }

const (
	rawOpen    = `\{%[-+]?\s*raw\s*[-+]?%\}`
	rawClose   = `\{%[-+]?\s*endraw\s*[-+]?%\}`
	operatorRe = `\*\*|//|==|!=|>=|<=|[-+*/%~|=:,.()\[\]{}<>;]`
)

// Rules is the stateful rule set. Root covers text outside markers, Variable
// and Block cover the inside of {{ }} and {% %}. Braces inside a variable are
// balanced through VarBrace so `}}` closing a nested dict does not end the
// variable.
var Rules = lexer.Rules{
	"Root": {
		{Name: "Raw", Pattern: rawOpen + `(?s:.*?)` + rawClose},
		{Name: "RawUnterminated", Pattern: rawOpen + `(?s:.*)`},
		{Name: "Comment", Pattern: `\{#(?s:.*?)#\}`},
		{Name: "CommentUnterminated", Pattern: `\{#(?s:.*)`},
		{Name: "VariableBegin", Pattern: `\{\{[-+]?`, Action: lexer.Push("Variable")},
		{Name: "BlockBegin", Pattern: `\{%[-+]?`, Action: lexer.Push("Block")},
		{Name: "Data", Pattern: `[^{]+|\{`},
	},
	"Variable": {
		{Name: "VariableEnd", Pattern: `[-+]?\}\}`, Action: lexer.Pop()},
		{Name: "OpenBrace", Pattern: `\{`, Action: lexer.Push("VarBrace")},
		lexer.Include("Expr"),
	},
	"VarBrace": {
		{Name: "CloseBrace", Pattern: `\}`, Action: lexer.Pop()},
		{Name: "OpenBrace", Pattern: `\{`, Action: lexer.Push("VarBrace")},
		lexer.Include("Expr"),
	},
	"Block": {
		{Name: "BlockEnd", Pattern: `[-+]?%\}`, Action: lexer.Pop()},
		lexer.Include("Expr"),
	},
	"Expr": {
		{Name: "Whitespace", Pattern: `\s+`},
		{Name: "Float", Pattern: `\d[\d_]*\.\d[\d_]*(?:[eE][+-]?\d[\d_]*)?|\d[\d_]*[eE][+-]?\d[\d_]*`},
		{Name: "Integer", Pattern: `0[bB][01_]+|0[oO][0-7_]+|0[xX][0-9a-fA-F_]+|\d[\d_]*`},
		{Name: "String", Pattern: `'(?:\\(?s:.)|[^'\\])*'|"(?:\\(?s:.)|[^"\\])*"`},
		{Name: "Name", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
		{Name: "Operator", Pattern: operatorRe},
		{Name: "Char", Pattern: `(?s:.)`},
	},
}

// Definition is the compiled form of Rules.
var Definition = lexer.MustStateful(Rules)

var (
	rawParts     = regexp.MustCompile(`^(` + rawOpen + `)((?s:.*?))(` + rawClose + `)?$`)
	commentParts = regexp.MustCompile(`^(\{#)((?s:.*?))(#\})?$`)
)

// direct maps participle rule names onto kinds that need no further
// classification.
var direct = map[string]kind.TokenKind{
	"VariableBegin": kind.VariableBegin,
	"VariableEnd":   kind.VariableEnd,
	"BlockBegin":    kind.BlockBegin,
	"BlockEnd":      kind.BlockEnd,
	"Data":          kind.Data,
	"OpenBrace":     kind.LeftBrace,
	"CloseBrace":    kind.RightBrace,
	"Whitespace":    kind.Whitespace,
	"Float":         kind.FloatLiteral,
	"Integer":       kind.IntegerLiteral,
	"String":        kind.StringLiteral,
	"Name":          kind.Name,
	"Char":          kind.ErrorToken,
}

var ruleNames = func() map[lexer.TokenType]string {
	out := map[lexer.TokenType]string{}
	for name, typ := range Definition.Symbols() {
		out[typ] = name
	}
	return out
}()

// Tokenize lexes src. The returned tokens partition [0, len(src)).
func Tokenize(ctx context.Context, src string) ([]Token, error) {
	if !utf8.ValidString(src) {
		return nil, ErrInvalidEncoding
	}

	lex, err := Definition.LexString("", src)
	if err != nil {
		return nil, errors.Errorf("starting lexer: %w", err)
	}

	tokens := make([]Token, 0, len(src)/4+1)
	emit := func(k kind.TokenKind, start int, text string) {
		if text == "" {
			return
		}
		tokens = append(tokens, Token{Kind: k, Start: start, End: start + len(text), Text: text})
	}

	for {
		tok, err := lex.Next()
		if err != nil {
			// every state ends in a catch-all rule, so this only happens on
			// input the regexp engine refuses outright
			return nil, errors.Errorf("lexing at offset %d: %w", tok.Pos.Offset, err)
		}
		if tok.EOF() {
			break
		}

		start := tok.Pos.Offset
		name := ruleNames[tok.Type]

		switch name {
		case "Raw", "RawUnterminated":
			m := rawParts.FindStringSubmatch(tok.Value)
			emit(kind.RawBegin, start, m[1])
			emit(kind.Data, start+len(m[1]), m[2])
			emit(kind.RawEnd, start+len(m[1])+len(m[2]), m[3])
		case "Comment", "CommentUnterminated":
			m := commentParts.FindStringSubmatch(tok.Value)
			emit(kind.CommentBegin, start, m[1])
			emit(kind.CommentData, start+len(m[1]), m[2])
			emit(kind.CommentEnd, start+len(m[1])+len(m[2]), m[3])
		case "Operator":
			emit(kind.LookupOperator(tok.Value), start, tok.Value)
		default:
			k, ok := direct[name]
			if !ok {
				k = kind.ErrorToken
			}
			emit(k, start, tok.Value)
		}
	}

	zerolog.Ctx(ctx).Trace().Int("bytes", len(src)).Int("tokens", len(tokens)).Msg("tokenized source")

	return tokens, nil
}

// Text reassembles the source covered by tokens.
func Text(tokens []Token) string {
	n := 0
	for _, t := range tokens {
		n += len(t.Text)
	}
	buf := make([]byte, 0, n)
	for _, t := range tokens {
		buf = append(buf, t.Text...)
	}
	return string(buf)
}
