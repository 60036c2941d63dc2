// Package parser builds a lossless concrete syntax tree from dbt jinja source.
//
// Statements are parsed by recursive descent driven by a stack of open
// blocks; expressions by precedence climbing. Nothing in the parser aborts on
// bad input: every problem becomes an error element in the tree plus a
// ParseError in the result.
package parser

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"github.com/walteh/dbtls/pkg/cst"
	"github.com/walteh/dbtls/pkg/kind"
	"github.com/walteh/dbtls/pkg/lexer"
	"gitlab.com/tozd/go/errors"
)

// Result is a parsed document.
type Result struct {
	Tree   *cst.Tree
	Errors []ParseError
}

// Parse tokenizes and parses src. The only errors returned are invalid
// encoding (lexer.ErrInvalidEncoding) and cancellation of ctx, which is
// checked between statements.
func Parse(ctx context.Context, src string) (*Result, error) {
	tokens, err := lexer.Tokenize(ctx, src)
	if err != nil {
		return nil, errors.Errorf("tokenizing: %w", err)
	}
	return ParseTokens(ctx, src, tokens)
}

// ParseTokens parses an already tokenized source. tokens must partition src.
func ParseTokens(ctx context.Context, src string, tokens []lexer.Token) (*Result, error) {
	p := &parser{
		ctx:    ctx,
		src:    src,
		tokens: tokens,
		b:      cst.NewBuilder(src),
	}

	if err := p.parseTemplate(); err != nil {
		return nil, errors.Errorf("parse interrupted: %w", err)
	}

	sort.SliceStable(p.errors, func(i, j int) bool {
		return p.errors[i].Range.Start < p.errors[j].Range.Start
	})

	zerolog.Ctx(ctx).Debug().
		Int("tokens", len(tokens)).
		Int("errors", len(p.errors)).
		Msg("parsed template")

	return &Result{
		Tree:   p.b.Finish(kind.Template),
		Errors: p.errors,
	}, nil
}

// eof is returned by the lookahead helpers past the last token.
const eof = kind.TokenKind(math.MaxUint16)

type parser struct {
	ctx    context.Context
	src    string
	tokens []lexer.Token
	pos    int
	b      *cst.Builder
	tags   []openTag
	errors []ParseError
	depth  int
}

func (p *parser) parseTemplate() error {
	p.b.StartNode(kind.Template)
	for p.pos < len(p.tokens) {
		if err := p.ctx.Err(); err != nil {
			return err
		}
		switch p.current() {
		case kind.Data:
			p.wrap(kind.ExprData)
		case kind.RawBegin:
			p.parseRaw()
		case kind.CommentBegin:
			p.parseComment()
		case kind.VariableBegin:
			p.parseVariable()
		case kind.BlockBegin:
			p.parseStatement()
		default:
			p.syntaxErrorHere("unexpected %s outside of a tag", p.current())
			p.bumpError()
		}
	}
	p.closeAllTags()
	p.flushTrivia()
	p.b.FinishNode()
	return nil
}

// token helpers. Whitespace is never emitted by lookahead: it stays pending
// until the next bump, startNode or checkpoint, so it lands in front of the
// element that follows it.

// nth returns the index of the n-th significant token from the cursor.
func (p *parser) nth(n int) int {
	i := p.pos
	for {
		for i < len(p.tokens) && p.tokens[i].Kind == kind.Whitespace {
			i++
		}
		if n == 0 || i >= len(p.tokens) {
			return i
		}
		n--
		i++
	}
}

func (p *parser) peekKind(n int) kind.TokenKind {
	i := p.nth(n)
	if i >= len(p.tokens) {
		return eof
	}
	return p.tokens[i].Kind
}

func (p *parser) current() kind.TokenKind { return p.peekKind(0) }

func (p *parser) currentToken() (lexer.Token, bool) {
	i := p.nth(0)
	if i >= len(p.tokens) {
		return lexer.Token{}, false
	}
	return p.tokens[i], true
}

// peekName reports whether the n-th significant token is the name word.
func (p *parser) peekName(n int, word string) bool {
	i := p.nth(n)
	return i < len(p.tokens) && p.tokens[i].Kind == kind.Name && p.tokens[i].Text == word
}

func (p *parser) atName(word string) bool { return p.peekName(0, word) }

func (p *parser) atEnd() bool {
	switch p.current() {
	case eof, kind.VariableEnd, kind.BlockEnd:
		return true
	}
	return false
}

func (p *parser) flushTrivia() {
	for p.pos < len(p.tokens) && p.tokens[p.pos].Kind == kind.Whitespace {
		p.b.Token(kind.Whitespace, p.tokens[p.pos].Len())
		p.pos++
	}
}

func (p *parser) push(k kind.TokenKind) {
	tok := p.tokens[p.pos]
	if tok.Kind == kind.ErrorToken {
		p.errorAt(LexError, cst.Range{Start: tok.Start, End: tok.End}, kind.ErrorNode, "unexpected character %q", tok.Text)
	}
	p.b.Token(k, tok.Len())
	p.pos++
}

// bump consumes the next significant token.
func (p *parser) bump() {
	p.flushTrivia()
	if p.pos >= len(p.tokens) {
		return
	}
	p.push(p.tokens[p.pos].Kind)
}

// bumpError consumes the next significant token as an error leaf.
func (p *parser) bumpError() {
	p.flushTrivia()
	if p.pos >= len(p.tokens) {
		return
	}
	p.push(kind.ErrorToken)
}

func (p *parser) startNode(k kind.SyntaxKind) {
	p.flushTrivia()
	p.b.StartNode(k)
}

func (p *parser) checkpoint() cst.Checkpoint {
	p.flushTrivia()
	return p.b.Checkpoint()
}

func (p *parser) finishNode() { p.b.FinishNode() }

// maxDepth bounds how deeply expressions and assignment targets nest.
const maxDepth = 256

// enter opens one level of nesting. Past maxDepth it records a syntax error,
// consumes the next token as an error leaf and reports false; the caller
// must then return without calling leave.
func (p *parser) enter() bool {
	if p.depth >= maxDepth {
		p.syntaxErrorHere("expression nested too deeply")
		if !p.atEnd() {
			p.bumpError()
		}
		return false
	}
	p.depth++
	return true
}

func (p *parser) leave() { p.depth-- }

// wrap consumes one token inside a node of kind k.
func (p *parser) wrap(k kind.SyntaxKind) {
	p.startNode(k)
	p.bump()
	p.finishNode()
}

// errorUntil consumes tokens as error leaves until one of want is next. It
// stops without consuming at the end of the tag and reports false.
func (p *parser) errorUntil(want ...kind.TokenKind) (kind.TokenKind, bool) {
	skipped := cst.Range{Start: -1}
	defer func() {
		if skipped.Start >= 0 {
			p.errorAt(SyntaxError, skipped, kind.ErrorNode, "unexpected %q, expected %s", p.src[skipped.Start:skipped.End], describe(want))
		}
	}()
	for {
		cur := p.current()
		for _, w := range want {
			if cur == w {
				return cur, true
			}
		}
		if p.atEnd() {
			return cur, false
		}
		tok, _ := p.currentToken()
		if skipped.Start < 0 {
			skipped.Start = tok.Start
		}
		skipped.End = tok.End
		p.bumpError()
	}
}

// skipToTagEnd consumes the rest of a tag as error leaves without recording
// anything; callers have already reported the problem.
func (p *parser) skipToTagEnd() {
	for !p.atEnd() {
		p.bumpError()
	}
}

func describe(kinds []kind.TokenKind) string {
	out := ""
	for i, k := range kinds {
		if i > 0 {
			if i == len(kinds)-1 {
				out += " or "
			} else {
				out += ", "
			}
		}
		if sym := k.Symbol(); sym != "" {
			out += "'" + sym + "'"
		} else {
			out += k.String()
		}
	}
	return out
}

func (p *parser) errorAt(c Category, r cst.Range, k kind.SyntaxKind, format string, args ...any) {
	p.errors = append(p.errors, ParseError{
		Range:    r,
		Message:  fmt.Sprintf(format, args...),
		Category: c,
		Kind:     k,
	})
}

// hereRange is the range of the next significant token, or an empty range
// at the end of the source.
func (p *parser) hereRange() cst.Range {
	if tok, ok := p.currentToken(); ok {
		return cst.Range{Start: tok.Start, End: tok.End}
	}
	return cst.Range{Start: len(p.src), End: len(p.src)}
}

func (p *parser) syntaxErrorHere(format string, args ...any) {
	p.errorAt(SyntaxError, p.hereRange(), kind.ErrorNode, format, args...)
}

// unexpectedHere reports the next token; at the end of a tag it says so
// instead of naming the closing delimiter.
func (p *parser) unexpectedHere(expected string) {
	if p.atEnd() {
		p.syntaxErrorHere("expected %s, found end of tag", expected)
		return
	}
	tok, _ := p.currentToken()
	p.syntaxErrorHere("expected %s, found %q", expected, tok.Text)
}
