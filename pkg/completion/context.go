package completion

import (
	"github.com/walteh/dbtls/pkg/cst"
	"github.com/walteh/dbtls/pkg/hover"
	"github.com/walteh/dbtls/pkg/kind"
	"github.com/walteh/dbtls/pkg/project"
)

// CompletionContext holds information about the completion request context
type CompletionContext struct {
	File   *project.File
	Offset int
	// InExpression is set inside {{ }} or a tag, past the tag name.
	InExpression bool
	// InRef is set inside the argument list of ref(...).
	InRef bool
	// InString is set between the quotes of a string literal.
	InString bool
	// Prefix is the partial name before the cursor, Replace the range a
	// chosen item overwrites.
	Prefix  string
	Replace cst.Range
}

// NewCompletionContext creates a new completion context for the cursor at
// offset, which sits between offset-1 and offset.
func NewCompletionContext(f *project.File, offset int) *CompletionContext {
	ctx := &CompletionContext{
		File:    f,
		Offset:  offset,
		Replace: cst.Range{Start: offset, End: offset},
	}

	tok, ok := f.Tree.TokenAt(offset - 1)
	if !ok {
		return ctx
	}
	src := f.Tree.Source()
	rng := tok.Range()

	switch tok.TokenKind() {
	case kind.Data, kind.CommentBegin, kind.CommentData, kind.CommentEnd,
		kind.RawBegin, kind.RawEnd, kind.VariableEnd, kind.BlockEnd, kind.ErrorToken:
		return ctx
	case kind.StringLiteral:
		if offset >= rng.End {
			return ctx
		}
		ctx.InString = true
		ctx.Prefix = src[rng.Start+1 : offset]
		ctx.Replace = cst.Range{Start: rng.Start + 1, End: rng.End - 1}
	case kind.Name:
		ctx.Prefix = src[rng.Start:offset]
		ctx.Replace = rng
		if dot, ok := meaningfulBefore(tok); ok && dot.TokenKind() == kind.Dot {
			if pkg, ok := meaningfulBefore(dot); ok && pkg.TokenKind() == kind.Name {
				ctx.Prefix = pkg.Text() + "." + ctx.Prefix
				ctx.Replace.Start = pkg.Range().Start
			}
		}
	case kind.Dot:
		if pkg, ok := meaningfulBefore(tok); ok && pkg.TokenKind() == kind.Name {
			ctx.Prefix = pkg.Text() + "."
			ctx.Replace = cst.Range{Start: pkg.Range().Start, End: offset}
		}
	}

	ctx.InExpression = !afterBlockBegin(tok)
	if call, inArgs, ok := hover.EnclosingCall(tok); ok && inArgs {
		ctx.InRef = hover.CalleeName(call) == "ref"
	}
	return ctx
}

func meaningfulBefore(tok cst.Token) (cst.Token, bool) {
	for {
		prev, ok := tok.Prev()
		if !ok || !prev.IsTrivia() {
			return prev, ok
		}
		tok = prev
	}
}

// afterBlockBegin reports whether tok is a block opener or the tag name
// right after one, where a tag keyword rather than an expression goes.
func afterBlockBegin(tok cst.Token) bool {
	switch tok.TokenKind() {
	case kind.BlockBegin:
		return true
	case kind.Name, kind.Whitespace:
		prev, ok := meaningfulBefore(tok)
		return ok && prev.TokenKind() == kind.BlockBegin
	}
	return false
}
