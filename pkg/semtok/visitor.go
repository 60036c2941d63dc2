package semtok

import (
	"slices"

	"github.com/walteh/dbtls/pkg/cst"
	"github.com/walteh/dbtls/pkg/kind"
	"github.com/walteh/dbtls/pkg/project"
)

// tokenVisitor classifies the tokens of a tree in source order.
type tokenVisitor struct {
	tokens []Token
	within cst.Range
}

func newTokenVisitor(within cst.Range) *tokenVisitor {
	return &tokenVisitor{within: within}
}

func (v *tokenVisitor) visit(tok cst.Token) {
	r := tok.Range()
	if r.IsEmpty() || r.End <= v.within.Start || r.Start >= v.within.End {
		return
	}
	typ, mod, ok := classify(tok)
	if !ok {
		return
	}
	v.tokens = append(v.tokens, Token{Type: typ, Modifier: mod, Range: r})
}

func classify(tok cst.Token) (TokenType, TokenModifier, bool) {
	k := tok.TokenKind()
	switch {
	case k == kind.StringLiteral:
		return TokenString, ModifierNone, true
	case k == kind.IntegerLiteral || k == kind.FloatLiteral:
		return TokenNumber, ModifierReadonly, true
	case k == kind.CommentBegin || k == kind.CommentData || k == kind.CommentEnd:
		return TokenComment, ModifierNone, true
	case k.Symbol() != "":
		return TokenOperator, ModifierNone, true
	case k == kind.Name:
		typ, mod := classifyName(tok)
		return typ, mod, true
	}
	// data, delimiters, whitespace and error tokens keep the client's
	// own highlighting
	return 0, 0, false
}

func classifyName(tok cst.Token) (TokenType, TokenModifier) {
	parent, ok := tok.Parent()
	if !ok {
		return TokenKeyword, ModifierNone
	}

	switch parent.Kind() {
	case kind.ExprName:
		return classifyExprName(tok, parent)
	case kind.Subscript:
		if attr, ok := parent.Parent(); ok && isCallee(attr) {
			return TokenFunction, ModifierNone
		}
		return TokenProperty, ModifierNone
	case kind.ExprFilterName, kind.ExprNestedName, kind.ExprTest:
		return TokenFunction, ModifierDefaultLibrary
	case kind.CallStaticKwarg:
		return TokenParameter, ModifierNone
	case kind.ExprNamespaceRef:
		return TokenVariable, ModifierNone
	case kind.ExprConstantBool, kind.ExprConstantNone:
		return TokenKeyword, ModifierReadonly
	case kind.ImportName:
		if tok.Text() == "as" {
			return TokenKeyword, ModifierNone
		}
		return TokenFunction, ModifierNone
	}
	return TokenKeyword, ModifierNone
}

func classifyExprName(tok cst.Token, name cst.Node) (TokenType, TokenModifier) {
	holder, ok := name.Parent()
	if !ok {
		return TokenVariable, ModifierNone
	}
	switch holder.Kind() {
	case kind.MacroBlockStart, kind.TestBlockStart:
		return TokenFunction, ModifierDeclaration
	case kind.SignatureArg, kind.SignatureDefaultArg:
		return TokenParameter, ModifierDeclaration
	}
	if isCallee(name) {
		return TokenFunction, builtinModifier(tok.Text())
	}
	return TokenVariable, ModifierNone
}

// isCallee reports whether n is the function part of a call.
func isCallee(n cst.Node) bool {
	call, ok := n.Parent()
	if !ok || call.Kind() != kind.ExprCall {
		return false
	}
	nodes := call.ChildNodes()
	return len(nodes) > 0 && nodes[0] == n
}

func builtinModifier(name string) TokenModifier {
	if slices.ContainsFunc(project.Builtins, func(b project.Builtin) bool { return b.Name == name }) {
		return ModifierDefaultLibrary
	}
	return ModifierNone
}
