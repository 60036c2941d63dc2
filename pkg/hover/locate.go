package hover

import (
	"strings"

	"github.com/walteh/dbtls/pkg/cst"
	"github.com/walteh/dbtls/pkg/kind"
	"github.com/walteh/dbtls/pkg/project"
)

// TargetKind says what a Target points at.
type TargetKind int

const (
	// TargetToken is any token without a more specific meaning.
	TargetToken TargetKind = iota
	// TargetMacro is the callee of a call expression.
	TargetMacro
	// TargetRef is the model name argument of ref(...).
	TargetRef
)

// Target is what sits under an offset.
type Target struct {
	Kind TargetKind
	// Name is the macro identifier ("pkg.name" when qualified) or the model
	// name.
	Name  string
	Range cst.Range
	Token cst.Token
}

// TokenNear returns the token at offset, or the one ending there when offset
// is at the end of a token.
func TokenNear(tree *cst.Tree, offset int) (cst.Token, bool) {
	tok, ok := tree.TokenAt(offset)
	if ok && !tok.IsTrivia() {
		return tok, true
	}
	if prev, ok := tree.TokenAt(offset - 1); ok && !prev.IsTrivia() {
		return prev, true
	}
	return tok, ok
}

// Locate resolves what the token at offset refers to.
func Locate(tree *cst.Tree, offset int) (Target, bool) {
	tok, ok := TokenNear(tree, offset)
	if !ok {
		return Target{}, false
	}
	target := Target{Kind: TargetToken, Range: tok.Range(), Token: tok}

	call, inArgs, ok := EnclosingCall(tok)
	if !ok {
		return target, true
	}
	callee := Callee(call)
	switch {
	case !inArgs:
		name := CalleeName(call)
		if name == "" {
			return target, true
		}
		target.Kind = TargetMacro
		target.Name = name
		target.Range = callee.Range()
	case tok.TokenKind() == kind.StringLiteral && CalleeName(call) == "ref":
		target.Kind = TargetRef
		target.Name = project.Unquote(tok.Text())
	}
	return target, true
}

// EnclosingCall finds the innermost call expression around tok and whether
// tok lies in its argument list rather than its callee.
func EnclosingCall(tok cst.Token) (call cst.Node, inArgs bool, ok bool) {
	var prev cst.Node
	for n := range tok.Ancestors() {
		switch n.Kind() {
		case kind.ExprCall:
			return n, !prev.IsZero() && prev.Kind() == kind.CallArguments, true
		case kind.Variable, kind.Template:
			return cst.Node{}, false, false
		}
		prev = n
	}
	return cst.Node{}, false, false
}

// Callee is the expression being called.
func Callee(call cst.Node) cst.Node {
	for _, c := range call.ChildNodes() {
		if c.Kind() != kind.CallArguments {
			return c
		}
	}
	return cst.Node{}
}

// CalleeName renders the callee of call when it is a plain or dotted name,
// e.g. "ref" or "dbt_utils.star". Anything else gives "".
func CalleeName(call cst.Node) string {
	callee := Callee(call)
	if callee.IsZero() {
		return ""
	}
	switch callee.Kind() {
	case kind.ExprName, kind.ExprGetAttr:
	default:
		return ""
	}
	var sb strings.Builder
	for el := range callee.Descendants() {
		tok, ok := el.AsToken()
		if !ok || tok.IsTrivia() {
			continue
		}
		switch tok.TokenKind() {
		case kind.Name, kind.Dot:
			sb.WriteString(tok.Text())
		default:
			return ""
		}
	}
	return sb.String()
}
