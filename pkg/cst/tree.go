// Package cst is the immutable, lossless concrete syntax tree.
//
// A Tree stores every token and node in flat tables and links them through
// indices. Node, Token and Element are small value handles into those tables,
// so a finished Tree can be read from any number of goroutines.
//
//	Tree
//	 ├─ tokens   []tokenData   kind, range, parent, index in parent
//	 ├─ nodes    []nodeData    kind, range, parent, index in parent, children span
//	 └─ children []ref         the children of every node, stored contiguously
package cst

import (
	"fmt"
	"iter"
	"sort"

	"github.com/walteh/dbtls/pkg/kind"
)

// Range is a half-open byte interval of the source.
type Range struct {
	Start int
	End   int
}

func (r Range) Len() int { return r.End - r.Start }

func (r Range) IsEmpty() bool { return r.Start == r.End }

// Contains reports whether offset falls inside [Start, End).
func (r Range) Contains(offset int) bool { return r.Start <= offset && offset < r.End }

// Covers is like Contains, but also accepts the end offset; use it for cursor
// positions that sit right after the last character of an element.
func (r Range) Covers(offset int) bool { return r.Start <= offset && offset <= r.End }

func (r Range) String() string { return fmt.Sprintf("%d..%d", r.Start, r.End) }

const noParent = -1

type ref struct {
	token bool
	id    int32
}

type tokenData struct {
	kind   kind.TokenKind
	rng    Range
	parent int32
	index  int32
}

type nodeData struct {
	kind   kind.SyntaxKind
	rng    Range
	parent int32
	index  int32
	first  int32
	count  int32
}

// Tree is a parsed document. The zero value is not usable; build one with a
// Builder.
type Tree struct {
	src      string
	tokens   []tokenData
	nodes    []nodeData
	children []ref
	root     int32
}

// Source is the text the tree was built from.
func (t *Tree) Source() string { return t.src }

// Root returns the top level node; its kind is kind.Template for parsed documents.
func (t *Tree) Root() Node { return Node{tree: t, id: t.root} }

// TokenCount is the number of leaf tokens in the tree.
func (t *Tree) TokenCount() int { return len(t.tokens) }

// TokenByIndex returns the i-th token in source order.
func (t *Tree) TokenByIndex(i int) Token { return Token{tree: t, id: int32(i)} }

// Tokens iterates leaf tokens in source order.
func (t *Tree) Tokens() iter.Seq[Token] {
	return func(yield func(Token) bool) {
		for i := range t.tokens {
			if !yield(Token{tree: t, id: int32(i)}) {
				return
			}
		}
	}
}

// TokenAt returns the token whose range contains offset. It descends from
// the root, binary searching the children of each node by range.
func (t *Tree) TokenAt(offset int) (Token, bool) {
	if offset < 0 || offset >= len(t.src) {
		return Token{}, false
	}
	cur := t.root
	for {
		n := &t.nodes[cur]
		kids := t.children[n.first : n.first+n.count]
		i := sort.Search(len(kids), func(i int) bool {
			return t.refRange(kids[i]).End > offset
		})
		if i == len(kids) {
			return Token{}, false
		}
		child := kids[i]
		if !t.refRange(child).Contains(offset) {
			return Token{}, false
		}
		if child.token {
			return Token{tree: t, id: child.id}, true
		}
		cur = child.id
	}
}

// CoveringNode returns the innermost node around offset whose kind is one of
// kinds. With no kinds the innermost node is returned.
func (t *Tree) CoveringNode(offset int, kinds ...kind.SyntaxKind) (Node, bool) {
	tok, ok := t.TokenAt(offset)
	if !ok {
		return Node{}, false
	}
	for n := range tok.Ancestors() {
		if len(kinds) == 0 {
			return n, true
		}
		for _, k := range kinds {
			if n.Kind() == k {
				return n, true
			}
		}
	}
	return Node{}, false
}

func (t *Tree) refRange(r ref) Range {
	if r.token {
		return t.tokens[r.id].rng
	}
	return t.nodes[r.id].rng
}

func (t *Tree) element(r ref) Element {
	return Element{tree: t, ref: r}
}

// Node is an interior element of a Tree.
type Node struct {
	tree *Tree
	id   int32
}

// IsZero reports whether n is the zero handle.
func (n Node) IsZero() bool { return n.tree == nil }

func (n Node) data() *nodeData { return &n.tree.nodes[n.id] }

func (n Node) Tree() *Tree { return n.tree }

func (n Node) Kind() kind.SyntaxKind { return n.data().kind }

func (n Node) Range() Range { return n.data().rng }

// Text is the exact source covered by the node, which is the concatenation
// of its descendant tokens.
func (n Node) Text() string {
	r := n.Range()
	return n.tree.src[r.Start:r.End]
}

func (n Node) ChildCount() int { return int(n.data().count) }

// Child returns the i-th direct child.
func (n Node) Child(i int) Element {
	d := n.data()
	return n.tree.element(n.tree.children[d.first+int32(i)])
}

// Children returns the direct children in source order.
func (n Node) Children() []Element {
	d := n.data()
	out := make([]Element, d.count)
	for i, r := range n.tree.children[d.first : d.first+d.count] {
		out[i] = n.tree.element(r)
	}
	return out
}

// ChildNodes returns the direct children that are nodes.
func (n Node) ChildNodes() []Node {
	var out []Node
	for _, c := range n.Children() {
		if cn, ok := c.AsNode(); ok {
			out = append(out, cn)
		}
	}
	return out
}

// ChildOfKind returns the first direct child of kind k.
func (n Node) ChildOfKind(k kind.SyntaxKind) (Element, bool) {
	for _, c := range n.Children() {
		if c.Kind() == k {
			return c, true
		}
	}
	return Element{}, false
}

// NodeOfKind returns the first direct child node of kind k.
func (n Node) NodeOfKind(k kind.SyntaxKind) (Node, bool) {
	for _, c := range n.ChildNodes() {
		if c.Kind() == k {
			return c, true
		}
	}
	return Node{}, false
}

// TokenOfKind returns the first direct child token of kind k.
func (n Node) TokenOfKind(k kind.TokenKind) (Token, bool) {
	for _, c := range n.Children() {
		if tok, ok := c.AsToken(); ok && tok.TokenKind() == k {
			return tok, true
		}
	}
	return Token{}, false
}

// Parent returns the enclosing node; the root has none.
func (n Node) Parent() (Node, bool) {
	p := n.data().parent
	if p == noParent {
		return Node{}, false
	}
	return Node{tree: n.tree, id: p}, true
}

// Ancestors iterates from n up to the root, n included.
func (n Node) Ancestors() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		cur, ok := n, true
		for ok {
			if !yield(cur) {
				return
			}
			cur, ok = cur.Parent()
		}
	}
}

// Descendants iterates the subtree rooted at n in pre-order, n included.
func (n Node) Descendants() iter.Seq[Element] {
	return func(yield func(Element) bool) {
		n.walk(yield)
	}
}

func (n Node) walk(yield func(Element) bool) bool {
	if !yield(Element{tree: n.tree, ref: ref{id: n.id}}) {
		return false
	}
	for _, c := range n.Children() {
		if cn, ok := c.AsNode(); ok {
			if !cn.walk(yield) {
				return false
			}
		} else if !yield(c) {
			return false
		}
	}
	return true
}

// DescendantNodes iterates every node of the subtree in pre-order.
func (n Node) DescendantNodes() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for e := range n.Descendants() {
			if dn, ok := e.AsNode(); ok && !yield(dn) {
				return
			}
		}
	}
}

// FirstToken returns the leftmost token of the subtree.
func (n Node) FirstToken() (Token, bool) {
	for e := range n.Descendants() {
		if tok, ok := e.AsToken(); ok {
			return tok, true
		}
	}
	return Token{}, false
}

// Element returns n as a generic element.
func (n Node) Element() Element { return Element{tree: n.tree, ref: ref{id: n.id}} }

func (n Node) String() string { return fmt.Sprintf("%s@%s", n.Kind(), n.Range()) }

// Token is a leaf element of a Tree.
type Token struct {
	tree *Tree
	id   int32
}

func (t Token) IsZero() bool { return t.tree == nil }

func (t Token) data() *tokenData { return &t.tree.tokens[t.id] }

// Index is the position of the token in source order.
func (t Token) Index() int { return int(t.id) }

// TokenKind is the lexer classification of the token.
func (t Token) TokenKind() kind.TokenKind { return t.data().kind }

// Kind is the leaf syntax kind of the token.
func (t Token) Kind() kind.SyntaxKind { return t.data().kind.Syntax() }

func (t Token) Range() Range { return t.data().rng }

func (t Token) Text() string {
	r := t.Range()
	return t.tree.src[r.Start:r.End]
}

func (t Token) IsTrivia() bool { return t.data().kind.IsTrivia() }

// Parent returns the node that owns the token. Every token has one.
func (t Token) Parent() (Node, bool) {
	p := t.data().parent
	if p == noParent {
		return Node{}, false
	}
	return Node{tree: t.tree, id: p}, true
}

// Ancestors iterates the nodes enclosing the token, innermost first.
func (t Token) Ancestors() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		p, ok := t.Parent()
		if !ok {
			return
		}
		for n := range p.Ancestors() {
			if !yield(n) {
				return
			}
		}
	}
}

// Prev returns the previous token in source order.
func (t Token) Prev() (Token, bool) {
	if t.id == 0 {
		return Token{}, false
	}
	return Token{tree: t.tree, id: t.id - 1}, true
}

// Next returns the following token in source order.
func (t Token) Next() (Token, bool) {
	if int(t.id)+1 >= len(t.tree.tokens) {
		return Token{}, false
	}
	return Token{tree: t.tree, id: t.id + 1}, true
}

func (t Token) Element() Element { return Element{tree: t.tree, ref: ref{token: true, id: t.id}} }

func (t Token) String() string { return fmt.Sprintf("%s@%s %q", t.TokenKind(), t.Range(), t.Text()) }

// Element is either a Node or a Token.
type Element struct {
	tree *Tree
	ref  ref
}

func (e Element) IsZero() bool { return e.tree == nil }

func (e Element) IsToken() bool { return e.ref.token }

func (e Element) AsNode() (Node, bool) {
	if e.tree == nil || e.ref.token {
		return Node{}, false
	}
	return Node{tree: e.tree, id: e.ref.id}, true
}

func (e Element) AsToken() (Token, bool) {
	if e.tree == nil || !e.ref.token {
		return Token{}, false
	}
	return Token{tree: e.tree, id: e.ref.id}, true
}

func (e Element) Kind() kind.SyntaxKind {
	if e.ref.token {
		return e.tree.tokens[e.ref.id].kind.Syntax()
	}
	return e.tree.nodes[e.ref.id].kind
}

func (e Element) Range() Range { return e.tree.refRange(e.ref) }

func (e Element) Text() string {
	r := e.Range()
	return e.tree.src[r.Start:r.End]
}

// IsTrivia reports whether the element carries no grammatical meaning:
// whitespace and comment tokens, and comment nodes.
func (e Element) IsTrivia() bool {
	if e.ref.token {
		return e.tree.tokens[e.ref.id].kind.IsTrivia()
	}
	return e.tree.nodes[e.ref.id].kind == kind.Comment
}

func (e Element) Parent() (Node, bool) {
	if e.tree == nil {
		return Node{}, false
	}
	if n, ok := e.AsNode(); ok {
		return n.Parent()
	}
	tok, _ := e.AsToken()
	return tok.Parent()
}

func (e Element) indexInParent() (Node, int, bool) {
	p, ok := e.Parent()
	if !ok {
		return Node{}, 0, false
	}
	if e.ref.token {
		return p, int(e.tree.tokens[e.ref.id].index), true
	}
	return p, int(e.tree.nodes[e.ref.id].index), true
}

// PrevSibling returns the element before e in its parent.
func (e Element) PrevSibling() (Element, bool) {
	p, i, ok := e.indexInParent()
	if !ok || i == 0 {
		return Element{}, false
	}
	return p.Child(i - 1), true
}

// NextSibling returns the element after e in its parent.
func (e Element) NextSibling() (Element, bool) {
	p, i, ok := e.indexInParent()
	if !ok || i+1 >= p.ChildCount() {
		return Element{}, false
	}
	return p.Child(i + 1), true
}

// PrevMeaningfulSibling is PrevSibling skipping trivia.
func (e Element) PrevMeaningfulSibling() (Element, bool) {
	cur, ok := e.PrevSibling()
	for ok && cur.IsTrivia() {
		cur, ok = cur.PrevSibling()
	}
	return cur, ok
}

// NextMeaningfulSibling is NextSibling skipping trivia.
func (e Element) NextMeaningfulSibling() (Element, bool) {
	cur, ok := e.NextSibling()
	for ok && cur.IsTrivia() {
		cur, ok = cur.NextSibling()
	}
	return cur, ok
}

func (e Element) String() string {
	if tok, ok := e.AsToken(); ok {
		return tok.String()
	}
	n, _ := e.AsNode()
	return n.String()
}
