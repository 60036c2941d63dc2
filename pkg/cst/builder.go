package cst

import (
	"github.com/walteh/dbtls/pkg/kind"
)

// Checkpoint marks a position among the children of the currently open node.
// A node started at a checkpoint adopts every element pushed after it.
type Checkpoint int

type openNode struct {
	kind  kind.SyntaxKind
	first int
}

// Builder assembles a Tree bottom-up. Tokens must be pushed in source order
// and must cover the source without gaps.
type Builder struct {
	tree    *Tree
	open    []openNode
	pending []ref
	cursor  int
}

func NewBuilder(src string) *Builder {
	return &Builder{
		tree: &Tree{src: src, root: noParent},
	}
}

// Offset is the end of the last pushed token.
func (b *Builder) Offset() int { return b.cursor }

// Depth is the number of currently open nodes.
func (b *Builder) Depth() int { return len(b.open) }

// StartNode opens a node of kind k.
func (b *Builder) StartNode(k kind.SyntaxKind) {
	b.open = append(b.open, openNode{kind: k, first: len(b.pending)})
}

// Checkpoint records the current position so a node can be wrapped around
// elements that are pushed afterwards.
func (b *Builder) Checkpoint() Checkpoint {
	return Checkpoint(len(b.pending))
}

// StartNodeAt opens a node of kind k that starts at cp.
func (b *Builder) StartNodeAt(cp Checkpoint, k kind.SyntaxKind) {
	first := int(cp)
	if n := len(b.open); n > 0 && first < b.open[n-1].first {
		first = b.open[n-1].first
	}
	if first > len(b.pending) {
		first = len(b.pending)
	}
	b.open = append(b.open, openNode{kind: k, first: first})
}

// Token pushes a leaf covering the next length bytes of the source.
func (b *Builder) Token(k kind.TokenKind, length int) {
	id := int32(len(b.tree.tokens))
	b.tree.tokens = append(b.tree.tokens, tokenData{
		kind:   k,
		rng:    Range{Start: b.cursor, End: b.cursor + length},
		parent: noParent,
	})
	b.cursor += length
	b.pending = append(b.pending, ref{token: true, id: id})
}

// FinishNode closes the innermost open node.
func (b *Builder) FinishNode() {
	b.finish(nil)
}

// FinishNodeAs closes the innermost open node, replacing its kind. The parser
// uses it to turn an unterminated block into an error composite.
func (b *Builder) FinishNodeAs(k kind.SyntaxKind) {
	b.finish(&k)
}

// CurrentKind is the kind of the innermost open node.
func (b *Builder) CurrentKind() (kind.SyntaxKind, bool) {
	if len(b.open) == 0 {
		return kind.ErrorNode, false
	}
	return b.open[len(b.open)-1].kind, true
}

func (b *Builder) finish(override *kind.SyntaxKind) {
	if len(b.open) == 0 {
		return
	}
	top := b.open[len(b.open)-1]
	b.open = b.open[:len(b.open)-1]

	k := top.kind
	if override != nil {
		k = *override
	}

	t := b.tree
	id := int32(len(t.nodes))
	kids := b.pending[top.first:]

	rng := Range{Start: b.cursor, End: b.cursor}
	if len(kids) > 0 {
		rng = Range{Start: t.refRange(kids[0]).Start, End: t.refRange(kids[len(kids)-1]).End}
	}

	first := int32(len(t.children))
	for i, r := range kids {
		t.children = append(t.children, r)
		if r.token {
			t.tokens[r.id].parent = id
			t.tokens[r.id].index = int32(i)
		} else {
			t.nodes[r.id].parent = id
			t.nodes[r.id].index = int32(i)
		}
	}

	t.nodes = append(t.nodes, nodeData{
		kind:   k,
		rng:    rng,
		parent: noParent,
		first:  first,
		count:  int32(len(kids)),
	})

	b.pending = append(b.pending[:top.first], ref{id: id})
}

// Finish closes any nodes still open and returns the tree. If more than one
// element remains at the top level they are wrapped in a root of kind root.
func (b *Builder) Finish(root kind.SyntaxKind) *Tree {
	for len(b.open) > 0 {
		b.FinishNode()
	}
	if len(b.pending) != 1 || b.pending[0].token {
		b.open = append(b.open, openNode{kind: root, first: 0})
		b.FinishNode()
	}
	b.tree.root = b.pending[0].id
	t := b.tree
	b.tree = nil
	return t
}
