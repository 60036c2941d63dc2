package parser

import (
	"github.com/walteh/dbtls/pkg/cst"
	"github.com/walteh/dbtls/pkg/kind"
)

// block describes one block construct: the statement node, its start and
// end markers and the keyword that closes it.
type block struct {
	stmt    kind.SyntaxKind
	start   kind.SyntaxKind
	end     kind.SyntaxKind
	endWord string
	// topLevel blocks may not nest inside other blocks; opening one closes
	// everything still open.
	topLevel bool
}

var blocks = []block{
	{stmt: kind.StmtIf, start: kind.IfStart, end: kind.IfEnd, endWord: "endif"},
	{stmt: kind.StmtFor, start: kind.ForStart, end: kind.ForEnd, endWord: "endfor"},
	{stmt: kind.StmtMacro, start: kind.MacroBlockStart, end: kind.MacroBlockEnd, endWord: "endmacro", topLevel: true},
	{stmt: kind.StmtAssignBlock, start: kind.AssignBlockStart, end: kind.AssignBlockEnd, endWord: "endset"},
	{stmt: kind.StmtCallBlock, start: kind.CallBlockStart, end: kind.CallBlockEnd, endWord: "endcall"},
	{stmt: kind.StmtFilterBlock, start: kind.FilterBlockStart, end: kind.FilterBlockEnd, endWord: "endfilter"},
	{stmt: kind.StmtWith, start: kind.WithBlockStart, end: kind.WithBlockEnd, endWord: "endwith"},
	{stmt: kind.StmtBlock, start: kind.BlockBlockStart, end: kind.BlockBlockEnd, endWord: "endblock"},
	{stmt: kind.StmtAutoescape, start: kind.AutoescapeBlockStart, end: kind.AutoescapeBlockEnd, endWord: "endautoescape"},
	{stmt: kind.StmtMaterialization, start: kind.MaterializationBlockStart, end: kind.MaterializationBlockEnd, endWord: "endmaterialization", topLevel: true},
	{stmt: kind.StmtDocs, start: kind.DocsBlockStart, end: kind.DocsBlockEnd, endWord: "enddocs", topLevel: true},
	{stmt: kind.StmtTest, start: kind.TestBlockStart, end: kind.TestBlockEnd, endWord: "endtest", topLevel: true},
	{stmt: kind.StmtSnapshot, start: kind.SnapshotBlockStart, end: kind.SnapshotBlockEnd, endWord: "endsnapshot", topLevel: true},
}

func blockOf(stmt kind.SyntaxKind) block {
	for _, b := range blocks {
		if b.stmt == stmt {
			return b
		}
	}
	return block{}
}

func blockEndingIn(end kind.SyntaxKind) (block, bool) {
	for _, b := range blocks {
		if b.end == end {
			return b, true
		}
	}
	return block{}, false
}

// openTag is a block whose statement node is open in the builder.
type openTag struct {
	block   block
	keyword string
	opener  cst.Range
}

// findTag returns the index of the innermost open tag of one of the given
// statement kinds.
func (p *parser) findTag(stmts ...kind.SyntaxKind) int {
	for i := len(p.tags) - 1; i >= 0; i-- {
		for _, s := range stmts {
			if p.tags[i].block.stmt == s {
				return i
			}
		}
	}
	return -1
}

// closeTagsAbove finishes every tag nested inside p.tags[i] as an error
// composite.
func (p *parser) closeTagsAbove(i int) {
	for len(p.tags) > i+1 {
		p.popUnclosed()
	}
}

func (p *parser) closeAllTags() {
	p.closeTagsAbove(-1)
}

func (p *parser) popUnclosed() {
	top := p.tags[len(p.tags)-1]
	p.tags = p.tags[:len(p.tags)-1]
	p.b.FinishNodeAs(kind.ErrorNode)
	p.errorAt(StructuralError, top.opener, top.block.end, "unclosed %q block, expected {%% %s %%}", top.keyword, top.block.endWord)
}

// tagName is the keyword of the tag starting at the cursor, if any.
func (p *parser) tagName() string {
	i := p.nth(1)
	if i < len(p.tokens) && p.tokens[i].Kind == kind.Name {
		return p.tokens[i].Text
	}
	return ""
}

// beginTag opens marker and consumes "{%" and the keyword.
func (p *parser) beginTag(marker kind.SyntaxKind) (start int) {
	p.startNode(marker)
	tok, _ := p.currentToken()
	p.bump() // {%
	p.bump() // keyword
	return tok.Start
}

// finishTag consumes whatever is left of the tag header as errors, the
// closing "%}", and finishes the innermost node.
func (p *parser) finishTag() {
	p.errorUntil(kind.BlockEnd)
	if p.current() == kind.BlockEnd {
		p.bump()
	} else {
		p.syntaxErrorHere("unclosed tag, expected '%%}'")
	}
	p.finishNode()
}

// openBlock starts the statement node and its start marker, runs header,
// and leaves the statement open for the body.
func (p *parser) openBlock(bl block, header func()) {
	if bl.topLevel {
		p.closeAllTags()
	}
	keyword := p.tagName()
	p.startNode(bl.stmt)
	start := p.beginTag(bl.start)
	header()
	p.finishTag()
	p.pushTag(bl, keyword, start)
}

func (p *parser) pushTag(bl block, keyword string, start int) {
	p.tags = append(p.tags, openTag{
		block:   bl,
		keyword: keyword,
		opener:  cst.Range{Start: start, End: p.b.Offset()},
	})
}

// interior parses an elif or else marker of an open block.
func (p *parser) interior(marker kind.SyntaxKind, owners []kind.SyntaxKind, header func()) {
	i := p.findTag(owners...)
	if i < 0 {
		p.unmatchedTag("%q outside of a matching block")
		return
	}
	p.closeTagsAbove(i)
	p.beginTag(marker)
	if header != nil {
		header()
	}
	p.finishTag()
}

// closeBlock parses the end marker for stmt. An end marker with no open
// block of its kind becomes an error composite.
func (p *parser) closeBlock(bl block, header func()) {
	i := p.findTag(bl.stmt)
	if i < 0 {
		p.unmatchedTag("%q without a matching opening tag")
		return
	}
	p.closeTagsAbove(i)
	p.beginTag(bl.end)
	if header != nil {
		header()
	}
	p.finishTag()
	p.finishNode() // statement
	p.tags = p.tags[:len(p.tags)-1]
}

// unmatchedTag wraps the whole tag in an error composite and reports it.
func (p *parser) unmatchedTag(format string) {
	word := p.tagName()
	start := p.hereRange().Start
	p.startNode(kind.ErrorNode)
	p.bump()
	p.bump()
	p.skipToTagEnd()
	if p.current() == kind.BlockEnd {
		p.bump()
	}
	p.finishNode()
	p.errorAt(StructuralError, cst.Range{Start: start, End: p.b.Offset()}, kind.ErrorNode, format, word)
}

// badTag wraps the whole tag in an error composite with a syntax error.
func (p *parser) badTag(format string, args ...any) {
	start := p.hereRange().Start
	p.startNode(kind.ErrorNode)
	p.bump()
	p.skipToTagEnd()
	if p.current() == kind.BlockEnd {
		p.bump()
	}
	p.finishNode()
	p.errorAt(SyntaxError, cst.Range{Start: start, End: p.b.Offset()}, kind.ErrorNode, format, args...)
}

func (p *parser) parseStatement() {
	word := p.tagName()
	if word == "" {
		p.badTag("expected a tag name")
		return
	}

	switch k := kind.LookupKeyword(word); k {
	case kind.StmtIf:
		p.openBlock(blockOf(k), func() { p.parseExpression(true) })
	case kind.IfElif:
		p.interior(kind.IfElif, []kind.SyntaxKind{kind.StmtIf}, func() { p.parseExpression(true) })
	case kind.IfElse:
		// else belongs to the innermost open if or for
		marker := kind.IfElse
		if i := p.findTag(kind.StmtIf, kind.StmtFor); i >= 0 && p.tags[i].block.stmt == kind.StmtFor {
			marker = kind.ForElse
		}
		p.interior(marker, []kind.SyntaxKind{kind.StmtIf, kind.StmtFor}, nil)
	case kind.StmtFor:
		p.openBlock(blockOf(k), p.parseForHeader)
	case kind.StmtMacro:
		p.openBlock(blockOf(k), func() {
			p.parseDeclName()
			p.parseSignature()
		})
	case kind.StmtAssign:
		p.parseSet()
	case kind.StmtCallBlock:
		p.openBlock(blockOf(k), func() {
			if p.current() == kind.LeftParen {
				p.parseSignature()
			}
			p.parseExpression(true)
		})
	case kind.StmtFilterBlock:
		p.openBlock(blockOf(k), func() {
			p.parseFilter(p.checkpoint(), true)
		})
	case kind.StmtWith:
		p.openBlock(blockOf(k), p.parseWithHeader)
	case kind.StmtBlock:
		p.openBlock(blockOf(k), func() {
			p.parseDeclName()
			for p.atName("scoped") || p.atName("required") {
				p.bump()
			}
		})
	case kind.StmtAutoescape:
		p.openBlock(blockOf(k), func() {
			if !p.atEnd() {
				p.parseExpression(true)
			}
		})
	case kind.StmtMaterialization:
		p.openBlock(blockOf(k), p.parseMaterializationHeader)
	case kind.StmtDocs, kind.StmtSnapshot:
		p.openBlock(blockOf(k), p.parseDeclName)
	case kind.StmtTest:
		p.openBlock(blockOf(k), func() {
			p.parseDeclName()
			p.parseSignature()
		})
	case kind.BlockBlockEnd:
		p.closeBlock(blockOf(kind.StmtBlock), func() {
			if p.current() == kind.Name {
				p.wrap(kind.ExprName)
			}
		})
	case kind.StmtDo:
		p.parseSimple(kind.StmtDo, func() { p.parseTuple(tupleWithTernary, nil, false) })
	case kind.StmtInclude:
		p.parseSimple(kind.StmtInclude, p.parseIncludeTail)
	case kind.StmtImport:
		p.parseSimple(kind.StmtImport, p.parseImportTail)
	case kind.StmtFromImport:
		p.parseSimple(kind.StmtFromImport, p.parseFromImportTail)
	case kind.StmtExtends:
		p.parseSimple(kind.StmtExtends, func() { p.parseExpression(true) })
	case kind.StmtRaw:
		// a well formed raw block is lexed as a unit, so reaching it as a tag
		// means the opener itself is malformed or an endraw is stray
		p.badTag("malformed %q tag", word)
	case kind.ErrorNode:
		p.badTag("unknown tag %q", word)
	default:
		if bl, ok := blockEndingIn(k); ok {
			p.closeBlock(bl, nil)
			return
		}
		p.badTag("unknown tag %q", word)
	}
}

// parseSimple parses a tag with no body.
func (p *parser) parseSimple(stmt kind.SyntaxKind, header func()) {
	p.beginTag(stmt)
	header()
	p.finishTag()
}

func (p *parser) parseDeclName() {
	if p.current() != kind.Name {
		p.unexpectedHere("a name")
		return
	}
	p.wrap(kind.ExprName)
}

func (p *parser) parseForHeader() {
	if !p.parseAssignTarget() {
		return
	}
	if !p.atName("in") {
		p.unexpectedHere("'in'")
		return
	}
	p.wrap(kind.NameOperatorIn)
	p.parseTuple(tupleNoTernary, []string{"recursive", "if"}, false)
	if p.atName("if") {
		p.wrap(kind.NameOperatorIf)
		p.parseExpression(true)
	}
	if p.atName("recursive") {
		p.bump()
	}
}

// parseAssignTarget parses a name, a namespace reference (ns.attr) or a
// comma separated tuple of them.
func (p *parser) parseAssignTarget() bool {
	cp := p.checkpoint()
	count := 0
	isTuple := false
	for {
		switch {
		case p.current() == kind.Name && p.peekKind(1) == kind.Dot && p.peekKind(2) == kind.Name:
			p.startNode(kind.ExprNamespaceRef)
			p.bump()
			p.bump()
			p.bump()
			p.finishNode()
		case p.current() == kind.Name:
			p.wrap(kind.ExprName)
		case p.current() == kind.LeftParen:
			p.startNode(kind.ExprWrapped)
			p.bump()
			if p.enter() {
				p.parseAssignTarget()
				p.leave()
			}
			if _, ok := p.errorUntil(kind.RightParen); ok {
				p.bump()
			}
			p.finishNode()
		default:
			if count == 0 {
				p.unexpectedHere("an assignment target")
				return false
			}
		}
		count++
		if p.current() != kind.Comma {
			break
		}
		if !isTuple {
			p.b.StartNodeAt(cp, kind.ExprTuple)
			isTuple = true
		}
		p.bump()
	}
	if isTuple {
		p.finishNode()
	}
	return true
}

// parseSet decides between "set x = value" and the block form once the
// target has been read.
func (p *parser) parseSet() {
	keyword := p.tagName()
	cp := p.checkpoint()
	tok, _ := p.currentToken()
	p.bump() // {%
	p.bump() // set

	ok := p.parseAssignTarget()
	if !ok || p.current() == kind.Assign {
		p.b.StartNodeAt(cp, kind.StmtAssign)
		if ok {
			p.bump()
			p.parseTuple(tupleWithTernary, nil, false)
		}
		p.finishTag()
		return
	}

	bl := blockOf(kind.StmtAssignBlock)
	p.b.StartNodeAt(cp, bl.stmt)
	p.b.StartNodeAt(cp, bl.start)
	if p.current() == kind.Pipe {
		p.parseFilter(p.checkpoint(), false)
	}
	p.finishTag()
	p.pushTag(bl, keyword, tok.Start)
}

func (p *parser) parseWithHeader() {
	for p.current() == kind.Name {
		p.startNode(kind.Pair)
		p.parseAssignTarget()
		if p.current() == kind.Assign {
			p.bump()
			p.parseExpression(true)
		} else {
			p.unexpectedHere("'='")
		}
		p.finishNode()
		if p.current() != kind.Comma {
			return
		}
		p.bump()
	}
}

// parseMaterializationHeader parses "name[, default | adapter='x'][, key=value...]".
func (p *parser) parseMaterializationHeader() {
	p.parseDeclName()
	for p.current() == kind.Comma {
		p.bump()
		switch {
		case p.atName("default") && p.peekKind(1) != kind.Assign:
			p.wrap(kind.MaterializationDefault)
		case p.current() == kind.Name && p.peekKind(1) == kind.Assign:
			marker := kind.Pair
			if p.atName("adapter") {
				marker = kind.MaterializationAdapter
			}
			p.startNode(marker)
			p.wrap(kind.ExprName)
			p.bump() // =
			if marker == kind.MaterializationAdapter && p.current() != kind.StringLiteral {
				p.errorAt(SyntaxError, p.hereRange(), kind.MaterializationAdapter, "expected string literal specifying adapter")
			}
			p.parseExpression(true)
			p.finishNode()
		default:
			p.unexpectedHere("'default' or a keyword argument")
			return
		}
	}
}

// parseSignature parses a macro parameter list.
func (p *parser) parseSignature() {
	if p.current() != kind.LeftParen {
		p.unexpectedHere("'('")
		return
	}
	p.startNode(kind.Signature)
	p.bump()
	seenDefault := false
	for {
		if p.current() == kind.RightParen {
			p.bump()
			break
		}
		if p.atEnd() {
			p.unexpectedHere("')'")
			break
		}
		if p.current() == kind.Name {
			if p.peekKind(1) == kind.Assign {
				seenDefault = true
				p.startNode(kind.SignatureDefaultArg)
				p.wrap(kind.ExprName)
				p.bump()
				p.parseExpression(true)
				p.finishNode()
			} else {
				if seenDefault {
					p.syntaxErrorHere("non-default argument follows default argument")
				}
				p.startNode(kind.SignatureArg)
				p.wrap(kind.ExprName)
				p.finishNode()
			}
		} else if p.current() != kind.Comma {
			p.unexpectedHere("an argument name")
		}

		k, ok := p.errorUntil(kind.Comma, kind.RightParen)
		if !ok {
			p.unexpectedHere("',' or ')'")
			break
		}
		p.bump()
		if k == kind.RightParen {
			break
		}
	}
	p.finishNode()
}

func (p *parser) parseContextModifier() bool {
	if (p.atName("with") || p.atName("without")) && p.peekName(1, "context") {
		p.startNode(kind.IncludeModifier)
		p.bump()
		p.bump()
		p.finishNode()
		return true
	}
	return false
}

func (p *parser) parseIncludeTail() {
	p.parseExpression(true)
	if p.atName("ignore") && p.peekName(1, "missing") {
		p.startNode(kind.IncludeModifier)
		p.bump()
		p.bump()
		p.finishNode()
	}
	p.parseContextModifier()
}

func (p *parser) parseImportTail() {
	p.parseExpression(true)
	if !p.atName("as") {
		p.unexpectedHere("'as'")
		return
	}
	p.bump()
	p.parseDeclName()
	p.parseContextModifier()
}

func (p *parser) parseFromImportTail() {
	p.parseExpression(true)
	if !p.atName("import") {
		p.unexpectedHere("'import'")
		return
	}
	p.bump()
	for {
		if p.parseContextModifier() {
			return
		}
		if p.current() != kind.Name {
			p.unexpectedHere("a name to import")
			return
		}
		p.startNode(kind.ImportName)
		p.wrap(kind.ExprName)
		if p.atName("as") {
			p.bump()
			p.parseDeclName()
		}
		p.finishNode()
		if p.current() != kind.Comma {
			p.parseContextModifier()
			return
		}
		p.bump()
	}
}

func (p *parser) parseRaw() {
	open, _ := p.currentToken()
	p.startNode(kind.StmtRaw)
	p.bump()
	if p.current() == kind.Data {
		p.bump()
	}
	if p.current() == kind.RawEnd {
		p.bump()
	} else {
		p.errorAt(StructuralError, cst.Range{Start: open.Start, End: open.End}, kind.RawEnd.Syntax(), "unclosed raw block, expected {%% endraw %%}")
	}
	p.finishNode()
}

func (p *parser) parseComment() {
	open, _ := p.currentToken()
	p.startNode(kind.Comment)
	p.bump()
	if p.current() == kind.CommentData {
		p.bump()
	}
	if p.current() == kind.CommentEnd {
		p.bump()
	} else {
		p.errorAt(SyntaxError, cst.Range{Start: open.Start, End: p.b.Offset()}, kind.CommentEnd.Syntax(), "unclosed comment, expected '#}'")
	}
	p.finishNode()
}

func (p *parser) parseVariable() {
	open, _ := p.currentToken()
	p.startNode(kind.Variable)
	p.bump()
	p.parseTuple(tupleWithTernary, nil, false)
	p.errorUntil(kind.VariableEnd)
	if p.current() == kind.VariableEnd {
		p.bump()
	} else {
		p.errorAt(SyntaxError, cst.Range{Start: open.Start, End: open.End}, kind.VariableEnd.Syntax(), "unclosed variable, expected '}}'")
	}
	p.finishNode()
}
