package parser

import (
	"github.com/walteh/dbtls/pkg/cst"
	"github.com/walteh/dbtls/pkg/kind"
)

// Expression precedence, loosest first:
//
//	ternary     a if b else c
//	or
//	and
//	not
//	compare     == != > >= < <= in, not in (chained into one ExprCompare)
//	additive    + -
//	concat      ~
//	multiply    * / // %
//	unary       - +
//	power       ** (right associative)
//	postfix     .attr [item] [a:b:c] (call), then | filter and is test

type tupleMode int

const (
	tupleWithTernary tupleMode = iota
	tupleNoTernary
)

func (p *parser) parseExpression(withTernary bool) {
	if !p.enter() {
		return
	}
	defer p.leave()
	if withTernary {
		p.parseTernary()
	} else {
		p.parseOr()
	}
}

func (p *parser) isTupleEnd(endWords []string) bool {
	switch p.current() {
	case eof, kind.VariableEnd, kind.BlockEnd, kind.RightParen:
		return true
	case kind.Name:
		for _, w := range endWords {
			if p.atName(w) {
				return true
			}
		}
	}
	return false
}

// parseTuple parses one expression or a comma separated tuple of them. It
// reports whether anything was parsed.
func (p *parser) parseTuple(mode tupleMode, endWords []string, explicitParens bool) bool {
	cp := p.checkpoint()
	isTuple := false
	count := 0

	for !p.isTupleEnd(endWords) {
		p.parseExpression(mode == tupleWithTernary)
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
		return true
	}
	if count == 0 {
		if !explicitParens {
			p.unexpectedHere("an expression")
			return false
		}
		p.startNode(kind.ExprTuple)
		p.finishNode()
	}
	return true
}

func (p *parser) parseTernary() {
	cp := p.checkpoint()
	p.parseOr()
	for p.atName("if") {
		p.b.StartNodeAt(cp, kind.ExprTernary)
		p.wrap(kind.NameOperatorIf)
		p.parseOr()
		if p.atName("else") {
			p.wrap(kind.NameOperatorElse)
			if p.enter() {
				p.parseTernary()
				p.leave()
			}
		}
		p.finishNode()
	}
}

func (p *parser) parseOr() {
	cp := p.checkpoint()
	p.parseAnd()
	for p.atName("or") {
		p.b.StartNodeAt(cp, kind.ExprOr)
		p.wrap(kind.NameOperatorOr)
		p.parseAnd()
		p.finishNode()
	}
}

func (p *parser) parseAnd() {
	cp := p.checkpoint()
	p.parseNot()
	for p.atName("and") {
		p.b.StartNodeAt(cp, kind.ExprAnd)
		p.wrap(kind.NameOperatorAnd)
		p.parseNot()
		p.finishNode()
	}
}

func (p *parser) parseNot() {
	if p.atName("not") && !p.peekName(1, "in") {
		p.startNode(kind.ExprNot)
		p.wrap(kind.NameOperatorNot)
		if p.enter() {
			p.parseNot()
			p.leave()
		}
		p.finishNode()
		return
	}
	p.parseCompare()
}

func (p *parser) parseCompare() {
	cp := p.checkpoint()
	isCompare := false
	open := func() {
		if !isCompare {
			p.b.StartNodeAt(cp, kind.ExprCompare)
			isCompare = true
		}
	}

	p.parseAdditive()
	for {
		switch {
		case p.current().IsComparison():
			open()
			p.startNode(kind.Operand)
			p.bump()
		case p.atName("in"):
			open()
			p.startNode(kind.Operand)
			p.wrap(kind.NameOperatorIn)
		case p.atName("not") && p.peekName(1, "in"):
			open()
			p.startNode(kind.Operand)
			p.startNode(kind.NameOperatorNotIn)
			p.bump()
			p.bump()
			p.finishNode()
		default:
			if isCompare {
				p.finishNode()
			}
			return
		}
		p.parseAdditive()
		p.finishNode()
	}
}

func (p *parser) parseAdditive() {
	cp := p.checkpoint()
	p.parseConcat()
	for {
		var k kind.SyntaxKind
		switch p.current() {
		case kind.Add:
			k = kind.ExprAdd
		case kind.Subtract:
			k = kind.ExprSubtract
		default:
			return
		}
		p.b.StartNodeAt(cp, k)
		p.bump()
		p.parseConcat()
		p.finishNode()
	}
}

func (p *parser) parseConcat() {
	cp := p.checkpoint()
	p.parseMultiplicative()
	if p.current() != kind.Tilde {
		return
	}
	p.b.StartNodeAt(cp, kind.ExprConcat)
	for p.current() == kind.Tilde {
		p.bump()
		p.parseMultiplicative()
	}
	p.finishNode()
}

func (p *parser) parseMultiplicative() {
	cp := p.checkpoint()
	p.parseUnary()
	for {
		var k kind.SyntaxKind
		switch p.current() {
		case kind.Multiply:
			k = kind.ExprMultiply
		case kind.Div:
			k = kind.ExprDivide
		case kind.FloorDiv:
			k = kind.ExprFloorDivide
		case kind.Modulo:
			k = kind.ExprModulo
		default:
			return
		}
		p.b.StartNodeAt(cp, k)
		p.bump()
		p.parseUnary()
		p.finishNode()
	}
}

func (p *parser) parseUnary() {
	switch p.current() {
	case kind.Subtract:
		p.startNode(kind.ExprNegative)
	case kind.Add:
		p.startNode(kind.ExprPositive)
	default:
		p.parsePower()
		return
	}
	p.bump()
	if p.enter() {
		p.parseUnary()
		p.leave()
	}
	p.finishNode()
}

func (p *parser) parsePower() {
	cp := p.checkpoint()
	p.parsePostfixOperand()
	if p.current() != kind.Power {
		return
	}
	p.b.StartNodeAt(cp, kind.ExprPower)
	p.bump()
	// the right operand may itself be a power or a signed value: 2 ** -1 ** 2
	if p.enter() {
		p.parseUnary()
		p.leave()
	}
	p.finishNode()
}

func (p *parser) parsePostfixOperand() {
	cp := p.checkpoint()
	p.parsePrimary()
	p.parsePostfix(cp)
	p.parseFilterExpr(cp)
}

func (p *parser) parsePrimary() {
	switch p.current() {
	case kind.Name:
		tok, _ := p.currentToken()
		switch tok.Text {
		case "true", "false", "True", "False":
			p.wrap(kind.ExprConstantBool)
		case "none", "None":
			p.wrap(kind.ExprConstantNone)
		default:
			p.wrap(kind.ExprName)
		}
	case kind.StringLiteral:
		p.parseStringLiteral()
	case kind.IntegerLiteral:
		p.wrap(kind.ExprConstantInteger)
	case kind.FloatLiteral:
		p.wrap(kind.ExprConstantFloat)
	case kind.LeftParen:
		p.startNode(kind.ExprWrapped)
		p.bump()
		p.parseTuple(tupleWithTernary, nil, true)
		if _, ok := p.errorUntil(kind.RightParen); ok {
			p.bump()
		} else {
			p.unexpectedHere("')'")
		}
		p.finishNode()
	case kind.LeftBracket:
		p.parseList()
	case kind.LeftBrace:
		p.parseDict()
	case eof, kind.VariableEnd, kind.BlockEnd, kind.RightParen, kind.RightBracket, kind.RightBrace, kind.Comma, kind.Colon:
		// leave closers to the enclosing construct
		p.unexpectedHere("an expression")
	default:
		p.unexpectedHere("an expression")
		p.bumpError()
	}
}

// parseStringLiteral joins adjacent string literals into one constant.
func (p *parser) parseStringLiteral() {
	p.startNode(kind.ExprConstantString)
	for p.current() == kind.StringLiteral {
		p.bump()
	}
	p.finishNode()
}

func (p *parser) parseList() {
	p.startNode(kind.ExprList)
	p.bump() // '['
	for {
		if p.current() == kind.RightBracket {
			p.bump()
			break
		}
		if p.atEnd() {
			p.unexpectedHere("']'")
			break
		}
		p.parseExpression(true)

		k, ok := p.errorUntil(kind.Comma, kind.RightBracket)
		if !ok {
			p.unexpectedHere("',' or ']'")
			break
		}
		p.bump()
		if k == kind.RightBracket {
			break
		}
	}
	p.finishNode()
}

func (p *parser) parseDict() {
	p.startNode(kind.ExprDict)
	p.bump() // '{'
	for {
		if p.current() == kind.RightBrace {
			p.bump()
			break
		}
		if p.atEnd() {
			p.unexpectedHere("'}'")
			break
		}

		p.startNode(kind.Pair)
		p.parseExpression(true)
		if p.current() == kind.Colon {
			p.bump()
			p.parseExpression(true)
		} else {
			p.unexpectedHere("':' after dict key")
		}
		p.finishNode()

		k, ok := p.errorUntil(kind.Comma, kind.RightBrace)
		if !ok {
			p.unexpectedHere("',' or '}'")
			break
		}
		p.bump()
		if k == kind.RightBrace {
			break
		}
	}
	p.finishNode()
}

func (p *parser) parsePostfix(cp cst.Checkpoint) {
	for {
		switch p.current() {
		case kind.Dot:
			switch p.peekKind(1) {
			case kind.Name:
				p.b.StartNodeAt(cp, kind.ExprGetAttr)
			case kind.IntegerLiteral:
				p.b.StartNodeAt(cp, kind.ExprGetItem)
			default:
				p.b.StartNodeAt(cp, kind.ExprGetAttr)
				p.bump()
				p.unexpectedHere("an attribute name")
				p.finishNode()
				continue
			}
			p.bump()
			p.wrap(kind.Subscript)
			p.finishNode()
		case kind.LeftBracket:
			p.b.StartNodeAt(cp, kind.ExprGetItem)
			p.bump()
			p.parseSubscript()
			if _, ok := p.errorUntil(kind.RightBracket); ok {
				p.bump()
			} else {
				p.unexpectedHere("']'")
			}
			p.finishNode()
		case kind.LeftParen:
			p.parseCall(cp)
		default:
			return
		}
	}
}

// parseSubscript parses the inside of [...], wrapping comma separated
// entries in a tuple.
func (p *parser) parseSubscript() {
	p.startNode(kind.Subscript)
	cp := p.checkpoint()
	isTuple := false

	p.parseSubscribed()
	for p.current() == kind.Comma {
		if !isTuple {
			p.b.StartNodeAt(cp, kind.ExprTuple)
			isTuple = true
		}
		p.bump()
		if p.current() == kind.RightBracket {
			break
		}
		p.parseSubscribed()
	}
	if isTuple {
		p.finishNode()
	}
	p.finishNode()
}

func (p *parser) atSliceBoundary() bool {
	switch p.current() {
	case kind.RightBracket, kind.Comma, kind.Colon:
		return true
	}
	return p.atEnd()
}

// parseSubscribed parses one item or slice: expr or [start]:[stop][:[step]].
func (p *parser) parseSubscribed() {
	cp := p.checkpoint()
	if p.current() != kind.Colon {
		p.parseExpression(true)
		if p.current() != kind.Colon {
			return
		}
	}
	p.b.StartNodeAt(cp, kind.ExprSlice)
	p.bump()
	if !p.atSliceBoundary() {
		p.parseExpression(true)
	}
	if p.current() == kind.Colon {
		p.bump()
		if !p.atSliceBoundary() {
			p.parseExpression(true)
		}
	}
	p.finishNode()
}

func (p *parser) parseCall(cp cst.Checkpoint) {
	p.b.StartNodeAt(cp, kind.ExprCall)
	p.parseCallArgs()
	p.finishNode()
}

// parseCallArgs parses (args, kwarg=value, *args, **kwargs) and records
// ordering violations without rejecting them.
func (p *parser) parseCallArgs() {
	p.startNode(kind.CallArguments)
	p.bump() // '('

	var seenKwarg, seenDynArgs, seenDynKwargs bool
	for {
		here := p.hereRange()
		switch {
		case p.current() == kind.RightParen:
			p.bump()
			p.finishNode()
			return
		case p.atEnd():
			p.unexpectedHere("')'")
			p.finishNode()
			return
		case p.current() == kind.Multiply:
			if seenDynArgs {
				p.errorAt(SyntaxError, here, kind.CallDynamicArgs, "multiple *args in call")
			}
			if seenDynKwargs {
				p.errorAt(SyntaxError, here, kind.CallDynamicArgs, "*args after **kwargs")
			}
			seenDynArgs = true
			p.startNode(kind.CallDynamicArgs)
			p.bump()
			p.parseExpression(true)
			p.finishNode()
		case p.current() == kind.Power:
			if seenDynKwargs {
				p.errorAt(SyntaxError, here, kind.CallDynamicKwargs, "multiple **kwargs in call")
			}
			seenDynKwargs = true
			p.startNode(kind.CallDynamicKwargs)
			p.bump()
			p.parseExpression(true)
			p.finishNode()
		case p.current() == kind.Name && p.peekKind(1) == kind.Assign:
			if seenDynKwargs {
				p.errorAt(SyntaxError, here, kind.CallStaticKwarg, "keyword argument after **kwargs")
			}
			seenKwarg = true
			p.startNode(kind.CallStaticKwarg)
			p.bump() // name
			p.bump() // '='
			p.parseExpression(true)
			p.finishNode()
		default:
			switch {
			case seenKwarg:
				p.errorAt(SyntaxError, here, kind.CallStaticArg, "positional argument after keyword argument")
			case seenDynArgs:
				p.errorAt(SyntaxError, here, kind.CallStaticArg, "positional argument after *args")
			case seenDynKwargs:
				p.errorAt(SyntaxError, here, kind.CallStaticArg, "positional argument after **kwargs")
			}
			p.startNode(kind.CallStaticArg)
			p.parseExpression(true)
			p.finishNode()
		}

		k, ok := p.errorUntil(kind.Comma, kind.RightParen)
		if !ok {
			p.unexpectedHere("',' or ')'")
			p.finishNode()
			return
		}
		p.bump()
		if k == kind.RightParen {
			p.finishNode()
			return
		}
	}
}

// parseNestedName parses a possibly dotted filter or test name.
func (p *parser) parseNestedName() bool {
	cp := p.checkpoint()
	if p.current() != kind.Name {
		p.unexpectedHere("a name")
		return false
	}
	p.bump()
	if p.current() != kind.Dot {
		return true
	}
	p.b.StartNodeAt(cp, kind.ExprNestedName)
	for p.current() == kind.Dot {
		p.bump()
		if p.current() != kind.Name {
			p.unexpectedHere("a name")
			break
		}
		p.bump()
	}
	p.finishNode()
	return true
}

// parseFilter parses "| name(args) | name ...". With inline set the first
// filter has no leading pipe, as in {% filter upper %}. Every filter wraps
// everything since cp, so chains nest left to right.
func (p *parser) parseFilter(cp cst.Checkpoint, inline bool) {
	for inline || p.current() == kind.Pipe {
		p.b.StartNodeAt(cp, kind.ExprFilter)
		if !inline {
			p.bump() // '|'
		}
		p.startNode(kind.ExprFilterName)
		p.parseNestedName()
		if p.current() == kind.LeftParen {
			p.parseCallArgs()
		}
		p.finishNode()
		p.finishNode()
		inline = false
	}
}

func (p *parser) parseFilterExpr(cp cst.Checkpoint) {
	for {
		switch {
		case p.current() == kind.Pipe:
			p.parseFilter(cp, false)
		case p.atName("is"):
			p.parseTest(cp)
		case p.current() == kind.LeftParen:
			p.parseCall(cp)
		default:
			return
		}
	}
}

// parseTest parses "is [not] name [args]".
func (p *parser) parseTest(cp cst.Checkpoint) {
	p.b.StartNodeAt(cp, kind.ExprTest)
	p.wrap(kind.NameOperatorIs)
	if p.atName("not") {
		p.wrap(kind.NameOperatorNot)
	}
	if !p.parseNestedName() {
		p.finishNode()
		return
	}

	switch p.current() {
	case kind.LeftParen:
		p.parseCallArgs()
	case kind.Name, kind.StringLiteral, kind.IntegerLiteral, kind.FloatLiteral, kind.LeftBracket, kind.LeftBrace:
		parse := true
		if p.current() == kind.Name {
			switch {
			case p.atName("else"), p.atName("or"), p.atName("and"), p.atName("if"):
				parse = false
			case p.atName("is"):
				p.syntaxErrorHere("tests cannot be chained without parentheses")
				parse = false
			}
		}
		if parse {
			p.startNode(kind.TestArguments)
			acp := p.checkpoint()
			p.parsePrimary()
			p.parsePostfix(acp)
			p.finishNode()
		}
	}
	p.finishNode()
}
