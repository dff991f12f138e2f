// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package jmespath

import (
	"strconv"

	"github.com/edgejson/engine"
	"github.com/edgejson/engine/ast"
)

// Expression nodes. Postfix forms carry their left-hand side; nodes that
// appear on the right of a projection start from currentNode and are
// evaluated once per projected element.
type node any

type (
	currentNode struct{}
	fieldNode   struct{ name string }
	indexNode   struct {
		lhs node
		idx int
	}
	sliceNode struct {
		lhs          node
		lo, hi, step int
		hasLo, hasHi bool
		rhs          node
	}
	projArrNode struct{ lhs, rhs node } // lhs[*].rhs
	projObjNode struct{ lhs, rhs node } // lhs.*.rhs
	flattenNode struct{ lhs, rhs node } // lhs[].rhs
	filterNode  struct{ lhs, cond, rhs node }
	subNode     struct{ lhs, rhs node } // lhs.rhs
	pipeNode    struct{ lhs, rhs node }
	andNode     struct{ lhs, rhs node }
	orNode      struct{ lhs, rhs node }
	notNode     struct{ arg node }
	cmpNode     struct {
		op       tokKind
		lhs, rhs node
	}
	literalNode struct{ val ast.Value }
	multiList   struct {
		lhs   node
		items []node
	}
	multiHash struct {
		lhs   node
		names []string
		items []node
	}
	funcNode struct {
		name string
		args []node
	}
)

// Binding powers from the JMESPath grammar.
var bindingPower = map[tokKind]int{
	tPipe:     1,
	tOr:       2,
	tAnd:      3,
	tEQ:       5,
	tNE:       5,
	tLT:       5,
	tLE:       5,
	tGT:       5,
	tGE:       5,
	tFlatten:  9,
	tStar:     20,
	tFilter:   21,
	tDot:      40,
	tNot:      45,
	tLBrace:   50,
	tLBracket: 55,
	tLParen:   60,
}

type parser struct {
	src  string
	toks []token
	next int
}

func (p *parser) peek() token { return p.toks[p.next] }

func (p *parser) advance() token {
	t := p.toks[p.next]
	if t.kind != tEOF {
		p.next++
	}
	return t
}

func (p *parser) expect(kind tokKind, what string) (token, error) {
	t := p.advance()
	if t.kind != kind {
		return t, p.failAt(t.pos, "expected "+what)
	}
	return t, nil
}

func (p *parser) failAt(pos int, reason string) error {
	return &engine.QueryError{Expression: p.src, Position: pos, Reason: reason}
}

func (p *parser) parseExpr(rbp int) (node, error) {
	left, err := p.nud(p.advance())
	if err != nil {
		return nil, err
	}
	for bindingPower[p.peek().kind] > rbp {
		left, err = p.led(p.advance(), left)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *parser) nud(t token) (node, error) {
	switch t.kind {
	case tIdent:
		if p.peek().kind == tLParen {
			p.advance()
			return p.parseCall(t)
		}
		return fieldNode{name: t.text}, nil
	case tQuoted:
		return fieldNode{name: t.text}, nil
	case tCurrent:
		return currentNode{}, nil
	case tRawStr:
		return literalNode{val: ast.NewString(t.text)}, nil
	case tLiteral:
		return p.parseLiteral(t)
	case tNot:
		arg, err := p.parseExpr(bindingPower[tNot])
		if err != nil {
			return nil, err
		}
		return notNode{arg: arg}, nil
	case tLParen:
		inner, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen, ")"); err != nil {
			return nil, err
		}
		return inner, nil
	case tStar:
		return p.parseProjObj(currentNode{})
	case tFlatten:
		return p.parseFlatten(currentNode{})
	case tFilter:
		return p.parseFilter(currentNode{})
	case tLBracket:
		return p.parseBracket(currentNode{}, true)
	case tLBrace:
		return p.parseMultiHash(currentNode{})
	default:
		return nil, p.failAt(t.pos, "unexpected "+t.text)
	}
}

func (p *parser) led(t token, left node) (node, error) {
	switch t.kind {
	case tDot:
		return p.parseDotRHS(left)
	case tLBracket:
		return p.parseBracket(left, false)
	case tFlatten:
		return p.parseFlatten(left)
	case tFilter:
		return p.parseFilter(left)
	case tPipe:
		rhs, err := p.parseExpr(bindingPower[tPipe])
		if err != nil {
			return nil, err
		}
		return pipeNode{lhs: left, rhs: rhs}, nil
	case tOr:
		rhs, err := p.parseExpr(bindingPower[tOr])
		if err != nil {
			return nil, err
		}
		return orNode{lhs: left, rhs: rhs}, nil
	case tAnd:
		rhs, err := p.parseExpr(bindingPower[tAnd])
		if err != nil {
			return nil, err
		}
		return andNode{lhs: left, rhs: rhs}, nil
	case tEQ, tNE, tLT, tLE, tGT, tGE:
		rhs, err := p.parseExpr(bindingPower[t.kind])
		if err != nil {
			return nil, err
		}
		return cmpNode{op: t.kind, lhs: left, rhs: rhs}, nil
	default:
		return nil, p.failAt(t.pos, "unexpected "+t.text)
	}
}

// parseDotRHS parses the right side of a dot: a field, .*, a multi-select, or
// a function call.
func (p *parser) parseDotRHS(left node) (node, error) {
	t := p.advance()
	switch t.kind {
	case tIdent:
		if p.peek().kind == tLParen {
			p.advance()
			call, err := p.parseCall(t)
			if err != nil {
				return nil, err
			}
			return subNode{lhs: left, rhs: call}, nil
		}
		return subNode{lhs: left, rhs: fieldNode{name: t.text}}, nil
	case tQuoted:
		return subNode{lhs: left, rhs: fieldNode{name: t.text}}, nil
	case tStar:
		return p.parseProjObj(left)
	case tLBracket:
		// Multi-select list: a.[b, c]
		items, err := p.parseExprList(tRBracket, "]")
		if err != nil {
			return nil, err
		}
		return multiList{lhs: left, items: items}, nil
	case tLBrace:
		return p.parseMultiHash(left)
	default:
		return nil, p.failAt(t.pos, "expected a name after .")
	}
}

// parseBracket parses the contents of [...]: an index, a slice, a wildcard
// projection, or (in expression position) a multi-select list.
func (p *parser) parseBracket(left node, nudPos bool) (node, error) {
	t := p.peek()
	switch {
	case t.kind == tStar:
		p.advance()
		if _, err := p.expect(tRBracket, "]"); err != nil {
			return nil, err
		}
		rhs, err := p.parseProjRHS(bindingPower[tStar])
		if err != nil {
			return nil, err
		}
		return projArrNode{lhs: left, rhs: rhs}, nil
	case t.kind == tNumber || t.kind == tColon:
		return p.parseIndexOrSlice(left)
	case nudPos:
		items, err := p.parseExprList(tRBracket, "]")
		if err != nil {
			return nil, err
		}
		return multiList{lhs: left, items: items}, nil
	default:
		return nil, p.failAt(t.pos, "expected an index, slice, or *")
	}
}

func (p *parser) parseIndexOrSlice(left node) (node, error) {
	var parts [3]int
	var has [3]bool
	slot := 0
	for {
		t := p.peek()
		switch t.kind {
		case tNumber:
			p.advance()
			n, err := strconv.Atoi(t.text)
			if err != nil {
				return nil, p.failAt(t.pos, "invalid number")
			}
			if slot > 2 || has[slot] {
				return nil, p.failAt(t.pos, "too many slice parts")
			}
			parts[slot], has[slot] = n, true
		case tColon:
			p.advance()
			if slot++; slot > 2 {
				return nil, p.failAt(t.pos, "too many slice parts")
			}
		case tRBracket:
			p.advance()
			if slot == 0 {
				if !has[0] {
					return nil, p.failAt(t.pos, "empty brackets")
				}
				return indexNode{lhs: left, idx: parts[0]}, nil
			}
			step := 1
			if has[2] {
				if parts[2] == 0 {
					return nil, p.failAt(t.pos, "zero slice step")
				}
				step = parts[2]
			}
			rhs, err := p.parseProjRHS(bindingPower[tStar])
			if err != nil {
				return nil, err
			}
			return sliceNode{
				lhs: left, lo: parts[0], hi: parts[1], step: step,
				hasLo: has[0], hasHi: has[1], rhs: rhs,
			}, nil
		default:
			return nil, p.failAt(t.pos, "expected an index, :, or ]")
		}
	}
}

func (p *parser) parseProjObj(left node) (node, error) {
	rhs, err := p.parseProjRHS(bindingPower[tStar])
	if err != nil {
		return nil, err
	}
	return projObjNode{lhs: left, rhs: rhs}, nil
}

func (p *parser) parseFlatten(left node) (node, error) {
	rhs, err := p.parseProjRHS(bindingPower[tFlatten])
	if err != nil {
		return nil, err
	}
	return flattenNode{lhs: left, rhs: rhs}, nil
}

func (p *parser) parseFilter(left node) (node, error) {
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tRBracket, "]"); err != nil {
		return nil, err
	}
	rhs, err := p.parseProjRHS(bindingPower[tFilter])
	if err != nil {
		return nil, err
	}
	return filterNode{lhs: left, cond: cond, rhs: rhs}, nil
}

// parseProjRHS parses what follows a projection. A following token that binds
// looser than a projection ends the projection with an identity right side.
func (p *parser) parseProjRHS(rbp int) (node, error) {
	t := p.peek()
	switch {
	case bindingPower[t.kind] < 10:
		return currentNode{}, nil
	case t.kind == tDot:
		p.advance()
		rhs, err := p.parseDotRHS(currentNode{})
		if err != nil {
			return nil, err
		}
		return p.extendRHS(rhs, rbp)
	case t.kind == tLBracket, t.kind == tFilter, t.kind == tFlatten:
		rhs, err := p.parseExpr(rbp)
		if err != nil {
			return nil, err
		}
		return rhs, nil
	default:
		return nil, p.failAt(t.pos, "invalid projection")
	}
}

// extendRHS continues parsing postfix forms after the first step of a
// projection right side, so a[*].b[0].c chains onto each element.
func (p *parser) extendRHS(left node, rbp int) (node, error) {
	var err error
	for bindingPower[p.peek().kind] > rbp {
		left, err = p.led(p.advance(), left)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *parser) parseExprList(end tokKind, want string) ([]node, error) {
	var items []node
	for {
		item, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.peek().kind == tComma {
			p.advance()
			continue
		}
		if _, err := p.expect(end, want); err != nil {
			return nil, err
		}
		return items, nil
	}
}

func (p *parser) parseMultiHash(left node) (node, error) {
	mh := multiHash{lhs: left}
	for {
		name := p.advance()
		if name.kind != tIdent && name.kind != tQuoted {
			return nil, p.failAt(name.pos, "expected a key name")
		}
		if _, err := p.expect(tColon, ":"); err != nil {
			return nil, err
		}
		item, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		mh.names = append(mh.names, name.text)
		mh.items = append(mh.items, item)
		if p.peek().kind == tComma {
			p.advance()
			continue
		}
		if _, err := p.expect(tRBrace, "}"); err != nil {
			return nil, err
		}
		return mh, nil
	}
}

func (p *parser) parseCall(name token) (node, error) {
	fn := funcNode{name: name.text}
	if _, ok := builtins[fn.name]; !ok {
		return nil, p.failAt(name.pos, "unknown function "+fn.name)
	}
	if p.peek().kind == tRParen {
		p.advance()
		return fn, nil
	}
	args, err := p.parseExprList(tRParen, ")")
	if err != nil {
		return nil, err
	}
	fn.args = args
	return fn, nil
}

func (p *parser) parseLiteral(t token) (node, error) {
	v, _, err := ast.ParseString(t.text, nil)
	if err != nil {
		// Unquoted literal strings like `foo` are accepted for compatibility
		// with the original grammar.
		return literalNode{val: ast.NewString(t.text)}, nil
	}
	return literalNode{val: v}, nil
}
