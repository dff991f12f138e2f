// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

// Package jsonpath implements a JSONPath expression parser and evaluator over
// document trees.
package jsonpath

import (
	"strconv"
	"strings"

	"github.com/edgejson/engine"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

/*
Grammar:

  expr = root steps
  root = "$"
 steps = step [steps]
  step = "." name
  step = ".." name
  step = ".." "[" value "]"
  step = "[" value "]"
  name = WORD
  name = "*"
 value = names
 value = indices
 value = slice
 value = "*"
 value = script
 value = filter
 names = "'" QTEXT "'" ["," names]
indices = INDEX ["," indices]
 slice = [INDEX] ":" [INDEX] [":" [INDEX]]
script = "(" TEXT ")"
filter = "?(" TEXT ")"

  WORD = RE `\w+`
 QTEXT = RE `[^']*`
 INDEX = RE `-?\d+`
  TEXT = { all text with nested parentheses }

Source:
  https://www.ietf.org/archive/id/draft-goessner-dispatch-jsonpath-00.html
*/

// An Expr is a parsed JSONPath expression. An Expr is safe for concurrent use
// by multiple goroutines.
type Expr struct {
	src   string
	steps []step
}

// String returns the source text of e.
func (e *Expr) String() string { return e.src }

// Parse parses s as a JSONPath expression. A malformed expression fails with
// an *engine.QueryError locating the offending position; no evaluation occurs
// until the whole expression has parsed.
func Parse(s string) (*Expr, error) {
	p := &parser{src: s}
	if !p.eat("$") {
		return nil, p.fail("missing root marker $")
	}
	var steps []step
	for p.pos < len(p.src) {
		st, err := p.parseStep()
		if err != nil {
			return nil, err
		}
		steps = append(steps, st)
	}
	return &Expr{src: s, steps: steps}, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) fail(reason string) error {
	return &engine.QueryError{Expression: p.src, Position: p.pos, Reason: reason}
}

func (p *parser) eat(prefix string) bool {
	if strings.HasPrefix(p.src[p.pos:], prefix) {
		p.pos += len(prefix)
		return true
	}
	return false
}

func (p *parser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *parser) parseStep() (step, error) {
	start := p.pos
	if p.eat("..") {
		var inner step
		var err error
		if p.peek() == '[' {
			inner, err = p.parseBracket()
		} else {
			inner, err = p.parseName()
		}
		if err != nil {
			return nil, err
		}
		return recurStep{inner: inner, src: p.src[start:p.pos]}, nil
	}
	if p.eat(".") {
		return p.parseName()
	}
	if p.peek() == '[' {
		return p.parseBracket()
	}
	return nil, p.fail("invalid path step")
}

func (p *parser) parseName() (step, error) {
	start := p.pos
	if p.eat("*") {
		return wildStep{src: p.src[start:p.pos]}, nil
	}
	word := p.word()
	if word == "" {
		return nil, p.fail("invalid name")
	}
	return childStep{names: []string{word}, src: p.src[start:p.pos]}, nil
}

func (p *parser) word() string {
	i := p.pos
	for i < len(p.src) && isWord(p.src[i]) {
		i++
	}
	w := p.src[p.pos:i]
	p.pos = i
	return w
}

func isWord(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func (p *parser) parseBracket() (step, error) {
	start := p.pos
	if !p.eat("[") {
		return nil, p.fail("expected [")
	}
	var st step
	var err error
	switch {
	case p.eat("?("):
		st, err = p.parseScript(start, true)
	case p.eat("("):
		st, err = p.parseScript(start, false)
	case p.eat("*"):
		st = wildStep{}
	case p.peek() == '\'':
		st, err = p.parseQuotedNames()
	default:
		st, err = p.parseIndices()
	}
	if err != nil {
		return nil, err
	}
	if !p.eat("]") {
		return nil, p.fail("missing close bracket")
	}
	return withSrc(st, p.src[start:p.pos]), nil
}

func (p *parser) parseQuotedNames() (step, error) {
	var names []string
	for {
		if !p.eat("'") {
			return nil, p.fail("expected quoted name")
		}
		end := strings.IndexByte(p.src[p.pos:], '\'')
		if end < 0 {
			return nil, p.fail("unterminated quoted name")
		}
		names = append(names, p.src[p.pos:p.pos+end])
		p.pos += end + 1
		if !p.eat(",") {
			break
		}
	}
	return childStep{names: names}, nil
}

// parseIndices parses an index union [i,j,...] or a slice [lo:hi:stride] with
// any part omitted.
func (p *parser) parseIndices() (step, error) {
	first, ok := p.index()
	if p.peek() == ':' {
		sl := sliceStep{lo: first, hasLo: ok, stride: 1}
		p.pos++
		if hi, ok := p.index(); ok {
			sl.hi, sl.hasHi = hi, true
		}
		if p.eat(":") {
			if st, ok := p.index(); ok {
				if st == 0 {
					return nil, p.fail("zero slice stride")
				}
				sl.stride = st
			}
		}
		return sl, nil
	}
	if !ok {
		return nil, p.fail("invalid index")
	}
	idxs := []int{first}
	for p.eat(",") {
		n, ok := p.index()
		if !ok {
			return nil, p.fail("invalid index")
		}
		idxs = append(idxs, n)
	}
	return indexStep{idxs: idxs}, nil
}

func (p *parser) index() (int, bool) {
	i := p.pos
	if i < len(p.src) && p.src[i] == '-' {
		i++
	}
	j := i
	for j < len(p.src) && p.src[j] >= '0' && p.src[j] <= '9' {
		j++
	}
	if j == i {
		return 0, false
	}
	n, err := strconv.Atoi(p.src[p.pos:j])
	if err != nil {
		return 0, false
	}
	p.pos = j
	return n, true
}

// parseScript consumes the balanced-paren body of a filter or script clause
// and compiles it. The open parenthesis has already been consumed.
func (p *parser) parseScript(start int, filter bool) (step, error) {
	body, err := p.balanced()
	if err != nil {
		return nil, err
	}
	prog, err := compilePredicate(body)
	if err != nil {
		p.pos = start
		return nil, p.fail("invalid expression: " + err.Error())
	}
	if filter {
		return filterStep{prog: prog}, nil
	}
	return scriptStep{prog: prog}, nil
}

func (p *parser) balanced() (string, error) {
	depth := 1
	for i := p.pos; i < len(p.src); i++ {
		switch p.src[i] {
		case '(':
			depth++
		case ')':
			if depth--; depth == 0 {
				body := p.src[p.pos:i]
				p.pos = i + 1
				return body, nil
			}
		}
	}
	return "", p.fail("unbalanced parentheses")
}

// curName is the variable the current node is bound to inside a compiled
// filter or script clause.
const curName = "__v"

// compilePredicate compiles a filter or script body. The conventional "@"
// refers to the current node and "@.length" to its length; both are rewritten
// to forms the expression engine understands.
func compilePredicate(body string) (*vm.Program, error) {
	code := strings.ReplaceAll(rewriteLength(body), "@", curName)
	return expr.Compile(code, expr.AllowUndefinedVariables())
}

// rewriteLength replaces each "@.length" term with a len call on the current
// node. A longer member name that merely starts with "length" is left alone.
func rewriteLength(body string) string {
	const term = "@.length"
	var sb strings.Builder
	for {
		i := strings.Index(body, term)
		if i < 0 {
			sb.WriteString(body)
			return sb.String()
		}
		rest := body[i+len(term):]
		if rest != "" && isWord(rest[0]) {
			sb.WriteString(body[:i+len(term)])
		} else {
			sb.WriteString(body[:i])
			sb.WriteString("len(" + curName + ")")
		}
		body = rest
	}
}

// withSrc stamps a bracket step with its full source text for match contexts.
func withSrc(st step, src string) step {
	switch t := st.(type) {
	case childStep:
		t.src = src
		return t
	case wildStep:
		t.src = src
		return t
	case indexStep:
		t.src = src
		return t
	case sliceStep:
		t.src = src
		return t
	case filterStep:
		t.src = src
		return t
	case scriptStep:
		t.src = src
		return t
	default:
		return st
	}
}
