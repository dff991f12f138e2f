// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

// Package jmespath implements a JMESPath expression parser and evaluator over
// document trees.
//
// Unlike JSONPath, a JMESPath expression composes functions, projections, and
// multi-selects that may synthesize values not present in the input document.
// A Match whose value exists in the source tree carries the path addressing
// it there; a synthesized value carries a nil path.
package jmespath

import (
	"github.com/edgejson/engine/ast"
)

// An Expr is a parsed JMESPath expression. An Expr is safe for concurrent use
// by multiple goroutines.
type Expr struct {
	src  string
	root node
}

// String returns the source text of e.
func (e *Expr) String() string { return e.src }

// Parse parses s as a JMESPath expression. A malformed expression fails with
// an *engine.QueryError locating the offending position; no evaluation occurs
// until the whole expression has parsed.
func Parse(s string) (*Expr, error) {
	toks, err := lex(s)
	if err != nil {
		return nil, err
	}
	p := &parser{src: s, toks: toks}
	root, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tEOF {
		return nil, p.failAt(p.peek().pos, "unexpected trailing input")
	}
	return &Expr{src: s, root: root}, nil
}

// A Match is one result of evaluating an expression. Ordering follows the
// expression's own semantics: projections yield one match per produced
// element, any other expression yields a single match. Path is nil when the
// value was synthesized by the expression rather than selected from the
// source tree.
type Match struct {
	Path    ast.Path
	Value   ast.Value
	Context string
}

// Eval evaluates e against root. Evaluation never mutates the tree, so
// concurrent evaluations against the same tree are safe.
func (e *Expr) Eval(root ast.Value) ([]Match, error) {
	res, err := evalNode(e.root, ref{val: root})
	if err != nil {
		return nil, err
	}
	if res.projected {
		ms := make([]Match, len(res.refs))
		for i, r := range res.refs {
			ms[i] = r.match(e.src)
		}
		return ms, nil
	}
	r := res.one()
	if _, isNull := r.val.(*ast.Null); isNull && r.synth {
		// The expression selected nothing.
		return nil, nil
	}
	return []Match{r.match(e.src)}, nil
}

// Eval parses expression and evaluates it against root; see Expr.Eval.
func Eval(root ast.Value, expression string) ([]Match, error) {
	e, err := Parse(expression)
	if err != nil {
		return nil, err
	}
	return e.Eval(root)
}
