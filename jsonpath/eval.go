// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package jsonpath

import (
	"github.com/edgejson/engine/ast"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// A Match is one result of evaluating an expression against a tree. Value is
// a reference into the source tree, not a copy, and Path addresses it there.
// Context is the source text of the expression clause that produced the
// match.
type Match struct {
	Path    ast.Path
	Value   ast.Value
	Context string
}

// Eval evaluates e against root and returns the matches in document order.
// Evaluation never mutates the tree, so concurrent evaluations against the
// same tree are safe.
func (e *Expr) Eval(root ast.Value) ([]Match, error) {
	ms := []Match{{Path: nil, Value: root, Context: "$"}}
	for _, st := range e.steps {
		ms = st.apply(ms)
		if len(ms) == 0 {
			return nil, nil
		}
	}
	return ms, nil
}

// Eval parses expression and evaluates it against root; see Expr.Eval.
func Eval(root ast.Value, expression string) ([]Match, error) {
	e, err := Parse(expression)
	if err != nil {
		return nil, err
	}
	return e.Eval(root)
}

type step interface {
	apply(in []Match) []Match
}

// extend derives the match for a child of m without aliasing m's path
// storage.
func extend(m Match, e ast.Elem, v ast.Value, src string) Match {
	p := m.Path[:len(m.Path):len(m.Path)]
	return Match{Path: append(p, e), Value: v, Context: src}
}

// childStep selects the named members of each object; a bracket clause may
// union several names.
type childStep struct {
	names []string
	src   string
}

func (s childStep) apply(in []Match) (out []Match) {
	for _, m := range in {
		obj, ok := m.Value.(*ast.Object)
		if !ok {
			continue
		}
		for _, name := range s.names {
			if mem := obj.Find(name); mem != nil {
				out = append(out, extend(m, ast.Key(name), mem.Value, s.src))
			}
		}
	}
	return
}

// wildStep selects every member value of an object and every element of an
// array, in document order.
type wildStep struct{ src string }

func (s wildStep) apply(in []Match) (out []Match) {
	for _, m := range in {
		switch t := m.Value.(type) {
		case *ast.Object:
			for _, mem := range t.Members {
				out = append(out, extend(m, ast.Key(mem.Key), mem.Value, s.src))
			}
		case *ast.Array:
			for i, e := range t.Values {
				out = append(out, extend(m, ast.Index(i), e, s.src))
			}
		}
	}
	return
}

// indexStep selects array elements by offset; negative offsets count from the
// end, and out-of-range offsets select nothing.
type indexStep struct {
	idxs []int
	src  string
}

func (s indexStep) apply(in []Match) (out []Match) {
	for _, m := range in {
		arr, ok := m.Value.(*ast.Array)
		if !ok {
			continue
		}
		for _, idx := range s.idxs {
			i := idx
			if i < 0 {
				i += len(arr.Values)
			}
			if i >= 0 && i < len(arr.Values) {
				out = append(out, extend(m, ast.Index(i), arr.Values[i], s.src))
			}
		}
	}
	return
}

// sliceStep selects a range of array elements with the usual slice rules:
// omitted bounds span the array, negative offsets count from the end, and a
// negative stride walks backward.
type sliceStep struct {
	lo, hi, stride int
	hasLo, hasHi   bool
	src            string
}

func (s sliceStep) apply(in []Match) (out []Match) {
	for _, m := range in {
		arr, ok := m.Value.(*ast.Array)
		if !ok {
			continue
		}
		n := len(arr.Values)
		lo, hi := s.bounds(n)
		if s.stride > 0 {
			for i := lo; i < hi; i += s.stride {
				out = append(out, extend(m, ast.Index(i), arr.Values[i], s.src))
			}
		} else {
			for i := lo; i > hi; i += s.stride {
				out = append(out, extend(m, ast.Index(i), arr.Values[i], s.src))
			}
		}
	}
	return
}

func (s sliceStep) bounds(n int) (lo, hi int) {
	clamp := func(i, min, max int) int {
		if i < 0 {
			i += n
		}
		if i < min {
			return min
		} else if i > max {
			return max
		}
		return i
	}
	if s.stride > 0 {
		lo, hi = 0, n
		if s.hasLo {
			lo = clamp(s.lo, 0, n)
		}
		if s.hasHi {
			hi = clamp(s.hi, 0, n)
		}
	} else {
		lo, hi = n-1, -1
		if s.hasLo {
			lo = clamp(s.lo, -1, n-1)
		}
		if s.hasHi {
			hi = clamp(s.hi, -1, n-1)
		}
	}
	return
}

// recurStep applies its inner step to each node of each subtree, in
// depth-first pre-order.
type recurStep struct {
	inner step
	src   string
}

func (s recurStep) apply(in []Match) (out []Match) {
	for _, m := range in {
		for p, v := range ast.Walk(m.Value) {
			node := Match{Path: append(m.Path.Clone(), p...), Value: v}
			for _, hit := range s.inner.apply([]Match{node}) {
				hit.Context = s.src
				out = append(out, hit)
			}
		}
	}
	return
}

// filterStep keeps the array elements (or object member values) for which the
// compiled predicate is truthy. A bare member reference like ?(@.isbn) is an
// existence test. A predicate error is a non-match.
type filterStep struct {
	prog *vm.Program
	src  string
}

func (s filterStep) apply(in []Match) (out []Match) {
	for _, m := range in {
		switch t := m.Value.(type) {
		case *ast.Array:
			for i, e := range t.Values {
				if s.keep(e) {
					out = append(out, extend(m, ast.Index(i), e, s.src))
				}
			}
		case *ast.Object:
			for _, mem := range t.Members {
				if s.keep(mem.Value) {
					out = append(out, extend(m, ast.Key(mem.Key), mem.Value, s.src))
				}
			}
		}
	}
	return
}

func (s filterStep) keep(v ast.Value) bool {
	got, err := expr.Run(s.prog, map[string]any{curName: ast.Decode(v)})
	if err != nil {
		return false
	}
	switch r := got.(type) {
	case nil:
		return false
	case bool:
		return r
	case string:
		return r != ""
	case int:
		return r != 0
	case int64:
		return r != 0
	case float64:
		return r != 0
	default:
		return true
	}
}

// scriptStep computes an index or key from the current node: an integer
// result selects an array offset, a string result an object member.
type scriptStep struct {
	prog *vm.Program
	src  string
}

func (s scriptStep) apply(in []Match) (out []Match) {
	for _, m := range in {
		got, err := expr.Run(s.prog, map[string]any{curName: ast.Decode(m.Value)})
		if err != nil {
			continue
		}
		switch r := got.(type) {
		case int:
			out = append(out, indexStep{idxs: []int{r}, src: s.src}.apply([]Match{m})...)
		case int64:
			out = append(out, indexStep{idxs: []int{int(r)}, src: s.src}.apply([]Match{m})...)
		case float64:
			out = append(out, indexStep{idxs: []int{int(r)}, src: s.src}.apply([]Match{m})...)
		case string:
			out = append(out, childStep{names: []string{r}, src: s.src}.apply([]Match{m})...)
		}
	}
	return
}
