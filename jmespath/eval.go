// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package jmespath

import (
	"fmt"

	"github.com/edgejson/engine/ast"
)

// A ref is a value under evaluation: the value itself, the path addressing it
// in the source tree, and whether the value was synthesized by the expression
// (in which case path is meaningless).
type ref struct {
	val   ast.Value
	path  ast.Path
	synth bool
}

func (r ref) match(src string) Match {
	if r.synth {
		return Match{Value: r.val, Context: src}
	}
	return Match{Path: r.path.Clone(), Value: r.val, Context: src}
}

func synth(v ast.Value) ref { return ref{val: v, synth: true} }

func nullRef() ref { return synth(ast.NewNull()) }

func (r ref) isNull() bool {
	_, ok := r.val.(*ast.Null)
	return ok
}

// child derives the ref for a child of r without aliasing r's path storage.
func (r ref) child(e ast.Elem, v ast.Value) ref {
	if r.synth {
		return ref{val: v, synth: true}
	}
	p := r.path[:len(r.path):len(r.path)]
	return ref{val: v, path: append(p, e)}
}

// A result is either a single ref or the element refs of a live projection.
type result struct {
	refs      []ref
	projected bool
}

func single(r ref) result { return result{refs: []ref{r}} }

func projected(rs []ref) result { return result{refs: rs, projected: true} }

// one collapses res to a single ref. A projection collapses to a synthesized
// array of its elements.
func (res result) one() ref {
	if !res.projected {
		return res.refs[0]
	}
	vs := make([]ast.Value, len(res.refs))
	for i, r := range res.refs {
		vs[i] = r.val
	}
	return synth(ast.NewArray(vs...))
}

func evalNode(n node, cur ref) (result, error) {
	switch t := n.(type) {
	case currentNode:
		return single(cur), nil

	case literalNode:
		return single(synth(t.val)), nil

	case fieldNode:
		if obj, ok := cur.val.(*ast.Object); ok {
			if m := obj.Find(t.name); m != nil {
				return single(cur.child(ast.Key(t.name), m.Value)), nil
			}
		}
		return single(nullRef()), nil

	case subNode:
		res, err := evalNode(t.lhs, cur)
		if err != nil {
			return result{}, err
		}
		return applyTo(t.rhs, res)

	case indexNode:
		res, err := evalNode(t.lhs, cur)
		if err != nil {
			return result{}, err
		}
		r := res.one()
		arr, ok := r.val.(*ast.Array)
		if !ok {
			return single(nullRef()), nil
		}
		i := t.idx
		if i < 0 {
			i += len(arr.Values)
		}
		if i < 0 || i >= len(arr.Values) {
			return single(nullRef()), nil
		}
		return single(r.child(ast.Index(i), arr.Values[i])), nil

	case sliceNode:
		res, err := evalNode(t.lhs, cur)
		if err != nil {
			return result{}, err
		}
		r := res.one()
		arr, ok := r.val.(*ast.Array)
		if !ok {
			return single(nullRef()), nil
		}
		var elems []ref
		lo, hi := sliceBounds(len(arr.Values), t)
		if t.step > 0 {
			for i := lo; i < hi; i += t.step {
				elems = append(elems, r.child(ast.Index(i), arr.Values[i]))
			}
		} else {
			for i := lo; i > hi; i += t.step {
				elems = append(elems, r.child(ast.Index(i), arr.Values[i]))
			}
		}
		return project(elems, t.rhs)

	case projArrNode:
		res, err := evalNode(t.lhs, cur)
		if err != nil {
			return result{}, err
		}
		r := res.one()
		arr, ok := r.val.(*ast.Array)
		if !ok {
			return single(nullRef()), nil
		}
		elems := make([]ref, len(arr.Values))
		for i, e := range arr.Values {
			elems[i] = r.child(ast.Index(i), e)
		}
		return project(elems, t.rhs)

	case projObjNode:
		res, err := evalNode(t.lhs, cur)
		if err != nil {
			return result{}, err
		}
		r := res.one()
		obj, ok := r.val.(*ast.Object)
		if !ok {
			return single(nullRef()), nil
		}
		elems := make([]ref, len(obj.Members))
		for i, m := range obj.Members {
			elems[i] = r.child(ast.Key(m.Key), m.Value)
		}
		return project(elems, t.rhs)

	case flattenNode:
		res, err := evalNode(t.lhs, cur)
		if err != nil {
			return result{}, err
		}
		var in []ref
		if res.projected {
			in = res.refs
		} else {
			r := res.one()
			arr, ok := r.val.(*ast.Array)
			if !ok {
				return single(nullRef()), nil
			}
			for i, e := range arr.Values {
				in = append(in, r.child(ast.Index(i), e))
			}
		}
		var elems []ref
		for _, r := range in {
			if arr, ok := r.val.(*ast.Array); ok {
				for i, e := range arr.Values {
					elems = append(elems, r.child(ast.Index(i), e))
				}
			} else if !r.isNull() {
				elems = append(elems, r)
			}
		}
		return project(elems, t.rhs)

	case filterNode:
		res, err := evalNode(t.lhs, cur)
		if err != nil {
			return result{}, err
		}
		var in []ref
		if res.projected {
			in = res.refs
		} else {
			r := res.one()
			arr, ok := r.val.(*ast.Array)
			if !ok {
				return single(nullRef()), nil
			}
			for i, e := range arr.Values {
				in = append(in, r.child(ast.Index(i), e))
			}
		}
		var keep []ref
		for _, r := range in {
			cres, err := evalNode(t.cond, r)
			if err != nil {
				return result{}, err
			}
			if isTrue(cres.one()) {
				keep = append(keep, r)
			}
		}
		return project(keep, t.rhs)

	case pipeNode:
		res, err := evalNode(t.lhs, cur)
		if err != nil {
			return result{}, err
		}
		return evalNode(t.rhs, res.one())

	case orNode:
		res, err := evalNode(t.lhs, cur)
		if err != nil {
			return result{}, err
		}
		if r := res.one(); isTrue(r) {
			return single(r), nil
		}
		rres, err := evalNode(t.rhs, cur)
		if err != nil {
			return result{}, err
		}
		return single(rres.one()), nil

	case andNode:
		res, err := evalNode(t.lhs, cur)
		if err != nil {
			return result{}, err
		}
		if r := res.one(); !isTrue(r) {
			return single(r), nil
		}
		rres, err := evalNode(t.rhs, cur)
		if err != nil {
			return result{}, err
		}
		return single(rres.one()), nil

	case notNode:
		res, err := evalNode(t.arg, cur)
		if err != nil {
			return result{}, err
		}
		return single(synth(ast.NewBool(!isTrue(res.one())))), nil

	case cmpNode:
		return evalCompare(t, cur)

	case multiList:
		base, err := baseFor(t.lhs, cur)
		if err != nil || base == nil {
			return single(nullRef()), err
		}
		vs := make([]ast.Value, len(t.items))
		for i, item := range t.items {
			res, err := evalNode(item, *base)
			if err != nil {
				return result{}, err
			}
			vs[i] = res.one().val
		}
		return single(synth(ast.NewArray(vs...))), nil

	case multiHash:
		base, err := baseFor(t.lhs, cur)
		if err != nil || base == nil {
			return single(nullRef()), err
		}
		ms := make([]*ast.Member, len(t.items))
		for i, item := range t.items {
			res, err := evalNode(item, *base)
			if err != nil {
				return result{}, err
			}
			ms[i] = ast.Field(t.names[i], res.one().val)
		}
		return single(synth(ast.NewObject(ms...))), nil

	case funcNode:
		args := make([]ref, len(t.args))
		for i, a := range t.args {
			res, err := evalNode(a, cur)
			if err != nil {
				return result{}, err
			}
			args[i] = res.one()
		}
		out, err := builtins[t.name](args)
		if err != nil {
			return result{}, fmt.Errorf("function %s: %w", t.name, err)
		}
		return single(out), nil

	default:
		return result{}, fmt.Errorf("unknown expression node %T", n)
	}
}

// applyTo applies rhs to an already-evaluated left side: once to a single
// value, or per element of a live projection.
func applyTo(rhs node, res result) (result, error) {
	if res.projected {
		return project(res.refs, rhs)
	}
	return evalNode(rhs, res.one())
}

// baseFor evaluates the left side of a multi-select. A null base suppresses
// the multi-select; nil is returned in that case.
func baseFor(lhs node, cur ref) (*ref, error) {
	res, err := evalNode(lhs, cur)
	if err != nil {
		return nil, err
	}
	r := res.one()
	if r.isNull() {
		return nil, nil
	}
	return &r, nil
}

// project applies the right side of a projection to each element, dropping
// elements whose result is a synthesized null (a missing field).
func project(elems []ref, rhs node) (result, error) {
	var out []ref
	for _, e := range elems {
		res, err := evalNode(rhs, e)
		if err != nil {
			return result{}, err
		}
		r := res.one()
		if r.synth && r.isNull() {
			continue
		}
		out = append(out, r)
	}
	return projected(out), nil
}

func sliceBounds(n int, s sliceNode) (lo, hi int) {
	clamp := func(i, lower, upper int) int {
		if i < 0 {
			i += n
		}
		if i < lower {
			return lower
		} else if i > upper {
			return upper
		}
		return i
	}
	if s.step > 0 {
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

// isTrue applies the language's truth rules: null, false, an empty string,
// an empty array, and an empty object are false; everything else is true.
func isTrue(r ref) bool {
	switch t := r.val.(type) {
	case *ast.Null:
		return false
	case *ast.Bool:
		return t.Value()
	case *ast.String:
		return t.Len() > 0
	case *ast.Array:
		return t.Len() > 0
	case *ast.Object:
		return t.Len() > 0
	default:
		return true
	}
}

func evalCompare(t cmpNode, cur ref) (result, error) {
	lres, err := evalNode(t.lhs, cur)
	if err != nil {
		return result{}, err
	}
	rres, err := evalNode(t.rhs, cur)
	if err != nil {
		return result{}, err
	}
	a, b := lres.one(), rres.one()

	lenient := &ast.EqualOptions{LenientNumbers: true}
	switch t.op {
	case tEQ:
		return single(synth(ast.NewBool(ast.Equal(a.val, b.val, lenient)))), nil
	case tNE:
		return single(synth(ast.NewBool(!ast.Equal(a.val, b.val, lenient)))), nil
	}

	// Ordering comparators are defined for numbers only; anything else
	// compares as null.
	na, aok := a.val.(*ast.Number)
	nb, bok := b.val.(*ast.Number)
	if !aok || !bok {
		return single(nullRef()), nil
	}
	x, y := na.Float64(), nb.Float64()
	var v bool
	switch t.op {
	case tLT:
		v = x < y
	case tLE:
		v = x <= y
	case tGT:
		v = x > y
	case tGE:
		v = x >= y
	}
	return single(synth(ast.NewBool(v))), nil
}
