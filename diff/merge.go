// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package diff

import (
	"github.com/creachadair/mds/mapset"
	"github.com/edgejson/engine/ast"
)

// A MergeResult is the outcome of a three-way merge. Merged is always a
// complete tree; Conflicts lists the paths where both sides changed the base
// differently and the left side was kept.
type MergeResult struct {
	Merged    ast.Value
	Conflicts []ast.Path
}

// Merge3 merges two descendants of a common base tree. Where only one side
// changed, its change is taken; where both sides made the same change, it is
// taken once; where the sides disagree, the left value is kept and the path
// recorded as a conflict. Objects merge member-wise; arrays merge
// element-wise only when both sides kept the base length, and are otherwise
// treated as atomic. No input tree is mutated.
func Merge3(base, left, right ast.Value) *MergeResult {
	m := &MergeResult{}
	m.Merged = ast.Clone(m.merge(nil, base, left, right))
	return m
}

func (m *MergeResult) conflict(p ast.Path) { m.Conflicts = append(m.Conflicts, p.Clone()) }

// merge resolves one node. base, left, or right may be nil when the key does
// not exist on that side.
func (m *MergeResult) merge(p ast.Path, base, left, right ast.Value) ast.Value {
	switch {
	case equalOpt(left, right):
		return left
	case equalOpt(base, left):
		return right
	case equalOpt(base, right):
		return left
	}

	// Both sides changed, differently.
	lo, lok := left.(*ast.Object)
	ro, rok := right.(*ast.Object)
	if lok && rok {
		bo, _ := base.(*ast.Object)
		return m.mergeObjects(p, bo, lo, ro)
	}
	la, lok := left.(*ast.Array)
	ra, rok := right.(*ast.Array)
	if lok && rok {
		if ba, ok := base.(*ast.Array); ok && len(la.Values) == len(ba.Values) && len(ra.Values) == len(ba.Values) {
			return m.mergeArrays(p, ba, la, ra)
		}
	}

	m.conflict(p)
	if left == nil {
		// Left deleted, right modified: deletion wins, conflict recorded.
		return nil
	}
	return left
}

func (m *MergeResult) mergeObjects(p ast.Path, base, left, right *ast.Object) ast.Value {
	find := func(o *ast.Object, key string) ast.Value {
		if o == nil {
			return nil
		}
		if mem := o.Find(key); mem != nil {
			return mem.Value
		}
		return nil
	}

	var out []*ast.Member
	seen := mapset.New[string]()
	addKey := func(key string) {
		if seen.Has(key) {
			return
		}
		seen.Add(key)
		v := m.merge(child(p, ast.Key(key)), find(base, key), find(left, key), find(right, key))
		if v != nil {
			out = append(out, ast.Field(key, v))
		}
	}
	for _, mem := range left.Members {
		addKey(mem.Key)
	}
	for _, mem := range right.Members {
		addKey(mem.Key)
	}
	if base != nil {
		for _, mem := range base.Members {
			addKey(mem.Key)
		}
	}
	return ast.NewObject(out...)
}

func (m *MergeResult) mergeArrays(p ast.Path, base, left, right *ast.Array) ast.Value {
	vs := make([]ast.Value, len(base.Values))
	for i := range base.Values {
		v := m.merge(child(p, ast.Index(i)), base.Values[i], left.Values[i], right.Values[i])
		if v == nil {
			v = ast.NewNull()
		}
		vs[i] = v
	}
	return ast.NewArray(vs...)
}

// equalOpt is structural equality extended to absent (nil) values.
func equalOpt(a, b ast.Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return ast.Equal(a, b, nil)
}
