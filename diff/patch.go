// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package diff

import (
	"fmt"
	"strconv"

	"github.com/edgejson/engine/ast"
)

// Apply applies an edit script to a and returns the resulting tree. The
// input tree is not modified, and the result shares no structure with it.
// Entries apply in order against the evolving working tree, so a script
// produced by Diff(a, b, o) yields a tree structurally equal to b.
func Apply(a ast.Value, es []Entry) (ast.Value, error) {
	work := ast.Clone(a)
	for i, e := range es {
		next, err := apply1(work, e)
		if err != nil {
			return nil, fmt.Errorf("entry %d (%v %q): %w", i, e.Op, e.Path, err)
		}
		work = next
	}
	return work, nil
}

func apply1(root ast.Value, e Entry) (ast.Value, error) {
	if len(e.Path) == 0 {
		if e.Op != OpReplace {
			return nil, fmt.Errorf("cannot %v the root", e.Op)
		}
		return ast.Clone(e.New), nil
	}
	parent, err := ast.At(root, e.Path.Parent())
	if err != nil {
		return nil, err
	}
	last := e.Path[len(e.Path)-1]
	switch t := parent.(type) {
	case *ast.Object:
		return root, applyObject(t, e, elemKey(last))
	case *ast.Array:
		if last.IsKey() {
			return nil, fmt.Errorf("key %q into array", last.KeyName())
		}
		return root, applyArray(t, e, last.Offset())
	default:
		return nil, fmt.Errorf("cannot edit inside %v", parent.Kind())
	}
}

// elemKey renders a path element as an object key; a numeric element
// addresses the member with its decimal name, mirroring ast.At.
func elemKey(e ast.Elem) string {
	if e.IsKey() {
		return e.KeyName()
	}
	return strconv.Itoa(e.Offset())
}

func applyObject(obj *ast.Object, e Entry, key string) error {
	i := obj.IndexKey(key)
	switch e.Op {
	case OpAdd:
		if i >= 0 {
			return fmt.Errorf("key %q already present", key)
		}
		obj.Members = append(obj.Members, ast.Field(key, ast.Clone(e.New)))
	case OpRemove:
		if i < 0 {
			return fmt.Errorf("key %q not found", key)
		}
		obj.Members = append(obj.Members[:i], obj.Members[i+1:]...)
	case OpReplace:
		if i < 0 {
			return fmt.Errorf("key %q not found", key)
		}
		obj.Members[i] = ast.Field(key, ast.Clone(e.New))
	}
	return nil
}

func applyArray(arr *ast.Array, e Entry, idx int) error {
	n := len(arr.Values)
	switch e.Op {
	case OpAdd:
		if idx < 0 || idx > n {
			return fmt.Errorf("index %d out of range (0..%d)", idx, n)
		}
		arr.Values = append(arr.Values, nil)
		copy(arr.Values[idx+1:], arr.Values[idx:])
		arr.Values[idx] = ast.Clone(e.New)
	case OpRemove:
		if idx < 0 || idx >= n {
			return fmt.Errorf("index %d out of range (0..%d)", idx, n-1)
		}
		arr.Values = append(arr.Values[:idx], arr.Values[idx+1:]...)
	case OpReplace:
		if idx < 0 || idx >= n {
			return fmt.Errorf("index %d out of range (0..%d)", idx, n-1)
		}
		arr.Values[idx] = ast.Clone(e.New)
	}
	return nil
}

// MarshalJSONPatch renders an edit script as an RFC 6902 JSON Patch
// document. Paths render as JSON Pointers; add and replace carry the new
// value.
func MarshalJSONPatch(es []Entry) *ast.Array {
	ops := make([]ast.Value, len(es))
	for i, e := range es {
		ms := []*ast.Member{
			ast.Field("op", ast.NewString(e.Op.String())),
			ast.Field("path", ast.NewString(e.Path.String())),
		}
		if e.Op != OpRemove {
			ms = append(ms, ast.Field("value", e.New))
		}
		ops[i] = ast.NewObject(ms...)
	}
	return ast.NewArray(ops...)
}
