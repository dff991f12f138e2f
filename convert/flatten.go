// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package convert

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/edgejson/engine/ast"
)

// Flatten renders a tree as a single-level object whose keys are the paths
// of the tree's leaves joined with sep. Array indices appear as decimal
// segments. Empty containers flatten to themselves so Restore can rebuild
// them. Keys that contain sep are ambiguous and fail.
func Flatten(v ast.Value, sep string) (*ast.Object, error) {
	if sep == "" {
		sep = "."
	}
	f := &flattener{sep: sep}
	if err := f.walk("", v); err != nil {
		return nil, err
	}
	return ast.NewObject(f.out...), nil
}

type flattener struct {
	sep string
	out []*ast.Member
}

func (f *flattener) walk(prefix string, v ast.Value) error {
	join := func(seg string) string {
		if prefix == "" {
			return seg
		}
		return prefix + f.sep + seg
	}
	switch t := v.(type) {
	case *ast.Object:
		if len(t.Members) == 0 {
			f.out = append(f.out, ast.Field(prefix, ast.NewObject()))
			return nil
		}
		for _, m := range t.Members {
			if strings.Contains(m.Key, f.sep) {
				return fmt.Errorf("key %q contains the separator %q", m.Key, f.sep)
			}
			if err := f.walk(join(m.Key), m.Value); err != nil {
				return err
			}
		}
		return nil
	case *ast.Array:
		if len(t.Values) == 0 {
			f.out = append(f.out, ast.Field(prefix, ast.NewArray()))
			return nil
		}
		for i, e := range t.Values {
			if err := f.walk(join(strconv.Itoa(i)), e); err != nil {
				return err
			}
		}
		return nil
	default:
		f.out = append(f.out, ast.Field(prefix, v))
		return nil
	}
}

// Restore rebuilds a nested tree from a flattened object. A segment run of
// decimal indices 0..n-1 rebuilds an array; anything else rebuilds an
// object with members in first-seen order. Conflicting keys, such as a
// leaf that is also a prefix of another key, fail.
func Restore(flat *ast.Object, sep string) (ast.Value, error) {
	if sep == "" {
		sep = "."
	}
	// A scalar or empty-container root flattens to a single ""-keyed member.
	if flat.Len() == 1 && flat.Members[0].Key == "" {
		return flat.Members[0].Value, nil
	}
	root := newRestoreNode()
	for _, m := range flat.Members {
		if err := root.insert(strings.Split(m.Key, sep), m.Key, m.Value); err != nil {
			return nil, err
		}
	}
	return root.build()
}

type restoreNode struct {
	leaf ast.Value
	keys []string
	kids map[string]*restoreNode
}

func newRestoreNode() *restoreNode {
	return &restoreNode{kids: make(map[string]*restoreNode)}
}

func (n *restoreNode) insert(segs []string, full string, v ast.Value) error {
	if n.leaf != nil {
		return fmt.Errorf("key %q nests inside a leaf value", full)
	}
	if len(segs) == 0 {
		if len(n.kids) > 0 {
			return fmt.Errorf("key %q is both a leaf and a prefix", full)
		}
		n.leaf = v
		return nil
	}
	kid, ok := n.kids[segs[0]]
	if !ok {
		kid = newRestoreNode()
		n.kids[segs[0]] = kid
		n.keys = append(n.keys, segs[0])
	}
	return kid.insert(segs[1:], full, v)
}

func (n *restoreNode) build() (ast.Value, error) {
	if n.leaf != nil {
		return n.leaf, nil
	}

	// An index run 0..n-1 means this level was an array.
	isArray := len(n.keys) > 0
	for _, k := range n.keys {
		if i, err := strconv.Atoi(k); err != nil || i < 0 || i >= len(n.keys) {
			isArray = false
			break
		}
	}
	if isArray {
		vs := make([]ast.Value, len(n.keys))
		for _, k := range n.keys {
			i, _ := strconv.Atoi(k)
			if vs[i] != nil {
				isArray = false
				break
			}
			v, err := n.kids[k].build()
			if err != nil {
				return nil, err
			}
			vs[i] = v
		}
		if isArray {
			return ast.NewArray(vs...), nil
		}
	}

	ms := make([]*ast.Member, len(n.keys))
	for i, k := range n.keys {
		v, err := n.kids[k].build()
		if err != nil {
			return nil, err
		}
		ms[i] = ast.Field(k, v)
	}
	return ast.NewObject(ms...), nil
}
