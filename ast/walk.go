// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package ast

import "iter"

// Walk returns a lazy depth-first pre-order traversal of root, yielding each
// node together with its path. The traversal is restartable: ranging over the
// returned sequence again starts over from root. Paths yielded to the
// consumer are copies and remain valid after the traversal moves on.
func Walk(root Value) iter.Seq2[Path, Value] {
	return func(yield func(Path, Value) bool) {
		walk(root, nil, yield)
	}
}

func walk(v Value, p Path, yield func(Path, Value) bool) bool {
	if !yield(p.Clone(), v) {
		return false
	}
	switch t := v.(type) {
	case *Object:
		for _, m := range t.Members {
			if !walk(m.Value, append(p, Key(m.Key)), yield) {
				return false
			}
		}
	case *Array:
		for i, e := range t.Values {
			if !walk(e, append(p, Index(i)), yield) {
				return false
			}
		}
	}
	return true
}
