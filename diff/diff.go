// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

// Package diff computes structural edit scripts between two document trees.
//
// The edit script transforms the first tree into the second: applying the
// entries in order to a copy of A (see Apply) reproduces a tree structurally
// equal to B. Diffing never mutates either input.
package diff

import (
	"github.com/creachadair/mds/mapset"
	"github.com/edgejson/engine/ast"
)

// Op is the kind of a single edit.
type Op int

const (
	OpAdd Op = iota
	OpRemove
	OpReplace
)

var opStr = [...]string{OpAdd: "add", OpRemove: "remove", OpReplace: "replace"}

func (o Op) String() string {
	if int(o) < len(opStr) {
		return opStr[o]
	}
	return "invalid"
}

// An Entry is one edit. Path addresses the affected node in the working tree
// at the point the entry applies: in the destination tree for Add and
// Replace, in the source tree for Remove. Old is nil for Add and New is nil
// for Remove.
type Entry struct {
	Op   Op
	Path ast.Path
	Old  ast.Value
	New  ast.Value
}

// Align selects the array alignment strategy.
type Align int

const (
	// AlignPositional compares arrays index by index; a length difference
	// produces trailing Add/Remove entries. Always correct, never minimal.
	AlignPositional Align = iota

	// AlignLCS aligns array elements by a longest-common-subsequence pass
	// first, detecting insertions and deletions in the middle of an array.
	// A quality-of-result optimization only: the edit script still satisfies
	// the round-trip law.
	AlignLCS
)

// Options configure a diff. A nil options value means positional alignment.
type Options struct {
	Align Align
}

func (o *Options) align() Align {
	if o == nil {
		return AlignPositional
	}
	return o.Align
}

// Diff returns the edit script transforming a into b. Equal trees produce an
// empty script. Entries reference (not copy) nodes of the input trees.
func Diff(a, b ast.Value, o *Options) []Entry {
	d := &differ{align: o.align()}
	d.value(nil, a, b)
	return d.out
}

type differ struct {
	align Align
	out   []Entry
}

func (d *differ) emit(e Entry) { d.out = append(d.out, e) }

// value diffs two nodes at the same path.
func (d *differ) value(p ast.Path, a, b ast.Value) {
	if a.Kind() != b.Kind() {
		d.emit(Entry{Op: OpReplace, Path: p.Clone(), Old: a, New: b})
		return
	}
	switch ta := a.(type) {
	case *ast.Object:
		d.object(p, ta, b.(*ast.Object))
	case *ast.Array:
		d.array(p, ta, b.(*ast.Array))
	default:
		if !ast.Equal(a, b, nil) {
			d.emit(Entry{Op: OpReplace, Path: p.Clone(), Old: a, New: b})
		}
	}
}

// object diffs two objects: keys only in a are removed, keys only in b are
// added, keys in both recurse. Removals come first so the surviving member
// set is settled before additions, and entry order within each group follows
// source member order.
func (d *differ) object(p ast.Path, a, b *ast.Object) {
	inB := mapset.New[string]()
	for _, m := range b.Members {
		inB.Add(m.Key)
	}
	inA := mapset.New[string]()
	for _, m := range a.Members {
		inA.Add(m.Key)
	}

	for _, m := range a.Members {
		if !inB.Has(m.Key) {
			d.emit(Entry{Op: OpRemove, Path: child(p, ast.Key(m.Key)), Old: m.Value})
		}
	}
	for _, m := range b.Members {
		if !inA.Has(m.Key) {
			d.emit(Entry{Op: OpAdd, Path: child(p, ast.Key(m.Key)), New: m.Value})
		}
	}
	for _, m := range a.Members {
		if n := b.Find(m.Key); n != nil {
			d.value(child(p, ast.Key(m.Key)), m.Value, n.Value)
		}
	}
}

func (d *differ) array(p ast.Path, a, b *ast.Array) {
	if d.align == AlignLCS {
		d.arrayLCS(p, a, b)
		return
	}

	n := len(a.Values)
	if len(b.Values) < n {
		n = len(b.Values)
	}
	for i := 0; i < n; i++ {
		d.value(child(p, ast.Index(i)), a.Values[i], b.Values[i])
	}
	// Extra destination elements append in order; extra source elements are
	// removed from the tail down so each index is valid when it applies.
	for i := n; i < len(b.Values); i++ {
		d.emit(Entry{Op: OpAdd, Path: child(p, ast.Index(i)), New: b.Values[i]})
	}
	for i := len(a.Values) - 1; i >= n; i-- {
		d.emit(Entry{Op: OpRemove, Path: child(p, ast.Index(i)), Old: a.Values[i]})
	}
}

// child derives a child path without aliasing p's storage.
func child(p ast.Path, e ast.Elem) ast.Path {
	return append(p[:len(p):len(p)], e)
}
