// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package diff

import (
	"strings"

	"github.com/edgejson/engine/ast"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// arrayLCS aligns array elements by longest common subsequence before
// diffing. Each element is reduced to a short summary string, summaries are
// interned as runes, and the rune sequences are diffed; equal runs recurse
// element-by-element, and a deletion directly followed by an insertion pairs
// into Replace entries. Entry paths carry working-tree indices so the script
// applies in order.
func (d *differ) arrayLCS(p ast.Path, a, b *ast.Array) {
	interned := make(map[string]rune)
	ar := summarize(interned, a)
	br := summarize(interned, b)
	diffs := diffpatch.New().DiffMainRunes(ar, br, false)

	// ai/bi index the source arrays, wi the working tree being transformed.
	ai, bi, wi := 0, 0, 0
	for k := 0; k < len(diffs); k++ {
		run := diffs[k]
		switch run.Type {
		case diffpatch.DiffEqual:
			for range run.Text {
				d.value(child(p, ast.Index(wi)), a.Values[ai], b.Values[bi])
				ai++
				bi++
				wi++
			}

		case diffpatch.DiffDelete:
			del := len([]rune(run.Text))
			ins := 0
			if k+1 < len(diffs) && diffs[k+1].Type == diffpatch.DiffInsert {
				ins = len([]rune(diffs[k+1].Text))
				k++
			}
			// Pair deletions with immediate insertions as replacements.
			for del > 0 && ins > 0 {
				d.emit(Entry{Op: OpReplace, Path: child(p, ast.Index(wi)), Old: a.Values[ai], New: b.Values[bi]})
				ai++
				bi++
				wi++
				del--
				ins--
			}
			for ; del > 0; del-- {
				// Removing at wi shifts the successor into wi.
				d.emit(Entry{Op: OpRemove, Path: child(p, ast.Index(wi)), Old: a.Values[ai]})
				ai++
			}
			for ; ins > 0; ins-- {
				d.emit(Entry{Op: OpAdd, Path: child(p, ast.Index(wi)), New: b.Values[bi]})
				bi++
				wi++
			}

		case diffpatch.DiffInsert:
			for range run.Text {
				d.emit(Entry{Op: OpAdd, Path: child(p, ast.Index(wi)), New: b.Values[bi]})
				bi++
				wi++
			}
		}
	}
}

// summarize interns a one-rune summary per element. Scalars summarize to
// kind+value so equal scalars align exactly; containers summarize to their
// kind only, leaving their contents to the recursive pass.
func summarize(interned map[string]rune, arr *ast.Array) []rune {
	rs := make([]rune, len(arr.Values))
	for i, v := range arr.Values {
		s := summary(v)
		r, ok := interned[s]
		if !ok {
			r = rune(len(interned) + 1)
			interned[s] = r
		}
		rs[i] = r
	}
	return rs
}

func summary(v ast.Value) string {
	switch t := v.(type) {
	case *ast.Object, *ast.Array, *ast.Null:
		return v.Kind().String()
	case *ast.Bool:
		if t.Value() {
			return "boolean-true"
		}
		return "boolean-false"
	case *ast.String:
		if strings.Contains(t.Value(), "\n") {
			return "string/m"
		}
		return "string-" + t.Value()
	case *ast.Number:
		return "number-" + t.Text()
	default:
		return "invalid"
	}
}
