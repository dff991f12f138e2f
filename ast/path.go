// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// An Elem is one element of a Path: either an object key or an array index.
type Elem struct {
	key   string
	index int
	isKey bool
}

// Key constructs a path element addressing an object member.
func Key(name string) Elem { return Elem{key: name, isKey: true} }

// Index constructs a path element addressing an array offset.
func Index(i int) Elem { return Elem{index: i} }

// IsKey reports whether e addresses an object member.
func (e Elem) IsKey() bool { return e.isKey }

// KeyName returns the object key of e; it is "" for an index element.
func (e Elem) KeyName() string { return e.key }

// Offset returns the array index of e; it is 0 for a key element.
func (e Elem) Offset() int { return e.index }

func (e Elem) String() string {
	if e.isKey {
		return e.key
	}
	return strconv.Itoa(e.index)
}

// A Path addresses a node of a document tree as the sequence of object keys
// and array indices leading to it from the root. The empty path addresses the
// root. Paths returned by this module are stable for the lifetime of the tree
// they address into.
type Path []Elem

// String renders p as an RFC 6901 JSON Pointer. The empty path renders as "".
func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, e := range p {
		sb.WriteByte('/')
		sb.WriteString(escapePointer(e.String()))
	}
	return sb.String()
}

// Equal reports whether p and q address the same location.
func (p Path) Equal(q Path) bool {
	if len(p) != len(q) {
		return false
	}
	for i, e := range p {
		if e != q[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether q is a prefix of p (including p itself).
func (p Path) HasPrefix(q Path) bool {
	if len(q) > len(p) {
		return false
	}
	return p[:len(q)].Equal(q)
}

// Parent returns the path addressing the parent of p, or nil if p is the
// root. Parent lookup is a prefix computation; trees carry no back-pointers.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1]
}

// Clone returns a copy of p that does not share storage with it.
func (p Path) Clone() Path { return append(Path(nil), p...) }

// ParsePointer parses an RFC 6901 JSON Pointer into a Path. Numeric segments
// are recorded as array indices; At converts between index and key elements
// as the shape of the tree requires.
func ParsePointer(s string) (Path, error) {
	if s == "" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "/") {
		return nil, fmt.Errorf("pointer %q: missing leading slash", s)
	}
	var p Path
	for _, seg := range strings.Split(s[1:], "/") {
		seg = strings.ReplaceAll(strings.ReplaceAll(seg, "~1", "/"), "~0", "~")
		if n, err := strconv.Atoi(seg); err == nil && n >= 0 {
			p = append(p, Index(n))
		} else {
			p = append(p, Key(seg))
		}
	}
	return p, nil
}

// At returns the node of v addressed by p, in O(len(p)) steps. A numeric
// element addresses an object member whose key is the decimal rendering of
// the index if the node at that point is an object.
func At(v Value, p Path) (Value, error) {
	cur := v
	for i, e := range p {
		switch t := cur.(type) {
		case *Object:
			key := e.KeyName()
			if !e.IsKey() {
				key = strconv.Itoa(e.Offset())
			}
			m := t.Find(key)
			if m == nil {
				return nil, fmt.Errorf("path %q: key %q not found", p[:i+1].String(), key)
			}
			cur = m.Value
		case *Array:
			if e.IsKey() {
				return nil, fmt.Errorf("path %q: key %q into array", p[:i+1].String(), e.KeyName())
			}
			idx := e.Offset()
			if idx < 0 {
				idx += len(t.Values)
			}
			if idx < 0 || idx >= len(t.Values) {
				return nil, fmt.Errorf("path %q: index %d out of range (0..%d)", p[:i+1].String(), e.Offset(), len(t.Values))
			}
			cur = t.Values[idx]
		default:
			return nil, fmt.Errorf("path %q: cannot index %v", p[:i+1].String(), cur.Kind())
		}
	}
	return cur, nil
}

func escapePointer(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~", "~0"), "/", "~1")
}
