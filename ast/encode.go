// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package ast

import (
	"io"
	"sort"
	"strings"

	"github.com/edgejson/engine"
)

// EncodeOptions configure JSON text output. A nil options value means
// compact output with keys in insertion order.
type EncodeOptions struct {
	// Indent enables pretty-printed output using the given string as one
	// level of indentation. Empty means compact output.
	Indent string

	// SortKeys emits object members in lexicographic key order instead of
	// insertion order.
	SortKeys bool
}

func (o *EncodeOptions) indent() string {
	if o == nil {
		return ""
	}
	return o.Indent
}

func (o *EncodeOptions) sortKeys() bool { return o != nil && o.SortKeys }

// Encode writes the canonical JSON text of v to w. Output is deterministic:
// object member order is insertion order unless SortKeys is set, and scalars
// reproduce their original lexical form.
func Encode(w io.Writer, v Value, o *EncodeOptions) error {
	e := &encoder{w: w, indent: o.indent(), sortKeys: o.sortKeys()}
	e.value(v, 0)
	return e.err
}

// EncodeString returns the canonical JSON text of v as a string.
func EncodeString(v Value, o *EncodeOptions) string {
	var sb strings.Builder
	Encode(&sb, v, o) // strings.Builder does not fail
	return sb.String()
}

type encoder struct {
	w        io.Writer
	indent   string
	sortKeys bool
	err      error
}

func (e *encoder) str(s string) {
	if e.err == nil {
		_, e.err = io.WriteString(e.w, s)
	}
}

func (e *encoder) newline(depth int) {
	if e.indent == "" {
		return
	}
	e.str("\n")
	e.str(strings.Repeat(e.indent, depth))
}

func (e *encoder) value(v Value, depth int) {
	switch t := v.(type) {
	case *Object:
		if len(t.Members) == 0 {
			e.str("{}")
			return
		}
		ms := t.Members
		if e.sortKeys {
			ms = append([]*Member(nil), ms...)
			sort.Slice(ms, func(i, j int) bool { return ms[i].Key < ms[j].Key })
		}
		e.str("{")
		for i, m := range ms {
			if i > 0 {
				e.str(",")
			}
			e.newline(depth + 1)
			e.str(engine.Quote(m.Key))
			e.str(":")
			if e.indent != "" {
				e.str(" ")
			}
			e.value(m.Value, depth+1)
		}
		e.newline(depth)
		e.str("}")
	case *Array:
		if len(t.Values) == 0 {
			e.str("[]")
			return
		}
		e.str("[")
		for i, el := range t.Values {
			if i > 0 {
				e.str(",")
			}
			e.newline(depth + 1)
			e.value(el, depth+1)
		}
		e.newline(depth)
		e.str("]")
	case *String:
		e.str(t.Quoted())
	case *Number:
		e.str(t.Text())
	case *Bool:
		if t.Value() {
			e.str("true")
		} else {
			e.str("false")
		}
	case *Null:
		e.str("null")
	}
}
