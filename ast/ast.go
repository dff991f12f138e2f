// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

// Package ast defines the document tree for JSON-family values, and a parser
// that constructs document trees from source text.
//
// A parsed tree is an immutable snapshot: no operation in this module
// modifies a tree after its parse returns, and the query, diff, schema, and
// conversion engines hold non-owning references into it. Numbers retain their
// original lexical form alongside the decoded value, so that serializing a
// tree reproduces the input text of each scalar.
package ast

import (
	"math"
	"strconv"
	"strings"

	"github.com/edgejson/engine"
)

// Kind identifies the JSON type of a node.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
	KindMember // occurs only inside an Object, never as a document value
)

var kindStr = [...]string{
	KindNull:   "null",
	KindBool:   "boolean",
	KindNumber: "number",
	KindString: "string",
	KindArray:  "array",
	KindObject: "object",
	KindMember: "member",
}

func (k Kind) String() string {
	if int(k) < len(kindStr) {
		return kindStr[k]
	}
	return "invalid"
}

// A Value is a node of a document tree.
type Value interface {
	Kind() Kind
	Span() engine.Span
	Location() engine.Location
}

type node struct{ loc engine.Location }

func (n node) Span() engine.Span         { return n.loc.Span }
func (n node) Location() engine.Location { return n.loc }

// An Object is an ordered collection of key-value members. Member order is
// the insertion (source) order, and keys are unique within one object.
type Object struct {
	node
	Members []*Member
}

// Kind satisfies the Value interface.
func (*Object) Kind() Kind { return KindObject }

// Len reports the number of members of o.
func (o *Object) Len() int { return len(o.Members) }

// Find returns the member of o with the given key, or nil.
func (o *Object) Find(key string) *Member {
	for _, m := range o.Members {
		if m.Key == key {
			return m
		}
	}
	return nil
}

// IndexKey reports the position of key among the members of o, or -1.
func (o *Object) IndexKey(key string) int {
	for i, m := range o.Members {
		if m.Key == key {
			return i
		}
	}
	return -1
}

// NewObject constructs an object with the given members. Spans are zero.
func NewObject(ms ...*Member) *Object { return &Object{Members: ms} }

// A Member is a single key-value pair belonging to an Object.
type Member struct {
	node
	Key   string
	Value Value
}

// Kind satisfies the Value interface.
func (*Member) Kind() Kind { return KindMember }

// Field constructs a member with the given key and value. Spans are zero.
func Field(key string, value Value) *Member { return &Member{Key: key, Value: value} }

// An Array is an ordered sequence of values.
type Array struct {
	node
	Values []Value
}

// Kind satisfies the Value interface.
func (*Array) Kind() Kind { return KindArray }

// Len reports the number of elements of a.
func (a *Array) Len() int { return len(a.Values) }

// NewArray constructs an array with the given elements. Spans are zero.
func NewArray(vs ...Value) *Array { return &Array{Values: vs} }

// A String is a string value. It retains the quoted source text so that
// serialization reproduces the original escapes where possible.
type String struct {
	node
	text  string // quoted source form; "" if synthesized
	value string // decoded value
}

// Kind satisfies the Value interface.
func (*String) Kind() Kind { return KindString }

// Value returns the decoded text of s.
func (s *String) Value() string { return s.value }

// Len reports the length of the decoded text of s in bytes.
func (s *String) Len() int { return len(s.value) }

// Quoted returns the quoted source form of s, synthesizing one if the value
// was not produced by a parse.
func (s *String) Quoted() string {
	if s.text == "" {
		return engine.Quote(s.value)
	}
	return s.text
}

// NewString constructs a string with the given decoded value.
func NewString(v string) *String { return &String{value: v} }

// A Number is a numeric value. The original lexical form is retained to avoid
// precision loss on round trip.
type Number struct {
	node
	text  string
	isInt bool
}

// Kind satisfies the Value interface.
func (*Number) Kind() Kind { return KindNumber }

// Text returns the lexical form of n.
func (n *Number) Text() string { return n.text }

// IsInt reports whether the lexical form of n is an integer (no fraction or
// exponent).
func (n *Number) IsInt() bool { return n.isInt }

// Float64 returns the decoded value of n.
func (n *Number) Float64() float64 {
	v, err := strconv.ParseFloat(n.text, 64)
	if err != nil {
		panic(err)
	}
	return v
}

// Int64 returns the decoded value of n as an int64, and reports whether the
// value is integral and within int64 range.
func (n *Number) Int64() (int64, bool) {
	if n.isInt {
		if v, err := strconv.ParseInt(n.text, 10, 64); err == nil {
			return v, true
		}
		return 0, false
	}
	f := n.Float64()
	if f == math.Trunc(f) && f >= math.MinInt64 && f <= math.MaxInt64 {
		return int64(f), true
	}
	return 0, false
}

// NewNumberText constructs a number from its lexical form. It panics if text
// is not a valid JSON number.
func NewNumberText(text string) *Number {
	if _, err := strconv.ParseFloat(text, 64); err != nil {
		panic("invalid number text: " + text)
	}
	return &Number{text: text, isInt: !strings.ContainsAny(text, ".eE")}
}

// NewInt constructs an integer number value.
func NewInt(z int64) *Number { return &Number{text: strconv.FormatInt(z, 10), isInt: true} }

// NewFloat constructs a floating-point number value.
func NewFloat(f float64) *Number {
	text := strconv.FormatFloat(f, 'g', -1, 64)
	return &Number{text: text, isInt: !strings.ContainsAny(text, ".eE")}
}

// A Bool is a Boolean constant, true or false.
type Bool struct {
	node
	value bool
}

// Kind satisfies the Value interface.
func (*Bool) Kind() Kind { return KindBool }

// Value returns the truth value of b.
func (b *Bool) Value() bool { return b.value }

// NewBool constructs a Boolean value.
func NewBool(v bool) *Bool { return &Bool{value: v} }

// Null represents the null constant.
type Null struct{ node }

// Kind satisfies the Value interface.
func (*Null) Kind() Kind { return KindNull }

// NewNull constructs a null value.
func NewNull() *Null { return &Null{} }

// Clone returns a deep copy of v with the same spans. The copy shares no
// structure with v, so a caller that owns the copy may rearrange it without
// affecting the original.
func Clone(v Value) Value {
	switch t := v.(type) {
	case *Object:
		ms := make([]*Member, len(t.Members))
		for i, m := range t.Members {
			ms[i] = &Member{node: m.node, Key: m.Key, Value: Clone(m.Value)}
		}
		return &Object{node: t.node, Members: ms}
	case *Array:
		vs := make([]Value, len(t.Values))
		for i, e := range t.Values {
			vs[i] = Clone(e)
		}
		return &Array{node: t.node, Values: vs}
	case *String:
		cp := *t
		return &cp
	case *Number:
		cp := *t
		return &cp
	case *Bool:
		cp := *t
		return &cp
	case *Null:
		cp := *t
		return &cp
	default:
		panic("unknown value type")
	}
}
