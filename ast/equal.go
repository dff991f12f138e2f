// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package ast

// EqualOptions configure structural equality. A nil options value means the
// strict defaults.
type EqualOptions struct {
	// LenientNumbers compares numbers by decoded value, so that 1 and 1.0
	// compare equal. The default compares lexical forms, under which they do
	// not.
	LenientNumbers bool
}

func (o *EqualOptions) lenient() bool { return o != nil && o.LenientNumbers }

// Equal reports whether a and b are structurally equal: same shape, same
// object keys (order-insensitive), same array elements in the same order, and
// equal scalar values. Source locations are not compared.
func Equal(a, b Value, o *EqualOptions) bool {
	switch ta := a.(type) {
	case *Object:
		tb, ok := b.(*Object)
		if !ok || len(ta.Members) != len(tb.Members) {
			return false
		}
		for _, m := range ta.Members {
			n := tb.Find(m.Key)
			if n == nil || !Equal(m.Value, n.Value, o) {
				return false
			}
		}
		return true
	case *Array:
		tb, ok := b.(*Array)
		if !ok || len(ta.Values) != len(tb.Values) {
			return false
		}
		for i, e := range ta.Values {
			if !Equal(e, tb.Values[i], o) {
				return false
			}
		}
		return true
	case *String:
		tb, ok := b.(*String)
		return ok && ta.Value() == tb.Value()
	case *Number:
		tb, ok := b.(*Number)
		if !ok {
			return false
		}
		if o.lenient() {
			return ta.Float64() == tb.Float64()
		}
		return ta.Text() == tb.Text()
	case *Bool:
		tb, ok := b.(*Bool)
		return ok && ta.Value() == tb.Value()
	case *Null:
		_, ok := b.(*Null)
		return ok
	default:
		return false
	}
}
