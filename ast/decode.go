// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package ast

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Decode converts v to plain Go values: objects become map[string]any (member
// order is lost), arrays []any, strings string, booleans bool, null nil, and
// numbers int64 when the lexical form is an in-range integer, else float64.
func Decode(v Value) any {
	switch t := v.(type) {
	case *Object:
		out := make(map[string]any, len(t.Members))
		for _, m := range t.Members {
			out[m.Key] = Decode(m.Value)
		}
		return out
	case *Array:
		out := make([]any, len(t.Values))
		for i, e := range t.Values {
			out[i] = Decode(e)
		}
		return out
	case *String:
		return t.Value()
	case *Number:
		if z, ok := t.Int64(); ok && t.IsInt() {
			return z
		}
		return t.Float64()
	case *Bool:
		return t.Value()
	case *Null:
		return nil
	default:
		return nil
	}
}

// FromGo converts plain Go values into a document tree. Maps become objects
// with keys in sorted order (Go maps carry no order); slices become arrays.
// Numeric types, strings, booleans, and nil map to the corresponding scalars.
func FromGo(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return NewNull(), nil
	case bool:
		return NewBool(t), nil
	case string:
		return NewString(t), nil
	case int:
		return NewInt(int64(t)), nil
	case int8:
		return NewInt(int64(t)), nil
	case int16:
		return NewInt(int64(t)), nil
	case int32:
		return NewInt(int64(t)), nil
	case int64:
		return NewInt(t), nil
	case uint:
		return NewNumberText(strconv.FormatUint(uint64(t), 10)), nil
	case uint8:
		return NewInt(int64(t)), nil
	case uint16:
		return NewInt(int64(t)), nil
	case uint32:
		return NewInt(int64(t)), nil
	case uint64:
		return NewNumberText(strconv.FormatUint(t, 10)), nil
	case float32:
		return FromGo(float64(t))
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("number %v has no JSON representation", t)
		}
		return NewFloat(t), nil
	case []any:
		vs := make([]Value, len(t))
		for i, e := range t {
			var err error
			if vs[i], err = FromGo(e); err != nil {
				return nil, err
			}
		}
		return NewArray(vs...), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ms := make([]*Member, len(keys))
		for i, k := range keys {
			mv, err := FromGo(t[k])
			if err != nil {
				return nil, err
			}
			ms[i] = Field(k, mv)
		}
		return NewObject(ms...), nil
	default:
		return nil, fmt.Errorf("cannot convert %T to a document value", v)
	}
}
