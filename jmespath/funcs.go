// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package jmespath

import (
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/edgejson/engine/ast"
)

// builtins maps function names to implementations. Functions receive
// collapsed argument refs and synthesize their results.
var builtins map[string]func([]ref) (ref, error)

func init() {
	builtins = map[string]func([]ref) (ref, error){
		"abs":         fnAbs,
		"avg":         fnAvg,
		"ceil":        fnCeil,
		"contains":    fnContains,
		"ends_with":   fnEndsWith,
		"floor":       fnFloor,
		"join":        fnJoin,
		"keys":        fnKeys,
		"length":      fnLength,
		"max":         fnMax,
		"merge":       fnMerge,
		"min":         fnMin,
		"not_null":    fnNotNull,
		"reverse":     fnReverse,
		"sort":        fnSort,
		"starts_with": fnStartsWith,
		"sum":         fnSum,
		"to_array":    fnToArray,
		"to_number":   fnToNumber,
		"to_string":   fnToString,
		"type":        fnType,
		"values":      fnValues,
	}
}

var errArity = errors.New("wrong number of arguments")

func arity(args []ref, n int) error {
	if len(args) != n {
		return errArity
	}
	return nil
}

func typeErr(want string) error { return errors.New("argument must be " + want) }

func number(args []ref) (float64, error) {
	if err := arity(args, 1); err != nil {
		return 0, err
	}
	n, ok := args[0].val.(*ast.Number)
	if !ok {
		return 0, typeErr("a number")
	}
	return n.Float64(), nil
}

func fnAbs(args []ref) (ref, error) {
	f, err := number(args)
	if err != nil {
		return ref{}, err
	}
	return synth(ast.NewFloat(math.Abs(f))), nil
}

func fnCeil(args []ref) (ref, error) {
	f, err := number(args)
	if err != nil {
		return ref{}, err
	}
	return synth(ast.NewInt(int64(math.Ceil(f)))), nil
}

func fnFloor(args []ref) (ref, error) {
	f, err := number(args)
	if err != nil {
		return ref{}, err
	}
	return synth(ast.NewInt(int64(math.Floor(f)))), nil
}

func numbers(args []ref) ([]float64, error) {
	if err := arity(args, 1); err != nil {
		return nil, err
	}
	arr, ok := args[0].val.(*ast.Array)
	if !ok {
		return nil, typeErr("an array of numbers")
	}
	out := make([]float64, len(arr.Values))
	for i, e := range arr.Values {
		n, ok := e.(*ast.Number)
		if !ok {
			return nil, typeErr("an array of numbers")
		}
		out[i] = n.Float64()
	}
	return out, nil
}

func fnAvg(args []ref) (ref, error) {
	ns, err := numbers(args)
	if err != nil {
		return ref{}, err
	}
	if len(ns) == 0 {
		return nullRef(), nil
	}
	var sum float64
	for _, n := range ns {
		sum += n
	}
	return synth(ast.NewFloat(sum / float64(len(ns)))), nil
}

func fnSum(args []ref) (ref, error) {
	ns, err := numbers(args)
	if err != nil {
		return ref{}, err
	}
	var sum float64
	for _, n := range ns {
		sum += n
	}
	return synth(ast.NewFloat(sum)), nil
}

func fnContains(args []ref) (ref, error) {
	if err := arity(args, 2); err != nil {
		return ref{}, err
	}
	switch t := args[0].val.(type) {
	case *ast.String:
		sub, ok := args[1].val.(*ast.String)
		if !ok {
			return synth(ast.NewBool(false)), nil
		}
		return synth(ast.NewBool(strings.Contains(t.Value(), sub.Value()))), nil
	case *ast.Array:
		lenient := &ast.EqualOptions{LenientNumbers: true}
		for _, e := range t.Values {
			if ast.Equal(e, args[1].val, lenient) {
				return synth(ast.NewBool(true)), nil
			}
		}
		return synth(ast.NewBool(false)), nil
	default:
		return ref{}, typeErr("a string or array")
	}
}

func twoStrings(args []ref) (a, b string, _ error) {
	if err := arity(args, 2); err != nil {
		return "", "", err
	}
	sa, ok := args[0].val.(*ast.String)
	if !ok {
		return "", "", typeErr("a string")
	}
	sb, ok := args[1].val.(*ast.String)
	if !ok {
		return "", "", typeErr("a string")
	}
	return sa.Value(), sb.Value(), nil
}

func fnStartsWith(args []ref) (ref, error) {
	s, prefix, err := twoStrings(args)
	if err != nil {
		return ref{}, err
	}
	return synth(ast.NewBool(strings.HasPrefix(s, prefix))), nil
}

func fnEndsWith(args []ref) (ref, error) {
	s, suffix, err := twoStrings(args)
	if err != nil {
		return ref{}, err
	}
	return synth(ast.NewBool(strings.HasSuffix(s, suffix))), nil
}

func fnJoin(args []ref) (ref, error) {
	if err := arity(args, 2); err != nil {
		return ref{}, err
	}
	glue, ok := args[0].val.(*ast.String)
	if !ok {
		return ref{}, typeErr("a string")
	}
	arr, ok := args[1].val.(*ast.Array)
	if !ok {
		return ref{}, typeErr("an array of strings")
	}
	parts := make([]string, len(arr.Values))
	for i, e := range arr.Values {
		s, ok := e.(*ast.String)
		if !ok {
			return ref{}, typeErr("an array of strings")
		}
		parts[i] = s.Value()
	}
	return synth(ast.NewString(strings.Join(parts, glue.Value()))), nil
}

func fnKeys(args []ref) (ref, error) {
	if err := arity(args, 1); err != nil {
		return ref{}, err
	}
	obj, ok := args[0].val.(*ast.Object)
	if !ok {
		return ref{}, typeErr("an object")
	}
	vs := make([]ast.Value, len(obj.Members))
	for i, m := range obj.Members {
		vs[i] = ast.NewString(m.Key)
	}
	return synth(ast.NewArray(vs...)), nil
}

func fnValues(args []ref) (ref, error) {
	if err := arity(args, 1); err != nil {
		return ref{}, err
	}
	obj, ok := args[0].val.(*ast.Object)
	if !ok {
		return ref{}, typeErr("an object")
	}
	vs := make([]ast.Value, len(obj.Members))
	for i, m := range obj.Members {
		vs[i] = m.Value
	}
	return synth(ast.NewArray(vs...)), nil
}

func fnLength(args []ref) (ref, error) {
	if err := arity(args, 1); err != nil {
		return ref{}, err
	}
	if t, ok := args[0].val.(interface{ Len() int }); ok {
		return synth(ast.NewInt(int64(t.Len()))), nil
	}
	return ref{}, typeErr("a string, array, or object")
}

func fnMerge(args []ref) (ref, error) {
	if len(args) == 0 {
		return ref{}, errArity
	}
	var out []*ast.Member
	seen := make(map[string]int)
	for _, a := range args {
		obj, ok := a.val.(*ast.Object)
		if !ok {
			return ref{}, typeErr("an object")
		}
		for _, m := range obj.Members {
			if i, dup := seen[m.Key]; dup {
				out[i] = ast.Field(m.Key, m.Value)
			} else {
				seen[m.Key] = len(out)
				out = append(out, ast.Field(m.Key, m.Value))
			}
		}
	}
	return synth(ast.NewObject(out...)), nil
}

// ordered prepares an array of all-numbers or all-strings for min, max, and
// sort.
func ordered(args []ref) (arr *ast.Array, numeric bool, _ error) {
	if err := arity(args, 1); err != nil {
		return nil, false, err
	}
	arr, ok := args[0].val.(*ast.Array)
	if !ok {
		return nil, false, typeErr("an array")
	}
	if len(arr.Values) == 0 {
		return arr, true, nil
	}
	switch arr.Values[0].(type) {
	case *ast.Number:
		numeric = true
	case *ast.String:
	default:
		return nil, false, typeErr("an array of numbers or strings")
	}
	for _, e := range arr.Values {
		if numeric {
			if _, ok := e.(*ast.Number); !ok {
				return nil, false, typeErr("an array of numbers")
			}
		} else if _, ok := e.(*ast.String); !ok {
			return nil, false, typeErr("an array of strings")
		}
	}
	return arr, numeric, nil
}

func orderedLess(a, b ast.Value, numeric bool) bool {
	if numeric {
		return a.(*ast.Number).Float64() < b.(*ast.Number).Float64()
	}
	return a.(*ast.String).Value() < b.(*ast.String).Value()
}

func fnMin(args []ref) (ref, error) { return extreme(args, true) }

func fnMax(args []ref) (ref, error) { return extreme(args, false) }

func extreme(args []ref, min bool) (ref, error) {
	arr, numeric, err := ordered(args)
	if err != nil {
		return ref{}, err
	}
	if len(arr.Values) == 0 {
		return nullRef(), nil
	}
	best := arr.Values[0]
	for _, e := range arr.Values[1:] {
		if orderedLess(e, best, numeric) == min {
			best = e
		}
	}
	return synth(best), nil
}

func fnSort(args []ref) (ref, error) {
	arr, numeric, err := ordered(args)
	if err != nil {
		return ref{}, err
	}
	vs := append([]ast.Value(nil), arr.Values...)
	sort.SliceStable(vs, func(i, j int) bool { return orderedLess(vs[i], vs[j], numeric) })
	return synth(ast.NewArray(vs...)), nil
}

func fnReverse(args []ref) (ref, error) {
	if err := arity(args, 1); err != nil {
		return ref{}, err
	}
	switch t := args[0].val.(type) {
	case *ast.Array:
		vs := make([]ast.Value, len(t.Values))
		for i, e := range t.Values {
			vs[len(vs)-1-i] = e
		}
		return synth(ast.NewArray(vs...)), nil
	case *ast.String:
		rs := []rune(t.Value())
		for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
			rs[i], rs[j] = rs[j], rs[i]
		}
		return synth(ast.NewString(string(rs))), nil
	default:
		return ref{}, typeErr("an array or string")
	}
}

func fnNotNull(args []ref) (ref, error) {
	for _, a := range args {
		if !a.isNull() {
			return a, nil
		}
	}
	return nullRef(), nil
}

func fnToArray(args []ref) (ref, error) {
	if err := arity(args, 1); err != nil {
		return ref{}, err
	}
	if _, ok := args[0].val.(*ast.Array); ok {
		return args[0], nil
	}
	return synth(ast.NewArray(args[0].val)), nil
}

func fnToString(args []ref) (ref, error) {
	if err := arity(args, 1); err != nil {
		return ref{}, err
	}
	if _, ok := args[0].val.(*ast.String); ok {
		return args[0], nil
	}
	return synth(ast.NewString(ast.EncodeString(args[0].val, nil))), nil
}

func fnToNumber(args []ref) (ref, error) {
	if err := arity(args, 1); err != nil {
		return ref{}, err
	}
	switch t := args[0].val.(type) {
	case *ast.Number:
		return args[0], nil
	case *ast.String:
		v, _, err := ast.ParseString(t.Value(), nil)
		if err != nil {
			return nullRef(), nil
		}
		if _, ok := v.(*ast.Number); !ok {
			return nullRef(), nil
		}
		return synth(v), nil
	default:
		return nullRef(), nil
	}
}

func fnType(args []ref) (ref, error) {
	if err := arity(args, 1); err != nil {
		return ref{}, err
	}
	return synth(ast.NewString(args[0].val.Kind().String())), nil
}
