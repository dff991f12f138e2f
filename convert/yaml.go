// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package convert

import (
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/edgejson/engine/ast"
)

func toYAML(v ast.Value) (string, error) {
	out, err := yaml.Marshal(yamlValue(v))
	if err != nil {
		return "", &ConversionError{Format: YAML, Reason: "cannot encode tree", Err: err}
	}
	return string(out), nil
}

// yamlValue converts a tree to the shape the YAML encoder understands.
// Objects become yaml.MapSlice so member order survives encoding.
func yamlValue(v ast.Value) any {
	switch t := v.(type) {
	case *ast.Object:
		ms := make(yaml.MapSlice, len(t.Members))
		for i, m := range t.Members {
			ms[i] = yaml.MapItem{Key: m.Key, Value: yamlValue(m.Value)}
		}
		return ms
	case *ast.Array:
		vs := make([]any, len(t.Values))
		for i, e := range t.Values {
			vs[i] = yamlValue(e)
		}
		return vs
	default:
		return ast.Decode(v)
	}
}

func fromYAML(text string) (ast.Value, error) {
	var raw any
	if err := yaml.UnmarshalWithOptions([]byte(text), &raw, yaml.UseOrderedMap()); err != nil {
		return nil, &ConversionError{Format: YAML, Reason: "cannot parse input", Err: err}
	}
	v, err := treeValue(raw)
	if err != nil {
		return nil, &ConversionError{Format: YAML, Reason: "cannot convert input", Err: err}
	}
	return v, nil
}

// treeValue converts decoded YAML/TOML values into a tree. yaml.MapSlice
// keeps member order; plain maps fall back to sorted keys.
func treeValue(raw any) (ast.Value, error) {
	switch t := raw.(type) {
	case yaml.MapSlice:
		ms := make([]*ast.Member, len(t))
		for i, item := range t {
			mv, err := treeValue(item.Value)
			if err != nil {
				return nil, err
			}
			ms[i] = ast.Field(fmt.Sprint(item.Key), mv)
		}
		return ast.NewObject(ms...), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ms := make([]*ast.Member, len(keys))
		for i, k := range keys {
			mv, err := treeValue(t[k])
			if err != nil {
				return nil, err
			}
			ms[i] = ast.Field(k, mv)
		}
		return ast.NewObject(ms...), nil
	case []any:
		vs := make([]ast.Value, len(t))
		for i, e := range t {
			var err error
			if vs[i], err = treeValue(e); err != nil {
				return nil, err
			}
		}
		return ast.NewArray(vs...), nil
	case time.Time:
		return ast.NewString(t.Format(time.RFC3339)), nil
	case fmt.Stringer:
		// TOML local dates and times land here.
		return ast.NewString(t.String()), nil
	default:
		return ast.FromGo(raw)
	}
}
