// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package convert

import (
	"fmt"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/edgejson/engine/ast"
)

func toTOML(v ast.Value) (string, error) {
	obj, ok := v.(*ast.Object)
	if !ok {
		return "", &UnsupportedShapeError{
			Format: TOML, Kind: v.Kind(), Reason: "TOML documents are tables; the root must be an object",
		}
	}
	g, err := tomlValue(obj, nil)
	if err != nil {
		return "", err
	}
	out, err := toml.Marshal(g)
	if err != nil {
		return "", &ConversionError{Format: TOML, Reason: "cannot encode tree", Err: err}
	}
	return string(out), nil
}

// tomlValue converts a tree for the TOML encoder. TOML has no null, so any
// null fails the conversion. Member order is not preserved; TOML tables are
// unordered and the round-trip guarantee is structural only.
func tomlValue(v ast.Value, p ast.Path) (any, error) {
	switch t := v.(type) {
	case *ast.Object:
		out := make(map[string]any, len(t.Members))
		for _, m := range t.Members {
			mv, err := tomlValue(m.Value, append(p, ast.Key(m.Key)))
			if err != nil {
				return nil, err
			}
			out[m.Key] = mv
		}
		return out, nil
	case *ast.Array:
		out := make([]any, len(t.Values))
		for i, e := range t.Values {
			ev, err := tomlValue(e, append(p, ast.Index(i)))
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	case *ast.Null:
		return nil, &ConversionError{
			Format: TOML,
			Reason: fmt.Sprintf("null at %q has no TOML representation", p.String()),
		}
	default:
		return ast.Decode(v), nil
	}
}

func fromTOML(text string) (ast.Value, error) {
	var raw map[string]any
	if err := toml.Unmarshal([]byte(text), &raw); err != nil {
		return nil, &ConversionError{Format: TOML, Reason: "cannot parse input", Err: err}
	}
	v, err := treeValue(raw)
	if err != nil {
		return nil, &ConversionError{Format: TOML, Reason: "cannot convert input", Err: err}
	}
	return v, nil
}
