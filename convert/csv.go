// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package convert

import (
	"encoding/csv"
	"strings"

	"github.com/edgejson/engine/ast"
)

func toCSV(v ast.Value, comma rune) (string, error) {
	arr, ok := v.(*ast.Array)
	if !ok {
		return "", &UnsupportedShapeError{
			Format: CSV, Kind: v.Kind(), Reason: "CSV carries a list of records; the root must be an array",
		}
	}

	// Header: union of member keys, in order of first appearance.
	var header []string
	seen := make(map[string]bool)
	rows := make([]*ast.Object, len(arr.Values))
	for i, e := range arr.Values {
		obj, ok := e.(*ast.Object)
		if !ok {
			return "", &UnsupportedShapeError{
				Format: CSV, Path: ast.Path{ast.Index(i)}, Kind: e.Kind(),
				Reason: "every record must be an object",
			}
		}
		rows[i] = obj
		for _, m := range obj.Members {
			if !seen[m.Key] {
				seen[m.Key] = true
				header = append(header, m.Key)
			}
		}
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	w.Comma = comma
	if err := w.Write(header); err != nil {
		return "", &ConversionError{Format: CSV, Reason: "cannot write header", Err: err}
	}
	record := make([]string, len(header))
	for _, obj := range rows {
		for i, key := range header {
			record[i] = ""
			if m := obj.Find(key); m != nil {
				record[i] = cellText(m.Value)
			}
		}
		if err := w.Write(record); err != nil {
			return "", &ConversionError{Format: CSV, Reason: "cannot write record", Err: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", &ConversionError{Format: CSV, Reason: "cannot write output", Err: err}
	}
	return sb.String(), nil
}

// cellText renders one value as CSV cell text. Scalars use their natural
// text; containers embed as compact JSON so the reverse conversion can
// recover them.
func cellText(v ast.Value) string {
	switch t := v.(type) {
	case *ast.String:
		return t.Value()
	case *ast.Number:
		return t.Text()
	case *ast.Bool:
		if t.Value() {
			return "true"
		}
		return "false"
	case *ast.Null:
		return ""
	default:
		return ast.EncodeString(v, nil)
	}
}

func fromCSV(text string, comma rune) (ast.Value, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = comma
	records, err := r.ReadAll()
	if err != nil {
		return nil, &ConversionError{Format: CSV, Reason: "cannot parse input", Err: err}
	}
	if len(records) == 0 {
		return ast.NewArray(), nil
	}
	header := records[0]
	out := make([]ast.Value, 0, len(records)-1)
	for _, record := range records[1:] {
		ms := make([]*ast.Member, 0, len(record))
		for i, cell := range record {
			if i >= len(header) {
				break
			}
			ms = append(ms, ast.Field(header[i], cellValue(cell)))
		}
		out = append(out, ast.NewObject(ms...))
	}
	return ast.NewArray(out...), nil
}

// cellValue reverses cellText: an empty cell is null, text that reads as a
// JSON value (number, boolean, embedded container) becomes that value, and
// anything else stays a string.
func cellValue(cell string) ast.Value {
	if cell == "" {
		return ast.NewNull()
	}
	if v, _, err := ast.ParseString(cell, nil); err == nil {
		return v
	}
	return ast.NewString(cell)
}
