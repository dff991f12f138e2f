// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

// Package convert renders document trees in other serialization formats and
// reads those formats back into trees.
//
// YAML conversion preserves object member order in both directions. TOML
// does not define a null value and its encoder does not preserve member
// order, so trees containing null fail fast and a TOML round trip preserves
// structure but not order. CSV requires the tree to be an array of objects.
package convert

import (
	"fmt"

	"github.com/edgejson/engine/ast"
)

// Format identifies a target serialization format.
type Format int

const (
	YAML Format = iota
	TOML
	CSV
)

var formatStr = [...]string{YAML: "yaml", TOML: "toml", CSV: "csv"}

func (f Format) String() string {
	if int(f) < len(formatStr) {
		return formatStr[f]
	}
	return "invalid"
}

// Options adjusts conversion behavior. A nil Options uses the defaults.
type Options struct {
	// Comma is the CSV field delimiter. Zero means ','.
	Comma rune
}

func (o *Options) comma() rune {
	if o == nil || o.Comma == 0 {
		return ','
	}
	return o.Comma
}

// A ConversionError reports input the target format cannot carry, or text
// the source format's reader rejected.
type ConversionError struct {
	Format Format
	Reason string
	Err    error // underlying reader or writer error, if any
}

func (e *ConversionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("convert %v: %s: %v", e.Format, e.Reason, e.Err)
	}
	return fmt.Sprintf("convert %v: %s", e.Format, e.Reason)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// An UnsupportedShapeError reports a tree whose shape the target format
// cannot represent at all, such as a non-object root for TOML.
type UnsupportedShapeError struct {
	Format Format
	Path   ast.Path
	Kind   ast.Kind
	Reason string
}

func (e *UnsupportedShapeError) Error() string {
	return fmt.Sprintf("convert %v: %v at %q: %s", e.Format, e.Kind, e.Path.String(), e.Reason)
}

// ToFormat renders a tree as text in the given format. The tree is not
// modified.
func ToFormat(v ast.Value, f Format, o *Options) (string, error) {
	switch f {
	case YAML:
		return toYAML(v)
	case TOML:
		return toTOML(v)
	case CSV:
		return toCSV(v, o.comma())
	default:
		return "", fmt.Errorf("unknown format %v", f)
	}
}

// FromFormat reads text in the given format into a document tree.
func FromFormat(text string, f Format, o *Options) (ast.Value, error) {
	switch f {
	case YAML:
		return fromYAML(text)
	case TOML:
		return fromTOML(text)
	case CSV:
		return fromCSV(text, o.comma())
	default:
		return nil, fmt.Errorf("unknown format %v", f)
	}
}
