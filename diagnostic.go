// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package engine

import "fmt"

// Severity classifies how serious a Diagnostic is.
type Severity int

const (
	SevError   Severity = iota // the input is damaged at this location
	SevWarning                 // the input deviates but was repaired
	SevInfo                    // advisory only
)

var sevStr = [...]string{SevError: "error", SevWarning: "warning", SevInfo: "info"}

func (s Severity) String() string {
	if int(s) < len(sevStr) {
		return sevStr[s]
	}
	return "unknown"
}

// Diagnostic kinds. Most diagnostics carry an empty Kind; kinds are assigned
// only where a caller needs to distinguish a class of diagnostics
// programmatically.
const (
	// KindUnsupportedKeyword marks a schema keyword the validator does not
	// implement, where ignoring the keyword may change pass/fail semantics.
	KindUnsupportedKeyword = "unsupported-keyword"
)

// A Diagnostic records one recoverable issue found while parsing, validating,
// or converting a document. Diagnostics accompany a successful result; they
// are not errors.
type Diagnostic struct {
	Severity Severity
	Kind     string   // optional machine-readable kind, see Kind constants
	Path     string   // JSON Pointer of the affected node; "" at the root
	Location Location // source span of the deviation, zero if not positional
	Message  string

	// SuggestedFix, when non-empty, is the text that would make the input
	// conform at Location.
	SuggestedFix string
}

func (d Diagnostic) String() string {
	if d.Location == (Location{}) {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: at %s: %s", d.Severity, d.Location, d.Message)
}
