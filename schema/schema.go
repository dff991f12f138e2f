// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

// Package schema validates document trees against JSON Schema documents.
//
// Validation collects every violation in one pass rather than stopping at
// the first. Schema keywords outside the supported subset do not fail
// validation; each occurrence surfaces as a Warning diagnostic with the
// unsupported-keyword kind so the caller knows about the capability gap.
// External schema documents referenced by $ref must be registered before
// validation; there is no live fetching of remote references.
package schema

import (
	"fmt"
	"sync"

	"github.com/edgejson/engine"
	"github.com/edgejson/engine/ast"
)

// Draft identifies a JSON Schema specification revision.
type Draft int

const (
	Draft4 Draft = iota
	Draft6
	Draft7
	Draft2019
	Draft2020
)

var draftStr = [...]string{
	Draft4:    "draft-04",
	Draft6:    "draft-06",
	Draft7:    "draft-07",
	Draft2019: "2019-09",
	Draft2020: "2020-12",
}

func (d Draft) String() string {
	if int(d) < len(draftStr) {
		return draftStr[d]
	}
	return "invalid"
}

// DetectDraft inspects a schema document's $schema member and reports the
// draft it declares. Schemas without a recognizable $schema report ok=false.
func DetectDraft(schema ast.Value) (Draft, bool) {
	obj, isObj := schema.(*ast.Object)
	if !isObj {
		return 0, false
	}
	m := obj.Find("$schema")
	if m == nil {
		return 0, false
	}
	s, isStr := m.Value.(*ast.String)
	if !isStr {
		return 0, false
	}
	for d, frag := range map[Draft]string{
		Draft4:    "draft-04",
		Draft6:    "draft-06",
		Draft7:    "draft-07",
		Draft2019: "2019-09",
		Draft2020: "2020-12",
	} {
		if containsFold(s.Value(), frag) {
			return d, true
		}
	}
	return 0, false
}

func containsFold(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		ok := true
		for j := 0; j < len(sub); j++ {
			a, b := s[i+j], sub[j]
			if a >= 'A' && a <= 'Z' {
				a += 'a' - 'A'
			}
			if a != b {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// A Violation is one failed keyword at one data location. SchemaPath
// addresses the failing keyword within the schema document.
type Violation struct {
	Path       ast.Path
	Keyword    string
	Message    string
	SchemaPath ast.Path
}

func (v Violation) String() string {
	return fmt.Sprintf("%q: %s (%s)", v.Path.String(), v.Message, v.Keyword)
}

// A ResolutionError reports a $ref that could not be resolved against the
// schema document or the registered external documents. It fails the
// validation call itself; it is not a data violation.
type ResolutionError struct {
	Ref    string
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve reference %q: %s", e.Ref, e.Reason)
}

// A Validator validates trees against schemas. Register pre-loads external
// schema documents for $ref resolution. A Validator is safe for concurrent
// use once registration is complete.
type Validator struct {
	mu       sync.RWMutex
	registry map[string]ast.Value
}

// NewValidator returns an empty Validator.
func NewValidator() *Validator {
	return &Validator{registry: make(map[string]ast.Value)}
}

// Register associates id (the URI other schemas reference) with an external
// schema document. Registering an already-registered id fails.
func (v *Validator) Register(id string, schema ast.Value) error {
	if id == "" {
		return fmt.Errorf("cannot register an empty schema id")
	}
	if schema == nil {
		return fmt.Errorf("cannot register a nil schema")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, exists := v.registry[id]; exists {
		return fmt.Errorf("schema %q already registered", id)
	}
	v.registry[id] = schema
	return nil
}

func (v *Validator) lookup(id string) (ast.Value, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	s, ok := v.registry[id]
	return s, ok
}

// Validate checks data against schema under the given draft. The violation
// list is empty when the data is valid. Diagnostics report unsupported
// keywords encountered along the way. A non-nil error means the validation
// could not run at all (an unresolved $ref), distinct from data violations.
// Neither tree is mutated.
func (v *Validator) Validate(data, schema ast.Value, draft Draft) ([]Violation, []engine.Diagnostic, error) {
	r := &run{
		val:   v,
		root:  schema,
		draft: draft,
	}
	if err := r.validate(data, nil, schema, nil); err != nil {
		return nil, nil, err
	}
	return r.violations, r.diags, nil
}

// Validate checks data against schema with a fresh Validator; see
// Validator.Validate.
func Validate(data, schema ast.Value, draft Draft) ([]Violation, []engine.Diagnostic, error) {
	return NewValidator().Validate(data, schema, draft)
}
