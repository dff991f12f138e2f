// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package engine

import (
	"errors"
	"fmt"
)

// ErrCancelled is reported when a streaming parse observes a cancelled
// context at a checkpoint. No partial result accompanies it.
var ErrCancelled = errors.New("parse cancelled")

// A LexError reports an unrecoverable lexical error in the input, such as an
// unterminated string. It carries the exact location of the damage.
type LexError struct {
	Location Location
	Msg      string

	err error
}

// Error satisfies the error interface.
func (e *LexError) Error() string {
	return fmt.Sprintf("at %s: %s", e.Location, e.Msg)
}

// Unwrap supports error wrapping.
func (e *LexError) Unwrap() error { return e.err }

// A ParseError reports a fatal syntax error from the stream parser: the
// parser expected one construct and found another.
type ParseError struct {
	Location Location
	Expected string
	Found    string

	err error
}

// Error satisfies the error interface.
func (e *ParseError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("at %s: %s", e.Location, e.Found)
	}
	return fmt.Sprintf("at %s: expected %s, got %s", e.Location, e.Expected, e.Found)
}

// Unwrap supports error wrapping.
func (e *ParseError) Unwrap() error { return e.err }

// A QueryError reports a malformed query expression. It is returned by the
// jsonpath and jmespath packages before any evaluation takes place.
type QueryError struct {
	Expression string
	Position   int // byte offset into Expression
	Reason     string
}

// Error satisfies the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query %q: at offset %d: %s", e.Expression, e.Position, e.Reason)
}
