// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

// Package engine implements the lexical and streaming layers of the EdgeJSON
// document processing engine.
//
// # Scanning
//
// The Scanner type implements a lexical scanner for JSON-family text.
// Construct a scanner from an io.Reader and call its Next method to iterate
// over the stream. Next advances to the next input token and returns nil, or
// reports an error:
//
//	s := engine.NewScanner(input)
//	for s.Next() == nil {
//	   log.Printf("Next token: %v", s.Token())
//	}
//
// Next returns io.EOF when the input has been fully consumed. Any other error
// indicates an I/O or lexical error in the input.
//
// Three input modes are supported: Strict (RFC 8259), JSONC (comments and
// trailing commas), and JSON5 (additionally unquoted object keys,
// single-quoted strings, and permissive numeric literals). In the tolerant
// modes the scanner repairs recognized deviations in place and records a
// Diagnostic with a suggested textual fix for each; an unrecoverable lexical
// error is reported as a *LexError.
//
// # Streaming
//
// The Stream type implements an event-driven stream parser. The parser works
// by calling methods on a Handler value to report the structure of the input,
// so a document tree can be built incrementally without materializing the
// token sequence. In case of a syntax error, parsing is terminated and an
// error of concrete type *ParseError is returned.
//
// A stream optionally observes a context at periodic checkpoints,
// proportional to bytes consumed, for cooperative cancellation and progress
// reporting on large inputs. Cancellation between checkpoints fails the parse
// with ErrCancelled.
//
// # Handlers
//
// The Handler interface accepts parser events from a Stream. The methods of
// a handler correspond to the syntax of JSON values:
//
//	JSON type  | Methods                   | Description
//	---------- | ------------------------- | ---------------------------------
//	object     | BeginObject, EndObject    | { ... }
//	array      | BeginArray, EndArray      | [ ... ]
//	member     | BeginMember, EndMember    | "key": value
//	value      | Value                     | true, false, null, number, string
//	--         | EndOfInput                | end of input
//
// Each method is passed an Anchor value that can be used to retrieve location
// and type information. The Anchor passed to a handler method is only valid
// for the duration of that method call; the handler must copy any data it
// needs to retain beyond the lifetime of the call.
//
// The document tree itself, and the query, diff, schema, and conversion
// engines that consume it, live in the subpackages ast, jsonpath, jmespath,
// diff, schema, and convert.
package engine
