// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package engine

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
)

// An Anchor represents a location in source text. The methods of an Anchor
// will report the location, token type, and contents of the anchor.
type Anchor interface {
	Token() Token       // Returns the token type of the anchor
	Text() []byte       // Returns a view of the raw (undecoded) text of the anchor
	Copy() []byte       // Returns a copy of the raw text of the anchor
	Location() Location // Returns the full location of the anchor
}

// A Handler handles events from parsing an input stream.  If a method reports
// an error, parsing stops and that error is returned to the caller.
// The parser ensures objects and arrays are correctly balanced.
//
// The Anchor argument to a Handler method is only valid for the duration of
// that method call. If the method needs to retain information about the
// location after it returns, it must copy the relevant data.
type Handler interface {
	// Begin a new object, whose open brace is at loc.
	BeginObject(loc Anchor) error

	// End the most-recently-opened object, whose close brace is at loc.
	EndObject(loc Anchor) error

	// Begin a new array, whose open bracket is at loc.
	BeginArray(loc Anchor) error

	// End the most-recently-opened array, whose close bracket is at loc.
	EndArray(loc Anchor) error

	// Begin a new object member, whose key is at loc.  The text of the key is
	// still quoted; the handler is responsible for unescaping key values if
	// the plain string is required (see engine.Unquote).
	BeginMember(loc Anchor) error

	// End the current object member giving the location and type of the token
	// that terminated the member (either Comma or RBrace).
	EndMember(loc Anchor) error

	// Report a data value at the given location. The type of the value can be
	// recovered from the token. String tokens are quoted.
	Value(loc Anchor) error

	// EndOfInput reports the end of the input stream.
	EndOfInput(loc Anchor)
}

// CommentHandler is an optional interface that a Handler may implement to
// handle comment tokens. If a handler implements this method and the mode
// permits comments, Comment will be called for each comment token that occurs
// in the input. If the handler does not provide this method, comments are
// silently discarded.
type CommentHandler interface {
	// Process the line or block comment at the specified location.
	// Line comments include their leading "//" and trailing newline (if present).
	// Block comments include their leading "/*" and trailing "*/".
	Comment(loc Anchor)
}

// DefaultCheckpointBytes is the default interval of consumed input between
// cooperative checkpoints of a Stream.
const DefaultCheckpointBytes = 64 * 1024

// Stream is a stream parser that consumes input and delivers events to a
// Handler corresponding with the structure of the input.
//
// A Stream periodically observes its context at checkpoints, every
// CheckpointBytes of consumed input. A cancelled context fails the parse with
// an error satisfying errors.Is(err, ErrCancelled); the handler receives no
// further events after that, so no partial result escapes. A progress
// callback, if set, is invoked at each checkpoint with the number of bytes
// consumed so far.
type Stream struct {
	s    *Scanner
	mode Mode

	ctx      context.Context
	progress func(consumed, total int64)
	total    int64
	ckpt     int
	lastCkpt int

	diags    []Diagnostic
	pushed   bool // one-token pushback, used after resynchronization
	resynced bool // the current token came from a resynchronization
}

// NewStream constructs a new Stream that consumes input from r.
func NewStream(r io.Reader) *Stream {
	return &Stream{s: NewScanner(r), ckpt: DefaultCheckpointBytes}
}

// NewStreamWithScanner constructs a new Stream that consumes input from s.
func NewStreamWithScanner(s *Scanner) *Stream {
	return &Stream{s: s, mode: s.Mode(), ckpt: DefaultCheckpointBytes}
}

// SetMode configures the input dialect accepted by s and its scanner.
func (s *Stream) SetMode(m Mode) { s.mode = m; s.s.SetMode(m) }

// SetContext configures the context observed at parser checkpoints.
// A nil context disables cancellation.
func (s *Stream) SetContext(ctx context.Context) { s.ctx = ctx }

// SetProgress configures a progress callback invoked at each checkpoint with
// the number of bytes consumed. The total is whatever the caller supplies
// (typically the input length); the stream passes it through unexamined, and
// reports total <= 0 as-is.
func (s *Stream) SetProgress(fn func(consumed, total int64), total int64) {
	s.progress = fn
	s.total = total
}

// SetCheckpointBytes configures the interval of consumed input between
// cooperative checkpoints. n <= 0 restores the default.
func (s *Stream) SetCheckpointBytes(n int) {
	if n <= 0 {
		n = DefaultCheckpointBytes
	}
	s.ckpt = n
}

// Diagnostics returns all diagnostics recorded during the parse, in input
// order, including those recorded by the scanner.
func (s *Stream) Diagnostics() []Diagnostic {
	out := append([]Diagnostic(nil), s.s.Diagnostics()...)
	out = append(out, s.diags...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Location.Pos < out[j].Location.Pos
	})
	return out
}

func (s *Stream) recoverParseError(errp *error) {
	if serr := recover(); serr != nil {
		switch err := serr.(type) {
		case *ParseError:
			*errp = err
		case *LexError:
			*errp = err
		case cancelPanic:
			*errp = err.error
		case handlerError:
			*errp = err.error
		default:
			panic(serr)
		}
	}
}

// Parse parses the input stream and delivers events to h until either an
// error occurs or the input is exhausted. In case of a syntax error, the
// returned error has type [*ParseError]; a lexical error has type
// [*LexError]; a cancelled context reports an error satisfying
// errors.Is(err, ErrCancelled).
func (s *Stream) Parse(h Handler) (err error) {
	defer s.recoverParseError(&err)

	for {
		err := s.nextToken(h)
		if err == io.EOF {
			s.finishProgress()
			h.EndOfInput(s.s)
			return nil
		} else if err != nil {
			s.syntaxError(err, "%v", err)
		}

		s.parseElement(h)
	}
}

// ParseOne parses a single value from the input stream and delivers events to
// h until the value is complete or an error occurs. If no further value is
// available from the input, ParseOne returns io.EOF.
func (s *Stream) ParseOne(h Handler) (err error) {
	defer s.recoverParseError(&err)

	if err := s.nextToken(h); err == io.EOF {
		s.finishProgress()
		h.EndOfInput(s.s)
		return err
	} else if err != nil {
		s.syntaxError(err, "%v", err)
	}
	s.parseElement(h)
	return nil
}

// parseElement consumes a single value of any type.
// Precondition: token != Invalid.
func (s *Stream) parseElement(h Handler) {
	switch tok := s.s.Token(); tok {
	case LBrace:
		s.checkError(h.BeginObject(s.s))
		s.parseMembers(h)
		s.require(RBrace)
		s.checkError(h.EndObject(s.s))
	case LSquare:
		s.checkError(h.BeginArray(s.s))
		s.parseElements(h)
		s.require(RSquare)
		s.checkError(h.EndArray(s.s))
	case Integer, Number, String, True, False, Null:
		s.checkError(h.Value(s.s))
	case RBrace, RSquare, Comma, Colon:
		if s.resynced {
			// A lexical error consumed the element; report a placeholder so
			// the surrounding structure stays balanced, and let the enclosing
			// production consume the delimiter we resynchronized to.
			s.resynced = false
			s.checkError(h.Value(synthAnchor{tok: Null, text: []byte("null"), loc: s.s.Location()}))
			s.pushed = true
			return
		}
		s.syntaxError(nil, "unexpected %v", tok)
	default:
		s.syntaxError(nil, "unknown token %v", tok)
	}
}

// parseMembers consumes zero or more key:value object members.
// Precondition: token == LBrace.
// Postcondition: token == RBrace.
func (s *Stream) parseMembers(h Handler) {
	tok := s.advance(h, RBrace, String)
	if tok == RBrace {
		return // end of object
	}
	for {
		// Parse a single member: "key": value
		s.checkError(h.BeginMember(s.s))
		s.advance(h, Colon)
		s.advance(h)
		s.parseElement(h)

		// Check whether we have more members (",") or are done ("}").
		tok := s.advance(h, RBrace, Comma)
		s.checkError(h.EndMember(s.s))
		if tok == RBrace {
			return // end of object
		} else if s.mode.Tolerant() {
			// If the next token is a close brace, this was a trailing comma:
			// accept it and record the repair. Otherwise, it must be a key for
			// a subsequent member.
			next := s.advance(h, String, RBrace)
			if next == RBrace {
				s.warnTrailingComma()
				return
			}
		} else {
			s.advance(h, String) // advance to next key
		}
	}
}

// parseElements consumes zero or more comma-separated array values.
// Precondition: token == LSquare.
// Postcondition: token == RSquare.
func (s *Stream) parseElements(h Handler) {
	if tok := s.advance(h); tok == RSquare {
		return // end of array
	}
	s.parseElement(h)
	for {
		tok := s.advance(h, RSquare, Comma)
		if tok == RSquare {
			return // end of array
		}

		// If the mode permits trailing commas and the next token is a close
		// bracket, this was a trailing comma; otherwise it starts an element.
		if next := s.advance(h); s.mode.Tolerant() && next == RSquare {
			s.warnTrailingComma()
			return
		}
		s.parseElement(h)
	}
}

func (s *Stream) warnTrailingComma() {
	s.diags = append(s.diags, Diagnostic{
		Severity:     SevWarning,
		Location:     s.s.Location(),
		Message:      "trailing comma",
		SuggestedFix: string(s.s.Text()),
	})
}

// checkpoint observes the context and reports progress if at least
// CheckpointBytes of input have been consumed since the last checkpoint.
func (s *Stream) checkpoint() {
	off := s.s.Offset()
	if off-s.lastCkpt < s.ckpt {
		return
	}
	s.lastCkpt = off
	if s.ctx != nil {
		if err := s.ctx.Err(); err != nil {
			panic(cancelPanic{fmt.Errorf("%w: %v", ErrCancelled, err)})
		}
	}
	if s.progress != nil {
		s.progress(int64(off), s.total)
	}
}

func (s *Stream) finishProgress() {
	if s.progress != nil {
		s.progress(int64(s.s.Offset()), s.total)
	}
}

func (s *Stream) nextToken(h Handler) error {
	if s.pushed {
		s.pushed = false
		return nil
	}
	for {
		err := s.s.Next()
		if err != nil {
			if _, ok := err.(*LexError); ok && s.mode.Tolerant() {
				// Best-effort recovery: record the damage and resynchronize at
				// the next structural delimiter.
				s.diags = append(s.diags, Diagnostic{
					Severity: SevError,
					Location: s.s.Location(),
					Message:  err.Error(),
				})
				if rerr := s.s.Resync(); rerr != nil {
					return err // nothing to resynchronize to
				}
				s.resynced = true
				s.checkpoint()
				return nil
			}
			return err
		}
		s.checkpoint()

		// If we see a comment token, pass it to the handler if it implements
		// CommentHandler. Either way, discard the comment and fetch the next
		// available token for the rest of the parser.
		if tok := s.s.Token(); tok == LineComment || tok == BlockComment {
			if ch, ok := h.(CommentHandler); ok {
				ch.Comment(s.s)
			}
			continue
		}
		return nil
	}
}

func (s *Stream) advance(h Handler, tokens ...Token) Token {
	if err := s.nextToken(h); err != nil {
		if lex, ok := err.(*LexError); ok {
			panic(lex)
		}
		panic(&ParseError{Location: s.s.Location(), Expected: expLabel(tokens), Found: err.Error(), err: err})
	}
	tok := s.s.Token()
	if len(tokens) != 0 && !tokOneOf(tok, tokens) {
		panic(&ParseError{Location: s.s.Location(), Expected: expLabel(tokens), Found: tok.String()})
	}
	return tok
}

func (s *Stream) require(token Token) {
	if tok := s.s.Token(); tok != token {
		panic(&ParseError{Location: s.s.Location(), Expected: token.String(), Found: tok.String()})
	}
}

func (s *Stream) syntaxError(err error, msg string, args ...any) {
	if lex, ok := err.(*LexError); ok {
		panic(lex)
	}
	panic(&ParseError{
		Location: s.s.Location(),
		Found:    fmt.Sprintf(msg, args...),
		err:      err,
	})
}

func (s *Stream) checkError(err error) {
	if err != nil {
		panic(handlerError{err})
	}
}

type handlerError struct{ error }

func (h handlerError) Unwrap() error { return h.error }

type cancelPanic struct{ error }

// synthAnchor is an Anchor fabricated by the parser for a token that does not
// exist in the input, such as the null placeholder emitted after a
// resynchronization.
type synthAnchor struct {
	tok  Token
	text []byte
	loc  Location
}

func (a synthAnchor) Token() Token       { return a.tok }
func (a synthAnchor) Text() []byte       { return a.text }
func (a synthAnchor) Copy() []byte       { return append([]byte(nil), a.text...) }
func (a synthAnchor) Location() Location { return a.loc }

// expLabel makes a human-readable summary string for the given token types.
func expLabel(tokens []Token) string {
	switch len(tokens) {
	case 0:
		return "a value"
	case 1:
		return tokens[0].String()
	}
	last := len(tokens) - 1
	ss := make([]string, last)
	for i, tok := range tokens[:last] {
		ss[i] = tok.String()
	}
	return strings.Join(ss, ", ") + " or " + tokens[last].String()
}

// tokOneOf reports whether cur is an element of tokens.
func tokOneOf(cur Token, tokens []Token) bool {
	return slices.Contains(tokens, cur)
}
