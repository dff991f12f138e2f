// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package engine

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"go4.org/mem"
)

// Mode selects the input dialect accepted by a Scanner or Stream.
type Mode int

const (
	// Strict accepts only RFC 8259 JSON. Any deviation is a fatal error.
	Strict Mode = iota

	// JSONC additionally accepts // and /* */ comments and trailing commas.
	JSONC

	// JSON5 is a superset of JSONC: unquoted object keys, single-quoted
	// strings, leading "+" on numbers, hexadecimal integers, NaN and
	// Infinity, and numbers with a leading or trailing decimal point.
	JSON5
)

var modeStr = [...]string{Strict: "strict", JSONC: "jsonc", JSON5: "json5"}

func (m Mode) String() string {
	if int(m) < len(modeStr) {
		return modeStr[m]
	}
	return "unknown"
}

// Tolerant reports whether the mode repairs recognized deviations instead of
// failing on them.
func (m Mode) Tolerant() bool { return m != Strict }

// Token is the type of a lexical token in the JSON grammar.
type Token byte

// Constants defining the valid Token values.
const (
	Invalid Token = iota // invalid token
	LBrace               // left brace "{"
	RBrace               // right brace "}"
	LSquare              // left square bracket "["
	RSquare              // right square bracket "]"
	Comma                // comma ","
	Colon                // colon ":"
	Integer              // number: integer with no fraction or exponent
	Number               // number with fraction and/or exponent
	String               // quoted string
	True                 // constant: true
	False                // constant: false
	Null                 // constant: null

	BlockComment // comment: /* ... */
	LineComment  // comment: // ... <LF>
)

var tokenStr = [...]string{
	Invalid: "invalid token",
	LBrace:  `"{"`,
	RBrace:  `"}"`,
	LSquare: `"["`,
	RSquare: `"]"`,
	Comma:   `","`,
	Colon:   `":"`,
	Integer: "integer",
	Number:  "number",
	String:  "string",
	True:    "true",
	False:   "false",
	Null:    "null",

	BlockComment: "block comment",
	LineComment:  "line comment",
}

func (t Token) String() string {
	v := int(t)
	if v > len(tokenStr) {
		return tokenStr[Invalid]
	}
	return tokenStr[v]
}

// A Scanner reads lexical tokens from an input stream.  Each call to Next
// advances the scanner to the next token, or reports an error.
//
// In a tolerant mode the scanner repairs recognized deviations in place: the
// token it reports is the strict-JSON equivalent of what it consumed, and a
// Warning diagnostic with a suggested fix is recorded for each repair.
type Scanner struct {
	r     *bufio.Reader
	mode  Mode
	buf   bytes.Buffer // current token, normalized to strict JSON
	tbuf  [][]byte     // allocation pool
	tok   Token
	err   error
	diags []Diagnostic

	pos, end int // start and end offsets of current token
	last     int // size in bytes of last-read input rune

	// Apparent line and column offsets (0-based)
	pline, pcol  int
	eline, ecol  int
	uline, ucol  int // saved offsets for a one-rune unread
}

// NewScanner constructs a new lexical scanner that consumes input from r.
// The scanner is in Strict mode unless changed with SetMode.
func NewScanner(r io.Reader) *Scanner {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Scanner{r: br}
}

// SetMode configures the input dialect accepted by s.
func (s *Scanner) SetMode(m Mode) { s.mode = m }

// Mode reports the input dialect accepted by s.
func (s *Scanner) Mode() Mode { return s.mode }

// Diagnostics returns the diagnostics recorded so far, in input order.
func (s *Scanner) Diagnostics() []Diagnostic { return s.diags }

// Next advances s to the next token of the input, or reports an error.
// At the end of the input, Next returns io.EOF. Lexical errors have concrete
// type *LexError.
func (s *Scanner) Next() error {
	s.buf.Reset()
	s.err = nil
	s.tok = Invalid
	s.pos, s.pline, s.pcol = s.end, s.eline, s.ecol

	for {
		ch, err := s.rune()
		if err == io.EOF {
			return s.setErr(err)
		} else if err != nil {
			return s.fail(err)
		}

		// Discard whitespace.
		if isSpace(ch) {
			s.pos, s.pline, s.pcol = s.end, s.eline, s.ecol
			continue
		}

		// Handle punctuation.
		if t, ok := selfDelim(ch); ok {
			s.buf.WriteRune(ch)
			s.tok = t
			return nil
		}

		// Handle numbers.
		if isNumStart(ch) || (s.mode == JSON5 && (ch == '+' || ch == '.')) {
			return s.scanNumber(ch)
		}

		// Handle string values.
		if ch == '"' {
			return s.scanString(ch)
		}
		if ch == '\'' && s.mode == JSON5 {
			err := s.scanString(ch)
			if err == nil {
				s.warn("single-quoted string", s.buf.String())
			}
			return err
		}

		// Handle comments, if the mode permits them.
		if ch == '/' && s.mode.Tolerant() {
			err := s.scanComment(ch)
			if err == nil {
				s.warn("comment is not valid JSON", "")
			}
			return err
		}

		// Handle names: the strict constants true, false and null, and in
		// JSON5 mode also NaN, Infinity, and unquoted object keys.
		if isNameStart(ch) {
			return s.scanBareName(ch)
		}
		return s.failf("unexpected %q", ch)
	}
}

// Token returns the type of the current token.
func (s *Scanner) Token() Token { return s.tok }

// Err returns the last error reported by Next.
func (s *Scanner) Err() error { return s.err }

// Text returns the undecoded text of the current token.  The return value is
// only valid until the next call of Next. The caller must copy the contents of
// the returned slice if it is needed beyond that.
func (s *Scanner) Text() []byte { return s.buf.Bytes() }

// Copy returns a copy of the undecoded text of the current token.
func (s *Scanner) Copy() []byte { return s.copyOf(s.buf.Bytes()) }

// Span returns the location span of the current token.
func (s *Scanner) Span() Span { return Span{Pos: s.pos, End: s.end} }

// Offset reports the number of input bytes consumed so far.
func (s *Scanner) Offset() int { return s.end }

// Location returns the complete location of the current token.
func (s *Scanner) Location() Location {
	return Location{
		Span:  s.Span(),
		First: LineCol{Line: s.pline + 1, Column: s.pcol},
		Last:  LineCol{Line: s.eline + 1, Column: s.ecol},
	}
}

// Resync discards input until a structural delimiter ("," "}" "]") is found,
// and reports that delimiter as the current token. It is used by the stream
// parser to continue a best-effort parse after a lexical error in a tolerant
// mode. At end of input Resync returns io.EOF.
func (s *Scanner) Resync() error {
	s.buf.Reset()
	s.err = nil
	s.tok = Invalid
	for {
		ch, err := s.rune()
		if err == io.EOF {
			return s.setErr(err)
		} else if err != nil {
			return s.fail(err)
		}
		switch ch {
		case ',', '}', ']':
			s.pos, s.pline, s.pcol = s.end-1, s.eline, s.ecol-1
			t, _ := selfDelim(ch)
			s.buf.WriteRune(ch)
			s.tok = t
			return nil
		}
	}
}

// warn records a Warning diagnostic for a repaired deviation spanning the
// current token.
func (s *Scanner) warn(msg, fix string) {
	s.diags = append(s.diags, Diagnostic{
		Severity:     SevWarning,
		Location:     s.Location(),
		Message:      msg,
		SuggestedFix: fix,
	})
}

// scanString scans a string delimited by open, which is '"' for JSON strings
// and '\'' for JSON5 single-quoted strings. The token text is normalized to
// use double quotation marks regardless of the delimiter.
func (s *Scanner) scanString(open rune) error {
	s.buf.WriteByte('"')
	var esc bool
	for {
		ch, err := s.rune()
		if err != nil {
			return s.fail(err)
		} else if ch == open && !esc {
			s.buf.WriteByte('"')
			s.tok = String
			return nil
		}
		if esc {
			// We are awaiting the completion of a \-escape.
			switch ch {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
				s.buf.WriteByte(byte(ch))
			case 'u':
				s.buf.WriteByte(byte(ch))
				if err := s.readHex4(); err != nil {
					return s.failf("invalid Unicode escape: %w", err)
				}
			case '\'':
				if open != '\'' {
					return s.failf("invalid %q after escape", ch)
				}
				// \' inside a single-quoted string: unescape it.
				s.buf.Truncate(s.buf.Len() - 1)
				s.buf.WriteByte('\'')
			default:
				return s.failf("invalid %q after escape", ch)
			}
			esc = false
		} else if ch < ' ' {
			return s.failf("unescaped control %q", ch)
		} else if ch > unicode.MaxRune {
			return s.failf("invalid Unicode rune %q", ch)
		} else if ch == '"' && open == '\'' {
			// A bare double quote inside a single-quoted string must be
			// escaped in the normalized form.
			s.buf.WriteString(`\"`)
		} else {
			s.buf.WriteRune(ch)
			esc = ch == '\\'
		}
	}
}

func (s *Scanner) scanNumber(start rune) error {
	if start == '+' {
		// JSON5 leading "+": drop it from the normalized token.
		ch, err := s.require(isNumStart5, "digit")
		if err != nil {
			return err
		}
		defer func() {
			if s.err == nil {
				s.warn("number has a leading \"+\"", s.buf.String())
			}
		}()
		start = ch
	}
	if start == '.' {
		// JSON5 leading decimal point: normalize ".5" to "0.5".
		return s.scanFraction("0")
	}
	s.buf.WriteRune(start)

	if start == '-' {
		// If there is a leading sign, we need at least one digit.
		// Otherwise, we already have one in start.
		first := isDigit
		if s.mode == JSON5 {
			first = isNumStart5
		}
		ch, err := s.require(first, "digit")
		if err != nil {
			return err
		}
		if ch == 'I' || ch == 'N' {
			return s.scanNonFinite(ch, true)
		}
		if ch == '.' {
			s.buf.WriteByte('0')
			return s.scanFraction(s.buf.String())
		}
		s.buf.WriteRune(ch)
	}

	// JSON5 hexadecimal: 0x1F and -0x1F.
	if last := s.buf.Bytes()[s.buf.Len()-1]; last == '0' && s.mode == JSON5 {
		ch, err := s.rune()
		if err == nil && (ch == 'x' || ch == 'X') {
			return s.scanHex()
		}
		if err == nil {
			s.unrune()
		} else if err != io.EOF {
			return s.fail(err)
		}
	}

	// Consume the remainder of an integer.
	_, ch, err := s.readWhile(isDigit)
	if err != nil {
		if err == io.EOF {
			s.tok = Integer
			return nil
		}
		return err
	}

	// Check for extra leading zeroes, which are disallowed by the JSON spec.
	// That is: 0.12 is OK, 01.2 is not.
	if hasExtraLeadingZeroes(s.buf.Bytes()) {
		return s.failf("extra leading zeroes")
	}

	// If a decimal point follows, consume a fractional part.
	var isFloat bool
	if ch == '.' {
		s.buf.WriteRune(ch)
		var nr int
		nr, ch, err = s.readWhile(isDigit)
		if err != nil && err != io.EOF {
			return s.fail(err)
		} else if nr == 0 {
			if s.mode == JSON5 {
				// JSON5 trailing decimal point: normalize "5." to "5.0".
				s.buf.WriteByte('0')
				s.warn("number has a trailing decimal point", s.buf.String())
			} else {
				return s.failf("no digits after decimal point")
			}
		}
		s.tok = Number
		isFloat = true
		if err == io.EOF {
			return nil
		}
	}

	// If an exponent follows, consume it.
	if ch != 'E' && ch != 'e' {
		s.unrune()
		if isFloat {
			s.tok = Number
		} else {
			s.tok = Integer
		}
		return nil
	}
	return s.scanExponent(ch)
}

// scanFraction continues a number whose text so far is prefix and whose next
// input is the fractional digits after a decimal point that has already been
// consumed. It is used for the JSON5 leading-decimal-point form.
func (s *Scanner) scanFraction(prefix string) error {
	s.buf.Reset()
	s.buf.WriteString(prefix)
	s.buf.WriteByte('.')
	nr, ch, err := s.readWhile(isDigit)
	if nr == 0 {
		return s.failf("no digits after decimal point")
	}
	s.tok = Number
	if err == io.EOF {
		s.warn("number has a leading decimal point", s.buf.String())
		return nil
	} else if err != nil {
		return s.fail(err)
	}
	if ch == 'E' || ch == 'e' {
		if err := s.scanExponent(ch); err != nil {
			return err
		}
	} else {
		s.unrune()
	}
	s.warn("number has a leading decimal point", s.buf.String())
	return nil
}

func (s *Scanner) scanExponent(ch rune) error {
	s.buf.WriteRune(ch)
	ch, err := s.require(isExpStart, "sign or digit")
	if err != nil {
		return err
	}
	s.buf.WriteRune(ch)
	nr, _, err := s.readWhile(isDigit)
	if nr == 0 && (ch == '-' || ch == '+') {
		// It's OK to have no digits if the previous rune was not a sign,
		// otherwise we have to have at least one.
		return s.failf("missing exponent digits")
	} else if err == io.EOF {
		s.tok = Number
		return nil
	} else if err != nil {
		return s.fail(err)
	}
	s.unrune()
	s.tok = Number
	return nil
}

// scanHex consumes the digits of a JSON5 hexadecimal integer whose "0x"
// prefix has already been seen, and normalizes the token to decimal.
func (s *Scanner) scanHex() error {
	neg := s.buf.Bytes()[0] == '-'
	s.buf.Reset()
	var hex bytes.Buffer
	nr, _, err := s.readWhileInto(&hex, isHexDigit)
	if nr == 0 {
		return s.failf("no digits in hexadecimal number")
	} else if err != nil && err != io.EOF {
		return s.fail(err)
	}
	if err == nil {
		s.unrune()
	}
	v, perr := strconv.ParseUint(hex.String(), 16, 64)
	if perr != nil {
		return s.failf("invalid hexadecimal number: %v", perr)
	}
	if neg {
		s.buf.WriteByte('-')
	}
	s.buf.WriteString(strconv.FormatUint(v, 10))
	s.tok = Integer
	s.warn("hexadecimal number is not valid JSON", s.buf.String())
	return nil
}

// scanNonFinite consumes a JSON5 NaN or Infinity constant, whose first letter
// is first. Neither has a JSON representation, so the token is repaired to
// null and a diagnostic recorded.
func (s *Scanner) scanNonFinite(first rune, neg bool) error {
	var want mem.RO
	if first == 'N' {
		want = mem.S("NaN")
	} else {
		want = mem.S("Infinity")
	}
	s.buf.Reset()
	s.buf.WriteRune(first)
	if _, _, err := s.readWhile(isLetter); err != nil && err != io.EOF {
		return s.fail(err)
	} else if err == nil {
		s.unrune()
	}
	if got := mem.B(s.buf.Bytes()); !got.Equal(want) {
		return s.failf("unknown constant %q", got.StringCopy())
	}
	name := s.buf.String()
	if neg {
		name = "-" + name
	}
	s.buf.Reset()
	s.buf.WriteString("null")
	s.tok = Null
	s.warn(fmt.Sprintf("%s is not valid JSON", name), "null")
	return nil
}

// scanBareName consumes a run of identifier characters starting with first.
// The strict constants true, false, and null become their own tokens. In
// JSON5 mode, NaN and Infinity are repaired to null, and any other name is
// treated as an unquoted object key and repaired to a quoted string.
func (s *Scanner) scanBareName(first rune) error {
	s.buf.WriteRune(first)
	if _, _, err := s.readWhile(isNameRune); err != nil && err != io.EOF {
		return s.fail(err)
	} else if err == nil {
		s.unrune()
	}

	name := s.buf.String()
	switch name {
	case "true":
		s.tok = True
		return nil
	case "false":
		s.tok = False
		return nil
	case "null":
		s.tok = Null
		return nil
	}
	if s.mode != JSON5 {
		return s.failf("unknown constant %q", name)
	}
	switch name {
	case "NaN", "Infinity":
		s.buf.Reset()
		s.buf.WriteString("null")
		s.tok = Null
		s.warn(fmt.Sprintf("%s is not valid JSON", name), "null")
		return nil
	}
	s.buf.Reset()
	s.buf.WriteByte('"')
	s.buf.WriteString(name)
	s.buf.WriteByte('"')
	s.tok = String
	s.warn(fmt.Sprintf("unquoted key %q", name), s.buf.String())
	return nil
}

func (s *Scanner) scanComment(first rune) error {
	s.buf.WriteRune(first)
	ch, err := s.rune()
	if err != nil {
		return err
	}
	switch ch {
	case '/': // line comment to LF
		s.buf.WriteRune(ch)
		_, end, err := s.readWhile(isNotLF)
		if err == nil {
			s.buf.WriteRune(end)
		} else if err != io.EOF {
			return err
		}
		s.tok = LineComment
		return nil

	case '*': // block comment
		s.buf.WriteRune(ch)
		for {
			_, end, err := s.readWhile(isNotStar)
			if err != nil {
				return err
			}
			s.buf.WriteRune(end) // end == '*'

			// Check whether we have "*/", which would end the comment.
			next, err := s.rune()
			if err != nil {
				return err
			}
			s.buf.WriteRune(next)
			if next == '/' {
				s.tok = BlockComment
				return nil
			}

			// We saw "*" but not "/", so keep scanning for the end of the block.
		}

	default:
		s.unrune()
		return s.failf("invalid %q in comment", ch)
	}
}

func (s *Scanner) rune() (rune, error) {
	ch, nb, err := s.r.ReadRune()
	s.last = nb
	s.end += nb
	s.uline, s.ucol = s.eline, s.ecol
	if ch == '\n' {
		s.eline++
		s.ecol = 0
	} else {
		s.ecol += nb
	}
	return ch, err
}

func (s *Scanner) unrune() {
	s.end -= s.last
	s.eline, s.ecol = s.uline, s.ucol
	s.last = 0
	s.r.UnreadRune()
}

// require reads a single rune matching f from the input, or returns an error
// mentioning the desired label.
func (s *Scanner) require(f func(rune) bool, label string) (rune, error) {
	ch, err := s.rune()
	if err != nil {
		return 0, s.failf("want %s, got error: %w", label, err)
	} else if !f(ch) {
		s.unrune()
		return 0, s.failf("got %q, want %s", ch, label)
	}
	return ch, nil
}

// readWhile consumes runes matching f from the input until EOF or until a rune
// not matching f is found. The first non-matching rune (if any) is returned.
// It is the caller's responsibility to unread this rune, if desired.
// The int reports the number of runes consumed.
func (s *Scanner) readWhile(f func(rune) bool) (int, rune, error) {
	return s.readWhileInto(&s.buf, f)
}

func (s *Scanner) readWhileInto(buf *bytes.Buffer, f func(rune) bool) (int, rune, error) {
	var nr int
	for {
		ch, err := s.rune()
		if err != nil {
			return nr, 0, err
		} else if !f(ch) {
			return nr, ch, nil
		}
		buf.WriteRune(ch)
		nr++
	}
}

// readHex4 reads exactly 4 hexadecimal digits from the input.
func (s *Scanner) readHex4() error {
	for i := 0; i < 4; i++ {
		ch, err := s.rune()
		if err != nil {
			return err
		} else if !isHexDigit(ch) {
			return fmt.Errorf("not a hex digit: %q", ch)
		}
		s.buf.WriteRune(ch)
	}
	return nil
}

func (s *Scanner) setErr(err error) error {
	s.err = err
	return err
}

func (s *Scanner) fail(err error) error {
	return s.setErr(&LexError{Location: s.Location(), Msg: err.Error(), err: err})
}

func (s *Scanner) failf(msg string, args ...any) error {
	return s.fail(fmt.Errorf(msg, args...))
}

func isSpace(ch rune) bool {
	return ch == ' ' || ch == '\r' || ch == '\n' || ch == '\t'
}

func isNotStar(ch rune) bool   { return ch != '*' }
func isNotLF(ch rune) bool     { return ch != '\n' }
func isNumStart(ch rune) bool  { return ch == '-' || isDigit(ch) }
func isNumStart5(ch rune) bool { return isNumStart(ch) || ch == '.' || ch == 'I' || ch == 'N' }
func isExpStart(ch rune) bool  { return ch == '-' || ch == '+' || isDigit(ch) }
func isDigit(ch rune) bool     { return '0' <= ch && ch <= '9' }
func isLetter(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
func isNameStart(ch rune) bool { return isLetter(ch) || ch == '_' || ch == '$' }
func isNameRune(ch rune) bool  { return isNameStart(ch) || isDigit(ch) }

func isHexDigit(ch rune) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

// hasExtraLeadingZeroes reports whether the representation of an integer in
// buf has redundant leading zeroes, disallowed by RFC 8259.
//
// OK: 0, 0.1, -1.0, -0.1 are all OK.
// Bad: -01, 01.2, -01.0, 00.1.
func hasExtraLeadingZeroes(buf []byte) bool {
	if buf[0] == '-' {
		buf = buf[1:] // skip leading sign
	}
	if buf[0] == '0' {
		// A leading zero is OK if it's the only digit.
		return len(buf) > 1
	}
	return false
}

var self = [...]Token{LBrace, RBrace, LSquare, RSquare, Comma, Colon}

func selfDelim(ch rune) (Token, bool) {
	i := strings.IndexRune("{}[],:", ch)
	if i >= 0 {
		return self[i], true
	}
	return Invalid, false
}

func (s *Scanner) copyOf(text []byte) []byte {
	const minBlockSlop = 4
	const smallSizeFraction = 16
	const bufBlockBytes = 16384

	// For values bigger than smallSizeFraction of the block size, don't bother
	// batching, make an outright copy.
	if len(text) >= bufBlockBytes/smallSizeFraction {
		return append([]byte(nil), text...)
	}

	// Look for a block with space enough to hold a copy of text.
	i := 0
	for i < len(s.tbuf) {
		if n := len(s.tbuf[i]) + len(text); n < cap(s.tbuf[i]) {
			// There is room in this block.
			break
		} else if cap(s.tbuf[i])-len(text) < minBlockSlop {
			// There is no room in this block, but it is nearly-enough full.
			// Allocate a fresh block at this location and release the old one.
			// The old block will be retained until all its tokens are released.
			s.tbuf[i] = make([]byte, 0, bufBlockBytes)
			break
		}
		i++
	}
	if i == len(s.tbuf) {
		// No block had room; add a new empty one to the arena.
		s.tbuf = append(s.tbuf, make([]byte, 0, bufBlockBytes))
	}
	p := len(s.tbuf[i])
	s.tbuf[i] = append(s.tbuf[i], text...)
	return s.tbuf[i][p : p+len(text)]
}
