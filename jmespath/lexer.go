// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package jmespath

import (
	"strings"

	"github.com/edgejson/engine"
)

type tokKind int

const (
	tEOF tokKind = iota
	tIdent
	tQuoted  // "quoted identifier"
	tNumber  // signed integer, used in index and slice positions
	tLiteral // `json literal`
	tRawStr  // 'raw string'
	tDot
	tStar
	tFlatten // []
	tLBracket
	tRBracket
	tLBrace
	tRBrace
	tLParen
	tRParen
	tFilter // [?
	tComma
	tColon
	tPipe
	tOr
	tAnd
	tNot
	tEQ
	tNE
	tLT
	tLE
	tGT
	tGE
	tCurrent // @
	tAmpersand
)

type token struct {
	kind tokKind
	text string
	pos  int
}

func lex(src string) ([]token, error) {
	var toks []token
	fail := func(pos int, reason string) error {
		return &engine.QueryError{Expression: src, Position: pos, Reason: reason}
	}
	emit := func(kind tokKind, text string, pos int) {
		toks = append(toks, token{kind: kind, text: text, pos: pos})
	}

	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isIdentStart(c):
			j := i + 1
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			emit(tIdent, src[i:j], i)
			i = j
		case c >= '0' && c <= '9' || c == '-':
			j := i + 1
			for j < len(src) && src[j] >= '0' && src[j] <= '9' {
				j++
			}
			if j == i+1 && c == '-' {
				return nil, fail(i, "expected a digit after -")
			}
			emit(tNumber, src[i:j], i)
			i = j
		case c == '"':
			end := strings.IndexByte(src[i+1:], '"')
			if end < 0 {
				return nil, fail(i, "unterminated quoted identifier")
			}
			emit(tQuoted, src[i+1:i+1+end], i)
			i += end + 2
		case c == '\'':
			end := strings.IndexByte(src[i+1:], '\'')
			if end < 0 {
				return nil, fail(i, "unterminated raw string")
			}
			emit(tRawStr, src[i+1:i+1+end], i)
			i += end + 2
		case c == '`':
			end := strings.IndexByte(src[i+1:], '`')
			if end < 0 {
				return nil, fail(i, "unterminated literal")
			}
			emit(tLiteral, src[i+1:i+1+end], i)
			i += end + 2
		case c == '.':
			emit(tDot, ".", i)
			i++
		case c == '*':
			emit(tStar, "*", i)
			i++
		case c == '[':
			switch {
			case strings.HasPrefix(src[i:], "[]"):
				emit(tFlatten, "[]", i)
				i += 2
			case strings.HasPrefix(src[i:], "[?"):
				emit(tFilter, "[?", i)
				i += 2
			default:
				emit(tLBracket, "[", i)
				i++
			}
		case c == ']':
			emit(tRBracket, "]", i)
			i++
		case c == '{':
			emit(tLBrace, "{", i)
			i++
		case c == '}':
			emit(tRBrace, "}", i)
			i++
		case c == '(':
			emit(tLParen, "(", i)
			i++
		case c == ')':
			emit(tRParen, ")", i)
			i++
		case c == ',':
			emit(tComma, ",", i)
			i++
		case c == ':':
			emit(tColon, ":", i)
			i++
		case c == '@':
			emit(tCurrent, "@", i)
			i++
		case c == '&':
			if strings.HasPrefix(src[i:], "&&") {
				emit(tAnd, "&&", i)
				i += 2
			} else {
				emit(tAmpersand, "&", i)
				i++
			}
		case c == '|':
			if strings.HasPrefix(src[i:], "||") {
				emit(tOr, "||", i)
				i += 2
			} else {
				emit(tPipe, "|", i)
				i++
			}
		case c == '=':
			if !strings.HasPrefix(src[i:], "==") {
				return nil, fail(i, "expected ==")
			}
			emit(tEQ, "==", i)
			i += 2
		case c == '!':
			if strings.HasPrefix(src[i:], "!=") {
				emit(tNE, "!=", i)
				i += 2
			} else {
				emit(tNot, "!", i)
				i++
			}
		case c == '<':
			if strings.HasPrefix(src[i:], "<=") {
				emit(tLE, "<=", i)
				i += 2
			} else {
				emit(tLT, "<", i)
				i++
			}
		case c == '>':
			if strings.HasPrefix(src[i:], ">=") {
				emit(tGE, ">=", i)
				i += 2
			} else {
				emit(tGT, ">", i)
				i++
			}
		default:
			return nil, fail(i, "unexpected character "+string(c))
		}
	}
	emit(tEOF, "", len(src))
	return toks, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool { return isIdentStart(c) || c >= '0' && c <= '9' }
