// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package convert

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/edgejson/engine/ast"
)

// DecodeJWT decodes the header and payload segments of a JSON Web Token into
// a tree with "header" and "payload" members. The signature is not verified.
func DecodeJWT(token string) (*ast.Object, error) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("decode JWT: want header.payload[.signature], got %d segment(s)", len(parts))
	}
	header, err := jwtSegment(parts[0])
	if err != nil {
		return nil, fmt.Errorf("decode JWT header: %w", err)
	}
	payload, err := jwtSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode JWT payload: %w", err)
	}
	return ast.NewObject(
		ast.Field("header", header),
		ast.Field("payload", payload),
	), nil
}

func jwtSegment(seg string) (ast.Value, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(seg, "="))
	if err != nil {
		return nil, err
	}
	v, _, err := ast.ParseString(string(raw), nil)
	return v, err
}

// EncodeBase64 returns the standard base64 encoding of text.
func EncodeBase64(text string) string {
	return base64.StdEncoding.EncodeToString([]byte(text))
}

// DecodeBase64 decodes standard base64 data, which must encode valid UTF-8.
func DecodeBase64(data string) (string, error) {
	dec, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}
	if !utf8.Valid(dec) {
		return "", fmt.Errorf("decode base64: result is not valid UTF-8")
	}
	return string(dec), nil
}

// TimeFromUnix renders a Unix timestamp in seconds as an RFC 3339 string
// in UTC.
func TimeFromUnix(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}

// UnixFromTime parses an RFC 3339 string and reports its Unix timestamp in
// seconds.
func UnixFromTime(s string) (int64, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}

// MD5Hex returns the hex-encoded MD5 digest of text.
func MD5Hex(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// SHA256Hex returns the hex-encoded SHA-256 digest of text.
func SHA256Hex(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
