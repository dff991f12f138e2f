// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package engine_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/edgejson/engine"
	"github.com/google/go-cmp/cmp"
)

func diffStrings(want, got string) string {
	return cmp.Diff(strings.Split(strings.TrimSpace(want), "\n"),
		strings.Split(strings.TrimSpace(got), "\n"))
}

type testHandler struct {
	buf bytes.Buffer
}

func (t *testHandler) pr(msg string, args ...any) {
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	fmt.Fprintf(&t.buf, msg, args...)
}

func (t *testHandler) output() string { return t.buf.String() }

func (t *testHandler) BeginObject(loc engine.Anchor) error { t.pr("BeginObject"); return nil }
func (t *testHandler) EndObject(loc engine.Anchor) error   { t.pr("EndObject"); return nil }
func (t *testHandler) BeginArray(loc engine.Anchor) error  { t.pr("BeginArray"); return nil }
func (t *testHandler) EndArray(loc engine.Anchor) error    { t.pr("EndArray"); return nil }
func (t *testHandler) EndOfInput(loc engine.Anchor)        { t.pr(".") }

func (t *testHandler) BeginMember(loc engine.Anchor) error {
	t.pr("BeginMember <%s>", string(loc.Text()))
	return nil
}

func (t *testHandler) EndMember(loc engine.Anchor) error {
	t.pr("EndMember %v", loc.Token())
	return nil
}

func (t *testHandler) Value(loc engine.Anchor) error {
	t.pr("Value %v <%s>", loc.Token(), string(loc.Text()))
	return nil
}

func (t *testHandler) Comment(loc engine.Anchor) {
	t.pr("Comment <%s>", string(loc.Text()))
}

func TestStream(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "."},
		{"   ", "."},

		{"true false null", `
Value true <true>
Value false <false>
Value null <null>
.`},

		{`{}`, "BeginObject\nEndObject\n."},

		{`{"a":15}`, `
BeginObject
BeginMember <"a">
Value integer <15>
EndMember "}"
EndObject
.`},

		{`{"x":null, "y":[true]}`, `
BeginObject
BeginMember <"x">
Value null <null>
EndMember ","
BeginMember <"y">
BeginArray
Value true <true>
EndArray
EndMember "}"
EndObject
.`},

		{`[]`, "BeginArray\nEndArray\n."},
	}

	for _, test := range tests {
		st := engine.NewStream(strings.NewReader(test.input))
		th := new(testHandler)
		if err := st.Parse(th); err != nil {
			t.Errorf("Parse failed: %v", err)
		}
		if diff := diffStrings(test.want, th.output()); diff != "" {
			t.Errorf("Input: %#q\nOutput: (-want, +got)\n%s", test.input, diff)
		}
	}
}

// Tolerant modes deliver repaired events plus diagnostics: the handler sees
// only strict-JSON token text.
func TestStreamTolerant(t *testing.T) {
	tests := []struct {
		mode     engine.Mode
		input    string
		want     string
		numDiags int
	}{
		{engine.JSONC, `{"a":1,}`, `
BeginObject
BeginMember <"a">
Value integer <1>
EndMember ","
EndObject
.`, 1},

		{engine.JSONC, `[1, 2,]`, `
BeginArray
Value integer <1>
Value integer <2>
EndArray
.`, 1},

		{engine.JSONC, `[1 /*x*/, 2]`, `
BeginArray
Value integer <1>
Comment </*x*/>
Value integer <2>
EndArray
.`, 1},

		{engine.JSON5, `{a: 'b', c: 0x10,}`, `
BeginObject
BeginMember <"a">
Value string <"b">
EndMember ","
BeginMember <"c">
Value integer <16>
EndMember ","
EndObject
.`, 5},

		{engine.JSON5, `[NaN, +2]`, `
BeginArray
Value null <null>
Value integer <2>
EndArray
.`, 2},
	}

	for _, test := range tests {
		st := engine.NewStream(strings.NewReader(test.input))
		st.SetMode(test.mode)
		th := new(testHandler)
		if err := st.Parse(th); err != nil {
			t.Errorf("Parse failed: %v", err)
		}
		if diff := diffStrings(test.want, th.output()); diff != "" {
			t.Errorf("Input: %#q (%v)\nOutput: (-want, +got)\n%s", test.input, test.mode, diff)
		}
		if n := len(st.Diagnostics()); n != test.numDiags {
			t.Errorf("Input: %#q (%v): got %d diagnostics, want %d: %+v",
				test.input, test.mode, n, test.numDiags, st.Diagnostics())
		}
	}
}

func TestStreamErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
		estr  string
	}{
		{`{`, `BeginObject`,
			`at 1:1: expected "}" or string, got EOF`},
		{`}`, ``, `at 1:0: unexpected "}"`},
		{`{false:1}`, `BeginObject`,
			`at 1:1: expected "}" or string, got false`},
		{`{"true":}`, `
BeginObject
BeginMember <"true">`,
			`at 1:8: unexpected "}"`},
		{`[`, `BeginArray`,
			`at 1:1: expected a value, got EOF`},
		{`]`, ``, `at 1:0: unexpected "]"`},
		{`[15,]`, `
BeginArray
Value integer <15>`,
			`at 1:4: unexpected "]"`},
	}

	for _, test := range tests {
		st := engine.NewStream(strings.NewReader(test.input))
		th := new(testHandler)
		err := st.Parse(th)
		if err == nil {
			t.Errorf("Input: %#q: Parse did not report an error", test.input)
			continue
		}
		var perr *engine.ParseError
		if !errors.As(err, &perr) {
			t.Errorf("Input: %#q: got %T, want a *ParseError", test.input, err)
		}
		if diff := diffStrings(test.want, th.output()); diff != "" {
			t.Errorf("Input: %#q\nOutput: (-want, +got)\n%s", test.input, diff)
		}
		if diff := diffStrings(test.estr, err.Error()); diff != "" {
			t.Errorf("Input: %#q\nError: (-want, +got)\n%s", test.input, diff)
		}
	}
}

// After a lexical error in a tolerant mode, the stream resynchronizes at the
// next structural delimiter and reports a placeholder null so the enclosing
// structure stays balanced.
func TestStreamResync(t *testing.T) {
	const input = `[1, @, 3]`
	const want = `
BeginArray
Value integer <1>
Value null <null>
Value integer <3>
EndArray
.`
	st := engine.NewStream(strings.NewReader(input))
	st.SetMode(engine.JSONC)
	th := new(testHandler)
	if err := st.Parse(th); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if diff := diffStrings(want, th.output()); diff != "" {
		t.Errorf("Input: %#q\nOutput: (-want, +got)\n%s", input, diff)
	}

	ds := st.Diagnostics()
	if len(ds) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %+v", len(ds), ds)
	}
	if ds[0].Severity != engine.SevError {
		t.Errorf("diagnostic severity: got %v, want %v", ds[0].Severity, engine.SevError)
	}
}

func TestParseOne(t *testing.T) {
	const input = `{ "ok": true } [] "end"`
	const want = `
BeginObject
BeginMember <"ok">
Value true <true>
EndMember "}"
EndObject
---
BeginArray
EndArray
---
Value string <"end">
---
.`
	th := new(testHandler)

	st := engine.NewStream(strings.NewReader(input))
	for {
		err := st.ParseOne(th)
		if err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("ParseOne failed: %v", err)
		}
		th.pr("---")
	}
	if diff := diffStrings(want, th.output()); diff != "" {
		t.Errorf("Input: %#q\nOutput: (-want, +got)\n%s", input, diff)
	}
}

// A cancelled context surfaces at the next checkpoint as ErrCancelled, and
// the handler receives no further events.
func TestStreamCancellation(t *testing.T) {
	input := "[" + strings.Repeat(`"padding padding padding",`, 500) + "0]"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st := engine.NewStream(strings.NewReader(input))
	st.SetContext(ctx)
	st.SetCheckpointBytes(256)
	err := st.Parse(new(testHandler))
	if !errors.Is(err, engine.ErrCancelled) {
		t.Fatalf("Parse: got %v, want %v", err, engine.ErrCancelled)
	}
}

func TestStreamProgress(t *testing.T) {
	input := "[" + strings.Repeat(`"padding padding padding",`, 500) + "0]"

	var calls int
	var last int64
	st := engine.NewStream(strings.NewReader(input))
	st.SetCheckpointBytes(1024)
	st.SetProgress(func(consumed, total int64) {
		calls++
		if consumed < last {
			t.Errorf("progress went backward: %d after %d", consumed, last)
		}
		if total != int64(len(input)) {
			t.Errorf("progress total: got %d, want %d", total, len(input))
		}
		last = consumed
	}, int64(len(input)))

	if err := st.Parse(new(testHandler)); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if calls < 2 {
		t.Errorf("got %d progress calls, want at least 2", calls)
	}
	if last != int64(len(input)) {
		t.Errorf("final progress: got %d, want %d", last, len(input))
	}
}

type failingHandler struct {
	testHandler
	err error
}

func (f *failingHandler) Value(loc engine.Anchor) error { return f.err }

func TestStreamHandlerError(t *testing.T) {
	sentinel := errors.New("handler says no")
	th := &failingHandler{err: sentinel}

	st := engine.NewStream(strings.NewReader(`[1, 2]`))
	if err := st.Parse(th); !errors.Is(err, sentinel) {
		t.Errorf("Parse: got %v, want %v", err, sentinel)
	}
}
