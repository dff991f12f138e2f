// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package jmespath_test

import (
	"errors"
	"testing"

	"github.com/edgejson/engine"
	"github.com/edgejson/engine/ast"
	"github.com/edgejson/engine/jmespath"
	"github.com/google/go-cmp/cmp"
)

func parseDoc(t *testing.T, s string) ast.Value {
	t.Helper()
	v, _, err := ast.ParseString(s, nil)
	if err != nil {
		t.Fatalf("parse %#q: %v", s, err)
	}
	return v
}

// evalValues returns the encoded value of each match.
func evalValues(t *testing.T, doc ast.Value, expr string) []string {
	t.Helper()
	ms, err := jmespath.Eval(doc, expr)
	if err != nil {
		t.Fatalf("Eval(%q): unexpected error: %v", expr, err)
	}
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = ast.EncodeString(m.Value, nil)
	}
	return out
}

func TestEvalSelectors(t *testing.T) {
	doc := parseDoc(t, `{
	  "a": {"b": [10, 20], "c": "hello"},
	  "people": [
	    {"name": "bob", "age": 30, "state": "on"},
	    {"name": "ann", "age": 25},
	    {"name": "cam", "age": 35, "state": "off"}
	  ],
	  "nested": [[1, 2], [3], [], [4, [5]]]
	}`)

	tests := []struct {
		expr string
		want []string
	}{
		{`a.c`, []string{`"hello"`}},
		{`a.b[0]`, []string{`10`}},
		{`a.b[-1]`, []string{`20`}},
		{`a."b"`, []string{`[10,20]`}},
		{`@.a.c`, []string{`"hello"`}},
		{`a.b[5]`, nil},
		{`a.missing`, nil},
		{`missing.further`, nil},

		// Projections yield one match per element.
		{`people[*].name`, []string{`"bob"`, `"ann"`, `"cam"`}},
		{`people[1:].name`, []string{`"ann"`, `"cam"`}},
		{`people[::2].name`, []string{`"bob"`, `"cam"`}},
		{`people[::-1].name`, []string{`"cam"`, `"ann"`, `"bob"`}},
		{`a.*`, []string{`[10,20]`, `"hello"`}},
		{`people[*].state`, []string{`"on"`, `"off"`}}, // missing fields drop out
		{`nested[]`, []string{`1`, `2`, `3`, `4`, `[5]`}},

		// Filters.
		{`people[?age > ` + "`28`" + `].name`, []string{`"bob"`, `"cam"`}},
		{`people[?name == 'ann'].age`, []string{`25`}},
		{`people[?state].name`, []string{`"bob"`, `"cam"`}},

		// Pipes collapse projections.
		{`people[*].name | [0]`, []string{`"bob"`}},
		{`people[?age > ` + "`28`" + `] | length(@)`, []string{`2`}},

		// Multi-selects synthesize values.
		{`a.{first: b[0], text: c}`, []string{`{"first":10,"text":"hello"}`}},
		{`a.[c, b[1]]`, []string{`["hello",20]`}},
		{`people[*].[name, age]`, []string{`["bob",30]`, `["ann",25]`, `["cam",35]`}},

		// Boolean operators return operand values.
		{`a.missing || a.c`, []string{`"hello"`}},
		{`a.c && a.b`, []string{`[10,20]`}},
		{`!(a.missing)`, []string{`true`}},
		{`!(a.c)`, []string{`false`}},
	}
	for _, tc := range tests {
		if diff := cmp.Diff(tc.want, evalValues(t, doc, tc.expr)); diff != "" {
			t.Errorf("Eval(%q) (-want, +got):\n%s", tc.expr, diff)
		}
	}
}

func TestEvalFunctions(t *testing.T) {
	doc := parseDoc(t, `{
	  "strs": ["b", "a", "c"],
	  "nums": [3, 1, 2],
	  "obj": {"x": 1, "y": 2}
	}`)

	tests := []struct {
		expr string
		want []string
	}{
		{`length(strs)`, []string{`3`}},
		{`length(obj)`, []string{`2`}},
		{`length('hello')`, []string{`5`}},
		{`keys(obj)`, []string{`["x","y"]`}},
		{`values(obj)`, []string{`[1,2]`}},
		{`type(nums)`, []string{`"array"`}},
		{`type(obj.x)`, []string{`"number"`}},
		{`type(` + "`null`" + `)`, []string{`"null"`}},
		{`sort(strs)`, []string{`["a","b","c"]`}},
		{`sort(nums)`, []string{`[1,2,3]`}},
		{`contains(strs, 'a')`, []string{`true`}},
		{`contains(strs, 'z')`, []string{`false`}},
		{`contains('hello', 'ell')`, []string{`true`}},
		{`min(nums)`, []string{`1`}},
		{`max(nums)`, []string{`3`}},
		{`sum(nums)`, []string{`6`}},
		{`avg(nums)`, []string{`2`}},
		{`reverse(strs)`, []string{`["c","a","b"]`}},
		{`reverse('abc')`, []string{`"cba"`}},
		{`join(', ', strs)`, []string{`"b, a, c"`}},
		{`to_string(nums)`, []string{`"[3,1,2]"`}},
		{`to_number('2.5')`, []string{`2.5`}},
		{`not_null(obj.z, obj.x)`, []string{`1`}},
		{`starts_with('hello', 'he')`, []string{`true`}},
		{`ends_with('hello', 'x')`, []string{`false`}},
		{`merge(obj, {y: ` + "`9`" + `})`, []string{`{"x":1,"y":9}`}},
		{`abs(` + "`-3`" + `)`, []string{`3`}},
		{`ceil(` + "`1.2`" + `)`, []string{`2`}},
		{`floor(` + "`1.8`" + `)`, []string{`1`}},
	}
	for _, tc := range tests {
		if diff := cmp.Diff(tc.want, evalValues(t, doc, tc.expr)); diff != "" {
			t.Errorf("Eval(%q) (-want, +got):\n%s", tc.expr, diff)
		}
	}

	// Type errors surface as evaluation errors.
	for _, expr := range []string{`length(obj.x)`, `sort(obj)`, `join(nums, strs)`, `min(` + "`[1,\"a\"]`" + `)`} {
		if got, err := jmespath.Eval(doc, expr); err == nil {
			t.Errorf("Eval(%q): got %v, want error", expr, got)
		}
	}
}

func TestMatchPaths(t *testing.T) {
	doc := parseDoc(t, `{"a":{"b":[10,20]}}`)

	ms, err := jmespath.Eval(doc, `a.b[-1]`)
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 1 {
		t.Fatalf("got %d matches, want 1", len(ms))
	}
	m := ms[0]
	if got := ast.EncodeString(m.Value, nil); got != "20" {
		t.Errorf("value: got %s, want 20", got)
	}
	if want := (ast.Path{ast.Key("a"), ast.Key("b"), ast.Index(1)}); !m.Path.Equal(want) {
		t.Errorf("path: got %q, want %q", m.Path, want)
	}
	if at, err := ast.At(doc, m.Path); err != nil || at != m.Value {
		t.Errorf("match value is not a reference into the source tree (err=%v)", err)
	}

	// Projected matches keep their source paths too.
	ms, err = jmespath.Eval(doc, `a.b[*]`)
	if err != nil {
		t.Fatal(err)
	}
	var paths []string
	for _, m := range ms {
		paths = append(paths, m.Path.String())
	}
	if diff := cmp.Diff([]string{"/a/b/0", "/a/b/1"}, paths); diff != "" {
		t.Errorf("projection paths (-want, +got):\n%s", diff)
	}

	// Synthesized values carry no path.
	ms, err = jmespath.Eval(doc, `a.{x: b}`)
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 1 || ms[0].Path != nil {
		t.Errorf("synthesized match: got %+v, want nil path", ms)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		expr string
		pos  int
	}{
		{``, 0},
		{`a.`, 2},
		{`a..b`, 2},
		{`a[`, 2},
		{`a[]x`, 3},
		{`a[1`, 3},
		{`a[1:2:0]`, 7},
		{`a | | b`, 4},
		{`a.{x b}`, 5},
		{`bogus_fn(a)`, 0},
		{`'unterminated`, 0},
		{`a = b`, 2},
		{`a[?]`, 3},
	}
	for _, tc := range tests {
		e, err := jmespath.Parse(tc.expr)
		if err == nil {
			t.Errorf("Parse(%q): got %v, want error", tc.expr, e)
			continue
		}
		var qe *engine.QueryError
		if !errors.As(err, &qe) {
			t.Errorf("Parse(%q): got %v, want *engine.QueryError", tc.expr, err)
			continue
		}
		if qe.Expression != tc.expr {
			t.Errorf("Parse(%q): error expression %q", tc.expr, qe.Expression)
		}
		if qe.Position != tc.pos {
			t.Errorf("Parse(%q): error position %d, want %d", tc.expr, qe.Position, tc.pos)
		}
	}
}

func TestExprReuse(t *testing.T) {
	e, err := jmespath.Parse(`people[*].name`)
	if err != nil {
		t.Fatal(err)
	}
	if got := e.String(); got != `people[*].name` {
		t.Errorf("String: got %q", got)
	}
	doc := parseDoc(t, `{"people":[{"name":"x"},{"name":"y"}]}`)
	for range 2 {
		ms, err := e.Eval(doc)
		if err != nil {
			t.Fatal(err)
		}
		if len(ms) != 2 {
			t.Errorf("got %d matches, want 2", len(ms))
		}
	}
}
