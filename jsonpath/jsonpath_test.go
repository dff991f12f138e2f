// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package jsonpath_test

import (
	"errors"
	"testing"

	"github.com/edgejson/engine"
	"github.com/edgejson/engine/ast"
	"github.com/edgejson/engine/jsonpath"
	"github.com/google/go-cmp/cmp"
)

// The classic bookstore document from the JSONPath draft.
const storeText = `{
  "store": {
    "book": [
      {"category": "reference", "author": "Nigel Rees", "title": "Sayings of the Century", "price": 8.95},
      {"category": "fiction", "author": "Evelyn Waugh", "title": "Sword of Honour", "price": 12.99},
      {"category": "fiction", "author": "Herman Melville", "title": "Moby Dick", "isbn": "0-553-21311-3", "price": 8.99},
      {"category": "fiction", "author": "J. R. R. Tolkien", "title": "The Lord of the Rings", "isbn": "0-395-19395-8", "price": 22.99}
    ],
    "bicycle": {"color": "red", "price": 19.95}
  }
}`

func storeDoc(t *testing.T) ast.Value {
	t.Helper()
	v, _, err := ast.ParseString(storeText, nil)
	if err != nil {
		t.Fatalf("parse store document: %v", err)
	}
	return v
}

func evalStrings(t *testing.T, root ast.Value, expr string) (paths, values []string) {
	t.Helper()
	ms, err := jsonpath.Eval(root, expr)
	if err != nil {
		t.Fatalf("Eval(%q): unexpected error: %v", expr, err)
	}
	for _, m := range ms {
		paths = append(paths, m.Path.String())
		values = append(values, ast.EncodeString(m.Value, nil))
	}
	return
}

func TestEval(t *testing.T) {
	doc := storeDoc(t)
	tests := []struct {
		expr  string
		paths []string
	}{
		{"$", []string{""}},
		{"$.store.bicycle.color", []string{"/store/bicycle/color"}},
		{"$.store.book[2].title", []string{"/store/book/2/title"}},
		{"$.store.book[-1].title", []string{"/store/book/3/title"}},
		{"$['store']['bicycle']['color']", []string{"/store/bicycle/color"}},
		{"$.store.book[0,2].price", []string{"/store/book/0/price", "/store/book/2/price"}},
		{"$.store.book[:2].author", []string{"/store/book/0/author", "/store/book/1/author"}},
		{"$.store.book[-1:].author", []string{"/store/book/3/author"}},
		{"$.store.book[1:3].price", []string{"/store/book/1/price", "/store/book/2/price"}},
		{"$.store.book[::2].category", []string{"/store/book/0/category", "/store/book/2/category"}},
		{"$.store.*", []string{"/store/book", "/store/bicycle"}},
		{"$.store.book[*].isbn", []string{"/store/book/2/isbn", "/store/book/3/isbn"}},
		{"$..author", []string{
			"/store/book/0/author", "/store/book/1/author",
			"/store/book/2/author", "/store/book/3/author",
		}},
		{"$..price", []string{
			"/store/book/0/price", "/store/book/1/price",
			"/store/book/2/price", "/store/book/3/price",
			"/store/bicycle/price",
		}},
		{"$..book[2].title", []string{"/store/book/2/title"}},
		{"$.store.book[?(@.isbn)].title", []string{"/store/book/2/title", "/store/book/3/title"}},
		{"$.store.book[?(@.price < 10)].title", []string{"/store/book/0/title", "/store/book/2/title"}},
		{`$.store.book[?(@.category == "fiction" && @.price > 20)].title`, []string{"/store/book/3/title"}},
		{"$.store.book[(@.length-1)].title", []string{"/store/book/3/title"}},
		{"$.store.missing", nil},
		{"$.store.book[99]", nil},
	}
	for _, tc := range tests {
		paths, _ := evalStrings(t, doc, tc.expr)
		if diff := cmp.Diff(tc.paths, paths); diff != "" {
			t.Errorf("Eval(%q) paths (-want, +got):\n%s", tc.expr, diff)
		}
	}
}

func TestEvalLengthMember(t *testing.T) {
	// A member whose name merely begins with "length" is an ordinary member,
	// not the conventional length term.
	v, _, err := ast.ParseString(`[{"lengthy":1},{"lengthy":5},{"lengthy":9}]`, nil)
	if err != nil {
		t.Fatal(err)
	}
	paths, _ := evalStrings(t, v, "$[?(@.lengthy > 2)]")
	if diff := cmp.Diff([]string{"/1", "/2"}, paths); diff != "" {
		t.Errorf("filter paths (-want, +got):\n%s", diff)
	}
	paths, _ = evalStrings(t, v, "$[(@.length-3)].lengthy")
	if diff := cmp.Diff([]string{"/0/lengthy"}, paths); diff != "" {
		t.Errorf("script paths (-want, +got):\n%s", diff)
	}
}

func TestEvalValues(t *testing.T) {
	v, _, err := ast.ParseString(`{"a":{"b":[10,20]}}`, nil)
	if err != nil {
		t.Fatal(err)
	}
	ms, err := jsonpath.Eval(v, "$.a.b[0]")
	if err != nil {
		t.Fatalf("Eval: unexpected error: %v", err)
	}
	if len(ms) != 1 {
		t.Fatalf("got %d matches, want 1", len(ms))
	}
	m := ms[0]
	if want := (ast.Path{ast.Key("a"), ast.Key("b"), ast.Index(0)}); !m.Path.Equal(want) {
		t.Errorf("path: got %q, want %q", m.Path, want)
	}
	if got := ast.EncodeString(m.Value, nil); got != "10" {
		t.Errorf("value: got %s, want 10", got)
	}

	// Matched values reference the source tree.
	at, err := ast.At(v, m.Path)
	if err != nil {
		t.Fatalf("At(%q): %v", m.Path, err)
	}
	if at != m.Value {
		t.Error("match value is not a reference into the source tree")
	}
}

func TestMatchContext(t *testing.T) {
	doc := storeDoc(t)
	ms, err := jsonpath.Eval(doc, "$.store.book[?(@.isbn)]")
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range ms {
		if got, want := m.Context, "[?(@.isbn)]"; got != want {
			t.Errorf("context: got %q, want %q", got, want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		expr string
		pos  int
	}{
		{"", 0},
		{"store.book", 0},        // missing root marker
		{"$.", 2},                // missing name
		{"$.store.", 8},          //
		{"$[", 2},                //
		{"$['a'", 5},             // missing close bracket
		{"$[?(a > 1]", 4},        // unbalanced parens
		{"$[1:2:0]", 7},          // zero stride
		{"$..", 3},               //
		{"$.a[?(1 ++ 2)]", 3},    // malformed predicate
	}
	for _, tc := range tests {
		e, err := jsonpath.Parse(tc.expr)
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
	e, err := jsonpath.Parse("$..price")
	if err != nil {
		t.Fatal(err)
	}
	if got := e.String(); got != "$..price" {
		t.Errorf("String: got %q", got)
	}
	doc := storeDoc(t)
	a, err := e.Eval(doc)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Eval(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != len(b) || len(a) == 0 {
		t.Errorf("repeat evaluation: got %d then %d matches", len(a), len(b))
	}
}
