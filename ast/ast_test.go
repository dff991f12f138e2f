// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package ast_test

import (
	"math"
	"testing"

	"github.com/edgejson/engine/ast"
	"github.com/google/go-cmp/cmp"
)

func TestPathString(t *testing.T) {
	tests := []struct {
		path ast.Path
		want string
	}{
		{nil, ""},
		{ast.Path{ast.Key("a")}, "/a"},
		{ast.Path{ast.Key("a"), ast.Index(0), ast.Key("b")}, "/a/0/b"},
		{ast.Path{ast.Key("a/b"), ast.Key("c~d")}, "/a~1b/c~0d"},
		{ast.Path{ast.Key("")}, "/"},
	}
	for _, tc := range tests {
		if got := tc.path.String(); got != tc.want {
			t.Errorf("String(%v): got %q, want %q", tc.path, got, tc.want)
		}
		back, err := ast.ParsePointer(tc.want)
		if err != nil {
			t.Errorf("ParsePointer(%q): unexpected error: %v", tc.want, err)
		} else if back.String() != tc.want {
			t.Errorf("ParsePointer(%q) round trip: got %q", tc.want, back.String())
		}
	}
	if _, err := ast.ParsePointer("no-slash"); err == nil {
		t.Error("ParsePointer(no-slash): got nil, want error")
	}
}

func TestAt(t *testing.T) {
	v := mustParse(t, `{"a":{"b":[10,20,30]},"2":"digits"}`, nil)

	tests := []struct {
		path ast.Path
		want string
	}{
		{nil, `{"a":{"b":[10,20,30]},"2":"digits"}`},
		{ast.Path{ast.Key("a")}, `{"b":[10,20,30]}`},
		{ast.Path{ast.Key("a"), ast.Key("b"), ast.Index(1)}, `20`},
		{ast.Path{ast.Key("a"), ast.Key("b"), ast.Index(-1)}, `30`}, // negative wraps
		{ast.Path{ast.Index(2)}, `"digits"`},                        // index into object uses its decimal key
	}
	for _, tc := range tests {
		got, err := ast.At(v, tc.path)
		if err != nil {
			t.Errorf("At(%q): unexpected error: %v", tc.path, err)
			continue
		}
		if enc := ast.EncodeString(got, nil); enc != tc.want {
			t.Errorf("At(%q): got %#q, want %#q", tc.path, enc, tc.want)
		}
	}

	bad := []ast.Path{
		{ast.Key("missing")},
		{ast.Key("a"), ast.Key("b"), ast.Index(3)},
		{ast.Key("a"), ast.Key("b"), ast.Index(-4)},
		{ast.Key("a"), ast.Key("b"), ast.Index(0), ast.Key("x")}, // cannot index a number
	}
	for _, p := range bad {
		if got, err := ast.At(v, p); err == nil {
			t.Errorf("At(%q): got %v, want error", p, got)
		}
	}
}

func TestPathOps(t *testing.T) {
	p := ast.Path{ast.Key("a"), ast.Index(1), ast.Key("b")}
	if !p.HasPrefix(p[:2]) {
		t.Error("HasPrefix(self prefix): got false")
	}
	if p.HasPrefix(ast.Path{ast.Key("x")}) {
		t.Error("HasPrefix(other): got true")
	}
	if got := p.Parent(); !got.Equal(p[:2]) {
		t.Errorf("Parent: got %q, want %q", got, p[:2])
	}
	if got := ast.Path(nil).Parent(); got != nil {
		t.Errorf("Parent(root): got %q, want nil", got)
	}
}

func TestWalk(t *testing.T) {
	v := mustParse(t, `{"a":[1,{"b":true}],"c":null}`, nil)

	var paths []string
	var kinds []ast.Kind
	for p, node := range ast.Walk(v) {
		paths = append(paths, p.String())
		kinds = append(kinds, node.Kind())
	}
	wantPaths := []string{"", "/a", "/a/0", "/a/1", "/a/1/b", "/c"}
	if diff := cmp.Diff(wantPaths, paths); diff != "" {
		t.Errorf("walk order (-want, +got):\n%s", diff)
	}
	wantKinds := []ast.Kind{
		ast.KindObject, ast.KindArray, ast.KindNumber,
		ast.KindObject, ast.KindBool, ast.KindNull,
	}
	if diff := cmp.Diff(wantKinds, kinds); diff != "" {
		t.Errorf("walk kinds (-want, +got):\n%s", diff)
	}

	// Early termination stops the traversal.
	var n int
	for range ast.Walk(v) {
		if n++; n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("early stop: visited %d, want 2", n)
	}
}

func TestEqual(t *testing.T) {
	lenient := &ast.EqualOptions{LenientNumbers: true}
	tests := []struct {
		a, b        string
		strict, len bool
	}{
		{`{"a":1,"b":2}`, `{"b":2,"a":1}`, true, true}, // key order ignored
		{`[1,2]`, `[2,1]`, false, false},               // array order significant
		{`1`, `1.0`, false, true},
		{`1e2`, `100`, false, true},
		{`"a"`, `"a"`, true, true},
		{`{"a":1}`, `{"a":1,"b":2}`, false, false},
		{`null`, `false`, false, false},
		{`[{"x":[1]}]`, `[{"x":[1]}]`, true, true},
	}
	for _, tc := range tests {
		a, b := mustParse(t, tc.a, nil), mustParse(t, tc.b, nil)
		if got := ast.Equal(a, b, nil); got != tc.strict {
			t.Errorf("Equal(%#q, %#q): got %v, want %v", tc.a, tc.b, got, tc.strict)
		}
		if got := ast.Equal(a, b, lenient); got != tc.len {
			t.Errorf("Equal(%#q, %#q, lenient): got %v, want %v", tc.a, tc.b, got, tc.len)
		}
		// Equality is symmetric.
		if ast.Equal(a, b, nil) != ast.Equal(b, a, nil) {
			t.Errorf("Equal(%#q, %#q): not symmetric", tc.a, tc.b)
		}
	}
}

func TestEncodeOptions(t *testing.T) {
	v := mustParse(t, `{"b":[1,2],"a":{"y":null,"x":""}}`, nil)

	if got, want := ast.EncodeString(v, nil), `{"b":[1,2],"a":{"y":null,"x":""}}`; got != want {
		t.Errorf("compact: got %#q, want %#q", got, want)
	}
	sorted := ast.EncodeString(v, &ast.EncodeOptions{SortKeys: true})
	if want := `{"a":{"x":"","y":null},"b":[1,2]}`; sorted != want {
		t.Errorf("sorted: got %#q, want %#q", sorted, want)
	}
	pretty := ast.EncodeString(v, &ast.EncodeOptions{Indent: "  "})
	want := `{
  "b": [
    1,
    2
  ],
  "a": {
    "y": null,
    "x": ""
  }
}`
	if diff := cmp.Diff(want, pretty); diff != "" {
		t.Errorf("pretty (-want, +got):\n%s", diff)
	}
}

func TestMemberKind(t *testing.T) {
	// A member is addressable as a node in its own right.
	var v ast.Value = ast.Field("k", ast.NewString("x"))
	if v.Kind() != ast.KindMember {
		t.Errorf("member kind: got %v, want %v", v.Kind(), ast.KindMember)
	}
	if got, want := ast.KindMember.String(), "member"; got != want {
		t.Errorf("kind string: got %q, want %q", got, want)
	}
}

func TestEncodeQuoting(t *testing.T) {
	// Constructed nodes have no source text, so their keys and string
	// values are quoted on output.
	v := ast.NewObject(
		ast.Field("k", ast.NewString("x")),
		ast.Field("a key", ast.NewString(`say "hi"`)),
	)
	want := `{"k":"x","a key":"say \"hi\""}`
	if got := ast.EncodeString(v, nil); got != want {
		t.Errorf("constructed: got %#q, want %#q", got, want)
	}

	// Parsed keys re-encode quoted as well.
	p := mustParse(t, `{"a key":"v"}`, nil)
	if got, want := ast.EncodeString(p, nil), `{"a key":"v"}`; got != want {
		t.Errorf("parsed: got %#q, want %#q", got, want)
	}
}

func TestDecode(t *testing.T) {
	v := mustParse(t, `{"s":"x","i":3,"f":2.5,"big":1e100,"b":true,"n":null,"a":[1,"two"]}`, nil)
	got := ast.Decode(v)
	want := map[string]any{
		"s":   "x",
		"i":   int64(3),
		"f":   2.5,
		"big": 1e100,
		"b":   true,
		"n":   nil,
		"a":   []any{int64(1), "two"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decode (-want, +got):\n%s", diff)
	}
}

func TestFromGo(t *testing.T) {
	v, err := ast.FromGo(map[string]any{
		"z": []any{int(1), uint8(2), 3.5, "s", true, nil},
		"a": map[string]any{"k": int64(-7)},
	})
	if err != nil {
		t.Fatalf("FromGo: unexpected error: %v", err)
	}
	// Map keys come out sorted.
	want := `{"a":{"k":-7},"z":[1,2,3.5,"s",true,null]}`
	if got := ast.EncodeString(v, nil); got != want {
		t.Errorf("FromGo: got %#q, want %#q", got, want)
	}

	for _, bad := range []any{math.NaN(), math.Inf(1), make(chan int)} {
		if got, err := ast.FromGo(bad); err == nil {
			t.Errorf("FromGo(%v): got %v, want error", bad, got)
		}
	}
}

func TestNumberConstructors(t *testing.T) {
	if got := ast.NewFloat(2500).Text(); got != "2500" {
		t.Errorf("NewFloat(2500): got %q", got)
	}
	if n := ast.NewFloat(0.5); n.Text() != "0.5" || n.IsInt() {
		t.Errorf("NewFloat(0.5): got %q, isInt=%v", n.Text(), n.IsInt())
	}
	if n := ast.NewNumberText("1e3"); n.IsInt() {
		t.Error("NewNumberText(1e3): isInt=true, want false")
	}
	func() {
		defer func() {
			if recover() == nil {
				t.Error("NewNumberText(bogus): no panic")
			}
		}()
		ast.NewNumberText("bogus")
	}()
}
