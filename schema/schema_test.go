// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package schema_test

import (
	"testing"

	"github.com/edgejson/engine"
	"github.com/edgejson/engine/ast"
	"github.com/edgejson/engine/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, s string) ast.Value {
	t.Helper()
	v, _, err := ast.ParseString(s, nil)
	require.NoError(t, err, "parse %#q", s)
	return v
}

func validate(t *testing.T, data, sch string, draft schema.Draft) ([]schema.Violation, []engine.Diagnostic) {
	t.Helper()
	vs, ds, err := schema.Validate(parse(t, data), parse(t, sch), draft)
	require.NoError(t, err)
	return vs, ds
}

func TestValidateBasic(t *testing.T) {
	const sch = `{"type":"object","required":["id"]}`

	vs, ds := validate(t, `{"name":"x"}`, sch, schema.Draft7)
	require.Len(t, vs, 1)
	assert.Equal(t, "required", vs[0].Keyword)
	assert.Equal(t, "", vs[0].Path.String())
	assert.Equal(t, "/required", vs[0].SchemaPath.String())
	assert.Empty(t, ds)

	vs, _ = validate(t, `{"id":1,"name":"x"}`, sch, schema.Draft7)
	assert.Empty(t, vs)
}

func TestValidateValid(t *testing.T) {
	tests := []struct {
		name, sch, data string
	}{
		{"empty schema", `{}`, `{"anything":[1,2,null]}`},
		{"type string", `{"type":"string"}`, `"hello"`},
		{"type union", `{"type":["string","null"]}`, `null`},
		{"integer accepts integral float", `{"type":"integer"}`, `3.0`},
		{"enum lenient numbers", `{"enum":[1,"two"]}`, `1.0`},
		{"const", `{"const":{"a":1}}`, `{"a":1}`},
		{"nested properties", `{"properties":{"a":{"properties":{"b":{"type":"number"}}}}}`, `{"a":{"b":3}}`},
		{"pattern", `{"type":"string","pattern":"^[a-z]+$"}`, `"abc"`},
		{"bounds inclusive", `{"minimum":1,"maximum":10}`, `10`},
		{"exclusive bounds draft7", `{"exclusiveMinimum":0}`, `0.5`},
		{"multipleOf", `{"multipleOf":0.1}`, `0.3`},
		{"items single", `{"items":{"type":"number"}}`, `[1,2,3]`},
		{"items tuple", `{"items":[{"type":"number"},{"type":"string"}]}`, `[1,"a",true]`},
		{"unique", `{"uniqueItems":true}`, `[1,2,"1"]`},
		{"lengths", `{"minLength":2,"maxLength":3}`, `"héé"`},
		{"allOf", `{"allOf":[{"type":"number"},{"minimum":0}]}`, `5`},
		{"anyOf", `{"anyOf":[{"type":"string"},{"type":"number"}]}`, `5`},
		{"oneOf", `{"oneOf":[{"type":"string"},{"type":"number"}]}`, `5`},
		{"not", `{"not":{"type":"string"}}`, `5`},
		{"additionalProperties schema", `{"additionalProperties":{"type":"number"}}`, `{"a":1,"b":2}`},
		{"patternProperties", `{"patternProperties":{"^n_":{"type":"number"}}}`, `{"n_x":1,"other":"s"}`},
		{"internal ref", `{"properties":{"a":{"$ref":"#/$defs/num"}},"$defs":{"num":{"type":"number"}}}`, `{"a":3}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			vs, _ := validate(t, tc.data, tc.sch, schema.Draft7)
			assert.Empty(t, vs)
		})
	}
}

func TestValidateInvalid(t *testing.T) {
	tests := []struct {
		name, sch, data string
		keyword, path   string
	}{
		{"type", `{"type":"string"}`, `5`, "type", ""},
		{"integer rejects fraction", `{"type":"integer"}`, `3.5`, "type", ""},
		{"enum", `{"enum":[1,2]}`, `3`, "enum", ""},
		{"const", `{"const":1}`, `2`, "const", ""},
		{"nested property", `{"properties":{"a":{"type":"string"}}}`, `{"a":5}`, "type", "/a"},
		{"pattern", `{"type":"string","pattern":"^[a-z]+$"}`, `"Abc"`, "pattern", ""},
		{"minimum", `{"minimum":1}`, `0`, "minimum", ""},
		{"exclusiveMinimum draft7", `{"exclusiveMinimum":1}`, `1`, "exclusiveMinimum", ""},
		{"maximum", `{"maximum":1}`, `2`, "maximum", ""},
		{"multipleOf", `{"multipleOf":3}`, `10`, "multipleOf", ""},
		{"minItems", `{"minItems":2}`, `[1]`, "minItems", ""},
		{"maxItems", `{"maxItems":1}`, `[1,2]`, "maxItems", ""},
		{"uniqueItems lenient", `{"uniqueItems":true}`, `[1,1.0]`, "uniqueItems", ""},
		{"minLength runes", `{"minLength":3}`, `"éé"`, "minLength", ""},
		{"minProperties", `{"minProperties":1}`, `{}`, "minProperties", ""},
		{"item schema", `{"items":{"type":"number"}}`, `[1,"x"]`, "type", "/1"},
		{"tuple item", `{"items":[{"type":"number"},{"type":"string"}]}`, `[1,2]`, "type", "/1"},
		{"additionalItems false", `{"items":[{}],"additionalItems":false}`, `[1,2]`, "additionalItems", "/1"},
		{"additionalProperties false", `{"properties":{"a":{}},"additionalProperties":false}`, `{"a":1,"b":2}`, "additionalProperties", "/b"},
		{"anyOf", `{"anyOf":[{"type":"string"},{"type":"boolean"}]}`, `5`, "anyOf", ""},
		{"oneOf two matches", `{"oneOf":[{"type":"number"},{"minimum":0}]}`, `5`, "oneOf", ""},
		{"not", `{"not":{"type":"number"}}`, `5`, "not", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			vs, _ := validate(t, tc.data, tc.sch, schema.Draft7)
			require.NotEmpty(t, vs)
			assert.Equal(t, tc.keyword, vs[0].Keyword)
			assert.Equal(t, tc.path, vs[0].Path.String())
		})
	}
}

// Violations are collected across the whole document, not cut short at the
// first failure.
func TestValidateCollectsAll(t *testing.T) {
	sch := `{
	  "properties": {
	    "a": {"type": "string"},
	    "b": {"minimum": 10},
	    "c": {"items": {"type": "number"}}
	  },
	  "required": ["d"]
	}`
	vs, _ := validate(t, `{"a":1,"b":3,"c":["x","y"]}`, sch, schema.Draft7)
	require.Len(t, vs, 5)

	var paths []string
	for _, v := range vs {
		paths = append(paths, v.Path.String())
	}
	assert.Equal(t, []string{"/a", "/b", "/c/0", "/c/1", ""}, paths)
}

func TestAllOfSubViolationsSurface(t *testing.T) {
	sch := `{"allOf":[{"minimum":10},{"multipleOf":2}]}`
	vs, _ := validate(t, `3`, sch, schema.Draft7)
	require.Len(t, vs, 2)
	assert.Equal(t, "minimum", vs[0].Keyword)
	assert.Equal(t, "/allOf/0/minimum", vs[0].SchemaPath.String())
	assert.Equal(t, "multipleOf", vs[1].Keyword)
}

func TestDraftGating(t *testing.T) {
	t.Run("const is draft 6+", func(t *testing.T) {
		vs, ds := validate(t, `2`, `{"const":1}`, schema.Draft4)
		assert.Empty(t, vs)
		require.Len(t, ds, 1)
		assert.Equal(t, engine.KindUnsupportedKeyword, ds[0].Kind)
	})

	t.Run("draft4 boolean exclusiveMinimum", func(t *testing.T) {
		sch := `{"minimum":1,"exclusiveMinimum":true}`
		vs, _ := validate(t, `1`, sch, schema.Draft4)
		require.Len(t, vs, 1)
		assert.Equal(t, "minimum", vs[0].Keyword)

		vs, _ = validate(t, `1`, `{"minimum":1}`, schema.Draft4)
		assert.Empty(t, vs)
	})

	t.Run("boolean schema is draft 6+", func(t *testing.T) {
		vs, _ := validate(t, `1`, `{"properties":{"a":true}}`, schema.Draft6)
		assert.Empty(t, vs)

		vs, _ = validate(t, `{"a":1}`, `{"properties":{"a":false}}`, schema.Draft6)
		require.Len(t, vs, 1)
		assert.Equal(t, "/a", vs[0].Path.String())
	})

	t.Run("prefixItems is 2020-12", func(t *testing.T) {
		sch := `{"prefixItems":[{"type":"number"}]}`
		vs, _ := validate(t, `["x"]`, sch, schema.Draft2020)
		require.Len(t, vs, 1)
		assert.Equal(t, "type", vs[0].Keyword)

		vs, ds := validate(t, `["x"]`, sch, schema.Draft7)
		assert.Empty(t, vs)
		require.Len(t, ds, 1)
		assert.Equal(t, engine.KindUnsupportedKeyword, ds[0].Kind)
	})

	t.Run("tuple items rejected in 2020-12", func(t *testing.T) {
		sch := `{"items":[{"type":"number"}]}`
		vs, ds := validate(t, `["x"]`, sch, schema.Draft2020)
		assert.Empty(t, vs)
		require.Len(t, ds, 1)
	})

	t.Run("2020 items after prefixItems", func(t *testing.T) {
		sch := `{"prefixItems":[{"type":"number"}],"items":{"type":"string"}}`
		vs, _ := validate(t, `[1,"a","b"]`, sch, schema.Draft2020)
		assert.Empty(t, vs)

		vs, _ = validate(t, `[1,"a",3]`, sch, schema.Draft2020)
		require.Len(t, vs, 1)
		assert.Equal(t, "/2", vs[0].Path.String())
	})
}

func TestUnsupportedKeywordDiagnostics(t *testing.T) {
	sch := `{"type":"object","if":{"required":["a"]},"then":{"required":["b"]},"format":"email"}`
	vs, ds := validate(t, `{"a":1}`, sch, schema.Draft7)
	assert.Empty(t, vs)
	require.Len(t, ds, 3)

	var kws []string
	for _, d := range ds {
		assert.Equal(t, engine.SevWarning, d.Severity)
		assert.Equal(t, engine.KindUnsupportedKeyword, d.Kind)
		kws = append(kws, d.Path)
	}
	assert.Equal(t, []string{"/if", "/then", "/format"}, kws)
}

func TestRefRegistry(t *testing.T) {
	v := schema.NewValidator()
	require.NoError(t, v.Register("https://example.com/defs.json",
		parse(t, `{"$defs":{"port":{"type":"integer","minimum":1,"maximum":65535}}}`)))

	sch := parse(t, `{"properties":{"port":{"$ref":"https://example.com/defs.json#/$defs/port"}}}`)

	vs, _, err := v.Validate(parse(t, `{"port":8080}`), sch, schema.Draft2020)
	require.NoError(t, err)
	assert.Empty(t, vs)

	vs, _, err = v.Validate(parse(t, `{"port":0}`), sch, schema.Draft2020)
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, "minimum", vs[0].Keyword)
	assert.Equal(t, "/port", vs[0].Path.String())
}

func TestRefResolutionError(t *testing.T) {
	sch := parse(t, `{"$ref":"https://example.com/missing.json#"}`)
	_, _, err := schema.Validate(parse(t, `1`), sch, schema.Draft7)
	var re *schema.ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "https://example.com/missing.json#", re.Ref)

	_, _, err = schema.Validate(parse(t, `1`), parse(t, `{"$ref":"#/nope"}`), schema.Draft7)
	require.ErrorAs(t, err, &re)
}

func TestRefCycle(t *testing.T) {
	// A self-referential schema must terminate rather than recurse forever.
	sch := parse(t, `{"properties":{"next":{"$ref":"#"}},"required":["v"]}`)
	vs, _, err := schema.Validate(parse(t, `{"next":{"next":{"v":2}}}`), sch, schema.Draft7)
	require.NoError(t, err)
	require.Len(t, vs, 2)
	assert.Equal(t, "/next", vs[0].Path.String())
	assert.Equal(t, "", vs[1].Path.String())
}

func TestRegisterErrors(t *testing.T) {
	v := schema.NewValidator()
	s := parse(t, `{}`)
	require.NoError(t, v.Register("x", s))
	assert.Error(t, v.Register("x", s))
	assert.Error(t, v.Register("", s))
	assert.Error(t, v.Register("y", nil))
}

func TestDetectDraft(t *testing.T) {
	tests := []struct {
		text string
		want schema.Draft
		ok   bool
	}{
		{`{"$schema":"http://json-schema.org/draft-04/schema#"}`, schema.Draft4, true},
		{`{"$schema":"http://json-schema.org/draft-06/schema#"}`, schema.Draft6, true},
		{`{"$schema":"http://json-schema.org/draft-07/schema#"}`, schema.Draft7, true},
		{`{"$schema":"https://json-schema.org/draft/2019-09/schema"}`, schema.Draft2019, true},
		{`{"$schema":"https://json-schema.org/draft/2020-12/schema"}`, schema.Draft2020, true},
		{`{"$schema":"urn:whatever"}`, 0, false},
		{`{}`, 0, false},
		{`[1]`, 0, false},
	}
	for _, tc := range tests {
		got, ok := schema.DetectDraft(parse(t, tc.text))
		assert.Equal(t, tc.ok, ok, "%s", tc.text)
		if tc.ok {
			assert.Equal(t, tc.want, got, "%s", tc.text)
		}
	}
}

func TestValidateDoesNotMutate(t *testing.T) {
	const dataText = `{"a":[1,"x"],"b":{"c":null}}`
	const schText = `{"properties":{"a":{"items":{"type":"number"}}},"required":["z"]}`
	data, sch := parse(t, dataText), parse(t, schText)

	_, _ = validate(t, dataText, schText, schema.Draft7)
	_, _, err := schema.Validate(data, sch, schema.Draft7)
	require.NoError(t, err)

	assert.True(t, ast.Equal(data, parse(t, dataText), nil))
	assert.True(t, ast.Equal(sch, parse(t, schText), nil))
}
