// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package schema

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/creachadair/mds/mapset"
	"github.com/edgejson/engine"
	"github.com/edgejson/engine/ast"
)

// lenient compares numbers by decoded value; JSON Schema treats 1 and 1.0
// as the same value in enum, const, and uniqueItems.
var lenient = &ast.EqualOptions{LenientNumbers: true}

// annotations are keywords that carry no assertion and are skipped silently.
var annotations = mapset.New(
	"$schema", "$id", "id", "title", "description", "default", "examples",
	"$comment", "$defs", "definitions", "deprecated", "readOnly", "writeOnly",
)

// handled are assertion keywords processed as part of another keyword's pass
// rather than on their own.
var handled = mapset.New("additionalItems")

// A run is the state of one Validate call.
type run struct {
	val        *Validator
	root       ast.Value
	draft      Draft
	violations []Violation
	diags      []engine.Diagnostic
	active     mapset.Set[string]
}

func (r *run) violate(dataPath, schemaPath ast.Path, keyword, format string, args ...any) {
	r.violations = append(r.violations, Violation{
		Path:       dataPath.Clone(),
		Keyword:    keyword,
		Message:    fmt.Sprintf(format, args...),
		SchemaPath: schemaPath.Clone(),
	})
}

func (r *run) unsupported(schemaPath ast.Path, keyword string) {
	r.diags = append(r.diags, engine.Diagnostic{
		Severity: engine.SevWarning,
		Kind:     engine.KindUnsupportedKeyword,
		Path:     schemaPath.String(),
		Message:  fmt.Sprintf("keyword %q is not supported in %v validation; it was not checked", keyword, r.draft),
	})
}

func (r *run) validate(data ast.Value, dataPath ast.Path, schema ast.Value, schemaPath ast.Path) error {
	switch s := schema.(type) {
	case *ast.Bool:
		// Boolean schemas, draft 6 and later.
		if r.draft == Draft4 {
			r.unsupported(schemaPath, "boolean schema")
			return nil
		}
		if !s.Value() {
			r.violate(dataPath, schemaPath, "false", "schema permits nothing")
		}
		return nil
	case *ast.Object:
		return r.validateObjectSchema(data, dataPath, s, schemaPath)
	default:
		return fmt.Errorf("schema at %q is %v, want object or boolean", schemaPath.String(), schema.Kind())
	}
}

func (r *run) validateObjectSchema(data ast.Value, dataPath ast.Path, schema *ast.Object, schemaPath ast.Path) error {
	if m := schema.Find("$ref"); m != nil {
		if err := r.ref(data, dataPath, m.Value, child(schemaPath, "$ref")); err != nil {
			return err
		}
		// Before 2019-09, $ref makes its siblings invisible.
		if r.draft <= Draft7 {
			return nil
		}
	}

	for _, m := range schema.Members {
		kp := child(schemaPath, m.Key)
		var err error
		switch m.Key {
		case "$ref", "prefixItems":
			// $ref handled above; prefixItems alongside items below.
		case "type":
			r.checkType(data, dataPath, m.Value, kp)
		case "enum":
			r.checkEnum(data, dataPath, m.Value, kp)
		case "const":
			if r.draft == Draft4 {
				r.unsupported(kp, "const")
			} else if !ast.Equal(data, m.Value, lenient) {
				r.violate(dataPath, kp, "const", "value must equal %s", ast.EncodeString(m.Value, nil))
			}
		case "required":
			r.checkRequired(data, dataPath, m.Value, kp)
		case "properties", "patternProperties":
			err = r.checkProperties(data, dataPath, schema, schemaPath, m.Key)
		case "additionalProperties":
			// Checked with properties/patternProperties when either is
			// present; alone it constrains every member.
			if schema.Find("properties") == nil && schema.Find("patternProperties") == nil {
				err = r.checkProperties(data, dataPath, schema, schemaPath, m.Key)
			}
		case "items":
			err = r.checkItems(data, dataPath, schema, schemaPath)
		case "minItems", "maxItems":
			r.checkCount(data, dataPath, m.Value, kp, m.Key)
		case "uniqueItems":
			r.checkUnique(data, dataPath, m.Value, kp)
		case "minimum", "maximum":
			r.checkBound(data, dataPath, schema, m.Value, kp, m.Key)
		case "exclusiveMinimum", "exclusiveMaximum":
			// In draft 4 these are modifiers read by minimum/maximum.
			if r.draft != Draft4 {
				r.checkBound(data, dataPath, schema, m.Value, kp, m.Key)
			}
		case "minLength", "maxLength":
			r.checkCount(data, dataPath, m.Value, kp, m.Key)
		case "minProperties", "maxProperties":
			r.checkCount(data, dataPath, m.Value, kp, m.Key)
		case "pattern":
			r.checkPattern(data, dataPath, m.Value, kp)
		case "multipleOf":
			r.checkMultiple(data, dataPath, m.Value, kp)
		case "allOf", "anyOf", "oneOf":
			err = r.checkCombinator(data, dataPath, m.Value, kp, m.Key)
		case "not":
			err = r.checkNot(data, dataPath, m.Value, kp)
		default:
			if handled.Has(m.Key) || annotations.Has(m.Key) {
				break
			}
			r.unsupported(kp, m.Key)
		}
		if err != nil {
			return err
		}
	}

	// prefixItems asserts on its own in 2020-12 even without items.
	if pi := schema.Find("prefixItems"); pi != nil && schema.Find("items") == nil {
		return r.checkItems(data, dataPath, schema, schemaPath)
	}
	return nil
}

func child(p ast.Path, key string) ast.Path {
	return append(p[:len(p):len(p)], ast.Key(key))
}

func childIdx(p ast.Path, i int) ast.Path {
	return append(p[:len(p):len(p)], ast.Index(i))
}

// typeName reports whether data matches a JSON Schema type name. "integer"
// matches any number with an integral value.
func typeMatches(data ast.Value, name string) bool {
	switch name {
	case "integer":
		n, ok := data.(*ast.Number)
		if !ok {
			return false
		}
		f := n.Float64()
		return f == math.Trunc(f)
	case "number":
		return data.Kind() == ast.KindNumber
	case "string":
		return data.Kind() == ast.KindString
	case "boolean":
		return data.Kind() == ast.KindBool
	case "null":
		return data.Kind() == ast.KindNull
	case "array":
		return data.Kind() == ast.KindArray
	case "object":
		return data.Kind() == ast.KindObject
	default:
		return false
	}
}

func (r *run) checkType(data ast.Value, dataPath ast.Path, spec ast.Value, kp ast.Path) {
	var names []string
	switch t := spec.(type) {
	case *ast.String:
		names = []string{t.Value()}
	case *ast.Array:
		for _, e := range t.Values {
			if s, ok := e.(*ast.String); ok {
				names = append(names, s.Value())
			}
		}
	default:
		return
	}
	for _, n := range names {
		if typeMatches(data, n) {
			return
		}
	}
	r.violate(dataPath, kp, "type", "got %v, want %s", data.Kind(), strings.Join(names, " or "))
}

func (r *run) checkEnum(data ast.Value, dataPath ast.Path, spec ast.Value, kp ast.Path) {
	arr, ok := spec.(*ast.Array)
	if !ok {
		return
	}
	for _, e := range arr.Values {
		if ast.Equal(data, e, lenient) {
			return
		}
	}
	r.violate(dataPath, kp, "enum", "value is not one of the permitted values")
}

func (r *run) checkRequired(data ast.Value, dataPath ast.Path, spec ast.Value, kp ast.Path) {
	obj, isObj := data.(*ast.Object)
	arr, ok := spec.(*ast.Array)
	if !isObj || !ok {
		return
	}
	for _, e := range arr.Values {
		s, ok := e.(*ast.String)
		if !ok {
			continue
		}
		if obj.Find(s.Value()) == nil {
			r.violate(dataPath, kp, "required", "missing required member %q", s.Value())
		}
	}
}

// checkProperties runs the properties / patternProperties /
// additionalProperties trio in one pass over the data object. It is invoked
// for whichever of the first two appears first in the schema; the guard on
// key identity keeps it from running twice.
func (r *run) checkProperties(data ast.Value, dataPath ast.Path, schema *ast.Object, schemaPath ast.Path, key string) error {
	props := schema.Find("properties")
	if key == "patternProperties" && props != nil {
		return nil // already handled with properties
	}
	patProps := schema.Find("patternProperties")

	obj, ok := data.(*ast.Object)
	if !ok {
		return nil
	}

	matched := mapset.New[string]()
	if props != nil {
		po, ok := props.Value.(*ast.Object)
		if !ok {
			return fmt.Errorf("schema at %q: properties must be an object", schemaPath.String())
		}
		for _, pm := range po.Members {
			dm := obj.Find(pm.Key)
			if dm == nil {
				continue
			}
			matched.Add(pm.Key)
			sp := child(child(schemaPath, "properties"), pm.Key)
			if err := r.validate(dm.Value, child(dataPath, pm.Key), pm.Value, sp); err != nil {
				return err
			}
		}
	}
	if patProps != nil {
		po, ok := patProps.Value.(*ast.Object)
		if !ok {
			return fmt.Errorf("schema at %q: patternProperties must be an object", schemaPath.String())
		}
		for _, pm := range po.Members {
			re, err := regexp.Compile(pm.Key)
			if err != nil {
				r.unsupported(child(child(schemaPath, "patternProperties"), pm.Key), "pattern "+pm.Key)
				continue
			}
			for _, dm := range obj.Members {
				if !re.MatchString(dm.Key) {
					continue
				}
				matched.Add(dm.Key)
				sp := child(child(schemaPath, "patternProperties"), pm.Key)
				if err := r.validate(dm.Value, child(dataPath, dm.Key), pm.Value, sp); err != nil {
					return err
				}
			}
		}
	}

	addl := schema.Find("additionalProperties")
	if addl == nil {
		return nil
	}
	ap := child(schemaPath, "additionalProperties")
	for _, dm := range obj.Members {
		if matched.Has(dm.Key) {
			continue
		}
		if b, ok := addl.Value.(*ast.Bool); ok {
			if !b.Value() {
				r.violate(child(dataPath, dm.Key), ap, "additionalProperties", "member %q is not permitted", dm.Key)
			}
			continue
		}
		if err := r.validate(dm.Value, child(dataPath, dm.Key), addl.Value, ap); err != nil {
			return err
		}
	}
	return nil
}

// checkItems validates array element schemas: prefixItems (2020-12),
// items-as-array with additionalItems (earlier drafts), and items as a
// single schema for every (remaining) element.
func (r *run) checkItems(data ast.Value, dataPath ast.Path, schema *ast.Object, schemaPath ast.Path) error {
	arr, ok := data.(*ast.Array)
	if !ok {
		return nil
	}
	items := schema.Find("items")
	prefix := schema.Find("prefixItems")

	from := 0
	if prefix != nil {
		if r.draft < Draft2020 {
			r.unsupported(child(schemaPath, "prefixItems"), "prefixItems")
		} else {
			pa, ok := prefix.Value.(*ast.Array)
			if !ok {
				return fmt.Errorf("schema at %q: prefixItems must be an array", schemaPath.String())
			}
			for i := 0; i < len(pa.Values) && i < len(arr.Values); i++ {
				sp := childIdx(child(schemaPath, "prefixItems"), i)
				if err := r.validate(arr.Values[i], childIdx(dataPath, i), pa.Values[i], sp); err != nil {
					return err
				}
			}
			from = len(pa.Values)
		}
	}
	if items == nil {
		return nil
	}

	if ia, ok := items.Value.(*ast.Array); ok {
		// Tuple form, draft 2019-09 and earlier.
		if r.draft == Draft2020 {
			r.unsupported(child(schemaPath, "items"), "items (array form)")
			return nil
		}
		for i := 0; i < len(ia.Values) && i < len(arr.Values); i++ {
			sp := childIdx(child(schemaPath, "items"), i)
			if err := r.validate(arr.Values[i], childIdx(dataPath, i), ia.Values[i], sp); err != nil {
				return err
			}
		}
		addl := schema.Find("additionalItems")
		if addl == nil {
			return nil
		}
		ap := child(schemaPath, "additionalItems")
		for i := len(ia.Values); i < len(arr.Values); i++ {
			if b, ok := addl.Value.(*ast.Bool); ok {
				if !b.Value() {
					r.violate(childIdx(dataPath, i), ap, "additionalItems", "element %d is not permitted", i)
				}
				continue
			}
			if err := r.validate(arr.Values[i], childIdx(dataPath, i), addl.Value, ap); err != nil {
				return err
			}
		}
		return nil
	}

	sp := child(schemaPath, "items")
	for i := from; i < len(arr.Values); i++ {
		if err := r.validate(arr.Values[i], childIdx(dataPath, i), items.Value, sp); err != nil {
			return err
		}
	}
	return nil
}

// checkCount covers minItems/maxItems, minLength/maxLength, and
// minProperties/maxProperties: a size measure against an integer bound.
func (r *run) checkCount(data ast.Value, dataPath ast.Path, spec ast.Value, kp ast.Path, keyword string) {
	bound, ok := intSpec(spec)
	if !ok {
		return
	}
	var size int64
	switch t := data.(type) {
	case *ast.Array:
		if keyword != "minItems" && keyword != "maxItems" {
			return
		}
		size = int64(t.Len())
	case *ast.String:
		if keyword != "minLength" && keyword != "maxLength" {
			return
		}
		size = int64(len([]rune(t.Value())))
	case *ast.Object:
		if keyword != "minProperties" && keyword != "maxProperties" {
			return
		}
		size = int64(t.Len())
	default:
		return
	}
	if strings.HasPrefix(keyword, "min") && size < bound {
		r.violate(dataPath, kp, keyword, "size %d is below the minimum %d", size, bound)
	} else if strings.HasPrefix(keyword, "max") && size > bound {
		r.violate(dataPath, kp, keyword, "size %d exceeds the maximum %d", size, bound)
	}
}

func intSpec(spec ast.Value) (int64, bool) {
	n, ok := spec.(*ast.Number)
	if !ok {
		return 0, false
	}
	return n.Int64()
}

func (r *run) checkUnique(data ast.Value, dataPath ast.Path, spec ast.Value, kp ast.Path) {
	b, ok := spec.(*ast.Bool)
	if !ok || !b.Value() {
		return
	}
	arr, ok := data.(*ast.Array)
	if !ok {
		return
	}
	for i := 0; i < len(arr.Values); i++ {
		for j := i + 1; j < len(arr.Values); j++ {
			if ast.Equal(arr.Values[i], arr.Values[j], lenient) {
				r.violate(dataPath, kp, "uniqueItems", "elements %d and %d are equal", i, j)
				return
			}
		}
	}
}

// checkBound validates minimum/maximum and their exclusive variants. In
// draft 4 exclusiveMinimum/exclusiveMaximum are booleans that sharpen
// minimum/maximum; later drafts make them standalone numeric bounds.
func (r *run) checkBound(data ast.Value, dataPath ast.Path, schema *ast.Object, spec ast.Value, kp ast.Path, keyword string) {
	n, ok := data.(*ast.Number)
	if !ok {
		return
	}
	bound, isNum := spec.(*ast.Number)
	if !isNum {
		return
	}
	v, b := n.Float64(), bound.Float64()

	exclusive := strings.HasPrefix(keyword, "exclusive")
	if r.draft == Draft4 && !exclusive {
		flag := "exclusiveMinimum"
		if keyword == "maximum" {
			flag = "exclusiveMaximum"
		}
		if m := schema.Find(flag); m != nil {
			if fb, ok := m.Value.(*ast.Bool); ok && fb.Value() {
				exclusive = true
			}
		}
	}

	isMin := keyword == "minimum" || keyword == "exclusiveMinimum"
	switch {
	case isMin && exclusive && v <= b:
		r.violate(dataPath, kp, keyword, "%s is not greater than %s", n.Text(), bound.Text())
	case isMin && !exclusive && v < b:
		r.violate(dataPath, kp, keyword, "%s is less than the minimum %s", n.Text(), bound.Text())
	case !isMin && exclusive && v >= b:
		r.violate(dataPath, kp, keyword, "%s is not less than %s", n.Text(), bound.Text())
	case !isMin && !exclusive && v > b:
		r.violate(dataPath, kp, keyword, "%s exceeds the maximum %s", n.Text(), bound.Text())
	}
}

func (r *run) checkPattern(data ast.Value, dataPath ast.Path, spec ast.Value, kp ast.Path) {
	s, ok := data.(*ast.String)
	if !ok {
		return
	}
	p, ok := spec.(*ast.String)
	if !ok {
		return
	}
	re, err := regexp.Compile(p.Value())
	if err != nil {
		r.unsupported(kp, "pattern "+p.Value())
		return
	}
	if !re.MatchString(s.Value()) {
		r.violate(dataPath, kp, "pattern", "%q does not match %q", s.Value(), p.Value())
	}
}

func (r *run) checkMultiple(data ast.Value, dataPath ast.Path, spec ast.Value, kp ast.Path) {
	n, ok := data.(*ast.Number)
	if !ok {
		return
	}
	m, ok := spec.(*ast.Number)
	if !ok || m.Float64() == 0 {
		return
	}
	q := n.Float64() / m.Float64()
	if math.Abs(q-math.Round(q)) > 1e-9 {
		r.violate(dataPath, kp, "multipleOf", "%s is not a multiple of %s", n.Text(), m.Text())
	}
}

// scratch runs a trial validation whose violations are discarded; its
// unsupported-keyword diagnostics are kept.
func (r *run) scratch(data ast.Value, dataPath ast.Path, schema ast.Value, schemaPath ast.Path) (bool, error) {
	sub := &run{val: r.val, root: r.root, draft: r.draft, active: r.active}
	if err := sub.validate(data, dataPath, schema, schemaPath); err != nil {
		return false, err
	}
	r.diags = append(r.diags, sub.diags...)
	return len(sub.violations) == 0, nil
}

func (r *run) checkCombinator(data ast.Value, dataPath ast.Path, spec ast.Value, kp ast.Path, keyword string) error {
	arr, ok := spec.(*ast.Array)
	if !ok {
		return fmt.Errorf("schema at %q: %s must be an array", kp.String(), keyword)
	}
	switch keyword {
	case "allOf":
		// Sub-violations surface directly: the data must satisfy them all.
		for i, sub := range arr.Values {
			if err := r.validate(data, dataPath, sub, childIdx(kp, i)); err != nil {
				return err
			}
		}
	case "anyOf":
		for i, sub := range arr.Values {
			ok, err := r.scratch(data, dataPath, sub, childIdx(kp, i))
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
		}
		r.violate(dataPath, kp, "anyOf", "value matches none of the %d schemas", len(arr.Values))
	case "oneOf":
		matches := 0
		for i, sub := range arr.Values {
			ok, err := r.scratch(data, dataPath, sub, childIdx(kp, i))
			if err != nil {
				return err
			}
			if ok {
				matches++
			}
		}
		if matches != 1 {
			r.violate(dataPath, kp, "oneOf", "value matches %d of the schemas, want exactly 1", matches)
		}
	}
	return nil
}

func (r *run) checkNot(data ast.Value, dataPath ast.Path, spec ast.Value, kp ast.Path) error {
	ok, err := r.scratch(data, dataPath, spec, kp)
	if err != nil {
		return err
	}
	if ok {
		r.violate(dataPath, kp, "not", "value matches the forbidden schema")
	}
	return nil
}

// ref resolves and follows a $ref. An unresolvable reference fails the whole
// validation with a *ResolutionError. A reference cycle at the same data
// location stops silently rather than recursing forever.
func (r *run) ref(data ast.Value, dataPath ast.Path, spec ast.Value, kp ast.Path) error {
	s, ok := spec.(*ast.String)
	if !ok {
		return &ResolutionError{Ref: ast.EncodeString(spec, nil), Reason: "$ref must be a string"}
	}
	target, err := r.resolve(s.Value())
	if err != nil {
		return err
	}

	if r.active == nil {
		r.active = mapset.New[string]()
	}
	key := s.Value() + "\x00" + dataPath.String()
	if r.active.Has(key) {
		return nil
	}
	r.active.Add(key)
	defer r.active.Remove(key)

	return r.validate(data, dataPath, target, kp)
}

func (r *run) resolve(ref string) (ast.Value, error) {
	base, frag, _ := strings.Cut(ref, "#")

	doc := r.root
	if base != "" {
		ext, ok := r.val.lookup(base)
		if !ok {
			return nil, &ResolutionError{Ref: ref, Reason: fmt.Sprintf("document %q is not registered", base)}
		}
		doc = ext
	}
	if frag == "" {
		return doc, nil
	}
	if !strings.HasPrefix(frag, "/") {
		return nil, &ResolutionError{Ref: ref, Reason: "plain-name fragments are not supported; use a JSON Pointer"}
	}
	p, err := ast.ParsePointer(frag)
	if err != nil {
		return nil, &ResolutionError{Ref: ref, Reason: err.Error()}
	}
	target, err := ast.At(doc, p)
	if err != nil {
		return nil, &ResolutionError{Ref: ref, Reason: err.Error()}
	}
	return target, nil
}
