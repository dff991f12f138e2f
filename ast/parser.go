// Copyright (C) 2025 The EdgeJSON Authors. All Rights Reserved.

package ast

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/edgejson/engine"
)

// ParseOptions configure a parse. A nil options value means a strict parse
// with no cancellation or progress reporting.
type ParseOptions struct {
	// Mode selects the input dialect (engine.Strict, engine.JSONC,
	// engine.JSON5).
	Mode engine.Mode

	// Context, if non-nil, is observed at parser checkpoints; cancelling it
	// fails the parse with an error satisfying errors.Is(err,
	// engine.ErrCancelled), and no partial tree is returned.
	Context context.Context

	// Progress, if non-nil, is invoked at each checkpoint with the number of
	// bytes consumed and TotalBytes.
	Progress   func(consumed, total int64)
	TotalBytes int64

	// CheckpointBytes overrides the checkpoint interval; <= 0 means the
	// engine default.
	CheckpointBytes int
}

func (o *ParseOptions) mode() engine.Mode {
	if o == nil {
		return engine.Strict
	}
	return o.Mode
}

// Parse parses a single document from r and returns its tree together with
// the diagnostics recorded along the way. In a tolerant mode the tree is a
// best-effort repair of deviant input and the diagnostics describe each
// repair; in Strict mode any deviation fails the parse. No partial tree is
// returned on error.
func Parse(r io.Reader, o *ParseOptions) (Value, []engine.Diagnostic, error) {
	st := engine.NewStream(r)
	st.SetMode(o.mode())
	if o != nil {
		if o.Context != nil {
			st.SetContext(o.Context)
		}
		if o.Progress != nil {
			st.SetProgress(o.Progress, o.TotalBytes)
		}
		if o.CheckpointBytes > 0 {
			st.SetCheckpointBytes(o.CheckpointBytes)
		}
	}

	h := &parseHandler{strict: o.mode() == engine.Strict}
	if err := st.ParseOne(h); err == io.EOF {
		return nil, nil, &engine.ParseError{Expected: "a value", Found: "end of input"}
	} else if err != nil {
		return nil, nil, err
	}
	if len(h.stk) != 1 {
		return nil, nil, &engine.ParseError{Expected: "a complete value", Found: "incomplete input"}
	}
	root := h.stk[0]

	// Anything but comments and whitespace after the first value is an error.
	var extra noopHandler
	if err := st.ParseOne(&extra); err == nil {
		return nil, nil, &engine.ParseError{Found: "data after the document value"}
	} else if err != io.EOF {
		return nil, nil, err
	}

	diags := append(st.Diagnostics(), h.diags...)
	sort.SliceStable(diags, func(i, j int) bool {
		return diags[i].Location.Pos < diags[j].Location.Pos
	})
	return root, diags, nil
}

// ParseString parses a single document from s; see Parse.
func ParseString(s string, o *ParseOptions) (Value, []engine.Diagnostic, error) {
	if o != nil && o.TotalBytes == 0 {
		cp := *o
		cp.TotalBytes = int64(len(s))
		o = &cp
	}
	return Parse(strings.NewReader(s), o)
}

// A parseHandler implements the engine.Handler interface to construct
// document trees from parser events.
type parseHandler struct {
	stk    []Value
	keys   []map[string]int // open-object key position, parallel to open objects
	diags  []engine.Diagnostic
	strict bool
	tbuf   [][]byte
}

// intern interns a copy of text and returns a slice of the copy.  Allocations
// are batched to reduce allocation overhead.
func (h *parseHandler) intern(text []byte) []byte {
	const bufBlockBytes = 8192

	if len(text) >= bufBlockBytes {
		return append([]byte(nil), text...)
	}

	i := 0
	for i < len(h.tbuf) {
		if len(h.tbuf[i])+len(text) < cap(h.tbuf[i]) {
			break
		}
		i++
	}
	if i == len(h.tbuf) {
		h.tbuf = append(h.tbuf, make([]byte, 0, bufBlockBytes))
	}
	s := len(h.tbuf[i])
	h.tbuf[i] = append(h.tbuf[i], text...)
	return h.tbuf[i][s : s+len(text)]
}

func (h *parseHandler) reduce() error {
	if len(h.stk) > 1 {
		v := h.pop()
		return h.reduceValue(v)
	}
	return nil
}

func (h *parseHandler) reduceValue(v Value) error {
	if len(h.stk) == 0 {
		h.push(v) // a bare scalar is the whole document
		return nil
	}
	switch prev := h.stk[len(h.stk)-1].(type) {
	case *Member:
		prev.Value = v
	case *Object:
		// already in the object
	case *Array:
		prev.Values = append(prev.Values, v)
	}
	return nil
}

func (h *parseHandler) top() Value { return h.stk[len(h.stk)-1] }

func (h *parseHandler) pop() Value {
	last := h.top()
	h.stk = h.stk[:len(h.stk)-1]
	return last
}

func (h *parseHandler) push(v Value) { h.stk = append(h.stk, v) }

func (h *parseHandler) BeginObject(loc engine.Anchor) error {
	obj := &Object{}
	obj.loc = loc.Location()
	h.push(obj)
	h.keys = append(h.keys, make(map[string]int))
	return nil
}

func (h *parseHandler) EndObject(loc engine.Anchor) error {
	// Find the object being closed: it is the top of the stack after the
	// final member has been reduced.
	obj := h.top().(*Object)
	l := loc.Location()
	obj.loc.End = l.End
	obj.loc.Last = l.Last
	h.keys = h.keys[:len(h.keys)-1]
	return h.reduce()
}

func (h *parseHandler) BeginArray(loc engine.Anchor) error {
	arr := &Array{}
	arr.loc = loc.Location()
	h.push(arr)
	return nil
}

func (h *parseHandler) EndArray(loc engine.Anchor) error {
	arr := h.top().(*Array)
	l := loc.Location()
	arr.loc.End = l.End
	arr.loc.Last = l.Last
	return h.reduce()
}

func (h *parseHandler) BeginMember(loc engine.Anchor) error {
	dec, err := engine.Unquote(string(loc.Text()))
	if err != nil {
		return fmt.Errorf("invalid object key: %w", err)
	}
	key := string(dec)

	// The object this member belongs to is atop the stack.  Add a pointer to
	// the new member into its collection eagerly, so that when reducing the
	// stack after the value is known, we don't have to reduce multiple times.
	obj := h.top().(*Object)
	seen := h.keys[len(h.keys)-1]
	if _, dup := seen[key]; dup {
		if h.strict {
			return &engine.ParseError{Location: loc.Location(), Found: fmt.Sprintf("duplicate object key %q", key)}
		}
		// Keep the position of the first occurrence; the last occurrence
		// wins the value when the object closes.
		h.diags = append(h.diags, engine.Diagnostic{
			Severity: engine.SevWarning,
			Location: loc.Location(),
			Message:  fmt.Sprintf("duplicate object key %q; the last occurrence wins", key),
		})
	} else {
		seen[key] = len(obj.Members)
	}

	mem := &Member{Key: key}
	mem.loc = loc.Location()
	obj.Members = append(obj.Members, mem)
	h.push(mem)
	return nil
}

func (h *parseHandler) EndMember(loc engine.Anchor) error {
	mem := h.top().(*Member)
	l := loc.Location()
	mem.loc.End = l.Pos
	mem.loc.Last = l.First
	if err := h.reduce(); err != nil {
		return err
	}

	// Resolve a duplicate key: move the winning value into the member at the
	// first occurrence's position and drop the duplicate.
	obj := h.top().(*Object)
	seen := h.keys[len(h.keys)-1]
	last := len(obj.Members) - 1
	if at := seen[mem.Key]; at != last {
		obj.Members[at].Value = mem.Value
		obj.Members = obj.Members[:last]
	}
	return nil
}

func (h *parseHandler) Value(loc engine.Anchor) error {
	text := h.intern(loc.Text())
	l := loc.Location()
	switch loc.Token() {
	case engine.String:
		dec, err := engine.Unquote(string(text))
		if err != nil {
			return fmt.Errorf("invalid string: %w", err)
		}
		s := &String{text: string(text), value: string(dec)}
		s.loc = l
		return h.reduceValue(s)
	case engine.Integer:
		n := &Number{text: string(text), isInt: true}
		n.loc = l
		return h.reduceValue(n)
	case engine.Number:
		n := &Number{text: string(text), isInt: false}
		n.loc = l
		return h.reduceValue(n)
	case engine.True, engine.False:
		b := &Bool{value: loc.Token() == engine.True}
		b.loc = l
		return h.reduceValue(b)
	case engine.Null:
		n := &Null{}
		n.loc = l
		return h.reduceValue(n)
	default:
		return fmt.Errorf("unknown value %v", loc.Token())
	}
}

func (h *parseHandler) EndOfInput(loc engine.Anchor) {}

// noopHandler discards all events; it is used to check for extra input after
// the document value.
type noopHandler struct{}

func (noopHandler) BeginObject(engine.Anchor) error { return nil }
func (noopHandler) EndObject(engine.Anchor) error   { return nil }
func (noopHandler) BeginArray(engine.Anchor) error  { return nil }
func (noopHandler) EndArray(engine.Anchor) error    { return nil }
func (noopHandler) BeginMember(engine.Anchor) error { return nil }
func (noopHandler) EndMember(engine.Anchor) error   { return nil }
func (noopHandler) Value(engine.Anchor) error       { return nil }
func (noopHandler) EndOfInput(engine.Anchor)        {}
