package huon

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// ListStyle controls how inline list items are separated.
type ListStyle int

const (
	ListStyleNone     ListStyle = iota // [1 2 3]
	ListStyleBasic                     // [1, 2, 3]
	ListStyleTrailing                  // [1, 2, 3,]
)

// Marshaler is implemented by types that can represent themselves as a
// document value. The returned value is written in place of the default
// reflection-based encoding.
type Marshaler interface {
	MarshalHUON() (Value, error)
}

// Marshal returns the HUON encoding of v.
//
// This function works like json.Marshal, converting a Go value into a HUON
// formatted byte slice. The document root must be a map, a struct or an
// object Value; nested values map as follows:
//   - bool -> true | false
//   - int -> integer literal
//   - float -> float literal
//   - string -> "quoted string"
//   - struct, map -> nested block, one level deeper
//   - slice, array of scalars -> inline list
//   - nil pointer or interface -> null
//
// Unsigned integers, byte slices, NaN and infinite floats, lists holding
// non-scalar elements, and empty objects below the root cannot be
// represented and return an error.
//
// Struct fields can be customized with `huon` tags. For example:
//
//	// Field appears as 'my_field' in HUON.
//	Field int `huon:"my_field"`
//
//	// Field is omitted when empty.
//	Field int `huon:"my_field,omitempty"`
//
//	// Field is ignored.
//	Field int `huon:"-"`
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// An Encoder writes HUON documents to an output stream.
type Encoder struct {
	w         io.Writer
	indent    int
	listStyle ListStyle
}

// NewEncoder returns a new encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, indent: 4}
}

// SetIndent sets the number of spaces written per nesting level. The
// default is 4. It panics if n is less than 1.
func (enc *Encoder) SetIndent(n int) {
	if n < 1 {
		panic("huon: indent must be at least 1")
	}
	enc.indent = n
}

// SetListStyle sets the separator style for inline lists.
func (enc *Encoder) SetListStyle(style ListStyle) {
	enc.listStyle = style
}

// Encode writes the HUON encoding of v to the stream. Every line written
// ends with a newline; an empty root object writes an empty document.
// See the documentation for Marshal for details about the conversion of
// Go values to HUON.
func (enc *Encoder) Encode(v any) error {
	s := newState(enc.w, enc.indent, enc.listStyle)
	s.marshalRoot(reflect.ValueOf(v))
	err := s.err
	putState(s)
	return err
}

// state holds the encoding state for a single Marshal or Encode call.
type state struct {
	w         io.Writer
	err       error
	indent    int
	listStyle ListStyle
}

var statePool = sync.Pool{
	New: func() any {
		return new(state)
	},
}

// newState retrieves a new state from the pool.
func newState(w io.Writer, indent int, listStyle ListStyle) *state {
	s := statePool.Get().(*state)
	s.w = w
	s.indent = indent
	s.listStyle = listStyle
	return s
}

// putState returns a state to the pool.
func putState(s *state) {
	s.w = nil
	s.err = nil
	statePool.Put(s)
}

// write is a helper to write a string to the output writer, stopping
// immediately if an error has occurred.
func (s *state) write(str string) {
	if s.err != nil {
		return
	}
	if _, err := io.WriteString(s.w, str); err != nil {
		s.err = &EncodeError{Msg: "write failed", Err: err}
	}
}

// writeIndent writes the leading spaces for one line at the given level.
func (s *state) writeIndent(level int) {
	s.write(strings.Repeat(" ", s.indent*level))
}

// marshalRoot writes the document root. Only object-shaped values can be
// a document: the format has no syntax for a bare scalar or list at the
// top level.
func (s *state) marshalRoot(v reflect.Value) {
	if m, ok := marshalerOf(v); ok {
		val, err := m.MarshalHUON()
		if err != nil {
			s.err = &EncodeError{Msg: "MarshalHUON failed", Err: err}
			return
		}
		if val.Kind() != KindObject {
			s.err = &EncodeError{Msg: fmt.Sprintf("document root must be an object, not %s", val.Kind())}
			return
		}
		for _, m := range val.Members() {
			s.writeMember(m.Key, m.Value, 0)
		}
		return
	}

	v = indirect(v, &s.err)
	if s.err != nil {
		return
	}
	if !v.IsValid() {
		s.err = &EncodeError{Msg: "cannot encode nil document root"}
		return
	}

	if v.Type() == valueType {
		val := v.Interface().(Value)
		if val.Kind() != KindObject {
			s.err = &EncodeError{Msg: fmt.Sprintf("document root must be an object, not %s", val.Kind())}
			return
		}
		for _, m := range val.Members() {
			s.writeMember(m.Key, m.Value, 0)
		}
		return
	}

	switch v.Kind() {
	case reflect.Map:
		s.marshalMap(v, 0)
	case reflect.Struct:
		s.marshalStruct(v, 0)
	default:
		s.err = &EncodeError{Type: v.Type(), Msg: fmt.Sprintf("document root must be a map or struct, not %s", v.Type())}
	}
}

// marshalMap writes a map's pairs at the given level. Keys are sorted to
// keep the output deterministic.
func (s *state) marshalMap(v reflect.Value, level int) {
	if v.Type().Key().Kind() != reflect.String {
		s.err = &EncodeError{Type: v.Type(), Msg: fmt.Sprintf("map key type must be a string, not %s", v.Type().Key())}
		return
	}

	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})

	for _, key := range keys {
		s.writeKVPair(key.String(), v.MapIndex(key), level)
	}
}

// marshalStruct writes a struct's fields at the given level, in
// declaration order.
func (s *state) marshalStruct(v reflect.Value, level int) {
	for _, f := range marshalFields(v) {
		s.writeKVPair(f.name, f.value, level)
	}
}

// marshalField is one struct field selected for encoding.
type marshalField struct {
	name  string
	value reflect.Value
}

// marshalFields gathers the encodable fields of a struct: exported, not
// tagged "-", and not empty when tagged omitempty.
func marshalFields(v reflect.Value) []marshalField {
	var out []marshalField

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name, omitEmpty := parseStructTag(field.Tag)
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}
		if omitEmpty && isEmptyValue(v.Field(i)) {
			continue
		}

		out = append(out, marshalField{name: name, value: v.Field(i)})
	}

	return out
}

// writeKVPair writes one "key: value" line, or a key followed by its
// nested block.
func (s *state) writeKVPair(key string, v reflect.Value, level int) {
	if s.err != nil {
		return
	}
	if level > maxNestingDepth {
		s.err = errCycle()
		return
	}
	if !validKey(key) {
		s.err = &EncodeError{Msg: fmt.Sprintf("invalid key %q: keys may only contain letters, digits and '_'", key)}
		return
	}

	if m, ok := marshalerOf(v); ok {
		val, err := m.MarshalHUON()
		if err != nil {
			s.err = &EncodeError{Msg: "MarshalHUON failed", Err: err}
			return
		}
		s.writeMember(key, val, level)
		return
	}

	iv := indirect(v, &s.err)
	if s.err != nil {
		return
	}

	// A nil pointer or interface is an absent value.
	if !iv.IsValid() {
		s.writeIndent(level)
		s.write(key)
		s.write(": null\n")
		return
	}

	// Check again after unwrapping: a marshaler stored in an interface is
	// only visible on the concrete value.
	if m, ok := marshalerOf(iv); ok {
		val, err := m.MarshalHUON()
		if err != nil {
			s.err = &EncodeError{Msg: "MarshalHUON failed", Err: err}
			return
		}
		s.writeMember(key, val, level)
		return
	}

	if iv.Type() == valueType {
		s.writeMember(key, iv.Interface().(Value), level)
		return
	}

	switch iv.Kind() {
	case reflect.Map:
		if iv.Len() == 0 {
			s.err = emptyObjectError(key)
			return
		}
		s.writeIndent(level)
		s.write(key)
		s.write(":\n")
		s.marshalMap(iv, level+1)

	case reflect.Struct:
		fields := marshalFields(iv)
		if len(fields) == 0 {
			s.err = emptyObjectError(key)
			return
		}
		s.writeIndent(level)
		s.write(key)
		s.write(":\n")
		for _, f := range fields {
			s.writeKVPair(f.name, f.value, level+1)
		}

	case reflect.Slice, reflect.Array:
		if iv.Type().Elem().Kind() == reflect.Uint8 {
			s.err = &EncodeError{Type: iv.Type(), Msg: "byte arrays are not supported"}
			return
		}
		s.writeIndent(level)
		s.write(key)
		s.write(": ")
		s.writeInlineList(iv)
		s.write("\n")

	default:
		s.writeIndent(level)
		s.write(key)
		s.write(": ")
		s.writeScalar(iv)
		s.write("\n")
	}
}

// writeMember writes one member of an object Value.
func (s *state) writeMember(key string, val Value, level int) {
	if s.err != nil {
		return
	}
	if level > maxNestingDepth {
		s.err = errCycle()
		return
	}
	if !validKey(key) {
		s.err = &EncodeError{Msg: fmt.Sprintf("invalid key %q: keys may only contain letters, digits and '_'", key)}
		return
	}

	switch val.Kind() {
	case KindObject:
		members := val.Members()
		if len(members) == 0 {
			s.err = emptyObjectError(key)
			return
		}
		s.writeIndent(level)
		s.write(key)
		s.write(":\n")
		for _, m := range members {
			s.writeMember(m.Key, m.Value, level+1)
		}

	case KindList:
		s.writeIndent(level)
		s.write(key)
		s.write(": ")
		s.write("[")
		items := val.Items()
		for i, item := range items {
			s.writeListSeparator(i)
			s.writeValueScalar(item)
		}
		if s.listStyle == ListStyleTrailing && len(items) > 0 {
			s.write(",")
		}
		s.write("]")
		s.write("\n")

	default:
		s.writeIndent(level)
		s.write(key)
		s.write(": ")
		s.writeValueScalar(val)
		s.write("\n")
	}
}

// writeInlineList writes a slice or array as an inline list of scalars.
func (s *state) writeInlineList(v reflect.Value) {
	s.write("[")

	n := v.Len()
	for i := 0; i < n; i++ {
		s.writeListSeparator(i)

		elem := v.Index(i)
		if m, ok := marshalerOf(elem); ok {
			val, err := m.MarshalHUON()
			if err != nil {
				s.err = &EncodeError{Msg: "MarshalHUON failed", Err: err}
				return
			}
			s.writeValueScalar(val)
			continue
		}

		ev := indirect(elem, &s.err)
		if s.err != nil {
			return
		}
		if !ev.IsValid() {
			s.write("null")
			continue
		}

		if m, ok := marshalerOf(ev); ok {
			val, err := m.MarshalHUON()
			if err != nil {
				s.err = &EncodeError{Msg: "MarshalHUON failed", Err: err}
				return
			}
			s.writeValueScalar(val)
			continue
		}

		if ev.Type() == valueType {
			s.writeValueScalar(ev.Interface().(Value))
			continue
		}

		switch ev.Kind() {
		case reflect.Map, reflect.Struct, reflect.Slice, reflect.Array:
			s.err = &EncodeError{Type: ev.Type(), Msg: "lists may only contain scalar values"}
			return
		default:
			s.writeScalar(ev)
		}
	}

	if s.listStyle == ListStyleTrailing && n > 0 {
		s.write(",")
	}
	s.write("]")
}

// writeListSeparator writes the separator before the i-th list item.
func (s *state) writeListSeparator(i int) {
	if i == 0 {
		return
	}
	switch s.listStyle {
	case ListStyleNone:
		s.write(" ")
	default:
		s.write(", ")
	}
}

// writeScalar writes one scalar Go value in its literal form.
func (s *state) writeScalar(v reflect.Value) {
	switch v.Kind() {
	case reflect.String:
		s.write(quoteString(v.String()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		s.write(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		s.err = &EncodeError{Type: v.Type(), Msg: "unsigned integers are not supported"}
	case reflect.Float32, reflect.Float64:
		s.writeFloat(v.Float())
	case reflect.Bool:
		s.write(strconv.FormatBool(v.Bool()))
	default:
		s.err = &EncodeError{Type: v.Type(), Msg: fmt.Sprintf("unsupported type: %s", v.Type())}
	}
}

// writeValueScalar writes one scalar Value in its literal form.
func (s *state) writeValueScalar(val Value) {
	switch val.Kind() {
	case KindNull:
		s.write("null")
	case KindBool:
		s.write(strconv.FormatBool(val.Bool()))
	case KindInt:
		s.write(strconv.FormatInt(val.Int(), 10))
	case KindFloat:
		s.writeFloat(val.Float())
	case KindString:
		s.write(quoteString(val.Text()))
	case KindList, KindObject:
		s.err = &EncodeError{Msg: "lists may only contain scalar values"}
	default:
		s.err = &EncodeError{Msg: "cannot encode invalid value"}
	}
}

// writeFloat writes a float literal. The grammar has no NaN or infinity
// literals and no exponents, so the plain decimal form is used; a whole
// float prints without a decimal point.
func (s *state) writeFloat(f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		s.err = &EncodeError{Msg: fmt.Sprintf("cannot encode %v: no literal form", f)}
		return
	}
	s.write(strconv.FormatFloat(f, 'f', -1, 64))
}

// quoteString quotes a string using the scanner's escape set.
func quoteString(str string) string {
	var b strings.Builder
	b.Grow(len(str) + 2)
	b.WriteByte('"')
	for i := 0; i < len(str); i++ {
		switch c := str[i]; c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\v':
			b.WriteString(`\v`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// isEmptyValue reports whether a value is skipped under omitempty. A
// struct counts as empty when every encodable field is empty.
func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	case reflect.Struct:
		if v.Type() == valueType {
			return v.Interface().(Value).Kind() == KindInvalid
		}
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			if name, _ := parseStructTag(field.Tag); name == "-" {
				continue
			}
			if !isEmptyValue(v.Field(i)) {
				return false
			}
		}
		return true
	}
	return false
}

var (
	marshalerType = reflect.TypeOf((*Marshaler)(nil)).Elem()

	// Keys are written bare, so they are restricted to what the scanner
	// accepts as an identifier.
	validKeyRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

func validKey(key string) bool {
	return validKeyRegex.MatchString(key)
}

func emptyObjectError(key string) *EncodeError {
	return &EncodeError{Msg: fmt.Sprintf("cannot encode empty object for key '%s'", key)}
}

// maxNestingDepth bounds how deep nested blocks can go. A self-referencing
// map or struct grows one level per recursion, so it trips this cap instead
// of recursing without bound.
const maxNestingDepth = 1000

func errCycle() *EncodeError {
	return &EncodeError{Msg: "encountered a circular or excessively deep data structure"}
}

// marshalerOf returns the Marshaler for v, if its type (or its pointer
// type, for addressable values) implements the interface.
func marshalerOf(v reflect.Value) (Marshaler, bool) {
	if !v.IsValid() {
		return nil, false
	}
	if v.Type().Implements(marshalerType) {
		if (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil() {
			return nil, false
		}
		return v.Interface().(Marshaler), true
	}
	if v.CanAddr() && reflect.PointerTo(v.Type()).Implements(marshalerType) {
		return v.Addr().Interface().(Marshaler), true
	}
	return nil, false
}

// indirect walks down a chain of pointers and interfaces to find the
// underlying concrete value. If a nil pointer is found, it returns an
// invalid reflect.Value, which is written as 'null'. The loop limit is a
// safeguard against circular data structures.
func indirect(v reflect.Value, err *error) reflect.Value {
	for i := 0; i < 1000; i++ {
		if !v.IsValid() {
			return v
		}
		kind := v.Kind()
		if kind != reflect.Pointer && kind != reflect.Interface {
			return v
		}
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	*err = errCycle()
	return reflect.Value{}
}
