// Package huon provides functionality for parsing, encoding and decoding
// HUON (Human-Oriented Object Notation) documents.
package huon

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strings"
)

// Unmarshaler is implemented by types that can build themselves from a
// parsed document value. When a destination implements it, UnmarshalHUON
// is called with the value instead of the reflection bridge, including
// for null values.
type Unmarshaler interface {
	UnmarshalHUON(v Value) error
}

// Decoder reads and decodes a HUON document from an input stream.
type Decoder struct {
	r          io.Reader
	indent     int
	strictKeys bool
	done       bool
	err        error // Sticky read or syntax error from the first Decode.
}

// NewDecoder returns a new decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, indent: 4}
}

// SetIndent sets the number of spaces that constitute one nesting level.
// The default is 4. It panics if n is less than 1.
func (dec *Decoder) SetIndent(n int) {
	if n < 1 {
		panic("huon: indent must be at least 1")
	}
	dec.indent = n
}

// DisallowDuplicateKeys makes the decoder fail when an object contains the
// same key twice. By default the last occurrence wins.
func (dec *Decoder) DisallowDuplicateKeys() {
	dec.strictKeys = true
}

// Decode reads the whole HUON document from the input stream and stores
// the result in the pointer v. All input is consumed on the first call;
// after a successful decode, subsequent calls return io.EOF. A read or
// syntax error is sticky and is returned again by later calls.
func (dec *Decoder) Decode(v any) error {
	if dec.done {
		if dec.err != nil {
			return dec.err
		}
		return io.EOF
	}
	dec.done = true

	data, err := io.ReadAll(dec.r)
	if err != nil {
		dec.err = err
		return err
	}

	root, err := parseDocument(string(data), dec.indent, dec.strictKeys)
	if err != nil {
		dec.err = err
		return err
	}

	return assign(v, root)
}

// Unmarshal parses HUON data and stores the result in the value pointed to
// by v. If v is nil or not a pointer, it returns an error.
//
// It converts HUON data into values with the following mappings:
//   - strings for quoted strings
//   - int64 for integers
//   - float64 for floating point numbers
//   - bool for true/false
//   - nil for null
//   - []any for lists and map[string]any for nested objects
//
// Struct destinations map document keys to fields via `huon` tags. Numeric
// fields accept the other numeric kind only when no precision is lost: a
// float field accepts an integer literal, an integer field accepts a whole
// float. The bridge performs no other coercion.
//
// If the data contains a syntax error, a scan or parse error is returned
// with its line number.
func Unmarshal(data []byte, v any) error {
	dec := NewDecoder(bytes.NewReader(data))
	return dec.Decode(v)
}

var valueType = reflect.TypeOf(Value{})

// assign sets the destination pointer from the parsed document value.
func assign(dst any, v Value) error {
	if dst == nil {
		return errors.New("cannot unmarshal into a nil value")
	}

	val := reflect.ValueOf(dst)
	if val.Kind() != reflect.Pointer {
		return errors.New("destination is not a pointer")
	}
	if val.IsNil() {
		return errors.New("destination pointer is nil")
	}

	return assignValue(val.Elem(), v)
}

// assignValue recursively sets dst from the document value v.
func assignValue(dst reflect.Value, v Value) error {
	// A destination implementing Unmarshaler handles the value itself.
	if dst.CanAddr() {
		if u, ok := dst.Addr().Interface().(Unmarshaler); ok {
			return u.UnmarshalHUON(v)
		}
	}

	// A Value destination receives the tree as-is.
	if dst.Type() == valueType {
		dst.Set(reflect.ValueOf(v))
		return nil
	}

	if dst.Kind() == reflect.Interface && dst.NumMethod() == 0 {
		if v.IsNull() {
			dst.Set(reflect.Zero(dst.Type()))
		} else {
			dst.Set(reflect.ValueOf(native(v)))
		}
		return nil
	}

	if dst.Kind() == reflect.Pointer {
		// Null means absence for optional fields.
		if v.IsNull() {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return assignValue(dst.Elem(), v)
	}

	if v.IsNull() {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	switch dst.Kind() {
	case reflect.Struct:
		return assignStruct(dst, v)
	case reflect.Slice:
		return assignSlice(dst, v)
	case reflect.Map:
		return assignMap(dst, v)
	case reflect.String:
		return assignString(dst, v)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return assignInt(dst, v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return assignUint(dst, v)
	case reflect.Float32, reflect.Float64:
		return assignFloat(dst, v)
	case reflect.Bool:
		return assignBool(dst, v)
	default:
		return &DecodeError{Kind: v.Kind(), Type: dst.Type()}
	}
}

// native converts a document value to its natural Go representation.
func native(v Value) any {
	switch v.Kind() {
	case KindBool:
		return v.Bool()
	case KindInt:
		return v.Int()
	case KindFloat:
		return v.Float()
	case KindString:
		return v.Text()
	case KindList:
		out := make([]any, v.Len())
		for i, item := range v.Items() {
			out[i] = native(item)
		}
		return out
	case KindObject:
		out := make(map[string]any, v.Len())
		for _, m := range v.Members() {
			out[m.Key] = native(m.Value)
		}
		return out
	default:
		return nil
	}
}

// assignStruct unmarshals an object into a struct. Document keys with no
// matching field are ignored.
func assignStruct(dst reflect.Value, v Value) error {
	if v.Kind() != KindObject {
		return &DecodeError{Kind: v.Kind(), Type: dst.Type()}
	}

	structType := dst.Type()
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		fieldValue := dst.Field(i)

		// Skip unexported fields.
		if !fieldValue.CanSet() {
			continue
		}

		fieldName := getFieldName(field)
		if fieldName == "-" {
			continue
		}

		if member, ok := v.Get(fieldName); ok {
			if err := assignValue(fieldValue, member); err != nil {
				return fmt.Errorf("error setting field %s: %w", field.Name, err)
			}
		}
	}

	return nil
}

// getFieldName returns the field name to use for mapping, checking for
// struct tags.
func getFieldName(field reflect.StructField) string {
	name, _ := parseStructTag(field.Tag)
	if name == "" {
		return field.Name
	}
	return name
}

// parseStructTag splits a `huon` struct tag into its name and options.
func parseStructTag(tag reflect.StructTag) (name string, omitEmpty bool) {
	t := tag.Get("huon")
	if t == "" {
		return "", false
	}

	parts := strings.Split(t, ",")
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return parts[0], omitEmpty
}

// assignSlice unmarshals a list into a slice, in source order.
func assignSlice(dst reflect.Value, v Value) error {
	if v.Kind() != KindList {
		return &DecodeError{Kind: v.Kind(), Type: dst.Type()}
	}

	items := v.Items()
	newSlice := reflect.MakeSlice(dst.Type(), len(items), len(items))

	for i, item := range items {
		if err := assignValue(newSlice.Index(i), item); err != nil {
			return fmt.Errorf("error setting slice element %d: %w", i, err)
		}
	}

	dst.Set(newSlice)
	return nil
}

// assignMap unmarshals an object into a map.
func assignMap(dst reflect.Value, v Value) error {
	if v.Kind() != KindObject {
		return &DecodeError{Kind: v.Kind(), Type: dst.Type()}
	}

	mapType := dst.Type()
	if mapType.Key().Kind() != reflect.String {
		return &DecodeError{Kind: v.Kind(), Type: dst.Type(), Msg: "maps with non-string keys are not supported"}
	}

	elemType := mapType.Elem()
	newMap := reflect.MakeMap(mapType)

	for _, m := range v.Members() {
		elem := reflect.New(elemType).Elem()
		if err := assignValue(elem, m.Value); err != nil {
			return fmt.Errorf("error setting map value for key %s: %w", m.Key, err)
		}
		newMap.SetMapIndex(reflect.ValueOf(m.Key).Convert(mapType.Key()), elem)
	}

	dst.Set(newMap)
	return nil
}

func assignString(dst reflect.Value, v Value) error {
	if v.Kind() != KindString {
		return &DecodeError{Kind: v.Kind(), Type: dst.Type()}
	}
	dst.SetString(v.Text())
	return nil
}

// assignInt sets an integer destination from an integer literal, or from
// a whole float.
func assignInt(dst reflect.Value, v Value) error {
	switch v.Kind() {
	case KindInt:
		if dst.OverflowInt(v.Int()) {
			return &DecodeError{Kind: v.Kind(), Type: dst.Type(), Msg: fmt.Sprintf("value %d overflows %s", v.Int(), dst.Type())}
		}
		dst.SetInt(v.Int())
		return nil
	case KindFloat:
		f := v.Float()
		if f != math.Trunc(f) {
			return &DecodeError{Kind: v.Kind(), Type: dst.Type(), Msg: fmt.Sprintf("cannot unmarshal float %g into %s", f, dst.Type())}
		}
		n := int64(f)
		if dst.OverflowInt(n) {
			return &DecodeError{Kind: v.Kind(), Type: dst.Type(), Msg: fmt.Sprintf("value %g overflows %s", f, dst.Type())}
		}
		dst.SetInt(n)
		return nil
	default:
		return &DecodeError{Kind: v.Kind(), Type: dst.Type()}
	}
}

func assignUint(dst reflect.Value, v Value) error {
	switch v.Kind() {
	case KindInt:
		if v.Int() < 0 {
			return &DecodeError{Kind: v.Kind(), Type: dst.Type(), Msg: fmt.Sprintf("cannot unmarshal negative value %d into %s", v.Int(), dst.Type())}
		}
		n := uint64(v.Int())
		if dst.OverflowUint(n) {
			return &DecodeError{Kind: v.Kind(), Type: dst.Type(), Msg: fmt.Sprintf("value %d overflows %s", v.Int(), dst.Type())}
		}
		dst.SetUint(n)
		return nil
	case KindFloat:
		f := v.Float()
		if f < 0 || f != math.Trunc(f) {
			return &DecodeError{Kind: v.Kind(), Type: dst.Type(), Msg: fmt.Sprintf("cannot unmarshal float %g into %s", f, dst.Type())}
		}
		n := uint64(f)
		if dst.OverflowUint(n) {
			return &DecodeError{Kind: v.Kind(), Type: dst.Type(), Msg: fmt.Sprintf("value %g overflows %s", f, dst.Type())}
		}
		dst.SetUint(n)
		return nil
	default:
		return &DecodeError{Kind: v.Kind(), Type: dst.Type()}
	}
}

// assignFloat sets a float destination from a float literal, or from an
// integer literal.
func assignFloat(dst reflect.Value, v Value) error {
	var f float64
	switch v.Kind() {
	case KindFloat:
		f = v.Float()
	case KindInt:
		f = float64(v.Int())
	default:
		return &DecodeError{Kind: v.Kind(), Type: dst.Type()}
	}

	if dst.OverflowFloat(f) {
		return &DecodeError{Kind: v.Kind(), Type: dst.Type(), Msg: fmt.Sprintf("value %g overflows %s", f, dst.Type())}
	}
	dst.SetFloat(f)
	return nil
}

func assignBool(dst reflect.Value, v Value) error {
	if v.Kind() != KindBool {
		return &DecodeError{Kind: v.Kind(), Type: dst.Type()}
	}
	dst.SetBool(v.Bool())
	return nil
}
