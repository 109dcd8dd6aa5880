package huon

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindNull
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindObject
)

// String returns the name of the kind as used in error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// Member is one key/value pair of an object. Object members preserve
// insertion order; keys are unique within an object.
type Member struct {
	Key   string
	Value Value
}

// Value is a parsed document fragment: a scalar, a list or an object.
// The zero Value has KindInvalid. Accessors are strict: requesting the
// payload of a different kind returns the zero value of that payload.
type Value struct {
	kind    Kind
	b       bool
	i       int64
	f       float64
	s       string
	items   []Value
	members []Member
}

// NullValue returns the null value.
func NullValue() Value { return Value{kind: KindNull} }

// BoolValue returns a boolean value.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// IntValue returns an integer value.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// FloatValue returns a float value.
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// StringValue returns a string value.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// ListValue returns a list value holding the given items.
func ListValue(items ...Value) Value { return Value{kind: KindList, items: items} }

// ObjectValue returns an object value holding the given members.
func ObjectValue(members ...Member) Value { return Value{kind: KindObject, members: members} }

// Kind returns the variant held by the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the boolean payload, or false for other kinds.
func (v Value) Bool() bool { return v.b }

// Int returns the integer payload, or 0 for other kinds.
func (v Value) Int() int64 { return v.i }

// Float returns the float payload, or 0 for other kinds.
func (v Value) Float() float64 { return v.f }

// Text returns the string payload, or "" for other kinds.
func (v Value) Text() string { return v.s }

// Len returns the number of items in a list or members in an object.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.items)
	case KindObject:
		return len(v.members)
	default:
		return 0
	}
}

// Index returns the i-th item of a list.
func (v Value) Index(i int) Value {
	if v.kind != KindList || i < 0 || i >= len(v.items) {
		return Value{}
	}
	return v.items[i]
}

// Items returns the items of a list in source order.
func (v Value) Items() []Value { return v.items }

// Get looks up an object member by key.
func (v Value) Get(key string) (Value, bool) {
	for i := range v.members {
		if v.members[i].Key == key {
			return v.members[i].Value, true
		}
	}
	return Value{}, false
}

// Members returns the members of an object in insertion order.
func (v Value) Members() []Member { return v.members }

// Set inserts or replaces an object member. A later Set under an existing
// key replaces the value in place, keeping the original position. Called
// on a non-object, the value becomes an empty object first.
func (v *Value) Set(key string, val Value) {
	if v.kind != KindObject {
		*v = Value{kind: KindObject}
	}
	for i := range v.members {
		if v.members[i].Key == key {
			v.members[i].Value = val
			return
		}
	}
	v.members = append(v.members, Member{Key: key, Value: val})
}

// Append adds items to a list. Called on a non-list, the value becomes an
// empty list first.
func (v *Value) Append(items ...Value) {
	if v.kind != KindList {
		*v = Value{kind: KindList}
	}
	v.items = append(v.items, items...)
}

// String returns a compact debug representation of the value.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	case KindList:
		var b strings.Builder
		b.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(item.String())
		}
		b.WriteByte(']')
		return b.String()
	case KindObject:
		var b strings.Builder
		b.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %s", m.Key, m.Value.String())
		}
		b.WriteByte('}')
		return b.String()
	default:
		return "invalid"
	}
}
