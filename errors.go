package huon

import (
	"fmt"
	"reflect"
)

// ScanError is a lexical error, reported with the line it occurred on.
type ScanError struct {
	Line int
	Msg  string
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// ParseError is a structural error from the parser. Token carries the
// offending token where one exists.
type ParseError struct {
	Line  int
	Msg   string
	Token Token
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// DecodeError reports a mismatch between a document value and the Go type
// it is being decoded into.
type DecodeError struct {
	Kind Kind         // Kind of the document value.
	Type reflect.Type // Go type of the destination.
	Msg  string       // Overrides the default message when set.
}

func (e *DecodeError) Error() string {
	if e.Msg != "" {
		return "huon: " + e.Msg
	}
	return fmt.Sprintf("huon: cannot unmarshal %s into %s", e.Kind, e.Type)
}

// EncodeError reports a Go value that cannot be represented as HUON, or a
// failed write to the output stream.
type EncodeError struct {
	Type reflect.Type // Go type of the value, where one applies.
	Msg  string
	Err  error // Underlying write error, if any.
}

func (e *EncodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("huon: %s: %v", e.Msg, e.Err)
	}
	return "huon: " + e.Msg
}

func (e *EncodeError) Unwrap() error { return e.Err }
