package huon

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValues(t *testing.T) {
	f := func(name, input string, expected map[string]any) {
		t.Helper()
		t.Run(name, func(t *testing.T) {
			t.Helper()
			var result any
			err := Unmarshal([]byte(input), &result)
			assert.NoError(t, err)
			assert.Equal(t, expected, result)
		})
	}

	f("empty", "", map[string]any{})
	f("null", "key: null", map[string]any{"key": nil})
	f("bool", "yes: true\nno: false", map[string]any{"yes": true, "no": false})
	f("int", "n: -42", map[string]any{"n": int64(-42)})
	f("float", "n: 3.25", map[string]any{"n": 3.25})
	f("string", `s: "hello"`, map[string]any{"s": "hello"})
	f("escaped_string", `s: "line\nbreak"`, map[string]any{"s": "line\nbreak"})
	f("list", "xs: [1 2.5 \"three\"]", map[string]any{"xs": []any{int64(1), 2.5, "three"}})
	f("empty_list", "xs: []", map[string]any{"xs": []any{}})

	f("nested", "outer:\n    inner: 1", map[string]any{
		"outer": map[string]any{"inner": int64(1)},
	})

	f("siblings_after_block", "job:\n    title: \"swe\"\nage: 32", map[string]any{
		"job": map[string]any{"title": "swe"},
		"age": int64(32),
	})

	f("duplicate_key", "a: 1\na: 2", map[string]any{"a": int64(2)})
}

func TestUnmarshalStruct(t *testing.T) {
	type server struct {
		Host    string   `huon:"host"`
		Port    int      `huon:"port"`
		Debug   bool     `huon:"debug"`
		Tags    []string `huon:"tags"`
		Ignored string   `huon:"-"`
	}

	input := "host: \"localhost\"\nport: 8080\ndebug: true\ntags: [\"a\" \"b\"]\nextra: 1"
	var s server
	err := Unmarshal([]byte(input), &s)
	assert.NoError(t, err)
	assert.Equal(t, server{
		Host:  "localhost",
		Port:  8080,
		Debug: true,
		Tags:  []string{"a", "b"},
	}, s)
}

func TestUnmarshalUntagged(t *testing.T) {
	// Without a tag the Go field name itself is the key.
	type point struct {
		X int64
		Y int64
	}

	var p point
	err := Unmarshal([]byte("X: 3\nY: -7"), &p)
	assert.NoError(t, err)
	assert.Equal(t, point{X: 3, Y: -7}, p)
}

func TestUnmarshalPointerField(t *testing.T) {
	type config struct {
		Name  string  `huon:"name"`
		Limit *int64  `huon:"limit"`
		Note  *string `huon:"note"`
	}

	var c config
	err := Unmarshal([]byte("name: \"x\"\nlimit: 10\nnote: null"), &c)
	assert.NoError(t, err)
	assert.Equal(t, "x", c.Name)
	if assert.NotNil(t, c.Limit) {
		assert.Equal(t, int64(10), *c.Limit)
	}
	assert.Nil(t, c.Note)
}

func TestNumericConversions(t *testing.T) {
	type numbers struct {
		F float64 `huon:"f"`
		I int64   `huon:"i"`
		U uint16  `huon:"u"`
		B int8    `huon:"b"`
	}

	t.Run("int_into_float", func(t *testing.T) {
		var n numbers
		err := Unmarshal([]byte("f: 42"), &n)
		assert.NoError(t, err)
		assert.Equal(t, 42.0, n.F)
	})

	t.Run("whole_float_into_int", func(t *testing.T) {
		var n numbers
		err := Unmarshal([]byte("i: 42.0"), &n)
		assert.NoError(t, err)
		assert.Equal(t, int64(42), n.I)
	})

	t.Run("fractional_float_into_int", func(t *testing.T) {
		var n numbers
		err := Unmarshal([]byte("i: 42.5"), &n)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "cannot unmarshal float")
	})

	t.Run("negative_into_uint", func(t *testing.T) {
		var n numbers
		err := Unmarshal([]byte("u: -1"), &n)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "negative")
	})

	t.Run("int_overflow", func(t *testing.T) {
		var n numbers
		err := Unmarshal([]byte("b: 1000"), &n)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "overflows")
	})

	t.Run("string_into_int", func(t *testing.T) {
		var n numbers
		err := Unmarshal([]byte(`i: "42"`), &n)
		assert.Error(t, err)

		var decodeErr *DecodeError
		if assert.ErrorAs(t, err, &decodeErr) {
			assert.Equal(t, KindString, decodeErr.Kind)
		}
	})
}

// span builds itself from a two-element list via the Unmarshaler hook.
type span struct {
	Lo, Hi int64
}

func (s *span) UnmarshalHUON(v Value) error {
	if v.Kind() != KindList || v.Len() != 2 {
		return errors.New("span must be a two-element list")
	}
	s.Lo = v.Index(0).Int()
	s.Hi = v.Index(1).Int()
	return nil
}

func TestUnmarshaler(t *testing.T) {
	type job struct {
		Name  string `huon:"name"`
		Hours span   `huon:"hours"`
	}

	var j job
	err := Unmarshal([]byte("name: \"night shift\"\nhours: [22 6]"), &j)
	assert.NoError(t, err)
	assert.Equal(t, job{Name: "night shift", Hours: span{Lo: 22, Hi: 6}}, j)

	err = Unmarshal([]byte("hours: [1 2 3]"), &j)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "two-element list")
}

// optionalInt distinguishes an explicit null from a set value, which only
// works because the Unmarshaler hook runs for null too.
type optionalInt struct {
	Present bool
	Val     int64
}

func (o *optionalInt) UnmarshalHUON(v Value) error {
	switch v.Kind() {
	case KindNull:
		*o = optionalInt{}
		return nil
	case KindInt:
		*o = optionalInt{Present: true, Val: v.Int()}
		return nil
	}
	return errors.New("expected an integer or null")
}

func TestUnmarshalerNull(t *testing.T) {
	type doc struct {
		A optionalInt `huon:"a"`
		B optionalInt `huon:"b"`
	}

	// Pre-set state proves the hook ran and reset the field, rather than
	// null being swallowed before the hook.
	d := doc{A: optionalInt{Present: true, Val: 9}}
	err := Unmarshal([]byte("a: null\nb: 7"), &d)
	assert.NoError(t, err)
	assert.Equal(t, optionalInt{}, d.A)
	assert.Equal(t, optionalInt{Present: true, Val: 7}, d.B)
}

func TestUnmarshalValue(t *testing.T) {
	var v Value
	err := Unmarshal([]byte("a: 1\nb:\n    c: \"x\""), &v)
	assert.NoError(t, err)
	assert.Equal(t, ObjectValue(
		Member{Key: "a", Value: IntValue(1)},
		Member{Key: "b", Value: ObjectValue(
			Member{Key: "c", Value: StringValue("x")},
		)},
	), v)
}

func TestUnmarshalDestinations(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		err := Unmarshal([]byte("a: 1"), nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "nil value")
	})

	t.Run("not_a_pointer", func(t *testing.T) {
		var m map[string]any
		err := Unmarshal([]byte("a: 1"), m)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not a pointer")
	})

	t.Run("nil_pointer", func(t *testing.T) {
		var p *map[string]any
		err := Unmarshal([]byte("a: 1"), p)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "pointer is nil")
	})

	t.Run("map_destination", func(t *testing.T) {
		var m map[string]int64
		err := Unmarshal([]byte("a: 1\nb: 2"), &m)
		assert.NoError(t, err)
		assert.Equal(t, map[string]int64{"a": 1, "b": 2}, m)
	})

	t.Run("unsupported_kind", func(t *testing.T) {
		var ch chan int
		err := Unmarshal([]byte("a: 1"), &ch)
		assert.Error(t, err)
	})
}

type errorReader struct{}

func (errorReader) Read([]byte) (int, error) {
	return 0, errors.New("reader error")
}

func TestDecoder(t *testing.T) {
	t.Run("reads_everything_once", func(t *testing.T) {
		dec := NewDecoder(strings.NewReader("a: 1"))

		var first map[string]any
		assert.NoError(t, dec.Decode(&first))
		assert.Equal(t, map[string]any{"a": int64(1)}, first)

		var second map[string]any
		assert.Equal(t, io.EOF, dec.Decode(&second))
	})

	t.Run("failure_is_sticky", func(t *testing.T) {
		dec := NewDecoder(strings.NewReader("a: @"))

		var m map[string]any
		first := dec.Decode(&m)
		assert.Error(t, first)

		// The broken stream keeps reporting its error, not a clean EOF.
		assert.Equal(t, first, dec.Decode(&m))
	})

	t.Run("bytes_buffer", func(t *testing.T) {
		var buf bytes.Buffer
		buf.WriteString("a: 1")

		var m map[string]any
		assert.NoError(t, NewDecoder(&buf).Decode(&m))
		assert.Equal(t, map[string]any{"a": int64(1)}, m)
	})

	t.Run("reader_failure", func(t *testing.T) {
		var m map[string]any
		err := NewDecoder(errorReader{}).Decode(&m)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "reader error")
	})

	t.Run("set_indent", func(t *testing.T) {
		dec := NewDecoder(strings.NewReader("a:\n  b: 1"))
		dec.SetIndent(2)

		var m map[string]any
		assert.NoError(t, dec.Decode(&m))
		assert.Equal(t, map[string]any{"a": map[string]any{"b": int64(1)}}, m)
	})

	t.Run("set_indent_panics", func(t *testing.T) {
		dec := NewDecoder(strings.NewReader(""))
		assert.Panics(t, func() { dec.SetIndent(0) })
	})

	t.Run("disallow_duplicate_keys", func(t *testing.T) {
		dec := NewDecoder(strings.NewReader("a: 1\na: 2"))
		dec.DisallowDuplicateKeys()

		var m map[string]any
		err := dec.Decode(&m)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate key 'a'")
	})
}

func TestUnmarshalErrorTypes(t *testing.T) {
	var m map[string]any

	var scanErr *ScanError
	err := Unmarshal([]byte("a: @"), &m)
	assert.ErrorAs(t, err, &scanErr)

	var parseErr *ParseError
	err = Unmarshal([]byte("a:"), &m)
	assert.ErrorAs(t, err, &parseErr)

	var decodeErr *DecodeError
	var n int64
	err = Unmarshal([]byte(`a: "x"`), &struct {
		A *int64 `huon:"a"`
	}{A: &n})
	assert.ErrorAs(t, err, &decodeErr)
}

// normalizeToJSON rewrites decoded values so they compare equal to the
// output of encoding/json, which decodes every number as float64.
func normalizeToJSON(v any) any {
	switch t := v.(type) {
	case int64:
		return float64(t)
	case []any:
		for i, item := range t {
			t[i] = normalizeToJSON(item)
		}
		return t
	case map[string]any:
		for k, item := range t {
			t[k] = normalizeToJSON(item)
		}
		return t
	default:
		return v
	}
}

// TestDocuments decodes every testdata document and checks it against its
// JSON counterpart.
func TestDocuments(t *testing.T) {
	paths, err := filepath.Glob("testdata/*.huon")
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	if len(paths) == 0 {
		t.Fatal("no testdata documents found")
	}

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("reading %s: %v", path, err)
			}
			jsonData, err := os.ReadFile(strings.TrimSuffix(path, ".huon") + ".json")
			if err != nil {
				t.Fatalf("reading JSON counterpart: %v", err)
			}

			var got any
			assert.NoError(t, Unmarshal(data, &got))

			var want any
			assert.NoError(t, json.Unmarshal(jsonData, &want))

			assert.Equal(t, want, normalizeToJSON(got))
		})
	}
}

func FuzzParsing(f *testing.F) {
	seeds := []string{
		"",
		"a: 1",
		`name: "John"`,
		"a:\n    b: 2.5",
		"codes: [-3.5 2.5 1.1]",
		"a:\n    b:\n        c: 1\n    d: 2\ne: 3",
		"list: [\n    1,\n    2,\n]",
		"s: \"a\\nb\"",
		"a: tru",
		"a:  1",
		"  a: 1",
		"a: [1",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		var v any
		// Must never panic, whatever the input.
		_ = Unmarshal([]byte(input), &v)
	})
}

func BenchmarkParseHUON(b *testing.B) {
	data, err := os.ReadFile("testdata/person.huon")
	if err != nil {
		b.Fatalf("reading testdata: %v", err)
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		var v any
		if err := Unmarshal(data, &v); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkParseJSON(b *testing.B) {
	data, err := os.ReadFile("testdata/person.json")
	if err != nil {
		b.Fatalf("reading testdata: %v", err)
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			b.Fatal(err)
		}
	}
}
