package huon

import "fmt"

// frame is one open object block during parsing. Its members are folded
// into the parent frame under keyTok when the block closes.
type frame struct {
	members []Member
	level   int   // Nesting level: leading spaces / indent unit.
	keyTok  Token // Key under which this block lives in its parent.
}

// parser assembles the token stream into the root object value. Dedents
// are handled with an explicit frame stack: a line that dedents by N
// levels in one step pops N frames before the next entry is parsed,
// folding each finished block into its parent as it goes.
type parser struct {
	lex        *lexer
	indent     int // Spaces per nesting level.
	strictKeys bool
	frames     []frame
}

// newParser creates a parser over the lexer. indent is the number of
// spaces that constitute one nesting level.
func newParser(l *lexer, indent int, strictKeys bool) *parser {
	return &parser{lex: l, indent: indent, strictKeys: strictKeys}
}

// parseDocument parses a whole document into its root object.
func parseDocument(input string, indent int, strictKeys bool) (Value, error) {
	return newParser(newLexer(input), indent, strictKeys).parse()
}

// parse consumes the token stream to exhaustion and returns the root
// object. Empty input yields an empty object.
func (p *parser) parse() (Value, error) {
	p.frames = append(p.frames[:0], frame{level: 0})

	for {
		tk, err := p.lex.peek()
		if err != nil {
			return Value{}, err
		}

		switch tk.Type {
		case TokenEOF:
			for len(p.frames) > 1 {
				if err := p.fold(); err != nil {
					return Value{}, err
				}
			}
			return ObjectValue(p.frames[0].members...), nil

		case TokenNewline:
			// Blank lines carry no structure.
			p.lex.next()

		case TokenWhitespace:
			level := tk.Count / p.indent
			p.lex.next()

			// Close every block deeper than this line's level.
			for len(p.frames) > 1 && p.top().level > level {
				if err := p.fold(); err != nil {
					return Value{}, err
				}
			}
			if p.top().level != level {
				return Value{}, p.errorf(tk, "invalid token %s: no block open at this indentation", tk)
			}

			if err := p.parseEntry(); err != nil {
				return Value{}, err
			}

		case TokenIdentifier:
			// A key at column zero closes every open block.
			for len(p.frames) > 1 {
				if err := p.fold(); err != nil {
					return Value{}, err
				}
			}
			if err := p.parseEntry(); err != nil {
				return Value{}, err
			}

		default:
			return Value{}, p.errorf(tk, "invalid token %s at start of line", tk)
		}
	}
}

// parseEntry parses one "key value" or "key, nested block" production
// into the current frame. Descending into a nested block pushes a frame
// and continues with the block's first entry.
func (p *parser) parseEntry() error {
	for {
		keyTok, err := p.lex.next()
		if err != nil {
			return err
		}
		if keyTok.Type != TokenIdentifier {
			return p.errorf(keyTok, "invalid token %s: expected a key", keyTok)
		}

		tk, err := p.lex.next()
		if err != nil {
			return err
		}

		switch {
		case tk.Type == TokenWhitespace && tk.Count == 1:
			// Exactly one space: an inline value follows.
			val, err := p.parseInlineValue()
			if err != nil {
				return err
			}
			return p.insert(keyTok, val)

		case tk.Type == TokenNewline:
			// A nested block follows; it must be indented strictly deeper.
			wt, err := p.lex.next()
			if err != nil {
				return err
			}
			if wt.Type != TokenWhitespace || wt.Count/p.indent <= p.top().level {
				return p.errorf(wt, "invalid token %s: block under key '%s' must be indented deeper", wt, keyTok.Text)
			}
			p.frames = append(p.frames, frame{level: wt.Count / p.indent, keyTok: keyTok})

		case tk.Type == TokenEOF:
			return p.errorf(tk, "unexpected end of input after key '%s'", keyTok.Text)

		default:
			return p.errorf(tk, "invalid token %s after key '%s'", tk, keyTok.Text)
		}
	}
}

// parseInlineValue parses the value part of an entry: a bracketed list or
// a single scalar literal.
func (p *parser) parseInlineValue() (Value, error) {
	tk, err := p.lex.peek()
	if err != nil {
		return Value{}, err
	}

	if tk.Type == TokenListStart {
		return p.parseList()
	}

	tk, err = p.lex.next()
	if err != nil {
		return Value{}, err
	}
	return p.scalarValue(tk)
}

// parseList parses a bracketed list of scalars. Whitespace, newlines and
// commas are all pure separators, so [a b c] and a multi-line block with
// one value per line parse identically.
func (p *parser) parseList() (Value, error) {
	p.lex.next() // Consume '['.

	var items []Value
	for {
		tk, err := p.lex.next()
		if err != nil {
			return Value{}, err
		}

		switch tk.Type {
		case TokenListEnd:
			return ListValue(items...), nil
		case TokenWhitespace, TokenNewline, TokenComma:
			// Separators carry no meaning inside a list.
		case TokenEOF:
			return Value{}, p.errorf(tk, "unexpected end of input inside list")
		default:
			val, err := p.scalarValue(tk)
			if err != nil {
				return Value{}, err
			}
			items = append(items, val)
		}
	}
}

// scalarValue converts a literal token to its value.
func (p *parser) scalarValue(tk Token) (Value, error) {
	switch tk.Type {
	case TokenString:
		return StringValue(tk.Text), nil
	case TokenInt:
		return IntValue(tk.Int), nil
	case TokenFloat:
		return FloatValue(tk.Float), nil
	case TokenBool:
		return BoolValue(tk.Text == "true"), nil
	case TokenNull:
		return NullValue(), nil
	case TokenEOF:
		return Value{}, p.errorf(tk, "unexpected end of input, expected a value")
	default:
		return Value{}, p.errorf(tk, "invalid value %s", tk)
	}
}

// insert adds a key/value pair to the current frame. A duplicate key
// overwrites the earlier value in place, unless strict keys are on.
func (p *parser) insert(keyTok Token, val Value) error {
	top := p.top()
	for i := range top.members {
		if top.members[i].Key == keyTok.Text {
			if p.strictKeys {
				return p.errorf(keyTok, "duplicate key '%s'", keyTok.Text)
			}
			top.members[i].Value = val
			return nil
		}
	}
	top.members = append(top.members, Member{Key: keyTok.Text, Value: val})
	return nil
}

// fold closes the innermost frame and inserts it into its parent.
func (p *parser) fold() error {
	n := len(p.frames) - 1
	f := p.frames[n]
	p.frames = p.frames[:n]
	return p.insert(f.keyTok, ObjectValue(f.members...))
}

func (p *parser) top() *frame {
	return &p.frames[len(p.frames)-1]
}

// errorf creates a parse error carrying the offending token.
func (p *parser) errorf(tok Token, format string, args ...any) error {
	return &ParseError{Line: tok.Line, Msg: fmt.Sprintf(format, args...), Token: tok}
}
