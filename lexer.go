package huon

import (
	"fmt"
	"strconv"
)

// lexer tokenizes HUON input. It is a cursor over the whole input text;
// string and identifier tokens are substring views into it.
type lexer struct {
	input  string
	pos    int     // Current position in the input.
	line   int     // Current line number (1-based).
	tokens []Token // Token buffer for lookahead.
	tokPos int     // Current position in token buffer.
	strBuf []byte  // Reusable buffer for unescaping strings.
}

// newLexer creates a new lexer over the given input.
func newLexer(input string) *lexer {
	return &lexer{
		input:  input,
		line:   1,
		strBuf: make([]byte, 0, 64),
	}
}

// next returns the next token, consuming it.
func (l *lexer) next() (Token, error) {
	if l.tokPos < len(l.tokens) {
		tk := l.tokens[l.tokPos]
		l.tokPos++
		if l.tokPos == len(l.tokens) {
			l.tokens = l.tokens[:0]
			l.tokPos = 0
		}

		return tk, nil
	}

	return l.scan()
}

// peek returns the next token without consuming it.
func (l *lexer) peek() (Token, error) {
	if l.tokPos < len(l.tokens) {
		return l.tokens[l.tokPos], nil
	}

	tok, err := l.scan()
	if err != nil {
		return Token{Type: TokenError, Text: err.Error()}, err
	}

	l.tokens = append(l.tokens, tok)
	return tok, nil
}

// scan reads the next token from the current position.
func (l *lexer) scan() (Token, error) {
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Line: l.line}, nil
	}

	startLine := l.line
	c := l.input[l.pos]

	switch {
	case c == '"':
		return l.scanString()

	case isDigit(c) || c == '-':
		return l.scanNumber()

	case isIdentChar(c):
		return l.scanIdentOrKeyword()

	case c == '[':
		l.pos++
		return Token{Type: TokenListStart, Line: startLine}, nil

	case c == ']':
		l.pos++
		return Token{Type: TokenListEnd, Line: startLine}, nil

	case c == ',':
		l.pos++
		return Token{Type: TokenComma, Line: startLine}, nil

	case c == '\n':
		l.pos++
		l.line++
		return Token{Type: TokenNewline, Line: startLine}, nil

	case c == '\r':
		if l.pos+1 < len(l.input) && l.input[l.pos+1] == '\n' {
			l.pos += 2
			l.line++
			return Token{Type: TokenNewline, Line: startLine}, nil
		}
		return Token{Type: TokenError}, l.errorf("bare carriage return is not allowed")

	case c == ' ':
		start := l.pos
		for l.pos < len(l.input) && l.input[l.pos] == ' ' {
			l.pos++
		}
		return Token{Type: TokenWhitespace, Count: l.pos - start, Line: startLine}, nil

	default:
		return Token{Type: TokenError}, l.errorf("unexpected character '%c'", c)
	}
}

// scanString scans a double-quoted string. The returned Text is a direct
// view into the input unless the string contains escapes.
func (l *lexer) scanString() (Token, error) {
	startLine := l.line
	l.pos++ // Consume opening quote.
	start := l.pos

	// Fast path: look for the closing quote; bail to the slow path on the
	// first backslash.
	i := l.pos
	for ; i < len(l.input); i++ {
		c := l.input[i]
		if c == '\\' {
			break
		}
		if c == '"' {
			l.pos = i + 1
			return Token{Type: TokenString, Text: l.input[start:i], Line: startLine}, nil
		}
		if c == '\n' {
			l.line++
		}
	}
	if i >= len(l.input) {
		return Token{Type: TokenError}, l.errorf("unterminated string")
	}

	// Slow path: has escapes, use the reusable buffer.
	l.strBuf = append(l.strBuf[:0], l.input[start:i]...)
	l.pos = i
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch c {
		case '"':
			l.pos++
			return Token{Type: TokenString, Text: string(l.strBuf), Line: startLine}, nil
		case '\\':
			l.pos++
			if l.pos >= len(l.input) {
				return Token{Type: TokenError}, l.errorf("incomplete escape sequence")
			}

			switch esc := l.input[l.pos]; esc {
			case '"', '\\', '/':
				l.strBuf = append(l.strBuf, esc)
			case 'b':
				l.strBuf = append(l.strBuf, '\b')
			case 'f':
				l.strBuf = append(l.strBuf, '\f')
			case 'n':
				l.strBuf = append(l.strBuf, '\n')
			case 'r':
				l.strBuf = append(l.strBuf, '\r')
			case 't':
				l.strBuf = append(l.strBuf, '\t')
			case 'v':
				l.strBuf = append(l.strBuf, '\v')
			default:
				return Token{Type: TokenError}, l.errorf("invalid escape character '\\%c'", esc)
			}
			l.pos++
		case '\n':
			l.line++
			l.strBuf = append(l.strBuf, c)
			l.pos++
		default:
			l.strBuf = append(l.strBuf, c)
			l.pos++
		}
	}

	return Token{Type: TokenError}, l.errorf("unterminated string")
}

// scanNumber scans an integer or float literal. The numeric payload is
// parsed at scan time.
func (l *lexer) scanNumber() (Token, error) {
	startLine := l.line
	start := l.pos

	if l.input[l.pos] == '-' {
		l.pos++
		if l.pos >= len(l.input) || !isDigit(l.input[l.pos]) {
			return Token{Type: TokenError}, l.errorf("invalid numeric literal: expected digit after '-'")
		}
	}

	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}

	// A '.' makes it a float, but only when digits follow; otherwise the
	// dot is left for the next scan to reject.
	isFloat := false
	if l.pos+1 < len(l.input) && l.input[l.pos] == '.' && isDigit(l.input[l.pos+1]) {
		isFloat = true
		l.pos++
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
	}

	text := l.input[start:l.pos]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Token{Type: TokenError}, l.errorf("malformed float literal '%s'", text)
		}
		return Token{Type: TokenFloat, Text: text, Float: f, Line: startLine}, nil
	}

	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Token{Type: TokenError}, l.errorf("malformed integer literal '%s'", text)
	}
	return Token{Type: TokenInt, Text: text, Int: n, Line: startLine}, nil
}

// scanIdentOrKeyword scans a bare word. A trailing ':' marks it as a key;
// otherwise it must be one of the literal keywords.
func (l *lexer) scanIdentOrKeyword() (Token, error) {
	startLine := l.line
	start := l.pos

	for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
		l.pos++
	}
	word := l.input[start:l.pos]

	if l.pos < len(l.input) && l.input[l.pos] == ':' {
		l.pos++ // Consume the ':'.
		return Token{Type: TokenIdentifier, Text: word, Line: startLine}, nil
	}

	switch word {
	case "true", "false":
		return Token{Type: TokenBool, Text: word, Line: startLine}, nil
	case "null":
		return Token{Type: TokenNull, Line: startLine}, nil
	}

	return Token{Type: TokenError}, l.errorf("invalid identifier '%s'", word)
}

// errorf creates a scan error with the current line number.
func (l *lexer) errorf(format string, args ...any) error {
	return &ScanError{Line: l.line, Msg: fmt.Sprintf(format, args...)}
}

// Helper functions for character classification.
func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isAlpha(c) || isDigit(c) || c == '_'
}
