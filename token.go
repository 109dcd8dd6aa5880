package huon

import "fmt"

// TokenType represents the type of a lexical token in HUON.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenError

	// Structural tokens.
	TokenNewline    // '\n' or '\r\n'.
	TokenWhitespace // Run of consecutive spaces (carries the run length).

	// Key token.
	TokenIdentifier // Key name, recognized by its trailing ':'.

	// Value tokens.
	TokenString // Quoted string value.
	TokenInt    // 64-bit signed integer value.
	TokenFloat  // 64-bit float value.
	TokenBool   // true or false.
	TokenNull   // null.

	// List tokens.
	TokenListStart // [.
	TokenListEnd   // ].
	TokenComma     // ',' list separator.
)

// Token represents a lexical token from HUON input. Text holds the raw
// payload for identifiers, strings and keywords; Int and Float hold the
// parsed payload for numeric tokens; Count holds the run length for
// whitespace tokens.
type Token struct {
	Type  TokenType
	Text  string  // String payload (keys, strings, keywords).
	Int   int64   // Parsed integer payload.
	Float float64 // Parsed float payload.
	Count int     // Whitespace run length.
	Line  int     // Line number (1-based).
}

// String returns a human-readable representation of the token.
func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenError:
		return fmt.Sprintf("Error(%s)", t.Text)
	case TokenNewline:
		return "Newline"
	case TokenWhitespace:
		return fmt.Sprintf("Whitespace(%d)", t.Count)
	case TokenIdentifier:
		return fmt.Sprintf("Identifier(%s)", t.Text)
	case TokenString:
		return fmt.Sprintf("String(%q)", t.Text)
	case TokenInt:
		return fmt.Sprintf("Int(%d)", t.Int)
	case TokenFloat:
		return fmt.Sprintf("Float(%v)", t.Float)
	case TokenBool:
		return fmt.Sprintf("Bool(%s)", t.Text)
	case TokenNull:
		return "Null"
	case TokenListStart:
		return "["
	case TokenListEnd:
		return "]"
	case TokenComma:
		return ","
	default:
		return fmt.Sprintf("Unknown(%d)", t.Type)
	}
}
