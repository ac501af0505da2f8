// Package token defines the lexical tokens of the concept DSL.
package token

import "fmt"

// Kind represents the kind of a lexical token.
type Kind int

const (
	// EOF marks the end of the token stream.
	EOF Kind = iota
	// Ident is a bare identifier or keyword: a run of [A-Za-z0-9_].
	Ident
	// String is a single- or double-quoted string. Text holds the unescaped value.
	String
	// Punct is a single punctuation character: { } ; . :
	Punct
)

var kindNames = map[Kind]string{
	EOF:    "EOF",
	Ident:  "IDENT",
	String: "STRING",
	Punct:  "PUNCT",
}

// String returns a human-readable representation of the token kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KIND(%d)", int(k))
}

// Punctuation characters recognised by the lexer.
const (
	LBrace    = "{"
	RBrace    = "}"
	Semicolon = ";"
	Dot       = "."
	Colon     = ":"
)

// IsPunct reports whether ch is a punctuation character.
func IsPunct(ch byte) bool {
	switch ch {
	case '{', '}', ';', '.', ':':
		return true
	}
	return false
}

// Token represents a lexical token with position information.
type Token struct {
	Kind Kind
	Text string
	// Raw is the token text as written, including quotes for strings.
	Raw string
	Pos Position
}

// Is reports whether the token is the given punctuation.
func (t Token) Is(punct string) bool {
	return t.Kind == Punct && t.Text == punct
}

// IsValue reports whether the token can be read as a member value.
func (t Token) IsValue() bool {
	return t.Kind == Ident || t.Kind == String
}

// String returns a description of the token for error messages.
func (t Token) String() string {
	switch t.Kind {
	case EOF:
		return "end of input"
	case String:
		return fmt.Sprintf("string %s", t.Raw)
	case Punct:
		return fmt.Sprintf("'%s'", t.Text)
	default:
		return fmt.Sprintf("'%s'", t.Text)
	}
}
