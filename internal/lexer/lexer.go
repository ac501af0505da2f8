// Package lexer splits DSL scripts into position-tagged tokens.
package lexer

import (
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/conceptc/pkg/dslerr"
	"github.com/leapstack-labs/conceptc/pkg/token"
)

// Script is a named DSL source text.
type Script struct {
	Name string
	Text string
}

// Lexer tokenizes a single script.
type Lexer struct {
	script string
	input  string
	pos    int  // offset of ch
	ch     byte // current char, 0 at end of input
	line   int  // line of ch (1-based)
	col    int  // column of ch (1-based)

	// Comments collected during lexing.
	Comments []*token.Comment
}

// New creates a new Lexer for the given script.
func New(s Script) *Lexer {
	l := &Lexer{
		script: s.Name,
		input:  s.Text,
		pos:    -1,
		line:   1,
		col:    0,
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.pos >= 0 && l.pos < len(l.input) && l.input[l.pos] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	if l.pos < len(l.input) {
		l.pos++
	}
	if l.pos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.pos]
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.pos+1]
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// currentPos returns the position of the current character.
func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Script: l.script,
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// NextToken returns the next token. At the end of the script it returns an
// EOF token; calling it again keeps returning EOF.
func (l *Lexer) NextToken() (token.Token, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return token.Token{}, err
	}

	pos := l.currentPos()
	if l.atEOF() {
		return token.Token{Kind: token.EOF, Pos: pos}, nil
	}

	switch {
	case l.ch == '\'' || l.ch == '"':
		return l.readString(pos)
	case isIdentChar(l.ch):
		text := l.readIdentifier()
		return token.Token{Kind: token.Ident, Text: text, Raw: text, Pos: pos}, nil
	case token.IsPunct(l.ch):
		text := string(l.ch)
		l.readChar()
		return token.Token{Kind: token.Punct, Text: text, Raw: text, Pos: pos}, nil
	}

	if b := l.ch; b >= utf8.RuneSelf {
		if r := l.skipRune(); r != utf8.RuneError {
			return token.Token{}, dslerr.NewLexError(pos, "invalid character %q", r)
		}
		return token.Token{}, dslerr.NewLexError(pos, "invalid UTF-8 byte 0x%02x", b)
	}
	ch := l.ch
	l.readChar()
	return token.Token{}, dslerr.NewLexError(pos, "invalid character %q", rune(ch))
}

// skipRune advances past the whole UTF-8 sequence at the current offset,
// counting it as one column.
func (l *Lexer) skipRune() rune {
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size - 1
	l.readChar()
	return r
}

// skipWhitespaceAndComments skips whitespace and collects comments.
func (l *Lexer) skipWhitespaceAndComments() error {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		if l.ch == '/' && l.peekChar() == '/' {
			l.collectLineComment()
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			if err := l.collectBlockComment(); err != nil {
				return err
			}
			continue
		}

		return nil
	}
}

// collectLineComment collects a // comment up to the end of the line.
func (l *Lexer) collectLineComment() {
	startPos := l.currentPos()
	startOffset := l.pos

	for l.ch != '\n' && !l.atEOF() {
		l.readChar()
	}

	l.Comments = append(l.Comments, &token.Comment{
		Kind: token.LineComment,
		Text: l.input[startOffset:l.pos],
		Span: token.Span{Start: startPos, End: l.currentPos()},
	})
}

// collectBlockComment collects a /* */ comment.
func (l *Lexer) collectBlockComment() error {
	startPos := l.currentPos()
	startOffset := l.pos

	l.readChar() // skip '/'
	l.readChar() // skip '*'

	for {
		if l.atEOF() {
			return dslerr.NewLexError(startPos, "unterminated block comment")
		}
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			break
		}
		l.readChar()
	}

	l.Comments = append(l.Comments, &token.Comment{
		Kind: token.BlockComment,
		Text: l.input[startOffset:l.pos],
		Span: token.Span{Start: startPos, End: l.currentPos()},
	})
	return nil
}

// readString reads a quoted string. A doubled quote character inside the
// string stands for one quote: 'it''s' -> it's
func (l *Lexer) readString(pos token.Position) (token.Token, error) {
	quote := l.ch
	start := l.pos
	l.readChar() // skip opening quote

	var result strings.Builder
	for {
		if l.atEOF() {
			return token.Token{}, dslerr.NewLexError(pos, "unterminated string, missing closing %c", quote)
		}
		if l.ch == quote {
			if l.peekChar() == quote {
				result.WriteByte(quote)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			break
		}
		result.WriteByte(l.ch)
		l.readChar()
	}

	return token.Token{
		Kind: token.String,
		Text: result.String(),
		Raw:  l.input[start:l.pos],
		Pos:  pos,
	}, nil
}

// readIdentifier reads a run of identifier characters.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for !l.atEOF() && isIdentChar(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func isIdentChar(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' || ch == '_'
}

// All returns a lazy sequence of the script's tokens, ending with the EOF
// token. The sequence stops after the first error.
func All(s Script) iter.Seq2[token.Token, error] {
	return func(yield func(token.Token, error) bool) {
		l := New(s)
		for {
			tok, err := l.NextToken()
			if !yield(tok, err) || err != nil || tok.Kind == token.EOF {
				return
			}
		}
	}
}
