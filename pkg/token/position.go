package token

import "fmt"

// Position represents a location in a DSL script.
type Position struct {
	Script string // script name as supplied by the caller
	Line   int    // 1-based line number
	Column int    // 1-based column number
	Offset int    // 0-based byte offset within the script
}

// IsValid returns true if the position is valid (line > 0).
func (p Position) IsValid() bool {
	return p.Line > 0
}

// String renders the position as "script:line:column".
func (p Position) String() string {
	if !p.IsValid() {
		return "-"
	}
	if p.Script == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.Script, p.Line, p.Column)
}

// Span represents a range in a script.
type Span struct {
	Start Position
	End   Position
}

// Contains returns true if the span contains the given offset.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start.Offset && offset < s.End.Offset
}

// IsValid returns true if both start and end positions are valid.
func (s Span) IsValid() bool {
	return s.Start.IsValid() && s.End.IsValid()
}
