// Package dslerr defines the typed errors raised while building a concept model.
//
// Every error carries the structured data an external reporter needs to render
// a diagnostic (script position, concept key, member name). None of them format
// console output beyond Error().
package dslerr

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/conceptc/pkg/token"
)

// Error is implemented by all pipeline errors.
type Error interface {
	error
	// Position returns the source position, or the zero position if the
	// error is not tied to a script location.
	Position() token.Position
}

// baseError provides common error functionality.
type baseError struct {
	pos token.Position
	msg string
}

func (e *baseError) Position() token.Position { return e.pos }
func (e *baseError) Error() string {
	if e.pos.IsValid() {
		return fmt.Sprintf("%s: %s", e.pos, e.msg)
	}
	return e.msg
}

// LexError is raised for a malformed token.
type LexError struct {
	baseError
}

// NewLexError creates a new lexer error.
func NewLexError(pos token.Position, format string, args ...any) *LexError {
	return &LexError{baseError{pos: pos, msg: fmt.Sprintf(format, args...)}}
}

// SyntaxError is raised when no grammar matches, a match is ambiguous, or a
// terminator is missing.
type SyntaxError struct {
	baseError
	// Keyword is the statement keyword, if one was read.
	Keyword string
	// Candidates lists the competing concept types of an ambiguous statement.
	Candidates []string
	// Reasons lists why each grammar recognising the keyword rejected the arguments.
	Reasons []string
}

// NewSyntaxError creates a new syntax error.
func NewSyntaxError(pos token.Position, format string, args ...any) *SyntaxError {
	return &SyntaxError{baseError: baseError{pos: pos, msg: fmt.Sprintf(format, args...)}}
}

func (e *SyntaxError) Error() string {
	base := e.baseError.Error()
	switch {
	case len(e.Candidates) > 0:
		return fmt.Sprintf("%s (candidates: %s)", base, strings.Join(e.Candidates, ", "))
	case len(e.Reasons) > 0:
		return fmt.Sprintf("%s:\n  %s", base, strings.Join(e.Reasons, "\n  "))
	}
	return base
}

// SemanticError is raised by a macro validation step.
type SemanticError struct {
	baseError
	// Concept is the user-facing description of the rejected concept.
	Concept string
	Cause   error
}

// NewSemanticError creates a new semantic error for the described concept.
func NewSemanticError(pos token.Position, concept string, cause error) *SemanticError {
	return &SemanticError{
		baseError: baseError{pos: pos, msg: fmt.Sprintf("%s: %v", concept, cause)},
		Concept:   concept,
		Cause:     cause,
	}
}

func (e *SemanticError) Unwrap() error {
	return e.Cause
}

// IdentityError is raised for conflicting duplicate keys or a key computed
// over a missing key member.
type IdentityError struct {
	baseError
	Key    string
	Member string
}

// NewIdentityError creates a new identity error.
func NewIdentityError(pos token.Position, key, member, format string, args ...any) *IdentityError {
	return &IdentityError{
		baseError: baseError{pos: pos, msg: fmt.Sprintf(format, args...)},
		Key:       key,
		Member:    member,
	}
}

// ReferenceError is raised when a reference is still unresolved after the
// model reached its fixpoint, or when its target has the wrong type.
type ReferenceError struct {
	baseError
	// Concept is the description of the referencing concept.
	Concept string
	Member  string
	// Target is the key the reference should have resolved to.
	Target string
	// Expected and Found are the member's type and the target's type on a
	// type mismatch. Both are empty for a missing target.
	Expected string
	Found    string
}

// NewReferenceError creates a new reference error.
func NewReferenceError(pos token.Position, concept, member, target string) *ReferenceError {
	return &ReferenceError{
		baseError: baseError{pos: pos, msg: fmt.Sprintf(
			"%s: member %q references %q which does not exist", concept, member, target)},
		Concept: concept,
		Member:  member,
		Target:  target,
	}
}

// NewReferenceTypeError creates a reference error for a target of the wrong
// concept type.
func NewReferenceTypeError(pos token.Position, concept, member, target, found, expected string) *ReferenceError {
	return &ReferenceError{
		baseError: baseError{pos: pos, msg: fmt.Sprintf(
			"%s: member %q references %s %q, expected %s", concept, member, found, target, expected)},
		Concept:  concept,
		Member:   member,
		Target:   target,
		Expected: expected,
		Found:    found,
	}
}

// ConvergenceError is raised when macro expansion exceeds its iteration ceiling.
type ConvergenceError struct {
	baseError
	// Type is the concept type suspected of non-termination.
	Type       string
	Iterations int
}

// NewConvergenceError creates a new convergence error.
func NewConvergenceError(pos token.Position, typeName string, iterations int) *ConvergenceError {
	return &ConvergenceError{
		baseError: baseError{pos: pos, msg: fmt.Sprintf(
			"macro expansion did not converge after %d iterations (concept type %s)", iterations, typeName)},
		Type:       typeName,
		Iterations: iterations,
	}
}

// OrderingError is raised when the dependency graph contains a cycle.
type OrderingError struct {
	baseError
	// Cycle lists the concept keys along the cycle, first key repeated last.
	Cycle []string
}

// NewOrderingError creates a new ordering error.
func NewOrderingError(cycle []string) *OrderingError {
	return &OrderingError{
		baseError: baseError{msg: "circular dependency: " + strings.Join(cycle, " -> ")},
		Cycle:     cycle,
	}
}

// ConfigError is raised when the set of concept types or macros is invalid.
// It is a plugin defect, not a DSL error.
type ConfigError struct {
	baseError
	Type string
}

// NewConfigError creates a new configuration error for the named concept type.
func NewConfigError(typeName, format string, args ...any) *ConfigError {
	return &ConfigError{
		baseError: baseError{msg: fmt.Sprintf("concept type %s: %s", typeName, fmt.Sprintf(format, args...))},
		Type:      typeName,
	}
}
