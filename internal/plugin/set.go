// Package plugin assembles concept types, macros and initializers into the
// set a build runs with, and loads concept types declared in YAML.
package plugin

import (
	"github.com/leapstack-labs/conceptc/internal/grammar"
	"github.com/leapstack-labs/conceptc/pkg/concept"
)

// Set is a collection of concept types with their macros and initializers.
type Set struct {
	Types        []*concept.Type
	Macros       []concept.Macro
	Initializers []concept.Initializer
}

// Merge concatenates sets in order. Macros keep their relative order, which
// is the order they are evaluated in.
func Merge(sets ...Set) Set {
	var out Set
	for _, s := range sets {
		out.Types = append(out.Types, s.Types...)
		out.Macros = append(out.Macros, s.Macros...)
		out.Initializers = append(out.Initializers, s.Initializers...)
	}
	return out
}

// Type returns the type with the given name.
func (s Set) Type(name string) (*concept.Type, bool) {
	for _, t := range s.Types {
		for c := t; c != nil; c = c.Base {
			if c.Name == name {
				return c, true
			}
		}
	}
	return nil, false
}

// Registry builds the grammar registry of the set.
func (s Set) Registry() (*grammar.Registry, error) {
	return grammar.New(s.Types, grammar.WithInitializers(s.Initializers...))
}
