package plugin

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leapstack-labs/conceptc/pkg/concept"
	"github.com/leapstack-labs/conceptc/pkg/dslerr"
	"gopkg.in/yaml.v3"
)

// TypesFile is the YAML document declaring concept types:
//
//	types:
//	  - name: ComputedInfo
//	    keyword: Computed
//	    members:
//	      - {name: Entity, kind: parent, ref: EntityInfo, key: true}
//	      - {name: Expression, kind: string}
type TypesFile struct {
	Types []TypeDecl `yaml:"types"`
}

// TypeDecl declares one concept type.
type TypeDecl struct {
	Name    string       `yaml:"name"`
	Keyword string       `yaml:"keyword"`
	Base    string       `yaml:"base"`
	Members []MemberDecl `yaml:"members"`
}

// MemberDecl declares one member. Kind is one of string, bool, int,
// reference or parent. Ref names the referenced type; "*" or empty on a
// reference means any concept type.
type MemberDecl struct {
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"`
	Ref         string `yaml:"ref"`
	Key         bool   `yaml:"key"`
	NonParsable bool   `yaml:"non_parsable"`
}

// LoadTypesFile reads concept types from a YAML file. Base and referenced
// type names resolve against the same file first, then against known.
func LoadTypesFile(path string, known Set) ([]*concept.Type, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read types file: %w", err)
	}
	return LoadTypes(bytes.NewReader(data), known)
}

// LoadTypes reads concept types from YAML.
func LoadTypes(r io.Reader, known Set) ([]*concept.Type, error) {
	var file TypesFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("invalid types file: %w", err)
	}

	declared := make(map[string]*concept.Type, len(file.Types))
	for _, d := range file.Types {
		if d.Name == "" {
			return nil, dslerr.NewConfigError("<unnamed>", "type declaration without a name")
		}
		if _, dup := declared[d.Name]; dup {
			return nil, dslerr.NewConfigError(d.Name, "declared twice")
		}
		if _, exists := known.Type(d.Name); exists {
			return nil, dslerr.NewConfigError(d.Name, "already provided by a plugin")
		}
		declared[d.Name] = &concept.Type{Name: d.Name, Keyword: d.Keyword}
	}

	lookup := func(name string) (*concept.Type, bool) {
		if t, ok := declared[name]; ok {
			return t, true
		}
		return known.Type(name)
	}

	types := make([]*concept.Type, 0, len(file.Types))
	for _, d := range file.Types {
		t := declared[d.Name]
		if d.Base != "" {
			base, ok := lookup(d.Base)
			if !ok {
				return nil, dslerr.NewConfigError(d.Name, "unknown base type %q", d.Base)
			}
			t.Base = base
		}
		for _, md := range d.Members {
			m, err := member(md, lookup)
			if err != nil {
				return nil, dslerr.NewConfigError(d.Name, "member %q: %v", md.Name, err)
			}
			t.Members = append(t.Members, m)
		}
		types = append(types, t)
	}
	return types, nil
}

func member(d MemberDecl, lookup func(string) (*concept.Type, bool)) (concept.Member, error) {
	m := concept.Member{Name: d.Name, Key: d.Key, NonParsable: d.NonParsable}
	switch strings.ToLower(d.Kind) {
	case "", "string":
		m.Kind, m.Scalar = concept.Scalar, concept.String
	case "bool":
		m.Kind, m.Scalar = concept.Scalar, concept.Bool
	case "int":
		m.Kind, m.Scalar = concept.Scalar, concept.Int
	case "reference":
		m.Kind = concept.Reference
	case "parent":
		m.Kind = concept.Parent
	default:
		return m, fmt.Errorf("unknown kind %q", d.Kind)
	}
	if !m.IsConcept() {
		if d.Ref != "" {
			return m, fmt.Errorf("scalar member cannot reference %q", d.Ref)
		}
		return m, nil
	}
	if d.Ref == "" || d.Ref == "*" {
		return m, nil
	}
	t, ok := lookup(d.Ref)
	if !ok {
		return m, fmt.Errorf("unknown referenced type %q", d.Ref)
	}
	m.Ref = t
	return m, nil
}
