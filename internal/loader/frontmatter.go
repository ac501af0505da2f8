package loader

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Frontmatter is the optional YAML header of a script:
//
//	/*---
//	description: Sales module
//	tags: [sales]
//	---*/
//
// The header is a block comment, so the tokenizer skips it and positions
// in the script stay unchanged.
type Frontmatter struct {
	Description string         `yaml:"description"`
	Tags        []string       `yaml:"tags"`
	Disabled    bool           `yaml:"disabled"`
	Meta        map[string]any `yaml:"meta"` // Extension point for custom fields
}

// frontmatterPattern matches /*--- ... ---*/ blocks at the start of a script.
var frontmatterPattern = regexp.MustCompile(`(?s)^\s*/\*---\s*\n(.*?)\s*---\*/`)

// ExtractFrontmatter parses the frontmatter of a script. It returns nil
// when the script has none.
func ExtractFrontmatter(content string) (*Frontmatter, error) {
	matches := frontmatterPattern.FindStringSubmatch(content)
	if len(matches) < 2 {
		return nil, nil
	}
	return parseFrontmatterYAML(matches[1])
}

var knownFields = map[string]bool{
	"description": true,
	"tags":        true,
	"disabled":    true,
	"meta":        true,
}

// parseFrontmatterYAML parses YAML content with strict field validation.
func parseFrontmatterYAML(yamlContent string) (*Frontmatter, error) {
	// First, decode into a map to check for unknown fields
	var rawMap map[string]any
	if err := yaml.Unmarshal([]byte(yamlContent), &rawMap); err != nil {
		return nil, &FrontmatterParseError{
			Message: fmt.Sprintf("invalid YAML: %v", err),
		}
	}

	for field := range rawMap {
		if !knownFields[field] {
			return nil, &UnknownFieldError{Field: field}
		}
	}

	fm := &Frontmatter{}
	if err := yaml.Unmarshal([]byte(yamlContent), fm); err != nil {
		return nil, &FrontmatterParseError{
			Message: fmt.Sprintf("failed to parse frontmatter: %v", err),
		}
	}
	return fm, nil
}

// FrontmatterParseError represents a frontmatter parsing error.
type FrontmatterParseError struct {
	File    string
	Message string
}

func (e *FrontmatterParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}

// UnknownFieldError represents an error for unknown frontmatter fields.
type UnknownFieldError struct {
	File  string
	Field string
}

func (e *UnknownFieldError) Error() string {
	msg := fmt.Sprintf("unknown field %q in frontmatter, use \"meta\" field for custom fields", e.Field)
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, msg)
	}
	return msg
}
