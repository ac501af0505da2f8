package grammar

import "github.com/leapstack-labs/conceptc/pkg/concept"

// Rule is the parsing rule derived for one concept type: the keyword
// followed by the parsable members in positional order.
type Rule struct {
	Type *concept.Type
	// Steps lists the parsable members in the order they are read.
	Steps []Step
}

// Step is one positional member of a rule.
type Step struct {
	Member concept.Member
	// Index is the member position within Type.AllMembers().
	Index int
}

// Rules returns the parsing rules for keyword, in registration order.
func (r *Registry) Rules(keyword string) []Rule {
	types := r.byKeyword[keyword]
	rules := make([]Rule, 0, len(types))
	for _, t := range types {
		rules = append(rules, RuleFor(t))
	}
	return rules
}

// RuleFor derives the parsing rule of t.
func RuleFor(t *concept.Type) Rule {
	rule := Rule{Type: t}
	for idx, m := range t.AllMembers() {
		if m.NonParsable {
			continue
		}
		rule.Steps = append(rule.Steps, Step{Member: m, Index: idx})
	}
	return rule
}
