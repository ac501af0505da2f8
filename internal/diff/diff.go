// Package diff compares two builds of a concept model by concept key.
package diff

import "github.com/leapstack-labs/conceptc/pkg/concept"

// Change is a concept present in both builds with different values.
type Change struct {
	Old concept.Record
	New concept.Record
}

// Result lists the differences between two builds. Added and Changed follow
// the order of the later build, Removed the order of the earlier one.
type Result struct {
	Added   []concept.Record
	Changed []Change
	Removed []concept.Record
}

// Empty reports whether the builds are equivalent.
func (r Result) Empty() bool {
	return len(r.Added) == 0 && len(r.Changed) == 0 && len(r.Removed) == 0
}

// Compare matches concepts by key. A concept whose type or any member value
// differs is reported as changed.
func Compare(before, after []concept.Record) Result {
	oldByKey := make(map[string]concept.Record, len(before))
	for _, r := range before {
		oldByKey[r.Key] = r
	}
	newKeys := make(map[string]bool, len(after))

	var res Result
	for _, r := range after {
		newKeys[r.Key] = true
		prev, ok := oldByKey[r.Key]
		switch {
		case !ok:
			res.Added = append(res.Added, r)
		case !prev.Equal(r):
			res.Changed = append(res.Changed, Change{Old: prev, New: r})
		}
	}
	for _, r := range before {
		if !newKeys[r.Key] {
			res.Removed = append(res.Removed, r)
		}
	}
	return res
}

// Keys returns the keys of records.
func Keys(records []concept.Record) []string {
	keys := make([]string, len(records))
	for i, r := range records {
		keys[i] = r.Key
	}
	return keys
}
