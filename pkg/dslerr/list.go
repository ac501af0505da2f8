package dslerr

import (
	"fmt"
	"strings"
)

// List aggregates independent errors found in a single pass, such as batched
// syntax errors.
type List []error

// Error joins the messages of all errors.
func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors:", len(l))
	for _, err := range l {
		sb.WriteString("\n")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Unwrap exposes the aggregated errors to errors.Is and errors.As.
func (l List) Unwrap() []error {
	return l
}

// Err returns nil for an empty list, the single error for a list of one,
// and the list itself otherwise.
func (l List) Err() error {
	switch len(l) {
	case 0:
		return nil
	case 1:
		return l[0]
	}
	return l
}
