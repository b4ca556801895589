package catalog

import (
	"strings"
)

type DimensionLabelString = string
type OptionValueString = string

const (
	DimensionCategory DimensionLabelString = "category"
	DimensionRating   DimensionLabelString = "rating"
	fragmentSeparator                      = " AND "
)

/***** Predicate *****/

// Predicate is a single validated "column=value" or "column<>value" clause.
// The value is always the canonical value from the whitelist, never the raw input.
type Predicate struct {
	column  DimensionLabelString
	value   OptionValueString
	negated bool
}

func (p Predicate) Column() DimensionLabelString {
	return p.column
}

func (p Predicate) Value() OptionValueString {
	return p.value
}

// Negated reports whether the predicate excludes its value.
func (p Predicate) Negated() bool {
	return p.negated
}

// String renders the predicate in its literal form, e.g. category='Documentary'.
// The rendering is for logging and inspection, the query engine binds the value as a parameter.
func (p Predicate) String() string {
	operator := "="
	if p.negated {
		operator = "<>"
	}

	return p.column + operator + "'" + p.value + "'"
}

/***** Fragment *****/

// Fragment is an ordered list of predicates which are combined with AND.
// The zero value is the empty fragment, which means "no active filter".
type Fragment struct {
	predicates []Predicate
}

func (f Fragment) Predicates() []Predicate {
	return f.predicates
}

func (f Fragment) IsEmpty() bool {
	return len(f.predicates) == 0
}

// With returns a new Fragment with the predicate appended.
func (f Fragment) With(predicate Predicate) Fragment {
	predicates := make([]Predicate, 0, len(f.predicates)+1)
	predicates = append(predicates, f.predicates...)
	predicates = append(predicates, predicate)

	return Fragment{predicates: predicates}
}

// String renders all predicates joined by " AND ", or "" for the empty fragment.
func (f Fragment) String() string {
	parts := make([]string, 0, len(f.predicates))
	for _, predicate := range f.predicates {
		parts = append(parts, predicate.String())
	}

	return strings.Join(parts, fragmentSeparator)
}

/***** Selection *****/

// Selection holds the requested inclusions per dimension. An empty string means the dimension is not filtered.
type Selection struct {
	Category OptionValueString
	Rating   OptionValueString
}

func (s Selection) IsEmpty() bool {
	return s.Category == "" && s.Rating == ""
}
