package catalog

import (
	"slices"
	"strings"
)

// FilterOption is one legal value of a filter dimension.
type FilterOption struct {
	ID    int
	Value OptionValueString
}

// OptionFilter validates free-text values against a preloaded whitelist of options
// and renders predicates for the column named by its label.
type OptionFilter struct {
	label   DimensionLabelString
	options []FilterOption
}

// NewOptionFilter creates an OptionFilter for the given label, which must exactly match the SQL column it filters.
// The options are copied. An empty option list is legal and simply matches nothing.
func NewOptionFilter(label DimensionLabelString, options []FilterOption) (OptionFilter, error) {
	if label == "" {
		return OptionFilter{}, ErrEmptyDimensionLabel
	}

	return OptionFilter{
		label:   label,
		options: slices.Clone(options),
	}, nil
}

func (of OptionFilter) Label() DimensionLabelString {
	return of.label
}

// Options returns a copy of the whitelist in source order.
func (of OptionFilter) Options() []FilterOption {
	return slices.Clone(of.options)
}

// IncludeValue builds an equality predicate for the option matching the input.
// It returns false for empty input or when no option matches.
func (of OptionFilter) IncludeValue(input string) (Predicate, bool) {
	option, found := of.Lookup(input)
	if !found {
		return Predicate{}, false
	}

	return Predicate{column: of.label, value: option.Value}, true
}

// ExcludeValue builds an inequality predicate for the option matching the input.
// It returns false for empty input or when no option matches.
func (of OptionFilter) ExcludeValue(input string) (Predicate, bool) {
	option, found := of.Lookup(input)
	if !found {
		return Predicate{}, false
	}

	return Predicate{column: of.label, value: option.Value, negated: true}, true
}

// Lookup searches the whitelist for an option whose value equals the input, ignoring case.
// The first match in source order wins.
func (of OptionFilter) Lookup(input string) (FilterOption, bool) {
	if input == "" {
		return FilterOption{}, false
	}

	// linear search, whitelists are tiny
	for _, option := range of.options {
		if strings.EqualFold(input, option.Value) {
			return option, true
		}
	}

	return FilterOption{}, false
}

// LookupID searches the whitelist for the option with the given id.
func (of OptionFilter) LookupID(id int) (FilterOption, bool) {
	for _, option := range of.options {
		if option.ID == id {
			return option, true
		}
	}

	return FilterOption{}, false
}
