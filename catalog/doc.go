// Package catalog provides the core types for querying a relational movie catalog
// (films, categories, ratings, actors).
//
// This package defines the filter-construction subsystem and the types shared by
// the database-specific query engine implementations: whitelisted filter options,
// validated predicates, filter fragments, result rows, and common error definitions.
//
// Filtering supports exactly two dimensions combined with AND semantics:
//   - category (whitelist loaded from the category table)
//   - rating (whitelist loaded from the distinct ratings of the film list)
//
// User-supplied values are matched case-insensitively against the whitelist. Unknown
// values contribute nothing to a filter, they are never rejected and never reach SQL.
//
// Key types:
//   - OptionFilter: Validates a value against one dimension's whitelist
//   - FilterFactory: Owns the whitelist snapshot and composes fragments
//   - Fragment: An ordered, AND-joined list of validated predicates
//   - Rows: Query results keyed by column name
//
// Common usage pattern:
//
//	factory, err := catalog.NewFilterFactory(ctx, engine)
//	if err != nil {
//		// handle error
//	}
//
//	fragment := factory.Compose(catalog.Selection{Category: "documentary", Rating: "r"})
//	fmt.Println(fragment) // category='Documentary' AND rating='R'
package catalog
