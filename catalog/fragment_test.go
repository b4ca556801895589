package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/movie-catalog/catalog"
)

func Test_Fragment_ZeroValue_IsEmpty(t *testing.T) {
	var fragment catalog.Fragment

	assert.True(t, fragment.IsEmpty())
	assert.Empty(t, fragment.String())
	assert.Empty(t, fragment.Predicates())
}

func Test_Fragment_With_JoinsPredicatesInOrder(t *testing.T) {
	categories, err := catalog.NewOptionFilter(catalog.DimensionCategory, []catalog.FilterOption{{ID: 6, Value: "Documentary"}})
	require.NoError(t, err)
	ratings, err := catalog.NewOptionFilter(catalog.DimensionRating, []catalog.FilterOption{{ID: 1, Value: "R"}})
	require.NoError(t, err)

	categoryPredicate, _ := categories.IncludeValue("documentary")
	ratingPredicate, _ := ratings.IncludeValue("r")

	first := catalog.Fragment{}.With(categoryPredicate)
	second := first.With(ratingPredicate)

	assert.Equal(t, "category='Documentary'", first.String(), "With must not modify the receiver")
	assert.Equal(t, "category='Documentary' AND rating='R'", second.String())
	assert.Len(t, second.Predicates(), 2)
}

func Test_Selection_IsEmpty(t *testing.T) {
	assert.True(t, catalog.Selection{}.IsEmpty())
	assert.False(t, catalog.Selection{Category: "Action"}.IsEmpty())
	assert.False(t, catalog.Selection{Rating: "PG"}.IsEmpty())
}
