package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	colCategoryID   = "category_id"
	colCategoryName = "name"
	colRating       = "rating"
)

// OptionsLoader provides the raw whitelist rows for the filter dimensions.
//
// QueryAllCategoryValues must return rows with the columns "category_id" and "name".
// QueryAllRatingValues must return rows with the column "rating".
type OptionsLoader interface {
	QueryAllCategoryValues(ctx context.Context) (Rows, error)
	QueryAllRatingValues(ctx context.Context) (Rows, error)
}

/***** FilterSnapshot *****/

// FilterSnapshot is an immutable set of whitelists as loaded at one point in time.
// Values changed in storage after LoadedAt are not visible until the next refresh.
type FilterSnapshot struct {
	id       uuid.UUID
	loadedAt time.Time
	category OptionFilter
	rating   OptionFilter
}

func (s *FilterSnapshot) ID() uuid.UUID {
	return s.id
}

func (s *FilterSnapshot) LoadedAt() time.Time {
	return s.loadedAt
}

func (s *FilterSnapshot) CategoryFilter() OptionFilter {
	return s.category
}

func (s *FilterSnapshot) RatingFilter() OptionFilter {
	return s.rating
}

/***** FilterFactory *****/

// FilterFactory owns one OptionFilter per dimension and composes validated fragments from them.
//
// The whitelists are loaded eagerly at construction and kept as a snapshot, which can be replaced
// with Refresh. Compose is safe for concurrent use.
type FilterFactory struct {
	loader   OptionsLoader
	snapshot atomic.Pointer[FilterSnapshot]
	clock    func() time.Time
}

// FactoryOption defines a functional option for configuring FilterFactory.
type FactoryOption func(*FilterFactory)

// WithClock sets the clock used to stamp snapshots.
func WithClock(clock func() time.Time) FactoryOption {
	return func(ff *FilterFactory) {
		ff.clock = clock
	}
}

// NewFilterFactory creates a FilterFactory and loads the category and rating whitelists.
func NewFilterFactory(ctx context.Context, loader OptionsLoader, options ...FactoryOption) (*FilterFactory, error) {
	if loader == nil {
		return nil, ErrNilDatabaseConnection
	}

	ff := &FilterFactory{
		loader: loader,
		clock:  time.Now,
	}

	for _, option := range options {
		option(ff)
	}

	if err := ff.Refresh(ctx); err != nil {
		return nil, err
	}

	return ff, nil
}

// Refresh loads fresh whitelists and replaces the current snapshot.
// If loading fails, the previous snapshot stays in place.
func (ff *FilterFactory) Refresh(ctx context.Context) error {
	categoryFilter, err := ff.buildCategoryFilter(ctx)
	if err != nil {
		return err
	}

	ratingFilter, err := ff.buildRatingFilter(ctx)
	if err != nil {
		return err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return errors.Join(ErrLoadingFilterOptionsFailed, err)
	}

	ff.snapshot.Store(&FilterSnapshot{
		id:       id,
		loadedAt: ff.clock(),
		category: categoryFilter,
		rating:   ratingFilter,
	})

	return nil
}

// Snapshot returns the current whitelist snapshot.
func (ff *FilterFactory) Snapshot() *FilterSnapshot {
	return ff.snapshot.Load()
}

func (ff *FilterFactory) CategoryFilter() OptionFilter {
	return ff.Snapshot().category
}

func (ff *FilterFactory) RatingFilter() OptionFilter {
	return ff.Snapshot().rating
}

// Compose builds the fragment for the selection: the category predicate first, then the rating predicate.
// Values which are empty or not in the whitelist contribute nothing.
func (ff *FilterFactory) Compose(selection Selection) Fragment {
	composer := ff.NewComposer()
	composer.IncludeCategoryValue(selection.Category)
	composer.IncludeRatingValue(selection.Rating)

	return composer.Result()
}

// NewComposer starts a new stepwise composition bound to the current snapshot.
func (ff *FilterFactory) NewComposer() *Composer {
	return &Composer{snapshot: ff.Snapshot()}
}

func (ff *FilterFactory) buildCategoryFilter(ctx context.Context) (OptionFilter, error) {
	rows, err := ff.loader.QueryAllCategoryValues(ctx)
	if err != nil {
		return OptionFilter{}, errors.Join(ErrLoadingFilterOptionsFailed, err)
	}

	options := make([]FilterOption, 0, len(rows))
	for _, row := range rows {
		id, convErr := intValue(row[colCategoryID])
		if convErr != nil {
			return OptionFilter{}, errors.Join(ErrLoadingFilterOptionsFailed, convErr)
		}

		options = append(options, FilterOption{ID: id, Value: stringValue(row[colCategoryName])})
	}

	return NewOptionFilter(DimensionCategory, options)
}

func (ff *FilterFactory) buildRatingFilter(ctx context.Context) (OptionFilter, error) {
	rows, err := ff.loader.QueryAllRatingValues(ctx)
	if err != nil {
		return OptionFilter{}, errors.Join(ErrLoadingFilterOptionsFailed, err)
	}

	options := make([]FilterOption, 0, len(rows))
	counter := 1 // ratings have no id of their own
	for _, row := range rows {
		if row[colRating] == nil {
			continue
		}

		options = append(options, FilterOption{ID: counter, Value: stringValue(row[colRating])})
		counter++
	}

	return NewOptionFilter(DimensionRating, options)
}

/***** Composer *****/

// Composer accumulates a fragment step by step.
// It is not safe for concurrent use, every logical query needs its own Composer.
type Composer struct {
	snapshot *FilterSnapshot
	result   Fragment
}

// ClearResult resets the accumulated fragment.
func (c *Composer) ClearResult() {
	c.result = Fragment{}
}

// IncludeCategoryValue appends a category predicate if the value is in the whitelist.
func (c *Composer) IncludeCategoryValue(value OptionValueString) {
	c.addPredicate(c.snapshot.category.IncludeValue(value))
}

// IncludeRatingValue appends a rating predicate if the value is in the whitelist.
func (c *Composer) IncludeRatingValue(value OptionValueString) {
	c.addPredicate(c.snapshot.rating.IncludeValue(value))
}

// Result returns the accumulated fragment, which is empty if nothing valid was included.
func (c *Composer) Result() Fragment {
	return c.result
}

func (c *Composer) addPredicate(predicate Predicate, ok bool) {
	if !ok {
		return
	}

	c.result = c.result.With(predicate)
}

func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

func intValue(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case int16:
		return int(val), nil
	case int32:
		return int(val), nil
	case int64:
		return int(val), nil
	case uint8:
		return int(val), nil
	case uint16:
		return int(val), nil
	case uint32:
		return int(val), nil
	case uint64:
		return int(val), nil
	case string:
		return strconv.Atoi(val)
	case []byte:
		return strconv.Atoi(string(val))
	default:
		return 0, fmt.Errorf("unexpected id type %T", v)
	}
}
