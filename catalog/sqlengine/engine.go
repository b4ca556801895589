package sqlengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"    // dialect import
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect import
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/AntonStoeckl/movie-catalog/catalog"
	"github.com/AntonStoeckl/movie-catalog/catalog/sqlengine/internal/adapters"
)

const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectSQLite   = "sqlite3"
)

const (
	defaultFilmListView = "film_list"
	tableFilm           = "film"
	tableLanguage       = "language"
	tableFilmActor      = "film_actor"
	tableActor          = "actor"
	tableCategory       = "category"
	aliasFID            = "FID"
	aliasLanguage       = "language"
	aliasOrigLanguage   = "original_language"
	colFID              = "fid"
	colTitle            = "title"
	colCategory         = "category"
	colRating           = "rating"
	colCategoryID       = "category_id"
	colName             = "name"
	likeWildcard        = "%"
)

const (
	actionQueryMovies     = "query_movies"
	actionQueryDetails    = "query_details"
	actionQueryActors     = "query_actors"
	actionQueryCategories = "query_categories"
	actionQueryRatings    = "query_ratings"
	actionRefreshFilters  = "refresh_filters"
)

// QueryEngine answers the catalog's read queries against a relational database.
// It owns the FilterFactory which validates category and rating input.
// A QueryEngine is safe for concurrent use.
type QueryEngine struct {
	db               adapters.DBAdapter
	filters          *catalog.FilterFactory
	dialect          string
	filmListView     string
	orderedResults   bool
	breaker          *gobreaker.CircuitBreaker[catalog.Rows]
	logger           catalog.Logger
	contextualLogger catalog.ContextualLogger
	metricsCollector catalog.MetricsCollector
	tracingCollector catalog.TracingCollector
}

// NewQueryEngineFromPGXPool creates a new QueryEngine using a pgx Pool with optional configuration.
func NewQueryEngineFromPGXPool(ctx context.Context, db *pgxpool.Pool, options ...Option) (*QueryEngine, error) {
	if db == nil {
		return nil, catalog.ErrNilDatabaseConnection
	}

	return newQueryEngine(ctx, adapters.NewPGXAdapter(db), options...)
}

// NewQueryEngineFromPGXPoolWithReplica creates a new QueryEngine which reads from the replica pool.
func NewQueryEngineFromPGXPoolWithReplica(
	ctx context.Context,
	db *pgxpool.Pool,
	replica *pgxpool.Pool,
	options ...Option,
) (*QueryEngine, error) {

	if db == nil || replica == nil {
		return nil, catalog.ErrNilDatabaseConnection
	}

	return newQueryEngine(ctx, adapters.NewPGXAdapterWithReplica(db, replica), options...)
}

// NewQueryEngineFromSQLDB creates a new QueryEngine using a sql.DB with optional configuration.
func NewQueryEngineFromSQLDB(ctx context.Context, db *sql.DB, options ...Option) (*QueryEngine, error) {
	if db == nil {
		return nil, catalog.ErrNilDatabaseConnection
	}

	return newQueryEngine(ctx, adapters.NewSQLAdapter(db), options...)
}

// NewQueryEngineFromSQLX creates a new QueryEngine using a sqlx.DB with optional configuration.
func NewQueryEngineFromSQLX(ctx context.Context, db *sqlx.DB, options ...Option) (*QueryEngine, error) {
	if db == nil {
		return nil, catalog.ErrNilDatabaseConnection
	}

	return newQueryEngine(ctx, adapters.NewSQLXAdapter(db), options...)
}

func newQueryEngine(ctx context.Context, db adapters.DBAdapter, options ...Option) (*QueryEngine, error) {
	qe := &QueryEngine{
		db:           db,
		dialect:      DialectPostgres,
		filmListView: defaultFilmListView,
	}

	for _, option := range options {
		if err := option(qe); err != nil {
			return nil, err
		}
	}

	filters, err := catalog.NewFilterFactory(ctx, qe)
	if err != nil {
		qe.logError(ctx, logMsgLoadFiltersFailed, err)
		return nil, err
	}

	qe.filters = filters
	qe.logFilterSnapshot(ctx, filters.Snapshot())

	return qe, nil
}

// Filters returns the FilterFactory holding the current whitelist snapshot.
func (qe *QueryEngine) Filters() *catalog.FilterFactory {
	return qe.filters
}

// RefreshFilters reloads the category and rating whitelists.
// On failure the previous whitelists stay active.
func (qe *QueryEngine) RefreshFilters(ctx context.Context) error {
	start := time.Now()
	ctx, span := qe.startTraceSpan(ctx, spanNamePrefix+actionRefreshFilters, qe.spanAttributes(actionRefreshFilters))

	if err := qe.filters.Refresh(ctx); err != nil {
		qe.logError(ctx, logMsgLoadFiltersFailed, err, logAttrAction, actionRefreshFilters)
		qe.recordCounter(MetricFilterRefreshes, actionRefreshFilters, statusError)
		qe.finishQuerySpanError(span, errorType(err), time.Since(start))

		return err
	}

	snapshot := qe.filters.Snapshot()
	qe.recordDuration(MetricQueryDuration, time.Since(start), actionRefreshFilters, statusSuccess)
	qe.recordCounter(MetricFilterRefreshes, actionRefreshFilters, statusSuccess)
	qe.finishTraceSpan(span, statusSuccess, map[string]string{spanAttrSnapshotID: snapshot.ID().String()})
	qe.logFilterSnapshot(ctx, snapshot)

	return nil
}

// Ping checks whether the database is reachable.
func (qe *QueryEngine) Ping(ctx context.Context) error {
	if err := qe.db.Ping(ctx); err != nil {
		return errors.Join(catalog.ErrBackendUnavailable, err)
	}

	return nil
}

// QueryMovies searches the film list.
//
// A non-empty title adds a case-insensitive substring match on the title.
// A non-empty category or rating adds the validated filter fragment; values that are not
// in the whitelist are ignored, so an unknown category returns the same rows as no category.
func (qe *QueryEngine) QueryMovies(ctx context.Context, title, category, rating string) (catalog.Rows, error) {
	selectStmt, err := qe.buildMovieSelect(title, catalog.Selection{Category: category, Rating: rating})
	if err != nil {
		return nil, err
	}

	return qe.queryBase(ctx, actionQueryMovies, selectStmt)
}

// BuildMovieQuery renders the movie search statement without executing it.
func (qe *QueryEngine) BuildMovieQuery(title string, selection catalog.Selection) (string, []any, error) {
	selectStmt, err := qe.buildMovieSelect(title, selection)
	if err != nil {
		return "", nil, err
	}

	return qe.toSQL(selectStmt)
}

// QueryDetailsByFilmID returns the details of one film, or no rows.
// An empty or non-numeric film id returns no rows without querying the database.
func (qe *QueryEngine) QueryDetailsByFilmID(ctx context.Context, filmID catalog.FilmIDString) (catalog.Rows, error) {
	id, ok := catalog.ParseFilmID(filmID)
	if !ok {
		qe.logOperation(ctx, logMsgSkippedInvalidID, logAttrAction, actionQueryDetails, logAttrFilmID, filmID)
		return catalog.Rows{}, nil
	}

	return qe.queryBase(ctx, actionQueryDetails, qe.buildDetailsSelect(id))
}

// QueryActorsByFilmID returns the actors of one film.
// An empty or non-numeric film id returns no rows without querying the database.
func (qe *QueryEngine) QueryActorsByFilmID(ctx context.Context, filmID catalog.FilmIDString) (catalog.Rows, error) {
	id, ok := catalog.ParseFilmID(filmID)
	if !ok {
		qe.logOperation(ctx, logMsgSkippedInvalidID, logAttrAction, actionQueryActors, logAttrFilmID, filmID)
		return catalog.Rows{}, nil
	}

	return qe.queryBase(ctx, actionQueryActors, qe.buildActorsSelect(id))
}

// QueryAllCategoryValues returns all categories with the columns category_id and name.
func (qe *QueryEngine) QueryAllCategoryValues(ctx context.Context) (catalog.Rows, error) {
	selectStmt := qe.builder().
		From(tableCategory).
		Select(colCategoryID, colName)

	if qe.orderedResults {
		selectStmt = selectStmt.Order(goqu.C(colCategoryID).Asc())
	}

	return qe.queryBase(ctx, actionQueryCategories, selectStmt)
}

// QueryAllRatingValues returns the distinct ratings of the film list with the column rating.
func (qe *QueryEngine) QueryAllRatingValues(ctx context.Context) (catalog.Rows, error) {
	selectStmt := qe.builder().
		From(qe.filmListView).
		Select(colRating).
		Distinct()

	if qe.orderedResults {
		selectStmt = selectStmt.Order(goqu.C(colRating).Asc())
	}

	return qe.queryBase(ctx, actionQueryRatings, selectStmt)
}

func (qe *QueryEngine) builder() goqu.DialectWrapper {
	return goqu.Dialect(qe.dialect)
}

func (qe *QueryEngine) buildMovieSelect(title string, selection catalog.Selection) (*goqu.SelectDataset, error) {
	if qe.filters == nil {
		return nil, errors.Join(catalog.ErrBuildingQueryFailed, catalog.ErrLoadingFilterOptionsFailed)
	}

	selectStmt := qe.builder().
		From(qe.filmListView).
		Select(goqu.C(colFID).As(aliasFID), colTitle, colCategory, colRating)

	if qe.orderedResults {
		selectStmt = selectStmt.Order(goqu.C(colFID).Asc())
	}

	clauses := make([]exp.Expression, 0, 2)

	if title != "" {
		clauses = append(clauses, goqu.C(colTitle).ILike(likeWildcard+title+likeWildcard))
	}

	if !selection.IsEmpty() {
		fragment := qe.filters.Compose(selection)
		if !fragment.IsEmpty() {
			clauses = append(clauses, fragmentExpression(fragment))
		}
	}

	return assembleStatement(selectStmt, clauses...), nil
}

func (qe *QueryEngine) buildDetailsSelect(filmID catalog.FilmID) *goqu.SelectDataset {
	selectStmt := qe.builder().
		From(tableFilm).
		LeftJoin(
			goqu.T(tableLanguage).As(aliasLanguage),
			goqu.On(goqu.I("film.language_id").Eq(goqu.I(aliasLanguage+".language_id"))),
		).
		LeftJoin(
			goqu.T(tableLanguage).As(aliasOrigLanguage),
			goqu.On(goqu.I("film.original_language_id").Eq(goqu.I(aliasOrigLanguage+".language_id"))),
		).
		Select(
			goqu.I("film.film_id"),
			goqu.I("film.title"),
			goqu.I("film.release_year"),
			goqu.I(aliasLanguage+".name").As(aliasLanguage),
			goqu.I(aliasOrigLanguage+".name").As(aliasOrigLanguage),
			goqu.I("film.rental_duration"),
			goqu.I("film.rental_rate"),
			goqu.I("film.length"),
			goqu.I("film.replacement_cost"),
			goqu.I("film.rating"),
			goqu.I("film.special_features"),
			goqu.I("film.last_update"),
			goqu.I("film.description"),
		).
		Where(goqu.I("film.film_id").Eq(uint64(filmID)))

	return selectStmt
}

func (qe *QueryEngine) buildActorsSelect(filmID catalog.FilmID) *goqu.SelectDataset {
	selectStmt := qe.builder().
		From(tableFilmActor).
		LeftJoin(
			goqu.T(tableActor),
			goqu.On(goqu.I("film_actor.actor_id").Eq(goqu.I("actor.actor_id"))),
		).
		Select(
			goqu.I("film_actor.film_id"),
			goqu.I("actor.actor_id"),
			goqu.I("actor.first_name"),
			goqu.I("actor.last_name"),
		).
		Where(goqu.I("film_actor.film_id").Eq(uint64(filmID)))

	if qe.orderedResults {
		selectStmt = selectStmt.Order(goqu.I("actor.actor_id").Asc())
	}

	return selectStmt
}

// assembleStatement appends the clauses to the base statement as one WHERE, joined by AND in the given order.
// Without clauses the base statement is returned unchanged.
func assembleStatement(base *goqu.SelectDataset, clauses ...exp.Expression) *goqu.SelectDataset {
	if len(clauses) == 0 {
		return base
	}

	return base.Where(clauses...)
}

// fragmentExpression turns a validated fragment into a single AND group with bound values.
func fragmentExpression(fragment catalog.Fragment) exp.ExpressionList {
	expressions := make([]exp.Expression, 0, len(fragment.Predicates()))

	for _, predicate := range fragment.Predicates() {
		if predicate.Negated() {
			expressions = append(expressions, goqu.C(predicate.Column()).Neq(predicate.Value()))
			continue
		}

		expressions = append(expressions, goqu.C(predicate.Column()).Eq(predicate.Value()))
	}

	return goqu.And(expressions...)
}

func (qe *QueryEngine) toSQL(selectStmt *goqu.SelectDataset) (string, []any, error) {
	sqlQuery, args, toSQLErr := selectStmt.Prepared(true).ToSQL()
	if toSQLErr != nil {
		return "", nil, errors.Join(catalog.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, args, nil
}

// queryBase renders, executes, and collects one statement.
func (qe *QueryEngine) queryBase(ctx context.Context, action string, selectStmt *goqu.SelectDataset) (catalog.Rows, error) {
	ctx, span := qe.startQuerySpan(ctx, action)

	sqlQuery, args, buildErr := qe.toSQL(selectStmt)
	if buildErr != nil {
		qe.logError(ctx, logMsgBuildSelectQueryFailed, buildErr, logAttrAction, action)
		qe.recordErrorMetrics(action, errorTypeBuildQuery)
		qe.finishQuerySpanError(span, errorTypeBuildQuery, 0)

		return nil, buildErr
	}

	start := time.Now()
	rows, queryErr := qe.execute(ctx, sqlQuery, args)
	duration := time.Since(start)
	qe.logQueryWithDuration(ctx, sqlQuery, action, duration)

	if queryErr != nil {
		qe.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrAction, action, logAttrQuery, sqlQuery)
		qe.recordErrorMetrics(action, errorType(queryErr))
		qe.recordDuration(MetricQueryDuration, duration, action, statusError)
		qe.finishQuerySpanError(span, errorType(queryErr), duration)

		return nil, queryErr
	}

	qe.recordDuration(MetricQueryDuration, duration, action, statusSuccess)
	qe.recordValue(MetricRowsReturned, float64(len(rows)), action, statusSuccess)
	qe.finishQuerySpanSuccess(span, len(rows), duration)
	qe.logOperation(
		ctx,
		logMsgQueryCompleted,
		logAttrAction, action,
		logAttrRowCount, len(rows),
		logAttrDurationMS, qe.toMilliseconds(duration))

	return rows, nil
}

// execute runs the query, through the circuit breaker if one is configured.
func (qe *QueryEngine) execute(ctx context.Context, sqlQuery string, args []any) (catalog.Rows, error) {
	run := func() (catalog.Rows, error) {
		dbRows, err := qe.db.Query(ctx, sqlQuery, args...)
		if err != nil {
			return nil, errors.Join(catalog.ErrBackendUnavailable, err)
		}
		defer qe.closeRows(ctx, dbRows)

		rows, fetchErr := adapters.FetchAll(dbRows)
		if fetchErr != nil {
			if errors.Is(fetchErr, catalog.ErrScanningDBRowFailed) {
				return nil, fetchErr
			}

			return nil, errors.Join(catalog.ErrBackendUnavailable, fetchErr)
		}

		return rows, nil
	}

	if qe.breaker == nil {
		return run()
	}

	rows, err := qe.breaker.Execute(run)
	if isBreakerRejection(err) {
		return nil, errors.Join(catalog.ErrBackendUnavailable, err)
	}

	return rows, err
}

// closeRows safely closes database rows and logs any errors.
func (qe *QueryEngine) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		qe.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}
