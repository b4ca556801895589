// Package sakila provides a small excerpt of the sakila sample database for tests.
//
// The fixture covers the tables and the film_list view the catalog queries read from
// (film, language, category, film_category, actor, film_actor) and runs in an
// in-memory SQLite database, so engine tests need no external database server.
// The data is a subset of the real sakila rows, films keep their original ids.
package sakila
