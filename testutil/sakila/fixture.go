package sakila

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // sqlite driver
	"github.com/stretchr/testify/require"
)

// Film ids which tests refer to.
const (
	FilmAcademyDinosaur    = 1
	FilmAlamoVideotape     = 11
	FilmBrotherhoodBlanket = 101
)

var schema = []string{
	`CREATE TABLE language (
		language_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		last_update TEXT NOT NULL DEFAULT '2006-02-15 05:02:19'
	)`,
	`CREATE TABLE category (
		category_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		last_update TEXT NOT NULL DEFAULT '2006-02-15 04:46:27'
	)`,
	`CREATE TABLE film (
		film_id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		release_year INTEGER,
		language_id INTEGER NOT NULL REFERENCES language (language_id),
		original_language_id INTEGER REFERENCES language (language_id),
		rental_duration INTEGER NOT NULL DEFAULT 3,
		rental_rate REAL NOT NULL DEFAULT 4.99,
		length INTEGER,
		replacement_cost REAL NOT NULL DEFAULT 19.99,
		rating TEXT DEFAULT 'G',
		special_features TEXT,
		last_update TEXT NOT NULL DEFAULT '2006-02-15 05:03:42'
	)`,
	`CREATE TABLE film_category (
		film_id INTEGER NOT NULL REFERENCES film (film_id),
		category_id INTEGER NOT NULL REFERENCES category (category_id),
		PRIMARY KEY (film_id, category_id)
	)`,
	`CREATE TABLE actor (
		actor_id INTEGER PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		last_update TEXT NOT NULL DEFAULT '2006-02-15 04:34:33'
	)`,
	`CREATE TABLE film_actor (
		actor_id INTEGER NOT NULL REFERENCES actor (actor_id),
		film_id INTEGER NOT NULL REFERENCES film (film_id),
		PRIMARY KEY (actor_id, film_id)
	)`,
	`CREATE VIEW film_list AS
		SELECT film.film_id AS fid,
			film.title AS title,
			film.description AS description,
			category.name AS category,
			film.rental_rate AS price,
			film.length AS length,
			film.rating AS rating
		FROM film
		JOIN film_category ON film_category.film_id = film.film_id
		JOIN category ON category.category_id = film_category.category_id`,
}

var seed = []string{
	`INSERT INTO language (language_id, name) VALUES
		(1, 'English'), (2, 'Italian'), (3, 'Japanese'), (4, 'Mandarin'), (5, 'French'), (6, 'German')`,
	`INSERT INTO category (category_id, name) VALUES
		(1, 'Action'), (2, 'Animation'), (3, 'Children'), (4, 'Classics'),
		(5, 'Comedy'), (6, 'Documentary'), (7, 'Drama'), (8, 'Family'),
		(9, 'Foreign'), (10, 'Games'), (11, 'Horror'), (12, 'Music'),
		(13, 'New'), (14, 'Sci-Fi'), (15, 'Sports'), (16, 'Travel')`,
	`INSERT INTO film (film_id, title, description, release_year, language_id, original_language_id,
			rental_duration, rental_rate, length, replacement_cost, rating, special_features) VALUES
		(1, 'ACADEMY DINOSAUR', 'A Epic Drama of a Feminist And a Mad Scientist who must Battle a Teacher in The Canadian Rockies',
			2006, 1, NULL, 6, 0.99, 86, 20.99, 'PG', 'Deleted Scenes,Behind the Scenes'),
		(2, 'ACE GOLDFINGER', 'A Astounding Epistle of a Database Administrator And a Explorer who must Find a Car in Ancient China',
			2006, 1, NULL, 3, 4.99, 48, 12.99, 'G', 'Trailers,Deleted Scenes'),
		(3, 'ADAPTATION HOLES', 'A Astounding Reflection of a Lumberjack And a Car who must Sink a Lumberjack in A Baloon Factory',
			2006, 1, NULL, 7, 2.99, 50, 18.99, 'NC-17', 'Trailers,Deleted Scenes'),
		(7, 'AIRPLANE SIERRA', 'A Touching Saga of a Hunter And a Butler who must Discover a Butler in A Jet Boat',
			2006, 1, NULL, 6, 4.99, 62, 28.99, 'PG-13', 'Trailers,Deleted Scenes'),
		(11, 'ALAMO VIDEOTAPE', 'A Boring Epistle of a Butler And a Cat who must Fight a Pastry Chef in A MySQL Convention',
			2006, 1, 2, 6, 0.99, 126, 16.99, 'G', 'Commentaries,Behind the Scenes'),
		(101, 'BROTHERHOOD BLANKET', 'A Fateful Character Study of a Butler And a Technical Writer who must Sink a Astronaut in Ancient Japan',
			2006, 1, NULL, 3, 0.99, 73, 26.99, 'R', 'Behind the Scenes'),
		(133, 'CHAMBER ITALIAN', 'A Fateful Reflection of a Moose And a Husband who must Overcome a Monkey in Nigeria',
			2006, 1, NULL, 7, 4.99, 117, 14.99, 'NC-17', 'Trailers'),
		(142, 'CHINATOWN GLADIATOR', 'A Brilliant Panorama of a Technical Writer And a Lumberjack who must Escape a Butler in Ancient India',
			2006, 1, NULL, 7, 4.99, 61, 24.99, 'PG', 'Deleted Scenes'),
		(436, 'HIGH ENCINO', 'A Fateful Saga of a Waitress And a Hunter who must Outrace a Sumo Wrestler in Australia',
			2006, 1, NULL, 3, 2.99, 84, 23.99, 'R', 'Trailers,Commentaries'),
		(980, 'WIZARD COLDBLOODED', 'A Lacklusture Display of a Robot And a Girl who must Defeat a Sumo Wrestler in A MySQL Convention',
			2006, 1, NULL, 4, 4.99, 75, 12.99, 'PG', 'Commentaries,Deleted Scenes,Behind the Scenes')`,
	`INSERT INTO film_category (film_id, category_id) VALUES
		(1, 6), (2, 11), (3, 6), (7, 5), (11, 9), (101, 6), (133, 9), (142, 13), (436, 6), (980, 1)`,
	`INSERT INTO actor (actor_id, first_name, last_name) VALUES
		(1, 'PENELOPE', 'GUINESS'), (10, 'CHRISTIAN', 'GABLE'), (20, 'LUCILLE', 'TRACY'),
		(30, 'SANDRA', 'PECK'), (40, 'JOHNNY', 'CAGE'), (53, 'MENA', 'TEMPLE'),
		(81, 'SCARLETT', 'DAMON'), (108, 'WARREN', 'NOLTE'), (162, 'OPRAH', 'KILMER'),
		(168, 'WILL', 'WILSON'), (188, 'ROCK', 'DUKAKIS'), (198, 'MARY', 'KEITEL')`,
	`INSERT INTO film_actor (actor_id, film_id) VALUES
		(1, 1), (10, 1), (20, 1), (30, 1), (40, 1), (53, 1), (108, 1), (162, 1), (188, 1), (198, 1),
		(81, 11), (168, 11),
		(20, 101), (81, 101)`,
}

// Load creates the schema and inserts the fixture rows.
func Load(ctx context.Context, db *sql.DB) error {
	for _, statement := range append(schema, seed...) {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("loading sakila fixture: %w", err)
		}
	}

	return nil
}

// Exec runs additional statements against the fixture, e.g. to add categories in a test.
func Exec(t testing.TB, db *sql.DB, statements ...string) {
	for _, statement := range statements {
		_, err := db.ExecContext(context.Background(), statement)
		require.NoError(t, err, "error in arranging test data")
	}
}

// OpenSQLite opens a fresh, private in-memory database with the fixture loaded.
// The database is closed when the test ends.
func OpenSQLite(t testing.TB) *sql.DB {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:sakila-%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err, "error opening sqlite in test setup")

	// a single connection keeps the in-memory database alive and shared
	db.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = db.Close() // makes no sense to handle this
	})

	require.NoError(t, Load(context.Background(), db), "error loading sakila fixture")

	return db
}
