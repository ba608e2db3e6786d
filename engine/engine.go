package engine

import (
	"database/sql"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

// Open registers the vector functions and opens a SQLite database using the
// modernc.org/sqlite driver.
//
// For file-based databases, pass a path like "./db.sqlite". For in-memory
// databases, pass ":memory:"; note that every pooled connection then sees its
// own database, so callers should limit the pool to one connection.
func Open(dsn string) (*sql.DB, error) {
	if err := RegisterVectorFunctions(); err != nil {
		return nil, err
	}
	return sql.Open("sqlite", dsn)
}
