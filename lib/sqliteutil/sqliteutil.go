package sqliteutil

import (
	"database/sql"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// opens (or creates) a sqlite database at the given path and applies
// the schema. a path of ":memory:" yields an in-memory database.
func OpenDB(schema, path string) (*sql.DB, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	_, err = database.Exec(schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		database.Close()
		return nil, err
	}
	return database, nil
}
