package sqlitestore

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// Pragmas applied to every pooled connection.
var pragmas = []string{
	"busy_timeout(10000)",
	"foreign_keys(1)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

// openDB opens the SQLite database at path. ":memory:" opens a private
// in-memory database on a single connection.
func openDB(path string) (*sql.DB, error) {
	memory := path == ":memory:"
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlitestore: mkdir: %w", err)
		}
	}

	q := url.Values{}
	for _, p := range pragmas {
		if memory && strings.HasPrefix(p, "journal_mode") {
			continue
		}
		q.Add("_pragma", p)
	}
	// Writers take the lock at BEGIN instead of failing to upgrade later.
	q.Set("_txlock", "immediate")

	dsn := path + "?" + q.Encode()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}
	if memory {
		// Each connection to ":memory:" is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: exec schema: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS branches (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	genesis TEXT    NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS revisions (
	seq       INTEGER PRIMARY KEY AUTOINCREMENT,
	hash      TEXT    NOT NULL UNIQUE,
	branch_id INTEGER NOT NULL REFERENCES branches(id),
	position  INTEGER NOT NULL,
	body      BLOB    NOT NULL,
	UNIQUE (branch_id, position)
);
`
